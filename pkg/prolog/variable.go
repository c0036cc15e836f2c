package prolog

import "sync/atomic"

// Variable counter for generating unique variable IDs.
var varCounter int64

// Fresh creates a new logic variable with an optional name. Each call
// generates a variable with a globally unique ID, so no two variables
// conflict even across concurrent queries. Two textual occurrences of the
// same name within one clause share a single Fresh variable; the parser and
// the clause renamer are responsible for that sharing.
func Fresh(name string) *Var {
	id := atomic.AddInt64(&varCounter, 1)
	return &Var{id: id, name: name}
}

// FreshVars allocates n new anonymous variables and invokes body with them.
// This is the variable-introduction combinator used by meta-goals.
func FreshVars(n int, body func(vars []*Var) Goal) Goal {
	vars := make([]*Var, n)
	for i := range vars {
		vars[i] = Fresh("")
	}
	return body(vars)
}
