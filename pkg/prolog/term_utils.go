package prolog

import (
	"fmt"
	"strings"
)

// canonicalTerm produces a stable textual key for a term. The encoding is
// injective over term structure, so two terms share a key exactly when they
// are structurally equal. Used for fact identity, map key ordering, and
// tabling call patterns.
func canonicalTerm(t Term) string {
	var sb strings.Builder
	writeCanonical(&sb, t)
	return sb.String()
}

func writeCanonical(sb *strings.Builder, t Term) {
	switch tt := t.(type) {
	case *Atom:
		fmt.Fprintf(sb, "a:%d:%s", len(tt.name), tt.name)
	case *Num:
		if tt.isFloat {
			fmt.Fprintf(sb, "f:%v", tt.f)
		} else {
			fmt.Fprintf(sb, "i:%d", tt.i)
		}
	case *Str:
		fmt.Fprintf(sb, "s:%d:%s", len(tt.value), tt.value)
	case *Var:
		fmt.Fprintf(sb, "v:%d", tt.id)
	case *nilTerm:
		sb.WriteString("nil")
	case *Pair:
		sb.WriteString("p(")
		writeCanonical(sb, tt.car)
		sb.WriteByte(',')
		writeCanonical(sb, tt.cdr)
		sb.WriteByte(')')
	case *Compound:
		fmt.Fprintf(sb, "c:%s/%d(", tt.functor, len(tt.args))
		for i, a := range tt.args {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeCanonical(sb, a)
		}
		sb.WriteByte(')')
	case *MapTerm:
		sb.WriteString("m{")
		for i := range tt.keys {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeCanonical(sb, tt.keys[i])
			sb.WriteByte(':')
			writeCanonical(sb, tt.vals[i])
		}
		sb.WriteByte('}')
	default:
		fmt.Fprintf(sb, "?:%v", t)
	}
}

// canonicalArgs keys an argument tuple.
func canonicalArgs(args []Term) string {
	var sb strings.Builder
	for i, a := range args {
		if i > 0 {
			sb.WriteByte(';')
		}
		writeCanonical(&sb, a)
	}
	return sb.String()
}

// IsGround reports whether the term contains no variables.
func IsGround(t Term) bool {
	switch tt := t.(type) {
	case *Var:
		return false
	case *Pair:
		return IsGround(tt.car) && IsGround(tt.cdr)
	case *Compound:
		for _, a := range tt.args {
			if !IsGround(a) {
				return false
			}
		}
		return true
	case *MapTerm:
		for _, v := range tt.vals {
			if !IsGround(v) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// renameTerm replaces every variable in t with a fresh one carrying the same
// name, sharing renames through the given map so repeated occurrences of a
// variable stay identical. This is how rule clauses are instantiated per use
// and how copy_term works.
func renameTerm(t Term, renames map[int64]*Var) Term {
	switch tt := t.(type) {
	case *Var:
		if fresh, ok := renames[tt.id]; ok {
			return fresh
		}
		fresh := Fresh(tt.name)
		renames[tt.id] = fresh
		return fresh
	case *Pair:
		return NewPair(renameTerm(tt.car, renames), renameTerm(tt.cdr, renames))
	case *Compound:
		args := make([]Term, len(tt.args))
		for i, a := range tt.args {
			args[i] = renameTerm(a, renames)
		}
		return &Compound{functor: tt.functor, args: args}
	case *MapTerm:
		vals := make([]Term, len(tt.vals))
		for i, v := range tt.vals {
			vals[i] = renameTerm(v, renames)
		}
		return &MapTerm{keys: tt.keys, vals: vals}
	default:
		return t
	}
}

func renameArgs(args []Term, renames map[int64]*Var) []Term {
	out := make([]Term, len(args))
	for i, a := range args {
		out[i] = renameTerm(a, renames)
	}
	return out
}

// SliceFromList converts a proper list into a Go slice. The second result
// is false when the term is not a proper list (unbound or improper tail).
func SliceFromList(t Term) ([]Term, bool) {
	var out []Term
	for {
		switch tt := t.(type) {
		case *nilTerm:
			return out, true
		case *Pair:
			out = append(out, tt.car)
			t = tt.cdr
		default:
			return nil, false
		}
	}
}

// collectVars appends every distinct variable in t to vars, in
// first-encounter order, tracking seen ids.
func collectVars(t Term, seen map[int64]bool, vars *[]*Var) {
	switch tt := t.(type) {
	case *Var:
		if !seen[tt.id] {
			seen[tt.id] = true
			*vars = append(*vars, tt)
		}
	case *Pair:
		collectVars(tt.car, seen, vars)
		collectVars(tt.cdr, seen, vars)
	case *Compound:
		for _, a := range tt.args {
			collectVars(a, seen, vars)
		}
	case *MapTerm:
		for _, v := range tt.vals {
			collectVars(v, seen, vars)
		}
	}
}

// callPattern canonicalizes a predicate call for tabling: variables are
// abstracted to positional X0, X1, ... markers by first occurrence so calls
// that differ only in variable identity share a table.
func callPattern(pred string, args []Term) string {
	varMap := make(map[int64]int)
	var sb strings.Builder
	sb.WriteString(pred)
	sb.WriteByte('(')
	for i, a := range args {
		if i > 0 {
			sb.WriteByte(',')
		}
		writePattern(&sb, a, varMap)
	}
	sb.WriteByte(')')
	return sb.String()
}

func writePattern(sb *strings.Builder, t Term, varMap map[int64]int) {
	switch tt := t.(type) {
	case *Var:
		pos, ok := varMap[tt.id]
		if !ok {
			pos = len(varMap)
			varMap[tt.id] = pos
		}
		fmt.Fprintf(sb, "X%d", pos)
	case *Pair:
		sb.WriteString("p(")
		writePattern(sb, tt.car, varMap)
		sb.WriteByte(',')
		writePattern(sb, tt.cdr, varMap)
		sb.WriteByte(')')
	case *Compound:
		fmt.Fprintf(sb, "%s/%d(", tt.functor, len(tt.args))
		for i, a := range tt.args {
			if i > 0 {
				sb.WriteByte(',')
			}
			writePattern(sb, a, varMap)
		}
		sb.WriteByte(')')
	case *MapTerm:
		sb.WriteString("m{")
		for i := range tt.keys {
			if i > 0 {
				sb.WriteByte(',')
			}
			writePattern(sb, tt.keys[i], varMap)
			sb.WriteByte(':')
			writePattern(sb, tt.vals[i], varMap)
		}
		sb.WriteByte('}')
	default:
		writeCanonical(sb, t)
	}
}
