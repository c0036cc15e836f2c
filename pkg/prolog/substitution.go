package prolog

import (
	"fmt"
	"sort"
	"strings"
)

// Substitution maps variable ids to terms. Extension returns a new
// substitution, leaving the receiver untouched; backtracking discards
// extensions simply by resuming from the parent value. The occurs check is
// always performed on extension, so no cycle is ever stored.
type Substitution struct {
	bindings map[int64]Term
}

// NewSubstitution creates an empty substitution.
func NewSubstitution() *Substitution {
	return &Substitution{bindings: make(map[int64]Term)}
}

// Clone creates a copy of the substitution.
func (s *Substitution) Clone() *Substitution {
	bindings := make(map[int64]Term, len(s.bindings))
	for k, v := range s.bindings {
		bindings[k] = v
	}
	return &Substitution{bindings: bindings}
}

// Lookup returns the term bound to a variable, or nil if unbound.
func (s *Substitution) Lookup(v *Var) Term {
	return s.bindings[v.id]
}

// Size returns the number of bindings.
func (s *Substitution) Size() int { return len(s.bindings) }

// Walk follows variable bindings until it reaches a non-variable term or an
// unbound variable. It does not descend into compound structure.
func (s *Substitution) Walk(t Term) Term {
	for {
		v, ok := t.(*Var)
		if !ok {
			return t
		}
		bound := s.bindings[v.id]
		if bound == nil {
			return t
		}
		t = bound
	}
}

// WalkAll deeply walks a term, inlining every discoverable binding inside
// pairs, compounds, and maps. The result shares unchanged subterms with the
// input.
func (s *Substitution) WalkAll(t Term) Term {
	t = s.Walk(t)
	switch tt := t.(type) {
	case *Pair:
		return NewPair(s.WalkAll(tt.car), s.WalkAll(tt.cdr))
	case *Compound:
		args := make([]Term, len(tt.args))
		for i, a := range tt.args {
			args[i] = s.WalkAll(a)
		}
		return &Compound{functor: tt.functor, args: args}
	case *MapTerm:
		vals := make([]Term, len(tt.vals))
		for i, v := range tt.vals {
			vals[i] = s.WalkAll(v)
		}
		return &MapTerm{keys: tt.keys, vals: vals}
	default:
		return t
	}
}

// Bind extends the substitution with v -> t after an occurs check. Returns
// nil when the check fails, which silently fails the current branch.
// Binding a variable to itself is a no-op.
func (s *Substitution) Bind(v *Var, t Term) *Substitution {
	if tv, ok := t.(*Var); ok && tv.id == v.id {
		return s
	}
	if s.occurs(v.id, t) {
		return nil
	}
	out := s.Clone()
	out.bindings[v.id] = t
	return out
}

// occurs reports whether the variable id appears anywhere in the walked
// image of t.
func (s *Substitution) occurs(id int64, t Term) bool {
	t = s.Walk(t)
	switch tt := t.(type) {
	case *Var:
		return tt.id == id
	case *Pair:
		return s.occurs(id, tt.car) || s.occurs(id, tt.cdr)
	case *Compound:
		for _, a := range tt.args {
			if s.occurs(id, a) {
				return true
			}
		}
		return false
	case *MapTerm:
		for _, v := range tt.vals {
			if s.occurs(id, v) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// String returns a stable rendering of the bindings, sorted by variable id.
func (s *Substitution) String() string {
	if len(s.bindings) == 0 {
		return "{}"
	}
	ids := make([]int64, 0, len(s.bindings))
	for id := range s.bindings {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("_%d=%s", id, s.bindings[id])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
