package prolog

import "strconv"

// reifier assigns presentation names _0, _1, ... to variables left unbound
// after a query, in first-encounter order. One reifier instance covers one
// solution row so the naming is stable across the row's terms.
type reifier struct {
	names map[int64]string
}

func newReifier() *reifier {
	return &reifier{names: make(map[int64]string)}
}

func (r *reifier) reify(t Term, s *Substitution) Term {
	t = s.Walk(t)
	switch tt := t.(type) {
	case *Var:
		name, ok := r.names[tt.id]
		if !ok {
			name = "_" + strconv.Itoa(len(r.names))
			r.names[tt.id] = name
		}
		return &Var{id: tt.id, name: name}
	case *Pair:
		return NewPair(r.reify(tt.car, s), r.reify(tt.cdr, s))
	case *Compound:
		args := make([]Term, len(tt.args))
		for i, a := range tt.args {
			args[i] = r.reify(a, s)
		}
		return &Compound{functor: tt.functor, args: args}
	case *MapTerm:
		vals := make([]Term, len(tt.vals))
		for i, v := range tt.vals {
			vals[i] = r.reify(v, s)
		}
		return &MapTerm{keys: tt.keys, vals: vals}
	default:
		return t
	}
}

// Reify produces a presentable term: all discoverable bindings are inlined
// and any variables still unbound are renamed _0, _1, ... in
// first-encounter order. Reification is for presenting results; internal
// operations work on raw variables.
func Reify(t Term, s *Substitution) Term {
	return newReifier().reify(t, s)
}

// ReifyAll reifies several terms with one shared naming sequence, so a
// variable appearing in two terms gets the same _N name in both.
func ReifyAll(terms []Term, s *Substitution) []Term {
	r := newReifier()
	out := make([]Term, len(terms))
	for i, t := range terms {
		out[i] = r.reify(t, s)
	}
	return out
}
