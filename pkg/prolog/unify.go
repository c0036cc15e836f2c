package prolog

// Unify attempts to make two terms identical under the given substitution.
// It returns the extended substitution on success and nil on mismatch.
// Failure is silent; it drives backtracking rather than raising an error.
//
// Rules, after walking both sides:
//  1. Identical ground values unify without extension.
//  2. A variable on either side binds to the other side, after the occurs
//     check. When both sides are variables the left binds to the right; the
//     direction is irrelevant for correctness but kept consistent for trace
//     stability.
//  3. Pairs unify car against car and cdr against cdr, threading the
//     substitution.
//  4. Compounds unify when functor and arity match, element-wise.
//  5. Maps unify when the key sets are identical, value by value.
//
// The result, when it exists, is a most general unifier modulo variable
// naming. The occurs check is always on.
func Unify(t1, t2 Term, s *Substitution) *Substitution {
	if s == nil {
		return nil
	}
	t1 = s.Walk(t1)
	t2 = s.Walk(t2)

	if t1.Equal(t2) {
		return s
	}
	if v, ok := t1.(*Var); ok {
		return s.Bind(v, t2)
	}
	if v, ok := t2.(*Var); ok {
		return s.Bind(v, t1)
	}

	switch a := t1.(type) {
	case *Pair:
		b, ok := t2.(*Pair)
		if !ok {
			return nil
		}
		s = Unify(a.car, b.car, s)
		if s == nil {
			return nil
		}
		return Unify(a.cdr, b.cdr, s)
	case *Compound:
		b, ok := t2.(*Compound)
		if !ok || a.functor != b.functor || len(a.args) != len(b.args) {
			return nil
		}
		for i := range a.args {
			s = Unify(a.args[i], b.args[i], s)
			if s == nil {
				return nil
			}
		}
		return s
	case *MapTerm:
		b, ok := t2.(*MapTerm)
		if !ok || len(a.keys) != len(b.keys) {
			return nil
		}
		for i := range a.keys {
			if !a.keys[i].Equal(b.keys[i]) {
				return nil
			}
		}
		for i := range a.vals {
			s = Unify(a.vals[i], b.vals[i], s)
			if s == nil {
				return nil
			}
		}
		return s
	}
	return nil
}

// UnifyAll unifies two equal-length argument tuples pairwise, threading the
// substitution. Returns nil on length mismatch or the first failing pair.
func UnifyAll(xs, ys []Term, s *Substitution) *Substitution {
	if len(xs) != len(ys) {
		return nil
	}
	for i := range xs {
		s = Unify(xs[i], ys[i], s)
		if s == nil {
			return nil
		}
	}
	return s
}
