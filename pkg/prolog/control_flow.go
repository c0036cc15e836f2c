package prolog

import "context"

// Once keeps only the first solution of a goal, discarding the rest of its
// search space.
func Once(g Goal) Goal {
	return func(ctx context.Context, s *Substitution) *Stream {
		out := NewStream()
		go func() {
			defer out.Close()
			st := g(ctx, s)
			defer st.Close()
			subs, _ := st.Take(1)
			if len(subs) == 1 {
				out.Put(subs[0])
			}
		}()
		return out
	}
}

// Not implements negation as failure: it succeeds with the input
// substitution when the goal has no solutions and fails otherwise. No
// bindings made while probing the goal escape.
func Not(g Goal) Goal {
	return func(ctx context.Context, s *Substitution) *Stream {
		out := NewStream()
		go func() {
			defer out.Close()
			st := g(ctx, s)
			defer st.Close()
			subs, _ := st.Take(1)
			if len(subs) == 0 {
				out.Put(s)
			}
		}()
		return out
	}
}

// Ifte commits to the first solution of the condition: when the condition
// succeeds at least once, thenGoal runs under that first solution only;
// when it fails, elseGoal runs under the original substitution. This is the
// Prolog if-then-else (soft cut on a single solution).
func Ifte(cond, thenGoal, elseGoal Goal) Goal {
	return func(ctx context.Context, s *Substitution) *Stream {
		out := NewStream()
		go func() {
			defer out.Close()
			st := cond(ctx, s)
			subs, _ := st.Take(1)
			st.Close()
			if len(subs) == 0 {
				pipe(ctx, elseGoal(ctx, s), out)
				return
			}
			pipe(ctx, thenGoal(ctx, subs[0]), out)
		}()
		return out
	}
}

// Ifa is if-then-else with full backtracking through the condition: when
// the condition succeeds, thenGoal runs under every condition solution;
// only a failing condition reaches elseGoal.
func Ifa(cond, thenGoal, elseGoal Goal) Goal {
	return func(ctx context.Context, s *Substitution) *Stream {
		out := NewStream()
		go func() {
			defer out.Close()
			st := cond(ctx, s)
			defer st.Close()
			subs, more := st.Take(1)
			if len(subs) == 0 {
				pipe(ctx, elseGoal(ctx, s), out)
				return
			}
			for {
				for _, sub := range subs {
					if !pipe(ctx, thenGoal(ctx, sub), out) {
						return
					}
				}
				if !more || ctx.Err() != nil {
					return
				}
				subs, more = st.Take(1)
			}
		}()
		return out
	}
}

// CondClause pairs a test goal with the body that runs when the test is
// committed to.
type CondClause struct {
	Test Goal
	Body Goal
}

// Conda is the committed-choice conditional (soft cut over clauses): the
// first clause whose test yields any solution is committed to, the body
// runs under every solution of that test, and later clauses are dropped. A
// clause whose test fails passes control to the next one.
func Conda(clauses ...CondClause) Goal {
	return condChain(clauses, false)
}

// Condu is Conda restricted to the first solution of the committed test.
func Condu(clauses ...CondClause) Goal {
	return condChain(clauses, true)
}

func condChain(clauses []CondClause, onlyFirst bool) Goal {
	return func(ctx context.Context, s *Substitution) *Stream {
		out := NewStream()
		go func() {
			defer out.Close()
			for _, cl := range clauses {
				if ctx.Err() != nil {
					return
				}
				st := cl.Test(ctx, s)
				subs, more := st.Take(1)
				if len(subs) == 0 {
					st.Close()
					continue
				}
				// Committed to this clause.
				if onlyFirst {
					st.Close()
					pipe(ctx, cl.Body(ctx, subs[0]), out)
					return
				}
				for {
					for _, sub := range subs {
						if !pipe(ctx, cl.Body(ctx, sub), out) {
							st.Close()
							return
						}
					}
					if !more || ctx.Err() != nil {
						st.Close()
						return
					}
					subs, more = st.Take(1)
				}
			}
		}()
		return out
	}
}

// Repeat succeeds indefinitely with its input substitution. Pair it with a
// cut or a limit; on its own the stream never ends.
func Repeat() Goal {
	return func(ctx context.Context, s *Substitution) *Stream {
		out := NewStream()
		go func() {
			defer out.Close()
			for {
				if ctx.Err() != nil {
					return
				}
				if !out.Put(s) {
					return
				}
			}
		}()
		return out
	}
}
