package prolog

import (
	"context"
	"fmt"
)

// builtinFunc constructs the goal for one builtin call. Builtins receive
// the query run so meta-predicates can resolve their goal arguments.
type builtinFunc func(qr *queryRun, args []Term) Goal

var builtins = make(map[string]builtinFunc)

func builtinKey(name string, arity int) string {
	return fmt.Sprintf("%s/%d", name, arity)
}

func registerBuiltin(name string, arity int, fn builtinFunc) {
	builtins[builtinKey(name, arity)] = fn
}

func lookupBuiltin(name string, arity int) (builtinFunc, bool) {
	fn, ok := builtins[builtinKey(name, arity)]
	return fn, ok
}

// Builtins returns the registered builtin keys, for documentation and the
// REPL's help output.
func Builtins() []string {
	out := make([]string, 0, len(builtins))
	for k := range builtins {
		out = append(out, k)
	}
	return out
}

func init() {
	// Control.
	registerBuiltin("true", 0, func(qr *queryRun, args []Term) Goal { return Succeed })
	registerBuiltin("fail", 0, func(qr *queryRun, args []Term) Goal { return Fail })
	registerBuiltin("false", 0, func(qr *queryRun, args []Term) Goal { return Fail })
	registerBuiltin("!", 0, func(qr *queryRun, args []Term) Goal { return Cut() })
	registerBuiltin("repeat", 0, func(qr *queryRun, args []Term) Goal { return Repeat() })
	registerBuiltin("once", 1, func(qr *queryRun, args []Term) Goal {
		return Once(qr.resolveGoalTerm(args[0]))
	})
	registerBuiltin("not", 1, builtinNot)
	registerBuiltin("\\+", 1, builtinNot)
	registerBuiltin("if", 3, func(qr *queryRun, args []Term) Goal {
		return Ifte(
			qr.resolveGoalTerm(args[0]),
			qr.resolveGoalTerm(args[1]),
			qr.resolveGoalTerm(args[2]),
		)
	})
	registerBuiltin("call", 1, func(qr *queryRun, args []Term) Goal {
		return qr.resolveGoalTerm(args[0])
	})

	// Unification and structural comparison.
	registerBuiltin("=", 2, func(qr *queryRun, args []Term) Goal { return Eq(args[0], args[1]) })
	registerBuiltin("==", 2, builtinStructEq)
	registerBuiltin("\\==", 2, builtinStructNeq)

	// Meta.
	registerBuiltin("findall", 3, builtinFindall)
	registerBuiltin("between", 3, builtinBetween)
	registerBuiltin("copy_term", 2, builtinCopyTerm)
	registerBuiltin("tabled", 1, builtinTabled)
}

func builtinNot(qr *queryRun, args []Term) Goal {
	return Not(qr.resolveGoalTerm(args[0]))
}

func builtinStructEq(qr *queryRun, args []Term) Goal {
	return func(ctx context.Context, s *Substitution) *Stream {
		if s.WalkAll(args[0]).Equal(s.WalkAll(args[1])) {
			return singleton(s)
		}
		return emptyStream()
	}
}

func builtinStructNeq(qr *queryRun, args []Term) Goal {
	return func(ctx context.Context, s *Substitution) *Stream {
		if !s.WalkAll(args[0]).Equal(s.WalkAll(args[1])) {
			return singleton(s)
		}
		return emptyStream()
	}
}

// builtinFindall runs its goal to exhaustion, collecting the walked
// template per solution. It always succeeds, with the empty list when the
// goal has no solutions.
func builtinFindall(qr *queryRun, args []Term) Goal {
	template, goalTerm, listArg := args[0], args[1], args[2]
	return func(ctx context.Context, s *Substitution) *Stream {
		out := NewStream()
		go func() {
			defer out.Close()
			var collected []Term
			st := qr.resolveGoalTerm(goalTerm)(ctx, s)
			for {
				subs, more := st.Take(1)
				for _, sub := range subs {
					collected = append(collected, sub.WalkAll(template))
				}
				if !more {
					break
				}
				if ctx.Err() != nil {
					st.Close()
					return
				}
			}
			st.Close()
			if s2 := Unify(listArg, List(collected...), s); s2 != nil {
				out.Put(s2)
			}
		}()
		return out
	}
}

// builtinBetween enumerates the integers of [low, high] or, with a ground
// third argument, checks bounds. An empty interval yields no solutions.
func builtinBetween(qr *queryRun, args []Term) Goal {
	return func(ctx context.Context, s *Substitution) *Stream {
		low, ok1 := walkInt(args[0], s)
		high, ok2 := walkInt(args[1], s)
		if !ok1 || !ok2 {
			return emptyStream()
		}
		x := s.Walk(args[2])
		if n, ok := x.(*Num); ok && !n.IsFloat() {
			if n.Int64() >= low && n.Int64() <= high {
				return singleton(s)
			}
			return emptyStream()
		}
		if _, ok := x.(*Var); !ok {
			return emptyStream()
		}
		out := NewStream()
		go func() {
			defer out.Close()
			for i := low; i <= high; i++ {
				if ctx.Err() != nil {
					return
				}
				if s2 := Unify(x, NewInt(i), s); s2 != nil {
					if !out.Put(s2) {
						return
					}
				}
			}
		}()
		return out
	}
}

func builtinCopyTerm(qr *queryRun, args []Term) Goal {
	return func(ctx context.Context, s *Substitution) *Stream {
		copied := renameTerm(s.WalkAll(args[0]), make(map[int64]*Var))
		if s2 := Unify(args[1], copied, s); s2 != nil {
			return singleton(s2)
		}
		return emptyStream()
	}
}

// builtinTabled evaluates its goal argument through the knowledge base's
// answer tables (see tabling.go).
func builtinTabled(qr *queryRun, args []Term) Goal {
	return func(ctx context.Context, s *Substitution) *Stream {
		pred, callArgs, ok := splitGoal(s.Walk(args[0]))
		if !ok {
			return emptyStream()
		}
		g := qr.tabledGoal(pred, callArgs, func(freshArgs []Term) Goal {
			return qr.goalFor(pred, freshArgs)
		})
		return g(ctx, s)
	}
}

func walkInt(t Term, s *Substitution) (int64, bool) {
	n, ok := s.Walk(t).(*Num)
	if !ok || n.IsFloat() {
		return 0, false
	}
	return n.Int64(), true
}
