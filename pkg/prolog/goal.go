package prolog

import (
	"context"
	"sync/atomic"
)

// Goal is a logical subproblem: a function from a substitution to a lazy
// stream of extended substitutions. Goals compose into searches through
// Conj and Disj; the resolver turns knowledge-base predicates into goals.
type Goal func(ctx context.Context, s *Substitution) *Stream

// Succeed is a goal that always succeeds exactly once, with its input.
var Succeed Goal = func(ctx context.Context, s *Substitution) *Stream {
	return singleton(s)
}

// Fail is a goal that never succeeds.
var Fail Goal = func(ctx context.Context, s *Substitution) *Stream {
	return emptyStream()
}

// Eq creates a unification goal constraining two terms to be equal.
func Eq(t1, t2 Term) Goal {
	return func(ctx context.Context, s *Substitution) *Stream {
		if ctx.Err() != nil {
			return emptyStream()
		}
		if s2 := Unify(t1, t2, s); s2 != nil {
			return singleton(s2)
		}
		return emptyStream()
	}
}

// cutScope tracks cut activations for one clause activation. The counter
// rather than a flag lets stream loops distinguish choice points opened
// before a cut (pruned) from ones opened after it (kept).
type cutScope struct {
	n int64
}

func (c *cutScope) count() int64 {
	if c == nil {
		return 0
	}
	return atomic.LoadInt64(&c.n)
}

func (c *cutScope) fire() {
	atomic.AddInt64(&c.n, 1)
}

type cutScopeKey struct{}

// withCutScope installs a fresh cut scope on the context. The resolver
// calls this once per clause activation; Cut inside the clause body fires
// the innermost scope.
func withCutScope(ctx context.Context) (context.Context, *cutScope) {
	scope := &cutScope{}
	return context.WithValue(ctx, cutScopeKey{}, scope), scope
}

func cutScopeFrom(ctx context.Context) *cutScope {
	scope, _ := ctx.Value(cutScopeKey{}).(*cutScope)
	return scope
}

// Cut succeeds once and commits the enclosing clause: on backtracking, the
// remaining alternatives of choice points opened before the cut are pruned
// up to the clause boundary. Outside any clause a cut has nothing to commit
// and degrades to a single success, never an error.
func Cut() Goal {
	return func(ctx context.Context, s *Substitution) *Stream {
		if scope := cutScopeFrom(ctx); scope != nil {
			scope.fire()
		}
		return singleton(s)
	}
}

// Conj combines goals left to right, depth-first: each solution of the
// first goal seeds the rest of the conjunction. Zero goals succeed once.
func Conj(goals ...Goal) Goal {
	switch len(goals) {
	case 0:
		return Succeed
	case 1:
		return goals[0]
	}
	return func(ctx context.Context, s *Substitution) *Stream {
		out := NewStream()
		go func() {
			defer out.Close()
			conjRun(ctx, goals, s, out)
		}()
		return out
	}
}

// conjRun threads substitutions through the goal sequence, emitting final
// solutions into out. Returns false when the consumer stopped listening.
func conjRun(ctx context.Context, goals []Goal, s *Substitution, out *Stream) bool {
	st := goals[0](ctx, s)
	defer st.Close()
	scope := cutScopeFrom(ctx)
	before := scope.count()
	for {
		subs, more := st.Take(1)
		for _, sub := range subs {
			if len(goals) == 1 {
				if !out.Put(sub) {
					return false
				}
			} else if !conjRun(ctx, goals[1:], sub, out) {
				return false
			}
		}
		if !more {
			return true
		}
		// A cut fired somewhere to the right: this choice point predates
		// it, so its remaining alternatives are pruned.
		if scope.count() > before {
			return true
		}
		if ctx.Err() != nil {
			return false
		}
	}
}

// Disj tries goals in order, exhausting each branch before starting the
// next. A cut fired inside a branch prunes the remaining branches.
func Disj(goals ...Goal) Goal {
	switch len(goals) {
	case 0:
		return Fail
	case 1:
		return goals[0]
	}
	return func(ctx context.Context, s *Substitution) *Stream {
		out := NewStream()
		go func() {
			defer out.Close()
			scope := cutScopeFrom(ctx)
			before := scope.count()
			for _, g := range goals {
				if ctx.Err() != nil {
					return
				}
				if scope.count() > before {
					return
				}
				if !pipe(ctx, g(ctx, s), out) {
					return
				}
			}
		}()
		return out
	}
}

// Conde is the conventional name for n-ary disjunction.
func Conde(goals ...Goal) Goal {
	return Disj(goals...)
}

// CallGoal defers goal construction to evaluation time. Recursive relations
// use it to avoid building an infinite goal tree up front.
func CallGoal(f func() Goal) Goal {
	return func(ctx context.Context, s *Substitution) *Stream {
		return f()(ctx, s)
	}
}
