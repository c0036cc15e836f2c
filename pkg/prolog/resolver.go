package prolog

import (
	"context"
	"sync"
)

// queryRun carries one query's resolution state: the knowledge base, the
// lazily-taken store snapshot, and the optional tracer. Every query gets
// its own run, so concurrent traced queries cannot cross-contaminate.
type queryRun struct {
	kb       *KnowledgeBase
	tracer   *Tracer
	snapOnce sync.Once
	snap     *Snapshot
}

// snapshot returns the run's consistent view of the store, taken on first
// access. Mutations committed after that point do not show through.
func (qr *queryRun) snapshot() *Snapshot {
	qr.snapOnce.Do(func() {
		qr.snap = qr.kb.Snapshot()
	})
	return qr.snap
}

// splitGoal splits a goal term into predicate and arguments. Zero-arity
// goals may be written as bare atoms.
func splitGoal(t Term) (string, []Term, bool) {
	switch tt := t.(type) {
	case *Compound:
		return tt.functor, tt.args, true
	case *Atom:
		return tt.name, nil, true
	default:
		return "", nil, false
	}
}

// resolveGoalTerm turns a goal term into a Goal. Dispatch happens at call
// time under the current substitution, so a variable bound to a compound
// resolves like the compound itself.
func (qr *queryRun) resolveGoalTerm(t Term) Goal {
	return func(ctx context.Context, s *Substitution) *Stream {
		pred, args, ok := splitGoal(s.Walk(t))
		if !ok {
			return emptyStream()
		}
		return qr.goalFor(pred, args)(ctx, s)
	}
}

// goalFor builds the goal for one predicate call: a builtin when one is
// registered for the name and arity (builtins shadow knowledge-base
// entries), otherwise knowledge-base resolution. Trace and spy wrapping
// apply to both.
func (qr *queryRun) goalFor(pred string, args []Term) Goal {
	var g Goal
	if bi, ok := lookupBuiltin(pred, len(args)); ok {
		g = bi(qr, args)
	} else {
		g = qr.kbGoal(pred, args)
	}
	if qr.tracer != nil {
		g = qr.tracer.wrap(pred, args, g)
	}
	if qr.kb.spies.spied(pred) {
		g = qr.kb.spies.wrap(pred, args, g)
	}
	return g
}

// kbGoal resolves a predicate against the snapshot: every fact match first,
// then each rule in insertion order. Rule variables are renamed fresh per
// use, the head is unified with the call, and the body runs as a
// conjunction inside a new cut scope. A cut fired in the body commits the
// clause: remaining clauses of this predicate are pruned.
func (qr *queryRun) kbGoal(pred string, args []Term) Goal {
	return func(ctx context.Context, s *Substitution) *Stream {
		out := NewStream()
		go func() {
			defer out.Close()
			snap := qr.snapshot()

			for _, tuple := range snap.FactsOf(pred) {
				if ctx.Err() != nil {
					return
				}
				if s2 := UnifyAll(args, tuple, s); s2 != nil {
					if !out.Put(s2) {
						return
					}
				}
			}

			for _, rule := range snap.RulesOf(pred) {
				if ctx.Err() != nil {
					return
				}
				renames := make(map[int64]*Var)
				head := renameArgs(rule.Head, renames)
				s2 := UnifyAll(args, head, s)
				if s2 == nil {
					continue
				}
				body := make([]Goal, len(rule.Body))
				for i, bg := range rule.Body {
					body[i] = qr.resolveGoalTerm(renameTerm(bg, renames))
				}
				cctx, scope := withCutScope(ctx)
				if !pipe(ctx, Conj(body...)(cctx, s2), out) {
					return
				}
				if scope.count() > 0 {
					return
				}
			}
		}()
		return out
	}
}
