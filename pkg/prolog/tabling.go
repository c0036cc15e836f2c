package prolog

import (
	"context"
	"sync"
	"sync/atomic"
)

// Tabling memoizes the answers of a goal per call variant. A call variant
// is the predicate plus its arguments with variables abstracted to
// positions, so path(?a, ?b) and path(?x, ?y) share one table. Recursive
// variant calls replay the answers discovered so far instead of descending,
// and the producer iterates to a fixpoint, which terminates left-recursive
// programs that plain SLD resolution would loop on.
//
// Answer reuse is strictly variant-based. Reusing a table for a more
// specific call (subsumption) would need one-way matching; unification is
// not a sound subsumption test, so no such reuse happens here.
//
// Tables hang off the knowledge base and are dropped whenever any change
// commits, like the query cache.

// table holds the answers discovered for one call variant.
type table struct {
	mu       sync.Mutex
	answers  [][]Term
	seen     map[string]bool
	running  bool
	complete bool
}

func (t *table) snapshotAnswers() [][]Term {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([][]Term, len(t.answers))
	copy(out, t.answers)
	return out
}

// add records an answer tuple, returning true when it is new.
func (t *table) add(ans []Term) bool {
	key := canonicalArgs(ans)
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.seen[key] {
		return false
	}
	t.seen[key] = true
	t.answers = append(t.answers, ans)
	return true
}

// tableStore is the per-KB collection of tables. runningHits counts how
// often a recursive call consumed a table that was still being produced; a
// producer that overlapped such a consumption leaves its table incomplete,
// so mutually recursive variants keep recomputing until a later run sees a
// clean fixpoint.
type tableStore struct {
	mu          sync.Mutex
	tables      map[string]*table
	runningHits uint64
}

func newTableStore() *tableStore {
	return &tableStore{tables: make(map[string]*table)}
}

func (ts *tableStore) invalidate() {
	ts.mu.Lock()
	ts.tables = make(map[string]*table)
	ts.mu.Unlock()
}

func (ts *tableStore) get(key string) *table {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	tbl, ok := ts.tables[key]
	if !ok {
		tbl = &table{seen: make(map[string]bool)}
		ts.tables[key] = tbl
	}
	return tbl
}

// replayAnswers unifies the caller's arguments against each stored answer
// tuple, renaming residual answer variables fresh per use.
func replayAnswers(ctx context.Context, answers [][]Term, args []Term, s *Substitution, out *Stream) bool {
	for _, ans := range answers {
		if ctx.Err() != nil {
			return false
		}
		renamed := renameArgs(ans, make(map[int64]*Var))
		if s2 := UnifyAll(args, renamed, s); s2 != nil {
			if !out.Put(s2) {
				return false
			}
		}
	}
	return true
}

// tabledGoal evaluates a predicate call through its table. The first caller
// of a variant becomes the producer: it runs the untabled resolution to
// exhaustion, repeating until an iteration adds no new answers, then marks
// the table complete. Recursive calls hitting a running table replay the
// answers known so far, which is what makes the fixpoint converge.
func (qr *queryRun) tabledGoal(pred string, args []Term, produce func(callArgs []Term) Goal) Goal {
	return func(ctx context.Context, s *Substitution) *Stream {
		out := NewStream()
		go func() {
			defer out.Close()

			walked := make([]Term, len(args))
			for i, a := range args {
				walked[i] = s.WalkAll(a)
			}
			key := callPattern(pred, walked)
			tbl := qr.kb.tables.get(key)

			tbl.mu.Lock()
			if tbl.complete {
				answers := make([][]Term, len(tbl.answers))
				copy(answers, tbl.answers)
				tbl.mu.Unlock()
				replayAnswers(ctx, answers, walked, s, out)
				return
			}
			if tbl.running {
				// Recursive variant call: consume what is known so far.
				answers := make([][]Term, len(tbl.answers))
				copy(answers, tbl.answers)
				tbl.mu.Unlock()
				atomic.AddUint64(&qr.kb.tables.runningHits, 1)
				replayAnswers(ctx, answers, walked, s, out)
				return
			}
			tbl.running = true
			tbl.mu.Unlock()
			hitsBefore := atomic.LoadUint64(&qr.kb.tables.runningHits)

			// Producer: iterate until no iteration discovers a new answer.
			// Each iteration proves a fresh renaming of the call so answers
			// generalize over the whole variant.
			emitted := make(map[string]bool)
			for {
				grew := false
				callArgs := renameArgs(walked, make(map[int64]*Var))
				st := produce(callArgs)(ctx, NewSubstitution())
				for {
					subs, more := st.Take(1)
					for _, sub := range subs {
						ans := make([]Term, len(callArgs))
						for i, a := range callArgs {
							ans[i] = sub.WalkAll(a)
						}
						if tbl.add(ans) {
							grew = true
						}
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
				if !grew {
					break
				}
				// Emit newly discovered answers between iterations so the
				// consumer is not stalled until the fixpoint.
				for _, ans := range tbl.snapshotAnswers() {
					k := canonicalArgs(ans)
					if emitted[k] {
						continue
					}
					emitted[k] = true
					renamed := renameArgs(ans, make(map[int64]*Var))
					if s2 := UnifyAll(walked, renamed, s); s2 != nil {
						if !out.Put(s2) {
							return
						}
					}
				}
			}

			tbl.mu.Lock()
			tbl.running = false
			// Completion is only safe when no still-running table fed this
			// run; otherwise the answers may grow on a later call.
			if atomic.LoadUint64(&qr.kb.tables.runningHits) == hitsBefore {
				tbl.complete = true
			}
			answers := make([][]Term, len(tbl.answers))
			copy(answers, tbl.answers)
			tbl.mu.Unlock()

			for _, ans := range answers {
				k := canonicalArgs(ans)
				if emitted[k] {
					continue
				}
				emitted[k] = true
				renamed := renameArgs(ans, make(map[int64]*Var))
				if s2 := UnifyAll(walked, renamed, s); s2 != nil {
					if !out.Put(s2) {
						return
					}
				}
			}
		}()
		return out
	}
}
