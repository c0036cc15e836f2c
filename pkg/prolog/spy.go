package prolog

import (
	"context"
	"sort"
	"sync"
	"time"
)

// SpyEvent is one entry in the spy log.
type SpyEvent struct {
	Event     string
	Goal      string
	Args      []Term
	Timestamp time.Time
}

// SpyRegistry holds per-predicate spy points and the dedicated spy log.
// Spying is independent of general tracing: a spied predicate records its
// CALL/EXIT/FAIL events whether or not a tracer is active, and the two
// compose in either wrapping order.
type SpyRegistry struct {
	mu     sync.Mutex
	points map[string]bool
	log    []SpyEvent
	stats  map[string]map[string]int // predicate -> event -> count
}

// NewSpyRegistry creates an empty registry.
func NewSpyRegistry() *SpyRegistry {
	return &SpyRegistry{
		points: make(map[string]bool),
		stats:  make(map[string]map[string]int),
	}
}

// Spy adds a spy point on a predicate.
func (sp *SpyRegistry) Spy(pred string) {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	sp.points[pred] = true
}

// Nospy removes a spy point.
func (sp *SpyRegistry) Nospy(pred string) {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	delete(sp.points, pred)
}

// NospyAll removes every spy point.
func (sp *SpyRegistry) NospyAll() {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	sp.points = make(map[string]bool)
}

// SpyPoints returns the spied predicates, sorted.
func (sp *SpyRegistry) SpyPoints() []string {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	out := make([]string, 0, len(sp.points))
	for p := range sp.points {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// SpyLog returns a copy of the spy log.
func (sp *SpyRegistry) SpyLog() []SpyEvent {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	out := make([]SpyEvent, len(sp.log))
	copy(out, sp.log)
	return out
}

// SpyStats returns per-predicate, per-event counts.
func (sp *SpyRegistry) SpyStats() map[string]map[string]int {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	out := make(map[string]map[string]int, len(sp.stats))
	for pred, counts := range sp.stats {
		c := make(map[string]int, len(counts))
		for ev, n := range counts {
			c[ev] = n
		}
		out[pred] = c
	}
	return out
}

// ClearLog discards the spy log and statistics, keeping the spy points.
func (sp *SpyRegistry) ClearLog() {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	sp.log = nil
	sp.stats = make(map[string]map[string]int)
}

func (sp *SpyRegistry) spied(pred string) bool {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	return sp.points[pred]
}

func (sp *SpyRegistry) record(event, pred string, args []Term) {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	sp.log = append(sp.log, SpyEvent{Event: event, Goal: pred, Args: args, Timestamp: time.Now()})
	counts, ok := sp.stats[pred]
	if !ok {
		counts = make(map[string]int)
		sp.stats[pred] = counts
	}
	counts[event]++
}

// wrap instruments a spied predicate's goal with the small spy logger.
func (sp *SpyRegistry) wrap(pred string, args []Term, g Goal) Goal {
	return func(ctx context.Context, s *Substitution) *Stream {
		walked := make([]Term, len(args))
		for i, a := range args {
			walked[i] = s.WalkAll(a)
		}
		sp.record(TraceCall, pred, walked)
		inner := g(ctx, s)

		out := NewStream()
		go func() {
			defer out.Close()
			defer inner.Close()
			count := 0
			for {
				subs, more := inner.Take(1)
				for _, sub := range subs {
					count++
					if !out.Put(sub) {
						sp.record(TraceExit, pred, walked)
						return
					}
				}
				if !more {
					if count > 0 {
						sp.record(TraceExit, pred, walked)
					} else {
						sp.record(TraceFail, pred, walked)
					}
					return
				}
				if ctx.Err() != nil {
					return
				}
			}
		}()
		return out
	}
}
