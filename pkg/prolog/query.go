package prolog

import (
	"context"
	"sync"
	"sync/atomic"

	metrics "github.com/hashicorp/go-metrics"
	uuid "github.com/hashicorp/go-uuid"
	"github.com/mitchellh/hashstructure"
	opentracing "github.com/opentracing/opentracing-go"
)

// QueryOptions controls one query.
type QueryOptions struct {
	// Trace enables CALL/EXIT/FAIL recording; the snapshot is available
	// from Solutions.Trace after the stream ends.
	Trace bool

	// Limit truncates the solution stream. Zero means unlimited.
	Limit int

	// MaxTraceDepth caps the traced tree. Zero means DefaultTraceDepth.
	MaxTraceDepth int
}

// Solutions is the lazy iterator over a query's results. Each Next pulls
// one more answer out of the search; abandoning the iterator with Close
// releases the search without materializing the rest. Solutions is not
// safe for concurrent use.
type Solutions struct {
	mu     sync.Mutex
	kb     *KnowledgeBase
	qr     *queryRun
	goals  []Term
	vars   []*Var
	limit  int
	span   opentracing.Span
	tracer *Tracer

	cancel  context.CancelFunc
	stream  *Stream
	started bool
	closed  bool
	yielded int

	cacheKey  uint64
	cacheGen  uint64
	cacheable bool
	rows      []map[string]Term

	cached    []map[string]Term
	fromCache bool
}

// Query resolves the conjunction of the given goal terms against the
// knowledge base. Goals are compounds (or bare atoms for zero-arity
// predicates); variables shared between goals must be shared *Var values,
// which is what the parser produces for repeated ?name occurrences.
//
// The returned iterator is lazy: the engine works for solution streams that
// would be infinite without a limit, because nothing runs until Next is
// called and nothing runs further than the answers pulled.
func (kb *KnowledgeBase) Query(goals []Term, opts QueryOptions) (*Solutions, error) {
	for _, g := range goals {
		if _, _, ok := splitGoal(g); !ok {
			return nil, ErrMalformedTerm.New("goal must be a compound term or atom, got " + g.String())
		}
	}

	atomic.AddUint64(&kb.queries, 1)
	metrics.IncrCounter([]string{"prolog", "query"}, 1)

	span := opentracing.StartSpan("prolog.query")
	span.SetTag("goals", len(goals))
	span.SetTag("limit", opts.Limit)
	if id, err := uuid.GenerateUUID(); err == nil {
		span.SetTag("query_id", id)
	}

	sols := &Solutions{
		kb:    kb,
		goals: goals,
		vars:  namedVars(goals),
		limit: opts.Limit,
		span:  span,
	}

	if opts.Trace {
		sols.tracer = NewTracer(TraceOptions{MaxDepth: opts.MaxTraceDepth})
	} else {
		// Only untraced queries are cacheable; a traced run must actually
		// search.
		if key, ok := cacheKeyFor(goals, opts.Limit); ok {
			rows, gen, hit := kb.cache.get(key)
			sols.cacheKey = key
			sols.cacheGen = gen
			sols.cacheable = true
			if hit {
				sols.cached = rows
				sols.fromCache = true
			}
		}
	}

	sols.qr = &queryRun{kb: kb, tracer: sols.tracer}
	return sols, nil
}

// QueryString parses a comma-separated goal list in the textual notation
// and runs it. Occurrences of the same ?name across the goals share one
// variable.
func (kb *KnowledgeBase) QueryString(src string, opts QueryOptions) (*Solutions, error) {
	goals, err := ParseGoals(src)
	if err != nil {
		return nil, err
	}
	return kb.Query(goals, opts)
}

// namedVars collects the distinct named variables across the goals in
// first-encounter order; those are the columns of each solution row.
func namedVars(goals []Term) []*Var {
	seen := make(map[int64]bool)
	var all []*Var
	for _, g := range goals {
		collectVars(g, seen, &all)
	}
	named := all[:0]
	for _, v := range all {
		if v.name != "" {
			named = append(named, v)
		}
	}
	return named
}

func cacheKeyFor(goals []Term, limit int) (uint64, bool) {
	encoded := make([]WireTerm, len(goals))
	for i, g := range goals {
		encoded[i] = EncodeTerm(g)
	}
	key, err := hashstructure.Hash(struct {
		Goals []WireTerm
		Limit int
	}{Goals: encoded, Limit: limit}, nil)
	if err != nil {
		return 0, false
	}
	return key, true
}

func (sols *Solutions) start() {
	ctx, cancel := context.WithCancel(context.Background())
	sols.cancel = cancel
	goalList := make([]Goal, len(sols.goals))
	for i, g := range sols.goals {
		goalList[i] = sols.qr.resolveGoalTerm(g)
	}
	sols.stream = Conj(goalList...)(ctx, NewSubstitution())
	sols.started = true
}

// Next returns the next solution row: reified values for every named query
// variable, with residual variables printed _0, _1, ... The second result
// is false when the stream is exhausted (or closed, or past the limit).
func (sols *Solutions) Next() (map[string]Term, bool) {
	sols.mu.Lock()
	defer sols.mu.Unlock()

	if sols.closed {
		return nil, false
	}
	if sols.limit > 0 && sols.yielded >= sols.limit {
		sols.finish(false)
		return nil, false
	}

	if sols.fromCache {
		if sols.yielded >= len(sols.cached) {
			sols.finish(false)
			return nil, false
		}
		row := sols.cached[sols.yielded]
		sols.yielded++
		return row, true
	}

	if !sols.started {
		sols.start()
	}
	subs, more := sols.stream.Take(1)
	if len(subs) == 0 {
		exhausted := !more
		sols.finish(exhausted)
		return nil, false
	}
	row := sols.reifyRow(subs[0])
	sols.yielded++
	if sols.cacheable {
		sols.rows = append(sols.rows, row)
	}
	// A limit reached right now still counts as a complete result set for
	// this cache key, since the limit is part of the key.
	if sols.limit > 0 && sols.yielded >= sols.limit {
		sols.finish(true)
	}
	return row, true
}

func (sols *Solutions) reifyRow(s *Substitution) map[string]Term {
	row := make(map[string]Term, len(sols.vars))
	r := newReifier()
	for _, v := range sols.vars {
		row[v.name] = r.reify(v, s)
	}
	return row
}

// All drains the remaining solutions into a slice and closes the iterator.
func (sols *Solutions) All() []map[string]Term {
	var out []map[string]Term
	for {
		row, ok := sols.Next()
		if !ok {
			break
		}
		out = append(out, row)
	}
	sols.Close()
	return out
}

// finish must run with sols.mu held. complete marks natural exhaustion
// (cache-worthy) as opposed to abandonment.
func (sols *Solutions) finish(complete bool) {
	if sols.closed {
		return
	}
	sols.closed = true
	if complete && sols.cacheable && !sols.fromCache {
		sols.kb.cache.put(sols.cacheKey, sols.rows, sols.cacheGen)
	}
	if sols.stream != nil {
		sols.stream.Close()
	}
	if sols.cancel != nil {
		sols.cancel()
	}
	sols.span.SetTag("solutions", sols.yielded)
	sols.span.Finish()
}

// Close abandons the iterator. Because the stream is lazy this releases the
// search; no resources outlive the call.
func (sols *Solutions) Close() {
	sols.mu.Lock()
	defer sols.mu.Unlock()
	sols.finish(false)
}

// Trace returns the trace snapshot of a traced query. Call it after the
// stream is exhausted or closed; it returns nil for untraced queries.
func (sols *Solutions) Trace() *TraceSnapshot {
	if sols.tracer == nil {
		return nil
	}
	return sols.tracer.Snapshot()
}

// TraceExport returns the {nodes, links} tree of a traced query for the
// visualizer, or the zero value for untraced queries.
func (sols *Solutions) TraceExport() ExportedTrace {
	if sols.tracer == nil {
		return ExportedTrace{}
	}
	return sols.tracer.Export()
}
