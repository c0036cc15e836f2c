package prolog

import (
	"context"
	"sync"
	"time"
)

// Trace event kinds.
const (
	TraceCall = "call"
	TraceExit = "exit"
	TraceFail = "fail"
	TraceRedo = "redo"
)

// Trace node statuses.
const (
	StatusPending = "pending"
	StatusSuccess = "success"
	StatusFail    = "fail"
)

// resultCountCap bounds the per-node result counter; the count is
// best-effort for display, updated on each yield and stamped at exit.
const resultCountCap = 100

// DefaultTraceDepth is the default cap on the traced tree. Goals deeper
// than the cap still run, just unwrapped.
const DefaultTraceDepth = 50

// TraceOptions configures a tracer.
type TraceOptions struct {
	// MaxDepth caps the traced tree depth. Zero means DefaultTraceDepth.
	MaxDepth int
}

// TraceNode is one goal activation in the inference tree.
type TraceNode struct {
	ID        int64
	Predicate string
	Args      []Term
	ParentID  int64 // -1 for top-level goals
	Depth     int
	Status    string
	Results   int
}

// TraceEvent is one entry in the append-only trace log.
type TraceEvent struct {
	Kind      string
	Goal      string
	Args      []Term
	Depth     int
	Timestamp time.Time
	NodeID    int64
}

// TraceStats aggregates event counts for a finished trace.
type TraceStats struct {
	Calls int
	Exits int
	Fails int
	Redos int
}

// TraceSnapshot is the trace view returned with a traced query's results.
type TraceSnapshot struct {
	Log   []TraceEvent
	Tree  []TraceNode
	Stats TraceStats
}

// ExportedTraceNode is the UI-facing node shape.
type ExportedTraceNode struct {
	ID      int64  `json:"id"`
	Label   string `json:"label"`
	Args    []Term `json:"args"`
	Status  string `json:"status"`
	Depth   int    `json:"depth"`
	Parent  int64  `json:"parent"`
	Results int    `json:"results"`
}

// TraceLink is a parent-to-child edge in the exported tree.
type TraceLink struct {
	Source int64  `json:"source"`
	Target int64  `json:"target"`
	Label  string `json:"label"`
}

// ExportedTrace is the {nodes, links} shape consumed by the visualizer.
type ExportedTrace struct {
	Nodes []ExportedTraceNode `json:"nodes"`
	Links []TraceLink         `json:"links"`
}

// Tracer captures CALL/EXIT/FAIL events and a parent-linked inference tree
// while a query runs. Each query gets its own tracer; concurrent traced
// queries never share state.
type Tracer struct {
	mu       sync.Mutex
	maxDepth int
	nextID   int64
	nodes    map[int64]*TraceNode
	order    []int64
	events   []TraceEvent
}

// NewTracer creates a tracer with the given options.
func NewTracer(opts TraceOptions) *Tracer {
	depth := opts.MaxDepth
	if depth <= 0 {
		depth = DefaultTraceDepth
	}
	return &Tracer{
		maxDepth: depth,
		nodes:    make(map[int64]*TraceNode),
	}
}

// Clear discards all recorded nodes and events.
func (tr *Tracer) Clear() {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.nextID = 0
	tr.nodes = make(map[int64]*TraceNode)
	tr.order = nil
	tr.events = nil
}

// Log returns a copy of the event log in append order.
func (tr *Tracer) Log() []TraceEvent {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	out := make([]TraceEvent, len(tr.events))
	copy(out, tr.events)
	return out
}

// Tree returns a copy of the trace nodes in creation order.
func (tr *Tracer) Tree() []TraceNode {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	out := make([]TraceNode, 0, len(tr.order))
	for _, id := range tr.order {
		out = append(out, *tr.nodes[id])
	}
	return out
}

// Stats counts logged events by kind.
func (tr *Tracer) Stats() TraceStats {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	var st TraceStats
	for _, ev := range tr.events {
		switch ev.Kind {
		case TraceCall:
			st.Calls++
		case TraceExit:
			st.Exits++
		case TraceFail:
			st.Fails++
		case TraceRedo:
			st.Redos++
		}
	}
	return st
}

// Snapshot copies the log, the tree, and the stats; each of the three is
// read under its own acquisition of the tracer lock.
func (tr *Tracer) Snapshot() *TraceSnapshot {
	return &TraceSnapshot{Log: tr.Log(), Tree: tr.Tree(), Stats: tr.Stats()}
}

// Export produces the {nodes, links} tree for the visualizer.
func (tr *Tracer) Export() ExportedTrace {
	tree := tr.Tree()
	out := ExportedTrace{
		Nodes: make([]ExportedTraceNode, 0, len(tree)),
		Links: make([]TraceLink, 0, len(tree)),
	}
	for _, n := range tree {
		out.Nodes = append(out.Nodes, ExportedTraceNode{
			ID:      n.ID,
			Label:   n.Predicate,
			Args:    n.Args,
			Status:  n.Status,
			Depth:   n.Depth,
			Parent:  n.ParentID,
			Results: n.Results,
		})
		if n.ParentID >= 0 {
			out.Links = append(out.Links, TraceLink{Source: n.ParentID, Target: n.ID, Label: n.Predicate})
		}
	}
	return out
}

func (tr *Tracer) call(pred string, args []Term, parent int64, depth int) *TraceNode {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	id := tr.nextID
	tr.nextID++
	node := &TraceNode{
		ID:        id,
		Predicate: pred,
		Args:      args,
		ParentID:  parent,
		Depth:     depth,
		Status:    StatusPending,
	}
	tr.nodes[id] = node
	tr.order = append(tr.order, id)
	tr.events = append(tr.events, TraceEvent{
		Kind: TraceCall, Goal: pred, Args: args, Depth: depth,
		Timestamp: time.Now(), NodeID: id,
	})
	return node
}

func (tr *Tracer) yield(node *TraceNode, count int) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if count <= resultCountCap {
		node.Results = count
	}
	if count > 1 {
		tr.events = append(tr.events, TraceEvent{
			Kind: TraceRedo, Goal: node.Predicate, Args: node.Args, Depth: node.Depth,
			Timestamp: time.Now(), NodeID: node.ID,
		})
	}
}

func (tr *Tracer) finish(node *TraceNode, count int) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	kind := TraceFail
	if count > 0 {
		kind = TraceExit
		node.Status = StatusSuccess
	} else {
		node.Status = StatusFail
	}
	if count > resultCountCap {
		count = resultCountCap
	}
	node.Results = count
	tr.events = append(tr.events, TraceEvent{
		Kind: kind, Goal: node.Predicate, Args: node.Args, Depth: node.Depth,
		Timestamp: time.Now(), NodeID: node.ID,
	})
}

// traceFrame carries the current parent node and depth through the
// resolver so nested calls link into the tree. Explicit per-query context
// keeps concurrent traced queries independent.
type traceFrame struct {
	parent int64
	depth  int
}

type traceFrameKey struct{}

func withTraceFrame(ctx context.Context, parent int64, depth int) context.Context {
	return context.WithValue(ctx, traceFrameKey{}, traceFrame{parent: parent, depth: depth})
}

func traceFrameFrom(ctx context.Context) traceFrame {
	if f, ok := ctx.Value(traceFrameKey{}).(traceFrame); ok {
		return f
	}
	return traceFrame{parent: -1}
}

// wrap instruments a resolver goal with CALL/EXIT/FAIL/REDO recording.
// Past the depth cap the goal runs unwrapped.
func (tr *Tracer) wrap(pred string, args []Term, g Goal) Goal {
	return func(ctx context.Context, s *Substitution) *Stream {
		frame := traceFrameFrom(ctx)
		if frame.depth >= tr.maxDepth {
			return g(ctx, s)
		}
		walked := make([]Term, len(args))
		for i, a := range args {
			walked[i] = s.WalkAll(a)
		}
		node := tr.call(pred, walked, frame.parent, frame.depth)
		inner := g(withTraceFrame(ctx, node.ID, frame.depth+1), s)

		out := NewStream()
		go func() {
			defer out.Close()
			defer inner.Close()
			count := 0
			for {
				subs, more := inner.Take(1)
				for _, sub := range subs {
					count++
					tr.yield(node, count)
					if !out.Put(sub) {
						tr.finish(node, count)
						return
					}
				}
				if !more {
					tr.finish(node, count)
					return
				}
				if ctx.Err() != nil {
					tr.finish(node, count)
					return
				}
			}
		}()
		return out
	}
}
