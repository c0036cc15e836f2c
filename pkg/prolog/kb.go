package prolog

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	memdb "github.com/hashicorp/go-memdb"
	metrics "github.com/hashicorp/go-metrics"
	multierror "github.com/hashicorp/go-multierror"
	uuid "github.com/hashicorp/go-uuid"
	"github.com/sirupsen/logrus"

	"github.com/SISHRAK0/PrologViz/internal/notify"
)

// Change kinds recorded in the history log and delivered to watchers.
const (
	ChangeAssert  = "assert"
	ChangeRetract = "retract"
	ChangeAddRule = "add-rule"
	ChangeClear   = "clear"
	ChangeImport  = "import"
)

// Rule is a clause with a head argument tuple and a body of goal terms.
// Rules for a predicate keep their insertion order; resolution tries them
// in that order.
type Rule struct {
	Predicate string
	Head      []Term
	Body      []*Compound
	Seq       uint64
}

// HistoryEntry records one committed change.
type HistoryEntry struct {
	Seq       uint64
	Kind      string
	Predicate string
	Args      []Term
	Timestamp time.Time
}

// Event is what watchers receive after a change commits.
type Event struct {
	Kind      string
	Predicate string
	Args      []Term
	Timestamp time.Time
}

// WatchFunc is a watcher callback. It runs on the notification queue,
// outside the transaction that produced the event.
type WatchFunc func(Event)

// Stats is a point-in-time snapshot of knowledge base counters.
type Stats struct {
	TotalFacts     int
	TotalRules     int
	Predicates     int
	Queries        uint64
	FactsAsserted  uint64
	FactsRetracted uint64
	RulesAdded     uint64
}

// ExportData is the value-preserving snapshot produced by Export and
// accepted by Import.
type ExportData struct {
	Facts      map[string][][]Term
	Rules      []Rule
	ExportedAt time.Time
	ID         string
}

// Row types stored in the MemDB tables. Fields are exported for the memdb
// reflection indexers.
type factRow struct {
	ID        string
	Predicate string
	Args      []Term
}

type ruleRow struct {
	ID        string
	Predicate string
	Seq       uint64
	Head      []Term
	Body      []*Compound
}

type historyRow struct {
	Seq       uint64
	Kind      string
	Predicate string
	Args      []Term
	Timestamp time.Time
}

func kbSchema() *memdb.DBSchema {
	clauseIndexes := func() map[string]*memdb.IndexSchema {
		return map[string]*memdb.IndexSchema{
			"id": {
				Name:    "id",
				Unique:  true,
				Indexer: &memdb.StringFieldIndex{Field: "ID"},
			},
			"predicate": {
				Name:    "predicate",
				Indexer: &memdb.StringFieldIndex{Field: "Predicate"},
			},
		}
	}
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			"facts": {
				Name:    "facts",
				Indexes: clauseIndexes(),
			},
			"rules": {
				Name:    "rules",
				Indexes: clauseIndexes(),
			},
			"history": {
				Name: "history",
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.UintFieldIndex{Field: "Seq"},
					},
				},
			},
		},
	}
}

// KnowledgeBase is a transactional store of facts and rules per predicate
// with an append-only history log, a query cache, and change watchers.
// Mutators are serializable; readers work on wait-free snapshots and never
// observe a half-applied change. Create instances with NewKnowledgeBase;
// there is no process-wide store.
type KnowledgeBase struct {
	db *memdb.MemDB

	// mu serializes mutators so the history sequence matches commit order.
	mu  sync.Mutex
	seq uint64

	cache  *queryCache
	tables *tableStore
	spies  *SpyRegistry
	log    *logrus.Entry

	watchMu  sync.Mutex
	watchers map[string]WatchFunc
	queue    *notify.Queue

	queries        uint64
	factsAsserted  uint64
	factsRetracted uint64
	rulesAdded     uint64
}

// NewKnowledgeBase creates an empty knowledge base.
func NewKnowledgeBase() *KnowledgeBase {
	db, err := memdb.NewMemDB(kbSchema())
	if err != nil {
		// The schema is static; failing to build it is a programmer bug.
		panic(fmt.Sprintf("prolog: building kb schema: %v", err))
	}
	return &KnowledgeBase{
		db:       db,
		cache:    newQueryCache(),
		tables:   newTableStore(),
		spies:    NewSpyRegistry(),
		log:      logrus.WithField("component", "prolog.kb"),
		watchers: make(map[string]WatchFunc),
		queue:    notify.New(notify.Config{}),
	}
}

// SetLogger replaces the knowledge base logger.
func (kb *KnowledgeBase) SetLogger(log *logrus.Entry) {
	if log != nil {
		kb.log = log
	}
}

// Close shuts down the watcher delivery queue. The store itself needs no
// teardown.
func (kb *KnowledgeBase) Close() {
	kb.queue.Shutdown()
}

func factID(pred string, args []Term) string {
	return pred + "/" + canonicalArgs(args)
}

// Assert adds a fact to the predicate's set. Asserting an existing fact is
// idempotent for the fact set but still appends a history entry; that is
// the user-visible contract.
func (kb *KnowledgeBase) Assert(pred string, args ...Term) error {
	if pred == "" {
		return ErrMalformedClause.New("empty predicate")
	}
	kb.mu.Lock()
	txn := kb.db.Txn(true)
	if err := txn.Insert("facts", &factRow{ID: factID(pred, args), Predicate: pred, Args: args}); err != nil {
		txn.Abort()
		kb.mu.Unlock()
		return err
	}
	kb.appendHistory(txn, ChangeAssert, pred, args)
	txn.Commit()
	kb.mu.Unlock()

	atomic.AddUint64(&kb.factsAsserted, 1)
	metrics.IncrCounter([]string{"prolog", "kb", "assert"}, 1)
	kb.log.WithFields(logrus.Fields{"predicate": pred, "kind": ChangeAssert}).Debug("fact asserted")
	kb.committed(ChangeAssert, pred, args)
	return nil
}

// Retract removes a fact from the predicate's set. Retracting a fact that
// is not present is a no-op, not an error; the history entry is appended
// either way so the log reflects the request stream.
func (kb *KnowledgeBase) Retract(pred string, args ...Term) error {
	if pred == "" {
		return ErrMalformedClause.New("empty predicate")
	}
	kb.mu.Lock()
	txn := kb.db.Txn(true)
	raw, err := txn.First("facts", "id", factID(pred, args))
	if err != nil {
		txn.Abort()
		kb.mu.Unlock()
		return err
	}
	if raw != nil {
		if err := txn.Delete("facts", raw); err != nil {
			txn.Abort()
			kb.mu.Unlock()
			return err
		}
	}
	kb.appendHistory(txn, ChangeRetract, pred, args)
	txn.Commit()
	kb.mu.Unlock()

	if raw != nil {
		atomic.AddUint64(&kb.factsRetracted, 1)
	}
	metrics.IncrCounter([]string{"prolog", "kb", "retract"}, 1)
	kb.log.WithFields(logrus.Fields{"predicate": pred, "kind": ChangeRetract}).Debug("fact retracted")
	kb.committed(ChangeRetract, pred, args)
	return nil
}

// AddRule appends a rule to the predicate's clause sequence. Order of
// addition is the order resolution will try. The clause shape is validated
// synchronously; a malformed clause leaves the store untouched.
func (kb *KnowledgeBase) AddRule(pred string, head []Term, body []*Compound) error {
	if pred == "" {
		return ErrMalformedClause.New("empty predicate")
	}
	if len(body) == 0 {
		return ErrMalformedClause.New("rule body must have at least one goal")
	}
	for i, g := range body {
		if g == nil {
			return ErrMalformedClause.New(fmt.Sprintf("body goal %d is nil", i))
		}
		if g.Functor() == "" {
			return ErrMalformedClause.New(fmt.Sprintf("body goal %d has an empty functor", i))
		}
	}

	kb.mu.Lock()
	kb.seq++
	seq := kb.seq
	txn := kb.db.Txn(true)
	row := &ruleRow{
		ID:        fmt.Sprintf("%s/%020d", pred, seq),
		Predicate: pred,
		Seq:       seq,
		Head:      head,
		Body:      body,
	}
	if err := txn.Insert("rules", row); err != nil {
		txn.Abort()
		kb.mu.Unlock()
		return err
	}
	kb.appendHistory(txn, ChangeAddRule, pred, head)
	txn.Commit()
	kb.mu.Unlock()

	atomic.AddUint64(&kb.rulesAdded, 1)
	metrics.IncrCounter([]string{"prolog", "kb", "add_rule"}, 1)
	kb.log.WithFields(logrus.Fields{"predicate": pred, "kind": ChangeAddRule}).Debug("rule added")
	kb.committed(ChangeAddRule, pred, head)
	return nil
}

// Clear empties facts, rules, and history, and resets all counters.
func (kb *KnowledgeBase) Clear() error {
	kb.mu.Lock()
	txn := kb.db.Txn(true)
	for _, table := range []string{"facts", "rules", "history"} {
		if _, err := txn.DeleteAll(table, "id"); err != nil {
			txn.Abort()
			kb.mu.Unlock()
			return err
		}
	}
	txn.Commit()
	kb.seq = 0
	kb.mu.Unlock()

	atomic.StoreUint64(&kb.queries, 0)
	atomic.StoreUint64(&kb.factsAsserted, 0)
	atomic.StoreUint64(&kb.factsRetracted, 0)
	atomic.StoreUint64(&kb.rulesAdded, 0)
	kb.log.WithField("kind", ChangeClear).Debug("knowledge base cleared")
	kb.committed(ChangeClear, "", nil)
	return nil
}

// appendHistory must run inside a write transaction holding kb.mu.
func (kb *KnowledgeBase) appendHistory(txn *memdb.Txn, kind, pred string, args []Term) {
	kb.seq++
	row := &historyRow{
		Seq:       kb.seq,
		Kind:      kind,
		Predicate: pred,
		Args:      args,
		Timestamp: time.Now(),
	}
	// Insert into history cannot fail for a well-formed row; the schema is
	// static and Seq is unique under kb.mu.
	if err := txn.Insert("history", row); err != nil {
		panic(fmt.Sprintf("prolog: history insert: %v", err))
	}
}

// committed runs after every commit: cache and table invalidation plus
// asynchronous watcher delivery.
func (kb *KnowledgeBase) committed(kind, pred string, args []Term) {
	kb.cache.invalidate()
	kb.tables.invalidate()

	ev := Event{Kind: kind, Predicate: pred, Args: args, Timestamp: time.Now()}
	kb.watchMu.Lock()
	cbs := make([]WatchFunc, 0, len(kb.watchers))
	for _, cb := range kb.watchers {
		cbs = append(cbs, cb)
	}
	kb.watchMu.Unlock()
	for _, cb := range cbs {
		cb := cb
		kb.queue.Submit(func() { cb(ev) })
	}
}

// Watch registers a callback invoked after every committed change. A
// second Watch with the same id replaces the first.
func (kb *KnowledgeBase) Watch(id string, fn WatchFunc) {
	kb.watchMu.Lock()
	defer kb.watchMu.Unlock()
	kb.watchers[id] = fn
}

// Unwatch removes a watcher registration.
func (kb *KnowledgeBase) Unwatch(id string) {
	kb.watchMu.Lock()
	defer kb.watchMu.Unlock()
	delete(kb.watchers, id)
}

// Snapshot is a consistent read-only view of the knowledge base. Snapshots
// are wait-free: later mutations never show through an existing snapshot.
type Snapshot struct {
	txn *memdb.Txn
}

// Snapshot takes a consistent view of the current state.
func (kb *KnowledgeBase) Snapshot() *Snapshot {
	return &Snapshot{txn: kb.db.Txn(false)}
}

// FactsOf returns the predicate's fact tuples. Iteration order is
// unspecified but stable within the snapshot.
func (s *Snapshot) FactsOf(pred string) [][]Term {
	it, err := s.txn.Get("facts", "predicate", pred)
	if err != nil {
		return nil
	}
	var out [][]Term
	for raw := it.Next(); raw != nil; raw = it.Next() {
		out = append(out, raw.(*factRow).Args)
	}
	return out
}

// RulesOf returns the predicate's rules in insertion order.
func (s *Snapshot) RulesOf(pred string) []Rule {
	it, err := s.txn.Get("rules", "predicate", pred)
	if err != nil {
		return nil
	}
	var out []Rule
	for raw := it.Next(); raw != nil; raw = it.Next() {
		r := raw.(*ruleRow)
		out = append(out, Rule{Predicate: r.Predicate, Head: r.Head, Body: r.Body, Seq: r.Seq})
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Seq < out[b].Seq })
	return out
}

// Facts returns the current fact tuples for a predicate.
func (kb *KnowledgeBase) Facts(pred string) [][]Term {
	return kb.Snapshot().FactsOf(pred)
}

// AllFacts returns every fact grouped by predicate.
func (kb *KnowledgeBase) AllFacts() map[string][][]Term {
	txn := kb.db.Txn(false)
	it, err := txn.Get("facts", "id")
	if err != nil {
		return nil
	}
	out := make(map[string][][]Term)
	for raw := it.Next(); raw != nil; raw = it.Next() {
		row := raw.(*factRow)
		out[row.Predicate] = append(out[row.Predicate], row.Args)
	}
	return out
}

// Rules returns the current rules for a predicate in insertion order.
func (kb *KnowledgeBase) Rules(pred string) []Rule {
	return kb.Snapshot().RulesOf(pred)
}

// AllRules returns every rule in global insertion order.
func (kb *KnowledgeBase) AllRules() []Rule {
	txn := kb.db.Txn(false)
	it, err := txn.Get("rules", "id")
	if err != nil {
		return nil
	}
	var out []Rule
	for raw := it.Next(); raw != nil; raw = it.Next() {
		r := raw.(*ruleRow)
		out = append(out, Rule{Predicate: r.Predicate, Head: r.Head, Body: r.Body, Seq: r.Seq})
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Seq < out[b].Seq })
	return out
}

// History returns committed changes in commit order. A positive limit keeps
// only the most recent entries.
func (kb *KnowledgeBase) History(limit int) []HistoryEntry {
	txn := kb.db.Txn(false)
	it, err := txn.Get("history", "id")
	if err != nil {
		return nil
	}
	var out []HistoryEntry
	for raw := it.Next(); raw != nil; raw = it.Next() {
		r := raw.(*historyRow)
		out = append(out, HistoryEntry{Seq: r.Seq, Kind: r.Kind, Predicate: r.Predicate, Args: r.Args, Timestamp: r.Timestamp})
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// Stats returns the current counters.
func (kb *KnowledgeBase) Stats() Stats {
	txn := kb.db.Txn(false)
	preds := make(map[string]bool)
	totalFacts := 0
	if it, err := txn.Get("facts", "id"); err == nil {
		for raw := it.Next(); raw != nil; raw = it.Next() {
			totalFacts++
			preds[raw.(*factRow).Predicate] = true
		}
	}
	totalRules := 0
	if it, err := txn.Get("rules", "id"); err == nil {
		for raw := it.Next(); raw != nil; raw = it.Next() {
			totalRules++
			preds[raw.(*ruleRow).Predicate] = true
		}
	}
	return Stats{
		TotalFacts:     totalFacts,
		TotalRules:     totalRules,
		Predicates:     len(preds),
		Queries:        atomic.LoadUint64(&kb.queries),
		FactsAsserted:  atomic.LoadUint64(&kb.factsAsserted),
		FactsRetracted: atomic.LoadUint64(&kb.factsRetracted),
		RulesAdded:     atomic.LoadUint64(&kb.rulesAdded),
	}
}

// Export snapshots the whole knowledge base as value data. The result and
// a later Import round-trip exactly.
func (kb *KnowledgeBase) Export() ExportData {
	id, _ := uuid.GenerateUUID()
	return ExportData{
		Facts:      kb.AllFacts(),
		Rules:      kb.AllRules(),
		ExportedAt: time.Now(),
		ID:         id,
	}
}

// Import validates the payload and atomically replaces the knowledge base
// contents. On validation failure the store is left untouched and every
// offending entry is reported.
func (kb *KnowledgeBase) Import(data ExportData) error {
	var verr *multierror.Error
	for pred, tuples := range data.Facts {
		if pred == "" {
			verr = multierror.Append(verr, fmt.Errorf("fact with empty predicate"))
		}
		for i, args := range tuples {
			if args == nil {
				verr = multierror.Append(verr, fmt.Errorf("fact %s #%d has nil args", pred, i))
			}
		}
	}
	for i, r := range data.Rules {
		if r.Predicate == "" {
			verr = multierror.Append(verr, fmt.Errorf("rule #%d has empty predicate", i))
		}
		if len(r.Body) == 0 {
			verr = multierror.Append(verr, fmt.Errorf("rule #%d (%s) has empty body", i, r.Predicate))
		}
		for j, g := range r.Body {
			if g == nil {
				verr = multierror.Append(verr, fmt.Errorf("rule #%d (%s) body goal %d is nil", i, r.Predicate, j))
			}
		}
	}
	if err := verr.ErrorOrNil(); err != nil {
		return ErrImportData.New(err.Error())
	}

	kb.mu.Lock()
	txn := kb.db.Txn(true)
	for _, table := range []string{"facts", "rules"} {
		if _, err := txn.DeleteAll(table, "id"); err != nil {
			txn.Abort()
			kb.mu.Unlock()
			return err
		}
	}
	for pred, tuples := range data.Facts {
		for _, args := range tuples {
			if err := txn.Insert("facts", &factRow{ID: factID(pred, args), Predicate: pred, Args: args}); err != nil {
				txn.Abort()
				kb.mu.Unlock()
				return err
			}
		}
	}
	for _, r := range data.Rules {
		kb.seq++
		row := &ruleRow{
			ID:        fmt.Sprintf("%s/%020d", r.Predicate, kb.seq),
			Predicate: r.Predicate,
			Seq:       kb.seq,
			Head:      r.Head,
			Body:      r.Body,
		}
		if err := txn.Insert("rules", row); err != nil {
			txn.Abort()
			kb.mu.Unlock()
			return err
		}
	}
	kb.appendHistory(txn, ChangeImport, "", nil)
	txn.Commit()
	kb.mu.Unlock()

	kb.log.WithField("kind", ChangeImport).Debug("knowledge base imported")
	kb.committed(ChangeImport, "", nil)
	return nil
}

// Spies returns the per-predicate spy registry.
func (kb *KnowledgeBase) Spies() *SpyRegistry { return kb.spies }

// Spy adds a spy point on a predicate.
func (kb *KnowledgeBase) Spy(pred string) { kb.spies.Spy(pred) }

// Nospy removes a spy point.
func (kb *KnowledgeBase) Nospy(pred string) { kb.spies.Nospy(pred) }

// NospyAll removes every spy point.
func (kb *KnowledgeBase) NospyAll() { kb.spies.NospyAll() }
