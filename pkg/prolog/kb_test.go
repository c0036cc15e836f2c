package prolog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAssertAndFacts(t *testing.T) {
	kb := NewKnowledgeBase()
	defer kb.Close()

	require.NoError(t, kb.Assert("parent", NewAtom("tom"), NewAtom("mary")))
	require.NoError(t, kb.Assert("parent", NewAtom("tom"), NewAtom("bob")))

	facts := kb.Facts("parent")
	require.Len(t, facts, 2)
	require.Empty(t, kb.Facts("unknown"))
}

// Idempotent assertion: asserting the same fact twice leaves one entry in
// the fact set but still appends to history.
func TestAssertIdempotentFactSetHistoryGrows(t *testing.T) {
	kb := NewKnowledgeBase()
	defer kb.Close()

	require.NoError(t, kb.Assert("p", NewAtom("a")))
	require.NoError(t, kb.Assert("p", NewAtom("a")))

	require.Len(t, kb.Facts("p"), 1)
	require.Len(t, kb.History(0), 2)
}

func TestRetract(t *testing.T) {
	kb := NewKnowledgeBase()
	defer kb.Close()

	require.NoError(t, kb.Assert("p", NewAtom("a")))
	require.NoError(t, kb.Retract("p", NewAtom("a")))
	require.Empty(t, kb.Facts("p"))

	// Retracting a missing fact is a no-op, not an error.
	require.NoError(t, kb.Retract("p", NewAtom("zz")))

	stats := kb.Stats()
	require.Equal(t, uint64(1), stats.FactsRetracted)
}

func TestAddRuleValidation(t *testing.T) {
	kb := NewKnowledgeBase()
	defer kb.Close()

	err := kb.AddRule("", nil, []*Compound{NewCompound("q")})
	require.True(t, ErrMalformedClause.Is(err))

	err = kb.AddRule("p", nil, nil)
	require.True(t, ErrMalformedClause.Is(err))

	err = kb.AddRule("p", []Term{Fresh("x")}, []*Compound{nil})
	require.True(t, ErrMalformedClause.Is(err))

	// The store stays untouched after rejections.
	require.Empty(t, kb.Rules("p"))
}

func TestRuleOrderPreserved(t *testing.T) {
	kb := NewKnowledgeBase()
	defer kb.Close()

	for _, name := range []string{"one", "two", "three"} {
		x := Fresh("x")
		require.NoError(t, kb.AddRule("r", []Term{x}, []*Compound{
			NewCompound("=", x, NewAtom(name)),
		}))
	}
	rules := kb.Rules("r")
	require.Len(t, rules, 3)
	require.True(t, rules[0].Seq < rules[1].Seq && rules[1].Seq < rules[2].Seq)
}

func TestClearResetsEverything(t *testing.T) {
	kb := NewKnowledgeBase()
	defer kb.Close()

	require.NoError(t, kb.Assert("p", NewAtom("a")))
	x := Fresh("x")
	require.NoError(t, kb.AddRule("q", []Term{x}, []*Compound{NewCompound("p", x)}))
	require.NoError(t, kb.Clear())

	require.Empty(t, kb.Facts("p"))
	require.Empty(t, kb.Rules("q"))
	require.Empty(t, kb.History(0))
	stats := kb.Stats()
	require.Zero(t, stats.TotalFacts)
	require.Zero(t, stats.FactsAsserted)
	require.Zero(t, stats.RulesAdded)
}

func TestHistoryOrderAndLimit(t *testing.T) {
	kb := NewKnowledgeBase()
	defer kb.Close()

	require.NoError(t, kb.Assert("a", NewInt(1)))
	require.NoError(t, kb.Assert("b", NewInt(2)))
	require.NoError(t, kb.Retract("a", NewInt(1)))

	all := kb.History(0)
	require.Len(t, all, 3)
	require.Equal(t, ChangeAssert, all[0].Kind)
	require.Equal(t, "a", all[0].Predicate)
	require.Equal(t, ChangeRetract, all[2].Kind)
	require.True(t, all[0].Seq < all[1].Seq && all[1].Seq < all[2].Seq)

	last := kb.History(1)
	require.Len(t, last, 1)
	require.Equal(t, ChangeRetract, last[0].Kind)
}

func TestExportImportRoundTrip(t *testing.T) {
	kb := NewKnowledgeBase()
	defer kb.Close()
	require.NoError(t, kb.Consult(`
		parent(tom, mary).
		parent(tom, bob).
		ancestor(?x, ?y) :- parent(?x, ?y).
		ancestor(?x, ?z) :- parent(?x, ?y), ancestor(?y, ?z).
	`))

	data := kb.Export()
	require.NotEmpty(t, data.ID)
	require.False(t, data.ExportedAt.IsZero())

	other := NewKnowledgeBase()
	defer other.Close()
	require.NoError(t, other.Import(data))

	require.Len(t, other.Facts("parent"), 2)
	require.Len(t, other.Rules("ancestor"), 2)

	// Contents are value-identical.
	want := kb.AllFacts()
	got := other.AllFacts()
	require.Equal(t, len(want), len(got))
	for pred, tuples := range want {
		require.Len(t, got[pred], len(tuples))
	}
	wantRules := kb.AllRules()
	gotRules := other.AllRules()
	require.Len(t, gotRules, len(wantRules))
	for i := range wantRules {
		require.Equal(t, wantRules[i].Predicate, gotRules[i].Predicate)
		require.Len(t, gotRules[i].Body, len(wantRules[i].Body))
	}
}

func TestImportValidation(t *testing.T) {
	kb := NewKnowledgeBase()
	defer kb.Close()
	require.NoError(t, kb.Assert("keep", NewAtom("me")))

	err := kb.Import(ExportData{
		Facts: map[string][][]Term{"": {{NewAtom("x")}}},
		Rules: []Rule{{Predicate: "r"}},
	})
	require.True(t, ErrImportData.Is(err))

	// Failed import leaves the store untouched.
	require.Len(t, kb.Facts("keep"), 1)
}

func TestWatcherDelivery(t *testing.T) {
	kb := NewKnowledgeBase()
	defer kb.Close()

	events := make(chan Event, 8)
	kb.Watch("w1", func(ev Event) { events <- ev })

	require.NoError(t, kb.Assert("p", NewAtom("a")))

	select {
	case ev := <-events:
		require.Equal(t, ChangeAssert, ev.Kind)
		require.Equal(t, "p", ev.Predicate)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher was not notified")
	}

	kb.Unwatch("w1")
	require.NoError(t, kb.Assert("p", NewAtom("b")))
	// Give the queue a moment; nothing further should arrive.
	select {
	case ev := <-events:
		t.Fatalf("unexpected event after unwatch: %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestStatsCounters(t *testing.T) {
	kb := NewKnowledgeBase()
	defer kb.Close()

	require.NoError(t, kb.Assert("p", NewAtom("a")))
	require.NoError(t, kb.Assert("q", NewAtom("b")))
	x := Fresh("x")
	require.NoError(t, kb.AddRule("r", []Term{x}, []*Compound{NewCompound("p", x)}))

	sols, err := kb.QueryString("p(?x)", QueryOptions{})
	require.NoError(t, err)
	sols.All()

	stats := kb.Stats()
	require.Equal(t, 2, stats.TotalFacts)
	require.Equal(t, 1, stats.TotalRules)
	require.Equal(t, 3, stats.Predicates)
	require.Equal(t, uint64(2), stats.FactsAsserted)
	require.Equal(t, uint64(1), stats.RulesAdded)
	require.Equal(t, uint64(1), stats.Queries)
}

// Snapshot isolation: an iterator created before a mutation keeps streaming
// the pre-mutation state; a fresh query sees the new fact.
func TestSnapshotIsolation(t *testing.T) {
	kb := NewKnowledgeBase()
	defer kb.Close()
	require.NoError(t, kb.Consult(`
		parent(tom, mary). parent(tom, bob).
		parent(mary, ann). parent(mary, pat).
		parent(bob, jim). parent(bob, liz).
	`))

	sols, err := kb.QueryString("parent(?x, ?y)", QueryOptions{})
	require.NoError(t, err)

	// Consume two answers; the snapshot is pinned at the first pull.
	for i := 0; i < 2; i++ {
		_, ok := sols.Next()
		require.True(t, ok)
	}

	require.NoError(t, kb.Assert("parent", NewAtom("new1"), NewAtom("new2")))

	count := 2
	for {
		_, ok := sols.Next()
		if !ok {
			break
		}
		count++
	}
	sols.Close()
	require.Equal(t, 6, count)

	fresh, err := kb.QueryString("parent(?x, ?y)", QueryOptions{})
	require.NoError(t, err)
	require.Len(t, fresh.All(), 7)
}
