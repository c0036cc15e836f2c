package prolog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTabledBasicMemoization(t *testing.T) {
	kb := familyKB(t)

	sols, err := kb.QueryString("tabled(ancestor(tom, ?d))", QueryOptions{})
	require.NoError(t, err)
	require.Equal(t,
		[]string{"ann", "bob", "jim", "liz", "mary", "pat"},
		sortedValues(t, sols.All(), "d"))

	// Second run replays the completed table.
	sols, err = kb.QueryString("tabled(ancestor(tom, ?d))", QueryOptions{})
	require.NoError(t, err)
	require.Len(t, sols.All(), 6)
}

// A cyclic graph would loop forever under plain SLD resolution; through
// the tables the query terminates with the transitive closure.
func TestTabledTerminatesOnCycle(t *testing.T) {
	kb := NewKnowledgeBase()
	defer kb.Close()
	require.NoError(t, kb.Consult(`
		edge(a, b). edge(b, c). edge(c, a).
		path(?x, ?y) :- edge(?x, ?y).
		path(?x, ?z) :- edge(?x, ?y), tabled(path(?y, ?z)).
	`))

	sols, err := kb.QueryString("tabled(path(a, ?y))", QueryOptions{})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, sortedValues(t, sols.All(), "y"))
}

func TestTabledInvalidatedByMutation(t *testing.T) {
	kb := NewKnowledgeBase()
	defer kb.Close()
	require.NoError(t, kb.Consult(`edge(a, b).`))

	sols, err := kb.QueryString("tabled(edge(?x, ?y))", QueryOptions{})
	require.NoError(t, err)
	require.Len(t, sols.All(), 1)

	require.NoError(t, kb.Assert("edge", NewAtom("b"), NewAtom("c")))

	sols, err = kb.QueryString("tabled(edge(?x, ?y))", QueryOptions{})
	require.NoError(t, err)
	require.Len(t, sols.All(), 2)
}

func TestTabledVariantSharing(t *testing.T) {
	kb := familyKB(t)

	// Different variable names, same variant: one table serves both.
	first, err := kb.QueryString("tabled(parent(?a, ?b))", QueryOptions{})
	require.NoError(t, err)
	require.Len(t, first.All(), 6)

	second, err := kb.QueryString("tabled(parent(?x, ?y))", QueryOptions{})
	require.NoError(t, err)
	require.Len(t, second.All(), 6)
}

func TestCallPatternAbstractsVariables(t *testing.T) {
	x := Fresh("x")
	y := Fresh("y")
	a := Fresh("a")
	b := Fresh("b")
	require.Equal(t,
		callPattern("p", []Term{x, y, x}),
		callPattern("p", []Term{a, b, a}))
	require.NotEqual(t,
		callPattern("p", []Term{x, x}),
		callPattern("p", []Term{a, b}))
	require.NotEqual(t,
		callPattern("p", []Term{NewAtom("c")}),
		callPattern("p", []Term{x}))
}
