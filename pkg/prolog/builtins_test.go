package prolog

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func runGoals(t *testing.T, kb *KnowledgeBase, src string) []map[string]Term {
	t.Helper()
	sols, err := kb.QueryString(src, QueryOptions{})
	require.NoError(t, err)
	return sols.All()
}

func emptyKB(t *testing.T) *KnowledgeBase {
	t.Helper()
	kb := NewKnowledgeBase()
	t.Cleanup(kb.Close)
	return kb
}

func TestIsEvaluatesExpression(t *testing.T) {
	kb := emptyKB(t)

	rows := runGoals(t, kb, "is(?s, +(2, 3))")
	require.Len(t, rows, 1)
	require.Equal(t, "5", rows[0]["s"].String())

	rows = runGoals(t, kb, "is(?s, *(+(1, 2), -(10, 6)))")
	require.Equal(t, "12", rows[0]["s"].String())

	rows = runGoals(t, kb, "is(?s, /(7, 2))")
	require.Equal(t, "3.5", rows[0]["s"].String())

	rows = runGoals(t, kb, "is(?s, /(8, 2))")
	require.Equal(t, "4", rows[0]["s"].String())

	rows = runGoals(t, kb, "is(?s, mod(7, 3))")
	require.Equal(t, "1", rows[0]["s"].String())

	rows = runGoals(t, kb, "is(?s, pow(2, 10))")
	require.Equal(t, "1024", rows[0]["s"].String())

	rows = runGoals(t, kb, "is(?s, sqrt(9))")
	require.Equal(t, "3", rows[0]["s"].String())

	rows = runGoals(t, kb, "is(?s, abs(-4))")
	require.Equal(t, "4", rows[0]["s"].String())

	rows = runGoals(t, kb, "is(?s, max(3, min(9, 7)))")
	require.Equal(t, "7", rows[0]["s"].String())

	rows = runGoals(t, kb, "is(?s, round(2.6))")
	require.Equal(t, "3", rows[0]["s"].String())
}

// Unbound operands and domain errors fail the branch silently.
func TestArithmeticFailures(t *testing.T) {
	kb := emptyKB(t)

	require.Empty(t, runGoals(t, kb, "is(?s, +(2, ?unbound))"))
	require.Empty(t, runGoals(t, kb, "is(?s, /(1, 0))"))
	require.Empty(t, runGoals(t, kb, "is(?s, sqrt(-1))"))
	require.Empty(t, runGoals(t, kb, "is(?s, mod(5, 0))"))
	require.Empty(t, runGoals(t, kb, "is(?s, +(a, 1))"))
}

func TestComparisons(t *testing.T) {
	kb := emptyKB(t)

	require.Len(t, runGoals(t, kb, "<(1, 2)"), 1)
	require.Empty(t, runGoals(t, kb, "<(2, 1)"))
	require.Len(t, runGoals(t, kb, "=<(2, 2)"), 1)
	require.Len(t, runGoals(t, kb, ">=(3, 2)"), 1)
	require.Len(t, runGoals(t, kb, "=:=(4, +(2, 2))"), 1)
	require.Len(t, runGoals(t, kb, "=\\=(4, 5)"), 1)
	// An unbound side fails rather than erroring.
	require.Empty(t, runGoals(t, kb, "<(?x, 2)"))
}

func TestStructuralEquality(t *testing.T) {
	kb := emptyKB(t)

	require.Len(t, runGoals(t, kb, "==(f(a, [1, 2]), f(a, [1, 2]))"), 1)
	require.Empty(t, runGoals(t, kb, "==(f(a), f(b))"))
	require.Len(t, runGoals(t, kb, "\\==(f(a), f(b))"), 1)
	// == does not unify.
	require.Empty(t, runGoals(t, kb, "==(?x, a)"))
}

func TestMember(t *testing.T) {
	kb := emptyKB(t)

	rows := runGoals(t, kb, "member(?x, [a, b, c])")
	require.Equal(t, []string{"a", "b", "c"}, valuesOf(t, rows, "x"))

	require.Len(t, runGoals(t, kb, "member(b, [a, b, c])"), 1)
	require.Empty(t, runGoals(t, kb, "member(z, [a, b, c])"))
}

func TestAppend(t *testing.T) {
	kb := emptyKB(t)

	rows := runGoals(t, kb, "append([1, 2], [3], ?l)")
	require.Len(t, rows, 1)
	require.Equal(t, "[1, 2, 3]", rows[0]["l"].String())

	// Enumerating splits of a ground list.
	rows = runGoals(t, kb, "append(?a, ?b, [x, y])")
	require.Len(t, rows, 3)

	// Subtracting a known prefix.
	rows = runGoals(t, kb, "append([x], ?rest, [x, y, z])")
	require.Len(t, rows, 1)
	require.Equal(t, "[y, z]", rows[0]["rest"].String())
}

func TestLength(t *testing.T) {
	kb := emptyKB(t)

	rows := runGoals(t, kb, "length([a, b, c], ?n)")
	require.Equal(t, []string{"3"}, valuesOf(t, rows, "n"))

	// Boundary: length(L, 0) with L unbound binds L to the empty list.
	rows = runGoals(t, kb, "length(?l, 0)")
	require.Len(t, rows, 1)
	require.Equal(t, "[]", rows[0]["l"].String())

	rows = runGoals(t, kb, "length(?l, 2)")
	require.Len(t, rows, 1)
	require.Equal(t, "[_0, _1]", rows[0]["l"].String())

	require.Empty(t, runGoals(t, kb, "length([a], 5)"))
}

func TestNth(t *testing.T) {
	kb := emptyKB(t)

	rows := runGoals(t, kb, "nth(1, [a, b, c], ?x)")
	require.Equal(t, []string{"b"}, valuesOf(t, rows, "x"))

	rows = runGoals(t, kb, "nth(?i, [a, b], ?x)")
	require.Len(t, rows, 2)

	require.Empty(t, runGoals(t, kb, "nth(9, [a], ?x)"))
}

func TestReverse(t *testing.T) {
	kb := emptyKB(t)

	rows := runGoals(t, kb, "reverse([1, 2, 3], ?r)")
	require.Equal(t, "[3, 2, 1]", rows[0]["r"].String())

	rows = runGoals(t, kb, "reverse(?l, [a, b])")
	require.Equal(t, "[b, a]", rows[0]["l"].String())
}

func TestListAccessors(t *testing.T) {
	kb := emptyKB(t)

	rows := runGoals(t, kb, "first([a, b], ?x)")
	require.Equal(t, []string{"a"}, valuesOf(t, rows, "x"))

	rows = runGoals(t, kb, "rest([a, b, c], ?t)")
	require.Equal(t, "[b, c]", rows[0]["t"].String())

	rows = runGoals(t, kb, "cons(h, [t], ?l)")
	require.Equal(t, "[h, t]", rows[0]["l"].String())

	require.Len(t, runGoals(t, kb, "empty([])"), 1)
	require.Empty(t, runGoals(t, kb, "empty([a])"))
	require.Len(t, runGoals(t, kb, "non_empty([a])"), 1)
	require.Empty(t, runGoals(t, kb, "non_empty([])"))
}

func TestTypeChecks(t *testing.T) {
	kb := emptyKB(t)

	require.Len(t, runGoals(t, kb, "number(42)"), 1)
	require.Len(t, runGoals(t, kb, "number(4.5)"), 1)
	require.Empty(t, runGoals(t, kb, "number(a)"))
	require.Len(t, runGoals(t, kb, "integer(42)"), 1)
	require.Empty(t, runGoals(t, kb, "integer(4.5)"))
	require.Len(t, runGoals(t, kb, "atom(hello)"), 1)
	require.Empty(t, runGoals(t, kb, "atom(42)"))
	require.Len(t, runGoals(t, kb, "is_list([1, 2])"), 1)
	require.Empty(t, runGoals(t, kb, "is_list(f(x))"))
	require.Len(t, runGoals(t, kb, "var(?x)"), 1)
	require.Empty(t, runGoals(t, kb, "nonvar(?x)"))
	require.Len(t, runGoals(t, kb, "nonvar(a)"), 1)
	require.Len(t, runGoals(t, kb, "ground(f(a, [1]))"), 1)
	require.Empty(t, runGoals(t, kb, "ground(f(?x))"))
}

func TestOnceAndRepeat(t *testing.T) {
	kb := emptyKB(t)

	rows := runGoals(t, kb, "once(member(?x, [a, b, c]))")
	require.Equal(t, []string{"a"}, valuesOf(t, rows, "x"))

	sols, err := kb.QueryString("repeat", QueryOptions{Limit: 5})
	require.NoError(t, err)
	require.Len(t, sols.All(), 5)
}

func TestFindall(t *testing.T) {
	kb := familyKB(t)

	rows := runGoals(t, kb, "findall(?c, parent(tom, ?c), ?l)")
	require.Len(t, rows, 1)
	items, ok := SliceFromList(rows[0]["l"])
	require.True(t, ok)
	names := make([]string, len(items))
	for i, item := range items {
		names[i] = item.String()
	}
	sort.Strings(names)
	require.Equal(t, []string{"bob", "mary"}, names)

	// Boundary: findall over a failing goal gives the empty list.
	rows = runGoals(t, kb, "findall(?x, fail, ?l)")
	require.Len(t, rows, 1)
	require.Equal(t, "[]", rows[0]["l"].String())
}

func TestBetween(t *testing.T) {
	kb := emptyKB(t)

	rows := runGoals(t, kb, "between(1, 4, ?x)")
	require.Equal(t, []string{"1", "2", "3", "4"}, valuesOf(t, rows, "x"))

	// Ground third argument: bounds check only.
	require.Len(t, runGoals(t, kb, "between(1, 10, 5)"), 1)
	require.Empty(t, runGoals(t, kb, "between(1, 10, 50)"))

	// Boundary: empty interval.
	require.Empty(t, runGoals(t, kb, "between(5, 3, ?x)"))
}

func TestCopyTerm(t *testing.T) {
	kb := emptyKB(t)

	// The copy unifies with a compatible shape without touching the
	// original variables.
	rows := runGoals(t, kb, "copy_term(f(?x, ?x, ?y), ?c), =(?c, f(1, ?a, 2))")
	require.Len(t, rows, 1)
	require.Equal(t, "f(1, 1, 2)", rows[0]["c"].String())
	// ?x itself stayed unbound.
	require.Equal(t, "_0", rows[0]["x"].String())
}

func TestCallResolvesDynamically(t *testing.T) {
	kb := familyKB(t)
	rows := runGoals(t, kb, "=(?g, parent(tom, ?c)), call(?g)")
	require.Len(t, rows, 2)
}
