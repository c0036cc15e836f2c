package prolog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnifyAtoms(t *testing.T) {
	s := NewSubstitution()
	require.NotNil(t, Unify(NewAtom("a"), NewAtom("a"), s))
	require.Nil(t, Unify(NewAtom("a"), NewAtom("b"), s))
}

func TestUnifyNumbers(t *testing.T) {
	s := NewSubstitution()
	require.NotNil(t, Unify(NewInt(2), NewInt(2), s))
	require.Nil(t, Unify(NewInt(2), NewInt(3), s))
	// Integer and float shapes are distinct terms.
	require.Nil(t, Unify(NewInt(2), NewFloat(2), s))
}

func TestUnifyVariableBinding(t *testing.T) {
	x := Fresh("x")
	s := Unify(x, NewAtom("hello"), NewSubstitution())
	require.NotNil(t, s)
	require.True(t, s.Walk(x).Equal(NewAtom("hello")))

	// Symmetric: variable on the right.
	y := Fresh("y")
	s = Unify(NewInt(7), y, NewSubstitution())
	require.NotNil(t, s)
	require.True(t, s.Walk(y).Equal(NewInt(7)))
}

func TestUnifyVarVar(t *testing.T) {
	x := Fresh("x")
	y := Fresh("y")
	s := Unify(x, y, NewSubstitution())
	require.NotNil(t, s)
	s = Unify(y, NewAtom("v"), s)
	require.NotNil(t, s)
	require.True(t, s.Walk(x).Equal(NewAtom("v")))
}

func TestUnifyLists(t *testing.T) {
	x := Fresh("x")
	t1 := List(NewAtom("a"), x, NewAtom("c"))
	t2 := List(NewAtom("a"), NewAtom("b"), NewAtom("c"))
	s := Unify(t1, t2, NewSubstitution())
	require.NotNil(t, s)
	require.True(t, s.Walk(x).Equal(NewAtom("b")))

	require.Nil(t, Unify(List(NewAtom("a")), List(NewAtom("a"), NewAtom("b")), NewSubstitution()))
}

func TestUnifyPartialList(t *testing.T) {
	tail := Fresh("t")
	pattern := NewPair(NewAtom("a"), tail)
	s := Unify(pattern, List(NewAtom("a"), NewAtom("b"), NewAtom("c")), NewSubstitution())
	require.NotNil(t, s)
	items, ok := SliceFromList(s.WalkAll(tail))
	require.True(t, ok)
	require.Len(t, items, 2)
}

func TestUnifyCompounds(t *testing.T) {
	x := Fresh("x")
	s := Unify(
		NewCompound("point", NewInt(1), x),
		NewCompound("point", NewInt(1), NewInt(2)),
		NewSubstitution(),
	)
	require.NotNil(t, s)
	require.True(t, s.Walk(x).Equal(NewInt(2)))

	require.Nil(t, Unify(
		NewCompound("point", NewInt(1)),
		NewCompound("pixel", NewInt(1)),
		NewSubstitution(),
	))
}

func TestUnifyMaps(t *testing.T) {
	x := Fresh("x")
	m1, err := NewMapTerm([]Term{NewAtom("name"), NewAtom("age")}, []Term{NewAtom("tom"), x})
	require.NoError(t, err)
	m2, err := NewMapTerm([]Term{NewAtom("age"), NewAtom("name")}, []Term{NewInt(41), NewAtom("tom")})
	require.NoError(t, err)

	s := Unify(m1, m2, NewSubstitution())
	require.NotNil(t, s)
	require.True(t, s.Walk(x).Equal(NewInt(41)))

	// Different key sets never unify.
	m3, err := NewMapTerm([]Term{NewAtom("name")}, []Term{NewAtom("tom")})
	require.NoError(t, err)
	require.Nil(t, Unify(m1, m3, NewSubstitution()))
}

// Unification soundness: a successful unification makes both sides walk to
// the same term.
func TestUnifySoundness(t *testing.T) {
	x := Fresh("x")
	y := Fresh("y")
	t1 := NewCompound("f", x, List(NewInt(1), y))
	t2 := NewCompound("f", NewAtom("a"), List(y, NewInt(1)))
	s := Unify(t1, t2, NewSubstitution())
	require.NotNil(t, s)
	require.True(t, s.WalkAll(t1).Equal(s.WalkAll(t2)))
}

// Occurs check: binding a variable into a term containing itself fails.
func TestOccursCheck(t *testing.T) {
	x := Fresh("x")
	require.Nil(t, Unify(x, List(x), NewSubstitution()))
	require.Nil(t, Unify(x, NewCompound("f", x), NewSubstitution()))
	require.Nil(t, Unify(x, NewPair(NewAtom("a"), x), NewSubstitution()))

	// Through a chain: x = y, then y = f(x).
	y := Fresh("y")
	s := Unify(x, y, NewSubstitution())
	require.NotNil(t, s)
	require.Nil(t, Unify(y, NewCompound("f", x), s))
}

func TestBindSelfIsNoop(t *testing.T) {
	x := Fresh("x")
	s := NewSubstitution()
	s2 := s.Bind(x, x)
	require.NotNil(t, s2)
	require.Equal(t, 0, s2.Size())
}

func TestWalkFollowsChains(t *testing.T) {
	x := Fresh("x")
	y := Fresh("y")
	z := Fresh("z")
	s := NewSubstitution()
	s = Unify(x, y, s)
	s = Unify(y, z, s)
	s = Unify(z, NewAtom("end"), s)
	require.NotNil(t, s)
	require.True(t, s.Walk(x).Equal(NewAtom("end")))
}

// Reification stability: reifying the same variables twice under one
// substitution gives identical output.
func TestReifyStability(t *testing.T) {
	x := Fresh("x")
	y := Fresh("y")
	s := Unify(x, List(y, NewAtom("a"), y), NewSubstitution())
	require.NotNil(t, s)

	first := Reify(x, s)
	second := Reify(x, s)
	require.True(t, first.Equal(second))
	require.Equal(t, "[_0, a, _0]", first.String())
}

func TestReifyAllSharesNames(t *testing.T) {
	x := Fresh("x")
	y := Fresh("y")
	out := ReifyAll([]Term{x, y, x}, NewSubstitution())
	require.Equal(t, "_0", out[0].String())
	require.Equal(t, "_1", out[1].String())
	require.Equal(t, "_0", out[2].String())
}
