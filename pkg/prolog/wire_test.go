package prolog

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, term Term) Term {
	t.Helper()
	decoded, err := DecodeTerm(EncodeTerm(term))
	require.NoError(t, err)
	return decoded
}

func TestWireRoundTripGroundTerms(t *testing.T) {
	terms := []Term{
		NewAtom("hello"),
		NewInt(42),
		NewInt(-3),
		NewFloat(2.5),
		NewStr("some text"),
		Nil,
		List(NewAtom("a"), NewInt(1), NewStr("s")),
		NewCompound("point", NewInt(1), NewInt(2)),
		NewCompound("f", List(NewCompound("g", NewAtom("x")))),
	}
	for _, term := range terms {
		require.True(t, roundTrip(t, term).Equal(term), "round trip changed %s", term)
	}
}

func TestWireRoundTripMap(t *testing.T) {
	m, err := NewMapTerm(
		[]Term{NewAtom("name"), NewInt(1)},
		[]Term{NewStr("tom"), List(NewAtom("a"))},
	)
	require.NoError(t, err)
	require.True(t, roundTrip(t, m).Equal(m))
}

func TestWireVariableKeepsName(t *testing.T) {
	v := Fresh("x")
	decoded := roundTrip(t, v)
	dv, ok := decoded.(*Var)
	require.True(t, ok)
	require.Equal(t, "x", dv.Name())
}

func TestWireImproperList(t *testing.T) {
	tail := Fresh("t")
	term := NewPair(NewAtom("a"), NewPair(NewAtom("b"), tail))
	decoded := roundTrip(t, term)
	p, ok := decoded.(*Pair)
	require.True(t, ok)
	require.True(t, p.Car().Equal(NewAtom("a")))
}

func TestWireIntFloatDistinction(t *testing.T) {
	i := roundTrip(t, NewInt(2))
	n, ok := i.(*Num)
	require.True(t, ok)
	require.False(t, n.IsFloat())

	f := roundTrip(t, NewFloat(2))
	n, ok = f.(*Num)
	require.True(t, ok)
	require.True(t, n.IsFloat())
}

// Through actual JSON with UseNumber the distinction survives transport.
func TestWireJSONTransport(t *testing.T) {
	payload, err := json.Marshal(EncodeTerm(List(NewInt(7), NewFloat(1.5), NewAtom("a"))))
	require.NoError(t, err)

	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var w WireTerm
	require.NoError(t, dec.Decode(&w))

	term, err := DecodeTerm(w)
	require.NoError(t, err)

	items, ok := SliceFromList(term)
	require.True(t, ok)
	require.Len(t, items, 3)
	require.False(t, items[0].(*Num).IsFloat())
	require.True(t, items[1].(*Num).IsFloat())
}

func TestWireUnknownTag(t *testing.T) {
	_, err := DecodeTerm(WireTerm{T: "mystery"})
	require.True(t, ErrUnknownWireTag.Is(err))
}

func TestWireMalformed(t *testing.T) {
	_, err := DecodeTerm(WireTerm{T: "compound"})
	require.True(t, ErrMalformedTerm.Is(err))

	_, err = DecodeTerm(WireTerm{T: "num", V: "not-a-number"})
	require.True(t, ErrMalformedTerm.Is(err))
}

func TestEncodeSolution(t *testing.T) {
	row := map[string]Term{"x": NewAtom("a"), "y": NewInt(1)}
	wire := EncodeSolution(row)
	require.Equal(t, "atom", wire["x"].T)
	require.Equal(t, "num", wire["y"].T)
}

// Parse canonical text to internal form and back to wire, then decode:
// value-identical.
func TestParseToWireRoundTrip(t *testing.T) {
	term := mustParse(t, `f([1, 2.5, "s"], {k: v}, nested(a))`)
	require.True(t, roundTrip(t, term).Equal(term))
}
