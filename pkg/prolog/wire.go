package prolog

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cast"
)

// Type tags of the UI interchange format.
const (
	wireAtom     = "atom"
	wireNum      = "num"
	wireStr      = "str"
	wireVar      = "var"
	wireList     = "list"
	wireCompound = "compound"
	wireMap      = "map"
)

// WireTerm is the tagged interchange representation of a term, shaped for
// JSON transport to the visualizer. Encoding and decoding round-trip
// value-preservingly; integer numbers stay integers as long as the
// transport keeps them out of float64 (json.Decoder.UseNumber upstream).
type WireTerm struct {
	T       string      `json:"t"`
	V       interface{} `json:"v,omitempty"`
	Name    string      `json:"name,omitempty"`
	Items   []WireTerm  `json:"items,omitempty"`
	Tail    *WireTerm   `json:"tail,omitempty"`
	Head    string      `json:"head,omitempty"`
	Args    []WireTerm  `json:"args,omitempty"`
	Entries []WireEntry `json:"entries,omitempty"`
}

// WireEntry is one key/value pair of a map term.
type WireEntry struct {
	Key   WireTerm `json:"key"`
	Value WireTerm `json:"value"`
}

// EncodeTerm converts a term to its wire representation.
func EncodeTerm(t Term) WireTerm {
	switch tt := t.(type) {
	case *Atom:
		return WireTerm{T: wireAtom, V: tt.name}
	case *Num:
		if tt.isFloat {
			return WireTerm{T: wireNum, V: tt.f}
		}
		return WireTerm{T: wireNum, V: tt.i}
	case *Str:
		return WireTerm{T: wireStr, V: tt.value}
	case *Var:
		name := tt.name
		if name == "" {
			name = tt.String()
		}
		return WireTerm{T: wireVar, Name: name}
	case *nilTerm:
		return WireTerm{T: wireList}
	case *Pair:
		out := WireTerm{T: wireList}
		rest := Term(tt)
		for {
			p, ok := rest.(*Pair)
			if !ok {
				break
			}
			out.Items = append(out.Items, EncodeTerm(p.car))
			rest = p.cdr
		}
		if _, ok := rest.(*nilTerm); !ok {
			tail := EncodeTerm(rest)
			out.Tail = &tail
		}
		return out
	case *Compound:
		out := WireTerm{T: wireCompound, Head: tt.functor}
		for _, a := range tt.args {
			out.Args = append(out.Args, EncodeTerm(a))
		}
		return out
	case *MapTerm:
		out := WireTerm{T: wireMap}
		for i := range tt.keys {
			out.Entries = append(out.Entries, WireEntry{
				Key:   EncodeTerm(tt.keys[i]),
				Value: EncodeTerm(tt.vals[i]),
			})
		}
		return out
	default:
		return WireTerm{T: wireStr, V: t.String()}
	}
}

// DecodeTerm converts wire data back into a term. Unknown tags are
// rejected with ErrUnknownWireTag; a decoded variable gets a fresh id
// carrying the wire name.
func DecodeTerm(w WireTerm) (Term, error) {
	switch w.T {
	case wireAtom:
		name, err := cast.ToStringE(w.V)
		if err != nil {
			return nil, ErrMalformedTerm.New("atom value is not a string")
		}
		return NewAtom(name), nil
	case wireNum:
		return decodeNum(w.V)
	case wireStr:
		v, err := cast.ToStringE(w.V)
		if err != nil {
			return nil, ErrMalformedTerm.New("str value is not a string")
		}
		return NewStr(v), nil
	case wireVar:
		return Fresh(w.Name), nil
	case wireList:
		out := Term(Nil)
		if w.Tail != nil {
			tail, err := DecodeTerm(*w.Tail)
			if err != nil {
				return nil, err
			}
			out = tail
		}
		for i := len(w.Items) - 1; i >= 0; i-- {
			item, err := DecodeTerm(w.Items[i])
			if err != nil {
				return nil, err
			}
			out = NewPair(item, out)
		}
		return out, nil
	case wireCompound:
		if w.Head == "" {
			return nil, ErrMalformedTerm.New("compound with empty head")
		}
		args := make([]Term, len(w.Args))
		for i, a := range w.Args {
			arg, err := DecodeTerm(a)
			if err != nil {
				return nil, err
			}
			args[i] = arg
		}
		return NewCompound(w.Head, args...), nil
	case wireMap:
		keys := make([]Term, len(w.Entries))
		vals := make([]Term, len(w.Entries))
		for i, e := range w.Entries {
			k, err := DecodeTerm(e.Key)
			if err != nil {
				return nil, err
			}
			v, err := DecodeTerm(e.Value)
			if err != nil {
				return nil, err
			}
			keys[i] = k
			vals[i] = v
		}
		m, err := NewMapTerm(keys, vals)
		if err != nil {
			return nil, ErrMalformedTerm.New(err.Error())
		}
		return m, nil
	default:
		return nil, ErrUnknownWireTag.New(w.T)
	}
}

func decodeNum(v interface{}) (Term, error) {
	switch n := v.(type) {
	case json.Number:
		if strings.ContainsAny(n.String(), ".eE") {
			f, err := n.Float64()
			if err != nil {
				return nil, ErrMalformedTerm.New(err.Error())
			}
			return NewFloat(f), nil
		}
		i, err := n.Int64()
		if err != nil {
			return nil, ErrMalformedTerm.New(err.Error())
		}
		return NewInt(i), nil
	case float64:
		return NewFloat(n), nil
	case float32:
		return NewFloat(float64(n)), nil
	default:
		i, err := cast.ToInt64E(v)
		if err == nil {
			return NewInt(i), nil
		}
		f, ferr := cast.ToFloat64E(v)
		if ferr == nil {
			return NewFloat(f), nil
		}
		return nil, ErrMalformedTerm.New("num value is not numeric")
	}
}

// EncodeSolution converts one reified solution row to wire form.
func EncodeSolution(row map[string]Term) map[string]WireTerm {
	out := make(map[string]WireTerm, len(row))
	for name, t := range row {
		out[name] = EncodeTerm(t)
	}
	return out
}
