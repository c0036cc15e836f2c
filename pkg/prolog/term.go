// Package prolog implements the inference core of a Prolog-style logic
// programming engine: first-order terms, unification with occurs check, a
// transactional knowledge base of facts and rules, lazy SLD resolution with
// full backtracking, and structured trace/spy instrumentation for
// interactive front ends.
//
// The engine answers queries by unifying goal terms against the knowledge
// base. Goals are functions from a substitution to a lazy stream of
// substitutions, so the whole solution set never has to materialize; pulling
// one answer advances the search just far enough to produce it.
//
// Example:
//
//	kb := prolog.NewKnowledgeBase()
//	kb.Assert("parent", prolog.NewAtom("tom"), prolog.NewAtom("mary"))
//	sols, _ := kb.QueryString("parent(tom, ?c)", prolog.QueryOptions{})
//	defer sols.Close()
//	for row, ok := sols.Next(); ok; row, ok = sols.Next() {
//		fmt.Println(row["c"])
//	}
package prolog

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Term represents any value in the engine's universe: atoms, numbers,
// strings, logic variables, cons pairs (lists), compound terms, and maps.
// All Term implementations are immutable after creation.
type Term interface {
	// String returns a human-readable representation of the term.
	String() string

	// Equal checks if this term is structurally equal to another term.
	// This is different from unification - it's a strict equality check.
	Equal(other Term) bool

	// IsVar returns true if this term is a logic variable.
	IsVar() bool

	// Clone creates a deep copy of the term.
	Clone() Term
}

// Atom represents a symbolic constant. Atoms are compared by name; the
// predicate of a fact or rule is always an atom.
type Atom struct {
	name string
}

// NewAtom creates a new atom with the given name.
func NewAtom(name string) *Atom {
	return &Atom{name: name}
}

// Name returns the atom's symbolic name.
func (a *Atom) Name() string { return a.name }

// String returns the atom's name.
func (a *Atom) String() string { return a.name }

// Equal checks if two atoms have the same name.
func (a *Atom) Equal(other Term) bool {
	o, ok := other.(*Atom)
	return ok && a.name == o.name
}

// IsVar always returns false for atoms.
func (a *Atom) IsVar() bool { return false }

// Clone returns the atom itself; atoms are immutable.
func (a *Atom) Clone() Term { return a }

// Num represents a number, either an integer or a floating-point value.
// The two shapes do not unify with each other: 2 and 2.0 are distinct
// terms even though =:= considers them arithmetically equal.
type Num struct {
	i       int64
	f       float64
	isFloat bool
}

// NewInt creates an integer number term.
func NewInt(v int64) *Num { return &Num{i: v} }

// NewFloat creates a floating-point number term.
func NewFloat(v float64) *Num { return &Num{f: v, isFloat: true} }

// IsFloat reports whether the number is a floating-point value.
func (n *Num) IsFloat() bool { return n.isFloat }

// Int64 returns the integer value; only meaningful when !IsFloat().
func (n *Num) Int64() int64 { return n.i }

// Float64 returns the numeric value as a float64 regardless of shape.
func (n *Num) Float64() float64 {
	if n.isFloat {
		return n.f
	}
	return float64(n.i)
}

// String formats the number the way Go does.
func (n *Num) String() string {
	if n.isFloat {
		return strconv.FormatFloat(n.f, 'g', -1, 64)
	}
	return strconv.FormatInt(n.i, 10)
}

// Equal checks numeric equality within the same shape.
func (n *Num) Equal(other Term) bool {
	o, ok := other.(*Num)
	if !ok || n.isFloat != o.isFloat {
		return false
	}
	if n.isFloat {
		return n.f == o.f
	}
	return n.i == o.i
}

// IsVar always returns false for numbers.
func (n *Num) IsVar() bool { return false }

// Clone returns the number itself; numbers are immutable.
func (n *Num) Clone() Term { return n }

// Str represents arbitrary text. Strings are opaque to unification except
// by equality; they are not atoms and not lists of characters.
type Str struct {
	value string
}

// NewStr creates a string term.
func NewStr(v string) *Str { return &Str{value: v} }

// Value returns the underlying text.
func (s *Str) Value() string { return s.value }

// String returns the text in double quotes.
func (s *Str) String() string { return strconv.Quote(s.value) }

// Equal checks if two strings hold the same text.
func (s *Str) Equal(other Term) bool {
	o, ok := other.(*Str)
	return ok && s.value == o.value
}

// IsVar always returns false for strings.
func (s *Str) IsVar() bool { return false }

// Clone returns the string itself; strings are immutable.
func (s *Str) Clone() Term { return s }

// Var represents a logic variable. Variables are identified by a globally
// unique id; the name is kept for presentation only. Two variables with the
// same name but different ids are different variables.
type Var struct {
	id   int64
	name string
}

// ID returns the unique identifier of the variable.
func (v *Var) ID() int64 { return v.id }

// Name returns the human-readable name, which may be empty.
func (v *Var) Name() string { return v.name }

// String renders the variable as ?name, or _<id> when anonymous. Reified
// variables carry _0, _1, ... names and render bare.
func (v *Var) String() string {
	if v.name == "" {
		return fmt.Sprintf("_%d", v.id)
	}
	if strings.HasPrefix(v.name, "_") {
		return v.name
	}
	return "?" + v.name
}

// Equal checks if two variables are the same variable (same id).
func (v *Var) Equal(other Term) bool {
	o, ok := other.(*Var)
	return ok && v.id == o.id
}

// IsVar always returns true for variables.
func (v *Var) IsVar() bool { return true }

// Clone returns the variable itself; identity is the id, which must be
// preserved.
func (v *Var) Clone() Term { return v }

// Pair represents a cons cell. Proper lists are chains of pairs ending in
// Nil; an unbound tail makes a partial list, which is how [H|T] patterns
// drive the list relations.
type Pair struct {
	car Term
	cdr Term
}

// NewPair creates a cons cell with the given head and tail.
func NewPair(car, cdr Term) *Pair {
	return &Pair{car: car, cdr: cdr}
}

// Car returns the first element of the pair.
func (p *Pair) Car() Term { return p.car }

// Cdr returns the rest of the pair.
func (p *Pair) Cdr() Term { return p.cdr }

// String renders proper lists as [a, b, c] and improper tails as [a | t].
func (p *Pair) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	sb.WriteString(p.car.String())
	rest := p.cdr
	for {
		switch t := rest.(type) {
		case *Pair:
			sb.WriteString(", ")
			sb.WriteString(t.car.String())
			rest = t.cdr
		case *nilTerm:
			sb.WriteByte(']')
			return sb.String()
		default:
			sb.WriteString(" | ")
			sb.WriteString(rest.String())
			sb.WriteByte(']')
			return sb.String()
		}
	}
}

// Equal checks if two pairs are structurally equal.
func (p *Pair) Equal(other Term) bool {
	o, ok := other.(*Pair)
	return ok && p.car.Equal(o.car) && p.cdr.Equal(o.cdr)
}

// IsVar always returns false for pairs.
func (p *Pair) IsVar() bool { return false }

// Clone creates a deep copy of the pair.
func (p *Pair) Clone() Term {
	return &Pair{car: p.car.Clone(), cdr: p.cdr.Clone()}
}

// nilTerm is the empty list. There is a single shared instance, Nil.
type nilTerm struct{}

// Nil is the empty list terminator.
var Nil Term = &nilTerm{}

func (*nilTerm) String() string { return "[]" }

func (*nilTerm) Equal(other Term) bool {
	_, ok := other.(*nilTerm)
	return ok
}

func (*nilTerm) IsVar() bool { return false }

func (*nilTerm) Clone() Term { return Nil }

// List builds a proper list from the given elements.
func List(items ...Term) Term {
	out := Nil
	for i := len(items) - 1; i >= 0; i-- {
		out = NewPair(items[i], out)
	}
	return out
}

// Compound represents a compound term: a functor applied to an ordered
// argument list, f(t1, ..., tn). Goal terms submitted to the resolver are
// compounds whose functor names the predicate.
type Compound struct {
	functor string
	args    []Term
}

// NewCompound creates a compound term with the given functor and arguments.
func NewCompound(functor string, args ...Term) *Compound {
	return &Compound{functor: functor, args: args}
}

// Functor returns the compound's functor name.
func (c *Compound) Functor() string { return c.functor }

// Args returns the compound's argument list. The slice must not be mutated.
func (c *Compound) Args() []Term { return c.args }

// Arity returns the number of arguments.
func (c *Compound) Arity() int { return len(c.args) }

// String renders the compound as functor(a1, a2, ...).
func (c *Compound) String() string {
	if len(c.args) == 0 {
		return c.functor
	}
	parts := make([]string, len(c.args))
	for i, a := range c.args {
		parts[i] = a.String()
	}
	return c.functor + "(" + strings.Join(parts, ", ") + ")"
}

// Equal checks structural equality: same functor, same arity, equal args.
func (c *Compound) Equal(other Term) bool {
	o, ok := other.(*Compound)
	if !ok || c.functor != o.functor || len(c.args) != len(o.args) {
		return false
	}
	for i := range c.args {
		if !c.args[i].Equal(o.args[i]) {
			return false
		}
	}
	return true
}

// IsVar always returns false for compounds.
func (c *Compound) IsVar() bool { return false }

// Clone creates a deep copy of the compound.
func (c *Compound) Clone() Term {
	args := make([]Term, len(c.args))
	for i, a := range c.args {
		args[i] = a.Clone()
	}
	return &Compound{functor: c.functor, args: args}
}

// MapTerm represents an unordered set of key-to-term bindings. Keys are
// atoms or numbers. Two maps unify only when they have the same key set and
// every pair of values unifies. Entries are kept sorted by canonical key so
// equal maps have identical layout.
type MapTerm struct {
	keys []Term
	vals []Term
}

// NewMapTerm creates a map term from parallel key and value slices. Keys
// must be atoms or numbers; later duplicates overwrite earlier ones.
func NewMapTerm(keys, vals []Term) (*MapTerm, error) {
	if len(keys) != len(vals) {
		return nil, fmt.Errorf("prolog: map needs matching key/value counts, got %d/%d", len(keys), len(vals))
	}
	byKey := make(map[string]int, len(keys))
	outKeys := make([]Term, 0, len(keys))
	outVals := make([]Term, 0, len(vals))
	for i, k := range keys {
		switch k.(type) {
		case *Atom, *Num:
		default:
			return nil, fmt.Errorf("prolog: map key must be an atom or number, got %s", k)
		}
		ck := canonicalTerm(k)
		if j, ok := byKey[ck]; ok {
			outVals[j] = vals[i]
			continue
		}
		byKey[ck] = len(outKeys)
		outKeys = append(outKeys, k)
		outVals = append(outVals, vals[i])
	}
	m := &MapTerm{keys: outKeys, vals: outVals}
	m.sortEntries()
	return m, nil
}

func (m *MapTerm) sortEntries() {
	idx := make([]int, len(m.keys))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool {
		return canonicalTerm(m.keys[idx[a]]) < canonicalTerm(m.keys[idx[b]])
	})
	keys := make([]Term, len(m.keys))
	vals := make([]Term, len(m.vals))
	for i, j := range idx {
		keys[i] = m.keys[j]
		vals[i] = m.vals[j]
	}
	m.keys = keys
	m.vals = vals
}

// Len returns the number of entries.
func (m *MapTerm) Len() int { return len(m.keys) }

// Entry returns the i-th key and value in canonical key order.
func (m *MapTerm) Entry(i int) (Term, Term) { return m.keys[i], m.vals[i] }

// Get returns the value bound to the given key, if present.
func (m *MapTerm) Get(key Term) (Term, bool) {
	ck := canonicalTerm(key)
	for i, k := range m.keys {
		if canonicalTerm(k) == ck {
			return m.vals[i], true
		}
	}
	return nil, false
}

// String renders the map as {k1: v1, k2: v2}.
func (m *MapTerm) String() string {
	parts := make([]string, len(m.keys))
	for i := range m.keys {
		parts[i] = m.keys[i].String() + ": " + m.vals[i].String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Equal checks structural equality entry by entry.
func (m *MapTerm) Equal(other Term) bool {
	o, ok := other.(*MapTerm)
	if !ok || len(m.keys) != len(o.keys) {
		return false
	}
	for i := range m.keys {
		if !m.keys[i].Equal(o.keys[i]) || !m.vals[i].Equal(o.vals[i]) {
			return false
		}
	}
	return true
}

// IsVar always returns false for maps.
func (m *MapTerm) IsVar() bool { return false }

// Clone creates a deep copy of the map.
func (m *MapTerm) Clone() Term {
	keys := make([]Term, len(m.keys))
	vals := make([]Term, len(m.vals))
	for i := range m.keys {
		keys[i] = m.keys[i].Clone()
		vals[i] = m.vals[i].Clone()
	}
	return &MapTerm{keys: keys, vals: vals}
}
