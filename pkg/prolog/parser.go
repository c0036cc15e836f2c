package prolog

import (
	"strconv"
	"strings"
)

// The textual notation understood here is a small Prolog-like surface
// syntax for term data:
//
//	parent(tom, mary)             compound
//	?x  ?Child  _                 variables (same ?name = same variable)
//	42  -3.5  "text"              numbers and strings
//	[a, b | ?tail]                lists with optional tail
//	{name: tom, age: 41}          map terms
//	is(?s, +(2, 3))               operators are ordinary functors
//
// Clauses for Consult end with a period; rules use :- between head and
// body. Line comments start with %.
//
// Repeated occurrences of the same ?name within one parse unit (a goal
// list or a clause) share a single variable; `_` is a fresh anonymous
// variable at every occurrence.

const symbolRunes = "+-*/\\=<>!@#&~^:"

type parser struct {
	src  string
	pos  int
	vars map[string]*Var
}

func newParser(src string) *parser {
	return &parser{src: src, vars: make(map[string]*Var)}
}

// ParseTerm parses a single term.
func ParseTerm(src string) (Term, error) {
	p := newParser(src)
	t, err := p.term()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if !p.eof() {
		return nil, ErrParse.New(p.pos, "trailing input")
	}
	return t, nil
}

// ParseGoals parses a comma-separated goal list with one shared variable
// scope, so ?x in the first goal and ?x in the last are the same variable.
func ParseGoals(src string) ([]Term, error) {
	p := newParser(src)
	var goals []Term
	for {
		t, err := p.term()
		if err != nil {
			return nil, err
		}
		goals = append(goals, t)
		p.skipSpace()
		if p.eof() {
			return goals, nil
		}
		if !p.eat(',') {
			return nil, ErrParse.New(p.pos, "expected ',' between goals")
		}
	}
}

// Clause is one parsed fact or rule.
type Clause struct {
	Predicate string
	Args      []Term
	Body      []*Compound // nil for facts
}

// IsRule reports whether the clause has a body.
func (c Clause) IsRule() bool { return c.Body != nil }

// ParseProgram parses a sequence of period-terminated clauses. Each clause
// has its own variable scope.
func ParseProgram(src string) ([]Clause, error) {
	var out []Clause
	p := newParser(src)
	for {
		p.skipSpace()
		if p.eof() {
			return out, nil
		}
		// Fresh scope per clause.
		p.vars = make(map[string]*Var)
		cl, err := p.clause()
		if err != nil {
			return nil, err
		}
		out = append(out, cl)
	}
}

// Consult parses program text and loads it: facts are asserted, rules
// added, in source order.
func (kb *KnowledgeBase) Consult(src string) error {
	clauses, err := ParseProgram(src)
	if err != nil {
		return err
	}
	for _, cl := range clauses {
		if cl.IsRule() {
			if err := kb.AddRule(cl.Predicate, cl.Args, cl.Body); err != nil {
				return err
			}
		} else {
			if err := kb.Assert(cl.Predicate, cl.Args...); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *parser) clause() (Clause, error) {
	head, err := p.term()
	if err != nil {
		return Clause{}, err
	}
	pred, args, ok := splitGoal(head)
	if !ok {
		return Clause{}, ErrParse.New(p.pos, "clause head must be a compound term or atom")
	}
	cl := Clause{Predicate: pred, Args: args}

	p.skipSpace()
	if p.eatString(":-") {
		for {
			g, err := p.term()
			if err != nil {
				return Clause{}, err
			}
			bg, ok := asBodyGoal(g)
			if !ok {
				return Clause{}, ErrParse.New(p.pos, "body goal must be a compound term or atom")
			}
			cl.Body = append(cl.Body, bg)
			p.skipSpace()
			if p.eat(',') {
				continue
			}
			break
		}
	}
	p.skipSpace()
	if !p.eat('.') {
		return Clause{}, ErrParse.New(p.pos, "expected '.' after clause")
	}
	return cl, nil
}

func asBodyGoal(t Term) (*Compound, bool) {
	switch tt := t.(type) {
	case *Compound:
		return tt, true
	case *Atom:
		return NewCompound(tt.name), true
	default:
		return nil, false
	}
}

func (p *parser) term() (Term, error) {
	p.skipSpace()
	if p.eof() {
		return nil, ErrParse.New(p.pos, "unexpected end of input")
	}
	c := p.src[p.pos]
	switch {
	case c == '?':
		return p.variable()
	case c == '_' && !isIdentRune(p.peekAt(1)):
		p.pos++
		return Fresh(""), nil
	case c == '[':
		return p.list()
	case c == '{':
		return p.mapTerm()
	case c == '"':
		return p.stringLit()
	case c >= '0' && c <= '9':
		return p.number(false)
	case c == '-' && p.peekAt(1) >= '0' && p.peekAt(1) <= '9':
		p.pos++
		return p.number(true)
	case isIdentStart(c) || strings.ContainsRune(symbolRunes, rune(c)):
		return p.atomOrCompound()
	default:
		return nil, ErrParse.New(p.pos, "unexpected character "+strconv.QuoteRune(rune(c)))
	}
}

func (p *parser) variable() (Term, error) {
	p.pos++ // '?'
	start := p.pos
	for !p.eof() && isIdentRune(p.src[p.pos]) {
		p.pos++
	}
	if p.pos == start {
		return nil, ErrParse.New(p.pos, "expected variable name after '?'")
	}
	name := p.src[start:p.pos]
	if v, ok := p.vars[name]; ok {
		return v, nil
	}
	v := Fresh(name)
	p.vars[name] = v
	return v, nil
}

func (p *parser) number(neg bool) (Term, error) {
	start := p.pos
	isFloat := false
	for !p.eof() {
		c := p.src[p.pos]
		if c >= '0' && c <= '9' {
			p.pos++
			continue
		}
		if c == '.' && !isFloat && p.peekAt(1) >= '0' && p.peekAt(1) <= '9' {
			isFloat = true
			p.pos++
			continue
		}
		break
	}
	text := p.src[start:p.pos]
	if isFloat {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, ErrParse.New(start, "bad number "+text)
		}
		if neg {
			f = -f
		}
		return NewFloat(f), nil
	}
	i, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return nil, ErrParse.New(start, "bad number "+text)
	}
	if neg {
		i = -i
	}
	return NewInt(i), nil
}

func (p *parser) stringLit() (Term, error) {
	start := p.pos
	p.pos++ // opening quote
	var sb strings.Builder
	for !p.eof() {
		c := p.src[p.pos]
		switch c {
		case '"':
			p.pos++
			return NewStr(sb.String()), nil
		case '\\':
			p.pos++
			if p.eof() {
				return nil, ErrParse.New(start, "unterminated string")
			}
			switch p.src[p.pos] {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case '"':
				sb.WriteByte('"')
			case '\\':
				sb.WriteByte('\\')
			default:
				sb.WriteByte(p.src[p.pos])
			}
			p.pos++
		default:
			sb.WriteByte(c)
			p.pos++
		}
	}
	return nil, ErrParse.New(start, "unterminated string")
}

func (p *parser) atomOrCompound() (Term, error) {
	name := p.name()
	if name == "" {
		return nil, ErrParse.New(p.pos, "expected atom")
	}
	if !p.eof() && p.src[p.pos] == '(' {
		p.pos++
		var args []Term
		p.skipSpace()
		if p.eat(')') {
			return NewCompound(name), nil
		}
		for {
			a, err := p.term()
			if err != nil {
				return nil, err
			}
			args = append(args, a)
			p.skipSpace()
			if p.eat(',') {
				continue
			}
			if p.eat(')') {
				return NewCompound(name, args...), nil
			}
			return nil, ErrParse.New(p.pos, "expected ',' or ')' in argument list")
		}
	}
	return NewAtom(name), nil
}

// name reads an identifier atom or a symbolic atom.
func (p *parser) name() string {
	start := p.pos
	if !p.eof() && isIdentStart(p.src[p.pos]) {
		for !p.eof() && isIdentRune(p.src[p.pos]) {
			p.pos++
		}
		return p.src[start:p.pos]
	}
	for !p.eof() && strings.ContainsRune(symbolRunes, rune(p.src[p.pos])) {
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *parser) list() (Term, error) {
	p.pos++ // '['
	p.skipSpace()
	if p.eat(']') {
		return Nil, nil
	}
	var items []Term
	tail := Term(Nil)
	for {
		item, err := p.term()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		p.skipSpace()
		if p.eat(',') {
			continue
		}
		if p.eat('|') {
			t, err := p.term()
			if err != nil {
				return nil, err
			}
			tail = t
			p.skipSpace()
		}
		if p.eat(']') {
			break
		}
		return nil, ErrParse.New(p.pos, "expected ',', '|' or ']' in list")
	}
	out := tail
	for i := len(items) - 1; i >= 0; i-- {
		out = NewPair(items[i], out)
	}
	return out, nil
}

func (p *parser) mapTerm() (Term, error) {
	p.pos++ // '{'
	p.skipSpace()
	if p.eat('}') {
		m, _ := NewMapTerm(nil, nil)
		return m, nil
	}
	var keys, vals []Term
	for {
		k, err := p.term()
		if err != nil {
			return nil, err
		}
		switch k.(type) {
		case *Atom, *Num:
		default:
			return nil, ErrParse.New(p.pos, "map key must be an atom or number")
		}
		p.skipSpace()
		if !p.eat(':') {
			return nil, ErrParse.New(p.pos, "expected ':' after map key")
		}
		v, err := p.term()
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
		vals = append(vals, v)
		p.skipSpace()
		if p.eat(',') {
			continue
		}
		if p.eat('}') {
			m, merr := NewMapTerm(keys, vals)
			if merr != nil {
				return nil, ErrParse.New(p.pos, merr.Error())
			}
			return m, nil
		}
		return nil, ErrParse.New(p.pos, "expected ',' or '}' in map")
	}
}

func (p *parser) skipSpace() {
	for !p.eof() {
		c := p.src[p.pos]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			p.pos++
			continue
		}
		if c == '%' {
			for !p.eof() && p.src[p.pos] != '\n' {
				p.pos++
			}
			continue
		}
		return
	}
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) peekAt(offset int) byte {
	if p.pos+offset >= len(p.src) {
		return 0
	}
	return p.src[p.pos+offset]
}

func (p *parser) eat(c byte) bool {
	p.skipSpace()
	if !p.eof() && p.src[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *parser) eatString(s string) bool {
	p.skipSpace()
	if strings.HasPrefix(p.src[p.pos:], s) {
		p.pos += len(s)
		return true
	}
	return false
}

func isIdentStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

func isIdentRune(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9'
}
