package prolog

import (
	"context"
	"math"
)

func init() {
	registerBuiltin("is", 2, builtinIs)
	for _, op := range []string{"<", ">", "=<", ">=", "=:=", "=\\="} {
		op := op
		registerBuiltin(op, 2, func(qr *queryRun, args []Term) Goal {
			return builtinCompare(op, args)
		})
	}
}

// builtinIs evaluates its second argument as an arithmetic expression and
// unifies the first with the result. An unbound operand or a domain error
// (division by zero, sqrt of a negative) fails the branch; it never aborts
// the query.
func builtinIs(qr *queryRun, args []Term) Goal {
	return func(ctx context.Context, s *Substitution) *Stream {
		n, ok := evalArith(args[1], s)
		if !ok {
			return emptyStream()
		}
		if s2 := Unify(args[0], n, s); s2 != nil {
			return singleton(s2)
		}
		return emptyStream()
	}
}

func builtinCompare(op string, args []Term) Goal {
	return func(ctx context.Context, s *Substitution) *Stream {
		a, ok1 := evalArith(args[0], s)
		b, ok2 := evalArith(args[1], s)
		if !ok1 || !ok2 {
			return emptyStream()
		}
		x, y := a.Float64(), b.Float64()
		var holds bool
		switch op {
		case "<":
			holds = x < y
		case ">":
			holds = x > y
		case "=<":
			holds = x <= y
		case ">=":
			holds = x >= y
		case "=:=":
			holds = x == y
		case "=\\=":
			holds = x != y
		}
		if holds {
			return singleton(s)
		}
		return emptyStream()
	}
}

// evalArith evaluates an arithmetic expression term under the
// substitution. Operands must be ground numbers; anything else, including
// an unbound variable, makes the whole evaluation fail.
func evalArith(t Term, s *Substitution) (*Num, bool) {
	switch tt := s.Walk(t).(type) {
	case *Num:
		return tt, true
	case *Compound:
		return applyArith(tt, s)
	default:
		return nil, false
	}
}

func applyArith(c *Compound, s *Substitution) (*Num, bool) {
	operands := make([]*Num, len(c.args))
	for i, a := range c.args {
		n, ok := evalArith(a, s)
		if !ok {
			return nil, false
		}
		operands[i] = n
	}

	if len(operands) == 1 {
		return applyUnary(c.functor, operands[0])
	}
	if len(operands) == 2 {
		return applyBinary(c.functor, operands[0], operands[1])
	}
	return nil, false
}

func applyUnary(op string, a *Num) (*Num, bool) {
	switch op {
	case "-":
		if a.IsFloat() {
			return NewFloat(-a.Float64()), true
		}
		return NewInt(-a.Int64()), true
	case "abs":
		if a.IsFloat() {
			return NewFloat(math.Abs(a.Float64())), true
		}
		if a.Int64() < 0 {
			return NewInt(-a.Int64()), true
		}
		return a, true
	case "sqrt":
		if a.Float64() < 0 {
			return nil, false
		}
		return NewFloat(math.Sqrt(a.Float64())), true
	case "floor":
		return NewInt(int64(math.Floor(a.Float64()))), true
	case "ceil":
		return NewInt(int64(math.Ceil(a.Float64()))), true
	case "round":
		return NewInt(int64(math.Round(a.Float64()))), true
	default:
		return nil, false
	}
}

func applyBinary(op string, a, b *Num) (*Num, bool) {
	bothInt := !a.IsFloat() && !b.IsFloat()
	switch op {
	case "+":
		if bothInt {
			return NewInt(a.Int64() + b.Int64()), true
		}
		return NewFloat(a.Float64() + b.Float64()), true
	case "-":
		if bothInt {
			return NewInt(a.Int64() - b.Int64()), true
		}
		return NewFloat(a.Float64() - b.Float64()), true
	case "*":
		if bothInt {
			return NewInt(a.Int64() * b.Int64()), true
		}
		return NewFloat(a.Float64() * b.Float64()), true
	case "/":
		if b.Float64() == 0 {
			return nil, false
		}
		if bothInt && a.Int64()%b.Int64() == 0 {
			return NewInt(a.Int64() / b.Int64()), true
		}
		return NewFloat(a.Float64() / b.Float64()), true
	case "mod":
		if !bothInt || b.Int64() == 0 {
			return nil, false
		}
		m := a.Int64() % b.Int64()
		if m != 0 && (m < 0) != (b.Int64() < 0) {
			m += b.Int64()
		}
		return NewInt(m), true
	case "rem":
		if !bothInt || b.Int64() == 0 {
			return nil, false
		}
		return NewInt(a.Int64() % b.Int64()), true
	case "min":
		if a.Float64() <= b.Float64() {
			return a, true
		}
		return b, true
	case "max":
		if a.Float64() >= b.Float64() {
			return a, true
		}
		return b, true
	case "pow":
		if bothInt && b.Int64() >= 0 {
			out := int64(1)
			base := a.Int64()
			for i := int64(0); i < b.Int64(); i++ {
				out *= base
			}
			return NewInt(out), true
		}
		v := math.Pow(a.Float64(), b.Float64())
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, false
		}
		return NewFloat(v), true
	default:
		return nil, false
	}
}
