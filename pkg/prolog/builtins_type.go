package prolog

import "context"

func init() {
	registerBuiltin("number", 1, typeCheck(func(t Term) bool {
		_, ok := t.(*Num)
		return ok
	}))
	registerBuiltin("integer", 1, typeCheck(func(t Term) bool {
		n, ok := t.(*Num)
		return ok && !n.IsFloat()
	}))
	registerBuiltin("atom", 1, typeCheck(func(t Term) bool {
		_, ok := t.(*Atom)
		return ok
	}))
	registerBuiltin("string", 1, typeCheck(func(t Term) bool {
		_, ok := t.(*Str)
		return ok
	}))
	registerBuiltin("var", 1, typeCheck(func(t Term) bool {
		_, ok := t.(*Var)
		return ok
	}))
	registerBuiltin("nonvar", 1, typeCheck(func(t Term) bool {
		_, ok := t.(*Var)
		return !ok
	}))
	registerBuiltin("is_list", 1, func(qr *queryRun, args []Term) Goal {
		return func(ctx context.Context, s *Substitution) *Stream {
			if _, ok := SliceFromList(s.WalkAll(args[0])); ok {
				return singleton(s)
			}
			return emptyStream()
		}
	})
	registerBuiltin("ground", 1, func(qr *queryRun, args []Term) Goal {
		return func(ctx context.Context, s *Substitution) *Stream {
			if IsGround(s.WalkAll(args[0])) {
				return singleton(s)
			}
			return emptyStream()
		}
	})
}

// typeCheck builds a builtin that succeeds when the walked argument
// satisfies the predicate. The check looks at the top of the term only;
// deep checks (is_list, ground) walk the whole structure separately.
func typeCheck(pred func(Term) bool) builtinFunc {
	return func(qr *queryRun, args []Term) Goal {
		return func(ctx context.Context, s *Substitution) *Stream {
			if pred(s.Walk(args[0])) {
				return singleton(s)
			}
			return emptyStream()
		}
	}
}
