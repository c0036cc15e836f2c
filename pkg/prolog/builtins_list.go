package prolog

import "context"

func init() {
	registerBuiltin("member", 2, func(qr *queryRun, args []Term) Goal {
		return memberGoal(args[0], args[1])
	})
	registerBuiltin("append", 3, func(qr *queryRun, args []Term) Goal {
		return appendGoal(args[0], args[1], args[2])
	})
	registerBuiltin("length", 2, builtinLength)
	registerBuiltin("nth", 3, builtinNth)
	registerBuiltin("reverse", 2, builtinReverse)
	registerBuiltin("first", 2, func(qr *queryRun, args []Term) Goal {
		return Eq(args[0], NewPair(args[1], Fresh("")))
	})
	registerBuiltin("rest", 2, func(qr *queryRun, args []Term) Goal {
		return Eq(args[0], NewPair(Fresh(""), args[1]))
	})
	registerBuiltin("cons", 3, func(qr *queryRun, args []Term) Goal {
		return Eq(args[2], NewPair(args[0], args[1]))
	})
	registerBuiltin("empty", 1, func(qr *queryRun, args []Term) Goal {
		return Eq(args[0], Nil)
	})
	registerBuiltin("non_empty", 1, func(qr *queryRun, args []Term) Goal {
		return Eq(args[0], NewPair(Fresh(""), Fresh("")))
	})
}

// memberGoal relates an element to a list containing it. Fully relational:
// with a ground list it enumerates elements, with an unbound list it
// enumerates ever-longer candidate lists.
func memberGoal(x, l Term) Goal {
	return Disj(
		func(ctx context.Context, s *Substitution) *Stream {
			return Eq(l, NewPair(x, Fresh("")))(ctx, s)
		},
		func(ctx context.Context, s *Substitution) *Stream {
			tail := Fresh("")
			return Conj(
				Eq(l, NewPair(Fresh(""), tail)),
				CallGoal(func() Goal { return memberGoal(x, tail) }),
			)(ctx, s)
		},
	)
}

// appendGoal relates two lists to their concatenation, in every mode:
// build the whole, subtract a prefix, or enumerate the splits of a ground
// result.
func appendGoal(a, b, ab Term) Goal {
	return Disj(
		Conj(Eq(a, Nil), Eq(b, ab)),
		func(ctx context.Context, s *Substitution) *Stream {
			head := Fresh("")
			tail := Fresh("")
			rest := Fresh("")
			return Conj(
				Eq(a, NewPair(head, tail)),
				Eq(ab, NewPair(head, rest)),
				CallGoal(func() Goal { return appendGoal(tail, b, rest) }),
			)(ctx, s)
		},
	)
}

// builtinLength relates a list to its length. A ground list yields its
// length; a ground length materializes a list of fresh variables, so
// length(L, 0) with L unbound binds L to the empty list; two unbound
// arguments enumerate lengths upward, lazily.
func builtinLength(qr *queryRun, args []Term) Goal {
	return func(ctx context.Context, s *Substitution) *Stream {
		prefix := 0
		t := s.Walk(args[0])
		for {
			if p, ok := t.(*Pair); ok {
				prefix++
				t = s.Walk(p.cdr)
				continue
			}
			break
		}
		switch tail := t.(type) {
		case *nilTerm:
			if s2 := Unify(args[1], NewInt(int64(prefix)), s); s2 != nil {
				return singleton(s2)
			}
			return emptyStream()
		case *Var:
			if n, ok := walkInt(args[1], s); ok {
				if n < int64(prefix) {
					return emptyStream()
				}
				if s2 := Unify(tail, freshList(int(n)-prefix), s); s2 != nil {
					return singleton(s2)
				}
				return emptyStream()
			}
			if _, isVar := s.Walk(args[1]).(*Var); !isVar {
				return emptyStream()
			}
			out := NewStream()
			go func() {
				defer out.Close()
				for extra := 0; ; extra++ {
					if ctx.Err() != nil {
						return
					}
					s2 := Unify(tail, freshList(extra), s)
					if s2 == nil {
						continue
					}
					s2 = Unify(args[1], NewInt(int64(prefix+extra)), s2)
					if s2 != nil {
						if !out.Put(s2) {
							return
						}
					}
				}
			}()
			return out
		default:
			return emptyStream()
		}
	}
}

func freshList(n int) Term {
	items := make([]Term, n)
	for i := range items {
		items[i] = Fresh("")
	}
	return List(items...)
}

// builtinNth relates a zero-based index to a list element. A ground index
// walks to the element; an unbound index enumerates positions.
func builtinNth(qr *queryRun, args []Term) Goal {
	return func(ctx context.Context, s *Substitution) *Stream {
		items, ok := SliceFromList(s.WalkAll(args[1]))
		if !ok {
			return emptyStream()
		}
		if n, isInt := walkInt(args[0], s); isInt {
			if n < 0 || n >= int64(len(items)) {
				return emptyStream()
			}
			if s2 := Unify(args[2], items[n], s); s2 != nil {
				return singleton(s2)
			}
			return emptyStream()
		}
		if _, isVar := s.Walk(args[0]).(*Var); !isVar {
			return emptyStream()
		}
		out := NewStream()
		go func() {
			defer out.Close()
			for i, item := range items {
				if ctx.Err() != nil {
					return
				}
				s2 := Unify(args[0], NewInt(int64(i)), s)
				if s2 == nil {
					continue
				}
				if s2 = Unify(args[2], item, s2); s2 != nil {
					if !out.Put(s2) {
						return
					}
				}
			}
		}()
		return out
	}
}

// builtinReverse relates a list to its reversal; either side may be the
// ground one.
func builtinReverse(qr *queryRun, args []Term) Goal {
	return func(ctx context.Context, s *Substitution) *Stream {
		if items, ok := SliceFromList(s.WalkAll(args[0])); ok {
			if s2 := Unify(args[1], reversedList(items), s); s2 != nil {
				return singleton(s2)
			}
			return emptyStream()
		}
		if items, ok := SliceFromList(s.WalkAll(args[1])); ok {
			if s2 := Unify(args[0], reversedList(items), s); s2 != nil {
				return singleton(s2)
			}
			return emptyStream()
		}
		return emptyStream()
	}
}

func reversedList(items []Term) Term {
	out := Nil
	for _, item := range items {
		out = NewPair(item, out)
	}
	return out
}
