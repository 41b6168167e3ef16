package types

// numericRank orders bool <: int <: float; zero for other kinds.
func numericRank(k Kind) int {
	switch k {
	case KindBool:
		return 1
	case KindInt:
		return 2
	case KindFloat:
		return 3
	}
	return 0
}

// IsSubtype decides sub <: super for types without variables. Unknown is
// compatible in both directions; containers are invariant; instances follow
// declared bases.
func (in *Interner) IsSubtype(sub, super TypeID) bool {
	if sub == super {
		return true
	}
	a, okA := in.Lookup(sub)
	b, okB := in.Lookup(super)
	if !okA || !okB {
		return false
	}
	if a.Kind == KindUnknown || b.Kind == KindUnknown {
		return true
	}
	if ra, rb := numericRank(a.Kind), numericRank(b.Kind); ra > 0 && rb > 0 {
		return ra <= rb
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindList, KindSet:
		return in.Compatible(a.Elem, b.Elem)
	case KindDict:
		return in.Compatible(a.Key, b.Key) && in.Compatible(a.Elem, b.Elem)
	case KindTuple:
		ta, _ := in.TupleInfo(sub)
		tb, _ := in.TupleInfo(super)
		if len(ta.Elems) != len(tb.Elems) {
			return false
		}
		for i := range ta.Elems {
			if !in.IsSubtype(ta.Elems[i], tb.Elems[i]) {
				return false
			}
		}
		return true
	case KindInstance:
		return in.IsSubclass(a.Elem, b.Elem)
	case KindFn:
		return in.Compatible(sub, super)
	}
	return false
}

// Compatible is the invariant relation: equal up to Unknown.
func (in *Interner) Compatible(x, y TypeID) bool {
	if x == y {
		return true
	}
	a, okA := in.Lookup(x)
	b, okB := in.Lookup(y)
	if !okA || !okB {
		return false
	}
	if a.Kind == KindUnknown || b.Kind == KindUnknown {
		return true
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindList, KindSet:
		return in.Compatible(a.Elem, b.Elem)
	case KindDict:
		return in.Compatible(a.Key, b.Key) && in.Compatible(a.Elem, b.Elem)
	case KindTuple:
		ta, _ := in.TupleInfo(x)
		tb, _ := in.TupleInfo(y)
		if len(ta.Elems) != len(tb.Elems) {
			return false
		}
		for i := range ta.Elems {
			if !in.Compatible(ta.Elems[i], tb.Elems[i]) {
				return false
			}
		}
		return true
	case KindFn:
		fa, _ := in.FnInfo(x)
		fb, _ := in.FnInfo(y)
		if len(fa.Params) != len(fb.Params) || !in.Compatible(fa.Result, fb.Result) {
			return false
		}
		for i := range fa.Params {
			if !in.Compatible(fa.Params[i].Type, fb.Params[i].Type) {
				return false
			}
		}
		return true
	}
	return false
}

// IsSubclass reports whether class sub equals super or derives from it.
func (in *Interner) IsSubclass(sub, super TypeID) bool {
	seen := map[TypeID]bool{}
	stack := []TypeID{sub}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == super {
			return true
		}
		if seen[cur] {
			continue
		}
		seen[cur] = true
		info, ok := in.ClassInfo(cur)
		if !ok {
			continue
		}
		for _, base := range info.Bases {
			if in.Kind(base) == KindUnknown {
				return true
			}
			stack = append(stack, base)
		}
	}
	return false
}

// Wider returns the larger of two numeric types, and false when either is
// not numeric. bool widens to int in arithmetic.
func (in *Interner) Wider(x, y TypeID) (TypeID, bool) {
	rx, ry := numericRank(in.Kind(x)), numericRank(in.Kind(y))
	if rx == 0 || ry == 0 {
		return NoTypeID, false
	}
	switch max(rx, ry) {
	case 3:
		return in.builtins.Float, true
	default:
		return in.builtins.Int, true
	}
}
