package sema

import (
	"context"
	"errors"
	"fmt"

	"codescope/internal/types"
)

var errStepLimit = errors.New("constraint solving did not converge")

// mismatchError is a failed Equal or Subtype constraint.
type mismatchError struct {
	got, want types.TypeID
}

func (e *mismatchError) Error() string { return "type mismatch" }

// infiniteError is an occurs-check failure: a variable would contain itself.
type infiniteError struct {
	v types.TypeID
	t types.TypeID
}

func (e *infiniteError) Error() string { return "infinite type" }

// solver holds the type variables of one function. Variables live in a
// union-find forest; a root may carry a binding to a non-variable type.
type solver struct {
	in     *types.Interner
	ctx    context.Context
	parent []uint32
	bound  []types.TypeID
	steps  int
	max    int
}

func newSolver(ctx context.Context, in *types.Interner, maxSteps int) *solver {
	return &solver{in: in, ctx: ctx, max: maxSteps}
}

func (s *solver) fresh() types.TypeID {
	i := uint32(len(s.parent)) // #nosec G115 -- bounded by expression count
	s.parent = append(s.parent, i)
	s.bound = append(s.bound, types.NoTypeID)
	return s.in.Var(i)
}

// step accounts one unification step and checks for cancellation.
func (s *solver) step() error {
	s.steps++
	if s.max > 0 && s.steps > s.max {
		return errStepLimit
	}
	return s.ctx.Err()
}

func (s *solver) find(i uint32) uint32 {
	for s.parent[i] != i {
		s.parent[i] = s.parent[s.parent[i]]
		i = s.parent[i]
	}
	return i
}

// varIndex returns the root index of a variable type.
func (s *solver) varIndex(t types.TypeID) (uint32, bool) {
	tt, ok := s.in.Lookup(t)
	if !ok || tt.Kind != types.KindVar || int(tt.Payload) >= len(s.parent) {
		return 0, false
	}
	return s.find(tt.Payload), true
}

// prune follows variable bindings to the first non-variable type, or to the
// representative variable when unbound.
func (s *solver) prune(t types.TypeID) types.TypeID {
	for {
		r, ok := s.varIndex(t)
		if !ok {
			return t
		}
		if s.bound[r] == types.NoTypeID {
			return s.in.Var(r)
		}
		t = s.bound[r]
	}
}

func (s *solver) isVar(t types.TypeID) bool {
	_, ok := s.varIndex(t)
	return ok
}

func (s *solver) kind(t types.TypeID) types.Kind {
	return s.in.Kind(t)
}

// unify solves Equal(a, b).
func (s *solver) unify(a, b types.TypeID) error {
	if err := s.step(); err != nil {
		return err
	}
	a, b = s.prune(a), s.prune(b)
	if a == b {
		return nil
	}
	if s.isVar(a) {
		return s.bind(a, b)
	}
	if s.isVar(b) {
		return s.bind(b, a)
	}
	ta, _ := s.in.Lookup(a)
	tb, _ := s.in.Lookup(b)
	if ta.Kind == types.KindUnknown || tb.Kind == types.KindUnknown {
		return nil
	}
	if ta.Kind != tb.Kind {
		return &mismatchError{got: a, want: b}
	}
	switch ta.Kind {
	case types.KindList, types.KindSet:
		return s.nested(a, b, s.unify(ta.Elem, tb.Elem))
	case types.KindDict:
		if err := s.unify(ta.Key, tb.Key); err != nil {
			return s.nested(a, b, err)
		}
		return s.nested(a, b, s.unify(ta.Elem, tb.Elem))
	case types.KindTuple:
		ea, _ := s.in.TupleInfo(a)
		eb, _ := s.in.TupleInfo(b)
		if len(ea.Elems) != len(eb.Elems) {
			return &mismatchError{got: a, want: b}
		}
		for i := range ea.Elems {
			if err := s.unify(ea.Elems[i], eb.Elems[i]); err != nil {
				return s.nested(a, b, err)
			}
		}
		return nil
	case types.KindFn:
		fa, _ := s.in.FnInfo(a)
		fb, _ := s.in.FnInfo(b)
		if len(fa.Params) != len(fb.Params) {
			return &mismatchError{got: a, want: b}
		}
		for i := range fa.Params {
			if err := s.unify(fa.Params[i].Type, fb.Params[i].Type); err != nil {
				return s.nested(a, b, err)
			}
		}
		return s.nested(a, b, s.unify(fa.Result, fb.Result))
	}
	// distinct classes, instances or modules
	return &mismatchError{got: a, want: b}
}

// nested reports a failure inside a structure against the outer types so
// the message names what the user wrote.
func (s *solver) nested(a, b types.TypeID, err error) error {
	var mm *mismatchError
	if errors.As(err, &mm) {
		return &mismatchError{got: a, want: b}
	}
	return err
}

// bind attaches the unbound variable v to t after the occurs check.
func (s *solver) bind(v, t types.TypeID) error {
	r, _ := s.varIndex(v)
	if o, ok := s.varIndex(t); ok {
		if o != r {
			s.parent[r] = o
		}
		return nil
	}
	if s.occurs(r, t) {
		return &infiniteError{v: v, t: t}
	}
	s.bound[r] = t
	return nil
}

func (s *solver) occurs(r uint32, t types.TypeID) bool {
	stack := []types.TypeID{t}
	for len(stack) > 0 {
		cur := s.prune(stack[len(stack)-1])
		stack = stack[:len(stack)-1]
		if o, ok := s.varIndex(cur); ok {
			if o == r {
				return true
			}
			continue
		}
		stack = append(stack, s.components(cur)...)
	}
	return false
}

// components lists the types a structured type is built from.
func (s *solver) components(t types.TypeID) []types.TypeID {
	tt, _ := s.in.Lookup(t)
	switch tt.Kind {
	case types.KindList, types.KindSet:
		return []types.TypeID{tt.Elem}
	case types.KindDict:
		return []types.TypeID{tt.Key, tt.Elem}
	case types.KindTuple:
		info, _ := s.in.TupleInfo(t)
		return info.Elems
	case types.KindFn:
		info, _ := s.in.FnInfo(t)
		out := make([]types.TypeID, 0, len(info.Params)+1)
		for _, p := range info.Params {
			out = append(out, p.Type)
		}
		return append(out, info.Result)
	}
	return nil
}

// subtype solves Subtype(sub, super). Variables fall back to equality;
// containers are invariant.
func (s *solver) subtype(sub, super types.TypeID) error {
	if err := s.step(); err != nil {
		return err
	}
	a, b := s.prune(sub), s.prune(super)
	if a == b {
		return nil
	}
	if s.isVar(a) || s.isVar(b) {
		return s.unify(a, b)
	}
	ta, _ := s.in.Lookup(a)
	tb, _ := s.in.Lookup(b)
	if ta.Kind == types.KindUnknown || tb.Kind == types.KindUnknown {
		return nil
	}
	if ta.Kind.IsNumeric() && tb.Kind.IsNumeric() {
		if s.in.IsSubtype(a, b) {
			return nil
		}
		return &mismatchError{got: a, want: b}
	}
	if ta.Kind != tb.Kind {
		return &mismatchError{got: a, want: b}
	}
	switch ta.Kind {
	case types.KindTuple:
		ea, _ := s.in.TupleInfo(a)
		eb, _ := s.in.TupleInfo(b)
		if len(ea.Elems) != len(eb.Elems) {
			return &mismatchError{got: a, want: b}
		}
		for i := range ea.Elems {
			if err := s.subtype(ea.Elems[i], eb.Elems[i]); err != nil {
				return s.nested(a, b, err)
			}
		}
		return nil
	case types.KindInstance:
		if s.in.IsSubclass(ta.Elem, tb.Elem) {
			return nil
		}
		return &mismatchError{got: a, want: b}
	}
	return s.unify(a, b)
}

// zonk substitutes every bound variable; unbound ones become Unknown.
func (s *solver) zonk(t types.TypeID) types.TypeID {
	return s.zonkDepth(t, 0)
}

func (s *solver) zonkDepth(t types.TypeID, depth int) types.TypeID {
	t = s.prune(t)
	if depth > 64 {
		return s.in.Builtins().Unknown
	}
	tt, ok := s.in.Lookup(t)
	if !ok {
		return s.in.Builtins().Unknown
	}
	switch tt.Kind {
	case types.KindVar:
		return s.in.Builtins().Unknown
	case types.KindList:
		return s.in.List(s.zonkDepth(tt.Elem, depth+1))
	case types.KindSet:
		return s.in.Set(s.zonkDepth(tt.Elem, depth+1))
	case types.KindDict:
		return s.in.Dict(s.zonkDepth(tt.Key, depth+1), s.zonkDepth(tt.Elem, depth+1))
	case types.KindTuple:
		info, _ := s.in.TupleInfo(t)
		elems := make([]types.TypeID, len(info.Elems))
		for i, e := range info.Elems {
			elems[i] = s.zonkDepth(e, depth+1)
		}
		return s.in.Tuple(elems)
	case types.KindFn:
		info, _ := s.in.FnInfo(t)
		params := make([]types.Param, len(info.Params))
		for i, p := range info.Params {
			p.Type = s.zonkDepth(p.Type, depth+1)
			params[i] = p
		}
		info.Params = params
		info.Result = s.zonkDepth(info.Result, depth+1)
		return s.in.Fn(info)
	}
	return t
}

// isolate binds every unbound variable inside ts to Unknown, so a failed
// constraint does not produce follow-up errors.
func (s *solver) isolate(ts ...types.TypeID) {
	unknown := s.in.Builtins().Unknown
	stack := append([]types.TypeID(nil), ts...)
	seen := map[types.TypeID]bool{}
	for len(stack) > 0 {
		cur := s.prune(stack[len(stack)-1])
		stack = stack[:len(stack)-1]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		if r, ok := s.varIndex(cur); ok {
			s.bound[r] = unknown
			continue
		}
		stack = append(stack, s.components(cur)...)
	}
}

// describe renders a type for messages, resolving what is known so far.
func (s *solver) describe(t types.TypeID) string {
	return s.in.String(s.zonk(t))
}

func (e *infiniteError) message(s *solver) string {
	return fmt.Sprintf("infinite type: %s occurs in %s", s.in.String(e.v), s.in.String(s.prune(e.t)))
}
