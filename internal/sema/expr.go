package sema

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"codescope/internal/ast"
	"codescope/internal/diag"
	"codescope/internal/source"
	"codescope/internal/types"
)

// expr infers the type of an expression tree in post-order with an explicit
// stack and records the type of every node it visits.
func (tc *typeChecker) expr(root ast.NodeID) types.TypeID {
	if !root.IsValid() || tc.stopped() {
		return tc.unknown()
	}
	type frame struct {
		id    ast.NodeID
		ready bool
	}
	stack := []frame{{id: root}}
	for len(stack) > 0 && !tc.stopped() {
		top := len(stack) - 1
		if !stack[top].ready {
			stack[top].ready = true
			kids := tc.operands(stack[top].id)
			for i := len(kids) - 1; i >= 0; i-- {
				stack = append(stack, frame{id: kids[i]})
			}
			continue
		}
		id := stack[top].id
		stack = stack[:top]
		if err := tc.solver.step(); err != nil {
			tc.err = err
			break
		}
		tc.exprs[id] = tc.infer(id)
	}
	return tc.of(root)
}

// operands lists the sub-expressions evaluated before id. A lambda only
// evaluates its defaults here; its body is a unit of its own.
func (tc *typeChecker) operands(id ast.NodeID) []ast.NodeID {
	switch tc.builder.Kind(id) {
	case ast.KindLambda:
		lam, _ := tc.builder.Lambda(id)
		var out []ast.NodeID
		for _, p := range lam.Params {
			if pd, ok := tc.builder.Param(p); ok && pd.Default.IsValid() {
				out = append(out, pd.Default)
			}
		}
		return out
	case ast.KindName, ast.KindConst, ast.KindBad:
		return nil
	}
	return tc.builder.Children(id)
}

func (tc *typeChecker) of(id ast.NodeID) types.TypeID {
	if t, ok := tc.exprs[id]; ok {
		return t
	}
	return tc.unknown()
}

func (tc *typeChecker) kindOf(t types.TypeID) types.Kind {
	return tc.types.Kind(tc.solver.prune(t))
}

// opaque kinds carry no structure the checker can hold operators against.
func opaque(k types.Kind) bool {
	switch k {
	case types.KindUnknown, types.KindVar, types.KindInstance, types.KindClass, types.KindInvalid:
		return true
	}
	return false
}

func intish(k types.Kind) bool {
	return k == types.KindInt || k == types.KindBool
}

func (tc *typeChecker) infer(id ast.NodeID) types.TypeID {
	b := tc.builder
	bi := tc.types.Builtins()
	switch b.Kind(id) {
	case ast.KindName:
		return tc.symbolType(tc.table.SymbolOf(id))
	case ast.KindConst:
		c, _ := b.Const(id)
		switch c.Kind {
		case ast.ConstInt:
			return bi.Int
		case ast.ConstFloat:
			return bi.Float
		case ast.ConstStr:
			return bi.Str
		case ast.ConstBool:
			return bi.Bool
		case ast.ConstNone:
			return bi.None
		}
		return bi.Unknown
	case ast.KindAttribute:
		return tc.attribute(id)
	case ast.KindSubscript:
		return tc.subscript(id)
	case ast.KindCall:
		return tc.call(id)
	case ast.KindKeyword:
		kw, _ := b.Keyword(id)
		return tc.of(kw.Value)
	case ast.KindUnary:
		return tc.unary(id)
	case ast.KindBinary:
		bin, _ := b.Binary(id)
		return tc.binary(id, bin.Op, tc.of(bin.Left), tc.of(bin.Right))
	case ast.KindBoolOp:
		bo, _ := b.BoolOp(id)
		return tc.joinAll(bo.Values)
	case ast.KindCompare:
		return bi.Bool
	case ast.KindIfExp:
		ie, _ := b.IfExp(id)
		return tc.join(tc.of(ie.Body), tc.of(ie.OrElse))
	case ast.KindLambda:
		return tc.env.sigs[id]
	case ast.KindList:
		seq, _ := b.Seq(id)
		return tc.types.List(tc.elemJoin(seq.Elts))
	case ast.KindSet:
		seq, _ := b.Seq(id)
		return tc.types.Set(tc.elemJoin(seq.Elts))
	case ast.KindTuple:
		seq, _ := b.Seq(id)
		elems := make([]types.TypeID, 0, len(seq.Elts))
		for _, e := range seq.Elts {
			if b.Kind(e) == ast.KindStarred {
				return bi.Unknown
			}
			elems = append(elems, tc.of(e))
		}
		return tc.types.Tuple(elems)
	case ast.KindDict:
		d, _ := b.Dict(id)
		var keys, values []ast.NodeID
		for i, k := range d.Keys {
			if !k.IsValid() {
				continue
			}
			keys = append(keys, k)
			values = append(values, d.Values[i])
		}
		return tc.types.Dict(tc.elemJoin(keys), tc.elemJoin(values))
	}
	// Starred, Yield, Bad
	return bi.Unknown
}

// elemJoin is the element type of a container display; an empty display
// gets a fresh variable that later uses pin down.
func (tc *typeChecker) elemJoin(elts []ast.NodeID) types.TypeID {
	if len(elts) == 0 {
		return tc.solver.fresh()
	}
	return tc.joinAll(elts)
}

func (tc *typeChecker) joinAll(ids []ast.NodeID) types.TypeID {
	if len(ids) == 0 {
		return tc.unknown()
	}
	t := tc.of(ids[0])
	for _, id := range ids[1:] {
		t = tc.join(t, tc.of(id))
	}
	return t
}

// join is the least type holding both values, or Unknown when the checker
// cannot name one. Variables are unified instead.
func (tc *typeChecker) join(a, b types.TypeID) types.TypeID {
	s := tc.solver
	a, b = s.prune(a), s.prune(b)
	if a == b {
		return a
	}
	if s.isVar(a) || s.isVar(b) {
		if err := s.unify(a, b); err != nil {
			tc.keep(err)
			return tc.unknown()
		}
		return a
	}
	if s.kind(a) == types.KindUnknown || s.kind(b) == types.KindUnknown {
		return tc.unknown()
	}
	if w, ok := tc.types.Wider(a, b); ok {
		return w
	}
	if tc.types.IsSubtype(a, b) {
		return b
	}
	if tc.types.IsSubtype(b, a) {
		return a
	}
	return tc.unknown()
}

// keep swallows a type error that has no diagnostic of its own and stops
// the unit on anything else.
func (tc *typeChecker) keep(err error) {
	var mm *mismatchError
	var inf *infiniteError
	if errors.As(err, &mm) || errors.As(err, &inf) {
		return
	}
	tc.err = err
}

func (tc *typeChecker) attribute(id ast.NodeID) types.TypeID {
	attr, _ := tc.builder.Attribute(id)
	name := tc.builder.Name(attr.Attr)
	v := tc.solver.prune(tc.of(attr.Value))
	tt, _ := tc.types.Lookup(v)
	switch tt.Kind {
	case types.KindModule:
		key, _ := tc.types.ModuleKey(v)
		if root, ok := tc.table.ModuleRoot(key); ok {
			if sym := tc.table.Lookup(root, name); sym.IsValid() {
				return tc.symbolType(sym)
			}
		}
		if _, ok := tc.table.ModuleRoot(key + "." + name); ok {
			return tc.types.Module(key + "." + name)
		}
	case types.KindInstance:
		m, owner, ok := tc.types.MemberOf(tt.Elem, name)
		if !ok {
			break
		}
		switch tc.env.kinds[owner][name] {
		case memberMethod, memberClassMethod:
			return tc.types.Bind(m)
		}
		return m
	case types.KindClass:
		m, owner, ok := tc.types.MemberOf(v, name)
		if !ok {
			break
		}
		if tc.env.kinds[owner][name] == memberClassMethod {
			return tc.types.Bind(m)
		}
		return m
	}
	return tc.unknown()
}

func (tc *typeChecker) subscript(id ast.NodeID) types.TypeID {
	sub, _ := tc.builder.Subscript(id)
	v := tc.solver.prune(tc.of(sub.Value))
	tt, _ := tc.types.Lookup(v)
	switch tt.Kind {
	case types.KindList:
		return tt.Elem
	case types.KindStr:
		return tc.types.Builtins().Str
	case types.KindDict:
		idx := tc.of(sub.Index)
		err := tc.solver.subtype(idx, tt.Key)
		tc.failure(err, sub.Index, diag.TypMismatch, func(got, want string) string {
			return fmt.Sprintf("dict key has type %s, expected %s", got, want)
		}, idx)
		return tt.Elem
	case types.KindTuple:
		info, _ := tc.types.TupleInfo(v)
		if c, ok := tc.builder.Const(sub.Index); ok && c.Kind == ast.ConstInt {
			if n, err := strconv.Atoi(tc.builder.Name(c.Raw)); err == nil && n < len(info.Elems) {
				return info.Elems[n]
			}
		}
		return tc.unknown()
	case types.KindInt, types.KindFloat, types.KindBool, types.KindNone, types.KindSet, types.KindModule:
		tc.fail(diag.TypNotIndexable, id, "value of type %s is not subscriptable", tc.solver.describe(v))
	}
	return tc.unknown()
}

// calleeName is how messages refer to the called function.
func (tc *typeChecker) calleeName(fn ast.NodeID) string {
	if name, ok := tc.builder.Ident(fn); ok {
		return strconv.Quote(name)
	}
	if attr, ok := tc.builder.Attribute(fn); ok {
		return strconv.Quote(tc.builder.Name(attr.Attr))
	}
	return "callee"
}

func (tc *typeChecker) call(id ast.NodeID) types.TypeID {
	c, _ := tc.builder.Call(id)
	f := tc.solver.prune(tc.of(c.Func))
	tt, _ := tc.types.Lookup(f)
	name := tc.calleeName(c.Func)
	switch tt.Kind {
	case types.KindFn:
		info, _ := tc.types.FnInfo(f)
		tc.checkArgs(id, c, info, name)
		return info.Result
	case types.KindClass:
		if init, owner, ok := tc.types.MemberOf(f, "__init__"); ok && tc.kindOf(init) == types.KindFn &&
			tc.env.kinds[owner]["__init__"] == memberMethod {
			info, _ := tc.types.FnInfo(tc.types.Bind(init))
			tc.checkArgs(id, c, info, name)
		}
		return tc.types.Instance(f)
	case types.KindInstance:
		m, owner, ok := tc.types.MemberOf(tt.Elem, "__call__")
		switch {
		case ok && tc.kindOf(m) == types.KindFn && tc.env.kinds[owner]["__call__"] == memberMethod:
			info, _ := tc.types.FnInfo(tc.types.Bind(m))
			tc.checkArgs(id, c, info, name)
			return info.Result
		case !ok && !tc.types.IsOpen(tt.Elem):
			tc.fail(diag.TypNotCallable, id, "%s of type %s is not callable", name, tc.solver.describe(f))
		}
	case types.KindInt, types.KindFloat, types.KindBool, types.KindStr, types.KindNone,
		types.KindList, types.KindDict, types.KindSet, types.KindTuple, types.KindModule:
		tc.fail(diag.TypNotCallable, id, "%s of type %s is not callable", name, tc.solver.describe(f))
	}
	return tc.unknown()
}

// checkArgs matches positional and keyword arguments against a signature.
// Calls that spread *args or **kwargs are only checked for the arguments
// they spell out.
func (tc *typeChecker) checkArgs(id ast.NodeID, c *ast.CallData, info types.FnInfo, name string) {
	b := tc.builder
	spread := false
	for _, a := range c.Args {
		if b.Kind(a) == ast.KindStarred {
			spread = true
		}
	}
	for _, k := range c.Keywords {
		if kw, ok := b.Keyword(k); ok && kw.Name == source.NoStringID {
			spread = true
		}
	}
	if !spread && !info.Variadic && len(c.Args) > len(info.Params) {
		tc.fail(diag.TypArity, id, "%s takes %d positional arguments but %d were given", name, len(info.Params), len(c.Args))
		return
	}
	bound := make([]bool, len(info.Params))
	for i, a := range c.Args {
		if b.Kind(a) == ast.KindStarred || i >= len(info.Params) {
			break
		}
		bound[i] = true
		tc.argument(a, info.Params[i], name)
	}
	for _, k := range c.Keywords {
		kw, ok := b.Keyword(k)
		if !ok || kw.Name == source.NoStringID {
			continue
		}
		kn := b.Name(kw.Name)
		j := -1
		for i, p := range info.Params {
			if p.Name == kn {
				j = i
				break
			}
		}
		switch {
		case j < 0 && !info.KwVariadic:
			tc.fail(diag.TypUnknownKeyword, k, "%s got an unexpected keyword argument %q", name, kn)
		case j < 0:
		case bound[j]:
			tc.fail(diag.TypArity, k, "%s got multiple values for argument %q", name, kn)
		default:
			bound[j] = true
			tc.argument(kw.Value, info.Params[j], name)
		}
	}
	if spread {
		return
	}
	var missing []string
	for i, p := range info.Params {
		if !bound[i] && !p.HasDefault {
			missing = append(missing, strconv.Quote(p.Name))
		}
	}
	if len(missing) > 0 {
		tc.fail(diag.TypArity, id, "%s missing required argument(s): %s", name, strings.Join(missing, ", "))
	}
}

func (tc *typeChecker) argument(arg ast.NodeID, p types.Param, fn string) {
	at := tc.of(arg)
	err := tc.solver.subtype(at, p.Type)
	tc.failure(err, arg, diag.TypMismatch, func(got, want string) string {
		return fmt.Sprintf("argument %q of %s has type %s, expected %s", p.Name, fn, got, want)
	}, at)
}

func (tc *typeChecker) unary(id ast.NodeID) types.TypeID {
	un, _ := tc.builder.Unary(id)
	bi := tc.types.Builtins()
	if un.Op == ast.OpNot {
		return bi.Bool
	}
	v := tc.solver.prune(tc.of(un.Operand))
	k := tc.types.Kind(v)
	switch {
	case opaque(k):
		return bi.Unknown
	case un.Op == ast.OpInvert && intish(k):
		return bi.Int
	case (un.Op == ast.OpNeg || un.Op == ast.OpPos) && k.IsNumeric():
		if k == types.KindBool {
			return bi.Int
		}
		return v
	}
	tc.fail(diag.TypBadOperand, id, "bad operand type for unary %s: %s", un.Op, tc.solver.describe(v))
	return bi.Unknown
}

// binary types an arithmetic or bitwise operation. Instances and unknown
// operands may overload operators, so they yield Unknown without a check.
func (tc *typeChecker) binary(id ast.NodeID, op ast.Op, l, r types.TypeID) types.TypeID {
	in := tc.types
	bi := in.Builtins()
	l, r = tc.solver.prune(l), tc.solver.prune(r)
	lk, rk := in.Kind(l), in.Kind(r)
	if opaque(lk) || opaque(rk) {
		return bi.Unknown
	}
	switch {
	case op.IsArithmetic():
		if w, ok := in.Wider(l, r); ok {
			if op == ast.OpDiv {
				return bi.Float
			}
			return w
		}
		switch {
		case op == ast.OpAdd && lk == types.KindStr && rk == types.KindStr:
			return bi.Str
		case op == ast.OpMul && lk == types.KindStr && intish(rk),
			op == ast.OpMul && rk == types.KindStr && intish(lk),
			op == ast.OpMod && lk == types.KindStr:
			return bi.Str
		case op == ast.OpAdd && lk == types.KindList && rk == types.KindList:
			return tc.sameContainer(id, op, l, r)
		case op == ast.OpMul && lk == types.KindList && intish(rk):
			return l
		case op == ast.OpMul && rk == types.KindList && intish(lk):
			return r
		case op == ast.OpSub && lk == types.KindSet && rk == types.KindSet:
			return tc.sameContainer(id, op, l, r)
		case op == ast.OpAdd && lk == types.KindTuple && rk == types.KindTuple:
			a, _ := in.TupleInfo(l)
			b, _ := in.TupleInfo(r)
			return in.Tuple(append(append([]types.TypeID(nil), a.Elems...), b.Elems...))
		}
	case op.IsBitwise():
		if intish(lk) && intish(rk) {
			if lk == types.KindBool && rk == types.KindBool && op != ast.OpLShift && op != ast.OpRShift {
				return bi.Bool
			}
			return bi.Int
		}
		if lk == types.KindSet && rk == types.KindSet && op != ast.OpLShift && op != ast.OpRShift {
			return tc.sameContainer(id, op, l, r)
		}
	}
	tc.fail(diag.TypBadOperand, id, "unsupported operand types for %s: %s and %s", op, tc.solver.describe(l), tc.solver.describe(r))
	return bi.Unknown
}

// sameContainer requires both operands to hold the same element type.
func (tc *typeChecker) sameContainer(id ast.NodeID, op ast.Op, l, r types.TypeID) types.TypeID {
	err := tc.solver.unify(l, r)
	if tc.failure(err, id, diag.TypBadOperand, func(got, want string) string {
		return fmt.Sprintf("unsupported operand types for %s: %s and %s", op, got, want)
	}, l, r) {
		return tc.unknown()
	}
	return l
}
