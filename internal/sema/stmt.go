package sema

import (
	"fmt"
	"slices"

	"codescope/internal/ast"
	"codescope/internal/diag"
	"codescope/internal/symbols"
	"codescope/internal/types"
)

// stmts checks a statement list in source order. Compound statements push
// their suites onto the same stack, so class bodies run inline.
func (tc *typeChecker) stmts(body []ast.NodeID) {
	b := tc.builder
	stack := make([]ast.NodeID, 0, len(body)+8)
	push := func(list []ast.NodeID) {
		for i := len(list) - 1; i >= 0; i-- {
			stack = append(stack, list[i])
		}
	}
	push(body)
	for len(stack) > 0 && !tc.stopped() {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		switch b.Kind(id) {
		case ast.KindExprStmt, ast.KindYield:
			v, _ := b.Value(id)
			tc.expr(v.Value)
		case ast.KindReturn:
			tc.ret(id)
		case ast.KindAssign:
			as, _ := b.Assign(id)
			vt := tc.expr(as.Value)
			for _, target := range as.Targets {
				tc.assign(target, vt, id)
			}
		case ast.KindAnnAssign:
			tc.annAssign(id)
		case ast.KindAugAssign:
			tc.augAssign(id)
		case ast.KindIf, ast.KindWhile:
			c, _ := b.Cond(id)
			tc.expr(c.Test)
			push(slices.Concat(c.Body, c.Else))
		case ast.KindFor:
			f, _ := b.For(id)
			el := tc.iterElem(tc.expr(f.Iter), f.Iter)
			tc.assign(f.Target, el, id)
			push(slices.Concat(f.Body, f.Else))
		case ast.KindRaise:
			r, _ := b.Raise(id)
			tc.expr(r.Exc)
			tc.expr(r.Cause)
		case ast.KindAssert:
			a, _ := b.Assert(id)
			tc.expr(a.Test)
			tc.expr(a.Msg)
		case ast.KindTry:
			t, _ := b.Try(id)
			push(slices.Concat(t.Body, t.Handlers, t.Else, t.Finally))
		case ast.KindExceptHandler:
			h, _ := b.Handler(id)
			ht := tc.expr(h.Type)
			if sym := tc.table.SymbolOf(id); sym.IsValid() && tc.isLocal(sym) {
				tc.bindLoose(sym, tc.exceptionType(ht))
			}
			push(h.Body)
		case ast.KindWith:
			w, _ := b.With(id)
			tc.expr(w.Context)
			if w.Target.IsValid() {
				tc.assign(w.Target, tc.unknown(), id)
			}
			push(w.Body)
		case ast.KindFunctionDef:
			tc.defHeader(id)
		case ast.KindClassDef:
			cls, _ := b.Class(id)
			for _, part := range slices.Concat(cls.Decorators, cls.Bases, cls.Keywords) {
				tc.expr(part)
			}
			push(cls.Body)
		case ast.KindDel:
			d, _ := b.Del(id)
			for _, target := range d.Targets {
				if b.Kind(target) != ast.KindName {
					tc.expr(target)
				}
			}
		}
	}
}

func (tc *typeChecker) ret(id ast.NodeID) {
	v, _ := tc.builder.Value(id)
	vt := tc.types.Builtins().None
	if v.Value.IsValid() {
		vt = tc.expr(v.Value)
	}
	if tc.result == types.NoTypeID || tc.stopped() {
		return
	}
	err := tc.solver.subtype(vt, tc.result)
	tc.failure(err, id, diag.TypBadReturn, func(got, want string) string {
		return fmt.Sprintf("return value has type %s, expected %s", got, want)
	}, vt)
}

// annAssign requires the value to be a subtype of the declared type. The
// diagnostic sits on the statement.
func (tc *typeChecker) annAssign(id ast.NodeID) {
	aa, _ := tc.builder.AnnAssign(id)
	declared := tc.env.annotation(aa.Annotation)
	tc.exprs[aa.Target] = declared
	if !aa.Value.IsValid() {
		return
	}
	vt := tc.expr(aa.Value)
	target := "target"
	switch tc.builder.Kind(aa.Target) {
	case ast.KindName:
		name, _ := tc.builder.Ident(aa.Target)
		target = fmt.Sprintf("%q", name)
		if sym := tc.table.SymbolOf(aa.Target); sym.IsValid() && tc.isLocal(sym) {
			tc.local(sym)
		}
	case ast.KindAttribute:
		attr, _ := tc.builder.Attribute(aa.Target)
		tc.expr(attr.Value)
		target = fmt.Sprintf("%q", tc.builder.Name(attr.Attr))
	default:
		tc.expr(aa.Target)
	}
	if tc.stopped() {
		return
	}
	err := tc.solver.subtype(vt, declared)
	tc.failure(err, id, diag.TypMismatch, func(got, want string) string {
		return fmt.Sprintf("cannot assign value of type %s to %s declared as %s", got, target, want)
	}, vt)
}

func (tc *typeChecker) augAssign(id ast.NodeID) {
	au, _ := tc.builder.AugAssign(id)
	var cur types.TypeID
	if tc.builder.Kind(au.Target) == ast.KindName {
		cur = tc.symbolType(tc.table.SymbolOf(au.Target))
		tc.exprs[au.Target] = cur
	} else {
		cur = tc.expr(au.Target)
	}
	vt := tc.expr(au.Value)
	if tc.stopped() {
		return
	}
	res := tc.binary(id, au.Op, cur, vt)
	if tc.builder.Kind(au.Target) != ast.KindName {
		return
	}
	err := tc.solver.subtype(res, cur)
	tc.failure(err, id, diag.TypMismatch, func(got, want string) string {
		return fmt.Sprintf("result of %s= has type %s, expected %s", au.Op, got, want)
	}, res)
}

// assign binds a value type to an assignment target. Unannotated locals are
// unified with the value; annotated ones and parameters take subtypes.
func (tc *typeChecker) assign(target ast.NodeID, vt types.TypeID, stmt ast.NodeID) {
	if tc.stopped() {
		return
	}
	b := tc.builder
	switch b.Kind(target) {
	case ast.KindName:
		tc.exprs[target] = vt
		tc.assignName(target, vt, stmt)
	case ast.KindTuple, ast.KindList:
		seq, _ := b.Seq(target)
		parts := tc.unpack(vt, seq.Elts, stmt)
		for i, elt := range seq.Elts {
			tc.assign(elt, parts[i], stmt)
		}
	case ast.KindStarred:
		un, _ := b.Unary(target)
		tc.assign(un.Operand, tc.unknown(), stmt)
	case ast.KindSubscript:
		sub, _ := b.Subscript(target)
		ct := tc.solver.prune(tc.expr(sub.Value))
		it := tc.expr(sub.Index)
		tt, _ := tc.types.Lookup(ct)
		switch tt.Kind {
		case types.KindList:
			tc.store(vt, tt.Elem, stmt)
		case types.KindDict:
			err := tc.solver.subtype(it, tt.Key)
			tc.failure(err, sub.Index, diag.TypMismatch, func(got, want string) string {
				return fmt.Sprintf("dict key has type %s, expected %s", got, want)
			}, it)
			tc.store(vt, tt.Elem, stmt)
		case types.KindStr, types.KindTuple:
			tc.fail(diag.TypMismatch, stmt, "value of type %s does not support item assignment", tc.solver.describe(ct))
		}
	case ast.KindAttribute:
		attr, _ := b.Attribute(target)
		tc.expr(attr.Value)
	}
}

func (tc *typeChecker) store(vt, elem types.TypeID, stmt ast.NodeID) {
	err := tc.solver.subtype(vt, elem)
	tc.failure(err, stmt, diag.TypMismatch, func(got, want string) string {
		return fmt.Sprintf("cannot store value of type %s in a container of %s", got, want)
	}, vt)
}

func (tc *typeChecker) assignName(target ast.NodeID, vt types.TypeID, stmt ast.NodeID) {
	id := tc.table.SymbolOf(target)
	sym := tc.table.Symbol(id)
	if sym == nil {
		return
	}
	switch sym.Kind {
	case symbols.SymbolVariable, symbols.SymbolParam:
	default:
		return
	}
	name := tc.table.NameOf(id)
	if !tc.isLocal(id) {
		// global or nonlocal rebinding
		gt, ok := tc.env.globals[id]
		if !ok {
			return
		}
		err := tc.solver.subtype(vt, gt)
		tc.failure(err, stmt, diag.TypMismatch, func(got, want string) string {
			return fmt.Sprintf("cannot assign value of type %s to global %q of type %s", got, name, want)
		}, vt)
		return
	}
	lt := tc.local(id)
	if sym.Annotation.IsValid() || sym.Kind == symbols.SymbolParam {
		err := tc.solver.subtype(vt, lt)
		tc.failure(err, stmt, diag.TypMismatch, func(got, want string) string {
			return fmt.Sprintf("cannot assign value of type %s to %q declared as %s", got, name, want)
		}, vt)
		return
	}
	err := tc.solver.unify(vt, lt)
	tc.failure(err, stmt, diag.TypMismatch, func(got, want string) string {
		return fmt.Sprintf("cannot assign value of type %s to %q of type %s", got, name, want)
	}, vt, lt)
}

// unpack splits a value over tuple or list targets.
func (tc *typeChecker) unpack(vt types.TypeID, elts []ast.NodeID, stmt ast.NodeID) []types.TypeID {
	n := len(elts)
	parts := make([]types.TypeID, n)
	fill := func(t types.TypeID) []types.TypeID {
		for i := range parts {
			parts[i] = t
		}
		return parts
	}
	for _, e := range elts {
		if tc.builder.Kind(e) == ast.KindStarred {
			return fill(tc.unknown())
		}
	}
	v := tc.solver.prune(vt)
	tt, _ := tc.types.Lookup(v)
	switch tt.Kind {
	case types.KindTuple:
		info, _ := tc.types.TupleInfo(v)
		if len(info.Elems) == n {
			copy(parts, info.Elems)
			return parts
		}
		tc.fail(diag.TypMismatch, stmt, "cannot unpack %s into %d targets", tc.solver.describe(v), n)
	case types.KindList, types.KindSet:
		return fill(tt.Elem)
	case types.KindStr:
		return fill(v)
	case types.KindVar:
		for i := range parts {
			parts[i] = tc.solver.fresh()
		}
		tc.keep(tc.solver.unify(v, tc.types.Tuple(parts)))
		return parts
	}
	return fill(tc.unknown())
}

// iterElem is the type a for loop binds per iteration.
func (tc *typeChecker) iterElem(it types.TypeID, node ast.NodeID) types.TypeID {
	v := tc.solver.prune(it)
	tt, _ := tc.types.Lookup(v)
	switch tt.Kind {
	case types.KindList, types.KindSet:
		return tt.Elem
	case types.KindDict:
		return tt.Key
	case types.KindStr:
		return v
	case types.KindTuple:
		info, _ := tc.types.TupleInfo(v)
		if len(info.Elems) == 0 {
			return tc.unknown()
		}
		t := info.Elems[0]
		for _, e := range info.Elems[1:] {
			t = tc.join(t, e)
		}
		return t
	case types.KindInt, types.KindFloat, types.KindBool, types.KindNone, types.KindModule:
		if !tc.stopped() {
			tc.fail(diag.TypNotIterable, node, "value of type %s is not iterable", tc.solver.describe(v))
		}
	}
	return tc.unknown()
}

// exceptionType is the type bound by `except E as e`.
func (tc *typeChecker) exceptionType(ht types.TypeID) types.TypeID {
	v := tc.solver.prune(ht)
	if tc.types.Kind(v) == types.KindClass {
		return tc.types.Instance(v)
	}
	return tc.unknown()
}

// bindLoose gives a variable a type only while nothing else has; several
// handlers may bind the same name to unrelated exceptions.
func (tc *typeChecker) bindLoose(id symbols.SymbolID, t types.TypeID) {
	lt := tc.solver.prune(tc.local(id))
	if tc.solver.isVar(lt) {
		tc.keep(tc.solver.unify(lt, t))
	}
}

// defHeader checks the parts of a nested def evaluated where it is
// declared: decorators and parameter defaults.
func (tc *typeChecker) defHeader(id ast.NodeID) {
	d, _ := tc.builder.Func(id)
	for _, dec := range d.Decorators {
		tc.expr(dec)
	}
	for _, p := range d.Params {
		pd, ok := tc.builder.Param(p)
		if !ok || !pd.Default.IsValid() {
			continue
		}
		dt := tc.expr(pd.Default)
		if !pd.Annotation.IsValid() || tc.stopped() {
			continue
		}
		want := tc.env.annotation(pd.Annotation)
		name := tc.builder.Name(pd.Name)
		err := tc.solver.subtype(dt, want)
		tc.failure(err, pd.Default, diag.TypMismatch, func(got, want string) string {
			return fmt.Sprintf("default for %q has type %s, expected %s", name, got, want)
		}, dt)
	}
}
