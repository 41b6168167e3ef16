package ast

// Children returns the direct children of id in source order. The switch is
// exhaustive over Kind; NoNodeID entries are filtered out.
func (b *Builder) Children(id NodeID) []NodeID {
	n := b.Get(id)
	if n == nil {
		return nil
	}
	var out []NodeID
	switch n.Kind {
	case KindBad, KindBreak, KindContinue, KindPass, KindGlobal, KindNonlocal,
		KindName, KindConst, KindAlias:
		return nil
	case KindModule:
		out = b.modules.Get(n.Payload).Body
	case KindExprStmt, KindReturn, KindYield:
		out = []NodeID{b.values.Get(n.Payload).Value}
	case KindAssign:
		d := b.assigns.Get(n.Payload)
		out = cat(d.Targets, []NodeID{d.Value})
	case KindAnnAssign:
		d := b.annAssign.Get(n.Payload)
		out = []NodeID{d.Target, d.Annotation, d.Value}
	case KindAugAssign:
		d := b.augAssign.Get(n.Payload)
		out = []NodeID{d.Target, d.Value}
	case KindIf, KindWhile:
		d := b.conds.Get(n.Payload)
		out = cat([]NodeID{d.Test}, d.Body, d.Else)
	case KindFor:
		d := b.fors.Get(n.Payload)
		out = cat([]NodeID{d.Target, d.Iter}, d.Body, d.Else)
	case KindRaise:
		d := b.raises.Get(n.Payload)
		out = []NodeID{d.Exc, d.Cause}
	case KindAssert:
		d := b.asserts.Get(n.Payload)
		out = []NodeID{d.Test, d.Msg}
	case KindTry:
		d := b.tries.Get(n.Payload)
		out = cat(d.Body, d.Handlers, d.Else, d.Finally)
	case KindExceptHandler:
		d := b.handlers.Get(n.Payload)
		out = cat([]NodeID{d.Type}, d.Body)
	case KindWith:
		d := b.withs.Get(n.Payload)
		out = cat([]NodeID{d.Context, d.Target}, d.Body)
	case KindFunctionDef:
		d := b.funcs.Get(n.Payload)
		out = cat(d.Decorators, d.Params, []NodeID{d.Returns}, d.Body)
	case KindParam:
		d := b.params.Get(n.Payload)
		out = []NodeID{d.Annotation, d.Default}
	case KindClassDef:
		d := b.classes.Get(n.Payload)
		out = cat(d.Decorators, d.Bases, d.Keywords, d.Body)
	case KindImport, KindImportFrom:
		out = b.imports.Get(n.Payload).Names
	case KindDel:
		out = b.targets.Get(n.Payload).Targets
	case KindAttribute:
		out = []NodeID{b.attributes.Get(n.Payload).Value}
	case KindSubscript:
		d := b.subscripts.Get(n.Payload)
		out = []NodeID{d.Value, d.Index}
	case KindCall:
		d := b.calls.Get(n.Payload)
		out = cat([]NodeID{d.Func}, d.Args, d.Keywords)
	case KindKeyword:
		out = []NodeID{b.keywords.Get(n.Payload).Value}
	case KindUnary, KindStarred:
		out = []NodeID{b.unaries.Get(n.Payload).Operand}
	case KindBinary:
		d := b.binaries.Get(n.Payload)
		out = []NodeID{d.Left, d.Right}
	case KindBoolOp:
		out = b.boolOps.Get(n.Payload).Values
	case KindCompare:
		d := b.compares.Get(n.Payload)
		out = cat([]NodeID{d.Left}, d.Comparators)
	case KindIfExp:
		d := b.ifExps.Get(n.Payload)
		out = []NodeID{d.Body, d.Test, d.OrElse}
	case KindLambda:
		d := b.lambdas.Get(n.Payload)
		out = cat(d.Params, []NodeID{d.Body})
	case KindList, KindTuple, KindSet:
		out = b.seqs.Get(n.Payload).Elts
	case KindDict:
		d := b.dicts.Get(n.Payload)
		out = make([]NodeID, 0, 2*len(d.Values))
		for i := range d.Values {
			if i < len(d.Keys) {
				out = append(out, d.Keys[i])
			}
			out = append(out, d.Values[i])
		}
	default:
		panic("ast: unhandled kind " + n.Kind.String())
	}
	filtered := make([]NodeID, 0, len(out))
	for _, c := range out {
		if c.IsValid() {
			filtered = append(filtered, c)
		}
	}
	return filtered
}

// Walk visits root and its descendants in pre-order using an explicit stack.
// Returning false from visit skips the children of that node.
func (b *Builder) Walk(root NodeID, visit func(id NodeID) bool) {
	stack := []NodeID{root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !id.IsValid() || !visit(id) {
			continue
		}
		kids := b.Children(id)
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, kids[i])
		}
	}
}

// WalkLocal walks the body of a function-like root without descending into
// nested function, lambda or class bodies; the nested declaration nodes
// themselves are still visited, and so are their decorators, defaults and
// bases, which run in the enclosing scope.
func (b *Builder) WalkLocal(root NodeID, visit func(id NodeID) bool) {
	b.Walk(root, func(id NodeID) bool {
		if !visit(id) {
			return false
		}
		if id == root {
			return true
		}
		switch b.Kind(id) {
		case KindFunctionDef:
			d, _ := b.Func(id)
			for _, dec := range d.Decorators {
				b.WalkLocal(dec, visit)
			}
			for _, p := range d.Params {
				if pd, ok := b.Param(p); ok && pd.Default.IsValid() {
					b.WalkLocal(pd.Default, visit)
				}
			}
			return false
		case KindLambda:
			d, _ := b.Lambda(id)
			for _, p := range d.Params {
				if pd, ok := b.Param(p); ok && pd.Default.IsValid() {
					b.WalkLocal(pd.Default, visit)
				}
			}
			return false
		}
		return true
	})
}

// Body returns the statement list of a function-like node; for a lambda it is
// the single body expression.
func (b *Builder) Body(id NodeID) []NodeID {
	switch b.Kind(id) {
	case KindModule:
		d, _ := b.Module(id)
		return d.Body
	case KindFunctionDef:
		d, _ := b.Func(id)
		return d.Body
	case KindLambda:
		d, _ := b.Lambda(id)
		return []NodeID{d.Body}
	case KindClassDef:
		d, _ := b.Class(id)
		return d.Body
	}
	return nil
}

// EnclosingFunction returns the innermost function-like ancestor of id
// (module, def or lambda). A def is its own enclosing function only for
// nodes inside its body; callers pass the node itself.
func (b *Builder) EnclosingFunction(id NodeID) NodeID {
	for cur := b.Parent(id); cur.IsValid(); cur = b.Parent(cur) {
		if b.Kind(cur).IsFunctionLike() {
			return cur
		}
	}
	return NoNodeID
}

// ModuleOf returns the module root that owns id.
func (b *Builder) ModuleOf(id NodeID) NodeID {
	cur := id
	for {
		n := b.Get(cur)
		if n == nil {
			return NoNodeID
		}
		if n.Kind == KindModule {
			return cur
		}
		cur = n.Parent
	}
}

// FuncName returns a display name for a function-like node.
func (b *Builder) FuncName(id NodeID) string {
	switch b.Kind(id) {
	case KindModule:
		return "<module>"
	case KindFunctionDef:
		d, _ := b.Func(id)
		return b.Name(d.Name)
	case KindLambda:
		return "<lambda>"
	case KindClassDef:
		d, _ := b.Class(id)
		return b.Name(d.Name)
	}
	return "<?>"
}

// QualifiedName joins enclosing class and function names, e.g. "Shape.area".
func (b *Builder) QualifiedName(id NodeID) string {
	name := b.FuncName(id)
	if b.Kind(id) == KindModule {
		return name
	}
	for cur := b.Parent(id); cur.IsValid(); cur = b.Parent(cur) {
		switch b.Kind(cur) {
		case KindFunctionDef, KindClassDef:
			name = b.FuncName(cur) + "." + name
		case KindLambda:
			name = "<lambda>." + name
		}
	}
	return name
}
