package sema

import (
	"strings"

	"codescope/internal/ast"
	"codescope/internal/source"
	"codescope/internal/symbols"
	"codescope/internal/types"
)

// methodKind tells how a class member binds when read through an instance
// or the class.
type methodKind uint8

const (
	memberPlain methodKind = iota
	memberMethod
	memberStatic
	memberClassMethod
	memberProperty
)

// env is the program-wide typing state. It is written while signatures are
// collected and by the sequential module pass; the parallel function pass
// only reads it.
type env struct {
	builder *ast.Builder
	table   *symbols.Table
	types   *types.Interner

	sigs     map[ast.NodeID]types.TypeID // FunctionDef and Lambda signatures
	classes  map[ast.NodeID]types.TypeID // ClassDef -> class type
	globals  map[symbols.SymbolID]types.TypeID
	kinds    map[types.TypeID]map[string]methodKind
	opaque   map[ast.NodeID]bool // decorated by something we cannot model
	funcs    []ast.NodeID        // FunctionDef and Lambda nodes in pre-order
	builtins map[string]types.TypeID
}

func newEnv(b *ast.Builder, table *symbols.Table, in *types.Interner) *env {
	return &env{
		builder:  b,
		table:    table,
		types:    in,
		sigs:     make(map[ast.NodeID]types.TypeID),
		classes:  make(map[ast.NodeID]types.TypeID),
		globals:  make(map[symbols.SymbolID]types.TypeID),
		kinds:    make(map[types.TypeID]map[string]methodKind),
		opaque:   make(map[ast.NodeID]bool),
		builtins: builtinTypes(in),
	}
}

// collect registers every class, then every function signature, then
// class bases and members. Signatures are immutable afterwards.
func (e *env) collect(roots []ast.NodeID) {
	var classNodes []ast.NodeID
	for _, root := range roots {
		e.builder.Walk(root, func(id ast.NodeID) bool {
			switch e.builder.Kind(id) {
			case ast.KindClassDef:
				classNodes = append(classNodes, id)
				cls, _ := e.builder.Class(id)
				decl := uint32(e.table.SymbolOf(id))
				e.classes[id] = e.types.NewClass(e.builder.Name(cls.Name), decl)
			case ast.KindFunctionDef, ast.KindLambda:
				e.funcs = append(e.funcs, id)
			}
			return true
		})
	}
	for _, fn := range e.funcs {
		e.sigs[fn] = e.signature(fn)
		if cls := e.enclosingClass(fn); cls.IsValid() {
			kind, _ := e.memberKindOf(fn)
			e.selfType(fn, cls, kind)
		}
	}
	for _, id := range classNodes {
		e.layout(id)
	}
}

// decoratorName returns the plain name of a decorator expression.
func (e *env) decoratorName(dec ast.NodeID) string {
	if e.builder.Kind(dec) == ast.KindCall {
		call, _ := e.builder.Call(dec)
		dec = call.Func
	}
	if name, ok := e.builder.Ident(dec); ok {
		return name
	}
	if attr, ok := e.builder.Attribute(dec); ok {
		return e.builder.Name(attr.Attr)
	}
	return ""
}

// memberKindOf classifies a def by its decorators. Unknown decorators make
// the binding opaque.
func (e *env) memberKindOf(fn ast.NodeID) (methodKind, bool) {
	d, _ := e.builder.Func(fn)
	kind := memberMethod
	opaque := false
	for _, dec := range d.Decorators {
		switch e.decoratorName(dec) {
		case "staticmethod":
			kind = memberStatic
		case "classmethod":
			kind = memberClassMethod
		case "property", "cached_property":
			kind = memberProperty
		case "wraps", "abstractmethod", "override":
		default:
			opaque = true
		}
	}
	return kind, opaque
}

// enclosingClass returns the class whose body directly holds fn.
func (e *env) enclosingClass(fn ast.NodeID) ast.NodeID {
	if e.builder.Kind(fn) != ast.KindFunctionDef {
		return ast.NoNodeID
	}
	parent := e.builder.Parent(fn)
	if e.builder.Kind(parent) == ast.KindClassDef {
		return parent
	}
	return ast.NoNodeID
}

func (e *env) signature(fn ast.NodeID) types.TypeID {
	unknown := e.types.Builtins().Unknown
	var info types.FnInfo
	var params []ast.NodeID
	if e.builder.Kind(fn) == ast.KindLambda {
		lam, _ := e.builder.Lambda(fn)
		params = lam.Params
		info.Result = unknown
	} else {
		d, _ := e.builder.Func(fn)
		params = d.Params
		info.Result = unknown
		if d.Returns.IsValid() {
			info.Result = e.annotation(d.Returns)
		}
		_, opaque := e.memberKindOf(fn)
		e.opaque[fn] = opaque
	}
	for _, p := range params {
		pd, ok := e.builder.Param(p)
		if !ok {
			continue
		}
		switch pd.Kind {
		case ast.ParamVarArgs:
			info.Variadic = true
			continue
		case ast.ParamKwArgs:
			info.KwVariadic = true
			continue
		}
		t := unknown
		if pd.Annotation.IsValid() {
			t = e.annotation(pd.Annotation)
		}
		info.Params = append(info.Params, types.Param{
			Name:       e.builder.Name(pd.Name),
			Type:       t,
			HasDefault: pd.Default.IsValid(),
		})
	}
	return e.types.Fn(info)
}

// selfType gives the unannotated first parameter of a method its receiver
// type once the signature has been interned.
func (e *env) selfType(fn, cls ast.NodeID, kind methodKind) {
	info, ok := e.types.FnInfo(e.sigs[fn])
	if !ok || len(info.Params) == 0 || kind == memberStatic {
		return
	}
	d, _ := e.builder.Func(fn)
	if first, ok := e.builder.Param(d.Params[0]); !ok || first.Annotation.IsValid() || first.Kind != ast.ParamNormal {
		return
	}
	recv := e.types.Instance(e.classes[cls])
	if kind == memberClassMethod {
		recv = e.classes[cls]
	}
	params := append([]types.Param(nil), info.Params...)
	params[0].Type = recv
	info.Params = params
	e.sigs[fn] = e.types.Fn(info)
}

// layout fills in class bases and the members visible from the class body:
// methods, class-level assignments and attributes assigned through self.
func (e *env) layout(id ast.NodeID) {
	cls, _ := e.builder.Class(id)
	unknown := e.types.Builtins().Unknown
	ct := e.classes[id]

	bases := make([]types.TypeID, 0, len(cls.Bases))
	for _, base := range cls.Bases {
		bt, ok := e.classType(e.classSymbol(base))
		if !ok {
			bt = unknown
		}
		bases = append(bases, bt)
	}

	members := make(map[string]types.TypeID)
	kinds := make(map[string]methodKind)
	setAttr := func(name string, t types.TypeID) {
		if _, taken := members[name]; !taken {
			members[name] = t
			kinds[name] = memberPlain
		}
	}
	for _, stmt := range cls.Body {
		switch e.builder.Kind(stmt) {
		case ast.KindFunctionDef:
			d, _ := e.builder.Func(stmt)
			name := e.builder.Name(d.Name)
			kind, _ := e.memberKindOf(stmt)
			members[name] = e.memberValue(stmt, kind)
			kinds[name] = kind
		case ast.KindAnnAssign:
			aa, _ := e.builder.AnnAssign(stmt)
			if name, ok := e.builder.Ident(aa.Target); ok {
				members[name] = e.annotation(aa.Annotation)
				kinds[name] = memberPlain
			}
		case ast.KindAssign:
			as, _ := e.builder.Assign(stmt)
			for _, target := range as.Targets {
				if name, ok := e.builder.Ident(target); ok {
					setAttr(name, unknown)
				}
			}
		case ast.KindClassDef:
			inner, _ := e.builder.Class(stmt)
			members[e.builder.Name(inner.Name)] = e.classes[stmt]
			kinds[e.builder.Name(inner.Name)] = memberPlain
		}
	}
	// self.x = ... inside methods
	for _, stmt := range cls.Body {
		if e.builder.Kind(stmt) != ast.KindFunctionDef {
			continue
		}
		d, _ := e.builder.Func(stmt)
		if len(d.Params) == 0 {
			continue
		}
		first, ok := e.builder.Param(d.Params[0])
		if !ok {
			continue
		}
		self := first.Name
		e.builder.WalkLocal(stmt, func(n ast.NodeID) bool {
			var target, ann ast.NodeID
			switch e.builder.Kind(n) {
			case ast.KindAnnAssign:
				aa, _ := e.builder.AnnAssign(n)
				target, ann = aa.Target, aa.Annotation
			case ast.KindAssign:
				as, _ := e.builder.Assign(n)
				for _, t := range as.Targets {
					if name, ok := e.selfAttr(t, self); ok {
						setAttr(name, unknown)
					}
				}
				return true
			default:
				return true
			}
			if name, ok := e.selfAttr(target, self); ok {
				if _, taken := members[name]; !taken || kinds[name] == memberPlain {
					members[name] = e.annotation(ann)
					kinds[name] = memberPlain
				}
			}
			return true
		})
	}
	e.types.SetClass(ct, bases, members)
	e.kinds[ct] = kinds
}

func (e *env) memberValue(fn ast.NodeID, kind methodKind) types.TypeID {
	if e.opaque[fn] {
		return e.types.Builtins().Unknown
	}
	if kind == memberProperty {
		info, _ := e.types.FnInfo(e.sigs[fn])
		return info.Result
	}
	return e.sigs[fn]
}

func (e *env) selfAttr(target ast.NodeID, self source.StringID) (string, bool) {
	attr, ok := e.builder.Attribute(target)
	if !ok {
		return "", false
	}
	name, ok := e.builder.NameOf(attr.Value)
	if !ok || name.Name != self {
		return "", false
	}
	return e.builder.Name(attr.Attr), true
}

// classSymbol returns the class symbol a Name or module attribute refers
// to, or NoSymbolID.
func (e *env) classSymbol(expr ast.NodeID) symbols.SymbolID {
	var sym symbols.SymbolID
	switch e.builder.Kind(expr) {
	case ast.KindName:
		sym = e.table.Final(e.table.SymbolOf(expr))
	case ast.KindAttribute:
		attr, _ := e.builder.Attribute(expr)
		mod := e.table.Final(e.table.SymbolOf(attr.Value))
		ms := e.table.Symbol(mod)
		if ms == nil || ms.TargetModule == "" {
			return symbols.NoSymbolID
		}
		root, ok := e.table.ModuleRoot(ms.TargetModule)
		if !ok {
			return symbols.NoSymbolID
		}
		sym = e.table.Final(e.table.Lookup(root, e.builder.Name(attr.Attr)))
	default:
		return symbols.NoSymbolID
	}
	if s := e.table.Symbol(sym); s != nil && s.Kind == symbols.SymbolClass {
		return sym
	}
	return symbols.NoSymbolID
}

// classType returns the class type declared by a class symbol.
func (e *env) classType(sym symbols.SymbolID) (types.TypeID, bool) {
	s := e.table.Symbol(sym)
	if s == nil || s.Kind != symbols.SymbolClass {
		return types.NoTypeID, false
	}
	t, ok := e.classes[s.Decl]
	return t, ok
}

// functionValue is the type of a def read as a value.
func (e *env) functionValue(fn ast.NodeID) types.TypeID {
	if e.opaque[fn] {
		return e.types.Builtins().Unknown
	}
	if t, ok := e.sigs[fn]; ok {
		return t
	}
	return e.types.Builtins().Unknown
}

// annotation maps an annotation expression to a type. Anything outside the
// supported forms is Unknown; Optional[T] is Unknown as well.
func (e *env) annotation(expr ast.NodeID) types.TypeID {
	in := e.types
	bi := in.Builtins()
	b := e.builder
	switch b.Kind(expr) {
	case ast.KindConst:
		c, _ := b.Const(expr)
		switch c.Kind {
		case ast.ConstNone:
			return bi.None
		case ast.ConstStr:
			// forward reference: "ClassName"
			text := strings.Trim(b.Name(c.Raw), `"'`)
			return e.namedAnnotation(expr, text)
		}
		return bi.Unknown
	case ast.KindName:
		if cls, ok := e.classType(e.classSymbol(expr)); ok {
			return in.Instance(cls)
		}
		name, _ := b.Ident(expr)
		return e.plainAnnotation(name)
	case ast.KindAttribute:
		if cls, ok := e.classType(e.classSymbol(expr)); ok {
			return in.Instance(cls)
		}
		attr, _ := b.Attribute(expr)
		return e.plainAnnotation(b.Name(attr.Attr))
	case ast.KindSubscript:
		sub, _ := b.Subscript(expr)
		var base string
		if name, ok := b.Ident(sub.Value); ok {
			base = name
		} else if attr, ok := b.Attribute(sub.Value); ok {
			base = b.Name(attr.Attr)
		}
		args := []ast.NodeID{sub.Index}
		if seq, ok := b.Seq(sub.Index); ok && b.Kind(sub.Index) == ast.KindTuple {
			args = seq.Elts
		}
		switch base {
		case "list", "List":
			if len(args) == 1 {
				return in.List(e.annotation(args[0]))
			}
		case "set", "Set", "frozenset", "FrozenSet":
			if len(args) == 1 {
				return in.Set(e.annotation(args[0]))
			}
		case "dict", "Dict":
			if len(args) == 2 {
				return in.Dict(e.annotation(args[0]), e.annotation(args[1]))
			}
		case "tuple", "Tuple":
			elems := make([]types.TypeID, 0, len(args))
			for _, a := range args {
				if c, ok := b.Const(a); ok && c.Kind == ast.ConstEllipsis {
					return bi.Unknown
				}
				elems = append(elems, e.annotation(a))
			}
			return in.Tuple(elems)
		}
		return bi.Unknown
	}
	return bi.Unknown
}

// namedAnnotation resolves a string annotation in the module of at.
func (e *env) namedAnnotation(at ast.NodeID, name string) types.TypeID {
	root := e.table.ScopeOf(e.builder.ModuleOf(at))
	if cls, ok := e.classType(e.table.Final(e.table.Lookup(root, name))); ok {
		return e.types.Instance(cls)
	}
	return e.plainAnnotation(name)
}

func (e *env) plainAnnotation(name string) types.TypeID {
	in := e.types
	bi := in.Builtins()
	switch name {
	case "int":
		return bi.Int
	case "float":
		return bi.Float
	case "str":
		return bi.Str
	case "bool":
		return bi.Bool
	case "None":
		return bi.None
	case "list", "List":
		return in.List(bi.Unknown)
	case "dict", "Dict":
		return in.Dict(bi.Unknown, bi.Unknown)
	case "set", "Set":
		return in.Set(bi.Unknown)
	}
	return bi.Unknown
}
