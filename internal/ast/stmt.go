package ast

import (
	"codescope/internal/source"
)

type ModuleData struct {
	File source.FileID
	Key  source.StringID // dotted module key
	Body []NodeID
}

// ValueData backs ExprStmt, Return and Yield; Value may be NoNodeID for a
// bare return or yield.
type ValueData struct {
	Value NodeID
}

type AssignData struct {
	Targets []NodeID
	Value   NodeID
}

// AnnAssignData is `target: annotation [= value]`.
type AnnAssignData struct {
	Target     NodeID
	Annotation NodeID
	Value      NodeID
}

type AugAssignData struct {
	Target NodeID
	Op     Op
	Value  NodeID
}

// CondData backs If and While. An elif chain is an If in Else.
type CondData struct {
	Test NodeID
	Body []NodeID
	Else []NodeID
}

type ForData struct {
	Target NodeID
	Iter   NodeID
	Body   []NodeID
	Else   []NodeID
}

type RaiseData struct {
	Exc   NodeID
	Cause NodeID
}

type AssertData struct {
	Test NodeID
	Msg  NodeID
}

type TryData struct {
	Body     []NodeID
	Handlers []NodeID
	Else     []NodeID
	Finally  []NodeID
}

type HandlerData struct {
	Type     NodeID // NoNodeID for a bare except
	Name     source.StringID
	NameSpan source.Span
	Body     []NodeID
}

// WithData holds one context manager; `with a, b:` nests.
type WithData struct {
	Context NodeID
	Target  NodeID
	Body    []NodeID
}

type FuncData struct {
	Name       source.StringID
	NameSpan   source.Span
	Decorators []NodeID
	Params     []NodeID
	Returns    NodeID
	Body       []NodeID
}

type ParamKind uint8

const (
	ParamNormal ParamKind = iota
	ParamVarArgs
	ParamKwArgs
)

type ParamData struct {
	Name       source.StringID
	Kind       ParamKind
	Annotation NodeID
	Default    NodeID
}

type ClassData struct {
	Name       source.StringID
	NameSpan   source.Span
	Decorators []NodeID
	Bases      []NodeID
	Keywords   []NodeID
	Body       []NodeID
}

// ImportData backs Import and ImportFrom. Module and Level are set for
// ImportFrom only; Level counts leading dots.
type ImportData struct {
	Module source.StringID
	Level  int
	Names  []NodeID
}

// AliasData is one `name [as asname]` entry; Name may be dotted or "*".
type AliasData struct {
	Name   source.StringID
	AsName source.StringID
}

// NameListData backs Global and Nonlocal.
type NameListData struct {
	Names []source.StringID
}

type TargetsData struct {
	Targets []NodeID
}

// Constructors. Children are allocated before their parent, so IDs follow
// the parser's completion order.

func (b *Builder) NewBad(span source.Span) NodeID {
	return b.newNode(KindBad, span, 0)
}

func (b *Builder) NewModule(span source.Span, file source.FileID, key string, body []NodeID) NodeID {
	p := b.modules.Allocate(ModuleData{File: file, Key: b.Strings.Intern(key), Body: body})
	return b.newNode(KindModule, span, p, body...)
}

func (b *Builder) NewExprStmt(span source.Span, value NodeID) NodeID {
	return b.newNode(KindExprStmt, span, b.values.Allocate(ValueData{Value: value}), value)
}

func (b *Builder) NewReturn(span source.Span, value NodeID) NodeID {
	return b.newNode(KindReturn, span, b.values.Allocate(ValueData{Value: value}), value)
}

func (b *Builder) NewYield(span source.Span, value NodeID) NodeID {
	return b.newNode(KindYield, span, b.values.Allocate(ValueData{Value: value}), value)
}

func (b *Builder) NewAssign(span source.Span, targets []NodeID, value NodeID) NodeID {
	for _, t := range targets {
		b.SetCtx(t, CtxStore)
	}
	p := b.assigns.Allocate(AssignData{Targets: targets, Value: value})
	return b.newNode(KindAssign, span, p, append(append([]NodeID(nil), targets...), value)...)
}

func (b *Builder) NewAnnAssign(span source.Span, target, annotation, value NodeID) NodeID {
	b.SetCtx(target, CtxStore)
	p := b.annAssign.Allocate(AnnAssignData{Target: target, Annotation: annotation, Value: value})
	return b.newNode(KindAnnAssign, span, p, target, annotation, value)
}

func (b *Builder) NewAugAssign(span source.Span, target NodeID, op Op, value NodeID) NodeID {
	b.SetCtx(target, CtxStore)
	p := b.augAssign.Allocate(AugAssignData{Target: target, Op: op, Value: value})
	return b.newNode(KindAugAssign, span, p, target, value)
}

func (b *Builder) NewIf(span source.Span, test NodeID, body, orelse []NodeID) NodeID {
	p := b.conds.Allocate(CondData{Test: test, Body: body, Else: orelse})
	return b.newNode(KindIf, span, p, cat([]NodeID{test}, body, orelse)...)
}

func (b *Builder) NewWhile(span source.Span, test NodeID, body, orelse []NodeID) NodeID {
	p := b.conds.Allocate(CondData{Test: test, Body: body, Else: orelse})
	return b.newNode(KindWhile, span, p, cat([]NodeID{test}, body, orelse)...)
}

func (b *Builder) NewFor(span source.Span, target, iter NodeID, body, orelse []NodeID) NodeID {
	b.SetCtx(target, CtxStore)
	p := b.fors.Allocate(ForData{Target: target, Iter: iter, Body: body, Else: orelse})
	return b.newNode(KindFor, span, p, cat([]NodeID{target, iter}, body, orelse)...)
}

// NewSimple allocates Break, Continue or Pass.
func (b *Builder) NewSimple(kind Kind, span source.Span) NodeID {
	return b.newNode(kind, span, 0)
}

func (b *Builder) NewRaise(span source.Span, exc, cause NodeID) NodeID {
	return b.newNode(KindRaise, span, b.raises.Allocate(RaiseData{Exc: exc, Cause: cause}), exc, cause)
}

func (b *Builder) NewAssert(span source.Span, test, msg NodeID) NodeID {
	return b.newNode(KindAssert, span, b.asserts.Allocate(AssertData{Test: test, Msg: msg}), test, msg)
}

func (b *Builder) NewTry(span source.Span, body, handlers, orelse, finally []NodeID) NodeID {
	p := b.tries.Allocate(TryData{Body: body, Handlers: handlers, Else: orelse, Finally: finally})
	return b.newNode(KindTry, span, p, cat(body, handlers, orelse, finally)...)
}

func (b *Builder) NewExceptHandler(span source.Span, typ NodeID, name string, nameSpan source.Span, body []NodeID) NodeID {
	var nameID source.StringID
	if name != "" {
		nameID = b.Strings.Intern(name)
	}
	p := b.handlers.Allocate(HandlerData{Type: typ, Name: nameID, NameSpan: nameSpan, Body: body})
	return b.newNode(KindExceptHandler, span, p, cat([]NodeID{typ}, body)...)
}

func (b *Builder) NewWith(span source.Span, context, target NodeID, body []NodeID) NodeID {
	b.SetCtx(target, CtxStore)
	p := b.withs.Allocate(WithData{Context: context, Target: target, Body: body})
	return b.newNode(KindWith, span, p, cat([]NodeID{context, target}, body)...)
}

func (b *Builder) NewFunctionDef(span source.Span, data FuncData) NodeID {
	p := b.funcs.Allocate(data)
	return b.newNode(KindFunctionDef, span, p, cat(data.Decorators, data.Params, []NodeID{data.Returns}, data.Body)...)
}

func (b *Builder) NewParam(span source.Span, name string, kind ParamKind, annotation, def NodeID) NodeID {
	p := b.params.Allocate(ParamData{Name: b.Strings.Intern(name), Kind: kind, Annotation: annotation, Default: def})
	return b.newNode(KindParam, span, p, annotation, def)
}

func (b *Builder) NewClassDef(span source.Span, data ClassData) NodeID {
	p := b.classes.Allocate(data)
	return b.newNode(KindClassDef, span, p, cat(data.Decorators, data.Bases, data.Keywords, data.Body)...)
}

func (b *Builder) NewImport(span source.Span, names []NodeID) NodeID {
	return b.newNode(KindImport, span, b.imports.Allocate(ImportData{Names: names}), names...)
}

func (b *Builder) NewImportFrom(span source.Span, module string, level int, names []NodeID) NodeID {
	p := b.imports.Allocate(ImportData{Module: b.Strings.Intern(module), Level: level, Names: names})
	return b.newNode(KindImportFrom, span, p, names...)
}

func (b *Builder) NewAlias(span source.Span, name, asName string) NodeID {
	data := AliasData{Name: b.Strings.Intern(name)}
	if asName != "" {
		data.AsName = b.Strings.Intern(asName)
	}
	return b.newNode(KindAlias, span, b.aliases.Allocate(data))
}

// NewNameList allocates Global or Nonlocal.
func (b *Builder) NewNameList(kind Kind, span source.Span, names []string) NodeID {
	ids := make([]source.StringID, 0, len(names))
	for _, n := range names {
		ids = append(ids, b.Strings.Intern(n))
	}
	return b.newNode(kind, span, b.nameLists.Allocate(NameListData{Names: ids}))
}

func (b *Builder) NewDel(span source.Span, targets []NodeID) NodeID {
	for _, t := range targets {
		b.SetCtx(t, CtxDel)
	}
	return b.newNode(KindDel, span, b.targets.Allocate(TargetsData{Targets: targets}), targets...)
}

// Accessors.

func (b *Builder) Module(id NodeID) (*ModuleData, bool) {
	return payloadOf(b, id, b.modules, KindModule)
}

func (b *Builder) Value(id NodeID) (*ValueData, bool) {
	return payloadOf(b, id, b.values, KindExprStmt, KindReturn, KindYield)
}

func (b *Builder) Assign(id NodeID) (*AssignData, bool) {
	return payloadOf(b, id, b.assigns, KindAssign)
}

func (b *Builder) AnnAssign(id NodeID) (*AnnAssignData, bool) {
	return payloadOf(b, id, b.annAssign, KindAnnAssign)
}

func (b *Builder) AugAssign(id NodeID) (*AugAssignData, bool) {
	return payloadOf(b, id, b.augAssign, KindAugAssign)
}

func (b *Builder) Cond(id NodeID) (*CondData, bool) {
	return payloadOf(b, id, b.conds, KindIf, KindWhile)
}

func (b *Builder) For(id NodeID) (*ForData, bool) {
	return payloadOf(b, id, b.fors, KindFor)
}

func (b *Builder) Raise(id NodeID) (*RaiseData, bool) {
	return payloadOf(b, id, b.raises, KindRaise)
}

func (b *Builder) Assert(id NodeID) (*AssertData, bool) {
	return payloadOf(b, id, b.asserts, KindAssert)
}

func (b *Builder) Try(id NodeID) (*TryData, bool) {
	return payloadOf(b, id, b.tries, KindTry)
}

func (b *Builder) Handler(id NodeID) (*HandlerData, bool) {
	return payloadOf(b, id, b.handlers, KindExceptHandler)
}

func (b *Builder) With(id NodeID) (*WithData, bool) {
	return payloadOf(b, id, b.withs, KindWith)
}

func (b *Builder) Func(id NodeID) (*FuncData, bool) {
	return payloadOf(b, id, b.funcs, KindFunctionDef)
}

func (b *Builder) Param(id NodeID) (*ParamData, bool) {
	return payloadOf(b, id, b.params, KindParam)
}

func (b *Builder) Class(id NodeID) (*ClassData, bool) {
	return payloadOf(b, id, b.classes, KindClassDef)
}

func (b *Builder) Import(id NodeID) (*ImportData, bool) {
	return payloadOf(b, id, b.imports, KindImport, KindImportFrom)
}

func (b *Builder) Alias(id NodeID) (*AliasData, bool) {
	return payloadOf(b, id, b.aliases, KindAlias)
}

func (b *Builder) NameList(id NodeID) (*NameListData, bool) {
	return payloadOf(b, id, b.nameLists, KindGlobal, KindNonlocal)
}

func (b *Builder) Del(id NodeID) (*TargetsData, bool) {
	return payloadOf(b, id, b.targets, KindDel)
}
