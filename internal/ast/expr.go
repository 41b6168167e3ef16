package ast

import (
	"codescope/internal/source"
)

type NameData struct {
	Name source.StringID
}

type ConstKind uint8

const (
	ConstInt ConstKind = iota
	ConstFloat
	ConstStr
	ConstBytes
	ConstBool
	ConstNone
	ConstEllipsis
)

func (k ConstKind) String() string {
	switch k {
	case ConstInt:
		return "int"
	case ConstFloat:
		return "float"
	case ConstStr:
		return "str"
	case ConstBytes:
		return "bytes"
	case ConstBool:
		return "bool"
	case ConstNone:
		return "None"
	default:
		return "..."
	}
}

// ConstData keeps the literal as written.
type ConstData struct {
	Kind ConstKind
	Raw  source.StringID
}

type AttributeData struct {
	Value    NodeID
	Attr     source.StringID
	AttrSpan source.Span
}

type SubscriptData struct {
	Value NodeID
	Index NodeID
}

type CallData struct {
	Func     NodeID
	Args     []NodeID
	Keywords []NodeID
}

// KeywordData is `name=value`; Name == NoStringID for `**value`.
type KeywordData struct {
	Name  source.StringID
	Value NodeID
}

// UnaryData backs Unary and Starred (Op is OpInvalid for Starred).
type UnaryData struct {
	Op      Op
	Operand NodeID
}

type BinaryData struct {
	Op    Op
	Left  NodeID
	Right NodeID
}

type BoolOpData struct {
	Op     Op
	Values []NodeID
}

// CompareData is a chained comparison `Left Ops[0] Comparators[0] ...`.
type CompareData struct {
	Left        NodeID
	Ops         []Op
	Comparators []NodeID
}

type IfExpData struct {
	Test   NodeID
	Body   NodeID
	OrElse NodeID
}

type LambdaData struct {
	Params []NodeID
	Body   NodeID
}

// SeqData backs List, Tuple and Set.
type SeqData struct {
	Elts []NodeID
}

type DictData struct {
	Keys   []NodeID // NoNodeID key means `**value`
	Values []NodeID
}

func (b *Builder) NewName(span source.Span, name string) NodeID {
	return b.newNode(KindName, span, b.names.Allocate(NameData{Name: b.Strings.Intern(name)}))
}

func (b *Builder) NewConst(span source.Span, kind ConstKind, raw string) NodeID {
	return b.newNode(KindConst, span, b.consts.Allocate(ConstData{Kind: kind, Raw: b.Strings.Intern(raw)}))
}

func (b *Builder) NewAttribute(span source.Span, value NodeID, attr string, attrSpan source.Span) NodeID {
	p := b.attributes.Allocate(AttributeData{Value: value, Attr: b.Strings.Intern(attr), AttrSpan: attrSpan})
	return b.newNode(KindAttribute, span, p, value)
}

func (b *Builder) NewSubscript(span source.Span, value, index NodeID) NodeID {
	return b.newNode(KindSubscript, span, b.subscripts.Allocate(SubscriptData{Value: value, Index: index}), value, index)
}

func (b *Builder) NewCall(span source.Span, fn NodeID, args, keywords []NodeID) NodeID {
	p := b.calls.Allocate(CallData{Func: fn, Args: args, Keywords: keywords})
	return b.newNode(KindCall, span, p, cat([]NodeID{fn}, args, keywords)...)
}

func (b *Builder) NewKeyword(span source.Span, name string, value NodeID) NodeID {
	var nameID source.StringID
	if name != "" {
		nameID = b.Strings.Intern(name)
	}
	return b.newNode(KindKeyword, span, b.keywords.Allocate(KeywordData{Name: nameID, Value: value}), value)
}

func (b *Builder) NewUnary(span source.Span, op Op, operand NodeID) NodeID {
	return b.newNode(KindUnary, span, b.unaries.Allocate(UnaryData{Op: op, Operand: operand}), operand)
}

func (b *Builder) NewStarred(span source.Span, operand NodeID) NodeID {
	return b.newNode(KindStarred, span, b.unaries.Allocate(UnaryData{Operand: operand}), operand)
}

func (b *Builder) NewBinary(span source.Span, op Op, left, right NodeID) NodeID {
	return b.newNode(KindBinary, span, b.binaries.Allocate(BinaryData{Op: op, Left: left, Right: right}), left, right)
}

func (b *Builder) NewBoolOp(span source.Span, op Op, values []NodeID) NodeID {
	return b.newNode(KindBoolOp, span, b.boolOps.Allocate(BoolOpData{Op: op, Values: values}), values...)
}

func (b *Builder) NewCompare(span source.Span, left NodeID, ops []Op, comparators []NodeID) NodeID {
	p := b.compares.Allocate(CompareData{Left: left, Ops: ops, Comparators: comparators})
	return b.newNode(KindCompare, span, p, cat([]NodeID{left}, comparators)...)
}

func (b *Builder) NewIfExp(span source.Span, test, body, orelse NodeID) NodeID {
	p := b.ifExps.Allocate(IfExpData{Test: test, Body: body, OrElse: orelse})
	return b.newNode(KindIfExp, span, p, body, test, orelse)
}

func (b *Builder) NewLambda(span source.Span, params []NodeID, body NodeID) NodeID {
	p := b.lambdas.Allocate(LambdaData{Params: params, Body: body})
	return b.newNode(KindLambda, span, p, cat(params, []NodeID{body})...)
}

// NewSeq allocates List, Tuple or Set.
func (b *Builder) NewSeq(kind Kind, span source.Span, elts []NodeID) NodeID {
	return b.newNode(kind, span, b.seqs.Allocate(SeqData{Elts: elts}), elts...)
}

func (b *Builder) NewDict(span source.Span, keys, values []NodeID) NodeID {
	p := b.dicts.Allocate(DictData{Keys: keys, Values: values})
	return b.newNode(KindDict, span, p, cat(keys, values)...)
}

func (b *Builder) NameOf(id NodeID) (*NameData, bool) {
	return payloadOf(b, id, b.names, KindName)
}

// Ident returns the text of a Name node.
func (b *Builder) Ident(id NodeID) (string, bool) {
	n, ok := b.NameOf(id)
	if !ok {
		return "", false
	}
	return b.Name(n.Name), true
}

func (b *Builder) Const(id NodeID) (*ConstData, bool) {
	return payloadOf(b, id, b.consts, KindConst)
}

func (b *Builder) Attribute(id NodeID) (*AttributeData, bool) {
	return payloadOf(b, id, b.attributes, KindAttribute)
}

func (b *Builder) Subscript(id NodeID) (*SubscriptData, bool) {
	return payloadOf(b, id, b.subscripts, KindSubscript)
}

func (b *Builder) Call(id NodeID) (*CallData, bool) {
	return payloadOf(b, id, b.calls, KindCall)
}

func (b *Builder) Keyword(id NodeID) (*KeywordData, bool) {
	return payloadOf(b, id, b.keywords, KindKeyword)
}

func (b *Builder) Unary(id NodeID) (*UnaryData, bool) {
	return payloadOf(b, id, b.unaries, KindUnary, KindStarred)
}

func (b *Builder) Binary(id NodeID) (*BinaryData, bool) {
	return payloadOf(b, id, b.binaries, KindBinary)
}

func (b *Builder) BoolOp(id NodeID) (*BoolOpData, bool) {
	return payloadOf(b, id, b.boolOps, KindBoolOp)
}

func (b *Builder) Compare(id NodeID) (*CompareData, bool) {
	return payloadOf(b, id, b.compares, KindCompare)
}

func (b *Builder) IfExp(id NodeID) (*IfExpData, bool) {
	return payloadOf(b, id, b.ifExps, KindIfExp)
}

func (b *Builder) Lambda(id NodeID) (*LambdaData, bool) {
	return payloadOf(b, id, b.lambdas, KindLambda)
}

func (b *Builder) Seq(id NodeID) (*SeqData, bool) {
	return payloadOf(b, id, b.seqs, KindList, KindTuple, KindSet)
}

func (b *Builder) Dict(id NodeID) (*DictData, bool) {
	return payloadOf(b, id, b.dicts, KindDict)
}
