package ast

import (
	"codescope/internal/source"
)

// Node is the tagged variant shared by every syntax element. Payload indexes
// the per-kind arena selected by Kind; kinds without data keep Payload == 0.
type Node struct {
	Kind    Kind
	Ctx     Ctx
	Span    source.Span
	Parent  NodeID
	Payload uint32
}

type Hints struct{ Nodes uint }

// Builder owns every node of a Program. IDs are handed out by Nodes.Allocate,
// so the allocation order of the parser is the identity order.
type Builder struct {
	Nodes   *Arena[Node]
	Strings *source.Interner

	modules   *Arena[ModuleData]
	values    *Arena[ValueData]
	assigns   *Arena[AssignData]
	annAssign *Arena[AnnAssignData]
	augAssign *Arena[AugAssignData]
	conds     *Arena[CondData]
	fors      *Arena[ForData]
	raises    *Arena[RaiseData]
	asserts   *Arena[AssertData]
	tries     *Arena[TryData]
	handlers  *Arena[HandlerData]
	withs     *Arena[WithData]
	funcs     *Arena[FuncData]
	params    *Arena[ParamData]
	classes   *Arena[ClassData]
	imports   *Arena[ImportData]
	aliases   *Arena[AliasData]
	nameLists *Arena[NameListData]
	targets   *Arena[TargetsData]

	names      *Arena[NameData]
	consts     *Arena[ConstData]
	attributes *Arena[AttributeData]
	subscripts *Arena[SubscriptData]
	calls      *Arena[CallData]
	keywords   *Arena[KeywordData]
	unaries    *Arena[UnaryData]
	binaries   *Arena[BinaryData]
	boolOps    *Arena[BoolOpData]
	compares   *Arena[CompareData]
	ifExps     *Arena[IfExpData]
	lambdas    *Arena[LambdaData]
	seqs       *Arena[SeqData]
	dicts      *Arena[DictData]
}

func NewBuilder(hints Hints, strings *source.Interner) *Builder {
	if hints.Nodes == 0 {
		hints.Nodes = 1 << 10
	}
	if strings == nil {
		strings = source.NewInterner()
	}
	small := hints.Nodes >> 4
	return &Builder{
		Nodes:   NewArena[Node](hints.Nodes),
		Strings: strings,

		modules:   NewArena[ModuleData](4),
		values:    NewArena[ValueData](small),
		assigns:   NewArena[AssignData](small),
		annAssign: NewArena[AnnAssignData](small),
		augAssign: NewArena[AugAssignData](small),
		conds:     NewArena[CondData](small),
		fors:      NewArena[ForData](small),
		raises:    NewArena[RaiseData](small),
		asserts:   NewArena[AssertData](small),
		tries:     NewArena[TryData](small),
		handlers:  NewArena[HandlerData](small),
		withs:     NewArena[WithData](small),
		funcs:     NewArena[FuncData](small),
		params:    NewArena[ParamData](small),
		classes:   NewArena[ClassData](small),
		imports:   NewArena[ImportData](small),
		aliases:   NewArena[AliasData](small),
		nameLists: NewArena[NameListData](small),
		targets:   NewArena[TargetsData](small),

		names:      NewArena[NameData](hints.Nodes >> 2),
		consts:     NewArena[ConstData](small),
		attributes: NewArena[AttributeData](small),
		subscripts: NewArena[SubscriptData](small),
		calls:      NewArena[CallData](small),
		keywords:   NewArena[KeywordData](small),
		unaries:    NewArena[UnaryData](small),
		binaries:   NewArena[BinaryData](small),
		boolOps:    NewArena[BoolOpData](small),
		compares:   NewArena[CompareData](small),
		ifExps:     NewArena[IfExpData](small),
		lambdas:    NewArena[LambdaData](small),
		seqs:       NewArena[SeqData](small),
		dicts:      NewArena[DictData](small),
	}
}

// Get returns the node or nil for an invalid id.
func (b *Builder) Get(id NodeID) *Node {
	return b.Nodes.Get(uint32(id))
}

// Kind returns the kind of id, KindBad for an invalid id.
func (b *Builder) Kind(id NodeID) Kind {
	if n := b.Get(id); n != nil {
		return n.Kind
	}
	return KindBad
}

// Span returns the span of id or the zero span.
func (b *Builder) Span(id NodeID) source.Span {
	if n := b.Get(id); n != nil {
		return n.Span
	}
	return source.Span{}
}

// Parent returns the owning node, NoNodeID for module roots.
func (b *Builder) Parent(id NodeID) NodeID {
	if n := b.Get(id); n != nil {
		return n.Parent
	}
	return NoNodeID
}

// Count returns the number of allocated nodes; IDs run from 1 to Count.
func (b *Builder) Count() uint32 {
	return b.Nodes.Len()
}

// Name returns the interned text or "" for NoStringID.
func (b *Builder) Name(id source.StringID) string {
	s, _ := b.Strings.Lookup(id)
	return s
}

func (b *Builder) newNode(kind Kind, span source.Span, payload uint32, children ...NodeID) NodeID {
	id := NodeID(b.Nodes.Allocate(Node{Kind: kind, Span: span, Payload: payload}))
	b.adopt(id, children...)
	return id
}

func (b *Builder) adopt(parent NodeID, children ...NodeID) {
	for _, c := range children {
		if n := b.Get(c); n != nil {
			n.Parent = parent
		}
	}
}

// SetCtx marks a target expression as Store or Del, recursing through tuple,
// list and starred targets.
func (b *Builder) SetCtx(id NodeID, ctx Ctx) {
	stack := []NodeID{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := b.Get(cur)
		if n == nil {
			continue
		}
		switch n.Kind {
		case KindName, KindAttribute, KindSubscript:
			n.Ctx = ctx
		case KindTuple, KindList:
			n.Ctx = ctx
			stack = append(stack, b.seqs.Get(n.Payload).Elts...)
		case KindStarred:
			n.Ctx = ctx
			stack = append(stack, b.unaries.Get(n.Payload).Operand)
		}
	}
}

func payloadOf[T any](b *Builder, id NodeID, arena *Arena[T], kinds ...Kind) (*T, bool) {
	n := b.Get(id)
	if n == nil {
		return nil, false
	}
	for _, k := range kinds {
		if n.Kind == k {
			p := arena.Get(n.Payload)
			return p, p != nil
		}
	}
	return nil, false
}

func cat(parts ...[]NodeID) []NodeID {
	size := 0
	for _, p := range parts {
		size += len(p)
	}
	out := make([]NodeID, 0, size)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
