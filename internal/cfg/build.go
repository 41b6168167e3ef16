package cfg

import (
	"codescope/internal/ast"
)

type frameKind uint8

const (
	frameSeq frameKind = iota
	frameIf
	frameLoop
	frameTry
)

// frame is one pending construct on the builder's explicit stack. Compound
// statements advance through phases; each phase may push the frame of a
// nested statement list and resumes when that list is done.
type frame struct {
	kind  frameKind
	node  ast.NodeID
	stmts []ast.NodeID
	idx   int
	phase int

	cond     BlockID // if: block ending with the test; loop: header
	after    BlockID // loop: block after the loop
	armEnd   BlockID // if: end of the then-branch
	handlers []BlockID
	final    BlockID
	exits    []BlockID // try: normal exits that join afterwards
}

type loopCtx struct {
	header, after BlockID
}

type builder struct {
	b      *ast.Builder
	g      *Graph
	cur    BlockID // NoBlockID after a terminator
	loops  []loopCtx
	guards [][]BlockID // exception targets of the enclosing try bodies
}

// Build constructs the CFG of a Module, FunctionDef or Lambda node. Nested
// defs and lambdas get their own graphs; class bodies flow inline.
func Build(b *ast.Builder, fn ast.NodeID) *Graph {
	g := &Graph{Func: fn, Name: b.QualifiedName(fn), Entry: NoBlockID, Exit: NoBlockID}
	c := &builder{b: b, g: g, cur: NoBlockID}

	body := b.Body(fn)
	if len(body) == 0 {
		g.Entry = c.newBlock()
		g.Exit = g.Entry
		c.finish()
		return g
	}

	g.Entry = c.newBlock()
	g.Exit = c.newBlock()
	c.cur = g.Entry

	if b.Kind(fn) == ast.KindLambda {
		c.append(body[0])
	} else {
		c.run(body)
	}
	if c.cur.IsValid() {
		c.edge(c.cur, g.Exit, Fallthrough)
	}
	c.finish()
	return g
}

func (c *builder) finish() {
	c.g.index()
	c.g.markReachable()
}

func (c *builder) newBlock() BlockID {
	id := BlockID(len(c.g.Blocks)) // #nosec G115 -- block count fits in int32
	c.g.Blocks = append(c.g.Blocks, Block{ID: id, Cond: ast.NoNodeID})
	if n := len(c.guards); n > 0 {
		for _, target := range c.guards[n-1] {
			c.edge(id, target, ExceptionEdge)
		}
	}
	return id
}

func (c *builder) edge(from, to BlockID, kind EdgeKind) {
	for _, e := range c.g.Edges {
		if e.From == from && e.To == to && e.Kind == kind {
			return
		}
	}
	c.g.Edges = append(c.g.Edges, Edge{From: from, To: to, Kind: kind})
}

// ensure opens a fresh block when the previous statement terminated control
// flow; such a block has no predecessor and stays unreachable.
func (c *builder) ensure() BlockID {
	if !c.cur.IsValid() {
		c.cur = c.newBlock()
	}
	return c.cur
}

func (c *builder) append(stmt ast.NodeID) {
	blk := c.ensure()
	c.g.Blocks[blk].Stmts = append(c.g.Blocks[blk].Stmts, stmt)
}

func (c *builder) run(body []ast.NodeID) {
	stack := []*frame{{kind: frameSeq, stmts: body}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		next, done := c.step(top)
		if done {
			stack = stack[:len(stack)-1]
		}
		if next != nil {
			stack = append(stack, next)
		}
	}
}

func seq(stmts []ast.NodeID) *frame {
	return &frame{kind: frameSeq, stmts: stmts}
}

func (c *builder) step(f *frame) (*frame, bool) {
	switch f.kind {
	case frameSeq:
		return c.stepSeq(f)
	case frameIf:
		return c.stepIf(f)
	case frameLoop:
		return c.stepLoop(f)
	case frameTry:
		return c.stepTry(f)
	}
	return nil, true
}

func (c *builder) stepSeq(f *frame) (*frame, bool) {
	if f.idx >= len(f.stmts) {
		return nil, true
	}
	s := f.stmts[f.idx]
	f.idx++
	switch c.b.Kind(s) {
	case ast.KindIf:
		return &frame{kind: frameIf, node: s}, false
	case ast.KindWhile, ast.KindFor:
		return &frame{kind: frameLoop, node: s}, false
	case ast.KindTry:
		return &frame{kind: frameTry, node: s}, false
	case ast.KindWith:
		c.append(s)
		w, _ := c.b.With(s)
		return seq(w.Body), false
	case ast.KindClassDef:
		c.append(s)
		cls, _ := c.b.Class(s)
		return seq(cls.Body), false
	default:
		c.simple(s)
		return nil, false
	}
}

func (c *builder) simple(s ast.NodeID) {
	c.append(s)
	switch c.b.Kind(s) {
	case ast.KindReturn:
		c.edge(c.cur, c.g.Exit, Fallthrough)
		c.cur = NoBlockID
	case ast.KindRaise:
		// inside a try body the block already carries its exception edges
		if n := len(c.guards); n == 0 || len(c.guards[n-1]) == 0 {
			c.edge(c.cur, c.g.Exit, ExceptionEdge)
		}
		c.cur = NoBlockID
	case ast.KindBreak:
		if n := len(c.loops); n > 0 {
			c.edge(c.cur, c.loops[n-1].after, Fallthrough)
			c.cur = NoBlockID
		}
	case ast.KindContinue:
		if n := len(c.loops); n > 0 {
			c.edge(c.cur, c.loops[n-1].header, LoopBack)
			c.cur = NoBlockID
		}
	}
}

func (c *builder) stepIf(f *frame) (*frame, bool) {
	d, _ := c.b.Cond(f.node)
	switch f.phase {
	case 0:
		c.append(f.node)
		f.cond = c.cur
		c.g.Blocks[f.cond].Cond = f.node
		then := c.newBlock()
		c.edge(f.cond, then, BranchTrue)
		c.cur = then
		f.phase = 1
		return seq(d.Body), false
	case 1:
		f.armEnd = c.cur
		if len(d.Else) > 0 {
			orelse := c.newBlock()
			c.edge(f.cond, orelse, BranchFalse)
			c.cur = orelse
			f.phase = 2
			return seq(d.Else), false
		}
		join := c.newBlock()
		c.edge(f.cond, join, BranchFalse)
		if f.armEnd.IsValid() {
			c.edge(f.armEnd, join, Fallthrough)
		}
		c.cur = join
		return nil, true
	default:
		elseEnd := c.cur
		if !f.armEnd.IsValid() && !elseEnd.IsValid() {
			c.cur = NoBlockID
			return nil, true
		}
		join := c.newBlock()
		for _, end := range []BlockID{f.armEnd, elseEnd} {
			if end.IsValid() {
				c.edge(end, join, Fallthrough)
			}
		}
		c.cur = join
		return nil, true
	}
}

func (c *builder) stepLoop(f *frame) (*frame, bool) {
	var body, orelse []ast.NodeID
	if c.b.Kind(f.node) == ast.KindFor {
		d, _ := c.b.For(f.node)
		body, orelse = d.Body, d.Else
	} else {
		d, _ := c.b.Cond(f.node)
		body, orelse = d.Body, d.Else
	}
	switch f.phase {
	case 0:
		header := c.newBlock()
		if c.cur.IsValid() {
			c.edge(c.cur, header, Fallthrough)
		}
		c.g.Blocks[header].Stmts = append(c.g.Blocks[header].Stmts, f.node)
		c.g.Blocks[header].Cond = f.node
		entry := c.newBlock()
		c.edge(header, entry, BranchTrue)
		f.cond, f.after = header, c.newBlock()
		c.loops = append(c.loops, loopCtx{header: header, after: f.after})
		c.cur = entry
		f.phase = 1
		return seq(body), false
	case 1:
		if c.cur.IsValid() {
			c.edge(c.cur, f.cond, LoopBack)
		}
		c.loops = c.loops[:len(c.loops)-1]
		if len(orelse) > 0 {
			blk := c.newBlock()
			c.edge(f.cond, blk, BranchFalse)
			c.cur = blk
			f.phase = 2
			return seq(orelse), false
		}
		c.edge(f.cond, f.after, BranchFalse)
		c.cur = f.after
		return nil, true
	default:
		if c.cur.IsValid() {
			c.edge(c.cur, f.after, Fallthrough)
		}
		c.cur = f.after
		return nil, true
	}
}

// Try phases: 0 body, 1 else, 2..3 handlers, 4 finally, 5 done.
func (c *builder) stepTry(f *frame) (*frame, bool) {
	d, _ := c.b.Try(f.node)
	switch f.phase {
	case 0:
		c.append(f.node)
		before := c.cur
		for _, h := range d.Handlers {
			blk := c.newBlock()
			c.g.Blocks[blk].Stmts = append(c.g.Blocks[blk].Stmts, h)
			f.handlers = append(f.handlers, blk)
		}
		f.final = NoBlockID
		if len(d.Finally) > 0 {
			f.final = c.newBlock()
		}
		targets := f.handlers
		if len(targets) == 0 && f.final.IsValid() {
			targets = []BlockID{f.final}
		}
		c.guards = append(c.guards, targets)
		body := c.newBlock()
		c.edge(before, body, Fallthrough)
		c.cur = body
		f.phase = 1
		return seq(d.Body), false
	case 1:
		c.guards = c.guards[:len(c.guards)-1]
		f.phase = 2
		if len(d.Else) > 0 {
			if c.cur.IsValid() {
				blk := c.newBlock()
				c.edge(c.cur, blk, Fallthrough)
				c.cur = blk
			}
			return seq(d.Else), false
		}
		return nil, false
	case 2:
		f.exits = append(f.exits, c.cur)
		f.idx = 0
		f.phase = 3
		return nil, false
	case 3:
		if f.idx > 0 {
			f.exits = append(f.exits, c.cur)
		}
		if f.idx >= len(f.handlers) {
			f.phase = 4
			return nil, false
		}
		h, _ := c.b.Handler(d.Handlers[f.idx])
		c.cur = f.handlers[f.idx]
		f.idx++
		return seq(h.Body), false
	case 4:
		join := f.final
		for _, end := range f.exits {
			if !end.IsValid() {
				continue
			}
			if !join.IsValid() {
				join = c.newBlock()
			}
			c.edge(end, join, Fallthrough)
		}
		c.cur = join
		f.phase = 5
		if f.final.IsValid() {
			return seq(d.Finally), false
		}
		return nil, true
	default:
		return nil, true
	}
}
