package cfg

import (
	"codescope/internal/ast"
)

type BlockID int32

const NoBlockID BlockID = -1

func (id BlockID) IsValid() bool { return id >= 0 }

type EdgeKind uint8

const (
	Fallthrough EdgeKind = iota
	BranchTrue
	BranchFalse
	LoopBack
	ExceptionEdge
)

var edgeKindNames = [...]string{
	Fallthrough:   "fallthrough",
	BranchTrue:    "true",
	BranchFalse:   "false",
	LoopBack:      "loop",
	ExceptionEdge: "exception",
}

func (k EdgeKind) String() string {
	if int(k) < len(edgeKindNames) {
		return edgeKindNames[k]
	}
	return "?"
}

type Edge struct {
	From BlockID
	To   BlockID
	Kind EdgeKind
}

// Block is a straight-line run of statements. Cond is the If/While/For node
// whose test ends the block; the branch edges leave from here.
type Block struct {
	ID        BlockID
	Stmts     []ast.NodeID
	Cond      ast.NodeID
	Reachable bool
}

// Graph is the CFG of one function-like node: a module body, a def or a
// lambda. Exit is a synthetic block without statements, except for an empty
// body where Entry == Exit.
type Graph struct {
	Func   ast.NodeID
	Name   string
	Blocks []Block
	Edges  []Edge
	Entry  BlockID
	Exit   BlockID

	succ    [][]int32
	pred    [][]int32
	blockOf map[ast.NodeID]BlockID
}

func (g *Graph) Block(id BlockID) *Block {
	if !id.IsValid() || int(id) >= len(g.Blocks) {
		return nil
	}
	return &g.Blocks[id]
}

// Succs returns the outgoing edges of id in insertion order.
func (g *Graph) Succs(id BlockID) []Edge {
	return g.collect(g.succ, id)
}

// Preds returns the incoming edges of id in insertion order.
func (g *Graph) Preds(id BlockID) []Edge {
	return g.collect(g.pred, id)
}

func (g *Graph) collect(index [][]int32, id BlockID) []Edge {
	if !id.IsValid() || int(id) >= len(index) {
		return nil
	}
	out := make([]Edge, len(index[id]))
	for i, e := range index[id] {
		out[i] = g.Edges[e]
	}
	return out
}

// BlockOf returns the block holding a statement node of this graph.
func (g *Graph) BlockOf(stmt ast.NodeID) (BlockID, bool) {
	id, ok := g.blockOf[stmt]
	return id, ok
}

// Unreachable lists blocks with no path from Entry.
func (g *Graph) Unreachable() []BlockID {
	var out []BlockID
	for i := range g.Blocks {
		if !g.Blocks[i].Reachable {
			out = append(out, g.Blocks[i].ID)
		}
	}
	return out
}

// Complexity is the cyclomatic number E - N + 2.
func (g *Graph) Complexity() int {
	return len(g.Edges) - len(g.Blocks) + 2
}

// Condition is one branch point, exposed for test-input generators.
type Condition struct {
	Block BlockID
	Stmt  ast.NodeID // If, While or For
	Test  ast.NodeID // the test expression; the iterable for a for loop
}

func (g *Graph) Conditions(b *ast.Builder) []Condition {
	var out []Condition
	for i := range g.Blocks {
		blk := &g.Blocks[i]
		if !blk.Cond.IsValid() {
			continue
		}
		c := Condition{Block: blk.ID, Stmt: blk.Cond}
		switch b.Kind(blk.Cond) {
		case ast.KindIf, ast.KindWhile:
			d, _ := b.Cond(blk.Cond)
			c.Test = d.Test
		case ast.KindFor:
			d, _ := b.For(blk.Cond)
			c.Test = d.Iter
		}
		out = append(out, c)
	}
	return out
}

func (g *Graph) index() {
	g.succ = make([][]int32, len(g.Blocks))
	g.pred = make([][]int32, len(g.Blocks))
	g.blockOf = make(map[ast.NodeID]BlockID)
	for i, e := range g.Edges {
		g.succ[e.From] = append(g.succ[e.From], int32(i)) // #nosec G115 -- edge count fits in int32
		g.pred[e.To] = append(g.pred[e.To], int32(i))     // #nosec G115 -- edge count fits in int32
	}
	for i := range g.Blocks {
		for _, s := range g.Blocks[i].Stmts {
			g.blockOf[s] = g.Blocks[i].ID
		}
	}
}

// markReachable flags blocks reachable from Entry over every edge kind.
func (g *Graph) markReachable() {
	if len(g.Blocks) == 0 {
		return
	}
	stack := []BlockID{g.Entry}
	g.Blocks[g.Entry].Reachable = true
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range g.succ[id] {
			to := g.Edges[e].To
			if !g.Blocks[to].Reachable {
				g.Blocks[to].Reachable = true
				stack = append(stack, to)
			}
		}
	}
}
