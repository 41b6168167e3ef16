package dataflow

import (
	"slices"

	"codescope/internal/ast"
	"codescope/internal/cfg"
	"codescope/internal/symbols"
)

type eventKind uint8

const (
	evUse eventKind = iota
	evDef
	evKill // del
)

type event struct {
	kind eventKind
	v    int
	def  DefID
	node ast.NodeID
	stmt ast.NodeID
}

// collector turns the statements of each block into an ordered list of
// use/def/kill events over the function's own variables.
type collector struct {
	b    *ast.Builder
	t    *symbols.Table
	g    *cfg.Graph
	vars map[symbols.SymbolID]int
	res  *Result
}

func newCollector(b *ast.Builder, t *symbols.Table, g *cfg.Graph) *collector {
	c := &collector{
		b:    b,
		t:    t,
		g:    g,
		vars: make(map[symbols.SymbolID]int),
		res: &Result{
			Func: g.Func,
			Name: g.Name,
		},
	}
	if sc := t.Scope(t.ScopeOf(g.Func)); sc != nil {
		for _, sym := range sc.Symbols {
			c.vars[sym] = len(c.res.Vars)
			c.res.Vars = append(c.res.Vars, sym)
		}
	}
	return c
}

// events returns the parameter bindings and the per-block event lists.
// Parameters are bound before the entry block runs, so they are kept out of
// the block lists; they get the lowest def IDs.
func (c *collector) events() (params []event, blocks [][]event) {
	params = c.params(c.g.Entry)
	blocks = make([][]event, len(c.g.Blocks))
	for i := range c.g.Blocks {
		blk := &c.g.Blocks[i]
		var evs []event
		for _, stmt := range blk.Stmts {
			evs = append(evs, c.stmt(blk.ID, stmt)...)
		}
		blocks[i] = evs
	}
	return params, blocks
}

func (c *collector) params(blk cfg.BlockID) []event {
	var params []ast.NodeID
	switch c.b.Kind(c.g.Func) {
	case ast.KindFunctionDef:
		fn, _ := c.b.Func(c.g.Func)
		params = fn.Params
	case ast.KindLambda:
		lam, _ := c.b.Lambda(c.g.Func)
		params = lam.Params
	}
	var out []event
	for _, p := range params {
		if ev, ok := c.def(p, c.g.Func, blk, DefParam); ok {
			out = append(out, ev)
		}
	}
	return out
}

func (c *collector) def(node, stmt ast.NodeID, blk cfg.BlockID, kind DefKind) (event, bool) {
	sym := c.t.SymbolOf(node)
	v, ok := c.vars[sym]
	if !ok {
		return event{}, false
	}
	id := DefID(len(c.res.Defs)) // #nosec G115 -- bounded by node count
	c.res.Defs = append(c.res.Defs, Def{
		ID: id, Var: v, Symbol: sym, Kind: kind,
		Node: node, Stmt: stmt, Block: blk, Live: true,
	})
	return event{kind: evDef, v: v, def: id, node: node, stmt: stmt}, true
}

// stmt lists the events of one statement: every load first, then the
// bindings, which matches evaluation order for assignments.
func (c *collector) stmt(blk cfg.BlockID, stmt ast.NodeID) []event {
	var uses, defs []event
	kind := defKindOf(c.b.Kind(stmt))

	skipStore := ast.NoNodeID
	switch c.b.Kind(stmt) {
	case ast.KindAugAssign:
		aug, _ := c.b.AugAssign(stmt)
		if sym := c.t.SymbolOf(aug.Target); c.b.Kind(aug.Target) == ast.KindName {
			if v, ok := c.vars[sym]; ok {
				uses = append(uses, event{kind: evUse, v: v, node: aug.Target, stmt: stmt})
			}
		}
	case ast.KindAnnAssign:
		// `x: int` declares without binding
		if aa, _ := c.b.AnnAssign(stmt); !aa.Value.IsValid() {
			skipStore = aa.Target
		}
	}

	for _, part := range evaluatedParts(c.b, stmt) {
		walkEvaluated(c.b, part, func(id ast.NodeID) {
			switch c.b.Kind(id) {
			case ast.KindName:
				if id == skipStore {
					return
				}
				switch c.b.Get(id).Ctx {
				case ast.CtxLoad:
					if v, ok := c.vars[c.t.SymbolOf(id)]; ok {
						uses = append(uses, event{kind: evUse, v: v, node: id, stmt: stmt})
					}
				case ast.CtxStore:
					if ev, ok := c.def(id, stmt, blk, kind); ok {
						defs = append(defs, ev)
					}
				case ast.CtxDel:
					if v, ok := c.vars[c.t.SymbolOf(id)]; ok {
						defs = append(defs, event{kind: evKill, v: v, node: id, stmt: stmt})
					}
				}
			case ast.KindAlias:
				if ev, ok := c.def(id, stmt, blk, DefImport); ok {
					defs = append(defs, ev)
				}
			}
		})
	}

	switch c.b.Kind(stmt) {
	case ast.KindFunctionDef:
		if ev, ok := c.def(stmt, stmt, blk, DefFunction); ok {
			defs = append(defs, ev)
		}
	case ast.KindClassDef:
		if ev, ok := c.def(stmt, stmt, blk, DefClass); ok {
			defs = append(defs, ev)
		}
	case ast.KindExceptHandler:
		if ev, ok := c.def(stmt, stmt, blk, DefExcept); ok {
			defs = append(defs, ev)
		}
	}
	return append(uses, defs...)
}

func defKindOf(k ast.Kind) DefKind {
	switch k {
	case ast.KindAugAssign:
		return DefAugAssign
	case ast.KindFor:
		return DefFor
	case ast.KindWith:
		return DefWith
	case ast.KindImport, ast.KindImportFrom:
		return DefImport
	}
	return DefAssign
}

// evaluatedParts returns the sub-trees of a block statement evaluated in the
// block itself. Bodies of compound statements live in other blocks.
func evaluatedParts(b *ast.Builder, stmt ast.NodeID) []ast.NodeID {
	switch b.Kind(stmt) {
	case ast.KindIf, ast.KindWhile:
		d, _ := b.Cond(stmt)
		return []ast.NodeID{d.Test}
	case ast.KindFor:
		d, _ := b.For(stmt)
		return []ast.NodeID{d.Iter, d.Target}
	case ast.KindTry:
		return nil
	case ast.KindExceptHandler:
		d, _ := b.Handler(stmt)
		return []ast.NodeID{d.Type}
	case ast.KindWith:
		d, _ := b.With(stmt)
		return []ast.NodeID{d.Context, d.Target}
	case ast.KindFunctionDef:
		d, _ := b.Func(stmt)
		return slices.Concat(d.Decorators, paramHeaders(b, d.Params), []ast.NodeID{d.Returns})
	case ast.KindClassDef:
		d, _ := b.Class(stmt)
		return slices.Concat(d.Decorators, d.Bases, d.Keywords)
	}
	return []ast.NodeID{stmt}
}

func paramHeaders(b *ast.Builder, params []ast.NodeID) []ast.NodeID {
	var out []ast.NodeID
	for _, p := range params {
		if pd, ok := b.Param(p); ok {
			out = append(out, pd.Annotation, pd.Default)
		}
	}
	return out
}

// walkEvaluated visits root in pre-order, stopping at lambda bodies; lambda
// defaults still run here.
func walkEvaluated(b *ast.Builder, root ast.NodeID, visit func(ast.NodeID)) {
	if !root.IsValid() {
		return
	}
	b.Walk(root, func(id ast.NodeID) bool {
		visit(id)
		if b.Kind(id) != ast.KindLambda {
			return true
		}
		lam, _ := b.Lambda(id)
		for _, p := range lam.Params {
			if pd, ok := b.Param(p); ok {
				walkEvaluated(b, pd.Default, visit)
			}
		}
		return false
	})
}

// captured marks variables touched from nested scopes: loads resolved from
// an inner function and bindings made through global or nonlocal.
func (c *collector) captured() {
	c.res.Captured = bitmaps(1)[0]
	for v, sym := range c.res.Vars {
		if c.foreign(c.t.UsesOf(sym)) {
			c.res.Captured.Add(uint32(v)) // #nosec G115 -- variable count fits in uint32
			continue
		}
		if s := c.t.Symbol(sym); s != nil && c.foreign(s.Bindings) {
			c.res.Captured.Add(uint32(v)) // #nosec G115 -- variable count fits in uint32
		}
	}
}

func (c *collector) foreign(nodes []ast.NodeID) bool {
	for _, n := range nodes {
		if c.b.EnclosingFunction(n) != c.g.Func {
			return true
		}
	}
	return false
}
