package driver

import (
	"io"
	"slices"
	"strconv"
	"strings"

	"codescope/internal/ast"
	"codescope/internal/callgraph"
	"codescope/internal/symbols"
)

// ---- cfg ----

type CFGStmt struct {
	Kind string `json:"kind" msgpack:"kind"`
	Line uint32 `json:"line" msgpack:"line"`
}

type CFGBlock struct {
	ID        int32     `json:"id" msgpack:"id"`
	Reachable bool      `json:"reachable" msgpack:"reachable"`
	Stmts     []CFGStmt `json:"stmts" msgpack:"stmts"`
}

type CFGEdge struct {
	From int32  `json:"from" msgpack:"from"`
	To   int32  `json:"to" msgpack:"to"`
	Kind string `json:"kind" msgpack:"kind"`
}

// Condition is a branch point: the block ending in it, the statement kind
// and the source text of the test. For a for loop the test is the iterable.
type Condition struct {
	Block int32  `json:"block" msgpack:"block"`
	Kind  string `json:"kind" msgpack:"kind"`
	Line  uint32 `json:"line" msgpack:"line"`
	Test  string `json:"test" msgpack:"test"`
}

type CFGFunction struct {
	Name       string      `json:"name" msgpack:"name"`
	Position   Position    `json:"position" msgpack:"position"`
	Entry      int32       `json:"entry" msgpack:"entry"`
	Exit       int32       `json:"exit" msgpack:"exit"`
	Complexity int         `json:"complexity" msgpack:"complexity"`
	Blocks     []CFGBlock  `json:"blocks" msgpack:"blocks"`
	Edges      []CFGEdge   `json:"edges" msgpack:"edges"`
	Conditions []Condition `json:"conditions" msgpack:"conditions"`
}

type CFGView struct {
	Functions []CFGFunction `json:"functions" msgpack:"functions"`
}

func (*CFGView) Task() string { return "cfg" }

func newCFGView(r *Result) *CFGView {
	prog := r.Program
	b := prog.Builder
	v := &CFGView{Functions: make([]CFGFunction, 0, len(r.Graphs))}
	for _, g := range r.Graphs {
		if g == nil {
			continue
		}
		fn := CFGFunction{
			Name:       prog.qualify(g.Func),
			Position:   prog.pos(g.Func),
			Entry:      int32(g.Entry),
			Exit:       int32(g.Exit),
			Complexity: g.Complexity(),
			Blocks:     make([]CFGBlock, len(g.Blocks)),
			Edges:      make([]CFGEdge, len(g.Edges)),
		}
		for i, blk := range g.Blocks {
			cb := CFGBlock{ID: int32(blk.ID), Reachable: blk.Reachable, Stmts: make([]CFGStmt, len(blk.Stmts))}
			for j, st := range blk.Stmts {
				cb.Stmts[j] = CFGStmt{Kind: b.Kind(st).String(), Line: prog.pos(st).Line}
			}
			fn.Blocks[i] = cb
		}
		for i, e := range g.Edges {
			fn.Edges[i] = CFGEdge{From: int32(e.From), To: int32(e.To), Kind: e.Kind.String()}
		}
		for _, c := range g.Conditions(b) {
			fn.Conditions = append(fn.Conditions, Condition{
				Block: int32(c.Block),
				Kind:  b.Kind(c.Stmt).String(),
				Line:  prog.pos(c.Stmt).Line,
				Test:  prog.text(c.Test),
			})
		}
		v.Functions = append(v.Functions, fn)
	}
	return v
}

func (v *CFGView) WriteText(w io.Writer) error {
	ew := &errWriter{w: w}
	for _, fn := range v.Functions {
		ew.printf("function %s at %s (complexity %d)\n", fn.Name, fn.Position, fn.Complexity)
		for _, blk := range fn.Blocks {
			mark := ""
			switch {
			case blk.ID == fn.Entry && blk.ID == fn.Exit:
				mark = " entry exit"
			case blk.ID == fn.Entry:
				mark = " entry"
			case blk.ID == fn.Exit:
				mark = " exit"
			}
			if !blk.Reachable {
				mark += " unreachable"
			}
			ew.printf("  block %d%s: %s\n", blk.ID, mark, stmtList(blk.Stmts))
		}
		for _, e := range fn.Edges {
			ew.printf("  %d -> %d [%s]\n", e.From, e.To, e.Kind)
		}
		for _, c := range fn.Conditions {
			ew.printf("  condition in block %d, %s line %d: %s\n", c.Block, c.Kind, c.Line, c.Test)
		}
	}
	return ew.err
}

func stmtList(stmts []CFGStmt) string {
	parts := make([]string, len(stmts))
	for i, s := range stmts {
		parts[i] = s.Kind + "@" + strconv.FormatUint(uint64(s.Line), 10)
	}
	return strings.Join(parts, " ")
}

func (v *CFGView) WriteDot(w io.Writer) error {
	ew := &errWriter{w: w}
	ew.printf("digraph cfg {\n  node [shape=box];\n")
	for i, fn := range v.Functions {
		ew.printf("  subgraph cluster_%d {\n    label=%s;\n", i, dotQuote(fn.Name))
		for _, blk := range fn.Blocks {
			style := ""
			if !blk.Reachable {
				style = ", style=dashed"
			}
			ew.printf("    f%d_b%d [label=%s%s];\n", i, blk.ID, dotQuote("B"+strconv.Itoa(int(blk.ID))+" "+stmtList(blk.Stmts)), style)
		}
		for _, e := range fn.Edges {
			ew.printf("    f%d_b%d -> f%d_b%d [label=%s];\n", i, e.From, i, e.To, dotQuote(e.Kind))
		}
		ew.printf("  }\n")
	}
	ew.printf("}\n")
	return ew.err
}

// ---- callgraph ----

type CallEdge struct {
	Caller   string   `json:"caller" msgpack:"caller"`
	Callee   string   `json:"callee" msgpack:"callee"`
	Kind     string   `json:"kind" msgpack:"kind"`
	Position Position `json:"position" msgpack:"position"`
}

type CallGraphView struct {
	Edges []CallEdge `json:"edges" msgpack:"edges"`
}

func (*CallGraphView) Task() string { return "callgraph" }

func newCallGraphView(r *Result) *CallGraphView {
	prog := r.Program
	v := &CallGraphView{Edges: make([]CallEdge, len(r.Calls.Edges))}
	for i, e := range r.Calls.Edges {
		callee := e.Hint
		if e.Resolved() {
			callee = prog.qualify(e.Callee)
		}
		v.Edges[i] = CallEdge{
			Caller:   prog.qualify(e.Caller),
			Callee:   callee,
			Kind:     e.Kind.String(),
			Position: prog.pos(e.Site),
		}
	}
	return v
}

func (v *CallGraphView) WriteText(w io.Writer) error {
	ew := &errWriter{w: w}
	for _, e := range v.Edges {
		ew.printf("%s -> %s [%s] at %s\n", e.Caller, e.Callee, e.Kind, e.Position)
	}
	return ew.err
}

// WriteDot draws one edge per caller/callee pair; unresolved callees are
// dashed.
func (v *CallGraphView) WriteDot(w io.Writer) error {
	ew := &errWriter{w: w}
	ew.printf("digraph callgraph {\n")
	seen := make(map[[2]string]bool)
	for _, e := range v.Edges {
		pair := [2]string{e.Caller, e.Callee}
		if seen[pair] {
			continue
		}
		seen[pair] = true
		style := ""
		switch e.Kind {
		case callgraph.CalleeUnresolved.String():
			style = " [style=dashed]"
		case callgraph.CalleeBuiltin.String():
			style = " [color=gray]"
		}
		ew.printf("  %s -> %s%s;\n", dotQuote(e.Caller), dotQuote(e.Callee), style)
	}
	ew.printf("}\n")
	return ew.err
}

// ---- depgraph ----

type DepEdge struct {
	From    string `json:"from" msgpack:"from"`
	To      string `json:"to" msgpack:"to"`
	Imports int    `json:"imports" msgpack:"imports"`
	Uses    int    `json:"uses" msgpack:"uses"`
}

type External struct {
	Module  string   `json:"module" msgpack:"module"`
	Imports []string `json:"imports" msgpack:"imports"`
}

// DepGraphView is the module dependency graph. Order lists modules with
// dependencies first; Batches group modules that may be processed together.
type DepGraphView struct {
	Modules   []string   `json:"modules" msgpack:"modules"`
	Edges     []DepEdge  `json:"edges" msgpack:"edges"`
	Externals []External `json:"externals,omitempty" msgpack:"externals,omitempty"`
	Cycles    [][]string `json:"cycles,omitempty" msgpack:"cycles,omitempty"`
	Order     []string   `json:"order" msgpack:"order"`
	Batches   [][]string `json:"batches" msgpack:"batches"`
}

func (*DepGraphView) Task() string { return "depgraph" }

func newDepGraphView(r *Result) *DepGraphView {
	g, idx := r.Deps, r.Deps.Index
	v := &DepGraphView{Modules: slices.Clone(idx.IDToName)}
	for _, e := range g.AllEdges() {
		v.Edges = append(v.Edges, DepEdge{From: idx.Name(e.From), To: idx.Name(e.To), Imports: e.Imports, Uses: e.Uses})
	}
	mods := make([]string, 0, len(g.Externals))
	for m := range g.Externals {
		mods = append(mods, m)
	}
	slices.Sort(mods)
	for _, m := range mods {
		v.Externals = append(v.Externals, External{Module: m, Imports: g.Externals[m]})
	}
	for _, c := range g.Cycles() {
		names := make([]string, len(c.Members))
		for i, id := range c.Members {
			names[i] = idx.Name(id)
		}
		v.Cycles = append(v.Cycles, names)
	}
	if r.Topo != nil {
		for _, id := range r.Topo.Order {
			v.Order = append(v.Order, idx.Name(id))
		}
		for _, batch := range r.Topo.Batches {
			names := make([]string, len(batch))
			for i, id := range batch {
				names[i] = idx.Name(id)
			}
			v.Batches = append(v.Batches, names)
		}
	}
	return v
}

func (v *DepGraphView) WriteText(w io.Writer) error {
	ew := &errWriter{w: w}
	for _, e := range v.Edges {
		ew.printf("%s -> %s (imports %d, uses %d)\n", e.From, e.To, e.Imports, e.Uses)
	}
	for _, x := range v.Externals {
		ew.printf("%s imports external %s\n", x.Module, strings.Join(x.Imports, ", "))
	}
	for _, c := range v.Cycles {
		ew.printf("cycle: %s\n", strings.Join(c, " -> "))
	}
	ew.printf("order: %s\n", strings.Join(v.Order, ", "))
	return ew.err
}

func (v *DepGraphView) WriteDot(w io.Writer) error {
	ew := &errWriter{w: w}
	inCycle := make(map[string]bool)
	for _, c := range v.Cycles {
		for _, m := range c {
			inCycle[m] = true
		}
	}
	ew.printf("digraph depgraph {\n")
	for _, m := range v.Modules {
		if inCycle[m] {
			ew.printf("  %s [color=red];\n", dotQuote(m))
			continue
		}
		ew.printf("  %s;\n", dotQuote(m))
	}
	for _, e := range v.Edges {
		ew.printf("  %s -> %s [label=%s];\n", dotQuote(e.From), dotQuote(e.To), dotQuote(strconv.Itoa(e.Imports+e.Uses)))
	}
	ew.printf("}\n")
	return ew.err
}

// ---- classes ----

type ClassEntry struct {
	Name       string   `json:"name" msgpack:"name"`
	Position   Position `json:"position" msgpack:"position"`
	Bases      []string `json:"bases,omitempty" msgpack:"bases,omitempty"`
	Methods    []string `json:"methods,omitempty" msgpack:"methods,omitempty"`
	Attributes []string `json:"attributes,omitempty" msgpack:"attributes,omitempty"`
}

// ClassesView is the class hierarchy. Bases that resolve to a class of the
// program carry its qualified name; anything else keeps its source text.
type ClassesView struct {
	Classes []ClassEntry `json:"classes" msgpack:"classes"`
}

func (*ClassesView) Task() string { return "classes" }

func newClassesView(r *Result) *ClassesView {
	prog, t := r.Program, r.Table
	b := prog.Builder
	v := &ClassesView{}
	for _, root := range prog.Roots() {
		b.Walk(root, func(id ast.NodeID) bool {
			if b.Kind(id) != ast.KindClassDef {
				return true
			}
			d, _ := b.Class(id)
			c := ClassEntry{Name: prog.qualify(id), Position: prog.pos(id)}
			for _, base := range d.Bases {
				c.Bases = append(c.Bases, baseName(prog, t, base))
			}
			c.Methods, c.Attributes = members(r, id, d.Body)
			v.Classes = append(v.Classes, c)
			return true
		})
	}
	return v
}

func baseName(prog *Program, t *symbols.Table, expr ast.NodeID) string {
	b := prog.Builder
	sym := t.SymbolOf(expr)
	if b.Kind(expr) == ast.KindAttribute {
		d, _ := b.Attribute(expr)
		if ms := t.Symbol(t.Final(t.SymbolOf(d.Value))); ms != nil && ms.Kind == symbols.SymbolModule {
			if root, ok := t.ModuleRoot(ms.TargetModule); ok {
				sym = t.Lookup(root, b.Name(d.Attr))
			}
		}
	}
	if s := t.Symbol(t.Final(sym)); s != nil && s.Kind == symbols.SymbolClass && s.Decl.IsValid() {
		return prog.qualify(s.Decl)
	}
	return prog.text(expr)
}

// members splits a class's own members into methods and attributes. The
// type checker's layout is used when available since it also sees
// attributes assigned through self; otherwise the body is scanned.
func members(r *Result, cls ast.NodeID, body []ast.NodeID) (methods, attrs []string) {
	b := r.Program.Builder
	if r.Types != nil {
		if tid, ok := r.Types.Classes[cls]; ok {
			in := r.Types.TypeInterner
			if info, ok := in.ClassInfo(tid); ok {
				for name, mt := range info.Members {
					if _, fn := in.FnInfo(mt); fn {
						methods = append(methods, name)
					} else {
						attrs = append(attrs, name)
					}
				}
				slices.Sort(methods)
				slices.Sort(attrs)
				return methods, attrs
			}
		}
	}
	for _, st := range body {
		switch b.Kind(st) {
		case ast.KindFunctionDef:
			methods = append(methods, b.FuncName(st))
		case ast.KindAssign:
			d, _ := b.Assign(st)
			for _, tgt := range d.Targets {
				if name, ok := b.Ident(tgt); ok {
					attrs = append(attrs, name)
				}
			}
		case ast.KindAnnAssign:
			d, _ := b.AnnAssign(st)
			if name, ok := b.Ident(d.Target); ok {
				attrs = append(attrs, name)
			}
		}
	}
	slices.Sort(methods)
	slices.Sort(attrs)
	return slices.Compact(methods), slices.Compact(attrs)
}

func (v *ClassesView) WriteText(w io.Writer) error {
	ew := &errWriter{w: w}
	for _, c := range v.Classes {
		ew.printf("class %s", c.Name)
		if len(c.Bases) > 0 {
			ew.printf("(%s)", strings.Join(c.Bases, ", "))
		}
		ew.printf(" at %s\n", c.Position)
		for _, m := range c.Methods {
			ew.printf("  def %s\n", m)
		}
		for _, a := range c.Attributes {
			ew.printf("  %s\n", a)
		}
	}
	return ew.err
}

// WriteDot renders a UML-like hierarchy: record nodes, hollow arrows from a
// class to its bases.
func (v *ClassesView) WriteDot(w io.Writer) error {
	ew := &errWriter{w: w}
	ew.printf("digraph classes {\n  rankdir=BT;\n  node [shape=record];\n")
	for _, c := range v.Classes {
		label := "{" + dotRecord(c.Name) + "|" + dotRecord(strings.Join(c.Attributes, `\l`)) + `\l|` +
			dotRecord(strings.Join(c.Methods, `()\l`))
		if len(c.Methods) > 0 {
			label += `()\l`
		}
		label += "}"
		ew.printf("  %s [label=\"%s\"];\n", dotQuote(c.Name), label)
	}
	for _, c := range v.Classes {
		for _, base := range c.Bases {
			ew.printf("  %s -> %s [arrowhead=empty];\n", dotQuote(c.Name), dotQuote(base))
		}
	}
	ew.printf("}\n")
	return ew.err
}

func dotQuote(s string) string {
	return strconv.Quote(s)
}

// dotRecord escapes the characters that structure a record label; the
// `\l` line breaks inserted by the caller are kept.
func dotRecord(s string) string {
	r := strings.NewReplacer(`"`, `\"`, "{", `\{`, "}", `\}`, "|", `\|`, "<", `\<`, ">", `\>`)
	return r.Replace(s)
}
