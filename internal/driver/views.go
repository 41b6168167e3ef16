package driver

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"codescope/internal/ast"
	"codescope/internal/diag"
	"codescope/internal/source"
	"codescope/internal/symbols"
	"codescope/internal/types"
)

// View is the output of one task. Views are plain data: they hold names,
// positions and rendered types, never pointers into the program, so they
// survive the result cache and serialize as JSON or msgpack.
type View interface {
	Task() string
	WriteText(w io.Writer) error
}

// DotView is implemented by graph views.
type DotView interface {
	View
	WriteDot(w io.Writer) error
}

// Position is a resolved source location.
type Position struct {
	Path string `json:"path" msgpack:"path"`
	Line uint32 `json:"line" msgpack:"line"`
	Col  uint32 `json:"col" msgpack:"col"`
}

func (p Position) String() string {
	if p.Path == "" {
		return "-"
	}
	return fmt.Sprintf("%s:%d:%d", p.Path, p.Line, p.Col)
}

// RelPath renders a file path relative to the program root.
func (p *Program) RelPath(file source.FileID) string {
	f := p.Files.Get(file)
	if f == nil {
		return ""
	}
	return f.FormatPath("relative", p.Files.BaseDir())
}

func (p *Program) spanPos(sp source.Span) Position {
	if sp == (source.Span{}) || p.Files.Get(sp.File) == nil {
		return Position{}
	}
	start, _ := p.Files.Resolve(sp)
	return Position{Path: p.RelPath(sp.File), Line: start.Line, Col: start.Col}
}

func (p *Program) pos(id ast.NodeID) Position {
	if !id.IsValid() {
		return Position{}
	}
	return p.spanPos(p.Builder.Span(id))
}

func (p *Program) text(id ast.NodeID) string {
	if !id.IsValid() {
		return ""
	}
	return p.Files.Text(p.Builder.Span(id))
}

// moduleKey returns the key of the module holding id.
func (p *Program) moduleKey(id ast.NodeID) string {
	d, ok := p.Builder.Module(p.Builder.ModuleOf(id))
	if !ok {
		return ""
	}
	return p.Builder.Name(d.Key)
}

// qualify names a def, class, lambda or module node globally: "pkg.util",
// "pkg.util.Shape.area".
func (p *Program) qualify(id ast.NodeID) string {
	if !id.IsValid() {
		return ""
	}
	key := p.moduleKey(id)
	if p.Builder.Kind(id) == ast.KindModule {
		return key
	}
	return key + "." + p.Builder.QualifiedName(id)
}

// DiagnosticView is a diagnostic with its location resolved.
type DiagnosticView struct {
	Severity string   `json:"severity" msgpack:"severity"`
	Code     string   `json:"code" msgpack:"code"`
	Category string   `json:"category" msgpack:"category"`
	Message  string   `json:"message" msgpack:"message"`
	Position Position `json:"position" msgpack:"position"`
	Notes    []string `json:"notes,omitempty" msgpack:"notes,omitempty"`
}

func (v DiagnosticView) String() string {
	return fmt.Sprintf("%s: %s %s: %s", v.Position, v.Severity, v.Code, v.Message)
}

// DiagnosticViews resolves diagnostics against the program.
func (p *Program) DiagnosticViews(items []diag.Diagnostic) []DiagnosticView {
	out := make([]DiagnosticView, len(items))
	for i, d := range items {
		out[i] = DiagnosticView{
			Severity: d.Severity.String(),
			Code:     d.Code.ID(),
			Category: d.Category.String(),
			Message:  d.Message,
			Position: p.spanPos(d.Primary),
		}
		for _, n := range d.Notes {
			out[i].Notes = append(out[i].Notes, fmt.Sprintf("%s: %s", p.spanPos(n.Span), n.Msg))
		}
	}
	return out
}

func diagnosticsOf(r *Result, cat diag.Category) []DiagnosticView {
	var items []diag.Diagnostic
	for _, d := range r.Diagnostics {
		if d.Category == cat {
			items = append(items, d)
		}
	}
	return r.Program.DiagnosticViews(items)
}

// ---- ast ----

type ASTNode struct {
	ID       uint32 `json:"id" msgpack:"id"`
	Kind     string `json:"kind" msgpack:"kind"`
	Depth    int    `json:"depth" msgpack:"depth"`
	Line     uint32 `json:"line" msgpack:"line"`
	Col      uint32 `json:"col" msgpack:"col"`
	Label    string `json:"label,omitempty" msgpack:"label,omitempty"`
	Children int    `json:"children" msgpack:"children"`
}

type ASTModule struct {
	Key   string    `json:"key" msgpack:"key"`
	Path  string    `json:"path" msgpack:"path"`
	Nodes []ASTNode `json:"nodes" msgpack:"nodes"`
}

// ASTView lists every module's nodes in pre-order with their depth.
type ASTView struct {
	Modules []ASTModule `json:"modules" msgpack:"modules"`
}

func (*ASTView) Task() string { return "ast" }

func newASTView(r *Result) *ASTView {
	prog := r.Program
	b := prog.Builder
	v := &ASTView{Modules: make([]ASTModule, 0, len(prog.Modules))}
	type item struct {
		id    ast.NodeID
		depth int
	}
	for _, m := range prog.Modules {
		mod := ASTModule{Key: m.Key, Path: prog.RelPath(m.File)}
		stack := []item{{id: m.Node}}
		for len(stack) > 0 {
			it := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			kids := b.Children(it.id)
			pos := prog.pos(it.id)
			mod.Nodes = append(mod.Nodes, ASTNode{
				ID:       uint32(it.id),
				Kind:     b.Kind(it.id).String(),
				Depth:    it.depth,
				Line:     pos.Line,
				Col:      pos.Col,
				Label:    nodeLabel(b, it.id),
				Children: len(kids),
			})
			for i := len(kids) - 1; i >= 0; i-- {
				stack = append(stack, item{id: kids[i], depth: it.depth + 1})
			}
		}
		v.Modules = append(v.Modules, mod)
	}
	return v
}

// nodeLabel is the short payload shown next to a node kind.
func nodeLabel(b *ast.Builder, id ast.NodeID) string {
	switch b.Kind(id) {
	case ast.KindFunctionDef, ast.KindClassDef:
		return b.FuncName(id)
	case ast.KindName:
		name, _ := b.Ident(id)
		if ctx := b.Get(id).Ctx; ctx != ast.CtxLoad {
			return name + " (" + ctx.String() + ")"
		}
		return name
	case ast.KindConst:
		d, _ := b.Const(id)
		return b.Name(d.Raw)
	case ast.KindAttribute:
		d, _ := b.Attribute(id)
		return "." + b.Name(d.Attr)
	case ast.KindParam:
		d, _ := b.Param(id)
		return b.Name(d.Name)
	case ast.KindAlias:
		d, _ := b.Alias(id)
		if as := b.Name(d.AsName); as != "" {
			return b.Name(d.Name) + " as " + as
		}
		return b.Name(d.Name)
	case ast.KindKeyword:
		d, _ := b.Keyword(id)
		return b.Name(d.Name)
	case ast.KindImportFrom:
		d, _ := b.Import(id)
		return strings.Repeat(".", d.Level) + b.Name(d.Module)
	case ast.KindExceptHandler:
		d, _ := b.Handler(id)
		return b.Name(d.Name)
	case ast.KindGlobal, ast.KindNonlocal:
		d, _ := b.NameList(id)
		names := make([]string, len(d.Names))
		for i, n := range d.Names {
			names[i] = b.Name(n)
		}
		return strings.Join(names, ", ")
	case ast.KindBinary:
		d, _ := b.Binary(id)
		return d.Op.String()
	case ast.KindUnary:
		d, _ := b.Unary(id)
		return d.Op.String()
	case ast.KindAugAssign:
		d, _ := b.AugAssign(id)
		return d.Op.String() + "="
	case ast.KindBoolOp:
		d, _ := b.BoolOp(id)
		return d.Op.String()
	case ast.KindCompare:
		d, _ := b.Compare(id)
		ops := make([]string, len(d.Ops))
		for i, op := range d.Ops {
			ops[i] = op.String()
		}
		return strings.Join(ops, " ")
	}
	return ""
}

func (v *ASTView) WriteText(w io.Writer) error {
	ew := &errWriter{w: w}
	for _, m := range v.Modules {
		ew.printf("module %s (%s)\n", m.Key, m.Path)
		for _, n := range m.Nodes {
			ew.printf("%s%s", strings.Repeat("  ", n.Depth+1), n.Kind)
			if n.Label != "" {
				ew.printf(" %s", n.Label)
			}
			ew.printf(" @%d:%d\n", n.Line, n.Col)
		}
	}
	return ew.err
}

// ---- symbols ----

type SymbolEntry struct {
	Name   string   `json:"name" msgpack:"name"`
	Kind   string   `json:"kind" msgpack:"kind"`
	Line   uint32   `json:"line,omitempty" msgpack:"line,omitempty"`
	State  string   `json:"state" msgpack:"state"`
	Flags  []string `json:"flags,omitempty" msgpack:"flags,omitempty"`
	Target string   `json:"target,omitempty" msgpack:"target,omitempty"`
	Uses   int      `json:"uses" msgpack:"uses"`
}

type ScopeEntry struct {
	ID      uint32        `json:"id" msgpack:"id"`
	Kind    string        `json:"kind" msgpack:"kind"`
	Parent  uint32        `json:"parent,omitempty" msgpack:"parent,omitempty"`
	Owner   string        `json:"owner" msgpack:"owner"`
	Module  string        `json:"module" msgpack:"module"`
	Symbols []SymbolEntry `json:"symbols" msgpack:"symbols"`
}

type ParamEntry struct {
	Name    string `json:"name" msgpack:"name"`
	Type    string `json:"type" msgpack:"type"`
	Default bool   `json:"default,omitempty" msgpack:"default,omitempty"`
}

// Signature is a function header as the type checker sees it; test input
// generators read parameter names and types from here.
type Signature struct {
	Function   string       `json:"function" msgpack:"function"`
	Position   Position     `json:"position" msgpack:"position"`
	Params     []ParamEntry `json:"params" msgpack:"params"`
	Variadic   bool         `json:"variadic,omitempty" msgpack:"variadic,omitempty"`
	KwVariadic bool         `json:"kw_variadic,omitempty" msgpack:"kw_variadic,omitempty"`
	Returns    string       `json:"returns" msgpack:"returns"`
}

type UnresolvedName struct {
	Name   string   `json:"name" msgpack:"name"`
	Module string   `json:"module" msgpack:"module"`
	Uses   int      `json:"uses" msgpack:"uses"`
	First  Position `json:"first" msgpack:"first"`
}

// SymbolsView is the semantic summary: scopes with their symbols, function
// signatures and names that resolve nowhere.
type SymbolsView struct {
	Scopes     []ScopeEntry     `json:"scopes" msgpack:"scopes"`
	Signatures []Signature      `json:"signatures" msgpack:"signatures"`
	Unresolved []UnresolvedName `json:"unresolved" msgpack:"unresolved"`
}

func (*SymbolsView) Task() string { return "symbols" }

func newSymbolsView(r *Result) *SymbolsView {
	prog, t := r.Program, r.Table
	v := &SymbolsView{}
	for i := 1; i <= t.Scopes.Len(); i++ {
		sid := symbols.ScopeID(i) // #nosec G115 -- bounded by arena size
		sc := t.Scope(sid)
		if sc == nil || sc.Kind == symbols.ScopeBuiltin {
			continue
		}
		module := t.ModuleKey(sc.Module)
		if sc.Kind == symbols.ScopeExternal {
			for _, id := range sc.Symbols {
				uses := t.UsesOf(id)
				u := UnresolvedName{Name: t.NameOf(id), Module: module, Uses: len(uses)}
				if len(uses) > 0 {
					u.First = prog.pos(uses[0])
				}
				v.Unresolved = append(v.Unresolved, u)
			}
			continue
		}
		entry := ScopeEntry{
			ID:     uint32(sid),
			Kind:   sc.Kind.String(),
			Owner:  prog.qualify(sc.Owner),
			Module: module,
		}
		if p := t.Scope(sc.Parent); p != nil && p.Kind != symbols.ScopeBuiltin {
			entry.Parent = uint32(sc.Parent)
		}
		for _, id := range sc.Symbols {
			entry.Symbols = append(entry.Symbols, symbolEntry(prog, t, id))
		}
		v.Scopes = append(v.Scopes, entry)
	}
	if r.Types != nil {
		v.Signatures = signatures(prog, r.Types.TypeInterner, r.Types.Signatures)
	}
	return v
}

func symbolEntry(prog *Program, t *symbols.Table, id symbols.SymbolID) SymbolEntry {
	sym := t.Symbol(id)
	e := SymbolEntry{
		Name:  t.NameOf(id),
		Kind:  sym.Kind.String(),
		Line:  prog.pos(sym.Decl).Line,
		State: sym.State.String(),
		Flags: sym.Flags.Strings(),
		Uses:  len(t.UsesOf(id)),
	}
	switch {
	case sym.Target.IsValid():
		e.Target = t.NameOf(sym.Target)
		if target := t.Symbol(sym.Target); target != nil {
			if sc := t.Scope(target.Scope); sc != nil && sc.Kind == symbols.ScopeModule {
				e.Target = t.ModuleKey(sc.Module) + "." + e.Target
			}
		}
	case sym.TargetModule != "":
		e.Target = sym.TargetModule
	case sym.ImportModule != "":
		e.Target = sym.ImportModule
		if sym.ImportName != "" {
			e.Target += "." + sym.ImportName
		}
	}
	return e
}

// signatures renders the function types of defs in node order; lambdas are
// left out.
func signatures(prog *Program, in *types.Interner, sigs map[ast.NodeID]types.TypeID) []Signature {
	ids := make([]ast.NodeID, 0, len(sigs))
	for id := range sigs {
		if prog.Builder.Kind(id) == ast.KindFunctionDef {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	out := make([]Signature, 0, len(ids))
	for _, id := range ids {
		info, ok := in.FnInfo(sigs[id])
		if !ok {
			continue
		}
		s := Signature{
			Function:   prog.qualify(id),
			Position:   prog.pos(id),
			Params:     make([]ParamEntry, len(info.Params)),
			Variadic:   info.Variadic,
			KwVariadic: info.KwVariadic,
			Returns:    in.String(info.Result),
		}
		for i, p := range info.Params {
			s.Params[i] = ParamEntry{Name: p.Name, Type: in.String(p.Type), Default: p.HasDefault}
		}
		out = append(out, s)
	}
	return out
}

func (s Signature) String() string {
	params := make([]string, len(s.Params))
	for i, p := range s.Params {
		params[i] = p.Name + ": " + p.Type
		if p.Default {
			params[i] += " = ..."
		}
	}
	return fmt.Sprintf("%s(%s) -> %s", s.Function, strings.Join(params, ", "), s.Returns)
}

func (v *SymbolsView) WriteText(w io.Writer) error {
	ew := &errWriter{w: w}
	for _, sc := range v.Scopes {
		ew.printf("scope %d %s %s\n", sc.ID, sc.Kind, sc.Owner)
		for _, s := range sc.Symbols {
			ew.printf("  %-20s %-9s line %-4d uses %d", s.Name, s.Kind, s.Line, s.Uses)
			if s.Target != "" {
				ew.printf(" -> %s", s.Target)
			}
			if len(s.Flags) > 0 {
				ew.printf(" [%s]", strings.Join(s.Flags, ","))
			}
			ew.printf("\n")
		}
	}
	if len(v.Signatures) > 0 {
		ew.printf("signatures:\n")
		for _, s := range v.Signatures {
			ew.printf("  %s\n", s)
		}
	}
	if len(v.Unresolved) > 0 {
		ew.printf("unresolved:\n")
		for _, u := range v.Unresolved {
			ew.printf("  %s in %s (%d uses, first at %s)\n", u.Name, u.Module, u.Uses, u.First)
		}
	}
	return ew.err
}

// errWriter keeps the first write error so renderers can print freely.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
