package callgraph

import (
	"context"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"

	"codescope/internal/ast"
	"codescope/internal/symbols"
)

// Build scans every call in the given modules. Modules are scanned in
// parallel into private slots and merged by one writer in module order.
func Build(ctx context.Context, b *ast.Builder, table *symbols.Table, modules []string, jobs int) (*Graph, error) {
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	slots := make([][]Edge, len(modules))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, key := range modules {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			root, ok := table.ModuleRoot(key)
			if !ok {
				return nil
			}
			slots[i] = scanModule(b, table, root)
			return nil
		})
	}
	err := g.Wait()
	return newGraph(slices.Concat(slots...)), err
}

func scanModule(b *ast.Builder, table *symbols.Table, root symbols.ScopeID) []Edge {
	r := resolver{b: b, t: table}
	var edges []Edge
	for i := 1; i <= table.Scopes.Len(); i++ {
		id := symbols.ScopeID(i) // #nosec G115 -- bounded by arena size
		sc := table.Scope(id)
		if sc.Module != root || !sc.Owner.IsValid() {
			continue
		}
		caller := callerOf(table, id)
		symbols.WalkRegion(b, sc.Owner, func(n ast.NodeID) {
			if b.Kind(n) != ast.KindCall {
				return
			}
			call, _ := b.Call(n)
			e := r.callee(call.Func)
			e.Caller, e.Site = caller, n
			edges = append(edges, e)
		})
	}
	return edges
}

// callerOf maps a scope to the function-like node whose CFG runs its code;
// class bodies execute in the enclosing function.
func callerOf(table *symbols.Table, id symbols.ScopeID) ast.NodeID {
	for cur := id; cur.IsValid(); {
		sc := table.Scope(cur)
		if sc.Kind != symbols.ScopeClass {
			return sc.Owner
		}
		cur = sc.Parent
	}
	return ast.NoNodeID
}

type resolver struct {
	b *ast.Builder
	t *symbols.Table
}

func (r resolver) callee(fn ast.NodeID) Edge {
	e := Edge{Hint: Hint(r.b, fn)}
	switch r.b.Kind(fn) {
	case ast.KindName:
		r.bind(&e, r.t.SymbolOf(fn))
	case ast.KindAttribute:
		attr, _ := r.b.Attribute(fn)
		if key, ok := r.moduleOf(attr.Value); ok {
			if root, ok := r.t.ModuleRoot(key); ok {
				r.bind(&e, r.t.Lookup(root, r.b.Name(attr.Attr)))
			}
		}
	}
	return e
}

func (r resolver) bind(e *Edge, sym symbols.SymbolID) {
	if !sym.IsValid() {
		return
	}
	final := r.t.Final(sym)
	e.Symbol = final
	s := r.t.Symbol(final)
	switch s.Kind {
	case symbols.SymbolFunction:
		e.Kind, e.Callee = CalleeFunction, s.Decl
	case symbols.SymbolClass:
		e.Kind, e.Callee = CalleeClass, s.Decl
	case symbols.SymbolBuiltin:
		e.Kind = CalleeBuiltin
	}
}

// moduleOf reports the Program module an expression denotes: a name bound to
// an import of a module, or an attribute chain through packages.
func (r resolver) moduleOf(expr ast.NodeID) (string, bool) {
	switch r.b.Kind(expr) {
	case ast.KindName:
		s := r.t.Symbol(r.t.Final(r.t.SymbolOf(expr)))
		if s == nil || s.TargetModule == "" {
			return "", false
		}
		return s.TargetModule, true
	case ast.KindAttribute:
		attr, _ := r.b.Attribute(expr)
		base, ok := r.moduleOf(attr.Value)
		if !ok {
			return "", false
		}
		name := r.b.Name(attr.Attr)
		if _, ok := r.t.ModuleRoot(base + "." + name); ok {
			return base + "." + name, true
		}
		root, _ := r.t.ModuleRoot(base)
		s := r.t.Symbol(r.t.Final(r.t.Lookup(root, name)))
		if s == nil || s.TargetModule == "" {
			return "", false
		}
		return s.TargetModule, true
	}
	return "", false
}
