package symbols

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"codescope/internal/ast"
	"codescope/internal/diag"
	"codescope/internal/source"
)

// Options configures use resolution.
type Options struct {
	Reporter diag.Reporter
	Jobs     int // parallel scope workers; <= 0 means GOMAXPROCS
}

type useRef struct {
	node ast.NodeID
	name source.StringID
	sym  SymbolID
}

// regionUses is the private result slot of one scope task.
type regionUses struct {
	scope ScopeID
	refs  []useRef
	done  bool
}

// ResolveUses binds every name load to a symbol. Each scope region is an
// independent read-only task; results are merged afterwards by a single
// writer in scope order, so the table contents do not depend on scheduling.
// Loads that find nothing become external pseudo-symbols with a warning.
//
// On cancellation the slots that did finish are still merged and ctx.Err()
// is returned.
func (t *Table) ResolveUses(ctx context.Context, b *ast.Builder, opts Options) error {
	var tasks []ScopeID
	for i := 1; i <= t.Scopes.Len(); i++ {
		id := ScopeID(i) // #nosec G115 -- bounded by arena size
		switch t.Scopes.Get(id).Kind {
		case ScopeModule, ScopeFunction, ScopeClass, ScopeLambda:
			tasks = append(tasks, id)
		}
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	slots := make([]regionUses, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, scope := range tasks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			slots[i] = t.resolveRegion(b, scope)
			return nil
		})
	}
	err := g.Wait()

	for i := range slots {
		if slots[i].done {
			t.mergeUses(b, &slots[i], opts.Reporter)
		}
	}
	return err
}

func (t *Table) resolveRegion(b *ast.Builder, scope ScopeID) regionUses {
	out := regionUses{scope: scope}
	WalkRegion(b, t.Scopes.Get(scope).Owner, func(id ast.NodeID) {
		n := b.Get(id)
		if n.Kind != ast.KindName || n.Ctx != ast.CtxLoad {
			return
		}
		name, _ := b.NameOf(id)
		out.refs = append(out.refs, useRef{node: id, name: name.Name, sym: t.Resolve(scope, name.Name)})
	})
	out.done = true
	return out
}

func (t *Table) mergeUses(b *ast.Builder, slot *regionUses, rep diag.Reporter) {
	module := t.Scopes.Get(slot.scope).Module
	for _, ref := range slot.refs {
		sym := ref.sym
		if !sym.IsValid() {
			sym = t.External(module, ref.name)
			diag.ReportWarning(rep, diag.ResUnresolvedName, ref.node, b.Span(ref.node),
				"name '"+b.Name(ref.name)+"' is not defined").Emit()
		}
		t.nodeSymbol[ref.node] = sym
		t.uses[sym] = append(t.uses[sym], ref.node)
	}
}

// Resolve runs the whole resolution stage over a set of modules: collection
// per module, cross-module linking, then parallel use resolution.
func Resolve(ctx context.Context, b *ast.Builder, modules []ModuleInput, opts Options) (*Table, error) {
	t := NewTable(Hints{Scopes: uint(len(modules)) * 8}, b.Strings)
	for _, m := range modules {
		if err := ctx.Err(); err != nil {
			return t, err
		}
		t.Collect(b, m, opts.Reporter)
	}
	t.Link(b, opts.Reporter)
	return t, t.ResolveUses(ctx, b, opts)
}
