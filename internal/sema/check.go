package sema

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"codescope/internal/ast"
	"codescope/internal/diag"
	"codescope/internal/symbols"
	"codescope/internal/types"
)

// DefaultMaxSteps bounds unification steps per function when Options.MaxSteps
// is zero.
const DefaultMaxSteps = 1 << 16

// Options configure a semantic pass over a program.
type Options struct {
	Reporter diag.Reporter
	Types    *types.Interner
	Jobs     int
	Timeout  time.Duration // per function; zero disables
	MaxSteps int
	// Order lists module roots in checking order, dependencies first. Nil
	// checks modules in table order.
	Order []ast.NodeID
}

// Result stores semantic artefacts produced by the checker.
type Result struct {
	TypeInterner *types.Interner
	ExprTypes    map[ast.NodeID]types.TypeID
	SymbolTypes  map[symbols.SymbolID]types.TypeID
	Signatures   map[ast.NodeID]types.TypeID // FunctionDef and Lambda
	Classes      map[ast.NodeID]types.TypeID // ClassDef
	// Incomplete lists function-like nodes whose checking stopped early.
	Incomplete []ast.NodeID
}

// TypeOf returns the inferred type of an expression, Unknown when the node
// was never typed.
func (r *Result) TypeOf(id ast.NodeID) types.TypeID {
	if t, ok := r.ExprTypes[id]; ok {
		return t
	}
	return r.TypeInterner.Builtins().Unknown
}

// TypeString renders TypeOf(id).
func (r *Result) TypeString(id ast.NodeID) string {
	return r.TypeInterner.String(r.TypeOf(id))
}

// unitResult is what checking one module body or function produces.
type unitResult struct {
	owner      ast.NodeID
	exprs      map[ast.NodeID]types.TypeID
	syms       map[symbols.SymbolID]types.TypeID
	incomplete bool
}

// Check infers and checks types for the whole program. Module bodies run
// first, one after another, and publish their global types; then every def
// and lambda is checked in parallel against the frozen signatures and
// globals. Only cancellation of ctx is returned as an error; the result then
// holds what was finished.
func Check(ctx context.Context, b *ast.Builder, table *symbols.Table, opts Options) (*Result, error) {
	res := &Result{
		TypeInterner: opts.Types,
		ExprTypes:    make(map[ast.NodeID]types.TypeID),
		SymbolTypes:  make(map[symbols.SymbolID]types.TypeID),
	}
	if res.TypeInterner == nil {
		res.TypeInterner = types.NewInterner()
	}
	if opts.MaxSteps == 0 {
		opts.MaxSteps = DefaultMaxSteps
	}
	rep := opts.Reporter
	if rep == nil {
		rep = diag.NopReporter{}
	}

	roots := opts.Order
	if roots == nil {
		for _, key := range table.Modules() {
			scope, _ := table.ModuleRoot(key)
			roots = append(roots, table.Scope(scope).Owner)
		}
	}
	e := newEnv(b, table, res.TypeInterner)
	e.collect(roots)
	res.Signatures = e.sigs
	res.Classes = e.classes

	for _, root := range roots {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		ur, err := checkUnit(ctx, e, root, rep, opts)
		res.merge(ur)
		if err != nil {
			return res, err
		}
		for sym, t := range ur.syms {
			e.globals[sym] = t
		}
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	units := make([]*unitResult, len(e.funcs))
	bags := make([]*diag.Bag, len(e.funcs))
	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(jobs)
	for i, fn := range e.funcs {
		eg.Go(func() error {
			if err := ectx.Err(); err != nil {
				return err
			}
			bags[i] = diag.NewBag(0)
			ur, err := checkUnit(ectx, e, fn, diag.BagReporter{Bag: bags[i]}, opts)
			units[i] = ur
			return err
		})
	}
	err := eg.Wait()
	for i := range units {
		if units[i] != nil {
			res.merge(units[i])
		}
		if bags[i] != nil {
			diag.Forward(rep, bags[i].Items())
		}
	}
	return res, err
}

func (r *Result) merge(ur *unitResult) {
	if ur == nil {
		return
	}
	for id, t := range ur.exprs {
		r.ExprTypes[id] = t
	}
	for sym, t := range ur.syms {
		r.SymbolTypes[sym] = t
	}
	if ur.incomplete {
		r.Incomplete = append(r.Incomplete, ur.owner)
	}
}

// checkUnit checks one module body, def or lambda.
func checkUnit(ctx context.Context, e *env, owner ast.NodeID, rep diag.Reporter, opts Options) (*unitResult, error) {
	fctx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		fctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	tc := newTypeChecker(fctx, e, owner, rep, opts.MaxSteps)
	tc.run()
	ur := tc.finish()
	if tc.err == nil {
		return ur, nil
	}
	ur.incomplete = true
	name := e.builder.QualifiedName(owner)
	span := e.builder.Span(owner)
	switch {
	case ctx.Err() != nil:
		return ur, ctx.Err()
	case errors.Is(tc.err, errStepLimit):
		diag.ReportWarning(rep, diag.AnaNotConverged, owner, span,
			fmt.Sprintf("type inference of %q did not converge after %d steps", name, tc.solver.steps-1)).Emit()
	case errors.Is(tc.err, context.DeadlineExceeded):
		diag.ReportWarning(rep, diag.AnaTimeout, owner, span,
			fmt.Sprintf("type checking of %q timed out after %s", name, opts.Timeout)).Emit()
	default:
		return ur, tc.err
	}
	return ur, nil
}

// typeChecker checks the region evaluated in one scope: a module or def body
// with its class bodies inline, or a lambda body. Nested defs and lambdas
// are their own units.
type typeChecker struct {
	env      *env
	builder  *ast.Builder
	table    *symbols.Table
	types    *types.Interner
	reporter diag.Reporter
	solver   *solver

	owner  ast.NodeID
	scope  symbols.ScopeID
	result types.TypeID // declared return type; NoTypeID when unannotated
	exprs  map[ast.NodeID]types.TypeID
	locals map[symbols.SymbolID]types.TypeID
	err    error // set once checking has to stop
}

func newTypeChecker(ctx context.Context, e *env, owner ast.NodeID, rep diag.Reporter, maxSteps int) *typeChecker {
	tc := &typeChecker{
		env:      e,
		builder:  e.builder,
		table:    e.table,
		types:    e.types,
		reporter: rep,
		solver:   newSolver(ctx, e.types, maxSteps),
		owner:    owner,
		scope:    e.table.ScopeOf(owner),
		exprs:    make(map[ast.NodeID]types.TypeID),
		locals:   make(map[symbols.SymbolID]types.TypeID),
	}
	if fn, ok := e.builder.Func(owner); ok && fn.Returns.IsValid() {
		info, _ := e.types.FnInfo(e.sigs[owner])
		tc.result = info.Result
	}
	return tc
}

func (tc *typeChecker) run() {
	switch tc.builder.Kind(tc.owner) {
	case ast.KindLambda:
		lam, _ := tc.builder.Lambda(tc.owner)
		tc.expr(lam.Body)
	default:
		tc.stmts(tc.builder.Body(tc.owner))
	}
}

// finish zonks everything the unit inferred.
func (tc *typeChecker) finish() *unitResult {
	ur := &unitResult{
		owner: tc.owner,
		exprs: make(map[ast.NodeID]types.TypeID, len(tc.exprs)),
		syms:  make(map[symbols.SymbolID]types.TypeID, len(tc.locals)),
	}
	for id, t := range tc.exprs {
		ur.exprs[id] = tc.solver.zonk(t)
	}
	for sym, t := range tc.locals {
		ur.syms[sym] = tc.solver.zonk(t)
	}
	return ur
}

func (tc *typeChecker) unknown() types.TypeID {
	return tc.types.Builtins().Unknown
}

// stopped reports whether a step limit, timeout or cancellation ended the
// unit.
func (tc *typeChecker) stopped() bool {
	return tc.err != nil
}

// failure handles the outcome of a constraint. A mismatch is reported once
// at node with code and the involved types are isolated; an occurs-check
// failure is reported as an infinite type. Any other error stops the unit.
func (tc *typeChecker) failure(err error, node ast.NodeID, code diag.Code, format func(got, want string) string, involved ...types.TypeID) bool {
	if err == nil {
		return false
	}
	var mm *mismatchError
	var inf *infiniteError
	switch {
	case errors.As(err, &inf):
		tc.report(diag.TypInfinite, node, inf.message(tc.solver))
	case errors.As(err, &mm):
		tc.report(code, node, format(tc.solver.describe(mm.got), tc.solver.describe(mm.want)))
	default:
		tc.err = err
		return true
	}
	tc.solver.isolate(involved...)
	return true
}

func (tc *typeChecker) report(code diag.Code, node ast.NodeID, msg string) {
	if tc.reporter == nil {
		return
	}
	diag.ReportError(tc.reporter, code, node, tc.builder.Span(node), msg).Emit()
}

// fail reports a check that needs no solver, e.g. a bad operand kind.
func (tc *typeChecker) fail(code diag.Code, node ast.NodeID, format string, args ...any) {
	tc.report(code, node, fmt.Sprintf(format, args...))
}

// isLocal reports whether sym is owned by this unit: declared in its scope
// or in a class body nested directly inside it.
func (tc *typeChecker) isLocal(id symbols.SymbolID) bool {
	sym := tc.table.Symbol(id)
	if sym == nil {
		return false
	}
	sc := sym.Scope
	for {
		s := tc.table.Scope(sc)
		if s == nil || s.Kind != symbols.ScopeClass {
			break
		}
		sc = s.Parent
	}
	return sc == tc.scope
}

// local returns the type slot of a local variable or parameter.
func (tc *typeChecker) local(id symbols.SymbolID) types.TypeID {
	if t, ok := tc.locals[id]; ok {
		return t
	}
	sym := tc.table.Symbol(id)
	var t types.TypeID
	switch {
	case sym.Kind == symbols.SymbolParam:
		t = tc.paramType(sym)
	case sym.Annotation.IsValid():
		t = tc.env.annotation(sym.Annotation)
	default:
		t = tc.solver.fresh()
	}
	tc.locals[id] = t
	return t
}

func (tc *typeChecker) paramType(sym *symbols.Symbol) types.TypeID {
	pd, ok := tc.builder.Param(sym.Decl)
	if !ok || pd.Kind != ast.ParamNormal {
		return tc.unknown()
	}
	info, ok := tc.types.FnInfo(tc.env.sigs[tc.owner])
	if !ok {
		return tc.unknown()
	}
	name := tc.builder.Name(pd.Name)
	for _, p := range info.Params {
		if p.Name == name {
			return p.Type
		}
	}
	return tc.unknown()
}

// symbolType is the type of a name load.
func (tc *typeChecker) symbolType(id symbols.SymbolID) types.TypeID {
	id = tc.table.Final(id)
	sym := tc.table.Symbol(id)
	if sym == nil {
		return tc.unknown()
	}
	switch sym.Kind {
	case symbols.SymbolBuiltin:
		return tc.env.builtinType(tc.table.NameOf(id))
	case symbols.SymbolExternal:
		return tc.unknown()
	case symbols.SymbolFunction:
		return tc.env.functionValue(sym.Decl)
	case symbols.SymbolClass:
		if t, ok := tc.env.classType(id); ok {
			return t
		}
		return tc.unknown()
	case symbols.SymbolModule, symbols.SymbolImport:
		if sym.TargetModule != "" {
			return tc.types.Module(sym.TargetModule)
		}
		return tc.unknown()
	}
	if tc.isLocal(id) {
		return tc.local(id)
	}
	if t, ok := tc.env.globals[id]; ok {
		return t
	}
	return tc.unknown()
}
