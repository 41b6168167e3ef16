// Package lint runs independent checks over the finished analysis views.
// Rules never mutate the snapshot, so they run concurrently; their findings
// are merged by one writer in rule order.
package lint

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"codescope/internal/ast"
	"codescope/internal/callgraph"
	"codescope/internal/cfg"
	"codescope/internal/dataflow"
	"codescope/internal/depgraph"
	"codescope/internal/diag"
	"codescope/internal/symbols"
)

// ErrUnknownRule is wrapped by Options validation errors.
var ErrUnknownRule = errors.New("unknown lint rule")

// RuleDependencyCycle names the rule that reports import cycles.
const RuleDependencyCycle = "dependency-cycle"

// Snapshot is the read-only input of every rule. Flows is indexed like
// Graphs; any view may be missing, and rules that need it then report
// nothing. CyclesReported is set when whoever built Deps has already
// reported its cycles.
type Snapshot struct {
	Builder *ast.Builder
	Table   *symbols.Table
	Graphs  []*cfg.Graph
	Flows   []*dataflow.Result
	Calls   *callgraph.Graph
	Deps    *depgraph.Graph

	CyclesReported bool
}

// Rule is one named check.
type Rule struct {
	Name  string
	Code  diag.Code
	check func(s *Snapshot, rep diag.Reporter)
}

var rules = []Rule{
	{Name: "unreachable-code", Code: diag.LntUnreachable, check: unreachableCode},
	{Name: "unused-symbol", Code: diag.LntUnusedSymbol, check: unusedSymbol},
	{Name: RuleDependencyCycle, Code: diag.LntDependencyCycle, check: dependencyCycle},
	{Name: "dead-store", Code: diag.LntDeadStore, check: deadStore},
	{Name: "use-before-def", Code: diag.LntUseBeforeDef, check: useBeforeDef},
	{Name: "unresolved-call", Code: diag.LntUnresolvedCall, check: unresolvedCall},
	{Name: "shadowed-builtin", Code: diag.LntShadowedBuiltin, check: shadowedBuiltin},
}

// Rules returns every rule in execution order.
func Rules() []Rule {
	return slices.Clone(rules)
}

// Names lists rule names in execution order.
func Names() []string {
	out := make([]string, len(rules))
	for i, r := range rules {
		out[i] = r.Name
	}
	return out
}

type Options struct {
	Reporter diag.Reporter
	Disable  []string
	Jobs     int
}

// Validate rejects unknown rule names in Disable.
func (o Options) Validate() error {
	var unknown []string
	for _, name := range o.Disable {
		if !slices.Contains(Names(), name) {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("%w: %s", ErrUnknownRule, strings.Join(unknown, ", "))
	}
	return nil
}

// RuleResult is what one rule found.
type RuleResult struct {
	Rule        string
	Diagnostics []diag.Diagnostic
}

type Report struct {
	Rules []RuleResult
}

// Count returns the total number of findings.
func (r *Report) Count() int {
	n := 0
	for _, rr := range r.Rules {
		n += len(rr.Diagnostics)
	}
	return n
}

// Run executes the enabled rules. Findings reach opts.Reporter in rule order
// after every rule finished, whatever order the workers ran in.
func Run(ctx context.Context, s *Snapshot, opts Options) (*Report, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	var enabled []Rule
	for _, r := range rules {
		if !slices.Contains(opts.Disable, r.Name) {
			enabled = append(enabled, r)
		}
	}
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	bags := make([]*diag.Bag, len(enabled))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, r := range enabled {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			bags[i] = diag.NewBag(0)
			r.check(s, diag.BagReporter{Bag: bags[i]})
			return nil
		})
	}
	err := g.Wait()

	rep := &Report{Rules: make([]RuleResult, 0, len(enabled))}
	for i, r := range enabled {
		if bags[i] == nil {
			continue
		}
		items := bags[i].Items()
		rep.Rules = append(rep.Rules, RuleResult{Rule: r.Name, Diagnostics: items})
		diag.Forward(opts.Reporter, items)
	}
	return rep, err
}

// exempt reports names the user marked as intentionally unused.
func exempt(name string) bool {
	return strings.HasPrefix(name, "_")
}
