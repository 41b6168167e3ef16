package driver

import (
	"fmt"
	"slices"
	"strings"
)

// stage is one step of the pipeline; stages run in declaration order.
type stage uint8

const (
	stageResolve stage = iota
	stageCFG
	stageCalls
	stageDeps
	stageFlow
	stageTypes
	stageMetrics
	stageLint
	stageCount
)

var stageNames = [...]string{
	stageResolve: "resolve",
	stageCFG:     "cfg",
	stageCalls:   "callgraph",
	stageDeps:    "depgraph",
	stageFlow:    "dataflow",
	stageTypes:   "typecheck",
	stageMetrics: "complexity",
	stageLint:    "lint",
}

func (s stage) String() string { return stageNames[s] }

type stageSet uint16

func stages(list ...stage) stageSet {
	var out stageSet
	for _, s := range list {
		out |= 1 << s
	}
	return out
}

func (set stageSet) has(s stage) bool { return set&(1<<s) != 0 }

func (set stageSet) covers(other stageSet) bool { return set&other == other }

func (set stageSet) count() int {
	n := 0
	for s := range stageCount {
		if set.has(s) {
			n++
		}
	}
	return n
}

// Task is one selectable view.
type Task struct {
	Name    string
	Aliases []string
	Summary string
	// Graph views can also be rendered as DOT.
	Graph bool

	needs stageSet
	view  func(r *Result) View
	// blank returns an empty view to decode a cached one into
	blank func() View
}

var tasks = []Task{
	{
		Name:    "ast",
		Summary: "syntax tree of every module",
		view:    func(r *Result) View { return newASTView(r) },
		blank:   func() View { return new(ASTView) },
	},
	{
		Name:    "symbols",
		Aliases: []string{"semantic"},
		Summary: "scopes, symbols, function signatures and unresolved names",
		needs:   stages(stageResolve, stageDeps, stageTypes),
		view:    func(r *Result) View { return newSymbolsView(r) },
		blank:   func() View { return new(SymbolsView) },
	},
	{
		Name:    "cfg",
		Summary: "control flow graph of every function with its branch conditions",
		Graph:   true,
		needs:   stages(stageCFG),
		view:    func(r *Result) View { return newCFGView(r) },
		blank:   func() View { return new(CFGView) },
	},
	{
		Name:    "callgraph",
		Aliases: []string{"call_graph"},
		Summary: "call sites linked to the definitions they invoke",
		Graph:   true,
		needs:   stages(stageResolve, stageCalls),
		view:    func(r *Result) View { return newCallGraphView(r) },
		blank:   func() View { return new(CallGraphView) },
	},
	{
		Name:    "depgraph",
		Aliases: []string{"dependency_graph"},
		Summary: "module dependencies, cycles and a topological order",
		Graph:   true,
		needs:   stages(stageResolve, stageDeps),
		view:    func(r *Result) View { return newDepGraphView(r) },
		blank:   func() View { return new(DepGraphView) },
	},
	{
		Name:    "dataflow",
		Aliases: []string{"data_flow"},
		Summary: "reaching definitions and live variables per function",
		needs:   stages(stageResolve, stageCFG, stageFlow),
		view:    func(r *Result) View { return newDataflowView(r) },
		blank:   func() View { return new(DataflowView) },
	},
	{
		Name:    "typecheck",
		Aliases: []string{"type_check"},
		Summary: "inferred types and type errors",
		needs:   stages(stageResolve, stageDeps, stageTypes),
		view:    func(r *Result) View { return newTypecheckView(r) },
		blank:   func() View { return new(TypecheckView) },
	},
	{
		Name:    "complexity",
		Aliases: []string{"cyclomatic_complexity"},
		Summary: "cyclomatic complexity, nesting depth and fan-in/out",
		needs:   stages(stageResolve, stageCFG, stageCalls, stageMetrics),
		view:    func(r *Result) View { return newComplexityView(r) },
		blank:   func() View { return new(ComplexityView) },
	},
	{
		Name:    "lint",
		Aliases: []string{"static"},
		Summary: "rule-based findings",
		needs:   stages(stageResolve, stageCFG, stageCalls, stageDeps, stageFlow, stageLint),
		view:    func(r *Result) View { return newLintView(r) },
		blank:   func() View { return new(LintView) },
	},
	{
		Name:    "classes",
		Aliases: []string{"class_hierarchy"},
		Summary: "classes with their bases and methods",
		Graph:   true,
		needs:   stages(stageResolve, stageDeps, stageTypes),
		view:    func(r *Result) View { return newClassesView(r) },
		blank:   func() View { return new(ClassesView) },
	},
}

// Tasks lists every task in canonical order.
func Tasks() []Task {
	return slices.Clone(tasks)
}

// LookupTask finds a task by name or alias, case-insensitively.
func LookupTask(name string) (Task, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, t := range tasks {
		if t.Name == name || slices.Contains(t.Aliases, name) {
			return t, true
		}
	}
	return Task{}, false
}

// ResolveTasks maps names and aliases to canonical task names in canonical
// order, without duplicates. An empty list and "all" select every task.
// The first unknown name is returned as a ConfigurationError.
func ResolveTasks(names []string) ([]string, error) {
	selected := make(map[string]bool)
	for _, name := range names {
		if strings.EqualFold(strings.TrimSpace(name), "all") {
			for _, t := range tasks {
				selected[t.Name] = true
			}
			continue
		}
		t, ok := LookupTask(name)
		if !ok {
			return nil, &ConfigurationError{Task: name, Err: ErrUnknownTask}
		}
		selected[t.Name] = true
	}
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		if len(names) == 0 || selected[t.Name] {
			out = append(out, t.Name)
		}
	}
	return out, nil
}

// plan returns the stages the given canonical tasks need.
func plan(names []string) stageSet {
	var need stageSet
	for _, name := range names {
		if t, ok := LookupTask(name); ok {
			need |= t.needs
		}
	}
	return need
}

// PlannedStages lists, in execution order, the stages Analyze runs for the
// given task selection. These are the names StageEvents carry.
func PlannedStages(names []string) ([]string, error) {
	resolved, err := ResolveTasks(names)
	if err != nil {
		return nil, err
	}
	need := plan(resolved)
	var out []string
	for s := range stageCount {
		if need.has(s) {
			out = append(out, s.String())
		}
	}
	return out, nil
}

func mustTask(name string) Task {
	t, ok := LookupTask(name)
	if !ok {
		panic(fmt.Sprintf("driver: unknown task %q", name))
	}
	return t
}
