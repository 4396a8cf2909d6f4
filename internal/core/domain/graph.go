// Package domain contains the core domain models and business logic for the native build graph.
package domain

import (
	"fmt"
	"io"
	"iter"
	"slices"
	"strings"

	"go.trai.ch/zerr"
)

// Graph represents a dependency graph of tasks.
// Edges are derived: a task depends on every task that declares one of its
// inputs (or extra dependencies) as an output, plus its explicit Dependencies.
type Graph struct {
	tasks          map[InternedString]Task
	names          []InternedString
	outputOwner    map[InternedString]InternedString
	deps           map[InternedString][]InternedString
	dependents     map[InternedString][]InternedString
	executionOrder []InternedString
}

// NewGraph creates a new empty Graph.
func NewGraph() *Graph {
	return &Graph{
		tasks:       make(map[InternedString]Task),
		outputOwner: make(map[InternedString]InternedString),
	}
}

// AddTask adds a task to the graph.
// It returns an error if a task with the same name already exists or if another
// task already declares one of its outputs: every output path has exactly one writer.
func (g *Graph) AddTask(t *Task) error {
	if _, exists := g.tasks[t.Name]; exists {
		return zerr.With(ErrTaskAlreadyExists, "task_name", t.Name.String())
	}
	for _, out := range t.Outputs {
		if owner, taken := g.outputOwner[out]; taken {
			diag := Errorf(CodeDuplicateTaskOutput, owner.String(), t.Name.String(), out.String())
			return zerr.With(zerr.Wrap(diag, ErrDuplicateOutput.Error()), "output", out.String())
		}
	}
	for _, out := range t.Outputs {
		g.outputOwner[out] = t.Name
	}
	g.tasks[t.Name] = *t
	g.names = append(g.names, t.Name)
	g.executionOrder = nil
	return nil
}

// Validate derives the dependency relation and checks it for cycles using a
// topological sort. It populates the execution order if successful.
func (g *Graph) Validate() error {
	if err := g.deriveEdges(); err != nil {
		return err
	}

	g.executionOrder = make([]InternedString, 0, len(g.tasks))
	visited := make(map[InternedString]int) // 0: unvisited, 1: visiting, 2: visited
	var path []InternedString

	var visit func(u InternedString) error
	visit = func(u InternedString) error {
		visited[u] = 1
		path = append(path, u)

		for _, dep := range g.deps[u] {
			if visited[dep] == 1 {
				return g.buildCycleError(path, dep)
			}
			if visited[dep] == 0 {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}

		visited[u] = 2
		path = path[:len(path)-1]
		g.executionOrder = append(g.executionOrder, u)
		return nil
	}

	for _, name := range g.sortedNames() {
		if visited[name] == 0 {
			if err := visit(name); err != nil {
				g.executionOrder = nil
				return err
			}
		}
	}

	return nil
}

func (g *Graph) deriveEdges() error {
	g.deps = make(map[InternedString][]InternedString, len(g.tasks))
	g.dependents = make(map[InternedString][]InternedString, len(g.tasks))

	for _, name := range g.names {
		task := g.tasks[name]
		seen := make(map[InternedString]bool)
		var deps []InternedString

		add := func(dep InternedString) {
			if dep == name || seen[dep] {
				return
			}
			seen[dep] = true
			deps = append(deps, dep)
		}

		for _, dep := range task.Dependencies {
			if _, ok := g.tasks[dep]; !ok {
				diag := Errorf(CodeMissingTaskDependency, name.String(), dep.String())
				return zerr.With(zerr.Wrap(diag, ErrMissingDependency.Error()), "dependency", dep.String())
			}
			add(dep)
		}
		for _, in := range slices.Concat(task.Inputs, task.ExtraDependencies) {
			if owner, ok := g.outputOwner[in]; ok {
				add(owner)
			}
		}

		slices.SortFunc(deps, compareInterned)
		g.deps[name] = deps
		for _, dep := range deps {
			g.dependents[dep] = append(g.dependents[dep], name)
		}
	}
	for name := range g.dependents {
		slices.SortFunc(g.dependents[name], compareInterned)
	}
	return nil
}

// buildCycleError constructs an error with cycle path metadata.
func (g *Graph) buildCycleError(path []InternedString, dep InternedString) error {
	startIdx := slices.Index(path, dep)
	nodes := make([]string, 0, len(path)-startIdx+1)
	for _, node := range path[startIdx:] {
		nodes = append(nodes, node.String())
	}
	nodes = append(nodes, dep.String())
	cyclePath := strings.Join(nodes, " -> ")

	diag := Errorf(CodeTaskGraphCycle, cyclePath)
	return zerr.With(zerr.Wrap(diag, ErrCycleDetected.Error()), "cycle", cyclePath)
}

// Walk returns an iterator that yields tasks in execution order.
// It assumes Validate() has been called and returned nil.
func (g *Graph) Walk() iter.Seq[Task] {
	return func(yield func(Task) bool) {
		for _, name := range g.executionOrder {
			if !yield(g.tasks[name]) {
				return
			}
		}
	}
}

// GetTask returns the task with the given name.
func (g *Graph) GetTask(name InternedString) (Task, bool) {
	t, ok := g.tasks[name]
	return t, ok
}

// TaskCount returns the number of tasks in the graph.
func (g *Graph) TaskCount() int {
	return len(g.tasks)
}

// DependenciesOf returns the derived dependencies of a task. Validate must have run.
func (g *Graph) DependenciesOf(name InternedString) []InternedString {
	return g.deps[name]
}

// Dependents returns the tasks that depend on the given task. Validate must have run.
func (g *Graph) Dependents(name InternedString) []InternedString {
	return g.dependents[name]
}

// OutputOwner returns the task declaring path as an output.
func (g *Graph) OutputOwner(path string) (InternedString, bool) {
	owner, ok := g.outputOwner[NewInternedString(path)]
	return owner, ok
}

// Edges yields every (dependency, dependent) pair in a stable order.
func (g *Graph) Edges() iter.Seq2[InternedString, InternedString] {
	return func(yield func(InternedString, InternedString) bool) {
		for _, name := range g.sortedNames() {
			for _, dependent := range g.dependents[name] {
				if !yield(name, dependent) {
					return
				}
			}
		}
	}
}

// WriteEdgeList serializes the graph as "from -> to" lines for external tooling.
// Tasks without any edge are written on their own line.
func (g *Graph) WriteEdgeList(w io.Writer) error {
	connected := make(map[InternedString]bool)
	for from, to := range g.Edges() {
		connected[from] = true
		connected[to] = true
		if _, err := fmt.Fprintf(w, "%s -> %s\n", from, to); err != nil {
			return err
		}
	}
	for _, name := range g.sortedNames() {
		if connected[name] {
			continue
		}
		if _, err := fmt.Fprintln(w, name.String()); err != nil {
			return err
		}
	}
	return nil
}

func (g *Graph) sortedNames() []InternedString {
	names := slices.Clone(g.names)
	slices.SortFunc(names, compareInterned)
	return names
}

func compareInterned(a, b InternedString) int {
	return strings.Compare(a.String(), b.String())
}
