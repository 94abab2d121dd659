// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package dag

import (
	"fmt"
	"sort"

	"github.com/vk/abiforge/internal/nodeid"
)

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{
		tasks: make(map[string]*Task),
	}
}

// AddTask adds a task to the graph. Adding a task whose ID already exists is
// idempotent and returns the existing task with created=false, unless the
// kinds disagree, which is a conflict.
func (g *Graph) AddTask(id nodeid.Address, kind Kind, inputPattern, outputDir string) (*Task, bool, error) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	key := id.String()
	if existing, ok := g.tasks[key]; ok {
		if existing.Kind != kind {
			return nil, false, conflict(ConflictKindMismatch, key, "", "already registered as %s, not %s", existing.Kind, kind)
		}
		return existing, false, nil
	}

	t := &Task{
		ID:           id,
		Kind:         kind,
		InputPattern: inputPattern,
		OutputDir:    outputDir,
		inputSet:     make(map[string]struct{}),
		deps:         make(map[string]*Task),
		dependents:   make(map[string]*Task),
	}
	g.tasks[key] = t
	g.order = append(g.order, key)
	return t, true, nil
}

// Task looks up a task by ID.
func (g *Graph) Task(id nodeid.Address) (*Task, bool) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	t, ok := g.tasks[id.String()]
	return t, ok
}

// Tasks returns every task in insertion order.
func (g *Graph) Tasks() []*Task {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	out := make([]*Task, 0, len(g.order))
	for _, key := range g.order {
		out = append(out, g.tasks[key])
	}
	return out
}

// TasksOfKind returns the tasks tagged with any of the given kinds, in
// insertion order.
func (g *Graph) TasksOfKind(want ...Kind) []*Task {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	var out []*Task
	for _, key := range g.order {
		t := g.tasks[key]
		for _, k := range want {
			if t.Kind == k {
				out = append(out, t)
				break
			}
		}
	}
	return out
}

// AddEdge creates a directed edge from `from` to `to`, meaning `to` cannot
// start before `from` finishes. Self edges, duplicate edges, unknown tasks
// and edges that would close a cycle are rejected with a ConflictError.
func (g *Graph) AddEdge(from, to nodeid.Address) error {
	fromKey, toKey := from.String(), to.String()
	if fromKey == toKey {
		return conflict(ConflictSelfEdge, fromKey, toKey, "")
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	fromTask, ok := g.tasks[fromKey]
	if !ok {
		return conflict(ConflictUnknownTask, fromKey, toKey, "source task not found")
	}
	toTask, ok := g.tasks[toKey]
	if !ok {
		return conflict(ConflictUnknownTask, fromKey, toKey, "destination task not found")
	}
	if _, exists := toTask.deps[fromKey]; exists {
		return conflict(ConflictDuplicateEdge, fromKey, toKey, "")
	}
	if g.reachable(toTask, fromKey) {
		return conflict(ConflictCycle, fromKey, toKey, "%s already depends on %s", fromKey, toKey)
	}

	toTask.deps[fromKey] = fromTask
	fromTask.dependents[toKey] = toTask
	g.edges++
	return nil
}

// reachable reports whether target is reachable from start along dependent
// edges. The caller must hold the lock.
func (g *Graph) reachable(start *Task, target string) bool {
	visited := make(map[string]bool)
	stack := []*Task{start}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		key := n.ID.String()
		if key == target {
			return true
		}
		if visited[key] {
			continue
		}
		visited[key] = true
		for _, d := range n.dependents {
			stack = append(stack, d)
		}
	}
	return false
}

// HasEdge reports whether `to` already depends on `from`.
func (g *Graph) HasEdge(from, to nodeid.Address) bool {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	t, ok := g.tasks[to.String()]
	if !ok {
		return false
	}
	_, ok = t.deps[from.String()]
	return ok
}

// EdgeCount returns the number of ordering edges in the graph.
func (g *Graph) EdgeCount() int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return g.edges
}

// DeclareInput adds dir to the task's declared inputs. It returns false if
// dir was already declared.
func (g *Graph) DeclareInput(id nodeid.Address, dir string) (bool, error) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	t, ok := g.tasks[id.String()]
	if !ok {
		return false, conflict(ConflictUnknownTask, "", id.String(), "cannot declare input %s", dir)
	}
	if _, exists := t.inputSet[dir]; exists {
		return false, nil
	}
	t.inputSet[dir] = struct{}{}
	t.inputs = append(t.inputs, dir)
	return true, nil
}

// Inputs returns the task's declared input directories in declaration order.
func (g *Graph) Inputs(id nodeid.Address) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	t, ok := g.tasks[id.String()]
	if !ok {
		return nil, fmt.Errorf("task not found: %s", id)
	}
	out := make([]string, len(t.inputs))
	copy(out, t.inputs)
	return out, nil
}

// InputCount returns the total number of declared inputs across all tasks.
func (g *Graph) InputCount() int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n := 0
	for _, t := range g.tasks {
		n += len(t.inputs)
	}
	return n
}

// Dependencies returns the IDs of the tasks the given task depends on, sorted.
func (g *Graph) Dependencies(id nodeid.Address) ([]nodeid.Address, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	t, ok := g.tasks[id.String()]
	if !ok {
		return nil, fmt.Errorf("task not found: %s", id)
	}
	return sortedIDs(t.deps), nil
}

// Dependents returns the IDs of the tasks that depend on the given task, sorted.
func (g *Graph) Dependents(id nodeid.Address) ([]nodeid.Address, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	t, ok := g.tasks[id.String()]
	if !ok {
		return nil, fmt.Errorf("task not found: %s", id)
	}
	return sortedIDs(t.dependents), nil
}

func sortedIDs(m map[string]*Task) []nodeid.Address {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]nodeid.Address, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k].ID)
	}
	return out
}

// DetectCycles checks the graph for any cycles. AddEdge already refuses edges
// that close a cycle, so this is a validation pass for graphs assembled
// elsewhere.
func (g *Graph) DetectCycles() error {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	// Classic depth-first search with a permanent and a temporary mark.
	permanent := make(map[string]bool)
	temporary := make(map[string]bool)

	var visit func(t *Task) error
	visit = func(t *Task) error {
		key := t.ID.String()
		if permanent[key] {
			return nil
		}
		if temporary[key] {
			return conflict(ConflictCycle, key, "", "cycle detected involving task '%s'", key)
		}
		temporary[key] = true
		for _, dependent := range t.dependents {
			if err := visit(dependent); err != nil {
				return err
			}
		}
		delete(temporary, key)
		permanent[key] = true
		return nil
	}

	for _, key := range g.order {
		if err := visit(g.tasks[key]); err != nil {
			return err
		}
	}
	return nil
}

// TopologicalOrder returns task IDs such that every task appears after all of
// its dependencies. Ties are broken by insertion order so the result is
// deterministic.
func (g *Graph) TopologicalOrder() ([]nodeid.Address, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	remaining := make(map[string]int, len(g.tasks))
	for key, t := range g.tasks {
		remaining[key] = len(t.deps)
	}

	out := make([]nodeid.Address, 0, len(g.tasks))
	done := make(map[string]bool, len(g.tasks))
	for len(out) < len(g.tasks) {
		progressed := false
		for _, key := range g.order {
			if done[key] || remaining[key] > 0 {
				continue
			}
			done[key] = true
			progressed = true
			t := g.tasks[key]
			out = append(out, t.ID)
			for depKey := range t.dependents {
				remaining[depKey]--
			}
		}
		if !progressed {
			return nil, conflict(ConflictCycle, "", "", "graph has no valid execution order")
		}
	}
	return out, nil
}
