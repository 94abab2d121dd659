// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package registry

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/vk/abiforge/internal/arch"
	"github.com/vk/abiforge/internal/config"
	"github.com/vk/abiforge/internal/ctxlog"
	"github.com/vk/abiforge/internal/dag"
	"github.com/vk/abiforge/internal/nodeid"
	"github.com/vk/abiforge/internal/taskstore"
)

// Registry holds the compile tasks of a single build invocation.
type Registry struct {
	graph *dag.Graph

	mu       sync.RWMutex
	tasks    map[string]*CompileTask
	byModule map[string][]*CompileTask
	modules  []string
}

// New creates a registry that mirrors its tasks into the given graph.
func New(graph *dag.Graph) *Registry {
	return &Registry{
		graph:    graph,
		tasks:    make(map[string]*CompileTask),
		byModule: make(map[string][]*CompileTask),
	}
}

// CompileID is the graph address of the compile task for (module, arch).
func CompileID(module string, a arch.Architecture) nodeid.Address {
	return nodeid.NewWithVariant(string(dag.KindCompile), module, a.String())
}

// Register creates one compile task per architecture for the module and
// returns them in the order of archs. Pairs that already exist are returned
// as-is, so registering twice never creates duplicates.
func (r *Registry) Register(ctx context.Context, mod *config.NativeModule, archs []arch.Architecture) ([]*CompileTask, error) {
	logger := ctxlog.FromContext(ctx).With("module", mod.Name)

	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*CompileTask, 0, len(archs))
	for i, a := range archs {
		if !a.IsSupported() {
			return nil, &arch.UnsupportedError{Token: a.String(), Index: i}
		}
		id := CompileID(mod.Name, a)
		if existing, ok := r.tasks[id.String()]; ok {
			logger.Debug("Compile task already registered.", "arch", a)
			out = append(out, existing)
			continue
		}

		task := &CompileTask{
			ID:        id,
			Module:    mod.Name,
			Arch:      a,
			SourceDir: sourceDirFor(mod, a),
			OutputDir: filepath.Join(mod.OutputRoot, a.Folder()),
			LibName:   mod.LibName,
			Profile:   mod.Profile,
			MinSDK:    mod.MinSDK,
			Features:  append([]string(nil), mod.Features...),
			status:    taskstore.StatusPending,
		}
		if _, _, err := r.graph.AddTask(id, dag.KindCompile, "", task.OutputDir); err != nil {
			return nil, fmt.Errorf("registering %s: %w", id, err)
		}
		r.tasks[id.String()] = task
		if _, known := r.byModule[mod.Name]; !known {
			r.modules = append(r.modules, mod.Name)
		}
		r.byModule[mod.Name] = append(r.byModule[mod.Name], task)
		logger.Debug("Registered compile task.", "task", id.String(), "output_dir", task.OutputDir)
		out = append(out, task)
	}
	return out, nil
}

func sourceDirFor(mod *config.NativeModule, a arch.Architecture) string {
	if dir, ok := mod.TargetSources[a.String()]; ok && dir != "" {
		return dir
	}
	return mod.SourceDir
}

// FindCompileTasks returns every compile task of the module in registration order.
func (r *Registry) FindCompileTasks(module string) []*CompileTask {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tasks := r.byModule[module]
	out := make([]*CompileTask, len(tasks))
	copy(out, tasks)
	return out
}

// Task looks up a compile task by its graph address.
func (r *Registry) Task(id nodeid.Address) (*CompileTask, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[id.String()]
	return t, ok
}

// Modules returns the names of all modules with registered tasks, in
// registration order.
func (r *Registry) Modules() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.modules...)
}
