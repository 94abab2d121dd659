// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package wiring

import (
	"context"
	"fmt"
	"sync"

	"github.com/vk/abiforge/internal/ctxlog"
	"github.com/vk/abiforge/internal/dag"
	"github.com/vk/abiforge/internal/nodeid"
	"github.com/vk/abiforge/internal/registry"
)

// Declaration records that a module's compile tasks must be wired at finalize time.
type Declaration struct {
	Module string
	// Strict makes "no consumer found" a fatal wiring conflict.
	Strict bool
}

// Link is one wired (compile task, consumer task) pair.
type Link struct {
	Compile  nodeid.Address
	Consumer nodeid.Address
	InputDir string
}

// Report summarizes one Finalize pass.
type Report struct {
	// Links lists every matching pair, whether or not this pass created it.
	Links []Link
	// NewEdges and NewInputs count graph mutations made by this pass.
	NewEdges  int
	NewInputs int
	// Unwired lists compile tasks no consumer reads.
	Unwired []nodeid.Address
}

// Engine resolves declared modules against the host graph.
type Engine struct {
	registry *registry.Registry

	mu           sync.Mutex
	declarations []Declaration
	index        map[string]int
}

// New creates a wiring engine over the given registry.
func New(reg *registry.Registry) *Engine {
	return &Engine{
		registry: reg,
		index:    make(map[string]int),
	}
}

// Declare schedules a module for wiring. Declaring a module twice keeps one
// declaration; strictness is sticky once requested.
func (e *Engine) Declare(module string, strict bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if i, ok := e.index[module]; ok {
		e.declarations[i].Strict = e.declarations[i].Strict || strict
		return
	}
	e.index[module] = len(e.declarations)
	e.declarations = append(e.declarations, Declaration{Module: module, Strict: strict})
}

// Declarations returns the declared modules in declaration order.
func (e *Engine) Declarations() []Declaration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Declaration(nil), e.declarations...)
}

// Finalize wires every declared module's compile tasks into g. Any graph
// rejection is returned as-is and must abort the build.
func (e *Engine) Finalize(ctx context.Context, g *dag.Graph) (*Report, error) {
	logger := ctxlog.FromContext(ctx)
	report := &Report{}

	var consumers []*dag.Task
	for _, t := range g.TasksOfKind(ConsumerKinds()...) {
		if t.InputPattern == "" {
			logger.Debug("Consumer declares no input pattern, skipping.", "task", t.ID.String())
			continue
		}
		consumers = append(consumers, t)
	}

	for _, decl := range e.Declarations() {
		modLogger := logger.With("module", decl.Module)
		tasks := e.registry.FindCompileTasks(decl.Module)
		if len(tasks) == 0 {
			modLogger.Warn("Module declared for wiring has no compile tasks.")
			continue
		}

		wiredAny := false
		for _, c := range tasks {
			wired := false
			for _, m := range consumers {
				if !Matches(m.InputPattern, c.OutputDir, c.Arch) {
					continue
				}
				if err := e.wire(g, c, m, report); err != nil {
					return nil, err
				}
				wired = true
			}
			if !wired {
				modLogger.Debug("Compile output not read by any consumer.", "arch", c.Arch, "output_dir", c.OutputDir)
				report.Unwired = append(report.Unwired, c.ID)
			}
			wiredAny = wiredAny || wired
		}

		if !wiredAny {
			if decl.Strict {
				return nil, &dag.ConflictError{
					Kind: dag.ConflictNoConsumer,
					From: decl.Module,
					Msg:  "no task reads the compiled native libraries",
				}
			}
			modLogger.Warn("⚠️ No consumer task reads this module's native libraries; it will be built but never packaged.")
		}
	}

	if err := g.DetectCycles(); err != nil {
		return nil, err
	}
	logger.Debug("Wiring finalized.", "links", len(report.Links), "new_edges", report.NewEdges, "new_inputs", report.NewInputs)
	return report, nil
}

// wire declares the input and ordering edge for one pair, skipping whatever
// already exists.
func (e *Engine) wire(g *dag.Graph, c *registry.CompileTask, m *dag.Task, report *Report) error {
	added, err := g.DeclareInput(m.ID, c.OutputDir)
	if err != nil {
		return fmt.Errorf("declaring input %s on %s: %w", c.OutputDir, m.ID, err)
	}
	if added {
		report.NewInputs++
	}
	if !g.HasEdge(c.ID, m.ID) {
		if err := g.AddEdge(c.ID, m.ID); err != nil {
			return fmt.Errorf("wiring %s -> %s: %w", c.ID, m.ID, err)
		}
		report.NewEdges++
	}
	report.Links = append(report.Links, Link{Compile: c.ID, Consumer: m.ID, InputDir: c.OutputDir})
	return nil
}
