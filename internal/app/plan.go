// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package app

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/vk/abiforge/internal/arch"
	"github.com/vk/abiforge/internal/config"
	"github.com/vk/abiforge/internal/ctxlog"
	"github.com/vk/abiforge/internal/dag"
	"github.com/vk/abiforge/internal/registry"
	"github.com/vk/abiforge/internal/wiring"
)

// Plan is the fully wired build graph for one invocation.
type Plan struct {
	Model    *config.Model
	Graph    *dag.Graph
	Registry *registry.Registry
	Report   *wiring.Report
}

var apiLevelFeature = regexp.MustCompile(`^api-level-(\d+)$`)

// plan loads the build description and assembles the graph: compile tasks
// per module and architecture, consumer tasks, and the wiring between them.
func (a *App) plan(ctx context.Context) (*Plan, error) {
	logger := ctxlog.FromContext(ctx)

	model, err := a.loader.Load(ctx, a.config.ConfigPaths...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}
	logger.Debug("Build description loaded.", "modules", len(model.Modules), "consumers", len(model.Consumers))

	g := dag.New()
	reg := registry.New(g)
	engine := wiring.New(reg)

	for _, mod := range model.Modules {
		modCtx := ctxlog.With(ctx, "module", mod.Name)
		archs, err := arch.Resolve(modCtx, mod.Targets)
		if err != nil {
			return nil, fmt.Errorf("%w: native_module %q: %w", ErrInvalidConfiguration, mod.Name, err)
		}
		checkAPILevel(modCtx, mod)
		if err := register(modCtx, reg, mod, archs); err != nil {
			return nil, err
		}
		engine.Declare(mod.Name, mod.StrictConsumers || a.config.StrictConsumers)
	}

	if err := wiring.AddConsumers(ctx, g, model.Consumers); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}
	report, err := engine.Finalize(ctx, g)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}
	for _, id := range report.Unwired {
		logger.Debug("Compile task has no consumer.", "task", id.String())
	}
	logger.Info("🔗 Build graph wired", "tasks", len(g.Tasks()), "edges", g.EdgeCount(), "inputs", g.InputCount())

	return &Plan{Model: model, Graph: g, Registry: reg, Report: report}, nil
}

// register adds the module's compile tasks. A rejection here comes from the
// build description, so it is reported as a configuration error.
func register(ctx context.Context, reg *registry.Registry, mod *config.NativeModule, archs []arch.Architecture) error {
	if _, err := reg.Register(ctx, mod, archs); err != nil {
		return fmt.Errorf("%w: registering %q: %w", ErrInvalidConfiguration, mod.Name, err)
	}
	return nil
}

// checkAPILevel warns when an api-level-N feature disagrees with min_sdk.
func checkAPILevel(ctx context.Context, mod *config.NativeModule) {
	if mod.MinSDK == 0 {
		return
	}
	for _, f := range mod.Features {
		m := apiLevelFeature.FindStringSubmatch(f)
		if m == nil {
			continue
		}
		level, _ := strconv.Atoi(m[1])
		if level != mod.MinSDK {
			ctxlog.FromContext(ctx).Warn("⚠️ Feature api level differs from min_sdk", "feature", f, "min_sdk", mod.MinSDK)
		}
	}
}

// writePlan prints tasks in execution order with their prerequisites and
// declared inputs.
func writePlan(w io.Writer, p *Plan) error {
	order, err := p.Graph.TopologicalOrder()
	if err != nil {
		return err
	}
	for _, id := range order {
		task, _ := p.Graph.Task(id)
		fmt.Fprintf(w, "%s (%s)\n", id, task.Kind)
		deps, err := p.Graph.Dependencies(id)
		if err != nil {
			return err
		}
		if len(deps) > 0 {
			names := make([]string, len(deps))
			for i, d := range deps {
				names[i] = d.String()
			}
			fmt.Fprintf(w, "  after:  %s\n", strings.Join(names, ", "))
		}
		inputs, err := p.Graph.Inputs(id)
		if err != nil {
			return err
		}
		for _, in := range inputs {
			fmt.Fprintf(w, "  input:  %s\n", in)
		}
		if task.OutputDir != "" {
			fmt.Fprintf(w, "  output: %s\n", task.OutputDir)
		}
	}
	return nil
}
