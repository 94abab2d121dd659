// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package wiring

import (
	"context"
	"fmt"

	"github.com/vk/abiforge/internal/config"
	"github.com/vk/abiforge/internal/ctxlog"
	"github.com/vk/abiforge/internal/dag"
	"github.com/vk/abiforge/internal/nodeid"
)

// ConsumerID is the graph address of a consumer task.
func ConsumerID(kind dag.Kind, name string) nodeid.Address {
	return nodeid.New(string(kind), name)
}

// AddConsumers populates the host graph with the consumer tasks of the build
// description and their explicit depends_on edges. Calling it again with the
// same consumers leaves the graph unchanged.
func AddConsumers(ctx context.Context, g *dag.Graph, consumers []*config.Consumer) error {
	logger := ctxlog.FromContext(ctx)

	for _, c := range consumers {
		kind, err := dag.ParseKind(c.Kind)
		if err != nil {
			return fmt.Errorf("consumer %s.%s: %w", c.Kind, c.Name, err)
		}
		if kind == dag.KindCompile {
			return fmt.Errorf("consumer %s.%s: kind %q is reserved for compile tasks", c.Kind, c.Name, kind)
		}
		id := ConsumerID(kind, c.Name)
		if _, created, err := g.AddTask(id, kind, c.InputPattern, c.OutputDir); err != nil {
			return err
		} else if created {
			logger.Debug("Added consumer task.", "task", id.String(), "input_pattern", c.InputPattern)
		}
	}

	for _, c := range consumers {
		to := ConsumerID(dag.Kind(c.Kind), c.Name)
		for _, raw := range c.DependsOn {
			from, err := nodeid.Parse(raw)
			if err != nil {
				return fmt.Errorf("consumer %s depends_on: %w", to, err)
			}
			if g.HasEdge(from, to) {
				continue
			}
			if err := g.AddEdge(from, to); err != nil {
				return fmt.Errorf("consumer %s depends_on %s: %w", to, from, err)
			}
		}
	}
	return nil
}
