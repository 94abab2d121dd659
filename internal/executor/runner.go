// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package executor

import (
	"context"

	"github.com/vk/abiforge/internal/ctxlog"
	"github.com/vk/abiforge/internal/dag"
)

// Outcome describes a successful run.
type Outcome struct {
	// CacheHit means the task's previous result was still valid.
	CacheHit bool
}

// Runner performs the work of one task kind.
type Runner interface {
	Run(ctx context.Context, task *dag.Task) (Outcome, error)
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, task *dag.Task) (Outcome, error)

// Run implements Runner.
func (f RunnerFunc) Run(ctx context.Context, task *dag.Task) (Outcome, error) {
	return f(ctx, task)
}

// Passthrough is used for host tasks this system only orders, such as
// packaging. It succeeds immediately.
var Passthrough Runner = RunnerFunc(func(ctx context.Context, task *dag.Task) (Outcome, error) {
	ctxlog.FromContext(ctx).Debug("Host task has no native work.", "task", task.ID.String())
	return Outcome{}, nil
})
