// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package executor

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/vk/abiforge/internal/ctxlog"
	"github.com/vk/abiforge/internal/dag"
	"github.com/vk/abiforge/internal/fingerprint"
	"github.com/vk/abiforge/internal/registry"
	"github.com/vk/abiforge/internal/toolchain"
)

// CompileRunner runs compile tasks: it consults the change tracker and only
// invokes the toolchain on a cache miss.
type CompileRunner struct {
	registry         *registry.Registry
	tracker          *fingerprint.Tracker
	invoker          toolchain.Invoker
	toolchainVersion string

	invocations atomic.Int64
}

// NewCompileRunner creates a compile runner. toolchainVersion feeds every
// fingerprint, so upgrading the toolchain rebuilds everything.
func NewCompileRunner(reg *registry.Registry, tracker *fingerprint.Tracker, invoker toolchain.Invoker, toolchainVersion string) *CompileRunner {
	return &CompileRunner{
		registry:         reg,
		tracker:          tracker,
		invoker:          invoker,
		toolchainVersion: toolchainVersion,
	}
}

// Invocations returns how many times the toolchain was invoked.
func (r *CompileRunner) Invocations() int64 {
	return r.invocations.Load()
}

// Run implements Runner.
func (r *CompileRunner) Run(ctx context.Context, task *dag.Task) (Outcome, error) {
	ct, ok := r.registry.Task(task.ID)
	if !ok {
		return Outcome{}, fmt.Errorf("no compile task registered for %s", task.ID)
	}
	logger := ctxlog.FromContext(ctx).With("module", ct.Module, "arch", ct.Arch)

	if err := ct.Start(); err != nil {
		return Outcome{}, err
	}

	key := ct.ID.String()
	decision := r.tracker.Decide(ctx, key, fingerprint.Inputs{
		SourceDir:        ct.SourceDir,
		ToolchainVersion: r.toolchainVersion,
		Arch:             ct.Arch,
		Profile:          ct.Profile,
		MinSDK:           ct.MinSDK,
		Features:         ct.Features,
		LibName:          ct.LibName,
	}, ct.ArtifactPath())

	if decision.Hit {
		logger.Debug("Fingerprint unchanged, skipping toolchain.", "fingerprint", decision.Fingerprint.Short())
		return Outcome{CacheHit: true}, ct.Succeed(decision.Fingerprint.String(), true)
	}

	logger.Info("▶️ Compiling native library", "reason", decision.Reason)
	r.invocations.Add(1)
	res, err := r.invoker.Invoke(ctx, toolchain.Request{
		Module:    ct.Module,
		Arch:      ct.Arch,
		SourceDir: ct.SourceDir,
		OutputDir: ct.OutputDir,
		LibName:   ct.LibName,
		Profile:   ct.Profile,
		MinSDK:    ct.MinSDK,
		Features:  ct.Features,
	})
	if err != nil {
		r.tracker.Forget(key)
		if ferr := ct.Fail(err); ferr != nil {
			logger.Error("Failed to record compile failure.", "error", ferr)
		}
		return Outcome{}, err
	}

	r.tracker.Record(key, decision.Fingerprint, res.ArtifactPath)
	return Outcome{}, ct.Succeed(decision.Fingerprint.String(), false)
}
