// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package app

import (
	"context"

	"github.com/vk/abiforge/internal/config"
	"github.com/vk/abiforge/internal/ctxlog"
	"github.com/vk/abiforge/internal/dag"
	"github.com/vk/abiforge/internal/events"
	"github.com/vk/abiforge/internal/executor"
	"github.com/vk/abiforge/internal/fingerprint"
	"github.com/vk/abiforge/internal/toolchain"
	"github.com/vk/abiforge/internal/wiring"
)

// unknownVersion stands in for the toolchain version when probing fails.
const unknownVersion = "unknown"

// Run executes one build invocation.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.ctx = ctx
	logger := a.logger
	logger.Debug("App.Run method started.")

	p, err := a.plan(ctx)
	if err != nil {
		return err
	}
	if a.config.DryRun {
		logger.Info("Dry run: printing the plan without executing.")
		return writePlan(a.outW, p)
	}

	a.startStatusServer()
	defer func() {
		if err := a.closeStatusServer(); err != nil {
			logger.Warn("Failed to stop status server.", "error", err)
		}
	}()

	ledger, err := fingerprint.OpenLedger(ctx, a.config.StateFile)
	if err != nil {
		return err
	}
	tracker := fingerprint.NewTracker(fingerprint.NewHasher(a.config.WorkerCount), ledger)

	version := a.toolchainVersion(ctx, p.Model.Toolchain)
	invoker := a.invoker
	if invoker == nil {
		tc := p.Model.Toolchain
		invoker = toolchain.NewCargo(tc.Command, tc.NDKDir, tc.Env)
	}

	publisher := a.newPublisher(ctx)
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("Failed to close event publisher.", "error", err)
		}
	}()

	opts := []executor.Option{
		executor.WithRunner(dag.KindCompile, executor.NewCompileRunner(p.Registry, tracker, invoker, version)),
		executor.WithPublisher(publisher),
	}
	merge := executor.NewMergeRunner(p.Graph, tracker)
	for _, kind := range wiring.ConsumerKinds() {
		opts = append(opts, executor.WithRunner(kind, merge))
	}

	logger.Info("🚀 Starting concurrent build...", "toolchain", version)
	exec := executor.New(p.Graph, a.store, a.config.WorkerCount, opts...)
	summary, runErr := exec.Execute(ctx)

	// Fingerprints of the tasks that did succeed are kept even when others failed.
	if err := ledger.Save(); err != nil {
		logger.Error("Failed to persist fingerprints.", "error", err, "path", ledger.Path())
		if runErr == nil {
			return err
		}
	}
	if runErr != nil {
		return runErr
	}

	logger.Info("🏁 Build finished.",
		"succeeded", summary.Succeeded,
		"up_to_date", summary.CacheHits,
		"duration", summary.Duration.String(),
	)
	return nil
}

func (a *App) toolchainVersion(ctx context.Context, tc *config.Toolchain) string {
	version, err := a.probe(ctx, tc.VersionCommand)
	if err != nil {
		ctxlog.FromContext(ctx).Warn("⚠️ Could not determine toolchain version; toolchain upgrades will not invalidate the cache.", "error", err)
		return unknownVersion
	}
	return version
}

// newPublisher combines the log publisher, any configured extras and, when an
// events URL is set, the socket.io dashboard. A dashboard that cannot be
// reached only costs the event stream, not the build.
func (a *App) newPublisher(ctx context.Context) events.Publisher {
	fan := events.Fanout{events.LogPublisher{}}
	fan = append(fan, a.extraPublishers...)
	if a.config.EventsURL == "" {
		return fan
	}
	sio, err := events.DialSocketIO(ctx, events.SocketIOOptions{URL: a.config.EventsURL})
	if err != nil {
		ctxlog.FromContext(ctx).Warn("⚠️ Event dashboard unavailable, continuing without it.", "error", err)
		return fan
	}
	return append(fan, sio)
}
