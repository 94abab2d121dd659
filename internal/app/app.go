// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/vk/abiforge/internal/config"
	"github.com/vk/abiforge/internal/ctxlog"
	"github.com/vk/abiforge/internal/events"
	"github.com/vk/abiforge/internal/taskstore"
	"github.com/vk/abiforge/internal/toolchain"
)

// ErrInvalidConfiguration marks failures caused by the build description or
// the requested targets rather than by the build itself.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// VersionProbe returns the toolchain version string fed into fingerprints.
type VersionProbe func(ctx context.Context, argv []string) (string, error)

// Option customizes an App.
type Option func(*App)

// WithInvoker replaces the toolchain built from the build description.
func WithInvoker(inv toolchain.Invoker) Option {
	return func(a *App) { a.invoker = inv }
}

// WithVersionProbe replaces the probe that runs the version command.
func WithVersionProbe(p VersionProbe) Option {
	return func(a *App) { a.probe = p }
}

// WithPublisher adds an observer of task transitions.
func WithPublisher(p events.Publisher) Option {
	return func(a *App) { a.extraPublishers = append(a.extraPublishers, p) }
}

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	ctx    context.Context
	config *Config
	loader config.Loader

	invoker         toolchain.Invoker
	probe           VersionProbe
	extraPublishers []events.Publisher

	store      *taskstore.InMemory
	httpServer *http.Server
}

// NewApp is the constructor for the main application. It returns an App with
// its own isolated logger and task store.
func NewApp(outW io.Writer, cfg *Config, loader config.Loader, opts ...Option) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	a := &App{
		outW:   outW,
		logger: logger,
		ctx:    ctxlog.WithLogger(context.Background(), logger),
		config: cfg,
		loader: loader,
		probe:  toolchain.ProbeVersion,
		store:  taskstore.NewInMemory(),
	}
	for _, opt := range opts {
		opt(a)
	}
	logger.Debug("Logger configured successfully.")
	return a
}

// Store returns the task outcome store of the last run. This is primarily for testing.
func (a *App) Store() *taskstore.InMemory {
	return a.store
}
