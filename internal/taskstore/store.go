// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package taskstore defines the interface for storing and retrieving the
// mutable execution state of tasks during a single build invocation.
//
// The store isolates per-run state (status, errors, cache hits) from the
// immutable graph structure held by internal/dag. It is created once per build,
// written by the executor as tasks move through their lifecycle, read by the
// status endpoint and the final report, and discarded when the build ends.
//
// Tasks follow this lifecycle:
//
//	Pending → Running → Succeeded OR Failed
//	Pending → Skipped (a prerequisite failed)
package taskstore

import (
	"context"
	"time"

	"github.com/vk/abiforge/internal/nodeid"
)

// Status is the execution state of a task within one build invocation.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// IsTerminal reports whether the status is final for this invocation.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusSkipped:
		return true
	default:
		return false
	}
}

// Record is a point-in-time view of one task's state.
type Record struct {
	ID       string    `json:"id"`
	Status   Status    `json:"status"`
	CacheHit bool      `json:"cache_hit"`
	Error    string    `json:"error,omitempty"`
	Updated  time.Time `json:"updated"`
}

// Store is the interface for managing the mutable execution state of tasks.
//
// Implementations must be safe for concurrent use: workers update different
// tasks in parallel while the status endpoint reads snapshots.
type Store interface {
	// SetStatus updates the execution status of a task.
	SetStatus(ctx context.Context, id nodeid.Address, status Status) error
	// GetStatus returns StatusPending if no status has been set yet.
	GetStatus(ctx context.Context, id nodeid.Address) (Status, error)
	// MarkCacheHit records that the task succeeded without doing any work.
	MarkCacheHit(ctx context.Context, id nodeid.Address) error
	// SetError records the failure of a task.
	SetError(ctx context.Context, id nodeid.Address, taskErr error) error
	// GetError returns nil if the task has not failed.
	GetError(ctx context.Context, id nodeid.Address) (error, error)
	// Snapshot returns every known task record sorted by ID.
	Snapshot(ctx context.Context) []Record
}
