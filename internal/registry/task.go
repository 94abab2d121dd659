// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package registry

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/vk/abiforge/internal/arch"
	"github.com/vk/abiforge/internal/nodeid"
	"github.com/vk/abiforge/internal/taskstore"
)

// ErrInvalidTransition is returned when a compile task is asked to move to a
// state its current state does not allow.
var ErrInvalidTransition = errors.New("invalid task state transition")

// CompileTask produces one native artifact for one architecture.
type CompileTask struct {
	ID        nodeid.Address
	Module    string
	Arch      arch.Architecture
	SourceDir string
	// OutputDir is <output_root>/<abi-folder>, the directory consumers scan.
	OutputDir string
	LibName   string
	Profile   string
	MinSDK    int
	Features  []string

	mu          sync.Mutex
	status      taskstore.Status
	fingerprint string
	cacheHit    bool
	err         error
}

// ArtifactFile is the file name of the shared library, e.g. "libcore.so".
func (t *CompileTask) ArtifactFile() string {
	return "lib" + t.LibName + ".so"
}

// ArtifactPath is the full path of the shared library inside OutputDir.
func (t *CompileTask) ArtifactPath() string {
	return filepath.Join(t.OutputDir, t.ArtifactFile())
}

// Status returns the current state.
func (t *CompileTask) Status() taskstore.Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Fingerprint returns the fingerprint recorded by the last successful run.
func (t *CompileTask) Fingerprint() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fingerprint
}

// CacheHit reports whether the task succeeded without invoking the toolchain.
func (t *CompileTask) CacheHit() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cacheHit
}

// Err returns the failure recorded by Fail.
func (t *CompileTask) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Start moves the task from pending to running. A second caller gets
// ErrInvalidTransition, so only one worker can ever own the task.
func (t *CompileTask) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.transition(taskstore.StatusPending, taskstore.StatusRunning)
}

// Succeed moves the task from running to succeeded.
func (t *CompileTask) Succeed(fingerprint string, cacheHit bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.transition(taskstore.StatusRunning, taskstore.StatusSucceeded); err != nil {
		return err
	}
	t.fingerprint = fingerprint
	t.cacheHit = cacheHit
	return nil
}

// Fail moves the task from running to failed.
func (t *CompileTask) Fail(cause error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.transition(taskstore.StatusRunning, taskstore.StatusFailed); err != nil {
		return err
	}
	t.err = cause
	return nil
}

// transition must be called with t.mu held.
func (t *CompileTask) transition(from, to taskstore.Status) error {
	if t.status != from {
		return fmt.Errorf("%w for %s: expected %s, got %s (target %s)", ErrInvalidTransition, t.ID, from, t.status, to)
	}
	t.status = to
	return nil
}
