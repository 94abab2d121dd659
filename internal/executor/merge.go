// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package executor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/vk/abiforge/internal/arch"
	"github.com/vk/abiforge/internal/ctxlog"
	"github.com/vk/abiforge/internal/dag"
	"github.com/vk/abiforge/internal/fingerprint"
	"github.com/vk/abiforge/internal/fsutil"
)

// MergeRunner runs native-library consumer tasks. It copies the shared
// libraries of every declared input directory into
// <output_dir>/<abi-folder>/, and skips the copy when the digest of the
// declared inputs is unchanged since the last run.
type MergeRunner struct {
	graph   *dag.Graph
	tracker *fingerprint.Tracker

	runs atomic.Int64
}

// NewMergeRunner creates a merge runner reading declared inputs from graph.
func NewMergeRunner(graph *dag.Graph, tracker *fingerprint.Tracker) *MergeRunner {
	return &MergeRunner{graph: graph, tracker: tracker}
}

// Runs returns how many merges actually copied files.
func (r *MergeRunner) Runs() int64 {
	return r.runs.Load()
}

// Run implements Runner.
func (r *MergeRunner) Run(ctx context.Context, task *dag.Task) (Outcome, error) {
	logger := ctxlog.FromContext(ctx)

	inputs, err := r.graph.Inputs(task.ID)
	if err != nil {
		return Outcome{}, err
	}
	if len(inputs) == 0 || task.OutputDir == "" {
		logger.Debug("Consumer has no declared native inputs or no output directory.", "inputs", len(inputs))
		return Outcome{}, nil
	}

	key := task.ID.String()
	decision := r.tracker.DecideInputs(ctx, key, inputs, task.OutputDir)
	if decision.Hit {
		logger.Debug("Declared inputs unchanged, skipping merge.")
		return Outcome{CacheHit: true}, nil
	}

	logger.Info("▶️ Merging native libraries", "inputs", len(inputs), "reason", decision.Reason)
	r.runs.Add(1)
	for _, dir := range inputs {
		if err := mergeDir(dir, task.OutputDir); err != nil {
			r.tracker.Forget(key)
			return Outcome{}, fmt.Errorf("merging %s into %s: %w", dir, task.OutputDir, err)
		}
	}
	if err := pruneStale(task.OutputDir, inputs); err != nil {
		r.tracker.Forget(key)
		return Outcome{}, fmt.Errorf("pruning %s: %w", task.OutputDir, err)
	}
	r.tracker.RecordInputs(key, decision.Fingerprint, task.OutputDir)
	return Outcome{}, nil
}

// mergeDir copies every .so under the per-ABI directory dir into the same
// ABI folder under outputDir.
func mergeDir(dir, outputDir string) error {
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("declared input is missing: %w", err)
	}
	libs, err := fsutil.FindFilesByExtension(dir, ".so")
	if err != nil {
		return err
	}
	destDir := filepath.Join(outputDir, filepath.Base(dir))
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return err
	}
	for _, lib := range libs {
		if err := fsutil.CopyFileAtomic(lib, filepath.Join(destDir, filepath.Base(lib)), 0o755); err != nil {
			return err
		}
	}
	return nil
}

// pruneStale removes ABI folders and libraries under outputDir that no
// declared input provides anymore, e.g. after a target was dropped. Only
// known ABI folders are touched.
func pruneStale(outputDir string, inputs []string) error {
	wanted := make(map[string]map[string]bool, len(inputs))
	for _, dir := range inputs {
		libs, err := fsutil.FindFilesByExtension(dir, ".so")
		if err != nil {
			return err
		}
		folder := filepath.Base(dir)
		if wanted[folder] == nil {
			wanted[folder] = make(map[string]bool)
		}
		for _, lib := range libs {
			wanted[folder][filepath.Base(lib)] = true
		}
	}

	entries, err := os.ReadDir(outputDir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, isABI := arch.FromFolder(entry.Name()); !isABI {
			continue
		}
		folderPath := filepath.Join(outputDir, entry.Name())
		libs, ok := wanted[entry.Name()]
		if !ok {
			if err := os.RemoveAll(folderPath); err != nil {
				return err
			}
			continue
		}
		present, err := os.ReadDir(folderPath)
		if err != nil {
			return err
		}
		for _, f := range present {
			if f.IsDir() || filepath.Ext(f.Name()) != ".so" || libs[f.Name()] {
				continue
			}
			if err := os.Remove(filepath.Join(folderPath, f.Name())); err != nil {
				return err
			}
		}
	}
	return nil
}
