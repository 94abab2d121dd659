// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package dag

import (
	"fmt"
	"sync"

	"github.com/vk/abiforge/internal/nodeid"
)

// Kind is a task-kind tag from a small closed set.
type Kind string

const (
	// KindCompile builds one native artifact for one architecture.
	KindCompile Kind = "compile"
	// KindMergeNativeLibs merges per-ABI shared libraries into the package.
	KindMergeNativeLibs Kind = "merge_native_libs"
	// KindMergeJniLibFolders merges jniLibs source-set folders.
	KindMergeJniLibFolders Kind = "merge_jni_lib_folders"
	// KindStripNativeLibs strips debug symbols from merged libraries.
	KindStripNativeLibs Kind = "strip_native_libs"
	// KindMergeAssets merges asset folders. It never reads native libraries.
	KindMergeAssets Kind = "merge_assets"
	// KindPackage assembles the final application archive.
	KindPackage Kind = "package"
)

var kinds = []Kind{
	KindCompile,
	KindMergeNativeLibs,
	KindMergeJniLibFolders,
	KindStripNativeLibs,
	KindMergeAssets,
	KindPackage,
}

// Kinds returns every known task kind.
func Kinds() []Kind {
	out := make([]Kind, len(kinds))
	copy(out, kinds)
	return out
}

// ParseKind validates a kind tag.
func ParseKind(s string) (Kind, error) {
	for _, k := range kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown task kind %q", s)
}

// Task is a single vertex in the host graph. Exported fields are set when the
// task is added and never change; edges and inputs are owned by the Graph.
type Task struct {
	// ID is the unique identifier for the task.
	ID nodeid.Address
	// Kind is the task's role tag.
	Kind Kind
	// InputPattern is the per-architecture directory pattern a consumer
	// expects, with {abi} standing in for the ABI folder name.
	InputPattern string
	// OutputDir is where the task writes its results.
	OutputDir string

	// inputs holds declared input directories in declaration order.
	inputs []string
	// inputSet indexes inputs for duplicate detection.
	inputSet map[string]struct{}
	// deps holds the tasks this task depends on (predecessors).
	deps map[string]*Task
	// dependents holds the tasks that depend on this task (successors).
	dependents map[string]*Task
}

// Graph is a collection of tasks and their ordering edges. All operations on
// the graph are concurrency-safe.
type Graph struct {
	// mutex protects every map and slice below.
	mutex sync.RWMutex
	// tasks stores all tasks keyed by their canonical ID string.
	tasks map[string]*Task
	// order records insertion order so iteration is deterministic.
	order []string
	// edges counts ordering edges.
	edges int
}
