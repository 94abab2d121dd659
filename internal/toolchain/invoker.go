// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package toolchain

import (
	"context"
	"time"

	"github.com/vk/abiforge/internal/arch"
)

// Request describes one build for one architecture.
type Request struct {
	Module    string
	Arch      arch.Architecture
	SourceDir string
	OutputDir string
	LibName   string
	Profile   string
	MinSDK    int
	Features  []string
}

// ArtifactFile is the shared library file name, e.g. "libcore.so".
func (r Request) ArtifactFile() string {
	return "lib" + r.LibName + ".so"
}

// Result is a successful invocation.
type Result struct {
	// ArtifactPath is the library inside the request's OutputDir.
	ArtifactPath string
	// Output is the combined toolchain output.
	Output   string
	Duration time.Duration
}

// Invoker runs the toolchain. Implementations must be safe for concurrent use
// with requests for different architectures.
type Invoker interface {
	Invoke(ctx context.Context, req Request) (*Result, error)
}
