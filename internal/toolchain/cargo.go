// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package toolchain

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/vk/abiforge/internal/arch"
	"github.com/vk/abiforge/internal/ctxlog"
	"github.com/vk/abiforge/internal/fsutil"
)

// Cargo invokes `cargo build` for Android targets.
type Cargo struct {
	// Command is the cargo executable.
	Command string
	// NDKDir enables linker configuration from the NDK's LLVM toolchain.
	NDKDir string
	// Env is added to the process environment of every invocation.
	Env map[string]string
}

// NewCargo creates a cargo invoker.
func NewCargo(command, ndkDir string, env map[string]string) *Cargo {
	return &Cargo{Command: command, NDKDir: ndkDir, Env: env}
}

// Args returns the cargo arguments for a request.
func (c *Cargo) Args(req Request) []string {
	args := []string{"build", "--lib", "--target", req.Arch.Triple()}
	if req.Profile == "release" {
		args = append(args, "--release")
	}
	if len(req.Features) > 0 {
		args = append(args, "--features", strings.Join(req.Features, ","))
	}
	return args
}

// Environ returns the extra environment for a request, sorted by key.
func (c *Cargo) Environ(req Request) []string {
	env := make(map[string]string, len(c.Env)+3)
	for k, v := range c.Env {
		env[k] = v
	}
	if c.NDKDir != "" {
		for k, v := range ndkEnv(c.NDKDir, req.Arch, req.MinSDK) {
			if _, set := env[k]; !set {
				env[k] = v
			}
		}
	}
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

// Invoke runs cargo in the source directory and copies the produced library
// into the output directory.
func (c *Cargo) Invoke(ctx context.Context, req Request) (*Result, error) {
	logger := ctxlog.FromContext(ctx).With("module", req.Module, "arch", req.Arch)
	start := time.Now()

	args := c.Args(req)
	extraEnv := c.Environ(req)
	logger.Debug("Invoking toolchain.", "command", c.Command, "args", args, "dir", req.SourceDir)

	cmd := exec.CommandContext(ctx, c.Command, args...)
	cmd.Dir = req.SourceDir
	cmd.Env = append(os.Environ(), extraEnv...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	fail := func(err error) (*Result, error) {
		return nil, &InvocationError{Module: req.Module, Arch: req.Arch, Output: out.String(), Err: err}
	}

	if err := cmd.Run(); err != nil {
		return fail(err)
	}

	built := filepath.Join(targetDir(req.SourceDir, extraEnv), req.Arch.Triple(), req.Profile, req.ArtifactFile())
	dest := filepath.Join(req.OutputDir, req.ArtifactFile())
	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return fail(fmt.Errorf("creating output directory: %w", err))
	}
	if err := fsutil.CopyFileAtomic(built, dest, 0o755); err != nil {
		return fail(fmt.Errorf("collecting artifact: %w", err))
	}

	res := &Result{ArtifactPath: dest, Output: out.String(), Duration: time.Since(start)}
	logger.Debug("Toolchain finished.", "artifact", dest, "duration", res.Duration)
	return res, nil
}

// targetDir honours CARGO_TARGET_DIR from the configured environment.
func targetDir(sourceDir string, env []string) string {
	for _, kv := range env {
		if v, ok := strings.CutPrefix(kv, "CARGO_TARGET_DIR="); ok {
			if filepath.IsAbs(v) {
				return v
			}
			return filepath.Join(sourceDir, v)
		}
	}
	return filepath.Join(sourceDir, "target")
}

// ndkEnv points cargo and the cc crate at the NDK clang for the target.
func ndkEnv(ndkDir string, a arch.Architecture, apiLevel int) map[string]string {
	bin := filepath.Join(ndkDir, "toolchains", "llvm", "prebuilt", hostTag(), "bin")
	clang := filepath.Join(bin, a.ClangTarget(apiLevel)+"-clang")
	ar := filepath.Join(bin, "llvm-ar")
	triple := strings.ReplaceAll(a.Triple(), "-", "_")
	return map[string]string{
		"CARGO_TARGET_" + a.CargoEnvTriple() + "_LINKER": clang,
		"CC_" + triple: clang,
		"AR_" + triple: ar,
	}
}

// hostTag is the NDK prebuilt directory for this host. The NDK ships x86_64
// host binaries only, which run under translation on arm64 hosts.
func hostTag() string {
	return runtime.GOOS + "-x86_64"
}
