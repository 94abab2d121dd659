// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// This file contains the logic for translating HCL schema structs into the
// format-agnostic configuration model defined in the config package.

package hcl_adapter

import (
	"context"
	"path/filepath"

	"github.com/vk/abiforge/internal/config"
	"github.com/vk/abiforge/internal/ctxlog"
)

// translateToolchain converts the HCL toolchain schema into the agnostic model.
func translateToolchain(t *Toolchain, baseDir string) *config.Toolchain {
	return &config.Toolchain{
		Command:        t.Command,
		VersionCommand: t.VersionCommand,
		NDKDir:         resolvePath(baseDir, t.NDKDir),
		Env:            t.Env,
	}
}

// translateModule converts the HCL native_module schema into the agnostic model.
func translateModule(ctx context.Context, m *NativeModule, baseDir string) *config.NativeModule {
	logger := ctxlog.FromContext(ctx).With("module", m.Name)
	logger.Debug("Translating HCL native_module to internal config model.")

	out := &config.NativeModule{
		Name:            m.Name,
		SourceDir:       resolvePath(baseDir, m.SourceDir),
		LibName:         m.LibName,
		Targets:         m.Targets,
		MinSDK:          m.MinSDK,
		Features:        m.Features,
		Profile:         m.Profile,
		OutputRoot:      resolvePath(baseDir, m.OutputRoot),
		StrictConsumers: m.StrictConsumers,
	}
	if len(m.Overrides) > 0 {
		out.TargetSources = make(map[string]string, len(m.Overrides))
		for _, o := range m.Overrides {
			logger.Debug("Per-target source override.", "arch", o.Arch, "source_dir", o.SourceDir)
			out.TargetSources[o.Arch] = resolvePath(baseDir, o.SourceDir)
		}
	}
	return out
}

// translateConsumer converts the HCL consumer schema into the agnostic model.
func translateConsumer(c *Consumer, baseDir string) *config.Consumer {
	return &config.Consumer{
		Kind:         c.Kind,
		Name:         c.Name,
		InputPattern: resolvePath(baseDir, c.InputPattern),
		OutputDir:    resolvePath(baseDir, c.OutputDir),
		DependsOn:    c.DependsOn,
	}
}

// resolvePath anchors a relative path at the directory of the declaring file.
func resolvePath(baseDir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}
