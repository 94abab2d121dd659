// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package config

import (
	"errors"
	"fmt"
)

// Model is the unified, format-agnostic representation of a build description.
type Model struct {
	Toolchain *Toolchain
	Modules   []*NativeModule
	Consumers []*Consumer
}

// Toolchain describes how the native toolchain is invoked.
type Toolchain struct {
	// Command is the build driver, "cargo" by default.
	Command string
	// VersionCommand prints the toolchain version, which feeds fingerprints.
	VersionCommand []string
	// NDKDir is the Android NDK root used to derive linker settings. Optional.
	NDKDir string
	// Env holds extra environment variables for every invocation.
	Env map[string]string
}

// NativeModule is one native source module compiled once per target.
type NativeModule struct {
	Name       string
	SourceDir  string
	LibName    string
	Targets    []string
	MinSDK     int
	Features   []string
	Profile    string
	OutputRoot string
	// TargetSources overrides SourceDir for individual architecture tokens.
	TargetSources map[string]string
	// StrictConsumers turns "no consumer wired" into a fatal error.
	StrictConsumers bool
}

// Consumer is a host task that reads per-ABI native libraries.
type Consumer struct {
	Kind         string
	Name         string
	InputPattern string
	OutputDir    string
	DependsOn    []string
}

// Default values applied by Normalize.
const (
	DefaultCommand = "cargo"
	DefaultProfile = "debug"
)

// Normalize fills defaults and checks the fields every later stage relies on.
func (m *Model) Normalize() error {
	if m.Toolchain == nil {
		m.Toolchain = &Toolchain{}
	}
	if m.Toolchain.Command == "" {
		m.Toolchain.Command = DefaultCommand
	}
	if len(m.Toolchain.VersionCommand) == 0 {
		m.Toolchain.VersionCommand = []string{"rustc", "--version"}
	}

	var errs []error
	if len(m.Modules) == 0 {
		errs = append(errs, errors.New("at least one native_module block is required"))
	}
	seen := make(map[string]struct{})
	for _, mod := range m.Modules {
		if _, dup := seen[mod.Name]; dup {
			errs = append(errs, fmt.Errorf("native_module %q declared more than once", mod.Name))
		}
		seen[mod.Name] = struct{}{}
		if mod.SourceDir == "" {
			errs = append(errs, fmt.Errorf("native_module %q: source_dir is required", mod.Name))
		}
		if mod.OutputRoot == "" {
			errs = append(errs, fmt.Errorf("native_module %q: output_root is required", mod.Name))
		}
		if mod.LibName == "" {
			mod.LibName = mod.Name
		}
		if mod.Profile == "" {
			mod.Profile = DefaultProfile
		}
		if mod.Profile != "debug" && mod.Profile != "release" {
			errs = append(errs, fmt.Errorf("native_module %q: profile must be 'debug' or 'release', got %q", mod.Name, mod.Profile))
		}
		if mod.MinSDK < 0 {
			errs = append(errs, fmt.Errorf("native_module %q: min_sdk cannot be negative", mod.Name))
		}
	}
	for _, c := range m.Consumers {
		if c.InputPattern == "" {
			errs = append(errs, fmt.Errorf("consumer %s.%s: input_pattern is required", c.Kind, c.Name))
		}
	}
	return errors.Join(errs...)
}
