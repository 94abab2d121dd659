// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package hcl_adapter

import "github.com/hashicorp/hcl/v2"

// fileRoot is a struct used to decode all possible top-level blocks from any file.
type fileRoot struct {
	Toolchains []*Toolchain    `hcl:"toolchain,block"`
	Modules    []*NativeModule `hcl:"native_module,block"`
	Consumers  []*Consumer     `hcl:"consumer,block"`
	Remain     hcl.Body        `hcl:",remain"`
}

// Toolchain is the HCL schema of the `toolchain` block.
type Toolchain struct {
	Command        string            `hcl:"command,optional"`
	VersionCommand []string          `hcl:"version_command,optional"`
	NDKDir         string            `hcl:"ndk_dir,optional"`
	Env            map[string]string `hcl:"env,optional"`
}

// NativeModule is the HCL schema of a `native_module "<name>"` block.
type NativeModule struct {
	Name            string         `hcl:"name,label"`
	SourceDir       string         `hcl:"source_dir"`
	LibName         string         `hcl:"lib_name,optional"`
	Targets         []string       `hcl:"targets"`
	MinSDK          int            `hcl:"min_sdk,optional"`
	Features        []string       `hcl:"features,optional"`
	Profile         string         `hcl:"profile,optional"`
	OutputRoot      string         `hcl:"output_root"`
	StrictConsumers bool           `hcl:"strict_consumers,optional"`
	Overrides       []*TargetBlock `hcl:"target,block"`
}

// TargetBlock overrides settings for one architecture token.
type TargetBlock struct {
	Arch      string `hcl:"arch,label"`
	SourceDir string `hcl:"source_dir"`
}

// Consumer is the HCL schema of a `consumer "<kind>" "<name>"` block.
type Consumer struct {
	Kind         string   `hcl:"kind,label"`
	Name         string   `hcl:"name,label"`
	InputPattern string   `hcl:"input_pattern"`
	OutputDir    string   `hcl:"output_dir,optional"`
	DependsOn    []string `hcl:"depends_on,optional"`
}
