// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package hcl_adapter implements config.Loader for HCL build files.
package hcl_adapter
