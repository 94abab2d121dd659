// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package registry is the Build Task Registry: it owns one compile task per
// (module, architecture) pair and mirrors each into the host build graph so
// the wiring engine can link it to consumers.
//
// A compile task serializes its own state transitions under a per-task lock,
// which guarantees that at most one worker ever invokes the toolchain for a
// given pair during a build.
package registry
