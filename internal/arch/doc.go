// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package arch defines the closed set of target architectures and the Target
// Set Resolver that turns configured tokens into an ordered, de-duplicated set
// of architectures.
//
// Each architecture knows the three names it goes by: the ABI folder the
// packaging step scans (arm64-v8a), the Rust target triple cargo builds for
// (aarch64-linux-android) and the NDK clang wrapper used as its linker.
package arch
