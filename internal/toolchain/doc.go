// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package toolchain wraps single invocations of the native build toolchain.
// One invocation builds one module for exactly one architecture and places
// the shared library in that architecture's output directory.
package toolchain
