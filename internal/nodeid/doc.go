// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

/*
Package nodeid provides a structured identifier for tasks in the host build
graph, in the canonical form `kind.name` or `kind.name[variant]`.

Compile tasks use the architecture as their variant, e.g.
`compile.native_core[arm64]`; consumer tasks are addressed by their kind tag
and name, e.g. `merge_native_libs.mergeDebugNativeLibs`.

This package centralizes all formatting and parsing of task identifiers so the
registry, graph and executor agree on one key per task.
*/
package nodeid
