// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package wiring is the Dependency Wiring Engine. It links every compile task
// to every host task that reads per-ABI native libraries from the compile
// task's output directory.
//
// Wiring is a two-phase process. During registration, modules are declared
// with Engine.Declare; nothing touches the graph yet because consumer tasks
// may not exist. Finalize then resolves declarations against the graph as it
// stands: for each matching (compile, consumer) pair it declares the compile
// output directory as a consumer input and adds the ordering edge. Finalize
// is idempotent.
package wiring
