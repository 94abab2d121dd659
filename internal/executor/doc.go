// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package executor runs the host build graph with a pool of workers.
//
// A task becomes ready when every prerequisite succeeded. When a task fails,
// everything downstream of it is skipped, while independent tasks, such as
// compile tasks for other architectures, keep running to completion. The
// executor never polls: readiness is driven by per-task dependency counters
// decremented as prerequisites finish.
package executor
