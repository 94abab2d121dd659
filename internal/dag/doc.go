// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package dag implements the host build graph: tasks tagged with a kind,
// ordering edges between them, and the set of input directories each task
// declares for change detection.
//
// The graph is an injected handle with a small mutation contract (add task,
// add edge, declare input). It rejects self edges, duplicate edges and edges
// that would close a cycle, so callers that need idempotence check HasEdge
// before mutating.
package dag
