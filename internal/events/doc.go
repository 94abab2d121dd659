// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package events streams task state transitions to observers: the log, an
// optional socket.io dashboard, or an in-memory recorder in tests.
package events
