// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package dag

import (
	"errors"
	"fmt"
)

// ErrWiringConflict is the sentinel matched by errors.Is for every graph
// mutation the host graph refuses.
var ErrWiringConflict = errors.New("wiring conflict")

// ConflictKind classifies a wiring conflict.
type ConflictKind string

const (
	ConflictSelfEdge      ConflictKind = "self edge"
	ConflictDuplicateEdge ConflictKind = "duplicate edge"
	ConflictCycle         ConflictKind = "cycle"
	ConflictUnknownTask   ConflictKind = "unknown task"
	ConflictKindMismatch  ConflictKind = "kind mismatch"
	ConflictNoConsumer    ConflictKind = "no consumer"
)

// ConflictError describes a rejected graph mutation.
type ConflictError struct {
	Kind ConflictKind
	From string
	To   string
	Msg  string
}

func (e *ConflictError) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("%s: %s", ErrWiringConflict, e.Kind)
	if e.From != "" || e.To != "" {
		msg += fmt.Sprintf(" %s -> %s", e.From, e.To)
	}
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	return msg
}

func (e *ConflictError) Unwrap() error { return ErrWiringConflict }

func conflict(kind ConflictKind, from, to, format string, args ...any) error {
	return &ConflictError{Kind: kind, From: from, To: to, Msg: fmt.Sprintf(format, args...)}
}
