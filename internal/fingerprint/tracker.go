// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package fingerprint

import (
	"context"
	"os"
	"time"

	"github.com/vk/abiforge/internal/ctxlog"
)

// Decision is the outcome of a cache lookup.
type Decision struct {
	// Hit means the recorded work is still valid and must not be redone.
	Hit bool
	// Fingerprint is the freshly computed value, empty if computation failed.
	Fingerprint Fingerprint
	// Reason explains a miss, for logs.
	Reason string
	// Err is set when the fingerprint could not be computed.
	Err error
}

// Miss reasons.
const (
	ReasonNoRecord        = "no previous record"
	ReasonChanged         = "inputs changed"
	ReasonArtifactMissing = "artifact missing"
	ReasonUnavailable     = "fingerprint unavailable"
)

// Tracker decides whether tasks must run, based on a ledger.
type Tracker struct {
	hasher *Hasher
	ledger *Ledger
	now    func() time.Time
}

// NewTracker creates a tracker over the given hasher and ledger.
func NewTracker(hasher *Hasher, ledger *Ledger) *Tracker {
	return &Tracker{hasher: hasher, ledger: ledger, now: time.Now}
}

// Ledger returns the underlying ledger.
func (t *Tracker) Ledger() *Ledger { return t.ledger }

// Decide computes the fingerprint of a compile task and compares it with the
// ledger. A hit requires an equal fingerprint and an existing artifact.
func (t *Tracker) Decide(ctx context.Context, key string, in Inputs, artifactPath string) Decision {
	logger := ctxlog.FromContext(ctx).With("task", key)

	fp, err := t.hasher.Compute(ctx, in)
	if err != nil {
		logger.Warn("Could not compute fingerprint, forcing rebuild.", "error", err)
		return Decision{Reason: ReasonUnavailable, Err: err}
	}
	prev, ok := t.ledger.Compile(key)
	return t.compare(fp, prev, ok, artifactPath)
}

// Record stores a successful compile. Empty fingerprints are ignored.
func (t *Tracker) Record(key string, fp Fingerprint, artifactPath string) {
	if fp == "" {
		return
	}
	t.ledger.PutCompile(key, Entry{Fingerprint: fp, Artifact: artifactPath, RecordedAt: t.now()})
}

// DecideInputs digests a consumer's declared input directories and compares
// the digest with the ledger. A hit requires the consumer's output directory
// to exist.
func (t *Tracker) DecideInputs(ctx context.Context, key string, inputs []string, outputDir string) Decision {
	logger := ctxlog.FromContext(ctx).With("task", key)

	fp, err := t.hasher.DigestDirs(ctx, inputs)
	if err != nil {
		logger.Warn("Could not digest consumer inputs, forcing run.", "error", err)
		return Decision{Reason: ReasonUnavailable, Err: err}
	}
	prev, ok := t.ledger.Consumer(key)
	return t.compare(fp, prev, ok, outputDir)
}

// RecordInputs stores the input digest of a successful consumer run.
func (t *Tracker) RecordInputs(key string, fp Fingerprint, outputDir string) {
	if fp == "" {
		return
	}
	t.ledger.PutConsumer(key, Entry{Fingerprint: fp, Artifact: outputDir, RecordedAt: t.now()})
}

// Forget drops all records of a task, typically after it failed.
func (t *Tracker) Forget(key string) {
	t.ledger.Forget(key)
}

func (t *Tracker) compare(fp Fingerprint, prev Entry, ok bool, mustExist string) Decision {
	switch {
	case !ok:
		return Decision{Fingerprint: fp, Reason: ReasonNoRecord}
	case prev.Fingerprint != fp:
		return Decision{Fingerprint: fp, Reason: ReasonChanged}
	case mustExist != "" && !exists(mustExist):
		return Decision{Fingerprint: fp, Reason: ReasonArtifactMissing}
	default:
		return Decision{Hit: true, Fingerprint: fp}
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
