// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package fingerprint

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vk/abiforge/internal/ctxlog"
	"github.com/vk/abiforge/internal/fsutil"
	"gopkg.in/yaml.v3"
)

// ledgerVersion is bumped whenever the fingerprint layout changes, which
// invalidates every recorded entry.
const ledgerVersion = 1

// Entry is one recorded fingerprint.
type Entry struct {
	Fingerprint Fingerprint `yaml:"fingerprint"`
	Artifact    string      `yaml:"artifact,omitempty"`
	RecordedAt  time.Time   `yaml:"recorded_at"`
}

// ledgerFile is the on-disk layout of the ledger.
type ledgerFile struct {
	Version   int              `yaml:"version"`
	Compile   map[string]Entry `yaml:"compile"`
	Consumers map[string]Entry `yaml:"consumers"`
}

// Ledger persists fingerprints between build invocations.
type Ledger struct {
	mu        sync.Mutex
	path      string
	compile   map[string]Entry
	consumers map[string]Entry
	dirty     bool
}

// NewMemoryLedger returns a ledger that is never written to disk.
func NewMemoryLedger() *Ledger {
	return &Ledger{
		compile:   make(map[string]Entry),
		consumers: make(map[string]Entry),
	}
}

// OpenLedger reads the ledger at path. A missing file yields an empty
// ledger. An unreadable or outdated file is discarded with a warning, which
// only costs a full rebuild.
func OpenLedger(ctx context.Context, path string) (*Ledger, error) {
	logger := ctxlog.FromContext(ctx).With("path", path)
	l := NewMemoryLedger()
	l.path = path

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Debug("No fingerprint ledger yet, starting empty.")
			return l, nil
		}
		return nil, fmt.Errorf("reading fingerprint ledger: %w", err)
	}

	var file ledgerFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		logger.Warn("Fingerprint ledger is corrupt, discarding it.", "error", err)
		return l, nil
	}
	if file.Version != ledgerVersion {
		logger.Warn("Fingerprint ledger version changed, discarding it.", "found", file.Version, "want", ledgerVersion)
		return l, nil
	}
	for k, v := range file.Compile {
		l.compile[k] = v
	}
	for k, v := range file.Consumers {
		l.consumers[k] = v
	}
	logger.Debug("Fingerprint ledger loaded.", "compile_entries", len(l.compile), "consumer_entries", len(l.consumers))
	return l, nil
}

// Path returns the file backing the ledger, empty for memory ledgers.
func (l *Ledger) Path() string { return l.path }

// Compile returns the recorded entry of a compile task.
func (l *Ledger) Compile(key string) (Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.compile[key]
	return e, ok
}

// PutCompile records the entry of a compile task.
func (l *Ledger) PutCompile(key string, e Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.compile[key] = e
	l.dirty = true
}

// Consumer returns the recorded input digest of a consumer task.
func (l *Ledger) Consumer(key string) (Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.consumers[key]
	return e, ok
}

// PutConsumer records the input digest of a consumer task.
func (l *Ledger) PutConsumer(key string, e Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.consumers[key] = e
	l.dirty = true
}

// Forget drops the entries of a task so the next build treats it as new.
func (l *Ledger) Forget(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.compile, key)
	delete(l.consumers, key)
	l.dirty = true
}

// Save writes the ledger atomically if anything changed.
func (l *Ledger) Save() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.path == "" || !l.dirty {
		return nil
	}
	data, err := yaml.Marshal(&ledgerFile{
		Version:   ledgerVersion,
		Compile:   l.compile,
		Consumers: l.consumers,
	})
	if err != nil {
		return fmt.Errorf("marshaling fingerprint ledger: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("creating ledger directory: %w", err)
	}
	if err := fsutil.WriteFileAtomic(l.path, data, 0o644); err != nil {
		return fmt.Errorf("writing fingerprint ledger: %w", err)
	}
	l.dirty = false
	return nil
}
