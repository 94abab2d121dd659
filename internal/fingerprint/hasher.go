// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package fingerprint

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"

	"github.com/vk/abiforge/internal/arch"
	"golang.org/x/sync/errgroup"
)

// Fingerprint is a hex-encoded sha256 digest.
type Fingerprint string

func (f Fingerprint) String() string { return string(f) }

// Short returns the first 12 characters, for logs.
func (f Fingerprint) Short() string {
	if len(f) <= 12 {
		return string(f)
	}
	return string(f[:12])
}

// Inputs are the components of a compile fingerprint.
type Inputs struct {
	SourceDir        string
	ToolchainVersion string
	Arch             arch.Architecture
	Profile          string
	MinSDK           int
	Features         []string
	LibName          string
}

// DefaultSkipDirs are never hashed: cargo writes its own output under
// target/, which would otherwise change the fingerprint on every build.
var DefaultSkipDirs = []string{"target", ".git"}

// Hasher computes fingerprints, reading files with bounded parallelism.
type Hasher struct {
	workers  int
	skipDirs map[string]bool
}

// NewHasher creates a hasher. workers <= 0 uses GOMAXPROCS.
func NewHasher(workers int, skipDirs ...string) *Hasher {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if len(skipDirs) == 0 {
		skipDirs = DefaultSkipDirs
	}
	skip := make(map[string]bool, len(skipDirs))
	for _, d := range skipDirs {
		skip[d] = true
	}
	return &Hasher{workers: workers, skipDirs: skip}
}

// Compute returns the fingerprint of a compile task. Any read failure yields
// an *InvalidationError.
func (h *Hasher) Compute(ctx context.Context, in Inputs) (Fingerprint, error) {
	files, err := h.collect(in.SourceDir)
	if err != nil {
		return "", err
	}
	digests, err := h.digestFiles(ctx, in.SourceDir, files)
	if err != nil {
		return "", err
	}

	hw := newFieldWriter()
	hw.field("toolchain", in.ToolchainVersion)
	hw.field("arch", in.Arch.String())
	hw.field("profile", in.Profile)
	hw.field("min_sdk", strconv.Itoa(in.MinSDK))
	hw.field("lib_name", in.LibName)

	features := append([]string(nil), in.Features...)
	sort.Strings(features)
	hw.count(len(features))
	for _, f := range features {
		hw.field("feature", f)
	}

	hw.count(len(files))
	for i, rel := range files {
		hw.field("path", filepath.ToSlash(rel))
		hw.field("content", digests[i])
	}
	return hw.sum(), nil
}

// DigestDirs returns a digest over the content of every directory in dirs.
// A missing directory is hashed as an explicit absence marker so that its
// later appearance changes the digest.
func (h *Hasher) DigestDirs(ctx context.Context, dirs []string) (Fingerprint, error) {
	sorted := append([]string(nil), dirs...)
	sort.Strings(sorted)

	hw := newFieldWriter()
	hw.count(len(sorted))
	for _, dir := range sorted {
		hw.field("dir", filepath.ToSlash(dir))
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			hw.field("state", "absent")
			continue
		}
		files, err := h.collect(dir)
		if err != nil {
			return "", err
		}
		digests, err := h.digestFiles(ctx, dir, files)
		if err != nil {
			return "", err
		}
		hw.count(len(files))
		for i, rel := range files {
			hw.field("path", filepath.ToSlash(rel))
			hw.field("content", digests[i])
		}
	}
	return hw.sum(), nil
}

// collect returns the sorted relative paths of regular files under root.
func (h *Hasher) collect(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, &InvalidationError{Path: root, Err: err}
	}
	if !info.IsDir() {
		return nil, &InvalidationError{Path: root, Err: fs.ErrInvalid}
	}

	var files []string
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != root && h.skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, &InvalidationError{Path: root, Err: err}
	}
	sort.Strings(files)
	return files, nil
}

// digestFiles hashes files concurrently; results keep the input order.
func (h *Hasher) digestFiles(ctx context.Context, root string, files []string) ([]string, error) {
	digests := make([]string, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.workers)
	for i, rel := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sum, err := digestFile(filepath.Join(root, rel))
			if err != nil {
				return &InvalidationError{Path: filepath.Join(root, rel), Err: err}
			}
			digests[i] = sum
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return digests, nil
}

func digestFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	s := sha256.New()
	if _, err := io.Copy(s, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(s.Sum(nil)), nil
}

// fieldWriter writes length-prefixed, labelled fields so that no two
// distinct sequences of fields produce the same byte stream.
type fieldWriter struct {
	h hash.Hash
}

func newFieldWriter() *fieldWriter {
	return &fieldWriter{h: sha256.New()}
}

func (w *fieldWriter) raw(b []byte) {
	var prefix [8]byte
	binary.BigEndian.PutUint64(prefix[:], uint64(len(b)))
	w.h.Write(prefix[:])
	w.h.Write(b)
}

func (w *fieldWriter) field(label, value string) {
	w.raw([]byte(label))
	w.raw([]byte(value))
}

func (w *fieldWriter) count(n int) {
	w.field("count", strconv.Itoa(n))
}

func (w *fieldWriter) sum() Fingerprint {
	return Fingerprint(hex.EncodeToString(w.h.Sum(nil)))
}
