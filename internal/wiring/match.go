// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package wiring

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/vk/abiforge/internal/arch"
)

// Placeholders understood in consumer input patterns.
const (
	PlaceholderABI    = "{abi}"
	PlaceholderArch   = "{arch}"
	PlaceholderTriple = "{triple}"
)

// Matches reports whether a consumer with the given input pattern reads the
// output directory of a compile task for architecture a.
//
// A pattern with placeholders names the per-ABI directory itself, e.g.
// "build/jniLibs/{abi}"; glob metacharacters are honoured. A pattern without
// placeholders names either one ABI directory exactly or the root the
// consumer scans; a root matches any output directory that sits directly
// under it in the folder for a.
func Matches(pattern, outputDir string, a arch.Architecture) bool {
	if pattern == "" || outputDir == "" || !a.IsSupported() {
		return false
	}
	out := normalize(outputDir)

	if !hasPlaceholder(pattern) {
		p := normalize(pattern)
		if p == out {
			return path.Base(out) == a.Folder()
		}
		return path.Dir(out) == p && path.Base(out) == a.Folder()
	}

	expanded := strings.NewReplacer(
		PlaceholderABI, a.Folder(),
		PlaceholderArch, a.String(),
		PlaceholderTriple, a.Triple(),
	).Replace(pattern)

	ok, err := path.Match(normalize(expanded), out)
	return err == nil && ok
}

func hasPlaceholder(pattern string) bool {
	return strings.Contains(pattern, PlaceholderABI) ||
		strings.Contains(pattern, PlaceholderArch) ||
		strings.Contains(pattern, PlaceholderTriple)
}

func normalize(p string) string {
	return path.Clean(filepath.ToSlash(p))
}
