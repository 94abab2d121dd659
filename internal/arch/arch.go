// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package arch

import (
	"strconv"
	"strings"
)

// Architecture is a target instruction-set/ABI from a small closed set.
type Architecture string

const (
	Arm    Architecture = "arm"
	Arm64  Architecture = "arm64"
	X86    Architecture = "x86"
	X86_64 Architecture = "x86_64"
)

// descriptor holds the naming conventions one architecture needs across the
// toolchain and packaging sides.
type descriptor struct {
	// folder is the per-ABI directory name the packaging step scans.
	folder string
	// triple is the Rust target triple passed to cargo.
	triple string
	// clangPrefix is the NDK clang wrapper prefix, completed with the API level.
	clangPrefix string
}

var supported = map[Architecture]descriptor{
	Arm:    {folder: "armeabi-v7a", triple: "armv7-linux-androideabi", clangPrefix: "armv7a-linux-androideabi"},
	Arm64:  {folder: "arm64-v8a", triple: "aarch64-linux-android", clangPrefix: "aarch64-linux-android"},
	X86:    {folder: "x86", triple: "i686-linux-android", clangPrefix: "i686-linux-android"},
	X86_64: {folder: "x86_64", triple: "x86_64-linux-android", clangPrefix: "x86_64-linux-android"},
}

// order is the canonical listing order used in diagnostics.
var order = []Architecture{Arm, Arm64, X86, X86_64}

// Supported returns every supported architecture in canonical order.
func Supported() []Architecture {
	out := make([]Architecture, len(order))
	copy(out, order)
	return out
}

// IsSupported reports whether a is a member of the supported set.
func (a Architecture) IsSupported() bool {
	_, ok := supported[a]
	return ok
}

// String implements fmt.Stringer.
func (a Architecture) String() string {
	return string(a)
}

// Folder returns the ABI folder name, e.g. "arm64-v8a". Unsupported values
// return an empty string.
func (a Architecture) Folder() string {
	return supported[a].folder
}

// Triple returns the Rust target triple, e.g. "aarch64-linux-android".
func (a Architecture) Triple() string {
	return supported[a].triple
}

// ClangTarget returns the NDK clang target for the given API level, e.g.
// "aarch64-linux-android28".
func (a Architecture) ClangTarget(apiLevel int) string {
	d, ok := supported[a]
	if !ok {
		return ""
	}
	return d.clangPrefix + strconv.Itoa(apiLevel)
}

// CargoEnvTriple returns the triple in the upper-snake form cargo expects in
// CARGO_TARGET_<TRIPLE>_LINKER.
func (a Architecture) CargoEnvTriple() string {
	return strings.ToUpper(strings.ReplaceAll(a.Triple(), "-", "_"))
}

// FromFolder maps an ABI folder name back to its architecture.
func FromFolder(folder string) (Architecture, bool) {
	for a, d := range supported {
		if d.folder == folder {
			return a, true
		}
	}
	return "", false
}
