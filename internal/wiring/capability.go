// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package wiring

import "github.com/vk/abiforge/internal/dag"

// nativeLibConsumers is the closed set of task kinds that read a directory
// tree organized by ABI folder.
var nativeLibConsumers = map[dag.Kind]bool{
	dag.KindMergeNativeLibs:    true,
	dag.KindMergeJniLibFolders: true,
	dag.KindStripNativeLibs:    true,
}

// ConsumesNativeLibs reports whether tasks of kind k read per-ABI native libraries.
func ConsumesNativeLibs(k dag.Kind) bool {
	return nativeLibConsumers[k]
}

// ConsumerKinds returns the native-library consumer kinds in canonical order.
func ConsumerKinds() []dag.Kind {
	var out []dag.Kind
	for _, k := range dag.Kinds() {
		if nativeLibConsumers[k] {
			out = append(out, k)
		}
	}
	return out
}
