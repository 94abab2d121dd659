// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package nodeid

import "strings"

// String serializes the Address into its canonical string representation.
func (a Address) String() string {
	var sb strings.Builder
	sb.WriteString(a.Kind)
	sb.WriteRune('.')
	sb.WriteString(a.Name)
	if a.HasVariant() {
		sb.WriteRune('[')
		sb.WriteString(a.Variant)
		sb.WriteRune(']')
	}
	return sb.String()
}

// Equal reports whether two addresses identify the same task.
func (a Address) Equal(other Address) bool {
	return a == other
}
