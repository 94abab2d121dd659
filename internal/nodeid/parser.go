// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package nodeid

import (
	"fmt"
	"regexp"
)

var (
	// addressRegex matches `kind.name` with an optional `[variant]` suffix.
	addressRegex = regexp.MustCompile(`^([a-z][a-z0-9_]*)\.([A-Za-z0-9_-]+)(?:\[([A-Za-z0-9_-]+)\])?$`)
)

// Parse creates an Address from its canonical string representation.
func Parse(rawID string) (Address, error) {
	if rawID == "" {
		return Address{}, fmt.Errorf("identifier cannot be empty")
	}

	matches := addressRegex.FindStringSubmatch(rawID)
	if matches == nil {
		return Address{}, fmt.Errorf("invalid task identifier: %q", rawID)
	}
	if matches[2] == "-" {
		return Address{}, fmt.Errorf("invalid task name: %q", matches[2])
	}

	return Address{Kind: matches[1], Name: matches[2], Variant: matches[3]}, nil
}

// MustParse is like Parse but panics on error. Intended for tests and
// package-level constants.
func MustParse(rawID string) Address {
	addr, err := Parse(rawID)
	if err != nil {
		panic(err)
	}
	return addr
}
