// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package nodeid

// Address is the structured representation of a unique task identifier.
type Address struct {
	// Kind is the task-kind tag, e.g. "compile".
	Kind string
	// Name is the module or task name.
	Name string
	// Variant distinguishes instances of the same task, e.g. the architecture
	// of a compile task. Empty means no variant.
	Variant string
}

// New creates an address without a variant.
func New(kind, name string) Address {
	return Address{Kind: kind, Name: name}
}

// NewWithVariant creates an address that includes a variant.
func NewWithVariant(kind, name, variant string) Address {
	return Address{Kind: kind, Name: name, Variant: variant}
}

// HasVariant returns true if the address carries an explicit variant.
func (a Address) HasVariant() bool {
	return a.Variant != ""
}
