// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package toolchain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vk/abiforge/internal/arch"
)

// ErrInvocationFailed is matched by errors.Is for every failed invocation.
var ErrInvocationFailed = errors.New("toolchain invocation failed")

// InvocationError names the architecture that failed and carries the
// toolchain's diagnostic output.
type InvocationError struct {
	Module string
	Arch   arch.Architecture
	Output string
	Err    error
}

func (e *InvocationError) Error() string {
	msg := fmt.Sprintf("%s for %s [%s]: %v", ErrInvocationFailed, e.Module, e.Arch, e.Err)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += "\n" + out
	}
	return msg
}

func (e *InvocationError) Unwrap() []error {
	return []error{ErrInvocationFailed, e.Err}
}
