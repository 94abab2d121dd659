// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package arch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vk/abiforge/internal/ctxlog"
)

// ErrUnsupportedArchitecture is the sentinel matched by errors.Is for any
// token outside the supported set.
var ErrUnsupportedArchitecture = errors.New("unsupported architecture")

// UnsupportedError reports the offending token and its position in the list.
type UnsupportedError struct {
	Token string
	Index int
}

func (e *UnsupportedError) Error() string {
	names := make([]string, 0, len(order))
	for _, a := range order {
		names = append(names, string(a))
	}
	return fmt.Sprintf("%s %q at targets[%d]; supported: %s",
		ErrUnsupportedArchitecture, e.Token, e.Index, strings.Join(names, ", "))
}

func (e *UnsupportedError) Unwrap() error { return ErrUnsupportedArchitecture }

// Resolve validates every token and returns the unique architectures in the
// order they first appear. The whole list is validated before anything is
// returned, so a bad token fails configuration before any build unit exists.
func Resolve(ctx context.Context, tokens []string) ([]Architecture, error) {
	logger := ctxlog.FromContext(ctx)

	seen := make(map[Architecture]struct{}, len(tokens))
	out := make([]Architecture, 0, len(tokens))
	for i, raw := range tokens {
		a := Architecture(strings.TrimSpace(raw))
		if !a.IsSupported() {
			return nil, &UnsupportedError{Token: raw, Index: i}
		}
		if _, dup := seen[a]; dup {
			logger.Debug("Collapsing duplicate architecture token.", "arch", a, "index", i)
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}

	logger.Debug("Target set resolved.", "tokens", len(tokens), "architectures", out)
	return out, nil
}
