// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package fingerprint

import (
	"errors"
	"fmt"
)

// ErrCacheInvalidation is matched by errors.Is when a fingerprint could not
// be computed. Callers must treat it as a cache miss.
var ErrCacheInvalidation = errors.New("cache invalidation")

// InvalidationError carries the path that could not be read.
type InvalidationError struct {
	Path string
	Err  error
}

func (e *InvalidationError) Error() string {
	return fmt.Sprintf("%s: cannot fingerprint %s: %v", ErrCacheInvalidation, e.Path, e.Err)
}

func (e *InvalidationError) Unwrap() []error {
	return []error{ErrCacheInvalidation, e.Err}
}
