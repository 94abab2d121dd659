// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package config

import "context"

// Loader is the interface for a format-specific configuration loader.
type Loader interface {
	// Load reads configuration from the given paths and translates it into
	// the format-agnostic model. Relative paths inside the model are
	// resolved against the directory of the file that declared them.
	Load(ctx context.Context, paths ...string) (*Model, error)
}
