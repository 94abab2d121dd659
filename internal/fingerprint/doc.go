// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package fingerprint is the incremental change tracker.
//
// A compile fingerprint covers the content of the source tree, the toolchain
// version, the target architecture and the build settings that reach the
// compiler. Fingerprints are kept in a YAML ledger between invocations. A
// task whose fingerprint matches the ledger and whose artifact still exists
// is a cache hit; anything else, including a failure to compute the
// fingerprint, is a miss.
//
// The same ledger stores input digests for consumer tasks, which is how a
// merge step is skipped when none of its declared input directories changed.
package fingerprint
