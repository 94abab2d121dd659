// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package config defines the format-agnostic build description along with the
// Loader interface that reads it from a concrete format.
//
// The `config.Model` is the single source of truth for the app: it names the
// native modules to compile, the toolchain that compiles them and the host
// consumer tasks that read their output. Concrete loaders, such as the HCL
// one, live in separate packages.
package config
