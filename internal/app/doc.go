// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the build lifecycle: load the build
// description, register per-architecture compile tasks, wire them into the
// consumer tasks, execute the graph and persist fingerprints. It is decoupled
// from any specific entrypoint like a CLI.
package app
