// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/abiforge/internal/app"
)

// Exit codes.
const (
	ExitBuildFailed = 1
	ExitUsage       = 2
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// AsExitError maps an error returned by the application to an ExitError:
// configuration problems exit with ExitUsage, everything else with
// ExitBuildFailed. ExitErrors pass through unchanged.
func AsExitError(err error) *ExitError {
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	if errors.Is(err, app.ErrInvalidConfiguration) {
		return &ExitError{Code: ExitUsage, Message: err.Error()}
	}
	return &ExitError{Code: ExitBuildFailed, Message: err.Error()}
}

// pathList collects repeated -c/--config values.
type pathList []string

func (p *pathList) String() string { return strings.Join(*p, ",") }

func (p *pathList) Set(v string) error {
	*p = append(*p, v)
	return nil
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("abiforge", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
abiforge - Builds a native library once per Android ABI and wires the
results into the packaging tasks that consume them.

Usage:
  abiforge [options] [BUILD_PATH...]

Arguments:
  BUILD_PATH
    Path to a single .hcl file or a directory containing .hcl files.

Options:
`)
		flagSet.PrintDefaults()
	}

	var configPaths pathList
	flagSet.Var(&configPaths, "config", "Path to a build description file or directory. May be repeated.")
	flagSet.Var(&configPaths, "c", "Path to a build description file or directory (shorthand).")
	stateFlag := flagSet.String("state-file", app.DefaultStateFile, "Where fingerprints are persisted between runs.")
	statusPortFlag := flagSet.Int("status-port", 0, "Port for the HTTP status server (/health, /tasks). 0 is disabled.")
	eventsURLFlag := flagSet.String("events-url", "", "socket.io dashboard URL receiving task_state events. Empty is disabled.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	workersFlag := flagSet.Int("workers", 4, "Number of concurrent workers for the executor.")
	dryRunFlag := flagSet.Bool("dry-run", false, "Print the wired build plan without executing it.")
	strictFlag := flagSet.Bool("strict-consumers", false, "Fail when a native module has no consumer task.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: ExitUsage, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	paths := append([]string(configPaths), flagSet.Args()...)
	slog.Debug("Build description paths determined.", "paths", paths)

	if len(paths) == 0 {
		slog.Debug("No build description provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: ExitUsage, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: ExitUsage, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	if *workersFlag < 1 {
		return nil, false, &ExitError{Code: ExitUsage, Message: "invalid workers: must be at least 1"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		ConfigPaths:     paths,
		StateFile:       *stateFlag,
		LogFormat:       logFormat,
		LogLevel:        logLevel,
		StatusPort:      *statusPortFlag,
		EventsURL:       *eventsURLFlag,
		WorkerCount:     *workersFlag,
		DryRun:          *dryRunFlag,
		StrictConsumers: *strictFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: ExitUsage, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
