// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package process

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// Error Definitions
// =============================================================================

var (
	// ErrEmptyCommand indicates an execution request with no tokens.
	ErrEmptyCommand = errors.New("command tokens must not be empty")

	// ErrLaunchFailed indicates the process never started (missing binary,
	// permission denied, invalid working directory).
	ErrLaunchFailed = errors.New("failed to launch process")
)

// =============================================================================
// Command Error Type
// =============================================================================

// CommandError wraps a command execution failure with output context.
//
// # Description
//
// Provides rich error context for command failures, including the
// command that failed, exit code, and captured output. Implements
// the error interface and supports unwrapping via errors.Is/As.
//
// The Output field holds combined stdout+stderr because compose CLIs
// split diagnostics across both streams.
//
// # Thread Safety
//
// CommandError is immutable after creation and safe for concurrent reads.
//
// # Example
//
//	err := NewCommandError("docker compose up -d", 1, "network not found", originalErr)
//	fmt.Println(err.Error()) // "docker compose up -d (exit 1): network not found"
//
//	var cmdErr *CommandError
//	if errors.As(err, &cmdErr) {
//	    fmt.Println(cmdErr.Output) // "network not found"
//	}
//
// # Limitations
//
//   - Output is stored as a single string, not streaming
//   - Large output consumes memory
type CommandError struct {
	// Command is the command that was executed.
	Command string

	// ExitCode is the process exit code (-1 if unknown).
	ExitCode int

	// Output contains the combined stdout+stderr output (trimmed).
	Output string

	// Wrapped is the underlying error (may be nil).
	Wrapped error
}

// =============================================================================
// CommandError Methods
// =============================================================================

// Error returns a formatted error message.
//
// # Description
//
// Returns a human-readable error message that includes the command,
// exit code, and captured output if available. Output takes priority
// over the wrapped error in the message format.
//
// # Outputs
//
//   - string: Formatted error message
//
// # Example
//
//	err := &CommandError{Command: "docker compose ps", ExitCode: 2, Output: "no such project"}
//	fmt.Println(err.Error()) // "docker compose ps (exit 2): no such project"
//
// # Assumptions
//
//   - Receiver is not nil
func (e *CommandError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("%s (exit %d): %s", e.Command, e.ExitCode, e.Output)
	}
	if e.Wrapped != nil {
		return fmt.Sprintf("%s (exit %d): %v", e.Command, e.ExitCode, e.Wrapped)
	}
	return fmt.Sprintf("%s (exit %d)", e.Command, e.ExitCode)
}

// Unwrap returns the underlying error.
//
// # Description
//
// Enables errors.Is() and errors.As() to work through the error chain.
// Returns nil if there is no wrapped error.
//
// # Example
//
//	cmdErr := NewCommandError("docker compose up", -1, "", context.Canceled)
//	fmt.Println(errors.Is(cmdErr, context.Canceled)) // true
//
// # Assumptions
//
//   - Receiver is not nil
func (e *CommandError) Unwrap() error {
	return e.Wrapped
}

// HasOutput returns true if captured output is available.
//
// # Description
//
// Checks whether the CommandError carries command output.
// Useful for conditional formatting or display.
//
// # Example
//
//	if cmdErr.HasOutput() {
//	    fmt.Fprintf(os.Stderr, "Output: %s\n", cmdErr.Output)
//	}
func (e *CommandError) HasOutput() bool {
	return e.Output != ""
}

// Compile-time interface satisfaction checks
var _ error = (*CommandError)(nil)

// =============================================================================
// Constructor Functions
// =============================================================================

// NewCommandError creates a CommandError with full context.
//
// # Description
//
// Creates a new CommandError with command name, exit code, output,
// and underlying error. Output is trimmed of leading/trailing whitespace
// to normalize what various CLIs emit.
//
// # Inputs
//
//   - cmd: The command that was executed (e.g., "docker compose up -d")
//   - exitCode: Process exit code (-1 if unknown)
//   - output: Combined stdout+stderr (will be trimmed)
//   - wrapped: Underlying error (may be nil)
//
// # Outputs
//
//   - *CommandError: New error with full context
//
// # Example
//
//	if result.ExitCode != 0 {
//	    return NewCommandError(result.CommandLine(), result.ExitCode, result.Output, nil)
//	}
//
// # Limitations
//
//   - Output is stored entirely in memory
//   - Does not validate cmd is non-empty
func NewCommandError(cmd string, exitCode int, output string, wrapped error) *CommandError {
	return &CommandError{
		Command:  cmd,
		ExitCode: exitCode,
		Output:   strings.TrimSpace(output),
		Wrapped:  wrapped,
	}
}

// =============================================================================
// Utility Functions
// =============================================================================

// WrapCommandError wraps an existing error into a CommandError if it isn't already.
//
// # Description
//
// If the error is already a *CommandError, returns it as-is to prevent
// double-wrapping. Otherwise, creates a new CommandError wrapping the original.
// Returns nil if the input error is nil.
//
// # Inputs
//
//   - err: Error to wrap (may be nil)
//   - cmd: Command name for context
//   - exitCode: Exit code (-1 if unknown)
//   - output: Combined stdout+stderr
//
// # Outputs
//
//   - *CommandError: Wrapped error, or nil if err was nil
//
// # Limitations
//
//   - Only checks for direct *CommandError type, not wrapped
func WrapCommandError(err error, cmd string, exitCode int, output string) *CommandError {
	if err == nil {
		return nil
	}

	// Don't double-wrap
	if cmdErr, ok := err.(*CommandError); ok {
		return cmdErr
	}

	return NewCommandError(cmd, exitCode, output, err)
}

// ExtractOutput extracts captured command output from an error chain.
//
// # Description
//
// Walks the error chain looking for a CommandError with non-empty output.
// Returns the first output found, or empty string if none exists.
// This is useful for surfacing compose CLI diagnostics to users.
//
// Uses errors.As, so it sees through both single-error wrapping and the
// multi-error chains produced by fmt.Errorf with several %w verbs.
//
// # Inputs
//
//   - err: Error to extract output from (may be nil)
//
// # Outputs
//
//   - string: Captured output, or empty string if not found
//
// # Example
//
//	if out := process.ExtractOutput(err); out != "" {
//	    t.Logf("compose output:\n%s", out)
//	}
//
// # Limitations
//
//   - Only finds first output in chain (not all)
func ExtractOutput(err error) string {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) && cmdErr.HasOutput() {
		return cmdErr.Output
	}
	return ""
}
