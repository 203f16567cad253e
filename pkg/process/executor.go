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
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Executor handles external process operations.
//
// This interface abstracts all interaction with the operating system's process
// management, enabling testable code that doesn't require real process execution.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use from multiple goroutines.
//
// # Context Handling
//
// All methods accept a context.Context. Cancellation kills the child process
// and surfaces as an error; it is never folded into a normal Result.
type Executor interface {
	// Execute runs a command synchronously in the current working directory.
	//
	// # Description
	//
	// Launches the command described by tokens (tokens[0] is the binary,
	// the rest are arguments) and blocks until it exits. The combined
	// stdout+stderr output and the exit code are returned in the Result.
	//
	// A non-zero exit code is a NORMAL result: the error return is nil.
	// The error return is non-nil only when the process could not be
	// launched (missing binary, permission denied) or the context was
	// cancelled before completion.
	//
	// # Inputs
	//
	//   - ctx: Context for cancellation
	//   - tokens: Command line as discrete tokens (must be non-empty)
	//
	// # Outputs
	//
	//   - Result: Exit code, combined output, duration, and the command run
	//   - error: Non-nil only for launch failure or cancellation
	//
	// # Examples
	//
	//	result, err := exec.Execute(ctx, []string{"docker", "compose", "version"})
	//	if err != nil {
	//	    return fmt.Errorf("docker unavailable: %w", err)
	//	}
	//
	// # Limitations
	//
	//   - Output is fully buffered in memory; unsuitable for unbounded streams
	//   - No timeout at this layer; callers bound execution via ctx
	Execute(ctx context.Context, tokens []string) (Result, error)

	// ExecuteInDir runs a command in a specific working directory with
	// additional environment variables.
	//
	// # Description
	//
	// Identical contract to Execute, but the child process runs with dir
	// as its working directory and env (KEY=VALUE pairs) appended to the
	// parent environment. An empty dir means the current directory; a nil
	// env means the parent environment unchanged.
	//
	// # Inputs
	//
	//   - ctx: Context for cancellation
	//   - dir: Working directory for the child ("" for current)
	//   - env: Extra KEY=VALUE pairs appended to os.Environ() (may be nil)
	//   - tokens: Command line as discrete tokens (must be non-empty)
	//
	// # Outputs
	//
	//   - Result: Exit code, combined output, duration, and the command run
	//   - error: Non-nil only for launch failure or cancellation
	//
	// # Examples
	//
	//	result, err := exec.ExecuteInDir(ctx, "/work/stack",
	//	    []string{"COMPOSE_PARALLEL_LIMIT=4"},
	//	    []string{"docker", "compose", "-p", "demo", "up", "-d"},
	//	)
	ExecuteInDir(ctx context.Context, dir string, env []string, tokens []string) (Result, error)
}

// =============================================================================
// Supporting Types
// =============================================================================

// Result describes a completed command execution.
//
// Result is returned for every command that actually ran, regardless of
// exit code. Callers inspect ExitCode to decide success.
type Result struct {
	// ExitCode is the process exit code. 0 means success.
	ExitCode int

	// Output is the combined stdout and stderr of the process, interleaved
	// in arrival order. Compose CLIs split diagnostics across both streams,
	// so they are captured together.
	Output string

	// Duration is the wall-clock time from launch to exit.
	Duration time.Duration

	// Command is the token list that was executed, for logging.
	Command []string
}

// Success returns true if the command exited zero.
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// CommandLine returns the command as a single printable string.
func (r Result) CommandLine() string {
	return strings.Join(r.Command, " ")
}

// =============================================================================
// Default Implementation
// =============================================================================

// DefaultExecutor implements Executor using os/exec.
//
// This is the production implementation that executes real processes on the
// system. Use MockExecutor in tests instead.
type DefaultExecutor struct{}

// NewDefaultExecutor creates a new DefaultExecutor.
//
// # Description
//
// Creates an Executor that runs real processes using os/exec.
// This should be used in production code.
//
// # Outputs
//
//   - *DefaultExecutor: Ready-to-use executor
//
// # Examples
//
//	exec := NewDefaultExecutor()
//	result, err := exec.Execute(ctx, []string{"docker", "compose", "version"})
func NewDefaultExecutor() *DefaultExecutor {
	return &DefaultExecutor{}
}

// Execute runs a command synchronously in the current working directory.
func (e *DefaultExecutor) Execute(ctx context.Context, tokens []string) (Result, error) {
	return e.ExecuteInDir(ctx, "", nil, tokens)
}

// ExecuteInDir runs a command in dir with extra environment variables.
func (e *DefaultExecutor) ExecuteInDir(ctx context.Context, dir string, env []string, tokens []string) (Result, error) {
	if len(tokens) == 0 {
		return Result{}, ErrEmptyCommand
	}

	cmd := exec.CommandContext(ctx, tokens[0], tokens[1:]...)
	if dir != "" {
		cmd.Dir = dir
	}
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}

	start := time.Now()
	output, err := cmd.CombinedOutput()
	result := Result{
		Output:   string(output),
		Duration: time.Since(start),
		Command:  append([]string(nil), tokens...),
	}

	if err == nil {
		return result, nil
	}

	// Cancellation always surfaces as an error, even though the killed
	// process also reports through an ExitError.
	if ctx.Err() != nil {
		return Result{}, NewCommandError(result.CommandLine(), -1, result.Output, ctx.Err())
	}

	// The process ran and exited non-zero. That is a normal result here;
	// the caller decides whether the exit code is fatal.
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}

	// Launch failure: binary missing, not executable, bad working dir.
	return Result{}, NewCommandError(result.CommandLine(), -1, result.Output,
		fmt.Errorf("%w: %w", ErrLaunchFailed, err))
}

// =============================================================================
// Mock Implementation for Testing
// =============================================================================

// MockExecutor is a test double for Executor.
//
// Configure the mock by setting function fields before use. If a function
// field is nil and the corresponding method is called, it will panic.
//
// # Examples
//
//	mock := &process.MockExecutor{
//	    ExecuteInDirFunc: func(ctx context.Context, dir string, env []string, tokens []string) (process.Result, error) {
//	        if tokens[len(tokens)-1] == "ps" {
//	            return process.Result{ExitCode: 0, Output: psJSON}, nil
//	        }
//	        return process.Result{ExitCode: 0}, nil
//	    },
//	}
type MockExecutor struct {
	// ExecuteFunc is called when Execute is invoked
	ExecuteFunc func(ctx context.Context, tokens []string) (Result, error)

	// ExecuteInDirFunc is called when ExecuteInDir is invoked
	ExecuteInDirFunc func(ctx context.Context, dir string, env []string, tokens []string) (Result, error)

	// Calls records all method invocations for verification
	Calls []ExecutorCall

	// mu protects Calls for concurrent access
	mu sync.Mutex
}

// ExecutorCall records a single method invocation.
type ExecutorCall struct {
	Method string
	Dir    string
	Env    []string
	Tokens []string
}

// Execute delegates to ExecuteFunc and records the call.
func (m *MockExecutor) Execute(ctx context.Context, tokens []string) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, ExecutorCall{
		Method: "Execute",
		Tokens: tokens,
	})
	if m.ExecuteFunc == nil {
		panic("MockExecutor.ExecuteFunc not set")
	}
	return m.ExecuteFunc(ctx, tokens)
}

// ExecuteInDir delegates to ExecuteInDirFunc and records the call.
func (m *MockExecutor) ExecuteInDir(ctx context.Context, dir string, env []string, tokens []string) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, ExecutorCall{
		Method: "ExecuteInDir",
		Dir:    dir,
		Env:    env,
		Tokens: tokens,
	})
	if m.ExecuteInDirFunc == nil {
		panic("MockExecutor.ExecuteInDirFunc not set")
	}
	return m.ExecuteInDirFunc(ctx, dir, env, tokens)
}

// Reset clears all recorded calls.
func (m *MockExecutor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
}

// GetCalls returns a copy of all recorded calls.
func (m *MockExecutor) GetCalls() []ExecutorCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]ExecutorCall, len(m.Calls))
	copy(result, m.Calls)
	return result
}

// Compile-time interface compliance check.
var (
	_ Executor = (*DefaultExecutor)(nil)
	_ Executor = (*MockExecutor)(nil)
)
