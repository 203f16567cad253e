// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

/*
Package process contains unit tests for Executor.

# Testing Strategy

These tests verify:
  - DefaultExecutor correctly executes real commands
  - Non-zero exits are normal results, not errors
  - Error handling for missing binaries and cancelled contexts
  - MockExecutor works correctly for test doubles
*/
package process

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// =============================================================================
// DefaultExecutor Tests
// =============================================================================

// TestDefaultExecutor_Execute_Success verifies successful command execution.
func TestDefaultExecutor_Execute_Success(t *testing.T) {
	exec := NewDefaultExecutor()
	ctx := context.Background()

	result, err := exec.Execute(ctx, []string{"echo", "hello world"})
	if err != nil {
		t.Fatalf("Execute() unexpected error: %v", err)
	}

	if result.ExitCode != 0 {
		t.Errorf("Execute() exit code = %d, want 0", result.ExitCode)
	}
	if got := strings.TrimSpace(result.Output); got != "hello world" {
		t.Errorf("Execute() output = %q, want %q", got, "hello world")
	}
	if !result.Success() {
		t.Error("Success() = false for zero exit")
	}
	if result.Duration <= 0 {
		t.Errorf("Execute() duration = %v, want > 0", result.Duration)
	}
}

// TestDefaultExecutor_Execute_NonZeroExit verifies a failing command is a
// normal result carrying the exit code, not an error.
func TestDefaultExecutor_Execute_NonZeroExit(t *testing.T) {
	exec := NewDefaultExecutor()
	ctx := context.Background()

	result, err := exec.Execute(ctx, []string{"sh", "-c", "exit 7"})
	if err != nil {
		t.Fatalf("Execute() unexpected error for non-zero exit: %v", err)
	}

	if result.ExitCode != 7 {
		t.Errorf("Execute() exit code = %d, want 7", result.ExitCode)
	}
	if result.Success() {
		t.Error("Success() = true for non-zero exit")
	}
}

// TestDefaultExecutor_Execute_CombinedOutput verifies stdout and stderr are
// captured together.
func TestDefaultExecutor_Execute_CombinedOutput(t *testing.T) {
	exec := NewDefaultExecutor()
	ctx := context.Background()

	result, err := exec.Execute(ctx, []string{"sh", "-c", "echo to-stdout; echo to-stderr 1>&2; exit 1"})
	if err != nil {
		t.Fatalf("Execute() unexpected error: %v", err)
	}

	if result.ExitCode != 1 {
		t.Errorf("Execute() exit code = %d, want 1", result.ExitCode)
	}
	if !strings.Contains(result.Output, "to-stdout") {
		t.Errorf("Execute() output missing stdout: %q", result.Output)
	}
	if !strings.Contains(result.Output, "to-stderr") {
		t.Errorf("Execute() output missing stderr: %q", result.Output)
	}
}

// TestDefaultExecutor_Execute_CommandNotFound verifies a launch failure is
// an error.
func TestDefaultExecutor_Execute_CommandNotFound(t *testing.T) {
	exec := NewDefaultExecutor()
	ctx := context.Background()

	_, err := exec.Execute(ctx, []string{"nonexistent-command-12345"})
	if err == nil {
		t.Fatal("Execute() expected error for non-existent command, got nil")
	}
	if !errors.Is(err, ErrLaunchFailed) {
		t.Errorf("Execute() error = %v, want ErrLaunchFailed in chain", err)
	}

	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("Execute() error type = %T, want *CommandError", err)
	}
	if cmdErr.ExitCode != -1 {
		t.Errorf("CommandError exit code = %d, want -1", cmdErr.ExitCode)
	}
}

// TestDefaultExecutor_Execute_EmptyTokens verifies the empty-command guard.
func TestDefaultExecutor_Execute_EmptyTokens(t *testing.T) {
	exec := NewDefaultExecutor()
	ctx := context.Background()

	if _, err := exec.Execute(ctx, nil); !errors.Is(err, ErrEmptyCommand) {
		t.Errorf("Execute(nil) error = %v, want ErrEmptyCommand", err)
	}
	if _, err := exec.Execute(ctx, []string{}); !errors.Is(err, ErrEmptyCommand) {
		t.Errorf("Execute([]) error = %v, want ErrEmptyCommand", err)
	}
}

// TestDefaultExecutor_Execute_ContextCancellation verifies cancellation
// surfaces as an error, never a normal result.
func TestDefaultExecutor_Execute_ContextCancellation(t *testing.T) {
	exec := NewDefaultExecutor()
	ctx, cancel := context.WithCancel(context.Background())

	// Cancel immediately
	cancel()

	_, err := exec.Execute(ctx, []string{"sleep", "10"})
	if err == nil {
		t.Fatal("Execute() expected error for cancelled context, got nil")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Execute() error = %v, want context.Canceled in chain", err)
	}
}

// TestDefaultExecutor_Execute_Timeout verifies deadline support.
func TestDefaultExecutor_Execute_Timeout(t *testing.T) {
	exec := NewDefaultExecutor()
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := exec.Execute(ctx, []string{"sleep", "10"})
	if err == nil {
		t.Fatal("Execute() expected error for timeout, got nil")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Execute() error = %v, want context.DeadlineExceeded in chain", err)
	}
}

// TestDefaultExecutor_ExecuteInDir_WorkingDirectory verifies the child runs
// in the requested directory.
func TestDefaultExecutor_ExecuteInDir_WorkingDirectory(t *testing.T) {
	exec := NewDefaultExecutor()
	ctx := context.Background()

	dir := t.TempDir()
	marker := filepath.Join(dir, "compose-marker.txt")
	if err := os.WriteFile(marker, []byte("x"), 0640); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	result, err := exec.ExecuteInDir(ctx, dir, nil, []string{"ls"})
	if err != nil {
		t.Fatalf("ExecuteInDir() unexpected error: %v", err)
	}

	if !strings.Contains(result.Output, "compose-marker.txt") {
		t.Errorf("ExecuteInDir() output = %q, want marker file listed", result.Output)
	}
}

// TestDefaultExecutor_ExecuteInDir_Environment verifies extra variables are
// visible to the child alongside the parent environment.
func TestDefaultExecutor_ExecuteInDir_Environment(t *testing.T) {
	exec := NewDefaultExecutor()
	ctx := context.Background()

	result, err := exec.ExecuteInDir(ctx, "",
		[]string{"COMPOSEKIT_TEST_VALUE=quokka"},
		[]string{"sh", "-c", `printf "%s" "$COMPOSEKIT_TEST_VALUE"`},
	)
	if err != nil {
		t.Fatalf("ExecuteInDir() unexpected error: %v", err)
	}

	if result.Output != "quokka" {
		t.Errorf("ExecuteInDir() output = %q, want %q", result.Output, "quokka")
	}
}

// TestDefaultExecutor_ExecuteInDir_BadDirectory verifies a missing working
// directory is a launch failure.
func TestDefaultExecutor_ExecuteInDir_BadDirectory(t *testing.T) {
	exec := NewDefaultExecutor()
	ctx := context.Background()

	_, err := exec.ExecuteInDir(ctx, "/nonexistent-dir-12345", nil, []string{"echo", "hi"})
	if err == nil {
		t.Fatal("ExecuteInDir() expected error for bad directory, got nil")
	}
	if !errors.Is(err, ErrLaunchFailed) {
		t.Errorf("ExecuteInDir() error = %v, want ErrLaunchFailed in chain", err)
	}
}

// TestDefaultExecutor_Execute_CommandCopied verifies the result carries its
// own copy of the token slice.
func TestDefaultExecutor_Execute_CommandCopied(t *testing.T) {
	exec := NewDefaultExecutor()
	ctx := context.Background()

	tokens := []string{"echo", "original"}
	result, err := exec.Execute(ctx, tokens)
	if err != nil {
		t.Fatalf("Execute() unexpected error: %v", err)
	}

	tokens[1] = "mutated"
	if result.Command[1] != "original" {
		t.Errorf("Result.Command aliased the caller's slice: %v", result.Command)
	}
}

// =============================================================================
// Result Tests
// =============================================================================

// TestResult_CommandLine verifies the printable command form.
func TestResult_CommandLine(t *testing.T) {
	r := Result{Command: []string{"docker", "compose", "-p", "demo", "up", "-d"}}
	want := "docker compose -p demo up -d"
	if got := r.CommandLine(); got != want {
		t.Errorf("CommandLine() = %q, want %q", got, want)
	}
}

// =============================================================================
// MockExecutor Tests
// =============================================================================

// TestMockExecutor_Execute verifies mock Execute behavior and recording.
func TestMockExecutor_Execute(t *testing.T) {
	mock := &MockExecutor{
		ExecuteFunc: func(ctx context.Context, tokens []string) (Result, error) {
			if tokens[0] == "docker" {
				return Result{ExitCode: 0, Output: "Docker Compose version v2.27.0"}, nil
			}
			return Result{}, errors.New("unexpected command")
		},
	}

	ctx := context.Background()
	result, err := mock.Execute(ctx, []string{"docker", "compose", "version"})
	if err != nil {
		t.Fatalf("Execute() unexpected error: %v", err)
	}
	if !strings.Contains(result.Output, "v2.27.0") {
		t.Errorf("Execute() output = %q", result.Output)
	}

	// Verify call was recorded
	if len(mock.Calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(mock.Calls))
	}

	call := mock.Calls[0]
	if call.Method != "Execute" {
		t.Errorf("call.Method = %q, want %q", call.Method, "Execute")
	}
	if len(call.Tokens) != 3 || call.Tokens[2] != "version" {
		t.Errorf("call.Tokens = %v, want [docker compose version]", call.Tokens)
	}
}

// TestMockExecutor_ExecuteInDir verifies dir and env are recorded.
func TestMockExecutor_ExecuteInDir(t *testing.T) {
	mock := &MockExecutor{
		ExecuteInDirFunc: func(ctx context.Context, dir string, env []string, tokens []string) (Result, error) {
			return Result{ExitCode: 0}, nil
		},
	}

	ctx := context.Background()
	env := []string{"POSTGRES_DB=app"}
	_, err := mock.ExecuteInDir(ctx, "/work/stack", env, []string{"docker", "compose", "up", "-d"})
	if err != nil {
		t.Fatalf("ExecuteInDir() unexpected error: %v", err)
	}

	if len(mock.Calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(mock.Calls))
	}

	call := mock.Calls[0]
	if call.Method != "ExecuteInDir" {
		t.Errorf("call.Method = %q, want %q", call.Method, "ExecuteInDir")
	}
	if call.Dir != "/work/stack" {
		t.Errorf("call.Dir = %q, want %q", call.Dir, "/work/stack")
	}
	if len(call.Env) != 1 || call.Env[0] != "POSTGRES_DB=app" {
		t.Errorf("call.Env = %v", call.Env)
	}
}

// TestMockExecutor_Reset verifies call history reset.
func TestMockExecutor_Reset(t *testing.T) {
	mock := &MockExecutor{
		ExecuteFunc: func(ctx context.Context, tokens []string) (Result, error) {
			return Result{}, nil
		},
	}

	ctx := context.Background()
	_, _ = mock.Execute(ctx, []string{"cmd1"})
	_, _ = mock.Execute(ctx, []string{"cmd2"})

	if len(mock.Calls) != 2 {
		t.Fatalf("expected 2 calls before reset, got %d", len(mock.Calls))
	}

	mock.Reset()

	if len(mock.Calls) != 0 {
		t.Errorf("expected 0 calls after reset, got %d", len(mock.Calls))
	}
}

// TestMockExecutor_GetCalls verifies the returned slice is a copy.
func TestMockExecutor_GetCalls(t *testing.T) {
	mock := &MockExecutor{
		ExecuteFunc: func(ctx context.Context, tokens []string) (Result, error) {
			return Result{}, nil
		},
	}

	ctx := context.Background()
	_, _ = mock.Execute(ctx, []string{"original"})

	calls := mock.GetCalls()
	calls[0].Method = "mutated"

	if mock.GetCalls()[0].Method != "Execute" {
		t.Error("GetCalls() should return a copy")
	}
}

// TestMockExecutor_NilFunc_Panics verifies panic on unconfigured mock.
func TestMockExecutor_NilFunc_Panics(t *testing.T) {
	mock := &MockExecutor{} // No functions set

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic when ExecuteFunc is nil")
		}
	}()

	ctx := context.Background()
	_, _ = mock.Execute(ctx, []string{"test"})
}
