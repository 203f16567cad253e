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
Package process provides abstractions for external process execution and
inter-process synchronization.

# Overview

This package contains three main components:

  - Executor: Abstracts external process execution for testability
  - EnvVars: Validated environment variables with sensitive-value redaction
  - StackLock: File-based locking to serialize stack mutations across processes

# Executor

Executor enables testable interaction with the operating system's process
management capabilities. All exec.Command calls in the stack orchestration
code go through this interface so tests never launch real processes.

The contract differs from a bare exec call in one important way: a command
that launches and exits non-zero is a NORMAL result, not an error. The
Result carries the exit code and the combined stdout+stderr output, and the
caller decides what a non-zero exit means for its operation. An error is
returned only when the process could not be launched at all (binary missing,
permission denied) or the context was cancelled.

	exec := process.NewDefaultExecutor()
	result, err := exec.Execute(ctx, []string{"docker", "compose", "version"})
	if err != nil {
	    return fmt.Errorf("docker unavailable: %w", err)
	}
	if result.ExitCode != 0 {
	    // command ran and failed; result.Output has the details
	}

For testing, use MockExecutor:

	mock := &process.MockExecutor{
	    ExecuteInDirFunc: func(ctx context.Context, dir string, env []string, tokens []string) (process.Result, error) {
	        return process.Result{ExitCode: 0, Output: "ok"}, nil
	    },
	}

# StackLock

StackLock prevents concurrent mutations of the same compose project from
separate test processes, avoiding races like one suite tearing down the
stack another suite is waiting on. Uses flock(2) for advisory file locking.

	lock := process.NewStackLock(process.StackLockConfig{LockName: cfg.Project})
	if err := lock.Acquire(); err != nil {
	    return err
	}
	defer lock.Release()

# Thread Safety

  - Executor implementations are safe for concurrent use
  - StackLock is NOT safe for concurrent use from multiple goroutines

# Limitations

  - StackLock uses advisory locks - other processes can ignore if not checking
  - StackLock requires OS support for flock(2)
*/
package process
