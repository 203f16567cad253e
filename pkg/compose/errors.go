// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package compose

import "errors"

// =============================================================================
// Error Definitions
// =============================================================================

var (
	// ErrNilExecutor indicates the orchestrator was constructed without a
	// process executor.
	ErrNilExecutor = errors.New("process executor must not be nil")

	// ErrInvalidConfig indicates configuration validation failed.
	ErrInvalidConfig = errors.New("invalid compose configuration")

	// ErrComposeFileMissing indicates a configured compose file does not
	// exist at invocation time.
	ErrComposeFileMissing = errors.New("compose file not found")

	// ErrStackUpFailed indicates `docker compose up` could not bring the
	// stack up. The wrapped error carries the captured command output.
	ErrStackUpFailed = errors.New("failed to start stack")

	// ErrStackDownFailed indicates `docker compose down` failed. Teardown
	// callers usually log this and continue rather than abort cleanup.
	ErrStackDownFailed = errors.New("failed to stop stack")

	// ErrLogsCaptureFailed indicates `docker compose logs` failed.
	ErrLogsCaptureFailed = errors.New("failed to capture stack logs")

	// ErrStatusQueryFailed indicates `docker compose ps` failed on an
	// explicit status query.
	ErrStatusQueryFailed = errors.New("failed to query stack status")

	// ErrWaitTimeout indicates services did not reach the requested target
	// before the wait deadline. The message names the unready services.
	ErrWaitTimeout = errors.New("timed out waiting for services")

	// ErrWaitInterrupted indicates the wait was cancelled before completion.
	// The wrapped error carries the context error.
	ErrWaitInterrupted = errors.New("interrupted while waiting for services")

	// ErrPanicRecovered indicates a panic was caught inside a mutating
	// orchestrator operation and converted to an error.
	ErrPanicRecovered = errors.New("panic recovered in stack operation")
)

// Compile-time checks that errors implement the error interface.
var (
	_ error = ErrNilExecutor
	_ error = ErrInvalidConfig
	_ error = ErrComposeFileMissing
	_ error = ErrStackUpFailed
	_ error = ErrStackDownFailed
	_ error = ErrLogsCaptureFailed
	_ error = ErrStatusQueryFailed
	_ error = ErrWaitTimeout
	_ error = ErrWaitInterrupted
	_ error = ErrPanicRecovered
)
