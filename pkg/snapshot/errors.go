// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package snapshot

import "errors"

// =============================================================================
// Error Definitions
// =============================================================================

var (
	// ErrNilState indicates a write was requested for a nil stack state.
	ErrNilState = errors.New("stack state must not be nil")

	// ErrEmptyPath indicates a state file operation with no path.
	ErrEmptyPath = errors.New("state file path must not be empty")

	// ErrStateWriteFailed indicates the state file could not be written.
	// The stack itself remains up; only its discovery file is missing.
	ErrStateWriteFailed = errors.New("failed to write state file")

	// ErrStateReadFailed indicates the state file could not be read.
	ErrStateReadFailed = errors.New("failed to read state file")

	// ErrStateParseFailed indicates the state file exists but does not
	// contain a valid state document.
	ErrStateParseFailed = errors.New("failed to parse state file")

	// ErrWatchFailed indicates the filesystem watch could not be
	// established or broke while waiting.
	ErrWatchFailed = errors.New("failed to watch for state file")

	// ErrWatchInterrupted indicates the wait for a state file was cut
	// short by context cancellation. Wraps the context error.
	ErrWatchInterrupted = errors.New("state file wait interrupted")
)
