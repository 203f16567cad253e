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

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/AleutianAI/composekit/pkg/compose"
	"github.com/AleutianAI/composekit/pkg/logging"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Writer persists stack state snapshots for out-of-process consumers.
//
// # Description
//
// After a stack is up and its services are ready, the orchestrating
// process writes the state file so that test code running in a different
// process can discover container IDs and published host ports without
// re-invoking the compose CLI.
//
// A write failure is fatal to the orchestration step that triggered it:
// the stack stays up, but consumers cannot discover it, which must surface
// as an error rather than a mysteriously absent file.
type Writer interface {
	// Write serializes state to path, overwriting any prior content.
	//
	// # Inputs
	//
	//   - state: The snapshot to persist (must be non-nil)
	//   - path: Destination file, usually from StatePath
	//
	// # Outputs
	//
	//   - error: ErrNilState, ErrEmptyPath, or ErrStateWriteFailed wrapping
	//     the I/O failure
	Write(state *compose.StackState, path string) error
}

// =============================================================================
// Default Implementation
// =============================================================================

// FileWriter implements Writer with atomic file replacement.
//
// The document is written to a temp file in the destination directory and
// renamed into place, so a concurrent reader sees either the previous
// complete document or the new one, never a torn write.
type FileWriter struct {
	// logger receives write events. Never nil.
	logger *logging.Logger
}

// NewFileWriter creates a FileWriter with a silent logger.
func NewFileWriter() *FileWriter {
	return NewFileWriterWithLogger(nil)
}

// NewFileWriterWithLogger creates a FileWriter that logs writes through
// the given logger. A nil logger falls back to a discard logger.
func NewFileWriterWithLogger(logger *logging.Logger) *FileWriter {
	if logger == nil {
		logger = logging.Discard()
	}
	return &FileWriter{logger: logger}
}

// Write implements Writer.
//
// Creates missing parent directories (0750). The state file itself is
// written 0640 so CI runners in the same group can read it.
func (w *FileWriter) Write(state *compose.StackState, path string) error {
	if state == nil {
		return ErrNilState
	}
	if path == "" {
		return ErrEmptyPath
	}

	doc := FromStackState(state)
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStateWriteFailed, err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("%w: %w", ErrStateWriteFailed, err)
	}

	// Temp file in the destination directory keeps the rename on one
	// filesystem, which is what makes the replacement atomic.
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStateWriteFailed, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %w", ErrStateWriteFailed, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %w", ErrStateWriteFailed, err)
	}
	if err := os.Chmod(tmpName, 0o640); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %w", ErrStateWriteFailed, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %w", ErrStateWriteFailed, err)
	}

	w.logger.Info("state file written",
		"path", path,
		"stack", doc.Stack,
		"services", len(doc.Services),
	)
	return nil
}

// =============================================================================
// Mock Implementation
// =============================================================================

// MockWriter is a test double for Writer.
//
// Write delegates to WriteFunc when set and otherwise succeeds, so harness
// tests only configure the failure paths they exercise. Calls are recorded
// for verification.
type MockWriter struct {
	WriteFunc func(state *compose.StackState, path string) error

	WriteCalls []WriteCall
	mu         sync.Mutex
}

// WriteCall records one Write invocation.
type WriteCall struct {
	State *compose.StackState
	Path  string
}

// Write implements Writer.
func (m *MockWriter) Write(state *compose.StackState, path string) error {
	m.mu.Lock()
	m.WriteCalls = append(m.WriteCalls, WriteCall{State: state, Path: path})
	m.mu.Unlock()

	if m.WriteFunc != nil {
		return m.WriteFunc(state, path)
	}
	return nil
}

// Reset clears all recorded calls.
func (m *MockWriter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WriteCalls = nil
}

// Compile-time interface compliance checks.
var (
	_ Writer = (*FileWriter)(nil)
	_ Writer = (*MockWriter)(nil)
)
