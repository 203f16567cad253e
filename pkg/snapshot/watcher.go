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
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/AleutianAI/composekit/pkg/logging"
)

// =============================================================================
// State File Watcher
// =============================================================================

// Watcher blocks until a stack's state file exists and parses.
//
// # Description
//
// Out-of-process consumers can start before the orchestrating process has
// written the state file. Watcher bridges that gap: it watches the file's
// parent directory with fsnotify and returns the document as soon as a
// complete one appears. Because FileWriter replaces the file atomically,
// the watcher never observes a torn write from this module's own writer.
//
// # Thread Safety
//
// Safe for concurrent use; each WaitForState call owns its own fsnotify
// watcher.
//
// # Example
//
//	watcher := snapshot.NewWatcher()
//	doc, err := watcher.WaitForState(ctx, snapshot.StatePath(dir, "demo-stack"))
//	if err != nil {
//	    return err
//	}
//	port := doc.Services["web"].Ports[0].HostPort
type Watcher struct {
	// logger receives watch events. Never nil.
	logger *logging.Logger
}

// NewWatcher creates a Watcher with a silent logger.
func NewWatcher() *Watcher {
	return NewWatcherWithLogger(nil)
}

// NewWatcherWithLogger creates a Watcher that logs through the given
// logger. A nil logger falls back to a discard logger.
func NewWatcherWithLogger(logger *logging.Logger) *Watcher {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Watcher{logger: logger}
}

// WaitForState blocks until path holds a parseable state document.
//
// # Description
//
// Returns immediately when the file already exists and parses. Otherwise
// watches the parent directory and retries the read on every create,
// write, or rename event for the file. A file that exists but does not
// parse keeps the wait alive: a partial document from a non-atomic writer
// becomes readable on a later event.
//
// # Inputs
//
//   - ctx: Bounds the wait; there is no internal timeout
//   - path: State file location, usually from StatePath
//
// # Outputs
//
//   - *StateDocument: The parsed document
//   - error: ErrEmptyPath, ErrWatchFailed (parent directory missing or
//     watch broken), or ErrWatchInterrupted wrapping ctx.Err()
//
// # Limitations
//
//   - The parent directory must already exist; the watch is registered on
//     it, not on the file
func (w *Watcher) WaitForState(ctx context.Context, path string) (*StateDocument, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}

	if doc, err := ReadStateFromFile(path); err == nil {
		return doc, nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWatchFailed, err)
	}
	defer fsw.Close()

	dir := filepath.Dir(path)
	if err := fsw.Add(dir); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrWatchFailed, dir, err)
	}

	// The file may have appeared between the first read and the watch
	// being registered.
	if doc, err := ReadStateFromFile(path); err == nil {
		return doc, nil
	}

	w.logger.Debug("waiting for state file", "path", path)

	target := filepath.Clean(path)
	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", ErrWatchInterrupted, ctx.Err())

		case event, ok := <-fsw.Events:
			if !ok {
				return nil, fmt.Errorf("%w: event channel closed", ErrWatchFailed)
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
				continue
			}

			doc, err := ReadStateFromFile(path)
			if err != nil {
				w.logger.Debug("state file not readable yet",
					"path", path,
					"error", err,
				)
				continue
			}
			w.logger.Info("state file appeared",
				"path", path,
				"stack", doc.Stack,
			)
			return doc, nil

		case watchErr, ok := <-fsw.Errors:
			if !ok {
				return nil, fmt.Errorf("%w: error channel closed", ErrWatchFailed)
			}
			w.logger.Warn("watch error while waiting for state file",
				"path", path,
				"error", watchErr,
			)
		}
	}
}
