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
Package snapshot persists compose stack state to a well-known file so
processes that did not start the stack can discover it.

The typical producer is an orchestrating process that brought a stack up
and waited for readiness; the typical consumer is a test runner in another
process that needs published host ports without shelling out to the
compose CLI itself:

	// producer
	state, _ := orch.Up(ctx, cfg)
	writer := snapshot.NewFileWriter()
	if err := writer.Write(state, snapshot.StatePath(stateDir, cfg.Name)); err != nil {
	    return err // stack is up but undiscoverable; surface loudly
	}

	// consumer (separate process)
	doc, err := snapshot.NewWatcher().WaitForState(ctx, snapshot.StatePath(stateDir, "demo-stack"))

The on-disk schema (StateDocument) is a compatibility contract with those
out-of-process consumers. Writes are atomic (temp file + rename), so a
reader polling or watching the path never sees a half-written document
from this package's writer.
*/
package snapshot
