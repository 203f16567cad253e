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
Package testkit binds compose stack orchestration to the Go test
lifecycle.

A StackHarness brings a stack up before the test body runs and registers
cleanup that captures logs on failure and tears the stack down afterwards.
All state is held in explicit harness values; there are no package-level
registries, so parallel tests with distinct project names never interact:

	func TestCheckout(t *testing.T) {
	    h := &testkit.StackHarness{
	        Config: compose.Config{
	            Files:   []string{"testdata/checkout/compose.yml"},
	            Project: testkit.UniqueProject("checkout"),
	        },
	        Wait: compose.WaitConfig{
	            Services: []string{"api", "db"},
	            Target:   compose.StatusHealthy,
	        },
	    }
	    state := h.Start(context.Background(), t)

	    port := state.Services["api"].Ports[0].HostPort
	    // ... drive requests against localhost:port ...
	}

Start blocks until the requested services reach their readiness target,
then writes the state snapshot file so out-of-process consumers can
discover the stack (see the snapshot package). Several independent stacks
can be brought up concurrently with StartAll.
*/
package testkit
