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
Package compose orchestrates Docker Compose stacks for integration testing.

# Overview

The package drives the full lifecycle of a named stack through the
`docker compose` CLI: start it, poll until its services reach a readiness
target, capture logs, snapshot its state, and tear it down. All external
effects run through an injected process.Executor, so every path is
testable without containers.

The main entry point is StackOrchestrator:

	orch, err := compose.NewDefaultStackOrchestrator(process.NewDefaultExecutor())
	if err != nil {
	    return err
	}

	cfg := compose.Config{
	    Project: "demo",
	    Files:   []string{"stack/base.yml", "stack/override.yml"},
	}

	state, err := orch.Up(ctx, cfg)
	if err != nil {
	    return err
	}
	defer func() { _ = orch.Down(context.Background(), cfg) }()

	_, err = orch.WaitForServices(ctx, compose.WaitConfig{
	    Project: cfg.Project,
	    Target:  compose.StatusHealthy,
	    Timeout: 2 * time.Minute,
	})

# Execution model

Everything is synchronous and blocking; the only suspension point is the
sleep between readiness polls. Compose file order is preserved end-to-end
into the CLI's `-f` flags because it carries override precedence. Each
readiness iteration evaluates one atomic `ps` snapshot, never interleaved
per-service queries.

# Failure stance

`up` failures are hard errors: the stack is unusable and the caller should
abort. `down` failures return errors that teardown callers conventionally
log and continue past, so a failed stop never masks the result the stack
was serving. The post-up snapshot and the per-line JSON parse are
best-effort: a failed `ps` after a successful `up` yields an empty service
map, and malformed output lines are skipped rather than aborting a parse.
*/
package compose
