// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package testkit

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/AleutianAI/composekit/pkg/compose"
	"github.com/AleutianAI/composekit/pkg/logging"
	"github.com/AleutianAI/composekit/pkg/process"
	"github.com/AleutianAI/composekit/pkg/snapshot"
)

// =============================================================================
// Stack Harness
// =============================================================================

// StackHarness runs one compose stack for the duration of a test.
//
// # Description
//
// The harness owns the full stack lifecycle: bring the services up, wait
// until they reach the readiness target, persist the state snapshot for
// out-of-process consumers, and tear everything down when the test ends.
// On test failure the teardown first captures container logs into the
// test output, which is usually the only evidence left once the
// containers are gone.
//
// All collaborators are explicit fields. The zero value plus a Config is
// a working harness against the real Docker CLI; tests of the harness
// itself swap in MockStackOrchestrator and MockWriter.
//
// # Example
//
//	h := &testkit.StackHarness{
//	    Config: compose.Config{
//	        Files:   []string{"testdata/compose.yml"},
//	        Project: testkit.UniqueProject("api"),
//	    },
//	    Wait: compose.WaitConfig{Target: compose.StatusHealthy},
//	}
//	state := h.Start(ctx, t)
//
// # Limitations
//
// State snapshot files are keyed by stack name. Concurrent harnesses must
// use distinct names (UniqueProject projects give distinct derived names)
// or distinct StateDirs, otherwise they overwrite each other's snapshot.
type StackHarness struct {
	// Config describes the stack: compose files, project name, environment.
	// Defaults are filled in on Start (see Config.EnsureDefaults).
	Config compose.Config

	// Wait configures the readiness poll that follows Up. Project is
	// always taken from Config; a value set here is ignored. The zero
	// value waits for every service to reach running with default timing.
	Wait compose.WaitConfig

	// Orchestrator drives the compose CLI. Nil selects a
	// DefaultStackOrchestrator backed by a DefaultExecutor.
	Orchestrator compose.StackOrchestrator

	// Writer persists the state snapshot after readiness. Nil selects a
	// FileWriter.
	Writer snapshot.Writer

	// StateDir is the directory the state snapshot file is written to.
	// Empty means the system temp directory.
	StateDir string

	// UseProjectLock serializes harnesses that share a project name, even
	// across processes on the same host. Unnecessary when every harness
	// uses a UniqueProject name.
	UseProjectLock bool

	// FailureLogsTail caps the per-service log lines captured when the
	// test fails. Zero captures everything.
	FailureLogsTail int

	// Logger receives structured progress events. Nil discards them.
	// Diagnostics that belong to the test itself go to t.Logf instead.
	Logger *logging.Logger

	statePath string
}

// Start brings the stack up, waits for readiness and writes the state
// snapshot file.
//
// # Description
//
// Runs the lifecycle in order: optional project lock, preflight check of
// the requested wait services against the compose files, Up, readiness
// wait, post-readiness status capture, snapshot write. Teardown is
// registered via t.Cleanup as soon as containers may exist, so the stack
// comes down even when a later step fails the test.
//
// Any error fails the test immediately with t.Fatalf. A snapshot write
// failure is treated like any other: the run is misconfigured and the
// test must not proceed against a stack it cannot hand to consumers.
//
// # Inputs
//
//   - ctx: bounds every compose invocation, including the readiness wait.
//   - t: the owning test. Cleanup and log output attach to it.
//
// # Outputs
//
//   - *compose.StackState: the post-readiness state, ports included.
func (h *StackHarness) Start(ctx context.Context, t testing.TB) *compose.StackState {
	t.Helper()
	state, err := h.start(ctx, t)
	if err != nil {
		t.Fatalf("stack harness: %v", err)
	}
	return state
}

// start is the fallible core of Start. It never calls the Fatal family,
// so StartAll can run it off the test goroutine.
func (h *StackHarness) start(ctx context.Context, t testing.TB) (*compose.StackState, error) {
	h.Config.EnsureDefaults()

	orch, err := h.orchestrator()
	if err != nil {
		return nil, err
	}
	writer := h.writer()
	logger := h.logger()

	if h.UseProjectLock {
		lock := process.NewProjectLock(h.Config.Project)
		if err := lock.Acquire(); err != nil {
			return nil, fmt.Errorf("acquire lock for project %s: %w", h.Config.Project, err)
		}
		t.Cleanup(func() {
			if err := lock.Release(); err != nil {
				t.Logf("release lock for project %s: %v", h.Config.Project, err)
			}
		})
	}

	h.preflight(t)

	logger.Info("starting stack", "stack", h.Config.Name, "project", h.Config.Project)
	if _, err := orch.Up(ctx, h.Config); err != nil {
		return nil, fmt.Errorf("start stack %s: %w", h.Config.Name, err)
	}

	// Registered before the readiness wait: a stack that never becomes
	// ready still has containers to capture logs from and tear down.
	t.Cleanup(func() {
		h.teardown(t, orch)
	})

	wait := h.Wait
	wait.Project = h.Config.Project
	wait.EnsureDefaults()
	achieved, err := orch.WaitForServices(ctx, wait)
	if err != nil {
		return nil, fmt.Errorf("wait for services in project %s: %w", h.Config.Project, err)
	}
	logger.Info("stack ready",
		"project", h.Config.Project,
		"status", achieved.String(),
	)

	// The up-time snapshot is already stale by now; capture the state the
	// readiness wait actually observed before handing it to consumers.
	state, err := orch.Status(ctx, h.Config.Project)
	if err != nil {
		return nil, fmt.Errorf("capture state of project %s: %w", h.Config.Project, err)
	}
	state.Stack = h.Config.Name

	h.statePath = snapshot.StatePath(h.stateDir(), h.Config.Name)
	if err := writer.Write(state, h.statePath); err != nil {
		return nil, fmt.Errorf("write state file for stack %s: %w", h.Config.Name, err)
	}
	logger.Info("state file written", "path", h.statePath)

	return state, nil
}

// StateFile returns the path of the state snapshot file written by Start.
// Empty until Start has completed the write.
func (h *StackHarness) StateFile() string {
	return h.statePath
}

// preflight warns about wait services that no compose file defines. Such a
// wait can only end by timeout, and the typo that causes it is much easier
// to read in a log line than in a timeout error minutes later. Warnings
// only: compose files may be templated in ways the static parse misses.
func (h *StackHarness) preflight(t testing.TB) {
	if len(h.Wait.Services) == 0 {
		return
	}
	defined, err := compose.DefinedServices(h.Config.Files)
	if err != nil {
		t.Logf("preflight: cannot inspect compose files: %v", err)
		return
	}
	known := make(map[string]bool, len(defined))
	for _, name := range defined {
		known[name] = true
	}
	for _, name := range h.Wait.Services {
		if !known[name] {
			t.Logf("preflight: service %q is not defined in %s; waiting on it can only time out",
				name, strings.Join(h.Config.Files, ", "))
		}
	}
}

// teardown captures logs when the test failed, then brings the stack down.
// Teardown problems are logged, never failed: they must not mask the test
// result, and a dangling stack is visible in `docker ps` anyway.
func (h *StackHarness) teardown(t testing.TB, orch compose.StackOrchestrator) {
	// The test context is typically done by cleanup time.
	ctx := context.Background()

	if t.Failed() {
		logs, err := orch.Logs(ctx, h.Config.Project, compose.LogsConfig{Tail: h.FailureLogsTail})
		switch {
		case err != nil:
			t.Logf("cannot capture logs for project %s: %v", h.Config.Project, err)
		case logs != "":
			t.Logf("logs for project %s:\n%s", h.Config.Project, logs)
		}
	}

	if err := orch.Down(ctx, h.Config); err != nil {
		t.Logf("stack down for project %s: %v", h.Config.Project, err)
	}
}

// orchestrator returns the configured orchestrator or builds the default.
func (h *StackHarness) orchestrator() (compose.StackOrchestrator, error) {
	if h.Orchestrator != nil {
		return h.Orchestrator, nil
	}
	exec := process.NewDefaultExecutor()
	if h.Logger != nil {
		return compose.NewDefaultStackOrchestratorWithLogger(exec, h.Logger)
	}
	return compose.NewDefaultStackOrchestrator(exec)
}

func (h *StackHarness) writer() snapshot.Writer {
	if h.Writer != nil {
		return h.Writer
	}
	return snapshot.NewFileWriter()
}

func (h *StackHarness) logger() *logging.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return logging.Discard()
}

func (h *StackHarness) stateDir() string {
	if h.StateDir != "" {
		return h.StateDir
	}
	return os.TempDir()
}
