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

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/AleutianAI/composekit/pkg/logging"
	"github.com/AleutianAI/composekit/pkg/process"
	"github.com/AleutianAI/composekit/pkg/validation"
)

// =============================================================================
// Interface Definition
// =============================================================================

// StackOrchestrator drives the lifecycle of a compose stack.
//
// # Description
//
// The orchestrator sequences `up`, readiness polling, log capture, and
// `down` for a named stack, producing StackState snapshots along the way.
// All operations are synchronous blocking calls; the only suspension point
// is the sleep between readiness polls.
//
// Calling Up twice for the same project is not deduplicated here; that is
// the caller's contract to honor (process.StackLock helps across
// processes). Down on a stack that is not running is safe: the CLI treats
// it as a no-op.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use. Distinct project names
// are fully independent; mutating operations on one orchestrator value are
// serialized.
//
// # Example
//
//	orch, err := compose.NewDefaultStackOrchestrator(process.NewDefaultExecutor())
//	if err != nil {
//	    return err
//	}
//	state, err := orch.Up(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer func() {
//	    if err := orch.Down(context.Background(), cfg); err != nil {
//	        log.Printf("teardown: %v", err)
//	    }
//	}()
type StackOrchestrator interface {
	// Up starts the stack and snapshots its initial state.
	//
	// # Description
	//
	// Builds `docker compose -f file1 [-f file2 ...] [--env-file e ...]
	// -p project up -d` with the configured file order preserved exactly
	// (order is override precedence) and runs it in the first compose
	// file's parent directory with cfg.Environment injected.
	//
	// On success the stack is immediately queried with `ps` to build the
	// returned snapshot. That initial snapshot may show services still
	// starting: Up does not block for readiness; call WaitForServices.
	// A failed post-up query degrades to an empty Services map rather
	// than failing Up, since the stack is up regardless.
	//
	// # Inputs
	//
	//   - ctx: Context for cancellation
	//   - cfg: Stack definition. Defaults are applied and validation run
	//     before anything executes.
	//
	// # Outputs
	//
	//   - *StackState: Initial snapshot (never nil on success)
	//   - error: ErrInvalidConfig, ErrComposeFileMissing, or
	//     ErrStackUpFailed wrapping the command failure
	//
	// # Limitations
	//
	//   - No internal timeout; bound the call with ctx if needed
	Up(ctx context.Context, cfg Config) (*StackState, error)

	// Down stops the stack described by cfg.
	//
	// # Description
	//
	// Runs `docker compose -f ... -p project down` with the same file
	// flags Up used, so the CLI resolves the project identically. A
	// non-zero exit or launch failure returns ErrStackDownFailed;
	// teardown callers conventionally log it and continue cleanup
	// rather than abort, since a failed stop must not mask the result
	// the stack was serving.
	//
	// # Inputs
	//
	//   - ctx: Context for cancellation
	//   - cfg: The stack definition used at Up
	//
	// # Outputs
	//
	//   - error: ErrInvalidConfig or ErrStackDownFailed wrapping
	Down(ctx context.Context, cfg Config) error

	// DownProject stops a stack by project name alone.
	//
	// # Description
	//
	// Runs `docker compose -p project down` without file flags, for
	// callers that only hold the project identifier. Stopping a project
	// that is not running completes without error.
	//
	// # Inputs
	//
	//   - ctx: Context for cancellation
	//   - project: Compose project name
	//
	// # Outputs
	//
	//   - error: ErrInvalidConfig or ErrStackDownFailed wrapping
	DownProject(ctx context.Context, project string) error

	// Logs captures service logs as a single string.
	//
	// # Description
	//
	// Runs `docker compose -p project logs [--tail N] [services...]` and
	// returns the combined output. Always one blocking call: the
	// `--follow` flag is never passed, whatever cfg.Follow says, because
	// a following capture would never return.
	//
	// # Inputs
	//
	//   - ctx: Context for cancellation
	//   - project: Compose project name
	//   - cfg: Service selection and tail count
	//
	// # Outputs
	//
	//   - string: Combined log output
	//   - error: ErrInvalidConfig or ErrLogsCaptureFailed wrapping
	Logs(ctx context.Context, project string, cfg LogsConfig) (string, error)

	// Status takes a fresh snapshot of a running stack.
	//
	// # Description
	//
	// Runs `docker compose -p project ps --format json` and parses it.
	// Unlike the best-effort query inside Up, an explicit Status call
	// fails hard when the query fails: the caller asked for state and
	// none could be produced.
	//
	// # Inputs
	//
	//   - ctx: Context for cancellation
	//   - project: Compose project name
	//
	// # Outputs
	//
	//   - *StackState: Fresh snapshot keyed by service name
	//   - error: ErrInvalidConfig or ErrStatusQueryFailed wrapping
	Status(ctx context.Context, project string) (*StackState, error)

	// WaitForServices polls until services reach the target or time runs out.
	//
	// # Description
	//
	// Computes deadline = now + cfg.Timeout, then loops: one atomic `ps`
	// query per iteration (a single consistent point-in-time view, never
	// interleaved per-service queries), readiness evaluation, then a
	// context-aware sleep of cfg.PollInterval. A failed query iteration
	// counts as nothing-ready and polling continues.
	//
	// Success returns the achieved status: StatusHealthy when every
	// required service is healthy, else the requested target. Timeout
	// returns ErrWaitTimeout naming the services still unready.
	// Cancellation returns ErrWaitInterrupted wrapping the context
	// error, never a silent success. The stack stays up whatever the
	// outcome; only Down changes that.
	//
	// A poll interval at or above the timeout degenerates to exactly one
	// check before timing out. That is permitted.
	//
	// # Inputs
	//
	//   - ctx: Context for cancellation; the only cancellation channel
	//   - cfg: Project, services (empty = all), target, timing
	//
	// # Outputs
	//
	//   - ServiceStatus: Achieved status on success, StatusUnknown on error
	//   - error: ErrInvalidConfig, ErrWaitTimeout, or ErrWaitInterrupted
	WaitForServices(ctx context.Context, cfg WaitConfig) (ServiceStatus, error)
}

// =============================================================================
// Output Helpers
// =============================================================================

// discardWriter is a no-op writer used when progress output is disabled.
type discardWriter struct{}

// Write implements io.Writer, discarding all data.
func (discardWriter) Write(p []byte) (int, error) {
	return len(p), nil
}

// safeWrite writes progress text, ignoring nil writers and write errors.
// Progress output is advisory; it must never fail an operation.
func safeWrite(w io.Writer, format string, args ...interface{}) {
	if w == nil {
		return
	}
	_, _ = fmt.Fprintf(w, format, args...)
}

// recoverPanic converts a recovered panic into an error.
//
// Intended to be called from a deferred function with recover(). Keeps a
// panic inside a mutating operation from taking down the caller's test
// process while still surfacing the failure.
func recoverPanic(r interface{}, errPtr *error) {
	if r == nil {
		return
	}

	var panicErr error
	switch v := r.(type) {
	case error:
		panicErr = fmt.Errorf("%w: %w", ErrPanicRecovered, v)
	default:
		panicErr = fmt.Errorf("%w: %v", ErrPanicRecovered, v)
	}

	if *errPtr == nil {
		*errPtr = panicErr
	}
}

// =============================================================================
// Default Implementation
// =============================================================================

// DefaultStackOrchestrator implements StackOrchestrator over an injected
// process executor.
//
// # Description
//
// Every external effect goes through the process.Executor, so the whole
// lifecycle is testable with a MockExecutor returning canned results.
// File existence checks go through an injected stat function for the same
// reason.
//
// # Thread Safety
//
// Safe for concurrent use. Up, Down, and DownProject are serialized with
// a mutex; Logs, Status, and WaitForServices are read-only with respect to
// orchestrator state and run unserialized.
type DefaultStackOrchestrator struct {
	// exec runs docker compose commands.
	exec process.Executor

	// logger receives structured lifecycle events. Never nil.
	logger *logging.Logger

	// output is where human-readable progress lines are written.
	// Default: discard.
	output io.Writer

	// osStatFunc checks compose file existence. Injectable for tests.
	osStatFunc func(string) (os.FileInfo, error)

	// mu serializes mutating operations (Up, Down, DownProject).
	mu sync.Mutex
}

// NewDefaultStackOrchestrator creates an orchestrator with a silent logger
// and no progress output.
//
// # Inputs
//
//   - exec: Process executor (required)
//
// # Outputs
//
//   - *DefaultStackOrchestrator: Ready-to-use orchestrator
//   - error: ErrNilExecutor when exec is nil
//
// # Examples
//
//	orch, err := compose.NewDefaultStackOrchestrator(process.NewDefaultExecutor())
func NewDefaultStackOrchestrator(exec process.Executor) (*DefaultStackOrchestrator, error) {
	return NewDefaultStackOrchestratorWithLogger(exec, nil)
}

// NewDefaultStackOrchestratorWithLogger creates an orchestrator that logs
// lifecycle events through the given logger.
//
// # Inputs
//
//   - exec: Process executor (required)
//   - logger: Structured logger (nil falls back to a discard logger)
//
// # Outputs
//
//   - *DefaultStackOrchestrator: Ready-to-use orchestrator
//   - error: ErrNilExecutor when exec is nil
func NewDefaultStackOrchestratorWithLogger(exec process.Executor, logger *logging.Logger) (*DefaultStackOrchestrator, error) {
	if exec == nil {
		return nil, ErrNilExecutor
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &DefaultStackOrchestrator{
		exec:       exec,
		logger:     logger,
		output:     discardWriter{},
		osStatFunc: os.Stat,
	}, nil
}

// SetOutput configures the writer for human-readable progress lines.
//
// Default is discard. Passing nil restores the discard writer. Useful in
// test harnesses that want "Starting stack demo..." lines in the test log.
func (o *DefaultStackOrchestrator) SetOutput(w io.Writer) {
	if w == nil {
		o.output = discardWriter{}
	} else {
		o.output = w
	}
}

// Up implements StackOrchestrator.
//
// See the interface documentation for the full contract.
func (o *DefaultStackOrchestrator) Up(ctx context.Context, cfg Config) (state *StackState, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	defer func() {
		recoverPanic(recover(), &err)
	}()

	cfg.EnsureDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := o.checkComposeFiles(cfg.Files); err != nil {
		return nil, err
	}

	tokens := upCommand(cfg)
	env := environSlice(cfg.Environment)

	o.logger.Info("starting compose stack",
		"project", cfg.Project,
		"stack", cfg.Name,
		"files", len(cfg.Files),
	)
	safeWrite(o.output, "Starting stack %s (project %s)...\n", cfg.Name, cfg.Project)

	result, err := o.exec.ExecuteInDir(ctx, cfg.WorkDir(), env, tokens)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStackUpFailed, err)
	}
	if !result.Success() {
		o.logger.Error("compose up exited non-zero",
			"project", cfg.Project,
			"exit_code", result.ExitCode,
		)
		return nil, fmt.Errorf("%w: %w", ErrStackUpFailed,
			process.NewCommandError(result.CommandLine(), result.ExitCode, result.Output, nil))
	}

	state = &StackState{
		Stack:      cfg.Name,
		Project:    cfg.Project,
		Services:   map[string]ServiceInfo{},
		CapturedAt: time.Now(),
	}

	// Best-effort initial snapshot. The stack is up either way; a caller
	// needing a reliable view calls Status or WaitForServices.
	services, err := o.querySnapshot(ctx, cfg.Project)
	if err != nil {
		o.logger.Warn("initial status query failed, returning empty service map",
			"project", cfg.Project,
			"error", err,
		)
	} else {
		state.Services = services
	}

	o.logger.Info("compose stack started",
		"project", cfg.Project,
		"services", len(state.Services),
		"duration", result.Duration,
	)
	safeWrite(o.output, "Stack %s is up: %s\n", cfg.Name, state.Summary())
	return state, nil
}

// Down implements StackOrchestrator.
//
// See the interface documentation for the full contract.
func (o *DefaultStackOrchestrator) Down(ctx context.Context, cfg Config) (err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	defer func() {
		recoverPanic(recover(), &err)
	}()

	cfg.EnsureDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}

	return o.runDown(ctx, downCommand(cfg.Files, cfg.Project), cfg.WorkDir(), cfg.Project)
}

// DownProject implements StackOrchestrator.
//
// See the interface documentation for the full contract.
func (o *DefaultStackOrchestrator) DownProject(ctx context.Context, project string) (err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	defer func() {
		recoverPanic(recover(), &err)
	}()

	if err := validation.ValidateProjectName(project); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return o.runDown(ctx, downCommand(nil, project), "", project)
}

// runDown executes a down command and wraps failures.
func (o *DefaultStackOrchestrator) runDown(ctx context.Context, tokens []string, workDir, project string) error {
	o.logger.Info("stopping compose stack", "project", project)
	safeWrite(o.output, "Stopping stack project %s...\n", project)

	result, err := o.exec.ExecuteInDir(ctx, workDir, nil, tokens)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStackDownFailed, err)
	}
	if !result.Success() {
		o.logger.Warn("compose down exited non-zero",
			"project", project,
			"exit_code", result.ExitCode,
		)
		return fmt.Errorf("%w: %w", ErrStackDownFailed,
			process.NewCommandError(result.CommandLine(), result.ExitCode, result.Output, nil))
	}

	o.logger.Info("compose stack stopped", "project", project)
	return nil
}

// Logs implements StackOrchestrator.
//
// See the interface documentation for the full contract.
func (o *DefaultStackOrchestrator) Logs(ctx context.Context, project string, cfg LogsConfig) (string, error) {
	if err := validation.ValidateProjectName(project); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return "", err
	}

	result, err := o.exec.Execute(ctx, logsCommand(project, cfg))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrLogsCaptureFailed, err)
	}
	if !result.Success() {
		return "", fmt.Errorf("%w: %w", ErrLogsCaptureFailed,
			process.NewCommandError(result.CommandLine(), result.ExitCode, result.Output, nil))
	}

	o.logger.Debug("captured stack logs",
		"project", project,
		"bytes", len(result.Output),
	)
	return result.Output, nil
}

// Status implements StackOrchestrator.
//
// See the interface documentation for the full contract.
func (o *DefaultStackOrchestrator) Status(ctx context.Context, project string) (*StackState, error) {
	if err := validation.ValidateProjectName(project); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	services, err := o.querySnapshot(ctx, project)
	if err != nil {
		return nil, err
	}

	return &StackState{
		Stack:      project,
		Project:    project,
		Services:   services,
		CapturedAt: time.Now(),
	}, nil
}

// WaitForServices implements StackOrchestrator.
//
// See the interface documentation for the full contract.
func (o *DefaultStackOrchestrator) WaitForServices(ctx context.Context, cfg WaitConfig) (ServiceStatus, error) {
	cfg.EnsureDefaults()
	if err := cfg.Validate(); err != nil {
		return StatusUnknown, err
	}

	deadline := time.Now().Add(cfg.Timeout)

	// Until the first successful query, the requested services are the
	// best description of what is not ready.
	lastUnready := append([]string(nil), cfg.Services...)
	sort.Strings(lastUnready)

	o.logger.Info("waiting for services",
		"project", cfg.Project,
		"target", cfg.Target,
		"services", len(cfg.Services),
		"timeout", cfg.Timeout,
	)

	for {
		if !time.Now().Before(deadline) {
			return StatusUnknown, o.timeoutError(cfg, lastUnready)
		}

		services, err := o.querySnapshot(ctx, cfg.Project)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return StatusUnknown, fmt.Errorf("%w: %w", ErrWaitInterrupted, ctx.Err())
			}
			// A failed query is indistinguishable from a stack still
			// materializing. Count it as nothing-ready and keep polling.
			o.logger.Debug("status query failed during wait",
				"project", cfg.Project,
				"error", err,
			)

		case len(cfg.Services) == 0 && len(services) == 0:
			// Waiting for "all services" of a stack that reports none.
			// An empty stack is not a satisfied wait; keep polling until
			// containers appear or time runs out.
			lastUnready = nil

		default:
			unready := UnreadyServices(services, cfg.Services, cfg.Target)
			if len(unready) == 0 {
				achieved := achievedStatus(services, cfg.Services, cfg.Target)
				o.logger.Info("services ready",
					"project", cfg.Project,
					"achieved", achieved,
				)
				return achieved, nil
			}
			lastUnready = unready
			o.logger.Debug("services not ready yet",
				"project", cfg.Project,
				"unready", strings.Join(unready, ","),
			)
		}

		if !time.Now().Before(deadline) {
			return StatusUnknown, o.timeoutError(cfg, lastUnready)
		}

		// The single suspension point of the whole lifecycle.
		if err := o.sleepWithContext(ctx, cfg.PollInterval); err != nil {
			return StatusUnknown, fmt.Errorf("%w: %w", ErrWaitInterrupted, err)
		}
	}
}

// =============================================================================
// Private Helper Methods
// =============================================================================

// checkComposeFiles verifies every configured compose file exists.
func (o *DefaultStackOrchestrator) checkComposeFiles(files []string) error {
	for _, file := range files {
		if _, err := o.osStatFunc(file); err != nil {
			return fmt.Errorf("%w: %s", ErrComposeFileMissing, file)
		}
	}
	return nil
}

// querySnapshot runs one `ps` invocation and parses it. This is the single
// atomic point-in-time view used by Up, Status, and each wait iteration.
func (o *DefaultStackOrchestrator) querySnapshot(ctx context.Context, project string) (map[string]ServiceInfo, error) {
	result, err := o.exec.Execute(ctx, psCommand(project))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStatusQueryFailed, err)
	}
	if !result.Success() {
		return nil, fmt.Errorf("%w: %w", ErrStatusQueryFailed,
			process.NewCommandError(result.CommandLine(), result.ExitCode, result.Output, nil))
	}
	return ParseServices(result.Output, project), nil
}

// timeoutError builds the ErrWaitTimeout failure, naming what never
// became ready.
func (o *DefaultStackOrchestrator) timeoutError(cfg WaitConfig, unready []string) error {
	if len(unready) == 0 {
		return fmt.Errorf("%w: no services reported for project %q within %s",
			ErrWaitTimeout, cfg.Project, cfg.Timeout)
	}
	return fmt.Errorf("%w: services not %s after %s: %s",
		ErrWaitTimeout, cfg.Target, cfg.Timeout, strings.Join(unready, ", "))
}

// sleepWithContext sleeps for duration or until ctx is done, whichever
// comes first. Returns the context error on early wake.
func (o *DefaultStackOrchestrator) sleepWithContext(ctx context.Context, duration time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(duration):
		return nil
	}
}

// =============================================================================
// Mock Implementation
// =============================================================================

// MockStackOrchestrator is a test double for StackOrchestrator.
//
// # Description
//
// Each method delegates to its function field when set and otherwise
// returns a benign success value, so harness tests only configure the
// paths they exercise. Calls are recorded for verification.
//
// # Example
//
//	mock := &compose.MockStackOrchestrator{
//	    WaitForServicesFunc: func(ctx context.Context, cfg compose.WaitConfig) (compose.ServiceStatus, error) {
//	        return compose.StatusHealthy, nil
//	    },
//	}
type MockStackOrchestrator struct {
	UpFunc              func(context.Context, Config) (*StackState, error)
	DownFunc            func(context.Context, Config) error
	DownProjectFunc     func(context.Context, string) error
	LogsFunc            func(context.Context, string, LogsConfig) (string, error)
	StatusFunc          func(context.Context, string) (*StackState, error)
	WaitForServicesFunc func(context.Context, WaitConfig) (ServiceStatus, error)

	UpCalls          []Config
	DownCalls        []Config
	DownProjectCalls []string
	LogsCalls        []LogsCall
	StatusCalls      []string
	WaitCalls        []WaitConfig
	mu               sync.Mutex
}

// LogsCall records one Logs invocation.
type LogsCall struct {
	Project string
	Config  LogsConfig
}

// Up implements StackOrchestrator.
func (m *MockStackOrchestrator) Up(ctx context.Context, cfg Config) (*StackState, error) {
	m.mu.Lock()
	m.UpCalls = append(m.UpCalls, cfg)
	m.mu.Unlock()

	if m.UpFunc != nil {
		return m.UpFunc(ctx, cfg)
	}
	return &StackState{
		Stack:      cfg.Name,
		Project:    cfg.Project,
		Services:   map[string]ServiceInfo{},
		CapturedAt: time.Now(),
	}, nil
}

// Down implements StackOrchestrator.
func (m *MockStackOrchestrator) Down(ctx context.Context, cfg Config) error {
	m.mu.Lock()
	m.DownCalls = append(m.DownCalls, cfg)
	m.mu.Unlock()

	if m.DownFunc != nil {
		return m.DownFunc(ctx, cfg)
	}
	return nil
}

// DownProject implements StackOrchestrator.
func (m *MockStackOrchestrator) DownProject(ctx context.Context, project string) error {
	m.mu.Lock()
	m.DownProjectCalls = append(m.DownProjectCalls, project)
	m.mu.Unlock()

	if m.DownProjectFunc != nil {
		return m.DownProjectFunc(ctx, project)
	}
	return nil
}

// Logs implements StackOrchestrator.
func (m *MockStackOrchestrator) Logs(ctx context.Context, project string, cfg LogsConfig) (string, error) {
	m.mu.Lock()
	m.LogsCalls = append(m.LogsCalls, LogsCall{Project: project, Config: cfg})
	m.mu.Unlock()

	if m.LogsFunc != nil {
		return m.LogsFunc(ctx, project, cfg)
	}
	return "", nil
}

// Status implements StackOrchestrator.
func (m *MockStackOrchestrator) Status(ctx context.Context, project string) (*StackState, error) {
	m.mu.Lock()
	m.StatusCalls = append(m.StatusCalls, project)
	m.mu.Unlock()

	if m.StatusFunc != nil {
		return m.StatusFunc(ctx, project)
	}
	return &StackState{
		Stack:      project,
		Project:    project,
		Services:   map[string]ServiceInfo{},
		CapturedAt: time.Now(),
	}, nil
}

// WaitForServices implements StackOrchestrator.
func (m *MockStackOrchestrator) WaitForServices(ctx context.Context, cfg WaitConfig) (ServiceStatus, error) {
	m.mu.Lock()
	m.WaitCalls = append(m.WaitCalls, cfg)
	m.mu.Unlock()

	if m.WaitForServicesFunc != nil {
		return m.WaitForServicesFunc(ctx, cfg)
	}
	return StatusRunning, nil
}

// Reset clears all recorded calls.
func (m *MockStackOrchestrator) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpCalls = nil
	m.DownCalls = nil
	m.DownProjectCalls = nil
	m.LogsCalls = nil
	m.StatusCalls = nil
	m.WaitCalls = nil
}

// Compile-time interface compliance checks.
var (
	_ StackOrchestrator = (*DefaultStackOrchestrator)(nil)
	_ StackOrchestrator = (*MockStackOrchestrator)(nil)
)
