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
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/AleutianAI/composekit/pkg/process"
	"github.com/AleutianAI/composekit/pkg/validation"
)

// =============================================================================
// Defaults
// =============================================================================

const (
	// DefaultWaitTimeout bounds WaitForServices when no timeout is given.
	DefaultWaitTimeout = 60 * time.Second

	// DefaultPollInterval is the sleep between readiness polls when no
	// interval is given.
	DefaultPollInterval = 1 * time.Second
)

// =============================================================================
// Shared Validator Instance
// =============================================================================

// composeValidate is the validator instance for compose configuration types.
// Initialized in init() with custom validators.
var composeValidate *validator.Validate

func init() {
	composeValidate = validator.New()

	// Project names become `-p` CLI arguments; reject anything that could
	// smuggle flags or shell metacharacters into the subprocess.
	_ = composeValidate.RegisterValidation("projectname", validateProjectNameField)
}

// validateProjectNameField adapts the shared project-name rules to a
// validator.Func.
func validateProjectNameField(fl validator.FieldLevel) bool {
	return validation.ValidateProjectName(fl.Field().String()) == nil
}

// =============================================================================
// Stack Configuration
// =============================================================================

// Config describes one compose stack.
//
// # Description
//
// Config is an immutable value object once EnsureDefaults and Validate
// have run. It carries everything needed to build the `docker compose`
// command line for a stack.
//
// # Fields
//
//   - Name: Logical stack identifier, used to name state files. Defaults
//     to Project.
//   - Project: Compose project name (`-p`), the isolation namespace that
//     keeps concurrent stacks apart. Defaults to the first compose file's
//     parent directory name.
//   - Files: Ordered compose file paths. Order is override precedence:
//     later files win on conflicting keys. Never reordered, deduplicated,
//     or filtered.
//   - EnvFiles: Optional `--env-file` paths, passed in order.
//   - Environment: Extra variables injected into every compose invocation
//     for this stack.
//
// # Examples
//
//	cfg := compose.Config{
//	    Project: "demo",
//	    Files:   []string{"testdata/base.yml", "testdata/override.yml"},
//	}
//	cfg.EnsureDefaults()
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
//
// # Limitations
//
//   - File existence is checked at Up time, not here: paths may be
//     created between configuration and invocation.
//
// # Assumptions
//
//   - Files resolve from the process working directory or are absolute.
type Config struct {
	Name        string   `validate:"omitempty"`
	Project     string   `validate:"required,projectname"`
	Files       []string `validate:"required,min=1,dive,required"`
	EnvFiles    []string `validate:"omitempty,dive,required"`
	Environment map[string]string
}

// EnsureDefaults populates Project and Name when empty.
//
// Project derives from the first compose file's parent directory,
// sanitized to a valid project name. Name falls back to Project.
func (c *Config) EnsureDefaults() {
	if c.Project == "" && len(c.Files) > 0 {
		dir := filepath.Base(filepath.Dir(c.Files[0]))
		if name, err := validation.SanitizeProjectName(dir); err == nil {
			c.Project = name
		}
	}
	if c.Name == "" {
		c.Name = c.Project
	}
}

// Validate checks structural rules and environment variable keys.
//
// Returns an error wrapping ErrInvalidConfig on any violation. Call
// EnsureDefaults first when Project or Name may be empty.
func (c *Config) Validate() error {
	if err := composeValidate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	for key := range c.Environment {
		v := process.EnvVar{Key: key}
		if err := v.Validate(); err != nil {
			return fmt.Errorf("%w: environment: %w", ErrInvalidConfig, err)
		}
	}
	return nil
}

// WorkDir returns the directory compose commands for this stack run in:
// the first compose file's parent. Relative compose paths resolve against
// it, matching how the files were authored.
func (c *Config) WorkDir() string {
	if len(c.Files) == 0 {
		return ""
	}
	return filepath.Dir(c.Files[0])
}

// =============================================================================
// Wait Configuration
// =============================================================================

// WaitConfig describes one readiness wait.
//
// # Description
//
// Names the project to poll, which services to require (empty means every
// service the stack reports), the readiness target, and the timing knobs.
//
// Timing rules: Timeout and PollInterval must both be positive, and their
// relation is unconstrained. An interval at or above the timeout
// degenerates to exactly one check before timing out, which is permitted.
// Service names are a soft constraint: a name the stack never reports
// surfaces as an eventual timeout, not an immediate error.
//
// # Examples
//
//	wait := compose.WaitConfig{
//	    Project:  "demo",
//	    Services: []string{"db"},
//	    Target:   compose.StatusHealthy,
//	    Timeout:  2 * time.Minute,
//	}
type WaitConfig struct {
	Project      string `validate:"required,projectname"`
	Services     []string
	Timeout      time.Duration `validate:"gt=0"`
	PollInterval time.Duration `validate:"gt=0"`
	Target       ServiceStatus
}

// EnsureDefaults fills Target, Timeout, and PollInterval when unset.
func (c *WaitConfig) EnsureDefaults() {
	if c.Target == "" {
		c.Target = StatusRunning
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultWaitTimeout
	}
	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}
}

// Validate checks the wait parameters.
//
// Only positivity of the durations and the project name are enforced.
// Targets other than running/healthy pass validation; they simply never
// become satisfied.
func (c *WaitConfig) Validate() error {
	if err := composeValidate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// =============================================================================
// Logs Configuration
// =============================================================================

// LogsConfig describes one log capture.
//
// # Description
//
// Selects which services to capture (empty means all) and how many
// trailing lines (0 means unlimited). Follow exists for interface
// compatibility with streaming-oriented callers: capture is always a
// single blocking call, and the `--follow` flag is never passed to the
// CLI regardless of its value.
type LogsConfig struct {
	Services []string
	Tail     int `validate:"gte=0"`
	Follow   bool
}

// Validate checks tail bounds and service name safety.
//
// Service names become CLI arguments, so each must pass the shared
// service-name rules.
func (c *LogsConfig) Validate() error {
	if err := composeValidate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := validation.ValidateServiceNames(c.Services); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
