// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation utilities for security-critical operations.
//
// This package contains validators for caller-provided identifiers that end up
// in subprocess invocations (compose project names, service names). Using these
// validators prevents flag smuggling and command injection through identifiers
// that are spliced into `docker compose` argument vectors.
package validation

import (
	"fmt"
	"strings"
)

// MaxNameLength is the maximum length for project and service names.
// Compose-derived container names embed both, and the combined name must
// stay within the container runtime's 63-character hostname component limit.
const MaxNameLength = 63

// ValidateProjectName validates a Docker Compose project name.
//
// Valid project names:
//   - 1-63 characters
//   - Lowercase letters a-z and digits 0-9
//   - Underscores (_) and hyphens (-) after the first character
//   - Must start with a lowercase letter or digit
//
// These are the constraints the Compose CLI itself enforces for `-p`;
// validating up front turns a confusing CLI error into an immediate one,
// and guarantees the name can never be mistaken for a flag.
//
// Example:
//
//	if err := validation.ValidateProjectName(project); err != nil {
//	    return fmt.Errorf("invalid project: %w", err)
//	}
//	// Safe to pass as the -p argument
func ValidateProjectName(name string) error {
	if name == "" {
		return fmt.Errorf("project name cannot be empty")
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("project name too long: %d characters (max %d)", len(name), MaxNameLength)
	}
	if !isNameStart(rune(name[0])) {
		return fmt.Errorf("invalid project name %q: must start with a lowercase letter or digit", name)
	}
	for _, r := range name {
		if !isNameRune(r) {
			return fmt.Errorf("invalid project name %q: only lowercase letters, digits, '-' and '_' are allowed", name)
		}
	}
	return nil
}

// ValidateServiceName validates a compose service name.
//
// Service names follow the same character rules as project names. They are
// passed as positional arguments to `docker compose logs` and compared against
// parsed `ps` output, so the same injection concerns apply.
func ValidateServiceName(name string) error {
	if name == "" {
		return fmt.Errorf("service name cannot be empty")
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("service name too long: %d characters (max %d)", len(name), MaxNameLength)
	}
	if !isNameStart(rune(name[0])) {
		return fmt.Errorf("invalid service name %q: must start with a lowercase letter or digit", name)
	}
	for _, r := range name {
		if !isNameRune(r) {
			return fmt.Errorf("invalid service name %q: only lowercase letters, digits, '-' and '_' are allowed", name)
		}
	}
	return nil
}

// ValidateServiceNames validates multiple service names.
// Returns an error listing all invalid names if any fail validation.
func ValidateServiceNames(names []string) error {
	var invalid []string
	for _, n := range names {
		if err := ValidateServiceName(n); err != nil {
			invalid = append(invalid, n)
		}
	}

	if len(invalid) > 0 {
		return fmt.Errorf("invalid service names: %v", invalid)
	}
	return nil
}

// SanitizeProjectName normalizes an arbitrary string into a valid project name.
// Returns the normalized name, or an error if nothing usable remains.
//
// Normalization mirrors what the Compose CLI does when deriving a project
// name from a directory: lowercase everything, replace disallowed runes with
// '-', strip leading separators, and truncate to the length limit.
//
// Use this when deriving a project name from a path or test name:
//
//	project, err := validation.SanitizeProjectName(filepath.Base(dir))
//	if err != nil {
//	    return fmt.Errorf("cannot derive project name: %w", err)
//	}
func SanitizeProjectName(raw string) (string, error) {
	var b strings.Builder
	for _, r := range strings.ToLower(raw) {
		switch {
		case isNameRune(r):
			b.WriteRune(r)
		default:
			// Includes non-ASCII letters: the CLI folds those too.
			b.WriteRune('-')
		}
	}

	name := strings.TrimLeft(b.String(), "-_")
	if len(name) > MaxNameLength {
		name = name[:MaxNameLength]
	}
	if name == "" {
		return "", fmt.Errorf("no valid project name can be derived from %q", raw)
	}

	if err := ValidateProjectName(name); err != nil {
		return "", err
	}
	return name, nil
}

// isNameStart reports whether r may begin a project or service name.
func isNameStart(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
}

// isNameRune reports whether r may appear in a project or service name.
func isNameRune(r rune) bool {
	return isNameStart(r) || r == '-' || r == '_'
}
