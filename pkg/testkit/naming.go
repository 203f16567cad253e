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
	"github.com/google/uuid"

	"github.com/AleutianAI/composekit/pkg/validation"
)

// UniqueProject derives a valid, collision-free compose project name from
// prefix, in the form "prefix-xxxxxxxx".
//
// The prefix is sanitized the same way compose derives project names from
// directories, so test names and paths are fine inputs. Prefixes that
// sanitize to nothing fall back to "stack". The suffix makes concurrent
// runs of the same test, including runs in separate CI processes on one
// host, target disjoint container sets.
func UniqueProject(prefix string) string {
	// Short UUID suffix for readability.
	suffix := uuid.New().String()[:8]

	name, err := validation.SanitizeProjectName(prefix)
	if err != nil {
		name = "stack"
	}
	if max := validation.MaxNameLength - len(suffix) - 1; len(name) > max {
		name = name[:max]
	}
	return name + "-" + suffix
}
