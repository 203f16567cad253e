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
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// Service Discovery
// =============================================================================

// DefinedServices returns the service names declared across compose files.
//
// # Description
//
// Reads each file in order and collects the keys of its top-level
// `services:` mapping. Later files may add services; the union is
// returned sorted. Service bodies are never decoded, only the names are
// of interest, so files using advanced compose features still parse.
//
// This is a diagnostic helper for preflight checks ("is the service you
// are waiting for even defined?"). It never gates a wait: a name missing
// here still goes through the normal polling path, which reports it as an
// eventual timeout.
//
// # Inputs
//
//   - files: Compose file paths in configuration order
//
// # Outputs
//
//   - []string: Sorted union of declared service names
//   - error: When a file cannot be read or is not valid YAML
//
// # Examples
//
//	names, err := compose.DefinedServices(cfg.Files)
//	// names == []string{"db", "web"}
func DefinedServices(files []string) ([]string, error) {
	seen := make(map[string]bool)

	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read compose file: %w", err)
		}

		var doc struct {
			Services map[string]yaml.Node `yaml:"services"`
		}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse compose file %s: %w", file, err)
		}

		for name := range doc.Services {
			seen[name] = true
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
