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
	"encoding/json"
	"strconv"
	"strings"
)

// =============================================================================
// CLI Output Parsing
// =============================================================================

// ParseServices parses `docker compose ps --format json` output.
//
// # Description
//
// The CLI emits one JSON object per line (NDJSON), not a JSON array. Each
// line is parsed independently: blank lines are skipped, and a line that
// fails to parse is silently dropped rather than aborting the whole parse,
// since compose output can interleave incidental non-JSON diagnostics.
//
// Per object:
//
//   - Service name: the Service field when present; otherwise derived from
//     a Name field of the form {project}_{service}_{index} or
//     {project}-{service}-{index} (the middle token, which may itself
//     contain separators). A record yielding no name is dropped.
//   - Container id: the ID field, else UnknownContainerID.
//   - State: classified from State when present, else Status.
//   - Ports: parsed from the comma-separated Ports field.
//
// # Inputs
//
//   - raw: Raw CLI output, possibly empty
//   - project: Compose project name, used to strip container-name prefixes
//
// # Outputs
//
//   - map[string]ServiceInfo: Records keyed by service name. When the CLI
//     reports several containers for one service (scaled replicas), the
//     last record parsed wins.
//
// # Examples
//
//	services := compose.ParseServices(output, "demo")
//	web, ok := services["web"]
//
// # Limitations
//
//   - Depends on the documented ps JSON field names; unknown fields are
//     ignored, missing ones degrade per the rules above.
func ParseServices(raw, project string) map[string]ServiceInfo {
	services := make(map[string]ServiceInfo)

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var record struct {
			ID      string `json:"ID"`
			Service string `json:"Service"`
			Name    string `json:"Name"`
			State   string `json:"State"`
			Status  string `json:"Status"`
			Ports   string `json:"Ports"`
		}
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			continue
		}

		name := record.Service
		if name == "" {
			name = serviceFromContainerName(record.Name, project)
		}
		if name == "" {
			continue
		}

		id := record.ID
		if id == "" {
			id = UnknownContainerID
		}

		state := record.State
		if state == "" {
			state = record.Status
		}

		services[name] = ServiceInfo{
			ContainerID: id,
			Service:     name,
			State:       ClassifyState(state),
			Ports:       ParsePorts(record.Ports),
		}
	}

	return services
}

// serviceFromContainerName extracts the service from a compose container
// name of the form {project}{sep}{service}{sep}{index}, where sep is "_"
// or "-". Returns "" when the name does not match either pattern.
func serviceFromContainerName(name, project string) string {
	if name == "" || project == "" {
		return ""
	}
	for _, sep := range []string{"_", "-"} {
		prefix := project + sep
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		rest := strings.TrimPrefix(name, prefix)

		// The replica index is the trailing token; the service name may
		// itself contain the separator, so split at the last one.
		idx := strings.LastIndex(rest, sep)
		if idx <= 0 {
			continue
		}
		if _, err := strconv.Atoi(rest[idx+1:]); err != nil {
			continue
		}
		return rest[:idx]
	}
	return ""
}

// ClassifyState folds a raw CLI state string into a ServiceStatus.
//
// # Description
//
// Matching is case-insensitive substring search. Precedence,
// highest first:
//
//   - "healthy" (but not "unhealthy") → StatusHealthy
//   - "restarting" → StatusRestarting
//   - "exited" or "stopped" → StatusStopped
//   - "running" or "up" → StatusRunning
//   - anything else → StatusUnknown
//
// Healthy is checked before running because strings like
// "running (healthy)" carry both markers and health is the stronger
// verdict. An "unhealthy" marker suppresses the healthy match, letting
// the state fall through to running: an unhealthy container is still up.
func ClassifyState(raw string) ServiceStatus {
	s := strings.ToLower(raw)
	switch {
	case strings.Contains(s, "healthy") && !strings.Contains(s, "unhealthy"):
		return StatusHealthy
	case strings.Contains(s, "restarting"):
		return StatusRestarting
	case strings.Contains(s, "exited") || strings.Contains(s, "stopped"):
		return StatusStopped
	case strings.Contains(s, "running") || strings.Contains(s, "up"):
		return StatusRunning
	default:
		return StatusUnknown
	}
}

// ParsePorts parses the CLI's Ports field into port mappings.
//
// # Description
//
// The field is comma-separated tokens of the form
// [host:]hostPort->containerPort[/protocol]. Tokens without "->" describe
// container-only ports with no host mapping and are skipped. A token with
// a non-numeric port is skipped on its own; it never poisons the rest of
// the field. Protocol defaults to "tcp".
//
// # Examples
//
//	compose.ParsePorts("0.0.0.0:8080->80/tcp, :::8080->80/tcp")
//	// two mappings, host port 8080 to container port 80
//
//	compose.ParsePorts("5432/tcp")
//	// nil: no host mapping present
func ParsePorts(raw string) []PortMapping {
	var mappings []PortMapping

	for _, token := range strings.Split(raw, ",") {
		token = strings.TrimSpace(token)
		if token == "" || !strings.Contains(token, "->") {
			continue
		}

		parts := strings.SplitN(token, "->", 2)
		hostPart := strings.TrimSpace(parts[0])
		containerPart := strings.TrimSpace(parts[1])

		protocol := "tcp"
		if i := strings.LastIndex(containerPart, "/"); i >= 0 {
			if p := containerPart[i+1:]; p != "" {
				protocol = p
			}
			containerPart = containerPart[:i]
		}
		containerPort, err := strconv.Atoi(containerPart)
		if err != nil {
			continue
		}

		// The host side may carry a bind address; IPv6 binds like
		// ":::8080" make the last colon the only safe split point.
		hostIP := ""
		hostPortStr := hostPart
		if i := strings.LastIndex(hostPart, ":"); i >= 0 {
			hostIP = hostPart[:i]
			hostPortStr = hostPart[i+1:]
		}
		hostPort, err := strconv.Atoi(hostPortStr)
		if err != nil {
			continue
		}

		mappings = append(mappings, PortMapping{
			HostIP:        hostIP,
			HostPort:      hostPort,
			ContainerPort: containerPort,
			Protocol:      protocol,
		})
	}

	return mappings
}
