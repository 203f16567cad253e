// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/AleutianAI/composekit/pkg/compose"
)

// =============================================================================
// On-Disk Schema
// =============================================================================

// StateDocument is the on-disk form of a stack state snapshot.
//
// # Description
//
// This schema is a collaborator-facing interface: it is read by separate
// processes (test runners discovering published ports) that do not link
// this module. Field names and shapes are stable; changing them breaks
// every out-of-process consumer. Extend by adding fields, never by
// renaming or retyping existing ones.
//
// # Example
//
//	{
//	  "stack": "demo-stack",
//	  "project": "demo",
//	  "captured_at": "2025-11-03T14:09:58Z",
//	  "services": {
//	    "web": {
//	      "container_id": "abc123",
//	      "status": "healthy",
//	      "ports": [
//	        {"host_ip": "0.0.0.0", "host_port": 8080, "container_port": 80, "protocol": "tcp"}
//	      ]
//	    }
//	  }
//	}
type StateDocument struct {
	// Stack is the human-facing stack name.
	Stack string `json:"stack"`

	// Project is the compose project name, the CLI's isolation key.
	Project string `json:"project"`

	// CapturedAt is when the snapshot was taken (RFC 3339).
	CapturedAt time.Time `json:"captured_at"`

	// Services maps service name to its captured entry.
	Services map[string]ServiceEntry `json:"services"`
}

// ServiceEntry is the on-disk record for one service.
type ServiceEntry struct {
	// ContainerID is the container identifier, or "unknown".
	ContainerID string `json:"container_id"`

	// Status is the classified state: running, healthy, stopped,
	// restarting, or unknown.
	Status string `json:"status"`

	// Ports lists the published port mappings. Always present, possibly
	// empty.
	Ports []PortEntry `json:"ports"`
}

// PortEntry is the on-disk record for one published port.
type PortEntry struct {
	// HostIP is the bind address, when the CLI reported one.
	HostIP string `json:"host_ip,omitempty"`

	// HostPort is the port published on the host.
	HostPort int `json:"host_port"`

	// ContainerPort is the port inside the container.
	ContainerPort int `json:"container_port"`

	// Protocol is "tcp" or "udp".
	Protocol string `json:"protocol"`
}

// =============================================================================
// Conversion
// =============================================================================

// FromStackState converts an in-memory stack state to its on-disk form.
//
// A nil state converts to an empty document so callers composing documents
// never see a nil map; FileWriter rejects nil states before reaching here.
func FromStackState(state *compose.StackState) StateDocument {
	doc := StateDocument{
		Services: make(map[string]ServiceEntry),
	}
	if state == nil {
		return doc
	}

	doc.Stack = state.Stack
	doc.Project = state.Project
	doc.CapturedAt = state.CapturedAt

	for name, info := range state.Services {
		entry := ServiceEntry{
			ContainerID: info.ContainerID,
			Status:      info.State.String(),
			Ports:       make([]PortEntry, 0, len(info.Ports)),
		}
		for _, p := range info.Ports {
			entry.Ports = append(entry.Ports, PortEntry{
				HostIP:        p.HostIP,
				HostPort:      p.HostPort,
				ContainerPort: p.ContainerPort,
				Protocol:      p.Protocol,
			})
		}
		doc.Services[name] = entry
	}
	return doc
}

// =============================================================================
// Path and Read-Back
// =============================================================================

// StatePath returns the well-known state file location for a stack.
//
// One file per stack: `<dir>/<stack>.state.json`. Both the writing
// orchestration process and the out-of-process readers derive the path
// with this function, so neither hardcodes the naming convention.
func StatePath(dir, stack string) string {
	return filepath.Join(dir, stack+".state.json")
}

// ReadStateFromFile reads and parses a state document.
//
// # Inputs
//
//   - path: State file location, usually from StatePath
//
// # Outputs
//
//   - *StateDocument: The parsed document
//   - error: ErrEmptyPath, ErrStateReadFailed (missing/unreadable file),
//     or ErrStateParseFailed (present but not a valid document)
func ReadStateFromFile(path string) (*StateDocument, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStateReadFailed, err)
	}

	var doc StateDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrStateParseFailed, path, err)
	}
	return &doc, nil
}
