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
	"sort"
	"time"
)

// =============================================================================
// Service Status
// =============================================================================

// ServiceStatus classifies the raw state string reported by the Compose CLI.
//
// # Description
//
// ServiceStatus is a coarse classification, not a verbatim copy of CLI
// output. Raw strings such as "Up 2 hours (healthy)" or "running" are
// folded into one of five values by ClassifyState.
//
// StatusRestarting is transient: a restarting container satisfies neither
// a running nor a healthy readiness target.
type ServiceStatus string

const (
	// StatusRunning means the container is up, with no health verdict.
	StatusRunning ServiceStatus = "running"

	// StatusHealthy means the container is up and its healthcheck passes.
	StatusHealthy ServiceStatus = "healthy"

	// StatusStopped means the container exited or was stopped.
	StatusStopped ServiceStatus = "stopped"

	// StatusRestarting means the container is cycling. Never ready.
	StatusRestarting ServiceStatus = "restarting"

	// StatusUnknown means the state string matched no known pattern.
	StatusUnknown ServiceStatus = "unknown"
)

// IsValid returns true for one of the five defined classifications.
func (s ServiceStatus) IsValid() bool {
	switch s {
	case StatusRunning, StatusHealthy, StatusStopped, StatusRestarting, StatusUnknown:
		return true
	}
	return false
}

// IsWaitTarget returns true if the status is a meaningful readiness target.
//
// Only StatusRunning and StatusHealthy are requestable targets. Waiting on
// any other status is accepted by WaitForServices but can never be
// satisfied, so it times out.
func (s ServiceStatus) IsWaitTarget() bool {
	return s == StatusRunning || s == StatusHealthy
}

// Satisfies reports whether a service in this status meets the target.
//
// # Description
//
// A healthy target requires StatusHealthy. A running target is met by
// StatusRunning or StatusHealthy, since a healthy container is by
// definition running. No other combination satisfies anything.
//
// # Examples
//
//	StatusHealthy.Satisfies(StatusRunning) // true
//	StatusRunning.Satisfies(StatusHealthy) // false
func (s ServiceStatus) Satisfies(target ServiceStatus) bool {
	switch target {
	case StatusHealthy:
		return s == StatusHealthy
	case StatusRunning:
		return s == StatusRunning || s == StatusHealthy
	default:
		return false
	}
}

// String implements fmt.Stringer.
func (s ServiceStatus) String() string {
	return string(s)
}

// =============================================================================
// Service Records
// =============================================================================

// UnknownContainerID is the sentinel used when the CLI output carries no
// container identifier for a service.
const UnknownContainerID = "unknown"

// PortMapping is one published host-to-container port mapping.
type PortMapping struct {
	// HostIP is the bind address ("0.0.0.0", "::", or empty when the CLI
	// omits it).
	HostIP string

	// HostPort is the port reachable on the host.
	HostPort int

	// ContainerPort is the port inside the container.
	ContainerPort int

	// Protocol is "tcp" or "udp". Defaults to "tcp" when unspecified.
	Protocol string
}

// String renders the mapping in the CLI's arrow form.
func (p PortMapping) String() string {
	if p.HostIP != "" {
		return fmt.Sprintf("%s:%d->%d/%s", p.HostIP, p.HostPort, p.ContainerPort, p.Protocol)
	}
	return fmt.Sprintf("%d->%d/%s", p.HostPort, p.ContainerPort, p.Protocol)
}

// ServiceInfo is the parsed record for one service's container.
//
// Derived entirely from a single line of `docker compose ps --format json`
// output. Instances are value snapshots; mutating one never affects the
// stack.
type ServiceInfo struct {
	// ContainerID is the container identifier, or UnknownContainerID when
	// the output carried none.
	ContainerID string

	// Service is the compose service name.
	Service string

	// State is the classified status.
	State ServiceStatus

	// Ports lists the published port mappings. Container-only ports with
	// no host mapping are not represented.
	Ports []PortMapping
}

// Ready reports whether this service satisfies the readiness target.
func (s ServiceInfo) Ready(target ServiceStatus) bool {
	return s.State.Satisfies(target)
}

// =============================================================================
// Stack Snapshot
// =============================================================================

// StackState is a point-in-time snapshot of a compose stack.
//
// # Description
//
// Produced by Up and Status. Immutable by convention: a fresh view of the
// stack requires a new query, never in-place mutation. Safe to share
// across goroutines once built.
//
// Records whose service name could not be determined from the CLI output
// are absent from Services. Duplicate service names (scaled replicas)
// collapse to the last record parsed.
type StackState struct {
	// Stack is the logical stack name used in state files.
	Stack string

	// Project is the compose project name, the CLI isolation namespace.
	Project string

	// Services maps service name to its parsed record.
	Services map[string]ServiceInfo

	// CapturedAt is when the snapshot was taken.
	CapturedAt time.Time
}

// Service returns the record for name and whether it exists.
func (s *StackState) Service(name string) (ServiceInfo, bool) {
	info, ok := s.Services[name]
	return info, ok
}

// ServiceNames returns the snapshot's service names in sorted order.
func (s *StackState) ServiceNames() []string {
	names := make([]string, 0, len(s.Services))
	for name := range s.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CountByState tallies services per classification, for summaries.
func (s *StackState) CountByState() map[ServiceStatus]int {
	counts := make(map[ServiceStatus]int)
	for _, info := range s.Services {
		counts[info.State]++
	}
	return counts
}

// Summary renders a short human-readable overview like "2 running, 1 healthy".
func (s *StackState) Summary() string {
	if len(s.Services) == 0 {
		return "no services"
	}
	counts := s.CountByState()
	order := []ServiceStatus{StatusHealthy, StatusRunning, StatusRestarting, StatusStopped, StatusUnknown}
	parts := make([]string, 0, len(counts))
	for _, status := range order {
		if n := counts[status]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, status))
		}
	}
	summary := ""
	for i, part := range parts {
		if i > 0 {
			summary += ", "
		}
		summary += part
	}
	return summary
}
