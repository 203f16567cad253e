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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// ParseServices Tests
// =============================================================================

func TestParseServices_EmptyInput(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"empty string", ""},
		{"whitespace only", "   \n  \n\t\n"},
		{"blank lines", "\n\n\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			services := ParseServices(tc.raw, "demo")
			assert.Empty(t, services)
		})
	}
}

func TestParseServices_SingleService(t *testing.T) {
	raw := `{"ID":"abc123","Service":"web","State":"running","Ports":"0.0.0.0:8080->80/tcp"}`

	services := ParseServices(raw, "demo")

	require.Len(t, services, 1)
	web, ok := services["web"]
	require.True(t, ok)
	assert.Equal(t, "abc123", web.ContainerID)
	assert.Equal(t, "web", web.Service)
	assert.Equal(t, StatusRunning, web.State)
	require.Len(t, web.Ports, 1)
	assert.Equal(t, PortMapping{HostIP: "0.0.0.0", HostPort: 8080, ContainerPort: 80, Protocol: "tcp"}, web.Ports[0])
}

func TestParseServices_MultipleLines(t *testing.T) {
	raw := `{"ID":"aaa","Service":"web","State":"running"}
{"ID":"bbb","Service":"db","State":"running (healthy)"}
{"ID":"ccc","Service":"cache","State":"exited"}`

	services := ParseServices(raw, "demo")

	require.Len(t, services, 3)
	assert.Equal(t, StatusRunning, services["web"].State)
	assert.Equal(t, StatusHealthy, services["db"].State)
	assert.Equal(t, StatusStopped, services["cache"].State)
}

func TestParseServices_MalformedLinesSkipped(t *testing.T) {
	raw := `not json at all
{"ID":"aaa","Service":"web","State":"running"}
{broken json
WARNING: some compose diagnostic
{"ID":"bbb","Service":"db","State":"running"}`

	services := ParseServices(raw, "demo")

	require.Len(t, services, 2)
	assert.Contains(t, services, "web")
	assert.Contains(t, services, "db")
}

func TestParseServices_NameFallback(t *testing.T) {
	cases := []struct {
		name    string
		line    string
		project string
		want    string
	}{
		{
			"underscore pattern",
			`{"ID":"aaa","Name":"demo_web_1","State":"running"}`,
			"demo",
			"web",
		},
		{
			"dash pattern",
			`{"ID":"aaa","Name":"demo-web-1","State":"running"}`,
			"demo",
			"web",
		},
		{
			"service name containing separator",
			`{"ID":"aaa","Name":"demo-go-orchestrator-1","State":"running"}`,
			"demo",
			"go-orchestrator",
		},
		{
			"project name containing dash",
			`{"ID":"aaa","Name":"my-proj_web_2","State":"running"}`,
			"my-proj",
			"web",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			services := ParseServices(tc.line, tc.project)
			require.Len(t, services, 1)
			assert.Contains(t, services, tc.want)
		})
	}
}

func TestParseServices_ServiceFieldPreferredOverName(t *testing.T) {
	raw := `{"ID":"aaa","Service":"api","Name":"demo_web_1","State":"running"}`

	services := ParseServices(raw, "demo")

	require.Len(t, services, 1)
	assert.Contains(t, services, "api")
}

func TestParseServices_UnresolvableNameDropped(t *testing.T) {
	cases := []struct {
		name string
		line string
	}{
		{"no service or name", `{"ID":"aaa","State":"running"}`},
		{"name without project prefix", `{"ID":"aaa","Name":"other_web_1","State":"running"}`},
		{"name without numeric index", `{"ID":"aaa","Name":"demo_web_one","State":"running"}`},
		{"name with no index token", `{"ID":"aaa","Name":"demo_web","State":"running"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			services := ParseServices(tc.line, "demo")
			assert.Empty(t, services)
		})
	}
}

func TestParseServices_MissingIDUsesSentinel(t *testing.T) {
	raw := `{"Service":"web","State":"running"}`

	services := ParseServices(raw, "demo")

	require.Contains(t, services, "web")
	assert.Equal(t, UnknownContainerID, services["web"].ContainerID)
}

func TestParseServices_StatePreferredOverStatus(t *testing.T) {
	raw := `{"ID":"aaa","Service":"web","State":"exited","Status":"Up 2 hours"}`

	services := ParseServices(raw, "demo")

	assert.Equal(t, StatusStopped, services["web"].State)
}

func TestParseServices_StatusUsedWhenStateAbsent(t *testing.T) {
	raw := `{"ID":"aaa","Service":"web","Status":"Up 2 hours (healthy)"}`

	services := ParseServices(raw, "demo")

	assert.Equal(t, StatusHealthy, services["web"].State)
}

func TestParseServices_DuplicateServiceLastWins(t *testing.T) {
	raw := `{"ID":"first","Service":"web","State":"restarting"}
{"ID":"second","Service":"web","State":"running"}`

	services := ParseServices(raw, "demo")

	require.Len(t, services, 1)
	assert.Equal(t, "second", services["web"].ContainerID)
	assert.Equal(t, StatusRunning, services["web"].State)
}

// =============================================================================
// ClassifyState Tests
// =============================================================================

func TestClassifyState(t *testing.T) {
	cases := []struct {
		raw  string
		want ServiceStatus
	}{
		{"running", StatusRunning},
		{"Running", StatusRunning},
		{"Up 2 hours", StatusRunning},
		{"up", StatusRunning},
		{"running (healthy)", StatusHealthy},
		{"Up 2 hours (healthy)", StatusHealthy},
		{"healthy", StatusHealthy},
		{"Up 2 hours (unhealthy)", StatusRunning},
		{"exited", StatusStopped},
		{"Exited (0) 5 minutes ago", StatusStopped},
		{"stopped", StatusStopped},
		{"restarting", StatusRestarting},
		{"Restarting (1) 3 seconds ago", StatusRestarting},
		{"created", StatusUnknown},
		{"paused", StatusUnknown},
		{"", StatusUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyState(tc.raw))
		})
	}
}

// =============================================================================
// ParsePorts Tests
// =============================================================================

func TestParsePorts_DualStack(t *testing.T) {
	mappings := ParsePorts("0.0.0.0:8080->80/tcp, :::8080->80/tcp")

	require.Len(t, mappings, 2)
	assert.Equal(t, PortMapping{HostIP: "0.0.0.0", HostPort: 8080, ContainerPort: 80, Protocol: "tcp"}, mappings[0])
	assert.Equal(t, PortMapping{HostIP: "::", HostPort: 8080, ContainerPort: 80, Protocol: "tcp"}, mappings[1])
}

func TestParsePorts_Table(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want []PortMapping
	}{
		{
			"empty",
			"",
			nil,
		},
		{
			"container-only port skipped",
			"80/tcp",
			nil,
		},
		{
			"no host ip",
			"8080->80/tcp",
			[]PortMapping{{HostPort: 8080, ContainerPort: 80, Protocol: "tcp"}},
		},
		{
			"udp protocol",
			"0.0.0.0:5353->53/udp",
			[]PortMapping{{HostIP: "0.0.0.0", HostPort: 5353, ContainerPort: 53, Protocol: "udp"}},
		},
		{
			"protocol defaults to tcp",
			"0.0.0.0:8080->80",
			[]PortMapping{{HostIP: "0.0.0.0", HostPort: 8080, ContainerPort: 80, Protocol: "tcp"}},
		},
		{
			"non-numeric host port skips only that token",
			"bad:port->80/tcp, 0.0.0.0:9090->90/tcp",
			[]PortMapping{{HostIP: "0.0.0.0", HostPort: 9090, ContainerPort: 90, Protocol: "tcp"}},
		},
		{
			"non-numeric container port skips only that token",
			"0.0.0.0:8080->http/tcp, 0.0.0.0:9090->90/tcp",
			[]PortMapping{{HostIP: "0.0.0.0", HostPort: 9090, ContainerPort: 90, Protocol: "tcp"}},
		},
		{
			"mixed mapped and unmapped",
			"5432/tcp, 0.0.0.0:15432->5432/tcp",
			[]PortMapping{{HostIP: "0.0.0.0", HostPort: 15432, ContainerPort: 5432, Protocol: "tcp"}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ParsePorts(tc.raw))
		})
	}
}
