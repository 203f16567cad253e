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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/composekit/pkg/compose"
)

// =============================================================================
// Test Fixtures
// =============================================================================

func testStackState() *compose.StackState {
	return &compose.StackState{
		Stack:      "demo-stack",
		Project:    "demo",
		CapturedAt: time.Date(2025, 11, 3, 14, 9, 58, 0, time.UTC),
		Services: map[string]compose.ServiceInfo{
			"web": {
				ContainerID: "abc123",
				Service:     "web",
				State:       compose.StatusHealthy,
				Ports: []compose.PortMapping{
					{HostIP: "0.0.0.0", HostPort: 8080, ContainerPort: 80, Protocol: "tcp"},
				},
			},
			"db": {
				ContainerID: "def456",
				Service:     "db",
				State:       compose.StatusRunning,
			},
		},
	}
}

// =============================================================================
// Conversion Tests
// =============================================================================

func TestFromStackState(t *testing.T) {
	doc := FromStackState(testStackState())

	assert.Equal(t, "demo-stack", doc.Stack)
	assert.Equal(t, "demo", doc.Project)
	assert.Equal(t, time.Date(2025, 11, 3, 14, 9, 58, 0, time.UTC), doc.CapturedAt)
	require.Len(t, doc.Services, 2)

	web := doc.Services["web"]
	assert.Equal(t, "abc123", web.ContainerID)
	assert.Equal(t, "healthy", web.Status)
	require.Len(t, web.Ports, 1)
	assert.Equal(t, PortEntry{HostIP: "0.0.0.0", HostPort: 8080, ContainerPort: 80, Protocol: "tcp"}, web.Ports[0])

	db := doc.Services["db"]
	assert.Equal(t, "running", db.Status)
	assert.NotNil(t, db.Ports)
	assert.Empty(t, db.Ports)
}

func TestFromStackState_NilState(t *testing.T) {
	doc := FromStackState(nil)

	assert.NotNil(t, doc.Services)
	assert.Empty(t, doc.Services)
}

// TestStateDocument_SchemaStability pins the collaborator-facing JSON keys.
// Out-of-process consumers parse these exact names; a failure here is a
// compatibility break, not a refactoring opportunity.
func TestStateDocument_SchemaStability(t *testing.T) {
	data, err := json.Marshal(FromStackState(testStackState()))
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))

	assert.Contains(t, raw, "stack")
	assert.Contains(t, raw, "project")
	assert.Contains(t, raw, "captured_at")
	require.Contains(t, raw, "services")

	services, ok := raw["services"].(map[string]any)
	require.True(t, ok)
	web, ok := services["web"].(map[string]any)
	require.True(t, ok)

	assert.Contains(t, web, "container_id")
	assert.Contains(t, web, "status")
	require.Contains(t, web, "ports")

	ports, ok := web["ports"].([]any)
	require.True(t, ok)
	require.Len(t, ports, 1)
	port, ok := ports[0].(map[string]any)
	require.True(t, ok)

	assert.Contains(t, port, "host_ip")
	assert.Contains(t, port, "host_port")
	assert.Contains(t, port, "container_port")
	assert.Contains(t, port, "protocol")

	// A service entry with no ports still carries the key.
	db, ok := services["db"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, db, "ports")
}

// =============================================================================
// Path Tests
// =============================================================================

func TestStatePath(t *testing.T) {
	got := StatePath(filepath.Join("var", "run"), "demo-stack")

	assert.Equal(t, filepath.Join("var", "run", "demo-stack.state.json"), got)
}

// =============================================================================
// Read-Back Tests
// =============================================================================

func TestReadStateFromFile_MissingFile(t *testing.T) {
	doc, err := ReadStateFromFile(filepath.Join(t.TempDir(), "absent.state.json"))

	assert.Nil(t, doc)
	assert.ErrorIs(t, err, ErrStateReadFailed)
}

func TestReadStateFromFile_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"stack": "demo",`), 0o600))

	doc, err := ReadStateFromFile(path)

	assert.Nil(t, doc)
	assert.ErrorIs(t, err, ErrStateParseFailed)
}

func TestReadStateFromFile_EmptyPath(t *testing.T) {
	doc, err := ReadStateFromFile("")

	assert.Nil(t, doc)
	assert.ErrorIs(t, err, ErrEmptyPath)
}
