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
)

// =============================================================================
// Command Builder Tests
// =============================================================================

func TestComposeFileArgs_PreservesOrder(t *testing.T) {
	args := composeFileArgs([]string{"base.yml", "override.yml", "a.yml"})

	assert.Equal(t, []string{"-f", "base.yml", "-f", "override.yml", "-f", "a.yml"}, args)
}

func TestComposeFileArgs_Empty(t *testing.T) {
	assert.Empty(t, composeFileArgs(nil))
}

func TestUpCommand_TokenOrder(t *testing.T) {
	cfg := Config{
		Project: "demo",
		Files:   []string{"base.yml", "override.yml"},
	}

	tokens := upCommand(cfg)

	assert.Equal(t, []string{
		"docker", "compose",
		"-f", "base.yml",
		"-f", "override.yml",
		"-p", "demo",
		"up", "-d",
	}, tokens)
}

func TestUpCommand_WithEnvFiles(t *testing.T) {
	cfg := Config{
		Project:  "demo",
		Files:    []string{"compose.yml"},
		EnvFiles: []string{".env", ".env.local"},
	}

	tokens := upCommand(cfg)

	assert.Equal(t, []string{
		"docker", "compose",
		"-f", "compose.yml",
		"--env-file", ".env",
		"--env-file", ".env.local",
		"-p", "demo",
		"up", "-d",
	}, tokens)
}

func TestDownCommand_WithFiles(t *testing.T) {
	tokens := downCommand([]string{"base.yml", "override.yml"}, "demo")

	assert.Equal(t, []string{
		"docker", "compose",
		"-f", "base.yml",
		"-f", "override.yml",
		"-p", "demo",
		"down",
	}, tokens)
}

func TestDownCommand_ProjectOnly(t *testing.T) {
	tokens := downCommand(nil, "demo")

	assert.Equal(t, []string{"docker", "compose", "-p", "demo", "down"}, tokens)
}

func TestPsCommand(t *testing.T) {
	tokens := psCommand("demo")

	assert.Equal(t, []string{"docker", "compose", "-p", "demo", "ps", "--format", "json"}, tokens)
}

func TestLogsCommand_Defaults(t *testing.T) {
	tokens := logsCommand("demo", LogsConfig{})

	assert.Equal(t, []string{"docker", "compose", "-p", "demo", "logs"}, tokens)
}

func TestLogsCommand_TailAndServices(t *testing.T) {
	tokens := logsCommand("demo", LogsConfig{Tail: 200, Services: []string{"web", "db"}})

	assert.Equal(t, []string{
		"docker", "compose", "-p", "demo", "logs", "--tail", "200", "web", "db",
	}, tokens)
}

func TestLogsCommand_NeverFollows(t *testing.T) {
	tokens := logsCommand("demo", LogsConfig{Follow: true, Tail: 10})

	assert.NotContains(t, tokens, "--follow")
	assert.NotContains(t, tokens, "-f")
}

// =============================================================================
// Environment Rendering Tests
// =============================================================================

func TestEnvironSlice_Empty(t *testing.T) {
	assert.Nil(t, environSlice(nil))
	assert.Nil(t, environSlice(map[string]string{}))
}

func TestEnvironSlice_SortedPairs(t *testing.T) {
	env := map[string]string{
		"POSTGRES_DB":   "app",
		"API_PORT":      "8080",
		"POSTGRES_USER": "admin",
	}

	pairs := environSlice(env)

	assert.Equal(t, []string{
		"API_PORT=8080",
		"POSTGRES_DB=app",
		"POSTGRES_USER=admin",
	}, pairs)
}

func TestEnvironSlice_FallbackOnInvalidKey(t *testing.T) {
	env := map[string]string{
		"GOOD_KEY": "a",
		"bad-key":  "b",
	}

	pairs := environSlice(env)

	assert.Equal(t, []string{"GOOD_KEY=a", "bad-key=b"}, pairs)
}
