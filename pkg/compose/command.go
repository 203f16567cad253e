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
	"sort"
	"strconv"

	"github.com/AleutianAI/composekit/pkg/process"
)

// =============================================================================
// Command Builders
// =============================================================================

// Compose commands run through the `docker` binary's `compose` subcommand.
const (
	dockerBinary      = "docker"
	composeSubcommand = "compose"
)

// composeFileArgs renders `-f` flag pairs preserving the given file order.
//
// Order carries override semantics (later files win on conflicting keys),
// so files are never sorted or deduplicated here.
func composeFileArgs(files []string) []string {
	args := make([]string, 0, len(files)*2)
	for _, file := range files {
		args = append(args, "-f", file)
	}
	return args
}

// upCommand builds the full token list for
// `docker compose -f f1 [-f f2 ...] [--env-file e ...] -p project up -d`.
func upCommand(cfg Config) []string {
	tokens := []string{dockerBinary, composeSubcommand}
	tokens = append(tokens, composeFileArgs(cfg.Files)...)
	for _, envFile := range cfg.EnvFiles {
		tokens = append(tokens, "--env-file", envFile)
	}
	tokens = append(tokens, "-p", cfg.Project, "up", "-d")
	return tokens
}

// downCommand builds `docker compose [-f ...] -p project down`.
//
// The `-f` flags are included when files are known so the CLI resolves the
// project exactly the way `up` did; a bare project teardown omits them.
func downCommand(files []string, project string) []string {
	tokens := []string{dockerBinary, composeSubcommand}
	tokens = append(tokens, composeFileArgs(files)...)
	tokens = append(tokens, "-p", project, "down")
	return tokens
}

// psCommand builds `docker compose -p project ps --format json`.
func psCommand(project string) []string {
	return []string{dockerBinary, composeSubcommand, "-p", project, "ps", "--format", "json"}
}

// logsCommand builds `docker compose -p project logs [--tail N] [services...]`.
//
// cfg.Follow is deliberately not consulted: capture is single-shot, and a
// `--follow` flag would block the synchronous executor forever.
func logsCommand(project string, cfg LogsConfig) []string {
	tokens := []string{dockerBinary, composeSubcommand, "-p", project, "logs"}
	if cfg.Tail > 0 {
		tokens = append(tokens, "--tail", strconv.Itoa(cfg.Tail))
	}
	tokens = append(tokens, cfg.Services...)
	return tokens
}

// environSlice renders the stack environment as sorted KEY=VALUE pairs.
//
// Sorting keeps the child process environment deterministic across runs,
// which keeps command logging and test assertions stable.
func environSlice(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	vars, err := process.FromMap(env, nil)
	if err != nil {
		// Keys are validated by Config.Validate before commands are built;
		// an invalid key here means Validate was skipped. Pass the raw map
		// through so the CLI still sees the intended variables.
		fallback := make([]string, 0, len(env))
		for k, v := range env {
			fallback = append(fallback, k+"="+v)
		}
		sort.Strings(fallback)
		return fallback
	}
	return vars.ToSlice()
}
