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
	"context"
	"fmt"
	"testing"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/composekit/pkg/compose"
)

// StartAll brings several independent stacks up concurrently.
//
// # Description
//
// Each harness runs its full Start sequence in its own goroutine; the
// call returns once every stack is ready, with states in harness order.
// The first failure cancels the context the remaining starts run under
// and fails the test. Cleanup for every stack that got as far as Up is
// registered regardless, so partial failures still tear down.
//
// Harnesses must target distinct projects. Same-project harnesses would
// race inside the Docker daemon on the same container set, so that is
// rejected up front rather than left to UseProjectLock to serialize.
//
// # Example
//
//	api := &testkit.StackHarness{Config: compose.Config{
//	    Files: []string{"testdata/api.yml"}, Project: testkit.UniqueProject("api"),
//	}}
//	kafka := &testkit.StackHarness{Config: compose.Config{
//	    Files: []string{"testdata/kafka.yml"}, Project: testkit.UniqueProject("kafka"),
//	}}
//	states := testkit.StartAll(ctx, t, api, kafka)
func StartAll(ctx context.Context, t testing.TB, harnesses ...*StackHarness) []*compose.StackState {
	t.Helper()
	states, err := startAll(ctx, t, harnesses)
	if err != nil {
		t.Fatalf("stack harness: %v", err)
	}
	return states
}

func startAll(ctx context.Context, t testing.TB, harnesses []*StackHarness) ([]*compose.StackState, error) {
	seen := make(map[string]bool, len(harnesses))
	for _, h := range harnesses {
		h.Config.EnsureDefaults()
		if seen[h.Config.Project] {
			return nil, fmt.Errorf("duplicate project %s: concurrent stacks must use distinct projects", h.Config.Project)
		}
		seen[h.Config.Project] = true
	}

	states := make([]*compose.StackState, len(harnesses))
	g, gCtx := errgroup.WithContext(ctx)
	for i, h := range harnesses {
		i, h := i, h
		g.Go(func() error {
			state, err := h.start(gCtx, t)
			if err != nil {
				return err
			}
			states[i] = state
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return states, nil
}
