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
// Readiness Evaluation Tests
// =============================================================================

func snapshotFixture() map[string]ServiceInfo {
	return map[string]ServiceInfo{
		"web":   {ContainerID: "aaa", Service: "web", State: StatusHealthy},
		"db":    {ContainerID: "bbb", Service: "db", State: StatusRunning},
		"cache": {ContainerID: "ccc", Service: "cache", State: StatusRestarting},
	}
}

func TestUnreadyServices_AllReady(t *testing.T) {
	unready := UnreadyServices(snapshotFixture(), []string{"web", "db"}, StatusRunning)

	assert.Empty(t, unready)
}

func TestUnreadyServices_HealthySatisfiesRunning(t *testing.T) {
	unready := UnreadyServices(snapshotFixture(), []string{"web"}, StatusRunning)

	assert.Empty(t, unready)
}

func TestUnreadyServices_RunningDoesNotSatisfyHealthy(t *testing.T) {
	unready := UnreadyServices(snapshotFixture(), []string{"web", "db"}, StatusHealthy)

	assert.Equal(t, []string{"db"}, unready)
}

func TestUnreadyServices_AbsentRequestedCountsAsUnready(t *testing.T) {
	unready := UnreadyServices(snapshotFixture(), []string{"web", "worker"}, StatusRunning)

	assert.Equal(t, []string{"worker"}, unready)
}

func TestUnreadyServices_Sorted(t *testing.T) {
	unready := UnreadyServices(snapshotFixture(), []string{"zeta", "alpha", "cache"}, StatusRunning)

	assert.Equal(t, []string{"alpha", "cache", "zeta"}, unready)
}

func TestUnreadyServices_EmptyRequestedScansWholeSnapshot(t *testing.T) {
	unready := UnreadyServices(snapshotFixture(), nil, StatusRunning)

	assert.Equal(t, []string{"cache"}, unready)
}

func TestUnreadyServices_EmptyRequestedAllReady(t *testing.T) {
	services := map[string]ServiceInfo{
		"web": {Service: "web", State: StatusRunning},
		"db":  {Service: "db", State: StatusHealthy},
	}

	assert.Empty(t, UnreadyServices(services, nil, StatusRunning))
}

func TestUnreadyServices_EmptySnapshotWithRequested(t *testing.T) {
	unready := UnreadyServices(map[string]ServiceInfo{}, []string{"web", "db"}, StatusRunning)

	assert.Equal(t, []string{"db", "web"}, unready)
}

// =============================================================================
// Achieved Status Tests
// =============================================================================

func TestAchievedStatus_ReportsOvershoot(t *testing.T) {
	services := map[string]ServiceInfo{
		"web": {Service: "web", State: StatusHealthy},
		"db":  {Service: "db", State: StatusHealthy},
	}

	got := achievedStatus(services, []string{"web", "db"}, StatusRunning)

	assert.Equal(t, StatusHealthy, got)
}

func TestAchievedStatus_ReturnsTargetWhenMixed(t *testing.T) {
	services := map[string]ServiceInfo{
		"web": {Service: "web", State: StatusHealthy},
		"db":  {Service: "db", State: StatusRunning},
	}

	got := achievedStatus(services, []string{"web", "db"}, StatusRunning)

	assert.Equal(t, StatusRunning, got)
}

func TestAchievedStatus_EmptyRequestedConsidersWholeSnapshot(t *testing.T) {
	allHealthy := map[string]ServiceInfo{
		"web": {Service: "web", State: StatusHealthy},
	}
	mixed := map[string]ServiceInfo{
		"web": {Service: "web", State: StatusHealthy},
		"db":  {Service: "db", State: StatusRunning},
	}

	assert.Equal(t, StatusHealthy, achievedStatus(allHealthy, nil, StatusRunning))
	assert.Equal(t, StatusRunning, achievedStatus(mixed, nil, StatusRunning))
}
