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

import "sort"

// =============================================================================
// Readiness Evaluation
// =============================================================================

// UnreadyServices returns the requested services not yet satisfying target.
//
// # Description
//
// When requested is empty, every service in the snapshot is required.
// A requested name absent from the snapshot counts as unready: the
// container may not exist yet, which is exactly the condition a wait
// is polling through.
//
// # Inputs
//
//   - services: One point-in-time parse of `ps` output
//   - requested: Service names to require (empty = all in snapshot)
//   - target: Readiness target each service must satisfy
//
// # Outputs
//
//   - []string: Unready names, sorted for stable error messages.
//     Empty when everything requested is ready.
func UnreadyServices(services map[string]ServiceInfo, requested []string, target ServiceStatus) []string {
	var unready []string

	if len(requested) == 0 {
		for name, info := range services {
			if !info.Ready(target) {
				unready = append(unready, name)
			}
		}
	} else {
		for _, name := range requested {
			info, ok := services[name]
			if !ok || !info.Ready(target) {
				unready = append(unready, name)
			}
		}
	}

	sort.Strings(unready)
	return unready
}

// achievedStatus reports the status a successful wait actually reached.
//
// A wait for StatusRunning can overshoot: when every required service is
// already healthy, the achieved status is StatusHealthy rather than the
// weaker target. Otherwise the target itself is returned. Callers only
// invoke this after UnreadyServices came back empty.
func achievedStatus(services map[string]ServiceInfo, requested []string, target ServiceStatus) ServiceStatus {
	if len(requested) == 0 {
		for _, info := range services {
			if info.State != StatusHealthy {
				return target
			}
		}
		return StatusHealthy
	}
	for _, name := range requested {
		if services[name].State != StatusHealthy {
			return target
		}
	}
	return StatusHealthy
}
