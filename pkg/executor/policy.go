// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package executor

import (
	"fmt"

	"github.com/Bullish-Design/remora-sub001/pkg/config"
	"github.com/Bullish-Design/remora-sub001/pkg/event"
)

// applyPolicy runs the configured error policy against the tasks that
// just failed in one batch. It returns true if the run must stop after
// this batch settles.
func applyPolicy(policy config.ErrorPolicy, state *State, graphID string, bus *event.Bus, newlyFailed []string) bool {
	switch policy {
	case config.PolicyStopGraph:
		return len(newlyFailed) > 0

	case config.PolicySkipDownstream:
		for _, failedID := range newlyFailed {
			skipDownstreamOf(state, graphID, bus, failedID)
		}
		return false

	case config.PolicyContinue:
		return false

	default:
		return false
	}
}

// skipDownstreamOf marks the transitive closure of failedID's
// downstream tasks as skipped, emitting one AgentSkipped per newly
// skipped id. Every skip in the closure names failedID itself as the
// cause, not the intermediate task it was reached through, so a reader
// several hops below the original failure still sees the root cause.
// Siblings that did not fail and are not downstream of a failure are
// left untouched.
func skipDownstreamOf(state *State, graphID string, bus *event.Bus, failedID string) {
	queue := []string{failedID}
	visited := map[string]struct{}{failedID: {}}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		task, ok := state.Task(id)
		if !ok {
			continue
		}
		for downID := range task.Downstream {
			if _, seen := visited[downID]; seen {
				continue
			}
			visited[downID] = struct{}{}

			switch state.statusOf(downID) {
			case StatusCompleted, StatusFailed, StatusSkipped:
				// Already settled; a skip cannot retroactively apply.
			default:
				state.setSkipped(downID)
				bus.Emit(event.NewAgentSkipped(graphID, downID, fmt.Sprintf("upstream %s failed", failedID)))
			}
			queue = append(queue, downID)
		}
	}
}
