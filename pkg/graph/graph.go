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

package graph

import (
	"fmt"
	"sort"

	"github.com/Bullish-Design/remora-sub001/internal/errs"
)

// Graph is the dependency-ordered set of AgentTasks for one run.
type Graph struct {
	tasks map[string]*Task
}

// Tasks returns every task in the graph, keyed by id. The returned map
// is the graph's own backing map and must not be mutated by callers.
func (g *Graph) Tasks() map[string]*Task {
	return g.tasks
}

// Task looks up a single task by id.
func (g *Graph) Task(id string) (*Task, bool) {
	t, ok := g.tasks[id]
	return t, ok
}

// Len returns the number of tasks in the graph.
func (g *Graph) Len() int {
	return len(g.tasks)
}

// FromTasks wraps an already-built task set (Upstream/Downstream already
// populated, e.g. rebuilt from a checkpoint) as a Graph, without
// re-deriving edges the way Build does.
func FromTasks(tasks map[string]*Task) *Graph {
	return &Graph{tasks: tasks}
}

// Batches partitions the graph into an ordered list of batches: batch k
// contains every task whose upstream set is a subset of tasks in
// batches 0..k-1. Within a batch, tasks are ordered by descending
// priority, ties broken by ascending id (the spec's stable tie-break).
//
// This is Kahn's algorithm: the ready set for each batch is built
// directly from the indegree decrements of the previous batch rather
// than by rescanning every task, so a task is visited once when it
// becomes ready and each edge is walked once when its source settles —
// the whole operation is O(V+E) regardless of how many batches result.
func (g *Graph) Batches() ([][]*Task, error) {
	indegree := make(map[string]int, len(g.tasks))
	var ready []*Task
	for id, t := range g.tasks {
		indegree[id] = len(t.Upstream)
		if indegree[id] == 0 {
			ready = append(ready, t)
		}
	}

	var batches [][]*Task
	settled := 0

	for len(ready) > 0 {
		sortReady(ready)
		batches = append(batches, ready)
		settled += len(ready)

		var next []*Task
		for _, t := range ready {
			for downID := range t.Downstream {
				indegree[downID]--
				if indegree[downID] == 0 {
					next = append(next, g.tasks[downID])
				}
			}
		}
		ready = next
	}

	if settled != len(g.tasks) {
		return nil, cycleError(indegree)
	}

	return batches, nil
}

// TopologicalOrder flattens Batches into one ordered slice of task ids.
func (g *Graph) TopologicalOrder() ([]string, error) {
	batches, err := g.Batches()
	if err != nil {
		return nil, err
	}
	order := make([]string, 0, len(g.tasks))
	for _, batch := range batches {
		for _, t := range batch {
			order = append(order, t.ID)
		}
	}
	return order, nil
}

func sortReady(ready []*Task) {
	sort.Slice(ready, func(i, j int) bool {
		if ready[i].Priority != ready[j].Priority {
			return ready[i].Priority > ready[j].Priority
		}
		return ready[i].ID < ready[j].ID
	})
}

func cycleError(indegree map[string]int) error {
	var stuck []string
	for id, deg := range indegree {
		if deg > 0 {
			stuck = append(stuck, id)
		}
	}
	sort.Strings(stuck)
	return fmt.Errorf("cycle among tasks %v: %w", stuck, errs.ErrGraphCycle)
}
