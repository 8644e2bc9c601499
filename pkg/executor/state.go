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

// Package executor owns the run: it partitions a graph into batches,
// enforces a concurrency bound, invokes the agent runtime per task,
// applies the configured error policy, and emits every lifecycle event.
package executor

import (
	"sync"

	"github.com/Bullish-Design/remora-sub001/pkg/graph"
)

// Status is one task's place in its lifecycle.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// ResultSummary is the serialisable outcome of one agent task.
type ResultSummary struct {
	TaskID  string `json:"task_id"`
	Success bool   `json:"success"`
	// Output is truncated to the run's configured limit.
	Output string `json:"output"`
	// Error is present iff Success is false.
	Error string `json:"error,omitempty"`
}

// State is the mutable state owned exclusively by one run's executor.
// External readers (dashboard, checkpointer) must call Snapshot rather
// than read the fields directly, since State is mutated concurrently
// by the executor's own goroutines during Run.
type State struct {
	mu sync.Mutex

	GraphID string
	tasks   map[string]*graph.Task
	status  map[string]Status
	results map[string]ResultSummary
	failed  map[string]struct{}
	skipped map[string]struct{}
}

// NewState initialises every task as pending with empty completed/failed/skipped sets.
func NewState(graphID string, g *graph.Graph) *State {
	tasks := make(map[string]*graph.Task, g.Len())
	status := make(map[string]Status, g.Len())
	for id, t := range g.Tasks() {
		tasks[id] = t
		status[id] = StatusPending
	}
	return &State{
		GraphID: graphID,
		tasks:   tasks,
		status:  status,
		results: make(map[string]ResultSummary),
		failed:  make(map[string]struct{}),
		skipped: make(map[string]struct{}),
	}
}

// NewStateFromSnapshot rebuilds State for a resumed run: status, results,
// failed and skipped are seeded from a prior checkpoint restore. Any
// task with no recorded status, or a non-terminal one, starts pending;
// a task already StatusCompleted stays completed so the batch loop
// skips re-executing it (see filterSettled). Callers restoring a
// checkpoint should pass executor.Status/ResultSummary values read
// straight off checkpoint.Restored — no translation is required since
// both packages use the same types.
func NewStateFromSnapshot(graphID string, g *graph.Graph, status map[string]Status, results map[string]ResultSummary, failed, skipped []string) *State {
	tasks := make(map[string]*graph.Task, g.Len())
	st := make(map[string]Status, g.Len())
	for id, t := range g.Tasks() {
		tasks[id] = t
		if s, ok := status[id]; ok && s != StatusPending && s != StatusRunning {
			st[id] = s
		} else {
			st[id] = StatusPending
		}
	}

	res := make(map[string]ResultSummary, len(results))
	for k, v := range results {
		res[k] = v
	}
	failedSet := make(map[string]struct{}, len(failed))
	for _, id := range failed {
		failedSet[id] = struct{}{}
	}
	skippedSet := make(map[string]struct{}, len(skipped))
	for _, id := range skipped {
		skippedSet[id] = struct{}{}
	}

	return &State{
		GraphID: graphID,
		tasks:   tasks,
		status:  st,
		results: res,
		failed:  failedSet,
		skipped: skippedSet,
	}
}

// Snapshot is a read-only, independently-owned copy of State, safe to
// hand to external readers.
type Snapshot struct {
	GraphID string
	Status  map[string]Status
	Results map[string]ResultSummary
	Failed  []string
	Skipped []string
}

// Snapshot returns a consistent, independently-owned copy of the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := make(map[string]Status, len(s.status))
	for k, v := range s.status {
		status[k] = v
	}
	results := make(map[string]ResultSummary, len(s.results))
	for k, v := range s.results {
		results[k] = v
	}
	return Snapshot{
		GraphID: s.GraphID,
		Status:  status,
		Results: results,
		Failed:  setToSlice(s.failed),
		Skipped: setToSlice(s.skipped),
	}
}

func setToSlice(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func (s *State) setRunning(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status[id] = StatusRunning
}

func (s *State) setCompleted(id string, result ResultSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status[id] = StatusCompleted
	s.results[id] = result
}

func (s *State) setFailed(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status[id] = StatusFailed
	s.failed[id] = struct{}{}
}

func (s *State) setSkipped(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status[id] = StatusSkipped
	s.skipped[id] = struct{}{}
}

func (s *State) statusOf(id string) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status[id]
}

// Task returns the immutable AgentTask for id, if known.
func (s *State) Task(id string) (*graph.Task, bool) {
	t, ok := s.tasks[id]
	return t, ok
}
