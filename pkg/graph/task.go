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

// Package graph turns discovered source.Nodes into a dependency-ordered
// DAG of agent tasks: mapping, edge inference, topological sort, and
// batching for bounded-concurrency execution.
package graph

import (
	"sort"

	"github.com/Bullish-Design/remora-sub001/pkg/bundle"
	"github.com/Bullish-Design/remora-sub001/pkg/source"
)

// Task is one planned agent execution (AgentTask in the spec). Its id
// equals its target SourceNode's id, with a "#i" suffix when the node
// maps to more than one bundle. Once built by the graph, a Task is
// immutable; Upstream/Downstream are fixed at construction time.
type Task struct {
	ID         string
	Name       string
	Target     source.Node
	BundlePath bundle.Handle
	Priority   int

	Upstream   map[string]struct{}
	Downstream map[string]struct{}
}

func newTask(target source.Node, b bundle.Handle, priority int) *Task {
	return &Task{
		ID:         target.ID,
		Name:       target.Name,
		Target:     target,
		BundlePath: b,
		Priority:   priority,
		Upstream:   make(map[string]struct{}),
		Downstream: make(map[string]struct{}),
	}
}

// UpstreamIDs returns the task's upstream ids as a sorted slice, for
// deterministic output (serialization, tests, logging).
func (t *Task) UpstreamIDs() []string {
	return setToSortedSlice(t.Upstream)
}

// DownstreamIDs returns the task's downstream ids as a sorted slice.
func (t *Task) DownstreamIDs() []string {
	return setToSortedSlice(t.Downstream)
}

func setToSortedSlice(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
