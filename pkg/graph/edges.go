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

import "github.com/Bullish-Design/remora-sub001/pkg/source"

// Index is the lookup structure EdgeFuncs use to find other tasks.
// byID maps a task's own (possibly disambiguated) id to itself; byNode
// maps the original SourceNode id to every task derived from it, since
// one node can map to more than one bundle and thus more than one task.
type Index struct {
	byID   map[string]*Task
	byNode map[string][]*Task
}

func newIndex(tasks map[string]*Task) *Index {
	idx := &Index{byID: tasks, byNode: make(map[string][]*Task)}
	for _, t := range tasks {
		idx.byNode[t.Target.ID] = append(idx.byNode[t.Target.ID], t)
	}
	return idx
}

// TasksForNode returns every task derived from the SourceNode with the
// given id, or nil.
func (idx *Index) TasksForNode(nodeID string) []*Task {
	return idx.byNode[nodeID]
}

// EdgeFunc derives upstream edges for one task given an Index over
// every task in the graph, and is applied once per task during Build.
// The edge-derivation step is pluggable per spec §4.3/§9: today only
// FileEdge exists, but implementers can add call-graph-based rules
// without reworking the graph builder or the executor.
type EdgeFunc func(t *Task, idx *Index)

// FileEdge is the only built-in edge rule: every function/class/method
// task gets an upstream edge to the file task for its own file, if one
// exists in the graph.
func FileEdge(t *Task, idx *Index) {
	switch t.Target.Type {
	case source.NodeFunction, source.NodeClass, source.NodeMethod:
	default:
		return
	}

	fileID := source.DeriveID(t.Target.FilePath, source.NodeFile, source.FileStem(t.Target.FilePath))
	if fileID == t.Target.ID {
		return
	}
	for _, fileTask := range idx.TasksForNode(fileID) {
		t.Upstream[fileTask.ID] = struct{}{}
	}
}
