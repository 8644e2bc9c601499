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
	"log/slog"

	"github.com/Bullish-Design/remora-sub001/pkg/bundle"
	"github.com/Bullish-Design/remora-sub001/pkg/source"
)

// PriorityFunc returns the scheduling priority for a node's tasks.
// Higher values run earlier within a batch. A nil PriorityFunc means
// every task gets priority 0 (ties then break purely on id).
type PriorityFunc func(source.Node) int

// BuildOptions configures Build.
type BuildOptions struct {
	Mapping  bundle.Mapping
	Priority PriorityFunc
	// EdgeFuncs defaults to []EdgeFunc{FileEdge} when empty.
	EdgeFuncs []EdgeFunc
}

// Build maps nodes to AgentTasks via mapping, derives upstream edges,
// computes downstream sets, and returns a Graph ready for
// TopologicalOrder/Batches. A SourceNode with no mapping entry is
// dropped silently.
func Build(nodes []source.Node, opts BuildOptions) (*Graph, error) {
	edgeFuncs := opts.EdgeFuncs
	if len(edgeFuncs) == 0 {
		edgeFuncs = []EdgeFunc{FileEdge}
	}

	byID := make(map[string]*Task)

	for _, n := range nodes {
		handles := opts.Mapping.For(string(n.Type))
		if len(handles) == 0 {
			continue
		}

		priority := 0
		if opts.Priority != nil {
			priority = opts.Priority(n)
		}

		for i, h := range handles {
			id := n.ID
			if len(handles) > 1 {
				id = fmt.Sprintf("%s#%d", n.ID, i)
				slog.Warn("node mapped to multiple bundles, disambiguating task id",
					"node_id", n.ID, "bundle_index", i, "task_id", id)
			}
			t := newTask(n, h, priority)
			t.ID = id
			byID[t.ID] = t
		}
	}

	idx := newIndex(byID)
	for _, t := range byID {
		for _, edgeFn := range edgeFuncs {
			edgeFn(t, idx)
		}
	}

	// Downstream is derived from Upstream in one O(V+E) pass.
	for _, t := range byID {
		for upID := range t.Upstream {
			if up, ok := byID[upID]; ok {
				up.Downstream[t.ID] = struct{}{}
			}
		}
	}

	return &Graph{tasks: byID}, nil
}
