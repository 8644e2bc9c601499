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

// Package checkpoint serialises executor state plus per-agent workspace
// snapshots to disk and restores both atomically, per the on-disk
// layout:
//
//	<root>/<checkpoint_id>/
//	    state.json      serialised ExecutorState
//	    __stable__/     snapshot of the stable base
//	    <agent_id>/     snapshot of each live per-agent workspace
package checkpoint

import (
	"encoding/json"
	"sort"

	"github.com/Bullish-Design/remora-sub001/pkg/bundle"
	"github.com/Bullish-Design/remora-sub001/pkg/executor"
	"github.com/Bullish-Design/remora-sub001/pkg/graph"
	"github.com/Bullish-Design/remora-sub001/pkg/source"
)

// SerializedTask is the on-disk form of one graph.Task. The round-trip
// through serializeTask/toTask MUST preserve Upstream/Downstream
// exactly, since the executor resumes by trusting these sets.
type SerializedTask struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Target     source.Node `json:"target"`
	BundlePath string      `json:"bundle_path"`
	Priority   int         `json:"priority"`
	Upstream   []string    `json:"upstream"`
	Downstream []string    `json:"downstream"`
}

func serializeTask(t *graph.Task) SerializedTask {
	return SerializedTask{
		ID:         t.ID,
		Name:       t.Name,
		Target:     t.Target,
		BundlePath: string(t.BundlePath),
		Priority:   t.Priority,
		Upstream:   t.UpstreamIDs(),
		Downstream: t.DownstreamIDs(),
	}
}

func (s SerializedTask) toTask() *graph.Task {
	t := &graph.Task{
		ID:         s.ID,
		Name:       s.Name,
		Target:     s.Target,
		BundlePath: bundle.Handle(s.BundlePath),
		Priority:   s.Priority,
		Upstream:   make(map[string]struct{}, len(s.Upstream)),
		Downstream: make(map[string]struct{}, len(s.Downstream)),
	}
	for _, id := range s.Upstream {
		t.Upstream[id] = struct{}{}
	}
	for _, id := range s.Downstream {
		t.Downstream[id] = struct{}{}
	}
	return t
}

// StateDoc is the top-level shape of state.json. Known fields are
// named explicitly; Extra carries any field this version of the code
// does not recognize so a save/restore round-trip by a newer writer
// never silently drops data written by that newer version.
type StateDoc struct {
	GraphID string                             `json:"graph_id"`
	Tasks   map[string]SerializedTask          `json:"tasks"`
	Status  map[string]executor.Status         `json:"status"`
	Results map[string]executor.ResultSummary  `json:"results"`
	Pending []string                           `json:"pending"`
	Failed  []string                           `json:"failed"`
	Skipped []string                           `json:"skipped"`

	Extra map[string]json.RawMessage `json:"-"`
}

var knownStateFields = map[string]struct{}{
	"graph_id": {}, "tasks": {}, "status": {}, "results": {},
	"pending": {}, "failed": {}, "skipped": {},
}

// MarshalJSON emits every known field plus any preserved Extra fields.
func (d StateDoc) MarshalJSON() ([]byte, error) {
	type alias StateDoc
	base, err := json.Marshal(alias(d))
	if err != nil {
		return nil, err
	}

	if len(d.Extra) == 0 {
		return base, nil
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range d.Extra {
		if _, known := knownStateFields[k]; known {
			continue
		}
		merged[k] = v
	}
	return json.Marshal(merged)
}

// UnmarshalJSON decodes known fields and stashes everything else in Extra.
func (d *StateDoc) UnmarshalJSON(data []byte) error {
	type alias StateDoc
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*d = StateDoc(a)

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	d.Extra = make(map[string]json.RawMessage)
	for k, v := range raw {
		if _, known := knownStateFields[k]; known {
			continue
		}
		d.Extra[k] = v
	}
	return nil
}

// ToDoc serialises a graph and an executor.Snapshot into a StateDoc.
func ToDoc(graphID string, g *graph.Graph, snap executor.Snapshot) StateDoc {
	tasks := make(map[string]SerializedTask, g.Len())
	for id, t := range g.Tasks() {
		tasks[id] = serializeTask(t)
	}

	pending := make([]string, 0, g.Len())
	for id, status := range snap.Status {
		if status == executor.StatusPending || status == executor.StatusRunning {
			pending = append(pending, id)
		}
	}
	sort.Strings(pending)

	failed := append([]string(nil), snap.Failed...)
	sort.Strings(failed)
	skipped := append([]string(nil), snap.Skipped...)
	sort.Strings(skipped)

	return StateDoc{
		GraphID: graphID,
		Tasks:   tasks,
		Status:  snap.Status,
		Results: snap.Results,
		Pending: pending,
		Failed:  failed,
		Skipped: skipped,
	}
}

// RebuildTasks rebuilds the graph.Task set from the document.
func (d StateDoc) RebuildTasks() map[string]*graph.Task {
	out := make(map[string]*graph.Task, len(d.Tasks))
	for id, st := range d.Tasks {
		out[id] = st.toTask()
	}
	return out
}
