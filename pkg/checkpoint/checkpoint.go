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

package checkpoint

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/Bullish-Design/remora-sub001/internal/errs"
	"github.com/Bullish-Design/remora-sub001/pkg/event"
	"github.com/Bullish-Design/remora-sub001/pkg/executor"
	"github.com/Bullish-Design/remora-sub001/pkg/graph"
	"github.com/Bullish-Design/remora-sub001/pkg/workspace"
)

const stableDirName = "__stable__"
const stateFileName = "state.json"

// Manager saves and restores run checkpoints under Root. Each
// checkpoint is its own directory named by its id:
//
//	<Root>/<checkpoint_id>/state.json
//	<Root>/<checkpoint_id>/__stable__/...
//	<Root>/<checkpoint_id>/<agent_id>/...
type Manager struct {
	Root string
	Bus  *event.Bus
}

// New constructs a checkpoint Manager rooted at root.
func New(root string, bus *event.Bus) *Manager {
	return &Manager{Root: root, Bus: bus}
}

// Save writes a full checkpoint of g/state's current snapshot plus
// every live workspace (the stable base and every unaccepted child),
// and returns the new checkpoint's id.
func (m *Manager) Save(graphID string, g *graph.Graph, state *executor.State, ws *workspace.Manager) (string, error) {
	id := checkpointID(graphID)
	dir := filepath.Join(m.Root, id)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errs.Wrap(errs.ErrCheckpoint, "creating checkpoint dir %s: %v", dir, err)
	}

	doc := ToDoc(graphID, g, state.Snapshot())
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", errs.Wrap(errs.ErrCheckpoint, "marshalling state: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, stateFileName), data, 0o644); err != nil {
		return "", errs.Wrap(errs.ErrCheckpoint, "writing state.json: %v", err)
	}

	if err := ws.SnapshotStable(filepath.Join(dir, stableDirName)); err != nil {
		return "", errs.Wrap(errs.ErrCheckpoint, "snapshotting stable base: %v", err)
	}

	for _, agentID := range ws.ChildAgentIDs() {
		child, ok := ws.Child(agentID)
		if !ok {
			continue
		}
		if err := child.Snapshot(filepath.Join(dir, agentID)); err != nil {
			return "", errs.Wrap(errs.ErrCheckpoint, "snapshotting workspace %s: %v", agentID, err)
		}
	}

	if m.Bus != nil {
		m.Bus.Emit(event.NewCheckpointSaved(graphID, id))
	}
	return id, nil
}

// Restored is everything Restore hands back: the rebuilt executor
// state (every pending/running task reset to pending), the rebuilt
// task set, and the reopened workspace manager.
type Restored struct {
	GraphID    string
	Tasks      map[string]*graph.Task
	Status     map[string]executor.Status
	Results    map[string]executor.ResultSummary
	Failed     []string
	Skipped    []string
	Workspaces *workspace.Manager
}

// Graph rebuilds the graph.Graph the executor should resume against,
// from this restore's own task set (edges already populated — see
// SerializedTask's round-trip requirement).
func (r *Restored) Graph() *graph.Graph {
	return graph.FromTasks(r.Tasks)
}

// Restore reads checkpointID back, resetting any task that was pending
// or running at save time to pending so the executor resumes it. A
// partial restore is never returned: any I/O or decode failure aborts
// and returns an error wrapping errs.ErrCheckpoint.
func (m *Manager) Restore(checkpointID string) (*Restored, error) {
	dir := filepath.Join(m.Root, checkpointID)

	data, err := os.ReadFile(filepath.Join(dir, stateFileName))
	if err != nil {
		return nil, errs.Wrap(errs.ErrCheckpoint, "reading state.json for %s: %v", checkpointID, err)
	}

	var doc StateDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errs.Wrap(errs.ErrCheckpoint, "decoding state.json for %s: %v", checkpointID, err)
	}

	tasks := doc.RebuildTasks()

	status := make(map[string]executor.Status, len(doc.Status))
	for id, s := range doc.Status {
		if s == executor.StatusPending || s == executor.StatusRunning {
			status[id] = executor.StatusPending
		} else {
			status[id] = s
		}
	}

	wsManager := workspace.NewManager()
	emptyDir, err := os.MkdirTemp("", "remora-restore-empty-*")
	if err != nil {
		return nil, errs.Wrap(errs.ErrCheckpoint, "preparing restore for %s: %v", checkpointID, err)
	}
	defer os.RemoveAll(emptyDir)
	if err := wsManager.Seed(context.Background(), emptyDir, workspace.SeedOptions{}); err != nil {
		return nil, errs.Wrap(errs.ErrCheckpoint, "seeding restored workspace manager: %v", err)
	}
	if err := wsManager.RestoreStable(filepath.Join(dir, stableDirName)); err != nil {
		return nil, errs.Wrap(errs.ErrCheckpoint, "restoring stable base for %s: %v", checkpointID, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCheckpoint, "listing checkpoint dir %s: %v", dir, err)
	}
	for _, ent := range entries {
		if !ent.IsDir() || ent.Name() == stableDirName {
			continue
		}
		if _, err := wsManager.RestoreChild(ent.Name(), filepath.Join(dir, ent.Name())); err != nil {
			return nil, errs.Wrap(errs.ErrCheckpoint, "restoring workspace %s for %s: %v", ent.Name(), checkpointID, err)
		}
	}

	if m.Bus != nil {
		m.Bus.Emit(event.NewCheckpointRestored(doc.GraphID, checkpointID))
	}

	return &Restored{
		GraphID:    doc.GraphID,
		Tasks:      tasks,
		Status:     status,
		Results:    doc.Results,
		Failed:     doc.Failed,
		Skipped:    doc.Skipped,
		Workspaces: wsManager,
	}, nil
}

// List returns every checkpoint id under Root, sorted by name; among
// checkpoints of one graph id that order is oldest first.
func (m *Manager) List() ([]string, error) {
	entries, err := os.ReadDir(m.Root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errs.Wrap(errs.ErrCheckpoint, "listing checkpoints under %s: %v", m.Root, err)
	}
	var ids []string
	for _, ent := range entries {
		if ent.IsDir() {
			ids = append(ids, ent.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete removes a checkpoint directory and everything under it.
func (m *Manager) Delete(checkpointID string) error {
	dir := filepath.Join(m.Root, checkpointID)
	if err := os.RemoveAll(dir); err != nil {
		return errs.Wrap(errs.ErrCheckpoint, "deleting checkpoint %s: %v", checkpointID, err)
	}
	return nil
}

func checkpointID(graphID string) string {
	var buf [4]byte
	_, _ = rand.Read(buf[:])
	return fmt.Sprintf("%s-%d-%s", graphID, time.Now().UnixNano(), hex.EncodeToString(buf[:]))
}
