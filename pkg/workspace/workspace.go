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

package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// Workspace is one agent's copy-on-write view over the stable base.
// Reads that miss the write layer fall through to the base; writes
// only ever land in the layer.
type Workspace struct {
	agentID string
	fs      afero.Fs
	layer   afero.Fs
	manager *Manager
}

// AgentID returns the id this workspace was created for.
func (w *Workspace) AgentID() string {
	return w.agentID
}

// Read returns the contents of relPath, reading through to the stable
// base when the agent has not written relPath itself.
func (w *Workspace) Read(relPath string) ([]byte, error) {
	w.manager.mu.RLock()
	defer w.manager.mu.RUnlock()
	return afero.ReadFile(w.fs, relPath)
}

// Write stores data at relPath in this workspace's private layer. It
// never touches the stable base or any sibling workspace.
func (w *Workspace) Write(relPath string, data []byte, perm os.FileMode) error {
	w.manager.mu.RLock()
	defer w.manager.mu.RUnlock()
	if err := w.fs.MkdirAll(filepath.Dir(relPath), 0o755); err != nil {
		return fmt.Errorf("creating parent dirs for %s: %w", relPath, err)
	}
	return afero.WriteFile(w.fs, relPath, data, perm)
}

// Exists reports whether relPath is visible in this workspace, either
// because the agent wrote it or because it exists in the stable base.
func (w *Workspace) Exists(relPath string) (bool, error) {
	w.manager.mu.RLock()
	defer w.manager.mu.RUnlock()
	return afero.Exists(w.fs, relPath)
}

// Accept merges this workspace's writes into the stable base and
// discards the workspace. Equivalent to Manager.Accept(w.AgentID()).
func (w *Workspace) Accept() error {
	return w.manager.Accept(w.agentID)
}

// Reject discards this workspace's writes. Equivalent to
// Manager.Reject(w.AgentID()).
func (w *Workspace) Reject() error {
	return w.manager.Reject(w.agentID)
}

// Snapshot copies every path this workspace has written (its private
// layer only, not the inherited base) onto the real filesystem under
// destDir. Used by the checkpoint package to persist a per-agent
// snapshot directory.
func (w *Workspace) Snapshot(destDir string) error {
	return snapshotFsTo(w.layer, destDir)
}

// SnapshotStable copies the entire stable base onto the real
// filesystem under destDir.
func (m *Manager) SnapshotStable(destDir string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return snapshotFsTo(m.stableBase, destDir)
}

func snapshotFsTo(src afero.Fs, destDir string) error {
	osFs := afero.NewOsFs()
	return afero.Walk(src, "/", func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		destPath := filepath.Join(destDir, path)
		if info.IsDir() {
			return osFs.MkdirAll(destPath, 0o755)
		}
		data, err := afero.ReadFile(src, path)
		if err != nil {
			return fmt.Errorf("reading %s for snapshot: %w", path, err)
		}
		if err := osFs.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
			return err
		}
		return afero.WriteFile(osFs, destPath, data, info.Mode())
	})
}

// RestoreChild recreates agentID's workspace from a snapshot directory
// previously produced by Workspace.Snapshot, wiring its layer back
// onto the current stable base.
func (m *Manager) RestoreChild(agentID, snapshotDir string) (*Workspace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	layer := afero.NewMemMapFs()
	if err := restoreInto(snapshotDir, layer); err != nil {
		return nil, fmt.Errorf("restoring workspace %s: %w", agentID, err)
	}

	ws := &Workspace{
		agentID: agentID,
		fs:      afero.NewCopyOnWriteFs(m.stableBase, layer),
		layer:   layer,
		manager: m,
	}
	m.children[agentID] = ws
	return ws, nil
}

// RestoreStable replaces the stable base's contents with a snapshot
// directory previously produced by SnapshotStable.
func (m *Manager) RestoreStable(snapshotDir string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	fresh := afero.NewMemMapFs()
	if err := restoreInto(snapshotDir, fresh); err != nil {
		return fmt.Errorf("restoring stable base: %w", err)
	}
	m.stableBase = fresh
	return nil
}

func restoreInto(snapshotDir string, dst afero.Fs) error {
	osFs := afero.NewOsFs()
	if exists, err := afero.DirExists(osFs, snapshotDir); err != nil {
		return err
	} else if !exists {
		return nil
	}
	return afero.Walk(osFs, snapshotDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(snapshotDir, path)
		if err != nil {
			return err
		}
		if info.IsDir() {
			return dst.MkdirAll(rel, 0o755)
		}
		data, err := afero.ReadFile(osFs, path)
		if err != nil {
			return fmt.Errorf("reading snapshot file %s: %w", path, err)
		}
		if err := dst.MkdirAll(filepath.Dir(rel), 0o755); err != nil {
			return err
		}
		return afero.WriteFile(dst, rel, data, info.Mode())
	})
}
