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
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/Bullish-Design/remora-sub001/internal/errs"
)

// SeedOptions controls what Seed copies into the stable base.
type SeedOptions struct {
	// IgnoreDirs names directories (matched by base name, not path) that
	// are never copied — e.g. ".git", "node_modules".
	IgnoreDirs []string
	// SkipDotfiles, when true, excludes any file or directory whose base
	// name starts with '.' that is not explicitly covered by IgnoreDirs.
	SkipDotfiles bool
}

// Manager owns one run's stable base workspace and every per-agent
// workspace derived from it.
type Manager struct {
	mu sync.RWMutex

	stableBase afero.Fs
	children   map[string]*Workspace

	ready    chan struct{}
	readyErr error
	seedOnce sync.Once
}

// NewManager constructs a Manager with an empty, not-yet-seeded stable
// base. Seed must be called (and must succeed) before Get will return.
func NewManager() *Manager {
	return &Manager{
		stableBase: afero.NewMemMapFs(),
		children:   make(map[string]*Workspace),
		ready:      make(chan struct{}),
	}
}

// Seed populates the stable base by copying sourceRoot (a real
// filesystem path) into it, then signals the ready barrier. Seed is
// safe to call exactly once; later calls are no-ops that return the
// first call's result.
func (m *Manager) Seed(ctx context.Context, sourceRoot string, opts SeedOptions) error {
	m.seedOnce.Do(func() {
		m.readyErr = m.seed(ctx, sourceRoot, opts)
		close(m.ready)
	})
	return m.readyErr
}

func (m *Manager) seed(ctx context.Context, sourceRoot string, opts SeedOptions) error {
	ignore := make(map[string]struct{}, len(opts.IgnoreDirs))
	for _, d := range opts.IgnoreDirs {
		ignore[d] = struct{}{}
	}

	osFs := afero.NewOsFs()
	return afero.Walk(osFs, sourceRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("walking %s: %w", path, err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		base := filepath.Base(path)
		if info.IsDir() {
			if _, skip := ignore[base]; skip || (opts.SkipDotfiles && strings.HasPrefix(base, ".") && path != sourceRoot) {
				return filepath.SkipDir
			}
			return nil
		}
		if opts.SkipDotfiles && strings.HasPrefix(base, ".") {
			return nil
		}

		rel, err := filepath.Rel(sourceRoot, path)
		if err != nil {
			return fmt.Errorf("relativizing %s: %w", path, err)
		}
		data, err := afero.ReadFile(osFs, path)
		if err != nil {
			return fmt.Errorf("reading seed file %s: %w", path, err)
		}
		if err := m.stableBase.MkdirAll(filepath.Dir(rel), 0o755); err != nil {
			return fmt.Errorf("seeding dir for %s: %w", rel, err)
		}
		if err := afero.WriteFile(m.stableBase, rel, data, info.Mode()); err != nil {
			return fmt.Errorf("seeding file %s: %w", rel, err)
		}
		return nil
	})
}

// awaitReady blocks until Seed has completed or ctx is cancelled,
// whichever happens first.
func (m *Manager) awaitReady(ctx context.Context) error {
	select {
	case <-m.ready:
		return m.readyErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Get returns the workspace for agentID, creating it on first call.
// Get blocks until the stable base has finished seeding.
func (m *Manager) Get(ctx context.Context, agentID string) (*Workspace, error) {
	if err := m.awaitReady(ctx); err != nil {
		return nil, fmt.Errorf("awaiting workspace seed: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if ws, ok := m.children[agentID]; ok {
		return ws, nil
	}

	layer := afero.NewMemMapFs()
	ws := &Workspace{
		agentID: agentID,
		fs:      afero.NewCopyOnWriteFs(m.stableBase, layer),
		layer:   layer,
		manager: m,
	}
	m.children[agentID] = ws
	return ws, nil
}

// Accept merges agentID's write layer into the stable base and
// discards the child workspace. Accept and Reject are serialised
// relative to each other (and to every other accept/reject on this
// Manager) by the manager's write lock; any read or write in progress
// on the base is allowed to finish first, and any read started after
// Accept returns observes every merged write.
//
// When two sibling workspaces wrote the same path, whichever is
// accepted later overwrites the earlier write — last-writer-overwrites
// (see package doc).
func (m *Manager) Accept(agentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ws, ok := m.children[agentID]
	if !ok {
		return fmt.Errorf("accept %s: %w", agentID, errs.ErrWorkspace)
	}

	if err := mergeInto(ws.layer, m.stableBase); err != nil {
		return fmt.Errorf("merging workspace %s into stable base: %w", agentID, err)
	}

	delete(m.children, agentID)
	slog.Info("workspace accepted", "agent_id", agentID)
	return nil
}

// Reject discards agentID's write layer without touching the stable
// base.
func (m *Manager) Reject(agentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.children[agentID]; !ok {
		return fmt.Errorf("reject %s: %w", agentID, errs.ErrWorkspace)
	}
	delete(m.children, agentID)
	slog.Info("workspace rejected", "agent_id", agentID)
	return nil
}

// Teardown releases every remaining child workspace. When keepStable
// is false the stable base itself is also discarded; callers that want
// to snapshot the stable base for a checkpoint must do so before
// calling Teardown(false).
func (m *Manager) Teardown(keepStable bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.children = make(map[string]*Workspace)
	if !keepStable {
		m.stableBase = afero.NewMemMapFs()
	}
}

// StableFS exposes the stable base's filesystem for checkpoint
// snapshotting. Callers must not write through it directly — all
// stable-base mutation goes through Accept.
func (m *Manager) StableFS() afero.Fs {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stableBase
}

// ChildAgentIDs lists every agent with a live, unaccepted workspace.
// Used by the checkpoint package to enumerate what to snapshot.
func (m *Manager) ChildAgentIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.children))
	for id := range m.children {
		ids = append(ids, id)
	}
	return ids
}

// Child returns agentID's live workspace, if any.
func (m *Manager) Child(agentID string) (*Workspace, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ws, ok := m.children[agentID]
	return ws, ok
}

func mergeInto(layer, base afero.Fs) error {
	return afero.Walk(layer, "/", func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return base.MkdirAll(path, 0o755)
		}
		data, err := afero.ReadFile(layer, path)
		if err != nil {
			return fmt.Errorf("reading %s from layer: %w", path, err)
		}
		if err := base.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		return afero.WriteFile(base, path, data, info.Mode())
	})
}
