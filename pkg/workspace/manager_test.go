package workspace

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("v1"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".git", "HEAD"), []byte("ref"), 0o644))
	return dir
}

func TestManager_SeedExcludesIgnoredDirs(t *testing.T) {
	dir := seedTempDir(t)
	m := NewManager()
	require.NoError(t, m.Seed(context.Background(), dir, SeedOptions{IgnoreDirs: []string{".git"}}))

	exists, err := afero.Exists(m.StableFS(), "a.txt")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = afero.Exists(m.StableFS(), ".git/HEAD")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestManager_ChildIsolation(t *testing.T) {
	dir := seedTempDir(t)
	m := NewManager()
	require.NoError(t, m.Seed(context.Background(), dir, SeedOptions{}))

	wsX, err := m.Get(context.Background(), "agent-x")
	require.NoError(t, err)
	wsY, err := m.Get(context.Background(), "agent-y")
	require.NoError(t, err)

	require.NoError(t, wsX.Write("a.txt", []byte("from-x"), 0o644))

	data, err := wsX.Read("a.txt")
	require.NoError(t, err)
	assert.Equal(t, "from-x", string(data))

	data, err = wsY.Read("a.txt")
	require.NoError(t, err)
	assert.Equal(t, "v1", string(data), "sibling must not see agent-x's unaccepted write")
}

func TestManager_AcceptMergesIntoStableBaseForFutureAgents(t *testing.T) {
	dir := seedTempDir(t)
	m := NewManager()
	require.NoError(t, m.Seed(context.Background(), dir, SeedOptions{}))

	wsX, err := m.Get(context.Background(), "agent-x")
	require.NoError(t, err)
	require.NoError(t, wsX.Write("a.txt", []byte("from-x"), 0o644))
	require.NoError(t, wsX.Accept())

	wsZ, err := m.Get(context.Background(), "agent-z")
	require.NoError(t, err)
	data, err := wsZ.Read("a.txt")
	require.NoError(t, err)
	assert.Equal(t, "from-x", string(data), "agent started after accept must see the merged write")
}

func TestManager_RejectDiscardsWrites(t *testing.T) {
	dir := seedTempDir(t)
	m := NewManager()
	require.NoError(t, m.Seed(context.Background(), dir, SeedOptions{}))

	wsX, err := m.Get(context.Background(), "agent-x")
	require.NoError(t, err)
	require.NoError(t, wsX.Write("a.txt", []byte("from-x"), 0o644))
	require.NoError(t, wsX.Reject())

	wsZ, err := m.Get(context.Background(), "agent-z")
	require.NoError(t, err)
	data, err := wsZ.Read("a.txt")
	require.NoError(t, err)
	assert.Equal(t, "v1", string(data))
}

func TestManager_AcceptUnknownAgentErrors(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Seed(context.Background(), t.TempDir(), SeedOptions{}))
	err := m.Accept("never-existed")
	require.Error(t, err)
}

func TestManager_SnapshotAndRestoreRoundTrip(t *testing.T) {
	dir := seedTempDir(t)
	m := NewManager()
	require.NoError(t, m.Seed(context.Background(), dir, SeedOptions{}))

	wsX, err := m.Get(context.Background(), "agent-x")
	require.NoError(t, err)
	require.NoError(t, wsX.Write("notes/todo.txt", []byte("finish this"), 0o644))

	snapDir := t.TempDir()
	require.NoError(t, wsX.Snapshot(snapDir))

	restored, err := m.RestoreChild("agent-x-restored", snapDir)
	require.NoError(t, err)

	data, err := restored.Read("notes/todo.txt")
	require.NoError(t, err)
	assert.Equal(t, "finish this", string(data))
}
