package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunConfig_SetDefaults(t *testing.T) {
	cfg := &RunConfig{}
	cfg.SetDefaults()

	assert.Equal(t, 4, cfg.MaxConcurrency)
	assert.Equal(t, PolicySkipDownstream, cfg.ErrorPolicy)
	assert.NotEmpty(t, cfg.IgnoreDirs)
	assert.NotZero(t, cfg.AgentTimeout)
	assert.NotEmpty(t, cfg.CheckpointRoot)
}

func TestRunConfig_ValidateRejectsBadPolicy(t *testing.T) {
	cfg := &RunConfig{MaxConcurrency: 2, ErrorPolicy: "bogus", AgentTimeout: 1, OutputTruncateLimit: 1, CheckpointRoot: "x"}
	require.Error(t, cfg.Validate())
}

func TestRunConfig_ValidateRejectsZeroConcurrency(t *testing.T) {
	cfg := &RunConfig{MaxConcurrency: 0, ErrorPolicy: PolicyContinue, AgentTimeout: 1, OutputTruncateLimit: 1, CheckpointRoot: "x"}
	require.Error(t, cfg.Validate())
}

func TestLoader_LoadFromYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.yaml")
	yamlBody := "max_concurrency: 8\nerror_policy: stop_graph\nagent_timeout: 30s\n"
	require.NoError(t, os.WriteFile(path, []byte(yamlBody), 0o644))

	l := NewLoader(NewFileProvider(path))
	cfg, err := l.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.MaxConcurrency)
	assert.Equal(t, PolicyStopGraph, cfg.ErrorPolicy)
	assert.Equal(t, "30s", cfg.AgentTimeout.String())
	// Unset fields still pick up defaults.
	assert.NotEmpty(t, cfg.CheckpointRoot)
}

func TestLoader_MissingFileErrors(t *testing.T) {
	l := NewLoader(NewFileProvider("/does/not/exist.yaml"))
	_, err := l.Load(context.Background())
	require.Error(t, err)
}
