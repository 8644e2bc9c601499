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

// Package config loads the settings a run of the execution plane needs:
// concurrency bound, error policy, per-agent timeout, output truncation
// limit, the workspace ignore list, and the checkpoint root.
package config

import (
	"fmt"
	"time"

	"github.com/Bullish-Design/remora-sub001/internal/errs"
	"github.com/Bullish-Design/remora-sub001/pkg/runtime"
)

// ErrorPolicy selects how the executor reacts to a task failure.
type ErrorPolicy string

const (
	PolicyStopGraph      ErrorPolicy = "stop_graph"
	PolicySkipDownstream ErrorPolicy = "skip_downstream"
	PolicyContinue       ErrorPolicy = "continue"
)

// RunConfig is the full set of knobs one graph run is executed with.
type RunConfig struct {
	// MaxConcurrency bounds simultaneously-running agent invocations.
	MaxConcurrency int `yaml:"max_concurrency"`
	// ErrorPolicy selects failure propagation behavior.
	ErrorPolicy ErrorPolicy `yaml:"error_policy"`
	// AgentTimeout bounds a single agent invocation.
	AgentTimeout time.Duration `yaml:"agent_timeout"`
	// OutputTruncateLimit bounds ResultSummary.Output length in bytes.
	OutputTruncateLimit int `yaml:"output_truncate_limit"`
	// IgnoreDirs names directories excluded from workspace seeding and discovery.
	IgnoreDirs []string `yaml:"ignore_dirs"`
	// SkipDotfiles excludes dotfiles/dot-directories from workspace seeding
	// (workspace.SeedOptions.SkipDotfiles). discovery.Options has no
	// dotfile filter, so discovery does not skip them.
	SkipDotfiles bool `yaml:"skip_dotfiles"`
	// CheckpointRoot is the directory checkpoints are written under.
	CheckpointRoot string `yaml:"checkpoint_root"`
	// WaitForTimeout bounds event.Bus.WaitFor calls (HITL requests included).
	WaitForTimeout time.Duration `yaml:"wait_for_timeout"`
	// ModelParams is passed through to the agent runtime unchanged.
	ModelParams runtime.ModelParams `yaml:"model_params"`
	// MaxTurns bounds one agent invocation's reasoning turns.
	MaxTurns int `yaml:"max_turns"`
}

// SetDefaults fills zero-valued fields with the stock defaults.
func (c *RunConfig) SetDefaults() {
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = 4
	}
	if c.ErrorPolicy == "" {
		c.ErrorPolicy = PolicySkipDownstream
	}
	if c.AgentTimeout <= 0 {
		c.AgentTimeout = 5 * time.Minute
	}
	if c.OutputTruncateLimit <= 0 {
		c.OutputTruncateLimit = 4000
	}
	if len(c.IgnoreDirs) == 0 {
		c.IgnoreDirs = []string{".git", "node_modules", "vendor", "__pycache__", ".venv"}
	}
	if c.CheckpointRoot == "" {
		c.CheckpointRoot = ".remora/checkpoints"
	}
	if c.WaitForTimeout <= 0 {
		c.WaitForTimeout = 10 * time.Minute
	}
	if c.MaxTurns <= 0 {
		c.MaxTurns = 25
	}
}

// Validate rejects a RunConfig whose fields cannot be satisfied.
func (c *RunConfig) Validate() error {
	if c.MaxConcurrency < 1 {
		return errs.Wrap(errs.ErrConfig, "max_concurrency must be >= 1, got %d", c.MaxConcurrency)
	}
	switch c.ErrorPolicy {
	case PolicyStopGraph, PolicySkipDownstream, PolicyContinue:
	default:
		return errs.Wrap(errs.ErrConfig, "unknown error_policy %q", c.ErrorPolicy)
	}
	if c.AgentTimeout <= 0 {
		return errs.Wrap(errs.ErrConfig, "agent_timeout must be positive, got %s", c.AgentTimeout)
	}
	if c.OutputTruncateLimit < 1 {
		return errs.Wrap(errs.ErrConfig, "output_truncate_limit must be >= 1, got %d", c.OutputTruncateLimit)
	}
	if c.CheckpointRoot == "" {
		return fmt.Errorf("checkpoint_root must not be empty: %w", errs.ErrConfig)
	}
	return nil
}
