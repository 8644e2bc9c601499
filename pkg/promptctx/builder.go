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

// Package promptctx derives a bounded textual context fragment from
// the observed event stream for injection into agent prompts: a ring
// buffer of recent tool actions and agent errors, plus a map of
// completed agents' result summaries.
package promptctx

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/Bullish-Design/remora-sub001/pkg/event"
	"github.com/Bullish-Design/remora-sub001/pkg/source"
)

// RelatedCodeLookup resolves additional source for a target node from
// an external store (e.g. a symbol index). It is optional; when nil,
// Render omits the "Related Code" section entirely.
type RelatedCodeLookup func(target source.Node) (string, error)

// Config configures a Builder.
type Config struct {
	// WindowSize bounds the recent-actions ring buffer. Defaults to 20.
	WindowSize int
	// PriorAnalysisLimit bounds how many completed-agent summaries
	// Render includes: the most recently completed ones, listed in
	// completion order. Defaults to 5.
	PriorAnalysisLimit int
	// RelatedCode is consulted by Render if non-nil.
	RelatedCode RelatedCodeLookup
}

func (c *Config) setDefaults() {
	if c.WindowSize <= 0 {
		c.WindowSize = 20
	}
	if c.PriorAnalysisLimit <= 0 {
		c.PriorAnalysisLimit = 5
	}
}

// action is one entry in the recent-actions ring buffer.
type action struct {
	summary string
}

// Builder accumulates event-derived state and renders it into prompt
// fragments. It is safe for concurrent use: Handle is meant to be
// called from an event.Bus subscription goroutine while Render is
// called concurrently from task-execution goroutines.
type Builder struct {
	cfg Config

	mu        sync.Mutex
	recent    []action // ring buffer, oldest first, bounded by cfg.WindowSize
	summaries []completedSummary
}

type completedSummary struct {
	agentID string
	summary string
}

// New constructs a Builder. Pass the zero Config for the defaults.
func New(cfg Config) *Builder {
	cfg.setDefaults()
	return &Builder{cfg: cfg}
}

// Handle is a pure state update: it subscribes to every event variant
// and ignores the ones it has no use for. Safe to register directly
// as an event.Handler via Bus.SubscribeAll.
func (b *Builder) Handle(ev event.Event) {
	switch e := ev.(type) {
	case event.ToolResult:
		status := "ok"
		if e.IsError {
			status = "error"
		}
		b.pushAction(fmt.Sprintf("tool %s (%s): %s", e.ToolName, status, truncate(fmt.Sprint(e.Output), 160)))
	case event.AgentError:
		b.pushAction(fmt.Sprintf("agent %s failed: %s", e.AgentID, truncate(e.Error, 160)))
	case event.AgentComplete:
		b.recordSummary(e.AgentID, truncate(e.ResultSummary, 240))
	}
}

func (b *Builder) pushAction(summary string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.recent = append(b.recent, action{summary: summary})
	if overflow := len(b.recent) - b.cfg.WindowSize; overflow > 0 {
		b.recent = b.recent[overflow:]
	}
}

func (b *Builder) recordSummary(agentID, summary string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.summaries = append(b.summaries, completedSummary{agentID: agentID, summary: summary})
}

// Render produces a deterministic string with up to three sections —
// "Related Code", "Recent Actions", "Prior Analysis" — built purely
// from state captured by Handle plus, optionally, one external lookup.
// Render always returns a string, possibly empty; a failing lookup is
// logged and the section is simply omitted.
func (b *Builder) Render(target source.Node) string {
	var sections []string

	if b.cfg.RelatedCode != nil {
		if related, err := b.cfg.RelatedCode(target); err != nil {
			slog.Warn("promptctx: related-code lookup failed, omitting section", "target_id", target.ID, "error", err)
		} else if related != "" {
			sections = append(sections, "## Related Code\n"+related)
		}
	}

	b.mu.Lock()
	recent := make([]action, len(b.recent))
	copy(recent, b.recent)
	summaries := make([]completedSummary, len(b.summaries))
	copy(summaries, b.summaries)
	b.mu.Unlock()

	if len(recent) > 0 {
		var sb strings.Builder
		sb.WriteString("## Recent Actions\n")
		for _, a := range recent {
			sb.WriteString("- ")
			sb.WriteString(a.summary)
			sb.WriteString("\n")
		}
		sections = append(sections, strings.TrimRight(sb.String(), "\n"))
	}

	if n := len(summaries); n > 0 {
		start := 0
		if over := n - b.cfg.PriorAnalysisLimit; over > 0 {
			start = over
		}
		var sb strings.Builder
		sb.WriteString("## Prior Analysis\n")
		for _, s := range summaries[start:] {
			sb.WriteString(fmt.Sprintf("- %s: %s\n", s.agentID, s.summary))
		}
		sections = append(sections, strings.TrimRight(sb.String(), "\n"))
	}

	return strings.Join(sections, "\n\n")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
