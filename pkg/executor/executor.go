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

package executor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/Bullish-Design/remora-sub001/internal/errs"
	"github.com/Bullish-Design/remora-sub001/pkg/config"
	"github.com/Bullish-Design/remora-sub001/pkg/event"
	"github.com/Bullish-Design/remora-sub001/pkg/graph"
	"github.com/Bullish-Design/remora-sub001/pkg/promptctx"
	"github.com/Bullish-Design/remora-sub001/pkg/runtime"
	"github.com/Bullish-Design/remora-sub001/pkg/toolplumbing"
	"github.com/Bullish-Design/remora-sub001/pkg/workspace"
)

// Deps bundles the collaborators an Executor needs. All fields are required.
type Deps struct {
	Bus         *event.Bus
	Workspaces  *workspace.Manager
	Runtime     runtime.Runtime
	PromptCtx   *promptctx.Builder
	Config      *config.RunConfig
	// ProjectRoot is the absolute path the workspace manager was seeded
	// from; used to turn a SourceNode's absolute FilePath into the
	// workspace-relative path the tool-side input set is built from.
	ProjectRoot string
}

// Executor is the core scheduler and failure-policy engine: it owns
// one run end to end.
type Executor struct {
	deps Deps
}

// New constructs an Executor. The workspace manager in deps must
// already be seeded (or Seed must be in flight — Get will simply wait
// on its ready barrier).
func New(deps Deps) *Executor {
	return &Executor{deps: deps}
}

// Run executes every task in g to completion, respects ctx
// cancellation, and returns the final per-task ResultSummary map. A
// per-agent failure never escapes Run; only a cycle, a cancellation,
// or an otherwise-unhandled error does, always wrapped in
// errs.ErrExecution (or errs.ErrCancelled for cancellation).
func (e *Executor) Run(ctx context.Context, g *graph.Graph, graphID string) (map[string]ResultSummary, error) {
	return e.run(ctx, g, NewState(graphID, g))
}

// Resume continues a prior run from a checkpoint restore: status,
// results, failed and skipped seed the resumed State (see
// NewStateFromSnapshot), and any task already completed is skipped by
// the same batch loop Run uses, not re-executed. g must be the
// checkpoint's own rebuilt graph (checkpoint.Restored.Graph()), so
// batch order and priority/id tie-breaks match the original run.
func (e *Executor) Resume(ctx context.Context, g *graph.Graph, graphID string, status map[string]Status, results map[string]ResultSummary, failed, skipped []string) (map[string]ResultSummary, error) {
	state := NewStateFromSnapshot(graphID, g, status, results, failed, skipped)
	return e.run(ctx, g, state)
}

// run drives the batch loop shared by Run and Resume; the only
// difference between the two is how state starts out.
func (e *Executor) run(ctx context.Context, g *graph.Graph, state *State) (map[string]ResultSummary, error) {
	graphID := state.GraphID
	bus := e.deps.Bus

	bus.Emit(event.NewGraphStart(graphID, g.Len()))

	batches, err := g.Batches()
	if err != nil {
		bus.Emit(event.NewGraphError(graphID, err.Error()))
		e.deps.Workspaces.Teardown(false)
		return nil, fmt.Errorf("computing batches: %w: %w", errs.ErrExecution, err)
	}

	sem := semaphore.NewWeighted(int64(e.deps.Config.MaxConcurrency))
	stop := false

	for _, batch := range batches {
		if ctx.Err() != nil {
			bus.Emit(event.NewGraphError(graphID, "cancelled"))
			e.deps.Workspaces.Teardown(false)
			return nil, fmt.Errorf("run cancelled before batch: %w", errs.ErrCancelled)
		}

		runnable := filterSettled(state, batch)
		newlyFailed := e.runBatch(ctx, state, runnable, sem)

		if ctx.Err() != nil {
			bus.Emit(event.NewGraphError(graphID, "cancelled"))
			e.deps.Workspaces.Teardown(false)
			return nil, fmt.Errorf("run cancelled during batch: %w", errs.ErrCancelled)
		}

		if applyPolicy(e.deps.Config.ErrorPolicy, state, graphID, bus, newlyFailed) {
			stop = true
		}
		if stop {
			break
		}
	}

	snap := state.Snapshot()
	bus.Emit(event.NewGraphComplete(graphID, len(snap.Results), len(snap.Failed)))
	e.deps.Workspaces.Teardown(false)

	return snap.Results, nil
}

// filterSettled drops tasks that are already settled: failed or skipped
// by an earlier batch's policy application (skip_downstream can reach
// into later batches before they run), or already completed — which
// only happens on a resumed run (Resume), since a fresh run never seeds
// a task as completed.
func filterSettled(state *State, batch []*graph.Task) []*graph.Task {
	out := make([]*graph.Task, 0, len(batch))
	for _, t := range batch {
		switch state.statusOf(t.ID) {
		case StatusFailed, StatusSkipped, StatusCompleted:
			continue
		default:
			out = append(out, t)
		}
	}
	return out
}

// runBatch launches every task in batch bounded by sem, waits for them
// all to settle, and returns the ids that newly failed.
func (e *Executor) runBatch(ctx context.Context, state *State, batch []*graph.Task, sem *semaphore.Weighted) []string {
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		failed  []string
	)

	for _, task := range batch {
		if err := sem.Acquire(ctx, 1); err != nil {
			// Context was cancelled while waiting for a slot; stop
			// launching further tasks in this batch.
			break
		}

		wg.Add(1)
		go func(t *graph.Task) {
			defer wg.Done()
			defer sem.Release(1)

			ok := e.runTask(ctx, state, t)
			if !ok {
				mu.Lock()
				failed = append(failed, t.ID)
				mu.Unlock()
			}
		}(task)
	}

	wg.Wait()
	return failed
}

// runTask runs one AgentTask end to end and returns true on success.
func (e *Executor) runTask(ctx context.Context, state *State, task *graph.Task) bool {
	bus := e.deps.Bus
	graphID := state.GraphID

	state.setRunning(task.ID)
	bus.Emit(event.NewAgentStart(graphID, task.ID, task.Name))

	ws, err := e.deps.Workspaces.Get(ctx, task.ID)
	if err != nil {
		return e.failTask(state, task.ID, fmt.Sprintf("acquiring workspace: %v", err))
	}

	e.loadWorkspaceInput(ws, task)

	prompt := e.buildPrompt(task)

	taskCtx, cancel := context.WithTimeout(ctx, e.deps.Config.AgentTimeout)
	defer cancel()

	result, err := e.deps.Runtime.Run(taskCtx, task.BundlePath, prompt, bus, e.deps.Config.ModelParams, e.deps.Config.MaxTurns)
	if err != nil {
		if taskCtx.Err() != nil {
			return e.failTask(state, task.ID, fmt.Sprintf("%v: %v", errs.ErrExecutionTimeout, err))
		}
		return e.failTask(state, task.ID, err.Error())
	}

	output := truncate(result.Output, e.deps.Config.OutputTruncateLimit)
	state.setCompleted(task.ID, ResultSummary{TaskID: task.ID, Success: true, Output: output})
	bus.Emit(event.NewAgentComplete(graphID, task.ID, truncate(output, 200)))
	return true
}

func (e *Executor) failTask(state *State, taskID, reason string) bool {
	state.setFailed(taskID)
	e.deps.Bus.Emit(event.NewAgentError(state.GraphID, taskID, reason))
	return false
}

// loadWorkspaceInput reads the task's target file (and nothing else —
// explicit related-file discovery is left to bundle tooling via
// pkg/toolplumbing) through the agent's workspace. The content read is
// not passed on: the prompt is always built from the SourceNode's own
// captured text. A read failure is tolerated and logged at debug level.
func (e *Executor) loadWorkspaceInput(ws *workspace.Workspace, task *graph.Task) {
	rel, err := toolplumbing.ToProjectRelative(e.deps.ProjectRoot, task.Target.FilePath)
	if err != nil {
		return
	}
	if _, err := ws.Read(rel); err != nil {
		slog.Debug("executor: workspace read miss, using captured node text", "task_id", task.ID, "path", rel, "error", err)
	}
}

func (e *Executor) buildPrompt(task *graph.Task) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n%s:%d-%d\n\n", task.Name, task.Target.FilePath, task.Target.StartLine, task.Target.EndLine)
	sb.WriteString("```\n")
	sb.WriteString(task.Target.Text)
	sb.WriteString("\n```\n")

	if ctx := e.deps.PromptCtx.Render(task.Target); ctx != "" {
		sb.WriteString("\n")
		sb.WriteString(ctx)
		sb.WriteString("\n")
	}

	if scripts, err := toolplumbing.DiscoverTools(task.BundlePath.Path()); err == nil {
		if desc := toolplumbing.DescribeTools(scripts); desc != "" {
			sb.WriteString("\n")
			sb.WriteString(desc)
		}
	}

	return sb.String()
}

func truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	return s[:limit]
}
