package executor

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bullish-Design/remora-sub001/internal/errs"
	"github.com/Bullish-Design/remora-sub001/pkg/bundle"
	"github.com/Bullish-Design/remora-sub001/pkg/config"
	"github.com/Bullish-Design/remora-sub001/pkg/event"
	"github.com/Bullish-Design/remora-sub001/pkg/graph"
	"github.com/Bullish-Design/remora-sub001/pkg/promptctx"
	"github.com/Bullish-Design/remora-sub001/pkg/runtime"
	"github.com/Bullish-Design/remora-sub001/pkg/source"
	"github.com/Bullish-Design/remora-sub001/pkg/workspace"
)

// funcRuntime adapts a plain function to runtime.Runtime so tests can
// fail individual tasks by inspecting the prompt, which Fake cannot do
// since its behaviors are keyed by bundle handle only.
type funcRuntime func(ctx context.Context, b bundle.Handle, prompt string, observer runtime.Observer, params runtime.ModelParams, maxTurns int) (runtime.Result, error)

func (f funcRuntime) Run(ctx context.Context, b bundle.Handle, prompt string, observer runtime.Observer, params runtime.ModelParams, maxTurns int) (runtime.Result, error) {
	return f(ctx, b, prompt, observer, params, maxTurns)
}

func node(nodeType source.NodeType, name, file string) source.Node {
	return source.NewNode(nodeType, name, file, "body", 1, 1)
}

func newTestExecutor(t *testing.T, rt runtime.Runtime, cfg *config.RunConfig) (*Executor, *event.Bus) {
	t.Helper()
	dir := t.TempDir()

	wsManager := workspace.NewManager()
	require.NoError(t, wsManager.Seed(context.Background(), dir, workspace.SeedOptions{}))

	bus := event.New()
	deps := Deps{
		Bus:         bus,
		Workspaces:  wsManager,
		Runtime:     rt,
		PromptCtx:   promptctx.New(promptctx.Config{}),
		Config:      cfg,
		ProjectRoot: dir,
	}
	return New(deps), bus
}

func buildFileAndFunction(t *testing.T) *graph.Graph {
	t.Helper()
	a := node(source.NodeFile, "a", "/proj/a.py")
	foo := node(source.NodeFunction, "foo", "/proj/a.py")

	mapping := bundle.Mapping{
		"function": {"lintBundle"},
		"file":     {"fileBundle"},
	}
	g, err := graph.Build([]source.Node{a, foo}, graph.BuildOptions{Mapping: mapping})
	require.NoError(t, err)
	return g
}

func TestExecutor_AllTasksCompleteOnSuccess(t *testing.T) {
	fake := runtime.NewFake()
	cfg := &config.RunConfig{}
	cfg.SetDefaults()

	ex, _ := newTestExecutor(t, fake, cfg)
	g := buildFileAndFunction(t)

	results, err := ex.Run(context.Background(), g, "run-1")
	require.NoError(t, err)
	assert.Len(t, results, 2)
	for _, r := range results {
		assert.True(t, r.Success)
	}
}

func TestExecutor_ErrorPolicySkipDownstream(t *testing.T) {
	rt := funcRuntime(func(ctx context.Context, b bundle.Handle, prompt string, observer runtime.Observer, params runtime.ModelParams, maxTurns int) (runtime.Result, error) {
		if strings.Contains(prompt, "# a\n") {
			return runtime.Result{}, assertErr
		}
		return runtime.Result{Output: "ok"}, nil
	})

	cfg := &config.RunConfig{ErrorPolicy: config.PolicySkipDownstream}
	cfg.SetDefaults()

	ex, bus := newTestExecutor(t, rt, cfg)
	g := buildFileAndFunction(t)

	var (
		mu      sync.Mutex
		skipped []event.AgentSkipped
	)
	unsub := bus.Subscribe(event.TypeAgentSkipped, func(ev event.Event) {
		mu.Lock()
		defer mu.Unlock()
		skipped = append(skipped, ev.(event.AgentSkipped))
	})
	defer unsub()

	results, err := ex.Run(context.Background(), g, "run-2")
	require.NoError(t, err)
	assert.Empty(t, results, "the file task failed and the function task must be skipped, so nothing completes")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(skipped) == 1
	}, time.Second, time.Millisecond)

	mu.Lock()
	assert.Contains(t, skipped[0].Reason, "failed")
	mu.Unlock()
}

func TestExecutor_ErrorPolicyStopGraph(t *testing.T) {
	rt := funcRuntime(func(ctx context.Context, b bundle.Handle, prompt string, observer runtime.Observer, params runtime.ModelParams, maxTurns int) (runtime.Result, error) {
		return runtime.Result{}, assertErr
	})

	cfg := &config.RunConfig{ErrorPolicy: config.PolicyStopGraph}
	cfg.SetDefaults()

	ex, _ := newTestExecutor(t, rt, cfg)
	g := buildFileAndFunction(t)

	results, err := ex.Run(context.Background(), g, "run-3")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestExecutor_CompletesWithMaxConcurrencyOne(t *testing.T) {
	fake := runtime.NewFake()
	cfg := &config.RunConfig{MaxConcurrency: 1}
	cfg.SetDefaults()
	cfg.MaxConcurrency = 1

	ex, _ := newTestExecutor(t, fake, cfg)
	g := buildFileAndFunction(t)

	results, err := ex.Run(context.Background(), g, "run-4")
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestExecutor_EmptyGraphCompletesImmediately(t *testing.T) {
	fake := runtime.NewFake()
	cfg := &config.RunConfig{}
	cfg.SetDefaults()

	ex, _ := newTestExecutor(t, fake, cfg)
	g, err := graph.Build(nil, graph.BuildOptions{Mapping: bundle.Mapping{}})
	require.NoError(t, err)

	results, err := ex.Run(context.Background(), g, "run-5")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestExecutor_CancellationStopsBeforeNextBatch(t *testing.T) {
	fake := runtime.NewFake()
	cfg := &config.RunConfig{}
	cfg.SetDefaults()

	ex, _ := newTestExecutor(t, fake, cfg)
	g := buildFileAndFunction(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := ex.Run(ctx, g, "run-cancelled")
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrCancelled)
	assert.Nil(t, results)
}

func TestExecutor_ResumeSkipsAlreadyCompletedTasks(t *testing.T) {
	var ran []string
	var mu sync.Mutex
	rt := funcRuntime(func(ctx context.Context, b bundle.Handle, prompt string, observer runtime.Observer, params runtime.ModelParams, maxTurns int) (runtime.Result, error) {
		mu.Lock()
		ran = append(ran, string(b))
		mu.Unlock()
		return runtime.Result{Output: "ok"}, nil
	})

	cfg := &config.RunConfig{}
	cfg.SetDefaults()

	ex, _ := newTestExecutor(t, rt, cfg)
	g := buildFileAndFunction(t)

	var fileTaskID string
	for id, task := range g.Tasks() {
		if task.Name == "a" {
			fileTaskID = id
		}
	}
	require.NotEmpty(t, fileTaskID)

	status := map[string]Status{fileTaskID: StatusCompleted}
	results := map[string]ResultSummary{fileTaskID: {TaskID: fileTaskID, Success: true, Output: "from checkpoint"}}

	finalResults, err := ex.Resume(context.Background(), g, "run-resumed", status, results, nil, nil)
	require.NoError(t, err)
	require.Len(t, finalResults, 2)
	assert.Equal(t, "from checkpoint", finalResults[fileTaskID].Output, "a completed task's result must survive resume untouched")

	mu.Lock()
	defer mu.Unlock()
	assert.NotContains(t, ran, "fileBundle", "a task already completed at checkpoint time must not re-execute")
	assert.Contains(t, ran, "lintBundle", "a task still pending at checkpoint time must execute")
}

var assertErr = &testFailure{"task failed"}

type testFailure struct{ msg string }

func (e *testFailure) Error() string { return e.msg }
