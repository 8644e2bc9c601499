package promptctx

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bullish-Design/remora-sub001/pkg/event"
	"github.com/Bullish-Design/remora-sub001/pkg/source"
)

func TestBuilder_RenderEmptyWithNoState(t *testing.T) {
	b := New(Config{})
	out := b.Render(source.NewNode(source.NodeFunction, "foo", "/p/a.go", "body", 1, 1))
	assert.Empty(t, out)
}

func TestBuilder_RecentActionsFromToolResultAndAgentError(t *testing.T) {
	b := New(Config{})
	b.Handle(event.ToolResult{AgentID: "a1", ToolName: "read_file", Output: "ok", IsError: false})
	b.Handle(event.AgentError{AgentID: "a2", Error: "boom"})

	out := b.Render(source.Node{})
	assert.Contains(t, out, "## Recent Actions")
	assert.Contains(t, out, "read_file")
	assert.Contains(t, out, "agent a2 failed: boom")
}

func TestBuilder_PriorAnalysisFromAgentComplete(t *testing.T) {
	b := New(Config{PriorAnalysisLimit: 1})
	b.Handle(event.AgentComplete{AgentID: "a1", ResultSummary: "did thing one"})
	b.Handle(event.AgentComplete{AgentID: "a2", ResultSummary: "did thing two"})

	out := b.Render(source.Node{})
	assert.Contains(t, out, "## Prior Analysis")
	assert.Contains(t, out, "a2: did thing two")
	assert.NotContains(t, out, "a1: did thing one", "PriorAnalysisLimit=1 keeps only the most recent")
}

func TestBuilder_RingBufferBounded(t *testing.T) {
	b := New(Config{WindowSize: 2})
	b.Handle(event.AgentError{AgentID: "a1", Error: "e1"})
	b.Handle(event.AgentError{AgentID: "a2", Error: "e2"})
	b.Handle(event.AgentError{AgentID: "a3", Error: "e3"})

	out := b.Render(source.Node{})
	assert.NotContains(t, out, "a1 failed")
	assert.Contains(t, out, "a2 failed")
	assert.Contains(t, out, "a3 failed")
}

func TestBuilder_RelatedCodeLookupErrorIsSuppressed(t *testing.T) {
	b := New(Config{RelatedCode: func(source.Node) (string, error) {
		return "", errors.New("lookup failed")
	}})
	out := b.Render(source.Node{})
	assert.Empty(t, out)
}

func TestBuilder_RelatedCodeLookupSuccess(t *testing.T) {
	b := New(Config{RelatedCode: func(target source.Node) (string, error) {
		return "related snippet for " + target.Name, nil
	}})
	out := b.Render(source.NewNode(source.NodeFunction, "foo", "/p/a.go", "", 1, 1))
	require.Contains(t, out, "## Related Code")
	assert.Contains(t, out, "related snippet for foo")
}

func TestBuilder_HandleIgnoresUnrelatedEvents(t *testing.T) {
	b := New(Config{})
	b.Handle(event.NewGraphStart("g1", 3))
	assert.Empty(t, b.Render(source.Node{}))
}
