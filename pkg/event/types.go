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

// Package event defines Remora's typed event union and the pub/sub bus
// that carries lifecycle, tool, model, human-in-the-loop, and checkpoint
// events between the executor, the context builder, the checkpointer,
// and the dashboard.
package event

import "time"

// Type identifies one event variant. Handlers subscribe by Type.
type Type string

const (
	TypeGraphStart         Type = "graph_start"
	TypeGraphComplete      Type = "graph_complete"
	TypeGraphError         Type = "graph_error"
	TypeAgentStart         Type = "agent_start"
	TypeAgentComplete      Type = "agent_complete"
	TypeAgentError         Type = "agent_error"
	TypeAgentSkipped       Type = "agent_skipped"
	TypeHumanInputRequest  Type = "human_input_request"
	TypeHumanInputResponse Type = "human_input_response"
	TypeCheckpointSaved    Type = "checkpoint_saved"
	TypeCheckpointRestored Type = "checkpoint_restored"

	// Re-exported agent-runtime variants. The runtime emits these
	// directly onto the bus; the bus IS the runtime's observer.
	TypeKernelStart    Type = "kernel_start"
	TypeKernelEnd      Type = "kernel_end"
	TypeModelRequest   Type = "model_request"
	TypeModelResponse  Type = "model_response"
	TypeToolCall       Type = "tool_call"
	TypeToolResult     Type = "tool_result"
	TypeTurnComplete   Type = "turn_complete"
)

// Event is the common envelope every variant satisfies. Concrete
// variants below embed Base and add their own fields.
type Event interface {
	EventType() Type
	Time() time.Time
}

// Base carries the timestamp every event has.
type Base struct {
	Timestamp time.Time
}

func (b Base) Time() time.Time { return b.Timestamp }

func now() time.Time { return time.Now() }

// GraphStart is emitted once at the beginning of a run.
type GraphStart struct {
	Base
	GraphID   string
	NodeCount int
}

func (GraphStart) EventType() Type { return TypeGraphStart }

// NewGraphStart builds a GraphStart event with the current timestamp.
func NewGraphStart(graphID string, nodeCount int) GraphStart {
	return GraphStart{Base: Base{Timestamp: now()}, GraphID: graphID, NodeCount: nodeCount}
}

// GraphComplete is emitted once at the end of a successful run.
type GraphComplete struct {
	Base
	GraphID        string
	CompletedCount int
	FailedCount    int
}

func (GraphComplete) EventType() Type { return TypeGraphComplete }

func NewGraphComplete(graphID string, completed, failed int) GraphComplete {
	return GraphComplete{Base: Base{Timestamp: now()}, GraphID: graphID, CompletedCount: completed, FailedCount: failed}
}

// GraphError is emitted when a run aborts (cycle, cancellation, or an
// unhandled exception escaping the executor's main loop).
type GraphError struct {
	Base
	GraphID string
	Error   string
}

func (GraphError) EventType() Type { return TypeGraphError }

func NewGraphError(graphID, errMsg string) GraphError {
	return GraphError{Base: Base{Timestamp: now()}, GraphID: graphID, Error: errMsg}
}

// AgentStart is emitted when a task transitions pending -> running.
type AgentStart struct {
	Base
	GraphID  string
	AgentID  string
	NodeName string
}

func (AgentStart) EventType() Type { return TypeAgentStart }

func NewAgentStart(graphID, agentID, nodeName string) AgentStart {
	return AgentStart{Base: Base{Timestamp: now()}, GraphID: graphID, AgentID: agentID, NodeName: nodeName}
}

// AgentComplete is emitted when a task finishes successfully.
type AgentComplete struct {
	Base
	GraphID       string
	AgentID       string
	ResultSummary string
}

func (AgentComplete) EventType() Type { return TypeAgentComplete }

func NewAgentComplete(graphID, agentID, summary string) AgentComplete {
	return AgentComplete{Base: Base{Timestamp: now()}, GraphID: graphID, AgentID: agentID, ResultSummary: summary}
}

// AgentError is emitted when a task fails.
type AgentError struct {
	Base
	GraphID string
	AgentID string
	Error   string
}

func (AgentError) EventType() Type { return TypeAgentError }

func NewAgentError(graphID, agentID, errMsg string) AgentError {
	return AgentError{Base: Base{Timestamp: now()}, GraphID: graphID, AgentID: agentID, Error: errMsg}
}

// AgentSkipped is emitted once per task marked skipped under the
// skip_downstream error policy.
type AgentSkipped struct {
	Base
	GraphID string
	AgentID string
	Reason  string
}

func (AgentSkipped) EventType() Type { return TypeAgentSkipped }

func NewAgentSkipped(graphID, agentID, reason string) AgentSkipped {
	return AgentSkipped{Base: Base{Timestamp: now()}, GraphID: graphID, AgentID: agentID, Reason: reason}
}

// HumanInputRequest is emitted by an agent tool that needs a user reply.
type HumanInputRequest struct {
	Base
	GraphID   string
	AgentID   string
	RequestID string
	Question  string
	Options   []string
}

func (HumanInputRequest) EventType() Type { return TypeHumanInputRequest }

func NewHumanInputRequest(graphID, agentID, requestID, question string, options []string) HumanInputRequest {
	return HumanInputRequest{
		Base:      Base{Timestamp: now()},
		GraphID:   graphID,
		AgentID:   agentID,
		RequestID: requestID,
		Question:  question,
		Options:   options,
	}
}

// HumanInputResponse answers a HumanInputRequest by RequestID.
type HumanInputResponse struct {
	Base
	RequestID string
	Response  string
}

func (HumanInputResponse) EventType() Type { return TypeHumanInputResponse }

func NewHumanInputResponse(requestID, response string) HumanInputResponse {
	return HumanInputResponse{Base: Base{Timestamp: now()}, RequestID: requestID, Response: response}
}

// CheckpointSaved is emitted after a successful Save.
type CheckpointSaved struct {
	Base
	GraphID      string
	CheckpointID string
}

func (CheckpointSaved) EventType() Type { return TypeCheckpointSaved }

func NewCheckpointSaved(graphID, checkpointID string) CheckpointSaved {
	return CheckpointSaved{Base: Base{Timestamp: now()}, GraphID: graphID, CheckpointID: checkpointID}
}

// CheckpointRestored is emitted after a successful Restore.
type CheckpointRestored struct {
	Base
	GraphID      string
	CheckpointID string
}

func (CheckpointRestored) EventType() Type { return TypeCheckpointRestored }

func NewCheckpointRestored(graphID, checkpointID string) CheckpointRestored {
	return CheckpointRestored{Base: Base{Timestamp: now()}, GraphID: graphID, CheckpointID: checkpointID}
}

// KernelStart / KernelEnd bracket one turn of the agent runtime's inner loop.
type KernelStart struct {
	Base
	AgentID    string
	TurnIndex  int
}

func (KernelStart) EventType() Type { return TypeKernelStart }

type KernelEnd struct {
	Base
	AgentID   string
	TurnIndex int
}

func (KernelEnd) EventType() Type { return TypeKernelEnd }

// ModelRequest / ModelResponse bracket one call to the underlying LLM.
type ModelRequest struct {
	Base
	AgentID string
	Model   string
}

func (ModelRequest) EventType() Type { return TypeModelRequest }

type ModelResponse struct {
	Base
	AgentID     string
	Model       string
	TokenCounts map[string]int
}

func (ModelResponse) EventType() Type { return TypeModelResponse }

// ToolCall / ToolResult bracket one tool invocation made by the runtime.
type ToolCall struct {
	Base
	AgentID   string
	ToolName  string
	Arguments any
}

func (ToolCall) EventType() Type { return TypeToolCall }

type ToolResult struct {
	Base
	AgentID  string
	ToolName string
	Output   any
	IsError  bool
}

func (ToolResult) EventType() Type { return TypeToolResult }

// TurnComplete marks the end of one reasoning turn.
type TurnComplete struct {
	Base
	AgentID   string
	TurnIndex int
}

func (TurnComplete) EventType() Type { return TypeTurnComplete }
