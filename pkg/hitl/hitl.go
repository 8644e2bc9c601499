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

// Package hitl coordinates an agent's human-input-request tool with
// whatever surface actually answers it (CLI prompt, chat UI, test
// harness). The bus is the only channel between the two sides: a
// request goes out as event.HumanInputRequest, and Coordinator blocks
// on a matching event.HumanInputResponse carrying the same RequestID.
package hitl

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Bullish-Design/remora-sub001/internal/errs"
	"github.com/Bullish-Design/remora-sub001/pkg/event"
)

// Coordinator is a thin adapter over an event.Bus. It holds no state of
// its own; every in-flight request is tracked by the bus's own
// subscriber bookkeeping inside WaitFor.
type Coordinator struct {
	Bus *event.Bus
}

// New constructs a Coordinator over bus.
func New(bus *event.Bus) *Coordinator {
	return &Coordinator{Bus: bus}
}

// RequestInput emits a HumanInputRequest and blocks until a
// HumanInputResponse with a matching RequestID arrives or timeout
// elapses. A timeout or cancellation is a recoverable error: the
// caller (a tool handler) is expected to surface it to the agent as a
// failed tool call, not to crash the run.
func (c *Coordinator) RequestInput(ctx context.Context, graphID, agentID, question string, options []string, timeout time.Duration) (string, error) {
	requestID := uuid.NewString()

	c.Bus.Emit(event.NewHumanInputRequest(graphID, agentID, requestID, question, options))

	ev, err := c.Bus.WaitFor(ctx, event.TypeHumanInputResponse, func(e event.Event) bool {
		resp, ok := e.(event.HumanInputResponse)
		return ok && resp.RequestID == requestID
	}, timeout)
	if err != nil {
		return "", errs.Wrap(errs.ErrTimeout, "awaiting human input for request %s: %v", requestID, err)
	}

	return ev.(event.HumanInputResponse).Response, nil
}

// Respond answers a pending request by id. Typically called by the
// surface that presented the question to a human (a CLI prompt, a chat
// reply handler).
func (c *Coordinator) Respond(requestID, response string) {
	c.Bus.Emit(event.NewHumanInputResponse(requestID, response))
}
