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

package hitl

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bullish-Design/remora-sub001/pkg/event"
)

func TestCoordinator_RequestInputReceivesMatchingResponse(t *testing.T) {
	bus := event.New()
	c := New(bus)

	unsub := bus.Subscribe(event.TypeHumanInputRequest, func(ev event.Event) {
		req := ev.(event.HumanInputRequest)
		c.Respond(req.RequestID, "yes")
	})
	defer unsub()

	answer, err := c.RequestInput(context.Background(), "graph-1", "agent-1", "proceed?", []string{"yes", "no"}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "yes", answer)
}

func TestCoordinator_RequestInputTimesOut(t *testing.T) {
	bus := event.New()
	c := New(bus)

	_, err := c.RequestInput(context.Background(), "graph-1", "agent-1", "proceed?", nil, 10*time.Millisecond)
	require.Error(t, err)
}

func TestCoordinator_IgnoresResponseWithDifferentRequestID(t *testing.T) {
	bus := event.New()
	c := New(bus)

	unsub := bus.Subscribe(event.TypeHumanInputRequest, func(ev event.Event) {
		c.Respond("some-other-request-id", "wrong answer")
	})
	defer unsub()

	_, err := c.RequestInput(context.Background(), "graph-1", "agent-1", "proceed?", nil, 30*time.Millisecond)
	require.Error(t, err, "a response carrying a different request id must not satisfy the wait")
}
