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

// Package runtime declares the interface the graph executor consumes
// from the external agent runtime (the multi-turn LLM loop, tool
// grammar, and sandboxed tool interpreter). The runtime itself is out
// of scope for the core (spec §1); this package only pins the
// boundary.
package runtime

import (
	"context"

	"github.com/Bullish-Design/remora-sub001/pkg/bundle"
	"github.com/Bullish-Design/remora-sub001/pkg/event"
)

// ModelParams carries the model-level configuration the runtime needs
// for one invocation. The core treats it as opaque pass-through data.
type ModelParams struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// Result is what one agent-runtime invocation returns.
type Result struct {
	Output string
}

// Observer is satisfied by *event.Bus: the bus IS the runtime's
// observer, so runtime event variants (KernelStart/End, ModelRequest/
// Response, ToolCall/Result, TurnComplete) are emitted directly onto it
// with no adapter layer.
type Observer interface {
	Emit(ev event.Event)
}

// Compile-time check that *event.Bus satisfies Observer directly: its
// Emit method has this exact signature, so no adapter type is needed.
var _ Observer = (*event.Bus)(nil)

// Runtime runs one bundle against one prompt, streaming its own
// lifecycle onto observer, honoring ctx for cancellation.
type Runtime interface {
	Run(ctx context.Context, b bundle.Handle, prompt string, observer Observer, params ModelParams, maxTurns int) (Result, error)
}
