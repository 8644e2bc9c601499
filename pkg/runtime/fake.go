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

package runtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Bullish-Design/remora-sub001/pkg/bundle"
)

// Fake is a test double satisfying Runtime. Behavior per bundle is
// configured by registering a FakeBehavior; unregistered bundles
// succeed trivially. It is safe for concurrent use across agent tasks.
type Fake struct {
	mu        sync.Mutex
	behaviors map[bundle.Handle]FakeBehavior
	calls     []FakeCall
}

// FakeBehavior customizes how Fake responds to one bundle.
type FakeBehavior struct {
	// Err, if set, is returned as the invocation's error.
	Err error
	// Output is returned as Result.Output on success.
	Output string
	// Delay simulates work before responding; honors ctx cancellation.
	Delay time.Duration
	// AlwaysFail forces every invocation of this bundle to fail.
	AlwaysFail bool
}

// FakeCall records one Run invocation for assertions in tests.
type FakeCall struct {
	Bundle bundle.Handle
	Prompt string
}

// NewFake creates an empty Fake runtime.
func NewFake() *Fake {
	return &Fake{behaviors: make(map[bundle.Handle]FakeBehavior)}
}

// SetBehavior configures how Fake responds when b is run.
func (f *Fake) SetBehavior(b bundle.Handle, behavior FakeBehavior) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.behaviors[b] = behavior
}

// Calls returns every recorded invocation in order.
func (f *Fake) Calls() []FakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]FakeCall, len(f.calls))
	copy(out, f.calls)
	return out
}

// Run implements Runtime.
func (f *Fake) Run(ctx context.Context, b bundle.Handle, prompt string, observer Observer, params ModelParams, maxTurns int) (Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, FakeCall{Bundle: b, Prompt: prompt})
	behavior := f.behaviors[b]
	f.mu.Unlock()

	if behavior.Delay > 0 {
		select {
		case <-time.After(behavior.Delay):
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}

	if behavior.AlwaysFail {
		err := behavior.Err
		if err == nil {
			err = fmt.Errorf("fake runtime: bundle %s configured to fail", b)
		}
		return Result{}, err
	}

	if behavior.Err != nil {
		return Result{}, behavior.Err
	}

	out := behavior.Output
	if out == "" {
		out = fmt.Sprintf("ok: %s", b)
	}
	return Result{Output: out}, nil
}
