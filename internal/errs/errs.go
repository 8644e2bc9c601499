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

// Package errs defines the error kinds shared across Remora's components.
// They are sentinel values rather than an exception hierarchy: callers
// use errors.Is against these to branch on kind, and errors.Wrap-style
// %w chains carry the concrete context.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrDiscovery marks a fatal parse-pipeline failure (e.g. bad query pack).
	ErrDiscovery = errors.New("discovery error")

	// ErrGraphCycle marks a dependency cycle detected during topological sort.
	ErrGraphCycle = errors.New("graph cycle detected")

	// ErrGraphShape marks an otherwise inconsistent graph (e.g. dangling edge).
	ErrGraphShape = errors.New("inconsistent graph shape")

	// ErrExecution wraps any unhandled failure escaping a run.
	ErrExecution = errors.New("execution error")

	// ErrExecutionTimeout marks a per-agent timeout; a subtype of ErrExecution.
	ErrExecutionTimeout = fmt.Errorf("execution timeout: %w", ErrExecution)

	// ErrCancelled marks cooperative cancellation of a run.
	ErrCancelled = errors.New("run cancelled")

	// ErrCheckpoint marks a checkpoint save/restore failure.
	ErrCheckpoint = errors.New("checkpoint error")

	// ErrWorkspace marks an underlying workspace store failure.
	ErrWorkspace = errors.New("workspace error")

	// ErrTimeout marks a wait_for timeout on the event bus or HITL coordinator.
	ErrTimeout = errors.New("timeout")

	// ErrConfig marks a bad configuration at construction time.
	ErrConfig = errors.New("configuration error")
)

// Wrap formats msg (with args, fmt.Sprintf-style) and wraps it around
// kind so callers can still errors.Is(err, kind) after the call.
func Wrap(kind error, msg string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(msg, args...), kind)
}
