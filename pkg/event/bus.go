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

package event

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Bullish-Design/remora-sub001/internal/errs"
)

// Handler is invoked for every event a subscription matches. A handler
// that panics is recovered and logged; it never aborts delivery to
// sibling subscribers.
type Handler func(Event)

// Bus is a process-local (per-run, by convention) typed pub/sub. It has
// no global singleton: callers obtain a Bus and inject it into every
// component that needs to publish or subscribe (§9 of the spec).
//
// Delivery to a single subscriber is FIFO and serialized: each
// subscription owns an unbounded queue drained by exactly one goroutine,
// so a slow handler never blocks unrelated subscribers and a handler
// that re-emits synchronously is queued behind its own current delivery
// rather than deadlocking.
type Bus struct {
	mu     sync.Mutex
	subs   map[int64]*subscription
	nextID int64
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{subs: make(map[int64]*subscription)}
}

type subscription struct {
	id      int64
	typ     Type  // ignored when matchAny is set
	matchAny bool
	handler Handler

	queue *unboundedQueue
}

// Subscribe registers handler for exactly one event Type. It returns an
// idempotent unsubscribe function.
func (b *Bus) Subscribe(typ Type, handler Handler) (unsubscribe func()) {
	return b.register(typ, false, handler)
}

// SubscribeAll registers handler for every event variant.
func (b *Bus) SubscribeAll(handler Handler) (unsubscribe func()) {
	return b.register("", true, handler)
}

func (b *Bus) register(typ Type, matchAny bool, handler Handler) func() {
	sub := &subscription{typ: typ, matchAny: matchAny, handler: handler, queue: newUnboundedQueue()}

	b.mu.Lock()
	sub.id = b.nextID
	b.nextID++
	b.subs[sub.id] = sub
	b.mu.Unlock()

	go sub.drain()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, sub.id)
			b.mu.Unlock()
			sub.queue.Close()
		})
	}
}

func (s *subscription) matches(ev Event) bool {
	return s.matchAny || s.typ == ev.EventType()
}

func (s *subscription) drain() {
	for ev, ok := s.queue.Pop(); ok; ev, ok = s.queue.Pop() {
		s.invoke(ev)
	}
}

func (s *subscription) invoke(ev Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("event handler panicked", "event_type", ev.EventType(), "panic", r)
		}
	}()
	s.handler(ev)
}

// Emit delivers ev to every matching subscriber. It returns once the
// event has been enqueued for each subscriber; it does not wait for
// handlers to run. Handler panics are logged and never propagate to
// Emit's caller or to sibling subscribers.
func (b *Bus) Emit(ev Event) {
	b.mu.Lock()
	matching := make([]*subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		if sub.matches(ev) {
			matching = append(matching, sub)
		}
	}
	b.mu.Unlock()

	for _, sub := range matching {
		sub.queue.Push(ev)
	}
}

// Stream returns a channel yielding every event matching one of types
// (or every event, if types is empty) and a stop function. Callers MUST
// call stop when done; deferring stop() is the idiomatic pattern:
//
//	events, stop := bus.Stream(event.TypeToolResult)
//	defer stop()
//	for ev := range events { ... }
func (b *Bus) Stream(types ...Type) (<-chan Event, func()) {
	out := make(chan Event, 64)
	typeSet := make(map[Type]struct{}, len(types))
	for _, t := range types {
		typeSet[t] = struct{}{}
	}
	matchAny := len(types) == 0

	unsubscribe := b.register("", true, func(ev Event) {
		if matchAny {
			out <- ev
			return
		}
		if _, ok := typeSet[ev.EventType()]; ok {
			out <- ev
		}
	})

	var once sync.Once
	stop := func() {
		once.Do(func() {
			unsubscribe()
			close(out)
		})
	}
	return out, stop
}

// WaitFor suspends until an event of typ satisfying predicate is
// observed, or timeout elapses. On timeout it returns errs.ErrTimeout.
// The one-shot subscription is always unsubscribed before WaitFor
// returns, on every exit path.
func (b *Bus) WaitFor(ctx context.Context, typ Type, predicate func(Event) bool, timeout time.Duration) (Event, error) {
	found := make(chan Event, 1)

	unsubscribe := b.Subscribe(typ, func(ev Event) {
		if predicate == nil || predicate(ev) {
			select {
			case found <- ev:
			default:
			}
		}
	})
	defer unsubscribe()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ev := <-found:
		return ev, nil
	case <-timer.C:
		return nil, fmt.Errorf("waiting for %s: %w", typ, errs.ErrTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
