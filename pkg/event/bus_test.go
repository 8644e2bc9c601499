package event

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_SubscribeAndEmit(t *testing.T) {
	bus := New()

	var mu sync.Mutex
	var received []Type
	unsub := bus.Subscribe(TypeAgentStart, func(ev Event) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, ev.EventType())
	})
	defer unsub()

	bus.Emit(NewAgentStart("g1", "a1", "foo"))
	bus.Emit(NewGraphComplete("g1", 1, 0)) // should not match

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	}, time.Second, time.Millisecond)

	mu.Lock()
	assert.Equal(t, []Type{TypeAgentStart}, received)
	mu.Unlock()
}

func TestBus_SubscribeAll(t *testing.T) {
	bus := New()

	count := make(chan struct{}, 16)
	unsub := bus.SubscribeAll(func(ev Event) { count <- struct{}{} })
	defer unsub()

	bus.Emit(NewAgentStart("g1", "a1", "foo"))
	bus.Emit(NewGraphComplete("g1", 1, 0))

	for i := 0; i < 2; i++ {
		select {
		case <-count:
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for subscribe-all delivery")
		}
	}
}

func TestBus_DeliveryOrderIsFIFOPerSubscriber(t *testing.T) {
	bus := New()

	var mu sync.Mutex
	var order []int
	done := make(chan struct{})
	n := 200

	unsub := bus.Subscribe(TypeAgentStart, func(ev Event) {
		mu.Lock()
		order = append(order, len(order))
		if len(order) == n {
			close(done)
		}
		mu.Unlock()
	})
	defer unsub()

	for i := 0; i < n; i++ {
		bus.Emit(NewAgentStart("g1", "a1", "foo"))
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
	}

	mu.Lock()
	defer mu.Unlock()
	for i, v := range order {
		assert.Equal(t, i, v)
	}
}

func TestBus_UnsubscribeIsIdempotent(t *testing.T) {
	bus := New()
	unsub := bus.Subscribe(TypeAgentStart, func(Event) {})
	unsub()
	assert.NotPanics(t, func() { unsub() })
}

func TestBus_Stream(t *testing.T) {
	bus := New()
	events, stop := bus.Stream(TypeAgentStart)
	defer stop()

	bus.Emit(NewAgentStart("g1", "a1", "foo"))

	select {
	case ev := <-events:
		assert.Equal(t, TypeAgentStart, ev.EventType())
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for streamed event")
	}
}

func TestBus_WaitForSucceeds(t *testing.T) {
	bus := New()

	go func() {
		time.Sleep(10 * time.Millisecond)
		bus.Emit(HumanInputResponse{RequestID: "r1", Response: "yes"})
	}()

	ev, err := bus.WaitFor(context.Background(), TypeHumanInputResponse, func(e Event) bool {
		return e.(HumanInputResponse).RequestID == "r1"
	}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "yes", ev.(HumanInputResponse).Response)
}

func TestBus_WaitForTimesOut(t *testing.T) {
	bus := New()
	_, err := bus.WaitFor(context.Background(), TypeHumanInputResponse, nil, 20*time.Millisecond)
	require.Error(t, err)
}

func TestBus_ReentrantEmitDoesNotDeadlock(t *testing.T) {
	bus := New()
	done := make(chan struct{})

	var unsub func()
	count := 0
	unsub = bus.Subscribe(TypeAgentStart, func(ev Event) {
		count++
		if count == 1 {
			bus.Emit(NewAgentStart("g1", "a2", "bar"))
		}
		if count == 2 {
			close(done)
		}
	})
	defer unsub()

	bus.Emit(NewAgentStart("g1", "a1", "foo"))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reentrant emit deadlocked")
	}
}
