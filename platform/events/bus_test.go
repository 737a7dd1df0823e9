package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"estate_portal_backend/platform/logger"
)

func TestPublishSyncRunsAllHandlersAndCombinesErrors(t *testing.T) {
	bus := NewInMemoryBus(logger.New("development"))

	var calls int32
	bus.Subscribe("test.event", HandlerFunc(func(context.Context, Event) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}))
	bus.Subscribe("test.event", HandlerFunc(func(context.Context, Event) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("boom")
	}))
	bus.Subscribe("other.event", HandlerFunc(func(context.Context, Event) error {
		t.Error("handler for unrelated event must not run")
		return nil
	}))

	err := bus.PublishSync(context.Background(), testEvent{})
	if err == nil {
		t.Fatal("expected combined handler error")
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("expected 2 handler calls, got %d", got)
	}
}

func TestPublishIsAsyncAndDoesNotSurfaceErrors(t *testing.T) {
	bus := NewInMemoryBus(logger.New("development"))

	var calls int32
	bus.Subscribe("test.event", HandlerFunc(func(context.Context, Event) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("boom")
	}))

	bus.Publish(context.Background(), testEvent{})
	bus.Wait()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected 1 handler call, got %d", got)
	}
}

type testEvent struct {
	BaseEvent
}

func (testEvent) EventName() string { return "test.event" }
