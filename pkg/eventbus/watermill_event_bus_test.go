package eventbus

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/autoflowhq/autoflow/pkg/channels/gochannel"
	"github.com/autoflowhq/autoflow/pkg/events"
	"github.com/autoflowhq/autoflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBus(t *testing.T) EventBus {
	t.Helper()

	pub, sub, err := gochannel.CreateChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := NewWatermillEventBus(pub, sub, slog.Default(), nil)
	t.Cleanup(func() { _ = bus.Close() })

	return bus
}

func TestWatermillEventBus_PublishAndHandle(t *testing.T) {
	bus := newTestBus(t)

	received := make(chan *events.RunRequested, 1)

	require.NoError(t, bus.Handle(events.RunRequestedEvent, func(_ context.Context, event any) error {
		received <- event.(*events.RunRequested)

		return nil
	}))

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	run := &models.WorkflowRun{ID: "run-1", WorkflowID: "wf-1", Status: models.RunStatusRunning}
	require.NoError(t, bus.Publish(ctx, run.WorkflowID, events.NewRunRequested(run)))

	select {
	case got := <-received:
		assert.Equal(t, "run-1", got.Run.ID)
		assert.Equal(t, "wf-1", got.WorkflowID)
	case <-time.After(5 * time.Second):
		t.Fatal("run request was not delivered")
	}
}

func TestWatermillEventBus_RoutesByType(t *testing.T) {
	bus := newTestBus(t)

	var (
		mu    sync.Mutex
		types []events.EventType
	)

	done := make(chan struct{}, 2)
	record := func(_ context.Context, event any) error {
		mu.Lock()
		defer mu.Unlock()

		types = append(types, event.(Event).GetType())
		done <- struct{}{}

		return nil
	}

	require.NoError(t, bus.Handle(events.InboundEventReceivedEvent, record))
	require.NoError(t, bus.Handle(events.RunRequestedEvent, record))

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	inbound := events.NewInboundEventReceived(&models.InboundEvent{EventType: models.EventTypeLike, SenderID: "u"})
	require.NoError(t, bus.Publish(ctx, "u", inbound))

	run := &models.WorkflowRun{ID: "run-2", WorkflowID: "wf-2"}
	require.NoError(t, bus.Publish(ctx, "wf-2", events.NewRunRequested(run)))

	for range 2 {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("event was not delivered")
		}
	}

	mu.Lock()
	defer mu.Unlock()

	assert.ElementsMatch(t, []events.EventType{events.InboundEventReceivedEvent, events.RunRequestedEvent}, types)
}

func TestWatermillEventBus_HandlerErrorRedelivers(t *testing.T) {
	bus := newTestBus(t)

	var (
		mu       sync.Mutex
		attempts int
	)

	done := make(chan struct{})

	require.NoError(t, bus.Handle(events.RunRequestedEvent, func(context.Context, any) error {
		mu.Lock()
		defer mu.Unlock()

		attempts++
		if attempts == 1 {
			return errors.New("transient")
		}

		close(done)

		return nil
	}))

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	run := &models.WorkflowRun{ID: "run-3", WorkflowID: "wf-3"}
	require.NoError(t, bus.Publish(ctx, "wf-3", events.NewRunRequested(run)))

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("nacked message was not redelivered")
	}

	mu.Lock()
	defer mu.Unlock()

	assert.Equal(t, 2, attempts)
}

func TestWatermillEventBus_HandleUnknownType(t *testing.T) {
	bus := newTestBus(t)

	err := bus.Handle("workflow.exploded", func(context.Context, any) error { return nil })
	require.ErrorIs(t, err, ErrUnknownEventType)
}
