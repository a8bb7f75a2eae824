package event_bus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_PublishRunsHandlersInSubscriptionOrder(t *testing.T) {
	bus := NewEventBus()
	var calls []int
	for i := 1; i <= 5; i++ {
		n := i
		bus.Subscribe(NotificationCreatedType, func(Event) error {
			calls = append(calls, n)
			return nil
		})
	}

	err := bus.Publish(NewEvent(context.Background(), NotificationCreatedType, NotificationCreated{Id: 1}))

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, calls)
}

func TestEventBus_Unsubscribe(t *testing.T) {
	bus := NewEventBus()
	var first, second int
	unsubscribe := bus.Subscribe(LetterHandledType, func(Event) error {
		first++
		return nil
	})
	bus.Subscribe(LetterHandledType, func(Event) error {
		second++
		return nil
	})

	require.NoError(t, bus.Publish(NewEvent(context.Background(), LetterHandledType, LetterHandled{})))
	unsubscribe()
	require.NoError(t, bus.Publish(NewEvent(context.Background(), LetterHandledType, LetterHandled{})))

	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
}

func TestEventBus_CollectsErrorsAndRecoversPanics(t *testing.T) {
	bus := NewEventBus()
	failure := errors.New("subscriber failed")
	reached := false
	bus.Subscribe(JobFinishedType, func(Event) error { return failure })
	bus.Subscribe(JobFinishedType, func(Event) error { panic("boom") })
	bus.Subscribe(JobFinishedType, func(Event) error {
		reached = true
		return nil
	})

	err := bus.Publish(NewEvent(context.Background(), JobFinishedType, JobFinished{Name: "weekly-summary"}))

	require.Error(t, err)
	assert.ErrorIs(t, err, failure)
	assert.Contains(t, err.Error(), "2 handler(s) failed")
	assert.True(t, reached)
}

func TestEventBus_CancelledContext(t *testing.T) {
	bus := NewEventBus()
	called := false
	bus.Subscribe(NotificationCreatedType, func(Event) error {
		called = true
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := bus.Publish(NewEvent(ctx, NotificationCreatedType, NotificationCreated{}))

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestSubscribeTyped(t *testing.T) {
	bus := NewEventBus()
	var received []NotificationCreated
	SubscribeTyped[NotificationCreated](bus, NotificationCreatedType, func(e EventT[NotificationCreated]) error {
		received = append(received, e.Data)
		return nil
	})

	require.NoError(t, bus.Publish(NewEvent(context.Background(), NotificationCreatedType, NotificationCreated{Id: 4, Title: "Weekly Summary"})))
	// payload of another type is skipped
	require.NoError(t, bus.Publish(NewEvent(context.Background(), NotificationCreatedType, "not a notification")))
	require.NoError(t, bus.Publish(NewEvent(context.Background(), NotificationCreatedType, nil)))

	require.Len(t, received, 1)
	assert.Equal(t, 4, received[0].Id)
	assert.Equal(t, "Weekly Summary", received[0].Title)
}
