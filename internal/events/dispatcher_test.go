package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishDeliversToSubscribersOfType(t *testing.T) {
	d := NewInMemoryDispatcher()

	var got []Event
	d.Subscribe(EventPageSaved, func(_ context.Context, e Event) error {
		got = append(got, e)
		return nil
	})
	d.Subscribe(EventPageLoaded, func(context.Context, Event) error {
		t.Fatal("page_loaded handler must not run")
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventPageSaved}))
	require.Len(t, got, 1)
	assert.NotEmpty(t, got[0].ID)
	assert.False(t, got[0].Timestamp.IsZero())
}

func TestPublishContinuesAfterHandlerError(t *testing.T) {
	d := NewInMemoryDispatcher()
	boom := errors.New("boom")
	calls := 0
	d.Subscribe(EventSessionChanged, func(context.Context, Event) error {
		calls++
		return boom
	})
	d.Subscribe(EventSessionChanged, func(context.Context, Event) error {
		calls++
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventSessionChanged})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}

func TestPublishKeepsCallerIdentity(t *testing.T) {
	d := NewInMemoryDispatcher()
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	var got Event
	d.Subscribe(EventRequestDecided, func(_ context.Context, e Event) error {
		got = e
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{ID: "evt-1", Type: EventRequestDecided, Timestamp: at}))
	assert.Equal(t, "evt-1", got.ID)
	assert.True(t, at.Equal(got.Timestamp))
}
