package node

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventQueue_Push(t *testing.T) {
	q := newEventQueue(2)

	require.NoError(t, q.Push(context.Background(), event{kind: eventMessage}))
	require.NoError(t, q.Push(context.Background(), event{kind: eventInspect}))
	assert.Equal(t, 2, q.Len())

	// The queue is full so blocks until the context is cancelled.
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond*10)
	defer cancel()
	assert.ErrorIs(t, q.Push(ctx, event{kind: eventMessage}), context.DeadlineExceeded)

	e := <-q.Events()
	assert.Equal(t, eventMessage, e.kind)
	e = <-q.Events()
	assert.Equal(t, eventInspect, e.kind)
}

func TestEventQueue_OfferTick(t *testing.T) {
	t.Run("coalesce", func(t *testing.T) {
		q := newEventQueue(8)

		assert.True(t, q.OfferTick())
		// A tick is already pending.
		assert.False(t, q.OfferTick())
		assert.False(t, q.OfferTick())
		assert.Equal(t, 1, q.Len())

		e := <-q.Events()
		assert.Equal(t, eventTick, e.kind)
		q.AckTick()

		assert.True(t, q.OfferTick())
	})

	t.Run("full", func(t *testing.T) {
		q := newEventQueue(1)
		require.NoError(t, q.Push(context.Background(), event{kind: eventMessage}))

		// The tick is dropped rather than blocking.
		assert.False(t, q.OfferTick())

		<-q.Events()
		assert.True(t, q.OfferTick())
	})

	t.Run("closed", func(t *testing.T) {
		q := newEventQueue(1)
		q.Close()

		assert.False(t, q.OfferTick())
	})
}

func TestEventQueue_Close(t *testing.T) {
	q := newEventQueue(4)
	require.NoError(t, q.Push(context.Background(), event{kind: eventMessage}))

	q.Close()
	// Closing twice is a no-op.
	q.Close()

	assert.ErrorIs(t, q.Push(context.Background(), event{kind: eventMessage}), errQueueClosed)

	// Queued events are still delivered.
	e, ok := <-q.Events()
	assert.True(t, ok)
	assert.Equal(t, eventMessage, e.kind)

	_, ok = <-q.Events()
	assert.False(t, ok)
}
