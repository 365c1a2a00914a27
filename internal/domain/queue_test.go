package domain

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopCallable(_ context.Context, _ Params) (Result, error) {
	return nil, nil
}

func enqueueAll(t *testing.T, q *TaskQueue, items ...*WorkItem) {
	t.Helper()
	for _, item := range items {
		require.NoError(t, q.Enqueue(item))
	}
}

func TestQueueFIFOWithinNormal(t *testing.T) {
	q := NewTaskQueue()
	a := NewWorkItem(noopCallable, nil, PriorityNormal)
	b := NewWorkItem(noopCallable, nil, PriorityNormal)
	c := NewWorkItem(noopCallable, nil, PriorityNormal)
	enqueueAll(t, q, a, b, c)

	assert.Equal(t, a.ID, q.DequeueBlocking().ID)
	assert.Equal(t, b.ID, q.DequeueBlocking().ID)
	assert.Equal(t, c.ID, q.DequeueBlocking().ID)
	assert.Equal(t, 0, q.Len())
}

func TestQueueImmediateJumpsPendingNormals(t *testing.T) {
	q := NewTaskQueue()
	n1 := NewWorkItem(noopCallable, nil, PriorityNormal)
	n2 := NewWorkItem(noopCallable, nil, PriorityNormal)
	i1 := NewWorkItem(noopCallable, nil, PriorityImmediate)
	i2 := NewWorkItem(noopCallable, nil, PriorityImmediate)

	enqueueAll(t, q, n1, n2, i1, i2)

	// Immediate items ahead of Normal, FIFO within each class.
	want := []string{i1.ID, i2.ID, n1.ID, n2.ID}
	for _, id := range want {
		assert.Equal(t, id, q.DequeueBlocking().ID)
	}
}

func TestQueueEnqueueAfterCloseFails(t *testing.T) {
	q := NewTaskQueue()
	q.Close()

	err := q.Enqueue(NewWorkItem(noopCallable, nil, PriorityNormal))
	require.ErrorIs(t, err, ErrQueueClosed)
	assert.True(t, q.Closed())
}

func TestQueueDequeueBlocksUntilEnqueue(t *testing.T) {
	q := NewTaskQueue()
	got := make(chan *WorkItem, 1)
	go func() {
		got <- q.DequeueBlocking()
	}()

	// Give the consumer time to park on the condition variable.
	time.Sleep(20 * time.Millisecond)
	item := NewWorkItem(noopCallable, nil, PriorityNormal)
	require.NoError(t, q.Enqueue(item))

	select {
	case dequeued := <-got:
		require.NotNil(t, dequeued)
		assert.Equal(t, item.ID, dequeued.ID)
	case <-time.After(time.Second):
		t.Fatal("dequeue never woke up after enqueue")
	}
}

func TestQueueDequeueReturnsNilOnClose(t *testing.T) {
	q := NewTaskQueue()
	got := make(chan *WorkItem, 1)
	go func() {
		got <- q.DequeueBlocking()
	}()

	time.Sleep(20 * time.Millisecond)
	q.Close()

	select {
	case dequeued := <-got:
		assert.Nil(t, dequeued)
	case <-time.After(time.Second):
		t.Fatal("dequeue never woke up after close")
	}
}

func TestQueueCloseWinsOverPendingItems(t *testing.T) {
	q := NewTaskQueue()
	enqueueAll(t, q, NewWorkItem(noopCallable, nil, PriorityNormal))
	q.Close()

	// Shutdown wins: leftover items are not handed out.
	assert.Nil(t, q.DequeueBlocking())
}

func TestQueueClear(t *testing.T) {
	q := NewTaskQueue()
	enqueueAll(t, q,
		NewWorkItem(noopCallable, nil, PriorityNormal),
		NewWorkItem(noopCallable, nil, PriorityImmediate),
		NewWorkItem(noopCallable, nil, PriorityNormal),
	)

	assert.Equal(t, 3, q.Clear())
	assert.Equal(t, 0, q.Len())
	assert.Equal(t, 0, q.Clear())

	// The queue stays usable after a clear.
	item := NewWorkItem(noopCallable, nil, PriorityNormal)
	require.NoError(t, q.Enqueue(item))
	assert.Equal(t, item.ID, q.DequeueBlocking().ID)
}
