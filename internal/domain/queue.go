package domain

import "sync"

// TaskQueue is the thread-safe ordered collection of pending work items. All
// mutations and the empty check happen under one mutex; the condition variable
// built on that mutex is signaled on every enqueue and on close, so a waiting
// worker never sleeps past a produced item.
//
// Ordering invariant: FIFO within a priority class. An Immediate item is
// inserted ahead of all pending Normal items (but behind earlier Immediate
// items, so Immediate ordering stays predictable too).
type TaskQueue struct {
	mutex  sync.Mutex
	cond   *sync.Cond
	items  []*WorkItem
	closed bool
}

// NewTaskQueue creates an empty open queue.
func NewTaskQueue() *TaskQueue {
	q := &TaskQueue{
		items: make([]*WorkItem, 0),
	}
	q.cond = sync.NewCond(&q.mutex)
	return q
}

// Enqueue adds an item according to its priority. It never blocks.
// Returns ErrQueueClosed once the queue has been closed.
func (q *TaskQueue) Enqueue(item *WorkItem) error {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	pos := len(q.items)
	if item.Priority == PriorityImmediate {
		// Skip over pending Immediate items so Immediate stays FIFO among
		// itself while still jumping every pending Normal item.
		pos = 0
		for pos < len(q.items) && q.items[pos].Priority == PriorityImmediate {
			pos++
		}
	}

	q.items = append(q.items, nil)
	copy(q.items[pos+1:], q.items[pos:])
	q.items[pos] = item

	q.cond.Broadcast()
	return nil
}

// DequeueBlocking removes and returns the head item. If the queue is empty it
// suspends the calling goroutine until an item is enqueued or the queue is
// closed. Returns nil once closed, even if items remain pending: shutdown
// always wins over leftover work.
func (q *TaskQueue) DequeueBlocking() *WorkItem {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}

	if q.closed {
		return nil
	}

	item := q.items[0]
	q.items[0] = nil // avoid holding the reference
	q.items = q.items[1:]
	return item
}

// Clear atomically removes all items not yet dequeued and returns how many
// were dropped. An item already handed to the worker is unaffected.
func (q *TaskQueue) Clear() int {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	dropped := len(q.items)
	q.items = make([]*WorkItem, 0)
	return dropped
}

// Close marks the queue closed and wakes every waiter. Enqueue fails and
// DequeueBlocking returns nil from this point on. Close is idempotent.
func (q *TaskQueue) Close() {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	q.cond.Broadcast()
}

// Len returns the number of pending items.
func (q *TaskQueue) Len() int {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	return len(q.items)
}

// Closed reports whether the queue has been closed.
func (q *TaskQueue) Closed() bool {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	return q.closed
}
