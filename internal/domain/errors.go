package domain

import "errors"

var (
	// ErrQueueClosed is returned synchronously when work is enqueued after the
	// worker has been stopped. No event is emitted for such a call.
	ErrQueueClosed = errors.New("task queue is closed")

	// ErrShutdownTimeout is returned when a blocking stop exceeded the
	// configured shutdown bound before the worker goroutine exited.
	ErrShutdownTimeout = errors.New("timed out waiting for worker to stop")

	// ErrAlreadyStarted is returned when Start is called on a worker that is
	// not idle.
	ErrAlreadyStarted = errors.New("worker already started")
)
