package ports

import "github.com/artdept/pipeworks/internal/domain"

// BackgroundWorker defines the port through which collaborators hand work to
// the background execution engine. The front-end enqueues callables and
// registers handlers; the engine treats params and results as opaque.
//
// Handlers run off the caller's goroutine: callers that own thread-affine
// state (a UI loop, a DCC session) must redispatch onto their own thread.
type BackgroundWorker interface {
	// Start launches the dedicated worker goroutine.
	Start() error

	// EnqueueWork queues a callable and returns its correlation id without
	// blocking. Fails with domain.ErrQueueClosed after the worker stopped.
	EnqueueWork(fn domain.Callable, params domain.Params, priority domain.Priority) (string, error)

	// Stop shuts the worker down cooperatively. Pending items are abandoned;
	// an in-flight callable is allowed to finish and is never interrupted.
	// With waitForCompletion the call blocks until the worker goroutine has
	// fully exited, after which no further events are emitted.
	Stop(waitForCompletion bool) error

	// Clear removes all not-yet-started items and reports how many were
	// dropped. No event is ever emitted for a cleared item.
	Clear() int

	// SubscribeCompleted registers a handler invoked once per successful item.
	SubscribeCompleted(handler func(workID string, result domain.Result)) error

	// SubscribeFailed registers a handler invoked once per failed item.
	// trace is empty unless the callable panicked.
	SubscribeFailed(handler func(workID string, errMsg string, trace string)) error

	// State reports the worker lifecycle state.
	State() domain.RunState

	// Pending reports the number of items waiting in the queue.
	Pending() int
}
