// Package worker implements the background execution engine: a dedicated
// goroutine draining a priority task queue and reporting per-item completion
// or failure through the event bus.
//
// The engine is content-agnostic. It never interprets, retries, or schedules
// based on what a callable does; it only guarantees serialized execution,
// per-item fault isolation, and exactly one event per processed item.
package worker

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/artdept/pipeworks/internal/adapters/eventbus"
	"github.com/artdept/pipeworks/internal/domain"
	"github.com/artdept/pipeworks/internal/ports"
)

var _ ports.BackgroundWorker = (*BackgroundWorker)(nil)

const (
	defaultEventBufferSize = 16
	defaultShutdownTimeout = 30 * time.Second
)

// Opts holds tunables for a BackgroundWorker.
type Opts struct {
	// EventBufferSize is the channel capacity used for handler subscriptions.
	EventBufferSize int
	// ShutdownTimeout bounds a blocking Stop. Zero means wait forever.
	ShutdownTimeout time.Duration
}

func (o *Opts) setDefaults() {
	if o.EventBufferSize <= 0 {
		o.EventBufferSize = defaultEventBufferSize
	}
	if o.ShutdownTimeout < 0 {
		o.ShutdownTimeout = defaultShutdownTimeout
	}
}

// subscription tracks one handler channel so Stop can tear it down.
type subscription struct {
	topic string
	ch    eventbus.Subscriber
}

// BackgroundWorker composes the task queue, the worker loop and the event
// wiring behind the ports.BackgroundWorker interface. Exactly one goroutine
// executes callables per instance; any number of goroutines may enqueue.
type BackgroundWorker struct {
	queue *domain.TaskQueue
	bus   eventbus.EventBus
	log   zerolog.Logger
	opts  Opts

	state atomic.Int32

	mu         sync.Mutex // guards lifecycle transitions and subs
	cancelFunc context.CancelFunc
	eg         *errgroup.Group
	subs       []subscription
	dispatchWG sync.WaitGroup

	processed atomic.Uint64
	failed    atomic.Uint64
}

// New creates a worker around the given event bus. Call Start to launch the
// loop goroutine.
func New(bus eventbus.EventBus, log zerolog.Logger, opts Opts) *BackgroundWorker {
	opts.setDefaults()
	w := &BackgroundWorker{
		queue: domain.NewTaskQueue(),
		bus:   bus,
		log:   log.With().Str("component", "worker").Logger(),
		opts:  opts,
	}
	w.state.Store(int32(domain.StateIdle))
	return w
}

// Start launches the dedicated worker goroutine. Idle -> Running.
func (w *BackgroundWorker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.state.CompareAndSwap(int32(domain.StateIdle), int32(domain.StateRunning)) {
		return domain.ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.cancelFunc = cancel
	w.eg, ctx = errgroup.WithContext(ctx)
	w.eg.Go(func() error {
		return w.runLoop(ctx)
	})

	w.log.Info().Msg("worker started")
	return nil
}

// EnqueueWork queues a callable for background execution and returns its
// correlation id immediately. Never blocks. After Stop it fails with
// domain.ErrQueueClosed and no event is ever emitted for the call.
func (w *BackgroundWorker) EnqueueWork(fn domain.Callable, params domain.Params, priority domain.Priority) (string, error) {
	if fn == nil {
		return "", fmt.Errorf("cannot enqueue nil callable")
	}

	item := domain.NewWorkItem(fn, params, priority)
	if err := w.queue.Enqueue(item); err != nil {
		return "", err
	}

	w.log.Debug().
		Str("work_id", item.ID).
		Stringer("priority", item.Priority).
		Int("pending", w.queue.Len()).
		Msg("work enqueued")
	return item.ID, nil
}

// Clear removes all not-yet-started items. The in-flight item, if any, is
// unaffected. Cleared items never produce an event.
func (w *BackgroundWorker) Clear() int {
	dropped := w.queue.Clear()
	if dropped > 0 {
		w.log.Info().Int("dropped", dropped).Msg("pending queue cleared")
	}
	return dropped
}

// Stop shuts the worker down. Running -> Stopping -> Stopped. The queue is
// closed so no further items start; the in-flight callable is allowed to
// finish (its context is canceled, honoring it is the callable's choice).
// With waitForCompletion the call blocks until the loop goroutine exited,
// bounded by Opts.ShutdownTimeout; past the bound it returns
// domain.ErrShutdownTimeout while shutdown continues in the background.
// After a successful blocking Stop no event is emitted and no handler runs.
func (w *BackgroundWorker) Stop(waitForCompletion bool) error {
	w.mu.Lock()
	switch domain.RunState(w.state.Load()) {
	case domain.StateStopped:
		w.mu.Unlock()
		return nil
	case domain.StateIdle:
		// Never started: close the queue so enqueues fail, nothing to join.
		w.state.Store(int32(domain.StateStopped))
		w.queue.Close()
		w.closeSubsLocked()
		w.mu.Unlock()
		return nil
	case domain.StateRunning:
		w.state.Store(int32(domain.StateStopping))
		w.queue.Close()
		if w.cancelFunc != nil {
			w.cancelFunc()
		}
		w.log.Info().Bool("wait", waitForCompletion).Msg("worker stopping")
	case domain.StateStopping:
		// A concurrent Stop is already in flight; fall through and join it.
	}
	eg := w.eg
	w.mu.Unlock()

	if !waitForCompletion {
		go w.finish(eg)
		return nil
	}

	done := make(chan struct{})
	go func() {
		if eg != nil {
			_ = eg.Wait()
		}
		close(done)
	}()

	if w.opts.ShutdownTimeout > 0 {
		select {
		case <-done:
		case <-time.After(w.opts.ShutdownTimeout):
			w.log.Error().Dur("timeout", w.opts.ShutdownTimeout).Msg("shutdown timed out")
			go w.finish(eg)
			return domain.ErrShutdownTimeout
		}
	} else {
		<-done
	}

	w.finalize()
	return nil
}

// finish joins the loop goroutine in the background and then finalizes.
func (w *BackgroundWorker) finish(eg *errgroup.Group) {
	if eg != nil {
		_ = eg.Wait()
	}
	w.finalize()
}

// finalize marks the worker Stopped, tears down handler subscriptions and
// drains their dispatch goroutines.
func (w *BackgroundWorker) finalize() {
	w.mu.Lock()
	already := w.state.Swap(int32(domain.StateStopped)) == int32(domain.StateStopped)
	w.closeSubsLocked()
	w.mu.Unlock()

	w.dispatchWG.Wait()
	if !already {
		w.log.Info().
			Uint64("processed", w.processed.Load()).
			Uint64("failed", w.failed.Load()).
			Msg("worker stopped")
	}
}

// closeSubsLocked unsubscribes and closes every handler channel. Caller holds mu.
func (w *BackgroundWorker) closeSubsLocked() {
	for _, s := range w.subs {
		_ = w.bus.Unsubscribe(s.topic, s.ch) // bus may already be stopped
		close(s.ch)
	}
	w.subs = nil
}

// SubscribeCompleted registers a handler invoked exactly once per item whose
// callable succeeded. The handler runs on a dispatch goroutine owned by the
// worker, not on the caller's goroutine.
func (w *BackgroundWorker) SubscribeCompleted(handler func(workID string, result domain.Result)) error {
	sub, err := w.subscribe(domain.TopicWorkCompleted)
	if err != nil {
		return err
	}
	w.dispatchWG.Add(1)
	go func() {
		defer w.dispatchWG.Done()
		for ev := range sub {
			payload, ok := ev.Data.(domain.WorkCompleted)
			if !ok {
				continue
			}
			handler(payload.ID, payload.Result)
		}
	}()
	return nil
}

// SubscribeFailed registers a handler invoked exactly once per item whose
// callable returned an error or panicked.
func (w *BackgroundWorker) SubscribeFailed(handler func(workID string, errMsg string, trace string)) error {
	sub, err := w.subscribe(domain.TopicWorkFailed)
	if err != nil {
		return err
	}
	w.dispatchWG.Add(1)
	go func() {
		defer w.dispatchWG.Done()
		for ev := range sub {
			payload, ok := ev.Data.(domain.WorkFailed)
			if !ok {
				continue
			}
			handler(payload.ID, payload.Message, payload.Trace)
		}
	}()
	return nil
}

func (w *BackgroundWorker) subscribe(topic string) (eventbus.Subscriber, error) {
	sub, err := w.bus.Subscribe(topic, w.opts.EventBufferSize)
	if err != nil {
		return nil, err
	}
	w.mu.Lock()
	w.subs = append(w.subs, subscription{topic: topic, ch: sub})
	w.mu.Unlock()
	return sub, nil
}

// State reports the worker lifecycle state.
func (w *BackgroundWorker) State() domain.RunState {
	return domain.RunState(w.state.Load())
}

// Pending reports the number of items waiting in the queue.
func (w *BackgroundWorker) Pending() int {
	return w.queue.Len()
}

// runLoop is the single dedicated execution loop: suspend while the queue is
// empty, then pop one item, run its callable outside any lock and emit
// exactly one event for it. A failing callable never terminates the loop.
func (w *BackgroundWorker) runLoop(ctx context.Context) error {
	for {
		item := w.queue.DequeueBlocking()
		if item == nil {
			// Queue closed: cooperative shutdown.
			return nil
		}

		w.log.Debug().
			Str("work_id", item.ID).
			Dur("queued_for", time.Since(item.EnqueuedAt)).
			Msg("work started")

		started := time.Now()
		result, trace, err := w.invoke(ctx, item)
		elapsed := time.Since(started)

		if w.State() != domain.StateRunning {
			// Stop was requested while this item ran. The item finished, but
			// no event is emitted past that point.
			w.log.Debug().Str("work_id", item.ID).Msg("work finished during shutdown, event suppressed")
			return nil
		}

		if err != nil {
			w.failed.Add(1)
			w.log.Warn().
				Str("work_id", item.ID).
				Dur("elapsed", elapsed).
				Err(err).
				Msg("work failed")
			w.bus.Publish(domain.NewEvent(domain.TopicWorkFailed, domain.WorkFailed{
				ID:      item.ID,
				Message: err.Error(),
				Trace:   trace,
			}))
			continue
		}

		if result == nil {
			result = domain.Params{}
		}
		w.processed.Add(1)
		w.log.Debug().
			Str("work_id", item.ID).
			Dur("elapsed", elapsed).
			Msg("work completed")
		w.bus.Publish(domain.NewEvent(domain.TopicWorkCompleted, domain.WorkCompleted{
			ID:     item.ID,
			Result: result,
		}))
	}
}

// invoke runs one callable, converting a panic into an error with the
// recovered stack so a misbehaving callable cannot kill the loop.
func (w *BackgroundWorker) invoke(ctx context.Context, item *domain.WorkItem) (result domain.Result, trace string, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("callable panic: %v", r)
			trace = string(debug.Stack())
		}
	}()
	result, err = item.Fn(ctx, item.Params)
	return result, "", err
}
