package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Priority defines the queue-jump class of a work item.
type Priority int

const (
	// PriorityNormal items are appended to the pending queue (FIFO).
	PriorityNormal Priority = iota
	// PriorityImmediate items are inserted ahead of all pending Normal items.
	// An Immediate item never preempts an item that is already executing.
	PriorityImmediate
)

// String returns a human-readable name for the priority.
func (p Priority) String() string {
	switch p {
	case PriorityNormal:
		return "normal"
	case PriorityImmediate:
		return "immediate"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// RunState defines the lifecycle state of a background worker instance.
type RunState int32

const (
	// StateIdle means the worker has been created but not started.
	StateIdle RunState = iota
	// StateRunning means the worker loop is draining the queue.
	StateRunning
	// StateStopping means stop was requested; the in-flight item may still finish.
	StateStopping
	// StateStopped means the worker loop has exited. No further events are emitted.
	StateStopped
)

// String returns a human-readable name for the state.
func (s RunState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Params is the opaque parameter payload handed to a callable.
// The engine never inspects its content.
type Params map[string]interface{}

// Result is the opaque payload a callable produces on success.
type Result interface{}

// Callable is a unit of background work. It runs synchronously on the worker's
// own goroutine. The context is canceled when the worker is stopped; honoring
// it is cooperative - the engine never preempts a running callable.
//
// Callables must not touch UI state directly: results are marshalled back to
// the caller through the completion/failure events.
type Callable func(ctx context.Context, params Params) (Result, error)

// WorkItem bundles one enqueued unit of work. It is immutable after creation:
// owned by the queue until dequeued, then by the executing goroutine, and
// discarded once its single completion or failure event has been emitted.
type WorkItem struct {
	ID         string
	Fn         Callable
	Params     Params
	Priority   Priority
	EnqueuedAt time.Time
}

// NewWorkItem creates a work item with a fresh unique id.
func NewWorkItem(fn Callable, params Params, priority Priority) *WorkItem {
	return &WorkItem{
		ID:         NewWorkID(),
		Fn:         fn,
		Params:     params,
		Priority:   priority,
		EnqueuedAt: time.Now(),
	}
}

// NewWorkID generates an opaque 32-character hex token used to correlate
// emitted events back to the original enqueue call.
func NewWorkID() string {
	return fmt.Sprintf("%x", [16]byte(uuid.New()))
}

// Typed wraps a statically typed work function into a Callable. The params
// payload is expected under the "input" key; a mismatched type fails the item
// instead of panicking the loop.
func Typed[P any, R any](fn func(ctx context.Context, input P) (R, error)) Callable {
	return func(ctx context.Context, params Params) (Result, error) {
		raw, ok := params["input"]
		if !ok {
			var zero P
			out, err := fn(ctx, zero)
			return out, err
		}
		in, ok := raw.(P)
		if !ok {
			return nil, fmt.Errorf("typed callable: unexpected input type %T", raw)
		}
		out, err := fn(ctx, in)
		return out, err
	}
}
