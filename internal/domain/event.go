package domain

import "time"

// Topics published by the background worker.
const (
	// TopicWorkCompleted carries a WorkCompleted payload.
	TopicWorkCompleted = "work.completed"
	// TopicWorkFailed carries a WorkFailed payload.
	TopicWorkFailed = "work.failed"
)

// Event represents a message passed through the event bus.
type Event struct {
	Topic     string      // Type or category of the event (e.g., "work.completed")
	Data      interface{} // Payload of the event
	Timestamp time.Time   // When the event occurred
}

// NewEvent creates a new event.
func NewEvent(topic string, data interface{}) Event {
	return Event{
		Topic:     topic,
		Data:      data,
		Timestamp: time.Now(),
	}
}

// WorkCompleted is emitted exactly once for every item whose callable returned
// without error. Result is opaque to the engine.
type WorkCompleted struct {
	ID     string
	Result Result
}

// WorkFailed is emitted exactly once for every item whose callable returned an
// error or panicked. Trace holds the recovered stack for panics and is empty
// for plain error returns.
type WorkFailed struct {
	ID      string
	Message string
	Trace   string
}
