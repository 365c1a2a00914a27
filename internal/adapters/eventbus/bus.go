package eventbus

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/artdept/pipeworks/internal/domain"
)

// Subscriber is a channel that receives events for a specific topic.
// Buffered, so a slow consumer does not block the publisher.
type Subscriber chan domain.Event

// EventBus defines the interface for publishing and subscribing to events.
type EventBus interface {
	Publish(event domain.Event)
	Subscribe(topic string, bufferSize int) (Subscriber, error)
	Unsubscribe(topic string, sub Subscriber) error
	Stop()
}

// SimpleEventBus is a basic in-memory event bus implementation using channels.
// Delivery is fire-and-forget: every subscriber of a topic receives every
// event published to it, with no acknowledgment and no backpressure on the
// publisher.
type SimpleEventBus struct {
	subscribers map[string]map[Subscriber]bool
	mu          sync.RWMutex
	stopChan    chan struct{}
	isStopped   bool
	log         zerolog.Logger
}

// NewSimpleEventBus creates a new SimpleEventBus.
func NewSimpleEventBus(log zerolog.Logger) *SimpleEventBus {
	return &SimpleEventBus{
		subscribers: make(map[string]map[Subscriber]bool),
		stopChan:    make(chan struct{}),
		log:         log.With().Str("component", "eventbus").Logger(),
	}
}

// Publish sends an event to all subscribers of the event's topic.
// Sends are non-blocking: if a subscriber's buffer is full the event is
// dropped for that subscriber and a warning is logged.
func (b *SimpleEventBus) Publish(event domain.Event) {
	b.mu.RLock()
	if b.isStopped {
		b.mu.RUnlock()
		b.log.Debug().Str("topic", event.Topic).Msg("bus stopped, publish ignored")
		return
	}

	subsMap, found := b.subscribers[event.Topic]
	if !found || len(subsMap) == 0 {
		b.mu.RUnlock()
		b.log.Debug().Str("topic", event.Topic).Msg("no subscribers for topic")
		return
	}

	// Snapshot the subscriber set so sends happen outside the lock.
	subsList := make([]Subscriber, 0, len(subsMap))
	for sub := range subsMap {
		subsList = append(subsList, sub)
	}
	b.mu.RUnlock()

	for _, sub := range subsList {
		select {
		case sub <- event:
		case <-b.stopChan:
			b.log.Debug().Str("topic", event.Topic).Msg("bus stopping during publish")
			return
		default:
			b.log.Warn().Str("topic", event.Topic).Msg("subscriber buffer full, event dropped")
		}
	}
}

// Subscribe creates a new subscriber channel for a given topic.
// bufferSize determines the capacity of the subscriber channel.
func (b *SimpleEventBus) Subscribe(topic string, bufferSize int) (Subscriber, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.isStopped {
		return nil, fmt.Errorf("eventbus is stopped")
	}

	if bufferSize <= 0 {
		bufferSize = 10
	}

	sub := make(Subscriber, bufferSize)
	if _, found := b.subscribers[topic]; !found {
		b.subscribers[topic] = make(map[Subscriber]bool)
	}
	b.subscribers[topic][sub] = true

	return sub, nil
}

// Unsubscribe removes a subscriber channel from a topic. Closing the channel
// remains the subscriber's responsibility.
func (b *SimpleEventBus) Unsubscribe(topic string, sub Subscriber) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	subsMap, found := b.subscribers[topic]
	if !found {
		return fmt.Errorf("topic %s not found", topic)
	}
	if _, subExists := subsMap[sub]; !subExists {
		return fmt.Errorf("subscriber not found for topic %s", topic)
	}

	delete(subsMap, sub)
	if len(subsMap) == 0 {
		delete(b.subscribers, topic)
	}
	return nil
}

// Stop signals the event bus to stop publishing and drops all subscriptions.
// Stop is idempotent.
func (b *SimpleEventBus) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.isStopped {
		return
	}
	close(b.stopChan)
	b.isStopped = true
	b.subscribers = make(map[string]map[Subscriber]bool)
	b.log.Debug().Msg("event bus stopped")
}
