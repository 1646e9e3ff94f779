package events

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// queueSize bounds events waiting for dispatch.
const queueSize = 256

// Broker distributes session events to every registered subscriber. Events
// are dispatched in publish order from a single goroutine.
type Broker struct {
	mu          sync.RWMutex
	subscribers []Subscriber
	queue       chan Event
	logger      *zerolog.Logger
	now         func() time.Time
}

// NewBroker creates a new event broker.
func NewBroker(logger *zerolog.Logger) *Broker {
	return &Broker{
		queue:  make(chan Event, queueSize),
		logger: logger,
		now:    time.Now,
	}
}

// Run dispatches queued events until ctx is cancelled, then closes every
// subscriber.
func (b *Broker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			b.mu.Lock()
			for _, sub := range b.subscribers {
				_ = sub.Close()
			}
			b.subscribers = nil
			b.mu.Unlock()
			b.logger.Info().Msg("Event broker shut down")
			return
		case event := <-b.queue:
			b.dispatch(event)
		}
	}
}

func (b *Broker) dispatch(event Event) {
	b.mu.RLock()
	subs := slices.Clone(b.subscribers)
	b.mu.RUnlock()

	for _, sub := range subs {
		if err := sub.Send(event); err != nil {
			b.logger.Warn().
				Err(err).
				Str("event_type", string(event.Type)).
				Str("session_id", event.SessionID).
				Msg("Failed to send event to subscriber")
		}
	}
}

// Publish queues an event for a session. Events are dropped when the
// queue is full.
func (b *Broker) Publish(sessionID string, eventType EventType, data any) {
	event := Event{
		Type:      eventType,
		SessionID: sessionID,
		Timestamp: b.now(),
		Data:      data,
	}
	select {
	case b.queue <- event:
	default:
		b.logger.Warn().
			Str("event_type", string(eventType)).
			Str("session_id", sessionID).
			Msg("Event queue full, event dropped")
	}
}

// Subscribe registers a subscriber for all subsequent events.
func (b *Broker) Subscribe(sub Subscriber) {
	b.mu.Lock()
	b.subscribers = append(b.subscribers, sub)
	count := len(b.subscribers)
	b.mu.Unlock()
	b.logger.Debug().Int("total_subscribers", count).Msg("Subscriber registered")
}

// Unsubscribe removes and closes a subscriber.
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	i := slices.Index(b.subscribers, sub)
	if i >= 0 {
		b.subscribers = slices.Delete(b.subscribers, i, i+1)
	}
	count := len(b.subscribers)
	b.mu.Unlock()

	if i >= 0 {
		_ = sub.Close()
	}
	b.logger.Debug().Int("total_subscribers", count).Msg("Subscriber unregistered")
}

// SubscriberCount returns the current number of subscribers.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
