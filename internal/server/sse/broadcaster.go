// Package sse streams session events as Server-Sent Events.
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Event represents an SSE event.
type Event struct {
	Event   string `json:"event,omitempty"`
	ID      string `json:"id,omitempty"`
	Session string `json:"-"`
	Data    any    `json:"data"`
}

// client is one open stream, watching a single session.
type client struct {
	session string
	events  chan Event
}

// Broadcaster manages Server-Sent Events connections.
type Broadcaster struct {
	clients    map[*client]struct{}
	newClients chan *client
	closed     chan *client
	events     chan Event
	mu         sync.RWMutex
	logger     *zerolog.Logger
}

// NewBroadcaster creates a new SSE broadcaster.
func NewBroadcaster(logger *zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		clients:    make(map[*client]struct{}),
		newClients: make(chan *client, 10),
		closed:     make(chan *client, 10),
		events:     make(chan Event, 256),
		logger:     logger,
	}
}

// Run starts the broadcaster's main loop until ctx is cancelled.
func (b *Broadcaster) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			b.mu.Lock()
			for c := range b.clients {
				close(c.events)
			}
			b.clients = make(map[*client]struct{})
			b.mu.Unlock()
			b.logger.Info().Msg("SSE broadcaster shut down")
			return

		case c := <-b.newClients:
			b.mu.Lock()
			b.clients[c] = struct{}{}
			count := len(b.clients)
			b.mu.Unlock()
			b.logger.Debug().
				Str("session_id", c.session).
				Int("total_clients", count).
				Msg("SSE client connected")

		case c := <-b.closed:
			b.mu.Lock()
			if _, ok := b.clients[c]; ok {
				delete(b.clients, c)
				close(c.events)
			}
			count := len(b.clients)
			b.mu.Unlock()
			b.logger.Debug().
				Str("session_id", c.session).
				Int("total_clients", count).
				Msg("SSE client disconnected")

		case event := <-b.events:
			b.mu.RLock()
			for c := range b.clients {
				if event.Session != "" && c.session != event.Session {
					continue
				}
				select {
				case c.events <- event:
				default:
					b.logger.Warn().Str("session_id", c.session).Msg("SSE client buffer full, event skipped")
				}
			}
			b.mu.RUnlock()
		}
	}
}

// Broadcast queues an event. Events with a Session reach only clients
// watching that session.
func (b *Broadcaster) Broadcast(event Event) {
	select {
	case b.events <- event:
	default:
		b.logger.Warn().Msg("SSE broadcast channel full, event dropped")
	}
}

// ClientCount returns the number of connected SSE clients.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Serve streams the events of one session until the request ends.
func (b *Broadcaster) Serve(w http.ResponseWriter, r *http.Request, sessionID string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	c := &client{session: sessionID, events: make(chan Event, 64)}
	b.newClients <- c
	defer func() { b.closed <- c }()

	b.writeEvent(w, flusher, Event{
		Event: "connected",
		Data: map[string]any{
			"session_id": sessionID,
			"timestamp":  time.Now(),
		},
	})

	for {
		select {
		case event, open := <-c.events:
			if !open {
				return
			}
			b.writeEvent(w, flusher, event)

		case <-r.Context().Done():
			return
		}
	}
}

// writeEvent writes one SSE frame and flushes it.
func (b *Broadcaster) writeEvent(w http.ResponseWriter, flusher http.Flusher, event Event) {
	data, err := json.Marshal(event.Data)
	if err != nil {
		b.logger.Error().Err(err).Msg("Failed to marshal SSE event data")
		return
	}
	if event.Event != "" {
		_, _ = fmt.Fprintf(w, "event: %s\n", event.Event)
	}
	if event.ID != "" {
		_, _ = fmt.Fprintf(w, "id: %s\n", event.ID)
	}
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}
