package adapters

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/recordsync/internal/server/events"
	"github.com/agentstation/recordsync/internal/server/sse"
	ws "github.com/agentstation/recordsync/internal/server/websocket"
)

func TestSubscribersSatisfyInterface(t *testing.T) {
	var _ events.Subscriber = (*WebSocketSubscriber)(nil)
	var _ events.Subscriber = (*SSESubscriber)(nil)
}

func TestSSESubscriberSend(t *testing.T) {
	logger := zerolog.Nop()
	b := sse.NewBroadcaster(&logger)
	sub := NewSSESubscriber(b)

	for _, typ := range []events.EventType{events.StateChanged, events.FieldSaved, events.FieldFailed, events.WorkflowTriggered} {
		assert.NoError(t, sub.Send(events.Event{Type: typ, SessionID: "s-1", Timestamp: time.Now()}))
	}
	assert.Equal(t, uint64(4), sub.seq.Load())
	assert.NoError(t, sub.Close())
}

func TestWebSocketSubscriberDelivers(t *testing.T) {
	logger := zerolog.Nop()
	hub := ws.NewHub(&logger)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	client := ws.NewClient("c-1", "s-1", hub, nil)
	hub.Register(client)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	sub := NewWebSocketSubscriber(hub)
	require.NoError(t, sub.Send(events.Event{Type: events.FieldSaved, SessionID: "s-1", Data: "rate"}))
	assert.NoError(t, sub.Close())
}

func TestBrokerFansOutToBothTransports(t *testing.T) {
	logger := zerolog.Nop()
	broker := events.NewBroker(&logger)
	hub := ws.NewHub(&logger)
	b := sse.NewBroadcaster(&logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go broker.Run(ctx)
	go hub.Run(ctx)
	go b.Run(ctx)

	sseSub := NewSSESubscriber(b)
	broker.Subscribe(NewWebSocketSubscriber(hub))
	broker.Subscribe(sseSub)
	require.Eventually(t, func() bool { return broker.SubscriberCount() == 2 }, time.Second, 5*time.Millisecond)

	broker.Publish("s-1", events.StateChanged, map[string]string{"to": "ready"})
	assert.Eventually(t, func() bool { return sseSub.seq.Load() == 1 }, time.Second, 5*time.Millisecond)
}
