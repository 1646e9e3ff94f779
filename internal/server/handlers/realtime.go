package handlers

import (
	"net/http"

	"github.com/google/uuid"

	ws "github.com/agentstation/recordsync/internal/server/websocket"
)

// HandleWebSocket handles GET /api/v1/sessions/{id}/events/ws.
func (h *Handlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	conn, err := h.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Logger.Warn().Err(err).Str("session_id", s.ID()).Msg("WebSocket upgrade failed")
		return
	}

	client := ws.NewClient(uuid.NewString(), s.ID(), h.WSHub, conn)
	h.WSHub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}

// HandleSSE handles GET /api/v1/sessions/{id}/events/stream.
func (h *Handlers) HandleSSE(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.SSEBroadcaster.Serve(w, r, s.ID())
}
