package handlers

import (
	"net/http"
	"time"

	"github.com/agentstation/recordsync/internal/server/response"
)

// HandleHealth handles GET /health (liveness).
func (h *Handlers) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	response.OK(w, map[string]any{
		"status":  "healthy",
		"service": "recordsync",
		"version": h.App.Version(),
	})
}

// HandleReady handles GET /api/v1/ready.
func (h *Handlers) HandleReady(w http.ResponseWriter, _ *http.Request) {
	reg, err := h.App.Kinds()
	if err != nil {
		response.ServiceUnavailable(w, "Kind profiles not available")
		return
	}

	response.OK(w, map[string]any{
		"status":            "ready",
		"kinds":             reg.Names(),
		"sessions":          h.Sessions.GetStats(),
		"websocket_clients": h.WSHub.ClientCount(),
		"sse_clients":       h.SSEBroadcaster.ClientCount(),
		"uptime":            time.Since(h.StartTime).Round(time.Second).String(),
	})
}

// HandleKinds handles GET /api/v1/kinds.
func (h *Handlers) HandleKinds(w http.ResponseWriter, _ *http.Request) {
	reg, err := h.App.Kinds()
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	response.OK(w, reg.List())
}
