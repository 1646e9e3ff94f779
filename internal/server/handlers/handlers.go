// Package handlers provides the HTTP handlers of the widget server.
package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/agentstation/recordsync"
	"github.com/agentstation/recordsync/cmd/application"
	"github.com/agentstation/recordsync/internal/server/registry"
	"github.com/agentstation/recordsync/internal/server/response"
	"github.com/agentstation/recordsync/internal/server/sse"
	ws "github.com/agentstation/recordsync/internal/server/websocket"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 64 << 10

// Deps are the handler dependencies.
type Deps struct {
	App            application.Application
	Sessions       *registry.Registry
	NewSession     func(kind string) (recordsync.Session, error)
	WSHub          *ws.Hub
	SSEBroadcaster *sse.Broadcaster
	Upgrader       websocket.Upgrader
	Logger         *zerolog.Logger

	// Context outlives requests; background boots run under it.
	Context       context.Context
	BootTimeout   time.Duration
	ActionTimeout time.Duration
	StartTime     time.Time
}

// Handlers provides access to all HTTP handlers.
type Handlers struct {
	Deps
}

// New creates a new Handlers instance.
func New(deps Deps) *Handlers {
	if deps.Context == nil {
		deps.Context = context.Background()
	}
	return &Handlers{Deps: deps}
}

// session looks up the session named by the {id} path value and writes a
// 404 when it does not exist.
func (h *Handlers) session(w http.ResponseWriter, r *http.Request) (recordsync.Session, bool) {
	id := r.PathValue("id")
	s, ok := h.Sessions.Get(id)
	if !ok {
		response.NotFound(w, "Session not found", "No live session with id "+id)
		return nil, false
	}
	return s, true
}

// actionContext detaches an action from the request so a client that
// goes away mid-call cannot leave the session half-transitioned.
func (h *Handlers) actionContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(r.Context()), h.ActionTimeout)
}

// decodeBody decodes an optional JSON body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if err != nil && err != io.EOF {
		response.BadRequest(w, "Invalid JSON body", err.Error())
		return false
	}
	return true
}
