package handlers

import (
	"context"
	"net/http"

	"github.com/agentstation/recordsync"
	"github.com/agentstation/recordsync/internal/kinds"
	"github.com/agentstation/recordsync/internal/server/response"
	"github.com/agentstation/recordsync/pkg/identity"
	"github.com/agentstation/recordsync/pkg/logging"
	"github.com/agentstation/recordsync/pkg/records"
)

// CreateRequest opens a session for one page instance.
type CreateRequest struct {
	Kind     string `json:"kind"`
	Query    string `json:"query"`
	Referrer string `json:"referrer"`
}

// Created is the body of a successful create.
type Created struct {
	ID    string           `json:"id"`
	Kind  string           `json:"kind"`
	State recordsync.State `json:"state"`
}

// IdentityRequest supplies a manual identity.
type IdentityRequest struct {
	Identity string `json:"identity"`
}

// EditRequest sets a field's current value.
type EditRequest struct {
	Value string `json:"value"`
}

// BlurResult reports an autosave.
type BlurResult struct {
	Saved   bool            `json:"saved"`
	Binding records.Binding `json:"binding"`
}

// HandleCreateSession handles POST /api/v1/sessions. Boot runs in the
// background; progress arrives as state events.
func (h *Handlers) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Kind == "" {
		req.Kind = kinds.DefaultKind
	}

	s, err := h.NewSession(req.Kind)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}

	env := identity.Env{Query: req.Query, Referrer: req.Referrer}
	go h.boot(s, env)

	response.Created(w, Created{ID: s.ID(), Kind: s.Kind().Name, State: s.State()})
}

func (h *Handlers) boot(s recordsync.Session, env identity.Env) {
	ctx, cancel := context.WithTimeout(h.Context, h.BootTimeout)
	defer cancel()
	ctx = logging.WithSession(logging.WithLogger(ctx, h.Logger), s.ID())

	if err := s.Start(ctx, env); err != nil {
		logging.FromContext(ctx).Warn().Err(err).Str("state", s.State().String()).Msg("Session boot ended with error")
	}
}

// HandleGetSession handles GET /api/v1/sessions/{id}.
func (h *Handlers) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	response.OK(w, s.Snapshot())
}

// HandleDeleteSession handles DELETE /api/v1/sessions/{id}, sent when the
// page navigates away.
func (h *Handlers) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.Sessions.Delete(s.ID())
	w.WriteHeader(http.StatusNoContent)
}

// HandleFields handles GET /api/v1/sessions/{id}/fields.
func (h *Handlers) HandleFields(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	fields, err := s.Fields(r.Context())
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	response.OK(w, fields)
}

// HandleSetIdentity handles POST /api/v1/sessions/{id}/identity.
func (h *Handlers) HandleSetIdentity(w http.ResponseWriter, r *http.Request) {
	var req IdentityRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.act(w, r, func(ctx context.Context, s recordsync.Session) error {
		return s.SetIdentity(ctx, req.Identity)
	})
}

// HandleRetry handles POST /api/v1/sessions/{id}/retry.
func (h *Handlers) HandleRetry(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, func(ctx context.Context, s recordsync.Session) error {
		return s.Retry(ctx)
	})
}

// HandleReload handles POST /api/v1/sessions/{id}/reload.
func (h *Handlers) HandleReload(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, func(ctx context.Context, s recordsync.Session) error {
		return s.Reload(ctx)
	})
}

// HandleSubmit handles POST /api/v1/sessions/{id}/submit.
func (h *Handlers) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, func(ctx context.Context, s recordsync.Session) error {
		return s.Submit(ctx)
	})
}

// act runs a session action and answers with the resulting snapshot.
func (h *Handlers) act(w http.ResponseWriter, r *http.Request, fn func(context.Context, recordsync.Session) error) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	ctx, cancel := h.actionContext(r)
	defer cancel()

	if err := fn(ctx, s); err != nil {
		response.ErrorFromType(w, err)
		return
	}
	response.OK(w, s.Snapshot())
}

// HandleEdit handles PUT /api/v1/sessions/{id}/fields/{field}.
func (h *Handlers) HandleEdit(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req EditRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.Edit(r.PathValue("field"), req.Value)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	response.OK(w, result)
}

// HandleBlur handles POST /api/v1/sessions/{id}/fields/{field}/blur.
func (h *Handlers) HandleBlur(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	ctx, cancel := h.actionContext(r)
	defer cancel()

	fieldID := r.PathValue("field")
	saved, err := s.Blur(ctx, fieldID)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	binding, _ := s.Snapshot().Binding(fieldID)
	response.OK(w, BlurResult{Saved: saved, Binding: binding})
}
