// Package server provides the HTTP backend of the approval widget. It owns
// one recordsync session per page instance and streams session events to
// the page over WebSocket or SSE.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/agentstation/recordsync"
	"github.com/agentstation/recordsync/cmd/application"
	"github.com/agentstation/recordsync/internal/matcher"
	"github.com/agentstation/recordsync/internal/server/events"
	"github.com/agentstation/recordsync/internal/server/events/adapters"
	"github.com/agentstation/recordsync/internal/server/middleware"
	"github.com/agentstation/recordsync/internal/server/registry"
	"github.com/agentstation/recordsync/internal/server/sse"
	ws "github.com/agentstation/recordsync/internal/server/websocket"
	"github.com/agentstation/recordsync/pkg/errors"
	"github.com/agentstation/recordsync/pkg/records"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	app            application.Application
	sessions       *registry.Registry
	fields         *gocache.Cache
	broker         *events.Broker
	wsHub          *ws.Hub
	sseBroadcaster *sse.Broadcaster
	rateLimiter    *middleware.RateLimiter
	upgrader       websocket.Upgrader
	origins        *matcher.Set
	logger         *zerolog.Logger
	config         Config
	ctx            context.Context
	cancel         context.CancelFunc
	startTime      time.Time
}

// New creates a new server instance with the given configuration.
func New(app application.Application, cfg Config) (*Server, error) {
	logger := app.Logger()
	defaults := DefaultConfig()
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = defaults.SessionTTL
	}
	if cfg.FieldsTTL == 0 {
		cfg.FieldsTTL = defaults.FieldsTTL
	}
	if cfg.BootTimeout == 0 {
		cfg.BootTimeout = defaults.BootTimeout
	}
	if cfg.ActionTimeout == 0 {
		cfg.ActionTimeout = defaults.ActionTimeout
	}
	if cfg.PathPrefix == "" {
		cfg.PathPrefix = defaults.PathPrefix
	}

	if _, err := app.Kinds(); err != nil {
		return nil, err
	}
	origins, err := matcher.Origins(cfg.CORSOrigins)
	if err != nil {
		return nil, errors.NewConfigError("server", "invalid CORS origin", err)
	}

	broker := events.NewBroker(logger)
	wsHub := ws.NewHub(logger)
	sseBroadcaster := sse.NewBroadcaster(logger)
	broker.Subscribe(adapters.NewWebSocketSubscriber(wsHub))
	broker.Subscribe(adapters.NewSSESubscriber(sseBroadcaster))

	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		app:            app,
		sessions:       registry.New(cfg.SessionTTL, cfg.SessionTTL/2, logger),
		fields:         gocache.New(cfg.FieldsTTL, cfg.FieldsTTL),
		broker:         broker,
		wsHub:          wsHub,
		sseBroadcaster: sseBroadcaster,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(cfg.CORSEnabled, origins),
		},
		origins:   origins,
		logger:    logger,
		config:    cfg,
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
	}
	if cfg.RateLimit > 0 {
		s.rateLimiter = middleware.NewRateLimiter(cfg.RateLimit, logger)
	}

	s.sessions.OnRemoved(func(id string, _ recordsync.Session) {
		s.broker.Publish(id, events.SessionExpired, map[string]any{"session_id": id})
	})

	logger.Debug().
		Dur("session_ttl", cfg.SessionTTL).
		Int("rate_limit", cfg.RateLimit).
		Msg("Server instance created")
	return s, nil
}

// newSession creates a session for a page, publishes its hooks to the
// broker and registers it.
func (s *Server) newSession(kind string) (recordsync.Session, error) {
	session, err := s.app.NewSession(kind,
		recordsync.WithID(uuid.NewString()),
		recordsync.WithFieldsCache(s.fields),
	)
	if err != nil {
		return nil, err
	}
	s.connectHooks(session)
	s.sessions.Put(session)
	return session, nil
}

// connectHooks registers session hooks that publish to the broker.
func (s *Server) connectHooks(session recordsync.Session) {
	id := session.ID()

	session.OnStateChange(func(from, to recordsync.State) {
		s.broker.Publish(id, events.StateChanged, map[string]any{
			"from": from,
			"to":   to,
		})
	})

	session.OnFieldSaved(func(fieldID, value string) {
		s.broker.Publish(id, events.FieldSaved, map[string]any{
			"field": fieldID,
			"value": value,
		})
	})

	session.OnFieldFailed(func(fieldID string, failure *errors.Failure) {
		s.broker.Publish(id, events.FieldFailed, map[string]any{
			"field":   fieldID,
			"failure": failure,
		})
	})

	session.OnWorkflow(func(invocation records.WorkflowInvocation) {
		s.broker.Publish(id, events.WorkflowTriggered, invocation)
	})
}

// checkOrigin applies the CORS origin patterns to WebSocket upgrades.
func checkOrigin(enabled bool, origins *matcher.Set) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || !enabled || origins.Empty() {
			return true
		}
		return origins.Match(origin)
	}
}

// Start starts background services (broker, WebSocket hub, SSE broadcaster).
func (s *Server) Start() {
	go s.broker.Run(s.ctx)
	go s.wsHub.Run(s.ctx)
	go s.sseBroadcaster.Run(s.ctx)
	if s.rateLimiter != nil {
		go s.sweepVisitors()
	}
	s.logger.Debug().Msg("Background services started")
}

func (s *Server) sweepVisitors() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.rateLimiter.Sweep()
		}
	}
}

// Handler returns the configured http.Handler with middleware chain applied.
func (s *Server) Handler() http.Handler {
	return s.setupRouter()
}

// Shutdown stops background services. Sessions still booting see their
// context cancelled.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Int("sessions", s.sessions.Len()).Msg("Shutting down server background services")
	s.cancel()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

// Sessions returns the session registry.
func (s *Server) Sessions() *registry.Registry {
	return s.sessions
}

// Broker returns the event broker for publishing events.
func (s *Server) Broker() *events.Broker {
	return s.broker
}

// StartTime returns the server start time for uptime calculations.
func (s *Server) StartTime() time.Time {
	return s.startTime
}
