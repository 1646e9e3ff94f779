package server

import (
	"net/http"

	"github.com/agentstation/recordsync/internal/server/handlers"
	"github.com/agentstation/recordsync/internal/server/middleware"
)

// setupRouter creates the HTTP handler with routes and middleware.
func (s *Server) setupRouter() http.Handler {
	mux := http.NewServeMux()

	h := handlers.New(handlers.Deps{
		App:            s.app,
		Sessions:       s.sessions,
		NewSession:     s.newSession,
		WSHub:          s.wsHub,
		SSEBroadcaster: s.sseBroadcaster,
		Upgrader:       s.upgrader,
		Logger:         s.logger,
		Context:        s.ctx,
		BootTimeout:    s.config.BootTimeout,
		ActionTimeout:  s.config.ActionTimeout,
		StartTime:      s.startTime,
	})

	s.registerRoutes(mux, h)
	return s.applyMiddleware(mux)
}

// registerRoutes registers all HTTP routes.
func (s *Server) registerRoutes(mux *http.ServeMux, h *handlers.Handlers) {
	prefix := s.config.PathPrefix
	session := prefix + "/sessions/{id}"

	mux.HandleFunc("GET /favicon.ico", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	// Public health endpoints
	mux.HandleFunc("GET /health", h.HandleHealth)
	mux.HandleFunc("GET "+prefix+"/health", h.HandleHealth)
	mux.HandleFunc("GET "+prefix+"/ready", h.HandleReady)

	mux.HandleFunc("GET "+prefix+"/kinds", h.HandleKinds)

	// Sessions
	mux.HandleFunc("POST "+prefix+"/sessions", h.HandleCreateSession)
	mux.HandleFunc("GET "+session, h.HandleGetSession)
	mux.HandleFunc("DELETE "+session, h.HandleDeleteSession)
	mux.HandleFunc("GET "+session+"/fields", h.HandleFields)
	mux.HandleFunc("POST "+session+"/identity", h.HandleSetIdentity)
	mux.HandleFunc("POST "+session+"/retry", h.HandleRetry)
	mux.HandleFunc("POST "+session+"/reload", h.HandleReload)
	mux.HandleFunc("PUT "+session+"/fields/{field}", h.HandleEdit)
	mux.HandleFunc("POST "+session+"/fields/{field}/blur", h.HandleBlur)
	mux.HandleFunc("POST "+session+"/submit", h.HandleSubmit)

	// Real-time endpoints
	mux.HandleFunc("GET "+session+"/events/ws", h.HandleWebSocket)
	mux.HandleFunc("GET "+session+"/events/stream", h.HandleSSE)
}

// applyMiddleware wraps handler with the middleware chain.
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	cfg := s.config

	if s.rateLimiter != nil {
		handler = middleware.RateLimit(s.rateLimiter)(handler)
	}

	if cfg.AuthEnabled {
		authConfig := middleware.DefaultAuthConfig()
		authConfig.Enabled = true
		authConfig.APIKey = cfg.APIKey
		if cfg.AuthHeader != "" {
			authConfig.HeaderName = cfg.AuthHeader
		}
		authConfig.PublicPaths = append(authConfig.PublicPaths, cfg.PathPrefix+"/health", cfg.PathPrefix+"/ready")
		handler = middleware.Auth(authConfig, s.logger)(handler)
	}

	if cfg.CORSEnabled {
		corsConfig := middleware.DefaultCORSConfig()
		corsConfig.Origins = s.origins
		handler = middleware.CORS(corsConfig)(handler)
	}

	return middleware.Chain(
		middleware.Recovery(s.logger),
		middleware.Logger(s.logger),
	)(handler)
}
