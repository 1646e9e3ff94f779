// Package serve provides the serve command, which runs the widget backend.
package serve

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/agentstation/recordsync/cmd/application"
	"github.com/agentstation/recordsync/internal/server"
)

// ShutdownTimeout bounds connection draining on exit.
const ShutdownTimeout = 30 * time.Second

// NewCommand creates the serve command.
func NewCommand(app application.Application) *cobra.Command {
	defaults := server.DefaultConfig()
	cmd := &cobra.Command{
		Use:     "serve",
		GroupID: "core",
		Short:   "Serve the widget backend",
		Long: `Serve starts the HTTP backend for embedded widget pages.

Each page opens a session, which connects to the host bridge, resolves the
record identity and loads the record in the background. The page then
edits fields, autosaves them on blur and submits the record for approval.

Session state changes, field saves and workflow triggers are pushed over
WebSocket ({prefix}/sessions/{id}/events/ws) and Server-Sent Events
({prefix}/sessions/{id}/events/stream).`,
		Example: `  recordsync serve
  recordsync serve --port 3000 --cors-origins https://crm.example.com
  recordsync serve --auth --rate-limit 120 --session-ttl 1h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := configFromFlags(cmd)
			if err != nil {
				return err
			}
			return run(cmd.Context(), app, cfg)
		},
	}

	f := cmd.Flags()
	f.IntP("port", "p", defaults.Port, "server port")
	f.String("host", defaults.Host, "bind address")
	f.String("prefix", defaults.PathPrefix, "API path prefix")
	f.Bool("cors", false, "enable CORS for all origins")
	f.StringSlice("cors-origins", nil, "allowed CORS origins (comma-separated)")
	f.Bool("auth", false, "require an API key (API_KEY)")
	f.String("auth-header", defaults.AuthHeader, "API key header name")
	f.Int("rate-limit", defaults.RateLimit, "requests per minute per client IP (0 to disable)")
	f.Duration("session-ttl", defaults.SessionTTL, "idle lifetime of a session")
	f.Duration("fields-ttl", defaults.FieldsTTL, "field metadata cache lifetime")
	f.Duration("boot-timeout", defaults.BootTimeout, "bound on a session boot")
	f.Duration("action-timeout", defaults.ActionTimeout, "bound on retry, reload, autosave and submit")
	f.Duration("read-timeout", defaults.ReadTimeout, "HTTP read timeout")
	f.Duration("write-timeout", defaults.WriteTimeout, "HTTP write timeout (0 keeps event streams open)")
	f.Duration("idle-timeout", defaults.IdleTimeout, "HTTP idle timeout")
	return cmd
}

// configFromFlags builds the server configuration. HTTP_HOST and HTTP_PORT
// override the flag defaults.
func configFromFlags(cmd *cobra.Command) (server.Config, error) {
	f := cmd.Flags()
	cfg := server.DefaultConfig()
	cfg.Port, _ = f.GetInt("port")
	cfg.Host, _ = f.GetString("host")
	cfg.PathPrefix, _ = f.GetString("prefix")
	cfg.CORSEnabled, _ = f.GetBool("cors")
	cfg.CORSOrigins, _ = f.GetStringSlice("cors-origins")
	cfg.AuthEnabled, _ = f.GetBool("auth")
	cfg.AuthHeader, _ = f.GetString("auth-header")
	cfg.RateLimit, _ = f.GetInt("rate-limit")
	cfg.SessionTTL, _ = f.GetDuration("session-ttl")
	cfg.FieldsTTL, _ = f.GetDuration("fields-ttl")
	cfg.BootTimeout, _ = f.GetDuration("boot-timeout")
	cfg.ActionTimeout, _ = f.GetDuration("action-timeout")
	cfg.ReadTimeout, _ = f.GetDuration("read-timeout")
	cfg.WriteTimeout, _ = f.GetDuration("write-timeout")
	cfg.IdleTimeout, _ = f.GetDuration("idle-timeout")
	cfg.APIKey = os.Getenv("API_KEY")

	if len(cfg.CORSOrigins) > 0 {
		cfg.CORSEnabled = true
	}
	if env := os.Getenv("HTTP_HOST"); env != "" && !f.Changed("host") {
		cfg.Host = env
	}
	if env := os.Getenv("HTTP_PORT"); env != "" && !f.Changed("port") {
		port, err := parsePort(env)
		if err != nil {
			return cfg, err
		}
		cfg.Port = port
	}
	if cfg.AuthEnabled && cfg.APIKey == "" {
		return cfg, fmt.Errorf("--auth requires API_KEY to be set")
	}
	return cfg, nil
}

func run(ctx context.Context, app application.Application, cfg server.Config) error {
	logger := app.Logger()

	// fail fast on a bad bridge configuration rather than on the first page
	if _, err := app.Bridge(); err != nil {
		return err
	}

	srv, err := server.New(app, cfg)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	srv.Start()

	httpServer := &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:           srv.Handler(),
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	logger.Info().
		Str("addr", httpServer.Addr).
		Str("prefix", cfg.PathPrefix).
		Bool("cors", cfg.CORSEnabled).
		Bool("auth", cfg.AuthEnabled).
		Int("rate_limit", cfg.RateLimit).
		Dur("session_ttl", cfg.SessionTTL).
		Msg("Starting widget server")

	return serveUntilDone(ctx, httpServer, srv, logger)
}

// serveUntilDone runs httpServer until ctx is cancelled, then drains
// connections and stops the session server.
func serveUntilDone(ctx context.Context, httpServer *http.Server, srv *server.Server, logger *zerolog.Logger) error {
	serverErr := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("server failed: %w", err)
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		_ = srv.Shutdown(context.Background())
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down widget server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	// streams never finish on their own; stop the session server first
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("Session server shutdown")
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info().Msg("Widget server stopped")
	return nil
}

// parsePort parses and range checks a port number.
func parsePort(s string) (int, error) {
	port, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid port number: %s", s)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("port out of range: %d", port)
	}
	return port, nil
}
