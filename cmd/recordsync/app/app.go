// Package app wires configuration, logging, record kinds and the host
// bridge for the recordsync CLI.
package app

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/recordsync"
	"github.com/agentstation/recordsync/cmd/application"
	"github.com/agentstation/recordsync/internal/config"
	"github.com/agentstation/recordsync/internal/kinds"
	"github.com/agentstation/recordsync/internal/transport"
	"github.com/agentstation/recordsync/pkg/bridge"
	"github.com/agentstation/recordsync/pkg/errors"
	"github.com/agentstation/recordsync/pkg/gate"
)

// App holds the CLI dependencies. Kinds and the bridge are created lazily
// so commands that need neither (version, kinds with a file) never read
// bridge settings.
type App struct {
	version string
	commit  string
	date    string
	builtBy string

	config *Config
	logger *zerolog.Logger

	mu      sync.RWMutex
	kinds   *kinds.Registry
	bridge  bridge.Bridge
	timeout time.Duration // readiness bound for the bridge; zero keeps the session default
}

var _ application.Application = (*App)(nil)

// New creates an App with configuration loaded from the environment.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
	}

	cfg, err := LoadConfig()
	if err != nil {
		return nil, errors.NewConfigError("config", "failed to load configuration", err)
	}
	app.config = cfg

	logger := NewLogger(cfg)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}
	return app, nil
}

// Version returns the version information.
func (a *App) Version() string { return a.version }

// Commit returns the git commit hash.
func (a *App) Commit() string { return a.commit }

// Date returns the build date.
func (a *App) Date() string { return a.date }

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string { return a.builtBy }

// Config returns the application configuration.
func (a *App) Config() *Config { return a.config }

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger { return a.logger }

// OutputFormat returns the configured output format.
func (a *App) OutputFormat() string { return a.config.Format }

// Kinds returns the record kind profiles, loading them on first use.
func (a *App) Kinds() (*kinds.Registry, error) {
	a.mu.RLock()
	if a.kinds != nil {
		reg := a.kinds
		a.mu.RUnlock()
		return reg, nil
	}
	a.mu.RUnlock()

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.kinds != nil {
		return a.kinds, nil
	}

	var (
		reg *kinds.Registry
		err error
	)
	if a.config.KindsFile != "" {
		reg, err = kinds.LoadFile(a.config.KindsFile)
	} else {
		reg, err = kinds.Default()
	}
	if err != nil {
		return nil, errors.NewConfigError("kinds", "failed to load record kinds", err)
	}
	a.kinds = reg
	return reg, nil
}

// Bridge returns the host bridge built from the bridge settings, creating
// it on first use.
func (a *App) Bridge() (bridge.Bridge, error) {
	a.mu.RLock()
	if a.bridge != nil {
		b := a.bridge
		a.mu.RUnlock()
		return b, nil
	}
	a.mu.RUnlock()

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.bridge != nil {
		return a.bridge, nil
	}

	settings, err := config.Bridge()
	if err != nil {
		return nil, err
	}
	client := transport.FromSettings(settings, a.logger)
	g := gate.New(client,
		gate.WithTimeout(settings.Timeout),
		gate.WithPollInterval(settings.PollInterval),
		gate.WithHandshakeTimeout(settings.HandshakeTimeout),
		gate.WithLogger(a.logger),
	)
	a.bridge = bridge.New(g, client)
	a.timeout = settings.Timeout
	a.logger.Debug().
		Str("url", settings.URL).
		Float64("rate_limit", settings.RateLimit).
		Dur("timeout", settings.Timeout).
		Msg("Bridge configured")
	return a.bridge, nil
}

// NewSession creates an unstarted session for kind on the configured bridge.
func (a *App) NewSession(kind string, opts ...recordsync.Option) (recordsync.Session, error) {
	reg, err := a.Kinds()
	if err != nil {
		return nil, err
	}
	k, err := reg.Get(kind)
	if err != nil {
		return nil, err
	}
	b, err := a.Bridge()
	if err != nil {
		return nil, err
	}

	base := []recordsync.Option{
		recordsync.WithKind(k),
		recordsync.WithBridge(b),
		recordsync.WithLogger(a.logger),
	}
	a.mu.RLock()
	if a.timeout > 0 {
		base = append(base, recordsync.WithBridgeTimeout(a.timeout))
	}
	a.mu.RUnlock()
	return recordsync.New(append(base, opts...)...)
}

// Shutdown releases application resources.
func (a *App) Shutdown(_ context.Context) error {
	a.logger.Debug().Msg("Shutting down")
	return nil
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(cfg *Config) Option {
	return func(a *App) error {
		a.config = cfg
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithBridge sets the host bridge, bypassing the bridge settings.
func WithBridge(b bridge.Bridge) Option {
	return func(a *App) error {
		a.bridge = b
		return nil
	}
}

// WithKinds sets the record kind profiles.
func WithKinds(reg *kinds.Registry) Option {
	return func(a *App) error {
		a.kinds = reg
		return nil
	}
}
