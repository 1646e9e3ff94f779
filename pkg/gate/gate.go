// Package gate waits for the host embedding bridge to become usable.
//
// A Gate polls the host for presence at a short fixed interval until a
// timeout ceiling, then performs a one-time asynchronous handshake guarded by
// a secondary, shorter timeout. When the handshake never answers inside that
// window the gate proceeds as if initialized and reports ReadyAssumed, so
// callers and operators can tell the optimistic path apart from a confirmed
// one.
package gate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/recordsync/pkg/errors"
	"github.com/agentstation/recordsync/pkg/logging"
)

// Default timings.
const (
	DefaultPollInterval     = 100 * time.Millisecond
	DefaultTimeout          = 10 * time.Second
	DefaultHandshakeTimeout = 2 * time.Second
)

// Host is the minimal surface of the embedding host the gate depends on.
type Host interface {
	// Present reports whether the host bridge exists yet.
	Present(ctx context.Context) bool
	// Handshake starts the host initialization and calls done when the
	// host acknowledges it. done may be called from any goroutine, or never.
	Handshake(ctx context.Context, done func())
}

// Outcome describes how the gate became ready.
type Outcome int

const (
	// OutcomeReady means the handshake was acknowledged.
	OutcomeReady Outcome = iota
	// OutcomeReadyAssumed means the handshake guard elapsed without an answer.
	OutcomeReadyAssumed
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeReady:
		return "ready"
	case OutcomeReadyAssumed:
		return "ready_assumed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Gate waits for a Host. A Gate holds no per-attempt state, so every call to
// AwaitReady starts from zero.
type Gate struct {
	host             Host
	interval         time.Duration
	timeout          time.Duration
	handshakeTimeout time.Duration
	logger           *zerolog.Logger
}

// Option configures a Gate.
type Option func(*Gate)

// WithPollInterval sets the presence poll interval.
func WithPollInterval(d time.Duration) Option {
	return func(g *Gate) {
		if d > 0 {
			g.interval = d
		}
	}
}

// WithTimeout sets the default timeout used when AwaitReady gets zero.
func WithTimeout(d time.Duration) Option {
	return func(g *Gate) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithHandshakeTimeout sets the handshake guard.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(g *Gate) {
		if d > 0 {
			g.handshakeTimeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(g *Gate) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// New creates a gate over host.
func New(host Host, opts ...Option) *Gate {
	g := &Gate{
		host:             host,
		interval:         DefaultPollInterval,
		timeout:          DefaultTimeout,
		handshakeTimeout: DefaultHandshakeTimeout,
		logger:           logging.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Timeout returns the default timeout.
func (g *Gate) Timeout() time.Duration {
	return g.timeout
}

// AwaitReady blocks until the host is usable or timeout elapses. A zero
// timeout uses the gate default. Unavailability is reported as a
// *errors.BridgeUnavailableError and is never returned before timeout.
func (g *Gate) AwaitReady(ctx context.Context, timeout time.Duration) (Outcome, error) {
	if timeout <= 0 {
		timeout = g.timeout
	}
	start := time.Now()

	if err := g.poll(ctx, timeout); err != nil {
		return OutcomeReady, err
	}
	g.logger.Debug().
		Dur("elapsed", time.Since(start)).
		Msg("Host bridge present")

	return g.handshake(ctx)
}

// poll bounds every presence check by the timeout, so a host that hangs
// on one cannot hold the gate past it.
func (g *Gate) poll(ctx context.Context, timeout time.Duration) error {
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		if g.host.Present(pctx) {
			return nil
		}
		select {
		case <-pctx.Done():
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("%w: %w", errors.ErrCanceled, err)
			}
			g.logger.Warn().
				Dur("timeout", timeout).
				Msg("Host bridge did not appear")
			return &errors.BridgeUnavailableError{Timeout: timeout}
		case <-ticker.C:
		}
	}
}

func (g *Gate) handshake(ctx context.Context) (Outcome, error) {
	acked := make(chan struct{})
	var once sync.Once
	done := func() { once.Do(func() { close(acked) }) }

	go g.host.Handshake(ctx, done)

	guard := time.NewTimer(g.handshakeTimeout)
	defer guard.Stop()

	select {
	case <-acked:
		return OutcomeReady, nil
	case <-guard.C:
		g.logger.Warn().
			Dur("handshake_timeout", g.handshakeTimeout).
			Msg("Host handshake did not answer, proceeding as initialized")
		return OutcomeReadyAssumed, nil
	case <-ctx.Done():
		return OutcomeReady, fmt.Errorf("%w: %w", errors.ErrCanceled, ctx.Err())
	}
}
