// Package transport carries bridge calls to a host over HTTP.
package transport

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/agentstation/recordsync/internal/config"
	"github.com/agentstation/recordsync/pkg/bridge"
	"github.com/agentstation/recordsync/pkg/logging"
)

// DefaultHTTPTimeout is the default timeout for HTTP requests.
var DefaultHTTPTimeout = config.DefaultRequestTimeout

// HandshakeMethod is called to confirm the host finished initializing.
const HandshakeMethod = "app.info"

// Client posts bridge calls to a REST host. It satisfies both
// bridge.Caller and gate.Host.
type Client struct {
	base      string
	token     string
	http      *http.Client
	auth      Authenticator
	limiter   *rate.Limiter
	logger    *zerolog.Logger
	handshake string
}

// Option configures a Client.
type Option func(*Client)

// WithAuth sets the authenticator and the token it applies.
func WithAuth(auth Authenticator, token string) Option {
	return func(c *Client) {
		c.auth = auth
		c.token = token
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithRateLimit bounds calls per second. A zero limit disables limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHandshakeMethod overrides the method used by Handshake.
func WithHandshakeMethod(method string) Option {
	return func(c *Client) {
		if method != "" {
			c.handshake = method
		}
	}
}

// New creates a client posting to base.
func New(base string, opts ...Option) *Client {
	c := &Client{
		base:      base,
		http:      &http.Client{Timeout: DefaultHTTPTimeout},
		auth:      &NoAuth{},
		logger:    logging.Default(),
		handshake: HandshakeMethod,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FromSettings creates a client from validated bridge settings.
func FromSettings(s config.BridgeSettings, logger *zerolog.Logger) *Client {
	opts := []Option{
		WithHTTPClient(&http.Client{Timeout: s.RequestTimeout}),
		WithRateLimit(s.RateLimit, s.Burst),
		WithLogger(logger),
		WithHandshakeMethod(s.HandshakeMethod),
	}
	if s.Token != "" {
		opts = append(opts, WithAuth(AuthFor(s.Auth), s.Token))
	}
	return New(s.URL, opts...)
}

// Call implements bridge.Caller.
func (c *Client) Call(ctx context.Context, req bridge.Request) (*bridge.Result, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	httpReq, err := newRequest(ctx, Endpoint(c.base, req.Method), req.Params)
	if err != nil {
		return nil, err
	}
	c.prepare(httpReq)

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Debug().Err(err).Str("method", req.Method).Msg("Bridge call failed")
		return nil, err
	}

	result, err := DecodeResponse(req.Method, resp)
	c.logger.Debug().
		Str("method", req.Method).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Bridge call")
	return result, err
}

// Present implements gate.Host. Any HTTP answer from the host counts.
func (c *Client) Present(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.base, nil)
	if err != nil {
		return false
	}
	c.prepare(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return true
}

// Handshake implements gate.Host. done is called once the host answers
// the handshake method, even with a remote error.
func (c *Client) Handshake(ctx context.Context, done func()) {
	_, err := c.Call(ctx, bridge.Request{Method: c.handshake})
	if err != nil && !isRemote(err) {
		c.logger.Debug().Err(err).Msg("Handshake unanswered")
		return
	}
	done()
}

func (c *Client) prepare(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		c.auth.Apply(req, c.token)
	}
}
