package recordsync

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/agentstation/recordsync/pkg/bridge"
	"github.com/agentstation/recordsync/pkg/errors"
	"github.com/agentstation/recordsync/pkg/records"
)

// config holds the settings a session is created with
type config struct {
	id            string
	kind          *records.Kind
	bridge        bridge.Bridge
	bridgeTimeout time.Duration
	logger        *zerolog.Logger
	fieldsCache   *gocache.Cache
	now           func() time.Time
}

// Option is a function that configures a Session
type Option func(*config) error

// WithKind configures the record kind the session synchronizes
func WithKind(kind *records.Kind) Option {
	return func(c *config) error {
		if kind == nil {
			return errors.NewConfigError("session", "kind is nil", nil)
		}
		if err := kind.Validate(); err != nil {
			return errors.NewConfigError("session", "invalid kind "+kind.Name, err)
		}
		c.kind = kind
		return nil
	}
}

// WithBridge configures the host bridge
func WithBridge(b bridge.Bridge) Option {
	return func(c *config) error {
		if b == nil {
			return errors.NewConfigError("session", "bridge is nil", nil)
		}
		c.bridge = b
		return nil
	}
}

// WithBridgeTimeout configures how long to wait for the host bridge.
// Zero leaves the bridge default in place.
func WithBridgeTimeout(d time.Duration) Option {
	return func(c *config) error {
		if d < 0 {
			return errors.NewValidationError("bridge_timeout", d, "must not be negative")
		}
		c.bridgeTimeout = d
		return nil
	}
}

// WithLogger configures the session logger
func WithLogger(logger *zerolog.Logger) Option {
	return func(c *config) error {
		c.logger = logger
		return nil
	}
}

// WithID configures the session id; a random UUID is used otherwise
func WithID(id string) Option {
	return func(c *config) error {
		c.id = id
		return nil
	}
}

// WithFieldsCache shares a field metadata cache between sessions
func WithFieldsCache(cache *gocache.Cache) Option {
	return func(c *config) error {
		c.fieldsCache = cache
		return nil
	}
}

// WithClock configures the time source used for workflow timestamps
func WithClock(now func() time.Time) Option {
	return func(c *config) error {
		if now != nil {
			c.now = now
		}
		return nil
	}
}
