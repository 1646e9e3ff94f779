// Package loader fetches the record snapshot a session synchronizes
// against, plus optional field metadata used only for rendering.
package loader

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/agentstation/recordsync/pkg/bridge"
	"github.com/agentstation/recordsync/pkg/errors"
	"github.com/agentstation/recordsync/pkg/logging"
	"github.com/agentstation/recordsync/pkg/records"
)

// Default cache timings for field metadata.
const (
	DefaultFieldsTTL       = 10 * time.Minute
	DefaultCleanupInterval = 20 * time.Minute
)

// Reason classifies a load failure.
type Reason string

// Load failure reasons.
const (
	ReasonNotFound Reason = "not_found"
	ReasonRemote   Reason = "remote_error"
)

// LoadError is returned when a record cannot be loaded.
type LoadError struct {
	Identity records.Identity
	Reason   Reason
	Err      error
}

// Error returns the error message.
func (e *LoadError) Error() string {
	if e.Reason == ReasonNotFound {
		return fmt.Sprintf("record %s not found", e.Identity)
	}
	return fmt.Sprintf("loading record %s: %v", e.Identity, e.Err)
}

// Unwrap returns the underlying error.
func (e *LoadError) Unwrap() error {
	return e.Err
}

// Is matches ErrRecordLoadFailed, and ErrNotFound for missing records.
func (e *LoadError) Is(target error) bool {
	switch target {
	case errors.ErrRecordLoadFailed:
		return true
	case errors.ErrNotFound:
		return e.Reason == ReasonNotFound
	}
	return false
}

// Loader reads records of one kind. It never retries.
type Loader struct {
	client *bridge.Client
	cache  *gocache.Cache
	logger *zerolog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithCache shares a field metadata cache between loaders.
func WithCache(c *gocache.Cache) Option {
	return func(l *Loader) {
		if c != nil {
			l.cache = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates a loader over client.
func New(client *bridge.Client, opts ...Option) *Loader {
	l := &Loader{
		client: client,
		logger: logging.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.cache == nil {
		l.cache = gocache.New(DefaultFieldsTTL, DefaultCleanupInterval)
	}
	return l
}

// Load issues one read call for the full record.
func (l *Loader) Load(ctx context.Context, id records.Identity) (records.Record, error) {
	start := time.Now()
	payload, err := l.client.GetRecord(ctx, id)
	switch {
	case errors.IsNotFound(err):
		return records.Record{}, &LoadError{Identity: id, Reason: ReasonNotFound, Err: err}
	case err != nil:
		return records.Record{}, &LoadError{Identity: id, Reason: ReasonRemote, Err: err}
	case payload == nil:
		return records.Record{}, &LoadError{
			Identity: id,
			Reason:   ReasonNotFound,
			Err:      errors.NewNotFoundError("record", id.String()),
		}
	}

	rec := records.RecordFromRemote(payload)
	l.logger.Debug().
		Str("identity", id.String()).
		Int("fields", rec.Len()).
		Dur("duration", time.Since(start)).
		Msg("Record loaded")
	return rec, nil
}

// Fields returns field metadata for the kind, cached per kind.
func (l *Loader) Fields(ctx context.Context) ([]records.FieldMeta, error) {
	key := "fields:" + l.client.Kind().Name
	if cached, ok := l.cache.Get(key); ok {
		return cached.([]records.FieldMeta), nil
	}

	meta, err := l.client.GetFields(ctx)
	if err != nil {
		return nil, err
	}
	l.cache.Set(key, meta, gocache.DefaultExpiration)
	return meta, nil
}

// Invalidate drops cached field metadata for the kind.
func (l *Loader) Invalidate() {
	l.cache.Delete("fields:" + l.client.Kind().Name)
}
