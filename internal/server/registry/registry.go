// Package registry keeps the live sessions of the widget server. Each page
// instance owns one session; sessions nobody touches for the TTL expire.
// It uses patrickmn/go-cache for TTL-based expiry.
package registry

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/agentstation/recordsync"
)

// Registry holds sessions by id.
type Registry struct {
	store  *gocache.Cache
	ttl    time.Duration
	logger *zerolog.Logger
}

// New creates a registry. Sessions expire ttl after their last access;
// cleanupInterval is how often expired sessions are removed.
func New(ttl, cleanupInterval time.Duration, logger *zerolog.Logger) *Registry {
	return &Registry{
		store:  gocache.New(ttl, cleanupInterval),
		ttl:    ttl,
		logger: logger,
	}
}

// Put stores a session.
func (r *Registry) Put(s recordsync.Session) {
	r.store.Set(s.ID(), s, gocache.DefaultExpiration)
}

// Get returns a session and extends its lifetime.
func (r *Registry) Get(id string) (recordsync.Session, bool) {
	v, ok := r.store.Get(id)
	if !ok {
		return nil, false
	}
	s := v.(recordsync.Session)
	r.store.Set(id, s, gocache.DefaultExpiration)
	return s, true
}

// Delete removes a session.
func (r *Registry) Delete(id string) {
	r.store.Delete(id)
}

// OnRemoved registers fn to run when a session is removed, by Delete or by
// expiry. Only the last registered fn is kept.
func (r *Registry) OnRemoved(fn func(id string, s recordsync.Session)) {
	r.store.OnEvicted(func(id string, v any) {
		s, _ := v.(recordsync.Session)
		r.logger.Debug().Str("session_id", id).Msg("Session removed")
		fn(id, s)
	})
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	return r.store.ItemCount()
}

// TTL returns the idle lifetime of a session.
func (r *Registry) TTL() time.Duration {
	return r.ttl
}

// Stats describes the registry.
type Stats struct {
	Sessions int    `json:"sessions"`
	TTL      string `json:"ttl"`
}

// GetStats returns current registry statistics.
func (r *Registry) GetStats() Stats {
	return Stats{Sessions: r.Len(), TTL: r.ttl.String()}
}
