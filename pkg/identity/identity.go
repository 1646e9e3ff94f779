// Package identity determines which remote record the current embedding
// targets. Sources are tried in a fixed priority order and never merged:
// host placement options, then the page query string, then the referrer.
// When none yields a value the caller gets NeedsManualInput and may supply
// a trusted manual override.
package identity

import (
	"fmt"

	"github.com/agentstation/recordsync/pkg/records"
)

// Default lookup keys, in priority order.
var (
	DefaultOptionKeys      = []string{"ID", "id", "ENTITY_ID", "entityId", "entity_id", "DEAL_ID", "dealId", "deal_id"}
	DefaultQueryParams     = []string{"id", "entityId", "dealId"}
	DefaultReferrerPattern = `/details/(\d+)/`
)

// Source names where an identity came from.
type Source int

// Identity sources in priority order.
const (
	SourceNone Source = iota
	SourcePlacement
	SourceQuery
	SourceReferrer
	SourceManual
)

// String returns the source name.
func (s Source) String() string {
	switch s {
	case SourceNone:
		return "none"
	case SourcePlacement:
		return "placement"
	case SourceQuery:
		return "query"
	case SourceReferrer:
		return "referrer"
	case SourceManual:
		return "manual"
	default:
		return fmt.Sprintf("source(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Source) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Source) UnmarshalText(text []byte) error {
	for _, candidate := range []Source{SourceNone, SourcePlacement, SourceQuery, SourceReferrer, SourceManual} {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown identity source %q", text)
}

// Env is what the page knows about itself.
type Env struct {
	// Query is the raw query string or the full page URL.
	Query string `json:"query"`
	// Referrer is the document referrer URL.
	Referrer string `json:"referrer"`
}

// Result is the outcome of a resolution. A zero Identity means the caller
// must ask for manual input.
type Result struct {
	Identity records.Identity `json:"identity"`
	Source   Source           `json:"source"`
	Key      string           `json:"key,omitempty"` // option key or query param that matched
}

// Resolved reports whether an identity was found.
func (r Result) Resolved() bool {
	return !r.Identity.IsZero()
}

// NeedsManualInput reports whether every automatic source came up empty.
func (r Result) NeedsManualInput() bool {
	return !r.Resolved()
}
