package identity

import (
	"context"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/cases"

	"github.com/agentstation/recordsync/pkg/errors"
	"github.com/agentstation/recordsync/pkg/logging"
	"github.com/agentstation/recordsync/pkg/records"
)

// PlacementSource returns the options the host attached to the embedding.
type PlacementSource interface {
	PlacementOptions(ctx context.Context) (map[string]any, error)
}

// PlacementFunc adapts a function to PlacementSource.
type PlacementFunc func(ctx context.Context) (map[string]any, error)

// PlacementOptions implements PlacementSource.
func (f PlacementFunc) PlacementOptions(ctx context.Context) (map[string]any, error) {
	return f(ctx)
}

// Resolver runs the identity pipeline. A Resolver is safe for concurrent
// use; a call made while another resolution is in flight joins it.
type Resolver struct {
	optionKeys  []string
	queryParams []string
	referrer    *regexp.Regexp
	placement   PlacementSource
	logger      *zerolog.Logger
	group       singleflight.Group
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithPlacement sets the placement options source. Without one the
// placement step is skipped.
func WithPlacement(p PlacementSource) Option {
	return func(r *Resolver) {
		r.placement = p
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver creates a resolver for the given sources. Empty lists fall
// back to the package defaults.
func NewResolver(sources records.IdentitySources, opts ...Option) (*Resolver, error) {
	pattern := sources.ReferrerPattern
	if pattern == "" {
		pattern = DefaultReferrerPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errors.WrapValidation("referrer_pattern", err)
	}

	r := &Resolver{
		optionKeys:  orDefault(sources.OptionKeys, DefaultOptionKeys),
		queryParams: orDefault(sources.QueryParams, DefaultQueryParams),
		referrer:    re,
		logger:      logging.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func orDefault(v, def []string) []string {
	if len(v) == 0 {
		return append([]string(nil), def...)
	}
	return append([]string(nil), v...)
}

// Resolve tries each source in priority order and stops at the first
// non-empty value. It fails only when ctx is done; source errors are
// logged and treated as an empty source.
func (r *Resolver) Resolve(ctx context.Context, env Env) (Result, error) {
	v, err, shared := r.group.Do("resolve", func() (any, error) {
		return r.resolve(ctx, env)
	})
	if shared {
		r.logger.Debug().Msg("Joined in-flight identity resolution")
	}
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

func (r *Resolver) resolve(ctx context.Context, env Env) (Result, error) {
	if r.placement != nil {
		opts, err := r.placement.PlacementOptions(ctx)
		switch {
		case err != nil && ctx.Err() != nil:
			return Result{}, errors.Join(errors.ErrCanceled, ctx.Err())
		case err != nil:
			r.logger.Warn().Err(err).Msg("Placement options unavailable, trying next identity source")
		default:
			if res, ok := r.FromOptions(opts); ok {
				return res, nil
			}
		}
	}
	if res, ok := r.FromQuery(env.Query); ok {
		return res, nil
	}
	if res, ok := r.FromReferrer(env.Referrer); ok {
		return res, nil
	}
	r.logger.Info().Msg("No identity source matched, manual input needed")
	return Result{Source: SourceNone}, nil
}

// FromOptions reads the first present non-empty option key.
func (r *Resolver) FromOptions(opts map[string]any) (Result, bool) {
	for _, key := range r.optionKeys {
		raw, ok := opts[key]
		if !ok {
			continue
		}
		s, ok := records.NormalizeScalar(raw)
		if !ok {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			return Result{Identity: records.Identity(s), Source: SourcePlacement, Key: key}, true
		}
	}
	return Result{}, false
}

// FromQuery reads the first present non-empty query parameter. Parameter
// names also match their case variants.
func (r *Resolver) FromQuery(raw string) (Result, bool) {
	values := parseQuery(raw)
	if len(values) == 0 {
		return Result{}, false
	}

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, param := range r.queryParams {
		if v := strings.TrimSpace(values.Get(param)); v != "" {
			return Result{Identity: records.Identity(v), Source: SourceQuery, Key: param}, true
		}
		folded := cases.Fold().String(param)
		for _, name := range names {
			if name == param || cases.Fold().String(name) != folded {
				continue
			}
			if v := strings.TrimSpace(values.Get(name)); v != "" {
				return Result{Identity: records.Identity(v), Source: SourceQuery, Key: name}, true
			}
		}
	}
	return Result{}, false
}

// FromReferrer extracts the identity from the referrer URL path.
func (r *Resolver) FromReferrer(referrer string) (Result, bool) {
	if referrer == "" {
		return Result{}, false
	}
	m := r.referrer.FindStringSubmatch(referrer)
	if m == nil {
		return Result{}, false
	}
	v := m[0]
	if len(m) > 1 {
		v = m[1]
	}
	if v = strings.TrimSpace(v); v == "" {
		return Result{}, false
	}
	return Result{Identity: records.Identity(v), Source: SourceReferrer}, true
}

// Manual turns a user-supplied value into a trusted identity.
func Manual(value string) (Result, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return Result{}, errors.NewValidationError("identity", value, "identity must not be empty")
	}
	return Result{Identity: records.Identity(v), Source: SourceManual}, nil
}

func parseQuery(raw string) url.Values {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		raw = raw[i+1:]
	}
	if i := strings.IndexByte(raw, '#'); i >= 0 {
		raw = raw[:i]
	}
	// ParseQuery keeps every pair it could parse alongside the error.
	values, _ := url.ParseQuery(raw)
	return values
}
