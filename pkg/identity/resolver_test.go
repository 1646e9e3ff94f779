package identity_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/agentstation/recordsync/pkg/errors"
	"github.com/agentstation/recordsync/pkg/identity"
	"github.com/agentstation/recordsync/pkg/logging"
	"github.com/agentstation/recordsync/pkg/records"
)

func newResolver(t *testing.T, opts map[string]any, err error) *identity.Resolver {
	t.Helper()
	r, rerr := identity.NewResolver(records.IdentitySources{},
		identity.WithLogger(logging.NewNopLogger()),
		identity.WithPlacement(identity.PlacementFunc(func(context.Context) (map[string]any, error) {
			return opts, err
		})),
	)
	require.NoError(t, rerr)
	return r
}

func TestResolvePriority(t *testing.T) {
	tests := []struct {
		name   string
		opts   map[string]any
		env    identity.Env
		want   records.Identity
		source identity.Source
		key    string
		manual bool
	}{
		{
			name:   "placement wins over query",
			opts:   map[string]any{"ID": "1"},
			env:    identity.Env{Query: "id=2", Referrer: "https://crm.example/details/3/"},
			want:   "1",
			source: identity.SourcePlacement,
			key:    "ID",
		},
		{
			name:   "later option key variant",
			opts:   map[string]any{"ID": " ", "deal_id": 77},
			want:   "77",
			source: identity.SourcePlacement,
			key:    "deal_id",
		},
		{
			name:   "option key order",
			opts:   map[string]any{"dealId": "9", "ENTITY_ID": "5"},
			want:   "5",
			source: identity.SourcePlacement,
			key:    "ENTITY_ID",
		},
		{
			name:   "query when placement empty",
			opts:   map[string]any{"PLACEMENT": "x"},
			env:    identity.Env{Query: "https://app.example/widget?foo=bar&entityId=6443", Referrer: "/details/3/"},
			want:   "6443",
			source: identity.SourceQuery,
			key:    "entityId",
		},
		{
			name:   "query param order",
			env:    identity.Env{Query: "?dealId=3&id=1"},
			want:   "1",
			source: identity.SourceQuery,
			key:    "id",
		},
		{
			name:   "query case variant",
			env:    identity.Env{Query: "DEALID=12"},
			want:   "12",
			source: identity.SourceQuery,
			key:    "DEALID",
		},
		{
			name:   "empty query value falls through",
			env:    identity.Env{Query: "id=&entityId=", Referrer: "https://crm.example/crm/deal/details/6443/"},
			want:   "6443",
			source: identity.SourceReferrer,
		},
		{
			name:   "referrer needs numeric segment",
			env:    identity.Env{Referrer: "https://crm.example/crm/deal/details/abc/"},
			manual: true,
		},
		{
			name:   "nothing",
			manual: true,
		},
		{
			name:   "non scalar option is skipped",
			opts:   map[string]any{"ID": map[string]any{"x": 1}},
			env:    identity.Env{Query: "id=4"},
			want:   "4",
			source: identity.SourceQuery,
			key:    "id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := newResolver(t, tt.opts, nil).Resolve(context.Background(), tt.env)
			require.NoError(t, err)
			assert.Equal(t, tt.manual, res.NeedsManualInput())
			if tt.manual {
				assert.Equal(t, identity.SourceNone, res.Source)
				return
			}
			assert.Equal(t, tt.want, res.Identity)
			assert.Equal(t, tt.source, res.Source)
			assert.Equal(t, tt.key, res.Key)
		})
	}
}

func TestResolvePlacementErrorFallsThrough(t *testing.T) {
	tl := logging.NewTestLogger(t)
	r, err := identity.NewResolver(records.IdentitySources{},
		identity.WithLogger(tl.Logger),
		identity.WithPlacement(identity.PlacementFunc(func(context.Context) (map[string]any, error) {
			return nil, errors.New("placement.info failed")
		})),
	)
	require.NoError(t, err)

	res, err := r.Resolve(context.Background(), identity.Env{Query: "id=8"})
	require.NoError(t, err)
	assert.Equal(t, records.Identity("8"), res.Identity)
	assert.True(t, tl.Contains("Placement options unavailable"))
}

func TestResolveCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := newResolver(t, nil, context.Canceled)

	_, err := r.Resolve(ctx, identity.Env{Query: "id=8"})
	assert.True(t, pkgerrors.IsCanceled(err))
}

func TestResolveWithoutPlacement(t *testing.T) {
	r, err := identity.NewResolver(records.IdentitySources{QueryParams: []string{"record"}})
	require.NoError(t, err)

	res, err := r.Resolve(context.Background(), identity.Env{Query: "id=1&record=2"})
	require.NoError(t, err)
	assert.Equal(t, records.Identity("2"), res.Identity)
}

func TestCustomReferrerPattern(t *testing.T) {
	r, err := identity.NewResolver(records.IdentitySources{ReferrerPattern: `/lead/show/(\d+)`})
	require.NoError(t, err)

	res, ok := r.FromReferrer("https://crm.example/lead/show/55?x=1")
	require.True(t, ok)
	assert.Equal(t, records.Identity("55"), res.Identity)

	_, err = identity.NewResolver(records.IdentitySources{ReferrerPattern: "("})
	assert.True(t, pkgerrors.IsValidationError(err))
}

func TestResolveJoinsInFlight(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	entered := make(chan struct{})
	r, err := identity.NewResolver(records.IdentitySources{},
		identity.WithLogger(logging.NewNopLogger()),
		identity.WithPlacement(identity.PlacementFunc(func(context.Context) (map[string]any, error) {
			if calls.Add(1) == 1 {
				close(entered)
			}
			<-release
			return map[string]any{"ID": "1"}, nil
		})),
	)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]identity.Result, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], _ = r.Resolve(context.Background(), identity.Env{})
	}()
	<-entered

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1], _ = r.Resolve(context.Background(), identity.Env{})
	}()
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, results[0], results[1])
}

func TestManual(t *testing.T) {
	res, err := identity.Manual(" 6443 ")
	require.NoError(t, err)
	assert.Equal(t, records.Identity("6443"), res.Identity)
	assert.Equal(t, identity.SourceManual, res.Source)

	_, err = identity.Manual("  ")
	assert.True(t, pkgerrors.IsValidationError(err))
}

func TestSourceString(t *testing.T) {
	assert.Equal(t, "placement", identity.SourcePlacement.String())
	assert.Equal(t, "manual", identity.SourceManual.String())
	assert.Equal(t, "source(9)", identity.Source(9).String())
	text, err := identity.SourceQuery.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "query", string(text))

	var parsed identity.Source
	require.NoError(t, parsed.UnmarshalText([]byte("referrer")))
	assert.Equal(t, identity.SourceReferrer, parsed)
	assert.Error(t, parsed.UnmarshalText([]byte("bogus")))
}
