package identity_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/agentstation/recordsync/pkg/identity"
	"github.com/agentstation/recordsync/pkg/records"
)

// TestResolveEarliestSourceWins checks every combination of populated
// sources: the earliest populated one wins and the rest are ignored. When
// none is populated the manual override is the only way in.
func TestResolveEarliestSourceWins(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("earliest populated source wins", prop.ForAll(
		func(mask int, a, b, c, d int) bool {
			var opts map[string]any
			var env identity.Env
			if mask&1 != 0 {
				opts = map[string]any{"ENTITY_ID": fmt.Sprint(a)}
			}
			if mask&2 != 0 {
				env.Query = fmt.Sprintf("dealId=%d", b)
			}
			if mask&4 != 0 {
				env.Referrer = fmt.Sprintf("https://crm.example/crm/deal/details/%d/", c)
			}

			r := newResolver(t, opts, nil)
			res, err := r.Resolve(context.Background(), env)
			if err != nil {
				return false
			}

			switch {
			case mask&1 != 0:
				return res.Source == identity.SourcePlacement && res.Identity == records.Identity(fmt.Sprint(a))
			case mask&2 != 0:
				return res.Source == identity.SourceQuery && res.Identity == records.Identity(fmt.Sprint(b))
			case mask&4 != 0:
				return res.Source == identity.SourceReferrer && res.Identity == records.Identity(fmt.Sprint(c))
			}
			if !res.NeedsManualInput() {
				return false
			}
			manual, err := identity.Manual(fmt.Sprint(d))
			return err == nil && manual.Source == identity.SourceManual && manual.Identity == records.Identity(fmt.Sprint(d))
		},
		gen.IntRange(0, 7),
		gen.IntRange(1, 99999),
		gen.IntRange(1, 99999),
		gen.IntRange(1, 99999),
		gen.IntRange(1, 99999),
	))

	properties.TestingRun(t)
}
