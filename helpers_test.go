package recordsync

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/agentstation/recordsync/pkg/bridge"
	"github.com/agentstation/recordsync/pkg/bridge/bridgetest"
	"github.com/agentstation/recordsync/pkg/identity"
	"github.com/agentstation/recordsync/pkg/logging"
	"github.com/agentstation/recordsync/pkg/records"
)

const (
	methodPlacement = "placement.info"
	methodGet       = "crm.deal.get"
	methodFields    = "crm.deal.fields"
	methodUpdate    = "crm.deal.update"
	methodWorkflow  = "bizproc.workflow.start"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testKind() *records.Kind {
	return &records.Kind{
		Name:              "price-approval",
		Module:            "crm",
		EntityClass:       "CCrmDocumentDeal",
		InstanceKeyPrefix: "DEAL_",
		Methods: records.Methods{
			Placement: methodPlacement,
			Get:       methodGet,
			Fields:    methodFields,
			Update:    methodUpdate,
			Workflow:  methodWorkflow,
		},
		Fields: []records.FieldSpec{
			{ID: "rate", Code: "rate", Required: true, Type: records.FieldTypeMoney},
			{ID: "area", Code: "area", Type: records.FieldTypeNumber},
		},
		Workflow: records.Workflow{TemplateRef: "42"},
	}
}

// newFake scripts a bridge that is ready, has no placement options and
// serves the given baseline.
func newFake(baseline map[string]any) *bridgetest.Fake {
	return bridgetest.New().
		Respond(methodPlacement, map[string]any{"options": map[string]any{}}).
		Respond(methodGet, baseline).
		Respond(methodUpdate, true).
		Respond(methodWorkflow, "wf-1")
}

func newSession(t *testing.T, fake *bridgetest.Fake, opts ...Option) *session {
	t.Helper()
	base := []Option{
		WithKind(testKind()),
		WithBridge(fake),
		WithLogger(logging.NewNopLogger()),
		WithClock(func() time.Time { return fixedNow }),
	}
	s, err := New(append(base, opts...)...)
	require.NoError(t, err)
	return s.(*session)
}

// readySession boots a session on identity 6443 with the given baseline.
func readySession(t *testing.T, fake *bridgetest.Fake) *session {
	t.Helper()
	s := newSession(t, fake)
	require.NoError(t, s.Start(context.Background(), identity.Env{Query: "id=6443"}))
	require.Equal(t, StateReady, s.State())
	fake.Reset()
	return s
}

func fieldsParam(t *testing.T, req bridge.Request) map[string]string {
	t.Helper()
	fields, ok := req.Params["fields"].(map[string]string)
	require.True(t, ok, "fields param has type %T", req.Params["fields"])
	return fields
}

func recordStates(s Session) func() []State {
	var mu sync.Mutex
	var states []State
	s.OnStateChange(func(_, to State) {
		mu.Lock()
		states = append(states, to)
		mu.Unlock()
	})
	return func() []State {
		mu.Lock()
		defer mu.Unlock()
		return append([]State(nil), states...)
	}
}
