package bridge_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/recordsync/pkg/bridge"
	"github.com/agentstation/recordsync/pkg/bridge/bridgetest"
	pkgerrors "github.com/agentstation/recordsync/pkg/errors"
	"github.com/agentstation/recordsync/pkg/logging"
	"github.com/agentstation/recordsync/pkg/records"
)

func TestPlacementOptions(t *testing.T) {
	tests := []struct {
		name    string
		payload any
		want    map[string]any
		wantErr bool
	}{
		{
			name:    "nested object",
			payload: map[string]any{"placement": "CRM_DEAL_DETAIL_TAB", "options": map[string]any{"ID": "6443"}},
			want:    map[string]any{"ID": "6443"},
		},
		{
			name:    "nested json string",
			payload: map[string]any{"options": `{"ENTITY_ID":"17"}`},
			want:    map[string]any{"ENTITY_ID": "17"},
		},
		{
			name:    "flat object",
			payload: map[string]any{"dealId": "9"},
			want:    map[string]any{"dealId": "9"},
		},
		{
			name:    "empty string options",
			payload: map[string]any{"options": ""},
			want:    nil,
		},
		{
			name:    "malformed string options",
			payload: map[string]any{"options": "{"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := bridgetest.New().Respond("placement.info", tt.payload)
			got, err := bridge.NewClient(fake, testKind()).PlacementOptions(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPlacementOptionsWithoutMethod(t *testing.T) {
	kind := testKind()
	kind.Methods.Placement = ""
	fake := bridgetest.New()

	got, err := bridge.NewClient(fake, kind).PlacementOptions(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Empty(t, fake.Calls())
}

func TestGetRecord(t *testing.T) {
	t.Run("payload", func(t *testing.T) {
		fake := bridgetest.New().Respond("crm.deal.get", map[string]any{"UF_CRM_RATE": nil, "UF_CRM_AREA": 10})
		got, err := bridge.NewClient(fake, testKind()).GetRecord(context.Background(), "6443")
		require.NoError(t, err)
		assert.Len(t, got, 2)

		calls := fake.Calls("crm.deal.get")
		require.Len(t, calls, 1)
		assert.Equal(t, "6443", calls[0].Params["id"])
	})

	t.Run("null payload", func(t *testing.T) {
		fake := bridgetest.New().Respond("crm.deal.get", nil)
		got, err := bridge.NewClient(fake, testKind()).GetRecord(context.Background(), "1")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("not found", func(t *testing.T) {
		fake := bridgetest.New().RespondError("crm.deal.get", "NOT_FOUND", "Not found")
		_, err := bridge.NewClient(fake, testKind()).GetRecord(context.Background(), "1")
		assert.True(t, pkgerrors.IsNotFound(err))
	})
}

func TestGetFields(t *testing.T) {
	fake := bridgetest.New().Respond("crm.deal.fields", map[string]any{
		"UF_CRM_RATE": map[string]any{"type": "money", "formLabel": "Rate", "isRequired": true},
		"STAGE_ID": map[string]any{
			"type": "enumeration", "title": "Stage", "isReadOnly": true,
			"items": []map[string]any{{"ID": 1, "VALUE": "New"}, {"ID": 2, "VALUE": "Won"}},
		},
	})

	got, err := bridge.NewClient(fake, testKind()).GetFields(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []records.FieldMeta{
		{
			Code: "STAGE_ID", Label: "Stage", Type: "enumeration", ReadOnly: true,
			Options: []records.FieldOption{{ID: "1", Value: "New"}, {ID: "2", Value: "Won"}},
		},
		{Code: "UF_CRM_RATE", Label: "Rate", Type: "money", Required: true},
	}, got)
}

func TestUpdateFields(t *testing.T) {
	fake := bridgetest.New().Respond("crm.deal.update", true)
	err := bridge.NewClient(fake, testKind()).UpdateFields(context.Background(), "6443", map[string]string{"UF_CRM_RATE": "500"})
	require.NoError(t, err)

	calls := fake.Calls("crm.deal.update")
	require.Len(t, calls, 1)
	assert.Equal(t, "6443", calls[0].Params["id"])
	assert.Equal(t, map[string]string{"UF_CRM_RATE": "500"}, calls[0].Params["fields"])
}

func TestStartWorkflow(t *testing.T) {
	t.Run("invocation id", func(t *testing.T) {
		fake := bridgetest.New().Respond("bizproc.workflow.start", "wf-123")
		id, err := bridge.NewClient(fake, testKind()).StartWorkflow(context.Background(), "6443")
		require.NoError(t, err)
		assert.Equal(t, "wf-123", id)

		calls := fake.Calls("bizproc.workflow.start")
		require.Len(t, calls, 1)
		assert.Equal(t, [3]string{"crm", "CCrmDocumentDeal", "DEAL_6443"}, calls[0].Params["DOCUMENT_ID"])
	})

	t.Run("no invocation id", func(t *testing.T) {
		fake := bridgetest.New().Respond("bizproc.workflow.start", nil)
		id, err := bridge.NewClient(fake, testKind()).StartWorkflow(context.Background(), "6443")
		require.NoError(t, err)
		assert.Empty(t, id)
	})

	t.Run("unreadable invocation id", func(t *testing.T) {
		tl := logging.NewTestLogger(t)
		fake := bridgetest.New().On("bizproc.workflow.start", func(bridge.Request) (*bridge.Result, error) {
			return &bridge.Result{Data: json.RawMessage(`{"id":`)}, nil
		})
		client := bridge.NewClient(fake, testKind(), bridge.WithClientLogger(tl.Logger))
		id, err := client.StartWorkflow(context.Background(), "6443")
		require.NoError(t, err)
		assert.Empty(t, id)
		assert.True(t, tl.Contains("unreadable invocation id"))
		assert.True(t, tl.Contains(`"level":"warn"`))
	})

	t.Run("transport failure", func(t *testing.T) {
		fake := bridgetest.New().Fail("bizproc.workflow.start", errors.New("reset"))
		_, err := bridge.NewClient(fake, testKind()).StartWorkflow(context.Background(), "6443")
		assert.EqualError(t, err, "reset")
	})
}

func TestNewWorkflowStartCopiesParameters(t *testing.T) {
	kind := testKind()
	start := bridge.NewWorkflowStart(kind, "1")
	start.Parameters["Approver"] = "changed"
	assert.Equal(t, "manager", kind.Workflow.Parameters["Approver"])
}
