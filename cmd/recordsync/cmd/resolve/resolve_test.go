package resolve

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/recordsync/cmd/application"
	"github.com/agentstation/recordsync/pkg/bridge"
	"github.com/agentstation/recordsync/pkg/bridge/bridgetest"
	"github.com/agentstation/recordsync/pkg/identity"
)

func execute(t *testing.T, app application.Application, args ...string) (identity.Result, error) {
	t.Helper()
	cmd := NewCommand(app)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	if err := cmd.Execute(); err != nil {
		return identity.Result{}, err
	}

	var res identity.Result
	require.NoError(t, json.Unmarshal(out.Bytes(), &res), out.String())
	return res, nil
}

func TestResolveSources(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		id     string
		source identity.Source
	}{
		{
			name:   "placement wins over url",
			args:   []string{"--placement", `{"ID": 6443}`, "--url", "?id=1"},
			id:     "6443",
			source: identity.SourcePlacement,
		},
		{
			name:   "url query",
			args:   []string{"--url", "https://portal.example.com/widget?DealID=77"},
			id:     "77",
			source: identity.SourceQuery,
		},
		{
			name:   "referrer",
			args:   []string{"--referrer", "https://crm.example.com/crm/deal/details/12/"},
			id:     "12",
			source: identity.SourceReferrer,
		},
		{
			name:   "nothing matches",
			args:   []string{"--placement", `{"PLACEMENT": "CRM_DEAL_DETAIL_TAB"}`},
			source: identity.SourceNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := execute(t, &application.Mock{}, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.id, string(res.Identity))
			assert.Equal(t, tt.source, res.Source)
		})
	}
}

func TestResolvePlacementFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "options.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"entityId": "501"}`), 0o600))

	res, err := execute(t, &application.Mock{}, "--placement", "@"+path)
	require.NoError(t, err)
	assert.Equal(t, "501", string(res.Identity))
	assert.Equal(t, "entityId", res.Key)
}

func TestResolveBadPlacement(t *testing.T) {
	_, err := execute(t, &application.Mock{}, "--placement", "{not json")
	assert.Error(t, err)

	_, err = execute(t, &application.Mock{}, "--placement", "@/does/not/exist.json")
	assert.Error(t, err)
}

func TestResolveLive(t *testing.T) {
	fake := bridgetest.New().
		Respond("placement.info", map[string]any{"options": `{"ID":"900"}`})
	app := &application.Mock{BridgeFunc: func() (bridge.Bridge, error) { return fake, nil }}

	res, err := execute(t, app, "--live")
	require.NoError(t, err)
	assert.Equal(t, "900", string(res.Identity))
	assert.Equal(t, identity.SourcePlacement, res.Source)
	assert.Equal(t, 1, fake.ReadyCalls())
}

func TestResolveUnknownKind(t *testing.T) {
	_, err := execute(t, &application.Mock{}, "--kind", "invoice-approval")
	assert.Error(t, err)
}
