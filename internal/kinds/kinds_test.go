package kinds

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/recordsync/pkg/errors"
	"github.com/agentstation/recordsync/pkg/records"
)

func TestDefault(t *testing.T) {
	r, err := Default()
	require.NoError(t, err)
	assert.Equal(t, "embedded", r.Source())
	assert.Equal(t, []string{DefaultKind}, r.Names())

	k, err := r.Get("")
	require.NoError(t, err)
	assert.Equal(t, "crm", k.Module)
	assert.Equal(t, "DEAL_", k.InstanceKeyPrefix)
	assert.Equal(t, "crm.deal.update", k.Methods.Update)
	assert.Equal(t, []string{"price", "rate"}, k.RequiredFields())
	assert.Equal(t, `/details/(\d+)/`, k.Identity.ReferrerPattern)
	assert.Equal(t, "widget", k.Workflow.Parameters["Source"])

	rate, ok := k.Field("rate")
	require.True(t, ok)
	assert.Equal(t, records.FieldTypeMoney, rate.Type)
	assert.Equal(t, "UF_CRM_PRICE_RATE", rate.Code)
}

func TestLoadFile(t *testing.T) {
	r, err := LoadFile(filepath.Join("testdata", "custom.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 1, r.Len())

	k, err := r.Get("lead-review")
	require.NoError(t, err)
	assert.Equal(t, []string{"leadId"}, k.Identity.QueryParams)
	assert.Empty(t, k.Methods.Placement)

	_, err = r.Get(DefaultKind)
	assert.True(t, errors.IsNotFound(err))
}

func TestLoadFileEmptyPath(t *testing.T) {
	r, err := LoadFile("")
	require.NoError(t, err)
	assert.Equal(t, "embedded", r.Source())
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	var cfgErr *errors.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"malformed yaml", "kinds: [\n"},
		{"no kinds", "kinds: []\n"},
		{"invalid kind", "kinds:\n  - name: x\n"},
		{
			"duplicate kind",
			"kinds:\n" + minimalKind("a") + minimalKind("a"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), "test.yaml")
			assert.Error(t, err)
		})
	}
}

func TestListSorted(t *testing.T) {
	r, err := Parse([]byte("kinds:\n"+minimalKind("b")+minimalKind("a")), "test.yaml")
	require.NoError(t, err)

	var names []string
	for _, k := range r.List() {
		names = append(names, k.Name)
	}
	assert.Equal(t, []string{"a", "b"}, names)
}

func TestEmbeddedCopy(t *testing.T) {
	data := Embedded()
	data[0] = 'X'
	assert.NotEqual(t, data[0], Embedded()[0])

	path := filepath.Join(t.TempDir(), "kinds.yaml")
	require.NoError(t, os.WriteFile(path, Embedded(), 0o600))
	r, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, r.Source())
}

func minimalKind(name string) string {
	return "  - name: " + name + "\n" +
		"    methods: {get: g, update: u, workflow: w}\n" +
		"    fields: [{id: f, code: F}]\n" +
		"    workflow: {template_ref: \"1\"}\n"
}
