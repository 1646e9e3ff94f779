package kinds

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/recordsync/cmd/application"
	kindreg "github.com/agentstation/recordsync/internal/kinds"
	"github.com/agentstation/recordsync/pkg/records"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewCommand(&application.Mock{})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	err := cmd.Execute()
	return out.String(), err
}

func TestKindsList(t *testing.T) {
	out, err := execute(t)
	require.NoError(t, err)

	var list []records.Kind
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list, 1)
	assert.Equal(t, kindreg.DefaultKind, list[0].Name)
}

func TestKindsShow(t *testing.T) {
	out, err := execute(t, "show")
	require.NoError(t, err)

	var k records.Kind
	require.NoError(t, json.Unmarshal([]byte(out), &k))
	assert.Equal(t, "crm.deal.get", k.Methods.Get)
	assert.Equal(t, []string{"price", "rate"}, k.RequiredFields())

	_, err = execute(t, "show", "missing")
	assert.Error(t, err)
}

func TestKindsValidate(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "kinds.yaml")
	require.NoError(t, os.WriteFile(good, kindreg.Embedded(), 0o600))

	out, err := execute(t, "validate", good)
	require.NoError(t, err)
	assert.Contains(t, out, "1 kind(s) valid")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("kinds: []\n"), 0o600))
	_, err = execute(t, "validate", bad)
	assert.Error(t, err)
}

func TestKindsDefaults(t *testing.T) {
	out, err := execute(t, "defaults")
	require.NoError(t, err)
	assert.Equal(t, string(kindreg.Embedded()), out)
}
