package records_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/recordsync/pkg/errors"
	"github.com/agentstation/recordsync/pkg/records"
)

func TestRecordIsImmutable(t *testing.T) {
	src := map[string]string{"rate": "1"}
	r := records.NewRecord(src)
	src["rate"] = "2"

	assert.Equal(t, "1", r.Value("rate"))

	m := r.Map()
	m["rate"] = "3"
	assert.Equal(t, "1", r.Value("rate"))
}

func TestRecordJSON(t *testing.T) {
	r := records.NewRecord(map[string]string{"OPPORTUNITY": "1200", "UF_CRM_AREA": ""})
	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"OPPORTUNITY":"1200","UF_CRM_AREA":""}`, string(data))

	var back records.Record
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, r.Map(), back.Map())

	empty, err := json.Marshal(records.Record{})
	require.NoError(t, err)
	assert.Equal(t, "{}", string(empty))
}

func TestRecordFromRemote(t *testing.T) {
	var payload map[string]any
	dec := json.NewDecoder(jsonReader(`{"ID":"6443","OPPORTUNITY":1500.50,"CLOSED":false,"COMMENTS":null,"PHONE":[{"VALUE":"1"}],"UF":{"a":1},"COUNT":7}`))
	dec.UseNumber()
	require.NoError(t, dec.Decode(&payload))

	r := records.RecordFromRemote(payload)

	assert.Equal(t, "6443", r.Value("ID"))
	assert.Equal(t, "1500.50", r.Value("OPPORTUNITY"))
	assert.Equal(t, "false", r.Value("CLOSED"))
	assert.Equal(t, "7", r.Value("COUNT"))

	v, ok := r.Get("COMMENTS")
	assert.True(t, ok)
	assert.Equal(t, "", v)

	_, ok = r.Get("PHONE")
	assert.False(t, ok, "arrays are not synchronized")
	_, ok = r.Get("UF")
	assert.False(t, ok, "objects are not synchronized")

	assert.Equal(t, []string{"CLOSED", "COMMENTS", "COUNT", "ID", "OPPORTUNITY"}, r.Codes())
}

func TestNormalizeScalar(t *testing.T) {
	tests := []struct {
		in   any
		want string
		ok   bool
	}{
		{"x", "x", true},
		{float64(10), "10", true},
		{2.5, "2.5", true},
		{true, "true", true},
		{nil, "", true},
		{int64(12), "12", true},
		{[]any{}, "", false},
		{map[string]any{}, "", false},
	}
	for _, tt := range tests {
		got, ok := records.NormalizeScalar(tt.in)
		assert.Equal(t, tt.ok, ok, "%v", tt.in)
		assert.Equal(t, tt.want, got, "%v", tt.in)
	}
}

func TestBindingsSeed(t *testing.T) {
	bs := records.NewBindings([]records.FieldSpec{
		{ID: "rate", Code: "UF_RATE", Required: true},
		{ID: "area", Code: "UF_AREA"},
	})
	bs.Seed(records.NewRecord(map[string]string{"UF_AREA": "10"}))

	assert.Equal(t, "", bs[0].CurrentValue)
	assert.Equal(t, "10", bs[1].CurrentValue)
	assert.Equal(t, "10", bs[1].LastPersistedValue)

	i, ok := bs.Index("area")
	assert.True(t, ok)
	assert.Equal(t, 1, i)
	_, ok = bs.Index("nope")
	assert.False(t, ok)

	clone := bs.Clone()
	clone[0].CurrentValue = "x"
	assert.Equal(t, "", bs[0].CurrentValue)
}

func TestKindValidate(t *testing.T) {
	valid := func() records.Kind {
		return records.Kind{
			Name:              "price-approval",
			Module:            "crm",
			EntityClass:       "CCrmDocumentDeal",
			InstanceKeyPrefix: "DEAL_",
			Methods:           records.Methods{Get: "crm.deal.get", Update: "crm.deal.update", Workflow: "bizproc.workflow.start"},
			Identity:          records.IdentitySources{ReferrerPattern: `/details/(\d+)/`},
			Fields:            []records.FieldSpec{{ID: "rate", Code: "UF_RATE", Required: true, Type: records.FieldTypeMoney}},
			Workflow:          records.Workflow{TemplateRef: "42"},
		}
	}

	k := valid()
	require.NoError(t, k.Validate())
	assert.Equal(t, [3]string{"crm", "CCrmDocumentDeal", "DEAL_6443"}, k.DocumentID("6443"))
	assert.Equal(t, []string{"rate"}, k.RequiredFields())

	tests := []struct {
		name   string
		mutate func(*records.Kind)
	}{
		{"no name", func(k *records.Kind) { k.Name = " " }},
		{"no update method", func(k *records.Kind) { k.Methods.Update = "" }},
		{"no template", func(k *records.Kind) { k.Workflow.TemplateRef = "" }},
		{"no fields", func(k *records.Kind) { k.Fields = nil }},
		{"bad pattern", func(k *records.Kind) { k.Identity.ReferrerPattern = "(" }},
		{"duplicate id", func(k *records.Kind) { k.Fields = append(k.Fields, records.FieldSpec{ID: "rate", Code: "X"}) }},
		{"duplicate code", func(k *records.Kind) { k.Fields = append(k.Fields, records.FieldSpec{ID: "x", Code: "UF_RATE"}) }},
		{"bad type", func(k *records.Kind) { k.Fields[0].Type = "blob" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := valid()
			tt.mutate(&k)
			err := k.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsValidationError(err))
		})
	}
}

func TestIdentity(t *testing.T) {
	assert.True(t, records.Identity("  ").IsZero())
	assert.False(t, records.Identity("6443").IsZero())
}
