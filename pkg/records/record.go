// Package records defines the data model shared by the synchronization
// engine: the remote record snapshot, field bindings, record kinds and
// workflow invocations.
package records

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// Identity is the opaque key of the remote record a session operates on.
type Identity string

// String returns the identity as a string.
func (id Identity) String() string {
	return string(id)
}

// IsZero reports whether the identity is empty after trimming.
func (id Identity) IsZero() bool {
	return strings.TrimSpace(string(id)) == ""
}

// Record is an immutable snapshot of a remote record: a flat mapping from
// field code to scalar string value. It is replaced wholesale on reload and
// never mutated field by field.
type Record struct {
	fields map[string]string
}

// NewRecord creates a record from a copy of the given values.
func NewRecord(values map[string]string) Record {
	fields := make(map[string]string, len(values))
	for k, v := range values {
		fields[k] = v
	}
	return Record{fields: fields}
}

// RecordFromRemote builds a record from a decoded remote payload. Scalar
// values are normalized to strings; nested objects and arrays are dropped.
func RecordFromRemote(payload map[string]any) Record {
	fields := make(map[string]string, len(payload))
	for code, raw := range payload {
		if v, ok := NormalizeScalar(raw); ok {
			fields[code] = v
		}
	}
	return Record{fields: fields}
}

// Get returns the value for a field code and whether it was present.
func (r Record) Get(code string) (string, bool) {
	v, ok := r.fields[code]
	return v, ok
}

// Value returns the value for a field code, or "" if absent.
func (r Record) Value(code string) string {
	return r.fields[code]
}

// Len returns the number of fields in the record.
func (r Record) Len() int {
	return len(r.fields)
}

// IsEmpty reports whether the record holds no fields.
func (r Record) IsEmpty() bool {
	return len(r.fields) == 0
}

// Codes returns the field codes in sorted order.
func (r Record) Codes() []string {
	codes := make([]string, 0, len(r.fields))
	for code := range r.fields {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Map returns a copy of the record's values.
func (r Record) Map() map[string]string {
	out := make(map[string]string, len(r.fields))
	for k, v := range r.fields {
		out[k] = v
	}
	return out
}

// MarshalJSON encodes the record as a flat JSON object.
func (r Record) MarshalJSON() ([]byte, error) {
	if r.fields == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(r.fields)
}

// UnmarshalJSON decodes a flat JSON object of string values.
func (r *Record) UnmarshalJSON(data []byte) error {
	var fields map[string]string
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*r = NewRecord(fields)
	return nil
}

// NormalizeScalar converts a decoded JSON scalar to its string form.
// Strings are kept, numbers keep their literal text, booleans become
// "true"/"false" and null becomes "". Objects and arrays are not scalars.
func NormalizeScalar(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", true
	case string:
		return x, true
	case json.Number:
		return x.String(), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case bool:
		return strconv.FormatBool(x), true
	default:
		return "", false
	}
}
