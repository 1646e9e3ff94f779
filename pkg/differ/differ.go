package differ

import (
	"strings"

	"github.com/agentstation/recordsync/pkg/records"
)

// Validation is the submit-eligibility of a set of bindings.
type Validation struct {
	Valid   bool     `json:"valid"`
	Invalid []string `json:"invalid,omitempty"` // field ids of empty required bindings
}

// Result is the combined output recomputed after every edit.
type Result struct {
	Dirty      Changeset  `json:"dirty"`
	Validation Validation `json:"validation"`
}

// IsValid reports whether submit is allowed.
func (r Result) IsValid() bool {
	return r.Validation.Valid
}

// Normalize returns the comparison form of a value.
func Normalize(v string) string {
	return strings.TrimSpace(v)
}

// Equal compares two values after trimming surrounding whitespace.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// Pending reports whether a binding has an edit not yet autosaved. This
// compares against the last persisted value, not the baseline.
func Pending(b records.Binding) bool {
	return !Equal(b.CurrentValue, b.LastPersistedValue)
}

// Diff returns the bindings whose current value differs from the baseline.
func Diff(baseline records.Record, bindings records.Bindings) Changeset {
	cs := Changeset{Changes: []FieldChange{}}
	for _, b := range bindings {
		old := baseline.Value(b.Code)
		if Equal(old, b.CurrentValue) {
			continue
		}
		cs.Changes = append(cs.Changes, FieldChange{
			FieldID:  b.FieldID,
			Code:     b.Code,
			OldValue: old,
			NewValue: b.CurrentValue,
			Type:     changeType(old, b.CurrentValue),
		})
	}
	return cs
}

// Validate checks that every required binding has a non-empty trimmed value.
func Validate(bindings records.Bindings) Validation {
	v := Validation{Valid: true}
	for _, b := range bindings {
		if b.Required && Normalize(b.CurrentValue) == "" {
			v.Valid = false
			v.Invalid = append(v.Invalid, b.FieldID)
		}
	}
	return v
}

// Evaluate computes both the dirty set and validity.
func Evaluate(baseline records.Record, bindings records.Bindings) Result {
	return Result{
		Dirty:      Diff(baseline, bindings),
		Validation: Validate(bindings),
	}
}

func changeType(old, updated string) ChangeType {
	switch {
	case Normalize(old) == "":
		return ChangeTypeAdd
	case Normalize(updated) == "":
		return ChangeTypeRemove
	default:
		return ChangeTypeUpdate
	}
}
