// Package differ computes what changed between the baseline snapshot of a
// remote record and the live field bindings, and whether the bindings are
// eligible for submit. Everything here is pure and deterministic.
package differ

import (
	"fmt"
	"strings"
)

// ChangeType represents the type of change.
type ChangeType string

const (
	// ChangeTypeAdd indicates a field gained a value it did not have.
	ChangeTypeAdd ChangeType = "add"
	// ChangeTypeUpdate indicates a field value was changed.
	ChangeTypeUpdate ChangeType = "update"
	// ChangeTypeRemove indicates a field value was cleared.
	ChangeTypeRemove ChangeType = "remove"
)

// FieldChange represents a change to a specific bound field.
type FieldChange struct {
	FieldID  string     `json:"field_id"`
	Code     string     `json:"code"`
	OldValue string     `json:"old_value"`
	NewValue string     `json:"new_value"`
	Type     ChangeType `json:"type"`
}

// Changeset is the dirty set of a session: the bindings whose trimmed
// current value differs from the trimmed baseline value, in binding order.
type Changeset struct {
	Changes []FieldChange `json:"changes"`
}

// IsEmpty returns true if the changeset contains no changes.
func (c Changeset) IsEmpty() bool {
	return len(c.Changes) == 0
}

// HasChanges returns true if the changeset contains any changes.
func (c Changeset) HasChanges() bool {
	return len(c.Changes) > 0
}

// Len returns the number of dirty fields.
func (c Changeset) Len() int {
	return len(c.Changes)
}

// Codes returns the remote field codes of the dirty fields.
func (c Changeset) Codes() []string {
	codes := make([]string, 0, len(c.Changes))
	for _, ch := range c.Changes {
		codes = append(codes, ch.Code)
	}
	return codes
}

// Contains reports whether the field code is dirty.
func (c Changeset) Contains(code string) bool {
	for _, ch := range c.Changes {
		if ch.Code == code {
			return true
		}
	}
	return false
}

// Payload returns the field code to value map sent in a batch update.
func (c Changeset) Payload() map[string]string {
	out := make(map[string]string, len(c.Changes))
	for _, ch := range c.Changes {
		out[ch.Code] = ch.NewValue
	}
	return out
}

// String returns a human-readable summary.
func (c Changeset) String() string {
	if c.IsEmpty() {
		return "no changes"
	}
	parts := make([]string, 0, len(c.Changes))
	for _, ch := range c.Changes {
		parts = append(parts, fmt.Sprintf("%s %s: %q -> %q", ch.Type, ch.Code, ch.OldValue, ch.NewValue))
	}
	return strings.Join(parts, "; ")
}
