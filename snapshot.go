package recordsync

import (
	"github.com/agentstation/recordsync/pkg/differ"
	"github.com/agentstation/recordsync/pkg/errors"
	"github.com/agentstation/recordsync/pkg/identity"
	"github.com/agentstation/recordsync/pkg/records"
)

// Snapshot is an immutable view of a session for rendering.
type Snapshot struct {
	ID          string                       `json:"id"`
	Kind        string                       `json:"kind"`
	State       State                        `json:"state"`
	Booting     bool                         `json:"booting"`
	GateOutcome string                       `json:"gate_outcome,omitempty"`
	Identity    records.Identity             `json:"identity,omitempty"`
	Source      identity.Source              `json:"source"`
	Baseline    records.Record               `json:"baseline"`
	Bindings    records.Bindings             `json:"bindings"`
	Dirty       differ.Changeset             `json:"dirty"`
	Valid       bool                         `json:"valid"`
	Invalid     []string                     `json:"invalid,omitempty"`
	ReadOnly    bool                         `json:"read_only"`
	Status      *errors.Failure              `json:"status,omitempty"`
	Notes       map[string]*errors.Failure   `json:"notes,omitempty"`
	Invocations []records.WorkflowInvocation `json:"invocations,omitempty"`
}

// Binding returns the binding for a field id.
func (s Snapshot) Binding(fieldID string) (records.Binding, bool) {
	i, ok := s.Bindings.Index(fieldID)
	if !ok {
		return records.Binding{}, false
	}
	return s.Bindings[i], true
}

// Snapshot returns an immutable view of the session.
func (s *session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := differ.Evaluate(s.baseline, s.bindings)
	snap := Snapshot{
		ID:          s.id,
		Kind:        s.kind.Name,
		State:       s.state,
		Booting:     s.state.Booting(),
		Identity:    s.resolution.Identity,
		Source:      s.resolution.Source,
		Baseline:    s.baseline,
		Bindings:    s.bindingsCopy(),
		Dirty:       result.Dirty,
		Valid:       result.IsValid(),
		Invalid:     result.Validation.Invalid,
		ReadOnly:    s.state == StateDone,
		Status:      s.reporter.Status(),
		Notes:       s.reporter.Notes(),
		Invocations: append([]records.WorkflowInvocation(nil), s.invocations...),
	}
	if s.outcome != nil {
		snap.GateOutcome = s.outcome.String()
	}
	return snap
}
