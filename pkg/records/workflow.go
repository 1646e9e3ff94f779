package records

import "time"

// Outcome is the result of a workflow invocation.
type Outcome string

// Workflow outcomes.
const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// WorkflowInvocation records one workflow trigger made by a submit attempt.
type WorkflowInvocation struct {
	TriggeredAt  time.Time `json:"triggered_at"`
	Identity     Identity  `json:"identity"`
	Outcome      Outcome   `json:"outcome"`
	InvocationID string    `json:"invocation_id,omitempty"`
	Error        string    `json:"error,omitempty"`
}

// Succeeded reports whether the workflow started.
func (w WorkflowInvocation) Succeeded() bool {
	return w.Outcome == OutcomeSuccess
}

// FieldMeta describes a remote field for rendering only. It takes no part
// in synchronization.
type FieldMeta struct {
	Code     string        `json:"code"`
	Label    string        `json:"label"`
	Type     string        `json:"type"`
	Required bool          `json:"required"`
	ReadOnly bool          `json:"read_only"`
	Options  []FieldOption `json:"options,omitempty"`
}

// FieldOption is one enumeration entry of a remote field.
type FieldOption struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}
