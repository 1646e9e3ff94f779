package recordsync

import (
	"sync"

	"github.com/agentstation/recordsync/pkg/errors"
	"github.com/agentstation/recordsync/pkg/records"
)

// Hook function types for session events
type (
	// StateChangeHook is called after every lifecycle transition
	StateChangeHook func(from, to State)

	// FieldSavedHook is called after a successful autosave
	FieldSavedHook func(fieldID, value string)

	// FieldFailedHook is called after a failed autosave
	FieldFailedHook func(fieldID string, failure *errors.Failure)

	// WorkflowHook is called after every workflow trigger attempt
	WorkflowHook func(invocation records.WorkflowInvocation)
)

// hooks manages event callbacks for a session. Callbacks run on the
// goroutine that caused the event, never under the session lock.
type hooks struct {
	mu            sync.RWMutex
	onStateChange []StateChangeHook
	onFieldSaved  []FieldSavedHook
	onFieldFailed []FieldFailedHook
	onWorkflow    []WorkflowHook
}

// newHooks creates a new hooks instance
func newHooks() *hooks {
	return &hooks{}
}

// OnStateChange registers a callback for lifecycle transitions
func (h *hooks) OnStateChange(fn StateChangeHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onStateChange = append(h.onStateChange, fn)
}

// OnFieldSaved registers a callback for successful autosaves
func (h *hooks) OnFieldSaved(fn FieldSavedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onFieldSaved = append(h.onFieldSaved, fn)
}

// OnFieldFailed registers a callback for failed autosaves
func (h *hooks) OnFieldFailed(fn FieldFailedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onFieldFailed = append(h.onFieldFailed, fn)
}

// OnWorkflow registers a callback for workflow trigger attempts
func (h *hooks) OnWorkflow(fn WorkflowHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onWorkflow = append(h.onWorkflow, fn)
}

func (h *hooks) triggerStateChange(from, to State) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, fn := range h.onStateChange {
		fn(from, to)
	}
}

func (h *hooks) triggerFieldSaved(fieldID, value string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, fn := range h.onFieldSaved {
		fn(fieldID, value)
	}
}

func (h *hooks) triggerFieldFailed(fieldID string, failure *errors.Failure) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, fn := range h.onFieldFailed {
		fn(fieldID, failure)
	}
}

func (h *hooks) triggerWorkflow(invocation records.WorkflowInvocation) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, fn := range h.onWorkflow {
		fn(invocation)
	}
}
