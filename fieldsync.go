package recordsync

import (
	"context"
	"fmt"

	"github.com/agentstation/recordsync/pkg/differ"
	"github.com/agentstation/recordsync/pkg/errors"
	"github.com/agentstation/recordsync/pkg/records"
)

// Edit sets the current value of a field. The dirty set and validity are
// recomputed synchronously and returned.
func (s *session) Edit(fieldID, value string) (differ.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkEditable("edit"); err != nil {
		return differ.Result{}, err
	}
	i, ok := s.bindings.Index(fieldID)
	if !ok {
		return differ.Result{}, fmt.Errorf("%w: %s", errors.ErrUnknownField, fieldID)
	}
	s.bindings[i].CurrentValue = value
	return differ.Evaluate(s.baseline, s.bindings), nil
}

// Evaluate returns the current dirty set and validity.
func (s *session) Evaluate() differ.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return differ.Evaluate(s.baseline, s.bindings)
}

// Blur autosaves a field when its current value differs from the last value
// persisted for it. The comparison is against the last persisted value, not
// the baseline. A failure becomes a note on the field and is returned; it
// never changes the lifecycle state nor blocks other fields or submit.
func (s *session) Blur(ctx context.Context, fieldID string) (bool, error) {
	s.mu.Lock()
	switch {
	case s.state == StateDone:
		s.mu.Unlock()
		return false, errors.ErrReadOnly
	case !s.state.Editable() && s.state != StateSubmitting:
		state := s.state
		s.mu.Unlock()
		return false, errors.NewStateError("autosave", state.String())
	}
	i, ok := s.bindings.Index(fieldID)
	if !ok {
		s.mu.Unlock()
		return false, fmt.Errorf("%w: %s", errors.ErrUnknownField, fieldID)
	}
	b := s.bindings[i]
	if !differ.Pending(b) {
		s.mu.Unlock()
		return false, nil
	}
	id := s.resolution.Identity
	generation := s.generation
	s.mu.Unlock()

	value := b.CurrentValue
	err := s.client.UpdateFields(ctx, id, map[string]string{b.Code: value})

	s.mu.Lock()
	if generation != s.generation {
		s.mu.Unlock()
		s.logger.Debug().Str("field", fieldID).Msg("Dropping autosave result from before reload")
		return false, err
	}
	if err != nil {
		failure := errors.NewFailure(errors.KindFieldAutosaveFailed, fieldID, err)
		s.reporter.Report(failure)
		s.mu.Unlock()
		s.hooks.triggerFieldFailed(fieldID, failure)
		return false, failure
	}

	// A response for an older edit still advances the persisted value to
	// what it sent; submit diffs against the baseline, not this value.
	s.bindings[i].LastPersistedValue = value
	s.reporter.ClearNote(fieldID)
	s.mu.Unlock()

	s.logger.Debug().
		Str("field", fieldID).
		Str("identity", id.String()).
		Msg("Field autosaved")
	s.hooks.triggerFieldSaved(fieldID, value)
	return true, nil
}

func (s *session) checkEditable(operation string) error {
	if s.state == StateDone {
		return errors.ErrReadOnly
	}
	if !s.state.Editable() {
		return errors.NewStateError(operation, s.state.String())
	}
	return nil
}

func (s *session) bindingsCopy() records.Bindings {
	return s.bindings.Clone()
}
