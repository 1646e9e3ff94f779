package recordsync

import (
	"context"

	"github.com/agentstation/recordsync/pkg/differ"
	"github.com/agentstation/recordsync/pkg/errors"
	"github.com/agentstation/recordsync/pkg/records"
)

// Submit runs one submit attempt:
//
//  1. validate; an invalid form aborts with no state change
//  2. diff the bindings against the baseline
//  3. save a non-empty diff in one batch call; a failure ends the attempt
//     in StateSubmitError without triggering the workflow
//  4. trigger the workflow, reaching StateDone on success or
//     StateSubmitError on failure
//
// A second Submit while one is in flight returns ErrSubmitInProgress and
// issues no remote call.
func (s *session) Submit(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateSubmitting:
		s.mu.Unlock()
		return errors.ErrSubmitInProgress
	case StateDone:
		s.mu.Unlock()
		return errors.ErrReadOnly
	}
	if !s.state.CanTransition(StateSubmitting) {
		state := s.state
		s.mu.Unlock()
		return errors.NewStateError("submit", state.String())
	}

	result := differ.Evaluate(s.baseline, s.bindings)
	if !result.IsValid() {
		s.mu.Unlock()
		return &errors.ValidationError{
			Fields:  result.Validation.Invalid,
			Message: "required fields are empty",
		}
	}

	fire, err := s.transition("submit", StateSubmitting)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.reporter.ClearStatus()
	id := s.resolution.Identity
	s.mu.Unlock()
	fire()

	logger := s.logger.With().Str("identity", id.String()).Logger()

	if result.Dirty.HasChanges() {
		if err := s.client.UpdateFields(ctx, id, result.Dirty.Payload()); err != nil {
			return s.submitFailed(errors.KindBatchSaveFailed, err)
		}
		logger.Info().
			Strs("fields", result.Dirty.Codes()).
			Msg("Dirty fields saved")
	}

	invocationID, err := s.client.StartWorkflow(ctx, id)
	invocation := records.WorkflowInvocation{
		TriggeredAt: s.config.now(),
		Identity:    id,
		Outcome:     records.OutcomeSuccess,
	}
	if err != nil {
		invocation.Outcome = records.OutcomeFailure
		invocation.Error = err.Error()
	} else {
		invocation.InvocationID = invocationID
	}

	s.mu.Lock()
	s.invocations = append(s.invocations, invocation)
	s.mu.Unlock()
	s.hooks.triggerWorkflow(invocation)

	if err != nil {
		return s.submitFailed(errors.KindWorkflowTriggerFailed, err)
	}

	s.mu.Lock()
	fire = s.mustTransition(StateDone)
	s.mu.Unlock()
	fire()

	logger.Info().
		Str("invocation_id", invocation.InvocationID).
		Msg("Workflow started")
	return nil
}

func (s *session) submitFailed(kind errors.Kind, err error) error {
	stage := "save"
	if kind == errors.KindWorkflowTriggerFailed {
		stage = "trigger"
	}
	failure := errors.NewFailure(kind, "", errors.NewStageError(stage, kind, err))

	s.mu.Lock()
	s.reporter.Report(failure)
	fire := s.mustTransition(StateSubmitError)
	s.mu.Unlock()
	fire()
	return failure
}
