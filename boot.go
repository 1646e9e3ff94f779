package recordsync

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/agentstation/recordsync/pkg/errors"
	"github.com/agentstation/recordsync/pkg/gate"
	"github.com/agentstation/recordsync/pkg/identity"
	"github.com/agentstation/recordsync/pkg/records"
)

// Start boots the session. The bridge gate and identity resolution run
// concurrently; the record loads once both succeed. An unresolved identity
// is not an error: the session moves to StateNeedsIdentity and waits for
// SetIdentity.
func (s *session) Start(ctx context.Context, env identity.Env) error {
	s.mu.Lock()
	fire, err := s.transition("start", StateConnecting)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.env = env
	s.started = true
	s.mu.Unlock()
	fire()

	return s.boot(ctx)
}

// boot runs the gate and the resolver from zero. The session must be in
// StateConnecting.
func (s *session) boot(ctx context.Context) error {
	ready := make(chan struct{})
	s.mu.Lock()
	s.ready = ready
	env := s.env
	s.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		outcome, err := s.bridge.AwaitReady(gctx, s.config.bridgeTimeout)
		if err != nil {
			return err
		}
		if outcome == gate.OutcomeReadyAssumed {
			s.logger.Warn().Msg("Host handshake unanswered, session continues on assumed readiness")
		}

		s.mu.Lock()
		s.outcome = &outcome
		fire := s.mustTransition(StateResolvingIdentity)
		s.mu.Unlock()
		fire()
		close(ready)
		return nil
	})

	var res identity.Result
	g.Go(func() error {
		var err error
		res, err = s.resolver.Resolve(gctx, env)
		return err
	})

	if err := g.Wait(); err != nil {
		return s.bootFailed(ctx, err)
	}
	return s.resolved(ctx, res)
}

// placementOptions reads placement options once the gate reported ready.
func (s *session) placementOptions(ctx context.Context) (map[string]any, error) {
	s.mu.Lock()
	ready := s.ready
	s.mu.Unlock()

	if ready != nil {
		select {
		case <-ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.client.PlacementOptions(ctx)
}

func (s *session) bootFailed(ctx context.Context, err error) error {
	s.mu.Lock()
	if errors.IsCanceled(err) || ctx.Err() != nil {
		fire := s.mustTransition(StateIdle)
		s.mu.Unlock()
		fire()
		s.logger.Info().Err(err).Msg("Session boot canceled")
		return err
	}

	failure := errors.NewFailure(errors.KindBridgeUnavailable, "", err)
	s.reporter.Report(failure)
	fire := s.mustTransition(StateBridgeUnavailable)
	s.mu.Unlock()
	fire()
	return failure
}

func (s *session) resolved(ctx context.Context, res identity.Result) error {
	s.mu.Lock()
	if res.NeedsManualInput() {
		s.reporter.Report(errors.NewFailure(errors.KindIdentityUnresolved, "",
			fmt.Errorf("%w: no identity source matched", errors.ErrIdentityUnresolved)))
		fire := s.mustTransition(StateNeedsIdentity)
		s.mu.Unlock()
		fire()
		return nil
	}

	s.resolution = res
	s.logger.Info().
		Str("identity", res.Identity.String()).
		Str("source", res.Source.String()).
		Msg("Identity resolved")
	s.mu.Unlock()

	return s.load(ctx, "load")
}

// load reads the record and makes it the new baseline.
func (s *session) load(ctx context.Context, operation string) error {
	s.mu.Lock()
	if s.state == StateDone {
		s.mu.Unlock()
		return errors.ErrReadOnly
	}
	fire, err := s.transition(operation, StateLoading)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.generation++
	id := s.resolution.Identity
	s.mu.Unlock()
	fire()

	rec, err := s.loader.Load(ctx, id)

	s.mu.Lock()
	if err != nil {
		failure := errors.NewFailure(errors.KindRecordLoadFailed, "", err)
		s.reporter.Report(failure)
		fire = s.mustTransition(StateLoadFailed)
		s.mu.Unlock()
		fire()
		return failure
	}

	s.baseline = rec
	s.bindings = records.NewBindings(s.kind.Fields)
	s.bindings.Seed(rec)
	s.reporter.Reset()
	fire = s.mustTransition(StateReady)
	s.mu.Unlock()
	fire()
	return nil
}

// Retry restarts the failed stage: the whole boot after an unavailable
// bridge or a canceled boot, identity resolution after no source matched,
// the read after a failed load. A canceled boot restarts with the
// environment given to Start.
func (s *session) Retry(ctx context.Context) error {
	s.mu.Lock()
	switch {
	case s.state == StateIdle && !s.started:
		s.mu.Unlock()
		return errors.NewStateError("retry", StateIdle.String())

	case s.state == StateBridgeUnavailable, s.state == StateIdle:
		fire := s.mustTransition(StateConnecting)
		s.reporter.ClearStatus()
		s.mu.Unlock()
		fire()
		return s.boot(ctx)

	case s.state == StateNeedsIdentity:
		fire := s.mustTransition(StateResolvingIdentity)
		s.reporter.ClearStatus()
		env := s.env
		s.mu.Unlock()
		fire()

		res, err := s.resolver.Resolve(ctx, env)
		if err != nil {
			return s.bootFailed(ctx, err)
		}
		return s.resolved(ctx, res)

	case s.state == StateLoadFailed:
		s.mu.Unlock()
		return s.load(ctx, "retry")

	default:
		state := s.state
		s.mu.Unlock()
		return errors.NewStateError("retry", state.String())
	}
}

// SetIdentity supplies a trusted manual identity. It is accepted only while
// the session waits for one; a resolved identity never changes.
func (s *session) SetIdentity(ctx context.Context, value string) error {
	s.mu.Lock()
	if !s.resolution.Identity.IsZero() {
		id := s.resolution.Identity
		s.mu.Unlock()
		return fmt.Errorf("%w: already resolved to %s", errors.ErrIdentityLocked, id)
	}
	if s.state != StateNeedsIdentity {
		state := s.state
		s.mu.Unlock()
		return errors.NewStateError("set identity", state.String())
	}
	res, err := identity.Manual(value)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.resolution = res
	s.reporter.ClearStatus()
	s.logger.Info().
		Str("identity", res.Identity.String()).
		Msg("Identity set manually")
	s.mu.Unlock()

	return s.load(ctx, "set identity")
}

// Reload replaces the baseline wholesale and reseeds every binding,
// discarding unsaved edits. Cached field metadata is dropped so the next
// Fields call reads it again.
func (s *session) Reload(ctx context.Context) error {
	s.loader.Invalidate()
	return s.load(ctx, "reload")
}
