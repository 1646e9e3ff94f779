// Package recordsync is the remote-record synchronization engine behind the
// price-approval widget. A Session resolves which remote record the current
// embedding refers to, loads it, tracks edits against the loaded baseline,
// autosaves single fields on blur and, on submit, persists the dirty set in
// one batch before triggering the record kind's workflow.
//
// All session state changes happen under one lock; remote calls run outside
// it, so autosaves for different fields may be in flight at the same time.
package recordsync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/agentstation/recordsync/pkg/bridge"
	"github.com/agentstation/recordsync/pkg/differ"
	"github.com/agentstation/recordsync/pkg/errors"
	"github.com/agentstation/recordsync/pkg/gate"
	"github.com/agentstation/recordsync/pkg/identity"
	"github.com/agentstation/recordsync/pkg/loader"
	"github.com/agentstation/recordsync/pkg/logging"
	"github.com/agentstation/recordsync/pkg/records"
	"github.com/agentstation/recordsync/pkg/reporter"
)

// Session synchronizes one remote record for one page instance
type Session interface {
	// ID returns the session id
	ID() string

	// Kind returns the record kind profile
	Kind() *records.Kind

	// State returns the current lifecycle state
	State() State

	// Start boots the session: waits for the bridge, resolves identity and
	// loads the record
	Start(ctx context.Context, env identity.Env) error

	// Retry restarts the failed boot stage from zero
	Retry(ctx context.Context) error

	// SetIdentity supplies a manual identity after automatic resolution failed
	SetIdentity(ctx context.Context, value string) error

	// Reload replaces the baseline with a fresh read and reseeds bindings
	Reload(ctx context.Context) error

	// Edit sets a field's current value and returns the new evaluation
	Edit(fieldID, value string) (differ.Result, error)

	// Blur autosaves a field if it has an unsaved edit
	Blur(ctx context.Context, fieldID string) (bool, error)

	// Submit validates, saves the dirty set and triggers the workflow
	Submit(ctx context.Context) error

	// Evaluate returns the current dirty set and validity
	Evaluate() differ.Result

	// Snapshot returns an immutable view of the session
	Snapshot() Snapshot

	// Fields returns field metadata for rendering
	Fields(ctx context.Context) ([]records.FieldMeta, error)

	// OnStateChange registers a callback for lifecycle transitions
	OnStateChange(StateChangeHook)

	// OnFieldSaved registers a callback for successful autosaves
	OnFieldSaved(FieldSavedHook)

	// OnFieldFailed registers a callback for failed autosaves
	OnFieldFailed(FieldFailedHook)

	// OnWorkflow registers a callback for workflow trigger attempts
	OnWorkflow(WorkflowHook)
}

// session is the implementation of the Session interface
type session struct {
	mu sync.Mutex

	id     string
	kind   *records.Kind
	config *config
	logger *zerolog.Logger

	bridge   bridge.Bridge
	client   *bridge.Client
	resolver *identity.Resolver
	loader   *loader.Loader
	reporter *reporter.Reporter

	env         identity.Env
	started     bool
	ready       chan struct{}
	state       State
	outcome     *gate.Outcome
	resolution  identity.Result
	baseline    records.Record
	bindings    records.Bindings
	generation  int
	invocations []records.WorkflowInvocation

	*hooks
}

// New creates a session. WithKind and WithBridge are required.
func New(opts ...Option) (Session, error) {
	cfg := &config{now: time.Now}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("applying options: %w", err)
		}
	}
	if cfg.kind == nil {
		return nil, errors.NewConfigError("session", "a record kind is required", nil)
	}
	if cfg.bridge == nil {
		return nil, errors.NewConfigError("session", "a host bridge is required", nil)
	}
	if cfg.id == "" {
		cfg.id = uuid.NewString()
	}
	if cfg.logger == nil {
		cfg.logger = logging.Default()
	}

	logger := cfg.logger.With().
		Str("session_id", cfg.id).
		Str("kind", cfg.kind.Name).
		Logger()

	client := bridge.NewClient(cfg.bridge, cfg.kind, bridge.WithClientLogger(&logger))
	s := &session{
		id:       cfg.id,
		kind:     cfg.kind,
		config:   cfg,
		logger:   &logger,
		bridge:   cfg.bridge,
		client:   client,
		loader:   loader.New(client, loader.WithCache(cfg.fieldsCache), loader.WithLogger(&logger)),
		reporter: reporter.New(&logger),
		bindings: records.NewBindings(cfg.kind.Fields),
		hooks:    newHooks(),
	}

	resolver, err := identity.NewResolver(cfg.kind.Identity,
		identity.WithLogger(&logger),
		identity.WithPlacement(identity.PlacementFunc(s.placementOptions)),
	)
	if err != nil {
		return nil, errors.NewConfigError("session", "identity sources", err)
	}
	s.resolver = resolver

	return s, nil
}

// ID returns the session id
func (s *session) ID() string {
	return s.id
}

// Kind returns the record kind profile
func (s *session) Kind() *records.Kind {
	return s.kind
}

// State returns the current lifecycle state
func (s *session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Fields returns field metadata for rendering. It takes no part in
// synchronization and is cached per kind.
func (s *session) Fields(ctx context.Context) ([]records.FieldMeta, error) {
	return s.loader.Fields(ctx)
}

// transition moves to a new state. It must be called with s.mu held and
// returns a func that fires the state hooks, to be called after unlocking.
func (s *session) transition(operation string, to State) (func(), error) {
	from := s.state
	if !from.CanTransition(to) {
		return nil, errors.NewStateError(operation, from.String())
	}
	s.state = to
	s.logger.Debug().
		Str("from", from.String()).
		Str("to", to.String()).
		Msg("Session state changed")
	return func() { s.hooks.triggerStateChange(from, to) }, nil
}

// mustTransition is transition for internal moves that are valid by
// construction.
func (s *session) mustTransition(to State) func() {
	fire, err := s.transition("transition", to)
	if err != nil {
		s.logger.Error().Err(err).Str("to", to.String()).Msg("Invalid session transition")
		return func() {}
	}
	return fire
}
