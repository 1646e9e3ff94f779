// Package approve provides the approve command, a headless approval run:
// boot a session, apply field values with autosave, then submit.
package approve

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentstation/recordsync"
	"github.com/agentstation/recordsync/cmd/application"
	"github.com/agentstation/recordsync/internal/cmd/alerts"
	"github.com/agentstation/recordsync/internal/cmd/output"
	"github.com/agentstation/recordsync/pkg/errors"
	"github.com/agentstation/recordsync/pkg/identity"
	"github.com/agentstation/recordsync/pkg/records"
)

// Flags holds the approve command flags.
type Flags struct {
	Kind     string
	URL      string
	Referrer string
	Identity string
	Set      []string
	NoSubmit bool
	Timeout  time.Duration
}

// NewCommand creates the approve command.
func NewCommand(app application.Application) *cobra.Command {
	flags := &Flags{}
	cmd := &cobra.Command{
		Use:     "approve",
		GroupID: "core",
		Short:   "Load a record, update fields and submit it for approval",
		Long: `Approve runs one widget session from the terminal.

The record identity is resolved from the host placement, --url and
--referrer, or taken from --identity. Each --set value is edited and
autosaved like a field losing focus. The record is then validated, saved
and its approval workflow started, unless --no-submit is given.

The final session snapshot is printed; the command fails when the
session does not end in a successful state.`,
		Example: `  recordsync approve --identity 6443 --set rate=12.5 --set comment="ok by finance"
  recordsync approve --url '?dealId=6443' --no-submit -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if flags.Timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, flags.Timeout)
				defer cancel()
			}
			return run(ctx, cmd, app, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.Kind, "kind", "k", "", "record kind (default is the default profile)")
	cmd.Flags().StringVar(&flags.URL, "url", "", "page URL or raw query string used for identity resolution")
	cmd.Flags().StringVar(&flags.Referrer, "referrer", "", "page referrer used for identity resolution")
	cmd.Flags().StringVar(&flags.Identity, "identity", "", "record identity, used when none resolves")
	cmd.Flags().StringArrayVar(&flags.Set, "set", nil, "field value as field=value (repeatable)")
	cmd.Flags().BoolVar(&flags.NoSubmit, "no-submit", false, "autosave fields without submitting")
	cmd.Flags().DurationVar(&flags.Timeout, "timeout", 2*time.Minute, "overall time limit (0 for none)")
	return cmd
}

func run(ctx context.Context, cmd *cobra.Command, app application.Application, flags *Flags) error {
	edits, err := parseSets(flags.Set)
	if err != nil {
		return err
	}

	s, err := app.NewSession(flags.Kind)
	if err != nil {
		return err
	}
	watch(app, s)

	if err := boot(ctx, s, flags); err != nil {
		return finish(cmd, app, s, err)
	}

	for _, e := range edits {
		if _, err := s.Edit(e.field, e.value); err != nil {
			return finish(cmd, app, s, err)
		}
		// a failed autosave is a field note; submit still saves the field
		if _, err := s.Blur(ctx, e.field); err != nil && !errors.Is(err, errors.ErrFieldAutosaveFailed) {
			return finish(cmd, app, s, err)
		}
	}

	if !flags.NoSubmit {
		err = s.Submit(ctx)
	}
	return finish(cmd, app, s, err)
}

// boot starts the session and falls back to the --identity value when no
// source resolves one.
func boot(ctx context.Context, s recordsync.Session, flags *Flags) error {
	if err := s.Start(ctx, identity.Env{Query: flags.URL, Referrer: flags.Referrer}); err != nil {
		return err
	}
	if s.State() != recordsync.StateNeedsIdentity {
		return nil
	}
	if flags.Identity == "" {
		return errors.ErrIdentityUnresolved
	}
	return s.SetIdentity(ctx, flags.Identity)
}

// watch logs session events as they happen.
func watch(app application.Application, s recordsync.Session) {
	logger := app.Logger().With().Str("session", s.ID()).Logger()
	s.OnStateChange(func(from, to recordsync.State) {
		logger.Debug().Stringer("from", from).Stringer("to", to).Msg("State changed")
	})
	s.OnFieldSaved(func(fieldID, value string) {
		logger.Info().Str("field", fieldID).Str("value", value).Msg("Field saved")
	})
	s.OnFieldFailed(func(fieldID string, failure *errors.Failure) {
		logger.Warn().Str("field", fieldID).Str("kind", string(failure.Kind)).Msg(failure.Message)
	})
	s.OnWorkflow(func(inv records.WorkflowInvocation) {
		logger.Info().
			Str("identity", string(inv.Identity)).
			Str("outcome", string(inv.Outcome)).
			Str("invocation", inv.InvocationID).
			Msg("Workflow triggered")
	})
}

// finish prints the snapshot and returns err, or a failure when the session
// ended in a failed state.
func finish(cmd *cobra.Command, app application.Application, s recordsync.Session, err error) error {
	snap := s.Snapshot()
	format := output.DetectFormat(app.OutputFormat())

	var data any = snap
	if format == output.FormatTable {
		data = output.SnapshotTable(snap)
	}
	if werr := output.NewFormatter(format).Format(cmd.OutOrStdout(), data); werr != nil {
		return werr
	}
	if format == output.FormatTable {
		_ = alerts.FromSnapshot(snap).Write(cmd.ErrOrStderr())
	}

	if err != nil {
		return err
	}
	if snap.State.Failed() {
		if snap.Status != nil {
			return snap.Status
		}
		return fmt.Errorf("session ended in state %s", snap.State)
	}
	return nil
}

type edit struct {
	field string
	value string
}

// parseSets splits field=value pairs. Values may be empty; field ids may not.
func parseSets(sets []string) ([]edit, error) {
	edits := make([]edit, 0, len(sets))
	for _, s := range sets {
		field, value, ok := strings.Cut(s, "=")
		field = strings.TrimSpace(field)
		if !ok || field == "" {
			return nil, errors.NewValidationError("set", s, "expected field=value")
		}
		edits = append(edits, edit{field: field, value: value})
	}
	return edits, nil
}
