// Package application provides the application interface for recordsync
// commands and the widget server.
//
// Commands and the server accept this interface rather than the concrete
// App type, so tests can supply a fake host bridge:
//
//	func NewCommand(app application.Application) *cobra.Command {
//	    return &cobra.Command{
//	        RunE: func(cmd *cobra.Command, args []string) error {
//	            s, err := app.NewSession(kinds.DefaultKind)
//	            if err != nil {
//	                return err
//	            }
//	            return s.Start(cmd.Context(), identity.Env{})
//	        },
//	    }
//	}
package application

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/recordsync"
	"github.com/agentstation/recordsync/internal/kinds"
	"github.com/agentstation/recordsync/pkg/bridge"
)

// Application provides what commands need. All methods must be safe for
// concurrent use.
type Application interface {
	// Kinds returns the loaded record kind profiles.
	Kinds() (*kinds.Registry, error)

	// NewSession creates an unstarted session for the named kind, wired to
	// the configured host bridge. opts are applied after the defaults.
	NewSession(kind string, opts ...recordsync.Option) (recordsync.Session, error)

	// Bridge returns the configured host bridge.
	Bridge() (bridge.Bridge, error)

	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured output format (table, json, yaml).
	OutputFormat() string

	// Version returns the application version string.
	Version() string

	// Commit returns the git commit hash.
	Commit() string

	// Date returns the build date.
	Date() string

	// BuiltBy returns the build system identifier.
	BuiltBy() string
}
