// Package kinds provides commands for inspecting record kind profiles.
package kinds

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentstation/recordsync/cmd/application"
	"github.com/agentstation/recordsync/internal/cmd/output"
	kindreg "github.com/agentstation/recordsync/internal/kinds"
)

// NewCommand creates the kinds command and its subcommands.
func NewCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "kinds",
		GroupID: "management",
		Short:   "List record kind profiles",
		Long: `List the record kind profiles sessions can be created for.

Profiles come from the embedded defaults or from the file named by
--kinds or KINDS_FILE.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := app.Kinds()
			if err != nil {
				return err
			}
			format := output.DetectFormat(app.OutputFormat())
			if format == output.FormatTable {
				return output.NewFormatter(format).Format(cmd.OutOrStdout(), output.KindsTable(reg.List()))
			}
			return output.NewFormatter(format).Format(cmd.OutOrStdout(), reg.List())
		},
	}

	cmd.AddCommand(newShowCommand(app), newValidateCommand(app), newDefaultsCommand())
	return cmd
}

func newShowCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:   "show [name]",
		Short: "Show the field bindings of a kind",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := app.Kinds()
			if err != nil {
				return err
			}
			var name string
			if len(args) > 0 {
				name = args[0]
			}
			k, err := reg.Get(name)
			if err != nil {
				return err
			}
			format := output.DetectFormat(app.OutputFormat())
			if format == output.FormatTable {
				return output.NewFormatter(format).Format(cmd.OutOrStdout(), output.BindingsTable(k))
			}
			return output.NewFormatter(format).Format(cmd.OutOrStdout(), k)
		},
	}
}

func newValidateCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate a record kind profiles file",
		Long: `Validate parses a profiles file and checks every kind in it. Without a
file it validates the profiles currently configured.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				reg *kindreg.Registry
				err error
			)
			if len(args) > 0 {
				reg, err = kindreg.LoadFile(args[0])
			} else {
				reg, err = app.Kinds()
			}
			if err != nil {
				return err
			}
			app.Logger().Debug().Str("source", reg.Source()).Int("kinds", reg.Len()).Msg("Profiles validated")
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: %d kind(s) valid\n", reg.Source(), reg.Len())
			return err
		},
	}
}

func newDefaultsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "defaults",
		Short: "Print the embedded profiles file",
		Long:  `Defaults prints the embedded profiles as a starting point for a custom --kinds file.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := cmd.OutOrStdout().Write(kindreg.Embedded())
			return err
		},
	}
}
