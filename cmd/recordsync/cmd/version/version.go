// Package version provides the version command.
package version

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/agentstation/recordsync/cmd/application"
	"github.com/agentstation/recordsync/internal/cmd/output"
)

// Info describes the build.
type Info struct {
	Version  string `json:"version" yaml:"version"`
	Commit   string `json:"commit" yaml:"commit"`
	Date     string `json:"date" yaml:"date"`
	BuiltBy  string `json:"built_by" yaml:"built_by"`
	Go       string `json:"go" yaml:"go"`
	Platform string `json:"platform" yaml:"platform"`
}

// NewCommand creates the version command.
func NewCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		GroupID: "management",
		Short:   "Show version information",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := Info{
				Version:  app.Version(),
				Commit:   app.Commit(),
				Date:     app.Date(),
				BuiltBy:  app.BuiltBy(),
				Go:       runtime.Version(),
				Platform: runtime.GOOS + "/" + runtime.GOARCH,
			}
			return output.Write(cmd.OutOrStdout(), app.OutputFormat(), info)
		},
	}
}
