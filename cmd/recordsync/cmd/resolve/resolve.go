// Package resolve provides the resolve command, which runs the identity
// pipeline against supplied placement data, URL and referrer.
package resolve

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentstation/recordsync/cmd/application"
	"github.com/agentstation/recordsync/internal/cmd/output"
	"github.com/agentstation/recordsync/pkg/bridge"
	"github.com/agentstation/recordsync/pkg/errors"
	"github.com/agentstation/recordsync/pkg/identity"
)

// Flags holds the resolve command flags.
type Flags struct {
	Kind      string
	URL       string
	Referrer  string
	Placement string
	Live      bool
}

// NewCommand creates the resolve command.
func NewCommand(app application.Application) *cobra.Command {
	flags := &Flags{}
	cmd := &cobra.Command{
		Use:     "resolve",
		GroupID: "core",
		Short:   "Resolve a record identity",
		Long: `Resolve determines which record a widget page refers to.

Sources are tried in priority order: placement options, then the page URL
query, then the referrer. The first non-empty value wins. When none
matches the page must ask the user for the identity.`,
		Example: `  recordsync resolve --url 'https://portal.example.com/widget?dealId=6443'
  recordsync resolve --placement '{"ID":"6443"}'
  recordsync resolve --placement @options.json --referrer https://crm.example.com/crm/deal/details/12/
  recordsync resolve --live`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, app, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.Kind, "kind", "k", "", "record kind (default is the default profile)")
	cmd.Flags().StringVar(&flags.URL, "url", "", "page URL or raw query string")
	cmd.Flags().StringVar(&flags.Referrer, "referrer", "", "page referrer")
	cmd.Flags().StringVar(&flags.Placement, "placement", "", "placement options as JSON, or @file")
	cmd.Flags().BoolVar(&flags.Live, "live", false, "read placement options from the configured host bridge")
	cmd.MarkFlagsMutuallyExclusive("placement", "live")
	return cmd
}

func run(cmd *cobra.Command, app application.Application, flags *Flags) error {
	ctx := cmd.Context()
	reg, err := app.Kinds()
	if err != nil {
		return err
	}
	kind, err := reg.Get(flags.Kind)
	if err != nil {
		return err
	}

	opts := []identity.Option{identity.WithLogger(app.Logger())}
	switch {
	case flags.Live:
		b, err := app.Bridge()
		if err != nil {
			return err
		}
		opts = append(opts, identity.WithPlacement(livePlacement(b, bridge.NewClient(b, kind))))
	case flags.Placement != "":
		placement, err := parsePlacement(flags.Placement)
		if err != nil {
			return err
		}
		opts = append(opts, identity.WithPlacement(identity.PlacementFunc(
			func(context.Context) (map[string]any, error) { return placement, nil },
		)))
	}

	resolver, err := identity.NewResolver(kind.Identity, opts...)
	if err != nil {
		return err
	}
	result, err := resolver.Resolve(ctx, identity.Env{Query: flags.URL, Referrer: flags.Referrer})
	if err != nil {
		return err
	}

	format := output.DetectFormat(app.OutputFormat())
	if format == output.FormatTable {
		return output.NewFormatter(format).Format(cmd.OutOrStdout(), output.ResolutionTable(result))
	}
	return output.NewFormatter(format).Format(cmd.OutOrStdout(), result)
}

// livePlacement waits for the bridge before asking it for placement
// options. An unreachable bridge reads as no placement data.
func livePlacement(b bridge.Bridge, client *bridge.Client) identity.PlacementFunc {
	return func(ctx context.Context) (map[string]any, error) {
		if _, err := b.AwaitReady(ctx, 0); err != nil {
			return nil, err
		}
		return client.PlacementOptions(ctx)
	}
}

// parsePlacement reads inline JSON or, with a leading @, a JSON file.
func parsePlacement(raw string) (map[string]any, error) {
	source := "placement"
	data := []byte(raw)
	if path, ok := strings.CutPrefix(raw, "@"); ok {
		b, err := os.ReadFile(path) //nolint:gosec // operator supplied path
		if err != nil {
			return nil, errors.NewConfigError("resolve", "reading "+path, err)
		}
		source, data = path, b
	}

	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, errors.WrapParse("json", source, err)
	}
	return out, nil
}
