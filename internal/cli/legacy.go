package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/AntonStoeckl/webquery-go/webquery/legacy"
)

// NewLegacyCommand creates the legacy command.
func NewLegacyCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "legacy <query>",
		Short: "Print the flat legacy form of a query string",
		Long: `Decode the query string against the schema and downgrade it to the flat legacy map,
printed one key per line. Trees without a flat form are reported as an error.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLegacy(rootOpts, args[0], cmd.OutOrStdout())
		},
	}
}

func runLegacy(opts *RootOptions, rawQuery string, out io.Writer) error {
	_, envelope, err := opts.loadQuery(rawQuery)
	if err != nil {
		return err
	}

	flat, err := legacy.ToLegacyMap(envelope)
	if err != nil {
		return err
	}

	for _, key := range flat.Keys() {
		for _, value := range flat[key] {
			if _, err = fmt.Fprintf(out, "%s=%s\n", key, value); err != nil {
				return err
			}
		}
	}

	return nil
}
