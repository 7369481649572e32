package cli

import (
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/AntonStoeckl/webquery-go/webquery"
)

// ExplainOptions holds flags for the explain command.
type ExplainOptions struct {
	*RootOptions
	JSON bool
}

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExplainOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "explain <query>",
		Short: "Print the predicate tree and the SQL for a query string",
		Long: `Decode the query string against the schema and print the predicate tree, the SELECT
statement with its arguments and, when _computeSize is set, the COUNT statement.
No database connection is made.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplain(opts, args[0], cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&opts.JSON, "json", false, "print the decoded envelope as JSON instead")

	return cmd
}

func runExplain(opts *ExplainOptions, rawQuery string, out io.Writer) error {
	schema, envelope, err := opts.loadQuery(rawQuery)
	if err != nil {
		return err
	}

	if opts.JSON {
		data, marshalErr := webquery.MarshalEnvelopeJSON(envelope)
		if marshalErr != nil {
			return marshalErr
		}

		_, err = fmt.Fprintln(out, string(data))

		return err
	}

	runner, closeDB, err := opts.explainRunner(schema)
	if closeDB != nil {
		defer closeDB()
	}
	if err != nil {
		return err
	}

	selectSQL, selectArgs, err := runner.BuildSelect(envelope)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "tree:  %s\n", envelope.Constraints())
	fmt.Fprintf(out, "sql:   %s\n", selectSQL)
	fmt.Fprintf(out, "args:  %s\n", formatArgs(selectArgs))

	if !envelope.ComputeSize() {
		return nil
	}

	countSQL, countArgs, err := runner.BuildCount(envelope)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "count: %s\n", countSQL)
	fmt.Fprintf(out, "count args: %s\n", formatArgs(countArgs))

	return nil
}

func formatArgs(args []any) string {
	if len(args) == 0 {
		return "[]"
	}

	data, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(args)
	if err != nil {
		return fmt.Sprint(args)
	}

	return string(data)
}
