package cli

import (
	"io"

	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/AntonStoeckl/webquery-go/webquery"
	"github.com/AntonStoeckl/webquery-go/webquery/postgresengine"
	"github.com/AntonStoeckl/webquery-go/webquery/prometheusadapters"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Eventual bool
	Metrics  bool
}

type pageJSON struct {
	Rows      []postgresengine.Row `json:"rows"`
	TotalSize *int64               `json:"totalSize,omitempty"`
	Limit     int                  `json:"limit"`
	Offset    int                  `json:"offset"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <query>",
		Short: "Run a query string against the configured database",
		Long: `Decode the query string against the schema, run it against the configured database
and print the page as JSON.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, opts, args[0])
		},
	}

	cmd.Flags().BoolVar(&opts.Eventual, "eventual", false, "read from the replica when one is configured")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "print the collected Prometheus metrics to stderr")

	return cmd
}

func runQuery(cmd *cobra.Command, opts *RunOptions, rawQuery string) error {
	schema, envelope, err := opts.loadQuery(rawQuery)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	metrics := prometheusadapters.NewMetricsCollector(registry)

	ctx := cmd.Context()
	if opts.Eventual {
		ctx = webquery.WithEventualConsistency(ctx)
	}

	runner, closeDB, err := opts.openRunner(ctx, schema, postgresengine.WithMetrics(metrics))
	if closeDB != nil {
		defer closeDB()
	}
	if err != nil {
		return err
	}

	page, err := runner.Find(ctx, envelope)
	if err != nil {
		return err
	}

	if err = writePage(cmd.OutOrStdout(), page); err != nil {
		return err
	}

	if opts.Metrics {
		return writeMetrics(cmd.ErrOrStderr(), registry)
	}

	return nil
}

func writePage(out io.Writer, page postgresengine.Page) error {
	rows := page.Rows
	if rows == nil {
		rows = []postgresengine.Row{}
	}

	data, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(
		pageJSON{Rows: rows, TotalSize: page.TotalSize, Limit: page.Limit, Offset: page.Offset},
		"",
		"  ",
	)
	if err != nil {
		return err
	}

	_, err = out.Write(append(data, '\n'))

	return err
}

func writeMetrics(out io.Writer, registry *prometheus.Registry) error {
	families, err := registry.Gather()
	if err != nil {
		return err
	}

	for _, family := range families {
		if _, err = expfmt.MetricFamilyToText(out, family); err != nil {
			return err
		}
	}

	return nil
}
