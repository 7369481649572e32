// Package cli implements the webquery command line tool.
package cli

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/AntonStoeckl/webquery-go/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigFile string
	SchemaFile string
	Driver     string
	DSN        string
	Table      string
	Verbose    bool

	config *config.Config
	logger zerolog.Logger
}

// NewRootCommand creates the root command for the webquery CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "webquery",
		Short: "Decode, explain and run web query strings",
		Long: `webquery turns URL query strings like "title=_f_starts_Go&_order=-pages&_limit=10"
into a typed predicate tree, compiles it to SQL for the table described by a schema file,
and optionally runs it against a database.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigFile, "config", "c", "", "config file (default webquery.yaml in . or ./config)")
	cmd.PersistentFlags().StringVarP(&opts.SchemaFile, "schema", "s", "", "YAML schema file, overrides schema.file")
	cmd.PersistentFlags().StringVar(&opts.Driver, "driver", "", "database driver (pgx|postgres|sqlx|sqlite), overrides database.driver")
	cmd.PersistentFlags().StringVar(&opts.DSN, "dsn", "", "database DSN, overrides database.dsn")
	cmd.PersistentFlags().StringVar(&opts.Table, "table", "", "table name, overrides the schema table")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log at debug level")

	cmd.AddCommand(NewExplainCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewLegacyCommand(opts))

	return cmd
}

func (opts *RootOptions) load() error {
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return err
	}

	if opts.SchemaFile != "" {
		cfg.Schema.File = opts.SchemaFile
	}

	if opts.Driver != "" {
		cfg.Database.Driver = opts.Driver
	}

	if opts.DSN != "" {
		cfg.Database.DSN = opts.DSN
	}

	if opts.Table != "" {
		cfg.Database.Table = opts.Table
	}

	if opts.Verbose {
		cfg.Log.Level = zerolog.LevelDebugValue
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	opts.config = cfg
	opts.logger = cfg.Logger()

	return nil
}
