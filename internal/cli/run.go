package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/syssam/nestql"
	"github.com/syssam/nestql/dialect/sql"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Operation     string
	Vars          string
	DropUnmatched bool
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <query-file>",
		Short: "Run a GraphQL query against a database and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, opts, args[0])
		},
	}

	cmd.Flags().String("driver", "sqlite", "database/sql driver (postgres, mysql, sqlite)")
	cmd.Flags().String("dsn", "", "data source name")
	cmd.Flags().Int("concurrency", 0, "batch queries in flight per level (0: unbounded)")
	cmd.Flags().StringVar(&opts.Operation, "operation", "", "operation to run (default: the first)")
	cmd.Flags().StringVar(&opts.Vars, "vars", "", "query variables as a JSON object")
	cmd.Flags().BoolVar(&opts.DropUnmatched, "drop-unmatched", false, "drop root objects missing a required batch relation")

	return cmd
}

func runQuery(cmd *cobra.Command, opts *RunOptions, path string) error {
	cfg := opts.cfg
	if cfg.Database.DSN == "" {
		return errors.New("--dsn or NESTQL_DATABASE_DSN required")
	}
	p, err := loadProject(cfg)
	if err != nil {
		return err
	}
	req, err := p.request(path, opts.Operation, opts.Vars)
	if err != nil {
		return err
	}
	drv, err := sql.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer drv.Close()

	name := cfg.Dialect
	if name == "" {
		name = sql.DialectOf(cfg.Database.Driver)
	}
	unmatched := nestql.UnmatchedNull
	if opts.DropUnmatched {
		unmatched = nestql.UnmatchedDropRoot
	}
	logger := opts.logger(cmd)
	stats := sql.NewStatsDriver(drv, sql.WithSlowQueryLog(logger))
	data, err := nestql.Execute(cmd.Context(), req, p.mapping, stats.Query,
		nestql.WithDialect(name),
		nestql.WithMinify(cfg.Minify),
		nestql.WithLogger(logger),
		nestql.WithConcurrency(cfg.Concurrency),
		nestql.WithUnmatched(unmatched),
	)
	if err != nil {
		return err
	}
	logger.Debug("nestql: done", "stats", stats.QueryStats().Stats().String())
	return write(cmd.OutOrStdout(), opts.Format, data)
}
