// Package cli implements the nestql command.
package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Config  string
	Verbose bool
	Format  string // "json" | "msgpack"

	cfg *Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"json", "msgpack"}

// NewRootCommand creates the root command of the nestql CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "nestql",
		Short:         "Compile GraphQL selections into SQL",
		Long:          "nestql compiles GraphQL queries against a relational mapping into SQL and nests the rows back into objects.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			cfg, err := LoadConfig(opts.Config, cmd.Flags())
			if err != nil {
				return err
			}
			opts.cfg = cfg
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.Config, "config", "c", "", "config file (default: nestql.yaml, searched upwards)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log generated queries to stderr")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "json", "output format (json|msgpack)")
	cmd.PersistentFlags().String("schema", "", "GraphQL schema file")
	cmd.PersistentFlags().String("mapping", "", "relational mapping file")
	cmd.PersistentFlags().String("dialect", "", "SQL dialect (pg, mysql, mysql8, mariadb, oracle, sqlite3)")
	cmd.PersistentFlags().Bool("minify", false, "minify SQL aliases")

	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))

	return cmd
}

// logger returns the logger of a command: debug output on stderr when
// verbose, warnings only otherwise.
func (o *RootOptions) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}
