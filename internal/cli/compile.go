package cli

import (
	"context"
	"fmt"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/syssam/nestql/compiler"
	"github.com/syssam/nestql/dialect"
	"github.com/syssam/nestql/shape"
	"github.com/syssam/nestql/sqlgen"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Watch     bool
	Operation string
	Vars      string
}

// CompileResult is the output of the compile command.
type CompileResult struct {
	SQL   string            `json:"sql"`
	Shape *shape.Definition `json:"shape"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <query-file>",
		Short: "Print the root SQL query and the row shape of a GraphQL query",
		Long: `Compile a GraphQL query against the schema and mapping and print the SQL of
the root query together with the shape used to nest its rows. Batch-loaded
relations are compiled at run time, once their parent keys are known.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Watch {
				return watchCompile(cmd, opts, args[0])
			}
			return runCompile(cmd, opts, args[0])
		},
	}

	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "recompile when the query, schema or mapping changes")
	cmd.Flags().StringVar(&opts.Operation, "operation", "", "operation to compile (default: the first)")
	cmd.Flags().StringVar(&opts.Vars, "vars", "", "query variables as a JSON object")

	return cmd
}

func runCompile(cmd *cobra.Command, opts *CompileOptions, path string) error {
	res, err := compileQuery(cmd.Context(), cmd, opts, path)
	if err != nil {
		return err
	}
	return write(cmd.OutOrStdout(), opts.Format, res)
}

func compileQuery(ctx context.Context, cmd *cobra.Command, opts *CompileOptions, path string) (*CompileResult, error) {
	cfg := opts.cfg
	p, err := loadProject(cfg)
	if err != nil {
		return nil, err
	}
	req, err := p.request(path, opts.Operation, opts.Vars)
	if err != nil {
		return nil, err
	}
	d, err := dialect.Lookup(cfg.Dialect)
	if err != nil {
		return nil, err
	}
	tree, err := compiler.Compile(ctx, req, p.mapping,
		compiler.WithDialect(d.Name()),
		compiler.WithMinify(cfg.Minify),
		compiler.WithLogger(opts.logger(cmd)),
	)
	if err != nil {
		return nil, err
	}
	query, err := sqlgen.Stringify(ctx, tree.Root, d, nil)
	if err != nil {
		return nil, err
	}
	return &CompileResult{SQL: query, Shape: shape.Compile(tree.Root)}, nil
}

// watchCompile compiles path, then again on every change of its inputs,
// until the command context is done. Compile errors are reported without
// stopping the watch.
func watchCompile(cmd *cobra.Command, opts *CompileOptions, path string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()
	for _, f := range []string{path, opts.cfg.Schema, opts.cfg.Mapping} {
		if err := w.Add(f); err != nil {
			return fmt.Errorf("watching %s: %w", f, err)
		}
	}
	logger := opts.logger(cmd)
	recompile := func() {
		if err := runCompile(cmd, opts, path); err != nil {
			logger.Error("compile failed", "error", err)
		}
	}
	recompile()
	ctx := cmd.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			switch {
			case ev.Has(fsnotify.Write), ev.Has(fsnotify.Create):
				recompile()
			case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
				// Editors that save by renaming drop the watch.
				if err := w.Add(ev.Name); err == nil {
					recompile()
				}
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch: %w", err)
		}
	}
}
