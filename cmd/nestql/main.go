// Command nestql compiles GraphQL queries against a relational mapping and
// runs them.
//
// Usage:
//
//	nestql compile query.graphql            print the root SQL and the row shape
//	nestql compile --watch query.graphql    recompile whenever an input changes
//	nestql run --dsn file:app.db query.graphql
//
// Settings come from flags, NESTQL_* environment variables and nestql.yaml,
// in that order of precedence.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/syssam/nestql/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := cli.NewRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "nestql:", err)
		os.Exit(1)
	}
}
