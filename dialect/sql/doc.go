// Package sql runs the queries generated by nestql on a database/sql
// connection pool.
//
// A Driver wraps a *sql.DB and exposes a Query method with the signature of
// nestql.FetchFunc, so it plugs straight into Execute:
//
//	drv, err := sql.Open("postgres", dsn)
//	if err != nil {
//	    return err
//	}
//	defer drv.Close()
//
//	data, err := nestql.Execute(ctx, req, mapping, drv.Query,
//	    nestql.WithDialect(sql.DialectOf("postgres")),
//	)
//
// Rows come back as maps keyed by column alias. Byte slices are converted to
// strings so text columns hydrate the same way on every driver.
//
// # Session Variables
//
// Variables attached with WithVar are set on the connection before every
// statement and reset before the connection goes back to the pool:
//
//	ctx = sql.WithVar(ctx, "app.tenant_id", "42")
//
// # Transactions
//
// Running one request inside a transaction gives every batch level the same
// snapshot:
//
//	tx, err := drv.Tx(ctx, &sql.TxOptions{ReadOnly: true})
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback()
//	data, err := nestql.Execute(ctx, req, mapping, tx.Query)
//
// # Statistics
//
// StatsDriver and DebugDriver wrap any Querier with statistics collection
// and query logging.
package sql
