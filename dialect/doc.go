// Package dialect renders the engine-specific parts of a query.
//
// A Dialect quotes identifiers, escapes literal values, concatenates
// composite keys and builds the FROM/JOIN fragments of paginated relations.
// The keyset and offset pagination math, the cursor formats and the
// correlated-subquery templates are shared by every implementation.
//
// # Supported Dialects
//
//   - pg: PostgreSQL, LATERAL joins, every pagination mode
//   - oracle: CROSS/OUTER APPLY with FETCH FIRST, minified aliases
//   - mariadb, mysql8: pagination at the root and on batched relations
//   - mysql: no pagination
//   - sqlite3: no pagination; the default dialect
//
// The name "standard" is accepted as a deprecated alias of sqlite3.
//
// # Partial Dialects
//
// Embed PaginationUnsupported to get a dialect whose pagination builders all
// fail with an *errs.UnsupportedError, then override the ones the engine can
// serve:
//
//	type myDialect struct {
//	    dialect.PaginationUnsupported
//	}
//
// # Registry
//
// Lookup resolves a dialect by name. Register adds or replaces one:
//
//	dialect.Register(myDialect{})
//	d, err := dialect.Lookup("mine")
package dialect
