// Package nestql resolves GraphQL selections against a relational database.
//
// A selection tree, together with a schema.Mapping describing which table
// backs each type and how relations join, is compiled into a SQL-AST. The
// root query is rendered for the configured dialect and handed to a
// caller-supplied FetchFunc; the flat rows are nested back into objects
// mirroring the selection. Batch-loaded relations are resolved with one more
// query per relation and tree level, and paginated fields become Relay
// connections.
//
//	m, err := schema.LoadMappingFile("mapping.yaml")
//	if err != nil {
//	    return err
//	}
//	drv, err := sql.Open("postgres", dsn) // github.com/syssam/nestql/dialect/sql
//	if err != nil {
//	    return err
//	}
//	data, err := nestql.Execute(ctx, &compiler.Request{
//	    Schema:     gqlSchema,
//	    Fields:     fields,
//	    ParentType: gqlSchema.Query,
//	}, m, drv.Query, nestql.WithDialect("pg"))
//
// nestql holds no connection and caches nothing between calls. Running every
// query of one call inside a transaction is the caller's choice of FetchFunc.
package nestql
