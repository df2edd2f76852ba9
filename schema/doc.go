// Package schema describes how GraphQL types and fields map onto SQL tables.
//
// A Mapping is read-only input to the compiler. It holds one Type per
// table-backed GraphQL type and one Field per field that needs SQL:
//
//	m := schema.NewMapping().
//	    SetType("User", &schema.Type{
//	        Table:     schema.Static("accounts"),
//	        UniqueKey: []string{"id"},
//	    }).
//	    SetField("User", "email", &schema.Field{Column: "email_address"}).
//	    SetField("User", "posts", &schema.Field{
//	        Batch: &schema.Batch{ThisKey: "author_id", ParentKey: "id"},
//	    })
//
// # Thunks
//
// Table names, orderings, sort keys, limits and junction includes may depend
// on the field arguments or the request context. They are declared as a
// Thunk, either Static or Dynamic, and resolved exactly once per compilation.
//
// # Generators
//
// SQL fragments that reference table aliases are generators: TableExpr for
// where clauses, computed columns and foreign tables, JoinExpr for join
// predicates. Aliases are passed already quoted for the active dialect.
//
// # Files
//
// LoadMapping reads the same metadata from YAML, with generators written as
// templates using the {table}, {parent} and {child} placeholders.
package schema
