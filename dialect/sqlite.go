package dialect

import "strings"

// NewSQLite returns the SQLite dialect. It is the default and pages nothing.
func NewSQLite() Dialect {
	return &sqlite{
		syntax: syntax{
			name:  SQLite,
			quote: doubleQuote,
			literal: func(v any) string {
				if b, ok := v.(bool); ok {
					if b {
						return "1"
					}
					return "0"
				}
				return literal(v, quoteStandard)
			},
			concat: func(columns []string) string {
				return strings.Join(columns, " || ")
			},
			maxLimit:   "-1",
			rowCompare: true,
			emptyWhere: "1",
		},
		PaginationUnsupported: PaginationUnsupported{DialectName: SQLite},
	}
}

type sqlite struct {
	syntax
	PaginationUnsupported
}

// Lateral joins an uncorrelated table expression.
func (s *sqlite) Lateral(table, as string) string {
	return "LEFT JOIN " + table + " " + s.quote(as) + " ON 1 = 1"
}
