package dialect

import (
	"strings"

	"github.com/lib/pq"
)

// NewPostgres returns the PostgreSQL dialect.
func NewPostgres() Dialect {
	quote := pq.QuoteIdentifier
	l := &lateral{
		syntax: syntax{
			name:  Postgres,
			quote: quote,
			literal: func(v any) string {
				return literal(v, pq.QuoteLiteral)
			},
			concat: func(columns []string) string {
				return "NULLIF(CONCAT(" + strings.Join(columns, ", ") + "), '')"
			},
			maxLimit:   "ALL",
			rowCompare: true,
			emptyWhere: "TRUE",
		},
		castKeys: true,
	}
	l.tempTable = valuesTable(quote)
	return l
}
