package dialect

import (
	"strings"
	"time"
)

// NewOracle returns the Oracle dialect. Oracle limits identifiers to 30
// characters, so queries compiled for it always use minified aliases.
func NewOracle() Dialect {
	l := &lateral{
		syntax: syntax{
			name:       Oracle,
			maxLimit:   "18446744073709551615",
			quote:      doubleQuote,
			literal:    oracleLiteral,
			concat:     oracleConcat,
			emptyWhere: "1 = 1",
			fetchFirst: true,
		},
		apply: true,
	}
	l.tempTable = dualUnion
	return l
}

func doubleQuote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// oracleLiteral renders timestamps as ANSI TIMESTAMP literals.
func oracleLiteral(v any) string {
	if t, ok := v.(time.Time); ok {
		return "TIMESTAMP " + quoteStandard(t.UTC().Format("2006-01-02 15:04:05.999999999")+" UTC")
	}
	return literal(v, quoteStandard)
}

// oracleConcat nests CONCAT, which Oracle only accepts with two arguments.
func oracleConcat(columns []string) string {
	expr := columns[0]
	for _, c := range columns[1:] {
		expr = "CONCAT(" + expr + ", " + c + ")"
	}
	return "NULLIF(" + expr + ", '')"
}

// dualUnion lists the scope as a union of single-row selects from DUAL.
func dualUnion(values []string, _ string) (string, string) {
	rows := make([]string, len(values))
	for i, v := range values {
		rows[i] = "\n  SELECT " + v + ` AS "value" FROM DUAL` + "\n"
	}
	return `FROM (` + strings.Join(rows, " UNION ") + `) "temp"`, `"temp"."value"`
}
