package dialect

import (
	"fmt"
	"strings"
)

// syntax is the lexical part of a dialect: quoting, literals, composite
// keys and the paged subquery template.
type syntax struct {
	name       string
	quote      func(string) string
	literal    func(any) string
	concat     func(columns []string) string
	maxLimit   string
	rowCompare bool
	// emptyWhere stands in for a WHERE clause without predicates.
	emptyWhere string
	// fetchFirst pages with OFFSET/FETCH instead of LIMIT/OFFSET.
	fetchFirst bool
}

func (s *syntax) Name() string              { return s.name }
func (s *syntax) Quote(ident string) string { return s.quote(ident) }
func (s *syntax) Literal(v any) string      { return s.literal(v) }
func (s *syntax) MaxLimit() string          { return s.maxLimit }
func (s *syntax) RowComparison() bool       { return s.rowCompare }

// CompositeKey concatenates the qualified columns of table.
func (s *syntax) CompositeKey(table string, columns []string) string {
	qualified := make([]string, len(columns))
	for i, c := range columns {
		qualified[i] = s.quote(table) + "." + s.quote(c)
	}
	return s.concat(qualified)
}

// column qualifies a column with a table alias.
func (s *syntax) column(table, column string) string {
	return s.quote(table) + "." + s.quote(column)
}

// subquery is one paged select over a single table.
type subquery struct {
	table  string
	as     string
	wheres []string
	plan   *plan
	extra  *extraJoin
}

// body renders the indented lines of a paged select.
func (s *syntax) body(q subquery) string {
	var b strings.Builder
	as := s.quote(q.as)
	fmt.Fprintf(&b, "  SELECT %s.*", as)
	if q.plan.total {
		b.WriteString(", count(*) OVER () AS " + s.quote("$total"))
	}
	fmt.Fprintf(&b, "\n  FROM %s %s", q.table, as)
	if q.extra != nil {
		fmt.Fprintf(&b, "\n  LEFT JOIN %s %s\n    ON %s", q.extra.table, q.extra.as, q.extra.condition)
	}
	fmt.Fprintf(&b, "\n  WHERE %s", joinWheres(q.wheres, s.emptyWhere))
	fmt.Fprintf(&b, "\n  ORDER BY %s", q.plan.order.render(s.quote))
	if clause := s.limitClause(q.plan); clause != "" {
		b.WriteString("\n  " + clause)
	}
	return b.String()
}

func (s *syntax) limitClause(p *plan) string {
	if s.fetchFirst {
		switch {
		case p.offset > 0 && p.limit != "":
			return fmt.Sprintf("OFFSET %d ROWS FETCH NEXT %s ROWS ONLY", p.offset, p.limit)
		case p.offset > 0:
			return fmt.Sprintf("OFFSET %d ROWS", p.offset)
		case p.limit != "":
			return fmt.Sprintf("FETCH FIRST %s ROWS ONLY", p.limit)
		}
		return ""
	}
	if p.offset > 0 {
		return fmt.Sprintf("LIMIT %s OFFSET %d", p.limit, p.offset)
	}
	return "LIMIT " + p.limit
}

// root wraps a paged select as the FROM clause of the outer query.
func (s *syntax) root(body, as string) string {
	return "FROM (\n" + body + "\n) " + s.quote(as)
}
