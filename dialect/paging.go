package dialect

import (
	"context"
	"strconv"
	"strings"

	"github.com/syssam/nestql/internal/errs"
	"github.com/syssam/nestql/schema"
	"github.com/syssam/nestql/sqlast"
)

// lexer is the part of a Dialect the paging math depends on.
type lexer interface {
	Quote(ident string) string
	Literal(v any) string
	MaxLimit() string
	RowComparison() bool
}

// PageArgs are the Relay arguments of a paged node.
type PageArgs struct {
	First, Last   int
	After, Before string
}

// ReadPageArgs reads the Relay arguments of n. A limited node that does not
// paginate pages with First set to its limit.
func ReadPageArgs(n *sqlast.Node) (PageArgs, error) {
	if !n.Paginate && n.Limit > 0 {
		return PageArgs{First: n.Limit}, nil
	}
	var pa PageArgs
	first, _, err := n.Args.Int("first")
	if err != nil {
		return pa, &errs.ArgumentError{Field: n.FieldName, Message: "invalid first", Cause: err}
	}
	last, _, err := n.Args.Int("last")
	if err != nil {
		return pa, &errs.ArgumentError{Field: n.FieldName, Message: "invalid last", Cause: err}
	}
	pa.First, pa.Last = first, last
	pa.After, pa.Before = n.Args.String("after"), n.Args.String("before")
	return pa, nil
}

// Keyset reports whether n pages by sort key rather than by offset.
func Keyset(n *sqlast.Node) bool {
	return n.SortKey != nil || (n.Junction != nil && n.Junction.SortKey != nil)
}

// SortKeyOf returns the sort key of n and the alias of the table holding it.
func SortKeyOf(n *sqlast.Node) (*schema.SortKey, string) {
	if n.SortKey != nil {
		return n.SortKey, n.As
	}
	if n.Junction != nil && n.Junction.SortKey != nil {
		return n.Junction.SortKey, n.Junction.As
	}
	return nil, ""
}

// ordering is a list of order terms qualified by one table alias.
type ordering struct {
	table string
	terms schema.OrderBy
}

func (o ordering) render(q func(string) string) string {
	parts := make([]string, len(o.terms))
	for i, t := range o.terms {
		col := q(t.Column)
		if o.table != "" {
			col = q(o.table) + "." + col
		}
		parts[i] = col + " " + t.Direction
	}
	return strings.Join(parts, ", ")
}

// plan is the outcome of the pagination math for one node.
type plan struct {
	order ordering
	// where is the keyset cursor predicate, empty without a cursor.
	where  string
	limit  string
	offset int
	// total requests the window row count of offset pagination.
	total bool
}

func planPage(d lexer, n *sqlast.Node) (*plan, error) {
	if Keyset(n) {
		return planKeyset(d, n)
	}
	return planOffset(d, n)
}

func planKeyset(d lexer, n *sqlast.Node) (*plan, error) {
	sortKey, table := SortKeyOf(n)
	pa, err := ReadPageArgs(n)
	if err != nil {
		return nil, err
	}
	descending := sortKey.Descending()
	if pa.Last > 0 {
		descending = !descending
	}
	dir := schema.Asc
	if descending {
		dir = schema.Desc
	}
	p := &plan{order: ordering{table: table}, limit: d.MaxLimit()}
	for _, col := range sortKey.Key {
		p.order.terms = append(p.order.terms, schema.OrderTerm{Column: col, Direction: dir})
	}
	switch {
	case pa.First > 0:
		p.limit = strconv.Itoa(pa.First + 1)
		if pa.After != "" {
			if p.where, err = cursorWhere(d, pa.After, sortKey.Key, descending, table); err != nil {
				return nil, err
			}
		}
		if pa.Before != "" {
			return nil, errs.NewArgumentError(n.FieldName, `Using "before" with "first" is nonsensical.`)
		}
	case pa.Last > 0:
		p.limit = strconv.Itoa(pa.Last + 1)
		if pa.Before != "" {
			if p.where, err = cursorWhere(d, pa.Before, sortKey.Key, descending, table); err != nil {
				return nil, err
			}
		}
		if pa.After != "" {
			return nil, errs.NewArgumentError(n.FieldName, `Using "after" with "last" is nonsensical.`)
		}
	}
	return p, nil
}

func planOffset(d lexer, n *sqlast.Node) (*plan, error) {
	pa, err := ReadPageArgs(n)
	if err != nil {
		return nil, err
	}
	if pa.Last > 0 {
		return nil, errs.NewArgumentError(n.FieldName, "Backward pagination not supported with offsets. Consider using keyset pagination instead")
	}
	p := &plan{limit: d.MaxLimit(), total: true}
	switch {
	case len(n.OrderBy) > 0:
		p.order = ordering{table: n.As, terms: n.OrderBy}
	case n.Junction != nil && len(n.Junction.OrderBy) > 0:
		p.order = ordering{table: n.Junction.As, terms: n.Junction.OrderBy}
	default:
		return nil, errs.NewMappingError("", n.FieldName, `"sortKey" or "orderBy" required to page`)
	}
	if pa.First > 0 {
		limit := pa.First
		if n.Paginate {
			limit++
		}
		p.limit = strconv.Itoa(limit)
		if pa.After != "" {
			off, err := CursorToOffset(pa.After)
			if err != nil {
				return nil, err
			}
			p.offset = off + 1
		}
	}
	return p, nil
}

// cursorWhere renders the keyset predicate placing rows strictly after the
// cursor in sort order.
func cursorWhere(d lexer, cursor string, key []string, descending bool, table string) (string, error) {
	obj, err := DecodeCursor(cursor)
	if err != nil {
		return "", err
	}
	if err := ValidateCursor(obj, key); err != nil {
		return "", err
	}
	columns := make([]string, len(key))
	values := make([]string, len(key))
	for i, k := range key {
		columns[i] = d.Quote(table) + "." + d.Quote(k)
		values[i] = d.Literal(obj[k])
	}
	op := ">"
	if descending {
		op = "<"
	}
	if d.RowComparison() {
		return "(" + strings.Join(columns, ", ") + ") " + op + " (" + strings.Join(values, ", ") + ")", nil
	}
	return expandComparison(columns, values, op), nil
}

// expandComparison spells a row comparison as nested OR terms:
// (a > 1 OR (a = 1 AND b > 2)).
func expandComparison(columns, values []string, op string) string {
	last := len(columns) - 1
	cond := columns[last] + " " + op + " " + values[last]
	for i := last - 1; i >= 0; i-- {
		cond = "(" + columns[i] + " " + op + " " + values[i] + " OR (" + columns[i] + " = " + values[i] + " AND " + cond + "))"
	}
	return cond
}

// joinWheres joins the non-empty predicates with AND, or returns empty.
func joinWheres(wheres []string, empty string) string {
	var kept []string
	for _, w := range wheres {
		if w != "" {
			kept = append(kept, w)
		}
	}
	if len(kept) == 0 {
		return empty
	}
	return strings.Join(kept, " AND ")
}

// nodeWhere renders the where generator of n against its alias.
func nodeWhere(ctx context.Context, d lexer, n *sqlast.Node) (string, error) {
	if n.Where == nil {
		return "", nil
	}
	return n.Where(ctx, d.Quote(n.As), n.Args)
}

// junctionWhere renders the where generator of the junction of n.
func junctionWhere(ctx context.Context, d lexer, n *sqlast.Node) (string, error) {
	if n.Junction == nil || n.Junction.Where == nil {
		return "", nil
	}
	return n.Junction.Where(ctx, d.Quote(n.Junction.As), n.Args)
}

// extraJoin brings the node table into a junction subquery so that node
// where clauses and orderings can reference it.
type extraJoin struct {
	table, as, condition string
}

// junctionExtraJoin returns the node-table join of a junction subquery, or
// nil when nothing in the subquery references the node table.
func junctionExtraJoin(d lexer, n *sqlast.Node, join string) *extraJoin {
	if n.Where == nil && len(n.OrderBy) == 0 && n.SortKey == nil {
		return nil
	}
	return &extraJoin{table: n.Table, as: d.Quote(n.As), condition: join}
}

// OrderingsOf lists the outer ORDER BY terms of n: junction and node orderBy
// followed by junction and node sort keys, flipped when paging backward.
func OrderingsOf(n *sqlast.Node) []Ordering {
	var out []Ordering
	if n.Junction != nil && len(n.Junction.OrderBy) > 0 {
		out = append(out, Ordering{Table: n.Junction.As, Terms: n.Junction.OrderBy})
	}
	if len(n.OrderBy) > 0 {
		out = append(out, Ordering{Table: n.As, Terms: n.OrderBy})
	}
	if n.Junction != nil && n.Junction.SortKey != nil {
		out = append(out, Ordering{Table: n.Junction.As, Terms: sortKeyTerms(n.Junction.SortKey, n.Args)})
	}
	if n.SortKey != nil {
		out = append(out, Ordering{Table: n.As, Terms: sortKeyTerms(n.SortKey, n.Args)})
	}
	return out
}

// Ordering is an ORDER BY list on one table alias.
type Ordering struct {
	Table string
	Terms schema.OrderBy
}

// Render renders the ordering with a quoting function.
func (o Ordering) Render(q func(string) string) string {
	return ordering{table: o.Table, terms: o.Terms}.render(q)
}

func sortKeyTerms(sk *schema.SortKey, args schema.Args) schema.OrderBy {
	descending := sk.Descending()
	if last, ok, _ := args.Int("last"); ok && last > 0 {
		descending = !descending
	}
	dir := schema.Asc
	if descending {
		dir = schema.Desc
	}
	terms := make(schema.OrderBy, len(sk.Key))
	for i, col := range sk.Key {
		terms[i] = schema.OrderTerm{Column: col, Direction: dir}
	}
	return terms
}
