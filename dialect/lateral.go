package dialect

import (
	"context"
	"errors"
	"strings"

	"github.com/syssam/nestql/sqlast"
)

var errEmptyScope = errors.New("nestql: batch query without parent keys")

// lateral pages every relation shape through correlated subqueries: JOIN
// LATERAL on PostgreSQL, CROSS/OUTER APPLY on Oracle.
type lateral struct {
	syntax
	// apply joins with APPLY, which takes no ON clause.
	apply bool
	// castKeys compares batch keys as text when the scope holds strings.
	castKeys bool
	// tempTable renders the FROM clause listing the batch scope and the
	// expression naming one of its values.
	tempTable func(values []string, parentKey string) (from, ref string)
}

// Lateral joins a correlated table expression.
func (l *lateral) Lateral(table, as string) string {
	if l.apply {
		return "OUTER APPLY " + table + " " + l.quote(as)
	}
	return "LEFT JOIN LATERAL " + table + " " + l.quote(as) + " ON TRUE"
}

// frame wraps a paged select as a correlated join.
func (l *lateral) frame(body, as, joinType, cond string) string {
	if l.apply {
		kind := "CROSS"
		if joinType == "LEFT" {
			kind = "OUTER"
		}
		return kind + " APPLY (\n" + body + "\n) " + l.quote(as)
	}
	head := "JOIN LATERAL"
	if joinType != "" {
		head = joinType + " " + head
	}
	return head + " (\n" + body + "\n) " + l.quote(as) + " ON " + cond
}

func (l *lateral) scope(scope []any) ([]string, error) {
	if len(scope) == 0 {
		return nil, errEmptyScope
	}
	values := make([]string, len(scope))
	for i, v := range scope {
		values[i] = l.literal(v)
	}
	return values, nil
}

// keyOperand is the batch key column compared against the scope.
func (l *lateral) keyOperand(column string, scope []any) string {
	if _, ok := scope[0].(string); ok && l.castKeys {
		return "CAST(" + column + " AS TEXT)"
	}
	return column
}

// PaginateRoot pages the top-level table.
func (l *lateral) PaginateRoot(ctx context.Context, p *Page) ([]string, error) {
	n := p.Node
	pl, err := planPage(l, n)
	if err != nil {
		return nil, err
	}
	where, err := nodeWhere(ctx, l, n)
	if err != nil {
		return nil, err
	}
	q := subquery{table: n.Table, as: n.As, wheres: []string{pl.where, where}, plan: pl}
	return []string{l.root(l.body(q), n.As)}, nil
}

// JoinedOneToMany pages a joined one-to-many relation per parent row.
func (l *lateral) JoinedOneToMany(ctx context.Context, p *Page) ([]string, error) {
	n := p.Node
	pl, err := planPage(l, n)
	if err != nil {
		return nil, err
	}
	where, err := nodeWhere(ctx, l, n)
	if err != nil {
		return nil, err
	}
	q := subquery{table: n.Table, as: n.As, wheres: []string{p.Join, where, pl.where}, plan: pl}
	return []string{l.frame(l.body(q), n.As, "LEFT", p.Join)}, nil
}

// JoinedManyToMany pages the junction rows of each parent row, then joins
// the node table.
func (l *lateral) JoinedManyToMany(ctx context.Context, p *Page) ([]string, error) {
	n := p.Node
	pl, err := planPage(l, n)
	if err != nil {
		return nil, err
	}
	wheres, err := l.junctionWheres(ctx, n, p.JunctionJoin)
	if err != nil {
		return nil, err
	}
	q := subquery{
		table:  n.Junction.Table,
		as:     n.Junction.As,
		wheres: append(wheres, pl.where),
		plan:   pl,
		extra:  junctionExtraJoin(l, n, p.Join),
	}
	return []string{
		l.frame(l.body(q), n.Junction.As, "LEFT", p.JunctionJoin),
		"LEFT JOIN " + n.Table + " " + l.quote(n.As) + " ON " + p.Join,
	}, nil
}

// BatchedOneToMany pages the children of every parent key in the scope.
func (l *lateral) BatchedOneToMany(ctx context.Context, p *Page) ([]string, error) {
	n := p.Node
	values, err := l.scope(p.Scope)
	if err != nil {
		return nil, err
	}
	pl, err := planPage(l, n)
	if err != nil {
		return nil, err
	}
	where, err := nodeWhere(ctx, l, n)
	if err != nil {
		return nil, err
	}
	from, ref := l.tempTable(values, n.Batch.ParentKey.Column)
	cond := l.keyOperand(l.column(n.As, n.Batch.ThisKey.Column), p.Scope) + " = " + ref
	q := subquery{table: n.Table, as: n.As, wheres: []string{cond, where, pl.where}, plan: pl}
	return []string{from, l.frame(l.body(q), n.As, "", cond)}, nil
}

// BatchedManyToMany pages the junction rows of every parent key in the
// scope, then joins the node table.
func (l *lateral) BatchedManyToMany(ctx context.Context, p *Page) ([]string, error) {
	n := p.Node
	values, err := l.scope(p.Scope)
	if err != nil {
		return nil, err
	}
	pl, err := planPage(l, n)
	if err != nil {
		return nil, err
	}
	keys := n.Junction.Batch
	from, ref := l.tempTable(values, keys.ParentKey.Column)
	cond := l.keyOperand(l.column(n.Junction.As, keys.ThisKey.Column), p.Scope) + " = " + ref
	wheres, err := l.junctionWheres(ctx, n, cond)
	if err != nil {
		return nil, err
	}
	q := subquery{
		table:  n.Junction.Table,
		as:     n.Junction.As,
		wheres: append(wheres, pl.where),
		plan:   pl,
		extra:  junctionExtraJoin(l, n, p.Join),
	}
	return []string{
		from,
		l.frame(l.body(q), n.Junction.As, "LEFT", cond),
		"LEFT JOIN " + n.Table + " " + l.quote(n.As) + " ON " + p.Join,
	}, nil
}

// junctionWheres lists the linkage, junction and node predicates of a
// junction subquery.
func (l *lateral) junctionWheres(ctx context.Context, n *sqlast.Node, link string) ([]string, error) {
	jw, err := junctionWhere(ctx, l, n)
	if err != nil {
		return nil, err
	}
	nw, err := nodeWhere(ctx, l, n)
	if err != nil {
		return nil, err
	}
	return []string{link, jw, nw}, nil
}

// valuesTable lists the scope as a VALUES table named temp.
func valuesTable(quote func(string) string) func([]string, string) (string, string) {
	return func(values []string, parentKey string) (string, string) {
		rows := make([]string, len(values))
		for i, v := range values {
			rows[i] = "(" + v + ")"
		}
		return "FROM (VALUES " + strings.Join(rows, ",") + ") temp(" + quote(parentKey) + ")",
			"temp." + quote(parentKey)
	}
}
