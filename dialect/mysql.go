package dialect

import (
	"context"
	"strings"
)

// union is the MySQL-family paginator: without LATERAL support, batched
// relations page as one UNION of per-key subqueries.
type union struct {
	syntax
	PaginationUnsupported
	// lateral marks engines accepting LATERAL derived tables.
	lateral bool
}

// NewMariaDB returns the MariaDB dialect.
func NewMariaDB() Dialect {
	return newUnion(MariaDB, false)
}

// NewMySQL8 returns the MySQL 8 dialect.
func NewMySQL8() Dialect {
	return newUnion(MySQL8, true)
}

func newUnion(name string, lateral bool) *union {
	return &union{
		syntax:                mysqlSyntax(name, "18446744073709551615"),
		PaginationUnsupported: PaginationUnsupported{DialectName: name},
		lateral:               lateral,
	}
}

// NewMySQL returns the MySQL 5 dialect, which pages nothing.
func NewMySQL() Dialect {
	return &mysql{
		syntax:                mysqlSyntax(MySQL, "18446744073709551615"),
		PaginationUnsupported: PaginationUnsupported{DialectName: MySQL},
	}
}

type mysql struct {
	syntax
	PaginationUnsupported
}

// Lateral joins a table expression; MySQL 5 cannot correlate it.
func (m *mysql) Lateral(table, as string) string {
	return "LEFT JOIN " + table + " " + m.quote(as) + " ON 1 = 1"
}

func mysqlSyntax(name, maxLimit string) syntax {
	return syntax{
		name:  name,
		quote: backtick,
		literal: func(v any) string {
			return literal(v, quoteBackslash)
		},
		concat: func(columns []string) string {
			return "CONCAT(" + strings.Join(columns, ", ") + ")"
		},
		maxLimit:   maxLimit,
		rowCompare: true,
		emptyWhere: "1",
	}
}

func backtick(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

// Lateral joins a table expression, correlated where the engine allows it.
func (u *union) Lateral(table, as string) string {
	if u.lateral {
		return "LEFT JOIN LATERAL " + table + " " + u.quote(as) + " ON TRUE"
	}
	return "LEFT JOIN " + table + " " + u.quote(as) + " ON 1 = 1"
}

// PaginateRoot pages the top-level table.
func (u *union) PaginateRoot(ctx context.Context, p *Page) ([]string, error) {
	n := p.Node
	pl, err := planPage(u, n)
	if err != nil {
		return nil, err
	}
	where, err := nodeWhere(ctx, u, n)
	if err != nil {
		return nil, err
	}
	q := subquery{table: n.Table, as: n.As, wheres: []string{pl.where, where}, plan: pl}
	return []string{u.root(u.body(q), n.As)}, nil
}

// BatchedOneToMany unions one paged select per parent key.
func (u *union) BatchedOneToMany(ctx context.Context, p *Page) ([]string, error) {
	n := p.Node
	if len(p.Scope) == 0 {
		return nil, errEmptyScope
	}
	pl, err := planPage(u, n)
	if err != nil {
		return nil, err
	}
	where, err := nodeWhere(ctx, u, n)
	if err != nil {
		return nil, err
	}
	key := u.column(n.As, n.Batch.ThisKey.Column)
	selects := make([]string, len(p.Scope))
	for i, v := range p.Scope {
		q := subquery{table: n.Table, as: n.As, wheres: []string{where, pl.where, key + " = " + u.literal(v)}, plan: pl}
		selects[i] = u.member(q)
	}
	return []string{u.unions(selects, n.As)}, nil
}

// BatchedManyToMany unions one paged junction select per parent key, then
// joins the node table.
func (u *union) BatchedManyToMany(ctx context.Context, p *Page) ([]string, error) {
	n := p.Node
	if len(p.Scope) == 0 {
		return nil, errEmptyScope
	}
	pl, err := planPage(u, n)
	if err != nil {
		return nil, err
	}
	jw, err := junctionWhere(ctx, u, n)
	if err != nil {
		return nil, err
	}
	nw, err := nodeWhere(ctx, u, n)
	if err != nil {
		return nil, err
	}
	key := u.column(n.Junction.As, n.Junction.Batch.ThisKey.Column)
	extra := junctionExtraJoin(u, n, p.Join)
	selects := make([]string, len(p.Scope))
	for i, v := range p.Scope {
		q := subquery{
			table:  n.Junction.Table,
			as:     n.Junction.As,
			wheres: []string{jw, nw, pl.where, key + " = " + u.literal(v)},
			plan:   pl,
			extra:  extra,
		}
		selects[i] = u.member(q)
	}
	return []string{
		u.unions(selects, n.Junction.As),
		"LEFT JOIN " + n.Table + " " + u.quote(n.As) + " ON " + p.Join,
	}, nil
}

// member renders one parenthesized select of a union.
func (u *union) member(q subquery) string {
	return "  (" + strings.TrimPrefix(u.body(q), "  ") + ")"
}

func (u *union) unions(selects []string, as string) string {
	return "FROM (\n" + strings.Join(selects, "\nUNION\n") + "\n) AS " + u.quote(as)
}
