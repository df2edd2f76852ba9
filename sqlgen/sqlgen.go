// Package sqlgen renders a SQL-AST into one SELECT statement.
package sqlgen

import (
	"context"
	"fmt"
	"strings"

	"github.com/syssam/nestql/dialect"
	"github.com/syssam/nestql/internal/errs"
	"github.com/syssam/nestql/sqlast"
)

// Separator joins the ancestor aliases prefixing a selection alias.
const Separator = "__"

// Stringify renders the query rooted at root. Scope holds the parent-key
// values when root is a batch-loaded relation. It returns "" when the tree
// selects nothing.
func Stringify(ctx context.Context, root *sqlast.Node, d dialect.Dialect, scope []any) (string, error) {
	if root.Join != nil {
		return "", errs.NewMappingError("", root.FieldName, "root level field can not have sqlJoin")
	}
	s := &stringifier{d: d, scope: scope}
	if err := s.walk(ctx, nil, root, nil); err != nil {
		return "", err
	}
	return s.assemble(), nil
}

// stringifier accumulates the four fragment lists of one statement.
type stringifier struct {
	d          dialect.Dialect
	scope      []any
	selections []string
	tables     []string
	wheres     []string
	orders     []string
}

// Prefix returns the alias prefix of the selections made under a table path,
// skipping the root alias.
func Prefix(path []string) string {
	if len(path) <= 1 {
		return ""
	}
	return strings.Join(path[1:], Separator) + Separator
}

func (s *stringifier) walk(ctx context.Context, parent, n *sqlast.Node, path []string) error {
	q := s.d.Quote
	table := n.FromOtherTable
	if table == "" && parent != nil {
		table = parent.As
	}
	prefix := Prefix(path)
	switch n.Kind {
	case sqlast.KindTable, sqlast.KindUnion:
		if err := s.table(ctx, parent, n, prefix); err != nil {
			return err
		}
		if n.IsBatched() && parent != nil {
			return nil
		}
		sub := append(append([]string(nil), path...), n.As)
		for _, child := range n.AllChildren() {
			if err := s.walk(ctx, n, child, sub); err != nil {
				return err
			}
		}
	case sqlast.KindColumn:
		s.selections = append(s.selections, q(table)+"."+q(n.Column)+" AS "+q(prefix+n.As))
	case sqlast.KindForeignColumn:
		expr, err := n.ForeignTable(ctx, q(table), n.Args)
		if err != nil {
			return fmt.Errorf("foreign table of %q: %w", n.FieldName, err)
		}
		s.tables = append(s.tables, s.d.Lateral(expr, n.ForeignAs))
		s.selections = append(s.selections, q(n.ForeignAs)+"."+q(n.Column)+" AS "+q(prefix+n.As))
	case sqlast.KindComposite:
		s.selections = append(s.selections, s.d.CompositeKey(table, n.Columns)+" AS "+q(prefix+n.As))
	case sqlast.KindColumnDeps:
		for _, dep := range n.Deps {
			s.selections = append(s.selections, q(table)+"."+q(dep.Name)+" AS "+q(prefix+dep.As))
		}
	case sqlast.KindExpression:
		expr, err := n.Expr(ctx, q(table), n.Args)
		if err != nil {
			return fmt.Errorf("expression of %q: %w", n.FieldName, err)
		}
		s.selections = append(s.selections, expr+" AS "+q(prefix+n.As))
	case sqlast.KindNoop:
	default:
		return fmt.Errorf("nestql: unexpected node kind %s", n.Kind)
	}
	return nil
}

// table renders the where, order and FROM/JOIN fragments of a table node.
func (s *stringifier) table(ctx context.Context, parent, n *sqlast.Node, prefix string) error {
	q := s.d.Quote
	boundary := n.IsBatched() && parent != nil
	if !n.Paged() && !boundary {
		if n.Junction != nil && n.Junction.Where != nil {
			w, err := n.Junction.Where(ctx, q(n.Junction.As), n.Args)
			if err != nil {
				return err
			}
			s.where(w)
		}
		if n.Where != nil {
			w, err := n.Where(ctx, q(n.As), n.Args)
			if err != nil {
				return err
			}
			s.where(w)
		}
	}
	if !boundary {
		for _, o := range dialect.OrderingsOf(n) {
			s.orders = append(s.orders, o.Render(q))
		}
	}

	page := &dialect.Page{Parent: parent, Node: n, Scope: s.scope}
	switch {
	case n.Join != nil:
		cond, err := n.Join(ctx, q(parent.As), q(n.As), n.Args)
		if err != nil {
			return err
		}
		if n.Paged() {
			page.Join = cond
			return s.paged(s.d.JoinedOneToMany(ctx, page))
		}
		s.tables = append(s.tables, "LEFT JOIN "+n.Table+" "+q(n.As)+" ON "+cond)

	case n.Junction != nil && n.Junction.Batch != nil:
		keys := n.Junction.Batch
		if parent != nil {
			s.selections = append(s.selections, q(parent.As)+"."+q(keys.ParentKey.Column)+" AS "+q(prefix+keys.ParentKey.As))
			return nil
		}
		cond, err := keys.Join(ctx, q(n.Junction.As), q(n.As), n.Args)
		if err != nil {
			return err
		}
		if n.Paged() {
			page.Join = cond
			return s.paged(s.d.BatchedManyToMany(ctx, page))
		}
		s.tables = append(s.tables,
			"FROM "+n.Junction.Table+" "+q(n.Junction.As),
			"LEFT JOIN "+n.Table+" "+q(n.As)+" ON "+cond,
		)
		s.where(q(n.Junction.As) + "." + q(keys.ThisKey.Column) + " IN (" + s.scopeList() + ")")

	case n.Junction != nil:
		if parent == nil {
			return errs.NewMappingError("", n.FieldName, "root level field can not have a joined junction")
		}
		cond1, err := n.Junction.Joins[0](ctx, q(parent.As), q(n.Junction.As), n.Args)
		if err != nil {
			return err
		}
		cond2, err := n.Junction.Joins[1](ctx, q(n.Junction.As), q(n.As), n.Args)
		if err != nil {
			return err
		}
		if n.Paged() {
			page.Join, page.JunctionJoin = cond2, cond1
			return s.paged(s.d.JoinedManyToMany(ctx, page))
		}
		s.tables = append(s.tables,
			"LEFT JOIN "+n.Junction.Table+" "+q(n.Junction.As)+" ON "+cond1,
			"LEFT JOIN "+n.Table+" "+q(n.As)+" ON "+cond2,
		)

	case n.Batch != nil:
		if parent != nil {
			s.selections = append(s.selections, q(parent.As)+"."+q(n.Batch.ParentKey.Column)+" AS "+q(prefix+n.Batch.ParentKey.As))
			return nil
		}
		if n.Paged() {
			return s.paged(s.d.BatchedOneToMany(ctx, page))
		}
		s.tables = append(s.tables, "FROM "+n.Table+" "+q(n.As))
		s.where(q(n.As) + "." + q(n.Batch.ThisKey.Column) + " IN (" + s.scopeList() + ")")

	case parent != nil:
		return errs.Mappingf("", n.FieldName, "table %s must have a join, batch or junction", n.Table)

	case n.Paged():
		return s.paged(s.d.PaginateRoot(ctx, page))

	default:
		s.tables = append(s.tables, "FROM "+n.Table+" "+q(n.As))
	}
	return nil
}

func (s *stringifier) paged(frags []string, err error) error {
	if err != nil {
		return err
	}
	s.tables = append(s.tables, frags...)
	return nil
}

func (s *stringifier) where(w string) {
	if w != "" {
		s.wheres = append(s.wheres, w)
	}
}

func (s *stringifier) scopeList() string {
	values := make([]string, len(s.scope))
	for i, v := range s.scope {
		values[i] = s.d.Literal(v)
	}
	return strings.Join(values, ",")
}

func (s *stringifier) assemble() string {
	seen := make(map[string]struct{}, len(s.selections))
	selections := make([]string, 0, len(s.selections))
	for _, sel := range s.selections {
		if _, ok := seen[sel]; ok {
			continue
		}
		seen[sel] = struct{}{}
		selections = append(selections, sel)
	}
	if len(selections) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("SELECT\n  ")
	b.WriteString(strings.Join(selections, ",\n  "))
	b.WriteString("\n")
	b.WriteString(strings.Join(s.tables, "\n"))
	if len(s.wheres) > 0 {
		b.WriteString("\nWHERE " + strings.Join(s.wheres, " AND "))
	}
	if len(s.orders) > 0 {
		b.WriteString("\nORDER BY " + strings.Join(s.orders, ", "))
	}
	return b.String()
}
