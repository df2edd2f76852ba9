package sqlgen

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/nestql/dialect"
	"github.com/syssam/nestql/internal/errs"
	"github.com/syssam/nestql/schema"
	"github.com/syssam/nestql/sqlast"
)

func column(name string) *sqlast.Node {
	return &sqlast.Node{Kind: sqlast.KindColumn, FieldName: name, Column: name, As: name}
}

func joinOn(parentCol, childCol string) schema.JoinExpr {
	return func(_ context.Context, parent, child string, _ schema.Args) (string, error) {
		return parent + "." + parentCol + " = " + child + "." + childCol, nil
	}
}

func accounts() *sqlast.Node {
	return &sqlast.Node{
		Kind:      sqlast.KindTable,
		FieldName: "user",
		Table:     "accounts",
		As:        "accounts",
		Where: func(_ context.Context, table string, _ schema.Args) (string, error) {
			return table + ".id = 1", nil
		},
		Children: []*sqlast.Node{column("id"), column("email_address")},
	}
}

func pg(t *testing.T) dialect.Dialect {
	d, err := dialect.Lookup(dialect.Postgres)
	require.NoError(t, err)
	return d
}

func TestPrefix(t *testing.T) {
	assert.Equal(t, "", Prefix(nil))
	assert.Equal(t, "", Prefix([]string{"root"}))
	assert.Equal(t, "posts__comments__", Prefix([]string{"root", "posts", "comments"}))
}

func TestStringifyJoin(t *testing.T) {
	root := accounts()
	root.Children = append(root.Children, &sqlast.Node{
		Kind:      sqlast.KindTable,
		FieldName: "posts",
		Table:     "posts",
		As:        "posts",
		GrabMany:  true,
		Join:      joinOn("id", "author_id"),
		OrderBy:   schema.OrderBy{{Column: "id", Direction: schema.Desc}},
		Children:  []*sqlast.Node{column("id"), column("body")},
	})
	sql, err := Stringify(context.Background(), root, pg(t), nil)
	require.NoError(t, err)
	assert.Equal(t, strings.Join([]string{
		`SELECT`,
		`  "accounts"."id" AS "id",`,
		`  "accounts"."email_address" AS "email_address",`,
		`  "posts"."id" AS "posts__id",`,
		`  "posts"."body" AS "posts__body"`,
		`FROM accounts "accounts"`,
		`LEFT JOIN posts "posts" ON "accounts".id = "posts".author_id`,
		`WHERE "accounts".id = 1`,
		`ORDER BY "posts"."id" DESC`,
	}, "\n"), sql)
}

func commentsBatch() *sqlast.Node {
	return &sqlast.Node{
		Kind:      sqlast.KindTable,
		FieldName: "comments",
		Table:     "comments",
		As:        "comments",
		GrabMany:  true,
		Batch: &sqlast.BatchKey{
			ThisKey:   column("author_id"),
			ParentKey: column("id"),
		},
		Children: []*sqlast.Node{column("id"), column("author_id")},
	}
}

func TestStringifyBatchBoundary(t *testing.T) {
	root := accounts()
	root.Children = append(root.Children, commentsBatch())
	sql, err := Stringify(context.Background(), root, pg(t), nil)
	require.NoError(t, err)
	// The parent key duplicates the id selection and is emitted once.
	assert.Equal(t, 1, strings.Count(sql, `"accounts"."id" AS "id"`))
	assert.NotContains(t, sql, "comments")
}

func TestStringifyBatchRoot(t *testing.T) {
	sql, err := Stringify(context.Background(), commentsBatch(), pg(t), []any{1, 2})
	require.NoError(t, err)
	assert.Equal(t, strings.Join([]string{
		`SELECT`,
		`  "comments"."id" AS "id",`,
		`  "comments"."author_id" AS "author_id"`,
		`FROM comments "comments"`,
		`WHERE "comments"."author_id" IN (1,2)`,
	}, "\n"), sql)
}

func TestStringifyJunction(t *testing.T) {
	following := &sqlast.Node{
		Kind:      sqlast.KindTable,
		FieldName: "following",
		Table:     "accounts",
		As:        "following",
		GrabMany:  true,
		Junction: &sqlast.Junction{
			Table: "relationships",
			As:    "relationships",
			Joins: [2]schema.JoinExpr{joinOn("id", "follower_id"), joinOn("followee_id", "id")},
		},
		Children: []*sqlast.Node{column("id")},
	}
	root := accounts()
	root.Children = []*sqlast.Node{column("id"), following}
	sql, err := Stringify(context.Background(), root, pg(t), nil)
	require.NoError(t, err)
	assert.Contains(t, sql, "\nLEFT JOIN relationships \"relationships\" ON \"accounts\".id = \"relationships\".follower_id\n"+
		"LEFT JOIN accounts \"following\" ON \"relationships\".followee_id = \"following\".id")

	batched := *following
	batched.Junction = &sqlast.Junction{
		Table: "relationships",
		As:    "relationships",
		Batch: &sqlast.JunctionBatch{
			BatchKey: sqlast.BatchKey{ThisKey: column("follower_id"), ParentKey: column("id")},
			Join:     joinOn("followee_id", "id"),
		},
	}
	sql, err = Stringify(context.Background(), &batched, pg(t), []any{"a"})
	require.NoError(t, err)
	assert.Contains(t, sql, "FROM relationships \"relationships\"\nLEFT JOIN accounts \"following\" ON \"relationships\".followee_id = \"following\".id")
	assert.Contains(t, sql, `WHERE "relationships"."follower_id" IN ('a')`)
}

func TestStringifyLeaves(t *testing.T) {
	root := accounts()
	root.Where = nil
	root.Children = []*sqlast.Node{
		{Kind: sqlast.KindComposite, FieldName: "id#nam", Columns: []string{"id", "name"}, As: "id#nam"},
		{Kind: sqlast.KindExpression, FieldName: "full", As: "full", Expr: func(_ context.Context, table string, _ schema.Args) (string, error) {
			return table + ".first || ' ' || " + table + ".last", nil
		}},
		{Kind: sqlast.KindColumnDeps, Deps: []sqlast.Dep{{Name: "first", As: "first"}, {Name: "last", As: "last"}}},
		{Kind: sqlast.KindForeignColumn, FieldName: "city", Column: "name", As: "city", ForeignAs: "cities", ForeignTable: func(_ context.Context, table string, _ schema.Args) (string, error) {
			return "(SELECT name FROM cities WHERE cities.id = " + table + ".city_id)", nil
		}},
		{Kind: sqlast.KindNoop, FieldName: "__typename"},
	}
	sql, err := Stringify(context.Background(), root, pg(t), nil)
	require.NoError(t, err)
	assert.Equal(t, strings.Join([]string{
		`SELECT`,
		`  NULLIF(CONCAT("accounts"."id", "accounts"."name"), '') AS "id#nam",`,
		`  "accounts".first || ' ' || "accounts".last AS "full",`,
		`  "accounts"."first" AS "first",`,
		`  "accounts"."last" AS "last",`,
		`  "cities"."name" AS "city"`,
		`FROM accounts "accounts"`,
		`LEFT JOIN LATERAL (SELECT name FROM cities WHERE cities.id = "accounts".city_id) "cities" ON TRUE`,
	}, "\n"), sql)
}

func TestStringifyErrors(t *testing.T) {
	root := accounts()
	root.Join = joinOn("id", "id")
	_, err := Stringify(context.Background(), root, pg(t), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrMapping))
	assert.Contains(t, err.Error(), "root level field can not have sqlJoin")

	orphan := &sqlast.Node{Kind: sqlast.KindTable, FieldName: "posts", Table: "posts", As: "posts"}
	root = accounts()
	root.Children = append(root.Children, orphan)
	_, err = Stringify(context.Background(), root, pg(t), nil)
	assert.True(t, errors.Is(err, errs.ErrMapping))

	root = accounts()
	root.Paginate = true
	root.OrderBy = schema.OrderAsc("id")
	sqlite, err := dialect.Lookup(dialect.SQLite)
	require.NoError(t, err)
	_, err = Stringify(context.Background(), root, sqlite, nil)
	assert.True(t, errors.Is(err, errs.ErrUnsupported))
}

func TestStringifyEmpty(t *testing.T) {
	root := accounts()
	root.Children = []*sqlast.Node{{Kind: sqlast.KindNoop, FieldName: "__typename"}}
	sql, err := Stringify(context.Background(), root, pg(t), nil)
	require.NoError(t, err)
	assert.Empty(t, sql)
}

func TestStringifyPaginatedRoot(t *testing.T) {
	root := accounts()
	root.Paginate = true
	root.SortKey = &schema.SortKey{Order: "ASC", Key: []string{"id"}}
	root.Args = schema.Args{"first": 2}
	sql, err := Stringify(context.Background(), root, pg(t), nil)
	require.NoError(t, err)
	assert.Contains(t, sql, "FROM (\n  SELECT \"accounts\".*\n  FROM accounts \"accounts\"\n  WHERE \"accounts\".id = 1\n")
	assert.NotContains(t, sql, "\nWHERE")
	assert.True(t, strings.HasSuffix(sql, `ORDER BY "accounts"."id" ASC`))
}
