package batch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/nestql/compiler"
	"github.com/syssam/nestql/dialect"
	"github.com/syssam/nestql/hydrate"
	"github.com/syssam/nestql/internal/fixture"
	"github.com/syssam/nestql/sqlast"
)

func compile(t *testing.T, query string) *sqlast.Node {
	t.Helper()
	sel := fixture.Select(t, fixture.Schema(t), query, nil)
	tree, err := compiler.Compile(context.Background(), &compiler.Request{
		Schema:     sel.Schema,
		Fields:     sel.Fields,
		ParentType: sel.Parent,
		Fragments:  sel.Fragments,
	}, fixture.Mapping(t))
	require.NoError(t, err)
	return tree.Root
}

// recorder answers queries by the table they select from.
type recorder struct {
	mu      sync.Mutex
	queries []string
	rows    map[string][]hydrate.Row
	err     error
}

func (r *recorder) fetch(_ context.Context, query string) ([]hydrate.Row, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append(r.queries, query)
	if r.err != nil {
		return nil, r.err
	}
	for from, rows := range r.rows {
		if strings.Contains(query, "FROM "+from+" ") {
			return rows, nil
		}
	}
	return nil, nil
}

func sqlite(t *testing.T) dialect.Dialect {
	t.Helper()
	d, err := dialect.Lookup(dialect.SQLite)
	require.NoError(t, err)
	return d
}

func TestRunOneToMany(t *testing.T) {
	root := compile(t, `{ users { id posts { id body } } }`)
	rec := &recorder{rows: map[string][]hydrate.Row{
		"posts": {
			{"id": int64(2), "body": "b", "author_id": int64(1)},
			{"id": int64(1), "body": "a", "author_id": int64(2)},
			{"id": int64(3), "body": "c", "author_id": int64(2)},
		},
	}}
	users := []any{
		map[string]any{"id": int64(1)},
		map[string]any{"id": int64(2)},
		map[string]any{"id": int64(3)},
	}
	p := &Planner{Dialect: sqlite(t), Fetch: rec.fetch}
	out, err := p.Run(context.Background(), root, users)
	require.NoError(t, err)

	require.Len(t, rec.queries, 1)
	assert.Contains(t, rec.queries[0], `WHERE "posts"."author_id" IN (1,2,3)`)
	assert.Contains(t, rec.queries[0], `ORDER BY "posts"."id" ASC`)

	list := out.([]any)
	require.Len(t, list, 3)
	posts := func(i int) []any { return list[i].(map[string]any)["posts"].([]any) }
	require.Len(t, posts(0), 1)
	assert.Equal(t, "b", posts(0)[0].(map[string]any)["body"])
	require.Len(t, posts(1), 2)
	for _, post := range posts(1) {
		assert.Equal(t, int64(2), post.(map[string]any)["author_id"])
	}
	assert.Equal(t, []any{}, posts(2))
}

func TestRunLevels(t *testing.T) {
	root := compile(t, `{ users { id posts { id comments { id body } } } }`)
	rec := &recorder{rows: map[string][]hydrate.Row{
		"posts": {
			{"id": int64(10), "author_id": int64(1)},
			{"id": int64(11), "author_id": int64(1)},
		},
		"comments": {
			{"id": int64(100), "body": "first", "post_id": int64(11)},
		},
	}}
	users := []any{map[string]any{"id": int64(1)}}
	p := &Planner{Dialect: sqlite(t), Fetch: rec.fetch}
	_, err := p.Run(context.Background(), root, users)
	require.NoError(t, err)

	require.Len(t, rec.queries, 2, "one query per level")
	assert.Contains(t, rec.queries[0], "FROM posts ")
	assert.Contains(t, rec.queries[1], `"comments"."post_id" IN (10,11)`)

	posts := users[0].(map[string]any)["posts"].([]any)
	require.Len(t, posts, 2)
	assert.Equal(t, []any{}, posts[0].(map[string]any)["comments"])
	comments := posts[1].(map[string]any)["comments"].([]any)
	require.Len(t, comments, 1)
	assert.Equal(t, "first", comments[0].(map[string]any)["body"])
}

func TestRunSiblings(t *testing.T) {
	root := compile(t, `{ users { id posts { id } followers { id } } }`)
	rec := &recorder{rows: map[string][]hydrate.Row{
		"relationships": {
			{"id": int64(2), "followee_id": int64(1)},
			{"id": int64(3), "followee_id": int64(1)},
		},
	}}
	users := []any{map[string]any{"id": int64(1)}, map[string]any{"id": int64(2)}}
	p := &Planner{Dialect: sqlite(t), Fetch: rec.fetch, Concurrency: 1}
	_, err := p.Run(context.Background(), root, users)
	require.NoError(t, err)
	assert.Len(t, rec.queries, 2)

	followers := users[0].(map[string]any)["followers"].([]any)
	assert.Len(t, followers, 2)
	assert.Equal(t, []any{}, users[1].(map[string]any)["followers"])
}

func TestRunEmptyScope(t *testing.T) {
	root := compile(t, `{ users { id posts { id } } }`)
	rec := &recorder{}
	users := []any{map[string]any{"id": nil}}
	p := &Planner{Dialect: sqlite(t), Fetch: rec.fetch}
	_, err := p.Run(context.Background(), root, users)
	require.NoError(t, err)
	assert.Empty(t, rec.queries)
	assert.Equal(t, []any{}, users[0].(map[string]any)["posts"])
}

func TestRunUnmatched(t *testing.T) {
	rows := map[string][]hydrate.Row{
		"accounts": {{"id": int64(2), "fullName": "Hudson Hyatt"}},
	}
	data := func() []any {
		return []any{
			map[string]any{"id": int64(1), "author_id": int64(2)},
			map[string]any{"id": int64(2), "author_id": int64(9)},
		}
	}

	t.Run("Null", func(t *testing.T) {
		root := compile(t, `{ recentPosts { id writer { id fullName } } }`)
		p := &Planner{Dialect: sqlite(t), Fetch: (&recorder{rows: rows}).fetch}
		out, err := p.Run(context.Background(), root, data())
		require.NoError(t, err)
		list := out.([]any)
		require.Len(t, list, 2)
		writer := list[0].(map[string]any)["writer"].(map[string]any)
		assert.Equal(t, "Hudson Hyatt", writer["fullName"])
		assert.Nil(t, list[1].(map[string]any)["writer"])
	})
	t.Run("DropRoot", func(t *testing.T) {
		root := compile(t, `{ recentPosts { id writer { id fullName } } }`)
		p := &Planner{Dialect: sqlite(t), Fetch: (&recorder{rows: rows}).fetch, Unmatched: UnmatchedDropRoot}
		out, err := p.Run(context.Background(), root, data())
		require.NoError(t, err)
		list := out.([]any)
		require.Len(t, list, 1)
		assert.Equal(t, int64(1), list[0].(map[string]any)["id"])
	})
}

func TestRunTypedChild(t *testing.T) {
	root := compile(t, `{ animals { ... on Dog { owner { id } } ... on Cat { meows } } }`)
	rec := &recorder{rows: map[string][]hydrate.Row{
		"accounts": {{"id": int64(1)}},
	}}
	animals := []any{
		map[string]any{"id": int64(1), "kind": "Dog", "owner_id": int64(1)},
		map[string]any{"id": int64(2), "kind": "Cat", "owner_id": int64(2)},
	}
	p := &Planner{Dialect: sqlite(t), Fetch: rec.fetch}
	_, err := p.Run(context.Background(), root, animals)
	require.NoError(t, err)

	require.Len(t, rec.queries, 1)
	assert.Contains(t, rec.queries[0], `"owner"."id" IN (1)`)
	rex, tom := animals[0].(map[string]any), animals[1].(map[string]any)
	assert.Equal(t, map[string]any{"id": int64(1)}, rex["owner"])
	assert.NotContains(t, rex, "owner@Dog")
	assert.NotContains(t, tom, "owner")
}

func TestRunFetchError(t *testing.T) {
	root := compile(t, `{ users { id posts { id } } }`)
	boom := errors.New("connection reset")
	p := &Planner{Dialect: sqlite(t), Fetch: (&recorder{err: boom}).fetch}
	_, err := p.Run(context.Background(), root, []any{map[string]any{"id": int64(1)}})
	assert.ErrorIs(t, err, boom)
}

func TestRunMissingFetch(t *testing.T) {
	_, err := (&Planner{}).Run(context.Background(), &sqlast.Node{}, nil)
	assert.Error(t, err)
}

func TestUnmatchedPolicyString(t *testing.T) {
	assert.Equal(t, "null", UnmatchedNull.String())
	assert.Equal(t, "drop-root", UnmatchedDropRoot.String())
	assert.Equal(t, "UnmatchedPolicy(9)", UnmatchedPolicy(9).String())
}
