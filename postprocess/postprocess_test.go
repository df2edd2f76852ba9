package postprocess

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/nestql/dialect"
	"github.com/syssam/nestql/schema"
	"github.com/syssam/nestql/sqlast"
)

func posts(n int) []any {
	out := make([]any, n)
	for i := range out {
		out[i] = map[string]any{"id": i + 1}
	}
	return out
}

func keysetNode(args schema.Args) *sqlast.Node {
	return &sqlast.Node{
		Kind:      sqlast.KindTable,
		FieldName: "posts",
		Paginate:  true,
		SortKey:   &schema.SortKey{Order: "ASC", Key: []string{"id"}},
		Args:      args,
	}
}

func edges(t *testing.T, c any) []map[string]any {
	t.Helper()
	conn, ok := c.(map[string]any)
	require.True(t, ok, "connection expected, got %T", c)
	var out []map[string]any
	for _, e := range conn["edges"].([]any) {
		out = append(out, e.(map[string]any))
	}
	return out
}

func TestKeysetFirst(t *testing.T) {
	c, err := ToConnection(keysetNode(schema.Args{"first": 2}), posts(3))
	require.NoError(t, err)
	got := edges(t, c)
	require.Len(t, got, 2)
	info := c.(map[string]any)["pageInfo"].(map[string]any)
	assert.Equal(t, true, info["hasNextPage"])
	assert.Equal(t, false, info["hasPreviousPage"])

	cursor, err := dialect.DecodeCursor(got[1]["cursor"].(string))
	require.NoError(t, err)
	assert.Equal(t, json.Number("2"), cursor["id"])
	assert.Equal(t, got[0]["cursor"], info["startCursor"])
	assert.Equal(t, got[1]["cursor"], info["endCursor"])

	c, err = ToConnection(keysetNode(schema.Args{"first": 2}), posts(2))
	require.NoError(t, err)
	assert.Len(t, edges(t, c), 2)
	assert.Equal(t, false, c.(map[string]any)["pageInfo"].(map[string]any)["hasNextPage"])
}

func TestKeysetLast(t *testing.T) {
	// Backward pages arrive in reverse order with one lookahead row.
	rows := []any{map[string]any{"id": 5}, map[string]any{"id": 4}, map[string]any{"id": 3}}
	c, err := ToConnection(keysetNode(schema.Args{"last": 2}), rows)
	require.NoError(t, err)
	got := edges(t, c)
	require.Len(t, got, 2)
	assert.Equal(t, 4, got[0]["node"].(map[string]any)["id"])
	assert.Equal(t, 5, got[1]["node"].(map[string]any)["id"])
	assert.Equal(t, true, c.(map[string]any)["pageInfo"].(map[string]any)["hasPreviousPage"])
}

func offsetNode(args schema.Args) *sqlast.Node {
	return &sqlast.Node{
		Kind:      sqlast.KindTable,
		FieldName: "comments",
		Paginate:  true,
		OrderBy:   schema.OrderAsc("id"),
		Args:      args,
	}
}

func withTotal(n, from, total int) []any {
	out := make([]any, n)
	for i := range out {
		out[i] = map[string]any{"id": from + i, TotalField: int64(total)}
	}
	return out
}

func TestOffset(t *testing.T) {
	c, err := ToConnection(offsetNode(schema.Args{"first": 10}), withTotal(11, 0, 25))
	require.NoError(t, err)
	conn := c.(map[string]any)
	got := edges(t, c)
	require.Len(t, got, 10)
	assert.Equal(t, 25, conn["total"])
	assert.Equal(t, true, conn["pageInfo"].(map[string]any)["hasNextPage"])
	assert.Equal(t, dialect.OffsetToCursor(0), got[0]["cursor"])
	assert.Equal(t, dialect.OffsetToCursor(9), got[9]["cursor"])

	c, err = ToConnection(offsetNode(schema.Args{"first": 10, "after": dialect.OffsetToCursor(19)}), withTotal(5, 20, 25))
	require.NoError(t, err)
	got = edges(t, c)
	require.Len(t, got, 5)
	assert.Equal(t, dialect.OffsetToCursor(20), got[0]["cursor"])
	assert.Equal(t, false, c.(map[string]any)["pageInfo"].(map[string]any)["hasNextPage"])
}

func TestEmptyConnection(t *testing.T) {
	c, err := ToConnection(offsetNode(schema.Args{"first": 10}), nil)
	require.NoError(t, err)
	want := map[string]any{
		"edges":    []any{},
		"pageInfo": map[string]any{"hasNextPage": false, "hasPreviousPage": false, "startCursor": nil, "endCursor": nil},
		"total":    0,
	}
	if diff := cmp.Diff(want, c); diff != "" {
		t.Errorf("empty connection mismatch (-want +got):\n%s", diff)
	}
	_, keyset := EmptyConnection(keysetNode(nil))["total"]
	assert.False(t, keyset)
}

func TestNestedConnection(t *testing.T) {
	root := &sqlast.Node{
		Kind:     sqlast.KindTable,
		GrabMany: true,
		Children: []*sqlast.Node{keysetNode(schema.Args{"first": 1})},
	}
	data := []any{
		map[string]any{"id": 1, "posts": posts(2)},
		map[string]any{"id": 2, "posts": []any{}},
	}
	out, err := ToConnection(root, data)
	require.NoError(t, err)
	first := out.([]any)[0].(map[string]any)
	assert.Len(t, edges(t, first["posts"]), 1)
	second := out.([]any)[1].(map[string]any)
	assert.Len(t, edges(t, second["posts"]), 0)
}

func TestResolveUnions(t *testing.T) {
	union := &sqlast.Node{
		Kind:      sqlast.KindUnion,
		FieldName: "pets",
		GrabMany:  true,
		Children:  []*sqlast.Node{{Kind: sqlast.KindColumn, FieldName: "id"}},
		Typed: []*sqlast.TypedChildren{
			{TypeName: "Dog", Children: []*sqlast.Node{{Kind: sqlast.KindColumn, FieldName: "name", DeferredFrom: "Dog"}}},
			{TypeName: "Cat", Children: []*sqlast.Node{{Kind: sqlast.KindColumn, FieldName: "name", DeferredFrom: "Cat"}}},
		},
	}
	root := &sqlast.Node{Kind: sqlast.KindTable, Children: []*sqlast.Node{union}}
	data := map[string]any{
		"id": 1,
		"pets": []any{
			map[string]any{"id": 1, "name@Dog": "Rex", "name@Cat": nil},
			map[string]any{"id": 2, "name@Dog": nil, "name@Cat": "Tom"},
		},
	}
	ResolveUnions(root, data)
	want := map[string]any{
		"id": 1,
		"pets": []any{
			map[string]any{"id": 1, "name": "Rex"},
			map[string]any{"id": 2, "name": "Tom"},
		},
	}
	if diff := cmp.Diff(want, data); diff != "" {
		t.Errorf("ResolveUnions() mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveUnionsDiscriminator(t *testing.T) {
	union := &sqlast.Node{
		Kind:          sqlast.KindUnion,
		FieldName:     "pets",
		GrabMany:      true,
		Discriminator: "kind",
		Children:      []*sqlast.Node{{Kind: sqlast.KindColumn, FieldName: "id"}, {Kind: sqlast.KindColumn, FieldName: "kind"}},
		Typed: []*sqlast.TypedChildren{
			{TypeName: "Dog", Children: []*sqlast.Node{{Kind: sqlast.KindExpression, FieldName: "name", DeferredFrom: "Dog"}}},
			{TypeName: "Cat", Children: []*sqlast.Node{{Kind: sqlast.KindColumn, FieldName: "name", DeferredFrom: "Cat"}}},
		},
	}
	data := []any{
		map[string]any{"id": 1, "kind": "Dog", "name@Dog": "dog:Rex", "name@Cat": "Rex"},
		map[string]any{"id": 2, "kind": "Cat", "name@Dog": "dog:Tom", "name@Cat": "Tom"},
	}
	ResolveUnions(union, data)
	want := []any{
		map[string]any{"id": 1, "kind": "Dog", "name": "dog:Rex"},
		map[string]any{"id": 2, "kind": "Cat", "name": "Tom"},
	}
	if diff := cmp.Diff(want, data); diff != "" {
		t.Errorf("ResolveUnions() mismatch (-want +got):\n%s", diff)
	}

	objs := Objects(data)
	require.Len(t, OfType(union, objs, "Cat"), 1)
	assert.Equal(t, 2, OfType(union, objs, "Cat")[0]["id"])
	assert.Empty(t, OfType(union, objs, "Bird"))
	union.Discriminator = ""
	assert.Len(t, OfType(union, objs, "Bird"), 2)
}

func TestFoldEmptyList(t *testing.T) {
	child := &sqlast.Node{Kind: sqlast.KindTable, FieldName: "toys", DeferredFrom: "Dog"}
	obj := map[string]any{"toys": []any{}, "toys@Dog": []any{"ball"}}
	Fold(obj, child)
	assert.Equal(t, map[string]any{"toys": []any{"ball"}}, obj)

	obj = map[string]any{"toys": []any{"bone"}, "toys@Dog": []any{"ball"}}
	Fold(obj, child)
	assert.Equal(t, map[string]any{"toys": []any{"bone"}}, obj)
}
