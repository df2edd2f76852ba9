package gqlgen

import (
	"context"
	"testing"

	"github.com/99designs/gqlgen/graphql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2"

	"github.com/syssam/nestql/internal/fixture"
)

func resolverContext(t *testing.T, query string, vars map[string]any) context.Context {
	t.Helper()
	s := fixture.Schema(t)
	doc, gerr := gqlparser.LoadQuery(s, query)
	if len(gerr) > 0 {
		require.NoError(t, gerr)
	}
	op := doc.Operations[0]
	f := fixture.Select(t, s, query, vars).Fields[0]
	ctx := graphql.WithOperationContext(context.Background(), &graphql.OperationContext{
		Doc:       doc,
		Operation: op,
		Variables: vars,
	})
	return graphql.WithFieldContext(ctx, &graphql.FieldContext{
		Object: "Query",
		Field:  graphql.CollectedField{Field: f, Selections: f.SelectionSet},
	})
}

func TestRequest(t *testing.T) {
	ctx := resolverContext(t, `query($id: Int!) { user(id: $id) { ...names } } fragment names on User { fullName }`,
		map[string]any{"id": 2})
	req, err := Request(ctx, fixture.Schema(t))
	require.NoError(t, err)
	assert.Equal(t, "Query", req.ParentType.Name)
	require.Len(t, req.Fields, 1)
	assert.Equal(t, "user", req.Fields[0].Name)
	assert.NotNil(t, req.Fragments.ForName("names"))
	assert.Equal(t, map[string]any{"id": 2}, req.Variables)
}

func TestRequestWithoutField(t *testing.T) {
	_, err := Request(context.Background(), fixture.Schema(t))
	assert.ErrorIs(t, err, ErrNoField)
}

func TestRequestUnknownType(t *testing.T) {
	ctx := resolverContext(t, `{ users { id } }`, nil)
	fc := graphql.GetFieldContext(ctx)
	fc.Object = "Mutation"
	_, err := Request(ctx, fixture.Schema(t))
	assert.ErrorContains(t, err, `type "Mutation" is not in the schema`)
}

func TestResolve(t *testing.T) {
	ctx := resolverContext(t, `query($id: Int!) { user(id: $id) { id ...names posts { id } } } fragment names on User { fullName }`,
		map[string]any{"id": 2})
	data, err := Resolve(ctx, fixture.Schema(t), fixture.Mapping(t), fixture.DB(t).Query)
	require.NoError(t, err)
	user := data.(map[string]any)
	assert.Equal(t, "Hudson Hyatt", user["fullName"])
	assert.Len(t, user["posts"], 2)
}
