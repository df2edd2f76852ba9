// Package gqlgen resolves gqlgen fields with nestql.
//
// Call Resolve from a generated resolver to load the whole selection of the
// field, nested relations included, in a fixed number of queries:
//
//	func (r *queryResolver) Users(ctx context.Context) ([]*model.User, error) {
//	    data, err := gqlgen.Resolve(ctx, r.schema, r.mapping, r.db.Query)
//	    if err != nil {
//	        return nil, err
//	    }
//	    return decodeUsers(data)
//	}
package gqlgen

import (
	"context"
	"errors"
	"fmt"

	"github.com/99designs/gqlgen/graphql"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/syssam/nestql"
	"github.com/syssam/nestql/compiler"
	"github.com/syssam/nestql/schema"
)

// ErrNoField is returned when the context carries no gqlgen field.
var ErrNoField = errors.New("nestql/gqlgen: no field in context")

// Request builds the compiler request of the field being resolved in ctx.
// s is the schema of the executable schema, as returned by its Schema method.
func Request(ctx context.Context, s *ast.Schema) (*compiler.Request, error) {
	fc := graphql.GetFieldContext(ctx)
	if fc == nil || fc.Field.Field == nil {
		return nil, ErrNoField
	}
	parent := s.Types[fc.Object]
	if parent == nil {
		return nil, fmt.Errorf("nestql/gqlgen: type %q is not in the schema", fc.Object)
	}
	req := &compiler.Request{
		Schema:     s,
		Fields:     []*ast.Field{fc.Field.Field},
		ParentType: parent,
	}
	if graphql.HasOperationContext(ctx) {
		oc := graphql.GetOperationContext(ctx)
		req.Variables = oc.Variables
		if oc.Doc != nil {
			req.Fragments = oc.Doc.Fragments
		}
	}
	return req, nil
}

// Resolve runs nestql.Execute for the field being resolved in ctx.
func Resolve(ctx context.Context, s *ast.Schema, m *schema.Mapping, fetch nestql.FetchFunc, opts ...nestql.Option) (any, error) {
	req, err := Request(ctx, s)
	if err != nil {
		return nil, err
	}
	return nestql.Execute(ctx, req, m, fetch, opts...)
}
