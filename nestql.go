package nestql

import (
	"context"
	"errors"
	"fmt"

	"github.com/syssam/nestql/compiler"
	"github.com/syssam/nestql/internal/errs"
	"github.com/syssam/nestql/postprocess"
	"github.com/syssam/nestql/schema"
	"github.com/syssam/nestql/shape"
	"github.com/syssam/nestql/sqlast"
	"github.com/syssam/nestql/sqlgen"
)

// Execute resolves the selection of req: it compiles the selection into a
// SQL-AST, runs the root query and one query per batch-loaded relation and
// tree level through fetch, and returns the nested result. A list field
// yields []any, a single object a map[string]any or nil, and a paginated
// field a Relay connection.
func Execute(ctx context.Context, req *compiler.Request, m *schema.Mapping, fetch FetchFunc, opts ...Option) (any, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}
	if fetch == nil {
		return nil, errs.NewConfigError("Fetch", nil, "fetch function cannot be nil")
	}
	tree, err := compiler.Compile(ctx, req, m, cfg.compilerOptions()...)
	if err != nil {
		return nil, err
	}
	return cfg.execute(ctx, tree.Root, fetch)
}

// FetchNode resolves a Relay node lookup: the object of req.TypeName whose
// unique key equals key. A composite key takes a []any with one value per
// key column. key may also be a schema.TableExpr selecting the object.
func FetchNode(ctx context.Context, req *compiler.NodeRequest, m *schema.Mapping, key any, fetch FetchFunc, opts ...Option) (any, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}
	if fetch == nil {
		return nil, errs.NewConfigError("Fetch", nil, "fetch function cannot be nil")
	}
	if req == nil {
		return nil, errors.New("nestql: node request is nil")
	}
	where, ok := key.(schema.TableExpr)
	if !ok {
		mt := m.Type(req.TypeName)
		if mt == nil {
			return nil, errs.NewMappingError(req.TypeName, "", "type has no table")
		}
		where, err = schema.KeyCondition(mt.UniqueKey, key, cfg.dialect.Quote, cfg.dialect.Literal)
		if err != nil {
			return nil, err
		}
	}
	tree, err := compiler.CompileNode(ctx, req, m, where, cfg.compilerOptions()...)
	if err != nil {
		return nil, err
	}
	return cfg.execute(ctx, tree.Root, fetch)
}

// Stringify compiles the selection of req and renders the root query
// without running it.
func Stringify(ctx context.Context, req *compiler.Request, m *schema.Mapping, opts ...Option) (string, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return "", err
	}
	tree, err := compiler.Compile(ctx, req, m, cfg.compilerOptions()...)
	if err != nil {
		return "", err
	}
	return sqlgen.Stringify(ctx, tree.Root, cfg.dialect, nil)
}

func (c *config) execute(ctx context.Context, root *sqlast.Node, fetch FetchFunc) (any, error) {
	query, err := sqlgen.Stringify(ctx, root, c.dialect, nil)
	if err != nil {
		return nil, err
	}
	var rows []map[string]any
	if query != "" {
		c.logger.DebugContext(ctx, "nestql: query", "sql", query, "depth", 0, "field", root.FieldName)
		if rows, err = fetch(ctx, query); err != nil {
			return nil, err
		}
	}
	data, err := c.hydrator(rows, shape.Compile(root))
	if err != nil {
		return nil, fmt.Errorf("hydrate %s: %w", root.FieldName, err)
	}
	postprocess.ResolveUnions(root, data)
	if data, err = postprocess.ToConnection(root, data); err != nil {
		return nil, err
	}
	return c.planner(fetch).Run(ctx, root, data)
}
