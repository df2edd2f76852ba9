// Package compiler turns a GraphQL selection and the relational mapping into
// a SQL-AST.
package compiler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/syssam/nestql/dialect"
	"github.com/syssam/nestql/internal/errs"
	"github.com/syssam/nestql/postprocess"
	"github.com/syssam/nestql/schema"
	"github.com/syssam/nestql/sqlast"
)

// Request is the selection of one resolver: the root field, repeated when
// the document selects it more than once, and the type it belongs to.
type Request struct {
	Schema     *ast.Schema
	Fields     []*ast.Field
	ParentType *ast.Definition
	Fragments  ast.FragmentDefinitionList
	Variables  map[string]any
}

// NodeRequest selects one object of a type by key, as a Relay node lookup
// does.
type NodeRequest struct {
	Schema     *ast.Schema
	TypeName   string
	Selections ast.SelectionSet
	Fragments  ast.FragmentDefinitionList
	Variables  map[string]any
}

// NodeField is the field name of the root of a node lookup.
const NodeField = "node"

type compiler struct {
	schema    *ast.Schema
	fragments ast.FragmentDefinitionList
	vars      map[string]any
	mapping   *schema.Mapping
	tree      *sqlast.Tree
	ns        *sqlast.Namespace
	log       *slog.Logger
}

// frame is the table a selection is compiled under.
type frame struct {
	node *sqlast.Node
	// include holds the junction field overrides of node.
	include map[string]*schema.Field
}

func newCompiler(s *ast.Schema, frags ast.FragmentDefinitionList, vars map[string]any, m *schema.Mapping, cfg *config) *compiler {
	tree := sqlast.NewTree(cfg.minify)
	return &compiler{
		schema:    s,
		fragments: frags,
		vars:      vars,
		mapping:   m,
		tree:      tree,
		ns:        tree.Namespace(),
		log:       cfg.logger,
	}
}

// Compile builds the SQL-AST of the request. The root field must resolve to
// a table-backed type.
func Compile(ctx context.Context, req *Request, m *schema.Mapping, opts ...Option) (*sqlast.Tree, error) {
	if req == nil || req.Schema == nil || req.ParentType == nil || len(req.Fields) == 0 {
		return nil, errors.New("nestql: compile request needs a schema, a parent type and a field")
	}
	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}
	c := newCompiler(req.Schema, req.Fragments, req.Variables, m, cfg)
	root, err := c.field(ctx, nil, req.ParentType, merge(req.Fields)[0], 0, "")
	if err != nil {
		return nil, err
	}
	if !root.IsTable() {
		return nil, errs.NewMappingError(req.ParentType.Name, root.FieldName, "Must call on a field whose type is decorated with a table")
	}
	prune(root, c.ns)
	return c.tree, nil
}

// CompileNode builds the SQL-AST fetching one object of req.TypeName
// restricted by where.
func CompileNode(ctx context.Context, req *NodeRequest, m *schema.Mapping, where schema.TableExpr, opts ...Option) (*sqlast.Tree, error) {
	if req == nil || req.Schema == nil {
		return nil, errors.New("nestql: node request needs a schema")
	}
	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}
	def := req.Schema.Types[req.TypeName]
	if def == nil {
		return nil, errs.Mappingf(req.TypeName, "", "type %q is not in the schema", req.TypeName)
	}
	mt := m.Type(def.Name)
	if mt == nil {
		return nil, errs.NewMappingError(def.Name, "", "type has no table")
	}
	c := newCompiler(req.Schema, req.Fragments, req.Variables, m, cfg)
	root := c.tree.New(sqlast.KindNoop, nil)
	root.FieldName = NodeField
	root.Args = schema.Args{}
	if err := c.table(ctx, nil, def.Name, root, def, mt, &schema.Field{Where: where}, req.Selections, 0); err != nil {
		return nil, err
	}
	prune(root, c.ns)
	return c.tree, nil
}

func (c *compiler) field(ctx context.Context, parent *frame, def *ast.Definition, f *ast.Field, depth int, deferred string) (*sqlast.Node, error) {
	var owner *sqlast.Node
	if parent != nil {
		owner = parent.node
	}
	n := c.tree.New(sqlast.KindNoop, owner)
	n.FieldName = f.Name
	n.DeferredFrom = deferred
	if strings.HasPrefix(f.Name, "__") {
		return n, nil
	}
	fd := def.Fields.ForName(f.Name)
	if fd == nil {
		return nil, errs.Mappingf(def.Name, f.Name, "The field %q is not in the %s type.", f.Name, def.Name)
	}
	mf := c.mapping.Field(def.Name, f.Name)
	if parent != nil && parent.include != nil {
		if inc, ok := parent.include[f.Name]; ok && inc != nil {
			mf = inc
			n.FromOtherTable = parent.node.Junction.As
		}
	}
	if mf.IgnoreAll {
		return n, nil
	}
	args, err := c.arguments(f, fd)
	if err != nil {
		return nil, err
	}
	n.Args = args

	grabMany := fd.Type.Elem != nil
	required := fd.Type.NonNull && !grabMany
	target := c.schema.Types[fd.Type.Name()]
	selections := f.SelectionSet
	if target != nil && isConnection(target) {
		if target, selections, err = c.stripConnection(target, selections); err != nil {
			return nil, err
		}
		grabMany, required = true, false
	} else if mf.Paginate {
		return nil, errs.Mappingf(def.Name, f.Name, "To paginate the %s type, it must be a GraphQLObjectType that fulfills the relay spec. The type must have a \"pageInfo\" and \"edges\" field.", fd.Type.Name())
	}

	if target != nil && !mf.IgnoreTable {
		if mt := c.mapping.Type(target.Name); mt != nil && abstractOrObject(target) {
			if depth > 0 && mf.Join == nil && mf.Batch == nil && mf.Junction == nil {
				return nil, errs.Mappingf(def.Name, f.Name, "If an Object type maps to a SQL table and has a child which is another Object type that also maps to a SQL table, you must define \"join\", \"batch\", or \"junction\" on that field to tell nestql how to fetch it. Check the %q field on the %q type.", f.Name, def.Name)
			}
			n.GrabMany, n.Required = grabMany, required
			n.Paginate = mf.Paginate
			if err := c.table(ctx, parent, def.Name, n, target, mt, mf, selections, depth); err != nil {
				return nil, err
			}
			return n, nil
		}
	}

	// Leaves of a typed bucket may map the same name to other SQL than
	// their sibling types, so their aliases carry the type too.
	alias := func(name string) string {
		if deferred != "" {
			name += "@" + deferred
		}
		return c.ns.Column(name)
	}
	switch {
	case mf.Expr != nil:
		n.Kind = sqlast.KindExpression
		n.Expr = mf.Expr
		n.As = alias(f.Name)
	case mf.ForeignTable != nil && mf.Column != "":
		n.Kind = sqlast.KindForeignColumn
		n.ForeignTable = mf.ForeignTable
		n.Column = mf.Column
		n.ForeignAs = c.ns.Table(f.Name)
		n.As = alias(mf.Column)
	case mf.Column != "" || !mf.Resolver:
		n.Kind = sqlast.KindColumn
		n.Column = mf.Column
		if n.Column == "" {
			n.Column = f.Name
		}
		n.As = alias(n.Column)
	case len(mf.Deps) > 0:
		n.Kind = sqlast.KindColumnDeps
		for _, dep := range mf.Deps {
			n.Deps = append(n.Deps, sqlast.Dep{Name: dep})
		}
	}
	return n, nil
}

func abstractOrObject(def *ast.Definition) bool {
	switch def.Kind {
	case ast.Object, ast.Union, ast.Interface:
		return true
	}
	return false
}

// table fills n as a table or union node and compiles its selections.
// owner names the type declaring the field of n.
func (c *compiler) table(ctx context.Context, parent *frame, owner string, n *sqlast.Node, def *ast.Definition, mt *schema.Type, mf *schema.Field, selections ast.SelectionSet, depth int) error {
	n.Kind = sqlast.KindTable
	if def.Kind != ast.Object {
		n.Kind = sqlast.KindUnion
	}
	fail := func(format string, args ...any) error {
		return errs.Mappingf(owner, n.FieldName, format, args...)
	}
	n.Table = schema.DefaultTable(def.Name)
	if mt.Table.IsSet() {
		table, err := mt.Table.Resolve(ctx, n.Args)
		if err != nil {
			return fmt.Errorf("table of %s: %w", def.Name, err)
		}
		n.Table = table
	}
	n.As = c.ns.Table(n.FieldName)
	n.Where = mf.Where

	var err error
	if n.OrderBy, err = resolveOrderBy(ctx, n, mf.OrderBy, "orderBy"); err != nil {
		return err
	}
	if n.Paginate {
		if n.SortKey, err = resolveSortKey(ctx, n, mf.SortKey, "sortKey", fail); err != nil {
			return err
		}
	}
	if !n.Paginate && mf.Limit.IsSet() {
		if n.Limit, err = mf.Limit.Resolve(ctx, n.Args); err != nil {
			return fmt.Errorf("limit of %s: %w", n.FieldName, err)
		}
	}

	if depth == 0 {
		switch {
		case mf.Join != nil:
			return fail("root level field can not have sqlJoin")
		case mf.Batch != nil, mf.Junction != nil:
			return fail("root level field can not have batch or junction")
		}
	}
	var thisKey *sqlast.Node
	switch {
	case mf.Join != nil:
		n.Join = mf.Join
	case mf.Batch != nil:
		if mf.Batch.ThisKey == "" || mf.Batch.ParentKey == "" {
			return fail("batch requires thisKey and parentKey")
		}
		thisKey = c.column(n, mf.Batch.ThisKey)
		n.Batch = &sqlast.BatchKey{ThisKey: thisKey, ParentKey: c.column(parent.node, mf.Batch.ParentKey)}
	case mf.Junction != nil:
		if thisKey, err = c.junction(ctx, parent, n, mf.Junction, fail); err != nil {
			return err
		}
	}
	if err := c.checkOrdering(n, fail); err != nil {
		return err
	}

	scope := &frame{node: n}
	if mf.Junction != nil && mf.Junction.Include.IsSet() {
		if scope.include, err = mf.Junction.Include.Resolve(ctx, n.Args); err != nil {
			return fmt.Errorf("junction include of %s: %w", n.FieldName, err)
		}
	}

	n.Children = append(n.Children, c.identity(n, mt))
	for _, col := range mt.AlwaysFetch {
		n.Children = append(n.Children, c.column(n, col))
	}
	if n.Kind == sqlast.KindUnion && mt.TypeColumn != "" {
		n.Discriminator = mt.TypeColumn
		if !slices.Contains(mt.AlwaysFetch, mt.TypeColumn) {
			n.Children = append(n.Children, c.column(n, mt.TypeColumn))
		}
	}
	if mt.TypeHint != "" {
		c.log.Warn("nestql: typeHint is deprecated, select the column through alwaysFetch", "type", def.Name, "column", mt.TypeHint)
		n.Children = append(n.Children, c.column(n, mt.TypeHint))
	}

	if n.Kind == sqlast.KindTable {
		fields, _, err := c.flatten(selections, def)
		if err != nil {
			return err
		}
		for _, f := range fields {
			child, err := c.field(ctx, scope, def, f, depth+1, "")
			if err != nil {
				return err
			}
			n.Children = append(n.Children, child)
		}
	} else {
		common, typed, err := c.flatten(selections, def)
		if err != nil {
			return err
		}
		for _, f := range common {
			child, err := c.field(ctx, scope, def, f, depth+1, "")
			if err != nil {
				return err
			}
			n.Children = append(n.Children, child)
		}
		for _, tf := range typed {
			bucket := n.TypedBucket(tf.def.Name)
			for _, f := range tf.fields {
				child, err := c.field(ctx, scope, tf.def, f, depth+1, tf.def.Name)
				if err != nil {
					return err
				}
				bucket.Children = append(bucket.Children, child)
			}
		}
	}

	if n.Paginate {
		n.Children = append(n.Children, c.pageColumns(n)...)
	}
	if thisKey != nil {
		n.Children = append(n.Children, thisKey)
	}
	return nil
}

// junction resolves the many-to-many linkage of n. It returns the junction
// batch key column when the relation is batched.
func (c *compiler) junction(ctx context.Context, parent *frame, n *sqlast.Node, j *schema.Junction, fail func(string, ...any) error) (*sqlast.Node, error) {
	table, err := j.Table.Resolve(ctx, n.Args)
	if err != nil {
		return nil, fmt.Errorf("junction table of %s: %w", n.FieldName, err)
	}
	if table == "" {
		return nil, fail("junction requires a table")
	}
	nj := &sqlast.Junction{Table: table, As: c.ns.Table(table), Where: j.Where}
	if nj.OrderBy, err = resolveOrderBy(ctx, n, j.OrderBy, "junction orderBy"); err != nil {
		return nil, err
	}
	if n.Paginate {
		if nj.SortKey, err = resolveSortKey(ctx, n, j.SortKey, "junction sortKey", fail); err != nil {
			return nil, err
		}
	}
	n.Junction = nj
	switch {
	case j.Batch != nil:
		if j.Batch.ThisKey == "" || j.Batch.ParentKey == "" || j.Batch.Join == nil {
			return nil, fail("junction batch requires thisKey, parentKey and join")
		}
		thisKey := c.column(n, j.Batch.ThisKey)
		thisKey.FromOtherTable = nj.As
		nj.Batch = &sqlast.JunctionBatch{
			BatchKey: sqlast.BatchKey{ThisKey: thisKey, ParentKey: c.column(parent.node, j.Batch.ParentKey)},
			Join:     j.Batch.Join,
		}
		return thisKey, nil
	case j.Joined():
		nj.Joins = j.Joins
		return nil, nil
	default:
		return nil, fail("junction requires either a sqlJoins or sqlBatch")
	}
}

// checkOrdering enforces where the ordering of n may be declared. A paginated
// node is ordered by exactly one of a sort key or an orderBy.
func (c *compiler) checkOrdering(n *sqlast.Node, fail func(string, ...any) error) error {
	j := n.Junction
	if j != nil {
		if n.SortKey != nil && j.SortKey != nil {
			return fail("sortKey must be on junction or main table, not both")
		}
		if len(n.OrderBy) > 0 && len(j.OrderBy) > 0 {
			return fail("orderBy must be on junction or main table, not both")
		}
	}
	ordered := len(n.OrderBy) > 0 || (j != nil && len(j.OrderBy) > 0)
	if n.Paginate {
		switch {
		case dialect.Keyset(n) && ordered:
			return fail("sortKey and orderBy are mutually exclusive")
		case !dialect.Keyset(n) && !ordered:
			return fail(`"sortKey" or "orderBy" required if "paginate" is true`)
		}
	}
	if n.Limit > 0 && !ordered {
		return fail(`"orderBy" is required with "limit"`)
	}
	return nil
}

// identity returns the unique-key node of a table.
func (c *compiler) identity(n *sqlast.Node, mt *schema.Type) *sqlast.Node {
	keys := mt.UniqueKey
	if len(keys) == 0 {
		keys = []string{"id"}
	}
	if len(keys) == 1 {
		return c.column(n, keys[0])
	}
	name := compositeName(keys)
	id := c.tree.New(sqlast.KindComposite, n)
	id.FieldName = name
	id.Columns = keys
	id.As = c.ns.Column(name)
	return id
}

// compositeName names a composite key after the first three characters of
// each column.
func compositeName(keys []string) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k
		if len(k) > 3 {
			parts[i] = k[:3]
		}
	}
	return strings.Join(parts, "#")
}

// pageColumns returns the columns connection assembly reads: the sort key
// for keyset pages, the window total for offset pages.
func (c *compiler) pageColumns(n *sqlast.Node) []*sqlast.Node {
	sortKey, table := dialect.SortKeyOf(n)
	if sortKey == nil {
		total := c.column(n, postprocess.TotalField)
		if n.Junction != nil {
			total.FromOtherTable = n.Junction.As
		}
		return []*sqlast.Node{total}
	}
	cols := make([]*sqlast.Node, len(sortKey.Key))
	for i, k := range sortKey.Key {
		cols[i] = c.column(n, k)
		if table != n.As {
			cols[i].FromOtherTable = table
		}
	}
	return cols
}

func (c *compiler) column(parent *sqlast.Node, name string) *sqlast.Node {
	n := c.tree.New(sqlast.KindColumn, parent)
	n.FieldName, n.Column, n.As = name, name, c.ns.Column(name)
	return n
}

func (c *compiler) arguments(f *ast.Field, fd *ast.FieldDefinition) (schema.Args, error) {
	args := make(schema.Args, len(f.Arguments))
	for _, a := range f.Arguments {
		v, err := a.Value.Value(c.vars)
		if err != nil {
			return nil, &errs.ArgumentError{Field: f.Name, Message: fmt.Sprintf("argument %q", a.Name), Cause: err}
		}
		args[a.Name] = v
	}
	for _, ad := range fd.Arguments {
		if _, ok := args[ad.Name]; ok || ad.DefaultValue == nil {
			continue
		}
		v, err := ad.DefaultValue.Value(c.vars)
		if err != nil {
			return nil, &errs.ArgumentError{Field: f.Name, Message: fmt.Sprintf("default of %q", ad.Name), Cause: err}
		}
		args[ad.Name] = v
	}
	return args, nil
}

// resolveOrderBy resolves the ordering of n. Sort directions may come from
// query arguments, so an invalid one is an argument error.
func resolveOrderBy(ctx context.Context, n *sqlast.Node, t schema.Thunk[schema.OrderBy], what string) (schema.OrderBy, error) {
	if !t.IsSet() {
		return nil, nil
	}
	ob, err := t.Resolve(ctx, n.Args)
	if err != nil {
		return nil, fmt.Errorf("%s of %s: %w", what, n.FieldName, err)
	}
	if len(ob) == 0 {
		return nil, nil
	}
	norm, err := ob.Normalize()
	if err != nil {
		return nil, &errs.ArgumentError{Field: n.FieldName, Message: "invalid " + what, Cause: err}
	}
	return norm, nil
}

func resolveSortKey(ctx context.Context, n *sqlast.Node, t schema.Thunk[*schema.SortKey], what string, fail func(string, ...any) error) (*schema.SortKey, error) {
	if !t.IsSet() {
		return nil, nil
	}
	sk, err := t.Resolve(ctx, n.Args)
	if err != nil {
		return nil, fmt.Errorf("%s of %s: %w", what, n.FieldName, err)
	}
	if sk == nil {
		return nil, nil
	}
	if len(sk.Key) == 0 {
		return nil, fail("%s needs at least one column", what)
	}
	dir, err := schema.ParseDirection(sk.Order)
	if err != nil {
		return nil, &errs.ArgumentError{Field: n.FieldName, Message: "invalid " + what, Cause: err}
	}
	return &schema.SortKey{Order: dir, Key: sk.Key}, nil
}
