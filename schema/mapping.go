package schema

import "context"

type (
	// TableExpr renders a SQL fragment against one quoted table alias.
	// It backs where clauses, computed columns and foreign tables.
	TableExpr func(ctx context.Context, table string, args Args) (string, error)

	// JoinExpr renders the join predicate between a parent and a child alias,
	// both quoted.
	JoinExpr func(ctx context.Context, parent, child string, args Args) (string, error)
)

// Type is the table metadata of a GraphQL object, union or interface type.
type Type struct {
	// Table is the SQL table, or any expression usable in a FROM clause.
	Table Thunk[string]
	// UniqueKey names the identity column(s). More than one column makes a
	// composite key.
	UniqueKey []string
	// AlwaysFetch lists columns selected whenever the type is queried.
	AlwaysFetch []string
	// TypeColumn names the column holding the concrete GraphQL type name of
	// each row of a union or interface table. When set, selections made on
	// a concrete type only apply to the rows of that type.
	TypeColumn string
	// TypeHint is a column selected on union types to help resolve the
	// concrete type.
	//
	// Deprecated: select the discriminator through AlwaysFetch.
	TypeHint string
}

// Field is the SQL metadata of a single GraphQL field. Leaf fields declare at
// most one of Column, Expr, ForeignTable (together with Column) or Deps.
// Table-typed fields declare their linkage with Join, Batch or Junction.
type Field struct {
	// Column is the source column. It defaults to the field name when the
	// field has no custom resolver.
	Column string
	// Expr computes the value from the parent table alias.
	Expr TableExpr
	// ForeignTable produces a single-row table correlated to the parent
	// alias; Column is then read from it.
	ForeignTable TableExpr
	// Deps lists columns the field resolver needs without selecting the
	// field itself.
	Deps []string
	// Resolver marks a field resolved by host code rather than a column.
	Resolver bool
	// IgnoreAll skips the field and its whole subtree.
	IgnoreAll bool
	// IgnoreTable treats a table-typed field as a plain value.
	IgnoreTable bool

	// Join links the child table to the parent in the same query.
	Join JoinExpr
	// Batch loads the child table in a separate query per tree level.
	Batch *Batch
	// Junction links through an intermediate many-to-many table.
	Junction *Junction

	Where    TableExpr
	OrderBy  Thunk[OrderBy]
	SortKey  Thunk[*SortKey]
	Limit    Thunk[int]
	Paginate bool
}

// Batch pairs the child column with the parent column it references.
type Batch struct {
	ThisKey   string `yaml:"thisKey"`
	ParentKey string `yaml:"parentKey"`
}

// JunctionBatch batch-loads a many-to-many relation. ThisKey is a junction
// column matched against ParentKey on the parent; Join links the junction to
// the child table.
type JunctionBatch struct {
	ThisKey   string
	ParentKey string
	Join      JoinExpr
}

// Junction describes the intermediate table of a many-to-many relation.
// Exactly one of Joins or Batch must be set.
type Junction struct {
	Table Thunk[string]
	// Include declares fields whose values live on the junction table.
	Include Thunk[map[string]*Field]
	OrderBy Thunk[OrderBy]
	SortKey Thunk[*SortKey]
	Where   TableExpr
	// Joins holds the parent-to-junction and junction-to-child predicates.
	Joins [2]JoinExpr
	Batch *JunctionBatch
}

// Joined reports whether the junction is linked with join predicates.
func (j *Junction) Joined() bool {
	return j.Joins[0] != nil && j.Joins[1] != nil
}

// Mapping holds the metadata of all table-backed types and their fields.
type Mapping struct {
	Types  map[string]*Type
	Fields map[string]map[string]*Field
}

// NewMapping returns an empty mapping.
func NewMapping() *Mapping {
	return &Mapping{
		Types:  make(map[string]*Type),
		Fields: make(map[string]map[string]*Field),
	}
}

// SetType registers the table metadata of a type.
func (m *Mapping) SetType(name string, t *Type) *Mapping {
	m.Types[name] = t
	return m
}

// SetField registers the metadata of a field.
func (m *Mapping) SetField(typeName, fieldName string, f *Field) *Mapping {
	fields, ok := m.Fields[typeName]
	if !ok {
		fields = make(map[string]*Field)
		m.Fields[typeName] = fields
	}
	fields[fieldName] = f
	return m
}

// Type returns the table metadata of a type, or nil when the type is not
// table-backed.
func (m *Mapping) Type(name string) *Type {
	if m == nil {
		return nil
	}
	return m.Types[name]
}

// Field returns the metadata of a field. Fields without metadata get an
// empty Field so that they resolve to a same-named column.
func (m *Mapping) Field(typeName, fieldName string) *Field {
	if m != nil {
		if f, ok := m.Fields[typeName][fieldName]; ok && f != nil {
			return f
		}
	}
	return &Field{}
}
