// Package sqlast defines the SQL-AST produced by the compiler: a tree of
// tagged nodes owned by a Tree arena, plus the alias namespace of one
// compilation.
package sqlast

import (
	"github.com/syssam/nestql/schema"
)

// Kind discriminates the node variants.
type Kind uint8

// Node kinds.
const (
	KindNoop Kind = iota
	KindTable
	KindUnion
	KindColumn
	KindForeignColumn
	KindComposite
	KindExpression
	KindColumnDeps
)

var kindNames = [...]string{
	KindNoop:          "noop",
	KindTable:         "table",
	KindUnion:         "union",
	KindColumn:        "column",
	KindForeignColumn: "foreignColumn",
	KindComposite:     "composite",
	KindExpression:    "expression",
	KindColumnDeps:    "columnDeps",
}

// String returns the kind name.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// NodeID indexes a node in its Tree. NoParent marks the root.
type NodeID int

// NoParent is the parent of the root node.
const NoParent NodeID = -1

// Node is one SQL-AST node. Which fields are meaningful depends on Kind.
type Node struct {
	ID     NodeID
	Parent NodeID
	Kind   Kind

	// FieldName is the output key; As is the generated SQL alias.
	FieldName string
	As        string
	Args      schema.Args

	// Table and Union.
	Table    string
	GrabMany bool
	Required bool
	Paginate bool
	Limit    int
	Where    schema.TableExpr
	OrderBy  schema.OrderBy
	SortKey  *schema.SortKey
	Join     schema.JoinExpr
	Batch    *BatchKey
	Junction *Junction
	Children []*Node
	Typed    []*TypedChildren
	// Discriminator is the output key of the column naming the concrete
	// type of each row of a union.
	Discriminator string

	// Column, ForeignColumn and Composite.
	Column  string
	Columns []string

	// ForeignColumn.
	ForeignTable schema.TableExpr
	ForeignAs    string

	// Expression.
	Expr schema.TableExpr

	// ColumnDeps.
	Deps []Dep

	// FromOtherTable names the alias the value is read from when it is not
	// the parent table, e.g. a junction.
	FromOtherTable string
	// DeferredFrom is the concrete type of a leaf selected under a union
	// bucket; its output key is suffixed with "@" and the type.
	DeferredFrom string
}

// BatchKey links a batch-loaded table to its parent. ThisKey is a column of
// the child (or the junction) and ParentKey a column of the parent.
type BatchKey struct {
	ThisKey   *Node
	ParentKey *Node
}

// Junction is the resolved many-to-many linkage of a table node.
type Junction struct {
	Table   string
	As      string
	OrderBy schema.OrderBy
	SortKey *schema.SortKey
	Where   schema.TableExpr
	Joins   [2]schema.JoinExpr
	Batch   *JunctionBatch
}

// JunctionBatch is the batched form of a junction.
type JunctionBatch struct {
	BatchKey
	Join schema.JoinExpr
}

// TypedChildren holds the selections of one concrete type under a union.
type TypedChildren struct {
	TypeName string
	Children []*Node
}

// Dep is one dependency column of a ColumnDeps node.
type Dep struct {
	Name string
	As   string
}

// IsTable reports whether the node is a table or a union.
func (n *Node) IsTable() bool {
	return n.Kind == KindTable || n.Kind == KindUnion
}

// IsBatched reports whether the node is loaded by a separate batch query,
// directly or through a junction.
func (n *Node) IsBatched() bool {
	return n.Batch != nil || (n.Junction != nil && n.Junction.Batch != nil)
}

// BatchKeys returns the key pair driving the batch, or nil.
func (n *Node) BatchKeys() *BatchKey {
	switch {
	case n.Batch != nil:
		return n.Batch
	case n.Junction != nil && n.Junction.Batch != nil:
		return &n.Junction.Batch.BatchKey
	}
	return nil
}

// Paged reports whether the node renders through a pagination builder,
// either because it paginates or because it is limited.
func (n *Node) Paged() bool {
	return n.Paginate || n.Limit > 0
}

// OutputKey is the key the node value takes in a hydrated object.
func (n *Node) OutputKey() string {
	if n.DeferredFrom != "" {
		return n.FieldName + "@" + n.DeferredFrom
	}
	return n.FieldName
}

// AllChildren returns the common children followed by every typed bucket.
func (n *Node) AllChildren() []*Node {
	if len(n.Typed) == 0 {
		return n.Children
	}
	all := make([]*Node, 0, len(n.Children))
	all = append(all, n.Children...)
	for _, tc := range n.Typed {
		all = append(all, tc.Children...)
	}
	return all
}

// TypedBucket returns the children of a concrete type, creating the bucket
// when missing.
func (n *Node) TypedBucket(typeName string) *TypedChildren {
	for _, tc := range n.Typed {
		if tc.TypeName == typeName {
			return tc
		}
	}
	tc := &TypedChildren{TypeName: typeName}
	n.Typed = append(n.Typed, tc)
	return tc
}
