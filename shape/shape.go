// Package shape derives the nesting definition that turns flat result rows
// back into the object tree a query asked for.
package shape

import (
	"github.com/syssam/nestql/sqlast"
	"github.com/syssam/nestql/sqlgen"
)

// Definition describes one object level. The first leaf field is the
// identity used to deduplicate rows.
type Definition struct {
	// Many marks a list of objects rather than a single object.
	Many   bool
	Fields []Field
}

// Field maps an output key either to a result column or to a nested level.
type Field struct {
	Name   string
	Column string
	Nested *Definition
}

// Leaf reports whether the field reads a column.
func (f Field) Leaf() bool {
	return f.Nested == nil
}

// Identity returns the identity column, or "" when the definition has no
// leaf.
func (d *Definition) Identity() string {
	for _, f := range d.Fields {
		if f.Leaf() {
			return f.Column
		}
	}
	return ""
}

// AsMany returns a copy of d describing a list.
func (d *Definition) AsMany() *Definition {
	c := *d
	c.Many = true
	return &c
}

// Compile derives the definition of the query rooted at root.
func Compile(root *sqlast.Node) *Definition {
	return compile(root, "")
}

func compile(n *sqlast.Node, prefix string) *Definition {
	def := &Definition{Many: n.GrabMany}
	for _, child := range n.AllChildren() {
		switch child.Kind {
		case sqlast.KindColumn, sqlast.KindForeignColumn, sqlast.KindComposite, sqlast.KindExpression:
			def.Fields = append(def.Fields, Field{Name: child.OutputKey(), Column: prefix + child.As})
		case sqlast.KindColumnDeps:
			for _, dep := range child.Deps {
				def.Fields = append(def.Fields, Field{Name: dep.Name, Column: prefix + dep.As})
			}
		case sqlast.KindTable, sqlast.KindUnion:
			if keys := child.BatchKeys(); keys != nil {
				def.Fields = append(def.Fields, Field{Name: keys.ParentKey.FieldName, Column: prefix + keys.ParentKey.As})
				continue
			}
			def.Fields = append(def.Fields, Field{
				Name:   child.OutputKey(),
				Nested: compile(child, prefix+child.As+sqlgen.Separator),
			})
		}
	}
	return def
}
