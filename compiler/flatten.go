package compiler

import (
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/syssam/nestql/internal/errs"
)

// typedFields are the fields selected on one concrete type of an abstract
// type.
type typedFields struct {
	def    *ast.Definition
	fields []*ast.Field
}

// pending is a selection waiting to be flattened. on is the concrete type a
// fragment routed it to, nil when it applies to the whole context.
type pending struct {
	sel ast.Selection
	on  *ast.Definition
}

// flatten expands the fragments of set into flat field lists. For an object
// type every applicable field lands in common. For a union or interface,
// fields on the abstract type land in common and fragments on member types
// route to one typedFields per member. Same-name fields are merged.
func (c *compiler) flatten(set ast.SelectionSet, def *ast.Definition) ([]*ast.Field, []typedFields, error) {
	abstract := def.Kind == ast.Union || def.Kind == ast.Interface
	var (
		common []*ast.Field
		typed  []typedFields
		index  = map[string]int{}
	)
	work := make([]pending, 0, len(set))
	for _, sel := range set {
		work = append(work, pending{sel: sel})
	}
	for len(work) > 0 {
		p := work[0]
		work = work[1:]

		var (
			cond string
			sels ast.SelectionSet
		)
		switch s := p.sel.(type) {
		case *ast.Field:
			if p.on == nil {
				common = append(common, s)
				continue
			}
			i, ok := index[p.on.Name]
			if !ok {
				i = len(typed)
				index[p.on.Name] = i
				typed = append(typed, typedFields{def: p.on})
			}
			typed[i].fields = append(typed[i].fields, s)
			continue
		case *ast.InlineFragment:
			cond, sels = s.TypeCondition, s.SelectionSet
		case *ast.FragmentSpread:
			frag := s.Definition
			if frag == nil {
				frag = c.fragments.ForName(s.Name)
			}
			if frag == nil {
				return nil, nil, errs.Mappingf(def.Name, "", "unknown fragment %q", s.Name)
			}
			cond, sels = frag.TypeCondition, frag.SelectionSet
		default:
			return nil, nil, fmt.Errorf("nestql: unknown selection kind %T", p.sel)
		}

		var expanded []pending
		switch {
		case p.on != nil:
			if c.applies(p.on, cond) {
				expanded = wrap(sels, p.on)
			}
		case !abstract:
			if c.applies(def, cond) {
				expanded = wrap(sels, nil)
			}
		case cond == "" || cond == def.Name:
			expanded = wrap(sels, nil)
		default:
			for _, member := range c.schema.GetPossibleTypes(def) {
				if c.applies(member, cond) {
					expanded = append(expanded, wrap(sels, member)...)
				}
			}
		}
		work = append(expanded, work...)
	}
	for i := range typed {
		typed[i].fields = merge(typed[i].fields)
	}
	return merge(common), typed, nil
}

func wrap(sels ast.SelectionSet, on *ast.Definition) []pending {
	out := make([]pending, len(sels))
	for i, sel := range sels {
		out[i] = pending{sel: sel, on: on}
	}
	return out
}

// applies reports whether a fragment on cond applies to the object type def:
// the type itself, one of its interfaces or a union containing it.
func (c *compiler) applies(def *ast.Definition, cond string) bool {
	if cond == "" || cond == def.Name {
		return true
	}
	for _, iface := range def.Interfaces {
		if iface == cond {
			return true
		}
	}
	if u := c.schema.Types[cond]; u != nil && u.Kind == ast.Union {
		for _, t := range u.Types {
			if t == def.Name {
				return true
			}
		}
	}
	return false
}

// merge coalesces fields of the same name, concatenating their selections.
func merge(fields []*ast.Field) []*ast.Field {
	out := make([]*ast.Field, 0, len(fields))
	byName := make(map[string]*ast.Field, len(fields))
	for _, f := range fields {
		if m, ok := byName[f.Name]; ok {
			m.SelectionSet = append(m.SelectionSet, f.SelectionSet...)
			continue
		}
		m := *f
		m.SelectionSet = append(ast.SelectionSet(nil), f.SelectionSet...)
		byName[f.Name] = &m
		out = append(out, &m)
	}
	return out
}

// isConnection reports whether def is a Relay connection type.
func isConnection(def *ast.Definition) bool {
	return def.Kind == ast.Object && def.Fields.ForName("edges") != nil && def.Fields.ForName("pageInfo") != nil
}

// stripConnection returns the node type of a connection and the selections
// made on edges.node.
func (c *compiler) stripConnection(conn *ast.Definition, set ast.SelectionSet) (*ast.Definition, ast.SelectionSet, error) {
	edge := c.schema.Types[conn.Fields.ForName("edges").Type.Name()]
	if edge == nil || edge.Fields.ForName("node") == nil {
		return nil, nil, errs.NewMappingError(conn.Name, "edges", "connection edges must have a \"node\" field")
	}
	node := c.schema.Types[edge.Fields.ForName("node").Type.Name()]
	if node == nil {
		return nil, nil, errs.NewMappingError(edge.Name, "node", "unknown node type")
	}
	fields, _, err := c.flatten(set, conn)
	if err != nil {
		return nil, nil, err
	}
	var out ast.SelectionSet
	for _, f := range fields {
		if f.Name != "edges" {
			continue
		}
		edgeFields, _, err := c.flatten(f.SelectionSet, edge)
		if err != nil {
			return nil, nil, err
		}
		for _, ef := range edgeFields {
			if ef.Name == "node" {
				out = append(out, ef.SelectionSet...)
			}
		}
	}
	return node, out, nil
}
