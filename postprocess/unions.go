package postprocess

import "github.com/syssam/nestql/sqlast"

// ResolveUnions folds every "field@Type" value selected under a union into
// "field" and removes the qualified key, at n and in its nested tables.
func ResolveUnions(n *sqlast.Node, data any) {
	objs := Objects(data)
	if len(objs) == 0 {
		return
	}
	for _, tc := range n.Typed {
		typed := OfType(n, objs, tc.TypeName)
		for _, child := range tc.Children {
			for _, obj := range typed {
				Fold(obj, child)
			}
			if n.Discriminator != "" {
				for _, obj := range objs {
					delete(obj, child.OutputKey())
				}
			}
			descend(child, typed)
		}
	}
	for _, child := range n.Children {
		descend(child, objs)
	}
}

// OfType returns the objects of union n whose discriminator names typeName.
// Without a discriminator every object may be of any type.
func OfType(n *sqlast.Node, objs []map[string]any, typeName string) []map[string]any {
	if n.Discriminator == "" {
		return objs
	}
	var out []map[string]any
	for _, obj := range objs {
		if name, _ := obj[n.Discriminator].(string); name == typeName {
			out = append(out, obj)
		}
	}
	return out
}

// Fold moves the qualified value of a typed child into its plain field when
// the plain field is missing, null or an empty list.
func Fold(obj map[string]any, child *sqlast.Node) {
	qualified := child.OutputKey()
	if qualified == child.FieldName {
		return
	}
	v, ok := obj[qualified]
	if !ok {
		return
	}
	delete(obj, qualified)
	if v == nil || !vacant(obj[child.FieldName]) {
		return
	}
	obj[child.FieldName] = v
}

func vacant(v any) bool {
	switch v := v.(type) {
	case nil:
		return true
	case []any:
		return len(v) == 0
	}
	return false
}

func descend(child *sqlast.Node, objs []map[string]any) {
	if !child.IsTable() || child.IsBatched() {
		return
	}
	var next []any
	for _, obj := range objs {
		switch v := obj[child.FieldName].(type) {
		case []any:
			next = append(next, v...)
		case nil:
		default:
			next = append(next, v)
		}
	}
	ResolveUnions(child, next)
}
