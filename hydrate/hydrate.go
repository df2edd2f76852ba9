// Package hydrate nests flat result rows into objects following a
// shape.Definition.
package hydrate

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/syssam/nestql/shape"
)

// Row is one result row keyed by column alias.
type Row = map[string]any

// ErrNoIdentity is returned for a definition level without leaf fields.
var ErrNoIdentity = errors.New("hydrate: definition has no identity column")

// Nest groups rows by the identity column of every level of def. A list
// definition yields []any (empty, never nil); a single one yields the first
// object or nil. Rows whose identity is null are skipped at that level.
func Nest(rows []Row, def *shape.Definition) (any, error) {
	objects, err := nest(rows, def)
	if err != nil {
		return nil, err
	}
	if def.Many {
		out := make([]any, len(objects))
		for i, o := range objects {
			out[i] = o
		}
		return out, nil
	}
	if len(objects) == 0 {
		return nil, nil
	}
	return objects[0], nil
}

func nest(rows []Row, def *shape.Definition) ([]map[string]any, error) {
	id := def.Identity()
	if id == "" {
		return nil, ErrNoIdentity
	}
	var (
		order  []any
		groups = make(map[any][]Row)
	)
	for _, row := range rows {
		v := row[id]
		if v == nil {
			continue
		}
		k := Key(v)
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], row)
	}
	objects := make([]map[string]any, 0, len(order))
	for _, k := range order {
		group := groups[k]
		obj := make(map[string]any, len(def.Fields))
		for _, f := range def.Fields {
			if f.Leaf() {
				obj[f.Name] = group[0][f.Column]
				continue
			}
			v, err := Nest(group, f.Nested)
			if err != nil {
				return nil, fmt.Errorf("hydrate %q: %w", f.Name, err)
			}
			obj[f.Name] = v
		}
		objects = append(objects, obj)
	}
	return objects, nil
}

// Key turns an identity or batch key value into a comparable map key.
// Integers of every width and integral floats share one key so that values
// decoded by different drivers still match.
func Key(v any) any {
	switch v := v.(type) {
	case []byte:
		return string(v)
	case string, int64, bool:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case int16:
		return int64(v)
	case int8:
		return int64(v)
	case uint32:
		return int64(v)
	case uint16:
		return int64(v)
	case uint8:
		return int64(v)
	case float64:
		if v == float64(int64(v)) {
			return int64(v)
		}
		return v
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		return v.String()
	}
	if reflect.TypeOf(v).Comparable() {
		return v
	}
	return fmt.Sprintf("%T:%v", v, v)
}
