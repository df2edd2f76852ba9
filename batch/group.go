package batch

import "github.com/syssam/nestql/hydrate"

// KeyFunc extracts a key from a value.
type KeyFunc[K comparable, V any] func(V) K

// GroupByKey groups values by a key function. Values keep their order within
// a group.
//
// Example:
//
//	posts := []map[string]any{{"author_id": 1}, {"author_id": 2}, {"author_id": 1}}
//	grouped := GroupByKey(posts, func(p map[string]any) any { return p["author_id"] })
//	// grouped[1] holds the first and third post
func GroupByKey[K comparable, V any](values []V, keyFn KeyFunc[K, V]) map[K][]V {
	result := make(map[K][]V)
	for _, v := range values {
		key := keyFn(v)
		result[key] = append(result[key], v)
	}
	return result
}

// Scope lists the distinct non-null values of field across objects, in
// first-seen order. Byte slices become strings so they render as text
// literals.
func Scope(objects []map[string]any, field string) []any {
	var (
		scope []any
		seen  = make(map[any]struct{}, len(objects))
	)
	for _, obj := range objects {
		v := obj[field]
		if v == nil {
			continue
		}
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		k := hydrate.Key(v)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		scope = append(scope, v)
	}
	return scope
}
