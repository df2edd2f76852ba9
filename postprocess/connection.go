// Package postprocess reshapes hydrated data: it folds the type-qualified
// fields of union selections into their plain names and turns paginated
// lists into Relay connections.
package postprocess

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/syssam/nestql/dialect"
	"github.com/syssam/nestql/sqlast"
)

// TotalField is the field carrying the window row count of offset pages.
const TotalField = "$total"

// ToConnection converts the paginated lists of data, at n and below, into
// connections. Batch-loaded relations are left to the batch planner.
func ToConnection(n *sqlast.Node, data any) (any, error) {
	for _, child := range n.AllChildren() {
		if !child.IsTable() || child.IsBatched() {
			continue
		}
		for _, obj := range Objects(data) {
			v, ok := obj[child.FieldName]
			if !ok || v == nil {
				continue
			}
			c, err := ToConnection(child, v)
			if err != nil {
				return nil, err
			}
			obj[child.FieldName] = c
		}
	}
	if !n.Paginate {
		return data, nil
	}
	if data == nil {
		return EmptyConnection(n), nil
	}
	list, ok := data.([]any)
	if !ok {
		return data, nil
	}
	if dialect.Keyset(n) {
		return keysetConnection(n, list)
	}
	return offsetConnection(n, list)
}

// EmptyConnection is the connection of a paginated relation without rows.
func EmptyConnection(n *sqlast.Node) map[string]any {
	c := map[string]any{
		"edges":    []any{},
		"pageInfo": pageInfo(false, false, nil, nil),
	}
	if !dialect.Keyset(n) {
		c["total"] = 0
	}
	return c
}

func pageInfo(hasNext, hasPrevious bool, start, end any) map[string]any {
	return map[string]any{
		"hasNextPage":     hasNext,
		"hasPreviousPage": hasPrevious,
		"startCursor":     start,
		"endCursor":       end,
	}
}

func keysetConnection(n *sqlast.Node, list []any) (map[string]any, error) {
	pa, err := dialect.ReadPageArgs(n)
	if err != nil {
		return nil, err
	}
	var hasNext, hasPrevious bool
	switch {
	case pa.First > 0:
		if len(list) > pa.First {
			hasNext = true
			list = list[:pa.First]
		}
	case pa.Last > 0:
		if len(list) > pa.Last {
			hasPrevious = true
			list = list[:pa.Last]
		}
		reversed := make([]any, len(list))
		for i, v := range list {
			reversed[len(list)-1-i] = v
		}
		list = reversed
	}
	sortKey, _ := dialect.SortKeyOf(n)
	edges := make([]any, len(list))
	for i, v := range list {
		obj, _ := v.(map[string]any)
		values := make(map[string]any, len(sortKey.Key))
		for _, col := range sortKey.Key {
			values[col] = obj[col]
		}
		cursor, err := dialect.EncodeCursor(values)
		if err != nil {
			return nil, err
		}
		edges[i] = map[string]any{"cursor": cursor, "node": v}
	}
	start, end := bounds(edges)
	return map[string]any{
		"edges":    edges,
		"pageInfo": pageInfo(hasNext, hasPrevious, start, end),
	}, nil
}

// offsetConnection applies Relay array-slice semantics to one page fetched
// at the offset named by the after cursor.
func offsetConnection(n *sqlast.Node, list []any) (map[string]any, error) {
	pa, err := dialect.ReadPageArgs(n)
	if err != nil {
		return nil, err
	}
	sliceStart := 0
	afterOffset := -1
	if pa.After != "" {
		if afterOffset, err = dialect.CursorToOffset(pa.After); err != nil {
			return nil, err
		}
		sliceStart = afterOffset + 1
	}
	total := 0
	if len(list) > 0 {
		obj, _ := list[0].(map[string]any)
		if total, err = toInt(obj[TotalField]); err != nil {
			return nil, err
		}
	}
	beforeOffset := total
	if pa.Before != "" {
		if beforeOffset, err = dialect.CursorToOffset(pa.Before); err != nil {
			return nil, err
		}
	}
	sliceEnd := sliceStart + len(list)
	startOffset := max(sliceStart-1, afterOffset, -1) + 1
	endOffset := min(sliceEnd, beforeOffset, total)
	if pa.First > 0 {
		endOffset = min(endOffset, startOffset+pa.First)
	}
	lo := max(startOffset-sliceStart, 0)
	hi := len(list) - (sliceEnd - endOffset)
	if hi < lo {
		hi = lo
	}
	page := list[lo:hi]
	edges := make([]any, len(page))
	for i, v := range page {
		edges[i] = map[string]any{"cursor": dialect.OffsetToCursor(startOffset + i), "node": v}
	}
	upper := total
	if pa.Before != "" {
		upper = beforeOffset
	}
	start, end := bounds(edges)
	return map[string]any{
		"edges":    edges,
		"pageInfo": pageInfo(pa.First > 0 && endOffset < upper, false, start, end),
		"total":    total,
	}, nil
}

func bounds(edges []any) (start, end any) {
	if len(edges) == 0 {
		return nil, nil
	}
	return edges[0].(map[string]any)["cursor"], edges[len(edges)-1].(map[string]any)["cursor"]
}

// toInt reads the window count, which drivers report in varying types.
func toInt(v any) (int, error) {
	switch v := v.(type) {
	case nil:
		return 0, nil
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case json.Number:
		n, err := v.Int64()
		return int(n), err
	case []byte:
		return strconv.Atoi(string(v))
	case string:
		return strconv.Atoi(v)
	}
	return 0, fmt.Errorf("postprocess: unexpected %s of type %T", TotalField, v)
}

// Objects lists the non-nil objects of a hydrated value: a single object, a
// list of objects or a connection.
func Objects(data any) []map[string]any {
	switch d := data.(type) {
	case map[string]any:
		if edges, ok := d["edges"].([]any); ok {
			if _, paged := d["pageInfo"]; paged {
				out := make([]map[string]any, 0, len(edges))
				for _, e := range edges {
					if edge, ok := e.(map[string]any); ok {
						if node, ok := edge["node"].(map[string]any); ok {
							out = append(out, node)
						}
					}
				}
				return out
			}
		}
		return []map[string]any{d}
	case []any:
		out := make([]map[string]any, 0, len(d))
		for _, v := range d {
			if obj, ok := v.(map[string]any); ok {
				out = append(out, obj)
			}
		}
		return out
	case []map[string]any:
		return d
	}
	return nil
}
