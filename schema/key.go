package schema

import (
	"context"
	"fmt"
	"strings"

	"github.com/syssam/nestql/internal/errs"
)

// KeyCondition returns a where clause selecting the row whose unique key
// equals value. A composite key takes a []any holding one value per column,
// in key order.
func KeyCondition(key []string, value any, quote func(string) string, literal func(any) string) (TableExpr, error) {
	if len(key) == 0 {
		return nil, errs.NewArgumentError("node", "type has no unique key")
	}
	values := []any{value}
	if len(key) > 1 {
		list, ok := value.([]any)
		if !ok || len(list) != len(key) {
			return nil, errs.NewArgumentError("node",
				fmt.Sprintf("composite key %v needs %d values, got %v", key, len(key), value))
		}
		values = list
	}
	return func(_ context.Context, table string, _ Args) (string, error) {
		terms := make([]string, len(key))
		for i, col := range key {
			terms[i] = fmt.Sprintf("%s.%s = %s", table, quote(col), literal(values[i]))
		}
		return strings.Join(terms, " AND "), nil
	}, nil
}
