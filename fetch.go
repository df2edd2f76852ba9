package nestql

import (
	"context"
	"reflect"

	"github.com/syssam/nestql/hydrate"
	"github.com/syssam/nestql/internal/errs"
	"github.com/syssam/nestql/shape"
)

// FetchFunc runs one generated query and returns its rows keyed by column
// alias. nestql never executes SQL itself.
type FetchFunc func(ctx context.Context, query string) ([]hydrate.Row, error)

// Hydrator nests the flat rows of one query following def.
type Hydrator func(rows []hydrate.Row, def *shape.Definition) (any, error)

// FromResult adapts a fetch function returning loosely typed results, such
// as the result object of a driver, into a FetchFunc. See Rows for the
// accepted shapes.
func FromResult(fn func(ctx context.Context, query string) (any, error)) FetchFunc {
	return func(ctx context.Context, query string) ([]hydrate.Row, error) {
		res, err := fn(ctx, query)
		if err != nil {
			return nil, err
		}
		return Rows(res)
	}
}

// Rows extracts the row list of a fetch result. It accepts []hydrate.Row,
// []any of maps, or a map or struct holding one of those under "rows" or
// Rows. Any other value is a *ContractError.
func Rows(res any) ([]hydrate.Row, error) {
	switch v := res.(type) {
	case nil:
		return nil, &errs.ContractError{Got: res}
	case []hydrate.Row:
		return v, nil
	case []any:
		rows := make([]hydrate.Row, len(v))
		for i, r := range v {
			row, ok := r.(map[string]any)
			if !ok {
				return nil, &errs.ContractError{Got: res}
			}
			rows[i] = row
		}
		return rows, nil
	case map[string]any:
		inner, ok := v["rows"]
		if !ok {
			return nil, &errs.ContractError{Got: res}
		}
		return nested(res, inner)
	}
	rv := reflect.Indirect(reflect.ValueOf(res))
	if rv.Kind() == reflect.Struct {
		if f := rv.FieldByName("Rows"); f.IsValid() && f.CanInterface() {
			return nested(res, f.Interface())
		}
	}
	return nil, &errs.ContractError{Got: res}
}

// nested accepts only a row list one level down.
func nested(res, inner any) ([]hydrate.Row, error) {
	switch inner.(type) {
	case []hydrate.Row, []any:
		return Rows(inner)
	default:
		return nil, &errs.ContractError{Got: res}
	}
}
