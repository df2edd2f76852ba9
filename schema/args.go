package schema

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Int returns an integer argument. Absent and null arguments report ok=false;
// a zero value counts as absent, as it does for Relay page sizes.
func (a Args) Int(name string) (n int, ok bool, err error) {
	v, present := a[name]
	if !present || v == nil {
		return 0, false, nil
	}
	switch v := v.(type) {
	case int:
		n = v
	case int32:
		n = int(v)
	case int64:
		n = int(v)
	case float64:
		n = int(v)
	case json.Number:
		i, perr := v.Int64()
		if perr != nil {
			return 0, false, fmt.Errorf("argument %q: %w", name, perr)
		}
		n = int(i)
	case string:
		i, perr := strconv.Atoi(v)
		if perr != nil {
			return 0, false, fmt.Errorf("argument %q: %w", name, perr)
		}
		n = i
	default:
		return 0, false, fmt.Errorf("argument %q: unexpected type %T", name, v)
	}
	return n, n != 0, nil
}

// String returns a string argument, or "" when absent.
func (a Args) String(name string) string {
	s, _ := a[name].(string)
	return s
}
