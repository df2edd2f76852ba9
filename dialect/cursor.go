package dialect

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/syssam/nestql/internal/errs"
)

// offsetPrefix is the Relay array-connection cursor prefix.
const offsetPrefix = "arrayconnection:"

// EncodeCursor encodes sort-key values as base64 JSON.
func EncodeCursor(values map[string]any) (string, error) {
	b, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("encode cursor: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// DecodeCursor decodes a keyset cursor. Numbers decode as json.Number so
// they render back exactly.
func DecodeCursor(cursor string) (map[string]any, error) {
	raw, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return nil, errs.NewCursorError(cursor, "Invalid cursor", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, errs.NewCursorError(cursor, "Invalid cursor", err)
	}
	return obj, nil
}

// ValidateCursor checks that a decoded cursor holds exactly the sort-key
// columns.
func ValidateCursor(cursor map[string]any, key []string) error {
	expected := make(map[string]struct{}, len(key))
	for _, k := range key {
		expected[k] = struct{}{}
	}
	for k := range cursor {
		if _, ok := expected[k]; !ok {
			return errs.NewCursorError("", fmt.Sprintf("Invalid cursor. The column %q is not in the sort key.", k), nil)
		}
	}
	for _, k := range key {
		if _, ok := cursor[k]; !ok {
			return errs.NewCursorError("", fmt.Sprintf("Invalid cursor. The column %q is not in the cursor.", k), nil)
		}
	}
	return nil
}

// OffsetToCursor encodes a row offset as a Relay array-connection cursor.
func OffsetToCursor(offset int) string {
	return base64.StdEncoding.EncodeToString([]byte(offsetPrefix + strconv.Itoa(offset)))
}

// CursorToOffset decodes a Relay array-connection cursor.
func CursorToOffset(cursor string) (int, error) {
	raw, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return 0, errs.NewCursorError(cursor, "Invalid offset cursor", err)
	}
	s, ok := strings.CutPrefix(string(raw), offsetPrefix)
	if !ok {
		return 0, errs.NewCursorError(cursor, "Invalid offset cursor", nil)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errs.NewCursorError(cursor, "Invalid offset cursor", err)
	}
	return n, nil
}
