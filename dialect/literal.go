package dialect

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Literaler is implemented by values that render their own SQL literal.
type Literaler interface {
	SQLLiteral() string
}

// literal renders v, delegating string escaping to quote.
func literal(v any, quote func(string) string) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case Literaler:
		return v.SQLLiteral()
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	case int:
		return strconv.Itoa(v)
	case int8:
		return strconv.FormatInt(int64(v), 10)
	case int16:
		return strconv.FormatInt(int64(v), 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint:
		return strconv.FormatUint(uint64(v), 10)
	case uint8:
		return strconv.FormatUint(uint64(v), 10)
	case uint16:
		return strconv.FormatUint(uint64(v), 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case []byte:
		return "X'" + hex.EncodeToString(v) + "'"
	case uuid.UUID:
		return quote(v.String())
	case time.Time:
		return quote(v.UTC().Format(time.RFC3339Nano))
	case string:
		return quote(v)
	case fmt.Stringer:
		return quote(v.String())
	default:
		return quote(fmt.Sprint(v))
	}
}

// quoteStandard doubles single quotes.
func quoteStandard(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// quoteBackslash doubles single quotes and backslashes, for engines that
// treat the backslash as an escape character.
func quoteBackslash(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
