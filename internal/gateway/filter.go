package gateway

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Params holds named values for Filter placeholders.
type Params map[string]any

// Filter builds a query filter expression by substituting {:name}
// placeholders with encoded parameter values. User-supplied strings are
// always quoted and escaped here; raw interpolation into a filter string
// would let search text break out of the expression.
func Filter(expr string, params Params) string {
	for name, value := range params {
		expr = strings.ReplaceAll(expr, "{:"+name+"}", encodeFilterValue(value))
	}
	return expr
}

func encodeFilterValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case time.Time:
		return quoteFilterValue(v.UTC().Format(time.RFC3339))
	case string:
		return quoteFilterValue(v)
	default:
		return quoteFilterValue(fmt.Sprint(v))
	}
}

func quoteFilterValue(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r >= 0x20 {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}
