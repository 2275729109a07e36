package commands

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// field returns data[key] when data is a JSON object.
func field(data any, key string) (any, bool) {
	obj, ok := data.(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok := obj[key]
	return v, ok
}

// intField reads a counter such as "total", which Synapse sends as a number
// and occasionally as a string.
func intField(data any, key string) int64 {
	v, _ := field(data, key)
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	case string:
		i, _ := strconv.ParseInt(n, 10, 64)
		return i
	default:
		return 0
	}
}

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

// compact renders a response inline for "Synapse returned: ..." messages.
func compact(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

func isEmptyObject(v any) bool {
	obj, ok := v.(map[string]any)
	return ok && len(obj) == 0
}
