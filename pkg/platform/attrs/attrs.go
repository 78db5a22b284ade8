// Package attrs reads values back out of slog-style key/value attribute lists.
package attrs

import "fmt"

// ExtractString returns the value following key in a flat key/value list, or "".
// Non-string values are formatted with fmt.Sprint.
func ExtractString(attributes []any, key string) string {
	for i := 0; i+1 < len(attributes); i += 2 {
		k, ok := attributes[i].(string)
		if !ok || k != key {
			continue
		}
		switch v := attributes[i+1].(type) {
		case string:
			return v
		case fmt.Stringer:
			return v.String()
		case nil:
			return ""
		default:
			return fmt.Sprint(v)
		}
	}
	return ""
}

// ExtractBool reports whether key is present with a true boolean value.
func ExtractBool(attributes []any, key string) bool {
	for i := 0; i+1 < len(attributes); i += 2 {
		if k, ok := attributes[i].(string); ok && k == key {
			b, _ := attributes[i+1].(bool)
			return b
		}
	}
	return false
}
