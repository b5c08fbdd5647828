package forms

import (
	"encoding/json"
	"strconv"
	"strings"
)

// parseBody decodes a JSON object. Anything else yields an empty object so that
// malformed input falls through to required-field validation.
func parseBody(body []byte) map[string]any {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil || raw == nil {
		return map[string]any{}
	}
	return raw
}

// asTrimmedString returns v as a trimmed string. Numbers and booleans are
// formatted; objects, arrays and null become "".
func asTrimmedString(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return ""
	}
}

// isProbablyEmail is a minimal structural check, not RFC 5322 validation.
func isProbablyEmail(s string) bool {
	return strings.Contains(s, "@") && strings.Contains(s, ".")
}

// truncate caps s at n runes.
func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
