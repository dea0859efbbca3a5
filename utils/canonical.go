package utils

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// CanonicalJSON renders a decoded JSON value deterministically: object keys
// are emitted in sorted order at every nesting level. Two structurally equal
// values always produce the same bytes, which makes the output safe to hash.
func CanonicalJSON(value any) string {
	var b strings.Builder
	writeCanonical(&b, value)
	return b.String()
}

func writeCanonical(b *strings.Builder, value any) {
	switch v := value.(type) {
	case nil:
		b.WriteString("null")
	case bool:
		b.WriteString(strconv.FormatBool(v))
	case string:
		enc, _ := json.Marshal(v)
		b.Write(enc)
	case float64:
		enc, _ := json.Marshal(v)
		b.Write(enc)
	case json.Number:
		b.WriteString(v.String())
	case []any:
		b.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				b.WriteByte(',')
			}
			writeCanonical(b, item)
		}
		b.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			enc, _ := json.Marshal(k)
			b.Write(enc)
			b.WriteByte(':')
			writeCanonical(b, v[k])
		}
		b.WriteByte('}')
	default:
		// Fallback for values that were not produced by json.Unmarshal.
		enc, _ := json.Marshal(v)
		b.Write(enc)
	}
}
