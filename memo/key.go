package memo

import (
	"encoding/json"
	"fmt"
	"strings"
)

const delimiter = "\x1f"

// KeyOf derives a canonical cache key from a call's positional arguments.
// Structurally equal argument lists always produce the same key: each part is
// JSON-encoded (map keys are sorted by the encoder) and the parts are joined
// with a non-printing delimiter. Trailing nil parts are dropped, so
// KeyOf(x) and KeyOf(x, nil) key identically.
//
// Cache-control settings travel as CallOptions, never as arguments, so they
// can never affect key identity.
//
// Values that do not serialize (channels, funcs) fall back to their Go-syntax
// representation; callers are expected to pass plain data.
func KeyOf(parts ...any) string {
	for len(parts) > 0 && parts[len(parts)-1] == nil {
		parts = parts[:len(parts)-1]
	}
	var b strings.Builder
	for i, part := range parts {
		if i > 0 {
			b.WriteString(delimiter)
		}
		b.WriteString(encodePart(part))
	}
	return b.String()
}

func encodePart(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%#v", v)
	}
	return string(data)
}
