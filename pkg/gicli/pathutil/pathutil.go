// Package pathutil implements dotted-path navigation with optional
// bracket indices over the dynamic JSON tree Go's encoding/json
// produces (nil | bool | float64 | string | []any | map[string]any).
// Spec §9 asks for a "tagged value" representation for response
// payloads; encoding/json's decode target already is that closed,
// total domain, so no separate variant type is introduced — this
// package is the total function operating over it. It has three
// consumers: the Substitutor's "{{jobId.field.sub[i]}}" placeholders,
// the Authenticator's token/expiry extraction, and the database sink's
// data_path/columns projection.
package pathutil

import (
	"fmt"
	"strconv"
	"strings"
)

// segment is one parsed path component: a map key, optionally followed
// by one or more array indices, e.g. "items[0][1]" -> {key:"items", idx:[0,1]}.
type segment struct {
	key     string
	indices []int
}

// Parse splits a dotted path like "data.items[0].name" into segments.
func Parse(path string) []segment {
	parts := strings.Split(path, ".")
	segs := make([]segment, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		key := p
		var indices []int
		for {
			open := strings.IndexByte(key, '[')
			if open < 0 {
				break
			}
			close := strings.IndexByte(key[open:], ']')
			if close < 0 {
				break
			}
			close += open
			idxStr := key[open+1 : close]
			if n, err := strconv.Atoi(idxStr); err == nil {
				indices = append(indices, n)
			}
			key = key[:open] + key[close+1:]
		}
		segs = append(segs, segment{key: key, indices: indices})
	}
	return segs
}

// Get navigates data along path, returning the value found and true, or
// (nil, false) if any segment cannot be resolved.
func Get(data any, path string) (any, bool) {
	cur := data
	for _, seg := range Parse(path) {
		if seg.key != "" {
			m, ok := cur.(map[string]any)
			if !ok {
				return nil, false
			}
			v, ok := m[seg.key]
			if !ok {
				return nil, false
			}
			cur = v
		}
		for _, idx := range seg.indices {
			arr, ok := cur.([]any)
			if !ok || idx < 0 || idx >= len(arr) {
				return nil, false
			}
			cur = arr[idx]
		}
	}
	return cur, true
}

// String coerces v to a string, or reports false if it isn't a string.
func String(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// Number attempts to coerce v (a JSON number or a numeric string) to a
// float64, as spec §4.5 requires when extracting a token expiration
// that may arrive as either shape.
func Number(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// GetPathMissingError formats a consistent "path not found" description
// used by callers that need to report which template path failed.
func GetPathMissingError(root, path string) string {
	return fmt.Sprintf("path %q not resolvable against %q", path, root)
}
