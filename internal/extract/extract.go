// Package extract reads the reply text out of a provider response.
//
// DESIGN: A response path is a dotted list of segments applied one lookup at a
// time: object keys by exact name, array elements by numeric index. gjson path
// syntax (wildcards, modifiers, queries) is never interpreted.
package extract

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Error reports that the path did not lead to a non-empty value.
type Error struct {
	Path    string // full configured path
	Segment string // first segment that failed; empty when the final value was empty
	Reason  string
}

func (e *Error) Error() string {
	if e.Segment != "" {
		return fmt.Sprintf("response path %q: segment %q %s", e.Path, e.Segment, e.Reason)
	}
	return fmt.Sprintf("response path %q: %s", e.Path, e.Reason)
}

// Extract returns the text found at path inside body.
//
// Strings are returned as-is, numbers and booleans as their literal text,
// objects and arrays as raw JSON. Missing segments, null, and empty strings
// yield *Error.
func Extract(body []byte, path string) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", &Error{Path: path, Reason: "response body is not valid JSON"}
	}

	segments := Segments(path)
	if len(segments) == 0 {
		return "", &Error{Path: path, Reason: "is empty"}
	}

	current := gjson.ParseBytes(body)
	for _, seg := range segments {
		next, err := step(current, seg)
		if err != "" {
			return "", &Error{Path: path, Segment: seg, Reason: err}
		}
		current = next
	}

	text := valueText(current)
	if strings.TrimSpace(text) == "" {
		return "", &Error{Path: path, Reason: "resolved to an empty value"}
	}
	return text, nil
}

// Segments splits a dotted path, dropping empty segments.
func Segments(path string) []string {
	parts := strings.Split(strings.TrimSpace(path), ".")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func step(current gjson.Result, seg string) (gjson.Result, string) {
	switch {
	case current.IsArray():
		idx, err := strconv.Atoi(seg)
		if err != nil || idx < 0 || !isDigits(seg) {
			return gjson.Result{}, "is not an array index"
		}
		items := current.Array()
		if idx >= len(items) {
			return gjson.Result{}, "is out of range"
		}
		return items[idx], ""
	case current.IsObject():
		var found gjson.Result
		current.ForEach(func(key, value gjson.Result) bool {
			if key.Str == seg {
				found = value
				return false
			}
			return true
		})
		if !found.Exists() {
			return gjson.Result{}, "not found"
		}
		return found, ""
	default:
		return gjson.Result{}, "applied to a non-container value"
	}
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}

func valueText(r gjson.Result) string {
	switch r.Type {
	case gjson.String:
		return r.Str
	case gjson.Null:
		return ""
	case gjson.JSON:
		return r.Raw
	default:
		return r.String()
	}
}
