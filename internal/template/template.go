// Package template fills JSON payload templates with request variables.
//
// DESIGN: Substitution is textual. The template is not valid JSON until every
// placeholder is replaced, so nothing here parses it. Each value is rendered
// for the JSON context it lands in:
//   - string:          JSON string body (escaped, no surrounding quotes)
//   - bool / number:   literal text
//   - anything else:   JSON text, verbatim (e.g. an unquoted {{MessageHistory}} slot)
//
// Unknown {{...}} tokens are left in place; Unresolved() finds them afterwards.
package template

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
)

// Recognized variable names.
const (
	VarModel          = "Model"
	VarUserMessage    = "UserMessage"
	VarMessageHistory = "MessageHistory"
	VarSystemMessage  = "SystemMessage"
	VarContext        = "Context"
)

// Variables maps a placeholder name to its value.
type Variables map[string]any

var (
	placeholderRe = regexp.MustCompile(`\{\{([A-Za-z_][A-Za-z0-9_]*)\}\}`)
	leftoverRe    = regexp.MustCompile(`\{\{[^{}]*\}\}`)
)

// Fill replaces every {{Name}} whose Name is present in vars.
//
// Replacement happens in a single left-to-right pass, so text introduced by a
// substituted value is never itself treated as a placeholder. A value that
// cannot be rendered leaves its placeholder untouched.
func Fill(tmpl string, vars Variables) string {
	if len(vars) == 0 {
		return tmpl
	}
	return placeholderRe.ReplaceAllStringFunc(tmpl, func(match string) string {
		name := match[2 : len(match)-2]
		value, ok := vars[name]
		if !ok {
			return match
		}
		rendered, err := render(value)
		if err != nil {
			return match
		}
		return rendered
	})
}

// References reports whether tmpl contains the {{name}} placeholder.
func References(tmpl, name string) bool {
	for _, m := range placeholderRe.FindAllStringSubmatch(tmpl, -1) {
		if m[1] == name {
			return true
		}
	}
	return false
}

// Unresolved returns the distinct {{...}} tokens still present in filled, sorted.
func Unresolved(filled string) []string {
	matches := leftoverRe.FindAllString(filled, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// EscapeString returns s escaped as the body of a JSON string literal.
func EscapeString(s string) string {
	b, err := marshal(s)
	if err != nil {
		// strings always marshal
		return s
	}
	return string(b[1 : len(b)-1])
}

func render(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "null", nil
	case string:
		return EscapeString(v), nil
	case bool:
		return strconv.FormatBool(v), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case int32, int16, int8, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), nil
	case json.Number:
		return v.String(), nil
	case json.RawMessage:
		return string(v), nil
	default:
		b, err := marshal(v)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}

// marshal encodes v without HTML escaping and without the encoder's trailing newline.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
