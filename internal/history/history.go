// Package history bounds and orders conversation turns.
//
// DESIGN: Pure functions over []Turn. Every function returns a fresh slice;
// the caller's slice is never modified in place.
//
// FLOW (as used by the adapter):
//  1. MergeGlobalContext() folds operator text into the system turn
//  2. Flatten() renders prior turns as plain text for templates
//  3. Truncate() bounds the list, keeping the system turn first
package history

import "strings"

// Role identifies who produced a turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Turn is one message in a conversation.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Clone returns a copy of turns that shares no backing array with the input.
func Clone(turns []Turn) []Turn {
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}

// Truncate bounds turns to maxLength entries.
//
// maxLength <= 0 means unbounded. When a system turn is present it is kept
// first, followed by the most recent maxLength-1 non-system turns in their
// original order. Without a system turn the most recent maxLength turns are kept.
func Truncate(turns []Turn, maxLength int) []Turn {
	if maxLength <= 0 || len(turns) <= maxLength {
		return Clone(turns)
	}

	sysIdx := systemIndex(turns)
	if sysIdx < 0 {
		return Clone(turns[len(turns)-maxLength:])
	}

	rest := make([]Turn, 0, len(turns)-1)
	for i, t := range turns {
		if i == sysIdx || t.Role == RoleSystem {
			continue
		}
		rest = append(rest, t)
	}

	keep := maxLength - 1
	if keep > len(rest) {
		keep = len(rest)
	}

	out := make([]Turn, 0, keep+1)
	out = append(out, turns[sysIdx])
	out = append(out, rest[len(rest)-keep:]...)
	return out
}

// MergeGlobalContext folds text into the system turn.
//
// A system turn is created at the front when none exists. An existing system
// turn gets text prepended unless its content already contains text verbatim.
func MergeGlobalContext(turns []Turn, text string) []Turn {
	text = strings.TrimSpace(text)
	out := Clone(turns)
	if text == "" {
		return out
	}

	idx := systemIndex(out)
	if idx < 0 {
		return append([]Turn{{Role: RoleSystem, Content: text}}, out...)
	}

	if strings.Contains(out[idx].Content, text) {
		return out
	}
	if out[idx].Content == "" {
		out[idx].Content = text
	} else {
		out[idx].Content = text + "\n\n" + out[idx].Content
	}
	return out
}

// SystemContent returns the content of the first system turn, or "".
func SystemContent(turns []Turn) string {
	if idx := systemIndex(turns); idx >= 0 {
		return turns[idx].Content
	}
	return ""
}

// Flatten renders non-system turns as "Label: content" blocks separated by blank lines.
func Flatten(turns []Turn) string {
	var b strings.Builder
	for _, t := range turns {
		if t.Role == RoleSystem {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(label(t.Role))
		b.WriteString(": ")
		b.WriteString(t.Content)
	}
	return b.String()
}

func label(r Role) string {
	switch r {
	case RoleUser:
		return "User"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

func systemIndex(turns []Turn) int {
	for i, t := range turns {
		if t.Role == RoleSystem {
			return i
		}
	}
	return -1
}
