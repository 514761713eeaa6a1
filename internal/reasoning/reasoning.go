// Package reasoning separates a model's reasoning preamble from its answer.
//
// DESIGN: Formatting only. Split never alters the raw reply; it returns the two
// parts plus HTML display markup for the chosen mode:
//   - hide:     answer block only
//   - truncate: collapsed preview (first 100 chars) + toggle + hidden full block, then answer
//   - show:     full reasoning block, then answer
package reasoning

import (
	"fmt"
	"html"
	"strings"
)

// DisplayMode controls how reasoning appears in the display markup.
type DisplayMode string

const (
	DisplayHide     DisplayMode = "hide"
	DisplayTruncate DisplayMode = "truncate"
	DisplayShow     DisplayMode = "show"
)

// PreviewLength is the number of characters shown in truncate mode.
const PreviewLength = 100

// ParseDisplayMode validates a configured mode name.
func ParseDisplayMode(s string) (DisplayMode, error) {
	switch m := DisplayMode(strings.ToLower(strings.TrimSpace(s))); m {
	case DisplayHide, DisplayTruncate, DisplayShow:
		return m, nil
	}
	return "", fmt.Errorf("invalid reasoning display mode %q (must be hide, truncate or show)", s)
}

// Result is the outcome of Split.
type Result struct {
	Reasoning string
	Answer    string
	Markup    string
}

// Split separates reply at the first occurrence of delimiter.
//
// With no delimiter, or one that does not occur in reply, Reasoning is empty
// and Answer is reply unchanged. Otherwise Reasoning is the trimmed text before
// the first occurrence and Answer the trimmed remainder, later occurrences
// included verbatim. Unknown modes render like hide.
func Split(reply, delimiter string, mode DisplayMode) Result {
	if delimiter == "" {
		return Result{Answer: reply, Markup: answerBlock(reply)}
	}
	before, after, found := strings.Cut(reply, delimiter)
	if !found {
		return Result{Answer: reply, Markup: answerBlock(reply)}
	}

	res := Result{
		Reasoning: strings.TrimSpace(before),
		Answer:    strings.TrimSpace(after),
	}
	res.Markup = Render(res.Reasoning, res.Answer, mode)
	return res
}

// Render builds display markup for reasoning and answer.
func Render(reasoning, answer string, mode DisplayMode) string {
	if reasoning == "" {
		return answerBlock(answer)
	}
	switch mode {
	case DisplayTruncate:
		return truncatedBlock(reasoning) + answerBlock(answer)
	case DisplayShow:
		return fullBlock(reasoning) + answerBlock(answer)
	default:
		return answerBlock(answer)
	}
}

// Preview returns the first PreviewLength characters of s, with an ellipsis when cut.
func Preview(s string) string {
	r := []rune(s)
	if len(r) <= PreviewLength {
		return s
	}
	return string(r[:PreviewLength]) + "..."
}

func answerBlock(answer string) string {
	return `<div class="ai-response">` + html.EscapeString(answer) + `</div>`
}

func fullBlock(reasoning string) string {
	return `<div class="ai-reasoning">` +
		`<div class="ai-reasoning-label">Reasoning</div>` +
		`<div class="ai-reasoning-content">` + html.EscapeString(reasoning) + `</div>` +
		`</div>`
}

func truncatedBlock(reasoning string) string {
	return `<div class="ai-reasoning ai-reasoning-collapsed">` +
		`<div class="ai-reasoning-preview">` + html.EscapeString(Preview(reasoning)) + `</div>` +
		`<a class="ai-reasoning-toggle" data-action="toggle-reasoning">Show reasoning</a>` +
		`<div class="ai-reasoning-full" style="display:none">` + html.EscapeString(reasoning) + `</div>` +
		`</div>`
}
