package adapter

import (
	"strings"

	"github.com/compresr/chat-adapter/internal/history"
)

// Request is one inbound exchange from the UI layer.
type Request struct {
	Message      string         `json:"message"`
	History      []history.Turn `json:"history"`
	Model        string         `json:"model,omitempty"`
	ContextItems []ContextItem  `json:"contextItems,omitempty"`
}

// ContextItem is reference material attached to a message, such as a journal
// entry or page. It reaches the prompt through the Context and UserMessage
// variables and never becomes a conversation turn.
type ContextItem struct {
	Type        string `json:"type"`
	ID          string `json:"id"`
	Name        string `json:"name"`
	JournalName string `json:"journalName,omitempty"`
	Content     string `json:"content"`
}

// heading labels the item, e.g. "[journal] Trip Notes / Day 1".
func (c ContextItem) heading() string {
	var b strings.Builder
	if c.Type != "" {
		b.WriteString("[" + c.Type + "] ")
	}
	if c.JournalName != "" && c.JournalName != c.Name {
		b.WriteString(c.JournalName)
		if c.Name != "" {
			b.WriteString(" / ")
		}
	}
	b.WriteString(c.Name)
	if b.Len() == 0 {
		return c.ID
	}
	return strings.TrimSpace(b.String())
}

// Result is the envelope returned for a successful exchange.
type Result struct {
	Content    string         `json:"content"`    // display markup, may embed reasoning
	RawContent string         `json:"rawContent"` // reply exactly as extracted
	Reasoning  string         `json:"reasoning"`
	History    []history.Turn `json:"history"`
}

// formatContextItems renders items as labeled sections. Items with no
// content are skipped.
func formatContextItems(items []ContextItem) string {
	var b strings.Builder
	for _, item := range items {
		content := strings.TrimSpace(item.Content)
		if content == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("### ")
		b.WriteString(item.heading())
		b.WriteString("\n")
		b.WriteString(content)
	}
	return b.String()
}
