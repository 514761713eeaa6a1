package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/compresr/chat-adapter/internal/adapter"
	"github.com/compresr/chat-adapter/internal/config"
	"github.com/compresr/chat-adapter/internal/reasoning"
	"github.com/compresr/chat-adapter/internal/tui"
)

// Output formats for replies.
const (
	formatText     = "text"
	formatMarkdown = "markdown"
	formatHTML     = "html"
	formatJSON     = "json"
)

func validFormat(f string) error {
	switch f {
	case formatText, formatMarkdown, formatHTML, formatJSON:
		return nil
	}
	return fmt.Errorf("unknown format %q (want text, markdown, html or json)", f)
}

// renderReply writes res to w in the requested format.
//
// text prints reasoning dimmed according to the display mode, then the answer.
// markdown converts the display markup; html prints it as is; json prints the
// whole envelope.
func renderReply(w io.Writer, format string, settings config.AdapterConfig, res *adapter.Result) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case formatHTML:
		_, err := fmt.Fprintln(w, res.Content)
		return err
	case formatMarkdown:
		md, err := htmltomarkdown.ConvertString(res.Content)
		if err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		_, err = fmt.Fprintln(w, strings.TrimSpace(md))
		return err
	}

	split := reasoning.Split(res.RawContent, settings.ReasoningTag, settings.DisplayMode())
	if split.Reasoning != "" {
		switch settings.DisplayMode() {
		case reasoning.DisplayShow:
			fmt.Fprintln(w, tui.Faint(split.Reasoning))
			fmt.Fprintln(w)
		case reasoning.DisplayTruncate:
			fmt.Fprintln(w, tui.Faint(reasoning.Preview(split.Reasoning)))
			fmt.Fprintln(w)
		}
	}
	_, err := fmt.Fprintln(w, split.Answer)
	return err
}
