package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/compresr/chat-adapter/internal/adapter"
	"github.com/compresr/chat-adapter/internal/history"
	"github.com/compresr/chat-adapter/internal/tui"
)

var (
	chatModel        string
	chatContextFiles []string
	chatFormat       string
)

func init() {
	chatCmd.Flags().StringVarP(&chatModel, "model", "m", "", "model to use (default: first configured)")
	chatCmd.Flags().StringArrayVar(&chatContextFiles, "context-file", nil, "attach a file as a context item to every message (repeatable)")
	chatCmd.Flags().StringVarP(&chatFormat, "format", "f", formatText, "reply format: text, markdown, html")
	rootCmd.AddCommand(chatCmd)
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive conversation in the terminal",
	Long: `Start an interactive conversation. History is kept in memory for the session.

Commands inside the session:
  /model <name>   switch model
  /models         list configured models
  /reset          forget the conversation
  /exit           quit`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := validFormat(chatFormat); err != nil {
			return err
		}
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := newApp(cfg, setupLogging(cfg, true))
		if err != nil {
			return err
		}
		defer a.tracker.Close()

		interactive := tui.IsInteractive()
		a.ensureAPIKey(interactive, tui.PromptPassword)

		items, err := loadContextFiles(chatContextFiles)
		if err != nil {
			return err
		}

		if interactive {
			tui.PrintHeader("chat-adapter")
			tui.PrintInfo("endpoint " + a.store.Adapter().EndpointURL())
			tui.PrintInfo("type /exit to quit, /reset to start over")
		}

		s := &chatSession{app: a, model: chatModel, items: items, format: chatFormat}
		return s.run(cmd.Context(), os.Stdin, cmd.OutOrStdout())
	},
}

// chatSession is one REPL conversation.
type chatSession struct {
	app     *app
	model   string
	items   []adapter.ContextItem
	format  string
	history []history.Turn
}

func (s *chatSession) run(ctx context.Context, in io.Reader, out io.Writer) error {
	lr := tui.NewLineReader(in)
	for {
		line, err := lr.Prompt(out, tui.Accent("you> "))
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(out)
			return nil
		}
		if err != nil {
			return err
		}
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if quit := s.command(out, line); quit {
				return nil
			}
			continue
		}

		settings := s.app.store.Adapter()
		res, err := s.app.adapter.Send(ctx, settings, adapter.Request{
			Message:      line,
			History:      s.history,
			Model:        s.model,
			ContextItems: s.items,
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			tui.PrintError("no reply: " + err.Error())
			continue
		}
		s.history = res.History
		if err := renderReply(out, s.format, settings, res); err != nil {
			return err
		}
		fmt.Fprintln(out)
	}
}

// command handles a slash command and reports whether to quit.
func (s *chatSession) command(out io.Writer, line string) bool {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch name {
	case "/exit", "/quit":
		return true
	case "/reset":
		s.history = nil
		fmt.Fprintln(out, "conversation cleared")
	case "/models":
		settings := s.app.store.Adapter()
		current := s.model
		if current == "" {
			current = settings.DefaultModel()
		}
		for _, m := range settings.ModelList() {
			marker := "  "
			if m == current {
				marker = "* "
			}
			fmt.Fprintln(out, marker+m)
		}
	case "/model":
		if arg == "" {
			fmt.Fprintln(out, "usage: /model <name>")
			return false
		}
		s.model = arg
		fmt.Fprintln(out, "model set to "+arg)
	default:
		fmt.Fprintf(out, "unknown command %s\n", name)
	}
	return false
}

// loadContextFiles reads each path into a page context item named after the file.
func loadContextFiles(paths []string) ([]adapter.ContextItem, error) {
	items := make([]adapter.ContextItem, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("context file: %w", err)
		}
		items = append(items, adapter.ContextItem{
			Type:    "page",
			ID:      p,
			Name:    filepath.Base(p),
			Content: string(data),
		})
	}
	return items, nil
}
