package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/compresr/chat-adapter/internal/adapter"
	"github.com/compresr/chat-adapter/internal/tui"
)

var (
	askModel        string
	askContextFiles []string
	askFormat       string
	askJSON         bool
)

func init() {
	askCmd.Flags().StringVarP(&askModel, "model", "m", "", "model to use (default: first configured)")
	askCmd.Flags().StringArrayVar(&askContextFiles, "context-file", nil, "attach a file as a context item (repeatable)")
	askCmd.Flags().StringVarP(&askFormat, "format", "f", formatText, "output format: text, markdown, html, json")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the whole result envelope as JSON")
	rootCmd.AddCommand(askCmd)
}

var askCmd = &cobra.Command{
	Use:   "ask <message>",
	Short: "Send one message and print the reply",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format := askFormat
		if askJSON {
			format = formatJSON
		}
		if err := validFormat(format); err != nil {
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
		a.ensureAPIKey(tui.IsInteractive(), tui.PromptPassword)

		items, err := loadContextFiles(askContextFiles)
		if err != nil {
			return err
		}

		settings := a.store.Adapter()
		res, err := a.adapter.Send(cmd.Context(), settings, adapter.Request{
			Message:      strings.Join(args, " "),
			Model:        askModel,
			ContextItems: items,
		})
		if err != nil {
			return fmt.Errorf("ask: %w", err)
		}
		return renderReply(cmd.OutOrStdout(), format, settings, res)
	},
}
