package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	presetsCmd.AddCommand(presetsShowCmd)
	rootCmd.AddCommand(presetsCmd)
}

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List embedded configuration presets",
	RunE: func(cmd *cobra.Command, _ []string) error {
		names, err := listEmbeddedConfigs()
		if err != nil {
			return err
		}
		for _, n := range names {
			suffix := ""
			if n == defaultPreset {
				suffix = " (default)"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s%s\n", n, suffix)
		}
		return nil
	},
}

var presetsShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print a preset, e.g. to start a config.yaml from it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := getEmbeddedConfig(args[0])
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}
