// Package main is the entry point for the chat adapter.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/compresr/chat-adapter/internal/adapter"
	"github.com/compresr/chat-adapter/internal/config"
	"github.com/compresr/chat-adapter/internal/monitoring"
)

var (
	configFlag string
	presetFlag string
	debugFlag  bool
)

var rootCmd = &cobra.Command{
	Use:   "chat-adapter",
	Short: "Templated chat adapter for any LLM chat-completion endpoint",
	Long: `chat-adapter turns a chat message plus conversation history into an HTTP call
against a configurable LLM endpoint, using a JSON payload template and a dotted
response path, and hands back the reply with optional reasoning split out.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&presetFlag, "preset", "", "embedded preset to use when no config file is given")
	rootCmd.PersistentFlags().BoolVarP(&debugFlag, "debug", "d", false, "enable debug logging")
}

func main() {
	loadEnvFiles()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadEnvFiles loads .env from standard locations
func loadEnvFiles() {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		_ = godotenv.Load()
		return
	}

	// Try loading from ~/.config/chat-adapter/.env first
	configEnv := filepath.Join(homeDir, ".config", "chat-adapter", ".env")
	if _, err := os.Stat(configEnv); err == nil {
		_ = godotenv.Load(configEnv)
	}

	// Also load local .env (can override)
	_ = godotenv.Load()
}

// configSource describes where the configuration came from. path is empty
// for embedded presets, which cannot be watched.
type configSource struct {
	path  string
	label string
}

// resolveConfig finds the configuration.
// Checks: --config flag -> filesystem locations -> embedded preset.
func resolveConfig(userConfig, preset string) ([]byte, configSource, error) {
	if userConfig != "" {
		data, err := os.ReadFile(userConfig)
		if err != nil {
			return nil, configSource{}, fmt.Errorf("config file not found: %s", userConfig)
		}
		return data, configSource{path: userConfig, label: userConfig}, nil
	}

	if preset == "" {
		for _, path := range configSearchPaths() {
			if data, err := os.ReadFile(path); err == nil {
				return data, configSource{path: path, label: path}, nil
			}
		}
		preset = defaultPreset
	}

	data, err := getEmbeddedConfig(preset)
	if err != nil {
		return nil, configSource{}, err
	}
	return data, configSource{label: "(embedded) " + preset + ".yaml"}, nil
}

func configSearchPaths() []string {
	var paths []string
	if homeDir, _ := os.UserHomeDir(); homeDir != "" {
		paths = append(paths, filepath.Join(homeDir, ".config", "chat-adapter", "config.yaml"))
	}
	return append(paths, "configs/config.yaml", "config.yaml")
}

// loadConfig resolves and validates the configuration.
func loadConfig() (*config.Config, configSource, error) {
	data, src, err := resolveConfig(configFlag, presetFlag)
	if err != nil {
		return nil, src, err
	}
	cfg, err := config.LoadFromBytes(data)
	if err != nil {
		return nil, src, fmt.Errorf("%s: %w", src.label, err)
	}
	return cfg, src, nil
}

// setupLogging installs the process logger. Interactive commands keep stdout
// for replies, so their logs go to stderr at warn unless --debug is set.
func setupLogging(cfg *config.Config, quiet bool) *monitoring.Logger {
	lc := cfg.Monitoring.Logger()
	if quiet {
		if lc.Output == "" || lc.Output == "stdout" {
			lc.Output = "stderr"
		}
		lc.Level = "warn"
	}
	if debugFlag {
		lc.Level = "debug"
	}
	return monitoring.Global(lc)
}

// app bundles the components every command builds from the config.
type app struct {
	store   *config.Store
	logger  *monitoring.Logger
	alerts  *monitoring.AlertManager
	tracker *monitoring.Tracker
	adapter *adapter.Adapter
}

func newApp(cfg *config.Config, logger *monitoring.Logger) (*app, error) {
	tracker, err := monitoring.NewTracker(cfg.Monitoring.Telemetry())
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	alerts := monitoring.NewAlertManager(logger, cfg.Monitoring.Alerts())
	adp := adapter.New(
		adapter.WithLogger(logger),
		adapter.WithAlerts(alerts),
		adapter.WithTracker(tracker),
	)
	return &app{
		store:   config.NewStore(cfg),
		logger:  logger,
		alerts:  alerts,
		tracker: tracker,
		adapter: adp,
	}, nil
}

// ensureAPIKey asks for a key on a terminal when the config has none.
// The key only lives in the in-memory store.
func (a *app) ensureAPIKey(interactive bool, prompt func(string) string) {
	current := a.store.Current()
	if current.Adapter.APIKey != "" || !interactive {
		return
	}
	key := strings.TrimSpace(prompt("API key for " + current.Adapter.EndpointURL() + " (empty for none): "))
	if key == "" {
		return
	}
	next := *current
	next.Adapter.APIKey = key
	a.store.Swap(&next)
}
