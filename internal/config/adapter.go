// Adapter configuration - the upstream endpoint and how one exchange is shaped.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/compresr/chat-adapter/internal/reasoning"
)

const (
	// DefaultAttemptTimeout bounds a single upstream HTTP attempt.
	DefaultAttemptTimeout = 60 * time.Second

	// DefaultReasoningDisplay hides reasoning unless configured otherwise.
	DefaultReasoningDisplay = string(reasoning.DisplayHide)
)

// AdapterConfig is the per-exchange configuration snapshot.
// It is passed by value so an exchange never observes a reload.
type AdapterConfig struct {
	Endpoint         string        `yaml:"endpoint"`          // host/path or full URL
	UseHTTPS         bool          `yaml:"use_https"`         // scheme for endpoints given without one
	APIKey           string        `yaml:"api_key"`           // bearer token, empty disables the header
	Models           string        `yaml:"models"`            // comma separated, first is default
	PayloadTemplate  string        `yaml:"payload_template"`  // JSON with {{...}} placeholders
	ResponsePath     string        `yaml:"response_path"`     // dotted path to the reply text
	ReasoningTag     string        `yaml:"reasoning_tag"`     // delimiter between reasoning and answer
	ReasoningDisplay string        `yaml:"reasoning_display"` // hide, truncate, show
	HistoryLimit     int           `yaml:"history_limit"`     // max turns kept, <= 0 is unbounded
	GlobalContext    string        `yaml:"global_context"`    // merged into the system turn
	Timeout          time.Duration `yaml:"timeout"`           // per attempt
}

// Validate checks the adapter section.
func (a AdapterConfig) Validate() error {
	if strings.TrimSpace(a.Endpoint) == "" {
		return fmt.Errorf("adapter.endpoint is required")
	}
	if strings.TrimSpace(a.PayloadTemplate) == "" {
		return fmt.Errorf("adapter.payload_template is required")
	}
	if strings.TrimSpace(a.ResponsePath) == "" {
		return fmt.Errorf("adapter.response_path is required")
	}
	if len(a.ModelList()) == 0 {
		return fmt.Errorf("adapter.models must list at least one model")
	}
	if a.ReasoningDisplay != "" {
		if _, err := reasoning.ParseDisplayMode(a.ReasoningDisplay); err != nil {
			return fmt.Errorf("adapter.reasoning_display: %w", err)
		}
	}
	if a.Timeout < 0 {
		return fmt.Errorf("invalid adapter.timeout: %s (must be >= 0)", a.Timeout)
	}
	return nil
}

// EndpointURL returns the endpoint with a scheme. An explicit scheme wins over UseHTTPS.
func (a AdapterConfig) EndpointURL() string {
	ep := strings.TrimSpace(a.Endpoint)
	if ep == "" {
		return ""
	}
	if strings.HasPrefix(ep, "http://") || strings.HasPrefix(ep, "https://") {
		return ep
	}
	if a.UseHTTPS {
		return "https://" + ep
	}
	return "http://" + ep
}

// ModelList splits Models on commas, trimming whitespace and dropping empty entries.
func (a AdapterConfig) ModelList() []string {
	var models []string
	for _, m := range strings.Split(a.Models, ",") {
		if m = strings.TrimSpace(m); m != "" {
			models = append(models, m)
		}
	}
	return models
}

// DefaultModel is the first configured model, or empty.
func (a AdapterConfig) DefaultModel() string {
	if models := a.ModelList(); len(models) > 0 {
		return models[0]
	}
	return ""
}

// DisplayMode resolves ReasoningDisplay, falling back to hide.
func (a AdapterConfig) DisplayMode() reasoning.DisplayMode {
	mode, err := reasoning.ParseDisplayMode(a.ReasoningDisplay)
	if err != nil {
		return reasoning.DisplayHide
	}
	return mode
}

// AttemptTimeout returns Timeout or the default.
func (a AdapterConfig) AttemptTimeout() time.Duration {
	if a.Timeout <= 0 {
		return DefaultAttemptTimeout
	}
	return a.Timeout
}
