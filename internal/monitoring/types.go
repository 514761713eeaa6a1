// Package monitoring - types.go defines shared types.
//
// DESIGN: These types are used by adapter/, gateway/ and monitoring/ packages.
// Defined here ONCE to avoid duplication and circular imports.
//
// TYPES:
//   - ExchangeEvent: Telemetry data for each chat exchange
//   - Config types:  TelemetryConfig, LoggerConfig, AlertConfig
package monitoring

import "time"

// =============================================================================
// EVENT TYPES - Structured data for telemetry recording
// =============================================================================

// ExchangeEvent captures one message/reply cycle through the adapter.
type ExchangeEvent struct {
	ExchangeID             string    `json:"exchange_id"`
	RequestID              string    `json:"request_id,omitempty"`
	Timestamp              time.Time `json:"timestamp"`
	Model                  string    `json:"model"`
	Endpoint               string    `json:"endpoint"`
	Attempts               int       `json:"attempts"`
	LastStatusCode         int       `json:"last_status_code,omitempty"`
	Success                bool      `json:"success"`
	Error                  string    `json:"error,omitempty"`
	PayloadStage           string    `json:"payload_stage"`
	UnresolvedPlaceholders []string  `json:"unresolved_placeholders,omitempty"`
	HistoryTurns           int       `json:"history_turns"`
	ContextItems           int       `json:"context_items,omitempty"`
	RequestBodySize        int       `json:"request_body_size"`
	ResponseBodySize       int       `json:"response_body_size,omitempty"`
	PromptTokens           int       `json:"prompt_tokens,omitempty"`
	ReplyTokens            int       `json:"reply_tokens,omitempty"`
	ReasoningFound         bool      `json:"reasoning_found"`
	TotalLatencyMs         int64     `json:"total_latency_ms"`
}

// =============================================================================
// CONFIG TYPES
// =============================================================================

// TelemetryConfig contains telemetry configuration.
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	LogPath     string `yaml:"log_path"`
	LogToStdout bool   `yaml:"log_to_stdout"`
}

// LoggerConfig contains logging configuration.
type LoggerConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
	Output string `yaml:"output"` // stdout, stderr, or file path
}

// AlertConfig contains alert thresholds.
type AlertConfig struct {
	HighLatencyThreshold time.Duration `yaml:"high_latency_threshold"`
}
