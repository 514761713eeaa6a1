// Package monitoring - telemetry.go records exchange events to a JSONL file.
//
// DESIGN: Tracker writes one ExchangeEvent per line, appended immediately
// after each exchange for real-time logging. Disabled trackers are no-ops.
package monitoring

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
)

// Tracker handles telemetry event recording to file and stdout.
type Tracker struct {
	config        TelemetryConfig
	logPath       string
	exchangeCount int
	mu            sync.Mutex
}

// NewTracker creates a new telemetry tracker.
func NewTracker(cfg TelemetryConfig) (*Tracker, error) {
	t := &Tracker{
		config: cfg,
	}

	if !cfg.Enabled {
		return t, nil
	}
	WarmTokenizer()

	if cfg.LogPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogPath), 0750); err != nil {
			return nil, err
		}
		t.logPath = cfg.LogPath
		if _, err := os.Stat(cfg.LogPath); os.IsNotExist(err) {
			if f, err := os.Create(cfg.LogPath); err == nil {
				f.Close()
			}
		}
	}

	return t, nil
}

// Enabled reports whether events are recorded.
func (t *Tracker) Enabled() bool {
	return t != nil && t.config.Enabled
}

// appendJSONL appends a single JSON object as a line to the file.
func appendJSONL(path string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(data)
	return err
}

// RecordExchange records an exchange event.
func (t *Tracker) RecordExchange(event *ExchangeEvent) {
	if !t.Enabled() {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.config.LogToStdout {
		id := event.ExchangeID
		if len(id) > 8 {
			id = id[:8]
		}
		log.Info().
			Str("exchange_id", id).
			Str("model", event.Model).
			Int("attempts", event.Attempts).
			Bool("success", event.Success).
			Msg("telemetry")
	}

	if t.logPath != "" {
		if err := appendJSONL(t.logPath, event); err != nil {
			log.Error().Err(err).Str("path", t.logPath).Msg("telemetry: failed to write exchange event")
		} else {
			t.exchangeCount++
		}
	}
}

// Close logs a session summary.
func (t *Tracker) Close() error {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.logPath != "" && t.exchangeCount > 0 {
		log.Info().
			Str("path", t.logPath).
			Int("events", t.exchangeCount).
			Msg("telemetry: session complete")
	}

	return nil
}
