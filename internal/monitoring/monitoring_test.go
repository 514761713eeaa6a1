package monitoring

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkoukk/tiktoken-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCollector_Stats(t *testing.T) {
	mc := NewMetricsCollector()

	mc.RecordExchange(true, time.Second)
	mc.RecordExchange(false, time.Second)
	mc.RecordAttempt(false)
	mc.RecordAttempt(true)
	mc.RecordAttempt(true)
	mc.RecordPayloadFallback()
	mc.RecordExtractionFailure()
	mc.RecordTransportFailure()
	mc.RecordRequest(true, time.Millisecond)
	mc.RecordRequest(false, time.Millisecond)

	stats := mc.Stats()
	assert.Equal(t, int64(2), stats["exchanges"])
	assert.Equal(t, int64(1), stats["successes"])
	assert.Equal(t, int64(1), stats["failures"])
	assert.Equal(t, int64(3), stats["attempts"])
	assert.Equal(t, int64(2), stats["retries"])
	assert.Equal(t, int64(1), stats["payload_fallbacks"])
	assert.Equal(t, int64(1), stats["extraction_failures"])
	assert.Equal(t, int64(1), stats["transport_failures"])
	assert.Equal(t, int64(2), stats["http_requests"])
	assert.Equal(t, int64(1), stats["http_errors"])
}

func TestAlertManager_HighLatencyThreshold(t *testing.T) {
	var buf bytes.Buffer
	am := NewAlertManager(NewWithWriter(&buf, zerolog.DebugLevel), AlertConfig{HighLatencyThreshold: time.Second})

	am.FlagHighLatency("x", 500*time.Millisecond, "exchange")
	assert.Empty(t, buf.String())

	am.FlagHighLatency("x", 2*time.Second, "exchange")
	assert.Contains(t, buf.String(), "high_latency")
}

func TestAlertManager_Flags(t *testing.T) {
	var buf bytes.Buffer
	am := NewAlertManager(NewWithWriter(&buf, zerolog.DebugLevel), AlertConfig{})

	am.FlagUnresolvedPlaceholders("ex", nil)
	assert.Empty(t, buf.String(), "no tokens, no alert")

	am.FlagUnresolvedPlaceholders("ex", []string{"{{Foo}}"})
	am.FlagPayloadFallback("ex", errors.New("bad json"))
	am.FlagProviderError("ex", "https://api.test", 503, 2)
	am.FlagRetriesExhausted("ex", 3, errors.New("boom"))

	out := buf.String()
	for _, msg := range []string{"unresolved_placeholders", "payload_fallback", "provider_error", "retries_exhausted"} {
		assert.Contains(t, out, msg)
	}
	assert.Contains(t, out, "{{Foo}}")
}

func TestTracker_Disabled(t *testing.T) {
	tr, err := NewTracker(TelemetryConfig{Enabled: false, LogPath: filepath.Join(t.TempDir(), "x.jsonl")})
	require.NoError(t, err)
	assert.False(t, tr.Enabled())

	tr.RecordExchange(&ExchangeEvent{ExchangeID: "a"})

	var nilTracker *Tracker
	assert.False(t, nilTracker.Enabled())
	assert.NoError(t, nilTracker.Close())
}

func TestTracker_WritesJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "telemetry.jsonl")
	tr, err := NewTracker(TelemetryConfig{Enabled: true, LogPath: path})
	require.NoError(t, err)
	require.True(t, tr.Enabled())

	tr.RecordExchange(&ExchangeEvent{ExchangeID: "one", Model: "m", Attempts: 1, Success: true})
	tr.RecordExchange(&ExchangeEvent{ExchangeID: "two", Model: "m", Attempts: 3, Error: "exhausted"})
	require.NoError(t, tr.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var events []ExchangeEvent
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var ev ExchangeEvent
		require.NoError(t, json.Unmarshal(sc.Bytes(), &ev))
		events = append(events, ev)
	}
	require.Len(t, events, 2)
	assert.Equal(t, "one", events[0].ExchangeID)
	assert.True(t, events[0].Success)
	assert.Equal(t, 3, events[1].Attempts)
	assert.Equal(t, "exhausted", events[1].Error)
}

func TestRequestIDContext(t *testing.T) {
	ctx := WithRequestIDContext(context.Background(), "req-1")
	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	assert.Equal(t, "", RequestIDFromContext(context.Background()))
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Positive(t, EstimateTokens("hello world"))
}

// stubEncodingLoad replaces the encoding loader with one that blocks until
// the test ends, and resets the loaded state around the test.
func stubEncodingLoad(t *testing.T) <-chan struct{} {
	t.Helper()
	started := make(chan struct{})
	release := make(chan struct{})
	orig := loadEncoding
	loadEncoding = func() (*tiktoken.Tiktoken, error) {
		close(started)
		<-release
		return nil, errors.New("offline")
	}
	encoder.Store(nil)
	loading.Store(false)
	t.Cleanup(func() {
		close(release)
		loadEncoding = orig
		loading.Store(false)
	})
	return started
}

func TestEstimateTokens_DoesNotWaitForEncoding(t *testing.T) {
	started := stubEncodingLoad(t)

	done := make(chan int, 1)
	go func() { done <- EstimateTokens("abcdefgh") }()

	select {
	case n := <-done:
		assert.Positive(t, n)
	case <-time.After(time.Second):
		t.Fatal("EstimateTokens blocked on the encoding load")
	}
	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("encoding load was not started")
	}
}

func TestNewTracker_WarmsTokenizer(t *testing.T) {
	started := stubEncodingLoad(t)

	tr, err := NewTracker(TelemetryConfig{Enabled: true, LogToStdout: true})
	require.NoError(t, err)
	defer tr.Close()

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("enabled tracker did not start loading the encoding")
	}
}

func TestNew_LevelFallback(t *testing.T) {
	l := New(LoggerConfig{Level: "nonsense", Output: "stderr"})
	assert.Equal(t, zerolog.InfoLevel, l.Zerolog().GetLevel())

	l = New(LoggerConfig{Level: "debug", Format: "console", Output: "stderr"})
	assert.Equal(t, zerolog.DebugLevel, l.Zerolog().GetLevel())
}
