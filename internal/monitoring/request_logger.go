// Package monitoring - request_logger.go logs HTTP request lifecycle.
//
// DESIGN: Structured logging for request tracing at DEBUG level, except
// LogResponse which is the per-request INFO line:
//   - LogIncoming:      Request received from client
//   - LogAttempt:       One upstream call made by the adapter
//   - LogResponse:      Response sent to client
//   - LogPayload:       Which payload stage produced the outgoing body
package monitoring

import (
	"net/http"
	"time"
)

// RequestLogger logs HTTP request lifecycle events.
type RequestLogger struct {
	logger *Logger
}

// NewRequestLogger creates a new request logger.
func NewRequestLogger(logger *Logger) *RequestLogger {
	return &RequestLogger{logger: logger}
}

// RequestInfo contains incoming request information.
type RequestInfo struct {
	RequestID  string
	Method     string
	Path       string
	RemoteAddr string
	BodySize   int
	StartTime  time.Time
}

// NewRequestInfo creates RequestInfo from an HTTP request.
func NewRequestInfo(r *http.Request, requestID string, bodySize int) *RequestInfo {
	return &RequestInfo{
		RequestID:  requestID,
		Method:     r.Method,
		Path:       r.URL.Path,
		RemoteAddr: r.RemoteAddr,
		BodySize:   bodySize,
		StartTime:  time.Now(),
	}
}

// LogIncoming logs an incoming request.
func (rl *RequestLogger) LogIncoming(info *RequestInfo) {
	rl.logger.Debug().
		Str("request_id", info.RequestID).
		Str("method", info.Method).
		Str("path", info.Path).
		Int("body_size", info.BodySize).
		Msg("incoming")
}

// AttemptInfo describes one upstream call.
type AttemptInfo struct {
	ExchangeID string
	Attempt    int
	TargetURL  string
	BodySize   int
	StatusCode int
	Latency    time.Duration
	Err        error
}

// LogAttempt logs an upstream attempt and its outcome.
func (rl *RequestLogger) LogAttempt(info *AttemptInfo) {
	event := rl.logger.Debug().
		Str("exchange_id", info.ExchangeID).
		Int("attempt", info.Attempt).
		Str("target", info.TargetURL).
		Int("body_size", info.BodySize).
		Dur("latency", info.Latency)
	if info.StatusCode != 0 {
		event = event.Int("status", info.StatusCode)
	}
	if info.Err != nil {
		event = event.Err(info.Err)
	}
	event.Msg("attempt")
}

// PayloadInfo describes how the outgoing body was produced.
type PayloadInfo struct {
	ExchangeID string
	Stage      string
	BodySize   int
	Unresolved []string
}

// LogPayload logs the payload stage.
func (rl *RequestLogger) LogPayload(info *PayloadInfo) {
	event := rl.logger.Debug().
		Str("exchange_id", info.ExchangeID).
		Str("stage", info.Stage).
		Int("body_size", info.BodySize)
	if len(info.Unresolved) > 0 {
		event = event.Strs("unresolved", info.Unresolved)
	}
	event.Msg("payload")
}

// ResponseInfo describes a response sent to the client. The exchange fields
// are set only for chat requests.
type ResponseInfo struct {
	RequestID  string
	Method     string
	Path       string
	StatusCode int
	BytesOut   int
	Latency    time.Duration

	Model          string
	HistoryTurns   int
	ReasoningFound bool
	Outcome        string
}

// LogResponse logs a response at INFO, one line per request.
func (rl *RequestLogger) LogResponse(info *ResponseInfo) {
	event := rl.logger.Info().
		Str("request_id", info.RequestID).
		Str("method", info.Method).
		Str("path", info.Path).
		Int("status", info.StatusCode).
		Int("bytes_out", info.BytesOut).
		Dur("latency", info.Latency)
	if info.Outcome != "" {
		event = event.Str("outcome", info.Outcome)
	}
	if info.Model != "" {
		event = event.
			Str("model", info.Model).
			Int("history_turns", info.HistoryTurns).
			Bool("reasoning", info.ReasoningFound)
	}
	event.Msg("response")
}
