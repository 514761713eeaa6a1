// Package monitoring - alerts.go flags anomalies and errors.
//
// DESIGN: AlertManager logs notable events at appropriate levels:
//   - FlagHighLatency:           Warn when an exchange or request exceeds threshold
//   - FlagProviderError:         Warn on upstream non-success responses
//   - FlagPayloadFallback:       Warn when the template could not be parsed
//   - FlagUnresolvedPlaceholders: Warn when {{...}} tokens survive filling
//   - FlagRetriesExhausted:      Error when an exchange fails for good
//   - FlagPanic:                 Error on recovered panics
package monitoring

import "time"

// AlertManager flags anomalies and errors.
type AlertManager struct {
	logger               *Logger
	highLatencyThreshold time.Duration
}

// NewAlertManager creates a new alert manager.
func NewAlertManager(logger *Logger, cfg AlertConfig) *AlertManager {
	threshold := cfg.HighLatencyThreshold
	if threshold == 0 {
		threshold = 30 * time.Second
	}
	return &AlertManager{logger: logger, highLatencyThreshold: threshold}
}

// FlagHighLatency logs when latency exceeds threshold.
func (am *AlertManager) FlagHighLatency(id string, latency time.Duration, what string) {
	if latency < am.highLatencyThreshold {
		return
	}
	am.logger.Warn().
		Str("id", id).
		Str("what", what).
		Dur("latency", latency).
		Msg("high_latency")
}

// FlagProviderError logs an upstream non-success response.
func (am *AlertManager) FlagProviderError(exchangeID, endpoint string, statusCode int, attempt int) {
	am.logger.Warn().
		Str("exchange_id", exchangeID).
		Str("endpoint", endpoint).
		Int("status", statusCode).
		Int("attempt", attempt).
		Msg("provider_error")
}

// FlagPayloadFallback logs that the filled template was replaced by the fallback body.
func (am *AlertManager) FlagPayloadFallback(exchangeID string, err error) {
	am.logger.Warn().
		Str("exchange_id", exchangeID).
		Err(err).
		Msg("payload_fallback")
}

// FlagUnresolvedPlaceholders logs placeholder tokens left after filling.
func (am *AlertManager) FlagUnresolvedPlaceholders(exchangeID string, tokens []string) {
	if len(tokens) == 0 {
		return
	}
	am.logger.Warn().
		Str("exchange_id", exchangeID).
		Strs("placeholders", tokens).
		Msg("unresolved_placeholders")
}

// FlagRetriesExhausted logs a final exchange failure.
func (am *AlertManager) FlagRetriesExhausted(exchangeID string, attempts int, err error) {
	am.logger.Error().
		Str("exchange_id", exchangeID).
		Int("attempts", attempts).
		Err(err).
		Msg("retries_exhausted")
}

// FlagPanic logs recovered panic.
func (am *AlertManager) FlagPanic(requestID string, panicValue interface{}, stack string) {
	am.logger.Error().
		Str("request_id", requestID).
		Interface("panic", panicValue).
		Str("stack", stack).
		Msg("panic_recovered")
}
