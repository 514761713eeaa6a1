// Package monitoring - metrics.go provides simple counters.
//
// DESIGN: Lightweight in-memory counters for operational metrics:
//   - exchanges/successes/failures: Outcome of each Send()
//   - attempts/retries:             HTTP calls made and repeated
//   - payload_fallbacks:            Templates that could not be parsed or repaired
//   - extraction/transport:         Failure causes seen per attempt
//   - http_requests:                Requests served by the gateway
package monitoring

import (
	"sync/atomic"
	"time"
)

// MetricsCollector collects operational metrics.
type MetricsCollector struct {
	exchanges          atomic.Int64
	successes          atomic.Int64
	failures           atomic.Int64
	attempts           atomic.Int64
	retries            atomic.Int64
	payloadFallbacks   atomic.Int64
	extractionFailures atomic.Int64
	transportFailures  atomic.Int64
	httpRequests       atomic.Int64
	httpErrors         atomic.Int64
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{}
}

// RecordExchange records the outcome of one exchange.
func (mc *MetricsCollector) RecordExchange(success bool, _ time.Duration) {
	mc.exchanges.Add(1)
	if success {
		mc.successes.Add(1)
	} else {
		mc.failures.Add(1)
	}
}

// RecordAttempt records an HTTP attempt; retry is true for every attempt after the first.
func (mc *MetricsCollector) RecordAttempt(retry bool) {
	mc.attempts.Add(1)
	if retry {
		mc.retries.Add(1)
	}
}

// RecordPayloadFallback records a template that fell back to the synthesized body.
func (mc *MetricsCollector) RecordPayloadFallback() { mc.payloadFallbacks.Add(1) }

// RecordExtractionFailure records a response whose path yielded nothing.
func (mc *MetricsCollector) RecordExtractionFailure() { mc.extractionFailures.Add(1) }

// RecordTransportFailure records a network error or non-success status.
func (mc *MetricsCollector) RecordTransportFailure() { mc.transportFailures.Add(1) }

// RecordRequest records an HTTP request served by the gateway.
func (mc *MetricsCollector) RecordRequest(success bool, _ time.Duration) {
	mc.httpRequests.Add(1)
	if !success {
		mc.httpErrors.Add(1)
	}
}

// Stats returns current metrics.
func (mc *MetricsCollector) Stats() map[string]int64 {
	return map[string]int64{
		"exchanges":           mc.exchanges.Load(),
		"successes":           mc.successes.Load(),
		"failures":            mc.failures.Load(),
		"attempts":            mc.attempts.Load(),
		"retries":             mc.retries.Load(),
		"payload_fallbacks":   mc.payloadFallbacks.Load(),
		"extraction_failures": mc.extractionFailures.Load(),
		"transport_failures":  mc.transportFailures.Load(),
		"http_requests":       mc.httpRequests.Load(),
		"http_errors":         mc.httpErrors.Load(),
	}
}
