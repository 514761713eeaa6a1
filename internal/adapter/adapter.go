// Package adapter runs one chat exchange against a templated LLM endpoint.
//
// DESIGN: Adapter is stateless across exchanges. Every Send receives an
// AdapterConfig snapshot by value and works on its own copy of the history,
// so concurrent exchanges on different conversations share nothing but the
// HTTP client and the monitoring sinks.
//
// FLOW:
//  1. Resolve model (request, else first configured)
//  2. Merge global context into the system turn
//  3. Flatten prior turns for {{Context}}
//  4. Append the user turn, then truncate to the history limit
//  5. Fill the template, parse leniently, overwrite "messages" when the
//     template hardcodes it without {{MessageHistory}}
//  6. POST with retry (transport and extraction failures alike)
//  7. Split reasoning, append the raw reply, return the envelope
package adapter

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/compresr/chat-adapter/internal/config"
	"github.com/compresr/chat-adapter/internal/extract"
	"github.com/compresr/chat-adapter/internal/history"
	"github.com/compresr/chat-adapter/internal/monitoring"
	"github.com/compresr/chat-adapter/internal/payload"
	"github.com/compresr/chat-adapter/internal/reasoning"
	"github.com/compresr/chat-adapter/internal/template"
)

// Adapter turns a message plus history into an upstream call and a result envelope.
type Adapter struct {
	client  Doer
	retry   RetryPolicy
	sleep   SleepFunc
	logger  *monitoring.Logger
	metrics *monitoring.MetricsCollector
	alerts  *monitoring.AlertManager
	tracker *monitoring.Tracker
	reqLog  *monitoring.RequestLogger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithHTTPClient sets the client used for upstream calls.
func WithHTTPClient(c Doer) Option { return func(a *Adapter) { a.client = c } }

// WithRetryPolicy overrides the default 3 x 1s policy.
func WithRetryPolicy(p RetryPolicy) Option { return func(a *Adapter) { a.retry = p } }

// WithSleep replaces the pause between attempts. Tests use it to record delays.
func WithSleep(fn SleepFunc) Option { return func(a *Adapter) { a.sleep = fn } }

// WithLogger sets the logger.
func WithLogger(l *monitoring.Logger) Option { return func(a *Adapter) { a.logger = l } }

// WithMetrics sets the metrics collector.
func WithMetrics(m *monitoring.MetricsCollector) Option { return func(a *Adapter) { a.metrics = m } }

// WithAlerts sets the alert manager.
func WithAlerts(am *monitoring.AlertManager) Option { return func(a *Adapter) { a.alerts = am } }

// WithTracker sets the telemetry tracker.
func WithTracker(t *monitoring.Tracker) Option { return func(a *Adapter) { a.tracker = t } }

// New creates an Adapter. Unset dependencies get quiet defaults.
func New(opts ...Option) *Adapter {
	a := &Adapter{
		client: &http.Client{}, // timeout via context, not client
		retry:  DefaultRetryPolicy(),
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = monitoring.Nop()
	}
	if a.metrics == nil {
		a.metrics = monitoring.NewMetricsCollector()
	}
	if a.alerts == nil {
		a.alerts = monitoring.NewAlertManager(a.logger, monitoring.AlertConfig{})
	}
	a.reqLog = monitoring.NewRequestLogger(a.logger)
	return a
}

// Metrics returns the collector the adapter records into.
func (a *Adapter) Metrics() *monitoring.MetricsCollector { return a.metrics }

// exchange carries the prepared state of one Send.
type exchange struct {
	id         string
	model      string
	url        string
	turns      []history.Turn
	items      int
	body       []byte
	stage      payload.Stage
	unresolved []string
}

// Send runs one exchange. The caller's req.History is never modified; on
// success Result.History is a fresh slice ending with the user turn and the
// raw assistant reply. Failures after the attempt budget are returned as
// *ExhaustedRetriesError.
func (a *Adapter) Send(ctx context.Context, settings config.AdapterConfig, req Request) (*Result, error) {
	start := time.Now()

	ex, err := a.prepare(settings, req)
	if err != nil {
		return nil, err
	}

	var (
		reply      string
		lastStatus int
		respSize   int
	)
	attempts, err := a.retry.Execute(ctx, a.sleep, func(attempt int) error {
		a.metrics.RecordAttempt(attempt > 1)
		attemptStart := time.Now()

		respBody, status, err := post(ctx, a.client, ex.url, settings.APIKey, ex.body, settings.AttemptTimeout())
		lastStatus = status
		respSize = len(respBody)
		if err == nil {
			reply, err = extract.Extract(respBody, settings.ResponsePath)
			if err != nil {
				a.metrics.RecordExtractionFailure()
			}
		} else {
			a.metrics.RecordTransportFailure()
			if status != 0 {
				a.alerts.FlagProviderError(ex.id, ex.url, status, attempt)
			}
		}

		a.reqLog.LogAttempt(&monitoring.AttemptInfo{
			ExchangeID: ex.id,
			Attempt:    attempt,
			TargetURL:  ex.url,
			BodySize:   len(ex.body),
			StatusCode: status,
			Latency:    time.Since(attemptStart),
			Err:        err,
		})
		return err
	})

	if err != nil {
		final := &ExhaustedRetriesError{Attempts: attempts, Last: err}
		a.alerts.FlagRetriesExhausted(ex.id, attempts, err)
		a.finish(ctx, ex, start, attempts, lastStatus, respSize, "", false, final)
		return nil, final
	}

	split := reasoning.Split(reply, settings.ReasoningTag, settings.DisplayMode())

	out := make([]history.Turn, len(ex.turns), len(ex.turns)+1)
	copy(out, ex.turns)
	out = append(out, history.Turn{Role: history.RoleAssistant, Content: reply})

	a.finish(ctx, ex, start, attempts, lastStatus, respSize, reply, split.Reasoning != "", nil)

	return &Result{
		Content:    split.Markup,
		RawContent: reply,
		Reasoning:  split.Reasoning,
		History:    out,
	}, nil
}

// prepare resolves the model, builds the history and produces the request body.
func (a *Adapter) prepare(settings config.AdapterConfig, req Request) (*exchange, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, ErrEmptyMessage
	}

	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = settings.DefaultModel()
	}
	if model == "" {
		return nil, ErrNoModel
	}

	url := settings.EndpointURL()
	if url == "" {
		return nil, fmt.Errorf("adapter endpoint is not configured")
	}

	ex := &exchange{id: uuid.New().String(), model: model, url: url, items: len(req.ContextItems)}

	turns := history.MergeGlobalContext(req.History, settings.GlobalContext)
	flattened := history.Flatten(turns)
	turns = append(turns, history.Turn{Role: history.RoleUser, Content: req.Message})
	turns = history.Truncate(turns, settings.HistoryLimit)
	ex.turns = turns

	vars := buildVariables(settings.PayloadTemplate, model, req.Message, turns, flattened, req.ContextItems)

	filled := template.Fill(settings.PayloadTemplate, vars)
	ex.unresolved = template.Unresolved(filled)
	a.alerts.FlagUnresolvedPlaceholders(ex.id, ex.unresolved)

	parsed := payload.Parse(filled, payload.Fallback{Model: model, Messages: turns})
	ex.stage = parsed.Stage
	if parsed.Fallback() {
		a.metrics.RecordPayloadFallback()
		a.alerts.FlagPayloadFallback(ex.id, parsed.Err)
	}

	body := parsed.Body
	if !template.References(settings.PayloadTemplate, template.VarMessageHistory) && gjson.GetBytes(body, "messages").Exists() {
		replaced, err := sjson.SetBytes(body, "messages", turns)
		if err != nil {
			a.logger.Warn().Err(err).Str("exchange_id", ex.id).Msg("failed to overwrite messages, sending template as filled")
		} else {
			body = replaced
		}
	}
	ex.body = body

	a.reqLog.LogPayload(&monitoring.PayloadInfo{
		ExchangeID: ex.id,
		Stage:      string(ex.stage),
		BodySize:   len(body),
		Unresolved: ex.unresolved,
	})
	return ex, nil
}

// buildVariables assembles the template variables.
//
// Context carries the flattened prior turns followed by any context items.
// When the template has no {{Context}} slot the items are prepended to
// UserMessage instead so they still reach the model.
func buildVariables(tmpl, model, message string, turns []history.Turn, flattened string, items []ContextItem) template.Variables {
	itemsText := formatContextItems(items)

	contextText := flattened
	if itemsText != "" {
		if contextText != "" {
			contextText += "\n\n"
		}
		contextText += itemsText
	}

	userMessage := message
	if itemsText != "" && !template.References(tmpl, template.VarContext) {
		userMessage = itemsText + "\n\n" + message
	}

	return template.Variables{
		template.VarModel:          model,
		template.VarUserMessage:    userMessage,
		template.VarMessageHistory: turns,
		template.VarSystemMessage:  history.SystemContent(turns),
		template.VarContext:        contextText,
	}
}

// finish records counters, latency alerts and the telemetry event.
func (a *Adapter) finish(ctx context.Context, ex *exchange, start time.Time, attempts, status, respSize int, reply string, reasoningFound bool, err error) {
	latency := time.Since(start)
	a.metrics.RecordExchange(err == nil, latency)
	a.alerts.FlagHighLatency(ex.id, latency, "exchange")

	if !a.tracker.Enabled() {
		return
	}

	event := &monitoring.ExchangeEvent{
		ExchangeID:             ex.id,
		RequestID:              monitoring.RequestIDFromContext(ctx),
		Timestamp:              start,
		Model:                  ex.model,
		Endpoint:               ex.url,
		Attempts:               attempts,
		LastStatusCode:         status,
		Success:                err == nil,
		PayloadStage:           string(ex.stage),
		UnresolvedPlaceholders: ex.unresolved,
		HistoryTurns:           len(ex.turns),
		ContextItems:           ex.items,
		RequestBodySize:        len(ex.body),
		ResponseBodySize:       respSize,
		PromptTokens:           monitoring.EstimateTokens(string(ex.body)),
		ReplyTokens:            monitoring.EstimateTokens(reply),
		ReasoningFound:         reasoningFound,
		TotalLatencyMs:         latency.Milliseconds(),
	}
	if err != nil {
		event.Error = err.Error()
	}
	a.tracker.RecordExchange(event)
}
