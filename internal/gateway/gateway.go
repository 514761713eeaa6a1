// Package gateway exposes the chat adapter over HTTP for the UI layer.
//
// DESIGN: The gateway owns no conversation state. Each POST /v1/chat carries
// the full history and gets the updated history back; the adapter settings
// are read from the config store once per request.
//
// ROUTES:
//   - POST /v1/chat    one exchange: {message, history, model?, contextItems?}
//   - GET  /v1/models  configured model list and default
//   - GET  /health     liveness
//   - GET  /stats      counters from the metrics collector
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/compresr/chat-adapter/internal/adapter"
	"github.com/compresr/chat-adapter/internal/config"
	"github.com/compresr/chat-adapter/internal/history"
	"github.com/compresr/chat-adapter/internal/monitoring"
)

const (
	// HeaderRequestID carries the request ID in and out.
	HeaderRequestID = "X-Request-ID"

	// MaxRateLimitBuckets caps tracked client IPs.
	MaxRateLimitBuckets = 10000

	// MaxRequestBodySize bounds POST /v1/chat bodies (history included).
	MaxRequestBodySize = 10 * 1024 * 1024

	// unavailableMessage is the only detail a client sees after exhausted retries.
	unavailableMessage = "the assistant is unavailable right now, please try again"
)

// Gateway serves the adapter over HTTP.
type Gateway struct {
	store         *config.Store
	adapter       *adapter.Adapter
	logger        *monitoring.Logger
	metrics       *monitoring.MetricsCollector
	alerts        *monitoring.AlertManager
	requestLogger *monitoring.RequestLogger
	rateLimiter   *rateLimiter
	server        *http.Server
	startedAt     time.Time
}

// New creates a Gateway. Counters are shared with the adapter so /stats
// reports exchanges and HTTP requests together.
func New(store *config.Store, adp *adapter.Adapter, logger *monitoring.Logger, alerts *monitoring.AlertManager) *Gateway {
	if logger == nil {
		logger = monitoring.Nop()
	}
	if alerts == nil {
		alerts = monitoring.NewAlertManager(logger, monitoring.AlertConfig{})
	}
	g := &Gateway{
		store:         store,
		adapter:       adp,
		logger:        logger,
		metrics:       adp.Metrics(),
		alerts:        alerts,
		requestLogger: monitoring.NewRequestLogger(logger),
		startedAt:     time.Now(),
	}

	srv := store.Current().Server
	if srv.RateLimit > 0 {
		g.rateLimiter = newRateLimiter(srv.RateLimit)
	}
	g.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", srv.Port),
		Handler:      g.Handler(),
		ReadTimeout:  srv.ReadTimeout,
		WriteTimeout: srv.WriteTimeout,
	}
	return g
}

// Handler returns the routed handler wrapped in the middleware chain.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat", g.handleChat)
	mux.HandleFunc("GET /v1/models", g.handleModels)
	mux.HandleFunc("GET /health", g.handleHealth)
	mux.HandleFunc("GET /stats", g.handleStats)

	return g.middleware(mux)
}

// Start listens until Shutdown is called. It returns nil on a clean shutdown.
func (g *Gateway) Start() error {
	g.logger.Info().Str("addr", g.server.Addr).Msg("chat adapter gateway listening")
	if err := g.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("gateway: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (g *Gateway) Shutdown(ctx context.Context) error {
	if g.rateLimiter != nil {
		g.rateLimiter.stop()
	}
	return g.server.Shutdown(ctx)
}

// =============================================================================
// HANDLERS
// =============================================================================

func (g *Gateway) handleChat(w http.ResponseWriter, r *http.Request) {
	note := noteFromContext(r.Context())
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var req adapter.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		note.outcome = "bad_request"
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			g.writeError(w, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit), http.StatusRequestEntityTooLarge)
			return
		}
		g.writeError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	for i, turn := range req.History {
		if !turn.Role.Valid() {
			note.outcome = "bad_request"
			g.writeError(w, fmt.Sprintf("history[%d]: unknown role %q", i, turn.Role), http.StatusBadRequest)
			return
		}
	}
	if req.History == nil {
		req.History = []history.Turn{}
	}

	settings := g.store.Adapter()
	note.model = strings.TrimSpace(req.Model)
	if note.model == "" {
		note.model = settings.DefaultModel()
	}
	note.turns = len(req.History)

	res, err := g.adapter.Send(r.Context(), settings, req)
	if err != nil {
		var exhausted *adapter.ExhaustedRetriesError
		switch {
		case errors.Is(err, adapter.ErrEmptyMessage), errors.Is(err, adapter.ErrNoModel):
			note.outcome = "bad_request"
			g.writeError(w, err.Error(), http.StatusBadRequest)
		case errors.As(err, &exhausted):
			note.outcome = "exhausted"
			g.logger.Warn().
				Str("request_id", monitoring.RequestIDFromContext(r.Context())).
				Err(err).
				Msg("chat exchange failed")
			g.writeError(w, unavailableMessage, http.StatusBadGateway)
		default:
			note.outcome = "error"
			g.logger.Error().Err(err).Msg("chat exchange error")
			g.writeError(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	note.outcome = "ok"
	note.turns = len(res.History)
	note.reasoning = res.Reasoning != ""
	g.writeJSON(w, http.StatusOK, res)
}

type modelsResponse struct {
	Models  []string `json:"models"`
	Default string   `json:"default"`
}

func (g *Gateway) handleModels(w http.ResponseWriter, _ *http.Request) {
	settings := g.store.Adapter()
	models := settings.ModelList()
	if models == nil {
		models = []string{}
	}
	g.writeJSON(w, http.StatusOK, modelsResponse{Models: models, Default: settings.DefaultModel()})
}

func (g *Gateway) handleHealth(w http.ResponseWriter, _ *http.Request) {
	g.writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(g.startedAt).Round(time.Second).String(),
	})
}

func (g *Gateway) handleStats(w http.ResponseWriter, _ *http.Request) {
	g.writeJSON(w, http.StatusOK, g.metrics.Stats())
}

// =============================================================================
// HELPERS
// =============================================================================

func (g *Gateway) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		g.logger.Debug().Err(err).Msg("failed to write response")
	}
}

func (g *Gateway) writeError(w http.ResponseWriter, msg string, status int) {
	g.writeJSON(w, status, map[string]any{
		"error": map[string]string{"message": msg},
	})
}
