// HTTP middleware for the chat gateway.
//
// DESIGN: Chain, outermost first:
//  1. requestScope:  assign X-Request-ID, attach the exchange note, log one
//     response line with status, latency and the exchange outcome
//  2. panicRecovery: catch panics, return 500 in the error envelope
//  3. security:      security headers, localhost CORS, preflight
//  4. rateLimit:     per-IP token bucket (only when server.rate_limit > 0)
//
// requestScope runs first so every later stage, panic path included, sees
// the request ID on the context.
package gateway

import (
	"context"
	"math"
	"net"
	"net/http"
	"net/url"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/compresr/chat-adapter/internal/monitoring"
)

func (g *Gateway) middleware(h http.Handler) http.Handler {
	if g.rateLimiter != nil {
		h = g.rateLimit(h)
	}
	h = g.security(h)
	h = g.panicRecovery(h)
	return g.requestScope(h)
}

// =============================================================================
// REQUEST SCOPE
// =============================================================================

// exchangeNote is filled by handleChat and read back for the response log.
type exchangeNote struct {
	model     string
	turns     int
	reasoning bool
	outcome   string
}

type noteKey struct{}

func noteFromContext(ctx context.Context) *exchangeNote {
	if n, ok := ctx.Value(noteKey{}).(*exchangeNote); ok {
		return n
	}
	return &exchangeNote{}
}

// statusRecorder captures the status code and body size written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusRecorder) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusRecorder) Write(p []byte) (int, error) {
	n, err := w.ResponseWriter.Write(p)
	w.bytes += n
	return n, err
}

func (g *Gateway) requestScope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set(HeaderRequestID, requestID)

		note := &exchangeNote{}
		ctx := monitoring.WithRequestIDContext(r.Context(), requestID)
		ctx = context.WithValue(ctx, noteKey{}, note)
		r = r.WithContext(ctx)

		bodySize := int(max(r.ContentLength, 0))
		g.requestLogger.LogIncoming(monitoring.NewRequestInfo(r, requestID, bodySize))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		latency := time.Since(start)
		g.requestLogger.LogResponse(&monitoring.ResponseInfo{
			RequestID:      requestID,
			Method:         r.Method,
			Path:           r.URL.Path,
			StatusCode:     rec.status,
			BytesOut:       rec.bytes,
			Latency:        latency,
			Model:          note.model,
			HistoryTurns:   note.turns,
			ReasoningFound: note.reasoning,
			Outcome:        note.outcome,
		})
		g.metrics.RecordRequest(rec.status < http.StatusBadRequest, latency)
		g.alerts.FlagHighLatency(requestID, latency, r.URL.Path)
	})
}

// =============================================================================
// PANIC RECOVERY
// =============================================================================

func (g *Gateway) panicRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				g.alerts.FlagPanic(monitoring.RequestIDFromContext(r.Context()), v, string(debug.Stack()))
				noteFromContext(r.Context()).outcome = "panic"
				g.writeError(w, "internal error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// SECURITY
// =============================================================================

func (g *Gateway) security(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Content-Security-Policy", "default-src 'none'")

		if origin := r.Header.Get("Origin"); origin != "" && isLocalOrigin(origin) {
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, "+HeaderRequestID)
			h.Set("Access-Control-Max-Age", "86400")
			h.Add("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// isLocalOrigin accepts http(s) origins on a loopback host, so a chat UI on a
// local dev server can call the gateway.
func isLocalOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	return isLoopback(u.Hostname())
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// =============================================================================
// RATE LIMITING
// =============================================================================

func (g *Gateway) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		ok, wait := g.rateLimiter.allow(ip)
		if !ok {
			g.logger.Warn().
				Str("request_id", monitoring.RequestIDFromContext(r.Context())).
				Str("ip", ip).
				Dur("retry_after", wait).
				Msg("rate limit exceeded")
			noteFromContext(r.Context()).outcome = "rate_limited"
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Max(1, math.Ceil(wait.Seconds())))))
			g.writeError(w, "too many requests, slow down", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP returns the caller's IP. Forwarding headers are trusted only when
// the direct peer is loopback (a local reverse proxy).
func clientIP(r *http.Request) string {
	peer, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		peer = r.RemoteAddr
	}
	if !isLoopback(peer) {
		return peer
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	return peer
}

// rateLimiter is a per-IP token bucket. Each bucket holds up to burst tokens
// and refills continuously at rate tokens per second.
type rateLimiter struct {
	mu         sync.Mutex
	buckets    map[string]*bucket
	rate       float64
	burst      float64
	maxBuckets int
	now        func() time.Time
	done       chan struct{}
	stopOnce   sync.Once
}

type bucket struct {
	tokens float64
	last   time.Time
}

// newRateLimiter allows rate requests per second per IP with a burst of rate.
func newRateLimiter(rate int) *rateLimiter {
	rl := &rateLimiter{
		buckets:    make(map[string]*bucket),
		rate:       float64(rate),
		burst:      float64(rate),
		maxBuckets: MaxRateLimitBuckets,
		now:        time.Now,
		done:       make(chan struct{}),
	}
	go rl.sweep()
	return rl
}

func (rl *rateLimiter) stop() {
	rl.stopOnce.Do(func() { close(rl.done) })
}

// allow takes a token from ip's bucket. When the bucket is empty it reports
// how long until the next token is available.
func (rl *rateLimiter) allow(ip string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.buckets[ip]
	if !ok {
		if len(rl.buckets) >= rl.maxBuckets {
			rl.evictStalest()
		}
		b = &bucket{tokens: rl.burst, last: now}
		rl.buckets[ip] = b
	} else {
		b.tokens = math.Min(rl.burst, b.tokens+now.Sub(b.last).Seconds()*rl.rate)
		b.last = now
	}

	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}
	return false, time.Duration((1 - b.tokens) / rl.rate * float64(time.Second))
}

// refillTime is how long an empty bucket takes to fill. A bucket idle that
// long is indistinguishable from a new one.
func (rl *rateLimiter) refillTime() time.Duration {
	return time.Duration(rl.burst / rl.rate * float64(time.Second))
}

// evictStalest drops the least recently used bucket. Caller holds mu.
func (rl *rateLimiter) evictStalest() {
	var stalest string
	var oldest time.Time
	for ip, b := range rl.buckets {
		if stalest == "" || b.last.Before(oldest) {
			stalest, oldest = ip, b.last
		}
	}
	delete(rl.buckets, stalest)
}

// sweep drops full buckets once a minute until stop is called.
func (rl *rateLimiter) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.dropIdle()
		}
	}
}

func (rl *rateLimiter) dropIdle() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := rl.now().Add(-rl.refillTime())
	for ip, b := range rl.buckets {
		if b.last.Before(cutoff) {
			delete(rl.buckets, ip)
		}
	}
}
