package gateway

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compresr/chat-adapter/internal/adapter"
	"github.com/compresr/chat-adapter/internal/config"
	"github.com/compresr/chat-adapter/internal/monitoring"
)

// fakeClock is a manually advanced time source.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestLimiter(t *testing.T, rate int) (*rateLimiter, *fakeClock) {
	t.Helper()
	rl := newRateLimiter(rate)
	t.Cleanup(rl.stop)
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	rl.now = clock.now
	return rl, clock
}

func TestRateLimiter_SteadyOverload(t *testing.T) {
	const rate = 10
	rl, clock := newTestLimiter(t, rate)

	// 20 req/s for 3s against a 10/s limit.
	var total, lastSecond int
	for i := 0; i < 60; i++ {
		if ok, _ := rl.allow("1.2.3.4"); ok {
			total++
			if i >= 40 {
				lastSecond++
			}
		}
		clock.t = clock.t.Add(50 * time.Millisecond)
	}

	// Burst of 10 plus ~3s of refill.
	assert.InDelta(t, 39, total, 2)
	assert.InDelta(t, rate, lastSecond, 1)
}

func TestRateLimiter_RetryAfter(t *testing.T) {
	rl, clock := newTestLimiter(t, 2)

	for i := 0; i < 2; i++ {
		ok, _ := rl.allow("ip")
		require.True(t, ok)
	}
	ok, wait := rl.allow("ip")
	assert.False(t, ok)
	assert.Equal(t, 500*time.Millisecond, wait)

	clock.t = clock.t.Add(wait)
	ok, _ = rl.allow("ip")
	assert.True(t, ok)

	ok, _ = rl.allow("other")
	assert.True(t, ok, "buckets are per IP")
}

func TestRateLimiter_Eviction(t *testing.T) {
	rl, clock := newTestLimiter(t, 1)
	rl.maxBuckets = 2

	for _, ip := range []string{"a", "b", "c"} {
		rl.allow(ip)
		clock.t = clock.t.Add(time.Millisecond)
	}
	assert.Len(t, rl.buckets, 2)
	assert.NotContains(t, rl.buckets, "a")

	clock.t = clock.t.Add(2 * time.Second)
	rl.allow("c")
	rl.dropIdle()
	assert.Equal(t, []string{"c"}, keys(rl.buckets))
}

func keys(m map[string]*bucket) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		remote string
		xff    string
		want   string
	}{
		{"direct", "10.0.0.5:4000", "", "10.0.0.5"},
		{"untrusted forward", "10.0.0.5:4000", "6.6.6.6", "10.0.0.5"},
		{"local proxy", "127.0.0.1:4000", "8.8.8.8, 10.0.0.1", "8.8.8.8"},
		{"ipv6 loopback proxy", "[::1]:4000", "9.9.9.9", "9.9.9.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/health", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			assert.Equal(t, tt.want, clientIP(r))
		})
	}
}

func TestIsLocalOrigin(t *testing.T) {
	assert.True(t, isLocalOrigin("http://localhost:5173"))
	assert.True(t, isLocalOrigin("http://127.0.0.1:3000"))
	assert.True(t, isLocalOrigin("https://[::1]:8443"))
	assert.False(t, isLocalOrigin("http://localhost.evil.example"))
	assert.False(t, isLocalOrigin("file://localhost"))
}

// testGateway builds a gateway logging JSON at debug level into buf.
func testGateway(t *testing.T, upstream http.HandlerFunc) (*Gateway, *bytes.Buffer) {
	t.Helper()
	if upstream == nil {
		upstream = func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "unused", http.StatusInternalServerError)
		}
	}
	up := httptest.NewServer(upstream)
	t.Cleanup(up.Close)

	store := config.NewStore(&config.Config{
		Server: config.ServerConfig{Port: 18080, ReadTimeout: time.Second, WriteTimeout: time.Second},
		Adapter: config.AdapterConfig{
			Endpoint:        up.URL,
			Models:          "alpha",
			PayloadTemplate: `{"model":"{{Model}}","messages":{{MessageHistory}}}`,
			ResponsePath:    "choices.0.message.content",
			ReasoningTag:    "##",
			Timeout:         time.Second,
		},
	})
	var buf bytes.Buffer
	logger := monitoring.NewWithWriter(&buf, zerolog.DebugLevel)
	g := New(store, adapter.New(), logger, monitoring.NewAlertManager(logger, monitoring.AlertConfig{}))
	return g, &buf
}

// logLines decodes every JSON log line with the given message.
func logLines(t *testing.T, buf *bytes.Buffer, msg string) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		if m["message"] == msg {
			out = append(out, m)
		}
	}
	return out
}

func TestPanicRecovery_KeepsRequestID(t *testing.T) {
	g, buf := testGateway(t, nil)
	h := g.middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/anything", nil)
	req.Header.Set(HeaderRequestID, "req-7")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "req-7", rec.Header().Get(HeaderRequestID))

	panics := logLines(t, buf, "panic_recovered")
	require.Len(t, panics, 1)
	assert.Equal(t, "req-7", panics[0]["request_id"])

	responses := logLines(t, buf, "response")
	require.Len(t, responses, 1)
	assert.Equal(t, float64(http.StatusInternalServerError), responses[0]["status"])
	assert.Equal(t, "panic", responses[0]["outcome"])
}

func TestChat_BodyTooLarge(t *testing.T) {
	g, _ := testGateway(t, nil)

	body := `{"message":"` + strings.Repeat("a", MaxRequestBodySize) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(body))
	rec := httptest.NewRecorder()
	g.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error"`)
}

func TestChat_ResponseLogCarriesExchange(t *testing.T) {
	g, buf := testGateway(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": "thinking##done"}}},
		})
	})

	req := httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(`{"message":"hi"}`))
	rec := httptest.NewRecorder()
	g.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	responses := logLines(t, buf, "response")
	require.Len(t, responses, 1)
	line := responses[0]
	assert.Equal(t, "ok", line["outcome"])
	assert.Equal(t, "alpha", line["model"])
	assert.Equal(t, float64(2), line["history_turns"])
	assert.Equal(t, true, line["reasoning"])
	assert.Positive(t, line["bytes_out"])
}

func TestRateLimit_ErrorEnvelope(t *testing.T) {
	g, _ := testGateway(t, nil)
	g.rateLimiter = newRateLimiter(1)
	t.Cleanup(g.rateLimiter.stop)
	h := g.Handler()

	var last *httptest.ResponseRecorder
	for i := 0; i < 2; i++ {
		last = httptest.NewRecorder()
		h.ServeHTTP(last, httptest.NewRequest(http.MethodGet, "/health", nil))
	}

	assert.Equal(t, http.StatusTooManyRequests, last.Code)
	assert.Equal(t, "1", last.Header().Get("Retry-After"))
	var body map[string]map[string]string
	require.NoError(t, json.Unmarshal(last.Body.Bytes(), &body))
	assert.NotEmpty(t, body["error"]["message"])
}
