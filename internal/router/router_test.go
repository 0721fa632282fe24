package router

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"supportchat/internal/handlers"
	"supportchat/internal/middleware"
	"supportchat/internal/relay/relaytest"
	"supportchat/internal/websocket"
)

func newTestRouter(limiter middleware.Limiter) (http.Handler, *relaytest.Streamer) {
	model := &relaytest.Streamer{Fragments: []string{"Hello", " there"}}
	return New(
		zerolog.New(io.Discard),
		limiter,
		handlers.NewChatHandler(model),
		websocket.NewRelay(model, "*"),
		"*",
	), model
}

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(method, path, r))
	return rr
}

func TestRouter_Chat(t *testing.T) {
	h, model := newTestRouter(nil)

	rr := serve(h, http.MethodPost, "/api/chat", `[{"role":"user","content":"Hi"}]`)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Hello there", rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get(middleware.RequestIDHeader))
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, []string{"Hi"}, model.Prompts())

	rr = serve(h, http.MethodPost, "/api/chat", `[]`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "No user message found", rr.Body.String())
}

func TestRouter_Preflight(t *testing.T) {
	h, model := newTestRouter(nil)

	rr := serve(h, http.MethodOptions, "/api/chat", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, model.Prompts())
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	h, _ := newTestRouter(nil)

	rr := serve(h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	serve(h, http.MethodPost, "/api/chat", `[{"role":"user","content":"Hi"}]`)
	rr = serve(h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "relay_requests_total")
	assert.Contains(t, rr.Body.String(), "relay_fragments_total")
}

func TestRouter_NotFoundAndMethod(t *testing.T) {
	h, _ := newTestRouter(nil)

	rr := serve(h, http.MethodGet, "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "NOT_FOUND")

	rr = serve(h, http.MethodGet, "/api/chat", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestRouter_RateLimit(t *testing.T) {
	h, _ := newTestRouter(middleware.NewMemoryLimiter(2, time.Minute))

	for i := 0; i < 2; i++ {
		rr := serve(h, http.MethodPost, "/api/chat", `[{"role":"user","content":"Hi"}]`)
		assert.Equal(t, http.StatusOK, rr.Code)
	}
	rr := serve(h, http.MethodPost, "/api/chat", `[{"role":"user","content":"Hi"}]`)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)

	// health is never limited
	assert.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/health", "").Code)
}

func TestRouter_Widget(t *testing.T) {
	h, _ := newTestRouter(nil)

	rr := serve(h, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Headstarter AI Support")
}
