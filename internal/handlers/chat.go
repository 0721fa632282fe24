package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"supportchat/internal/metrics"
	"supportchat/internal/middleware"
	"supportchat/internal/models"
	"supportchat/internal/relay"
	"supportchat/internal/services"
)

const (
	maxBodyBytes = 1 << 20

	invalidBodyText   = "Invalid request body"
	upstreamErrorText = "Upstream model error"

	transportHTTP = "http"
)

type ChatHandler struct {
	model services.TextStreamer
}

func NewChatHandler(model services.TextStreamer) *ChatHandler {
	return &ChatHandler{model: model}
}

// Relay streams the model's answer to the conversation's last user message
// back as chunked text/plain.
func (h *ChatHandler) Relay(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("request_id", middleware.GetRequestID(r.Context())).Logger()

	var msgs []models.ChatMessage
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&msgs); err != nil {
		metrics.RelayRequestsTotal.WithLabelValues(transportHTTP, metrics.OutcomeBadRequest).Inc()
		writeText(w, http.StatusBadRequest, invalidBodyText)
		return
	}

	last, err := relay.LastUserMessage(msgs)
	if err != nil {
		metrics.RelayRequestsTotal.WithLabelValues(transportHTTP, metrics.OutcomeNoUserMessage).Inc()
		writeText(w, http.StatusBadRequest, relay.NoUserMessageText)
		return
	}

	start := time.Now()
	it, err := h.model.StreamText(r.Context(), last.Content)
	if err != nil {
		logger.Error().Err(err).Msg("failed to open model stream")
		metrics.RelayRequestsTotal.WithLabelValues(transportHTTP, metrics.OutcomeUpstreamError).Inc()
		writeText(w, http.StatusBadGateway, upstreamErrorText)
		return
	}

	sw := newStreamWriter(w)
	res, err := relay.Forward(sw, sw.Flush, relay.Pump(r.Context(), it))

	metrics.RelayFragmentsTotal.WithLabelValues(transportHTTP).Add(float64(res.Fragments))
	metrics.RelayBytesTotal.WithLabelValues(transportHTTP).Add(float64(res.Bytes))
	metrics.RelayStreamSeconds.WithLabelValues(transportHTTP).Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		// An upstream that produced nothing still gets a well-formed empty stream.
		sw.begin()
		metrics.RelayRequestsTotal.WithLabelValues(transportHTTP, metrics.OutcomeOK).Inc()
	case r.Context().Err() != nil || !errors.Is(err, relay.ErrUpstream):
		logger.Info().Err(err).Int("fragments", res.Fragments).Msg("client went away mid-stream")
		metrics.RelayRequestsTotal.WithLabelValues(transportHTTP, metrics.OutcomeClientGone).Inc()
	default:
		logger.Error().Err(err).Int("fragments", res.Fragments).Msg("model stream failed")
		metrics.RelayRequestsTotal.WithLabelValues(transportHTTP, metrics.OutcomeUpstreamError).Inc()
		if !sw.started {
			writeText(w, http.StatusBadGateway, upstreamErrorText)
			return
		}
		// Headers are gone; cut the connection so the client sees a
		// truncated body instead of a clean end of stream.
		panic(http.ErrAbortHandler)
	}
}

// streamWriter sends the success headers lazily, on the first fragment, so
// an upstream failure before any text can still become a 502.
type streamWriter struct {
	w       http.ResponseWriter
	rc      *http.ResponseController
	started bool
}

func newStreamWriter(w http.ResponseWriter) *streamWriter {
	return &streamWriter{w: w, rc: http.NewResponseController(w)}
}

func (s *streamWriter) begin() {
	if s.started {
		return
	}
	s.started = true
	h := s.w.Header()
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("Cache-Control", "no-cache")
	h.Set("X-Content-Type-Options", "nosniff")
	s.w.WriteHeader(http.StatusOK)
}

func (s *streamWriter) Write(p []byte) (int, error) {
	s.begin()
	return s.w.Write(p)
}

func (s *streamWriter) Flush() error {
	err := s.rc.Flush()
	if errors.Is(err, http.ErrNotSupported) {
		return nil
	}
	return err
}
