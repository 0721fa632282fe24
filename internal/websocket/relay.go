package websocket

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"

	"supportchat/internal/metrics"
	"supportchat/internal/middleware"
	"supportchat/internal/models"
	"supportchat/internal/relay"
	"supportchat/internal/services"
)

const (
	maxMessageBytes = 1 << 20
	handshakeWait   = 30 * time.Second
	writeWait       = 10 * time.Second

	transportWS = "ws"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Relay serves one conversation per websocket connection: the client sends
// the conversation as a single text frame and receives the model's answer
// as chunk frames followed by a done or error frame.
type Relay struct {
	model    services.TextStreamer
	upgrader websocket.Upgrader
}

func NewRelay(model services.TextStreamer, allowedOrigin string) *Relay {
	return &Relay{
		model: model,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowedOrigin == "*" || origin == "" || origin == allowedOrigin
			},
		},
	}
}

func (h *Relay) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("request_id", middleware.GetRequestID(r.Context())).Logger()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	conn.SetReadLimit(maxMessageBytes)
	conn.SetReadDeadline(time.Now().Add(handshakeWait))
	_, data, err := conn.ReadMessage()
	if err != nil {
		logger.Debug().Err(err).Msg("websocket closed before a conversation arrived")
		return
	}
	conn.SetReadDeadline(time.Time{})

	var msgs []models.ChatMessage
	if err := json.Unmarshal(data, &msgs); err != nil {
		metrics.RelayRequestsTotal.WithLabelValues(transportWS, metrics.OutcomeBadRequest).Inc()
		finish(conn, models.WSFrame{Type: models.FrameError, Message: "Invalid request body"})
		return
	}
	last, err := relay.LastUserMessage(msgs)
	if err != nil {
		metrics.RelayRequestsTotal.WithLabelValues(transportWS, metrics.OutcomeNoUserMessage).Inc()
		finish(conn, models.WSFrame{Type: models.FrameError, Message: relay.NoUserMessageText})
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	// Frames after the conversation are ignored; a close or read error
	// cancels the upstream call.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	start := time.Now()
	it, err := h.model.StreamText(ctx, last.Content)
	if err != nil {
		logger.Error().Err(err).Msg("failed to open model stream")
		metrics.RelayRequestsTotal.WithLabelValues(transportWS, metrics.OutcomeUpstreamError).Inc()
		finish(conn, models.WSFrame{Type: models.FrameError, Message: "Upstream model error"})
		return
	}

	res, err := relay.Forward(&frameWriter{conn: conn}, nil, relay.Pump(ctx, it))
	metrics.RelayFragmentsTotal.WithLabelValues(transportWS).Add(float64(res.Fragments))
	metrics.RelayBytesTotal.WithLabelValues(transportWS).Add(float64(res.Bytes))
	metrics.RelayStreamSeconds.WithLabelValues(transportWS).Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		metrics.RelayRequestsTotal.WithLabelValues(transportWS, metrics.OutcomeOK).Inc()
		finish(conn, models.WSFrame{Type: models.FrameDone})
	case ctx.Err() != nil:
		logger.Info().Err(err).Int("fragments", res.Fragments).Msg("websocket client went away mid-stream")
		metrics.RelayRequestsTotal.WithLabelValues(transportWS, metrics.OutcomeClientGone).Inc()
	default:
		logger.Error().Err(err).Int("fragments", res.Fragments).Msg("model stream failed")
		metrics.RelayRequestsTotal.WithLabelValues(transportWS, metrics.OutcomeUpstreamError).Inc()
		finish(conn, models.WSFrame{Type: models.FrameError, Message: "Upstream model error"})
	}
}

// frameWriter turns every Write into one chunk frame.
type frameWriter struct {
	conn *websocket.Conn
}

func (f *frameWriter) Write(p []byte) (int, error) {
	if err := writeFrame(f.conn, models.WSFrame{Type: models.FrameChunk, Text: string(p)}); err != nil {
		return 0, err
	}
	return len(p), nil
}

func writeFrame(conn *websocket.Conn, frame models.WSFrame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// finish sends the terminal frame and a normal close.
func finish(conn *websocket.Conn, frame models.WSFrame) {
	if err := writeFrame(conn, frame); err != nil {
		return
	}
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
}
