package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"supportchat/internal/handlers"
	"supportchat/internal/metrics"
	"supportchat/internal/middleware"
	"supportchat/internal/web"
	"supportchat/internal/websocket"
)

// New wires the HTTP surface. A nil limiter disables rate limiting.
func New(
	logger zerolog.Logger,
	limiter middleware.Limiter,
	chatHandler *handlers.ChatHandler,
	wsRelay *websocket.Relay,
	allowedOrigin string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)

	r.NotFound(handlers.NotFound)
	r.MethodNotAllowed(handlers.MethodNotAllowed)

	r.Get("/health", handlers.Health)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.CORS(allowedOrigin))
		if limiter != nil {
			r.Use(middleware.RateLimit(limiter))
		}

		r.Post("/chat", chatHandler.Relay)
		r.Get("/chat/ws", wsRelay.HandleWebSocket)
	})

	// Support widget
	r.Handle("/*", web.Handler())

	return r
}
