package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"supportchat/internal/config"
	"supportchat/internal/database"
	"supportchat/internal/handlers"
	"supportchat/internal/logging"
	"supportchat/internal/middleware"
	"supportchat/internal/persona"
	"supportchat/internal/router"
	"supportchat/internal/services"
	"supportchat/internal/websocket"
)

func main() {
	// ──── Step 1: Load configuration ────
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ configuration error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Env, cfg.LogLevel)
	logger.Info().Str("env", cfg.Env).Str("provider", cfg.ModelProvider).Msg("✓ configuration loaded")

	p, err := persona.Load(cfg.PersonaPath)
	if err != nil {
		log.Fatal().Err(err).Msg("✗ persona load failed")
	}
	logger.Info().Str("persona", p.Name).Msg("✓ persona loaded")

	ctx := context.Background()

	// ──── Step 2: Initialize model client ────
	model, err := services.New(ctx, cfg, p)
	if err != nil {
		log.Fatal().Err(err).Msg("✗ model client initialization failed")
	}
	defer model.Close()
	logger.Info().Str("model", cfg.ModelName).Str("project", cfg.GCPProject).Str("location", cfg.GCPLocation).Msg("✓ model client initialized")

	// ──── Step 3: Rate limiter ────
	var limiter middleware.Limiter
	switch {
	case cfg.RateLimitPerMin <= 0:
		logger.Warn().Msg("rate limiting disabled")
	case cfg.RedisURL != "":
		redisClient, err := database.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("✗ Redis connection failed")
		}
		defer redisClient.Close()
		limiter = middleware.NewRedisLimiter(redisClient, cfg.RateLimitPerMin, time.Minute)
		logger.Info().Int("per_min", cfg.RateLimitPerMin).Msg("✓ Redis rate limiter connected")
	default:
		limiter = middleware.NewMemoryLimiter(cfg.RateLimitPerMin, time.Minute)
		logger.Info().Int("per_min", cfg.RateLimitPerMin).Msg("✓ in-memory rate limiter ready")
	}

	// ──── Step 4: Start HTTP server ────
	r := router.New(
		logger,
		limiter,
		handlers.NewChatHandler(model),
		websocket.NewRelay(model, cfg.AllowedOrigin),
		cfg.AllowedOrigin,
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Answers are streamed for as long as the model keeps talking.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info().Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown failed")
		}
	}()

	logger.Info().Msgf("✓ support chat relay ready on http://localhost:%s", cfg.Port)
	logger.Info().Msgf("  API: POST http://localhost:%s/api/chat", cfg.Port)
	logger.Info().Msgf("  WS:  ws://localhost:%s/api/chat/ws", cfg.Port)

	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server error")
	}
}
