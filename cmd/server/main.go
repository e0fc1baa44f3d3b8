package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"chatroom-backend/internal/config"
	"chatroom-backend/internal/database"
	"chatroom-backend/internal/handlers"
	"chatroom-backend/internal/lib/sl"
	"chatroom-backend/internal/router"
	"chatroom-backend/internal/services"
	"chatroom-backend/internal/transcript"
	"chatroom-backend/internal/websocket"
)

func main() {
	// ──── Step 1: Load Environment Variables ────
	cfg, err := config.Load()
	if err != nil {
		slog.Error("✗ Configuration failed", sl.Err(err))
		os.Exit(1)
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	if cfg.IsProduction() {
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	}
	slog.SetDefault(log)
	log.Info("🚀 Starting chat assistant backend", slog.String("env", cfg.Env))

	// ──── Step 2: Initialize Redis (optional) ────
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.NewRedisClient(cfg.RedisURL)
		if err != nil {
			log.Error("✗ Redis connection failed", sl.Err(err))
			os.Exit(1)
		}
		defer redisClient.Close()
		log.Info("✓ Redis connected, websocket updates use pub/sub")
	} else {
		log.Info("✓ No REDIS_URL, websocket updates stay in-process")
	}

	// ──── Step 3: Initialize Assistant Backend ────
	assistant, closeBackend, err := services.NewAssistantFromConfig(context.Background(), cfg, log)
	if err != nil {
		log.Error("✗ Assistant backend initialization failed", sl.Err(err))
		os.Exit(1)
	}
	defer closeBackend()
	log.Info("✓ Assistant backend initialized",
		slog.String("backend", cfg.AssistantBackend),
		slog.String("decision_model", cfg.GeminiDecisionModel),
		slog.String("image_model", cfg.GeminiImageModel),
		sl.Secret(cfg.GeminiAPIKey),
	)

	// ──── Step 4: Transcript, WebSocket Hub, Handlers ────
	store := transcript.NewStore()
	wsHub := websocket.NewHub(redisClient, store.Exists, log)
	chatHandler := handlers.NewChatHandler(assistant, store, wsHub, cfg.AssistantName, cfg.RequestTimeout, log)

	// ──── Step 5: Start HTTP Server ────
	r := router.New(chatHandler, wsHub, cfg.FrontendURL)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info("Shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Info(fmt.Sprintf("✓ Chat backend ready on http://localhost:%s", cfg.Port))
	log.Info(fmt.Sprintf("  API: http://localhost:%s/api/v1", cfg.Port))
	log.Info(fmt.Sprintf("  WS:  ws://localhost:%s/api/v1/conversations/{id}/ws", cfg.Port))

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Error("Server error", sl.Err(err))
		os.Exit(1)
	}
}
