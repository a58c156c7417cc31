package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/collectiq-ai/collectiq/internal/api"
	"github.com/collectiq-ai/collectiq/internal/config"
	"github.com/collectiq-ai/collectiq/internal/diarize"
	"github.com/collectiq-ai/collectiq/internal/events"
	"github.com/collectiq-ai/collectiq/internal/openrouter"
	"github.com/collectiq-ai/collectiq/internal/pipeline"
	"github.com/collectiq-ai/collectiq/internal/processor"
	"github.com/collectiq-ai/collectiq/internal/store"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("collectiq starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database connected")

	// OpenRouter gateway
	gateway, err := openrouter.NewClient(cfg.OpenRouterAPIKey, cfg.Referer, cfg.AppTitle, slog.Default())
	if err != nil {
		slog.Error("failed to create openrouter client", "error", err)
		os.Exit(1)
	}

	defaultModel := cfg.DefaultModel
	if defaultModel == "" {
		defaultModel = openrouter.DefaultModel
	}
	if !openrouter.IsKnown(defaultModel) {
		slog.Error("unknown default model", "model", defaultModel)
		os.Exit(1)
	}
	slog.Info("openrouter client ready", "model", defaultModel)

	// Analysis pipeline
	pipe := pipeline.New(db, gateway, defaultModel, slog.Default())

	// NATS bus
	bus, err := events.NewClient(cfg.NatsURL, cfg.NatsToken, slog.Default())
	if err != nil {
		slog.Error("failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer bus.Close()
	slog.Info("NATS connected", "url", cfg.NatsURL)

	// Event processor
	labeler := diarize.NewLabeler(gateway, slog.Default())
	proc := processor.New(db, labeler, pipe, bus, slog.Default())

	if err := bus.Subscribe(events.SubjectSTTCompleted, proc.HandleSTTCompleted); err != nil {
		slog.Error("failed to subscribe to stt events", "error", err)
		os.Exit(1)
	}
	if err := bus.Subscribe(events.SubjectCallTranscribed, proc.HandleCallTranscribed); err != nil {
		slog.Error("failed to subscribe to transcribed events", "error", err)
		os.Exit(1)
	}

	// HTTP API
	srv := api.NewServer(cfg.Port, pipe, db, slog.Default())
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("collectiq ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	slog.Info("collectiq stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
