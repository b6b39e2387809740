package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"mealmapp/internal/app"
	"mealmapp/internal/config"
	"mealmapp/internal/database"
	"mealmapp/internal/llm"
	"mealmapp/internal/logger"
	"mealmapp/internal/metrics"
	"mealmapp/internal/telegram"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	// 1. Load Configuration
	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.TelegramBotToken == "" {
		log.Fatalf("TELEGRAM_BOT_TOKEN environment variable not set")
	}

	zlog, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		Development: cfg.LogDevelopment,
		Service:     "telegram-bot",
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Infrastructure
	db, err := database.NewDB(cfg.DatabasePath, zlog)
	if err != nil {
		zlog.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	var textGen llm.TextGenerator
	if cfg.EstimatorEnabled() {
		gemini, err := llm.NewGeminiClient(ctx, cfg)
		if err != nil {
			zlog.Fatal("failed to create Gemini client", zap.Error(err))
		}
		defer gemini.Close()
		textGen = gemini
	}

	// 3. Services
	collector := metrics.NewCollector()
	application := app.NewApp(cfg, db, textGen, collector, zlog)

	bot, err := telegram.NewBot(cfg, application, zlog.Named("telegram"))
	if err != nil {
		zlog.Fatal("failed to initialize Telegram bot", zap.Error(err))
	}

	// 4. Server with graceful shutdown
	mux := http.NewServeMux()
	bot.RegisterHandlers(mux)
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zlog.Info("telegram bot server listening", zap.Int("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zlog.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		zlog.Error("server forced to shutdown", zap.Error(err))
	}
	zlog.Info("server exiting")
}
