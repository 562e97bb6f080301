package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ragchat-io/ragchat/internal/api"
	"github.com/ragchat-io/ragchat/internal/api/chat"
	"github.com/ragchat-io/ragchat/internal/api/middleware"
	"github.com/ragchat-io/ragchat/internal/config"
	"github.com/ragchat-io/ragchat/internal/service"
)

var (
	configPath = flag.String("config", "", "Path to config file")
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Initialize pipeline services
	validator := service.NewValidator(cfg.Limits)
	retrieval := service.NewRetrievalService(cfg.Search, logger)
	generation := service.NewGenerationService(cfg.LLM, logger)
	chatService := service.NewChatService(cfg, retrieval, generation, logger)

	// Optional redis-backed rate limiting
	var limiter middleware.Limiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRedisLimiter(cfg.RateLimit)
		logger.Info("Rate limiting enabled",
			zap.String("redis", cfg.RateLimit.RedisAddr),
			zap.Int("requests_per_minute", cfg.RateLimit.RequestsPerMinute),
		)
	}

	// Setup router
	chatHandler := chat.NewHandler(validator, chatService, logger)
	router := api.SetupRouter(chatHandler, api.RouterConfig{
		Config:  cfg,
		Limiter: limiter,
	}, logger)

	// Create HTTP server
	srv := &http.Server{
		Addr:        cfg.Address(),
		Handler:     router,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
		// No WriteTimeout: chat responses stream for as long as the
		// model generates.
	}

	// Start server in goroutine
	go func() {
		logger.Info("Starting ragchat server",
			zap.String("address", cfg.Address()),
			zap.String("base_url", cfg.Server.BaseURL),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
