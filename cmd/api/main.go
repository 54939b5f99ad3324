package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/joshua-takyi/gigboard/internal/config"
	"github.com/joshua-takyi/gigboard/internal/connect"
	"github.com/joshua-takyi/gigboard/internal/container"
	"github.com/joshua-takyi/gigboard/internal/helpers"
	"github.com/joshua-takyi/gigboard/internal/metrics"
	"github.com/joshua-takyi/gigboard/internal/routes"
	"github.com/joshua-takyi/gigboard/internal/services"
)

func main() {
	// Load environment variables
	_ = godotenv.Load(".env.local")

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg)
	logger.Info("Starting gigboard API server", "environment", cfg.Environment)

	rootCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	mongoClient, err := connect.MongoDBConnect(rootCtx, cfg)
	if err != nil {
		logger.Error("Failed to connect to MongoDB", "error", err)
		os.Exit(1)
	}
	logger.Info("Connected to MongoDB successfully", "database", cfg.MongoDBName)

	redisClient, err := connect.RedisConnect(rootCtx, cfg)
	if err != nil {
		logger.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	if redisClient == nil {
		logger.Warn("REDIS_ADDR not set, verification rate limiting disabled")
	}

	twilioClient := connect.TwilioClient(cfg)
	if twilioClient == nil {
		logger.Warn("Twilio Verify not configured, verification codes are issued locally")
	}

	tokens := helpers.NewTokenManager(cfg.JWTSecret, cfg.JWTExpiry)
	if cfg.JWKSURL != "" {
		if err := tokens.WithJWKS(rootCtx, cfg.JWKSURL, logger); err != nil {
			logger.Error("Failed to load JWKS", "error", err)
			os.Exit(1)
		}
	}
	defer tokens.Close()

	appContainer := container.NewContainer(logger, cfg, mongoClient, redisClient, twilioClient, tokens, metrics.New())

	indexCtx, cancelIndex := context.WithTimeout(rootCtx, 30*time.Second)
	if err := appContainer.Repo.EnsureIndexes(indexCtx); err != nil {
		logger.Error("Failed to create indexes", "error", err)
	}
	cancelIndex()

	scheduler, err := services.NewSweepScheduler(appContainer.JobService, logger, cfg.SweepSchedule, time.Minute)
	if err != nil {
		logger.Error("Failed to schedule job sweep", "error", err)
		os.Exit(1)
	}
	scheduler.Start()

	router := routes.SetupRoutes(appContainer)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	// Give outstanding requests 30 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
	scheduler.Stop(ctx)
	if err := appContainer.Shutdown(ctx); err != nil {
		logger.Error("Background tasks did not finish", "error", err)
	}
	stopBackground()

	if err := connect.RedisDisconnect(redisClient); err != nil {
		logger.Error("Error disconnecting from Redis", "error", err)
	}
	if err := connect.MongoDBDisconnect(mongoClient); err != nil {
		logger.Error("Error disconnecting from MongoDB", "error", err)
	}

	logger.Info("Server exited")
}

func setupLogger(cfg *config.Config) *slog.Logger {
	var handler slog.Handler

	if cfg.IsProduction() {
		// JSON logging for production
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: logLevel(cfg.LogLevel, slog.LevelInfo),
		})
	} else {
		// Human-readable logging for development
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: logLevel(cfg.LogLevel, slog.LevelDebug),
		})
	}

	return slog.New(handler)
}

func logLevel(raw string, fallback slog.Level) slog.Level {
	var level slog.Level
	if raw == "" || level.UnmarshalText([]byte(strings.ToUpper(raw))) != nil {
		return fallback
	}
	return level
}
