package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"communityhub/internal/api"
	"communityhub/internal/config"
	"communityhub/internal/db"
	"communityhub/internal/logging"
	"communityhub/internal/presence"
	"communityhub/internal/realtime"
	"communityhub/internal/redis"
	"communityhub/internal/security"
	"communityhub/internal/storage"
	"communityhub/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logging.PrintBanner()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting_api", "service", "communityhub-api", "http_addr", cfg.HTTPAddr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to PostgreSQL
	dbConn, err := db.New(ctx, cfg.DBDSN)
	if err != nil {
		logger.Error("db_connect_failed", "error", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	if err := dbConn.EnsureSchema(ctx); err != nil {
		logger.Error("schema_migrate_failed", "error", err)
		os.Exit(1)
	}

	// Connect to Redis
	redisClient, err := redis.New(cfg.RedisDSN)
	if err != nil {
		logger.Error("redis_connect_failed", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// S3 (or R2) when configured, local simulator otherwise
	var storageClient storage.Client
	if cfg.S3Bucket != "" {
		storageClient, err = storage.NewS3Client(storage.S3Config{
			Endpoint:  cfg.S3Endpoint,
			Bucket:    cfg.S3Bucket,
			PublicURL: cfg.S3PublicURL,
			Region:    cfg.S3Region,
		})
		if err != nil {
			logger.Error("storage_init_failed", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Warn("storage_simulator_enabled", "reason", "S3_BUCKET not set")
		storageClient = storage.NewSimulator("communityhub-dev", cfg.S3Endpoint)
	}

	tokens := security.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	messages := store.NewMessages(dbConn)

	registry := presence.NewRegistry()
	hub := realtime.NewHub(logger)
	gateway := realtime.NewGateway(logger, hub, registry, messages)

	srv := api.NewServer(logger, dbConn, redisClient, cfg, tokens, storageClient, messages, hub, registry, gateway)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_listen_failed", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("api_started", "addr", cfg.HTTPAddr)

	// graceful shutdown
	stop := make(chan os.Signal, 2)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting_down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// stop accepting new http requests; in-flight ones get to finish
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http_shutdown_failed", "error", err)
	} else {
		logger.Info("http_server_stopped")
	}

	if err := redisClient.Close(); err != nil {
		logger.Warn("redis_close_error", "error", err)
	} else {
		logger.Info("redis_closed")
	}

	dbConn.Close()
	logger.Info("db_closed")

	logger.Info("api_stopped")
}
