package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/devrev/txstore/internal/config"
	"github.com/devrev/txstore/internal/messaging"
	"github.com/devrev/txstore/internal/metrics"
	"github.com/devrev/txstore/internal/server"
	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("Starting txstore receiver")

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config.yaml"
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Fatal("Failed to load configuration", zap.Error(err))
		}
		logger.Warn("Config file not found, using defaults", zap.String("path", configPath))
		cfg = config.Default()
	}

	logger.Info("Configuration loaded",
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.String("topic", cfg.Kafka.Topic),
		zap.String("group_id", cfg.Kafka.GroupID))

	// Initialize metrics
	m := metrics.NewMetrics()

	var srv *server.MetricsServer
	if cfg.Metrics.Enabled {
		srv = server.New(&server.Config{Port: cfg.Metrics.Port, Path: cfg.Metrics.Path}, nil, logger)
		srv.Start()
	}

	consumer := messaging.NewConsumer(&cfg.Kafka, m, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	if err := consumer.Run(ctx); err != nil {
		logger.Error("Consumer stopped with error", zap.Error(err))
	}

	if err := consumer.Close(); err != nil {
		logger.Error("Failed to close consumer", zap.Error(err))
	}
	if srv != nil {
		if err := srv.Stop(); err != nil {
			logger.Error("Failed to stop metrics server", zap.Error(err))
		}
	}

	logger.Info("Receiver stopped")
}
