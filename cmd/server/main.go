package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tidechain/matchbook/config"
	"github.com/tidechain/matchbook/pkg/backend/redis"
	"github.com/tidechain/matchbook/pkg/db/queue"
	"github.com/tidechain/matchbook/pkg/logging"
	"github.com/tidechain/matchbook/pkg/messaging/kafka"
	"github.com/tidechain/matchbook/pkg/otel"
	"github.com/tidechain/matchbook/pkg/server"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logging.Setup(logging.Config{
		Level:  cfg.Server.LogLevel,
		Pretty: cfg.Server.LogFormat == "pretty",
	})
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.Server.LogFormat == "pretty" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	ctx := logger.WithContext(context.Background())

	if cfg.Kafka.Producer == "kafka-go" {
		kafka.ConfigureSender(cfg.Kafka.BrokerAddr, cfg.Kafka.Topic)
		logger.Info().Str("broker", cfg.Kafka.BrokerAddr).Msg("Publishing trades with the kafka-go writer")
	}

	redis.SetDefaultRedisOptions(&redis.RedisOptions{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	manager := server.NewOrderBookManager()
	defer manager.Close()

	if _, err := manager.CreateMemoryOrderBook(ctx, "default"); err != nil {
		logger.Fatal().Err(err).Msg("Failed to create default order book")
	}
	logger.Info().Str("name", "default").Msg("Created default order book")

	// Optional developer convenience: tail the trade queue and pretty print
	// every message.
	var kafkaConsumer *queue.QueueMessageConsumer
	kafkaConsumer, err = kafka.SetupConsumer(ctx, logger)
	if err == nil && kafkaConsumer != nil {
		defer kafkaConsumer.Close()
	}

	cleanup, err := otel.Init(otel.Config{
		ServiceName:      "matchbook",
		ServiceVersion:   "1.0.0",
		Endpoint:         cfg.Otel.Endpoint,
		CollectorEnabled: cfg.Otel.CollectorEnabled,
	})
	if err != nil {
		log.Fatalf("Failed to initialize OpenTelemetry: %v", err)
	}
	defer cleanup()

	if cfg.Otel.CollectorEnabled {
		if err := otel.StartRuntimeMetrics(); err != nil {
			logger.Warn().Err(err).Msg("Failed to start runtime metrics")
		}
	}

	if cfg.Server.LogFormat != "pretty" {
		gin.SetMode(gin.ReleaseMode)
	}
	httpService := server.NewHTTPService(manager)
	httpServer := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: httpService.Router(),
	}

	go func() {
		logger.Info().Str("addr", cfg.Server.HTTPAddr).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to serve HTTP")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh

	logger.Info().Str("signal", sig.String()).Msg("Received signal, shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	logger.Info().Msg("Server shutdown complete")
}
