package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bankops/ledger-service/internal/api"
	"github.com/bankops/ledger-service/internal/config"
	"github.com/bankops/ledger-service/internal/events"
	"github.com/bankops/ledger-service/internal/events/kafka"
	"github.com/bankops/ledger-service/internal/events/logsink"
	"github.com/bankops/ledger-service/internal/events/redisstream"
	"github.com/bankops/ledger-service/internal/interfaces"
	"github.com/bankops/ledger-service/internal/ledger"
	"github.com/bankops/ledger-service/internal/storage/memory"
)

func main() {
	cfg := config.Load()

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	accounts := memory.NewAccountStore()
	eventLog := memory.NewEventLog()

	// The log sink is always on; kafka and redis join the fanout only
	// when configured.
	sinks := []interfaces.EventPublisher{logsink.NewPublisher(logger)}

	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kafkaPublisher.Close()
		sinks = append(sinks, kafkaPublisher)
		logger.Info("kafka sink enabled", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	}

	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
		sinks = append(sinks, redisstream.NewPublisher(redisClient, cfg.EventStream))
		logger.Info("redis sink enabled", zap.String("addr", cfg.RedisAddr), zap.String("stream", cfg.EventStream))
	}

	engine := ledger.NewEngine(accounts, eventLog, events.NewFanout(sinks...), logger)

	mux := http.NewServeMux()
	api.NewHandler(engine, logger).Register(mux)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: mux,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting server", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
