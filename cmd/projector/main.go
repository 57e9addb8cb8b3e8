package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/ariefcatur/go-shop-core/internal/config"
	kafkax "github.com/ariefcatur/go-shop-core/internal/kafka"
	"github.com/ariefcatur/go-shop-core/internal/logging"
	"github.com/ariefcatur/go-shop-core/internal/orders"
	"github.com/ariefcatur/go-shop-core/internal/projector"
	"github.com/ariefcatur/go-shop-core/internal/redisx"
	"github.com/ariefcatur/go-shop-core/internal/tracing"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger, err := logging.NewLogger(cfg.ServiceName+"-projector", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	tracing.Setup()

	if cfg.RedisAddr == "" || len(cfg.KafkaBrokers) == 0 {
		logger.Fatal("projector needs REDIS_ADDR and KAFKA_BROKERS")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	if err := redisx.Ping(ctx, rdb); err != nil {
		logger.Fatal("redis", zap.Error(err))
	}

	svc := &projector.Service{
		Dedup: redisx.NewDedup(rdb, "projector"),
		Cache: redisx.NewOrderCache(rdb),
		Log:   logger,
	}

	// Consumers: satu per topic, group yang sama
	var wg sync.WaitGroup
	for _, topic := range []string{orders.TopicOrderCreated, orders.TopicPaymentRecorded} {
		cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.ProjectorGroup, topic, cfg.ProjectorWorkers, logger)
		wg.Add(1)
		go func(topic string) {
			defer wg.Done()
			logger.Info("consumer started", zap.String("topic", topic),
				zap.String("group", cfg.ProjectorGroup), zap.Int("workers", cfg.ProjectorWorkers))
			if err := cons.Start(ctx, svc.Handle); err != nil {
				logger.Error("consumer exit", zap.String("topic", topic), zap.Error(err))
				cancel()
			}
		}(topic)
	}

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	logger.Info("shutting down consumers")
	cancel()
	wg.Wait()
}
