package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-resale-market.git/internal/config"
	kafkax "github.com/ariefcatur/go-resale-market.git/internal/kafka"
	"github.com/ariefcatur/go-resale-market.git/internal/market"
	"github.com/ariefcatur/go-resale-market.git/internal/notify"
	"github.com/ariefcatur/go-resale-market.git/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &notify.Service{
		Dedup:  notify.RedisDeduper{RDB: rdb, Service: cfg.ServiceName + "-notifier"},
		Mailer: notify.LogMailer{Logger: log.Named("mailer")},
		Logger: log,
	}

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.NotifierGroup, market.TopicPayoutReady, cfg.NotifierWorkers, log)
	go func() {
		log.Info("notifier consumer started",
			zap.String("group", cfg.NotifierGroup),
			zap.String("topic", market.TopicPayoutReady),
			zap.Int("workers", cfg.NotifierWorkers),
		)
		if err := cons.Start(ctx, svc.HandlePayoutReady); err != nil {
			log.Error("consumer exit", zap.Error(err))
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Info("shutting down consumer")
	cancel()
	time.Sleep(500 * time.Millisecond)
}
