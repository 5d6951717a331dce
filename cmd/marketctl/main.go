package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-resale-market.git/internal/cli"
	"github.com/ariefcatur/go-resale-market.git/internal/config"
	kafkax "github.com/ariefcatur/go-resale-market.git/internal/kafka"
	"github.com/ariefcatur/go-resale-market.git/internal/market"
	"github.com/ariefcatur/go-resale-market.git/internal/payout"
	"github.com/ariefcatur/go-resale-market.git/internal/postgres"
)

func main() {
	_ = godotenv.Load()

	log, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	cfg := config.Load()
	root := cli.NewRootCommand(func(ctx context.Context, opts *cli.RootOptions) (*cli.Backend, error) {
		return openBackend(ctx, cfg, opts, log)
	})
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func openBackend(ctx context.Context, cfg config.Config, opts *cli.RootOptions, log *zap.Logger) (*cli.Backend, error) {
	if err := cfg.Fees().Validate(); err != nil {
		return nil, err
	}
	dsn := opts.DSN
	if dsn == "" {
		dsn = cfg.PostgresDSN
	}
	db, err := postgres.Connect(ctx, dsn)
	if err != nil {
		return nil, err
	}

	// producers run on a background context so Close can flush them
	pctx, stop := context.WithCancel(context.Background())
	audit := kafkax.NewProducer(cfg.KafkaBrokers, market.TopicAudit, 64, log)
	audit.Start(pctx)
	ready := kafkax.NewProducer(cfg.KafkaBrokers, market.TopicPayoutReady, 64, log)
	ready.Start(pctx)
	pub := &kafkax.Publisher{Audit: audit, Ready: ready, Service: cfg.ServiceName + "-ctl"}

	arts := &postgres.ArticleRepo{DB: db}
	sales := &postgres.SaleRepo{DB: db}
	pays := &postgres.PayoutRepo{DB: db}
	eds := &postgres.EditionRepo{DB: db}
	return &cli.Backend{
		Editions: eds,
		Payouts: &payout.Calculator{
			Ledger:   arts,
			Sales:    sales,
			Payouts:  pays,
			Catalog:  eds,
			Editions: eds,
			Fees:     cfg.Fees(),
			Audit:    pub,
			Notifier: pub,
			Logger:   log.Named("payout"),
		},
		Migrate: func(ctx context.Context) error { return postgres.Migrate(ctx, db) },
		Close: func() {
			audit.Close()
			ready.Close()
			audit.WaitClosed()
			ready.WaitClosed()
			stop()
			db.Close()
		},
	}, nil
}
