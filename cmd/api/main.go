package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-resale-market.git/internal/checkout"
	"github.com/ariefcatur/go-resale-market.git/internal/config"
	"github.com/ariefcatur/go-resale-market.git/internal/httpx"
	kafkax "github.com/ariefcatur/go-resale-market.git/internal/kafka"
	"github.com/ariefcatur/go-resale-market.git/internal/market"
	"github.com/ariefcatur/go-resale-market.git/internal/memstore"
	"github.com/ariefcatur/go-resale-market.git/internal/payout"
	"github.com/ariefcatur/go-resale-market.git/internal/postgres"
	"github.com/ariefcatur/go-resale-market.git/internal/redisx"
	"github.com/ariefcatur/go-resale-market.git/internal/syncer"
)

type stores struct {
	ledger   market.Ledger
	sales    market.SaleStore
	payouts  market.PayoutStore
	catalog  market.Catalog
	editions market.Editions
}

func openStores(ctx context.Context, cfg config.Config, log *zap.Logger) (stores, func(), error) {
	if cfg.Store == "memory" {
		log.Warn("using in-memory store, data is lost on exit")
		m := memstore.New()
		return stores{m, m, m, m, m}, func() {}, nil
	}

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		return stores{}, nil, err
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		db.Close()
		return stores{}, nil, err
	}
	return pgStores(db), db.Close, nil
}

func pgStores(db *pgxpool.Pool) stores {
	eds := &postgres.EditionRepo{DB: db}
	return stores{
		ledger:   &postgres.ArticleRepo{DB: db},
		sales:    &postgres.SaleRepo{DB: db},
		payouts:  &postgres.PayoutRepo{DB: db},
		catalog:  eds,
		editions: eds,
	}
}

func main() {
	_ = godotenv.Load()

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	cfg := config.Load()
	if err := cfg.Fees().Validate(); err != nil {
		log.Fatal("fee config", zap.Error(err))
	}
	loc, err := cfg.Location()
	if err != nil {
		log.Fatal("timezone config", zap.Error(err))
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// storage
	st, closeStore, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Fatal("store", zap.String("store", cfg.Store), zap.Error(err))
	}
	defer closeStore()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers: audit trail & payout notices
	audit := kafkax.NewProducer(cfg.KafkaBrokers, market.TopicAudit, 1024, log)
	audit.Start(ctx)
	ready := kafkax.NewProducer(cfg.KafkaBrokers, market.TopicPayoutReady, 256, log)
	ready.Start(ctx)
	pub := &kafkax.Publisher{Audit: audit, Ready: ready, Service: cfg.ServiceName}

	window := market.DefaultPrivateSaleWindow(loc)
	h := &httpx.MarketHandler{
		Checkout: &checkout.Service{
			Ledger:   st.ledger,
			Sales:    st.sales,
			Payouts:  st.payouts,
			Editions: st.editions,
			Audit:    pub,
			Window:   window,
			Logger:   log.Named("checkout"),
		},
		Sync: &syncer.Reconciler{
			Ledger:   st.ledger,
			Sales:    st.sales,
			Cache:    redisx.SyncIdempotency{RDB: rdb},
			Audit:    pub,
			Window:   window,
			Logger:   log.Named("sync"),
			MaxBatch: cfg.SyncMaxBatch,
			Workers:  cfg.SyncWorkers,
		},
		Payouts: &payout.Calculator{
			Ledger:   st.ledger,
			Sales:    st.sales,
			Payouts:  st.payouts,
			Catalog:  st.catalog,
			Editions: st.editions,
			Fees:     cfg.Fees(),
			Audit:    pub,
			Notifier: pub,
			Logger:   log.Named("payout"),
		},
		Logger: log,
	}
	router := httpx.NewRouter()
	h.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr), zap.String("store", cfg.Store))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	audit.Close()
	ready.Close()
	audit.WaitClosed()
	ready.WaitClosed()
	cancel()
}
