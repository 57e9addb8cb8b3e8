package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-shop-core/internal/config"
	"github.com/ariefcatur/go-shop-core/internal/httpx"
	kafkax "github.com/ariefcatur/go-shop-core/internal/kafka"
	"github.com/ariefcatur/go-shop-core/internal/logging"
	"github.com/ariefcatur/go-shop-core/internal/memory"
	"github.com/ariefcatur/go-shop-core/internal/orders"
	"github.com/ariefcatur/go-shop-core/internal/postgres"
	"github.com/ariefcatur/go-shop-core/internal/redisx"
	"github.com/ariefcatur/go-shop-core/internal/tracing"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger, err := logging.NewLogger(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)
	tracing.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Store
	var store orders.Store
	switch cfg.StoreDriver {
	case "memory":
		logger.Warn("using in-memory store; data is lost on exit")
		store = memory.NewStore()
	default:
		db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.DBMaxConns)
		if err != nil {
			logger.Fatal("db connect", zap.Error(err))
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			logger.Fatal("db migrate", zap.Error(err))
		}
		store = &orders.Repo{DB: db}
	}

	// Redis (opsional)
	var cache httpx.OrderCache
	if cfg.RedisAddr != "" {
		rdb := redisx.New(cfg.RedisAddr)
		defer rdb.Close()
		if err := redisx.Ping(ctx, rdb); err != nil {
			logger.Fatal("redis", zap.Error(err))
		}
		cache = redisx.NewOrderCache(rdb)
	}

	// Kafka producers (opsional), satu per topic
	var pub orders.Publisher
	var producers []*kafkax.Producer
	if len(cfg.KafkaBrokers) > 0 {
		po := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCreated, 1024, logger)
		pp := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicPaymentRecorded, 1024, logger)
		producers = append(producers, po, pp)
		for _, p := range producers {
			p.Start(ctx)
		}
		pub = kafkax.NewEventPublisher(po, pp, cfg.ServiceName, logger)
	}

	// Services & handlers
	router := httpx.NewRouter(logger)
	(&httpx.ProductsHandler{Catalog: orders.NewCatalog(store)}).Register(router)
	(&httpx.CartHandler{Cart: orders.NewCart(store)}).Register(router)
	assembler := orders.NewAssembler(store, pub, logger)
	(&httpx.OrdersHandler{
		Assembler: assembler,
		Gateway:   orders.NewGateway(cfg.PaymentCurrency, cfg.DefaultProvider),
		Cache:     cache,
	}).Register(router)
	(&httpx.PaymentsHandler{
		Ledger: orders.NewLedger(store, pub, logger),
		Orders: assembler,
		Cache:  cache,
	}).Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("http listening", zap.String("addr", cfg.HTTPAddr), zap.String("store", cfg.StoreDriver),
			zap.Bool("cache", cache != nil), zap.Bool("events", pub != nil))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	for _, p := range producers {
		p.Close() // flush & close writer
	}
	for _, p := range producers {
		p.WaitClosed()
	}
}
