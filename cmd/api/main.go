package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/ariefcatur/marketplace-orders/internal/access"
	"github.com/ariefcatur/marketplace-orders/internal/config"
	"github.com/ariefcatur/marketplace-orders/internal/fulfillment"
	"github.com/ariefcatur/marketplace-orders/internal/httpx"
	"github.com/ariefcatur/marketplace-orders/internal/inventory"
	kafkax "github.com/ariefcatur/marketplace-orders/internal/kafka"
	"github.com/ariefcatur/marketplace-orders/internal/memstore"
	"github.com/ariefcatur/marketplace-orders/internal/metrics"
	"github.com/ariefcatur/marketplace-orders/internal/observability"
	"github.com/ariefcatur/marketplace-orders/internal/orders"
	"github.com/ariefcatur/marketplace-orders/internal/postgres"
	"github.com/ariefcatur/marketplace-orders/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := observability.NewLogger(cfg.LogLevel, cfg.ServiceName)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("api exited", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.ServiceName, cfg.OtelEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		_ = shutdownTracing(sctx)
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	deps := fulfillment.Deps{
		Metrics: metrics.NewOrderMetrics(reg),
		Log:     log,
	}
	handler := &httpx.OrdersHandler{Log: log, Timeout: cfg.RequestTimeout}
	var producers []*kafkax.Producer

	switch cfg.StoreBackend {
	case config.BackendMemory:
		// standalone mode: no Redis, no Kafka
		store := memstore.New()
		if cfg.SeedFile != "" {
			seed, err := memstore.LoadSeedFile(cfg.SeedFile)
			if err != nil {
				return err
			}
			if err := store.Apply(seed); err != nil {
				return fmt.Errorf("seed %s: %w", cfg.SeedFile, err)
			}
			log.Info("seed loaded", zap.Int("users", len(seed.Users)), zap.Int("products", len(seed.Products)))
		}
		deps.Products, deps.Orders, deps.Users, deps.Ledger = store, store, store, store
		handler.Users = store

	case config.BackendPostgres:
		db, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}

		rdb := redisx.New(cfg.RedisAddr)
		defer rdb.Close()

		placed := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderPlaced, 1024, log)
		changed := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderStatusChanged, 1024, log)
		producers = append(producers, placed, changed)
		for _, p := range producers {
			p.Start()
		}

		users := &access.UserRepo{DB: db}
		deps.Products = &orders.ProductRepo{DB: db}
		deps.Orders = redisx.NewCachedOrders(&orders.Repo{DB: db}, rdb, log)
		deps.Users = users
		deps.Ledger = &inventory.PGLedger{DB: db}
		deps.Events = &fulfillment.KafkaPublisher{Placed: placed, StatusChanged: changed, Service: cfg.ServiceName}
		handler.Users = users
		idem := redisx.NewIdempotency(rdb)
		idem.PendingTTL = 2 * cfg.RequestTimeout
		handler.Idem = idem
	}

	handler.Service = fulfillment.NewService(deps)
	router := httpx.NewRouter(httpx.RouterConfig{
		Log:      log,
		Metrics:  metrics.NewServerMetrics(reg, "api"),
		Gatherer: reg,
		Timeout:  cfg.RequestTimeout * 3,
	})
	handler.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		log.Info("http listening", zap.String("addr", cfg.HTTPAddr), zap.String("backend", cfg.StoreBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case err := <-errCh:
		return err
	}
	log.Info("shutting down")

	sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer scancel()
	_ = srv.Shutdown(sctx)
	for _, p := range producers {
		p.Close()
	}
	for _, p := range producers {
		p.WaitClosed()
	}
	return nil
}
