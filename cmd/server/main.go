package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/rail-booking/internal/booking"
	"github.com/iliyamo/rail-booking/internal/catalog"
	"github.com/iliyamo/rail-booking/internal/config"
	"github.com/iliyamo/rail-booking/internal/database"
	"github.com/iliyamo/rail-booking/internal/handler"
	"github.com/iliyamo/rail-booking/internal/logger"
	"github.com/iliyamo/rail-booking/internal/loyalty"
	"github.com/iliyamo/rail-booking/internal/memstore"
	"github.com/iliyamo/rail-booking/internal/metrics"
	"github.com/iliyamo/rail-booking/internal/middleware"
	"github.com/iliyamo/rail-booking/internal/queue"
	"github.com/iliyamo/rail-booking/internal/repository"
	"github.com/iliyamo/rail-booking/internal/router"
	"github.com/iliyamo/rail-booking/internal/seat"
	"github.com/iliyamo/rail-booking/internal/service"
)

// backend is every storage contract the server wires.
type backend interface {
	booking.Store
	booking.PassengerStore
	catalog.JourneyStore
	loyalty.Store
	service.BookingReader
	service.NotificationStore
	queue.Store
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	zl := logger.NewLogger(cfg.LogLevel)
	defer func() { _ = zl.Sync() }()
	lg := zl.With("service", "rail-booking", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, lg)
	if err != nil {
		lg.Fatal("storage unavailable", "driver", cfg.StorageDriver, "error", err)
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(reg, cfg.MetricsNamespace)

	var notifier booking.Notifier = queue.NewInline(store)
	if cfg.AMQPURL != "" {
		pub := queue.NewPublisher(cfg.AMQPURL, cfg.NotificationQueue, lg)
		defer func() { _ = pub.Close() }()
		notifier = pub
		lg.Info("notifications via broker", "queue", cfg.NotificationQueue)
	}

	ledger := loyalty.NewLedger(store, cfg.StorageTimeout)
	alloc := booking.New(booking.Deps{
		Store:      store,
		Passengers: store,
		Ledger:     ledger,
		Notifier:   notifier,
		Logger:     lg,
		Metrics:    m,
	}, cfg.Booking())
	svc := service.New(service.Deps{
		Catalog:       catalog.New(store, cfg.StorageTimeout),
		Seats:         seat.NewIndex(store, cfg.StorageTimeout),
		Allocator:     alloc,
		Ledger:        ledger,
		Bookings:      store,
		Notifications: store,
		Logger:        lg,
		Timeout:       cfg.StorageTimeout,
	})

	cacheCfg := config.LoadCacheConfig()
	rlCfg := config.LoadRateLimitConfig()
	var rdb *redis.Client
	if cacheCfg.Enabled || rlCfg.Enabled {
		rdb, err = config.NewRedisClient(ctx)
		if err != nil {
			lg.Warn("redis unavailable, caching and rate limiting disabled", "error", err)
		} else {
			defer func() { _ = rdb.Close() }()
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(lg))
	router.Register(e, handler.New(svc, lg), reg, router.Options{
		JWTSecret: cfg.JWTSecret,
		Cache:     middleware.NewRedisCache(cacheCfg, rdb, lg),
		RateLimit: middleware.NewTokenBucket(rlCfg, rdb, lg),
	})

	addr := ":" + cfg.Port
	go func() {
		lg.Info("listening", "addr", addr, "storage", cfg.StorageDriver)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("server stopped", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		lg.Error("shutdown", "error", err)
	}
}

func openStore(ctx context.Context, cfg config.Config, lg logger.Logger) (backend, func(), error) {
	if cfg.StorageDriver == config.DriverMemory {
		st := memstore.New()
		st.SeedDemo(time.Now().UTC(), 7)
		lg.Warn("using in-memory storage with demo data; nothing is persisted")
		return st, func() {}, nil
	}
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.StorageTimeout)
	if err != nil {
		return nil, nil, err
	}
	if cfg.DBMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		lg.Info("schema migrated")
	}
	return repository.NewStore(db), func() { _ = db.Close() }, nil
}
