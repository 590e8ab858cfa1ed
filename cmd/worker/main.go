// Command worker consumes booking notifications from RabbitMQ and stores
// them in the passenger inbox with status DELIVERED.
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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/rail-booking/internal/config"
	"github.com/iliyamo/rail-booking/internal/database"
	"github.com/iliyamo/rail-booking/internal/logger"
	"github.com/iliyamo/rail-booking/internal/metrics"
	"github.com/iliyamo/rail-booking/internal/queue"
	"github.com/iliyamo/rail-booking/internal/repository"
)

func main() {
	cfg, err := config.LoadWorker()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	zl := logger.NewLogger(cfg.LogLevel)
	defer func() { _ = zl.Sync() }()
	lg := zl.With("service", "rail-booking-worker", "env", cfg.Env)

	if cfg.AMQPURL == "" {
		lg.Fatal("RABBITMQ_URL or AMQP_URL is required")
	}
	if cfg.StorageDriver != config.DriverMySQL {
		lg.Fatal("the worker needs STORAGE_DRIVER=mysql", "driver", cfg.StorageDriver)
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.StorageTimeout)
	if err != nil {
		lg.Fatal("database unavailable", "error", err)
	}
	defer db.Close()

	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg, cfg.MetricsNamespace)
	srv := &http.Server{
		Addr:              cfg.WorkerMetricsAddr,
		Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Error("metrics server stopped", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := queue.NewConsumer(cfg.AMQPURL, cfg.NotificationQueue, repository.NewNotificationRepo(db), lg, m, cfg.StorageTimeout)
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		lg.Error("consumer stopped", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
