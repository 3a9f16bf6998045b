package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Tanishq67m/EventPulse/internal/config"
	"github.com/Tanishq67m/EventPulse/internal/db"
	"github.com/Tanishq67m/EventPulse/internal/dlq"
	"github.com/Tanishq67m/EventPulse/internal/eventlog"
	"github.com/Tanishq67m/EventPulse/internal/gateway"
	"github.com/Tanishq67m/EventPulse/internal/logging"
	"github.com/Tanishq67m/EventPulse/internal/metrics"
	"github.com/Tanishq67m/EventPulse/internal/store"
	"github.com/Tanishq67m/EventPulse/internal/tracing"
)

func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := logging.New("eventpulse-gateway")

	shutdownTracing, err := tracing.Init(ctx, "eventpulse-gateway")
	if err != nil {
		logger.Plain().WithError(err).Fatal("tracing init failed")
	}
	defer shutdownTracing()

	pool, err := db.Connect(ctx, cfg.DSN())
	if err != nil {
		logger.Plain().WithError(err).Fatal("db connect failed")
	}
	defer pool.Close()
	if err := db.Migrate(ctx, pool); err != nil {
		logger.Plain().WithError(err).Fatal("db migrate failed")
	}

	producer, err := eventlog.NewProducer(cfg.NSQ, logger)
	if err != nil {
		logger.Plain().WithError(err).Fatal("event log producer failed")
	}
	defer producer.Stop()

	st := store.New(pool)
	deadLetters := dlq.NewService(st, producer, logger)

	reg := prometheus.NewRegistry()
	metrics.MustRegister(reg)

	// Re-publish persisted-but-unlogged events in the background.
	sweeper := eventlog.NewSweeper(st, producer, cfg.Reconcile.Interval, cfg.Reconcile.MinAge, logger)
	go sweeper.Run(ctx)

	srv := gateway.New(st, deadLetters, producer, pool, reg, cfg.AppName, logger)
	go func() {
		logger.Plain().WithField("addr", cfg.HTTPPort).Info("gateway listening")
		if err := srv.Listen(cfg.HTTPPort); err != nil {
			logger.Plain().WithError(err).Fatal("gateway serve failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)
	<-stop

	logger.Plain().Info("shutting down gateway")
	cancel()
	_ = srv.Shutdown()
	logger.Plain().Info("gateway stopped")
}
