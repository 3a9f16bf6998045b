package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Tanishq67m/EventPulse/internal/config"
	"github.com/Tanishq67m/EventPulse/internal/db"
	"github.com/Tanishq67m/EventPulse/internal/delivery"
	"github.com/Tanishq67m/EventPulse/internal/eventlog"
	"github.com/Tanishq67m/EventPulse/internal/logging"
	"github.com/Tanishq67m/EventPulse/internal/metrics"
	"github.com/Tanishq67m/EventPulse/internal/retry"
	"github.com/Tanishq67m/EventPulse/internal/store"
	"github.com/Tanishq67m/EventPulse/internal/stream"
	"github.com/Tanishq67m/EventPulse/internal/tracing"
)

func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := logging.New("eventpulse-dispatcher")

	shutdownTracing, err := tracing.Init(ctx, "eventpulse-dispatcher")
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

	st := store.New(pool)
	engine := delivery.NewEngine(st, cfg.Delivery.SignatureHeader, logger)

	scheduler := retry.NewScheduler(
		st, st, st, engine,
		cfg.Delivery.RetryTimeout,
		cfg.Retry.PollInterval,
		cfg.Retry.BatchSize,
		logger,
	)
	go scheduler.Run(ctx)

	worker := stream.NewWorker(st, engine, scheduler, st, cfg.Delivery.FirstTimeout, cfg.Delivery.MaxAttempts, logger)
	consumer, err := eventlog.NewConsumer(cfg.NSQ, worker, logger)
	if err != nil {
		logger.Plain().WithError(err).Fatal("event log consumer failed")
	}
	if err := consumer.Connect(cfg.NSQ); err != nil {
		logger.Plain().WithError(err).Fatal("event log connect failed")
	}

	// Health and metrics for the worker process.
	reg := prometheus.NewRegistry()
	metrics.MustRegister(reg)
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","service":"dispatcher"}`))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	httpSrv := &http.Server{Addr: cfg.WorkerHTTPPort, Handler: mux}
	go func() {
		logger.Plain().WithField("addr", httpSrv.Addr).Info("dispatcher HTTP server starting")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Plain().WithError(err).Fatal("dispatcher HTTP server failed")
		}
	}()

	logger.Plain().WithField("instance", worker.InstanceID()).Info("dispatcher started")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)
	<-stop

	logger.Plain().Info("shutting down dispatcher")
	cancel()
	consumer.Stop()
	_ = httpSrv.Shutdown(context.Background())
	logger.Plain().Info("dispatcher stopped")
}
