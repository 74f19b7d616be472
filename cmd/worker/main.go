package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/maroco/major-mentor/internal/bootstrap"
	"github.com/maroco/major-mentor/internal/config"
	"github.com/maroco/major-mentor/internal/observability/logging"
	"github.com/maroco/major-mentor/internal/observability/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger := logging.New("mentor-worker", cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("mentor-worker")
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("worker_metrics_server_error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	rebuild := func(rebuildCtx context.Context, version string) error {
		workerMetrics.StartRebuild()
		start := time.Now()

		buildCtx, cancel := context.WithTimeout(rebuildCtx, 5*time.Minute)
		defer cancel()
		err := app.Cache.Rebuild(buildCtx)

		workerMetrics.FinishRebuild("mentor-worker", time.Since(start), err)
		if err != nil {
			return err
		}
		workerMetrics.SetCachedNames(app.Cache.Size())
		logger.Info("cache_rebuild_done", "index_version", version, "cached_names", app.Cache.Size())
		return nil
	}

	// First build on startup; the index may have moved while the worker
	// was down.
	if err := rebuild(ctx, "startup"); err != nil {
		logger.Warn("initial_cache_rebuild_failed", "error", err)
	}

	logger.Info("worker_subscribed", "subject", cfg.NATSSubject)
	if err := app.Queue.SubscribeIndexUpdated(ctx, rebuild); err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}
