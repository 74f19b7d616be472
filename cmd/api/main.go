package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/maroco/major-mentor/internal/adapters/http"
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
	logger := logging.New("mentor-api", cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	// Matching runs lexical-only until the cache warms, so this does
	// not block serving.
	go app.WarmCache(ctx)

	router := httpadapter.NewRouter(
		app.ChatUC,
		app.Gateway,
		app.Resolver,
		app.Directory,
		metrics.NewHTTPServerMetrics("mentor-api"),
		logger,
		httpadapter.RouterOptions{
			Transcripts:    app.Transcripts,
			RateLimitRPS:   cfg.HTTPRateLimitRPS,
			RateLimitBurst: cfg.HTTPRateLimitBurst,
			MaxInFlight:    cfg.HTTPMaxInFlight,
		},
	)

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("api_listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("api server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api_shutdown_error", "error", err)
	}
}
