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

	"github.com/rushabh-runwal/ai-quote-generator/internal/bootstrap"
	"github.com/rushabh-runwal/ai-quote-generator/internal/config"
	"github.com/rushabh-runwal/ai-quote-generator/internal/observability/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger := logging.New(cfg.App.Name+"-worker", cfg.Logging.Level, cfg.Logging.Format)
	if cfg.Queue.Backend != config.BackendNATS {
		log.Fatalf("worker requires queue.backend=%s, got %q", config.BackendNATS, cfg.Queue.Backend)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:              ":" + cfg.Metrics.WorkerPort,
		Handler:           app.PipelineMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("worker_metrics_listening", logging.Fields{"port": cfg.Metrics.WorkerPort})
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker_metrics_server_error", logging.Fields{"error": err.Error()})
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker_subscribed", logging.Fields{"subject": cfg.Queue.NATSSubject, "group": cfg.Queue.NATSQueueGroup})
	if err := app.RunWorkers(ctx); err != nil {
		logger.Error("worker_subscribe_error", logging.Fields{"error": err.Error()})
	}
}
