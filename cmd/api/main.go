package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"golang.org/x/net/netutil"

	httpadapter "github.com/rushabh-runwal/ai-quote-generator/internal/adapters/http"
	"github.com/rushabh-runwal/ai-quote-generator/internal/bootstrap"
	"github.com/rushabh-runwal/ai-quote-generator/internal/config"
	"github.com/rushabh-runwal/ai-quote-generator/internal/observability/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger := logging.New(cfg.App.Name, cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	router := httpadapter.NewRouter(cfg.Server, httpadapter.RouterDeps{
		Quotes:   app.QuoteService,
		Reader:   app.QuoteService,
		Archive:  app.Recorder,
		Exporter: app.Exporter,
		Metrics:  app.HTTPMetrics,
		Logger:   logger,
	}).Handler()
	server := &http.Server{
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	listener, err := net.Listen("tcp", ":"+cfg.Server.Port)
	if err != nil {
		log.Fatalf("listen error: %v", err)
	}
	if cfg.Server.MaxConnections > 0 {
		listener = netutil.LimitListener(listener, cfg.Server.MaxConnections)
	}

	var workers sync.WaitGroup
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	if app.InProcessQueue() {
		workers.Add(1)
		go func() {
			defer workers.Done()
			if err := app.RunWorkers(workerCtx); err != nil {
				logger.Error("compression_workers_stopped", logging.Fields{"error": err.Error()})
			}
		}()
	}

	go func() {
		logger.Info("api_listening", logging.Fields{"port": cfg.Server.Port, "environment": cfg.App.Environment})
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api_server_error", logging.Fields{"error": err.Error()})
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("api_shutting_down", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api_shutdown_error", logging.Fields{"error": err.Error()})
	}

	// Accepted quotes may still have compression jobs queued; let them drain.
	stopWorkers()
	workers.Wait()
}
