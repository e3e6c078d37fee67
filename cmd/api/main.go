package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/expense-settler/internal/api"
	"github.com/dvloznov/expense-settler/internal/app"
	"github.com/dvloznov/expense-settler/internal/config"
	"github.com/dvloznov/expense-settler/internal/jobs"
	"github.com/dvloznov/expense-settler/internal/jobs/inmemory"
	"github.com/dvloznov/expense-settler/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := logger.New()
		l.Fatal().Err(err).Msg("Failed to load configuration")
	}

	port := flag.String("port", cfg.HTTPPort, "HTTP server port (or set PORT env)")
	flag.Parse()

	log := logger.NewWithLevel(cfg.LogLevel)
	ctx := logger.WithContext(context.Background(), log)

	services, err := app.NewServices(ctx, cfg, cfg.PersistenceEnabled(), cfg.NotionEnabled())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer services.Close()

	if services.Repo == nil {
		log.Warn().Msg("No GCP project configured - runs are not stored and run history is disabled")
	}
	if cfg.APIKey == "" {
		log.Warn().Msg("API_KEY is not set - /api routes are unauthenticated")
	}

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(inmemory.QueueOptions{
		BufferSize: cfg.QueueSize,
		Workers:    cfg.WorkerCount,
		MaxRetries: cfg.MaxRetries,
	}, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	if err := jobQueue.Start(workerCtx, jobs.NewSettleLedgerHandler(services.Deps())); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job workers")
	}

	routerCfg := api.RouterConfig{
		Log:         log,
		Publisher:   jobQueue,
		JobStore:    jobStore,
		APIKey:      cfg.APIKey,
		CORSOrigins: cfg.CORSOrigins,
	}
	if services.Repo != nil {
		routerCfg.Runs = services.Repo
	}

	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      api.NewRouter(routerCfg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", *port).Int("workers", cfg.WorkerCount).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Let in-flight jobs finish before the worker context goes away.
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Server exited")
}
