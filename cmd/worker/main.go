package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/expense-settler/internal/app"
	"github.com/dvloznov/expense-settler/internal/config"
	"github.com/dvloznov/expense-settler/internal/jobs"
	"github.com/dvloznov/expense-settler/internal/jobs/inmemory"
	"github.com/dvloznov/expense-settler/internal/logger"
)

// The worker settles a batch of ledgers given on the command line using the
// same job queue as the API server, then exits once every job is done.
func main() {
	cfg, err := config.Load()
	if err != nil {
		l := logger.New()
		l.Fatal().Err(err).Msg("Failed to load configuration")
	}

	publishNotion := flag.Bool("notion", false, "Publish each settlement plan to Notion")
	flag.Parse()

	log := logger.NewWithLevel(cfg.LogLevel)

	sources := flag.Args()
	if len(sources) == 0 {
		log.Fatal().Msg("Usage: worker [-notion] SOURCE...")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	services, err := app.NewServices(ctx, cfg, cfg.PersistenceEnabled(), *publishNotion)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer services.Close()

	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(inmemory.QueueOptions{
		BufferSize: len(sources),
		Workers:    cfg.WorkerCount,
		MaxRetries: cfg.MaxRetries,
	}, jobStore)

	if err := jobQueue.Start(ctx, jobs.NewSettleLedgerHandler(services.Deps())); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	log.Info().Int("jobs", len(sources)).Int("workers", cfg.WorkerCount).Msg("Worker service started")

	for _, source := range sources {
		job := &jobs.SettleLedgerJob{SourceURI: source, PublishNotion: *publishNotion}
		if err := jobQueue.PublishSettleLedger(ctx, job); err != nil {
			log.Fatal().Err(err).Str("source_uri", source).Msg("Failed to enqueue job")
		}
	}

	finished := waitForJobs(ctx, jobStore, len(sources))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	failed := 0
	for _, job := range finished {
		if job.Status == jobs.JobStatusFailed {
			failed++
			fmt.Printf("FAILED     %s  %s\n", job.SourceURI, job.Error)
			continue
		}
		fmt.Printf("%-10s %s  run=%s settlements=%d\n", job.Status, job.SourceURI, job.RunID, job.SettlementCount)
	}

	log.Info().Int("failed", failed).Int("total", len(sources)).Msg("Worker service exited")
	if failed > 0 {
		os.Exit(1)
	}
}

// waitForJobs polls the store until total jobs have finished or ctx ends,
// and returns the latest view of every job.
func waitForJobs(ctx context.Context, store jobs.JobStore, total int) []*jobs.SettleLedgerJob {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		all, err := store.ListJobs(ctx, jobs.JobFilter{})
		if err == nil && countFinished(all) == total {
			return all
		}

		select {
		case <-ctx.Done():
			all, _ := store.ListJobs(context.Background(), jobs.JobFilter{})
			return all
		case <-ticker.C:
		}
	}
}

func countFinished(all []*jobs.SettleLedgerJob) int {
	n := 0
	for _, job := range all {
		if job.Status == jobs.JobStatusCompleted || job.Status == jobs.JobStatusFailed {
			n++
		}
	}
	return n
}
