package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/dvloznov/expense-settler/internal/config"
	"github.com/dvloznov/expense-settler/internal/infra/bigquery"
	"github.com/dvloznov/expense-settler/internal/logger"
	"github.com/dvloznov/expense-settler/internal/notionsync"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := logger.New()
		l.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.NewWithLevel(cfg.LogLevel)

	runID := flag.String("run-id", "", "Ledger run to publish (required)")
	notionToken := flag.String("notion-token", cfg.NotionToken, "Notion API token (or set NOTION_TOKEN)")
	notionDBID := flag.String("notion-db-id", cfg.NotionDatabaseID, "Notion database ID (or set NOTION_DATABASE_ID)")
	dryRun := flag.Bool("dry-run", false, "Dry run mode - preview changes without syncing")
	flag.Parse()

	if *runID == "" {
		log.Fatal().Msg("Error: --run-id is required")
	}
	if *notionToken == "" {
		log.Fatal().Msg("Error: --notion-token is required")
	}
	if *notionDBID == "" {
		log.Fatal().Msg("Error: --notion-db-id is required")
	}
	if !cfg.PersistenceEnabled() {
		log.Fatal().Msg("Error: GCP_PROJECT_ID is required to read stored runs")
	}

	// Create context with timeout so CLI doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	repo, err := bigquery.NewSettlementRepository(ctx, cfg.GCPProjectID, cfg.BigQueryDataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize BigQuery repository")
	}
	defer repo.Close()

	run, err := repo.GetLedgerRun(ctx, *runID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load run")
	}
	if run == nil {
		log.Fatal().Str("run_id", *runID).Msg("Run not found")
	}
	if run.Status != bigquery.RunStatusSuccess {
		log.Fatal().Str("run_id", *runID).Str("status", run.Status).Msg("Only successful runs can be published")
	}

	publisher := notionsync.NewPublisher(notionsync.NewNotionClient(*notionToken), *notionDBID, *dryRun)
	if err := publisher.SyncRun(ctx, repo, *runID); err != nil {
		log.Fatal().Err(err).Msg("Sync failed")
	}

	fmt.Println("Sync completed successfully.")
}
