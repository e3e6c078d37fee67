package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/expense-settler/internal/app"
	"github.com/dvloznov/expense-settler/internal/config"
	"github.com/dvloznov/expense-settler/internal/gcsuploader"
	infraBQ "github.com/dvloznov/expense-settler/internal/infra/bigquery"
	"github.com/dvloznov/expense-settler/internal/logger"
	"github.com/dvloznov/expense-settler/internal/pipeline"
	"github.com/dvloznov/expense-settler/internal/report"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Logs go to stderr so report output on stdout stays clean.
	log := logger.NewWithLevel(cfg.LogLevel).Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	})

	switch os.Args[1] {
	case "settle":
		runSettle(cfg, log)
	case "upload":
		runUpload(cfg, log)
	case "runs":
		runList(cfg, log)
	case "inspect":
		runInspect(cfg, log)
	case "delete":
		runDelete(cfg, log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Expense Settler CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  settle    Compute balances and settlements for a ledger file")
	fmt.Println("  upload    Upload a ledger file to GCS")
	fmt.Println("  runs      List recent stored runs")
	fmt.Println("  inspect   Show a stored run with its balances and settlements")
	fmt.Println("  delete    Delete a stored run and its results")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

type settleOutput struct {
	RunID       string                  `json:"run_id,omitempty"`
	Balances    []report.BalanceView    `json:"balances"`
	Settlements []report.SettlementView `json:"settlements"`
	Warnings    []report.WarningView    `json:"warnings"`
	Residual    string                  `json:"residual,omitempty"`
}

func runSettle(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("settle", flag.ExitOnError)
	filePath := fs.String("file", "", "Path to a local ledger file (CSV, PDF or image)")
	gcsURI := fs.String("gcs-uri", "", "GCS URI of the ledger file")
	persist := fs.Bool("persist", false, "Store the run in BigQuery")
	notion := fs.Bool("notion", false, "Publish settlements to Notion")
	strict := fs.Bool("strict", false, "Fail when the plan leaves residual balances")
	asJSON := fs.Bool("json", false, "Print JSON instead of text")
	fs.Parse(os.Args[2:])

	source := *filePath
	if *gcsURI != "" {
		source = *gcsURI
	}
	if source == "" || (*filePath != "" && *gcsURI != "") {
		log.Fatal().Msg("Usage: cli settle (-file PATH | -gcs-uri gs://BUCKET/OBJECT)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	services, err := app.NewServices(ctx, cfg, *persist, *notion)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer services.Close()

	deps := services.Deps()
	deps.StrictVerify = *strict

	result, err := pipeline.SettleLedger(ctx, source, deps)
	if err != nil && result == nil {
		log.Fatal().Err(err).Str("source", source).Msg("Settlement failed")
	}

	if *asJSON {
		out := settleOutput{
			RunID:       result.RunID,
			Balances:    report.Balances(result.Balances),
			Settlements: report.Settlements(result.Settlements),
			Warnings:    report.Warnings(result.Warnings),
		}
		if result.VerifyErr != nil {
			out.Residual = result.VerifyErr.Error()
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(out); encErr != nil {
			log.Fatal().Err(encErr).Msg("Failed to write JSON")
		}
	} else if writeErr := report.Write(os.Stdout, result.Balances, result.Settlements); writeErr != nil {
		log.Fatal().Err(writeErr).Msg("Failed to write report")
	}

	if result.VerifyErr != nil {
		log.Warn().Err(result.VerifyErr).Msg("Settlement plan leaves residual balances")
	}
	if err != nil {
		// The plan was computed and stored but publishing failed.
		log.Fatal().Err(err).Str("run_id", result.RunID).Msg("Publishing failed")
	}
}

func runUpload(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	bucketName := fs.String("bucket", cfg.GCSBucket, "GCS bucket name (defaults to GCS_BUCKET)")
	objectName := fs.String("object", "", "GCS object name (defaults to filename)")
	filePath := fs.String("file", "", "Path to local ledger file")
	fs.Parse(os.Args[2:])

	if *bucketName == "" || *filePath == "" {
		log.Fatal().Msg("Usage: cli upload -bucket NAME -file PATH")
	}

	if *objectName == "" {
		*objectName = filepath.Base(*filePath)
	}

	ctx := logger.WithContext(context.Background(), log)

	log.Info().
		Str("bucket", *bucketName).
		Str("object", *objectName).
		Str("file", *filePath).
		Msg("Uploading file to GCS")

	if err := gcsuploader.UploadFile(ctx, *bucketName, *objectName, *filePath); err != nil {
		log.Fatal().Err(err).Msg("Upload failed")
	}

	fmt.Printf("Uploaded %s to gs://%s/%s\n", *filePath, *bucketName, *objectName)
}

func openRepository(ctx context.Context, cfg *config.Config, log zerolog.Logger) *infraBQ.SettlementRepository {
	if !cfg.PersistenceEnabled() {
		log.Fatal().Msg("Error: GCP_PROJECT_ID is required for stored runs")
	}
	repo, err := infraBQ.NewSettlementRepository(ctx, cfg.GCPProjectID, cfg.BigQueryDataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create repository")
	}
	return repo
}

func runList(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	limit := fs.Int("limit", 20, "Maximum number of runs to list")
	fs.Parse(os.Args[2:])

	ctx := logger.WithContext(context.Background(), log)
	repo := openRepository(ctx, cfg, log)
	defer repo.Close()

	runs, err := repo.ListLedgerRuns(ctx, *limit)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list runs")
	}

	if len(runs) == 0 {
		fmt.Println("No runs found.")
		return
	}
	for _, run := range runs {
		fmt.Printf("%s  %-8s  %s  %s  settlements=%d\n",
			run.RunID,
			run.Status,
			run.StartedTS.Format(time.RFC3339),
			run.SourceURI,
			run.SettlementCount.Int64,
		)
	}
}

func runInspect(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	runID := fs.String("run-id", "", "Run ID to inspect")
	fs.Parse(os.Args[2:])

	if *runID == "" {
		log.Fatal().Msg("Error: --run-id is required")
	}

	ctx := logger.WithContext(context.Background(), log)
	repo := openRepository(ctx, cfg, log)
	defer repo.Close()

	run, err := repo.GetLedgerRun(ctx, *runID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load run")
	}
	if run == nil {
		log.Fatal().Str("run_id", *runID).Msg("Run not found")
	}

	fmt.Println("\n=== Run Details ===")
	fmt.Printf("ID:       %s\n", run.RunID)
	fmt.Printf("Source:   %s\n", run.SourceURI)
	fmt.Printf("Started:  %s\n", run.StartedTS.Format(time.RFC3339))
	fmt.Printf("Status:   %s\n", run.Status)
	if run.ErrorMessage != "" {
		fmt.Printf("Error:    %s\n", run.ErrorMessage)
	}
	fmt.Printf("Rows:     %d total, %d applied, %d skipped\n",
		run.RowsTotal.Int64, run.RowsApplied.Int64, run.RowsSkipped.Int64)
	fmt.Println()

	balances, err := repo.ListBalancesByRun(ctx, *runID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load balances")
	}
	settlements, err := repo.ListSettlementsByRun(ctx, *runID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load settlements")
	}

	if err := report.Write(os.Stdout, infraBQ.BalanceMapFromRows(balances), infraBQ.SettlementsFromRows(settlements)); err != nil {
		log.Fatal().Err(err).Msg("Failed to write report")
	}
}

func runDelete(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	runID := fs.String("run-id", "", "Run ID to delete")
	fs.Parse(os.Args[2:])

	if *runID == "" {
		log.Fatal().Msg("Error: --run-id is required")
	}

	ctx := logger.WithContext(context.Background(), log)
	repo := openRepository(ctx, cfg, log)
	defer repo.Close()

	if err := repo.DeleteLedgerRun(ctx, *runID); err != nil {
		log.Fatal().Err(err).Msg("Delete failed")
	}

	fmt.Printf("Deleted run %s.\n", *runID)
}
