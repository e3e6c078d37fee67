package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"time"

	"github.com/dvloznov/expense-settler/internal/app"
	"github.com/dvloznov/expense-settler/internal/config"
	"github.com/dvloznov/expense-settler/internal/ledger"
	"github.com/dvloznov/expense-settler/internal/logger"
	"github.com/dvloznov/expense-settler/internal/pipeline"
)

// parse-ledger prints the raw rows extracted from a local ledger file, before
// any validation. Useful for checking what the model reads from a PDF.
func main() {
	cfg, err := config.Load()
	if err != nil {
		l := logger.New()
		l.Fatal().Err(err).Msg("Failed to load configuration")
	}

	filePath := flag.String("file", "", "Path to a local ledger file (required)")
	model := flag.String("model", cfg.GeminiModel, "Gemini model for PDF and image ledgers")
	flag.Parse()

	log := logger.NewWithLevel(cfg.LogLevel)

	if *filePath == "" {
		log.Fatal().Msg("Error: --file is required")
	}

	data, err := os.ReadFile(*filePath)
	if err != nil {
		log.Fatal().Err(err).Str("file", *filePath).Msg("Failed to read ledger")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	cols := app.Columns(cfg)
	parser := &pipeline.RoutingParser{
		CSV:      pipeline.NewCSVLedgerParser(cols),
		Document: pipeline.NewGeminiLedgerParser(*model, cols),
	}

	rows, err := parser.ParseLedger(ctx, data, filepath.Base(*filePath))
	if err != nil {
		log.Fatal().Err(err).Msg("Parse failed")
	}

	out := make([]map[string]interface{}, 0, len(rows))
	for _, row := range rows {
		out = append(out, rowJSON(row))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatal().Err(err).Msg("Failed to write JSON")
	}

	log.Info().Int("rows", len(rows)).Msg("Parsed ledger")
}

func rowJSON(row ledger.RawRow) map[string]interface{} {
	return map[string]interface{}{
		"line":         row.Line,
		"paid_by":      row.Payer,
		"amount":       row.Amount,
		"participants": row.Participants,
	}
}
