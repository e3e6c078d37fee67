// Package app wires configuration into the services shared by the binaries.
package app

import (
	"context"
	"fmt"

	"github.com/dvloznov/expense-settler/internal/config"
	"github.com/dvloznov/expense-settler/internal/gcsuploader"
	infra "github.com/dvloznov/expense-settler/internal/infra/bigquery"
	"github.com/dvloznov/expense-settler/internal/logger"
	"github.com/dvloznov/expense-settler/internal/notionsync"
	"github.com/dvloznov/expense-settler/internal/pipeline"
)

// Services holds the long-lived collaborators built from a Config.
type Services struct {
	// Repo is nil when persistence is disabled.
	Repo *infra.SettlementRepository
	// Notion is nil when Notion publishing is not configured.
	Notion *notionsync.Publisher

	Storage *gcsuploader.GCSStorageService
	Parser  pipeline.LedgerParser
}

// Columns returns the configured ledger column names.
func Columns(cfg *config.Config) pipeline.Columns {
	return pipeline.Columns{
		Payer:        cfg.PayerColumn,
		Amount:       cfg.AmountColumn,
		Participants: cfg.ParticipantsColumn,
	}
}

// NewServices builds Services from cfg. persist and publish switch optional
// backends off even when they are configured.
func NewServices(ctx context.Context, cfg *config.Config, persist, publish bool) (*Services, error) {
	log := logger.FromContext(ctx)
	cols := Columns(cfg)

	s := &Services{
		Storage: gcsuploader.NewGCSStorageService(),
		Parser: &pipeline.RoutingParser{
			CSV:      pipeline.NewCSVLedgerParser(cols),
			Document: pipeline.NewGeminiLedgerParser(cfg.GeminiModel, cols),
		},
	}

	if persist {
		if !cfg.PersistenceEnabled() {
			return nil, fmt.Errorf("app.NewServices: persistence requested but GCP_PROJECT_ID is not set")
		}
		repo, err := infra.NewSettlementRepository(ctx, cfg.GCPProjectID, cfg.BigQueryDataset)
		if err != nil {
			return nil, fmt.Errorf("app.NewServices: %w", err)
		}
		s.Repo = repo
		log.Info().
			Str("project", cfg.GCPProjectID).
			Str("dataset", cfg.BigQueryDataset).
			Msg("BigQuery persistence enabled")
	}

	if publish {
		if !cfg.NotionEnabled() {
			s.Close()
			return nil, fmt.Errorf("app.NewServices: Notion publishing requested but NOTION_TOKEN or NOTION_DATABASE_ID is not set")
		}
		s.Notion = notionsync.NewPublisher(notionsync.NewNotionClient(cfg.NotionToken), cfg.NotionDatabaseID, false)
	}

	return s, nil
}

// Deps returns pipeline dependencies backed by s.
func (s *Services) Deps() pipeline.Deps {
	deps := pipeline.Deps{
		Storage: s.Storage,
		Parser:  s.Parser,
	}
	if s.Repo != nil {
		deps.Repo = s.Repo
	}
	if s.Notion != nil {
		deps.Publisher = s.Notion
	}
	return deps
}

// Close releases backend clients.
func (s *Services) Close() {
	if s.Repo != nil {
		if err := s.Repo.Close(); err != nil {
			l := logger.New()
			l.Warn().Err(err).Msg("Failed to close BigQuery client")
		}
	}
}
