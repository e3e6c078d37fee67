package pipeline

import (
	"context"
	"errors"

	infra "github.com/dvloznov/expense-settler/internal/infra/bigquery"
	"github.com/dvloznov/expense-settler/internal/ledger"
)

// ErrUnsupportedFormat is returned when no parser handles a file's extension.
var ErrUnsupportedFormat = errors.New("unsupported ledger format")

// StorageService is the subset of storage operations the pipeline needs.
type StorageService interface {
	FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error)
}

// LedgerParser turns file bytes into raw ledger rows.
// This interface enables mocking model-backed parsing in tests.
type LedgerParser interface {
	// ParseLedger parses data. filename is used to pick a format or MIME type.
	ParseLedger(ctx context.Context, data []byte, filename string) ([]ledger.RawRow, error)
}

// RunRepository records ledger runs and their results.
type RunRepository interface {
	StartLedgerRun(ctx context.Context, sourceURI, filename string) (string, error)
	MarkLedgerRunFailed(ctx context.Context, runID string, runErr error)
	MarkLedgerRunSucceeded(ctx context.Context, runID string, stats infra.RunStats) error
	InsertBalances(ctx context.Context, rows []*infra.BalanceRow) error
	InsertSettlements(ctx context.Context, rows []*infra.SettlementRow) error
}

// SettlementPublisher pushes a finished settlement plan somewhere people can see it.
type SettlementPublisher interface {
	PublishSettlements(ctx context.Context, runID string, settlements []ledger.Settlement) error
}

var _ RunRepository = (*infra.SettlementRepository)(nil)
