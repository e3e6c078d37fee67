package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
)

// SettlementRepository stores ledger runs and their results in BigQuery.
// It holds one shared client for all operations.
type SettlementRepository struct {
	client    *bigquery.Client
	datasetID string
}

// NewSettlementRepository creates a repository for the given project and dataset.
func NewSettlementRepository(ctx context.Context, projectID, datasetID string) (*SettlementRepository, error) {
	if projectID == "" {
		return nil, fmt.Errorf("NewSettlementRepository: project ID is required")
	}
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewSettlementRepository: creating client: %w", err)
	}
	return &SettlementRepository{
		client:    client,
		datasetID: datasetID,
	}, nil
}

// Close closes the BigQuery client connection.
func (r *SettlementRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// StartLedgerRun records a new RUNNING run and returns its id.
func (r *SettlementRepository) StartLedgerRun(ctx context.Context, sourceURI, filename string) (string, error) {
	return StartLedgerRunWithClient(ctx, r.client, r.datasetID, sourceURI, filename)
}

// MarkLedgerRunFailed marks a run FAILED with the error message.
func (r *SettlementRepository) MarkLedgerRunFailed(ctx context.Context, runID string, runErr error) {
	MarkLedgerRunFailedWithClient(ctx, r.client, r.datasetID, runID, runErr)
}

// MarkLedgerRunSucceeded marks a run SUCCESS and stores its counters.
func (r *SettlementRepository) MarkLedgerRunSucceeded(ctx context.Context, runID string, stats RunStats) error {
	return MarkLedgerRunSucceededWithClient(ctx, r.client, r.datasetID, runID, stats)
}

func (r *SettlementRepository) InsertBalances(ctx context.Context, rows []*BalanceRow) error {
	return InsertBalancesWithClient(ctx, r.client, r.datasetID, rows)
}

func (r *SettlementRepository) InsertSettlements(ctx context.Context, rows []*SettlementRow) error {
	return InsertSettlementsWithClient(ctx, r.client, r.datasetID, rows)
}

func (r *SettlementRepository) ListLedgerRuns(ctx context.Context, limit int) ([]*LedgerRunRow, error) {
	return ListLedgerRunsWithClient(ctx, r.client, r.datasetID, limit)
}

func (r *SettlementRepository) GetLedgerRun(ctx context.Context, runID string) (*LedgerRunRow, error) {
	return GetLedgerRunWithClient(ctx, r.client, r.datasetID, runID)
}

func (r *SettlementRepository) ListBalancesByRun(ctx context.Context, runID string) ([]*BalanceRow, error) {
	return ListBalancesByRunWithClient(ctx, r.client, r.datasetID, runID)
}

func (r *SettlementRepository) ListSettlementsByRun(ctx context.Context, runID string) ([]*SettlementRow, error) {
	return ListSettlementsByRunWithClient(ctx, r.client, r.datasetID, runID)
}

func (r *SettlementRepository) DeleteLedgerRun(ctx context.Context, runID string) error {
	return DeleteLedgerRunWithClient(ctx, r.client, r.datasetID, runID)
}
