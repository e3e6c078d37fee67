package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/expense-settler/internal/logger"
)

// maxErrorMessageLen caps error_message so one bad ledger cannot bloat the table.
const maxErrorMessageLen = 2000

// tableRef returns the fully qualified, backquoted name of a table.
func tableRef(client *bigquery.Client, datasetID, table string) string {
	return fmt.Sprintf("`%s.%s.%s`", client.Project(), datasetID, table)
}

// runDML runs a DML query and waits for it to finish.
func runDML(ctx context.Context, q *bigquery.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}

	return nil
}

// StartLedgerRunWithClient inserts a ledger_runs row with status=RUNNING
// and returns the generated run_id.
func StartLedgerRunWithClient(ctx context.Context, client *bigquery.Client, datasetID, sourceURI, filename string) (string, error) {
	runID := uuid.NewString()
	started := time.Now()

	q := client.Query(fmt.Sprintf(`
		INSERT %s (
			run_id,
			source_uri,
			original_filename,
			run_date,
			started_ts,
			status
		)
		VALUES (
			@run_id,
			@source_uri,
			@original_filename,
			@run_date,
			@started_ts,
			@status
		)
	`, tableRef(client, datasetID, ledgerRunsTable)))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "run_id", Value: runID},
		{Name: "source_uri", Value: sourceURI},
		{Name: "original_filename", Value: filename},
		{Name: "run_date", Value: civil.DateOf(started)},
		{Name: "started_ts", Value: started},
		{Name: "status", Value: RunStatusRunning},
	}

	if err := runDML(ctx, q); err != nil {
		return "", fmt.Errorf("StartLedgerRun: %w", err)
	}

	return runID, nil
}

// MarkLedgerRunFailedWithClient sets status=FAILED, finished_ts and error_message.
// Failures are logged, not returned, since the caller is already handling an error.
func MarkLedgerRunFailedWithClient(ctx context.Context, client *bigquery.Client, datasetID, runID string, runErr error) {
	log := logger.FromContext(ctx)

	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
		if len(errMsg) > maxErrorMessageLen {
			errMsg = errMsg[:maxErrorMessageLen]
		}
	}

	q := client.Query(fmt.Sprintf(`
		UPDATE %s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = @error_message
		WHERE run_id = @run_id
	`, tableRef(client, datasetID, ledgerRunsTable)))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: RunStatusFailed},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "error_message", Value: errMsg},
		{Name: "run_id", Value: runID},
	}

	if err := runDML(ctx, q); err != nil {
		log.Error().
			Err(err).
			Str("run_id", runID).
			Msg("MarkLedgerRunFailed: update failed")
	}
}

// MarkLedgerRunSucceededWithClient sets status=SUCCESS, finished_ts and the run counters.
func MarkLedgerRunSucceededWithClient(ctx context.Context, client *bigquery.Client, datasetID, runID string, stats RunStats) error {
	warnings := stats.WarningsJSON
	if warnings == "" {
		warnings = "[]"
	}

	q := client.Query(fmt.Sprintf(`
		UPDATE %s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = "",
		    rows_total = @rows_total,
		    rows_applied = @rows_applied,
		    rows_skipped = @rows_skipped,
		    settlement_count = @settlement_count,
		    warnings = PARSE_JSON(@warnings)
		WHERE run_id = @run_id
	`, tableRef(client, datasetID, ledgerRunsTable)))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: RunStatusSuccess},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "rows_total", Value: stats.RowsTotal},
		{Name: "rows_applied", Value: stats.RowsApplied},
		{Name: "rows_skipped", Value: stats.RowsSkipped},
		{Name: "settlement_count", Value: stats.SettlementCount},
		{Name: "warnings", Value: warnings},
		{Name: "run_id", Value: runID},
	}

	if err := runDML(ctx, q); err != nil {
		return fmt.Errorf("MarkLedgerRunSucceeded: %w", err)
	}

	return nil
}

const ledgerRunColumns = `
			run_id,
			source_uri,
			IFNULL(original_filename, '') AS original_filename,
			run_date,
			started_ts,
			finished_ts,
			status,
			IFNULL(error_message, '') AS error_message,
			rows_total,
			rows_applied,
			rows_skipped,
			settlement_count,
			warnings`

// ListLedgerRunsWithClient returns the most recent runs first. A limit of zero or less means no limit.
func ListLedgerRunsWithClient(ctx context.Context, client *bigquery.Client, datasetID string, limit int) ([]*LedgerRunRow, error) {
	query := fmt.Sprintf(`
		SELECT%s
		FROM %s
		ORDER BY started_ts DESC
	`, ledgerRunColumns, tableRef(client, datasetID, ledgerRunsTable))
	if limit > 0 {
		query += "\t\tLIMIT @limit\n"
	}

	q := client.Query(query)
	if limit > 0 {
		q.Parameters = []bigquery.QueryParameter{{Name: "limit", Value: limit}}
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListLedgerRuns: query read: %w", err)
	}

	var runs []*LedgerRunRow
	for {
		var row LedgerRunRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListLedgerRuns: iter next: %w", err)
		}
		runs = append(runs, &row)
	}

	return runs, nil
}

// GetLedgerRunWithClient fetches one run. Returns nil if no run has that id.
func GetLedgerRunWithClient(ctx context.Context, client *bigquery.Client, datasetID, runID string) (*LedgerRunRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT%s
		FROM %s
		WHERE run_id = @run_id
		LIMIT 1
	`, ledgerRunColumns, tableRef(client, datasetID, ledgerRunsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "run_id", Value: runID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetLedgerRun: query read: %w", err)
	}

	var row LedgerRunRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetLedgerRun: iter next: %w", err)
	}

	return &row, nil
}

// DeleteLedgerRunWithClient removes a run along with its balances and settlements.
func DeleteLedgerRunWithClient(ctx context.Context, client *bigquery.Client, datasetID, runID string) error {
	// Children first so a partial failure never leaves orphans without a run row.
	for _, table := range []string{settlementsTable, balancesTable, ledgerRunsTable} {
		q := client.Query(fmt.Sprintf(`
			DELETE FROM %s
			WHERE run_id = @run_id
		`, tableRef(client, datasetID, table)))
		q.Parameters = []bigquery.QueryParameter{
			{Name: "run_id", Value: runID},
		}

		if err := runDML(ctx, q); err != nil {
			return fmt.Errorf("DeleteLedgerRun: deleting from %s: %w", table, err)
		}
	}

	return nil
}
