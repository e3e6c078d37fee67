package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
)

// Run statuses stored in ledger_runs.status.
const (
	RunStatusRunning = "RUNNING"
	RunStatusSuccess = "SUCCESS"
	RunStatusFailed  = "FAILED"
)

const (
	ledgerRunsTable  = "ledger_runs"
	balancesTable    = "balances"
	settlementsTable = "settlements"
)

type LedgerRunRow struct {
	RunID            string `bigquery:"run_id"`     // REQUIRED
	SourceURI        string `bigquery:"source_uri"` // REQUIRED
	OriginalFilename string `bigquery:"original_filename"`

	RunDate    civil.Date             `bigquery:"run_date"`    // REQUIRED, partition column
	StartedTS  time.Time              `bigquery:"started_ts"`  // REQUIRED
	FinishedTS bigquery.NullTimestamp `bigquery:"finished_ts"` // NULLABLE

	Status       string `bigquery:"status"`
	ErrorMessage string `bigquery:"error_message"`

	RowsTotal       bigquery.NullInt64 `bigquery:"rows_total"`
	RowsApplied     bigquery.NullInt64 `bigquery:"rows_applied"`
	RowsSkipped     bigquery.NullInt64 `bigquery:"rows_skipped"`
	SettlementCount bigquery.NullInt64 `bigquery:"settlement_count"`

	// Skipped-row warnings as a JSON array
	Warnings bigquery.NullJSON `bigquery:"warnings"`
}

type BalanceRow struct {
	RunID       string    `bigquery:"run_id"`
	Participant string    `bigquery:"participant"`
	Balance     *big.Rat  `bigquery:"balance"` // NUMERIC
	CreatedTS   time.Time `bigquery:"created_ts"`
}

type SettlementRow struct {
	RunID           string    `bigquery:"run_id"`
	Seq             int64     `bigquery:"seq"` // emission order, starting at 1
	FromParticipant string    `bigquery:"from_participant"`
	ToParticipant   string    `bigquery:"to_participant"`
	Amount          *big.Rat  `bigquery:"amount"` // NUMERIC
	CreatedTS       time.Time `bigquery:"created_ts"`
}

// RunStats are the counters written when a run succeeds.
type RunStats struct {
	RowsTotal       int
	RowsApplied     int
	RowsSkipped     int
	SettlementCount int
	WarningsJSON    string
}
