package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/expense-settler/internal/gcsuploader"
	infra "github.com/dvloznov/expense-settler/internal/infra/bigquery"
	"github.com/dvloznov/expense-settler/internal/ledger"
	"github.com/dvloznov/expense-settler/internal/logger"
	"github.com/dvloznov/expense-settler/internal/report"
)

// PipelineStep represents a single step in the settlement pipeline.
type PipelineStep interface {
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	SourceURI   string
	Filename    string
	RunID       string
	Data        []byte
	Rows        []ledger.RawRow
	Balances    ledger.BalanceMap
	Settlements []ledger.Settlement
	Stats       ledger.AggregateStats
	VerifyErr   error

	// Sink receives skipped-row warnings in addition to the collector and log.
	Sink      ledger.DiagnosticSink
	collector ledger.Collector
}

// Warnings returns the skipped-row warnings collected so far.
func (s *PipelineState) Warnings() []ledger.Warning {
	return s.collector.Warnings()
}

// StartRunStep records a RUNNING ledger run. Without a repository it only
// assigns a run id.
type StartRunStep struct {
	Repo RunRepository
}

func (s *StartRunStep) Execute(ctx context.Context, state *PipelineState) error {
	if state.Filename == "" {
		state.Filename = sourceFilename(state.SourceURI)
	}

	if s.Repo == nil {
		state.RunID = uuid.NewString()
		return nil
	}

	runID, err := s.Repo.StartLedgerRun(ctx, state.SourceURI, state.Filename)
	if err != nil {
		return err
	}
	state.RunID = runID
	return nil
}

// FetchLedgerStep reads the ledger bytes from a gs:// URI or a local path.
type FetchLedgerStep struct {
	Storage StorageService
}

func (s *FetchLedgerStep) Execute(ctx context.Context, state *PipelineState) error {
	if gcsuploader.IsGCSURI(state.SourceURI) {
		if s.Storage == nil {
			return fmt.Errorf("FetchLedger: no storage configured for %s", state.SourceURI)
		}
		data, err := s.Storage.FetchFromGCS(ctx, state.SourceURI)
		if err != nil {
			return err
		}
		state.Data = data
		return nil
	}

	data, err := os.ReadFile(state.SourceURI)
	if err != nil {
		return fmt.Errorf("FetchLedger: read file: %w", err)
	}
	state.Data = data
	return nil
}

// ParseLedgerStep turns the fetched bytes into raw rows.
type ParseLedgerStep struct {
	Parser LedgerParser
}

func (s *ParseLedgerStep) Execute(ctx context.Context, state *PipelineState) error {
	rows, err := s.Parser.ParseLedger(ctx, state.Data, state.Filename)
	if err != nil {
		return err
	}
	state.Rows = rows
	return nil
}

// AggregateStep folds rows into net balances, skipping malformed rows.
type AggregateStep struct{}

func (s *AggregateStep) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.FromContext(ctx).With().Str("run_id", state.RunID).Logger()

	agg := ledger.NewAggregator(ledger.Tee(
		state.collector.Sink(),
		logger.RowWarningSink(log),
		state.Sink,
	))
	for _, row := range state.Rows {
		agg.Add(row)
	}

	state.Balances = agg.Balances()
	state.Stats = agg.Stats()

	log.Info().
		Int("rows_total", state.Stats.Total).
		Int("rows_applied", state.Stats.Applied).
		Int("rows_skipped", state.Stats.Skipped).
		Int("participants", len(state.Balances)).
		Msg("Ledger aggregated")
	return nil
}

// SettleStep computes the settlement plan.
type SettleStep struct{}

func (s *SettleStep) Execute(ctx context.Context, state *PipelineState) error {
	state.Settlements = ledger.Settle(state.Balances)
	return nil
}

// VerifyStep checks that applying the plan leaves every balance within
// tolerance of zero. Unless Strict is set, a residual is logged and kept on
// the state instead of failing the run.
type VerifyStep struct {
	Tolerance decimal.Decimal
	Strict    bool
}

func (s *VerifyStep) Execute(ctx context.Context, state *PipelineState) error {
	tol := s.Tolerance
	if tol.IsZero() {
		tol = ledger.DefaultTolerance
	}

	err := ledger.Verify(state.Balances, state.Settlements, tol)
	if err == nil {
		return nil
	}
	if s.Strict {
		return err
	}

	state.VerifyErr = err
	log := logger.FromContext(ctx)
	log.Warn().
		Err(err).
		Str("run_id", state.RunID).
		Msg("Settlement plan leaves rounding residuals")
	return nil
}

// StoreResultsStep writes balances and settlements for the run.
type StoreResultsStep struct {
	Repo RunRepository
}

func (s *StoreResultsStep) Execute(ctx context.Context, state *PipelineState) error {
	now := time.Now()
	if err := s.Repo.InsertBalances(ctx, infra.BalanceRowsFromMap(state.RunID, state.Balances, now)); err != nil {
		return err
	}
	if err := s.Repo.InsertSettlements(ctx, infra.SettlementRowsFromPlan(state.RunID, state.Settlements, now)); err != nil {
		return err
	}
	return nil
}

// MarkSuccessStep marks the run as SUCCESS with its counters.
type MarkSuccessStep struct {
	Repo RunRepository
}

func (s *MarkSuccessStep) Execute(ctx context.Context, state *PipelineState) error {
	warnings, err := json.Marshal(report.Warnings(state.Warnings()))
	if err != nil {
		return fmt.Errorf("MarkSuccess: encode warnings: %w", err)
	}

	return s.Repo.MarkLedgerRunSucceeded(ctx, state.RunID, infra.RunStats{
		RowsTotal:       state.Stats.Total,
		RowsApplied:     state.Stats.Applied,
		RowsSkipped:     state.Stats.Skipped,
		SettlementCount: len(state.Settlements),
		WarningsJSON:    string(warnings),
	})
}

// PublishStep hands the plan to a publisher such as Notion.
type PublishStep struct {
	Publisher SettlementPublisher
}

func (s *PublishStep) Execute(ctx context.Context, state *PipelineState) error {
	return s.Publisher.PublishSettlements(ctx, state.RunID, state.Settlements)
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}

// Len returns the number of steps.
func (p *Pipeline) Len() int {
	return len(p.steps)
}

// sourceFilename extracts the file name from a gs:// URI or local path.
func sourceFilename(source string) string {
	if gcsuploader.IsGCSURI(source) {
		return gcsuploader.ExtractFilenameFromGCSURI(source)
	}
	return filepath.Base(source)
}
