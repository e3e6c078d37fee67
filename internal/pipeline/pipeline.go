package pipeline

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/expense-settler/internal/ledger"
	"github.com/dvloznov/expense-settler/internal/logger"
)

// Deps wires the pipeline to its collaborators. Only Parser is required.
type Deps struct {
	// Repo persists the run. Nil runs everything in memory.
	Repo RunRepository
	// Storage fetches gs:// sources. Local paths are read directly.
	Storage StorageService
	Parser  LedgerParser
	// Publisher receives the plan after the run succeeds. Nil skips publishing.
	Publisher SettlementPublisher

	// Tolerance for the residual check. Zero uses ledger.DefaultTolerance.
	Tolerance decimal.Decimal
	// StrictVerify fails the run when residuals exceed the tolerance.
	StrictVerify bool
	// Sink receives skipped-row warnings as they happen.
	Sink ledger.DiagnosticSink
}

// Result is the outcome of one settlement run.
type Result struct {
	RunID       string
	SourceURI   string
	Balances    ledger.BalanceMap
	Settlements []ledger.Settlement
	Warnings    []ledger.Warning
	Stats       ledger.AggregateStats
	// VerifyErr is set when the plan leaves residuals above tolerance.
	VerifyErr error
}

// NewSettlementPipeline builds the step list for deps. Persistence steps are
// left out without a repository.
func NewSettlementPipeline(deps Deps) *Pipeline {
	steps := []PipelineStep{
		&StartRunStep{Repo: deps.Repo},
		&FetchLedgerStep{Storage: deps.Storage},
		&ParseLedgerStep{Parser: deps.Parser},
		&AggregateStep{},
		&SettleStep{},
		&VerifyStep{Tolerance: deps.Tolerance, Strict: deps.StrictVerify},
	}
	if deps.Repo != nil {
		steps = append(steps,
			&StoreResultsStep{Repo: deps.Repo},
			&MarkSuccessStep{Repo: deps.Repo},
		)
	}
	return NewPipeline(steps...)
}

// SettleLedger reads a ledger from sourceURI (gs:// or a local path), computes
// balances and a settlement plan, and records the run when deps.Repo is set.
// Any failure after the run is started marks it FAILED.
func SettleLedger(ctx context.Context, sourceURI string, deps Deps) (*Result, error) {
	log := logger.FromContext(ctx).With().Str("source_uri", sourceURI).Logger()
	ctx = logger.WithContext(ctx, log)

	state := &PipelineState{
		SourceURI: sourceURI,
		Sink:      deps.Sink,
	}

	if err := NewSettlementPipeline(deps).Execute(ctx, state); err != nil {
		if deps.Repo != nil && state.RunID != "" {
			deps.Repo.MarkLedgerRunFailed(ctx, state.RunID, err)
		}
		log.Error().Err(err).Str("run_id", state.RunID).Msg("Settlement run failed")
		return nil, err
	}

	result := resultFromState(state)

	if deps.Publisher != nil {
		if err := (&PublishStep{Publisher: deps.Publisher}).Execute(ctx, state); err != nil {
			log.Error().Err(err).Str("run_id", state.RunID).Msg("Publishing settlements failed")
			return result, err
		}
	}

	log.Info().
		Str("run_id", result.RunID).
		Int("settlements", len(result.Settlements)).
		Msg("Settlement run completed")
	return result, nil
}

// SettleRecords aggregates in-memory rows and settles them without any I/O.
// ctx only carries the logger.
func SettleRecords(ctx context.Context, rows []ledger.RawRow, sink ledger.DiagnosticSink) *Result {
	state := &PipelineState{Rows: rows, Sink: sink}

	// These steps never fail.
	_ = NewPipeline(&AggregateStep{}, &SettleStep{}, &VerifyStep{}).Execute(ctx, state)

	return resultFromState(state)
}

func resultFromState(state *PipelineState) *Result {
	return &Result{
		RunID:       state.RunID,
		SourceURI:   state.SourceURI,
		Balances:    state.Balances,
		Settlements: state.Settlements,
		Warnings:    state.Warnings(),
		Stats:       state.Stats,
		VerifyErr:   state.VerifyErr,
	}
}
