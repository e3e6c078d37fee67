package jobs

import (
	"context"
	"fmt"

	"github.com/dvloznov/expense-settler/internal/logger"
	"github.com/dvloznov/expense-settler/internal/pipeline"
)

// NewSettleLedgerHandler returns a JobHandler that runs the settlement
// pipeline for each SettleLedgerJob. deps.Publisher is only used for jobs
// that ask for publishing.
func NewSettleLedgerHandler(deps pipeline.Deps) JobHandler {
	return func(ctx context.Context, job Job) error {
		settleJob, ok := job.(*SettleLedgerJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log := logger.FromContext(ctx)
		log.Info().
			Str("job_id", settleJob.JobID).
			Str("source_uri", settleJob.SourceURI).
			Msg("Processing settle job")

		runDeps := deps
		if !settleJob.PublishNotion {
			runDeps.Publisher = nil
		}

		result, err := pipeline.SettleLedger(ctx, settleJob.SourceURI, runDeps)
		if result != nil {
			settleJob.RunID = result.RunID
			settleJob.SettlementCount = len(result.Settlements)
		}
		return err
	}
}
