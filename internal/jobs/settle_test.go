package jobs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/expense-settler/internal/jobs"
	"github.com/dvloznov/expense-settler/internal/ledger"
	"github.com/dvloznov/expense-settler/internal/pipeline"
)

type recordingPublisher struct {
	calls int
}

func (p *recordingPublisher) PublishSettlements(ctx context.Context, runID string, settlements []ledger.Settlement) error {
	p.calls++
	return nil
}

type otherJob struct{}

func (otherJob) GetID() string             { return "x" }
func (otherJob) GetType() jobs.JobType     { return "other" }
func (otherJob) GetStatus() jobs.JobStatus { return jobs.JobStatusPending }

func TestSettleLedgerHandler(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trip.csv")
	require.NoError(t, os.WriteFile(path, []byte("Paid by,Amount,Participants\nA,20,\"A, B\"\n"), 0o644))

	publisher := &recordingPublisher{}
	handler := jobs.NewSettleLedgerHandler(pipeline.Deps{
		Parser:    pipeline.NewCSVLedgerParser(pipeline.DefaultColumns()),
		Publisher: publisher,
	})

	job := &jobs.SettleLedgerJob{JobID: "job-1", SourceURI: path}
	require.NoError(t, handler(context.Background(), job))
	assert.NotEmpty(t, job.RunID)
	assert.Equal(t, 1, job.SettlementCount)
	assert.Equal(t, 0, publisher.calls)

	job = &jobs.SettleLedgerJob{JobID: "job-2", SourceURI: path, PublishNotion: true}
	require.NoError(t, handler(context.Background(), job))
	assert.Equal(t, 1, publisher.calls)
}

func TestSettleLedgerHandler_Errors(t *testing.T) {
	handler := jobs.NewSettleLedgerHandler(pipeline.Deps{
		Parser: pipeline.NewCSVLedgerParser(pipeline.DefaultColumns()),
	})

	assert.Error(t, handler(context.Background(), otherJob{}))

	job := &jobs.SettleLedgerJob{JobID: "job-3", SourceURI: filepath.Join(t.TempDir(), "missing.csv")}
	assert.Error(t, handler(context.Background(), job))
}
