package inmemory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/expense-settler/internal/jobs"
)

func waitForStatus(t *testing.T, store *Store, jobID string, want jobs.JobStatus) *jobs.SettleLedgerJob {
	t.Helper()
	var last *jobs.SettleLedgerJob
	require.Eventually(t, func() bool {
		job, err := store.GetJob(context.Background(), jobID)
		if err != nil {
			return false
		}
		last = job
		return job.Status == want
	}, 2*time.Second, 5*time.Millisecond)
	return last
}

func TestQueue_ProcessesJob(t *testing.T) {
	store := NewStore()
	q := NewQueue(QueueOptions{Workers: 2}, store)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, q.Start(ctx, func(ctx context.Context, job jobs.Job) error {
		job.(*jobs.SettleLedgerJob).RunID = "run-" + job.GetID()
		return nil
	}))

	job := &jobs.SettleLedgerJob{SourceURI: "gs://b/trip.csv"}
	require.NoError(t, q.PublishSettleLedger(ctx, job))
	assert.NotEmpty(t, job.JobID)
	assert.Equal(t, jobs.DefaultMaxRetries, job.MaxRetries)

	done := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	assert.Equal(t, "run-"+job.JobID, done.RunID)
	assert.NotNil(t, done.StartedAt)
	assert.NotNil(t, done.CompletedAt)

	require.NoError(t, q.Stop(context.Background()))
}

func TestQueue_RetriesThenSucceeds(t *testing.T) {
	store := NewStore()
	q := NewQueue(QueueOptions{Workers: 1, RetryBackoff: time.Millisecond}, store)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var attempts int32
	require.NoError(t, q.Start(ctx, func(ctx context.Context, job jobs.Job) error {
		if atomic.AddInt32(&attempts, 1) < 3 {
			return errors.New("transient")
		}
		return nil
	}))

	job := &jobs.SettleLedgerJob{JobID: "retry-me", SourceURI: "gs://b/trip.csv"}
	require.NoError(t, q.PublishSettleLedger(ctx, job))

	done := waitForStatus(t, store, "retry-me", jobs.JobStatusCompleted)
	assert.Equal(t, 2, done.RetryCount)
	assert.Empty(t, done.Error)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))

	require.NoError(t, q.Stop(context.Background()))
}

func TestQueue_FailsAfterMaxRetries(t *testing.T) {
	store := NewStore()
	q := NewQueue(QueueOptions{Workers: 1, RetryBackoff: time.Millisecond}, store)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, q.Start(ctx, func(ctx context.Context, job jobs.Job) error {
		return errors.New("ledger is broken")
	}))

	job := &jobs.SettleLedgerJob{JobID: "doomed", SourceURI: "gs://b/trip.csv", MaxRetries: 1}
	require.NoError(t, q.PublishSettleLedger(ctx, job))

	done := waitForStatus(t, store, "doomed", jobs.JobStatusFailed)
	assert.Equal(t, 1, done.RetryCount)
	assert.Equal(t, "ledger is broken", done.Error)

	require.NoError(t, q.Stop(context.Background()))
}

func TestQueue_Closed(t *testing.T) {
	q := NewQueue(QueueOptions{}, nil)
	require.NoError(t, q.Close())
	require.NoError(t, q.Close())

	err := q.PublishSettleLedger(context.Background(), &jobs.SettleLedgerJob{SourceURI: "gs://b/x.csv"})
	assert.Error(t, err)
	assert.Error(t, q.Start(context.Background(), func(context.Context, jobs.Job) error { return nil }))
}

func TestQueue_RequiresSource(t *testing.T) {
	q := NewQueue(QueueOptions{}, nil)
	defer q.Close()

	assert.Error(t, q.PublishSettleLedger(context.Background(), &jobs.SettleLedgerJob{}))
}
