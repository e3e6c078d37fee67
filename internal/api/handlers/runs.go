package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/dvloznov/expense-settler/internal/api/middleware"
	"github.com/dvloznov/expense-settler/internal/gcsuploader"
	infra "github.com/dvloznov/expense-settler/internal/infra/bigquery"
	"github.com/dvloznov/expense-settler/internal/jobs"
	"github.com/dvloznov/expense-settler/internal/report"
)

// defaultRunsLimit caps GET /api/runs when no limit is given.
const defaultRunsLimit = 50

// RunReader is the read side of the run repository.
type RunReader interface {
	ListLedgerRuns(ctx context.Context, limit int) ([]*infra.LedgerRunRow, error)
	GetLedgerRun(ctx context.Context, runID string) (*infra.LedgerRunRow, error)
	ListBalancesByRun(ctx context.Context, runID string) ([]*infra.BalanceRow, error)
	ListSettlementsByRun(ctx context.Context, runID string) ([]*infra.SettlementRow, error)
}

// RunsHandler handles ledger run endpoints.
type RunsHandler struct {
	repo      RunReader
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewRunsHandler creates a new runs handler. repo may be nil when
// persistence is disabled; listing endpoints then return 503.
func NewRunsHandler(repo RunReader, publisher jobs.Publisher, log zerolog.Logger) *RunsHandler {
	return &RunsHandler{
		repo:      repo,
		publisher: publisher,
		log:       log,
	}
}

// RunView is the JSON shape of a ledger run.
type RunView struct {
	RunID           string     `json:"run_id"`
	SourceURI       string     `json:"source_uri"`
	Filename        string     `json:"filename"`
	Status          string     `json:"status"`
	StartedAt       time.Time  `json:"started_at"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
	Error           string     `json:"error,omitempty"`
	RowsTotal       int64      `json:"rows_total"`
	RowsApplied     int64      `json:"rows_applied"`
	RowsSkipped     int64      `json:"rows_skipped"`
	SettlementCount int64      `json:"settlement_count"`
}

// NewRunView converts a stored run row.
func NewRunView(row *infra.LedgerRunRow) RunView {
	v := RunView{
		RunID:           row.RunID,
		SourceURI:       row.SourceURI,
		Filename:        row.OriginalFilename,
		Status:          row.Status,
		StartedAt:       row.StartedTS,
		Error:           row.ErrorMessage,
		RowsTotal:       row.RowsTotal.Int64,
		RowsApplied:     row.RowsApplied.Int64,
		RowsSkipped:     row.RowsSkipped.Int64,
		SettlementCount: row.SettlementCount.Int64,
	}
	if row.FinishedTS.Valid {
		t := row.FinishedTS.Timestamp
		v.FinishedAt = &t
	}
	return v
}

type runDetail struct {
	RunView
	Balances    []report.BalanceView    `json:"balances"`
	Settlements []report.SettlementView `json:"settlements"`
}

// EnqueueRun handles POST /api/runs
func (h *RunsHandler) EnqueueRun(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SourceURI     string `json:"source_uri"`
		PublishNotion bool   `json:"publish_notion"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if _, _, err := gcsuploader.ParseGCSURI(req.SourceURI); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "source_uri must be a gs://bucket/object URI")
		return
	}

	job := &jobs.SettleLedgerJob{
		SourceURI:     req.SourceURI,
		PublishNotion: req.PublishNotion,
	}

	if err := h.publisher.PublishSettleLedger(r.Context(), job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue settle job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue settle job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Str("source_uri", job.SourceURI).Msg("Settle job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, job)
}

// ListRuns handles GET /api/runs
func (h *RunsHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Run history is not configured")
		return
	}

	limit := defaultRunsLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil || n < 1 {
			middleware.WriteError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	rows, err := h.repo.ListLedgerRuns(r.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list runs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}

	runs := make([]RunView, 0, len(rows))
	for _, row := range rows {
		runs = append(runs, NewRunView(row))
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// GetRun handles GET /api/runs/{id}
func (h *RunsHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Run history is not configured")
		return
	}

	ctx := r.Context()
	runID := mux.Vars(r)["id"]

	row, err := h.repo.GetLedgerRun(ctx, runID)
	if err != nil {
		h.log.Error().Err(err).Str("run_id", runID).Msg("Failed to get run")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get run")
		return
	}
	if row == nil {
		middleware.WriteError(w, http.StatusNotFound, "Run not found")
		return
	}

	balances, err := h.repo.ListBalancesByRun(ctx, runID)
	if err != nil {
		h.log.Error().Err(err).Str("run_id", runID).Msg("Failed to list balances")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get run")
		return
	}

	settlements, err := h.repo.ListSettlementsByRun(ctx, runID)
	if err != nil {
		h.log.Error().Err(err).Str("run_id", runID).Msg("Failed to list settlements")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get run")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, runDetail{
		RunView:     NewRunView(row),
		Balances:    report.Balances(infra.BalanceMapFromRows(balances)),
		Settlements: report.Settlements(infra.SettlementsFromRows(settlements)),
	})
}
