package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dvloznov/expense-settler/internal/api/middleware"
	"github.com/dvloznov/expense-settler/internal/ledger"
	"github.com/dvloznov/expense-settler/internal/pipeline"
	"github.com/dvloznov/expense-settler/internal/report"
)

// maxSettleBodyBytes bounds the synchronous settle request body.
const maxSettleBodyBytes = 1 << 20

// SettleHandler settles ledgers posted inline.
type SettleHandler struct {
	log zerolog.Logger
}

// NewSettleHandler creates a new settle handler.
func NewSettleHandler(log zerolog.Logger) *SettleHandler {
	return &SettleHandler{log: log}
}

// flexString decodes a JSON string or number as its text.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number: %w", err)
	}
	*f = flexString(n.String())
	return nil
}

// participantList decodes a comma separated string or an array of names.
type participantList string

func (p *participantList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var names []string
		if err := json.Unmarshal(data, &names); err != nil {
			return err
		}
		*p = participantList(strings.Join(names, ", "))
		return nil
	}

	var s flexString
	if err := s.UnmarshalJSON(data); err != nil {
		return err
	}
	*p = participantList(s)
	return nil
}

type settleRecord struct {
	PaidBy       flexString      `json:"paid_by"`
	Amount       flexString      `json:"amount"`
	Participants participantList `json:"participants"`
}

type settleRequest struct {
	Records *[]settleRecord `json:"records"`
}

type statsView struct {
	Total   int `json:"total"`
	Applied int `json:"applied"`
	Skipped int `json:"skipped"`
}

type settleResponse struct {
	Balances    []report.BalanceView    `json:"balances"`
	Settlements []report.SettlementView `json:"settlements"`
	Warnings    []report.WarningView    `json:"warnings"`
	Stats       statsView               `json:"stats"`
	Residual    string                  `json:"residual,omitempty"`
}

// Settle handles POST /api/settle
func (h *SettleHandler) Settle(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSettleBodyBytes)

	var req settleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Records == nil {
		middleware.WriteError(w, http.StatusBadRequest, "records is required")
		return
	}

	rows := make([]ledger.RawRow, 0, len(*req.Records))
	for i, rec := range *req.Records {
		rows = append(rows, ledger.RawRow{
			Line:         i + 1,
			Payer:        string(rec.PaidBy),
			Amount:       string(rec.Amount),
			Participants: string(rec.Participants),
		})
	}

	result := pipeline.SettleRecords(r.Context(), rows, nil)

	resp := settleResponse{
		Balances:    report.Balances(result.Balances),
		Settlements: report.Settlements(result.Settlements),
		Warnings:    report.Warnings(result.Warnings),
		Stats: statsView{
			Total:   result.Stats.Total,
			Applied: result.Stats.Applied,
			Skipped: result.Stats.Skipped,
		},
	}
	if result.VerifyErr != nil {
		resp.Residual = result.VerifyErr.Error()
	}

	middleware.WriteJSON(w, http.StatusOK, resp)
}
