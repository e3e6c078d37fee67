package bigquery

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/expense-settler/internal/ledger"
)

// numericScale is the number of fractional digits BigQuery NUMERIC keeps.
const numericScale = 9

// DecimalToNumeric converts a decimal to a NUMERIC value, rounded to the column scale.
func DecimalToNumeric(d decimal.Decimal) *big.Rat {
	return d.Round(numericScale).Rat()
}

// NumericToDecimal converts a NUMERIC value back to a decimal. A nil value is zero.
func NumericToDecimal(r *big.Rat) decimal.Decimal {
	if r == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigRat(r, numericScale)
}

// BalanceRowsFromMap builds one row per participant, sorted by participant.
func BalanceRowsFromMap(runID string, balances ledger.BalanceMap, now time.Time) []*BalanceRow {
	ids := balances.Identities()
	rows := make([]*BalanceRow, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, &BalanceRow{
			RunID:       runID,
			Participant: string(id),
			Balance:     DecimalToNumeric(balances[id]),
			CreatedTS:   now,
		})
	}
	return rows
}

// SettlementRowsFromPlan builds rows numbered in emission order.
func SettlementRowsFromPlan(runID string, settlements []ledger.Settlement, now time.Time) []*SettlementRow {
	rows := make([]*SettlementRow, 0, len(settlements))
	for i, s := range settlements {
		rows = append(rows, &SettlementRow{
			RunID:           runID,
			Seq:             int64(i + 1),
			FromParticipant: string(s.From),
			ToParticipant:   string(s.To),
			Amount:          DecimalToNumeric(s.Amount),
			CreatedTS:       now,
		})
	}
	return rows
}

// BalanceMapFromRows rebuilds a balance map from stored rows.
func BalanceMapFromRows(rows []*BalanceRow) ledger.BalanceMap {
	out := make(ledger.BalanceMap, len(rows))
	for _, r := range rows {
		out[ledger.Identity(r.Participant)] = NumericToDecimal(r.Balance)
	}
	return out
}

// SettlementsFromRows rebuilds a settlement plan from stored rows in their stored order.
func SettlementsFromRows(rows []*SettlementRow) []ledger.Settlement {
	out := make([]ledger.Settlement, 0, len(rows))
	for _, r := range rows {
		out = append(out, ledger.Settlement{
			From:   ledger.Identity(r.FromParticipant),
			To:     ledger.Identity(r.ToParticipant),
			Amount: NumericToDecimal(r.Amount),
		})
	}
	return out
}
