package ledger

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseRecord converts a raw row into an ExpenseRecord.
// The returned error is always a *RowError.
func ParseRecord(row RawRow) (ExpenseRecord, error) {
	payer := strings.TrimSpace(row.Payer)
	if payer == "" {
		return ExpenseRecord{}, &RowError{Line: row.Line, Field: "payer", Err: ErrMissingPayer}
	}

	amount, err := ParseAmount(row.Amount)
	if err != nil {
		return ExpenseRecord{}, &RowError{Line: row.Line, Field: "amount", Value: row.Amount, Err: err}
	}

	participants := SplitParticipants(row.Participants)
	if len(participants) == 0 {
		return ExpenseRecord{}, &RowError{Line: row.Line, Field: "participants", Value: row.Participants, Err: ErrNoParticipants}
	}

	return ExpenseRecord{
		Payer:        Identity(payer),
		Amount:       amount,
		Participants: participants,
	}, nil
}

// ParseAmount parses a positive decimal amount. A leading "$" is tolerated.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}

	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return amount, nil
}

// SplitParticipants splits a comma separated list, trimming each name and
// dropping empty entries. Order and duplicates are preserved.
func SplitParticipants(s string) []Identity {
	parts := strings.Split(s, ",")
	out := make([]Identity, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, Identity(p))
	}
	return out
}
