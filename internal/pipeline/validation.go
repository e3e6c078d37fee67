package pipeline

import (
	"strings"

	"github.com/dvloznov/expense-settler/internal/ledger"
)

// Columns names the header cells that hold each ledger field.
type Columns struct {
	Payer        string
	Amount       string
	Participants string
}

// DefaultColumns returns the column names of the shared expense sheet.
func DefaultColumns() Columns {
	return Columns{
		Payer:        DefaultPayerColumn,
		Amount:       DefaultAmountColumn,
		Participants: DefaultParticipantsColumn,
	}
}

// columnIndex holds the position of each ledger field in a header row.
type columnIndex struct {
	payer        int
	amount       int
	participants int
}

// ValidateHeader checks that a header row carries every ledger column. Names
// are compared after trimming and case folding. Every missing column is
// listed in the returned *ledger.MissingFieldsError.
func ValidateHeader(header []string, cols Columns) error {
	_, err := locateColumns(header, cols)
	return err
}

func locateColumns(header []string, cols Columns) (columnIndex, error) {
	positions := make(map[string]int, len(header))
	for i, name := range header {
		key := normalizeColumn(name)
		if _, seen := positions[key]; !seen {
			positions[key] = i
		}
	}

	idx := columnIndex{payer: -1, amount: -1, participants: -1}
	var missing []string

	lookup := func(name string, dst *int) {
		if i, ok := positions[normalizeColumn(name)]; ok {
			*dst = i
			return
		}
		missing = append(missing, name)
	}
	lookup(cols.Payer, &idx.payer)
	lookup(cols.Amount, &idx.amount)
	lookup(cols.Participants, &idx.participants)

	if len(missing) > 0 {
		return idx, &ledger.MissingFieldsError{Fields: missing}
	}
	return idx, nil
}

// normalizeColumn trims whitespace and a UTF-8 byte order mark, then folds case.
func normalizeColumn(name string) string {
	name = strings.TrimPrefix(name, "\ufeff")
	return strings.ToLower(strings.TrimSpace(name))
}
