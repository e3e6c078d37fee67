package ledger

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingFields is matched by MissingFieldsError. It is fatal: no
	// aggregation happens when the input schema lacks a required field.
	ErrMissingFields = errors.New("required ledger fields missing")

	// ErrInvalidAmount means the amount cell is not a positive decimal.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrMissingPayer means the payer cell is empty after trimming.
	ErrMissingPayer = errors.New("missing payer")

	// ErrNoParticipants means the participant list is empty after trimming.
	ErrNoParticipants = errors.New("no participants")

	// ErrUnsettled is returned by Verify when settlements leave a residual.
	ErrUnsettled = errors.New("settlements leave residual balances")
)

// MissingFieldsError lists the logical fields absent from the input schema.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingFields, strings.Join(e.Fields, ", "))
}

func (e *MissingFieldsError) Is(target error) bool {
	return target == ErrMissingFields
}

// RowError describes a single malformed row. It is recoverable: the row is
// skipped and processing continues.
type RowError struct {
	Line  int
	Field string
	Value string
	Err   error
}

func (e *RowError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("line %d: %s %q: %v", e.Line, e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("line %d: %s: %v", e.Line, e.Field, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}
