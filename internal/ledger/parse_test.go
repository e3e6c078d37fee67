package ledger

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRecord(t *testing.T) {
	tests := []struct {
		name    string
		row     RawRow
		want    ExpenseRecord
		wantErr error
	}{
		{
			name: "valid row",
			row:  RawRow{Line: 1, Payer: " A ", Amount: "30.00", Participants: "A, B, C"},
			want: ExpenseRecord{
				Payer:        "A",
				Amount:       decimal.RequireFromString("30.00"),
				Participants: []Identity{"A", "B", "C"},
			},
		},
		{
			name: "dollar prefix and no spaces",
			row:  RawRow{Line: 2, Payer: "Ann", Amount: "$12.5", Participants: "Ann,Bob"},
			want: ExpenseRecord{
				Payer:        "Ann",
				Amount:       decimal.RequireFromString("12.5"),
				Participants: []Identity{"Ann", "Bob"},
			},
		},
		{
			name:    "non numeric amount",
			row:     RawRow{Line: 3, Payer: "A", Amount: "thirty", Participants: "A"},
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "zero amount",
			row:     RawRow{Line: 4, Payer: "A", Amount: "0", Participants: "A"},
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "negative amount",
			row:     RawRow{Line: 5, Payer: "A", Amount: "-4.00", Participants: "A"},
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "missing payer",
			row:     RawRow{Line: 6, Payer: "   ", Amount: "4.00", Participants: "A"},
			wantErr: ErrMissingPayer,
		},
		{
			name:    "empty participants",
			row:     RawRow{Line: 7, Payer: "A", Amount: "4.00", Participants: "  "},
			wantErr: ErrNoParticipants,
		},
		{
			name:    "only separators",
			row:     RawRow{Line: 8, Payer: "A", Amount: "4.00", Participants: " , ,"},
			wantErr: ErrNoParticipants,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRecord(tt.row)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)

				var rowErr *RowError
				require.True(t, errors.As(err, &rowErr))
				assert.Equal(t, tt.row.Line, rowErr.Line)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want.Payer, got.Payer)
			assert.True(t, tt.want.Amount.Equal(got.Amount), "amount %s != %s", got.Amount, tt.want.Amount)
			assert.Equal(t, tt.want.Participants, got.Participants)
		})
	}
}

func TestSplitParticipants(t *testing.T) {
	tests := []struct {
		input string
		want  []Identity
	}{
		{"A, B, C", []Identity{"A", "B", "C"}},
		{"A,B", []Identity{"A", "B"}},
		{" A ,, B ", []Identity{"A", "B"}},
		{"A, A", []Identity{"A", "A"}},
		{"", []Identity{}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitParticipants(tt.input))
		})
	}
}

func TestRowErrorMessage(t *testing.T) {
	err := &RowError{Line: 4, Field: "amount", Value: "abc", Err: ErrInvalidAmount}
	assert.Equal(t, `line 4: amount "abc": invalid amount`, err.Error())

	err = &RowError{Line: 2, Field: "payer", Err: ErrMissingPayer}
	assert.Equal(t, "line 2: payer: missing payer", err.Error())
}

func TestMissingFieldsError(t *testing.T) {
	err := &MissingFieldsError{Fields: []string{"Amount", "Participants"}}
	assert.ErrorIs(t, err, ErrMissingFields)
	assert.Contains(t, err.Error(), "Amount, Participants")
}
