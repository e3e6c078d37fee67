package report

import (
	"bytes"
	"testing"

	"github.com/dvloznov/expense-settler/internal/ledger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrite(t *testing.T) {
	balances := ledger.BalanceMap{
		"C": decimal.RequireFromString("-10"),
		"A": decimal.RequireFromString("20"),
		"B": decimal.RequireFromString("-10"),
	}
	settlements := ledger.Settle(balances)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, balances, settlements))

	want := "Net Balances:\n" +
		"A: $20.00\n" +
		"B: $-10.00\n" +
		"C: $-10.00\n" +
		"\nSettlements:\n" +
		"B pays A $10.00\n" +
		"C pays A $10.00\n"
	assert.Equal(t, want, buf.String())
}

func TestWrite_NothingToSettle(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, ledger.BalanceMap{}, nil))
	assert.Equal(t, "Net Balances:\n\nSettlements:\nNothing to settle.\n", buf.String())
}

func TestViews(t *testing.T) {
	balances := ledger.BalanceMap{
		"Bob": decimal.RequireFromString("-3.3333333"),
		"Ann": decimal.RequireFromString("3.3333333"),
	}

	assert.Equal(t, []BalanceView{
		{Participant: "Ann", Balance: "3.33"},
		{Participant: "Bob", Balance: "-3.33"},
	}, Balances(balances))

	assert.Equal(t, []SettlementView{
		{From: "Bob", To: "Ann", Amount: "3.33"},
	}, Settlements(ledger.Settle(balances)))

	assert.Equal(t, []WarningView{
		{Line: 3, Message: "line 3: payer: missing payer"},
		{Line: 4, Message: "odd"},
	}, Warnings([]ledger.Warning{
		{Line: 3, Message: "skipping", Err: &ledger.RowError{Line: 3, Field: "payer", Err: ledger.ErrMissingPayer}},
		{Line: 4, Message: "odd"},
	}))
}
