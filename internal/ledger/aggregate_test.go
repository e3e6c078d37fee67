package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertBalance(t *testing.T, balances BalanceMap, id Identity, want string) {
	t.Helper()
	got, ok := balances[id]
	require.True(t, ok, "no balance for %s", id)
	assert.True(t, RoundCurrency(got).Equal(dec(want)), "%s: got %s, want %s", id, got, want)
}

func TestAggregate_SingleRecord(t *testing.T) {
	balances := Aggregate([]RawRow{
		{Line: 1, Payer: "A", Amount: "30.00", Participants: "A, B, C"},
	}, nil)

	require.Len(t, balances, 3)
	assertBalance(t, balances, "A", "20.00")
	assertBalance(t, balances, "B", "-10.00")
	assertBalance(t, balances, "C", "-10.00")
}

func TestAggregate_TwoRecords(t *testing.T) {
	balances := Aggregate([]RawRow{
		{Line: 1, Payer: "A", Amount: "50", Participants: "B, C"},
		{Line: 2, Payer: "B", Amount: "40", Participants: "A, C"},
	}, nil)

	assertBalance(t, balances, "A", "30.00")
	assertBalance(t, balances, "B", "15.00")
	assertBalance(t, balances, "C", "-45.00")
	assert.True(t, balances.Sum().IsZero())
}

func TestAggregate_PayerNotParticipant(t *testing.T) {
	balances := Aggregate([]RawRow{
		{Line: 1, Payer: "A", Amount: "20", Participants: "B"},
	}, nil)

	assertBalance(t, balances, "A", "20.00")
	assertBalance(t, balances, "B", "-20.00")
}

func TestAggregate_DuplicateParticipantChargedTwice(t *testing.T) {
	balances := Aggregate([]RawRow{
		{Line: 1, Payer: "A", Amount: "30", Participants: "A, B, B"},
	}, nil)

	assertBalance(t, balances, "A", "20.00")
	assertBalance(t, balances, "B", "-20.00")
}

func TestAggregate_SkipAndContinue(t *testing.T) {
	var c Collector
	agg := NewAggregator(c.Sink())

	assert.True(t, agg.Add(RawRow{Line: 1, Payer: "A", Amount: "10", Participants: "A, B"}))
	assert.False(t, agg.Add(RawRow{Line: 2, Payer: "B", Amount: "ten", Participants: "A, B"}))
	assert.False(t, agg.Add(RawRow{Line: 3, Payer: "B", Amount: "10", Participants: ""}))
	assert.True(t, agg.Add(RawRow{Line: 4, Payer: "B", Amount: "4", Participants: "A, B"}))

	balances := agg.Balances()
	assertBalance(t, balances, "A", "3.00")
	assertBalance(t, balances, "B", "-3.00")

	warnings := c.Warnings()
	require.Len(t, warnings, 2)
	assert.Equal(t, 2, warnings[0].Line)
	assert.ErrorIs(t, warnings[0].Err, ErrInvalidAmount)
	assert.Equal(t, 3, warnings[1].Line)
	assert.ErrorIs(t, warnings[1].Err, ErrNoParticipants)

	assert.Equal(t, AggregateStats{Total: 4, Applied: 2, Skipped: 2}, agg.Stats())
}

func TestAggregate_EmptyParticipantsLeavesBalancesUntouched(t *testing.T) {
	var c Collector
	balances := Aggregate([]RawRow{
		{Line: 1, Payer: "A", Amount: "9", Participants: "   "},
	}, c.Sink())

	assert.Empty(t, balances)
	assert.Len(t, c.Warnings(), 1)
}

func TestAggregate_NoRows(t *testing.T) {
	balances := Aggregate(nil, nil)
	assert.Empty(t, balances)
	assert.Empty(t, Settle(balances))
}

func TestAggregate_ZeroSumWithRepeatingShares(t *testing.T) {
	balances := Aggregate([]RawRow{
		{Line: 1, Payer: "A", Amount: "10", Participants: "A, B, C"},
		{Line: 2, Payer: "B", Amount: "100", Participants: "A, B, C, D, E, F, G"},
		{Line: 3, Payer: "G", Amount: "0.01", Participants: "A, B, C"},
	}, nil)

	assert.True(t, balances.Sum().Abs().LessThanOrEqual(dec("0.000001")), "sum = %s", balances.Sum())
}

func TestAggregateRecords(t *testing.T) {
	balances := AggregateRecords([]ExpenseRecord{
		{Payer: "A", Amount: dec("12"), Participants: []Identity{"A", "B", "C", "D"}},
	})

	assertBalance(t, balances, "A", "9.00")
	assertBalance(t, balances, "D", "-3.00")
}

func TestAggregator_BalancesIsACopy(t *testing.T) {
	agg := NewAggregator(nil)
	agg.Add(RawRow{Line: 1, Payer: "A", Amount: "2", Participants: "B"})

	snapshot := agg.Balances()
	snapshot["A"] = dec("999")

	assertBalance(t, agg.Balances(), "A", "2.00")
}
