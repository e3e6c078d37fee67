package ledger

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// CurrencyPlaces is the number of decimal places balances are classified and
// settlement amounts are emitted at.
const CurrencyPlaces int32 = 2

// Identity names a participant. It is trimmed and case-sensitive.
type Identity string

// ExpenseRecord is one parsed ledger entry: Payer paid Amount on behalf of
// every listed participant, split equally.
type ExpenseRecord struct {
	Payer        Identity
	Amount       decimal.Decimal
	Participants []Identity
}

// RawRow is a ledger row as read from the input source, before parsing.
type RawRow struct {
	Line         int    // 1-based data line, used in diagnostics
	Payer        string // "Paid by"
	Amount       string // decimal string
	Participants string // comma separated names
}

// BalanceMap holds each participant's signed net balance.
// Negative means the participant owes money, positive means they are owed.
type BalanceMap map[Identity]decimal.Decimal

// Clone returns an independent copy of the map.
func (b BalanceMap) Clone() BalanceMap {
	out := make(BalanceMap, len(b))
	for id, v := range b {
		out[id] = v
	}
	return out
}

// Sum returns the sum of every balance. For a fully aggregated ledger it is
// zero up to division precision.
func (b BalanceMap) Sum() decimal.Decimal {
	sum := decimal.Zero
	for _, v := range b {
		sum = sum.Add(v)
	}
	return sum
}

// Identities returns the participants in ascending order.
func (b BalanceMap) Identities() []Identity {
	ids := make([]Identity, 0, len(b))
	for id := range b {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Settled reports whether every balance rounds to zero at currency precision.
func (b BalanceMap) Settled() bool {
	for _, v := range b {
		if !RoundCurrency(v).IsZero() {
			return false
		}
	}
	return true
}

// Settlement is a single payment instruction: From pays To the Amount.
type Settlement struct {
	From   Identity
	To     Identity
	Amount decimal.Decimal
}

// String renders the instruction as "debtor pays creditor $amount".
func (s Settlement) String() string {
	return fmt.Sprintf("%s pays %s $%s", s.From, s.To, s.Amount.StringFixed(CurrencyPlaces))
}

// RoundCurrency rounds v to cents using half-even rounding.
func RoundCurrency(v decimal.Decimal) decimal.Decimal {
	return v.RoundBank(CurrencyPlaces)
}
