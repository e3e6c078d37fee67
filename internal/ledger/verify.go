package ledger

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultTolerance is the largest residual Verify accepts, one cent.
var DefaultTolerance = decimal.New(1, -2)

// Residuals applies settlements to a copy of balances: each payer's balance
// rises by the amount paid and each payee's falls by the amount received.
func Residuals(balances BalanceMap, settlements []Settlement) BalanceMap {
	out := balances.Clone()
	for _, s := range settlements {
		out[s.From] = out[s.From].Add(s.Amount)
		out[s.To] = out[s.To].Sub(s.Amount)
	}
	return out
}

// Verify checks that settlements bring every balance within tolerance of
// zero. The returned error wraps ErrUnsettled and names the offenders.
func Verify(balances BalanceMap, settlements []Settlement, tolerance decimal.Decimal) error {
	residuals := Residuals(balances, settlements)

	var offenders []string
	for _, id := range residuals.Identities() {
		if residuals[id].Abs().GreaterThan(tolerance) {
			offenders = append(offenders, fmt.Sprintf("%s=%s", id, residuals[id].StringFixed(CurrencyPlaces+2)))
		}
	}
	if len(offenders) > 0 {
		return fmt.Errorf("%w: %s", ErrUnsettled, strings.Join(offenders, ", "))
	}
	return nil
}
