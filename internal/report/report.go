// Package report renders balances and settlement plans for people to read.
package report

import (
	"fmt"
	"io"

	"github.com/dvloznov/expense-settler/internal/ledger"
)

// BalanceLines renders each balance as "identity: $amount", sorted by identity.
func BalanceLines(balances ledger.BalanceMap) []string {
	ids := balances.Identities()
	lines := make([]string, 0, len(ids))
	for _, id := range ids {
		lines = append(lines, fmt.Sprintf("%s: $%s", id, ledger.RoundCurrency(balances[id]).StringFixed(ledger.CurrencyPlaces)))
	}
	return lines
}

// SettlementLines renders settlements in emission order.
func SettlementLines(settlements []ledger.Settlement) []string {
	lines := make([]string, 0, len(settlements))
	for _, s := range settlements {
		lines = append(lines, s.String())
	}
	return lines
}

// Write prints the "Net Balances" and "Settlements" sections.
func Write(w io.Writer, balances ledger.BalanceMap, settlements []ledger.Settlement) error {
	if _, err := fmt.Fprintln(w, "Net Balances:"); err != nil {
		return err
	}
	for _, line := range BalanceLines(balances) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintln(w, "\nSettlements:"); err != nil {
		return err
	}
	if len(settlements) == 0 {
		_, err := fmt.Fprintln(w, "Nothing to settle.")
		return err
	}
	for _, line := range SettlementLines(settlements) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// BalanceView is the JSON shape of one balance.
type BalanceView struct {
	Participant string `json:"participant"`
	Balance     string `json:"balance"`
}

// SettlementView is the JSON shape of one settlement.
type SettlementView struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

// WarningView is the JSON shape of one skipped row.
type WarningView struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// Balances converts balances to sorted views.
func Balances(balances ledger.BalanceMap) []BalanceView {
	ids := balances.Identities()
	out := make([]BalanceView, 0, len(ids))
	for _, id := range ids {
		out = append(out, BalanceView{
			Participant: string(id),
			Balance:     ledger.RoundCurrency(balances[id]).StringFixed(ledger.CurrencyPlaces),
		})
	}
	return out
}

// Settlements converts settlements to views, keeping order.
func Settlements(settlements []ledger.Settlement) []SettlementView {
	out := make([]SettlementView, 0, len(settlements))
	for _, s := range settlements {
		out = append(out, SettlementView{
			From:   string(s.From),
			To:     string(s.To),
			Amount: s.Amount.StringFixed(ledger.CurrencyPlaces),
		})
	}
	return out
}

// Warnings converts warnings to views.
func Warnings(warnings []ledger.Warning) []WarningView {
	out := make([]WarningView, 0, len(warnings))
	for _, w := range warnings {
		msg := w.Message
		if w.Err != nil {
			msg = w.Err.Error()
		}
		out = append(out, WarningView{Line: w.Line, Message: msg})
	}
	return out
}
