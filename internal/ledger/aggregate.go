package ledger

import (
	"github.com/shopspring/decimal"
)

// AggregateStats counts rows seen by an Aggregator.
type AggregateStats struct {
	Total   int
	Applied int
	Skipped int
}

// Aggregator folds expense records into a BalanceMap one at a time.
// It is not safe for concurrent use.
type Aggregator struct {
	balances BalanceMap
	sink     DiagnosticSink
	stats    AggregateStats
}

// NewAggregator creates an empty aggregator. Warnings for skipped rows go to
// sink, which may be nil.
func NewAggregator(sink DiagnosticSink) *Aggregator {
	return &Aggregator{
		balances: make(BalanceMap),
		sink:     sink,
	}
}

// Add parses and applies a raw row. A malformed row is reported to the sink
// and skipped; Add returns false in that case.
func (a *Aggregator) Add(row RawRow) bool {
	a.stats.Total++

	rec, err := ParseRecord(row)
	if err != nil {
		a.stats.Skipped++
		if a.sink != nil {
			a.sink(Warning{
				Line:    row.Line,
				Message: "skipping malformed row",
				Err:     err,
			})
		}
		return false
	}

	a.apply(rec)
	a.stats.Applied++
	return true
}

// Apply adds an already parsed record.
func (a *Aggregator) Apply(rec ExpenseRecord) {
	a.stats.Total++
	a.apply(rec)
	a.stats.Applied++
}

func (a *Aggregator) apply(rec ExpenseRecord) {
	if len(rec.Participants) == 0 {
		return
	}

	share := rec.Amount.Div(decimal.NewFromInt(int64(len(rec.Participants))))

	// A participant listed twice is charged twice.
	for _, p := range rec.Participants {
		a.balances[p] = a.balances[p].Sub(share)
	}
	a.balances[rec.Payer] = a.balances[rec.Payer].Add(rec.Amount)
}

// Balances returns a copy of the current balances.
func (a *Aggregator) Balances() BalanceMap {
	return a.balances.Clone()
}

// Stats returns row counters.
func (a *Aggregator) Stats() AggregateStats {
	return a.stats
}

// Aggregate folds raw rows in input order.
func Aggregate(rows []RawRow, sink DiagnosticSink) BalanceMap {
	agg := NewAggregator(sink)
	for _, row := range rows {
		agg.Add(row)
	}
	return agg.Balances()
}

// AggregateRecords folds parsed records in input order.
func AggregateRecords(records []ExpenseRecord) BalanceMap {
	agg := NewAggregator(nil)
	for _, rec := range records {
		agg.Apply(rec)
	}
	return agg.Balances()
}
