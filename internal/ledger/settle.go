package ledger

import (
	"container/heap"
	"sort"

	"github.com/shopspring/decimal"
)

// queueEntry keys both queues by the negated magnitude of the outstanding
// cents, so the largest debt or credit sits at the top of a min-heap.
type queueEntry struct {
	id  Identity
	key int64
}

type settlementQueue []queueEntry

func (q settlementQueue) Len() int { return len(q) }

func (q settlementQueue) Less(i, j int) bool {
	if q[i].key != q[j].key {
		return q[i].key < q[j].key
	}
	return q[i].id < q[j].id
}

func (q settlementQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *settlementQueue) Push(x any) { *q = append(*q, x.(queueEntry)) }

func (q *settlementQueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	*q = old[:n-1]
	return e
}

// PlanCents rounds every balance to whole cents and hands the rounding
// leftover out one cent at a time by largest remainder, so the cents add up
// to the rounded total of balances. Ties go to the lower identity.
func PlanCents(balances BalanceMap) map[Identity]int64 {
	type remainder struct {
		id  Identity
		rem decimal.Decimal
	}

	cents := make(map[Identity]int64, len(balances))
	rems := make([]remainder, 0, len(balances))
	var total int64
	for id, bal := range balances {
		rounded := RoundCurrency(bal)
		c := rounded.Shift(CurrencyPlaces).IntPart()
		cents[id] = c
		total += c
		rems = append(rems, remainder{id: id, rem: bal.Sub(rounded)})
	}

	drift := total - RoundCurrency(balances.Sum()).Shift(CurrencyPlaces).IntPart()
	if drift == 0 || len(rems) == 0 {
		return cents
	}

	// Too many cents: take them from balances that were rounded up the most.
	// Too few: give them to balances that were rounded down the most.
	sort.Slice(rems, func(i, j int) bool {
		if c := rems[i].rem.Cmp(rems[j].rem); c != 0 {
			if drift > 0 {
				return c < 0
			}
			return c > 0
		}
		return rems[i].id < rems[j].id
	})

	for i := 0; drift != 0; i++ {
		id := rems[i%len(rems)].id
		if drift > 0 {
			cents[id]--
			drift--
		} else {
			cents[id]++
			drift++
		}
	}
	return cents
}

// Settle computes payment instructions that zero every balance, greedily
// matching the largest remaining debtor with the largest remaining creditor.
// Equal magnitudes are ordered by identity. Planning runs on the whole cents
// from PlanCents, so every emitted amount is exactly what leaves the two
// balances and no balance is left more than a cent away from zero. The
// input map is not modified.
func Settle(balances BalanceMap) []Settlement {
	debtors := &settlementQueue{}
	creditors := &settlementQueue{}

	for id, c := range PlanCents(balances) {
		switch {
		case c < 0:
			*debtors = append(*debtors, queueEntry{id: id, key: c})
		case c > 0:
			*creditors = append(*creditors, queueEntry{id: id, key: -c})
		}
	}
	heap.Init(debtors)
	heap.Init(creditors)

	var settlements []Settlement
	for debtors.Len() > 0 && creditors.Len() > 0 {
		d := heap.Pop(debtors).(queueEntry)
		c := heap.Pop(creditors).(queueEntry)

		amount := -d.key
		if -c.key < amount {
			amount = -c.key
		}

		settlements = append(settlements, Settlement{
			From:   d.id,
			To:     c.id,
			Amount: decimal.New(amount, -CurrencyPlaces),
		})

		d.key += amount
		c.key += amount

		if d.key < 0 {
			heap.Push(debtors, d)
		}
		if c.key < 0 {
			heap.Push(creditors, c)
		}
	}

	return settlements
}

// Partition returns the number of debtors and creditors Settle would queue.
func Partition(balances BalanceMap) (debtors, creditors int) {
	for _, c := range PlanCents(balances) {
		switch {
		case c < 0:
			debtors++
		case c > 0:
			creditors++
		}
	}
	return debtors, creditors
}
