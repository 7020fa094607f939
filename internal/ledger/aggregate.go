package ledger

import (
	"time"

	"github.com/loomworks-erp/loomworks-erp/internal/money"
)

// Summary holds aggregate statistics over a ledger view. All reducers are
// commutative sums and counts, so iteration order never changes the result.
type Summary struct {
	PayableTotal    money.Money
	PayableCount    int
	ReceivableTotal money.Money
	ReceivableCount int

	OverdueCount int
	OverdueTotal money.Money

	// RecentCount is the number of entries dated within the trailing 7 days.
	RecentCount int
}

const recentWindow = 7 * 24 * time.Hour

// Summarize folds a collection of normalized, repaired entries into summary
// statistics relative to the supplied reference time.
func Summarize(entries []LedgerEntry, now time.Time) Summary {
	sum := Summary{
		PayableTotal:    money.Zero(),
		ReceivableTotal: money.Zero(),
		OverdueTotal:    money.Zero(),
	}
	cutoff := now.Add(-recentWindow)
	for _, e := range entries {
		switch e.Category {
		case CategoryPayable:
			sum.PayableCount++
			sum.PayableTotal = sum.PayableTotal.Add(e.RemainingAmount)
		case CategoryReceivable:
			sum.ReceivableCount++
			sum.ReceivableTotal = sum.ReceivableTotal.Add(e.RemainingAmount)
		}
		if e.DueDate != nil && e.DueDate.Before(now) && !e.Status.Terminal() {
			sum.OverdueCount++
			sum.OverdueTotal = sum.OverdueTotal.Add(e.RemainingAmount)
		}
		if e.EntryDate.After(cutoff) && !e.EntryDate.After(now) {
			sum.RecentCount++
		}
	}
	return sum
}
