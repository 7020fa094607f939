package ledger

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Repairer validates and, where safe, repairs invariant violations in entries
// read from the store. The store may hold rows written before the invariants
// were enforced, so every read passes through here. Repairs are corrections,
// not errors: they log at warning level and never fail the read.
type Repairer struct {
	logger  *slog.Logger
	repairs prometheus.Counter
}

// NewRepairer constructs a Repairer. The counter may be nil.
func NewRepairer(logger *slog.Logger, repairs prometheus.Counter) *Repairer {
	return &Repairer{logger: logger, repairs: repairs}
}

// Repair applies the repair pipeline to one entry and reports what it fixed.
func (r *Repairer) Repair(entry LedgerEntry) LedgerEntry {
	repaired, notes := repairEntry(entry)
	for _, note := range notes {
		if r.logger != nil {
			r.logger.Warn("ledger entry repaired",
				slog.String("entry", entry.Ref.String()),
				slog.String("repair", note))
		}
		if r.repairs != nil {
			r.repairs.Inc()
		}
	}
	return repaired
}

// repairEntry runs the ordered repair steps. Each step is independently
// idempotent: applying the pipeline twice equals applying it once.
func repairEntry(e LedgerEntry) (LedgerEntry, []string) {
	if !e.Category.TracksBalance() {
		return e, nil
	}
	var notes []string

	// Remaining balance can never exceed the total.
	if e.RemainingAmount.ExceedsByEpsilon(e.TotalAmount) {
		notes = append(notes, fmt.Sprintf("remaining %s exceeded total %s, clamped", e.RemainingAmount, e.TotalAmount))
		e.RemainingAmount = e.TotalAmount
	}

	// A settled balance means a terminal status.
	if e.RemainingAmount.NearZero() && !e.Status.Terminal() {
		notes = append(notes, fmt.Sprintf("remaining %s at zero but status %s, completed", e.RemainingAmount, e.Status))
		e.Status = StatusCompleted
	}

	// A completed entry cannot still carry a balance.
	if e.Status == StatusCompleted && !e.RemainingAmount.NearZero() {
		next := StatusPending
		if e.RemainingAmount.LessThan(e.TotalAmount) {
			next = StatusPartial
		}
		notes = append(notes, fmt.Sprintf("status COMPLETED with remaining %s, downgraded to %s", e.RemainingAmount, next))
		e.Status = next
	}

	return e, notes
}
