package inventory

import (
	"github.com/loomworks-erp/loomworks-erp/internal/production"
)

// Reconcile cross-references the eligible upstream records against existing
// inventory transactions and returns the de-duplicated pending set.
//
// The already-imported signal is derived from transaction back-references,
// never from the upstream inventory_status flag: the flag is a denormalized
// cache that can lag (a marker update is best-effort after absorption), while
// a committed transaction row cannot.
//
// Pure: identical inputs always yield the identical pending set, so callers
// may re-run reconciliation arbitrarily often.
func Reconcile(eligible production.EligibleSet, existing []Transaction) []PendingItem {
	imported := make(map[SourceRef]struct{}, len(existing))
	for _, tx := range existing {
		if ref, ok := tx.BackRef(); ok {
			imported[ref] = struct{}{}
		}
	}

	candidates := make([]PendingItem, 0, len(eligible.Threads)+len(eligible.Dyeings)+len(eligible.Fabrics))

	for _, tp := range eligible.Threads {
		ref := SourceRef{Kind: SourceThreadPurchase, ID: tp.ID}
		if _, ok := imported[ref]; ok {
			continue
		}
		candidates = append(candidates, PendingItem{
			Source:      ref,
			ProductKind: ProductThread,
			Name:        tp.ThreadType,
			Color:       tp.Color,
			Quantity:    tp.Quantity,
			Unit:        tp.Unit,
		})
	}

	for _, dp := range eligible.Dyeings {
		ref := SourceRef{Kind: SourceDyeingProcess, ID: dp.ID}
		if _, ok := imported[ref]; ok {
			continue
		}
		candidates = append(candidates, PendingItem{
			Source:      ref,
			ProductKind: ProductThread,
			Name:        dp.ThreadType,
			Color:       dp.Color,
			Quantity:    dp.Quantity,
			Unit:        dp.Unit,
		})
	}

	for _, fp := range eligible.Fabrics {
		ref := SourceRef{Kind: SourceFabricProduction, ID: fp.ID}
		if _, ok := imported[ref]; ok {
			continue
		}
		candidates = append(candidates, PendingItem{
			Source:      ref,
			ProductKind: ProductFabric,
			Name:        fp.FabricType,
			Quantity:    fp.Quantity,
			Unit:        fp.Unit,
		})
	}

	// Final dedup by identity key, keeping the first occurrence. The upstream
	// queries are expected to be duplicate-free already, but this pass is the
	// uniqueness boundary the import pipeline depends on, so it always runs.
	seen := make(map[SourceRef]struct{}, len(candidates))
	pending := candidates[:0]
	for _, item := range candidates {
		if _, ok := seen[item.Source]; ok {
			continue
		}
		seen[item.Source] = struct{}{}
		pending = append(pending, item)
	}
	return pending
}
