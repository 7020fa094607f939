package ledger

import (
	"time"

	"github.com/loomworks-erp/loomworks-erp/internal/money"
)

// RawRecord is a source row as loaded from the store, before normalization.
// One shape covers all six underlying tables; fields that a table lacks stay
// zero-valued.
type RawRecord struct {
	Kind      UnderlyingKind
	ID        int64
	Direction TransactionDirection
	Status    Status

	TotalAmount     money.Money
	RemainingAmount money.Money

	// LinkedPartyName is the name resolved from a linked party row, when the
	// record has a foreign key to one.
	LinkedPartyName string
	// PartyName is the manually supplied counter-party field.
	PartyName string
	Notes     string

	Khata     string
	EntryDate time.Time
	DueDate   *time.Time

	Payments []Payment
}

// Normalize maps a raw source record into the canonical entry shape. It is
// pure and total: absent data degrades to sentinels, never an error.
func Normalize(raw RawRecord) LedgerEntry {
	category := deriveCategory(raw.Kind, raw.Direction)
	return LedgerEntry{
		Ref:             EntryRef{Kind: raw.Kind, ID: raw.ID},
		Category:        category,
		Kind:            raw.Kind,
		Direction:       raw.Direction,
		TotalAmount:     raw.TotalAmount.Round2(),
		RemainingAmount: raw.RemainingAmount.Round2(),
		Status:          normalizeStatus(raw.Status),
		Party:           ResolveParty(category, raw.LinkedPartyName, raw.PartyName, raw.Notes),
		Khata:           raw.Khata,
		EntryDate:       raw.EntryDate,
		DueDate:         raw.DueDate,
		Payments:        raw.Payments,
	}
}

// deriveCategory computes the user-facing category from the underlying
// transaction semantics. Bills with an unknown direction pass the raw kind
// through unchanged rather than guessing.
func deriveCategory(kind UnderlyingKind, direction TransactionDirection) Category {
	switch kind {
	case KindManualPayable:
		return CategoryPayable
	case KindManualReceivable:
		return CategoryReceivable
	case KindBill:
		switch direction {
		case DirectionSale:
			return CategoryReceivable
		case DirectionPurchase:
			return CategoryPayable
		default:
			return Category(kind)
		}
	case KindCheque:
		return CategoryCheque
	case KindBankTxn:
		return CategoryBank
	case KindInventoryValuation:
		return CategoryInventory
	default:
		return Category(kind)
	}
}

// normalizeStatus folds per-table terminal labels (bills use PAID) into the
// unified closed set. Cheque lifecycle states pass through untouched.
func normalizeStatus(s Status) Status {
	switch s {
	case "PAID":
		return StatusCompleted
	case "":
		return StatusPending
	default:
		return s
	}
}
