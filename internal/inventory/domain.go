package inventory

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SourceKind identifies which upstream production domain a record came from.
type SourceKind string

const (
	SourceThreadPurchase   SourceKind = "THREAD_PURCHASE"
	SourceDyeingProcess    SourceKind = "DYEING_PROCESS"
	SourceFabricProduction SourceKind = "FABRIC_PRODUCTION"
)

// ProductKind classifies what an inventory item holds.
type ProductKind string

const (
	ProductThread ProductKind = "THREAD"
	ProductFabric ProductKind = "FABRIC"
)

// TransactionType classifies stock movements.
type TransactionType string

const (
	TxPurchase   TransactionType = "PURCHASE"
	TxProduction TransactionType = "PRODUCTION"
	TxSales      TransactionType = "SALES"
	TxAdjustment TransactionType = "ADJUSTMENT"
	TxTransfer   TransactionType = "TRANSFER"
)

// SourceRef is the identity key of an upstream record. One production row
// maps to at most one inventory absorption, ever.
type SourceRef struct {
	Kind SourceKind
	ID   int64
}

// String renders the wire and idempotency-key form, e.g. "THREAD_PURCHASE:12".
func (r SourceRef) String() string {
	return string(r.Kind) + ":" + strconv.FormatInt(r.ID, 10)
}

// ErrBadSourceRef indicates a malformed source reference.
var ErrBadSourceRef = errors.New("inventory: malformed source reference")

// ParseSourceRef parses the wire form back into a reference.
func ParseSourceRef(s string) (SourceRef, error) {
	kindStr, idStr, ok := strings.Cut(s, ":")
	if !ok {
		return SourceRef{}, fmt.Errorf("%w: %q", ErrBadSourceRef, s)
	}
	kind := SourceKind(kindStr)
	switch kind {
	case SourceThreadPurchase, SourceDyeingProcess, SourceFabricProduction:
	default:
		return SourceRef{}, fmt.Errorf("%w: unknown kind %q", ErrBadSourceRef, kindStr)
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return SourceRef{}, fmt.Errorf("%w: bad id %q", ErrBadSourceRef, idStr)
	}
	return SourceRef{Kind: kind, ID: id}, nil
}

// PendingItem is an upstream production record eligible for, but not yet
// absorbed into, inventory. It has no persisted identity; every
// reconciliation pass recomputes the set from current state.
type PendingItem struct {
	Source      SourceRef
	ProductKind ProductKind
	Name        string
	Color       string
	Quantity    float64
	Unit        string
}

// Item is one stocked product.
type Item struct {
	ID          int64
	ProductKind ProductKind
	Name        string
	Color       string
	Unit        string
	Quantity    float64
}

// Transaction is one stock movement, append-only once created. At most one
// back-reference may be set; a non-null back-reference is the authoritative
// signal that the production record has been absorbed.
type Transaction struct {
	ID             int64
	ItemID         int64
	QuantityDelta  float64
	RemainingAfter float64
	Type           TransactionType

	ThreadPurchaseID   *int64
	DyeingProcessID    *int64
	FabricProductionID *int64
	SalesOrderID       *int64

	CreatedAt time.Time
}

// ErrMultipleBackRefs indicates a transaction carrying more than one
// back-reference.
var ErrMultipleBackRefs = errors.New("inventory: transaction carries more than one source back-reference")

// Validate enforces the back-reference arity rule.
func (t Transaction) Validate() error {
	count := 0
	for _, ref := range []*int64{t.ThreadPurchaseID, t.DyeingProcessID, t.FabricProductionID, t.SalesOrderID} {
		if ref != nil {
			count++
		}
	}
	if count > 1 {
		return ErrMultipleBackRefs
	}
	return nil
}

// BackRef returns the production source this transaction absorbed, if any.
// Sales order references are not production sources and report false.
func (t Transaction) BackRef() (SourceRef, bool) {
	switch {
	case t.ThreadPurchaseID != nil:
		return SourceRef{Kind: SourceThreadPurchase, ID: *t.ThreadPurchaseID}, true
	case t.DyeingProcessID != nil:
		return SourceRef{Kind: SourceDyeingProcess, ID: *t.DyeingProcessID}, true
	case t.FabricProductionID != nil:
		return SourceRef{Kind: SourceFabricProduction, ID: *t.FabricProductionID}, true
	default:
		return SourceRef{}, false
	}
}

// Sentinel errors for absorption.
var (
	ErrAlreadyAbsorbed = errors.New("inventory: source already absorbed")
	ErrUnknownSource   = errors.New("inventory: source is not pending")
	ErrItemNotFound    = errors.New("inventory: item not found")
)

// AbsorptionError reports one failed absorption inside an import batch.
type AbsorptionError struct {
	Source SourceRef
	Cause  error
}

func (e *AbsorptionError) Error() string {
	return fmt.Sprintf("inventory: absorb %s: %v", e.Source, e.Cause)
}

func (e *AbsorptionError) Unwrap() error {
	return e.Cause
}
