package ledger

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/loomworks-erp/loomworks-erp/internal/money"
)

// UnderlyingKind identifies the originating record type of a ledger entry.
type UnderlyingKind string

const (
	KindBill               UnderlyingKind = "BILL"
	KindManualPayable      UnderlyingKind = "MANUAL_PAYABLE"
	KindManualReceivable   UnderlyingKind = "MANUAL_RECEIVABLE"
	KindCheque             UnderlyingKind = "CHEQUE"
	KindBankTxn            UnderlyingKind = "BANK_TXN"
	KindInventoryValuation UnderlyingKind = "INVENTORY_VALUATION"
)

// Category is the user-facing classification of a ledger entry.
type Category string

const (
	CategoryPayable    Category = "PAYABLE"
	CategoryReceivable Category = "RECEIVABLE"
	CategoryCheque     Category = "CHEQUE"
	CategoryBank       Category = "BANK"
	CategoryInventory  Category = "INVENTORY"
)

// TracksBalance reports whether entries of this category carry a remaining
// balance that payments settle against.
func (c Category) TracksBalance() bool {
	return c == CategoryPayable || c == CategoryReceivable
}

// TransactionDirection distinguishes sale from purchase bills.
type TransactionDirection string

const (
	DirectionSale     TransactionDirection = "SALE"
	DirectionPurchase TransactionDirection = "PURCHASE"
)

// Status enumerates entry lifecycle states. Balance-tracking entries move
// forward through PENDING/PARTIAL into COMPLETED or CANCELLED; cheques carry
// their own closed set (CLEARED/BOUNCED/REPLACED) untouched by balance rules.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPartial   Status = "PARTIAL"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
	StatusCleared   Status = "CLEARED"
	StatusBounced   Status = "BOUNCED"
	StatusReplaced  Status = "REPLACED"
)

// Terminal reports whether no further payment may be applied.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// PaymentMode enumerates settlement instruments.
type PaymentMode string

const (
	ModeCash   PaymentMode = "CASH"
	ModeCheque PaymentMode = "CHEQUE"
	ModeOnline PaymentMode = "ONLINE"
)

// EntryRef addresses an entry by underlying kind plus numeric row id. The
// legacy wire form ("bill:123") survives only at the HTTP boundary through
// String and ParseEntryRef.
type EntryRef struct {
	Kind UnderlyingKind
	ID   int64
}

var kindTags = map[UnderlyingKind]string{
	KindBill:               "bill",
	KindManualPayable:      "payable",
	KindManualReceivable:   "receivable",
	KindCheque:             "cheque",
	KindBankTxn:            "bank",
	KindInventoryValuation: "inventory",
}

var tagKinds = func() map[string]UnderlyingKind {
	m := make(map[string]UnderlyingKind, len(kindTags))
	for k, tag := range kindTags {
		m[tag] = k
	}
	return m
}()

// String renders the wire form, e.g. "bill:123".
func (r EntryRef) String() string {
	tag, ok := kindTags[r.Kind]
	if !ok {
		tag = strings.ToLower(string(r.Kind))
	}
	return tag + ":" + strconv.FormatInt(r.ID, 10)
}

// ErrBadEntryRef indicates a malformed entry reference.
var ErrBadEntryRef = errors.New("ledger: malformed entry reference")

// ParseEntryRef parses the wire form back into a tagged reference.
func ParseEntryRef(s string) (EntryRef, error) {
	tag, idStr, ok := strings.Cut(s, ":")
	if !ok {
		return EntryRef{}, fmt.Errorf("%w: %q", ErrBadEntryRef, s)
	}
	kind, ok := tagKinds[tag]
	if !ok {
		return EntryRef{}, fmt.Errorf("%w: unknown kind %q", ErrBadEntryRef, tag)
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return EntryRef{}, fmt.Errorf("%w: bad id %q", ErrBadEntryRef, idStr)
	}
	return EntryRef{Kind: kind, ID: id}, nil
}

// Payment is one recorded settlement against a ledger entry.
type Payment struct {
	ID              uuid.UUID
	Amount          money.Money
	Mode            PaymentMode
	ChequeNumber    string
	BankName        string
	TransactionDate time.Time
	ReferenceNumber string
	Notes           string
}

// LedgerEntry is the canonical unit of the unified ledger view.
type LedgerEntry struct {
	Ref             EntryRef
	Category        Category
	Kind            UnderlyingKind
	Direction       TransactionDirection
	TotalAmount     money.Money
	RemainingAmount money.Money
	Status          Status
	Party           string
	Khata           string
	EntryDate       time.Time
	DueDate         *time.Time
	// Payments in application order (insertion order).
	Payments []Payment
}

// Sentinel errors surfaced by payment recording.
var (
	ErrNotFound            = errors.New("ledger: entry not found")
	ErrInvalidAmount       = errors.New("ledger: payment amount must be positive")
	ErrEntryClosed         = errors.New("ledger: entry is closed to further payments")
	ErrMissingChequeNumber = errors.New("ledger: cheque number required for cheque payments")
	ErrMissingBankName     = errors.New("ledger: bank name required for cheque payments")
	ErrExceedsBalance      = errors.New("ledger: payment exceeds remaining balance")
)

// ExceedsBalanceError reports an overpayment attempt along with the exact
// remaining balance so callers can surface it.
type ExceedsBalanceError struct {
	Remaining money.Money
}

func (e *ExceedsBalanceError) Error() string {
	return fmt.Sprintf("ledger: payment exceeds remaining balance of %s", e.Remaining)
}

func (e *ExceedsBalanceError) Unwrap() error {
	return ErrExceedsBalance
}
