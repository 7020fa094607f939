package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/loomworks-erp/loomworks-erp/internal/money"
	"github.com/loomworks-erp/loomworks-erp/internal/shared"
)

// ApplyPayment applies one payment to an entry and returns the updated entry.
// It is pure: callers provide atomicity (see Service.RecordPayment). Amounts
// are rounded to two decimal places before comparison and storage so repeated
// loads stay stable.
func ApplyPayment(entry LedgerEntry, payment Payment) (LedgerEntry, error) {
	if !entry.Category.TracksBalance() || entry.Status.Terminal() {
		return LedgerEntry{}, ErrEntryClosed
	}

	amount := payment.Amount.Round2()
	if !amount.IsPositive() {
		return LedgerEntry{}, ErrInvalidAmount
	}
	if payment.Mode == ModeCheque {
		if payment.ChequeNumber == "" {
			return LedgerEntry{}, ErrMissingChequeNumber
		}
		if payment.BankName == "" {
			return LedgerEntry{}, ErrMissingBankName
		}
	}
	if amount.ExceedsByEpsilon(entry.RemainingAmount) {
		return LedgerEntry{}, &ExceedsBalanceError{Remaining: entry.RemainingAmount}
	}

	remaining := entry.RemainingAmount.Sub(amount).Round2()
	if remaining.NearZero() {
		remaining = money.Zero()
	}

	payment.Amount = amount
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	if payment.TransactionDate.IsZero() {
		payment.TransactionDate = time.Now().UTC()
	}

	entry.Payments = append(append([]Payment(nil), entry.Payments...), payment)
	entry.RemainingAmount = remaining
	entry.Status = statusForBalance(remaining, entry.TotalAmount)
	return entry, nil
}

// statusForBalance recomputes status from the remaining balance, using the
// same rule the repair pipeline enforces.
func statusForBalance(remaining, total money.Money) Status {
	switch {
	case remaining.NearZero():
		return StatusCompleted
	case remaining.LessThan(total):
		return StatusPartial
	default:
		return StatusPending
	}
}

// Repo defines read operations the service needs.
type Repo interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListRawRecords(ctx context.Context, khata string) ([]RawRecord, error)
	// GetRawRecord loads one source row of any kind without locking it.
	GetRawRecord(ctx context.Context, ref EntryRef) (RawRecord, error)
}

// TxRepository exposes the transactional operations used while recording a
// payment. The store serializes concurrent writers: GetRawRecordForUpdate
// locks the row so two payments cannot both pass the balance check against a
// stale value.
type TxRepository interface {
	GetRawRecordForUpdate(ctx context.Context, ref EntryRef) (RawRecord, error)
	UpdateBalance(ctx context.Context, ref EntryRef, remaining money.Money, status Status) error
	InsertPayment(ctx context.Context, ref EntryRef, payment Payment) error
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service exposes the unified ledger read and write paths.
type Service struct {
	repo     Repo
	repairer *Repairer
	audit    AuditPort
	logger   *slog.Logger
}

// NewService builds Service.
func NewService(repo Repo, repairer *Repairer, audit AuditPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, repairer: repairer, audit: audit, logger: logger}
}

// ListEntries returns the normalized, repaired ledger view for one khata
// (empty khata lists every book) plus its summary.
func (s *Service) ListEntries(ctx context.Context, khata string, now time.Time) ([]LedgerEntry, Summary, error) {
	raws, err := s.repo.ListRawRecords(ctx, khata)
	if err != nil {
		return nil, Summary{}, err
	}
	entries := make([]LedgerEntry, 0, len(raws))
	for _, raw := range raws {
		entries = append(entries, s.repairer.Repair(Normalize(raw)))
	}
	return entries, Summarize(entries, now), nil
}

// GetEntry returns one normalized, repaired entry. Reads cover every kind in
// the composite view; only the payment path takes a row lock.
func (s *Service) GetEntry(ctx context.Context, ref EntryRef) (LedgerEntry, error) {
	raw, err := s.repo.GetRawRecord(ctx, ref)
	if err != nil {
		return LedgerEntry{}, err
	}
	return s.repairer.Repair(Normalize(raw)), nil
}

// RecordPayment applies a payment inside one store transaction: the entry
// balance update and the payment row commit together or not at all.
func (s *Service) RecordPayment(ctx context.Context, ref EntryRef, payment Payment) (LedgerEntry, error) {
	var updated LedgerEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		raw, err := tx.GetRawRecordForUpdate(ctx, ref)
		if err != nil {
			return err
		}
		entry := s.repairer.Repair(Normalize(raw))
		entry, err = ApplyPayment(entry, payment)
		if err != nil {
			return err
		}
		applied := entry.Payments[len(entry.Payments)-1]
		if err := tx.InsertPayment(ctx, ref, applied); err != nil {
			return err
		}
		if err := tx.UpdateBalance(ctx, ref, entry.RemainingAmount, entry.Status); err != nil {
			return err
		}
		updated = entry
		return nil
	})
	if err != nil {
		return LedgerEntry{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			Action:   "ledger:payment",
			Entity:   "ledger_entry",
			EntityID: ref.String(),
			Meta: map[string]any{
				"amount":    payment.Amount.String(),
				"mode":      string(payment.Mode),
				"remaining": updated.RemainingAmount.String(),
				"status":    string(updated.Status),
			},
		})
	}
	return updated, nil
}

// RepairSweep normalizes and repairs every stored entry, persisting the
// corrected balance and status where they differ. Used by the nightly
// integrity job; read-time repair remains the first line of defense.
func (s *Service) RepairSweep(ctx context.Context) (int, error) {
	raws, err := s.repo.ListRawRecords(ctx, "")
	if err != nil {
		return 0, err
	}
	fixed := 0
	for _, raw := range raws {
		entry := Normalize(raw)
		repaired := s.repairer.Repair(entry)
		if repaired.RemainingAmount.Equal(entry.RemainingAmount) && repaired.Status == entry.Status {
			continue
		}
		err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			return tx.UpdateBalance(ctx, repaired.Ref, repaired.RemainingAmount, repaired.Status)
		})
		if err != nil {
			return fixed, fmt.Errorf("persist repair for %s: %w", repaired.Ref, err)
		}
		fixed++
	}
	return fixed, nil
}
