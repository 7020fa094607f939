package ledger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/loomworks-erp/loomworks-erp/internal/money"
	"github.com/loomworks-erp/loomworks-erp/internal/shared"
)

func TestApplyPaymentPartial(t *testing.T) {
	entry := balanceEntry("100.00", "100.00", StatusPending)
	got, err := ApplyPayment(entry, Payment{Amount: money.MustParse("40.00"), Mode: ModeCash})
	require.NoError(t, err)
	require.Equal(t, "60.00", got.RemainingAmount.String())
	require.Equal(t, StatusPartial, got.Status)
	require.Len(t, got.Payments, 1)
	require.NotZero(t, got.Payments[0].ID)
	require.False(t, got.Payments[0].TransactionDate.IsZero())
}

func TestApplyPaymentCompletesAtExactBalance(t *testing.T) {
	entry := balanceEntry("100.00", "100.00", StatusPending)
	got, err := ApplyPayment(entry, Payment{Amount: money.MustParse("100.00"), Mode: ModeCash})
	require.NoError(t, err)
	require.True(t, got.RemainingAmount.IsZero())
	require.Equal(t, StatusCompleted, got.Status)
}

func TestApplyPaymentToleratesEpsilonOverpay(t *testing.T) {
	entry := balanceEntry("100.00", "100.00", StatusPending)
	got, err := ApplyPayment(entry, Payment{Amount: money.MustParse("100.004"), Mode: ModeCash})
	require.NoError(t, err)
	require.True(t, got.RemainingAmount.IsZero())
	require.Equal(t, StatusCompleted, got.Status)
}

func TestApplyPaymentRejectsOverpayment(t *testing.T) {
	entry := balanceEntry("100.00", "100.00", StatusPending)
	_, err := ApplyPayment(entry, Payment{Amount: money.MustParse("100.01"), Mode: ModeCash})
	require.ErrorIs(t, err, ErrExceedsBalance)

	var exceeds *ExceedsBalanceError
	require.ErrorAs(t, err, &exceeds)
	require.Equal(t, "100.00", exceeds.Remaining.String())
}

func TestApplyPaymentRejectsNonPositiveAmounts(t *testing.T) {
	entry := balanceEntry("100.00", "100.00", StatusPending)
	for _, amount := range []string{"0", "-5.00", "0.004"} {
		_, err := ApplyPayment(entry, Payment{Amount: money.MustParse(amount), Mode: ModeCash})
		require.ErrorIs(t, err, ErrInvalidAmount, amount)
	}
}

func TestApplyPaymentChequeRequiresNumberAndBank(t *testing.T) {
	entry := balanceEntry("100.00", "100.00", StatusPending)

	_, err := ApplyPayment(entry, Payment{Amount: money.MustParse("10.00"), Mode: ModeCheque})
	require.ErrorIs(t, err, ErrMissingChequeNumber)

	_, err = ApplyPayment(entry, Payment{Amount: money.MustParse("10.00"), Mode: ModeCheque, ChequeNumber: "000123"})
	require.ErrorIs(t, err, ErrMissingBankName)

	got, err := ApplyPayment(entry, Payment{
		Amount: money.MustParse("10.00"), Mode: ModeCheque, ChequeNumber: "000123", BankName: "SBI",
	})
	require.NoError(t, err)
	require.Equal(t, "90.00", got.RemainingAmount.String())
}

func TestApplyPaymentRejectsClosedEntries(t *testing.T) {
	for _, status := range []Status{StatusCompleted, StatusCancelled} {
		entry := balanceEntry("100.00", "0.00", status)
		_, err := ApplyPayment(entry, Payment{Amount: money.MustParse("10.00"), Mode: ModeCash})
		require.ErrorIs(t, err, ErrEntryClosed, status)
	}
}

func TestApplyPaymentRejectsNonBalanceCategories(t *testing.T) {
	entry := LedgerEntry{
		Ref:      EntryRef{Kind: KindCheque, ID: 3},
		Category: CategoryCheque,
		Status:   StatusPending,
	}
	_, err := ApplyPayment(entry, Payment{Amount: money.MustParse("10.00"), Mode: ModeCash})
	require.ErrorIs(t, err, ErrEntryClosed)
}

func TestApplyPaymentDoesNotMutateInput(t *testing.T) {
	entry := balanceEntry("100.00", "100.00", StatusPending)
	entry.Payments = []Payment{{Amount: money.MustParse("1.00"), Mode: ModeCash}}
	_, err := ApplyPayment(entry, Payment{Amount: money.MustParse("40.00"), Mode: ModeCash})
	require.NoError(t, err)
	require.Equal(t, "100.00", entry.RemainingAmount.String())
	require.Len(t, entry.Payments, 1)
}

// memoryRepo backs service tests without a database.
type memoryRepo struct {
	records  map[EntryRef]*RawRecord
	payments map[EntryRef][]Payment
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo(records ...RawRecord) *memoryRepo {
	repo := &memoryRepo{
		records:  make(map[EntryRef]*RawRecord),
		payments: make(map[EntryRef][]Payment),
	}
	for i := range records {
		rec := records[i]
		repo.records[EntryRef{Kind: rec.Kind, ID: rec.ID}] = &rec
	}
	return repo
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) ListRawRecords(ctx context.Context, khata string) ([]RawRecord, error) {
	var out []RawRecord
	for ref, rec := range r.records {
		if khata != "" && rec.Khata != khata {
			continue
		}
		copied := *rec
		copied.Payments = append([]Payment(nil), r.payments[ref]...)
		out = append(out, copied)
	}
	return out, nil
}

func (r *memoryRepo) GetRawRecord(ctx context.Context, ref EntryRef) (RawRecord, error) {
	rec, ok := r.records[ref]
	if !ok {
		return RawRecord{}, ErrNotFound
	}
	copied := *rec
	copied.Payments = append([]Payment(nil), r.payments[ref]...)
	return copied, nil
}

func (tx *memoryTx) GetRawRecordForUpdate(ctx context.Context, ref EntryRef) (RawRecord, error) {
	rec, ok := tx.repo.records[ref]
	if !ok {
		return RawRecord{}, ErrNotFound
	}
	// mirrors the store: the locking load serves the payment path only
	if !Normalize(*rec).Category.TracksBalance() {
		return RawRecord{}, fmt.Errorf("%w: %s does not track a balance", ErrEntryClosed, ref)
	}
	copied := *rec
	copied.Payments = append([]Payment(nil), tx.repo.payments[ref]...)
	return copied, nil
}

func (tx *memoryTx) UpdateBalance(ctx context.Context, ref EntryRef, remaining money.Money, status Status) error {
	rec, ok := tx.repo.records[ref]
	if !ok {
		return ErrNotFound
	}
	rec.RemainingAmount = remaining
	rec.Status = status
	return nil
}

func (tx *memoryTx) InsertPayment(ctx context.Context, ref EntryRef, p Payment) error {
	tx.repo.payments[ref] = append(tx.repo.payments[ref], p)
	return nil
}

type memoryAudit struct {
	logs []shared.AuditLog
}

func (a *memoryAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func billRecord(id int64, total, remaining string, status Status) RawRecord {
	return RawRecord{
		Kind:            KindBill,
		ID:              id,
		Direction:       DirectionPurchase,
		Status:          status,
		TotalAmount:     money.MustParse(total),
		RemainingAmount: money.MustParse(remaining),
		Khata:           "2025-26",
		EntryDate:       time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
	}
}

func TestServiceRecordPaymentPersistsBalanceAndPayment(t *testing.T) {
	repo := newMemoryRepo(billRecord(1, "100.00", "100.00", StatusPending))
	audit := &memoryAudit{}
	svc := NewService(repo, NewRepairer(nil, nil), audit, nil)
	ref := EntryRef{Kind: KindBill, ID: 1}

	entry, err := svc.RecordPayment(context.Background(), ref, Payment{Amount: money.MustParse("60.00"), Mode: ModeCash})
	require.NoError(t, err)
	require.Equal(t, "40.00", entry.RemainingAmount.String())
	require.Equal(t, StatusPartial, entry.Status)

	require.Equal(t, "40.00", repo.records[ref].RemainingAmount.String())
	require.Equal(t, StatusPartial, repo.records[ref].Status)
	require.Len(t, repo.payments[ref], 1)

	require.Len(t, audit.logs, 1)
	require.Equal(t, "ledger:payment", audit.logs[0].Action)
	require.Equal(t, ref.String(), audit.logs[0].EntityID)
}

func TestServiceRecordPaymentRepairsBeforeApplying(t *testing.T) {
	// Remaining above total gets clamped first, so the full clamped balance
	// can be settled in one payment.
	repo := newMemoryRepo(billRecord(1, "100.00", "150.00", StatusPending))
	svc := NewService(repo, NewRepairer(nil, nil), nil, nil)
	ref := EntryRef{Kind: KindBill, ID: 1}

	entry, err := svc.RecordPayment(context.Background(), ref, Payment{Amount: money.MustParse("100.00"), Mode: ModeCash})
	require.NoError(t, err)
	require.True(t, entry.RemainingAmount.IsZero())
	require.Equal(t, StatusCompleted, entry.Status)
}

func TestServiceRecordPaymentOverpaymentLeavesStoreUntouched(t *testing.T) {
	repo := newMemoryRepo(billRecord(1, "100.00", "100.00", StatusPending))
	svc := NewService(repo, NewRepairer(nil, nil), nil, nil)
	ref := EntryRef{Kind: KindBill, ID: 1}

	_, err := svc.RecordPayment(context.Background(), ref, Payment{Amount: money.MustParse("100.01"), Mode: ModeCash})
	require.ErrorIs(t, err, ErrExceedsBalance)
	require.Equal(t, "100.00", repo.records[ref].RemainingAmount.String())
	require.Empty(t, repo.payments[ref])
}

func TestServiceGetEntryCoversAllKinds(t *testing.T) {
	cheque := RawRecord{
		Kind: KindCheque, ID: 3, Status: StatusCleared, PartyName: "Acme Textiles",
		TotalAmount: money.MustParse("500.00"), Khata: "2025-26",
		EntryDate: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	bank := RawRecord{
		Kind: KindBankTxn, ID: 7, Status: StatusCompleted,
		TotalAmount: money.MustParse("250.00"), Khata: "2025-26",
		EntryDate: time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC),
	}
	valuation := RawRecord{
		Kind: KindInventoryValuation, ID: 9, Status: StatusCompleted,
		TotalAmount: money.MustParse("1200.00"), Khata: "2025-26",
		EntryDate: time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC),
	}
	repo := newMemoryRepo(billRecord(1, "100.00", "100.00", StatusPending), cheque, bank, valuation)
	svc := NewService(repo, NewRepairer(nil, nil), nil, nil)

	for _, tc := range []struct {
		ref      EntryRef
		category Category
	}{
		{EntryRef{Kind: KindBill, ID: 1}, CategoryPayable},
		{EntryRef{Kind: KindCheque, ID: 3}, CategoryCheque},
		{EntryRef{Kind: KindBankTxn, ID: 7}, CategoryBank},
		{EntryRef{Kind: KindInventoryValuation, ID: 9}, CategoryInventory},
	} {
		entry, err := svc.GetEntry(context.Background(), tc.ref)
		require.NoError(t, err, tc.ref.String())
		require.Equal(t, tc.ref, entry.Ref)
		require.Equal(t, tc.category, entry.Category)
	}

	entry, err := svc.GetEntry(context.Background(), EntryRef{Kind: KindCheque, ID: 3})
	require.NoError(t, err)
	require.Equal(t, StatusCleared, entry.Status)
	require.Equal(t, "Acme Textiles", entry.Party)
}

func TestServiceGetEntryUnknown(t *testing.T) {
	svc := NewService(newMemoryRepo(), NewRepairer(nil, nil), nil, nil)
	_, err := svc.GetEntry(context.Background(), EntryRef{Kind: KindCheque, ID: 99})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestServiceRecordPaymentRejectsNonBalanceKinds(t *testing.T) {
	cheque := RawRecord{
		Kind: KindCheque, ID: 3, Status: StatusPending,
		TotalAmount: money.MustParse("500.00"), Khata: "2025-26",
		EntryDate: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	repo := newMemoryRepo(cheque)
	svc := NewService(repo, NewRepairer(nil, nil), nil, nil)

	_, err := svc.RecordPayment(context.Background(), EntryRef{Kind: KindCheque, ID: 3},
		Payment{Amount: money.MustParse("10.00"), Mode: ModeCash})
	require.ErrorIs(t, err, ErrEntryClosed)
}

func TestServiceRecordPaymentUnknownEntry(t *testing.T) {
	svc := NewService(newMemoryRepo(), NewRepairer(nil, nil), nil, nil)
	_, err := svc.RecordPayment(context.Background(), EntryRef{Kind: KindBill, ID: 99}, Payment{Amount: money.MustParse("10.00"), Mode: ModeCash})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestServiceListEntriesFiltersByKhata(t *testing.T) {
	a := billRecord(1, "100.00", "100.00", StatusPending)
	b := billRecord(2, "50.00", "50.00", StatusPending)
	b.Khata = "2024-25"
	repo := newMemoryRepo(a, b)
	svc := NewService(repo, NewRepairer(nil, nil), nil, nil)

	entries, summary, err := svc.ListEntries(context.Background(), "2025-26", time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, 1, summary.PayableCount)
	require.Equal(t, "100.00", summary.PayableTotal.String())
}

func TestServiceRepairSweepPersistsCorrections(t *testing.T) {
	broken := billRecord(1, "100.00", "0.00", StatusPartial)
	clean := billRecord(2, "50.00", "50.00", StatusPending)
	repo := newMemoryRepo(broken, clean)
	svc := NewService(repo, NewRepairer(nil, nil), nil, nil)

	fixed, err := svc.RepairSweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, fixed)
	require.Equal(t, StatusCompleted, repo.records[EntryRef{Kind: KindBill, ID: 1}].Status)

	fixed, err = svc.RepairSweep(context.Background())
	require.NoError(t, err)
	require.Zero(t, fixed)
}
