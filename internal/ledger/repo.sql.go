package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/loomworks-erp/loomworks-erp/internal/money"
)

// ListRawRecords loads every source row for the composite ledger view,
// scoped to one khata when non-empty. Payments are attached to
// balance-tracking rows in creation order.
func (r *Repository) ListRawRecords(ctx context.Context, khata string) ([]RawRecord, error) {
	payments, err := r.listPayments(ctx)
	if err != nil {
		return nil, err
	}

	var records []RawRecord

	bills, err := r.listBills(ctx, khata)
	if err != nil {
		return nil, err
	}
	records = append(records, bills...)

	manual, err := r.listManualEntries(ctx, khata)
	if err != nil {
		return nil, err
	}
	records = append(records, manual...)

	others, err := r.listNonBalanceRecords(ctx, khata)
	if err != nil {
		return nil, err
	}
	records = append(records, others...)

	for i := range records {
		key := EntryRef{Kind: records[i].Kind, ID: records[i].ID}
		records[i].Payments = payments[key]
	}
	return records, nil
}

func (r *Repository) listBills(ctx context.Context, khata string) ([]RawRecord, error) {
	rows, err := r.pool.Query(ctx, `
SELECT b.id, b.direction, COALESCE(p.name, ''), COALESCE(b.party_name, ''), COALESCE(b.notes, ''),
       b.khata, b.total_amount, b.remaining_amount, b.status, b.entry_date, b.due_date
FROM bills b
LEFT JOIN parties p ON p.id = b.party_id
WHERE ($1 = '' OR b.khata = $1)
ORDER BY b.entry_date DESC, b.id DESC`, khata)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []RawRecord
	for rows.Next() {
		raw := RawRecord{Kind: KindBill}
		var due *time.Time
		if err := rows.Scan(&raw.ID, &raw.Direction, &raw.LinkedPartyName, &raw.PartyName, &raw.Notes,
			&raw.Khata, &raw.TotalAmount, &raw.RemainingAmount, &raw.Status, &raw.EntryDate, &due); err != nil {
			return nil, err
		}
		raw.DueDate = due
		records = append(records, raw)
	}
	return records, rows.Err()
}

func (r *Repository) listManualEntries(ctx context.Context, khata string) ([]RawRecord, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, entry_kind, COALESCE(party_name, ''), COALESCE(notes, ''), khata,
       total_amount, remaining_amount, status, entry_date, due_date
FROM manual_entries
WHERE ($1 = '' OR khata = $1)
ORDER BY entry_date DESC, id DESC`, khata)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []RawRecord
	for rows.Next() {
		var raw RawRecord
		var due *time.Time
		if err := rows.Scan(&raw.ID, &raw.Kind, &raw.PartyName, &raw.Notes, &raw.Khata,
			&raw.TotalAmount, &raw.RemainingAmount, &raw.Status, &raw.EntryDate, &due); err != nil {
			return nil, err
		}
		raw.DueDate = due
		records = append(records, raw)
	}
	return records, rows.Err()
}

// listNonBalanceRecords loads cheques, bank transactions and inventory
// valuations. These carry a single amount and no remaining balance.
func (r *Repository) listNonBalanceRecords(ctx context.Context, khata string) ([]RawRecord, error) {
	queries := []struct {
		kind UnderlyingKind
		sql  string
	}{
		{KindCheque, `
SELECT id, COALESCE(party_name, ''), COALESCE(notes, ''), khata, amount, status, entry_date, due_date
FROM cheques WHERE ($1 = '' OR khata = $1) ORDER BY entry_date DESC, id DESC`},
		{KindBankTxn, `
SELECT id, '', COALESCE(notes, ''), khata, amount, status, entry_date, NULL::timestamptz
FROM bank_transactions WHERE ($1 = '' OR khata = $1) ORDER BY entry_date DESC, id DESC`},
		{KindInventoryValuation, `
SELECT id, '', COALESCE(notes, ''), khata, amount, status, entry_date, NULL::timestamptz
FROM inventory_valuations WHERE ($1 = '' OR khata = $1) ORDER BY entry_date DESC, id DESC`},
	}

	var records []RawRecord
	for _, q := range queries {
		rows, err := r.pool.Query(ctx, q.sql, khata)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			raw := RawRecord{Kind: q.kind}
			var due *time.Time
			if err := rows.Scan(&raw.ID, &raw.PartyName, &raw.Notes, &raw.Khata,
				&raw.TotalAmount, &raw.Status, &raw.EntryDate, &due); err != nil {
				rows.Close()
				return nil, err
			}
			raw.DueDate = due
			records = append(records, raw)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}
	return records, nil
}

func (r *Repository) listPayments(ctx context.Context) (map[EntryRef][]Payment, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, entry_kind, entry_id, amount, mode, COALESCE(cheque_number, ''), COALESCE(bank_name, ''),
       transaction_date, COALESCE(reference_number, ''), COALESCE(notes, '')
FROM ledger_payments
ORDER BY entry_kind, entry_id, created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make(map[EntryRef][]Payment)
	for rows.Next() {
		var p Payment
		var ref EntryRef
		if err := rows.Scan(&p.ID, &ref.Kind, &ref.ID, &p.Amount, &p.Mode, &p.ChequeNumber, &p.BankName,
			&p.TransactionDate, &p.ReferenceNumber, &p.Notes); err != nil {
			return nil, err
		}
		payments[ref] = append(payments[ref], p)
	}
	return payments, rows.Err()
}

// GetRawRecord loads one source row of any kind without locking it.
func (r *Repository) GetRawRecord(ctx context.Context, ref EntryRef) (RawRecord, error) {
	raw := RawRecord{Kind: ref.Kind}
	var due *time.Time
	var err error

	switch ref.Kind {
	case KindBill:
		err = r.pool.QueryRow(ctx, `
SELECT b.id, b.direction, COALESCE(p.name, ''), COALESCE(b.party_name, ''), COALESCE(b.notes, ''),
       b.khata, b.total_amount, b.remaining_amount, b.status, b.entry_date, b.due_date
FROM bills b
LEFT JOIN parties p ON p.id = b.party_id
WHERE b.id = $1`, ref.ID).Scan(&raw.ID, &raw.Direction, &raw.LinkedPartyName, &raw.PartyName, &raw.Notes,
			&raw.Khata, &raw.TotalAmount, &raw.RemainingAmount, &raw.Status, &raw.EntryDate, &due)
	case KindManualPayable, KindManualReceivable:
		err = r.pool.QueryRow(ctx, `
SELECT id, entry_kind, COALESCE(party_name, ''), COALESCE(notes, ''), khata,
       total_amount, remaining_amount, status, entry_date, due_date
FROM manual_entries
WHERE id = $1 AND entry_kind = $2`, ref.ID, ref.Kind).Scan(&raw.ID, &raw.Kind, &raw.PartyName, &raw.Notes, &raw.Khata,
			&raw.TotalAmount, &raw.RemainingAmount, &raw.Status, &raw.EntryDate, &due)
	case KindCheque:
		err = r.pool.QueryRow(ctx, `
SELECT id, COALESCE(party_name, ''), COALESCE(notes, ''), khata, amount, status, entry_date, due_date
FROM cheques WHERE id = $1`, ref.ID).Scan(&raw.ID, &raw.PartyName, &raw.Notes, &raw.Khata,
			&raw.TotalAmount, &raw.Status, &raw.EntryDate, &due)
	case KindBankTxn:
		err = r.pool.QueryRow(ctx, `
SELECT id, COALESCE(notes, ''), khata, amount, status, entry_date
FROM bank_transactions WHERE id = $1`, ref.ID).Scan(&raw.ID, &raw.Notes, &raw.Khata,
			&raw.TotalAmount, &raw.Status, &raw.EntryDate)
	case KindInventoryValuation:
		err = r.pool.QueryRow(ctx, `
SELECT id, COALESCE(notes, ''), khata, amount, status, entry_date
FROM inventory_valuations WHERE id = $1`, ref.ID).Scan(&raw.ID, &raw.Notes, &raw.Khata,
			&raw.TotalAmount, &raw.Status, &raw.EntryDate)
	default:
		return RawRecord{}, ErrNotFound
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RawRecord{}, ErrNotFound
		}
		return RawRecord{}, err
	}
	raw.DueDate = due

	payments, err := paymentsFor(ctx, r.pool, EntryRef{Kind: raw.Kind, ID: raw.ID})
	if err != nil {
		return RawRecord{}, err
	}
	raw.Payments = payments
	return raw, nil
}

// GetRawRecordForUpdate locks and loads one balance-tracking row. The FOR
// UPDATE lock is the serialization point for concurrent payments; reads of
// non-balance kinds go through GetRawRecord instead.
func (t *txRepo) GetRawRecordForUpdate(ctx context.Context, ref EntryRef) (RawRecord, error) {
	var raw RawRecord
	var due *time.Time
	var err error

	switch ref.Kind {
	case KindBill:
		raw.Kind = KindBill
		err = t.tx.QueryRow(ctx, `
SELECT b.id, b.direction, COALESCE(p.name, ''), COALESCE(b.party_name, ''), COALESCE(b.notes, ''),
       b.khata, b.total_amount, b.remaining_amount, b.status, b.entry_date, b.due_date
FROM bills b
LEFT JOIN parties p ON p.id = b.party_id
WHERE b.id = $1
FOR UPDATE OF b`, ref.ID).Scan(&raw.ID, &raw.Direction, &raw.LinkedPartyName, &raw.PartyName, &raw.Notes,
			&raw.Khata, &raw.TotalAmount, &raw.RemainingAmount, &raw.Status, &raw.EntryDate, &due)
	case KindManualPayable, KindManualReceivable:
		err = t.tx.QueryRow(ctx, `
SELECT id, entry_kind, COALESCE(party_name, ''), COALESCE(notes, ''), khata,
       total_amount, remaining_amount, status, entry_date, due_date
FROM manual_entries
WHERE id = $1 AND entry_kind = $2
FOR UPDATE`, ref.ID, ref.Kind).Scan(&raw.ID, &raw.Kind, &raw.PartyName, &raw.Notes, &raw.Khata,
			&raw.TotalAmount, &raw.RemainingAmount, &raw.Status, &raw.EntryDate, &due)
	default:
		return RawRecord{}, fmt.Errorf("%w: %s does not track a balance", ErrEntryClosed, ref)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RawRecord{}, ErrNotFound
		}
		return RawRecord{}, err
	}
	raw.DueDate = due

	payments, err := paymentsFor(ctx, t.tx, ref)
	if err != nil {
		return RawRecord{}, err
	}
	raw.Payments = payments
	return raw, nil
}

// querier is satisfied by both the pool and an open transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func paymentsFor(ctx context.Context, q querier, ref EntryRef) ([]Payment, error) {
	rows, err := q.Query(ctx, `
SELECT id, amount, mode, COALESCE(cheque_number, ''), COALESCE(bank_name, ''),
       transaction_date, COALESCE(reference_number, ''), COALESCE(notes, '')
FROM ledger_payments
WHERE entry_kind = $1 AND entry_id = $2
ORDER BY created_at`, ref.Kind, ref.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.Amount, &p.Mode, &p.ChequeNumber, &p.BankName,
			&p.TransactionDate, &p.ReferenceNumber, &p.Notes); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// UpdateBalance writes the recomputed remaining amount and status back to the
// underlying table.
func (t *txRepo) UpdateBalance(ctx context.Context, ref EntryRef, remaining money.Money, status Status) error {
	var tag string
	var err error
	switch ref.Kind {
	case KindBill:
		_, err = t.tx.Exec(ctx, `UPDATE bills SET remaining_amount = $1, status = $2, updated_at = NOW() WHERE id = $3`,
			remaining, status, ref.ID)
		tag = "bills"
	case KindManualPayable, KindManualReceivable:
		_, err = t.tx.Exec(ctx, `UPDATE manual_entries SET remaining_amount = $1, status = $2, updated_at = NOW() WHERE id = $3 AND entry_kind = $4`,
			remaining, status, ref.ID, ref.Kind)
		tag = "manual_entries"
	default:
		return fmt.Errorf("ledger: %s has no balance to update", ref)
	}
	if err != nil {
		return fmt.Errorf("ledger: update %s balance: %w", tag, err)
	}
	return nil
}

// InsertPayment appends one payment row for the entry.
func (t *txRepo) InsertPayment(ctx context.Context, ref EntryRef, p Payment) error {
	_, err := t.tx.Exec(ctx, `
INSERT INTO ledger_payments (id, entry_kind, entry_id, amount, mode, cheque_number, bank_name,
                             transaction_date, reference_number, notes, created_at)
VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8, NULLIF($9, ''), NULLIF($10, ''), NOW())`,
		p.ID, ref.Kind, ref.ID, p.Amount, p.Mode, p.ChequeNumber, p.BankName,
		p.TransactionDate, p.ReferenceNumber, p.Notes)
	return err
}
