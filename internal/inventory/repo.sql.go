package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ListTransactions loads the full movement ledger. The reconciler only needs
// the back-reference columns, but loading whole rows keeps the query shared
// with reporting.
func (r *Repository) ListTransactions(ctx context.Context) ([]Transaction, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, item_id, quantity_delta, remaining_after, type,
       thread_purchase_id, dyeing_process_id, fabric_production_id, sales_order_id, created_at
FROM inventory_transactions
ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var tx Transaction
		if err := rows.Scan(&tx.ID, &tx.ItemID, &tx.QuantityDelta, &tx.RemainingAfter, &tx.Type,
			&tx.ThreadPurchaseID, &tx.DyeingProcessID, &tx.FabricProductionID, &tx.SalesOrderID, &tx.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

// ListItems loads the current stock.
func (r *Repository) ListItems(ctx context.Context) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, product_kind, name, COALESCE(color, ''), unit, quantity
FROM inventory_items
ORDER BY product_kind, name, color`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.ProductKind, &item.Name, &item.Color, &item.Unit, &item.Quantity); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// FindOrCreateItem resolves the stocked item for a product, creating it at
// zero quantity when absent. The row is locked for the rest of the
// absorption.
func (t *txRepository) FindOrCreateItem(ctx context.Context, spec Item) (Item, error) {
	item := spec
	err := t.tx.QueryRow(ctx, `
SELECT id, quantity FROM inventory_items
WHERE product_kind = $1 AND name = $2 AND COALESCE(color, '') = $3 AND unit = $4
FOR UPDATE`, spec.ProductKind, spec.Name, spec.Color, spec.Unit).Scan(&item.ID, &item.Quantity)
	if err == nil {
		return item, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Item{}, err
	}

	err = t.tx.QueryRow(ctx, `
INSERT INTO inventory_items (product_kind, name, color, unit, quantity, created_at, updated_at)
VALUES ($1, $2, NULLIF($3, ''), $4, 0, NOW(), NOW())
RETURNING id`, spec.ProductKind, spec.Name, spec.Color, spec.Unit).Scan(&item.ID)
	if err != nil {
		return Item{}, err
	}
	item.Quantity = 0
	return item, nil
}

// InsertTransaction appends one movement row. Each back-reference column
// carries a unique partial index, so absorbing the same source twice fails
// here no matter what the caller checked.
func (t *txRepository) InsertTransaction(ctx context.Context, tx Transaction) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
INSERT INTO inventory_transactions
    (item_id, quantity_delta, remaining_after, type,
     thread_purchase_id, dyeing_process_id, fabric_production_id, sales_order_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
RETURNING id`,
		tx.ItemID, tx.QuantityDelta, tx.RemainingAfter, tx.Type,
		tx.ThreadPurchaseID, tx.DyeingProcessID, tx.FabricProductionID, tx.SalesOrderID).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrAlreadyAbsorbed
		}
		return 0, fmt.Errorf("inventory: insert transaction: %w", err)
	}
	return id, nil
}

// UpdateItemQuantity writes the post-movement stock level.
func (t *txRepository) UpdateItemQuantity(ctx context.Context, itemID int64, quantity float64) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE inventory_items SET quantity = $1, updated_at = NOW() WHERE id = $2`,
		quantity, itemID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}
