package production

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed access to the upstream production
// tables.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) EligibleThreadPurchases(ctx context.Context) ([]ThreadPurchase, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, thread_type, COALESCE(color, ''), quantity, unit, status,
       COALESCE(inventory_status, ''), purchased_at
FROM thread_purchases
WHERE status = $1 AND COALESCE(inventory_status, '') <> $2
ORDER BY id`, ThreadPurchaseReceived, InventoryStatusAdded)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ThreadPurchase
	for rows.Next() {
		var tp ThreadPurchase
		if err := rows.Scan(&tp.ID, &tp.ThreadType, &tp.Color, &tp.Quantity, &tp.Unit,
			&tp.Status, &tp.InventoryStatus, &tp.PurchasedAt); err != nil {
			return nil, err
		}
		out = append(out, tp)
	}
	return out, rows.Err()
}

func (r *Repository) EligibleDyeingProcesses(ctx context.Context) ([]DyeingProcess, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, thread_type, color, quantity, unit, result_status,
       COALESCE(inventory_status, ''), completed_at
FROM dyeing_processes
WHERE result_status = $1 AND COALESCE(inventory_status, '') <> $2
ORDER BY id`, DyeingResultSuccess, InventoryStatusAdded)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DyeingProcess
	for rows.Next() {
		var dp DyeingProcess
		if err := rows.Scan(&dp.ID, &dp.ThreadType, &dp.Color, &dp.Quantity, &dp.Unit,
			&dp.ResultStatus, &dp.InventoryStatus, &dp.CompletedAt); err != nil {
			return nil, err
		}
		out = append(out, dp)
	}
	return out, rows.Err()
}

func (r *Repository) EligibleFabricProductions(ctx context.Context) ([]FabricProduction, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, fabric_type, quantity, unit, status,
       COALESCE(inventory_status, ''), completed_at
FROM fabric_productions
WHERE status = $1 AND COALESCE(inventory_status, '') <> $2
ORDER BY id`, FabricProductionCompleted, InventoryStatusAdded)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FabricProduction
	for rows.Next() {
		var fp FabricProduction
		if err := rows.Scan(&fp.ID, &fp.FabricType, &fp.Quantity, &fp.Unit,
			&fp.Status, &fp.InventoryStatus, &fp.CompletedAt); err != nil {
			return nil, err
		}
		out = append(out, fp)
	}
	return out, rows.Err()
}

func (r *Repository) MarkThreadPurchaseAbsorbed(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE thread_purchases SET inventory_status = $1, updated_at = NOW() WHERE id = $2`,
		InventoryStatusAdded, id)
	return err
}

func (r *Repository) MarkDyeingProcessAbsorbed(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE dyeing_processes SET inventory_status = $1, updated_at = NOW() WHERE id = $2`,
		InventoryStatusAdded, id)
	return err
}

func (r *Repository) MarkFabricProductionAbsorbed(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE fabric_productions SET inventory_status = $1, updated_at = NOW() WHERE id = $2`,
		InventoryStatusAdded, id)
	return err
}
