package inventory

import (
	"context"
	"errors"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/loomworks-erp/loomworks-erp/internal/shared"
)

const idempotencyModule = "inventory"

// Repo abstracts inventory persistence for the import pipeline and service.
type Repo interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListTransactions(ctx context.Context) ([]Transaction, error)
	ListItems(ctx context.Context) ([]Item, error)
}

// TxRepository exposes the transactional operations of one absorption.
type TxRepository interface {
	// FindOrCreateItem resolves the stocked item matching kind, name, color
	// and unit, creating it at zero quantity when absent.
	FindOrCreateItem(ctx context.Context, spec Item) (Item, error)
	// InsertTransaction appends one movement. A duplicate back-reference
	// surfaces as ErrAlreadyAbsorbed via the unique constraint.
	InsertTransaction(ctx context.Context, tx Transaction) (int64, error)
	UpdateItemQuantity(ctx context.Context, itemID int64, quantity float64) error
}

// IdempotencyGuard is the processed-key store guarding absorptions.
type IdempotencyGuard interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// SourceMarker flags upstream records as absorbed. Implemented by the
// production scanner; failures are logged and ignored because the flag is a
// lagging cache over the transaction back-reference.
type SourceMarker interface {
	MarkThreadPurchaseAbsorbed(ctx context.Context, id int64) error
	MarkDyeingProcessAbsorbed(ctx context.Context, id int64) error
	MarkFabricProductionAbsorbed(ctx context.Context, id int64) error
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// ImportResult reports an import batch: what went in and what failed.
// Callers must re-run reconciliation afterwards instead of adjusting any
// local pending count, because the import changed the transaction set the
// reconciler derives from.
type ImportResult struct {
	Imported []Item
	Errors   []AbsorptionError
}

// Importer absorbs pending items into inventory.
type Importer struct {
	repo        Repo
	guard       IdempotencyGuard
	marker      SourceMarker
	audit       AuditPort
	logger      *slog.Logger
	absorptions prometheus.Counter
}

// NewImporter builds Importer. Guard, marker, audit, logger and counter may
// each be nil.
func NewImporter(repo Repo, guard IdempotencyGuard, marker SourceMarker, audit AuditPort, logger *slog.Logger, absorptions prometheus.Counter) *Importer {
	return &Importer{repo: repo, guard: guard, marker: marker, audit: audit, logger: logger, absorptions: absorptions}
}

// Import absorbs the selected items strictly in order. Each item gets its own
// transaction; a failure is recorded and the batch continues, so one bad
// upstream record never blocks the rest.
func (im *Importer) Import(ctx context.Context, items []PendingItem) ImportResult {
	var result ImportResult
	for _, item := range items {
		absorbed, err := im.absorb(ctx, item)
		if err != nil {
			result.Errors = append(result.Errors, AbsorptionError{Source: item.Source, Cause: err})
			if im.logger != nil {
				im.logger.Error("absorption failed",
					slog.String("source", item.Source.String()),
					slog.Any("error", err))
			}
			continue
		}
		result.Imported = append(result.Imported, absorbed)
	}
	return result
}

func (im *Importer) absorb(ctx context.Context, item PendingItem) (Item, error) {
	key := item.Source.String()
	if im.guard != nil {
		if err := im.guard.CheckAndInsert(ctx, key, idempotencyModule); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return Item{}, ErrAlreadyAbsorbed
			}
			return Item{}, err
		}
	}

	var absorbed Item
	err := im.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		stocked, err := tx.FindOrCreateItem(ctx, Item{
			ProductKind: item.ProductKind,
			Name:        item.Name,
			Color:       item.Color,
			Unit:        item.Unit,
		})
		if err != nil {
			return err
		}

		movement := movementFor(item, stocked)
		if err := movement.Validate(); err != nil {
			return err
		}
		if _, err := tx.InsertTransaction(ctx, movement); err != nil {
			return err
		}
		if err := tx.UpdateItemQuantity(ctx, stocked.ID, movement.RemainingAfter); err != nil {
			return err
		}

		stocked.Quantity = movement.RemainingAfter
		absorbed = stocked
		return nil
	})
	if err != nil {
		if im.guard != nil {
			// Release the key so a corrected record can be retried. The
			// unique constraint on the back-reference stays the hard guard.
			if delErr := im.guard.Delete(ctx, key); delErr != nil && im.logger != nil {
				im.logger.Error("idempotency rollback failed",
					slog.String("key", key), slog.Any("error", delErr))
			}
		}
		return Item{}, err
	}

	im.markAbsorbed(ctx, item.Source)
	if im.absorptions != nil {
		im.absorptions.Inc()
	}
	if im.audit != nil {
		_ = im.audit.Record(ctx, shared.AuditLog{
			Action:   "inventory:absorb",
			Entity:   "inventory_item",
			EntityID: key,
			Meta: map[string]any{
				"item_id":  absorbed.ID,
				"quantity": item.Quantity,
				"unit":     item.Unit,
			},
		})
	}
	return absorbed, nil
}

// markAbsorbed updates the upstream inventory_status flag. Best effort only.
func (im *Importer) markAbsorbed(ctx context.Context, ref SourceRef) {
	if im.marker == nil {
		return
	}
	var err error
	switch ref.Kind {
	case SourceThreadPurchase:
		err = im.marker.MarkThreadPurchaseAbsorbed(ctx, ref.ID)
	case SourceDyeingProcess:
		err = im.marker.MarkDyeingProcessAbsorbed(ctx, ref.ID)
	case SourceFabricProduction:
		err = im.marker.MarkFabricProductionAbsorbed(ctx, ref.ID)
	}
	if err != nil && im.logger != nil {
		im.logger.Warn("marking source absorbed failed",
			slog.String("source", ref.String()), slog.Any("error", err))
	}
}

func movementFor(item PendingItem, stocked Item) Transaction {
	movement := Transaction{
		ItemID:         stocked.ID,
		QuantityDelta:  item.Quantity,
		RemainingAfter: stocked.Quantity + item.Quantity,
	}
	id := item.Source.ID
	switch item.Source.Kind {
	case SourceThreadPurchase:
		movement.Type = TxPurchase
		movement.ThreadPurchaseID = &id
	case SourceDyeingProcess:
		movement.Type = TxProduction
		movement.DyeingProcessID = &id
	case SourceFabricProduction:
		movement.Type = TxProduction
		movement.FabricProductionID = &id
	}
	return movement
}
