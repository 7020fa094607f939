package production

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// SourceRepo exposes the read and mark operations the scanner needs from the
// three upstream production tables.
type SourceRepo interface {
	EligibleThreadPurchases(ctx context.Context) ([]ThreadPurchase, error)
	EligibleDyeingProcesses(ctx context.Context) ([]DyeingProcess, error)
	EligibleFabricProductions(ctx context.Context) ([]FabricProduction, error)

	MarkThreadPurchaseAbsorbed(ctx context.Context, id int64) error
	MarkDyeingProcessAbsorbed(ctx context.Context, id int64) error
	MarkFabricProductionAbsorbed(ctx context.Context, id int64) error
}

// Scanner queries the three upstream production domains for records eligible
// for inventory absorption.
type Scanner struct {
	repo   SourceRepo
	logger *slog.Logger
}

// NewScanner constructs a Scanner.
func NewScanner(repo SourceRepo, logger *slog.Logger) *Scanner {
	return &Scanner{repo: repo, logger: logger}
}

// Eligible loads the eligible records from all three domains. The queries are
// independent reads, so they fan out concurrently.
func (s *Scanner) Eligible(ctx context.Context) (EligibleSet, error) {
	var set EligibleSet
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		threads, err := s.repo.EligibleThreadPurchases(ctx)
		if err != nil {
			return err
		}
		set.Threads = threads
		return nil
	})

	g.Go(func() error {
		dyeings, err := s.repo.EligibleDyeingProcesses(ctx)
		if err != nil {
			return err
		}
		set.Dyeings = dyeings
		return nil
	})

	g.Go(func() error {
		fabrics, err := s.repo.EligibleFabricProductions(ctx)
		if err != nil {
			return err
		}
		set.Fabrics = fabrics
		return nil
	})

	if err := g.Wait(); err != nil {
		return EligibleSet{}, err
	}
	return set, nil
}

// MarkThreadPurchaseAbsorbed flags a thread purchase as added to inventory.
// Callers treat failures as non-fatal; the flag is a lagging cache.
func (s *Scanner) MarkThreadPurchaseAbsorbed(ctx context.Context, id int64) error {
	return s.repo.MarkThreadPurchaseAbsorbed(ctx, id)
}

// MarkDyeingProcessAbsorbed flags a dyeing process as added to inventory.
func (s *Scanner) MarkDyeingProcessAbsorbed(ctx context.Context, id int64) error {
	return s.repo.MarkDyeingProcessAbsorbed(ctx, id)
}

// MarkFabricProductionAbsorbed flags a fabric production as added to inventory.
func (s *Scanner) MarkFabricProductionAbsorbed(ctx context.Context, id int64) error {
	return s.repo.MarkFabricProductionAbsorbed(ctx, id)
}
