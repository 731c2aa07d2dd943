package inventory

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/fluxia-erp/fluxia/internal/shared"
)

// RepositoryPort abstracts persistence for the service.
type RepositoryPort interface {
	ProductSnapshots(ctx context.Context) ([]Item, error)
	Upsert(ctx context.Context, item Item) (created bool, err error)
	Get(ctx context.Context, productID int64) (Item, error)
	List(ctx context.Context, filter ListFilter) ([]Item, int, error)
	LowStock(ctx context.Context) ([]Item, error)
	CategoryAnalysis(ctx context.Context) ([]CategoryStat, error)
	MovementTrends(ctx context.Context, days int) ([]TrendPoint, error)
	TopProducts(ctx context.Context, limit int) ([]TopProduct, error)
	Summary(ctx context.Context) (Summary, error)
}

// Service maintains and queries the inventory aggregate.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// recomputeDerived refreshes the alert flags and value from the quantities.
// Every write path goes through here so stored flags never drift.
func recomputeDerived(item *Item) {
	item.OutOfStock = item.CurrentStock <= 0
	item.LowStock = item.CurrentStock > 0 && item.CurrentStock <= item.MinStock
	item.OverStock = item.MaxStock > 0 && item.CurrentStock > item.MaxStock
	item.TotalValue = shared.Round2(item.CurrentStock * item.UnitCost)
}

// Sync rebuilds the aggregate from the product catalogue and movement log.
func (s *Service) Sync(ctx context.Context) (SyncResult, error) {
	snapshots, err := s.repo.ProductSnapshots(ctx)
	if err != nil {
		return SyncResult{}, err
	}
	result := SyncResult{}
	for _, item := range snapshots {
		recomputeDerived(&item)
		created, err := s.repo.Upsert(ctx, item)
		if err != nil {
			return result, err
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}
	if s.logger != nil {
		s.logger.Info("inventory synchronized",
			slog.Int("created", result.Created),
			slog.Int("updated", result.Updated))
	}
	return result, nil
}

// Get returns the position of one product.
func (s *Service) Get(ctx context.Context, productID int64) (Item, error) {
	return s.repo.Get(ctx, productID)
}

// List returns filtered stock levels with the total count.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Item, int, error) {
	return s.repo.List(ctx, filter)
}

// LowStockAlerts returns every item at or below its minimum, including
// items that are fully out of stock.
func (s *Service) LowStockAlerts(ctx context.Context) ([]Item, error) {
	return s.repo.LowStock(ctx)
}

// CategoryAnalysis breaks the position down by product type.
func (s *Service) CategoryAnalysis(ctx context.Context) ([]CategoryStat, error) {
	return s.repo.CategoryAnalysis(ctx)
}

// MovementTrends returns daily in/out activity for the given window.
func (s *Service) MovementTrends(ctx context.Context, days int) ([]TrendPoint, error) {
	if days <= 0 {
		days = 30
	}
	if days > 365 {
		days = 365
	}
	return s.repo.MovementTrends(ctx, days)
}

// TopProducts ranks products by held stock value.
func (s *Service) TopProducts(ctx context.Context, limit int) ([]TopProduct, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	return s.repo.TopProducts(ctx, limit)
}

// Summary returns the headline position.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	return s.repo.Summary(ctx)
}

// Dashboard loads the overview rollups in parallel.
func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	var data Dashboard

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		summary, err := s.repo.Summary(ctx)
		if err != nil {
			return err
		}
		data.Summary = summary
		return nil
	})

	g.Go(func() error {
		items, err := s.repo.LowStock(ctx)
		if err != nil {
			return err
		}
		data.LowStock = items
		return nil
	})

	g.Go(func() error {
		stats, err := s.repo.CategoryAnalysis(ctx)
		if err != nil {
			return err
		}
		data.Categories = stats
		return nil
	})

	g.Go(func() error {
		items, err := s.repo.TopProducts(ctx, 10)
		if err != nil {
			return err
		}
		data.TopProducts = items
		return nil
	})

	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	return data, nil
}
