package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fluxia-erp/fluxia/internal/shared"
)

type fakeRepo struct {
	snapshots []Item
	items     map[int64]Item
}

func newFakeRepo(snapshots ...Item) *fakeRepo {
	return &fakeRepo{snapshots: snapshots, items: map[int64]Item{}}
}

func (f *fakeRepo) ProductSnapshots(_ context.Context) ([]Item, error) {
	return f.snapshots, nil
}

func (f *fakeRepo) Upsert(_ context.Context, item Item) (bool, error) {
	_, exists := f.items[item.ProductID]
	f.items[item.ProductID] = item
	return !exists, nil
}

func (f *fakeRepo) Get(_ context.Context, productID int64) (Item, error) {
	item, ok := f.items[productID]
	if !ok {
		return Item{}, shared.ErrNotFound
	}
	return item, nil
}

func (f *fakeRepo) List(_ context.Context, _ ListFilter) ([]Item, int, error) {
	return nil, 0, nil
}

func (f *fakeRepo) LowStock(_ context.Context) ([]Item, error) {
	alerts := []Item{}
	for _, item := range f.items {
		if item.LowStock || item.OutOfStock {
			alerts = append(alerts, item)
		}
	}
	return alerts, nil
}

func (f *fakeRepo) CategoryAnalysis(_ context.Context) ([]CategoryStat, error) { return nil, nil }
func (f *fakeRepo) MovementTrends(_ context.Context, _ int) ([]TrendPoint, error) {
	return nil, nil
}
func (f *fakeRepo) TopProducts(_ context.Context, _ int) ([]TopProduct, error) { return nil, nil }
func (f *fakeRepo) Summary(_ context.Context) (Summary, error)                 { return Summary{}, nil }

func TestSyncDerivesFlagsAndValue(t *testing.T) {
	repo := newFakeRepo(
		Item{ProductID: 1, ProductName: "ok", CurrentStock: 50, MinStock: 10, MaxStock: 100, UnitCost: 2},
		Item{ProductID: 2, ProductName: "low", CurrentStock: 5, MinStock: 10, UnitCost: 3},
		Item{ProductID: 3, ProductName: "empty", CurrentStock: 0, MinStock: 10, UnitCost: 4},
		Item{ProductID: 4, ProductName: "over", CurrentStock: 150, MaxStock: 100, UnitCost: 1},
	)
	svc := NewService(repo, nil)

	result, err := svc.Sync(context.Background())
	require.NoError(t, err)
	require.Equal(t, SyncResult{Created: 4}, result)

	ok := repo.items[1]
	require.False(t, ok.LowStock)
	require.False(t, ok.OutOfStock)
	require.False(t, ok.OverStock)
	require.Equal(t, 100.0, ok.TotalValue)

	low := repo.items[2]
	require.True(t, low.LowStock)
	require.False(t, low.OutOfStock)
	require.Equal(t, 15.0, low.TotalValue)

	empty := repo.items[3]
	require.True(t, empty.OutOfStock)
	require.False(t, empty.LowStock, "out of stock is not also reported as low stock")
	require.Zero(t, empty.TotalValue)

	over := repo.items[4]
	require.True(t, over.OverStock)
}

func TestSyncCountsCreatedAndUpdated(t *testing.T) {
	repo := newFakeRepo(Item{ProductID: 1, CurrentStock: 1})
	svc := NewService(repo, nil)

	result, err := svc.Sync(context.Background())
	require.NoError(t, err)
	require.Equal(t, SyncResult{Created: 1}, result)

	repo.snapshots = append(repo.snapshots, Item{ProductID: 2, CurrentStock: 2})
	result, err = svc.Sync(context.Background())
	require.NoError(t, err)
	require.Equal(t, SyncResult{Created: 1, Updated: 1}, result)
}

func TestLowStockAlertsIncludeOutOfStock(t *testing.T) {
	repo := newFakeRepo(
		Item{ProductID: 1, CurrentStock: 5, MinStock: 10},
		Item{ProductID: 2, CurrentStock: 0, MinStock: 10},
		Item{ProductID: 3, CurrentStock: 80, MinStock: 10},
	)
	svc := NewService(repo, nil)
	_, err := svc.Sync(context.Background())
	require.NoError(t, err)

	alerts, err := svc.LowStockAlerts(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 2)
}

func TestMovementTrendsClampsWindow(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)

	_, err := svc.MovementTrends(context.Background(), -5)
	require.NoError(t, err)
	_, err = svc.MovementTrends(context.Background(), 10000)
	require.NoError(t, err)
}
