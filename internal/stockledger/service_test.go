package stockledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fluxia-erp/fluxia/internal/shared"
)

type fakeRepo struct {
	products  map[int64]*ProductStock
	movements []Movement
	sequences map[int]int64
	nextID    int64
}

func newFakeRepo(products ...ProductStock) *fakeRepo {
	repo := &fakeRepo{products: map[int64]*ProductStock{}, sequences: map[int]int64{}}
	for i := range products {
		p := products[i]
		repo.products[p.ID] = &p
	}
	return repo
}

func (f *fakeRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	snapshotProducts := map[int64]ProductStock{}
	for id, p := range f.products {
		snapshotProducts[id] = *p
	}
	snapshotMovements := len(f.movements)
	snapshotSequences := map[int]int64{}
	for year, seq := range f.sequences {
		snapshotSequences[year] = seq
	}
	if err := fn(ctx, f); err != nil {
		for id, p := range snapshotProducts {
			restored := p
			f.products[id] = &restored
		}
		f.movements = f.movements[:snapshotMovements]
		f.sequences = snapshotSequences
		return err
	}
	return nil
}

func (f *fakeRepo) GetProductForUpdate(_ context.Context, productID int64) (ProductStock, error) {
	p, ok := f.products[productID]
	if !ok {
		return ProductStock{}, shared.ErrNotFound
	}
	return *p, nil
}

func (f *fakeRepo) NextNumber(_ context.Context, year int) (int64, error) {
	f.sequences[year]++
	return f.sequences[year], nil
}

func (f *fakeRepo) InsertMovement(_ context.Context, m Movement) (Movement, error) {
	f.nextID++
	m.ID = f.nextID
	m.CreatedAt = time.Now()
	m.UpdatedAt = m.CreatedAt
	f.movements = append(f.movements, m)
	return m, nil
}

func (f *fakeRepo) UpdateProductStock(_ context.Context, productID int64, stock float64) error {
	p, ok := f.products[productID]
	if !ok {
		return shared.ErrNotFound
	}
	p.StockQuantity = stock
	return nil
}

func (f *fakeRepo) Get(_ context.Context, id int64) (Movement, error) {
	for _, m := range f.movements {
		if m.ID == id {
			return m, nil
		}
	}
	return Movement{}, shared.ErrNotFound
}

func (f *fakeRepo) List(_ context.Context, filter ListFilter) ([]Movement, int, error) {
	items := []Movement{}
	for _, m := range f.movements {
		if filter.ProductID != 0 && m.ProductID != filter.ProductID {
			continue
		}
		items = append(items, m)
	}
	return items, len(items), nil
}

func (f *fakeRepo) UpdateDescriptive(_ context.Context, id int64, fields DescriptiveFields) (Movement, error) {
	for i := range f.movements {
		if f.movements[i].ID != id {
			continue
		}
		if fields.Reference != nil {
			f.movements[i].Reference = *fields.Reference
		}
		if fields.Description != nil {
			f.movements[i].Description = *fields.Description
		}
		if fields.Notes != nil {
			f.movements[i].Notes = *fields.Notes
		}
		return f.movements[i], nil
	}
	return Movement{}, shared.ErrNotFound
}

func (f *fakeRepo) Summary(_ context.Context) (Summary, error) {
	return Summary{}, nil
}

func newTestService(repo *fakeRepo) *Service {
	return NewService(repo, nil, nil, ServiceConfig{})
}

func TestPostRecordsSnapshotsAndUpdatesBalance(t *testing.T) {
	repo := newFakeRepo(ProductStock{ID: 1, SKU: "RM-001", Name: "Steel", StockQuantity: 10, CostPrice: 2.5})
	svc := newTestService(repo)

	movement, err := svc.Post(context.Background(), MovementInput{
		Type: TypePurchase, ProductID: 1, Quantity: 4, IsIncrease: true,
	})
	require.NoError(t, err)
	require.Equal(t, 10.0, movement.StockBefore)
	require.Equal(t, 14.0, movement.StockAfter)
	require.Equal(t, 2.5, movement.UnitCost)
	require.Equal(t, 10.0, movement.TotalCost)
	require.Equal(t, 14.0, repo.products[1].StockQuantity)

	movement, err = svc.Post(context.Background(), MovementInput{
		Type: TypeSale, ProductID: 1, Quantity: 5,
	})
	require.NoError(t, err)
	require.Equal(t, 14.0, movement.StockBefore)
	require.Equal(t, 9.0, movement.StockAfter)
	require.Equal(t, 9.0, repo.products[1].StockQuantity)
}

func TestPostRejectsInsufficientStock(t *testing.T) {
	repo := newFakeRepo(ProductStock{ID: 7, SKU: "RM-007", Name: "Copper", StockQuantity: 3})
	svc := newTestService(repo)

	_, err := svc.Post(context.Background(), MovementInput{
		Type: TypeSale, ProductID: 7, Quantity: 5,
	})
	ve, ok := shared.AsValidation(err)
	require.True(t, ok)
	details, ok := ve.Details.(map[string]any)
	require.True(t, ok)
	require.Equal(t, 3.0, details["available"])
	require.Equal(t, 5.0, details["requested"])

	// the failed post must leave no trace
	require.Empty(t, repo.movements)
	require.Equal(t, 3.0, repo.products[7].StockQuantity)
}

func TestPostAllowsNegativeStockWhenConfigured(t *testing.T) {
	repo := newFakeRepo(ProductStock{ID: 7, StockQuantity: 3})
	svc := NewService(repo, nil, nil, ServiceConfig{AllowNegativeStock: true})

	movement, err := svc.Post(context.Background(), MovementInput{
		Type: TypeAdjustment, ProductID: 7, Quantity: 5,
	})
	require.NoError(t, err)
	require.Equal(t, -2.0, movement.StockAfter)
}

func TestPostNumbersSequentiallyPerYear(t *testing.T) {
	repo := newFakeRepo(ProductStock{ID: 1, StockQuantity: 100})
	svc := newTestService(repo)

	for i := 1; i <= 3; i++ {
		movement, err := svc.Post(context.Background(), MovementInput{
			Type:      TypeAdjustment,
			ProductID: 1,
			Quantity:  1,
			Date:      time.Date(2026, 3, i, 0, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
		require.Equal(t, int64(i), movement.Number)
		require.Equal(t, 2026, movement.Year)
	}

	movement, err := svc.Post(context.Background(), MovementInput{
		Type:      TypeAdjustment,
		ProductID: 1,
		Quantity:  1,
		Date:      time.Date(2027, 1, 2, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), movement.Number)
	require.Equal(t, 2027, movement.Year)
}

func TestPostRejectsUnknownProductAndType(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	_, err := svc.Post(context.Background(), MovementInput{Type: TypePurchase, ProductID: 99, Quantity: 1})
	ve, ok := shared.AsValidation(err)
	require.True(t, ok)
	require.Contains(t, ve.Fields, "product")

	_, err = svc.Post(context.Background(), MovementInput{Type: "teleport", ProductID: 1, Quantity: 1})
	_, ok = shared.AsValidation(err)
	require.True(t, ok)
}

func TestUpdateRejectsCriticalFields(t *testing.T) {
	repo := newFakeRepo(ProductStock{ID: 1, StockQuantity: 10})
	svc := newTestService(repo)

	movement, err := svc.Post(context.Background(), MovementInput{
		Type: TypePurchase, ProductID: 1, Quantity: 2, IsIncrease: true,
	})
	require.NoError(t, err)

	_, err = svc.UpdateDescriptive(context.Background(), movement.ID, DescriptiveFields{}, []string{"notes", "quantity", "stockAfter"})
	ve, ok := shared.AsValidation(err)
	require.True(t, ok)
	require.ElementsMatch(t, []string{"quantity", "stockAfter"}, ve.Fields)

	notes := "recount confirmed"
	updated, err := svc.UpdateDescriptive(context.Background(), movement.ID, DescriptiveFields{Notes: &notes}, []string{"notes"})
	require.NoError(t, err)
	require.Equal(t, notes, updated.Notes)
	require.Equal(t, movement.Quantity, updated.Quantity)
}

func TestDeleteAlwaysRefused(t *testing.T) {
	repo := newFakeRepo(ProductStock{ID: 1, StockQuantity: 10})
	svc := newTestService(repo)

	movement, err := svc.Post(context.Background(), MovementInput{
		Type: TypeWaste, ProductID: 1, Quantity: 1,
	})
	require.NoError(t, err)

	err = svc.Delete(context.Background(), movement.ID)
	require.ErrorIs(t, err, ErrMovementImmutable)
	require.Len(t, repo.movements, 1)

	err = svc.Delete(context.Background(), 404)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestLedgerConservation(t *testing.T) {
	repo := newFakeRepo(ProductStock{ID: 1, StockQuantity: 50})
	svc := newTestService(repo)

	inputs := []MovementInput{
		{Type: TypePurchase, ProductID: 1, Quantity: 20, IsIncrease: true},
		{Type: TypeSale, ProductID: 1, Quantity: 15},
		{Type: TypeWaste, ProductID: 1, Quantity: 2},
		{Type: TypeReturn, ProductID: 1, Quantity: 5, IsIncrease: true},
	}
	for _, input := range inputs {
		_, err := svc.Post(context.Background(), input)
		require.NoError(t, err)
	}

	balance := 50.0
	for _, m := range repo.movements {
		require.Equal(t, balance, m.StockBefore)
		require.Equal(t, m.StockBefore+m.Quantity*signOf(m.IsIncrease), m.StockAfter)
		balance = m.StockAfter
	}
	require.Equal(t, balance, repo.products[1].StockQuantity)
	require.Equal(t, 58.0, balance)
}

func signOf(isIncrease bool) float64 {
	if isIncrease {
		return 1
	}
	return -1
}
