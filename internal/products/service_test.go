package products

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fluxia-erp/fluxia/internal/shared"
)

type fakeRepo struct {
	nextID   int64
	products map[int64]Product
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{nextID: 1, products: map[int64]Product{}}
}

func (f *fakeRepo) Insert(ctx context.Context, p Product) (Product, error) {
	p.ID = f.nextID
	f.nextID++
	f.products[p.ID] = p
	return p, nil
}

func (f *fakeRepo) Update(ctx context.Context, p Product) (Product, error) {
	if _, ok := f.products[p.ID]; !ok {
		return Product{}, shared.ErrNotFound
	}
	f.products[p.ID] = p
	return p, nil
}

func (f *fakeRepo) Get(ctx context.Context, id int64) (Product, error) {
	p, ok := f.products[id]
	if !ok || p.Removed {
		return Product{}, shared.ErrNotFound
	}
	return p, nil
}

func (f *fakeRepo) List(ctx context.Context, filter ListFilter) ([]Product, int, error) {
	var out []Product
	for _, p := range f.products {
		if !p.Removed {
			out = append(out, p)
		}
	}
	return out, len(out), nil
}

func (f *fakeRepo) SoftDelete(ctx context.Context, id int64) error {
	p, ok := f.products[id]
	if !ok || p.Removed {
		return shared.ErrNotFound
	}
	p.Removed = true
	f.products[id] = p
	return nil
}

func (f *fakeRepo) SKUExists(ctx context.Context, sku string, excludeID int64) (bool, error) {
	for _, p := range f.products {
		if p.Removed || p.ID == excludeID {
			continue
		}
		if strings.EqualFold(p.SKU, sku) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) Summary(ctx context.Context) (Summary, error) {
	return Summary{}, nil
}

func TestCreateAppliesDefaults(t *testing.T) {
	svc := NewService(newFakeRepo(), nil)

	p, err := svc.Create(context.Background(), CreateInput{
		SKU:       "  MP-0001 ",
		Name:      "Pine board",
		Type:      TypeRaw,
		CostPrice: 35.505,
		Currency:  "brl",
	}, 1)
	require.NoError(t, err)
	require.Equal(t, "MP-0001", p.SKU)
	require.Equal(t, "un", p.Unit)
	require.Equal(t, "BRL", p.Currency)
	require.Equal(t, 35.51, p.CostPrice)
	require.True(t, p.Enabled)
	require.True(t, p.Taxable)
}

func TestCreateRejectsDuplicateSKU(t *testing.T) {
	svc := NewService(newFakeRepo(), nil)

	_, err := svc.Create(context.Background(), CreateInput{SKU: "MP-0001", Name: "Board"}, 1)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateInput{SKU: "mp-0001", Name: "Other"}, 1)
	ve, ok := shared.AsValidation(err)
	require.True(t, ok)
	require.Contains(t, ve.Fields, "sku")
}

func TestCreateValidatesInput(t *testing.T) {
	svc := NewService(newFakeRepo(), nil)

	_, err := svc.Create(context.Background(), CreateInput{Name: "No SKU"}, 1)
	require.Error(t, err)

	_, err = svc.Create(context.Background(), CreateInput{SKU: "X-1", Name: "Bad type", Type: "liquid"}, 1)
	require.Error(t, err)

	_, err = svc.Create(context.Background(), CreateInput{SKU: "X-2", Name: "Negative", CostPrice: -1}, 1)
	require.Error(t, err)
}

func TestUpdateAppliesPartialChanges(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)

	created, err := svc.Create(context.Background(), CreateInput{
		SKU: "PA-0001", Name: "Bookshelf", StockQuantity: 8, CostPrice: 120,
	}, 1)
	require.NoError(t, err)

	name := "Bookshelf 1800"
	selling := 499.90
	updated, err := svc.Update(context.Background(), created.ID, UpdateInput{
		Name:         &name,
		SellingPrice: &selling,
	}, 1)
	require.NoError(t, err)
	require.Equal(t, "Bookshelf 1800", updated.Name)
	require.Equal(t, 499.90, updated.SellingPrice)

	// fields owned by the ledger and the costing roll-up stay untouched
	require.Equal(t, 8.0, updated.StockQuantity)
	require.Equal(t, 120.0, updated.CostPrice)
}

func TestUpdateRejectsSKUCollision(t *testing.T) {
	svc := NewService(newFakeRepo(), nil)

	_, err := svc.Create(context.Background(), CreateInput{SKU: "A-1", Name: "First"}, 1)
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), CreateInput{SKU: "A-2", Name: "Second"}, 1)
	require.NoError(t, err)

	taken := "A-1"
	_, err = svc.Update(context.Background(), second.ID, UpdateInput{SKU: &taken}, 1)
	require.Error(t, err)

	// keeping its own SKU is fine
	own := "A-2"
	_, err = svc.Update(context.Background(), second.ID, UpdateInput{SKU: &own}, 1)
	require.NoError(t, err)
}

func TestDeleteSoftRemoves(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)

	created, err := svc.Create(context.Background(), CreateInput{SKU: "D-1", Name: "Doomed"}, 1)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), created.ID, 1))

	_, err = svc.Get(context.Background(), created.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)

	// the SKU is free for reuse after removal
	_, err = svc.Create(context.Background(), CreateInput{SKU: "D-1", Name: "Successor"}, 1)
	require.NoError(t, err)
}
