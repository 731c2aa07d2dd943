package bom

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fluxia-erp/fluxia/internal/shared"
)

type fakeRepo struct {
	boms     map[int64]*BillOfMaterial
	products map[int64]*ProductRef
	nextID   int64
}

func newFakeRepo(products ...ProductRef) *fakeRepo {
	repo := &fakeRepo{boms: map[int64]*BillOfMaterial{}, products: map[int64]*ProductRef{}}
	for i := range products {
		p := products[i]
		repo.products[p.ID] = &p
	}
	return repo
}

func (f *fakeRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, f)
}

func (f *fakeRepo) CodeExists(_ context.Context, code string, excludeID int64) (bool, error) {
	for _, b := range f.boms {
		if !b.Removed && b.ID != excludeID && strings.EqualFold(b.Code, code) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) GetProduct(_ context.Context, id int64) (ProductRef, error) {
	p, ok := f.products[id]
	if !ok {
		return ProductRef{}, shared.ErrNotFound
	}
	return *p, nil
}

func (f *fakeRepo) ComponentPrices(_ context.Context, ids []int64) (map[int64]ComponentPrice, error) {
	prices := map[int64]ComponentPrice{}
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			prices[id] = ComponentPrice{Name: p.Name, UnitCost: p.CostPrice}
		}
	}
	return prices, nil
}

func (f *fakeRepo) Insert(_ context.Context, b BillOfMaterial) (BillOfMaterial, error) {
	f.nextID++
	b.ID = f.nextID
	stored := b
	f.boms[b.ID] = &stored
	return b, nil
}

func (f *fakeRepo) Update(_ context.Context, b BillOfMaterial) (BillOfMaterial, error) {
	if _, ok := f.boms[b.ID]; !ok {
		return BillOfMaterial{}, shared.ErrNotFound
	}
	stored := b
	f.boms[b.ID] = &stored
	return b, nil
}

func (f *fakeRepo) Get(_ context.Context, id int64) (BillOfMaterial, error) {
	b, ok := f.boms[id]
	if !ok || b.Removed {
		return BillOfMaterial{}, shared.ErrNotFound
	}
	return *b, nil
}

func (f *fakeRepo) GetDefaultForProduct(_ context.Context, productID int64) (BillOfMaterial, error) {
	var fallback *BillOfMaterial
	for _, b := range f.boms {
		if b.Removed || !b.Enabled || b.ProductID != productID {
			continue
		}
		if b.IsDefault {
			return *b, nil
		}
		fallback = b
	}
	if fallback != nil {
		return *fallback, nil
	}
	return BillOfMaterial{}, shared.ErrNotFound
}

func (f *fakeRepo) DemoteDefaults(_ context.Context, productID, exceptID int64) error {
	for _, b := range f.boms {
		if b.ProductID == productID && b.ID != exceptID {
			b.IsDefault = false
		}
	}
	return nil
}

func (f *fakeRepo) UpdateProductCost(_ context.Context, productID int64, cost float64) error {
	p, ok := f.products[productID]
	if !ok {
		return shared.ErrNotFound
	}
	p.CostPrice = cost
	return nil
}

func (f *fakeRepo) List(_ context.Context, _ ListFilter) ([]BillOfMaterial, int, error) {
	return nil, 0, nil
}

func (f *fakeRepo) SoftDelete(_ context.Context, id int64) error {
	b, ok := f.boms[id]
	if !ok || b.Removed {
		return shared.ErrNotFound
	}
	b.Removed = true
	b.Enabled = false
	b.IsDefault = false
	return nil
}

func TestCreatePricesAndRollsUpDefault(t *testing.T) {
	repo := newFakeRepo(
		ProductRef{ID: 1, Name: "Chair", Type: "finished"},
		ProductRef{ID: 2, Name: "Wood", Type: "raw", CostPrice: 10},
	)
	svc := NewService(repo, nil)

	created, err := svc.Create(context.Background(), CreateInput{
		Code:           "BOM-001",
		Name:           "Chair v1",
		ProductID:      1,
		OutputQuantity: 5,
		Components:     []Component{{ProductID: 2, Quantity: 2, Wastage: 10}},
		AdditionalCosts: []AdditionalCost{
			{Name: "assembly", Type: CostFixed, Value: 5},
		},
		IsDefault: true,
	}, 1)
	require.NoError(t, err)
	require.Equal(t, 27.0, created.TotalCost)
	require.Equal(t, 5.4, created.UnitCost)
	require.Equal(t, 5.4, repo.products[1].CostPrice)
}

func TestCreateRejectsDuplicateCode(t *testing.T) {
	repo := newFakeRepo(ProductRef{ID: 1, Name: "Chair"})
	svc := NewService(repo, nil)

	_, err := svc.Create(context.Background(), CreateInput{Code: "BOM-001", Name: "a", ProductID: 1}, 1)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateInput{Code: "bom-001", Name: "b", ProductID: 1}, 1)
	ve, ok := shared.AsValidation(err)
	require.True(t, ok)
	require.Contains(t, ve.Fields, "code")
}

func TestCreateRejectsUnknownProduct(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)

	_, err := svc.Create(context.Background(), CreateInput{Code: "BOM-001", Name: "a", ProductID: 42}, 1)
	ve, ok := shared.AsValidation(err)
	require.True(t, ok)
	require.Contains(t, ve.Fields, "productId")
}

func TestSingleDefaultPerProduct(t *testing.T) {
	repo := newFakeRepo(ProductRef{ID: 1, Name: "Chair"})
	svc := NewService(repo, nil)

	first, err := svc.Create(context.Background(), CreateInput{
		Code: "BOM-001", Name: "v1", ProductID: 1, IsDefault: true,
	}, 1)
	require.NoError(t, err)

	second, err := svc.Create(context.Background(), CreateInput{
		Code: "BOM-002", Name: "v2", ProductID: 1, IsDefault: true,
	}, 1)
	require.NoError(t, err)

	require.False(t, repo.boms[first.ID].IsDefault)
	require.True(t, repo.boms[second.ID].IsDefault)

	picked, err := svc.GetDefaultForProduct(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, second.ID, picked.ID)
}

func TestUpdateRepricesAgainstCurrentComponentCosts(t *testing.T) {
	repo := newFakeRepo(
		ProductRef{ID: 1, Name: "Chair"},
		ProductRef{ID: 2, Name: "Wood", CostPrice: 10},
	)
	svc := NewService(repo, nil)

	created, err := svc.Create(context.Background(), CreateInput{
		Code: "BOM-001", Name: "v1", ProductID: 1,
		Components: []Component{{ProductID: 2, Quantity: 3}},
		IsDefault:  true,
	}, 1)
	require.NoError(t, err)
	require.Equal(t, 30.0, created.TotalCost)

	repo.products[2].CostPrice = 12
	updated, err := svc.Recompute(context.Background(), created.ID, 1)
	require.NoError(t, err)
	require.Equal(t, 36.0, updated.TotalCost)
	require.Equal(t, 36.0, repo.products[1].CostPrice)
}

func TestCreateValidatesLines(t *testing.T) {
	repo := newFakeRepo(ProductRef{ID: 1, Name: "Chair"})
	svc := NewService(repo, nil)

	_, err := svc.Create(context.Background(), CreateInput{
		Code: "BOM-001", Name: "v1", ProductID: 1,
		Components: []Component{{ProductID: 1, Quantity: 0}},
	}, 1)
	_, ok := shared.AsValidation(err)
	require.True(t, ok)

	_, err = svc.Create(context.Background(), CreateInput{
		Code: "BOM-002", Name: "v2", ProductID: 1,
		AdditionalCosts: []AdditionalCost{{Name: "x", Type: "hourly", Value: 1}},
	}, 1)
	ve, ok := shared.AsValidation(err)
	require.True(t, ok)
	require.Contains(t, ve.Fields, "additionalCosts")
}
