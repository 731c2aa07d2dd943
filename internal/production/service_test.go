package production

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fluxia-erp/fluxia/internal/bom"
	"github.com/fluxia-erp/fluxia/internal/shared"
	"github.com/fluxia-erp/fluxia/internal/stockledger"
)

type fakeLedger struct {
	products  map[int64]*stockledger.ProductStock
	movements []stockledger.Movement
	sequences map[int]int64
	nextID    int64
}

func (f *fakeLedger) GetProductForUpdate(_ context.Context, productID int64) (stockledger.ProductStock, error) {
	p, ok := f.products[productID]
	if !ok {
		return stockledger.ProductStock{}, shared.ErrNotFound
	}
	return *p, nil
}

func (f *fakeLedger) NextNumber(_ context.Context, year int) (int64, error) {
	f.sequences[year]++
	return f.sequences[year], nil
}

func (f *fakeLedger) InsertMovement(_ context.Context, m stockledger.Movement) (stockledger.Movement, error) {
	f.nextID++
	m.ID = f.nextID
	f.movements = append(f.movements, m)
	return m, nil
}

func (f *fakeLedger) UpdateProductStock(_ context.Context, productID int64, stock float64) error {
	p, ok := f.products[productID]
	if !ok {
		return shared.ErrNotFound
	}
	p.StockQuantity = stock
	return nil
}

type fakeRepo struct {
	orders    map[int64]*Order
	boms      map[int64]BOMRef
	products  map[int64]ProductRef
	ledger    *fakeLedger
	sequences map[int]int64
	nextID    int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		orders:   map[int64]*Order{},
		boms:     map[int64]BOMRef{},
		products: map[int64]ProductRef{},
		ledger: &fakeLedger{
			products:  map[int64]*stockledger.ProductStock{},
			sequences: map[int]int64{},
		},
		sequences: map[int]int64{},
	}
}

func (f *fakeRepo) addProduct(ref ProductRef, stock float64) {
	f.products[ref.ID] = ref
	f.ledger.products[ref.ID] = &stockledger.ProductStock{
		ID: ref.ID, Name: ref.Name, StockQuantity: stock, CostPrice: ref.CostPrice,
	}
}

func (f *fakeRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	ledgerSnapshot := map[int64]stockledger.ProductStock{}
	for id, p := range f.ledger.products {
		ledgerSnapshot[id] = *p
	}
	movementCount := len(f.ledger.movements)
	orderSnapshot := map[int64]Order{}
	for id, o := range f.orders {
		orderSnapshot[id] = *o
	}
	if err := fn(ctx, f); err != nil {
		for id, p := range ledgerSnapshot {
			restored := p
			f.ledger.products[id] = &restored
		}
		f.ledger.movements = f.ledger.movements[:movementCount]
		f.orders = map[int64]*Order{}
		for id, o := range orderSnapshot {
			restored := o
			f.orders[id] = &restored
		}
		return err
	}
	return nil
}

func (f *fakeRepo) GetForUpdate(_ context.Context, id int64) (Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return Order{}, shared.ErrNotFound
	}
	return *o, nil
}

func (f *fakeRepo) NextNumber(_ context.Context, year int) (int64, error) {
	f.sequences[year]++
	return f.sequences[year], nil
}

func (f *fakeRepo) Insert(_ context.Context, o Order) (Order, error) {
	f.nextID++
	o.ID = f.nextID
	stored := o
	f.orders[o.ID] = &stored
	return o, nil
}

func (f *fakeRepo) Update(_ context.Context, o Order) (Order, error) {
	if _, ok := f.orders[o.ID]; !ok {
		return Order{}, shared.ErrNotFound
	}
	stored := o
	f.orders[o.ID] = &stored
	return o, nil
}

func (f *fakeRepo) GetBOM(_ context.Context, id int64) (BOMRef, error) {
	b, ok := f.boms[id]
	if !ok {
		return BOMRef{}, shared.ErrNotFound
	}
	return b, nil
}

func (f *fakeRepo) GetDefaultBOM(_ context.Context, productID int64) (BOMRef, error) {
	for _, b := range f.boms {
		if b.ProductID == productID && b.Enabled {
			return b, nil
		}
	}
	return BOMRef{}, shared.ErrNotFound
}

func (f *fakeRepo) GetProduct(_ context.Context, id int64) (ProductRef, error) {
	p, ok := f.products[id]
	if !ok {
		return ProductRef{}, shared.ErrNotFound
	}
	return p, nil
}

func (f *fakeRepo) ComponentProducts(_ context.Context, ids []int64) (map[int64]ProductRef, error) {
	refs := map[int64]ProductRef{}
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			refs[id] = p
		}
	}
	return refs, nil
}

func (f *fakeRepo) Ledger() stockledger.TxRepository { return f.ledger }

func (f *fakeRepo) Get(_ context.Context, id int64) (Order, error) {
	return f.GetForUpdate(context.Background(), id)
}

func (f *fakeRepo) List(_ context.Context, _ ListFilter) ([]Order, int, error) {
	return nil, 0, nil
}

func (f *fakeRepo) Summary(_ context.Context) (Summary, error) {
	return Summary{}, nil
}

// chairFixture seeds a finished product built from two materials: 4 legs and
// 1 seat per chair, legs carrying 10% wastage.
func chairFixture(legStock, seatStock float64) *fakeRepo {
	repo := newFakeRepo()
	repo.addProduct(ProductRef{ID: 1, Name: "Chair", CostPrice: 15}, 0)
	repo.addProduct(ProductRef{ID: 2, Name: "Leg", CostPrice: 2}, legStock)
	repo.addProduct(ProductRef{ID: 3, Name: "Seat", CostPrice: 5}, seatStock)
	repo.boms[10] = BOMRef{
		ID: 10, ProductID: 1, OutputQuantity: 1, TotalCost: 14.3, Enabled: true,
		Components: []bom.Component{
			{ProductID: 2, Quantity: 4, Wastage: 10},
			{ProductID: 3, Quantity: 1},
		},
	}
	return repo
}

func newTestService(repo *fakeRepo) *Service {
	ledger := stockledger.NewService(nil, nil, nil, stockledger.ServiceConfig{})
	return NewService(repo, ledger, nil)
}

func TestCreateDerivesMaterialsAndPlannedCost(t *testing.T) {
	repo := chairFixture(100, 100)
	svc := newTestService(repo)

	order, err := svc.Create(context.Background(), CreateInput{
		ProductID: 1, BOMID: 10, PlannedQuantity: 10,
	}, 1)
	require.NoError(t, err)
	require.Equal(t, StatusPlanned, order.Status)
	require.Equal(t, int64(1), order.Number)
	require.Len(t, order.MaterialConsumption, 2)

	legs := order.MaterialConsumption[0]
	require.Equal(t, int64(2), legs.ProductID)
	require.Equal(t, "Leg", legs.ProductName)
	require.Equal(t, 44.0, legs.PlannedQuantity) // 4 * 1.1 * 10
	require.Zero(t, legs.ConsumedQuantity)

	seats := order.MaterialConsumption[1]
	require.Equal(t, 10.0, seats.PlannedQuantity)

	require.Equal(t, 14.3, order.Costs.PlannedUnitCost)
}

func TestCreateRejectsMismatchedBOM(t *testing.T) {
	repo := chairFixture(0, 0)
	repo.addProduct(ProductRef{ID: 9, Name: "Table"}, 0)
	svc := newTestService(repo)

	_, err := svc.Create(context.Background(), CreateInput{
		ProductID: 9, BOMID: 10, PlannedQuantity: 1,
	}, 1)
	ve, ok := shared.AsValidation(err)
	require.True(t, ok)
	require.Contains(t, ve.Fields, "bomId")
}

func TestStartReportsEveryShortage(t *testing.T) {
	repo := chairFixture(20, 4) // needs 44 legs and 10 seats
	svc := newTestService(repo)

	order, err := svc.Create(context.Background(), CreateInput{
		ProductID: 1, BOMID: 10, PlannedQuantity: 10,
	}, 1)
	require.NoError(t, err)

	_, err = svc.Start(context.Background(), order.ID, 1)
	ve, ok := shared.AsValidation(err)
	require.True(t, ok)
	details, ok := ve.Details.(map[string]any)
	require.True(t, ok)
	shortages := details["insufficientMaterials"]
	require.Len(t, shortages, 2)

	// nothing posted, nothing consumed
	require.Empty(t, repo.ledger.movements)
	require.Equal(t, 20.0, repo.ledger.products[2].StockQuantity)
	stored, _ := repo.Get(context.Background(), order.ID)
	require.Equal(t, StatusPlanned, stored.Status)
}

func TestStartConsumesMaterialsAtomically(t *testing.T) {
	repo := chairFixture(100, 20)
	svc := newTestService(repo)

	order, err := svc.Create(context.Background(), CreateInput{
		ProductID: 1, BOMID: 10, PlannedQuantity: 10,
	}, 1)
	require.NoError(t, err)

	started, err := svc.Start(context.Background(), order.ID, 1)
	require.NoError(t, err)
	require.Equal(t, StatusInProgress, started.Status)
	require.NotNil(t, started.ActualStartDate)

	require.Equal(t, 44.0, started.MaterialConsumption[0].ConsumedQuantity)
	require.Equal(t, 2.0, started.MaterialConsumption[0].UnitCost)
	require.Equal(t, 10.0, started.MaterialConsumption[1].ConsumedQuantity)

	require.Len(t, repo.ledger.movements, 2)
	for _, m := range repo.ledger.movements {
		require.Equal(t, stockledger.TypeProduction, m.Type)
		require.False(t, m.IsIncrease)
		require.Equal(t, order.ID, m.ProductionOrderID)
	}
	require.Equal(t, 56.0, repo.ledger.products[2].StockQuantity)
	require.Equal(t, 10.0, repo.ledger.products[3].StockQuantity)

	// a second start must not consume again
	_, err = svc.Start(context.Background(), order.ID, 1)
	_, ok := shared.AsValidation(err)
	require.True(t, ok)
	require.Len(t, repo.ledger.movements, 2)
}

func TestRecordCapsAtPlannedQuantity(t *testing.T) {
	repo := chairFixture(100, 20)
	svc := newTestService(repo)

	order, err := svc.Create(context.Background(), CreateInput{
		ProductID: 1, BOMID: 10, PlannedQuantity: 10,
	}, 1)
	require.NoError(t, err)
	_, err = svc.Start(context.Background(), order.ID, 1)
	require.NoError(t, err)

	updated, err := svc.Record(context.Background(), order.ID, RecordInput{Quantity: 6}, 1)
	require.NoError(t, err)
	require.Equal(t, 6.0, updated.ProducedQuantity)
	require.Len(t, updated.Entries, 1)
	require.Equal(t, 6.0, repo.ledger.products[1].StockQuantity)

	_, err = svc.Record(context.Background(), order.ID, RecordInput{Quantity: 5}, 1)
	ve, ok := shared.AsValidation(err)
	require.True(t, ok)
	details, ok := ve.Details.(map[string]any)
	require.True(t, ok)
	require.Equal(t, 10.0, details["planned"])
	require.Equal(t, 6.0, details["produced"])
	require.Equal(t, 6.0, repo.ledger.products[1].StockQuantity)

	updated, err = svc.Record(context.Background(), order.ID, RecordInput{Quantity: 4, RejectedQuantity: 1}, 1)
	require.NoError(t, err)
	require.Equal(t, 10.0, updated.ProducedQuantity)
	require.Equal(t, 1.0, updated.RejectedQuantity)
	require.Len(t, updated.Entries, 2)
	require.Zero(t, updated.Entries[0].RejectedQuantity)
	require.Equal(t, 1.0, updated.Entries[1].RejectedQuantity)
}

func TestRecordCreditsOutputAtProductCost(t *testing.T) {
	repo := chairFixture(100, 20)
	svc := newTestService(repo)

	order, err := svc.Create(context.Background(), CreateInput{
		ProductID: 1, BOMID: 10, PlannedQuantity: 10,
	}, 1)
	require.NoError(t, err)
	_, err = svc.Start(context.Background(), order.ID, 1)
	require.NoError(t, err)

	_, err = svc.Record(context.Background(), order.ID, RecordInput{Quantity: 5}, 1)
	require.NoError(t, err)

	inbound := repo.ledger.movements[len(repo.ledger.movements)-1]
	require.True(t, inbound.IsIncrease)
	require.Equal(t, int64(1), inbound.ProductID)
	require.Equal(t, 15.0, inbound.UnitCost)
}

func TestCompleteSettlesCostsAndVariance(t *testing.T) {
	repo := chairFixture(100, 20)
	svc := newTestService(repo)

	order, err := svc.Create(context.Background(), CreateInput{
		ProductID: 1, BOMID: 10, PlannedQuantity: 10,
	}, 1)
	require.NoError(t, err)
	_, err = svc.Start(context.Background(), order.ID, 1)
	require.NoError(t, err)
	_, err = svc.Record(context.Background(), order.ID, RecordInput{Quantity: 10}, 1)
	require.NoError(t, err)

	completed, err := svc.Complete(context.Background(), order.ID, CompleteInput{}, 1)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, completed.Status)
	require.NotNil(t, completed.ActualEndDate)

	// 44 legs * 2 + 10 seats * 5 = 138
	require.Equal(t, 138.0, completed.Costs.MaterialCost)
	require.Equal(t, 138.0, completed.Costs.TotalCost)
	require.Equal(t, 13.8, completed.Costs.ActualUnitCost)
	require.Equal(t, -0.5, completed.Costs.CostDifference)
	require.Equal(t, -3.5, completed.Costs.CostDifferencePct)
}

func TestCompleteAddsLaborAndOverhead(t *testing.T) {
	repo := chairFixture(100, 20)
	svc := newTestService(repo)

	order, err := svc.Create(context.Background(), CreateInput{
		ProductID: 1, BOMID: 10, PlannedQuantity: 10, Notes: "first batch",
	}, 1)
	require.NoError(t, err)
	_, err = svc.Start(context.Background(), order.ID, 1)
	require.NoError(t, err)
	_, err = svc.Record(context.Background(), order.ID, RecordInput{Quantity: 10}, 1)
	require.NoError(t, err)

	completed, err := svc.Complete(context.Background(), order.ID, CompleteInput{
		LaborCost: 20, OverheadCost: 10, AdditionalCosts: 2, Notes: "two hours overtime",
	}, 1)
	require.NoError(t, err)

	require.Equal(t, 138.0, completed.Costs.MaterialCost)
	require.Equal(t, 20.0, completed.Costs.LaborCost)
	require.Equal(t, 10.0, completed.Costs.OverheadCost)
	require.Equal(t, 2.0, completed.Costs.AdditionalCosts)
	require.Equal(t, 170.0, completed.Costs.TotalCost)
	require.Equal(t, 17.0, completed.Costs.ActualUnitCost)
	require.Equal(t, 2.7, completed.Costs.CostDifference)
	require.Equal(t, 18.88, completed.Costs.CostDifferencePct)
	require.Equal(t, "first batch\n\ntwo hours overtime", completed.Notes)
}

func TestCompleteRequiresRecordedProduction(t *testing.T) {
	repo := chairFixture(100, 20)
	svc := newTestService(repo)

	order, err := svc.Create(context.Background(), CreateInput{
		ProductID: 1, BOMID: 10, PlannedQuantity: 10,
	}, 1)
	require.NoError(t, err)
	_, err = svc.Start(context.Background(), order.ID, 1)
	require.NoError(t, err)

	_, err = svc.Complete(context.Background(), order.ID, CompleteInput{}, 1)
	ve, ok := shared.AsValidation(err)
	require.True(t, ok)
	require.Contains(t, ve.Fields, "producedQuantity")

	stored, _ := repo.Get(context.Background(), order.ID)
	require.Equal(t, StatusInProgress, stored.Status)

	_, err = svc.Complete(context.Background(), order.ID, CompleteInput{LaborCost: -1}, 1)
	_, ok = shared.AsValidation(err)
	require.True(t, ok)
}

func TestLifecycleLegality(t *testing.T) {
	repo := chairFixture(100, 20)
	svc := newTestService(repo)

	order, err := svc.Create(context.Background(), CreateInput{
		ProductID: 1, BOMID: 10, PlannedQuantity: 2,
	}, 1)
	require.NoError(t, err)

	// cannot complete or record before starting
	_, err = svc.Complete(context.Background(), order.ID, CompleteInput{}, 1)
	require.Error(t, err)
	_, err = svc.Record(context.Background(), order.ID, RecordInput{Quantity: 1}, 1)
	require.Error(t, err)

	// hold before start resumes to planned
	_, err = svc.Hold(context.Background(), order.ID, 1)
	require.NoError(t, err)
	resumed, err := svc.Resume(context.Background(), order.ID, 1)
	require.NoError(t, err)
	require.Equal(t, StatusPlanned, resumed.Status)

	// hold after start resumes to in_progress, and a restart must not
	// consume the materials a second time
	_, err = svc.Start(context.Background(), order.ID, 1)
	require.NoError(t, err)
	_, err = svc.Hold(context.Background(), order.ID, 1)
	require.NoError(t, err)
	_, err = svc.Start(context.Background(), order.ID, 1)
	require.Error(t, err)
	resumed, err = svc.Resume(context.Background(), order.ID, 1)
	require.NoError(t, err)
	require.Equal(t, StatusInProgress, resumed.Status)

	// cancelled is terminal
	cancelled, err := svc.Cancel(context.Background(), order.ID, 1)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, cancelled.Status)
	_, err = svc.Start(context.Background(), order.ID, 1)
	require.Error(t, err)
	_, err = svc.Resume(context.Background(), order.ID, 1)
	require.Error(t, err)
	_, err = svc.Update(context.Background(), order.ID, UpdateInput{}, 1)
	require.Error(t, err)
}

func TestUpdateLocksStructuralFieldsAfterStart(t *testing.T) {
	repo := chairFixture(100, 20)
	svc := newTestService(repo)

	order, err := svc.Create(context.Background(), CreateInput{
		ProductID: 1, BOMID: 10, PlannedQuantity: 5,
	}, 1)
	require.NoError(t, err)

	// while planned a quantity change rescales materials
	qty := 20.0
	updated, err := svc.Update(context.Background(), order.ID, UpdateInput{PlannedQuantity: &qty}, 1)
	require.NoError(t, err)
	require.Equal(t, 88.0, updated.MaterialConsumption[0].PlannedQuantity)

	_, err = svc.Start(context.Background(), order.ID, 1)
	require.NoError(t, err)

	notes := "rush job"
	updated, err = svc.Update(context.Background(), order.ID, UpdateInput{Notes: &notes}, 1)
	require.NoError(t, err)
	require.Equal(t, notes, updated.Notes)

	qty = 30
	bomID := int64(10)
	_, err = svc.Update(context.Background(), order.ID, UpdateInput{PlannedQuantity: &qty, BOMID: &bomID}, 1)
	ve, ok := shared.AsValidation(err)
	require.True(t, ok)
	require.ElementsMatch(t, []string{"plannedQuantity", "bomId"}, ve.Fields)
}

func TestCreateDefaultsEndDateOneWeekOut(t *testing.T) {
	repo := chairFixture(100, 20)
	svc := newTestService(repo)

	start := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	order, err := svc.Create(context.Background(), CreateInput{
		ProductID: 1, BOMID: 10, PlannedQuantity: 1,
		PlannedStartDate: timePtr(start),
	}, 1)
	require.NoError(t, err)
	require.Equal(t, start.AddDate(0, 0, 7), order.PlannedEndDate)
}

func TestStartAcceptsHeldOrder(t *testing.T) {
	repo := chairFixture(100, 20)
	svc := newTestService(repo)

	order, err := svc.Create(context.Background(), CreateInput{
		ProductID: 1, BOMID: 10, PlannedQuantity: 10,
	}, 1)
	require.NoError(t, err)
	_, err = svc.Hold(context.Background(), order.ID, 1)
	require.NoError(t, err)

	started, err := svc.Start(context.Background(), order.ID, 1)
	require.NoError(t, err)
	require.Equal(t, StatusInProgress, started.Status)
	require.Len(t, repo.ledger.movements, 2)
}

func TestCreateUsesDefaultBOMWhenUnspecified(t *testing.T) {
	repo := chairFixture(100, 20)
	svc := newTestService(repo)

	order, err := svc.Create(context.Background(), CreateInput{
		ProductID: 1, PlannedQuantity: 1,
		PlannedStartDate: timePtr(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)),
	}, 1)
	require.NoError(t, err)
	require.Equal(t, int64(10), order.BOMID)
	require.Equal(t, 2026, order.Year)
}

func timePtr(t time.Time) *time.Time { return &t }
