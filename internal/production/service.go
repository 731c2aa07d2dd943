package production

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fluxia-erp/fluxia/internal/bom"
	"github.com/fluxia-erp/fluxia/internal/shared"
	"github.com/fluxia-erp/fluxia/internal/stockledger"
)

// RepositoryPort abstracts persistence for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Order, error)
	List(ctx context.Context, filter ListFilter) ([]Order, int, error)
	Summary(ctx context.Context) (Summary, error)
}

// TxRepository exposes the transactional steps of mutating an order. Ledger
// shares the same database transaction, so material debits and output credits
// commit together with the order row.
type TxRepository interface {
	GetForUpdate(ctx context.Context, id int64) (Order, error)
	NextNumber(ctx context.Context, year int) (int64, error)
	Insert(ctx context.Context, o Order) (Order, error)
	Update(ctx context.Context, o Order) (Order, error)
	GetBOM(ctx context.Context, id int64) (BOMRef, error)
	GetDefaultBOM(ctx context.Context, productID int64) (BOMRef, error)
	GetProduct(ctx context.Context, id int64) (ProductRef, error)
	ComponentProducts(ctx context.Context, ids []int64) (map[int64]ProductRef, error)
	Ledger() stockledger.TxRepository
}

// ProductRef is the slice of the product row production reads.
type ProductRef struct {
	ID        int64
	Name      string
	CostPrice float64
}

// BOMRef is the slice of the BOM row production builds against.
type BOMRef struct {
	ID             int64
	ProductID      int64
	OutputQuantity float64
	TotalCost      float64
	Components     []bom.Component
	Enabled        bool
}

// CreateInput is the explicit schema for order creation.
type CreateInput struct {
	ProductID        int64      `json:"productId" validate:"required,gt=0"`
	BOMID            int64      `json:"bomId"`
	PlannedQuantity  float64    `json:"plannedQuantity" validate:"required,gt=0"`
	PlannedStartDate *time.Time `json:"plannedStartDate"`
	PlannedEndDate   *time.Time `json:"plannedEndDate"`
	Description      string     `json:"description"`
	Notes            string     `json:"notes"`
}

// UpdateInput is the explicit schema for order updates. After materials are
// consumed only the descriptive fields stay writable.
type UpdateInput struct {
	Description      *string    `json:"description"`
	Notes            *string    `json:"notes"`
	PlannedEndDate   *time.Time `json:"plannedEndDate"`
	PlannedStartDate *time.Time `json:"plannedStartDate"`
	PlannedQuantity  *float64   `json:"plannedQuantity"`
	BOMID            *int64     `json:"bomId"`
}

// RecordInput is one batch of recorded output.
type RecordInput struct {
	Quantity         float64 `json:"quantity" validate:"required,gt=0"`
	RejectedQuantity float64 `json:"rejectedQuantity"`
	Notes            string  `json:"notes"`
}

// CompleteInput carries the settlement costs. Every figure defaults to zero
// and Notes, when present, is appended to the order notes.
type CompleteInput struct {
	LaborCost       float64 `json:"laborCost" validate:"gte=0"`
	OverheadCost    float64 `json:"overheadCost" validate:"gte=0"`
	AdditionalCosts float64 `json:"additionalCosts" validate:"gte=0"`
	Notes           string  `json:"notes"`
}

// Service drives the production order lifecycle.
type Service struct {
	repo   RepositoryPort
	ledger *stockledger.Service
	audit  shared.AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, ledger *stockledger.Service, audit shared.AuditPort) *Service {
	return &Service{repo: repo, ledger: ledger, audit: audit}
}

// Create plans a new order and derives its material needs from the BOM.
func (s *Service) Create(ctx context.Context, input CreateInput, actorID int64) (Order, error) {
	if input.ProductID <= 0 {
		return Order{}, shared.Validation("productId is required").WithFields("productId")
	}
	if input.PlannedQuantity <= 0 {
		return Order{}, shared.Validation("plannedQuantity must be greater than zero").WithFields("plannedQuantity")
	}

	var created Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		product, err := tx.GetProduct(ctx, input.ProductID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.Validation("product not found").WithFields("productId")
			}
			return err
		}

		var bomRef BOMRef
		if input.BOMID > 0 {
			bomRef, err = tx.GetBOM(ctx, input.BOMID)
		} else {
			bomRef, err = tx.GetDefaultBOM(ctx, input.ProductID)
		}
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.Validation("no BOM available for this product").WithFields("bomId")
			}
			return err
		}
		if bomRef.ProductID != product.ID {
			return shared.Validation("BOM does not produce the requested product").WithFields("bomId", "productId")
		}
		if !bomRef.Enabled {
			return shared.Validation("BOM is disabled").WithFields("bomId")
		}

		start := time.Now().UTC()
		if input.PlannedStartDate != nil {
			start = *input.PlannedStartDate
		}
		end := start.AddDate(0, 0, 7)
		if input.PlannedEndDate != nil {
			end = *input.PlannedEndDate
		}
		if end.Before(start) {
			return shared.Validation("plannedEndDate must not precede plannedStartDate").
				WithFields("plannedEndDate")
		}

		order := Order{
			Year:             start.Year(),
			ProductID:        product.ID,
			BOMID:            bomRef.ID,
			Description:      input.Description,
			Status:           StatusPlanned,
			PlannedQuantity:  input.PlannedQuantity,
			PlannedStartDate: start,
			PlannedEndDate:   end,
			Notes:            input.Notes,
			CreatedBy:        actorID,
		}
		order.Number, err = tx.NextNumber(ctx, order.Year)
		if err != nil {
			return err
		}
		if err := s.deriveMaterials(ctx, tx, &order, bomRef); err != nil {
			return err
		}
		created, err = tx.Insert(ctx, order)
		return err
	})
	if err != nil {
		return Order{}, err
	}
	s.recordAudit(ctx, actorID, "production:create", created, nil)
	return created, nil
}

// deriveMaterials scales BOM component lines to the planned quantity,
// wastage included, and prices the plan against the BOM totals.
func (s *Service) deriveMaterials(ctx context.Context, tx TxRepository, order *Order, bomRef BOMRef) error {
	output := bomRef.OutputQuantity
	if output <= 0 {
		output = 1
	}
	scale := order.PlannedQuantity / output

	ids := make([]int64, 0, len(bomRef.Components))
	for _, c := range bomRef.Components {
		ids = append(ids, c.ProductID)
	}
	refs, err := tx.ComponentProducts(ctx, ids)
	if err != nil {
		return err
	}

	order.MaterialConsumption = make([]MaterialConsumption, 0, len(bomRef.Components))
	for _, c := range bomRef.Components {
		line := MaterialConsumption{
			ProductID:       c.ProductID,
			PlannedQuantity: shared.Round4(c.Quantity * (1 + c.Wastage/100) * scale),
		}
		if ref, ok := refs[c.ProductID]; ok {
			line.ProductName = ref.Name
			line.UnitCost = ref.CostPrice
		}
		order.MaterialConsumption = append(order.MaterialConsumption, line)
	}
	order.Costs.PlannedUnitCost = shared.Round2(bomRef.TotalCost / output)
	return nil
}

// Update changes an order. Structural fields are locked once the order has
// started; completed and cancelled orders reject every update.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput, actorID int64) (Order, error) {
	var updated Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if order.Status == StatusCompleted || order.Status == StatusCancelled {
			return shared.Validationf("cannot update a %s production order", order.Status)
		}

		locked := order.Started() || order.Status == StatusInProgress
		if locked {
			var offending []string
			if input.PlannedQuantity != nil {
				offending = append(offending, "plannedQuantity")
			}
			if input.BOMID != nil {
				offending = append(offending, "bomId")
			}
			if input.PlannedStartDate != nil {
				offending = append(offending, "plannedStartDate")
			}
			if len(offending) > 0 {
				return shared.Validation("cannot update structural fields after production has started").
					WithFields(offending...)
			}
		}

		if input.Description != nil {
			order.Description = *input.Description
		}
		if input.Notes != nil {
			order.Notes = *input.Notes
		}
		if input.PlannedEndDate != nil {
			order.PlannedEndDate = *input.PlannedEndDate
		}

		structural := false
		if input.PlannedStartDate != nil {
			order.PlannedStartDate = *input.PlannedStartDate
		}
		if input.PlannedQuantity != nil {
			if *input.PlannedQuantity <= 0 {
				return shared.Validation("plannedQuantity must be greater than zero").WithFields("plannedQuantity")
			}
			order.PlannedQuantity = *input.PlannedQuantity
			structural = true
		}
		if input.BOMID != nil {
			order.BOMID = *input.BOMID
			structural = true
		}
		if order.PlannedEndDate.Before(order.PlannedStartDate) {
			return shared.Validation("plannedEndDate must not precede plannedStartDate").
				WithFields("plannedEndDate")
		}
		if structural {
			bomRef, err := tx.GetBOM(ctx, order.BOMID)
			if err != nil {
				if errors.Is(err, shared.ErrNotFound) {
					return shared.Validation("BOM not found").WithFields("bomId")
				}
				return err
			}
			if bomRef.ProductID != order.ProductID {
				return shared.Validation("BOM does not produce the requested product").WithFields("bomId")
			}
			if err := s.deriveMaterials(ctx, tx, &order, bomRef); err != nil {
				return err
			}
		}
		updated, err = tx.Update(ctx, order)
		return err
	})
	if err != nil {
		return Order{}, err
	}
	s.recordAudit(ctx, actorID, "production:update", updated, nil)
	return updated, nil
}

// Start consumes the planned materials and moves the order to in_progress.
// Every material is checked before anything posts, so callers get the full
// shortage list rather than the first failure.
func (s *Service) Start(ctx context.Context, id int64, actorID int64) (Order, error) {
	var started Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if order.Status != StatusPlanned && order.Status != StatusOnHold {
			return shared.Validationf("cannot start a %s production order", order.Status)
		}
		if order.Started() {
			return shared.Validation("materials have already been consumed for this order")
		}

		ledger := tx.Ledger()
		type shortage struct {
			ProductID   int64   `json:"productId"`
			ProductName string  `json:"productName"`
			Required    float64 `json:"required"`
			Available   float64 `json:"available"`
			Missing     float64 `json:"missing"`
		}
		var insufficient []shortage
		for _, material := range order.MaterialConsumption {
			stock, err := ledger.GetProductForUpdate(ctx, material.ProductID)
			if err != nil {
				if errors.Is(err, shared.ErrNotFound) {
					insufficient = append(insufficient, shortage{
						ProductID:   material.ProductID,
						ProductName: material.ProductName,
						Required:    material.PlannedQuantity,
						Missing:     material.PlannedQuantity,
					})
					continue
				}
				return err
			}
			if stock.StockQuantity < material.PlannedQuantity-0.0001 {
				insufficient = append(insufficient, shortage{
					ProductID:   material.ProductID,
					ProductName: material.ProductName,
					Required:    material.PlannedQuantity,
					Available:   stock.StockQuantity,
					Missing:     shared.Round4(material.PlannedQuantity - stock.StockQuantity),
				})
			}
		}
		if len(insufficient) > 0 {
			return shared.Validation("insufficient materials to start production").
				WithFields("materialConsumption").
				WithDetails(map[string]any{"insufficientMaterials": insufficient})
		}

		now := time.Now().UTC()
		for i := range order.MaterialConsumption {
			material := &order.MaterialConsumption[i]
			movement, err := s.ledger.PostTx(ctx, ledger, stockledger.MovementInput{
				Type:              stockledger.TypeProduction,
				ProductID:         material.ProductID,
				Quantity:          material.PlannedQuantity,
				IsIncrease:        false,
				Date:              now,
				Description:       fmt.Sprintf("materials for production order PO-%d/%d", order.Number, order.Year),
				ProductionOrderID: order.ID,
				ActorID:           actorID,
			})
			if err != nil {
				return err
			}
			material.ConsumedQuantity = material.PlannedQuantity
			material.UnitCost = movement.UnitCost
		}

		order.Status = StatusInProgress
		order.ActualStartDate = &now
		started, err = tx.Update(ctx, order)
		return err
	})
	if err != nil {
		return Order{}, err
	}
	s.recordAudit(ctx, actorID, "production:start", started, nil)
	return started, nil
}

// Record books a batch of produced output, capped at the planned quantity,
// and credits the finished product back into stock.
func (s *Service) Record(ctx context.Context, id int64, input RecordInput, actorID int64) (Order, error) {
	if input.Quantity <= 0 {
		return Order{}, shared.Validation("quantity must be greater than zero").WithFields("quantity")
	}
	if input.RejectedQuantity < 0 {
		return Order{}, shared.Validation("rejectedQuantity must not be negative").WithFields("rejectedQuantity")
	}

	var updated Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if order.Status != StatusInProgress {
			return shared.Validationf("cannot record production on a %s order", order.Status)
		}
		if order.ProducedQuantity+input.Quantity > order.PlannedQuantity+0.0001 {
			return shared.Validation("recorded production would exceed the planned quantity").
				WithFields("quantity").
				WithDetails(map[string]any{
					"planned":   order.PlannedQuantity,
					"produced":  order.ProducedQuantity,
					"requested": input.Quantity,
				})
		}

		product, err := tx.GetProduct(ctx, order.ProductID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		unitCost := product.CostPrice
		if _, err := s.ledger.PostTx(ctx, tx.Ledger(), stockledger.MovementInput{
			Type:              stockledger.TypeProduction,
			ProductID:         order.ProductID,
			Quantity:          input.Quantity,
			IsIncrease:        true,
			UnitCost:          &unitCost,
			Date:              now,
			Description:       fmt.Sprintf("output of production order PO-%d/%d", order.Number, order.Year),
			ProductionOrderID: order.ID,
			ActorID:           actorID,
		}); err != nil {
			return err
		}

		order.ProducedQuantity += input.Quantity
		order.RejectedQuantity += input.RejectedQuantity
		order.Entries = append(order.Entries, ProductionEntry{
			Date:             now,
			Quantity:         input.Quantity,
			RejectedQuantity: input.RejectedQuantity,
			Notes:            input.Notes,
			RecordedBy:       actorID,
		})
		updated, err = tx.Update(ctx, order)
		return err
	})
	if err != nil {
		return Order{}, err
	}
	s.recordAudit(ctx, actorID, "production:record", updated, map[string]any{"quantity": input.Quantity})
	return updated, nil
}

// Complete settles the order: material cost from what was actually consumed,
// labor, overhead and additional costs from the input, unit cost over what
// was actually produced, and the variance between the planned and actual
// unit cost. An order with no recorded production cannot complete.
func (s *Service) Complete(ctx context.Context, id int64, input CompleteInput, actorID int64) (Order, error) {
	if input.LaborCost < 0 || input.OverheadCost < 0 || input.AdditionalCosts < 0 {
		return Order{}, shared.Validation("costs must not be negative").
			WithFields("laborCost", "overheadCost", "additionalCosts")
	}

	var completed Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if order.Status != StatusInProgress {
			return shared.Validationf("cannot complete a %s production order", order.Status)
		}
		if order.ProducedQuantity <= 0 {
			return shared.Validation("no production recorded for this order").WithFields("producedQuantity")
		}

		materialCost := 0.0
		for _, material := range order.MaterialConsumption {
			materialCost += material.ConsumedQuantity * material.UnitCost
		}
		order.Costs.MaterialCost = shared.Round2(materialCost)
		order.Costs.LaborCost = shared.Round2(input.LaborCost)
		order.Costs.OverheadCost = shared.Round2(input.OverheadCost)
		order.Costs.AdditionalCosts = shared.Round2(input.AdditionalCosts)
		order.Costs.TotalCost = shared.Round2(materialCost + input.LaborCost + input.OverheadCost + input.AdditionalCosts)
		order.Costs.ActualUnitCost = shared.Round2(order.Costs.TotalCost / order.ProducedQuantity)
		order.Costs.CostDifference = shared.Round2(order.Costs.ActualUnitCost - order.Costs.PlannedUnitCost)
		if order.Costs.PlannedUnitCost > 0 {
			order.Costs.CostDifferencePct = shared.Round2(order.Costs.CostDifference / order.Costs.PlannedUnitCost * 100)
		}

		if input.Notes != "" {
			if order.Notes != "" {
				order.Notes += "\n\n" + input.Notes
			} else {
				order.Notes = input.Notes
			}
		}

		now := time.Now().UTC()
		order.Status = StatusCompleted
		order.ActualEndDate = &now
		completed, err = tx.Update(ctx, order)
		return err
	})
	if err != nil {
		return Order{}, err
	}
	s.recordAudit(ctx, actorID, "production:complete", completed, map[string]any{
		"produced":  completed.ProducedQuantity,
		"totalCost": completed.Costs.TotalCost,
	})
	return completed, nil
}

// Hold pauses a planned or running order.
func (s *Service) Hold(ctx context.Context, id int64, actorID int64) (Order, error) {
	return s.transition(ctx, id, actorID, "production:hold", func(order *Order) error {
		if order.Status != StatusPlanned && order.Status != StatusInProgress {
			return shared.Validationf("cannot hold a %s production order", order.Status)
		}
		order.Status = StatusOnHold
		return nil
	})
}

// Resume returns a held order to where it was: in_progress when materials
// were already consumed, planned otherwise.
func (s *Service) Resume(ctx context.Context, id int64, actorID int64) (Order, error) {
	return s.transition(ctx, id, actorID, "production:resume", func(order *Order) error {
		if order.Status != StatusOnHold {
			return shared.Validationf("cannot resume a %s production order", order.Status)
		}
		if order.Started() {
			order.Status = StatusInProgress
		} else {
			order.Status = StatusPlanned
		}
		return nil
	})
}

// Cancel terminates an order. Materials already consumed are not returned;
// corrections go through adjustment movements.
func (s *Service) Cancel(ctx context.Context, id int64, actorID int64) (Order, error) {
	return s.transition(ctx, id, actorID, "production:cancel", func(order *Order) error {
		switch order.Status {
		case StatusPlanned, StatusInProgress, StatusOnHold:
			now := time.Now().UTC()
			order.Status = StatusCancelled
			order.ActualEndDate = &now
			return nil
		default:
			return shared.Validationf("cannot cancel a %s production order", order.Status)
		}
	})
}

func (s *Service) transition(ctx context.Context, id, actorID int64, action string, apply func(*Order) error) (Order, error) {
	var updated Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := apply(&order); err != nil {
			return err
		}
		updated, err = tx.Update(ctx, order)
		return err
	})
	if err != nil {
		return Order{}, err
	}
	s.recordAudit(ctx, actorID, action, updated, nil)
	return updated, nil
}

// Get returns an order by id.
func (s *Service) Get(ctx context.Context, id int64) (Order, error) {
	return s.repo.Get(ctx, id)
}

// List returns a filtered page of orders with the total count.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Order, int, error) {
	return s.repo.List(ctx, filter)
}

// Summary returns the production rollup.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	return s.repo.Summary(ctx)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, order Order, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if meta == nil {
		meta = map[string]any{}
	}
	meta["number"] = fmt.Sprintf("PO-%d/%d", order.Number, order.Year)
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "production_order",
		EntityID: formatID(order.ID),
		Meta:     meta,
	})
}
