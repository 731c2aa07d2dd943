package bom

import (
	"context"
	"errors"

	"github.com/fluxia-erp/fluxia/internal/shared"
)

// RepositoryPort abstracts persistence for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (BillOfMaterial, error)
	GetDefaultForProduct(ctx context.Context, productID int64) (BillOfMaterial, error)
	List(ctx context.Context, filter ListFilter) ([]BillOfMaterial, int, error)
	SoftDelete(ctx context.Context, id int64) error
}

// TxRepository exposes the transactional steps of writing a BOM.
type TxRepository interface {
	CodeExists(ctx context.Context, code string, excludeID int64) (bool, error)
	GetProduct(ctx context.Context, id int64) (ProductRef, error)
	ComponentPrices(ctx context.Context, ids []int64) (map[int64]ComponentPrice, error)
	Get(ctx context.Context, id int64) (BillOfMaterial, error)
	Insert(ctx context.Context, b BillOfMaterial) (BillOfMaterial, error)
	Update(ctx context.Context, b BillOfMaterial) (BillOfMaterial, error)
	DemoteDefaults(ctx context.Context, productID, exceptID int64) error
	UpdateProductCost(ctx context.Context, productID int64, cost float64) error
}

// ProductRef is the slice of the product row the BOM module reads.
type ProductRef struct {
	ID        int64
	Name      string
	Type      string
	CostPrice float64
}

// CreateInput is the explicit schema for BOM creation.
type CreateInput struct {
	Code            string           `json:"code" validate:"required"`
	Name            string           `json:"name" validate:"required"`
	Description     string           `json:"description"`
	ProductID       int64            `json:"productId" validate:"required,gt=0"`
	OutputQuantity  float64          `json:"outputQuantity"`
	Components      []Component      `json:"components"`
	AdditionalCosts []AdditionalCost `json:"additionalCosts"`
	Instructions    []Instruction    `json:"instructions"`
	IsDefault       bool             `json:"isDefault"`
	Enabled         *bool            `json:"enabled"`
}

// UpdateInput is the explicit schema for BOM updates. Nil slices keep the
// stored lines; non-nil slices replace them whole.
type UpdateInput struct {
	Code            *string          `json:"code"`
	Name            *string          `json:"name"`
	Description     *string          `json:"description"`
	ProductID       *int64           `json:"productId"`
	OutputQuantity  *float64         `json:"outputQuantity"`
	Components      []Component      `json:"components"`
	AdditionalCosts []AdditionalCost `json:"additionalCosts"`
	Instructions    []Instruction    `json:"instructions"`
	IsDefault       *bool            `json:"isDefault"`
	Enabled         *bool            `json:"enabled"`
}

// Service coordinates BOM management and the product cost roll-up.
type Service struct {
	repo  RepositoryPort
	audit shared.AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit shared.AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

func validateLines(components []Component, costs []AdditionalCost) error {
	for _, c := range components {
		if c.ProductID <= 0 {
			return shared.Validation("each component needs a product").WithFields("components")
		}
		if c.Quantity <= 0 {
			return shared.Validation("component quantities must be greater than zero").WithFields("components")
		}
		if c.Wastage < 0 {
			return shared.Validation("component wastage must not be negative").WithFields("components")
		}
	}
	for _, ac := range costs {
		if !ValidCostType(ac.Type) {
			return shared.Validationf("unknown additional cost type %q", ac.Type).WithFields("additionalCosts")
		}
		if ac.Value < 0 {
			return shared.Validation("additional cost values must not be negative").WithFields("additionalCosts")
		}
	}
	return nil
}

// Create registers a new BOM, prices it and, for the default BOM, rolls the
// unit cost up onto the product.
func (s *Service) Create(ctx context.Context, input CreateInput, actorID int64) (BillOfMaterial, error) {
	if input.Code == "" || input.Name == "" {
		return BillOfMaterial{}, shared.Validation("code and name are required").WithFields("code", "name")
	}
	if input.ProductID <= 0 {
		return BillOfMaterial{}, shared.Validation("productId is required").WithFields("productId")
	}
	if err := validateLines(input.Components, input.AdditionalCosts); err != nil {
		return BillOfMaterial{}, err
	}

	b := BillOfMaterial{
		Code:            input.Code,
		Name:            input.Name,
		Description:     input.Description,
		ProductID:       input.ProductID,
		OutputQuantity:  input.OutputQuantity,
		Components:      input.Components,
		AdditionalCosts: input.AdditionalCosts,
		Instructions:    input.Instructions,
		IsDefault:       input.IsDefault,
		Enabled:         true,
		CreatedBy:       actorID,
	}
	if input.Enabled != nil {
		b.Enabled = *input.Enabled
	}
	if b.OutputQuantity <= 0 {
		b.OutputQuantity = 1
	}

	var created BillOfMaterial
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		exists, err := tx.CodeExists(ctx, b.Code, 0)
		if err != nil {
			return err
		}
		if exists {
			return shared.Validationf("BOM with code %s already exists", b.Code).WithFields("code")
		}
		if _, err := tx.GetProduct(ctx, b.ProductID); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.Validation("output product not found").WithFields("productId")
			}
			return err
		}
		if err := s.price(ctx, tx, &b); err != nil {
			return err
		}
		created, err = tx.Insert(ctx, b)
		if err != nil {
			return err
		}
		return s.applyDefault(ctx, tx, created)
	})
	if err != nil {
		return BillOfMaterial{}, err
	}
	s.recordAudit(ctx, actorID, "bom:create", created.ID, map[string]any{"code": created.Code})
	return created, nil
}

// Update changes a BOM, reprices it and refreshes the product roll-up.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput, actorID int64) (BillOfMaterial, error) {
	var updated BillOfMaterial
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		b, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		if input.Code != nil && *input.Code != b.Code {
			exists, err := tx.CodeExists(ctx, *input.Code, id)
			if err != nil {
				return err
			}
			if exists {
				return shared.Validationf("BOM with code %s already exists", *input.Code).WithFields("code")
			}
			b.Code = *input.Code
		}
		if input.Name != nil {
			b.Name = *input.Name
		}
		if input.Description != nil {
			b.Description = *input.Description
		}
		if input.ProductID != nil && *input.ProductID != b.ProductID {
			if _, err := tx.GetProduct(ctx, *input.ProductID); err != nil {
				if errors.Is(err, shared.ErrNotFound) {
					return shared.Validation("output product not found").WithFields("productId")
				}
				return err
			}
			b.ProductID = *input.ProductID
		}
		if input.OutputQuantity != nil {
			b.OutputQuantity = *input.OutputQuantity
			if b.OutputQuantity <= 0 {
				b.OutputQuantity = 1
			}
		}
		if input.Components != nil {
			b.Components = input.Components
		}
		if input.AdditionalCosts != nil {
			b.AdditionalCosts = input.AdditionalCosts
		}
		if input.Instructions != nil {
			b.Instructions = input.Instructions
		}
		if input.IsDefault != nil {
			b.IsDefault = *input.IsDefault
		}
		if input.Enabled != nil {
			b.Enabled = *input.Enabled
		}
		if err := validateLines(b.Components, b.AdditionalCosts); err != nil {
			return err
		}
		if err := s.price(ctx, tx, &b); err != nil {
			return err
		}
		updated, err = tx.Update(ctx, b)
		if err != nil {
			return err
		}
		return s.applyDefault(ctx, tx, updated)
	})
	if err != nil {
		return BillOfMaterial{}, err
	}
	s.recordAudit(ctx, actorID, "bom:update", updated.ID, nil)
	return updated, nil
}

// price recomputes the stored costs against current component prices.
func (s *Service) price(ctx context.Context, tx TxRepository, b *BillOfMaterial) error {
	ids := make([]int64, 0, len(b.Components))
	for _, c := range b.Components {
		ids = append(ids, c.ProductID)
	}
	prices, err := tx.ComponentPrices(ctx, ids)
	if err != nil {
		return err
	}
	breakdown := ComputeCost(*b, prices)
	b.TotalCost = breakdown.TotalCost
	b.UnitCost = breakdown.UnitCost
	return nil
}

// applyDefault keeps at most one default BOM per product and pushes the
// default BOM's unit cost onto the product's cost price.
func (s *Service) applyDefault(ctx context.Context, tx TxRepository, b BillOfMaterial) error {
	if !b.IsDefault {
		return nil
	}
	if err := tx.DemoteDefaults(ctx, b.ProductID, b.ID); err != nil {
		return err
	}
	return tx.UpdateProductCost(ctx, b.ProductID, shared.Round2(b.UnitCost))
}

// Get returns a BOM by id.
func (s *Service) Get(ctx context.Context, id int64) (BillOfMaterial, error) {
	return s.repo.Get(ctx, id)
}

// GetDefaultForProduct returns the BOM production should build against.
func (s *Service) GetDefaultForProduct(ctx context.Context, productID int64) (BillOfMaterial, error) {
	return s.repo.GetDefaultForProduct(ctx, productID)
}

// List returns a filtered page of BOMs with the total count.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]BillOfMaterial, int, error) {
	return s.repo.List(ctx, filter)
}

// Cost prices a BOM against current component prices without persisting.
func (s *Service) Cost(ctx context.Context, id int64) (CostBreakdown, error) {
	var breakdown CostBreakdown
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		b, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		ids := make([]int64, 0, len(b.Components))
		for _, c := range b.Components {
			ids = append(ids, c.ProductID)
		}
		prices, err := tx.ComponentPrices(ctx, ids)
		if err != nil {
			return err
		}
		breakdown = ComputeCost(b, prices)
		return nil
	})
	return breakdown, err
}

// Recompute reprices a stored BOM and persists the refreshed totals.
func (s *Service) Recompute(ctx context.Context, id int64, actorID int64) (BillOfMaterial, error) {
	return s.Update(ctx, id, UpdateInput{}, actorID)
}

// Delete soft-removes a BOM.
func (s *Service) Delete(ctx context.Context, id int64, actorID int64) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "bom:delete", id, nil)
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "bom",
		EntityID: formatID(entityID),
		Meta:     meta,
	})
}
