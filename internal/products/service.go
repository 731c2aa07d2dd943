package products

import (
	"context"
	"strings"

	"github.com/fluxia-erp/fluxia/internal/shared"
)

// CreateInput is the explicit schema for product creation.
type CreateInput struct {
	SKU              string  `json:"sku" validate:"required"`
	Name             string  `json:"name" validate:"required"`
	Description      string  `json:"description"`
	Type             Type    `json:"type"`
	Unit             string  `json:"unit"`
	StockQuantity    float64 `json:"stockQuantity"`
	MinStockQuantity float64 `json:"minStockQuantity"`
	MaxStockQuantity float64 `json:"maxStockQuantity"`
	Location         string  `json:"location"`
	CostPrice        float64 `json:"costPrice"`
	SellingPrice     float64 `json:"sellingPrice"`
	Currency         string  `json:"currency"`
	Taxable          *bool   `json:"taxable"`
	TaxRate          float64 `json:"taxRate"`
	TrackLot         bool    `json:"trackLot"`
	TrackExpiry      bool    `json:"trackExpiry"`
	Weight           float64 `json:"weight"`
}

// UpdateInput is the explicit schema for product updates. StockQuantity and
// CostPrice are deliberately absent: stock changes go through the ledger and
// cost is owned by the BOM roll-up.
type UpdateInput struct {
	SKU              *string  `json:"sku"`
	Name             *string  `json:"name"`
	Description      *string  `json:"description"`
	Type             *Type    `json:"type"`
	Unit             *string  `json:"unit"`
	MinStockQuantity *float64 `json:"minStockQuantity"`
	MaxStockQuantity *float64 `json:"maxStockQuantity"`
	Location         *string  `json:"location"`
	SellingPrice     *float64 `json:"sellingPrice"`
	Currency         *string  `json:"currency"`
	Taxable          *bool    `json:"taxable"`
	TaxRate          *float64 `json:"taxRate"`
	TrackLot         *bool    `json:"trackLot"`
	TrackExpiry      *bool    `json:"trackExpiry"`
	Weight           *float64 `json:"weight"`
	Enabled          *bool    `json:"enabled"`
}

// Service coordinates the product registry.
type Service struct {
	repo  RepositoryPort
	audit shared.AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit shared.AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// Create registers a new product after checking SKU uniqueness.
func (s *Service) Create(ctx context.Context, input CreateInput, actorID int64) (Product, error) {
	sku := strings.TrimSpace(input.SKU)
	if sku == "" {
		return Product{}, shared.Validation("sku is required").WithFields("sku")
	}
	if strings.TrimSpace(input.Name) == "" {
		return Product{}, shared.Validation("name is required").WithFields("name")
	}
	typ := input.Type
	if typ == "" {
		typ = TypeFinished
	}
	if !ValidType(typ) {
		return Product{}, shared.Validationf("unknown product type %q", typ).WithFields("type")
	}
	if input.CostPrice < 0 || input.SellingPrice < 0 {
		return Product{}, shared.Validation("prices must not be negative").WithFields("costPrice", "sellingPrice")
	}
	exists, err := s.repo.SKUExists(ctx, sku, 0)
	if err != nil {
		return Product{}, err
	}
	if exists {
		return Product{}, shared.Validationf("product with SKU %s already exists", sku).WithFields("sku")
	}

	p := Product{
		SKU:              sku,
		Name:             strings.TrimSpace(input.Name),
		Description:      input.Description,
		Type:             typ,
		Unit:             defaultString(input.Unit, "un"),
		StockQuantity:    input.StockQuantity,
		MinStockQuantity: input.MinStockQuantity,
		MaxStockQuantity: input.MaxStockQuantity,
		Location:         input.Location,
		CostPrice:        shared.Round2(input.CostPrice),
		SellingPrice:     shared.Round2(input.SellingPrice),
		Currency:         strings.ToUpper(defaultString(input.Currency, "BRL")),
		Taxable:          input.Taxable == nil || *input.Taxable,
		TaxRate:          input.TaxRate,
		TrackLot:         input.TrackLot,
		TrackExpiry:      input.TrackExpiry,
		Weight:           input.Weight,
		Enabled:          true,
		CreatedBy:        actorID,
	}
	created, err := s.repo.Insert(ctx, p)
	if err != nil {
		return Product{}, err
	}
	s.recordAudit(ctx, actorID, "product:create", created.ID, map[string]any{"sku": created.SKU})
	return created, nil
}

// Update applies partial changes after checking SKU uniqueness.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput, actorID int64) (Product, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if input.SKU != nil {
		sku := strings.TrimSpace(*input.SKU)
		if sku == "" {
			return Product{}, shared.Validation("sku must not be empty").WithFields("sku")
		}
		exists, err := s.repo.SKUExists(ctx, sku, id)
		if err != nil {
			return Product{}, err
		}
		if exists {
			return Product{}, shared.Validationf("product with SKU %s already exists", sku).WithFields("sku")
		}
		current.SKU = sku
	}
	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return Product{}, shared.Validation("name must not be empty").WithFields("name")
		}
		current.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		current.Description = *input.Description
	}
	if input.Type != nil {
		if !ValidType(*input.Type) {
			return Product{}, shared.Validationf("unknown product type %q", *input.Type).WithFields("type")
		}
		current.Type = *input.Type
	}
	if input.Unit != nil {
		current.Unit = *input.Unit
	}
	if input.MinStockQuantity != nil {
		current.MinStockQuantity = *input.MinStockQuantity
	}
	if input.MaxStockQuantity != nil {
		current.MaxStockQuantity = *input.MaxStockQuantity
	}
	if input.Location != nil {
		current.Location = *input.Location
	}
	if input.SellingPrice != nil {
		if *input.SellingPrice < 0 {
			return Product{}, shared.Validation("sellingPrice must not be negative").WithFields("sellingPrice")
		}
		current.SellingPrice = shared.Round2(*input.SellingPrice)
	}
	if input.Currency != nil {
		current.Currency = strings.ToUpper(*input.Currency)
	}
	if input.Taxable != nil {
		current.Taxable = *input.Taxable
	}
	if input.TaxRate != nil {
		current.TaxRate = *input.TaxRate
	}
	if input.TrackLot != nil {
		current.TrackLot = *input.TrackLot
	}
	if input.TrackExpiry != nil {
		current.TrackExpiry = *input.TrackExpiry
	}
	if input.Weight != nil {
		current.Weight = *input.Weight
	}
	if input.Enabled != nil {
		current.Enabled = *input.Enabled
	}

	updated, err := s.repo.Update(ctx, current)
	if err != nil {
		return Product{}, err
	}
	s.recordAudit(ctx, actorID, "product:update", updated.ID, map[string]any{"sku": updated.SKU})
	return updated, nil
}

// Get returns an active product.
func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	return s.repo.Get(ctx, id)
}

// List returns a filtered page of products with the total count.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Product, int, error) {
	return s.repo.List(ctx, filter)
}

// Delete soft-removes a product.
func (s *Service) Delete(ctx context.Context, id int64, actorID int64) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "product:delete", id, nil)
	return nil
}

// Summary aggregates catalogue statistics.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	return s.repo.Summary(ctx)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "product",
		EntityID: formatID(entityID),
		Meta:     meta,
	})
}

func defaultString(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
