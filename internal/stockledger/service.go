package stockledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fluxia-erp/fluxia/internal/shared"
)

// RepositoryPort abstracts persistence for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Movement, error)
	List(ctx context.Context, filter ListFilter) ([]Movement, int, error)
	UpdateDescriptive(ctx context.Context, id int64, fields DescriptiveFields) (Movement, error)
	Summary(ctx context.Context) (Summary, error)
}

// TxRepository exposes the transactional steps of posting a movement.
type TxRepository interface {
	GetProductForUpdate(ctx context.Context, productID int64) (ProductStock, error)
	NextNumber(ctx context.Context, year int) (int64, error)
	InsertMovement(ctx context.Context, m Movement) (Movement, error)
	UpdateProductStock(ctx context.Context, productID int64, stock float64) error
}

// DescriptiveFields are the only mutable fields of a persisted movement.
type DescriptiveFields struct {
	Reference   *string
	Description *string
	Notes       *string
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	AllowNegativeStock bool
}

// Service owns all stock balance mutations.
type Service struct {
	repo        RepositoryPort
	audit       shared.AuditPort
	idempotency *shared.IdempotencyStore
	allowNeg    bool
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit shared.AuditPort, idem *shared.IdempotencyStore, cfg ServiceConfig) *Service {
	return &Service{repo: repo, audit: audit, idempotency: idem, allowNeg: cfg.AllowNegativeStock}
}

// ErrMovementImmutable guides callers away from deleting ledger entries.
var ErrMovementImmutable = shared.Validation("stock movements cannot be deleted; post a compensating adjustment movement instead")

// Post records a movement in its own transaction.
func (s *Service) Post(ctx context.Context, input MovementInput) (Movement, error) {
	insertedKey := false
	if input.IdempotencyKey != "" && s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, input.IdempotencyKey, "stockledger"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return Movement{}, fmt.Errorf("%w: %s", shared.ErrConflict, err)
			}
			return Movement{}, err
		}
		insertedKey = true
	}
	var movement Movement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		movement, err = s.PostTx(ctx, tx, input)
		return err
	})
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, input.IdempotencyKey)
		}
		return Movement{}, err
	}
	return movement, nil
}

// PostTx records a movement inside the caller's transaction. The product row
// stays locked until the caller commits, so the sufficiency check, the number
// draw, the movement insert and the balance update land together or not at all.
func (s *Service) PostTx(ctx context.Context, tx TxRepository, input MovementInput) (Movement, error) {
	if input.Quantity <= 0 {
		return Movement{}, shared.Validation("quantity must be greater than zero").WithFields("quantity")
	}
	if !ValidMovementType(input.Type) {
		return Movement{}, shared.Validationf("invalid movement type %q", input.Type).WithFields("type")
	}
	product, err := tx.GetProductForUpdate(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Movement{}, shared.Validation("product not found").WithFields("product")
		}
		return Movement{}, err
	}

	stockBefore := product.StockQuantity
	stockAfter := stockBefore + input.Quantity
	if !input.IsIncrease {
		stockAfter = stockBefore - input.Quantity
	}
	if !input.IsIncrease && !s.allowNeg && stockAfter < -0.0001 {
		return Movement{}, shared.Validation("insufficient stock for this operation").
			WithFields("quantity").
			WithDetails(map[string]any{
				"productId": product.ID,
				"available": stockBefore,
				"requested": input.Quantity,
			})
	}

	unitCost := product.CostPrice
	if input.UnitCost != nil {
		if *input.UnitCost < 0 {
			return Movement{}, shared.Validation("unitCost must not be negative").WithFields("unitCost")
		}
		unitCost = *input.UnitCost
	}

	date := input.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}
	year := date.Year()
	number, err := tx.NextNumber(ctx, year)
	if err != nil {
		return Movement{}, err
	}

	movement := Movement{
		Number:              number,
		Year:                year,
		Reference:           input.Reference,
		Description:         input.Description,
		Type:                input.Type,
		Date:                date,
		ProductID:           product.ID,
		Quantity:            input.Quantity,
		IsIncrease:          input.IsIncrease,
		SourceLocation:      input.SourceLocation,
		DestinationLocation: input.DestinationLocation,
		LotNumber:           input.LotNumber,
		ExpiryDate:          input.ExpiryDate,
		UnitCost:            unitCost,
		TotalCost:           shared.Round2(unitCost * input.Quantity),
		Currency:            "BRL",
		ProductionOrderID:   input.ProductionOrderID,
		StockBefore:         stockBefore,
		StockAfter:          stockAfter,
		Notes:               input.Notes,
		CreatedBy:           input.ActorID,
	}
	movement, err = tx.InsertMovement(ctx, movement)
	if err != nil {
		return Movement{}, err
	}
	if err := tx.UpdateProductStock(ctx, product.ID, stockAfter); err != nil {
		return Movement{}, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.ActorID,
			Action:   fmt.Sprintf("stockledger:%s", input.Type),
			Entity:   "stock_movement",
			EntityID: fmt.Sprintf("%d/%d", movement.Number, movement.Year),
			Meta: map[string]any{
				"product_id":   product.ID,
				"quantity":     input.Quantity,
				"is_increase":  input.IsIncrease,
				"stock_before": stockBefore,
				"stock_after":  stockAfter,
			},
		})
	}
	return movement, nil
}

// Get returns a movement by id.
func (s *Service) Get(ctx context.Context, id int64) (Movement, error) {
	return s.repo.Get(ctx, id)
}

// List returns a filtered page of movements with the total count.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Movement, int, error) {
	return s.repo.List(ctx, filter)
}

// restrictedFields are rejected on update; they would corrupt the audit trail.
var restrictedFields = []string{
	"product", "productId", "quantity", "isIncrease", "stockBefore", "stockAfter",
	"type", "number", "year", "date", "unitCost", "totalCost",
}

// UpdateDescriptive changes only the non-critical fields of a movement.
// requestedFields carries every key present in the request payload so that
// attempts to touch critical fields are rejected by name.
func (s *Service) UpdateDescriptive(ctx context.Context, id int64, fields DescriptiveFields, requestedFields []string) (Movement, error) {
	var offending []string
	for _, requested := range requestedFields {
		for _, restricted := range restrictedFields {
			if requested == restricted {
				offending = append(offending, requested)
			}
		}
	}
	if len(offending) > 0 {
		return Movement{}, shared.Validation("cannot update critical fields of an existing stock movement").
			WithFields(offending...)
	}
	return s.repo.UpdateDescriptive(ctx, id, fields)
}

// Delete always refuses; the ledger is append-only.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	return ErrMovementImmutable
}

// Summary returns the reporting rollup.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	return s.repo.Summary(ctx)
}
