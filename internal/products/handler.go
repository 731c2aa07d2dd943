package products

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/fluxia-erp/fluxia/internal/platform/httpx"
	"github.com/fluxia-erp/fluxia/internal/shared"
	"github.com/fluxia-erp/fluxia/internal/stockledger"
)

// StockPoster posts a stock movement on behalf of the catalogue's
// stock adjustment endpoint.
type StockPoster interface {
	Post(ctx context.Context, input stockledger.MovementInput) (stockledger.Movement, error)
}

// Handler wires the product catalogue endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	ledger    StockPoster
	validator *validator.Validate
}

// NewHandler constructs the products handler.
func NewHandler(logger *slog.Logger, service *Service, ledger StockPoster) *Handler {
	return &Handler{logger: logger, service: service, ledger: ledger, validator: validator.New()}
}

// MountRoutes registers product routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Get("/search", h.handleList)
		r.Get("/summary", h.handleSummary)
		r.Get("/{id}", h.handleGet)
		r.Patch("/{id}", h.handleUpdate)
		r.Delete("/{id}", h.handleDelete)
		r.Patch("/{id}/stock", h.handleUpdateStock)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{
		Query: q.Get("q"),
		Type:  Type(q.Get("type")),
	}
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.PerPage, _ = strconv.Atoi(q.Get("perPage"))
	if raw := q.Get("enabled"); raw != "" {
		enabled := raw == "true"
		filter.Enabled = &enabled
	}
	items, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, map[string]any{
		"items":      items,
		"pagination": shared.NewPagination(filter.Page, filter.PerPage, total),
	}, "")
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var input CreateInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Error(w, shared.Validation("invalid request body"))
		return
	}
	if err := h.validator.Struct(input); err != nil {
		httpx.Error(w, shared.Validation("sku and name are required").WithFields("sku", "name"))
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	product, err := h.service.Create(r.Context(), input, actor.ID)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, httpx.Envelope{Success: true, Result: product, Message: "product created"})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	product, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, product, "")
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	var input UpdateInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Error(w, shared.Validation("invalid request body"))
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	product, err := h.service.Update(r.Context(), id, input, actor.ID)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, product, "product updated")
}

type stockForm struct {
	Type       string   `json:"type" validate:"required"`
	Quantity   float64  `json:"quantity" validate:"required,gt=0"`
	IsIncrease bool     `json:"isIncrease"`
	UnitCost   *float64 `json:"unitCost"`
	Reference  string   `json:"reference"`
	Notes      string   `json:"notes"`
}

// handleUpdateStock adjusts the balance through the ledger so the catalogue
// never mutates stock_quantity directly.
func (h *Handler) handleUpdateStock(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	if h.ledger == nil {
		httpx.Error(w, shared.Validation("stock adjustments are not available"))
		return
	}
	var form stockForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Error(w, shared.Validation("invalid request body"))
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Error(w, shared.Validation("type and a positive quantity are required").WithFields("type", "quantity"))
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	movement, err := h.ledger.Post(r.Context(), stockledger.MovementInput{
		Type:           stockledger.MovementType(form.Type),
		ProductID:      id,
		Quantity:       form.Quantity,
		IsIncrease:     form.IsIncrease,
		UnitCost:       form.UnitCost,
		Date:           time.Now(),
		Reference:      form.Reference,
		Notes:          form.Notes,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
		ActorID:        actor.ID,
	})
	if err != nil {
		httpx.Error(w, err)
		return
	}
	product, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, map[string]any{"product": product, "stockMovement": movement}, "stock updated")
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	if err := h.service.Delete(r.Context(), id, actor.ID); err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, nil, "product removed")
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, summary, "")
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.Validation("invalid id").WithFields("id")
	}
	return id, nil
}
