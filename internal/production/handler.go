package production

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/fluxia-erp/fluxia/internal/platform/httpx"
	"github.com/fluxia-erp/fluxia/internal/shared"
)

// Handler wires the production order endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs the production handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers production order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/production-orders", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Get("/summary", h.handleSummary)
		r.Get("/{id}", h.handleGet)
		r.Patch("/{id}", h.handleUpdate)
		r.Post("/{id}/start", h.transitionHandler((*Service).Start))
		r.Post("/{id}/record", h.handleRecord)
		r.Post("/{id}/complete", h.handleComplete)
		r.Post("/{id}/hold", h.transitionHandler((*Service).Hold))
		r.Post("/{id}/resume", h.transitionHandler((*Service).Resume))
		r.Post("/{id}/cancel", h.transitionHandler((*Service).Cancel))
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{Status: Status(q.Get("status"))}
	filter.ProductID, _ = strconv.ParseInt(q.Get("productId"), 10, 64)
	filter.Year, _ = strconv.Atoi(q.Get("year"))
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.PerPage, _ = strconv.Atoi(q.Get("perPage"))
	if filter.Status != "" && !ValidStatus(filter.Status) {
		httpx.Error(w, shared.Validationf("unknown status %q", filter.Status).WithFields("status"))
		return
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
		httpx.Error(w, shared.Validation("productId and a positive plannedQuantity are required").
			WithFields("productId", "plannedQuantity"))
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	order, err := h.service.Create(r.Context(), input, actor.ID)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, httpx.Envelope{Success: true, Result: order, Message: "production order created"})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	order, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, order, "")
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
	order, err := h.service.Update(r.Context(), id, input, actor.ID)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, order, "production order updated")
}

func (h *Handler) handleRecord(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	var input RecordInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Error(w, shared.Validation("invalid request body"))
		return
	}
	if err := h.validator.Struct(input); err != nil {
		httpx.Error(w, shared.Validation("a positive quantity is required").WithFields("quantity"))
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	order, err := h.service.Record(r.Context(), id, input, actor.ID)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, order, "production recorded")
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	// every cost defaults to zero, so an empty body is fine
	var input CompleteInput
	if err := httpx.DecodeJSON(r, &input); err != nil && !errors.Is(err, io.EOF) {
		httpx.Error(w, shared.Validation("invalid request body"))
		return
	}
	if err := h.validator.Struct(input); err != nil {
		httpx.Error(w, shared.Validation("costs must not be negative").
			WithFields("laborCost", "overheadCost", "additionalCosts"))
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	order, err := h.service.Complete(r.Context(), id, input, actor.ID)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, order, "production completed")
}

// transitionHandler adapts the parameterless lifecycle operations.
func (h *Handler) transitionHandler(op func(*Service, context.Context, int64, int64) (Order, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			httpx.Error(w, err)
			return
		}
		actor, _ := shared.ActorFromContext(r.Context())
		order, err := op(h.service, r.Context(), id, actor.ID)
		if err != nil {
			httpx.Error(w, err)
			return
		}
		httpx.OK(w, order, "production order updated")
	}
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
