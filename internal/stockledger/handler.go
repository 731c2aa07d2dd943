package stockledger

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/fluxia-erp/fluxia/internal/platform/httpx"
	"github.com/fluxia-erp/fluxia/internal/shared"
)

// Handler wires the stock movement endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs the stock ledger handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers stock movement routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/stock-movements", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Get("/summary", h.handleSummary)
		r.Get("/{id}", h.handleGet)
		r.Patch("/{id}", h.handleUpdate)
		r.Delete("/{id}", h.handleDelete)
	})
}

type movementForm struct {
	Type                MovementType `json:"type" validate:"required"`
	ProductID           int64        `json:"productId" validate:"required,gt=0"`
	Quantity            float64      `json:"quantity" validate:"required,gt=0"`
	IsIncrease          bool         `json:"isIncrease"`
	UnitCost            *float64     `json:"unitCost"`
	Date                *time.Time   `json:"date"`
	Reference           string       `json:"reference"`
	Description         string       `json:"description"`
	Notes               string       `json:"notes"`
	LotNumber           string       `json:"lotNumber"`
	ExpiryDate          *time.Time   `json:"expiryDate"`
	SourceLocation      string       `json:"sourceLocation"`
	DestinationLocation string       `json:"destinationLocation"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var form movementForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Error(w, shared.Validation("invalid request body"))
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Error(w, shared.Validation("type, productId and a positive quantity are required").
			WithFields("type", "productId", "quantity"))
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	input := MovementInput{
		Type:                form.Type,
		ProductID:           form.ProductID,
		Quantity:            form.Quantity,
		IsIncrease:          form.IsIncrease,
		UnitCost:            form.UnitCost,
		Reference:           form.Reference,
		Description:         form.Description,
		Notes:               form.Notes,
		LotNumber:           form.LotNumber,
		ExpiryDate:          form.ExpiryDate,
		SourceLocation:      form.SourceLocation,
		DestinationLocation: form.DestinationLocation,
		IdempotencyKey:      r.Header.Get("Idempotency-Key"),
		ActorID:             actor.ID,
	}
	if form.Date != nil {
		input.Date = *form.Date
	}
	movement, err := h.service.Post(r.Context(), input)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, httpx.Envelope{Success: true, Result: movement, Message: "movement recorded"})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{Type: MovementType(q.Get("type"))}
	filter.ProductID, _ = strconv.ParseInt(q.Get("productId"), 10, 64)
	filter.ProductionOrderID, _ = strconv.ParseInt(q.Get("productionOrderId"), 10, 64)
	filter.Year, _ = strconv.Atoi(q.Get("year"))
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.PerPage, _ = strconv.Atoi(q.Get("perPage"))
	if raw := q.Get("from"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.From = t
		}
	}
	if raw := q.Get("to"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.To = t
		}
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

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	movement, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, movement, "")
}

// handleUpdate reads the raw body so the full set of requested field names,
// not only the writable ones, reaches the service for the immutability check.
func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	var raw map[string]json.RawMessage
	if err := httpx.DecodeJSON(r, &raw); err != nil {
		httpx.Error(w, shared.Validation("invalid request body"))
		return
	}
	requested := make([]string, 0, len(raw))
	for name := range raw {
		requested = append(requested, name)
	}
	var fields DescriptiveFields
	if err := decodeField(raw, "reference", &fields.Reference); err != nil {
		httpx.Error(w, err)
		return
	}
	if err := decodeField(raw, "description", &fields.Description); err != nil {
		httpx.Error(w, err)
		return
	}
	if err := decodeField(raw, "notes", &fields.Notes); err != nil {
		httpx.Error(w, err)
		return
	}
	movement, err := h.service.UpdateDescriptive(r.Context(), id, fields, requested)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, movement, "movement updated")
}

func decodeField(raw map[string]json.RawMessage, name string, target **string) error {
	value, ok := raw[name]
	if !ok {
		return nil
	}
	var s string
	if err := json.Unmarshal(value, &s); err != nil {
		return shared.Validationf("%s must be a string", name).WithFields(name)
	}
	*target = &s
	return nil
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, nil, "movement removed")
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
