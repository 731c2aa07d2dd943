package quality

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fluxia-erp/fluxia/internal/platform/httpx"
)

// Handler wires the quality endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs the quality handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// MountRoutes registers quality routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/quality", func(r chi.Router) {
		r.Get("/summary", h.handleSummary)
		r.Get("/trend", h.handleTrend)
	})
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	var from time.Time
	if raw := r.URL.Query().Get("from"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			from = t
		}
	}
	summary, err := h.service.Summary(r.Context(), from)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, summary, "")
}

func (h *Handler) handleTrend(w http.ResponseWriter, r *http.Request) {
	months, _ := strconv.Atoi(r.URL.Query().Get("months"))
	points, err := h.service.Trend(r.Context(), months)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, points, "")
}
