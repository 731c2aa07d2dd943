package inventory

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fluxia-erp/fluxia/internal/platform/httpx"
	"github.com/fluxia-erp/fluxia/internal/shared"
)

// Handler wires the inventory endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the inventory handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/inventory", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Get("/stock-levels", h.handleList)
		r.Post("/sync", h.handleSync)
		r.Get("/summary", h.handleSummary)
		r.Get("/dashboard", h.handleDashboard)
		r.Get("/low-stock-alerts", h.handleLowStock)
		r.Get("/category-analysis", h.handleCategoryAnalysis)
		r.Get("/movement-trends", h.handleMovementTrends)
		r.Get("/top-products", h.handleTopProducts)
		r.Get("/{productId}", h.handleGet)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{
		Query:      q.Get("q"),
		Type:       q.Get("type"),
		LowStock:   q.Get("lowStock") == "true",
		OutOfStock: q.Get("outOfStock") == "true",
	}
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.PerPage, _ = strconv.Atoi(q.Get("perPage"))
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

func (h *Handler) handleSync(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Sync(r.Context())
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, result, "inventory synchronized")
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "productId"), 10, 64)
	if err != nil || productID <= 0 {
		httpx.Error(w, shared.Validation("invalid product id").WithFields("productId"))
		return
	}
	item, err := h.service.Get(r.Context(), productID)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, item, "")
}

func (h *Handler) handleLowStock(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.LowStockAlerts(r.Context())
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, items, "")
}

func (h *Handler) handleCategoryAnalysis(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.CategoryAnalysis(r.Context())
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, stats, "")
}

func (h *Handler) handleMovementTrends(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	points, err := h.service.MovementTrends(r.Context(), days)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, points, "")
}

func (h *Handler) handleTopProducts(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items, err := h.service.TopProducts(r.Context(), limit)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, items, "")
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	data, err := h.service.Dashboard(r.Context())
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, data, "")
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, summary, "")
}
