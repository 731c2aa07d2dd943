package report

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fluxia-erp/fluxia/internal/platform/httpx"
	"github.com/fluxia-erp/fluxia/internal/production"
	"github.com/fluxia-erp/fluxia/internal/products"
	"github.com/fluxia-erp/fluxia/internal/shared"
	"github.com/fluxia-erp/fluxia/internal/stockledger"
)

// Handler streams PDF documents for orders and movements.
type Handler struct {
	client     *Client
	logger     *slog.Logger
	orders     *production.Service
	movements  *stockledger.Service
	productSvc *products.Service
}

// NewHandler creates a report handler.
func NewHandler(client *Client, logger *slog.Logger, orders *production.Service, movements *stockledger.Service, productSvc *products.Service) *Handler {
	return &Handler{client: client, logger: logger, orders: orders, movements: movements, productSvc: productSvc}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Get("/ping", h.ping)
		r.Get("/production-orders/{id}.pdf", h.orderPDF)
		r.Get("/stock-movements/{id}.pdf", h.movementPDF)
	})
}

func (h *Handler) ping(w http.ResponseWriter, r *http.Request) {
	if err := h.client.Ping(r.Context()); err != nil {
		h.logger.Warn("gotenberg ping failed", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (h *Handler) productName(r *http.Request, productID int64) string {
	product, err := h.productSvc.Get(r.Context(), productID)
	if err != nil {
		return fmt.Sprintf("product #%d", productID)
	}
	return product.Name
}

func (h *Handler) orderPDF(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	order, err := h.orders.Get(r.Context(), id)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	html, err := RenderOrderHTML(order, h.productName(r, order.ProductID))
	if err != nil {
		h.logger.Error("render order sheet", slog.Any("error", err))
		httpx.Error(w, err)
		return
	}
	h.streamPDF(w, r, html, fmt.Sprintf("production-order-%d-%d.pdf", order.Year, order.Number))
}

func (h *Handler) movementPDF(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	movement, err := h.movements.Get(r.Context(), id)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	html, err := RenderMovementHTML(movement, h.productName(r, movement.ProductID))
	if err != nil {
		h.logger.Error("render movement document", slog.Any("error", err))
		httpx.Error(w, err)
		return
	}
	h.streamPDF(w, r, html, fmt.Sprintf("stock-movement-%d-%d.pdf", movement.Year, movement.Number))
}

func (h *Handler) streamPDF(w http.ResponseWriter, r *http.Request, html, filename string) {
	pdf, err := h.client.RenderHTML(r.Context(), html)
	if err != nil {
		h.logger.Error("render pdf", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "inline; filename="+filename)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.Validation("invalid id").WithFields("id")
	}
	return id, nil
}
