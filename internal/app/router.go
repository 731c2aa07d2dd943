package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/fluxia-erp/fluxia/internal/auth"
	"github.com/fluxia-erp/fluxia/internal/bom"
	"github.com/fluxia-erp/fluxia/internal/inventory"
	"github.com/fluxia-erp/fluxia/internal/observability"
	"github.com/fluxia-erp/fluxia/internal/production"
	"github.com/fluxia-erp/fluxia/internal/products"
	"github.com/fluxia-erp/fluxia/internal/quality"
	"github.com/fluxia-erp/fluxia/internal/stockledger"
	"github.com/fluxia-erp/fluxia/report"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	Tokens            *auth.TokenStore
	AuthHandler       *auth.Handler
	ProductHandler    *products.Handler
	BOMHandler        *bom.Handler
	MovementHandler   *stockledger.Handler
	InventoryHandler  *inventory.Handler
	ProductionHandler *production.Handler
	QualityHandler    *quality.Handler
	ReportHandler     *report.Handler
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router with Fluxia defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(api chi.Router) {
		if params.AuthHandler != nil {
			params.AuthHandler.MountRoutes(api)
		}

		api.Group(func(protected chi.Router) {
			protected.Use(auth.RequireAuth(params.Tokens))
			if params.ProductHandler != nil {
				params.ProductHandler.MountRoutes(protected)
			}
			if params.BOMHandler != nil {
				params.BOMHandler.MountRoutes(protected)
			}
			if params.MovementHandler != nil {
				params.MovementHandler.MountRoutes(protected)
			}
			if params.InventoryHandler != nil {
				params.InventoryHandler.MountRoutes(protected)
			}
			if params.ProductionHandler != nil {
				params.ProductionHandler.MountRoutes(protected)
			}
			if params.QualityHandler != nil {
				params.QualityHandler.MountRoutes(protected)
			}
			if params.ReportHandler != nil {
				params.ReportHandler.MountRoutes(protected)
			}
		})
	})

	return r
}
