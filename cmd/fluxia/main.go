package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/fluxia-erp/fluxia/internal/app"
	"github.com/fluxia-erp/fluxia/internal/auth"
	"github.com/fluxia-erp/fluxia/internal/bom"
	"github.com/fluxia-erp/fluxia/internal/inventory"
	"github.com/fluxia-erp/fluxia/internal/observability"
	"github.com/fluxia-erp/fluxia/internal/platform/cache"
	"github.com/fluxia-erp/fluxia/internal/platform/db"
	"github.com/fluxia-erp/fluxia/internal/production"
	"github.com/fluxia-erp/fluxia/internal/products"
	"github.com/fluxia-erp/fluxia/internal/quality"
	"github.com/fluxia-erp/fluxia/internal/shared"
	"github.com/fluxia-erp/fluxia/internal/stockledger"
	"github.com/fluxia-erp/fluxia/jobs"
	"github.com/fluxia-erp/fluxia/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	// tokens live in redis, the API cannot run without it
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	tokenStore := auth.NewTokenStore(redisClient, cfg.AuthTokenTTL)

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo, tokenStore)
	authHandler := auth.NewHandler(logger, authService)

	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	ledgerRepo := stockledger.NewRepository(dbpool)
	ledgerService := stockledger.NewService(ledgerRepo, auditLogger, idempotencyStore, stockledger.ServiceConfig{
		AllowNegativeStock: cfg.AllowNegativeStock,
	})
	ledgerHandler := stockledger.NewHandler(logger, ledgerService)

	productRepo := products.NewRepository(dbpool)
	productService := products.NewService(productRepo, auditLogger)
	productHandler := products.NewHandler(logger, productService, ledgerService)

	bomRepo := bom.NewRepository(dbpool)
	bomService := bom.NewService(bomRepo, auditLogger)
	bomHandler := bom.NewHandler(logger, bomService)

	inventoryRepo := inventory.NewRepository(dbpool)
	inventoryService := inventory.NewService(inventoryRepo, logger)
	inventoryHandler := inventory.NewHandler(logger, inventoryService)

	productionRepo := production.NewRepository(dbpool)
	productionService := production.NewService(productionRepo, ledgerService, auditLogger)
	productionHandler := production.NewHandler(logger, productionService)

	qualityRepo := quality.NewRepository(dbpool)
	qualityService := quality.NewService(qualityRepo)
	qualityHandler := quality.NewHandler(qualityService)

	reportClient := report.NewClient(cfg.GotenbergURL)
	reportHandler := report.NewHandler(reportClient, logger, productionService, ledgerService, productService)

	metrics := observability.NewMetrics()

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Warn("init job client", slog.Any("error", err))
	} else {
		defer func() {
			if err := jobClient.Close(); err != nil {
				logger.Warn("job client close", slog.Any("error", err))
			}
		}()
		if _, err := jobClient.EnqueueInventorySync(ctx, jobs.SyncPayload{Reason: "startup"}); err != nil {
			logger.Warn("enqueue startup inventory sync", slog.Any("error", err))
		}
	}

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		Tokens:            tokenStore,
		AuthHandler:       authHandler,
		ProductHandler:    productHandler,
		BOMHandler:        bomHandler,
		MovementHandler:   ledgerHandler,
		InventoryHandler:  inventoryHandler,
		ProductionHandler: productionHandler,
		QualityHandler:    qualityHandler,
		ReportHandler:     reportHandler,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
