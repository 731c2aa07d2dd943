// Package jobs hosts the asynq background workers: the nightly inventory
// synchronization and the low stock scan.
package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/fluxia-erp/fluxia/internal/inventory"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskInventorySync rebuilds the inventory aggregate from the catalogue.
	TaskInventorySync = "inventory:sync"
	// TaskLowStockScan logs the current low stock alerts.
	TaskLowStockScan = "inventory:lowstock-scan"
)

// SyncPayload parameterizes an inventory sync run.
type SyncPayload struct {
	Reason string `json:"reason"`
}

// NewInventorySyncTask constructs an inventory sync task.
func NewInventorySyncTask(payload SyncPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInventorySync, data), nil
}

// NewLowStockScanTask constructs a low stock scan task.
func NewLowStockScanTask() *asynq.Task {
	return asynq.NewTask(TaskLowStockScan, nil)
}

// InventorySyncHandler processes TaskInventorySync tasks.
func InventorySyncHandler(svc *inventory.Service, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload SyncPayload
		if len(t.Payload()) > 0 {
			if err := json.Unmarshal(t.Payload(), &payload); err != nil {
				return asynq.SkipRetry
			}
		}
		result, err := svc.Sync(ctx)
		if err != nil {
			logger.Error("inventory sync failed", slog.Any("error", err))
			return err
		}
		logger.Info("inventory sync done",
			slog.String("reason", payload.Reason),
			slog.Int("created", result.Created),
			slog.Int("updated", result.Updated))
		return nil
	}
}

// LowStockScanHandler processes TaskLowStockScan tasks.
func LowStockScanHandler(svc *inventory.Service, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		alerts, err := svc.LowStockAlerts(ctx)
		if err != nil {
			logger.Error("low stock scan failed", slog.Any("error", err))
			return err
		}
		outOfStock := 0
		for _, item := range alerts {
			if item.OutOfStock {
				outOfStock++
			}
			logger.Warn("stock alert",
				slog.String("sku", item.ProductSKU),
				slog.String("product", item.ProductName),
				slog.Float64("currentStock", item.CurrentStock),
				slog.Float64("minStock", item.MinStock),
				slog.Bool("outOfStock", item.OutOfStock))
		}
		logger.Info("low stock scan done",
			slog.Int("alerts", len(alerts)),
			slog.Int("outOfStock", outOfStock))
		return nil
	}
}
