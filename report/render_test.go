package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fluxia-erp/fluxia/internal/production"
	"github.com/fluxia-erp/fluxia/internal/stockledger"
)

func TestRenderOrderHTML(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	order := production.Order{
		Number: 7, Year: 2026, Status: production.StatusCompleted,
		PlannedQuantity: 10, ProducedQuantity: 10,
		PlannedStartDate: now, PlannedEndDate: now,
		MaterialConsumption: []production.MaterialConsumption{
			{ProductName: "Leg", PlannedQuantity: 44, ConsumedQuantity: 44, UnitCost: 2},
		},
		Entries: []production.ProductionEntry{
			{Date: now, Quantity: 10, Notes: "first batch"},
		},
		Costs: production.Costs{PlannedUnitCost: 14.3, MaterialCost: 138, ActualUnitCost: 13.8},
	}

	html, err := RenderOrderHTML(order, "Chair")
	require.NoError(t, err)
	require.Contains(t, html, "PO-7/2026")
	require.Contains(t, html, "Chair")
	require.Contains(t, html, "Leg")
	require.Contains(t, html, "first batch")
}

func TestRenderMovementHTML(t *testing.T) {
	movement := stockledger.Movement{
		Number: 3, Year: 2026, Type: stockledger.TypePurchase,
		Date: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		Quantity: 5, IsIncrease: true, UnitCost: 2.5, TotalCost: 12.5,
		StockBefore: 10, StockAfter: 15, Reference: "NF-123",
	}

	html, err := RenderMovementHTML(movement, "Steel")
	require.NoError(t, err)
	require.Contains(t, html, "SM-3/2026")
	require.Contains(t, html, "Steel")
	require.Contains(t, html, "NF-123")
	require.Contains(t, html, "in")
}
