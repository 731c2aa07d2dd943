package bom

import "github.com/fluxia-erp/fluxia/internal/shared"

// ComponentCost is one line of the cost breakdown.
type ComponentCost struct {
	ProductID   int64   `json:"productId"`
	ProductName string  `json:"productName,omitempty"`
	Quantity    float64 `json:"quantity"`
	Wastage     float64 `json:"wastage"`
	UnitCost    float64 `json:"unitCost"`
	TotalCost   float64 `json:"totalCost"`
	Missing     bool    `json:"missing,omitempty"`
}

// AppliedCost is one additional cost line with the amount it contributed.
type AppliedCost struct {
	Name   string   `json:"name"`
	Type   CostType `json:"type"`
	Value  float64  `json:"value"`
	Amount float64  `json:"amount"`
}

// CostBreakdown is the full costing of a BOM.
type CostBreakdown struct {
	Components        []ComponentCost `json:"components"`
	ComponentsCost    float64         `json:"componentsCost"`
	AdditionalCosts   []AppliedCost   `json:"additionalCosts"`
	TotalCost         float64         `json:"totalCost"`
	OutputQuantity    float64         `json:"outputQuantity"`
	UnitCost          float64         `json:"unitCost"`
	MissingComponents []int64         `json:"missingComponents,omitempty"`
}

// ComponentPrice carries the catalogue data costing needs per component.
type ComponentPrice struct {
	Name     string
	UnitCost float64
}

// ComputeCost prices a BOM against the given component prices. Components
// without a price entry contribute zero and are flagged in the breakdown
// rather than failing the whole computation. Percentage additional costs
// apply to the running total, so their order matters.
func ComputeCost(b BillOfMaterial, prices map[int64]ComponentPrice) CostBreakdown {
	breakdown := CostBreakdown{
		Components:      make([]ComponentCost, 0, len(b.Components)),
		AdditionalCosts: make([]AppliedCost, 0, len(b.AdditionalCosts)),
	}

	for _, c := range b.Components {
		line := ComponentCost{
			ProductID: c.ProductID,
			Quantity:  c.Quantity,
			Wastage:   c.Wastage,
		}
		price, ok := prices[c.ProductID]
		if !ok {
			line.Missing = true
			breakdown.MissingComponents = append(breakdown.MissingComponents, c.ProductID)
			breakdown.Components = append(breakdown.Components, line)
			continue
		}
		line.ProductName = price.Name
		line.UnitCost = price.UnitCost
		line.TotalCost = shared.Round4(price.UnitCost * c.Quantity * (1 + c.Wastage/100))
		breakdown.ComponentsCost += line.TotalCost
		breakdown.Components = append(breakdown.Components, line)
	}

	total := breakdown.ComponentsCost
	for _, ac := range b.AdditionalCosts {
		applied := AppliedCost{Name: ac.Name, Type: ac.Type, Value: ac.Value}
		switch ac.Type {
		case CostPercentage:
			applied.Amount = shared.Round4(total * ac.Value / 100)
		default:
			applied.Amount = ac.Value
		}
		total += applied.Amount
		breakdown.AdditionalCosts = append(breakdown.AdditionalCosts, applied)
	}

	output := b.OutputQuantity
	if output <= 0 {
		output = 1
	}
	breakdown.OutputQuantity = output
	breakdown.TotalCost = shared.Round2(total)
	breakdown.UnitCost = shared.Round2(total / output)
	return breakdown
}
