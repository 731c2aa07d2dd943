// Package stockledger is the single path through which product stock changes.
// Every mutation appends an immutable movement with before/after balances.
package stockledger

import (
	"strconv"
	"time"
)

// MovementType enumerates supported stock movements.
type MovementType string

const (
	TypePurchase   MovementType = "purchase"
	TypeProduction MovementType = "production"
	TypeSale       MovementType = "sale"
	TypeAdjustment MovementType = "adjustment"
	TypeTransfer   MovementType = "transfer"
	TypeReturn     MovementType = "return"
	TypeWaste      MovementType = "waste"
)

// ValidMovementType reports whether t is a known movement type.
func ValidMovementType(t MovementType) bool {
	switch t {
	case TypePurchase, TypeProduction, TypeSale, TypeAdjustment, TypeTransfer, TypeReturn, TypeWaste:
		return true
	}
	return false
}

// Movement is an immutable ledger entry. Product, quantity, direction and the
// before/after balances never change after creation; corrections are made by
// posting a compensating adjustment.
type Movement struct {
	ID                  int64        `json:"id"`
	Number              int64        `json:"number"`
	Year                int          `json:"year"`
	Reference           string       `json:"reference,omitempty"`
	Description         string       `json:"description,omitempty"`
	Type                MovementType `json:"type"`
	Date                time.Time    `json:"date"`
	ProductID           int64        `json:"productId"`
	Quantity            float64      `json:"quantity"`
	IsIncrease          bool         `json:"isIncrease"`
	SourceLocation      string       `json:"sourceLocation,omitempty"`
	DestinationLocation string       `json:"destinationLocation,omitempty"`
	LotNumber           string       `json:"lotNumber,omitempty"`
	ExpiryDate          *time.Time   `json:"expiryDate,omitempty"`
	UnitCost            float64      `json:"unitCost"`
	TotalCost           float64      `json:"totalCost"`
	Currency            string       `json:"currency"`
	ProductionOrderID   int64        `json:"productionOrderId,omitempty"`
	StockBefore         float64      `json:"stockBefore"`
	StockAfter          float64      `json:"stockAfter"`
	Notes               string       `json:"notes,omitempty"`
	CreatedBy           int64        `json:"createdBy"`
	CreatedAt           time.Time    `json:"createdAt"`
	UpdatedAt           time.Time    `json:"updatedAt"`
}

// Direction renders the isIncrease flag for display.
func (m Movement) Direction() string {
	if m.IsIncrease {
		return "in"
	}
	return "out"
}

// MovementInput is the explicit schema for posting a movement.
type MovementInput struct {
	Type                MovementType
	ProductID           int64
	Quantity            float64
	IsIncrease          bool
	UnitCost            *float64
	Date                time.Time
	Reference           string
	Description         string
	Notes               string
	LotNumber           string
	ExpiryDate          *time.Time
	SourceLocation      string
	DestinationLocation string
	ProductionOrderID   int64
	IdempotencyKey      string
	ActorID             int64
}

// ProductStock is the slice of the product row the ledger reads under lock.
type ProductStock struct {
	ID            int64
	SKU           string
	Name          string
	StockQuantity float64
	CostPrice     float64
}

// ListFilter narrows movement listings.
type ListFilter struct {
	ProductID         int64
	Type              MovementType
	Year              int
	ProductionOrderID int64
	From              time.Time
	To                time.Time
	Page              int
	PerPage           int
}

// TypeStat aggregates movements of one type.
type TypeStat struct {
	Type          MovementType `json:"type"`
	Count         int64        `json:"count"`
	TotalQuantity float64      `json:"totalQuantity"`
	TotalValue    float64      `json:"totalValue"`
}

// ProductStat aggregates movements of one product.
type ProductStat struct {
	ProductID      int64   `json:"productId"`
	ProductName    string  `json:"productName"`
	ProductSKU     string  `json:"productSku"`
	TotalMovements int64   `json:"totalMovements"`
	TotalQuantity  float64 `json:"totalQuantity"`
	InQuantity     float64 `json:"inQuantity"`
	OutQuantity    float64 `json:"outQuantity"`
}

// Summary is the reporting rollup over the ledger.
type Summary struct {
	AllTime      []TypeStat    `json:"allTime"`
	Last30Days   []TypeStat    `json:"last30Days"`
	MonthToDate  []TypeStat    `json:"monthToDate"`
	YearToDate   []TypeStat    `json:"yearToDate"`
	TopProducts  []ProductStat `json:"topProducts"`
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
