package products

import (
	"strconv"
	"time"
)

// Type classifies a product in the catalogue.
type Type string

const (
	// TypeFinished marks goods produced by production orders.
	TypeFinished Type = "finished"
	// TypeRaw marks raw materials consumed by production.
	TypeRaw Type = "raw"
	// TypeSupply marks auxiliary supplies.
	TypeSupply Type = "supply"
)

// ValidType reports whether t is a known product type.
func ValidType(t Type) bool {
	switch t {
	case TypeFinished, TypeRaw, TypeSupply:
		return true
	}
	return false
}

// Product is the canonical catalogue record. StockQuantity is the
// authoritative balance and is only mutated through the stock ledger;
// CostPrice is only overwritten by the default BOM roll-up.
type Product struct {
	ID               int64     `json:"id"`
	SKU              string    `json:"sku"`
	Name             string    `json:"name"`
	Description      string    `json:"description,omitempty"`
	Type             Type      `json:"type"`
	Unit             string    `json:"unit"`
	StockQuantity    float64   `json:"stockQuantity"`
	MinStockQuantity float64   `json:"minStockQuantity"`
	MaxStockQuantity float64   `json:"maxStockQuantity"`
	Location         string    `json:"location,omitempty"`
	CostPrice        float64   `json:"costPrice"`
	SellingPrice     float64   `json:"sellingPrice"`
	Currency         string    `json:"currency"`
	Taxable          bool      `json:"taxable"`
	TaxRate          float64   `json:"taxRate"`
	TrackLot         bool      `json:"trackLot"`
	TrackExpiry      bool      `json:"trackExpiry"`
	Weight           float64   `json:"weight,omitempty"`
	Enabled          bool      `json:"enabled"`
	Removed          bool      `json:"-"`
	CreatedBy        int64     `json:"createdBy,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// ListFilter narrows product listings.
type ListFilter struct {
	Query   string
	Type    Type
	Enabled *bool
	Page    int
	PerPage int
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// Summary aggregates catalogue health per product type.
type Summary struct {
	TotalProducts int64            `json:"totalProducts"`
	CountByType   map[string]int64 `json:"countByType"`
	StockValue    float64          `json:"stockValue"`
	LowStock      int64            `json:"lowStock"`
	OutOfStock    int64            `json:"outOfStock"`
}
