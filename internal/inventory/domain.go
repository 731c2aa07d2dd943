// Package inventory maintains the denormalized stock position per product
// and the analysis rollups built on top of it.
package inventory

import "time"

// Item is one product's inventory position. Alert flags and total value are
// recomputed from the quantities every time the row is written.
type Item struct {
	ID             int64      `json:"id"`
	ProductID      int64      `json:"productId"`
	ProductSKU     string     `json:"productSku"`
	ProductName    string     `json:"productName"`
	ProductType    string     `json:"productType"`
	Unit           string     `json:"unit,omitempty"`
	Location       string     `json:"location,omitempty"`
	CurrentStock   float64    `json:"currentStock"`
	MinStock       float64    `json:"minStock"`
	MaxStock       float64    `json:"maxStock"`
	UnitCost       float64    `json:"unitCost"`
	TotalValue     float64    `json:"totalValue"`
	LowStock       bool       `json:"lowStock"`
	OutOfStock     bool       `json:"outOfStock"`
	OverStock      bool       `json:"overStock"`
	LastMovementAt *time.Time `json:"lastMovementAt,omitempty"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// SyncResult reports what a synchronization pass did.
type SyncResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// ListFilter narrows inventory listings.
type ListFilter struct {
	Query      string
	Type       string
	LowStock   bool
	OutOfStock bool
	Page       int
	PerPage    int
}

// CategoryStat aggregates inventory per product type.
type CategoryStat struct {
	ProductType string  `json:"productType"`
	Items       int64   `json:"items"`
	TotalStock  float64 `json:"totalStock"`
	TotalValue  float64 `json:"totalValue"`
	LowStock    int64   `json:"lowStock"`
	OutOfStock  int64   `json:"outOfStock"`
}

// TrendPoint is one day of movement activity.
type TrendPoint struct {
	Date        time.Time `json:"date"`
	InQuantity  float64   `json:"inQuantity"`
	OutQuantity float64   `json:"outQuantity"`
	Movements   int64     `json:"movements"`
}

// TopProduct ranks a product by the value it holds in stock.
type TopProduct struct {
	ProductID    int64   `json:"productId"`
	ProductSKU   string  `json:"productSku"`
	ProductName  string  `json:"productName"`
	CurrentStock float64 `json:"currentStock"`
	TotalValue   float64 `json:"totalValue"`
}

// Dashboard bundles the rollups shown on the stock overview screen.
type Dashboard struct {
	Summary     Summary        `json:"summary"`
	LowStock    []Item         `json:"lowStock"`
	Categories  []CategoryStat `json:"categories"`
	TopProducts []TopProduct   `json:"topProducts"`
}

// Summary is the headline inventory position.
type Summary struct {
	TotalItems      int64   `json:"totalItems"`
	TotalStockValue float64 `json:"totalStockValue"`
	LowStockCount   int64   `json:"lowStockCount"`
	OutOfStockCount int64   `json:"outOfStockCount"`
	OverStockCount  int64   `json:"overStockCount"`
}
