// Package production runs manufacturing orders: planning, material
// consumption, output recording and cost settlement.
package production

import (
	"strconv"
	"time"
)

// Status enumerates the production order lifecycle.
type Status string

const (
	StatusPlanned    Status = "planned"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusOnHold     Status = "on_hold"
)

// ValidStatus reports whether s is a known status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPlanned, StatusInProgress, StatusCompleted, StatusCancelled, StatusOnHold:
		return true
	}
	return false
}

// MaterialConsumption tracks one material line of an order. PlannedQuantity
// is derived from the BOM at creation; ConsumedQuantity is written when the
// matching stock debit posts.
type MaterialConsumption struct {
	ProductID        int64   `json:"productId"`
	ProductName      string  `json:"productName"`
	PlannedQuantity  float64 `json:"plannedQuantity"`
	ConsumedQuantity float64 `json:"consumedQuantity"`
	UnitCost         float64 `json:"unitCost"`
}

// ProductionEntry is one recorded batch of output.
type ProductionEntry struct {
	Date             time.Time `json:"date"`
	Quantity         float64   `json:"quantity"`
	RejectedQuantity float64   `json:"rejectedQuantity"`
	Notes            string    `json:"notes,omitempty"`
	RecordedBy       int64     `json:"recordedBy"`
}

// Costs carries the settled cost figures of a completed order. Labor,
// overhead and additional costs come from the completion call; the rest is
// derived from consumption and output.
type Costs struct {
	PlannedUnitCost   float64 `json:"plannedUnitCost"`
	MaterialCost      float64 `json:"materialCost"`
	LaborCost         float64 `json:"laborCost"`
	OverheadCost      float64 `json:"overheadCost"`
	AdditionalCosts   float64 `json:"additionalCosts"`
	TotalCost         float64 `json:"totalCost"`
	ActualUnitCost    float64 `json:"actualUnitCost"`
	CostDifference    float64 `json:"costDifference"`
	CostDifferencePct float64 `json:"costDifferencePct"`
}

// Order is a production order.
type Order struct {
	ID                  int64                 `json:"id"`
	Number              int64                 `json:"number"`
	Year                int                   `json:"year"`
	ProductID           int64                 `json:"productId"`
	BOMID               int64                 `json:"bomId"`
	Description         string                `json:"description,omitempty"`
	Status              Status                `json:"status"`
	PlannedQuantity     float64               `json:"plannedQuantity"`
	ProducedQuantity    float64               `json:"producedQuantity"`
	RejectedQuantity    float64               `json:"rejectedQuantity"`
	PlannedStartDate    time.Time             `json:"plannedStartDate"`
	PlannedEndDate      time.Time             `json:"plannedEndDate"`
	ActualStartDate     *time.Time            `json:"actualStartDate,omitempty"`
	ActualEndDate       *time.Time            `json:"actualEndDate,omitempty"`
	MaterialConsumption []MaterialConsumption `json:"materialConsumption"`
	Entries             []ProductionEntry     `json:"entries"`
	Costs               Costs                 `json:"costs"`
	Notes               string                `json:"notes,omitempty"`
	CreatedBy           int64                 `json:"createdBy"`
	CreatedAt           time.Time             `json:"createdAt"`
	UpdatedAt           time.Time             `json:"updatedAt"`
}

// Started reports whether materials have been consumed for this order.
func (o Order) Started() bool {
	return o.ActualStartDate != nil
}

// ListFilter narrows order listings.
type ListFilter struct {
	ProductID int64
	Status    Status
	Year      int
	Page      int
	PerPage   int
}

// StatusStat aggregates orders of one status.
type StatusStat struct {
	Status   Status  `json:"status"`
	Count    int64   `json:"count"`
	Planned  float64 `json:"plannedQuantity"`
	Produced float64 `json:"producedQuantity"`
}

// Summary is the production rollup.
type Summary struct {
	ByStatus       []StatusStat `json:"byStatus"`
	OpenOrders     int64        `json:"openOrders"`
	CompletedMonth int64        `json:"completedThisMonth"`
	ProducedMonth  float64      `json:"producedThisMonth"`
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
