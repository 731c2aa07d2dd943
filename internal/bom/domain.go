// Package bom manages bills of materials and their cost roll-ups.
package bom

import (
	"strconv"
	"time"
)

// CostType enumerates the two kinds of additional cost.
type CostType string

const (
	CostFixed      CostType = "fixed"
	CostPercentage CostType = "percentage"
)

// ValidCostType reports whether t is a known additional cost type.
func ValidCostType(t CostType) bool {
	return t == CostFixed || t == CostPercentage
}

// Component is one material line of a BOM.
type Component struct {
	ProductID int64   `json:"productId"`
	Quantity  float64 `json:"quantity"`
	Unit      string  `json:"unit,omitempty"`
	Wastage   float64 `json:"wastage"`
	Notes     string  `json:"notes,omitempty"`
}

// AdditionalCost is a labour or overhead charge applied on top of materials.
// Percentage costs compound on the running total in list order.
type AdditionalCost struct {
	Name  string   `json:"name"`
	Type  CostType `json:"type"`
	Value float64  `json:"value"`
}

// Instruction is one assembly step.
type Instruction struct {
	Step        int    `json:"step"`
	Description string `json:"description"`
	Duration    int    `json:"duration,omitempty"`
}

// BillOfMaterial describes how a finished product is built.
type BillOfMaterial struct {
	ID              int64            `json:"id"`
	Code            string           `json:"code"`
	Name            string           `json:"name"`
	Description     string           `json:"description,omitempty"`
	ProductID       int64            `json:"productId"`
	OutputQuantity  float64          `json:"outputQuantity"`
	Components      []Component      `json:"components"`
	AdditionalCosts []AdditionalCost `json:"additionalCosts"`
	Instructions    []Instruction    `json:"instructions"`
	TotalCost       float64          `json:"totalCost"`
	UnitCost        float64          `json:"unitCost"`
	IsDefault       bool             `json:"isDefault"`
	Enabled         bool             `json:"enabled"`
	Removed         bool             `json:"-"`
	CreatedBy       int64            `json:"createdBy"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// ListFilter narrows BOM listings.
type ListFilter struct {
	Query     string
	ProductID int64
	Enabled   *bool
	Page      int
	PerPage   int
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
