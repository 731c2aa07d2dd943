// Package quality derives quality and defect rates from completed
// production orders. It is read-only.
package quality

import (
	"context"
	"time"

	"github.com/fluxia-erp/fluxia/internal/shared"
)

// Summary is the headline quality position.
type Summary struct {
	ProducedQuantity float64 `json:"producedQuantity"`
	RejectedQuantity float64 `json:"rejectedQuantity"`
	QualityRate      float64 `json:"qualityRate"`
	DefectRate       float64 `json:"defectRate"`
	CompletedOrders  int64   `json:"completedOrders"`
}

// TrendPoint is one month of quality figures.
type TrendPoint struct {
	Month            time.Time `json:"month"`
	ProducedQuantity float64   `json:"producedQuantity"`
	RejectedQuantity float64   `json:"rejectedQuantity"`
	QualityRate      float64   `json:"qualityRate"`
}

// RepositoryPort abstracts the production order aggregates quality reads.
type RepositoryPort interface {
	Totals(ctx context.Context, from time.Time) (produced, rejected float64, orders int64, err error)
	MonthlyTotals(ctx context.Context, months int) ([]TrendPoint, error)
}

// Service computes quality rollups.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

func rates(produced, rejected float64) (quality, defect float64) {
	total := produced + rejected
	if total <= 0 {
		return 0, 0
	}
	return shared.Round2(produced / total * 100), shared.Round2(rejected / total * 100)
}

// Summary returns quality figures over the given window; a zero from
// covers all time.
func (s *Service) Summary(ctx context.Context, from time.Time) (Summary, error) {
	produced, rejected, orders, err := s.repo.Totals(ctx, from)
	if err != nil {
		return Summary{}, err
	}
	summary := Summary{
		ProducedQuantity: produced,
		RejectedQuantity: rejected,
		CompletedOrders:  orders,
	}
	summary.QualityRate, summary.DefectRate = rates(produced, rejected)
	return summary, nil
}

// Trend returns per-month quality figures for the requested window.
func (s *Service) Trend(ctx context.Context, months int) ([]TrendPoint, error) {
	if months <= 0 || months > 36 {
		months = 12
	}
	points, err := s.repo.MonthlyTotals(ctx, months)
	if err != nil {
		return nil, err
	}
	for i := range points {
		points[i].QualityRate, _ = rates(points[i].ProducedQuantity, points[i].RejectedQuantity)
	}
	return points, nil
}
