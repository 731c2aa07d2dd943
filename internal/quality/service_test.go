package quality

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	produced float64
	rejected float64
	orders   int64
	months    []TrendPoint
	gotFrom   time.Time
	gotMonths int
}

func (f *fakeRepo) Totals(ctx context.Context, from time.Time) (float64, float64, int64, error) {
	f.gotFrom = from
	return f.produced, f.rejected, f.orders, nil
}

func (f *fakeRepo) MonthlyTotals(ctx context.Context, months int) ([]TrendPoint, error) {
	f.gotMonths = months
	return f.months, nil
}

func TestSummaryComputesRates(t *testing.T) {
	svc := NewService(&fakeRepo{produced: 95, rejected: 5, orders: 12})

	summary, err := svc.Summary(context.Background(), time.Time{})
	require.NoError(t, err)
	require.Equal(t, 95.0, summary.ProducedQuantity)
	require.Equal(t, 5.0, summary.RejectedQuantity)
	require.Equal(t, 95.0, summary.QualityRate)
	require.Equal(t, 5.0, summary.DefectRate)
	require.Equal(t, int64(12), summary.CompletedOrders)
}

func TestSummaryHandlesNoProduction(t *testing.T) {
	svc := NewService(&fakeRepo{})

	summary, err := svc.Summary(context.Background(), time.Time{})
	require.NoError(t, err)
	require.Zero(t, summary.QualityRate)
	require.Zero(t, summary.DefectRate)
}

func TestTrendFillsRatesAndClampsWindow(t *testing.T) {
	repo := &fakeRepo{months: []TrendPoint{
		{ProducedQuantity: 30, RejectedQuantity: 10},
		{ProducedQuantity: 50, RejectedQuantity: 0},
	}}
	svc := NewService(repo)

	points, err := svc.Trend(context.Background(), 120)
	require.NoError(t, err)
	require.Equal(t, 12, repo.gotMonths)
	require.Equal(t, 75.0, points[0].QualityRate)
	require.Equal(t, 100.0, points[1].QualityRate)
}
