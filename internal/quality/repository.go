package quality

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads quality figures from the production order table.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Totals(ctx context.Context, from time.Time) (float64, float64, int64, error) {
	var produced, rejected float64
	var orders int64
	var fromArg any
	if !from.IsZero() {
		fromArg = from
	}
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(produced_quantity),0),
COALESCE(SUM(rejected_quantity),0), COUNT(*)
FROM production_orders
WHERE status='completed' AND actual_end_date >= COALESCE($1, '-infinity'::timestamptz)`, fromArg).
		Scan(&produced, &rejected, &orders)
	return produced, rejected, orders, err
}

func (r *Repository) MonthlyTotals(ctx context.Context, months int) ([]TrendPoint, error) {
	rows, err := r.pool.Query(ctx, `SELECT date_trunc('month', actual_end_date) AS month,
COALESCE(SUM(produced_quantity),0), COALESCE(SUM(rejected_quantity),0)
FROM production_orders
WHERE status='completed' AND actual_end_date >= date_trunc('month', NOW()) - make_interval(months => $1)
GROUP BY month ORDER BY month`, months)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	points := []TrendPoint{}
	for rows.Next() {
		var point TrendPoint
		if err := rows.Scan(&point.Month, &point.ProducedQuantity, &point.RejectedQuantity); err != nil {
			return nil, err
		}
		points = append(points, point)
	}
	return points, rows.Err()
}
