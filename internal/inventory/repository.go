package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fluxia-erp/fluxia/internal/shared"
)

// Repository persists the inventory aggregate in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ProductSnapshots reads the current catalogue state joined with the last
// movement per product; the service derives flags and value from it.
func (r *Repository) ProductSnapshots(ctx context.Context) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `SELECT p.id, p.sku, p.name, p.type, p.unit, p.location,
p.stock_quantity, p.min_stock_quantity, p.max_stock_quantity, p.cost_price,
(SELECT MAX(m.date) FROM stock_movements m WHERE m.product_id = p.id)
FROM products p
WHERE p.removed=FALSE
ORDER BY p.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ProductID, &item.ProductSKU, &item.ProductName, &item.ProductType,
			&item.Unit, &item.Location, &item.CurrentStock, &item.MinStock, &item.MaxStock,
			&item.UnitCost, &item.LastMovementAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *Repository) Upsert(ctx context.Context, item Item) (bool, error) {
	var created bool
	err := r.pool.QueryRow(ctx, `INSERT INTO inventory_items
(product_id, product_sku, product_name, product_type, unit, location, current_stock,
 min_stock, max_stock, unit_cost, total_value, low_stock, out_of_stock, over_stock,
 last_movement_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,NOW())
ON CONFLICT (product_id) DO UPDATE SET
 product_sku=EXCLUDED.product_sku, product_name=EXCLUDED.product_name,
 product_type=EXCLUDED.product_type, unit=EXCLUDED.unit, location=EXCLUDED.location,
 current_stock=EXCLUDED.current_stock, min_stock=EXCLUDED.min_stock,
 max_stock=EXCLUDED.max_stock, unit_cost=EXCLUDED.unit_cost,
 total_value=EXCLUDED.total_value, low_stock=EXCLUDED.low_stock,
 out_of_stock=EXCLUDED.out_of_stock, over_stock=EXCLUDED.over_stock,
 last_movement_at=EXCLUDED.last_movement_at, updated_at=NOW()
RETURNING (xmax = 0)`,
		item.ProductID, item.ProductSKU, item.ProductName, item.ProductType, item.Unit,
		item.Location, item.CurrentStock, item.MinStock, item.MaxStock, item.UnitCost,
		item.TotalValue, item.LowStock, item.OutOfStock, item.OverStock, item.LastMovementAt).
		Scan(&created)
	return created, err
}

const itemColumns = `id, product_id, product_sku, product_name, product_type, unit, location,
current_stock, min_stock, max_stock, unit_cost, total_value, low_stock, out_of_stock,
over_stock, last_movement_at, updated_at`

func scanItem(row pgx.Row) (Item, error) {
	var item Item
	err := row.Scan(&item.ID, &item.ProductID, &item.ProductSKU, &item.ProductName,
		&item.ProductType, &item.Unit, &item.Location, &item.CurrentStock, &item.MinStock,
		&item.MaxStock, &item.UnitCost, &item.TotalValue, &item.LowStock, &item.OutOfStock,
		&item.OverStock, &item.LastMovementAt, &item.UpdatedAt)
	return item, err
}

func (r *Repository) Get(ctx context.Context, productID int64) (Item, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM inventory_items WHERE product_id=$1`, productID)
	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, shared.ErrNotFound
		}
		return Item{}, err
	}
	return item, nil
}

func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Item, int, error) {
	where := []string{"TRUE"}
	args := []any{}
	idx := 1
	if filter.Query != "" {
		where = append(where, fmt.Sprintf("(product_name ILIKE $%d OR product_sku ILIKE $%d)", idx, idx))
		args = append(args, "%"+filter.Query+"%")
		idx++
	}
	if filter.Type != "" {
		where = append(where, fmt.Sprintf("product_type=$%d", idx))
		args = append(args, filter.Type)
		idx++
	}
	if filter.LowStock {
		where = append(where, "low_stock")
	}
	if filter.OutOfStock {
		where = append(where, "out_of_stock")
	}
	whereClause := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM inventory_items WHERE `+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	args = append(args, perPage, (page-1)*perPage)
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT %s FROM inventory_items WHERE %s
ORDER BY product_name LIMIT $%d OFFSET $%d`, itemColumns, whereClause, idx, idx+1), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *Repository) LowStock(ctx context.Context) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+itemColumns+` FROM inventory_items
WHERE low_stock OR out_of_stock
ORDER BY out_of_stock DESC, current_stock ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *Repository) CategoryAnalysis(ctx context.Context) ([]CategoryStat, error) {
	rows, err := r.pool.Query(ctx, `SELECT product_type, COUNT(*),
COALESCE(SUM(current_stock),0), COALESCE(SUM(total_value),0),
COUNT(*) FILTER (WHERE low_stock), COUNT(*) FILTER (WHERE out_of_stock)
FROM inventory_items
GROUP BY product_type ORDER BY product_type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	stats := []CategoryStat{}
	for rows.Next() {
		var stat CategoryStat
		if err := rows.Scan(&stat.ProductType, &stat.Items, &stat.TotalStock,
			&stat.TotalValue, &stat.LowStock, &stat.OutOfStock); err != nil {
			return nil, err
		}
		stats = append(stats, stat)
	}
	return stats, rows.Err()
}

func (r *Repository) MovementTrends(ctx context.Context, days int) ([]TrendPoint, error) {
	rows, err := r.pool.Query(ctx, `SELECT date_trunc('day', date) AS day,
COALESCE(SUM(quantity) FILTER (WHERE is_increase),0),
COALESCE(SUM(quantity) FILTER (WHERE NOT is_increase),0),
COUNT(*)
FROM stock_movements
WHERE date >= NOW() - make_interval(days => $1)
GROUP BY day ORDER BY day`, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	points := []TrendPoint{}
	for rows.Next() {
		var point TrendPoint
		if err := rows.Scan(&point.Date, &point.InQuantity, &point.OutQuantity, &point.Movements); err != nil {
			return nil, err
		}
		points = append(points, point)
	}
	return points, rows.Err()
}

func (r *Repository) TopProducts(ctx context.Context, limit int) ([]TopProduct, error) {
	rows, err := r.pool.Query(ctx, `SELECT product_id, product_sku, product_name, current_stock, total_value
FROM inventory_items
ORDER BY total_value DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []TopProduct{}
	for rows.Next() {
		var item TopProduct
		if err := rows.Scan(&item.ProductID, &item.ProductSKU, &item.ProductName,
			&item.CurrentStock, &item.TotalValue); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *Repository) Summary(ctx context.Context) (Summary, error) {
	var summary Summary
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(total_value),0),
COUNT(*) FILTER (WHERE low_stock), COUNT(*) FILTER (WHERE out_of_stock),
COUNT(*) FILTER (WHERE over_stock)
FROM inventory_items`).Scan(&summary.TotalItems, &summary.TotalStockValue,
		&summary.LowStockCount, &summary.OutOfStockCount, &summary.OverStockCount)
	return summary, err
}
