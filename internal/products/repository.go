package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fluxia-erp/fluxia/internal/shared"
)

// RepositoryPort abstracts persistence for the service.
type RepositoryPort interface {
	Insert(ctx context.Context, p Product) (Product, error)
	Update(ctx context.Context, p Product) (Product, error)
	Get(ctx context.Context, id int64) (Product, error)
	List(ctx context.Context, filter ListFilter) ([]Product, int, error)
	SoftDelete(ctx context.Context, id int64) error
	SKUExists(ctx context.Context, sku string, excludeID int64) (bool, error)
	Summary(ctx context.Context) (Summary, error)
}

// Repository persists products in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const productColumns = `id, sku, name, description, type, unit, stock_quantity, min_stock_quantity,
max_stock_quantity, location, cost_price, selling_price, currency, taxable, tax_rate,
track_lot, track_expiry, weight, enabled, removed, created_by, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &p.Type, &p.Unit, &p.StockQuantity,
		&p.MinStockQuantity, &p.MaxStockQuantity, &p.Location, &p.CostPrice, &p.SellingPrice,
		&p.Currency, &p.Taxable, &p.TaxRate, &p.TrackLot, &p.TrackExpiry, &p.Weight,
		&p.Enabled, &p.Removed, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *Repository) Insert(ctx context.Context, p Product) (Product, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO products
(sku, name, description, type, unit, stock_quantity, min_stock_quantity, max_stock_quantity,
 location, cost_price, selling_price, currency, taxable, tax_rate, track_lot, track_expiry,
 weight, enabled, created_by, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,NOW(),NOW())
RETURNING `+productColumns,
		p.SKU, p.Name, p.Description, p.Type, p.Unit, p.StockQuantity, p.MinStockQuantity,
		p.MaxStockQuantity, p.Location, p.CostPrice, p.SellingPrice, p.Currency, p.Taxable,
		p.TaxRate, p.TrackLot, p.TrackExpiry, p.Weight, p.Enabled, p.CreatedBy)
	return scanProduct(row)
}

func (r *Repository) Update(ctx context.Context, p Product) (Product, error) {
	row := r.pool.QueryRow(ctx, `UPDATE products SET
sku=$2, name=$3, description=$4, type=$5, unit=$6, min_stock_quantity=$7, max_stock_quantity=$8,
location=$9, selling_price=$10, currency=$11, taxable=$12, tax_rate=$13, track_lot=$14,
track_expiry=$15, weight=$16, enabled=$17, updated_at=NOW()
WHERE id=$1 AND removed=FALSE
RETURNING `+productColumns,
		p.ID, p.SKU, p.Name, p.Description, p.Type, p.Unit, p.MinStockQuantity, p.MaxStockQuantity,
		p.Location, p.SellingPrice, p.Currency, p.Taxable, p.TaxRate, p.TrackLot, p.TrackExpiry,
		p.Weight, p.Enabled)
	updated, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, shared.ErrNotFound
		}
		return Product{}, err
	}
	return updated, nil
}

func (r *Repository) Get(ctx context.Context, id int64) (Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1 AND removed=FALSE`, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, shared.ErrNotFound
		}
		return Product{}, err
	}
	return p, nil
}

func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Product, int, error) {
	where := []string{"removed=FALSE"}
	args := []any{}
	idx := 1
	if filter.Query != "" {
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR sku ILIKE $%d)", idx, idx))
		args = append(args, "%"+filter.Query+"%")
		idx++
	}
	if filter.Type != "" {
		where = append(where, fmt.Sprintf("type=$%d", idx))
		args = append(args, filter.Type)
		idx++
	}
	if filter.Enabled != nil {
		where = append(where, fmt.Sprintf("enabled=$%d", idx))
		args = append(args, *filter.Enabled)
		idx++
	}
	whereClause := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE `+whereClause, args...).Scan(&total); err != nil {
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
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT %s FROM products WHERE %s ORDER BY name ASC LIMIT $%d OFFSET $%d`,
		productColumns, whereClause, idx, idx+1), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *Repository) SoftDelete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE products SET removed=TRUE, updated_at=NOW() WHERE id=$1 AND removed=FALSE`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *Repository) SKUExists(ctx context.Context, sku string, excludeID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE sku=$1 AND removed=FALSE AND id<>$2)`, sku, excludeID).Scan(&exists)
	return exists, err
}

func (r *Repository) Summary(ctx context.Context) (Summary, error) {
	summary := Summary{CountByType: map[string]int64{}}
	rows, err := r.pool.Query(ctx, `SELECT type, COUNT(*), COALESCE(SUM(stock_quantity*cost_price),0),
COUNT(*) FILTER (WHERE stock_quantity > 0 AND stock_quantity <= min_stock_quantity),
COUNT(*) FILTER (WHERE stock_quantity <= 0)
FROM products WHERE removed=FALSE GROUP BY type`)
	if err != nil {
		return Summary{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var typ string
		var count, lowStock, outOfStock int64
		var value float64
		if err := rows.Scan(&typ, &count, &value, &lowStock, &outOfStock); err != nil {
			return Summary{}, err
		}
		summary.CountByType[typ] = count
		summary.TotalProducts += count
		summary.StockValue += value
		summary.LowStock += lowStock
		summary.OutOfStock += outOfStock
	}
	if err := rows.Err(); err != nil {
		return Summary{}, err
	}
	summary.StockValue = shared.Round2(summary.StockValue)
	return summary, nil
}
