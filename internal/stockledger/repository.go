package stockledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fluxia-erp/fluxia/internal/platform/db"
	"github.com/fluxia-erp/fluxia/internal/shared"
)

// Repository persists movements in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepository struct {
	tx pgx.Tx
}

// NewTxRepository wraps an open transaction so sibling modules can post
// movements atomically with their own writes.
func NewTxRepository(tx pgx.Tx) TxRepository {
	return &txRepository{tx: tx}
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("stockledger repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

func (r *txRepository) GetProductForUpdate(ctx context.Context, productID int64) (ProductStock, error) {
	var p ProductStock
	err := r.tx.QueryRow(ctx, `SELECT id, sku, name, stock_quantity, cost_price
FROM products WHERE id=$1 AND removed=FALSE FOR UPDATE`, productID).
		Scan(&p.ID, &p.SKU, &p.Name, &p.StockQuantity, &p.CostPrice)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProductStock{}, shared.ErrNotFound
		}
		return ProductStock{}, err
	}
	return p, nil
}

func (r *txRepository) NextNumber(ctx context.Context, year int) (int64, error) {
	return shared.NextSequence(ctx, r.tx, shared.DocTypeStockMovement, year)
}

const movementColumns = `id, number, year, reference, description, type, date, product_id, quantity,
is_increase, source_location, destination_location, lot_number, expiry_date, unit_cost, total_cost,
currency, production_order_id, stock_before, stock_after, notes, created_by, created_at, updated_at`

func scanMovement(row pgx.Row) (Movement, error) {
	var m Movement
	var orderID *int64
	err := row.Scan(&m.ID, &m.Number, &m.Year, &m.Reference, &m.Description, &m.Type, &m.Date,
		&m.ProductID, &m.Quantity, &m.IsIncrease, &m.SourceLocation, &m.DestinationLocation,
		&m.LotNumber, &m.ExpiryDate, &m.UnitCost, &m.TotalCost, &m.Currency, &orderID,
		&m.StockBefore, &m.StockAfter, &m.Notes, &m.CreatedBy, &m.CreatedAt, &m.UpdatedAt)
	if orderID != nil {
		m.ProductionOrderID = *orderID
	}
	return m, err
}

func (r *txRepository) InsertMovement(ctx context.Context, m Movement) (Movement, error) {
	var orderID any
	if m.ProductionOrderID != 0 {
		orderID = m.ProductionOrderID
	}
	row := r.tx.QueryRow(ctx, `INSERT INTO stock_movements
(number, year, reference, description, type, date, product_id, quantity, is_increase,
 source_location, destination_location, lot_number, expiry_date, unit_cost, total_cost,
 currency, production_order_id, stock_before, stock_after, notes, created_by, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,NOW(),NOW())
RETURNING `+movementColumns,
		m.Number, m.Year, m.Reference, m.Description, m.Type, m.Date, m.ProductID, m.Quantity,
		m.IsIncrease, m.SourceLocation, m.DestinationLocation, m.LotNumber, m.ExpiryDate,
		m.UnitCost, m.TotalCost, m.Currency, orderID, m.StockBefore, m.StockAfter, m.Notes, m.CreatedBy)
	return scanMovement(row)
}

func (r *txRepository) UpdateProductStock(ctx context.Context, productID int64, stock float64) error {
	tag, err := r.tx.Exec(ctx, `UPDATE products SET stock_quantity=$2, updated_at=NOW() WHERE id=$1 AND removed=FALSE`, productID, stock)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id int64) (Movement, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+movementColumns+` FROM stock_movements WHERE id=$1`, id)
	m, err := scanMovement(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Movement{}, shared.ErrNotFound
		}
		return Movement{}, err
	}
	return m, nil
}

func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Movement, int, error) {
	where := []string{"TRUE"}
	args := []any{}
	idx := 1
	if filter.ProductID != 0 {
		where = append(where, fmt.Sprintf("product_id=$%d", idx))
		args = append(args, filter.ProductID)
		idx++
	}
	if filter.Type != "" {
		where = append(where, fmt.Sprintf("type=$%d", idx))
		args = append(args, filter.Type)
		idx++
	}
	if filter.Year != 0 {
		where = append(where, fmt.Sprintf("year=$%d", idx))
		args = append(args, filter.Year)
		idx++
	}
	if filter.ProductionOrderID != 0 {
		where = append(where, fmt.Sprintf("production_order_id=$%d", idx))
		args = append(args, filter.ProductionOrderID)
		idx++
	}
	if !filter.From.IsZero() {
		where = append(where, fmt.Sprintf("date >= $%d", idx))
		args = append(args, filter.From)
		idx++
	}
	if !filter.To.IsZero() {
		where = append(where, fmt.Sprintf("date <= $%d", idx))
		args = append(args, filter.To)
		idx++
	}
	whereClause := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM stock_movements WHERE `+whereClause, args...).Scan(&total); err != nil {
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
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT %s FROM stock_movements WHERE %s
ORDER BY year DESC, number DESC LIMIT $%d OFFSET $%d`, movementColumns, whereClause, idx, idx+1), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := []Movement{}
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *Repository) UpdateDescriptive(ctx context.Context, id int64, fields DescriptiveFields) (Movement, error) {
	row := r.pool.QueryRow(ctx, `UPDATE stock_movements SET
reference=COALESCE($2, reference),
description=COALESCE($3, description),
notes=COALESCE($4, notes),
updated_at=NOW()
WHERE id=$1
RETURNING `+movementColumns, id, fields.Reference, fields.Description, fields.Notes)
	m, err := scanMovement(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Movement{}, shared.ErrNotFound
		}
		return Movement{}, err
	}
	return m, nil
}

func (r *Repository) Summary(ctx context.Context) (Summary, error) {
	now := time.Now().UTC()
	summary := Summary{}
	periods := []struct {
		dest *[]TypeStat
		from time.Time
	}{
		{&summary.AllTime, time.Time{}},
		{&summary.Last30Days, now.AddDate(0, 0, -30)},
		{&summary.MonthToDate, time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)},
		{&summary.YearToDate, time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, period := range periods {
		stats, err := r.typeStats(ctx, period.from)
		if err != nil {
			return Summary{}, err
		}
		*period.dest = stats
	}

	rows, err := r.pool.Query(ctx, `SELECT m.product_id, p.name, p.sku, COUNT(*),
COALESCE(SUM(m.quantity),0),
COALESCE(SUM(m.quantity) FILTER (WHERE m.is_increase),0),
COALESCE(SUM(m.quantity) FILTER (WHERE NOT m.is_increase),0)
FROM stock_movements m
JOIN products p ON p.id = m.product_id
GROUP BY m.product_id, p.name, p.sku
ORDER BY COUNT(*) DESC
LIMIT 10`)
	if err != nil {
		return Summary{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var stat ProductStat
		if err := rows.Scan(&stat.ProductID, &stat.ProductName, &stat.ProductSKU,
			&stat.TotalMovements, &stat.TotalQuantity, &stat.InQuantity, &stat.OutQuantity); err != nil {
			return Summary{}, err
		}
		summary.TopProducts = append(summary.TopProducts, stat)
	}
	if err := rows.Err(); err != nil {
		return Summary{}, err
	}
	return summary, nil
}

func (r *Repository) typeStats(ctx context.Context, from time.Time) ([]TypeStat, error) {
	rows, err := r.pool.Query(ctx, `SELECT type, COUNT(*), COALESCE(SUM(quantity),0), COALESCE(SUM(total_cost),0)
FROM stock_movements
WHERE date >= COALESCE($1, '-infinity'::timestamptz)
GROUP BY type ORDER BY type`, nullTime(from))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	stats := []TypeStat{}
	for rows.Next() {
		var stat TypeStat
		if err := rows.Scan(&stat.Type, &stat.Count, &stat.TotalQuantity, &stat.TotalValue); err != nil {
			return nil, err
		}
		stats = append(stats, stat)
	}
	return stats, rows.Err()
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
