package production

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fluxia-erp/fluxia/internal/platform/db"
	"github.com/fluxia-erp/fluxia/internal/shared"
	"github.com/fluxia-erp/fluxia/internal/stockledger"
)

// Repository persists production orders in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepository struct {
	tx     pgx.Tx
	ledger stockledger.TxRepository
}

// WithTx executes the callback inside a repeatable-read transaction and hands
// it a ledger port bound to the same transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx, ledger: stockledger.NewTxRepository(tx)})
	})
}

func (r *txRepository) Ledger() stockledger.TxRepository {
	return r.ledger
}

const orderColumns = `id, number, year, product_id, bom_id, description, status,
planned_quantity, produced_quantity, rejected_quantity, planned_start_date, planned_end_date,
actual_start_date, actual_end_date, material_consumption, production_entries, costs,
notes, created_by, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	var materials, entries, costs []byte
	err := row.Scan(&o.ID, &o.Number, &o.Year, &o.ProductID, &o.BOMID, &o.Description, &o.Status,
		&o.PlannedQuantity, &o.ProducedQuantity, &o.RejectedQuantity, &o.PlannedStartDate,
		&o.PlannedEndDate, &o.ActualStartDate, &o.ActualEndDate, &materials, &entries, &costs,
		&o.Notes, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return Order{}, err
	}
	if err := json.Unmarshal(materials, &o.MaterialConsumption); err != nil {
		return Order{}, fmt.Errorf("decode material consumption: %w", err)
	}
	if err := json.Unmarshal(entries, &o.Entries); err != nil {
		return Order{}, fmt.Errorf("decode production entries: %w", err)
	}
	if err := json.Unmarshal(costs, &o.Costs); err != nil {
		return Order{}, fmt.Errorf("decode costs: %w", err)
	}
	return o, nil
}

func encodeOrder(o Order) (materials, entries, costs []byte, err error) {
	if o.MaterialConsumption == nil {
		o.MaterialConsumption = []MaterialConsumption{}
	}
	if o.Entries == nil {
		o.Entries = []ProductionEntry{}
	}
	if materials, err = json.Marshal(o.MaterialConsumption); err != nil {
		return nil, nil, nil, err
	}
	if entries, err = json.Marshal(o.Entries); err != nil {
		return nil, nil, nil, err
	}
	if costs, err = json.Marshal(o.Costs); err != nil {
		return nil, nil, nil, err
	}
	return materials, entries, costs, nil
}

func (r *txRepository) GetForUpdate(ctx context.Context, id int64) (Order, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM production_orders WHERE id=$1 FOR UPDATE`, id)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, shared.ErrNotFound
		}
		return Order{}, err
	}
	return o, nil
}

func (r *txRepository) NextNumber(ctx context.Context, year int) (int64, error) {
	return shared.NextSequence(ctx, r.tx, shared.DocTypeProductionOrder, year)
}

func (r *txRepository) Insert(ctx context.Context, o Order) (Order, error) {
	materials, entries, costs, err := encodeOrder(o)
	if err != nil {
		return Order{}, err
	}
	row := r.tx.QueryRow(ctx, `INSERT INTO production_orders
(number, year, product_id, bom_id, description, status, planned_quantity, produced_quantity,
 rejected_quantity, planned_start_date, planned_end_date, actual_start_date, actual_end_date,
 material_consumption, production_entries, costs, notes, created_by, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,NOW(),NOW())
RETURNING `+orderColumns,
		o.Number, o.Year, o.ProductID, o.BOMID, o.Description, o.Status, o.PlannedQuantity,
		o.ProducedQuantity, o.RejectedQuantity, o.PlannedStartDate, o.PlannedEndDate,
		o.ActualStartDate, o.ActualEndDate, materials, entries, costs, o.Notes, o.CreatedBy)
	return scanOrder(row)
}

func (r *txRepository) Update(ctx context.Context, o Order) (Order, error) {
	materials, entries, costs, err := encodeOrder(o)
	if err != nil {
		return Order{}, err
	}
	row := r.tx.QueryRow(ctx, `UPDATE production_orders SET
description=$2, status=$3, planned_quantity=$4, produced_quantity=$5, rejected_quantity=$6,
planned_start_date=$7, planned_end_date=$8, actual_start_date=$9, actual_end_date=$10,
bom_id=$11, material_consumption=$12, production_entries=$13, costs=$14, notes=$15,
updated_at=NOW()
WHERE id=$1
RETURNING `+orderColumns,
		o.ID, o.Description, o.Status, o.PlannedQuantity, o.ProducedQuantity, o.RejectedQuantity,
		o.PlannedStartDate, o.PlannedEndDate, o.ActualStartDate, o.ActualEndDate, o.BOMID,
		materials, entries, costs, o.Notes)
	updated, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, shared.ErrNotFound
		}
		return Order{}, err
	}
	return updated, nil
}

func scanBOMRef(row pgx.Row) (BOMRef, error) {
	var b BOMRef
	var components []byte
	err := row.Scan(&b.ID, &b.ProductID, &b.OutputQuantity, &b.TotalCost, &components, &b.Enabled)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return BOMRef{}, shared.ErrNotFound
		}
		return BOMRef{}, err
	}
	if err := json.Unmarshal(components, &b.Components); err != nil {
		return BOMRef{}, fmt.Errorf("decode components: %w", err)
	}
	return b, nil
}

func (r *txRepository) GetBOM(ctx context.Context, id int64) (BOMRef, error) {
	row := r.tx.QueryRow(ctx, `SELECT id, product_id, output_quantity, total_cost, components, enabled
FROM boms WHERE id=$1 AND removed=FALSE`, id)
	return scanBOMRef(row)
}

func (r *txRepository) GetDefaultBOM(ctx context.Context, productID int64) (BOMRef, error) {
	row := r.tx.QueryRow(ctx, `SELECT id, product_id, output_quantity, total_cost, components, enabled
FROM boms WHERE product_id=$1 AND removed=FALSE AND enabled=TRUE
ORDER BY is_default DESC, updated_at DESC LIMIT 1`, productID)
	return scanBOMRef(row)
}

func (r *txRepository) GetProduct(ctx context.Context, id int64) (ProductRef, error) {
	var p ProductRef
	err := r.tx.QueryRow(ctx, `SELECT id, name, cost_price FROM products
WHERE id=$1 AND removed=FALSE`, id).Scan(&p.ID, &p.Name, &p.CostPrice)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProductRef{}, shared.ErrNotFound
		}
		return ProductRef{}, err
	}
	return p, nil
}

func (r *txRepository) ComponentProducts(ctx context.Context, ids []int64) (map[int64]ProductRef, error) {
	refs := map[int64]ProductRef{}
	if len(ids) == 0 {
		return refs, nil
	}
	rows, err := r.tx.Query(ctx, `SELECT id, name, cost_price FROM products
WHERE id = ANY($1) AND removed=FALSE`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var p ProductRef
		if err := rows.Scan(&p.ID, &p.Name, &p.CostPrice); err != nil {
			return nil, err
		}
		refs[p.ID] = p
	}
	return refs, rows.Err()
}

func (r *Repository) Get(ctx context.Context, id int64) (Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM production_orders WHERE id=$1`, id)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, shared.ErrNotFound
		}
		return Order{}, err
	}
	return o, nil
}

func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Order, int, error) {
	where := []string{"TRUE"}
	args := []any{}
	idx := 1
	if filter.ProductID != 0 {
		where = append(where, fmt.Sprintf("product_id=$%d", idx))
		args = append(args, filter.ProductID)
		idx++
	}
	if filter.Status != "" {
		where = append(where, fmt.Sprintf("status=$%d", idx))
		args = append(args, filter.Status)
		idx++
	}
	if filter.Year != 0 {
		where = append(where, fmt.Sprintf("year=$%d", idx))
		args = append(args, filter.Year)
		idx++
	}
	whereClause := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM production_orders WHERE `+whereClause, args...).Scan(&total); err != nil {
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
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT %s FROM production_orders WHERE %s
ORDER BY year DESC, number DESC LIMIT $%d OFFSET $%d`, orderColumns, whereClause, idx, idx+1), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *Repository) Summary(ctx context.Context) (Summary, error) {
	summary := Summary{}
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*),
COALESCE(SUM(planned_quantity),0), COALESCE(SUM(produced_quantity),0)
FROM production_orders
GROUP BY status ORDER BY status`)
	if err != nil {
		return Summary{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var stat StatusStat
		if err := rows.Scan(&stat.Status, &stat.Count, &stat.Planned, &stat.Produced); err != nil {
			return Summary{}, err
		}
		summary.ByStatus = append(summary.ByStatus, stat)
		if stat.Status == StatusPlanned || stat.Status == StatusInProgress || stat.Status == StatusOnHold {
			summary.OpenOrders += stat.Count
		}
	}
	if err := rows.Err(); err != nil {
		return Summary{}, err
	}

	monthStart := time.Now().UTC()
	monthStart = time.Date(monthStart.Year(), monthStart.Month(), 1, 0, 0, 0, 0, time.UTC)
	err = r.pool.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(produced_quantity),0)
FROM production_orders
WHERE status=$1 AND actual_end_date >= $2`, StatusCompleted, monthStart).
		Scan(&summary.CompletedMonth, &summary.ProducedMonth)
	if err != nil {
		return Summary{}, err
	}
	return summary, nil
}
