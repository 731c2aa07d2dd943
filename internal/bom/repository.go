package bom

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fluxia-erp/fluxia/internal/platform/db"
	"github.com/fluxia-erp/fluxia/internal/shared"
)

// Repository persists BOMs in PostgreSQL. Component, cost and instruction
// lines live as JSONB on the bom row; they are only ever read whole.
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

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

const bomColumns = `id, code, name, description, product_id, output_quantity, components,
additional_costs, instructions, total_cost, unit_cost, is_default, enabled, removed,
created_by, created_at, updated_at`

func scanBOM(row pgx.Row) (BillOfMaterial, error) {
	var b BillOfMaterial
	var components, costs, instructions []byte
	err := row.Scan(&b.ID, &b.Code, &b.Name, &b.Description, &b.ProductID, &b.OutputQuantity,
		&components, &costs, &instructions, &b.TotalCost, &b.UnitCost, &b.IsDefault,
		&b.Enabled, &b.Removed, &b.CreatedBy, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return BillOfMaterial{}, err
	}
	if err := json.Unmarshal(components, &b.Components); err != nil {
		return BillOfMaterial{}, fmt.Errorf("decode components: %w", err)
	}
	if err := json.Unmarshal(costs, &b.AdditionalCosts); err != nil {
		return BillOfMaterial{}, fmt.Errorf("decode additional costs: %w", err)
	}
	if err := json.Unmarshal(instructions, &b.Instructions); err != nil {
		return BillOfMaterial{}, fmt.Errorf("decode instructions: %w", err)
	}
	return b, nil
}

func encodeLines(b BillOfMaterial) (components, costs, instructions []byte, err error) {
	if b.Components == nil {
		b.Components = []Component{}
	}
	if b.AdditionalCosts == nil {
		b.AdditionalCosts = []AdditionalCost{}
	}
	if b.Instructions == nil {
		b.Instructions = []Instruction{}
	}
	if components, err = json.Marshal(b.Components); err != nil {
		return nil, nil, nil, err
	}
	if costs, err = json.Marshal(b.AdditionalCosts); err != nil {
		return nil, nil, nil, err
	}
	if instructions, err = json.Marshal(b.Instructions); err != nil {
		return nil, nil, nil, err
	}
	return components, costs, instructions, nil
}

func (r *txRepository) CodeExists(ctx context.Context, code string, excludeID int64) (bool, error) {
	var exists bool
	err := r.tx.QueryRow(ctx, `SELECT EXISTS (
SELECT 1 FROM boms WHERE LOWER(code)=LOWER($1) AND removed=FALSE AND id <> $2)`, code, excludeID).Scan(&exists)
	return exists, err
}

func (r *txRepository) GetProduct(ctx context.Context, id int64) (ProductRef, error) {
	var p ProductRef
	err := r.tx.QueryRow(ctx, `SELECT id, name, type, cost_price FROM products
WHERE id=$1 AND removed=FALSE`, id).Scan(&p.ID, &p.Name, &p.Type, &p.CostPrice)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProductRef{}, shared.ErrNotFound
		}
		return ProductRef{}, err
	}
	return p, nil
}

func (r *txRepository) ComponentPrices(ctx context.Context, ids []int64) (map[int64]ComponentPrice, error) {
	prices := map[int64]ComponentPrice{}
	if len(ids) == 0 {
		return prices, nil
	}
	rows, err := r.tx.Query(ctx, `SELECT id, name, cost_price FROM products
WHERE id = ANY($1) AND removed=FALSE`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var price ComponentPrice
		if err := rows.Scan(&id, &price.Name, &price.UnitCost); err != nil {
			return nil, err
		}
		prices[id] = price
	}
	return prices, rows.Err()
}

func (r *txRepository) Insert(ctx context.Context, b BillOfMaterial) (BillOfMaterial, error) {
	components, costs, instructions, err := encodeLines(b)
	if err != nil {
		return BillOfMaterial{}, err
	}
	row := r.tx.QueryRow(ctx, `INSERT INTO boms
(code, name, description, product_id, output_quantity, components, additional_costs,
 instructions, total_cost, unit_cost, is_default, enabled, removed, created_by, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,FALSE,$13,NOW(),NOW())
RETURNING `+bomColumns,
		b.Code, b.Name, b.Description, b.ProductID, b.OutputQuantity, components, costs,
		instructions, b.TotalCost, b.UnitCost, b.IsDefault, b.Enabled, b.CreatedBy)
	return scanBOM(row)
}

func (r *txRepository) Update(ctx context.Context, b BillOfMaterial) (BillOfMaterial, error) {
	components, costs, instructions, err := encodeLines(b)
	if err != nil {
		return BillOfMaterial{}, err
	}
	row := r.tx.QueryRow(ctx, `UPDATE boms SET
code=$2, name=$3, description=$4, product_id=$5, output_quantity=$6, components=$7,
additional_costs=$8, instructions=$9, total_cost=$10, unit_cost=$11, is_default=$12,
enabled=$13, updated_at=NOW()
WHERE id=$1 AND removed=FALSE
RETURNING `+bomColumns,
		b.ID, b.Code, b.Name, b.Description, b.ProductID, b.OutputQuantity, components, costs,
		instructions, b.TotalCost, b.UnitCost, b.IsDefault, b.Enabled)
	updated, err := scanBOM(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return BillOfMaterial{}, shared.ErrNotFound
		}
		return BillOfMaterial{}, err
	}
	return updated, nil
}

func (r *txRepository) Get(ctx context.Context, id int64) (BillOfMaterial, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+bomColumns+` FROM boms WHERE id=$1 AND removed=FALSE`, id)
	b, err := scanBOM(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return BillOfMaterial{}, shared.ErrNotFound
		}
		return BillOfMaterial{}, err
	}
	return b, nil
}

func (r *txRepository) DemoteDefaults(ctx context.Context, productID, exceptID int64) error {
	_, err := r.tx.Exec(ctx, `UPDATE boms SET is_default=FALSE, updated_at=NOW()
WHERE product_id=$1 AND id <> $2 AND is_default AND removed=FALSE`, productID, exceptID)
	return err
}

func (r *txRepository) UpdateProductCost(ctx context.Context, productID int64, cost float64) error {
	_, err := r.tx.Exec(ctx, `UPDATE products SET cost_price=$2, updated_at=NOW()
WHERE id=$1 AND removed=FALSE`, productID, cost)
	return err
}

func (r *Repository) Get(ctx context.Context, id int64) (BillOfMaterial, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+bomColumns+` FROM boms WHERE id=$1 AND removed=FALSE`, id)
	b, err := scanBOM(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return BillOfMaterial{}, shared.ErrNotFound
		}
		return BillOfMaterial{}, err
	}
	return b, nil
}

// GetDefaultForProduct returns the default BOM of a product, or the most
// recent enabled one when none is marked default.
func (r *Repository) GetDefaultForProduct(ctx context.Context, productID int64) (BillOfMaterial, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+bomColumns+` FROM boms
WHERE product_id=$1 AND removed=FALSE AND enabled=TRUE
ORDER BY is_default DESC, updated_at DESC LIMIT 1`, productID)
	b, err := scanBOM(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return BillOfMaterial{}, shared.ErrNotFound
		}
		return BillOfMaterial{}, err
	}
	return b, nil
}

func (r *Repository) List(ctx context.Context, filter ListFilter) ([]BillOfMaterial, int, error) {
	where := []string{"removed=FALSE"}
	args := []any{}
	idx := 1
	if filter.Query != "" {
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR code ILIKE $%d)", idx, idx))
		args = append(args, "%"+filter.Query+"%")
		idx++
	}
	if filter.ProductID != 0 {
		where = append(where, fmt.Sprintf("product_id=$%d", idx))
		args = append(args, filter.ProductID)
		idx++
	}
	if filter.Enabled != nil {
		where = append(where, fmt.Sprintf("enabled=$%d", idx))
		args = append(args, *filter.Enabled)
		idx++
	}
	whereClause := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM boms WHERE `+whereClause, args...).Scan(&total); err != nil {
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
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT %s FROM boms WHERE %s
ORDER BY updated_at DESC LIMIT $%d OFFSET $%d`, bomColumns, whereClause, idx, idx+1), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := []BillOfMaterial{}
	for rows.Next() {
		b, err := scanBOM(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *Repository) SoftDelete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE boms SET removed=TRUE, enabled=FALSE, is_default=FALSE,
updated_at=NOW() WHERE id=$1 AND removed=FALSE`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
