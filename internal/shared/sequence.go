package shared

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Document types registered in the document_sequences table.
const (
	DocTypeStockMovement   = "SM"
	DocTypeProductionOrder = "PO"
)

// Querier is the subset of pgx.Tx needed to draw a sequence number.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NextSequence atomically draws the next number for (docType, year).
// The upsert serialises concurrent callers on the sequence row, so two
// transactions in the same year can never receive the same number.
func NextSequence(ctx context.Context, q Querier, docType string, year int) (int64, error) {
	var seq int64
	err := q.QueryRow(ctx, `
		INSERT INTO document_sequences (doc_type, year, seq)
		VALUES ($1, $2, 1)
		ON CONFLICT (doc_type, year)
		DO UPDATE SET seq = document_sequences.seq + 1
		RETURNING seq
	`, docType, year).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("shared: next sequence %s/%d: %w", docType, year, err)
	}
	return seq, nil
}
