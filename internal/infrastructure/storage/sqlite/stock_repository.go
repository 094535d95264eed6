package sqlite

import (
	"context"
	"database/sql"

	"stockkeeper/internal/domain/batch"
	"stockkeeper/internal/domain/stock"
)

type StockRepository struct {
	s *Storage
}

func NewStockRepository(s *Storage) *StockRepository {
	return &StockRepository{s: s}
}

func (r *StockRepository) WithinTx(ctx context.Context, fn func(tx stock.Tx) error) error {
	return r.s.withTx(ctx, func(tx *sql.Tx) error {
		return fn(&txRepo{tx: tx})
	})
}

// Batches - все партии товара в порядке FEFO, включая исчерпанные.
func (r *StockRepository) Batches(ctx context.Context, productID int64) ([]batch.Batch, error) {
	return listBatches(ctx, r.s.db, `
		SELECT `+batchColumns+` FROM batches
		WHERE product_id = ?
		ORDER BY expiry_date, id`, productID)
}
