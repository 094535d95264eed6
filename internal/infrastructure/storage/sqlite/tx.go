package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"stockkeeper/internal/domain/apperr"
	"stockkeeper/internal/domain/batch"
	"stockkeeper/internal/domain/queue"
	"stockkeeper/internal/domain/sale"
	"stockkeeper/internal/domain/stock"
)

// txRepo - операции продаж и поступлений внутри одной транзакции.
type txRepo struct {
	tx *sql.Tx
}

var (
	_ sale.Tx  = (*txRepo)(nil)
	_ stock.Tx = (*txRepo)(nil)
)

func (t *txRepo) Insert(ctx context.Context, item *queue.Item) error {
	return insertQueueItem(ctx, t.tx, item)
}

func (t *txRepo) InsertSale(ctx context.Context, s *sale.Sale) error {
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO sales (transaction_id, customer_ref, total, discount_total, is_synced, created_at)
		VALUES (?, ?, ?, ?, 0, ?)`,
		s.TransactionID, s.CustomerRef, s.Total, s.DiscountTotal, formatTime(s.CreatedAt))
	if err != nil {
		return apperr.Storage("insert sale", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return apperr.Storage("insert sale", err)
	}
	s.ID = id
	return nil
}

func (t *txRepo) InsertItem(ctx context.Context, it *sale.Item) error {
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO sale_items (sale_id, product_id, batch_id, qty, unit_price, discount_price)
		VALUES (?, ?, ?, ?, ?, ?)`,
		it.SaleID, it.ProductID, it.BatchID, it.Qty, it.UnitPrice, it.DiscountPrice)
	if err != nil {
		return apperr.Storage("insert sale item", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return apperr.Storage("insert sale item", err)
	}
	it.ID = id
	return nil
}

const batchColumns = `id, product_id, batch_number, expiry_date, qty_stock, available, status, created_at`

func scanBatch(row scanner) (*batch.Batch, error) {
	var (
		b               batch.Batch
		expiry, created string
		status          string
	)
	if err := row.Scan(&b.ID, &b.ProductID, &b.BatchNumber, &expiry, &b.QtyStock, &b.Available, &status, &created); err != nil {
		return nil, err
	}

	var err error
	if b.ExpiryDate, err = time.Parse(batch.DateLayout, expiry); err != nil {
		return nil, err
	}
	if b.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	b.Status = batch.Status(status)
	return &b, nil
}

func (t *txRepo) AvailableBatches(ctx context.Context, productID int64) ([]batch.Batch, error) {
	return listBatches(ctx, t.tx, `
		SELECT `+batchColumns+` FROM batches
		WHERE product_id = ? AND available > 0
		ORDER BY expiry_date, id`, productID)
}

func listBatches(ctx context.Context, ex executor, query string, args ...any) ([]batch.Batch, error) {
	rows, err := ex.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Storage("list batches", err)
	}
	defer rows.Close()

	var out []batch.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, apperr.Storage("scan batch", err)
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("list batches", err)
	}
	return out, nil
}

func (t *txRepo) UpdateBatch(ctx context.Context, b batch.Batch) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE batches SET available = ?, status = ? WHERE id = ?`,
		b.Available, string(b.Status), b.ID)
	if err != nil {
		return apperr.Storage("update batch", err)
	}

	n, err := rowsAffected(res, "update batch")
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.Storage("update batch", sql.ErrNoRows)
	}
	return nil
}

func (t *txRepo) DecrementStock(ctx context.Context, productID int64, qty int) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE products SET stock = MAX(stock - ?, 0) WHERE id = ? AND status = 'active'`,
		qty, productID)
	if err != nil {
		return apperr.Storage("decrement stock", err)
	}

	n, err := rowsAffected(res, "decrement stock")
	if err != nil {
		return err
	}
	if n == 0 {
		return sale.ErrUnknownProduct
	}
	return nil
}

func (t *txRepo) SaleSynced(ctx context.Context, saleID int64) (bool, error) {
	var synced bool
	err := t.tx.QueryRowContext(ctx, `SELECT is_synced FROM sales WHERE id = ?`, saleID).Scan(&synced)
	if isNoRows(err) {
		return false, sale.ErrNotFound
	}
	if err != nil {
		return false, apperr.Storage("sale synced", err)
	}
	return synced, nil
}

func (t *txRepo) DropQueued(ctx context.Context, entityType queue.EntityType, entityID string) (int64, error) {
	var status string
	err := t.tx.QueryRowContext(ctx, `
		SELECT status FROM sync_queue
		WHERE entity_type = ? AND entity_id = ? AND status IN (?, ?)
		ORDER BY status = ? DESC
		LIMIT 1`,
		string(entityType), entityID,
		string(queue.StatusProcessing), string(queue.StatusCompleted), string(queue.StatusProcessing)).Scan(&status)
	switch {
	case err == nil && queue.Status(status) == queue.StatusProcessing:
		return 0, queue.ErrInFlight
	case err == nil:
		return 0, queue.ErrDelivered
	case !isNoRows(err):
		return 0, apperr.Storage("drop queued", err)
	}

	res, err := t.tx.ExecContext(ctx, `
		DELETE FROM sync_queue
		WHERE entity_type = ? AND entity_id = ? AND status IN (?, ?)`,
		string(entityType), entityID, string(queue.StatusPending), string(queue.StatusFailed))
	if err != nil {
		return 0, apperr.Storage("drop queued", err)
	}
	return rowsAffected(res, "drop queued")
}

func (t *txRepo) DeleteItems(ctx context.Context, saleID int64) (int64, error) {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM sale_items WHERE sale_id = ?`, saleID)
	if err != nil {
		return 0, apperr.Storage("delete sale items", err)
	}
	return rowsAffected(res, "delete sale items")
}

func (t *txRepo) DeleteSale(ctx context.Context, saleID int64) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM sales WHERE id = ?`, saleID)
	if err != nil {
		return apperr.Storage("delete sale", err)
	}

	n, err := rowsAffected(res, "delete sale")
	if err != nil {
		return err
	}
	if n == 0 {
		return sale.ErrNotFound
	}
	return nil
}

func (t *txRepo) AddToBatch(ctx context.Context, productID int64, batchNumber string, expiry time.Time, qty int, at time.Time) (batch.Batch, error) {
	date := expiry.Format(batch.DateLayout)

	var current string
	err := t.tx.QueryRowContext(ctx,
		`SELECT expiry_date FROM batches WHERE product_id = ? AND batch_number = ?`,
		productID, batchNumber).Scan(&current)
	switch {
	case err == nil && current != date:
		return batch.Batch{}, apperr.Validation("expiry_date",
			"batch %s already expires %s, got %s", batchNumber, current, date)
	case err != nil && !isNoRows(err):
		return batch.Batch{}, apperr.Storage("add to batch", err)
	}

	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO batches (product_id, batch_number, expiry_date, qty_stock, available, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(product_id, batch_number) DO UPDATE SET
			qty_stock = batches.qty_stock + excluded.qty_stock,
			available = batches.available + excluded.available,
			status = CASE WHEN batches.status = 'used' THEN 'open' ELSE batches.status END`,
		productID, batchNumber, date, qty, qty, string(batch.StatusBoxed), formatTime(at))
	if err != nil {
		return batch.Batch{}, apperr.Storage("add to batch", err)
	}

	row := t.tx.QueryRowContext(ctx,
		`SELECT `+batchColumns+` FROM batches WHERE product_id = ? AND batch_number = ?`,
		productID, batchNumber)
	b, err := scanBatch(row)
	if err != nil {
		return batch.Batch{}, apperr.Storage("load batch", err)
	}
	return *b, nil
}

func (t *txRepo) IncrementStock(ctx context.Context, productID int64, qty int) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE products SET stock = stock + ? WHERE id = ? AND status = 'active'`,
		qty, productID)
	if err != nil {
		return apperr.Storage("increment stock", err)
	}

	n, err := rowsAffected(res, "increment stock")
	if err != nil {
		return err
	}
	if n == 0 {
		return stock.ErrUnknownProduct
	}
	return nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
