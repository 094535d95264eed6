package sqlite

import (
	"context"
	"database/sql"

	"stockkeeper/internal/domain/apperr"
	"stockkeeper/internal/domain/sale"
)

type SaleRepository struct {
	s *Storage
}

func NewSaleRepository(s *Storage) *SaleRepository {
	return &SaleRepository{s: s}
}

func (r *SaleRepository) WithinTx(ctx context.Context, fn func(tx sale.Tx) error) error {
	return r.s.withTx(ctx, func(tx *sql.Tx) error {
		return fn(&txRepo{tx: tx})
	})
}

const saleColumns = `id, transaction_id, customer_ref, total, discount_total, is_synced, sync_error, created_at`

func scanSale(row scanner) (*sale.Sale, error) {
	var (
		s       sale.Sale
		synced  int
		syncErr sql.NullString
		created string
	)
	if err := row.Scan(&s.ID, &s.TransactionID, &s.CustomerRef, &s.Total, &s.DiscountTotal,
		&synced, &syncErr, &created); err != nil {
		return nil, err
	}

	s.IsSynced = synced == 1
	if syncErr.Valid {
		s.SyncError = &syncErr.String
	}
	var err error
	if s.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SaleRepository) Get(ctx context.Context, id int64) (*sale.Sale, error) {
	row := r.s.db.QueryRowContext(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = ?`, id)
	s, err := scanSale(row)
	if isNoRows(err) {
		return nil, sale.ErrNotFound
	}
	if err != nil {
		return nil, apperr.Storage("get sale", err)
	}

	items, err := r.items(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Items = items
	return s, nil
}

func (r *SaleRepository) items(ctx context.Context, saleID int64) ([]sale.Item, error) {
	rows, err := r.s.db.QueryContext(ctx, `
		SELECT si.id, si.sale_id, si.product_id, si.batch_id, COALESCE(b.batch_number, ''),
		       si.qty, si.unit_price, si.discount_price
		FROM sale_items si
		LEFT JOIN batches b ON b.id = si.batch_id
		WHERE si.sale_id = ?
		ORDER BY si.id`, saleID)
	if err != nil {
		return nil, apperr.Storage("list sale items", err)
	}
	defer rows.Close()

	var out []sale.Item
	for rows.Next() {
		var (
			it      sale.Item
			batchID sql.NullInt64
		)
		if err := rows.Scan(&it.ID, &it.SaleID, &it.ProductID, &batchID, &it.BatchNumber,
			&it.Qty, &it.UnitPrice, &it.DiscountPrice); err != nil {
			return nil, apperr.Storage("scan sale item", err)
		}
		if batchID.Valid {
			id := batchID.Int64
			it.BatchID = &id
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("list sale items", err)
	}
	return out, nil
}

func (r *SaleRepository) List(ctx context.Context, filter sale.ListFilter) ([]sale.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales`
	var args []any
	if filter.UnsyncedOnly {
		query += ` WHERE is_synced = 0`
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Storage("list sales", err)
	}
	defer rows.Close()

	var out []sale.Sale
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, apperr.Storage("scan sale", err)
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("list sales", err)
	}
	return out, nil
}

func (r *SaleRepository) MarkSynced(ctx context.Context, id int64) error {
	return r.setSync(ctx, "mark sale synced", id, true, nil)
}

func (r *SaleRepository) MarkSyncFailed(ctx context.Context, id int64, msg string) error {
	return r.setSync(ctx, "mark sale sync failed", id, false, &msg)
}

func (r *SaleRepository) setSync(ctx context.Context, op string, id int64, synced bool, msg *string) error {
	res, err := r.s.db.ExecContext(ctx,
		`UPDATE sales SET is_synced = ?, sync_error = ? WHERE id = ?`,
		boolInt(synced), msg, id)
	if err != nil {
		return apperr.Storage(op, err)
	}

	n, err := rowsAffected(res, op)
	if err != nil {
		return err
	}
	if n == 0 {
		return sale.ErrNotFound
	}
	return nil
}
