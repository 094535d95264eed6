package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"stockkeeper/internal/domain/apperr"
	"stockkeeper/internal/domain/product"
)

const productColumns = `id, name, generic_name, company_id, category_id,
	reference_price, discount_price, peak_hour_price, offer_price,
	stock, stock_alert, status, version, is_dirty, last_modified_at, last_synced_at, raw_payload`

type ProductRepository struct {
	s *Storage
}

func NewProductRepository(s *Storage) *ProductRepository {
	return &ProductRepository{s: s}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(row scanner) (*product.Product, error) {
	var (
		p        product.Product
		status   string
		dirty    int
		modified string
		synced   sql.NullString
		raw      []byte
	)
	err := row.Scan(&p.ID, &p.Name, &p.GenericName, &p.CompanyID, &p.CategoryID,
		&p.Prices.Reference, &p.Prices.Discount, &p.Prices.PeakHour, &p.Prices.Offer,
		&p.Stock, &p.StockAlert, &status, &p.Version, &dirty, &modified, &synced, &raw)
	if err != nil {
		return nil, err
	}

	p.Status = product.Status(status)
	p.IsDirty = dirty == 1
	if p.LastModifiedAt, err = parseTime(modified); err != nil {
		return nil, err
	}
	if p.LastSyncedAt, err = parseNullTime(synced); err != nil {
		return nil, err
	}
	if len(raw) > 0 {
		p.RawPayload = raw
	}

	return &p, nil
}

func getProduct(ctx context.Context, ex executor, id int64) (*product.Product, error) {
	row := ex.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, product.ErrNotFound
	}
	if err != nil {
		return nil, apperr.Storage("get product", err)
	}
	return p, nil
}

func (r *ProductRepository) Get(ctx context.Context, id int64) (*product.Product, error) {
	return getProduct(ctx, r.s.db, id)
}

func (r *ProductRepository) List(ctx context.Context, filter product.ListFilter) ([]product.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE 1=1`
	var args []any

	if !filter.IncludeDeleted {
		query += " AND status = ?"
		args = append(args, string(product.StatusActive))
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		query += " AND (name LIKE ? OR generic_name LIKE ?)"
		like := "%" + s + "%"
		args = append(args, like, like)
	}
	if filter.LowStockOnly {
		query += " AND stock_alert > 0 AND stock <= stock_alert"
	}
	query += " ORDER BY name, id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	return r.query(ctx, "list products", query, args...)
}

func (r *ProductRepository) ListDirty(ctx context.Context) ([]product.Product, error) {
	return r.query(ctx, "list dirty products",
		`SELECT `+productColumns+` FROM products WHERE is_dirty = 1 ORDER BY last_modified_at, id`)
}

func (r *ProductRepository) query(ctx context.Context, op, query string, args ...any) ([]product.Product, error) {
	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Storage(op, err)
	}
	defer rows.Close()

	var out []product.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, apperr.Storage(op, err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage(op, err)
	}
	return out, nil
}

func (r *ProductRepository) SaveLocalEdit(ctx context.Context, id, expectedVersion int64, prices product.Prices, at time.Time) (int64, error) {
	res, err := r.s.db.ExecContext(ctx, `
		UPDATE products
		SET reference_price = ?, discount_price = ?, peak_hour_price = ?, offer_price = ?,
		    version = version + 1, is_dirty = 1, last_modified_at = ?
		WHERE id = ? AND version = ? AND status = ?`,
		prices.Reference, prices.Discount, prices.PeakHour, prices.Offer,
		formatTime(at), id, expectedVersion, string(product.StatusActive))
	if err != nil {
		return 0, apperr.Storage("save local edit", err)
	}

	n, err := rowsAffected(res, "save local edit")
	if err != nil {
		return 0, err
	}
	if n == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return 0, err
		}
		return 0, product.ErrVersionConflict
	}

	return expectedVersion + 1, nil
}

// UpsertIfNewer: одна транзакция на весь пакет. Строка обновляется только
// при строго большей входящей версии.
func (r *ProductRepository) UpsertIfNewer(ctx context.Context, products []product.Product, arbiter product.Arbiter) (product.UpsertResult, error) {
	var result product.UpsertResult

	err := r.s.withTx(ctx, func(tx *sql.Tx) error {
		for i := range products {
			incoming := &products[i]

			local, err := getProduct(ctx, tx, incoming.ID)
			exists := err == nil
			if err != nil && !errors.Is(err, product.ErrNotFound) {
				return err
			}

			if exists && local.IsDirty && arbiter != nil && arbiter(local, incoming) {
				result.KeptLocal++
				continue
			}

			n, err := upsertProduct(ctx, tx, incoming)
			if err != nil {
				return err
			}

			switch {
			case !exists:
				result.Inserted++
			case n > 0:
				result.Updated++
			default:
				result.Stale++
			}
		}
		return nil
	})
	if err != nil {
		return product.UpsertResult{}, err
	}

	return result, nil
}

func upsertProduct(ctx context.Context, tx *sql.Tx, p *product.Product) (int64, error) {
	var raw any
	if len(p.RawPayload) > 0 {
		raw = []byte(p.RawPayload)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO products (id, name, generic_name, company_id, category_id,
			reference_price, discount_price, peak_hour_price, offer_price,
			stock, stock_alert, status, version, is_dirty, last_modified_at, last_synced_at, raw_payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			generic_name = excluded.generic_name,
			company_id = excluded.company_id,
			category_id = excluded.category_id,
			reference_price = excluded.reference_price,
			discount_price = excluded.discount_price,
			peak_hour_price = excluded.peak_hour_price,
			offer_price = excluded.offer_price,
			stock = excluded.stock,
			stock_alert = excluded.stock_alert,
			status = excluded.status,
			version = excluded.version,
			is_dirty = 0,
			last_modified_at = excluded.last_modified_at,
			last_synced_at = excluded.last_synced_at,
			raw_payload = excluded.raw_payload
		WHERE excluded.version > products.version`,
		p.ID, p.Name, p.GenericName, p.CompanyID, p.CategoryID,
		p.Prices.Reference, p.Prices.Discount, p.Prices.PeakHour, p.Prices.Offer,
		p.Stock, p.StockAlert, string(p.Status), p.Version,
		formatTime(p.LastModifiedAt), nullableTime(p.LastSyncedAt), raw)
	if err != nil {
		return 0, apperr.Storage("upsert product", err)
	}

	return rowsAffected(res, "upsert product")
}

func (r *ProductRepository) MarkSynced(ctx context.Context, id, version int64, at time.Time) (bool, error) {
	res, err := r.s.db.ExecContext(ctx, `
		UPDATE products SET is_dirty = 0, last_synced_at = ?
		WHERE id = ? AND version = ? AND is_dirty = 1`,
		formatTime(at), id, version)
	if err != nil {
		return false, apperr.Storage("mark product synced", err)
	}

	n, err := rowsAffected(res, "mark product synced")
	return n > 0, err
}

func (r *ProductRepository) ApplyStockSnapshot(ctx context.Context, id int64, stock int, prices *product.Prices, serverTime time.Time) (bool, error) {
	ts := formatTime(serverTime)

	var (
		res sql.Result
		err error
	)
	if prices == nil {
		res, err = r.s.db.ExecContext(ctx, `
			UPDATE products SET stock = ?, last_synced_at = ?
			WHERE id = ? AND (last_synced_at IS NULL OR last_synced_at < ?)`,
			stock, ts, id, ts)
	} else {
		res, err = r.s.db.ExecContext(ctx, `
			UPDATE products
			SET stock = ?, reference_price = ?, discount_price = ?, peak_hour_price = ?, offer_price = ?,
			    last_modified_at = ?, last_synced_at = ?
			WHERE id = ? AND (last_synced_at IS NULL OR last_synced_at < ?)`,
			stock, prices.Reference, prices.Discount, prices.PeakHour, prices.Offer,
			ts, ts, id, ts)
	}
	if err != nil {
		return false, apperr.Storage("apply stock snapshot", err)
	}

	n, err := rowsAffected(res, "apply stock snapshot")
	return n > 0, err
}

func (r *ProductRepository) Tombstone(ctx context.Context, id int64, at time.Time) error {
	res, err := r.s.db.ExecContext(ctx, `
		UPDATE products SET status = ?, is_dirty = 0, last_synced_at = ?
		WHERE id = ?`,
		string(product.StatusDeleted), formatTime(at), id)
	if err != nil {
		return apperr.Storage("tombstone product", err)
	}

	n, err := rowsAffected(res, "tombstone product")
	if err != nil {
		return err
	}
	if n == 0 {
		return product.ErrNotFound
	}
	return nil
}
