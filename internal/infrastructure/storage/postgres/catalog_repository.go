package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"golang.org/x/exp/slog"

	"stockkeeper/internal/domain/apperr"
	"stockkeeper/internal/domain/product"
	"stockkeeper/internal/domain/sale"
	"stockkeeper/internal/domain/stock"
)

const productColumns = `id, name, generic_name, company_id, category_id,
	reference_price, discount_price, peak_hour_price, offer_price,
	stock, stock_alert, status, version, updated_at`

type CatalogRepository struct {
	db  *Storage
	log *slog.Logger
}

func NewCatalogRepository(db *Storage, log *slog.Logger) *CatalogRepository {
	return &CatalogRepository{
		db:  db,
		log: log,
	}
}

func scanProduct(row pgx.Row) (product.Product, error) {
	var (
		p      product.Product
		status string
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.GenericName, &p.CompanyID, &p.CategoryID,
		&p.Prices.Reference, &p.Prices.Discount, &p.Prices.PeakHour, &p.Prices.Offer,
		&p.Stock, &p.StockAlert, &status, &p.Version, &p.LastModifiedAt,
	)
	if err != nil {
		return product.Product{}, err
	}
	p.Status = product.Status(status)
	p.LastModifiedAt = p.LastModifiedAt.UTC()
	return p, nil
}

// productRow переводит ErrNoRows в notFound.
func productRow(row pgx.Row, op string, notFound error) (product.Product, error) {
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return product.Product{}, notFound
	}
	if err != nil {
		return product.Product{}, apperr.Storage(op, err)
	}
	return p, nil
}

func (r *CatalogRepository) ListSince(ctx context.Context, since time.Time) ([]product.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products`
	var args []any
	if !since.IsZero() {
		query += ` WHERE updated_at > $1`
		args = append(args, since)
	}
	query += ` ORDER BY updated_at, id`

	rows, err := r.db.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Storage("list products", err)
	}
	defer rows.Close()

	var out []product.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, apperr.Storage("scan product", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("list products", err)
	}
	return out, nil
}

func (r *CatalogRepository) Get(ctx context.Context, id int64) (product.Product, error) {
	return productRow(r.db.Pool().QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id),
		"get product", product.ErrNotFound)
}

func (r *CatalogRepository) Create(ctx context.Context, p product.Product, at time.Time) (product.Product, error) {
	return productRow(r.db.Pool().QueryRow(ctx,
		`INSERT INTO products (name, generic_name, company_id, category_id,
			reference_price, discount_price, peak_hour_price, offer_price,
			stock, stock_alert, status, version, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 1, $12)
		 RETURNING `+productColumns,
		p.Name, p.GenericName, p.CompanyID, p.CategoryID,
		p.Prices.Reference, p.Prices.Discount, p.Prices.PeakHour, p.Prices.Offer,
		p.Stock, p.StockAlert, string(p.Status), at),
		"create product", product.ErrNotFound)
}

func (r *CatalogRepository) UpdatePrices(ctx context.Context, id, baseVersion int64, prices product.Prices, at time.Time) (product.Product, error) {
	return productRow(r.db.Pool().QueryRow(ctx,
		`UPDATE products SET
			reference_price = $2, discount_price = $3, peak_hour_price = $4, offer_price = $5,
			version = GREATEST(version, $6) + 1, updated_at = $7
		 WHERE id = $1 AND status <> 'deleted'
		 RETURNING `+productColumns,
		id, prices.Reference, prices.Discount, prices.PeakHour, prices.Offer, baseVersion, at),
		"update prices", product.ErrNotFound)
}

func (r *CatalogRepository) Delete(ctx context.Context, id int64, at time.Time) (product.Product, error) {
	return productRow(r.db.Pool().QueryRow(ctx,
		`UPDATE products SET status = 'deleted', version = version + 1, updated_at = $2
		 WHERE id = $1 AND status <> 'deleted'
		 RETURNING `+productColumns,
		id, at),
		"delete product", product.ErrNotFound)
}

func (r *CatalogRepository) AddStock(ctx context.Context, req stock.AddRequest, at time.Time) (product.Product, bool, error) {
	expiry, err := req.Expiry()
	if err != nil {
		return product.Product{}, false, apperr.Validation("expiry_date", "expected YYYY-MM-DD, got %q", req.ExpiryDate)
	}

	var (
		p         product.Product
		duplicate bool
	)
	err = r.db.withTx(ctx, func(tx pgx.Tx) error {
		var entryID int64
		err := tx.QueryRow(ctx,
			`INSERT INTO stock_entries (request_id, product_id, batch_number, expiry_date, qty, created_at)
			 SELECT $1::text, id, $3::text, $4::date, $5::integer, $6::timestamptz FROM products WHERE id = $2
			 ON CONFLICT (request_id) DO NOTHING
			 RETURNING id`,
			req.RequestID, req.ProductID, req.BatchNumber, expiry, req.Qty, at).Scan(&entryID)

		switch {
		case errors.Is(err, pgx.ErrNoRows):
			// повтор запроса или неизвестный товар
			p, err = productRow(tx.QueryRow(ctx,
				`SELECT `+productColumns+` FROM products WHERE id = $1`, req.ProductID),
				"get product", stock.ErrUnknownProduct)
			if err != nil {
				return err
			}
			var seen bool
			if err := tx.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM stock_entries WHERE request_id = $1)`,
				req.RequestID).Scan(&seen); err != nil {
				return apperr.Storage("check stock request", err)
			}
			if !seen {
				return fmt.Errorf("stock request %s: %w", req.RequestID, stock.ErrUnknownProduct)
			}
			duplicate = true
			return nil
		case err != nil:
			return apperr.Storage("insert stock entry", err)
		}

		p, err = productRow(tx.QueryRow(ctx,
			`UPDATE products SET stock = stock + $2, version = version + 1, updated_at = $3
			 WHERE id = $1
			 RETURNING `+productColumns,
			req.ProductID, req.Qty, at),
			"increment stock", stock.ErrUnknownProduct)
		return err
	})
	if err != nil {
		return product.Product{}, false, err
	}
	return p, duplicate, nil
}

func (r *CatalogRepository) CreateSale(ctx context.Context, req sale.PushRequest, at time.Time) (int64, []product.Product, bool, error) {
	var (
		saleID    int64
		touched   []product.Product
		duplicate bool
	)

	createdAt := req.CreatedAt
	if createdAt.IsZero() {
		createdAt = at
	}

	err := r.db.withTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO sales (transaction_id, customer_ref, total, discount_total, created_at)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (transaction_id) DO NOTHING
			 RETURNING id`,
			req.TransactionID, req.CustomerRef, req.Total, req.DiscountTotal, createdAt).Scan(&saleID)
		if errors.Is(err, pgx.ErrNoRows) {
			duplicate = true
			if err := tx.QueryRow(ctx,
				`SELECT id FROM sales WHERE transaction_id = $1`, req.TransactionID).Scan(&saleID); err != nil {
				return apperr.Storage("get sale", err)
			}
			return nil
		}
		if err != nil {
			return apperr.Storage("insert sale", err)
		}

		index := make(map[int64]int)
		for _, it := range req.Items {
			// остаток не уходит ниже нуля
			p, err := productRow(tx.QueryRow(ctx,
				`UPDATE products SET stock = GREATEST(stock - $2, 0), version = version + 1, updated_at = $3
				 WHERE id = $1
				 RETURNING `+productColumns,
				it.ProductID, it.Qty, at),
				"decrement stock", sale.ErrUnknownProduct)
			if err != nil {
				return fmt.Errorf("product %d: %w", it.ProductID, err)
			}

			var batchNumber any
			if it.BatchNumber != "" {
				batchNumber = it.BatchNumber
			}
			if _, err := tx.Exec(ctx,
				`INSERT INTO sale_items (sale_id, product_id, batch_number, qty, unit_price, discount_price)
				 VALUES ($1, $2, $3, $4, $5, $6)`,
				saleID, it.ProductID, batchNumber, it.Qty, it.UnitPrice, it.DiscountPrice); err != nil {
				return apperr.Storage("insert sale item", err)
			}

			if i, ok := index[p.ID]; ok {
				touched[i] = p
				continue
			}
			index[p.ID] = len(touched)
			touched = append(touched, p)
		}
		return nil
	})
	if err != nil {
		return 0, nil, false, err
	}
	return saleID, touched, duplicate, nil
}
