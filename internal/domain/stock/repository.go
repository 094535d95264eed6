package stock

import (
	"context"
	"time"

	"stockkeeper/internal/domain/batch"
	"stockkeeper/internal/domain/queue"
)

type Tx interface {
	queue.Store
	// AddToBatch создает партию или пополняет существующую с тем же номером
	// (qty_stock и available растут на qty). Срок годности существующей партии
	// не меняется: другой expiry - ошибка валидации.
	AddToBatch(ctx context.Context, productID int64, batchNumber string, expiry time.Time, qty int, at time.Time) (batch.Batch, error)
	// IncrementStock - ErrUnknownProduct, если товара нет локально.
	IncrementStock(ctx context.Context, productID int64, qty int) error
}

type Repository interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
	// Batches - партии товара в порядке FEFO, включая исчерпанные.
	Batches(ctx context.Context, productID int64) ([]batch.Batch, error)
}
