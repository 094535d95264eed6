package sale

import (
	"context"

	"stockkeeper/internal/domain/batch"
	"stockkeeper/internal/domain/queue"
)

// Tx - операции, выполняемые внутри одной транзакции хранилища.
type Tx interface {
	queue.Store
	InsertSale(ctx context.Context, s *Sale) error
	InsertItem(ctx context.Context, it *Item) error
	AvailableBatches(ctx context.Context, productID int64) ([]batch.Batch, error)
	UpdateBatch(ctx context.Context, b batch.Batch) error
	// DecrementStock уменьшает остаток товара (не ниже 0); ErrUnknownProduct для неизвестного товара.
	DecrementStock(ctx context.Context, productID int64, qty int) error
	// SaleSynced - признак отправки продажи; ErrNotFound, если продажи нет.
	SaleSynced(ctx context.Context, saleID int64) (bool, error)
	// DropQueued удаляет pending и failed элементы сущности.
	// queue.ErrInFlight или queue.ErrDelivered, если элемент уже отправляется или принят.
	DropQueued(ctx context.Context, entityType queue.EntityType, entityID string) (int64, error)
	DeleteItems(ctx context.Context, saleID int64) (int64, error)
	DeleteSale(ctx context.Context, saleID int64) error
}

type Repository interface {
	// WithinTx выполняет fn в транзакции: ошибка fn откатывает все изменения.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
	Get(ctx context.Context, id int64) (*Sale, error)
	List(ctx context.Context, filter ListFilter) ([]Sale, error)
	MarkSynced(ctx context.Context, id int64) error
	MarkSyncFailed(ctx context.Context, id int64, msg string) error
}
