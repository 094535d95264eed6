package product

import (
	"context"
	"time"
)

type ListFilter struct {
	Search         string
	IncludeDeleted bool
	LowStockOnly   bool
	Limit          int
}

type Repository interface {
	Get(ctx context.Context, id int64) (*Product, error)
	List(ctx context.Context, filter ListFilter) ([]Product, error)
	ListDirty(ctx context.Context) ([]Product, error)
	// SaveLocalEdit записывает цены, version+1 и is_dirty=1, если версия не изменилась.
	SaveLocalEdit(ctx context.Context, id, expectedVersion int64, prices Prices, at time.Time) (int64, error)
	// UpsertIfNewer применяет пакет в одной транзакции с проверкой версии.
	UpsertIfNewer(ctx context.Context, products []Product, arbiter Arbiter) (UpsertResult, error)
	// MarkSynced снимает is_dirty, только если версия все еще равна version.
	MarkSynced(ctx context.Context, id, version int64, at time.Time) (bool, error)
	// ApplyStockSnapshot обновляет остаток (и цены, если prices != nil), если serverTime новее last_synced_at.
	ApplyStockSnapshot(ctx context.Context, id int64, stock int, prices *Prices, serverTime time.Time) (bool, error)
	Tombstone(ctx context.Context, id int64, at time.Time) error
}
