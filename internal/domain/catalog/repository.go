package catalog

import (
	"context"
	"time"

	"stockkeeper/internal/domain/product"
	"stockkeeper/internal/domain/sale"
	"stockkeeper/internal/domain/stock"
)

// Repository - серверный каталог. Каждая мутация товара увеличивает version
// и обновляет updated_at.
type Repository interface {
	// ListSince - товары, измененные строго после since; нулевой since - все.
	ListSince(ctx context.Context, since time.Time) ([]product.Product, error)
	Get(ctx context.Context, id int64) (product.Product, error)
	Create(ctx context.Context, p product.Product, at time.Time) (product.Product, error)
	// UpdatePrices выставляет version = max(текущая, baseVersion) + 1.
	UpdatePrices(ctx context.Context, id, baseVersion int64, prices product.Prices, at time.Time) (product.Product, error)
	Delete(ctx context.Context, id int64, at time.Time) (product.Product, error)
	// AddStock идемпотентен по request_id: повтор возвращает duplicate=true без изменений.
	AddStock(ctx context.Context, req stock.AddRequest, at time.Time) (p product.Product, duplicate bool, err error)
	// CreateSale идемпотентен по transaction_id. Остатки не уходят ниже нуля.
	CreateSale(ctx context.Context, req sale.PushRequest, at time.Time) (id int64, touched []product.Product, duplicate bool, err error)
}

// Publisher рассылает снимки остатков подключенным клиентам.
type Publisher interface {
	Publish(ev product.StockEvent)
}
