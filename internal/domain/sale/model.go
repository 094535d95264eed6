package sale

import "time"

type Sale struct {
	ID            int64
	TransactionID string
	CustomerRef   string
	Total         float64
	DiscountTotal float64
	IsSynced      bool
	SyncError     *string
	CreatedAt     time.Time
	Items         []Item
}

// Item - строка продажи. Количество и цены после сохранения не меняются.
type Item struct {
	ID            int64
	SaleID        int64
	ProductID     int64
	BatchID       *int64
	BatchNumber   string
	Qty           int
	UnitPrice     float64
	DiscountPrice float64
}

// LineItem - запрошенная позиция продажи до распределения по партиям.
type LineItem struct {
	ProductID     int64
	Qty           int
	UnitPrice     float64
	DiscountPrice float64
}

type Totals struct {
	Total         float64
	DiscountTotal float64
}

// QtyByProduct суммирует количество строк по товарам.
func (s *Sale) QtyByProduct() map[int64]int {
	out := make(map[int64]int)
	for _, it := range s.Items {
		out[it.ProductID] += it.Qty
	}
	return out
}

type ListFilter struct {
	UnsyncedOnly bool
	Limit        int
}
