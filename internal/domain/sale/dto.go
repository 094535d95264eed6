package sale

import "time"

// PushRequest - тело POST /sales.
type PushRequest struct {
	SaleID        int64      `json:"-"`
	TransactionID string     `json:"transaction_id"`
	CustomerRef   string     `json:"customer_ref"`
	Total         float64    `json:"total"`
	DiscountTotal float64    `json:"discount_total"`
	CreatedAt     time.Time  `json:"created_at"`
	Items         []PushItem `json:"items"`
}

type PushItem struct {
	ProductID     int64   `json:"product_id"`
	BatchNumber   string  `json:"batch_number,omitempty"`
	Qty           int     `json:"qty"`
	UnitPrice     float64 `json:"unit_price"`
	DiscountPrice float64 `json:"discount_price"`
}

// QueuePayload - полезная нагрузка элемента очереди sale/create.
type QueuePayload struct {
	SaleID  int64       `json:"sale_id"`
	Request PushRequest `json:"request"`
}

func NewPushRequest(s *Sale) PushRequest {
	items := make([]PushItem, 0, len(s.Items))
	for _, it := range s.Items {
		items = append(items, PushItem{
			ProductID:     it.ProductID,
			BatchNumber:   it.BatchNumber,
			Qty:           it.Qty,
			UnitPrice:     it.UnitPrice,
			DiscountPrice: it.DiscountPrice,
		})
	}

	return PushRequest{
		SaleID:        s.ID,
		TransactionID: s.TransactionID,
		CustomerRef:   s.CustomerRef,
		Total:         s.Total,
		DiscountTotal: s.DiscountTotal,
		CreatedAt:     s.CreatedAt,
		Items:         items,
	}
}

// PushResponse - ответ POST /sales. Duplicate: продажа с этим transaction_id уже принята.
type PushResponse struct {
	ID            int64  `json:"id"`
	TransactionID string `json:"transaction_id"`
	Duplicate     bool   `json:"duplicate"`
}
