package product

import "time"

type EventType string

const (
	EventAddNewStock EventType = "add_new_stock"
	EventUpdateStock EventType = "update_stock"
	EventDeleteStock EventType = "delete_stock"
)

// StockEvent - снимок складской записи из канала push-уведомлений.
type StockEvent struct {
	Type       EventType `json:"type"`
	ProductID  int64     `json:"product_id"`
	Stock      int       `json:"stock"`
	Prices               // цены передаются плоско
	ServerTime time.Time `json:"server_time"`
}

func (t EventType) Valid() bool {
	switch t {
	case EventAddNewStock, EventUpdateStock, EventDeleteStock:
		return true
	}
	return false
}
