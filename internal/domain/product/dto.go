package product

import (
	"encoding/json"
	"time"
)

// PriceRequest - тело POST /products/{id}/price. Version - версия, от которой
// сделана локальная правка.
type PriceRequest struct {
	Version int64 `json:"version"`
	Prices
}

// SinceLayout - формат параметра updated_since, всегда UTC.
const SinceLayout = "2006-01-02 15:04:05"

// ListResponse - ответ GET /products. Элементы разбираются через ParseRemote.
type ListResponse struct {
	Products   []json.RawMessage `json:"products"`
	ServerTime time.Time         `json:"server_time"`
}
