package stock

import (
	"strings"
	"time"

	"stockkeeper/internal/domain/apperr"
	"stockkeeper/internal/domain/batch"
)

// AddRequest - поступление товара; это же тело POST /stock/add.
type AddRequest struct {
	RequestID   string `json:"request_id"`
	ProductID   int64  `json:"product_id"`
	BatchNumber string `json:"batch_number"`
	ExpiryDate  string `json:"expiry_date"`
	Qty         int    `json:"qty"`
}

func (r AddRequest) Expiry() (time.Time, error) {
	return time.Parse(batch.DateLayout, strings.TrimSpace(r.ExpiryDate))
}

func (r AddRequest) Validate() error {
	if r.ProductID <= 0 {
		return apperr.Validation("product_id", "must be positive")
	}
	if r.Qty <= 0 {
		return apperr.Validation("qty", "must be positive, got %d", r.Qty)
	}
	if strings.TrimSpace(r.BatchNumber) == "" {
		return apperr.Validation("batch_number", "is required")
	}
	if _, err := r.Expiry(); err != nil {
		return apperr.Validation("expiry_date", "expected YYYY-MM-DD, got %q", r.ExpiryDate)
	}
	return nil
}

type AddResult struct {
	Batch   batch.Batch
	QueueID int64
}

type RowError struct {
	Row int
	Err error
}

type ImportResult struct {
	Added  int
	Failed []RowError
}

// AddResponse - ответ POST /stock/add. Duplicate: запрос с таким request_id уже применен.
type AddResponse struct {
	ProductID int64 `json:"product_id"`
	Stock     int   `json:"stock"`
	Version   int64 `json:"version"`
	Duplicate bool  `json:"duplicate"`
}
