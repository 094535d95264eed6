package batch

import "time"

type Status string

const (
	StatusBoxed   Status = "boxed"
	StatusOpen    Status = "open"
	StatusUsed    Status = "used"
	StatusExpired Status = "expired"
)

// Batch - партия товара. Инвариант: 0 <= Available <= QtyStock.
type Batch struct {
	ID          int64
	ProductID   int64
	BatchNumber string
	ExpiryDate  time.Time
	QtyStock    int
	Available   int
	Status      Status
	CreatedAt   time.Time
}

func (b *Batch) Expired(at time.Time) bool {
	return !b.ExpiryDate.IsZero() && b.ExpiryDate.Before(at)
}

// DateLayout - формат срока годности в хранилище и на проводе.
const DateLayout = "2006-01-02"
