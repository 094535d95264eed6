package queue

import (
	"context"
	"time"
)

// Store - операции над таблицей очереди. Исполняется как на соединении, так и
// внутри транзакции (см. sqlite.Tx), поэтому Enqueue может идти вместе с бизнес-записью.
type Store interface {
	Insert(ctx context.Context, item *Item) error
}

type Repository interface {
	Store
	ListPending(ctx context.Context, limit int) ([]Item, error)
	// Transition меняет статус from -> to одной строкой; ErrInvalidTransition, если статус не from.
	Transition(ctx context.Context, id int64, from, to Status, errMsg *string, at time.Time) error
	ResetFailed(ctx context.Context, maxRetries int, at time.Time) (int64, error)
	ResetExhausted(ctx context.Context, maxRetries int, at time.Time) (int64, error)
	DeleteCompleted(ctx context.Context) (int64, error)
	HasOpen(ctx context.Context, entityType EntityType, entityID string) (bool, error)
	FailProcessing(ctx context.Context, reason string, at time.Time) (int64, error)
	Stats(ctx context.Context, maxRetries int) (Stats, error)
	List(ctx context.Context, status Status, limit int) ([]Item, error)
}
