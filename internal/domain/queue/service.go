package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"
)

const (
	DefaultMaxRetries = 3
	DefaultBatchSize  = 50
)

type Config struct {
	MaxRetries int
}

type Queue struct {
	repo   Repository
	log    *slog.Logger
	config *Config
	now    func() time.Time
}

func New(repo Repository, log *slog.Logger, config *Config) *Queue {
	if config == nil {
		config = &Config{MaxRetries: DefaultMaxRetries}
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = DefaultMaxRetries
	}

	return &Queue{
		repo:   repo,
		log:    log.With("component", "sync_queue"),
		config: config,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (q *Queue) MaxRetries() int {
	return q.config.MaxRetries
}

// NewItem собирает pending элемент; сеть не трогается.
func NewItem(entityType EntityType, entityID string, action Action, payload any, at time.Time) (*Item, error) {
	if entityType == "" || entityID == "" || action == "" {
		return nil, fmt.Errorf("%w: entity type, id and action are required", ErrInvalidItem)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: encode payload: %v", ErrInvalidItem, err)
	}

	return &Item{
		UID:        uuid.NewString(),
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Payload:    data,
		Status:     StatusPending,
		CreatedAt:  at,
		UpdatedAt:  at,
	}, nil
}

// Enqueue сохраняет новый pending элемент и сразу возвращается.
func (q *Queue) Enqueue(ctx context.Context, entityType EntityType, entityID string, action Action, payload any) (*Item, error) {
	return EnqueueTo(ctx, q.repo, entityType, entityID, action, payload, q.now())
}

// EnqueueTo - то же, что Enqueue, но в переданное хранилище (например, транзакцию).
func EnqueueTo(ctx context.Context, store Store, entityType EntityType, entityID string, action Action, payload any, at time.Time) (*Item, error) {
	item, err := NewItem(entityType, entityID, action, payload, at)
	if err != nil {
		return nil, err
	}
	if err := store.Insert(ctx, item); err != nil {
		return nil, fmt.Errorf("enqueue %s/%s: %w", entityType, entityID, err)
	}
	return item, nil
}

// Dequeue возвращает до limit pending элементов в порядке создания, статус не меняет.
func (q *Queue) Dequeue(ctx context.Context, limit int) ([]Item, error) {
	if limit <= 0 {
		limit = DefaultBatchSize
	}
	return q.repo.ListPending(ctx, limit)
}

func (q *Queue) MarkProcessing(ctx context.Context, id int64) error {
	return q.repo.Transition(ctx, id, StatusPending, StatusProcessing, nil, q.now())
}

func (q *Queue) MarkCompleted(ctx context.Context, id int64) error {
	return q.repo.Transition(ctx, id, StatusProcessing, StatusCompleted, nil, q.now())
}

// MarkFailed переводит processing -> failed и увеличивает retry_count.
func (q *Queue) MarkFailed(ctx context.Context, id int64, cause error) error {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	return q.repo.Transition(ctx, id, StatusProcessing, StatusFailed, &msg, q.now())
}

// RetryFailed возвращает в pending все failed элементы с retry_count < MaxRetries.
func (q *Queue) RetryFailed(ctx context.Context) (int64, error) {
	n, err := q.repo.ResetFailed(ctx, q.config.MaxRetries, q.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		q.log.Info("элементы с ошибкой возвращены в очередь", "count", n)
	}
	return n, nil
}

// ResetExhausted дает исчерпанным элементам новый набор попыток. Только по явной команде.
func (q *Queue) ResetExhausted(ctx context.Context) (int64, error) {
	n, err := q.repo.ResetExhausted(ctx, q.config.MaxRetries, q.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		q.log.Info("исчерпанные элементы возвращены в очередь", "count", n)
	}
	return n, nil
}

func (q *Queue) ClearCompleted(ctx context.Context) (int64, error) {
	return q.repo.DeleteCompleted(ctx)
}

func (q *Queue) HasOpen(ctx context.Context, entityType EntityType, entityID string) (bool, error) {
	return q.repo.HasOpen(ctx, entityType, entityID)
}

// FailInterrupted закрывает элементы, оставшиеся в processing после аварийного
// завершения, чтобы RetryFailed мог их подобрать.
func (q *Queue) FailInterrupted(ctx context.Context) (int64, error) {
	n, err := q.repo.FailProcessing(ctx, "interrupted", q.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		q.log.Warn("прерванные элементы очереди помечены ошибкой", "count", n)
	}
	return n, nil
}

func (q *Queue) Stats(ctx context.Context) (Stats, error) {
	return q.repo.Stats(ctx, q.config.MaxRetries)
}

func (q *Queue) List(ctx context.Context, status Status, limit int) ([]Item, error) {
	return q.repo.List(ctx, status, limit)
}
