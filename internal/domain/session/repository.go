package session

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) error
	// Validate - ErrInvalidSession, если токена нет или срок истек.
	Validate(ctx context.Context, tokenHash string, now time.Time) (int64, error)
	Delete(ctx context.Context, tokenHash string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
