package user

import (
	"context"
)

type Repository interface {
	// Create - ErrLoginTaken, если логин занят.
	Create(ctx context.Context, login, passwordHash string) (int64, error)
	// FindByLogin - ErrNotFound, если пользователя нет.
	FindByLogin(ctx context.Context, login string) (User, error)
}
