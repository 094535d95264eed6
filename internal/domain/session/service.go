package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	"golang.org/x/exp/slog"
)

const DefaultTTL = 24 * time.Hour

type Servicer interface {
	Create(ctx context.Context, userID int64) (token string, expiresAt time.Time, err error)
	Validate(ctx context.Context, token string) (int64, error)
	Revoke(ctx context.Context, token string) error
}

// Service выдает непрозрачные токены. В хранилище попадает только sha256 токена.
type Service struct {
	repo Repository
	ttl  time.Duration
	log  *slog.Logger
	now  func() time.Time
}

func NewService(repo Repository, ttl time.Duration, log *slog.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		repo: repo,
		ttl:  ttl,
		log:  log.With("component", "session_service"),
		now:  time.Now,
	}
}

func (s *Service) Create(ctx context.Context, userID int64) (string, time.Time, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", time.Time{}, fmt.Errorf("generate token: %w", err)
	}

	token := base64.URLEncoding.EncodeToString(tokenBytes)
	expiresAt := s.now().Add(s.ttl).UTC()

	if err := s.repo.Create(ctx, userID, hashToken(token), expiresAt); err != nil {
		return "", time.Time{}, fmt.Errorf("save session: %w", err)
	}

	return token, expiresAt, nil
}

func (s *Service) Validate(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, ErrInvalidSession
	}
	return s.repo.Validate(ctx, hashToken(token), s.now())
}

func (s *Service) Revoke(ctx context.Context, token string) error {
	return s.repo.Delete(ctx, hashToken(token))
}

// Purge удаляет истекшие сессии
func (s *Service) Purge(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	if n > 0 {
		s.log.Debug("истекшие сессии удалены", "count", n)
	}
	return n, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
