package user

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/exp/slog"
)

type Servicer interface {
	Register(ctx context.Context, req BaseRequest) (int64, error)
	Authenticate(ctx context.Context, req BaseRequest) (User, error)
}

type Service struct {
	repo      Repository
	validator Validator
	log       *slog.Logger
	cost      int
}

func NewService(repo Repository, validator Validator, log *slog.Logger) *Service {
	if validator == nil {
		validator = NewPasswordValidator()
	}
	return &Service{
		repo:      repo,
		validator: validator,
		log:       log.With("component", "user_service"),
		cost:      bcrypt.DefaultCost,
	}
}

func (s *Service) Register(ctx context.Context, req BaseRequest) (int64, error) {
	if err := s.validator.ValidateRegister(req.Login, req.Password); err != nil {
		s.log.Debug("ошибка валидации", "login", req.Login, "error", err)
		return 0, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}

	id, err := s.repo.Create(ctx, req.Login, string(hash))
	if err != nil {
		return 0, err
	}

	s.log.Info("пользователь зарегистрирован", "user_id", id, "login", req.Login)
	return id, nil
}

// Authenticate не различает неизвестный логин и неверный пароль.
func (s *Service) Authenticate(ctx context.Context, req BaseRequest) (User, error) {
	if err := s.validator.ValidateLogin(req.Login); err != nil {
		return User{}, ErrInvalidAuth
	}

	u, err := s.repo.FindByLogin(ctx, req.Login)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrInvalidAuth
		}
		return User{}, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return User{}, ErrInvalidAuth
	}

	return u, nil
}
