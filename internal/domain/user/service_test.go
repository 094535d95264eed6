package user

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/exp/slog"

	"stockkeeper/internal/domain/apperr"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, login, passwordHash string) (int64, error) {
	args := m.Called(ctx, login, passwordHash)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) FindByLogin(ctx context.Context, login string) (User, error) {
	args := m.Called(ctx, login)
	return args.Get(0).(User), args.Error(1)
}

func newTestService(repo Repository) *Service {
	s := NewService(repo, nil, slog.Default())
	s.cost = bcrypt.MinCost
	return s
}

func TestService_Register(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)

	mockRepo.On("Create", ctx, "cashier", mock.MatchedBy(func(hash string) bool {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte("Secret123")) == nil
	})).Return(int64(7), nil)

	id, err := service.Register(ctx, BaseRequest{Login: "cashier", Password: "Secret123"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)

	mockRepo.AssertExpectations(t)
}

func TestService_Register_Rejected(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)

	_, err := service.Register(ctx, BaseRequest{Login: "cashier", Password: "weak"})
	assert.True(t, apperr.IsValidation(err))

	mockRepo.On("Create", ctx, "taken", mock.AnythingOfType("string")).Return(int64(0), ErrLoginTaken)
	_, err = service.Register(ctx, BaseRequest{Login: "taken", Password: "Secret123"})
	assert.ErrorIs(t, err, ErrLoginTaken)

	mockRepo.AssertNumberOfCalls(t, "Create", 1)
}

func TestService_Authenticate(t *testing.T) {
	ctx := context.Background()
	hash, err := bcrypt.GenerateFromPassword([]byte("Secret123"), bcrypt.MinCost)
	require.NoError(t, err)
	stored := User{ID: 3, Login: "cashier", PasswordHash: string(hash)}

	tests := []struct {
		name     string
		req      BaseRequest
		setup    func(m *MockRepository)
		wantErr  error
		wantUser int64
	}{
		{
			name: "success",
			req:  BaseRequest{Login: "cashier", Password: "Secret123"},
			setup: func(m *MockRepository) {
				m.On("FindByLogin", ctx, "cashier").Return(stored, nil)
			},
			wantUser: 3,
		},
		{
			name: "wrong password",
			req:  BaseRequest{Login: "cashier", Password: "Secret124"},
			setup: func(m *MockRepository) {
				m.On("FindByLogin", ctx, "cashier").Return(stored, nil)
			},
			wantErr: ErrInvalidAuth,
		},
		{
			name: "unknown login looks like wrong password",
			req:  BaseRequest{Login: "ghost", Password: "Secret123"},
			setup: func(m *MockRepository) {
				m.On("FindByLogin", ctx, "ghost").Return(User{}, ErrNotFound)
			},
			wantErr: ErrInvalidAuth,
		},
		{
			name:    "malformed login never hits the store",
			req:     BaseRequest{Login: "a", Password: "Secret123"},
			setup:   func(m *MockRepository) {},
			wantErr: ErrInvalidAuth,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockRepository)
			tt.setup(mockRepo)
			service := newTestService(mockRepo)

			u, err := service.Authenticate(ctx, tt.req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantUser, u.ID)
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestService_Authenticate_StoreFailure(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockRepository)
	mockRepo.On("FindByLogin", ctx, "cashier").Return(User{}, errors.New("connection reset"))

	_, err := newTestService(mockRepo).Authenticate(ctx, BaseRequest{Login: "cashier", Password: "Secret123"})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidAuth)
}
