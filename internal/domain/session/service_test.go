package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) error {
	args := m.Called(ctx, userID, tokenHash, expiresAt)
	return args.Error(0)
}

func (m *MockRepository) Validate(ctx context.Context, tokenHash string, now time.Time) (int64, error) {
	args := m.Called(ctx, tokenHash, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) Delete(ctx context.Context, tokenHash string) error {
	args := m.Called(ctx, tokenHash)
	return args.Error(0)
}

func (m *MockRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

var fixedNow = time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)

func newTestService(repo Repository) *Service {
	s := NewService(repo, 2*time.Hour, slog.Default())
	s.now = func() time.Time { return fixedNow }
	return s
}

func TestService_CreateAndValidate(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)

	var stored string
	mockRepo.On("Create", ctx, int64(5), mock.AnythingOfType("string"), fixedNow.Add(2*time.Hour)).
		Run(func(args mock.Arguments) { stored = args.String(2) }).
		Return(nil)

	token, expiresAt, err := service.Create(ctx, 5)
	require.NoError(t, err)
	// 32 байта в base64 с выравниванием
	assert.Len(t, token, 44)
	assert.Equal(t, fixedNow.Add(2*time.Hour), expiresAt)
	// в хранилище только хэш
	assert.Len(t, stored, 64)
	assert.NotContains(t, stored, token)
	assert.Equal(t, hashToken(token), stored)

	mockRepo.On("Validate", ctx, stored, fixedNow).Return(int64(5), nil)
	userID, err := service.Validate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, int64(5), userID)

	mockRepo.AssertExpectations(t)
}

func TestService_ValidateEmptyToken(t *testing.T) {
	mockRepo := new(MockRepository)
	_, err := newTestService(mockRepo).Validate(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidSession)
	mockRepo.AssertNotCalled(t, "Validate", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Revoke(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockRepository)
	mockRepo.On("Delete", ctx, hashToken("tok")).Return(nil)

	require.NoError(t, newTestService(mockRepo).Revoke(ctx, "tok"))
	mockRepo.AssertExpectations(t)
}

func TestService_Purge(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockRepository)
	mockRepo.On("DeleteExpired", ctx, fixedNow).Return(int64(3), nil)

	n, err := newTestService(mockRepo).Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
