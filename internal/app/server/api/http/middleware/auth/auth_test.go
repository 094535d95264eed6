package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/exp/slog"

	"stockkeeper/internal/domain/session"
)

type MockSession struct {
	mock.Mock
}

func (m *MockSession) Create(ctx context.Context, userID int64) (string, time.Time, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

func (m *MockSession) Validate(ctx context.Context, token string) (int64, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSession) Revoke(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

type whoamiOutput struct {
	Body struct {
		UserID int64 `json:"user_id"`
	}
}

func TestAuth_Middleware(t *testing.T) {
	sessions := new(MockSession)
	sessions.On("Validate", mock.Anything, "good").Return(int64(42), nil)
	sessions.On("Validate", mock.Anything, "expired").Return(int64(0), session.ErrInvalidSession)

	a := New(sessions, slog.Default())
	_, api := humatest.New(t)
	huma.Register(api, huma.Operation{
		OperationID: "whoami",
		Method:      http.MethodGet,
		Path:        "/whoami",
		Middlewares: huma.Middlewares{a.Middleware()},
	}, func(ctx context.Context, _ *struct{}) (*whoamiOutput, error) {
		out := &whoamiOutput{}
		out.Body.UserID, _ = GetUserID(ctx)
		return out, nil
	})

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{name: "valid token", header: "Authorization: Bearer good", wantStatus: http.StatusOK},
		{name: "expired token", header: "Authorization: Bearer expired", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Authorization: Basic abc", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := api.Get("/whoami", tt.header)
			assert.Equal(t, tt.wantStatus, resp.Code)
			if tt.wantStatus == http.StatusOK {
				assert.JSONEq(t, `{"user_id":42}`, resp.Body.String())
			} else {
				assert.JSONEq(t, `{"error":"Unauthorized"}`, resp.Body.String())
			}
		})
	}
}

func TestAuth_HTTP(t *testing.T) {
	sessions := new(MockSession)
	sessions.On("Validate", mock.Anything, "good").Return(int64(7), nil)

	a := New(sessions, slog.Default())
	var gotID int64
	var gotToken string
	handler := a.HTTP(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, _ = GetUserID(r.Context())
		gotToken, _ = GetToken(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, int64(7), gotID)
	assert.Equal(t, "good", gotToken)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	sessions.AssertNumberOfCalls(t, "Validate", 1)
}
