package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"stockkeeper/internal/app/client/config"
	"stockkeeper/internal/app/client/scheduler"
	"stockkeeper/internal/domain/conflict"
	"stockkeeper/internal/domain/product"
	"stockkeeper/internal/domain/sale"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"token":"tok-1","status":"Ok"}`))
	})
	mux.HandleFunc("/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/products", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		resp := product.ListResponse{
			Products: []json.RawMessage{
				json.RawMessage(`{"id":1,"name":"Paracetamol","reference_price":"10.5","stock":12,"version":2,"updated_at":"2024-04-01 10:00:00"}`),
				json.RawMessage(`{"name":"no id"}`),
			},
			ServerTime: time.Now().UTC(),
		}
		w.Header().Set("Content-Type", "application/json")
		assert.NoError(t, json.NewEncoder(w).Encode(resp))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestConfig(t *testing.T, server string) *config.Config {
	t.Helper()

	dir := t.TempDir()
	return &config.Config{
		Env:              config.EnvLocal,
		ServerAddress:    server,
		PushAddress:      "ws://127.0.0.1:1/ws",
		ConfigDir:        dir,
		DataPath:         filepath.Join(dir, "stockkeeper.db"),
		StatePath:        filepath.Join(dir, "state.json"),
		SyncInterval:     time.Hour,
		BatchSize:        10,
		QueueMaxRetries:  3,
		IncrementalPull:  true,
		RemoteTimeout:    5 * time.Second,
		RemoteMaxRetries: 0,
		RemoteBackoff:    time.Millisecond,
		ConflictStrategy: conflict.LatestWins,
		OversellPolicy:   sale.OversellAllow,
	}
}

func TestApp_LoginPersistsToken(t *testing.T) {
	srv := newTestServer(t)
	cfg := newTestConfig(t, srv.URL)
	ctx := context.Background()

	app, err := New(ctx, cfg, slog.Default())
	require.NoError(t, err)
	assert.False(t, app.IsAuthenticated())
	require.NoError(t, app.CheckConnection(ctx))

	_, err = app.SyncNow(ctx)
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	require.NoError(t, app.Login(ctx, "cashier", "secret"))
	require.NoError(t, app.Close())

	// новый процесс подхватывает токен из файла состояния
	app, err = New(ctx, cfg, slog.Default())
	require.NoError(t, err)
	defer app.Close()
	assert.True(t, app.IsAuthenticated())

	require.NoError(t, app.Logout(ctx))
	assert.False(t, app.IsAuthenticated())
}

func TestApp_PullOnly(t *testing.T) {
	srv := newTestServer(t)
	cfg := newTestConfig(t, srv.URL)
	ctx := context.Background()

	app, err := New(ctx, cfg, slog.Default())
	require.NoError(t, err)
	defer app.Close()
	require.NoError(t, app.Login(ctx, "cashier", "secret"))

	res, err := app.PullOnly(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, scheduler.StatusCompleted, res.Status)
	assert.Equal(t, 1, res.Pulled)
	assert.Equal(t, 1, res.Invalid)

	p, err := app.Products.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Paracetamol", p.Name)
	assert.Equal(t, 10.5, p.Prices.Reference)
	assert.Equal(t, int64(2), p.Version)

	status, err := app.Status(ctx)
	require.NoError(t, err)
	assert.True(t, status.Authenticated)
	assert.NotEmpty(t, status.LastPull)
	assert.Zero(t, status.Queue.Total())
}

func TestApp_LogoutClearsTokenWhenServerFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/login" {
			_, _ = w.Write([]byte(`{"token":"tok-1"}`))
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cfg := newTestConfig(t, srv.URL)
	ctx := context.Background()

	app, err := New(ctx, cfg, slog.Default())
	require.NoError(t, err)
	defer app.Close()

	require.NoError(t, app.Login(ctx, "cashier", "secret"))
	require.NoError(t, app.Logout(ctx))
	assert.False(t, app.IsAuthenticated())
}
