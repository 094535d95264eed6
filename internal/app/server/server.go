// Package server собирает эталонный сервер каталога: API, канал событий
// остатков и обслуживание сессий.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/exp/slog"
	"golang.org/x/sync/errgroup"

	"stockkeeper/internal/app/server/api"
	"stockkeeper/internal/app/server/config"
	"stockkeeper/internal/app/server/push"
	"stockkeeper/internal/domain/session"
	"stockkeeper/internal/infrastructure/storage/postgres"
)

const purgeInterval = time.Hour

type Server struct {
	config   *config.Config
	log      *slog.Logger
	storage  *postgres.Storage
	sessions *session.Service
	hub      *push.Hub
	http     *http.Server
}

func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Server, error) {
	storage, err := postgres.New(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	sessions := session.NewService(postgres.NewSessionRepository(storage, log), cfg.SessionTTL, log)
	hub := push.NewHub(log)

	router := api.New(api.Deps{
		Storage:  storage,
		Sessions: sessions,
		Hub:      hub,
	}, log)

	return &Server{
		config:   cfg,
		log:      log.With("component", "server"),
		storage:  storage,
		sessions: sessions,
		hub:      hub,
		http: &http.Server{
			Addr:              cfg.Server.RunAddress,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
	}, nil
}

// Run обслуживает запросы до отмены ctx, затем останавливается в пределах
// ShutdownTimeout.
func (s *Server) Run(ctx context.Context) error {
	defer s.storage.Close()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.hub.Run()
		return nil
	})

	g.Go(func() error {
		s.log.Info("сервер слушает", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		s.purgeSessions(gctx)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.log.Info("остановка сервера")

		// websocket-соединения Shutdown не закрывает
		s.hub.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			s.log.Error("ошибка корректной остановки", "error", err)
			return s.http.Close()
		}
		return nil
	})

	return g.Wait()
}

func (s *Server) purgeSessions(ctx context.Context) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.sessions.Purge(ctx)
			if err != nil {
				s.log.Error("не удалось удалить истекшие сессии", "error", err)
				continue
			}
			if n > 0 {
				s.log.Info("истекшие сессии удалены", "count", n)
			}
		}
	}
}
