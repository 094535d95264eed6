package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"

	"stockkeeper/internal/app/server/config"
	"stockkeeper/internal/domain/apperr"
	"stockkeeper/internal/infrastructure/migration"
)

// Storage - хранилище эталонного сервера.
type Storage struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Storage, error) {
	log = log.With("component", "postgres")

	outcome, err := migration.ForPostgres(cfg.DB.DatabaseURI).Up()
	if err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}
	log.Info("миграции схемы", "outcome", outcome.String())

	poolCfg, err := pgxpool.ParseConfig(cfg.DB.DatabaseURI)
	if err != nil {
		return nil, fmt.Errorf("parse database uri: %w", err)
	}
	if cfg.DB.MaxConns > 0 {
		poolCfg.MaxConns = cfg.DB.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Storage{pool: pool, log: log}, nil
}

func (s *Storage) Close() error {
	s.pool.Close()
	return nil
}

func (s *Storage) Pool() *pgxpool.Pool {
	return s.pool
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// withTx откатывает транзакцию при любой ошибке fn.
func (s *Storage) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return apperr.Storage("begin tx", err)
	}
	defer func() {
		// после Commit откат возвращает ErrTxClosed, его не проверяем
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return apperr.Storage("commit tx", err)
	}
	return nil
}
