package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/exp/slog"

	"stockkeeper/internal/domain/apperr"
	"stockkeeper/internal/infrastructure/migration"
)

// Колонки, добавленные после первой версии схемы.
var columnPatches = []migration.ColumnPatch{
	{Table: "products", Column: "raw_payload", Definition: "BLOB"},
	{Table: "batches", Column: "status", Definition: "TEXT NOT NULL DEFAULT 'boxed'"},
	{Table: "sales", Column: "sync_error", Definition: "TEXT"},
}

const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// executor - общее для *sql.DB и *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Storage - локальное хранилище клиента. Единственный владелец представления на диске.
type Storage struct {
	db   *sql.DB
	log  *slog.Logger
	path string
}

func New(ctx context.Context, path string, log *slog.Logger) (*Storage, error) {
	log = log.With("component", "sqlite")

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, apperr.Storage("create data dir", err)
		}
	}

	outcome, err := migration.ForSQLite(path).Up()
	if err != nil {
		return nil, apperr.Storage("migrate", err)
	}
	log.Debug("миграции схемы", "outcome", outcome.String())

	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, apperr.Storage("open database", err)
	}
	// одна запись за раз: транзакции не конкурируют за блокировку файла
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, apperr.Storage("ping database", err)
	}

	results, err := migration.ApplyColumns(ctx, db, columnPatches)
	for _, r := range results {
		log.Debug("патч столбца", "table", r.Patch.Table, "column", r.Patch.Column, "outcome", r.Outcome.String())
	}
	if err != nil {
		db.Close()
		return nil, apperr.Storage("column patches", err)
	}

	return &Storage{db: db, log: log, path: path}, nil
}

func dsn(path string) string {
	return "file:" + path + "?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000"
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) Path() string {
	return s.path
}

func (s *Storage) Ping(ctx context.Context) error {
	return apperr.Storage("ping", s.db.PingContext(ctx))
}

// withTx выполняет fn в транзакции; любая ошибка откатывает все изменения.
func (s *Storage) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Storage("begin tx", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.log.Error("не удалось откатить транзакцию", "error", rbErr)
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return apperr.Storage("commit tx", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		// значения, записанные не нами, в RFC3339
		t, err = time.Parse(time.RFC3339Nano, s)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t.UTC(), nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func rowsAffected(res sql.Result, op string) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, apperr.Storage(op, err)
	}
	return n, nil
}
