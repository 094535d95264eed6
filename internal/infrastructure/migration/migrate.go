package migration

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// Регистрация драйверов БД для migrate
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
)

//go:embed sqlite/*.sql postgres/*.sql
var files embed.FS

// Outcome - результат применения шага схемы.
type Outcome int

const (
	OutcomeFailed Outcome = iota
	OutcomeApplied
	OutcomeAlreadyApplied
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeAlreadyApplied:
		return "already applied"
	default:
		return "failed"
	}
}

// Migrator - интерфейс для самой библиотеки migrate.Migrate
type Migrator interface {
	Up() error
	Close() (error, error)
}

// MigrationEngine - фабрика для создания мигратора (чтобы не лезть в ФС и БД в тестах)
type MigrationEngine func(src source.Driver, databaseURL string) (Migrator, error)

// DefaultEngine - реальная реализация для продакшена
func DefaultEngine(src source.Driver, databaseURL string) (Migrator, error) {
	return migrate.NewWithSourceInstance("iofs", src, databaseURL)
}

type Migration struct {
	fsys        fs.FS
	dir         string
	databaseURL string
	engine      MigrationEngine
}

func NewMigration(fsys fs.FS, dir, databaseURL string, engine MigrationEngine) *Migration {
	if engine == nil {
		engine = DefaultEngine
	}
	return &Migration{
		fsys:        fsys,
		dir:         dir,
		databaseURL: databaseURL,
		engine:      engine,
	}
}

// ForSQLite - встроенные миграции локального хранилища клиента.
func ForSQLite(path string) *Migration {
	return NewMigration(files, "sqlite", "sqlite3://"+path, DefaultEngine)
}

// ForPostgres - встроенные миграции эталонного сервера.
func ForPostgres(databaseURI string) *Migration {
	return NewMigration(files, "postgres", databaseURI, DefaultEngine)
}

func (mg *Migration) Up() (outcome Outcome, err error) {
	src, err := iofs.New(mg.fsys, mg.dir)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("open migration source: %w", err)
	}

	m, err := mg.engine(src, mg.databaseURL)
	if err != nil {
		return OutcomeFailed, err
	}
	defer func() {
		serr, dberr := m.Close()
		if serr != nil {
			err = errors.Join(err, fmt.Errorf("migration source: %w", serr))
		}
		if dberr != nil {
			err = errors.Join(err, fmt.Errorf("migration database: %w", dberr))
		}
		if err != nil {
			outcome = OutcomeFailed
		}
	}()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return OutcomeAlreadyApplied, nil
		}
		return OutcomeFailed, fmt.Errorf("migration up: %w", err)
	}

	return OutcomeApplied, nil
}
