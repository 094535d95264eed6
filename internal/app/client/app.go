// Package client собирает клиентское приложение: локальное хранилище,
// доменные сервисы, очередь синхронизации, планировщик и push-канал.
package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/exp/slog"
	"golang.org/x/sync/errgroup"

	"stockkeeper/internal/app/client/config"
	"stockkeeper/internal/app/client/push"
	"stockkeeper/internal/app/client/remote"
	"stockkeeper/internal/app/client/scheduler"
	"stockkeeper/internal/app/client/state"
	"stockkeeper/internal/domain/conflict"
	"stockkeeper/internal/domain/product"
	"stockkeeper/internal/domain/queue"
	"stockkeeper/internal/domain/sale"
	"stockkeeper/internal/domain/stock"
	"stockkeeper/internal/infrastructure/storage/sqlite"
)

var ErrNotAuthenticated = errors.New("not authenticated: run `stockkeeper auth login`")

const connectionTimeout = 10 * time.Second

type App struct {
	config *config.Config
	log    *slog.Logger

	storage *sqlite.Storage
	state   *state.Store
	remote  *remote.Client

	Products  *product.Service
	Sales     *sale.Service
	Stock     *stock.Service
	Queue     *queue.Queue
	Scheduler *scheduler.Scheduler
	Listener  *push.Listener
}

type Option func(*options)

type options struct {
	manual conflict.ManualFunc
}

// WithManualResolver задает шаг ручного разрешения для стратегии manual.
func WithManualResolver(fn conflict.ManualFunc) Option {
	return func(o *options) {
		o.manual = fn
	}
}

func New(ctx context.Context, cfg *config.Config, log *slog.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	storage, err := sqlite.New(ctx, cfg.DataPath, log)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}

	rc, err := remote.New(remote.Config{
		BaseURL:    cfg.ServerAddress,
		Timeout:    cfg.RemoteTimeout,
		MaxRetries: cfg.RemoteMaxRetries,
		Backoff:    cfg.RemoteBackoff,
	}, log)
	if err != nil {
		storage.Close()
		return nil, fmt.Errorf("init remote client: %w", err)
	}

	st := state.New(cfg.StatePath)
	if token, err := st.Token(); err != nil {
		log.Warn("Не удалось прочитать файл состояния", "error", err, "path", st.Path())
	} else if token != "" {
		rc.SetToken(token)
		log.Debug("Токен загружен из файла состояния")
	}

	q := queue.New(sqlite.NewQueueRepository(storage), log, &queue.Config{MaxRetries: cfg.QueueMaxRetries})
	// элементы, брошенные в processing прошлым процессом, уходят в failed
	if n, err := q.FailInterrupted(ctx); err != nil {
		storage.Close()
		return nil, fmt.Errorf("recover interrupted queue items: %w", err)
	} else if n > 0 {
		log.Warn("Прерванные элементы очереди переведены в failed", "count", n)
	}

	products := product.NewService(sqlite.NewProductRepository(storage), log)
	sales := sale.NewService(sqlite.NewSaleRepository(storage), log, &sale.Config{Oversell: cfg.OversellPolicy})
	stocks := stock.NewService(sqlite.NewStockRepository(storage), log)

	sched := scheduler.New(rc, q, products, sales, st,
		conflict.Resolver{Manual: o.manual},
		scheduler.Config{
			Interval:        cfg.SyncInterval,
			BatchSize:       cfg.BatchSize,
			RemoteTimeout:   cfg.RemoteTimeout,
			Strategy:        cfg.ConflictStrategy,
			IncrementalPull: cfg.IncrementalPull,
		}, log)

	listener := push.NewListener(push.Config{URL: cfg.PushAddress, Token: rc.Token}, products, log)

	return &App{
		config:    cfg,
		log:       log,
		storage:   storage,
		state:     st,
		remote:    rc,
		Products:  products,
		Sales:     sales,
		Stock:     stocks,
		Queue:     q,
		Scheduler: sched,
		Listener:  listener,
	}, nil
}

func (a *App) Config() *config.Config {
	return a.config
}

// CheckConnection проверяет соединение с сервером
func (a *App) CheckConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()

	return a.remote.HealthCheck(ctx)
}

// IsAuthenticated проверяет, есть ли сохраненный токен
func (a *App) IsAuthenticated() bool {
	return a.remote.Token() != ""
}

// Login выполняет вход и сохраняет токен в файл состояния
func (a *App) Login(ctx context.Context, login, password string) error {
	token, err := a.remote.Login(ctx, login, password)
	if err != nil {
		return err
	}

	if err := a.state.SetToken(token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}

	a.log.Info("Вход выполнен успешно", "login", login)
	return nil
}

// Logout завершает сессию на сервере и удаляет локальный токен.
// Локальный токен удаляется, даже если сервер недоступен.
func (a *App) Logout(ctx context.Context) error {
	remoteErr := a.remote.Logout(ctx)
	if remoteErr != nil {
		a.log.Warn("Сервер не подтвердил выход", "error", remoteErr)
	}
	a.remote.SetToken("")

	if err := a.state.ClearToken(); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}

type Status struct {
	Authenticated bool
	Queue         queue.Stats
	LastPull      string
	Syncing       bool
	Sync          scheduler.Stats
	Push          push.Stats
}

func (a *App) Status(ctx context.Context) (Status, error) {
	stats, err := a.Queue.Stats(ctx)
	if err != nil {
		return Status{}, err
	}

	st, err := a.state.Load()
	if err != nil {
		return Status{}, err
	}

	return Status{
		Authenticated: a.IsAuthenticated(),
		Queue:         stats,
		LastPull:      st.LastPullDisplay,
		Syncing:       a.Scheduler.Syncing(),
		Sync:          a.Scheduler.Stats(),
		Push:          a.Listener.Stats(),
	}, nil
}

// SyncNow выполняет один цикл синхронизации
func (a *App) SyncNow(ctx context.Context) (scheduler.Result, error) {
	if !a.IsAuthenticated() {
		return scheduler.Result{}, ErrNotAuthenticated
	}
	return a.Scheduler.SyncNow(ctx), nil
}

// PullOnly выгружает каталог. full сбрасывает отметку последней выгрузки.
func (a *App) PullOnly(ctx context.Context, full bool) (scheduler.Result, error) {
	if !a.IsAuthenticated() {
		return scheduler.Result{}, ErrNotAuthenticated
	}
	if full {
		if err := a.state.ResetLastPull(); err != nil {
			return scheduler.Result{}, fmt.Errorf("reset pull checkpoint: %w", err)
		}
	}
	return a.Scheduler.PullOnly(ctx), nil
}

// Watch запускает фоновую синхронизацию и push-канал до отмены ctx.
func (a *App) Watch(ctx context.Context) error {
	if !a.IsAuthenticated() {
		return ErrNotAuthenticated
	}

	a.log.Info("Клиент запущен",
		"server", a.config.ServerAddress,
		"push", a.config.PushAddress,
		"env", a.config.Env,
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.Scheduler.Run(ctx)
	})
	g.Go(func() error {
		return a.Listener.Run(ctx)
	})

	err := g.Wait()
	a.log.Info("Клиент завершил работу")
	return err
}

func (a *App) Close() error {
	a.Scheduler.Stop()
	return a.storage.Close()
}
