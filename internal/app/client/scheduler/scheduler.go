// Package scheduler ведет фоновую синхронизацию: очередь, выгрузка и отправка.
package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	"golang.org/x/exp/slog"

	"stockkeeper/internal/domain/conflict"
	"stockkeeper/internal/domain/product"
	"stockkeeper/internal/domain/queue"
	"stockkeeper/internal/domain/sale"
	"stockkeeper/internal/domain/stock"
)

const (
	DefaultInterval      = 30 * time.Second
	DefaultRemoteTimeout = 30 * time.Second
)

var ErrAlreadyRunning = errors.New("background sync already running")

type Remote interface {
	// ListProducts возвращает товары и время сервера на момент выборки.
	ListProducts(ctx context.Context, since time.Time) ([]json.RawMessage, time.Time, error)
	UpdatePrices(ctx context.Context, id int64, req product.PriceRequest) (*product.Wire, error)
	AddStock(ctx context.Context, req stock.AddRequest) (*stock.AddResponse, error)
	CreateSale(ctx context.Context, req sale.PushRequest) (*sale.PushResponse, error)
}

type Queue interface {
	Enqueue(ctx context.Context, entityType queue.EntityType, entityID string, action queue.Action, payload any) (*queue.Item, error)
	Dequeue(ctx context.Context, limit int) ([]queue.Item, error)
	MarkProcessing(ctx context.Context, id int64) error
	MarkCompleted(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, cause error) error
	RetryFailed(ctx context.Context) (int64, error)
	ClearCompleted(ctx context.Context) (int64, error)
	HasOpen(ctx context.Context, entityType queue.EntityType, entityID string) (bool, error)
}

type Products interface {
	Dirty(ctx context.Context) ([]product.Product, error)
	ApplyRemote(ctx context.Context, raws []json.RawMessage, arbiter product.Arbiter) (product.UpsertResult, int, error)
	MarkSynced(ctx context.Context, id, version int64) error
}

type Sales interface {
	MarkSynced(ctx context.Context, id int64) error
	MarkSyncFailed(ctx context.Context, id int64, cause error) error
}

// Checkpoint хранит время последней успешной выгрузки.
type Checkpoint interface {
	LastPull() (time.Time, error)
	SetLastPull(t time.Time) error
}

type Config struct {
	Interval        time.Duration
	BatchSize       int
	RemoteTimeout   time.Duration
	Strategy        conflict.Strategy
	IncrementalPull bool
}

type Scheduler struct {
	remote     Remote
	queue      Queue
	products   Products
	sales      Sales
	checkpoint Checkpoint
	resolver   conflict.Resolver
	config     Config
	log        *slog.Logger
	now        func() time.Time

	gate Gate

	mu     sync.Mutex
	stats  Stats
	cancel context.CancelFunc
	done   chan struct{}
}

func New(remote Remote, q Queue, products Products, sales Sales, checkpoint Checkpoint,
	resolver conflict.Resolver, config Config, log *slog.Logger) *Scheduler {
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = queue.DefaultBatchSize
	}
	if config.RemoteTimeout <= 0 {
		config.RemoteTimeout = DefaultRemoteTimeout
	}
	if config.Strategy == "" {
		config.Strategy = conflict.LatestWins
	}

	return &Scheduler{
		remote:     remote,
		queue:      q,
		products:   products,
		sales:      sales,
		checkpoint: checkpoint,
		resolver:   resolver,
		config:     config,
		log:        log.With("component", "sync_scheduler"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Syncing сообщает, выполняется ли сейчас цикл.
func (s *Scheduler) Syncing() bool {
	return s.gate.Busy()
}

// SyncNow выполняет полный цикл. Если цикл уже идет, сразу возвращает
// StatusAlreadyInProgress и ничего не трогает.
func (s *Scheduler) SyncNow(ctx context.Context) Result {
	return s.guarded(ctx, "sync", s.cycle)
}

// PullOnly выполняет только выгрузку каталога под тем же гейтом.
func (s *Scheduler) PullOnly(ctx context.Context) Result {
	return s.guarded(ctx, "pull", s.pullProducts)
}

func (s *Scheduler) guarded(ctx context.Context, kind string, fn func(ctx context.Context, res *Result)) Result {
	res := Result{StartedAt: s.now()}

	release, ok := s.gate.TryAcquire()
	if !ok {
		res.Status = StatusAlreadyInProgress
		s.log.Debug("синхронизация пропущена: уже выполняется", "kind", kind)
		s.recordStats(res)
		return res
	}
	defer release()

	fn(ctx, &res)

	res.Status = StatusCompleted
	res.Duration = s.now().Sub(res.StartedAt)
	s.recordStats(res)

	if len(res.Errors) == 0 {
		s.log.Info("синхронизация завершена",
			"kind", kind,
			"pushed", res.Pushed,
			"pulled", res.Pulled,
			"duration", res.Duration,
		)
	} else {
		s.log.Warn("синхронизация завершена с ошибками",
			"kind", kind,
			"pushed", res.Pushed,
			"failed", res.Failed,
			"pulled", res.Pulled,
			"errors", len(res.Errors),
			"duration", res.Duration,
		)
	}

	return res
}

// cycle: retry_failed -> push_products -> одна порция очереди -> clear_completed -> pull_products.
func (s *Scheduler) cycle(ctx context.Context, res *Result) {
	if n, err := s.queue.RetryFailed(ctx); err != nil {
		res.addError(ItemError{Op: "retry_failed", Error: err.Error()})
	} else {
		res.Retried = n
	}

	s.pushProducts(ctx, res)
	s.drain(ctx, res)

	if n, err := s.queue.ClearCompleted(ctx); err != nil {
		res.addError(ItemError{Op: "clear_completed", Error: err.Error()})
	} else {
		res.Purged = n
	}

	s.pullProducts(ctx, res)
}

// pushProducts ставит в очередь по одному update на каждый dirty товар.
// Сеть не используется: отправка идет через очередь.
func (s *Scheduler) pushProducts(ctx context.Context, res *Result) {
	dirty, err := s.products.Dirty(ctx)
	if err != nil {
		res.addError(ItemError{Op: "push_products", Error: err.Error()})
		return
	}

	for _, p := range dirty {
		id := strconv.FormatInt(p.ID, 10)

		open, err := s.queue.HasOpen(ctx, queue.EntityProduct, id)
		if err != nil {
			res.addError(ItemError{Op: "push_products", EntityType: queue.EntityProduct, EntityID: id, Error: err.Error()})
			continue
		}
		if open {
			continue
		}

		payload := ProductPayload{ProductID: p.ID, PriceRequest: product.PriceRequest{Version: p.Version, Prices: p.Prices}}
		if _, err := s.queue.Enqueue(ctx, queue.EntityProduct, id, queue.ActionUpdate, payload); err != nil {
			res.addError(ItemError{Op: "push_products", EntityType: queue.EntityProduct, EntityID: id, Error: err.Error()})
			continue
		}
		res.Enqueued++
	}
}

func (s *Scheduler) drain(ctx context.Context, res *Result) {
	items, err := s.queue.Dequeue(ctx, s.config.BatchSize)
	if err != nil {
		res.addError(ItemError{Op: "dequeue", Error: err.Error()})
		return
	}

	for _, item := range items {
		itemErr := ItemError{Op: "dispatch", QueueID: item.ID, EntityType: item.EntityType, EntityID: item.EntityID}

		if err := s.queue.MarkProcessing(ctx, item.ID); err != nil {
			itemErr.Error = err.Error()
			res.addError(itemErr)
			continue
		}

		if err := s.dispatch(ctx, item); err != nil {
			res.Failed++
			itemErr.Error = err.Error()
			res.addError(itemErr)

			s.log.Warn("ошибка отправки элемента очереди",
				"queue_id", item.ID,
				"entity_type", item.EntityType,
				"entity_id", item.EntityID,
				"retry_count", item.RetryCount,
				"error", err,
			)
			if err := s.queue.MarkFailed(ctx, item.ID, err); err != nil {
				res.addError(ItemError{Op: "mark_failed", QueueID: item.ID, Error: err.Error()})
			}
			continue
		}

		if err := s.queue.MarkCompleted(ctx, item.ID); err != nil {
			res.addError(ItemError{Op: "mark_completed", QueueID: item.ID, Error: err.Error()})
			continue
		}
		res.Pushed++
	}
}

// pullProducts выгружает каталог и применяет его одним пакетным upsert.
func (s *Scheduler) pullProducts(ctx context.Context, res *Result) {
	var since time.Time
	if s.config.IncrementalPull && s.checkpoint != nil {
		last, err := s.checkpoint.LastPull()
		if err != nil {
			s.log.Warn("не удалось прочитать отметку выгрузки, полная выгрузка", "error", err)
		} else {
			since = last
		}
	}

	started := s.now()

	callCtx, cancel := context.WithTimeout(ctx, s.config.RemoteTimeout)
	raws, serverTime, err := s.remote.ListProducts(callCtx, since)
	cancel()
	if err != nil {
		res.addError(ItemError{Op: "pull_products", Error: err.Error()})
		return
	}

	upsert, invalid, err := s.products.ApplyRemote(ctx, raws, s.arbiter())
	if err != nil {
		res.addError(ItemError{Op: "pull_products", Error: err.Error()})
		return
	}

	res.Pulled = upsert.Applied()
	res.Stale = upsert.Stale
	res.KeptLocal = upsert.KeptLocal
	res.Invalid = invalid

	if s.checkpoint == nil {
		return
	}
	// отметка в часах сервера: updated_since сравнивается с его updated_at
	mark := serverTime.UTC()
	if serverTime.IsZero() {
		mark = started
	}
	if err := s.checkpoint.SetLastPull(mark); err != nil {
		// выгрузка уже применена, следующая просто будет шире
		s.log.Warn("не удалось сохранить отметку выгрузки", "error", err)
	}
}

func (s *Scheduler) arbiter() product.Arbiter {
	return s.resolver.Arbiter(s.config.Strategy, func(local, remote *product.Product, r conflict.Resolution) {
		s.log.Info("конфликт разрешен",
			"product_id", local.ID,
			"strategy", r.Strategy,
			"winner", r.Winner.String(),
			"notes", r.Notes,
			"diffs", len(conflict.DetectConflicts(local, remote)),
		)
	})
}

func (s *Scheduler) recordStats(r Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.record(r)
}

func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *Scheduler) ResetStats() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = Stats{}
}

// Start запускает таймер. Первый цикл выполняется сразу.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return ErrAlreadyRunning
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.loop(loopCtx, s.done)

	s.log.Info("фоновая синхронизация запущена", "interval", s.config.Interval)
	return nil
}

// Stop останавливает таймер и ждет завершения текущего цикла, не прерывая его.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	s.log.Info("фоновая синхронизация остановлена")
}

// Run - блокирующий вариант Start/Stop для errgroup.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	return nil
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	// отмена ctx останавливает таймер, но не текущий цикл
	runCtx := context.WithoutCancel(ctx)

	s.SyncNow(runCtx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SyncNow(runCtx)
		}
	}
}
