package product

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/exp/slog"
)

type Service struct {
	repo Repository
	log  *slog.Logger
	now  func() time.Time
}

func NewService(repo Repository, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With("component", "product_service"),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Get(ctx context.Context, id int64) (*Product, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Product, error) {
	return s.repo.List(ctx, filter)
}

// Dirty возвращает товары с локальными изменениями, еще не отправленными на сервер.
func (s *Service) Dirty(ctx context.Context) ([]Product, error) {
	return s.repo.ListDirty(ctx)
}

// UpdatePrices - локальное редактирование цен. Запись становится грязной,
// отправка идет через очередь синхронизации.
func (s *Service) UpdatePrices(ctx context.Context, id int64, prices Prices) (*Product, error) {
	if err := ValidatePrices(prices); err != nil {
		return nil, err
	}

	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.IsDeleted() {
		return nil, ErrDeleted
	}

	at := s.now()
	version, err := s.repo.SaveLocalEdit(ctx, id, p.Version, prices, at)
	if err != nil {
		return nil, fmt.Errorf("save price edit: %w", err)
	}

	p.Prices = prices
	p.Version = version
	p.IsDirty = true
	p.LastModifiedAt = at

	s.log.Debug("цены обновлены локально", "product_id", id, "version", version)

	return p, nil
}

// ApplyRemote разбирает товары из ответа сервера и применяет их пакетом.
// Невалидные записи пропускаются с предупреждением.
func (s *Service) ApplyRemote(ctx context.Context, raws []json.RawMessage, arbiter Arbiter) (UpsertResult, int, error) {
	at := s.now()
	products := make([]Product, 0, len(raws))
	invalid := 0

	for _, raw := range raws {
		rp, err := ParseRemote(raw)
		if err != nil {
			invalid++
			s.log.Warn("некорректный товар с сервера пропущен", "error", err)
			continue
		}
		products = append(products, rp.ToProduct(at))
	}

	if len(products) == 0 {
		return UpsertResult{}, invalid, nil
	}

	res, err := s.repo.UpsertIfNewer(ctx, products, arbiter)
	if err != nil {
		return UpsertResult{}, invalid, fmt.Errorf("upsert remote products: %w", err)
	}

	return res, invalid, nil
}

// MarkSynced вызывается после успешной отправки версии version на сервер.
func (s *Service) MarkSynced(ctx context.Context, id, version int64) error {
	cleared, err := s.repo.MarkSynced(ctx, id, version, s.now())
	if err != nil {
		return err
	}
	if !cleared {
		// после постановки в очередь были новые правки, они уйдут следующим циклом
		s.log.Debug("товар изменен после отправки, остается грязным", "product_id", id, "pushed_version", version)
	}
	return nil
}

// ApplyStockEvent применяет push-событие напрямую к товару, минуя очередь.
// Для неизвестного товара возвращает ErrNotFound.
func (s *Service) ApplyStockEvent(ctx context.Context, ev StockEvent) (bool, error) {
	if !ev.Type.Valid() {
		return false, fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Type)
	}

	p, err := s.repo.Get(ctx, ev.ProductID)
	if err != nil {
		return false, err
	}

	serverTime := ev.ServerTime
	if serverTime.IsZero() {
		serverTime = s.now()
	}

	if ev.Type == EventDeleteStock {
		if p.IsDeleted() {
			return false, nil
		}
		if err := s.repo.Tombstone(ctx, p.ID, serverTime); err != nil {
			return false, err
		}
		return true, nil
	}

	var prices *Prices
	if !p.IsDirty {
		prices = &ev.Prices
	}

	applied, err := s.repo.ApplyStockSnapshot(ctx, p.ID, ev.Stock, prices, serverTime)
	if err != nil {
		return false, err
	}
	if !applied {
		s.log.Debug("устаревшее событие остатка пропущено", "product_id", p.ID, "server_time", serverTime)
	}

	return applied, nil
}

// IsNotFound - удобство для обработчиков событий.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
