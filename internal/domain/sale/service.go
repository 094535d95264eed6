package sale

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"stockkeeper/internal/domain/apperr"
	"stockkeeper/internal/domain/batch"
	"stockkeeper/internal/domain/queue"
)

// OversellPolicy - что делать, если партий не хватает на запрошенное количество.
type OversellPolicy string

const (
	// OversellAllow - остаток продается строкой без партии (поведение по умолчанию).
	OversellAllow OversellPolicy = "allow"
	// OversellReject - продажа отклоняется целиком.
	OversellReject OversellPolicy = "reject"
)

func ParseOversellPolicy(s string) (OversellPolicy, error) {
	switch p := OversellPolicy(s); p {
	case OversellAllow, OversellReject:
		return p, nil
	case "":
		return OversellAllow, nil
	}
	return "", fmt.Errorf("unknown oversell policy %q", s)
}

type Config struct {
	Oversell OversellPolicy
}

// Service - движок продаж: продажа, распределение по партиям и постановка
// в очередь синхронизации выполняются одной транзакцией.
type Service struct {
	repo   Repository
	log    *slog.Logger
	config *Config
	now    func() time.Time
	newID  func() string
}

func NewService(repo Repository, log *slog.Logger, config *Config) *Service {
	if config == nil {
		config = &Config{Oversell: OversellAllow}
	}
	if config.Oversell == "" {
		config.Oversell = OversellAllow
	}

	return &Service{
		repo:   repo,
		log:    log.With("component", "sales_engine"),
		config: config,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
}

func (s *Service) CreateSale(ctx context.Context, customerRef string, lines []LineItem, totals Totals) (*Sale, error) {
	if err := validate(lines, totals); err != nil {
		return nil, err
	}

	sale := &Sale{
		TransactionID: s.newID(),
		CustomerRef:   customerRef,
		Total:         totals.Total,
		DiscountTotal: totals.DiscountTotal,
		CreatedAt:     s.now(),
	}

	err := s.repo.WithinTx(ctx, func(tx Tx) error {
		if err := tx.InsertSale(ctx, sale); err != nil {
			return fmt.Errorf("insert sale: %w", err)
		}

		for _, line := range lines {
			items, err := s.allocateLine(ctx, tx, sale.ID, line)
			if err != nil {
				return err
			}
			sale.Items = append(sale.Items, items...)
		}

		payload := QueuePayload{SaleID: sale.ID, Request: NewPushRequest(sale)}
		_, err := queue.EnqueueTo(ctx, tx, queue.EntitySale, strconv.FormatInt(sale.ID, 10),
			queue.ActionCreate, payload, sale.CreatedAt)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("продажа создана",
		"sale_id", sale.ID,
		"transaction_id", sale.TransactionID,
		"items", len(sale.Items),
	)

	return sale, nil
}

func (s *Service) allocateLine(ctx context.Context, tx Tx, saleID int64, line LineItem) ([]Item, error) {
	if err := tx.DecrementStock(ctx, line.ProductID, line.Qty); err != nil {
		return nil, fmt.Errorf("product %d: %w", line.ProductID, err)
	}

	batches, err := tx.AvailableBatches(ctx, line.ProductID)
	if err != nil {
		return nil, fmt.Errorf("load batches for product %d: %w", line.ProductID, err)
	}

	alloc := batch.Allocate(line.ProductID, line.Qty,
		batch.UnitPrices{Unit: line.UnitPrice, Discount: line.DiscountPrice}, batches)

	if alloc.Shortfall > 0 {
		if s.config.Oversell == OversellReject {
			return nil, fmt.Errorf("%w: product %d short by %d", ErrInsufficientStock, line.ProductID, alloc.Shortfall)
		}
		s.log.Warn("продажа сверх остатка: количество без партии",
			"product_id", line.ProductID,
			"requested", line.Qty,
			"unbatched", alloc.Shortfall,
		)
	}

	for _, b := range alloc.Touched {
		if err := tx.UpdateBatch(ctx, b); err != nil {
			return nil, fmt.Errorf("update batch %d: %w", b.ID, err)
		}
	}

	items := make([]Item, 0, len(alloc.Drafts))
	for _, d := range alloc.Drafts {
		it := Item{
			SaleID:        saleID,
			ProductID:     d.ProductID,
			BatchID:       d.BatchID,
			BatchNumber:   d.BatchNumber,
			Qty:           d.Qty,
			UnitPrice:     d.UnitPrice,
			DiscountPrice: d.DiscountPrice,
		}
		if err := tx.InsertItem(ctx, &it); err != nil {
			return nil, fmt.Errorf("insert sale item: %w", err)
		}
		items = append(items, it)
	}

	return items, nil
}

// DeleteSale удаляет неотправленную продажу вместе с ее элементом очереди,
// затем строки и заголовок, в одной транзакции. Остатки партий не восстанавливаются.
func (s *Service) DeleteSale(ctx context.Context, id int64) error {
	var removed, dropped int64
	err := s.repo.WithinTx(ctx, func(tx Tx) error {
		synced, err := tx.SaleSynced(ctx, id)
		if err != nil {
			return err
		}
		if synced {
			return fmt.Errorf("%w: sale %d", ErrAlreadySynced, id)
		}

		dropped, err = tx.DropQueued(ctx, queue.EntitySale, strconv.FormatInt(id, 10))
		switch {
		case errors.Is(err, queue.ErrInFlight):
			return fmt.Errorf("%w: sale %d", ErrSyncInProgress, id)
		case errors.Is(err, queue.ErrDelivered):
			return fmt.Errorf("%w: sale %d", ErrAlreadySynced, id)
		case err != nil:
			return fmt.Errorf("drop queued sale: %w", err)
		}

		n, err := tx.DeleteItems(ctx, id)
		if err != nil {
			return fmt.Errorf("delete sale items: %w", err)
		}
		removed = n
		return tx.DeleteSale(ctx, id)
	})
	if err != nil {
		return err
	}

	s.log.Info("продажа удалена", "sale_id", id, "items", removed, "queue_items", dropped)
	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Sale, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Sale, error) {
	return s.repo.List(ctx, filter)
}

func (s *Service) MarkSynced(ctx context.Context, id int64) error {
	return s.repo.MarkSynced(ctx, id)
}

func (s *Service) MarkSyncFailed(ctx context.Context, id int64, cause error) error {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	return s.repo.MarkSyncFailed(ctx, id, msg)
}

func validate(lines []LineItem, totals Totals) error {
	if len(lines) == 0 {
		return apperr.Validation("items", "sale must have at least one item")
	}
	for i, l := range lines {
		field := fmt.Sprintf("items[%d]", i)
		switch {
		case l.ProductID <= 0:
			return apperr.Validation(field+".product_id", "must be positive")
		case l.Qty <= 0:
			return apperr.Validation(field+".qty", "must be positive, got %d", l.Qty)
		case l.UnitPrice < 0:
			return apperr.Validation(field+".unit_price", "must not be negative")
		case l.DiscountPrice < 0:
			return apperr.Validation(field+".discount_price", "must not be negative")
		case l.DiscountPrice > l.UnitPrice:
			return apperr.Validation(field+".discount_price", "%.2f exceeds unit price %.2f", l.DiscountPrice, l.UnitPrice)
		}
	}
	if totals.Total < 0 {
		return apperr.Validation("total", "must not be negative")
	}
	if totals.DiscountTotal < 0 || totals.DiscountTotal > totals.Total {
		return apperr.Validation("discount_total", "must be between 0 and total")
	}
	return nil
}
