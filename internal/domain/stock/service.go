package stock

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"stockkeeper/internal/domain/batch"
	"stockkeeper/internal/domain/queue"
)

// Service - очередь поступлений: локальная партия, остаток товара и элемент
// очереди stock/create пишутся в одной транзакции.
type Service struct {
	repo  Repository
	log   *slog.Logger
	now   func() time.Time
	newID func() string
}

func NewService(repo Repository, log *slog.Logger) *Service {
	return &Service{
		repo:  repo,
		log:   log.With("component", "stock_queue"),
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

func (s *Service) AddStock(ctx context.Context, req AddRequest) (*AddResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	req.BatchNumber = strings.TrimSpace(req.BatchNumber)
	if req.RequestID == "" {
		req.RequestID = s.newID()
	}
	expiry, _ := req.Expiry()
	at := s.now()

	var res AddResult
	err := s.repo.WithinTx(ctx, func(tx Tx) error {
		if err := tx.IncrementStock(ctx, req.ProductID, req.Qty); err != nil {
			return fmt.Errorf("product %d: %w", req.ProductID, err)
		}

		b, err := tx.AddToBatch(ctx, req.ProductID, req.BatchNumber, expiry, req.Qty, at)
		if err != nil {
			return fmt.Errorf("add to batch %s: %w", req.BatchNumber, err)
		}
		res.Batch = b

		item, err := queue.EnqueueTo(ctx, tx, queue.EntityStock, strconv.FormatInt(req.ProductID, 10),
			queue.ActionCreate, req, at)
		if err != nil {
			return err
		}
		res.QueueID = item.ID

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("поступление добавлено",
		"product_id", req.ProductID,
		"batch", req.BatchNumber,
		"qty", req.Qty,
		"available", res.Batch.Available,
	)

	return &res, nil
}

// Import применяет строки поступления по одной; ошибочная строка не блокирует остальные.
func (s *Service) Import(ctx context.Context, rows []AddRequest) (ImportResult, error) {
	var res ImportResult
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if _, err := s.AddStock(ctx, row); err != nil {
			res.Failed = append(res.Failed, RowError{Row: i + 1, Err: err})
			s.log.Warn("строка поступления пропущена", "row", i+1, "error", err)
			continue
		}
		res.Added++
	}
	return res, nil
}

func (s *Service) Batches(ctx context.Context, productID int64) ([]batch.Batch, error) {
	return s.repo.Batches(ctx, productID)
}
