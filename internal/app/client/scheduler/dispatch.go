package scheduler

import (
	"context"
	"fmt"

	"stockkeeper/internal/domain/product"
	"stockkeeper/internal/domain/queue"
	"stockkeeper/internal/domain/sale"
	"stockkeeper/internal/domain/stock"
)

// ProductPayload - элемент очереди product/update: цены и версия на момент постановки.
type ProductPayload struct {
	ProductID int64 `json:"product_id"`
	product.PriceRequest
}

// dispatch выполняет один удаленный вызов по типу сущности и действию.
func (s *Scheduler) dispatch(ctx context.Context, item queue.Item) error {
	callCtx, cancel := context.WithTimeout(ctx, s.config.RemoteTimeout)
	defer cancel()

	switch {
	case item.EntityType == queue.EntityProduct && item.Action == queue.ActionUpdate:
		return s.pushProduct(ctx, callCtx, item)
	case item.EntityType == queue.EntitySale && item.Action == queue.ActionCreate:
		return s.pushSale(ctx, callCtx, item)
	case item.EntityType == queue.EntityStock && item.Action == queue.ActionCreate:
		return s.pushStock(callCtx, item)
	}

	return fmt.Errorf("unsupported queue item %s/%s", item.EntityType, item.Action)
}

func (s *Scheduler) pushProduct(ctx, callCtx context.Context, item queue.Item) error {
	var p ProductPayload
	if err := item.Decode(&p); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	if _, err := s.remote.UpdatePrices(callCtx, p.ProductID, p.PriceRequest); err != nil {
		return err
	}

	// флаг снимается, только если после постановки не было новых правок
	if err := s.products.MarkSynced(ctx, p.ProductID, p.Version); err != nil {
		s.log.Warn("не удалось отметить товар синхронизированным", "product_id", p.ProductID, "error", err)
	}
	return nil
}

func (s *Scheduler) pushSale(ctx, callCtx context.Context, item queue.Item) error {
	var p sale.QueuePayload
	if err := item.Decode(&p); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	if _, err := s.remote.CreateSale(callCtx, p.Request); err != nil {
		if markErr := s.sales.MarkSyncFailed(ctx, p.SaleID, err); markErr != nil {
			s.log.Warn("не удалось отметить ошибку синхронизации продажи", "sale_id", p.SaleID, "error", markErr)
		}
		return err
	}

	if err := s.sales.MarkSynced(ctx, p.SaleID); err != nil {
		s.log.Warn("не удалось отметить продажу синхронизированной", "sale_id", p.SaleID, "error", err)
	}
	return nil
}

func (s *Scheduler) pushStock(callCtx context.Context, item queue.Item) error {
	var req stock.AddRequest
	if err := item.Decode(&req); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	_, err := s.remote.AddStock(callCtx, req)
	return err
}
