// Package catalog - серверная сторона синхронизации: каталог товаров,
// прием поступлений и продаж от клиентов, рассылка изменений остатков.
package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/exp/slog"

	"stockkeeper/internal/domain/apperr"
	"stockkeeper/internal/domain/product"
	"stockkeeper/internal/domain/sale"
	"stockkeeper/internal/domain/stock"
)

type Servicer interface {
	List(ctx context.Context, since time.Time) ([]product.Wire, time.Time, error)
	Create(ctx context.Context, w product.Wire) (product.Wire, error)
	UpdatePrices(ctx context.Context, id int64, req product.PriceRequest) (product.Wire, error)
	Delete(ctx context.Context, id int64) error
	AddStock(ctx context.Context, req stock.AddRequest) (stock.AddResponse, error)
	CreateSale(ctx context.Context, req sale.PushRequest) (sale.PushResponse, error)
}

type Service struct {
	repo      Repository
	publisher Publisher
	log       *slog.Logger
	now       func() time.Time
}

func NewService(repo Repository, publisher Publisher, log *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		log:       log.With("component", "catalog_service"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// List возвращает товары, измененные после since, и серверное время запроса.
func (s *Service) List(ctx context.Context, since time.Time) ([]product.Wire, time.Time, error) {
	serverTime := s.now()

	products, err := s.repo.ListSince(ctx, since)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("list products: %w", err)
	}

	out := make([]product.Wire, 0, len(products))
	for _, p := range products {
		out = append(out, product.ToWire(p))
	}
	return out, serverTime, nil
}

func (s *Service) Create(ctx context.Context, w product.Wire) (product.Wire, error) {
	if strings.TrimSpace(w.Name) == "" {
		return product.Wire{}, apperr.Validation("name", "is required")
	}
	prices := product.Prices{
		Reference: w.ReferencePrice,
		Discount:  w.DiscountPrice,
		PeakHour:  w.PeakHourPrice,
		Offer:     w.OfferPrice,
	}
	if err := product.ValidatePrices(prices); err != nil {
		return product.Wire{}, err
	}
	if w.Stock < 0 {
		return product.Wire{}, apperr.Validation("stock", "must not be negative")
	}

	p, err := s.repo.Create(ctx, product.Product{
		Name:        strings.TrimSpace(w.Name),
		GenericName: w.GenericName,
		CompanyID:   w.CompanyID,
		CategoryID:  w.CategoryID,
		Prices:      prices,
		Stock:       w.Stock,
		StockAlert:  w.StockAlert,
		Status:      product.StatusActive,
	}, s.now())
	if err != nil {
		return product.Wire{}, fmt.Errorf("create product: %w", err)
	}

	s.publish(product.EventAddNewStock, p)
	s.log.Info("товар создан", "product_id", p.ID)
	return product.ToWire(p), nil
}

// UpdatePrices принимает правку цен от клиента. Новая версия строго больше
// и серверной, и клиентской, поэтому следующая выгрузка клиента ее примет.
func (s *Service) UpdatePrices(ctx context.Context, id int64, req product.PriceRequest) (product.Wire, error) {
	if err := product.ValidatePrices(req.Prices); err != nil {
		return product.Wire{}, err
	}

	p, err := s.repo.UpdatePrices(ctx, id, req.Version, req.Prices, s.now())
	if err != nil {
		return product.Wire{}, err
	}

	s.publish(product.EventUpdateStock, p)
	s.log.Info("цены обновлены", "product_id", id, "version", p.Version)
	return product.ToWire(p), nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	p, err := s.repo.Delete(ctx, id, s.now())
	if err != nil {
		return err
	}

	s.publish(product.EventDeleteStock, p)
	s.log.Info("товар удален", "product_id", id)
	return nil
}

func (s *Service) AddStock(ctx context.Context, req stock.AddRequest) (stock.AddResponse, error) {
	if strings.TrimSpace(req.RequestID) == "" {
		return stock.AddResponse{}, apperr.Validation("request_id", "is required")
	}
	if err := req.Validate(); err != nil {
		return stock.AddResponse{}, err
	}
	req.BatchNumber = strings.TrimSpace(req.BatchNumber)

	p, duplicate, err := s.repo.AddStock(ctx, req, s.now())
	if err != nil {
		return stock.AddResponse{}, err
	}

	if duplicate {
		s.log.Debug("поступление уже применено", "request_id", req.RequestID)
	} else {
		s.publish(product.EventAddNewStock, p)
	}

	return stock.AddResponse{
		ProductID: p.ID,
		Stock:     p.Stock,
		Version:   p.Version,
		Duplicate: duplicate,
	}, nil
}

func (s *Service) CreateSale(ctx context.Context, req sale.PushRequest) (sale.PushResponse, error) {
	if err := validateSale(req); err != nil {
		return sale.PushResponse{}, err
	}

	id, touched, duplicate, err := s.repo.CreateSale(ctx, req, s.now())
	if err != nil {
		return sale.PushResponse{}, err
	}

	if duplicate {
		s.log.Debug("продажа уже принята", "transaction_id", req.TransactionID)
	} else {
		for _, p := range touched {
			s.publish(product.EventUpdateStock, p)
		}
		s.log.Info("продажа принята", "sale_id", id, "transaction_id", req.TransactionID, "items", len(req.Items))
	}

	return sale.PushResponse{ID: id, TransactionID: req.TransactionID, Duplicate: duplicate}, nil
}

func (s *Service) publish(t product.EventType, p product.Product) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(product.StockEvent{
		Type:       t,
		ProductID:  p.ID,
		Stock:      p.Stock,
		Prices:     p.Prices,
		ServerTime: p.LastModifiedAt,
	})
}

func validateSale(req sale.PushRequest) error {
	if strings.TrimSpace(req.TransactionID) == "" {
		return apperr.Validation("transaction_id", "is required")
	}
	if len(req.Items) == 0 {
		return apperr.Validation("items", "sale must have at least one item")
	}
	for i, it := range req.Items {
		if it.ProductID <= 0 {
			return apperr.Validation(fmt.Sprintf("items[%d].product_id", i), "must be positive")
		}
		if it.Qty <= 0 {
			return apperr.Validation(fmt.Sprintf("items[%d].qty", i), "must be positive, got %d", it.Qty)
		}
	}
	return nil
}
