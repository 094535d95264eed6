package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"stockkeeper/internal/app/server/api/http/httperr"
	"stockkeeper/internal/domain/catalog"
	"stockkeeper/internal/domain/product"
)

type Handler struct {
	service    catalog.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service catalog.Servicer, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		log:        log.With("component", "catalog_handler"),
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.listOp(), h.list)
	huma.Register(api, h.createOp(), h.create)
	huma.Register(api, h.deleteOp(), h.delete)
	huma.Register(api, h.priceOp(), h.updatePrices)
	huma.Register(api, h.addStockOp(), h.addStock)
	huma.Register(api, h.createSaleOp(), h.createSale)
}

func (h *Handler) list(ctx context.Context, input *listInput) (*listOutput, error) {
	var since time.Time
	if raw := strings.TrimSpace(input.UpdatedSince); raw != "" {
		t, err := time.ParseInLocation(product.SinceLayout, raw, time.UTC)
		if err != nil {
			return nil, huma.Error400BadRequest("updated_since: expected " + product.SinceLayout)
		}
		since = t
	}

	products, serverTime, err := h.service.List(ctx, since)
	if err != nil {
		return nil, httperr.From(h.log, "list products", err)
	}

	return &listOutput{
		Body: ListResponse{Products: products, ServerTime: serverTime},
	}, nil
}

func (h *Handler) create(ctx context.Context, input *createInput) (*productOutput, error) {
	w, err := h.service.Create(ctx, input.Body.wire())
	if err != nil {
		return nil, httperr.From(h.log, "create product", err)
	}
	return &productOutput{Body: w}, nil
}

func (h *Handler) delete(ctx context.Context, input *idInput) (*struct{}, error) {
	if err := h.service.Delete(ctx, input.ID); err != nil {
		return nil, httperr.From(h.log, "delete product", err)
	}
	return &struct{}{}, nil
}

func (h *Handler) updatePrices(ctx context.Context, input *priceInput) (*productOutput, error) {
	w, err := h.service.UpdatePrices(ctx, input.ID, input.Body)
	if err != nil {
		return nil, httperr.From(h.log, "update prices", err)
	}
	return &productOutput{Body: w}, nil
}

func (h *Handler) addStock(ctx context.Context, input *addStockInput) (*addStockOutput, error) {
	resp, err := h.service.AddStock(ctx, input.Body)
	if err != nil {
		return nil, httperr.From(h.log, "add stock", err)
	}
	return &addStockOutput{Body: resp}, nil
}

func (h *Handler) createSale(ctx context.Context, input *saleInput) (*saleOutput, error) {
	resp, err := h.service.CreateSale(ctx, input.Body)
	if err != nil {
		return nil, httperr.From(h.log, "create sale", err)
	}
	return &saleOutput{Body: resp}, nil
}
