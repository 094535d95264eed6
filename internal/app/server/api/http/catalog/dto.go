package catalog

import (
	"time"

	"stockkeeper/internal/domain/product"
	"stockkeeper/internal/domain/sale"
	"stockkeeper/internal/domain/stock"
)

type listInput struct {
	UpdatedSince string `query:"updated_since" doc:"UTC, формат 2006-01-02 15:04:05"`
}

type listOutput struct {
	Body ListResponse
}

// ListResponse совпадает по JSON с product.ListResponse клиента.
type ListResponse struct {
	Products   []product.Wire `json:"products"`
	ServerTime time.Time      `json:"server_time"`
}

type createInput struct {
	Body CreateRequest
}

type CreateRequest struct {
	Name           string  `json:"name" minLength:"1"`
	GenericName    string  `json:"generic_name,omitempty"`
	CompanyID      int64   `json:"company_id,omitempty"`
	CategoryID     int64   `json:"category_id,omitempty"`
	ReferencePrice float64 `json:"reference_price,omitempty"`
	DiscountPrice  float64 `json:"discount_price,omitempty"`
	PeakHourPrice  float64 `json:"peak_hour_price,omitempty"`
	OfferPrice     float64 `json:"offer_price,omitempty"`
	Stock          int     `json:"stock,omitempty"`
	StockAlert     int     `json:"stock_alert,omitempty"`
}

func (r CreateRequest) wire() product.Wire {
	return product.Wire{
		Name:           r.Name,
		GenericName:    r.GenericName,
		CompanyID:      r.CompanyID,
		CategoryID:     r.CategoryID,
		ReferencePrice: r.ReferencePrice,
		DiscountPrice:  r.DiscountPrice,
		PeakHourPrice:  r.PeakHourPrice,
		OfferPrice:     r.OfferPrice,
		Stock:          r.Stock,
		StockAlert:     r.StockAlert,
	}
}

type productOutput struct {
	Body product.Wire
}

type idInput struct {
	ID int64 `path:"id" minimum:"1"`
}

type priceInput struct {
	ID   int64 `path:"id" minimum:"1"`
	Body product.PriceRequest
}

type addStockInput struct {
	Body stock.AddRequest
}

type addStockOutput struct {
	Body stock.AddResponse
}

type saleInput struct {
	Body sale.PushRequest
}

type saleOutput struct {
	Body sale.PushResponse
}
