package product

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"stockkeeper/internal/domain/apperr"
)

// RemoteProduct - строго типизированное представление товара от удаленного сервиса.
// Отсутствующие поля получают детерминированные значения по умолчанию.
type RemoteProduct struct {
	ID          int64
	Name        string
	GenericName string
	CompanyID   int64
	CategoryID  int64
	Prices      Prices
	Stock       int
	StockAlert  int
	Status      Status
	Version     int64
	UpdatedAt   time.Time
	Raw         json.RawMessage
}

// Wire - формат товара в ответе GET /products.
type Wire struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	GenericName    string    `json:"generic_name"`
	CompanyID      int64     `json:"company_id"`
	CategoryID     int64     `json:"category_id"`
	ReferencePrice float64   `json:"reference_price"`
	DiscountPrice  float64   `json:"discount_price"`
	PeakHourPrice  float64   `json:"peak_hour_price"`
	OfferPrice     float64   `json:"offer_price"`
	Stock          int       `json:"stock"`
	StockAlert     int       `json:"stock_alert"`
	Status         string    `json:"status"`
	Version        int64     `json:"version"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// lenient принимает числа как числом, так и строкой ("12.50"), null и "" дают 0.
type lenient float64

func (n *lenient) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*n = 0
		return nil
	}

	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*n = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("not a number: %q", s)
		}
		*n = lenient(v)
		return nil
	}

	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*n = lenient(v)
	return nil
}

type rawProduct struct {
	ID             lenient `json:"id"`
	Name           *string `json:"name"`
	GenericName    *string `json:"generic_name"`
	CompanyID      lenient `json:"company_id"`
	CategoryID     lenient `json:"category_id"`
	ReferencePrice lenient `json:"reference_price"`
	DiscountPrice  lenient `json:"discount_price"`
	PeakHourPrice  lenient `json:"peak_hour_price"`
	OfferPrice     lenient `json:"offer_price"`
	Stock          lenient `json:"stock"`
	StockAlert     lenient `json:"stock_alert"`
	Status         *string `json:"status"`
	Version        lenient `json:"version"`
	UpdatedAt      *string `json:"updated_at"`
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// ParseRemote разбирает и валидирует один товар из ответа удаленного сервиса.
func ParseRemote(raw json.RawMessage) (RemoteProduct, error) {
	var in rawProduct
	if err := json.Unmarshal(raw, &in); err != nil {
		return RemoteProduct{}, apperr.Validation("product", "malformed payload: %v", err)
	}

	if in.ID <= 0 || float64(in.ID) != float64(int64(in.ID)) {
		return RemoteProduct{}, apperr.Validation("id", "must be a positive integer")
	}

	out := RemoteProduct{
		ID:          int64(in.ID),
		Name:        deref(in.Name),
		GenericName: deref(in.GenericName),
		CompanyID:   int64(in.CompanyID),
		CategoryID:  int64(in.CategoryID),
		Prices: Prices{
			Reference: nonNegative(float64(in.ReferencePrice)),
			Discount:  nonNegative(float64(in.DiscountPrice)),
			PeakHour:  nonNegative(float64(in.PeakHourPrice)),
			Offer:     nonNegative(float64(in.OfferPrice)),
		},
		Stock:      int(in.Stock),
		StockAlert: int(in.StockAlert),
		Status:     StatusActive,
		Version:    int64(in.Version),
		Raw:        append(json.RawMessage(nil), raw...),
	}

	if out.Version < 1 {
		out.Version = 1
	}
	if out.StockAlert < 0 {
		out.StockAlert = 0
	}
	if in.Status != nil && Status(*in.Status) == StatusDeleted {
		out.Status = StatusDeleted
	}
	if in.UpdatedAt != nil {
		out.UpdatedAt = parseTime(*in.UpdatedAt)
	}

	return out, nil
}

// ToProduct переводит удаленную запись в локальную модель: чистая, версия удаленная.
func (r RemoteProduct) ToProduct(syncedAt time.Time) Product {
	modified := r.UpdatedAt
	if modified.IsZero() {
		modified = syncedAt
	}
	synced := syncedAt

	return Product{
		ID:             r.ID,
		Name:           r.Name,
		GenericName:    r.GenericName,
		CompanyID:      r.CompanyID,
		CategoryID:     r.CategoryID,
		Prices:         r.Prices,
		Stock:          r.Stock,
		StockAlert:     r.StockAlert,
		Status:         r.Status,
		Version:        r.Version,
		IsDirty:        false,
		LastModifiedAt: modified,
		LastSyncedAt:   &synced,
		RawPayload:     r.Raw,
	}
}

// ToWire - обратное преобразование, используется эталонным сервером.
func ToWire(p Product) Wire {
	return Wire{
		ID:             p.ID,
		Name:           p.Name,
		GenericName:    p.GenericName,
		CompanyID:      p.CompanyID,
		CategoryID:     p.CategoryID,
		ReferencePrice: p.Prices.Reference,
		DiscountPrice:  p.Prices.Discount,
		PeakHourPrice:  p.Prices.PeakHour,
		OfferPrice:     p.Prices.Offer,
		Stock:          p.Stock,
		StockAlert:     p.StockAlert,
		Status:         string(p.Status),
		Version:        p.Version,
		UpdatedAt:      p.LastModifiedAt,
	}
}

func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
