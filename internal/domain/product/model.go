package product

import (
	"encoding/json"
	"time"
)

type Status string

const (
	StatusActive  Status = "active"
	StatusDeleted Status = "deleted"
)

// Prices - четыре независимых цены товара.
type Prices struct {
	Reference float64 `json:"reference_price"`
	Discount  float64 `json:"discount_price"`
	PeakHour  float64 `json:"peak_hour_price"`
	Offer     float64 `json:"offer_price"`
}

// Product - локальная копия товара из каталога удаленного сервиса.
type Product struct {
	ID             int64
	Name           string
	GenericName    string
	CompanyID      int64
	CategoryID     int64
	Prices         Prices
	Stock          int
	StockAlert     int
	Status         Status
	Version        int64
	IsDirty        bool
	LastModifiedAt time.Time
	LastSyncedAt   *time.Time
	RawPayload     json.RawMessage
}

func (p *Product) IsDeleted() bool {
	return p.Status == StatusDeleted
}

func (p *Product) LowStock() bool {
	return p.StockAlert > 0 && p.Stock <= p.StockAlert
}

// UpsertResult - итог пакетного upsert при pull.
type UpsertResult struct {
	Inserted  int
	Updated   int
	Stale     int
	KeptLocal int
}

func (r UpsertResult) Applied() int {
	return r.Inserted + r.Updated
}

// Arbiter решает конфликт между грязной локальной записью и входящей удаленной.
// true - оставить локальную.
type Arbiter func(local, remote *Product) (keepLocal bool)
