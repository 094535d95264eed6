package scheduler

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"stockkeeper/internal/domain/product"
	"stockkeeper/internal/domain/queue"
	"stockkeeper/internal/domain/sale"
	"stockkeeper/internal/domain/stock"
)

// callLog фиксирует порядок вызовов между разными моками.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, name)
}

func (l *callLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

type MockRemote struct {
	mock.Mock
	log *callLog
}

func (m *MockRemote) ListProducts(ctx context.Context, since time.Time) ([]json.RawMessage, time.Time, error) {
	m.log.add("list_products")
	args := m.Called(ctx, since)
	raws, _ := args.Get(0).([]json.RawMessage)
	serverTime, _ := args.Get(1).(time.Time)
	return raws, serverTime, args.Error(2)
}

func (m *MockRemote) UpdatePrices(ctx context.Context, id int64, req product.PriceRequest) (*product.Wire, error) {
	m.log.add("update_prices")
	args := m.Called(ctx, id, req)
	w, _ := args.Get(0).(*product.Wire)
	return w, args.Error(1)
}

func (m *MockRemote) AddStock(ctx context.Context, req stock.AddRequest) (*stock.AddResponse, error) {
	m.log.add("add_stock")
	args := m.Called(ctx, req)
	r, _ := args.Get(0).(*stock.AddResponse)
	return r, args.Error(1)
}

func (m *MockRemote) CreateSale(ctx context.Context, req sale.PushRequest) (*sale.PushResponse, error) {
	m.log.add("create_sale")
	args := m.Called(ctx, req)
	r, _ := args.Get(0).(*sale.PushResponse)
	return r, args.Error(1)
}

type MockQueue struct {
	mock.Mock
	log *callLog
}

func (m *MockQueue) Enqueue(ctx context.Context, entityType queue.EntityType, entityID string, action queue.Action, payload any) (*queue.Item, error) {
	m.log.add("enqueue")
	args := m.Called(ctx, entityType, entityID, action, payload)
	it, _ := args.Get(0).(*queue.Item)
	return it, args.Error(1)
}

func (m *MockQueue) Dequeue(ctx context.Context, limit int) ([]queue.Item, error) {
	m.log.add("dequeue")
	args := m.Called(ctx, limit)
	items, _ := args.Get(0).([]queue.Item)
	return items, args.Error(1)
}

func (m *MockQueue) MarkProcessing(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockQueue) MarkCompleted(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockQueue) MarkFailed(ctx context.Context, id int64, cause error) error {
	return m.Called(ctx, id, cause).Error(0)
}

func (m *MockQueue) RetryFailed(ctx context.Context) (int64, error) {
	m.log.add("retry_failed")
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockQueue) ClearCompleted(ctx context.Context) (int64, error) {
	m.log.add("clear_completed")
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockQueue) HasOpen(ctx context.Context, entityType queue.EntityType, entityID string) (bool, error) {
	args := m.Called(ctx, entityType, entityID)
	return args.Bool(0), args.Error(1)
}

type MockProducts struct {
	mock.Mock
	log *callLog
}

func (m *MockProducts) Dirty(ctx context.Context) ([]product.Product, error) {
	m.log.add("push_products")
	args := m.Called(ctx)
	ps, _ := args.Get(0).([]product.Product)
	return ps, args.Error(1)
}

func (m *MockProducts) ApplyRemote(ctx context.Context, raws []json.RawMessage, arbiter product.Arbiter) (product.UpsertResult, int, error) {
	m.log.add("apply_remote")
	args := m.Called(ctx, raws, arbiter)
	return args.Get(0).(product.UpsertResult), args.Int(1), args.Error(2)
}

func (m *MockProducts) MarkSynced(ctx context.Context, id, version int64) error {
	return m.Called(ctx, id, version).Error(0)
}

type MockSales struct {
	mock.Mock
}

func (m *MockSales) MarkSynced(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockSales) MarkSyncFailed(ctx context.Context, id int64, cause error) error {
	return m.Called(ctx, id, cause).Error(0)
}

type MockCheckpoint struct {
	mock.Mock
}

func (m *MockCheckpoint) LastPull() (time.Time, error) {
	args := m.Called()
	return args.Get(0).(time.Time), args.Error(1)
}

func (m *MockCheckpoint) SetLastPull(t time.Time) error {
	return m.Called(t).Error(0)
}
