package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"stockkeeper/internal/domain/product"
	"stockkeeper/internal/domain/queue"
	"stockkeeper/internal/domain/sale"
)

var errInjected = errors.New("injected failure")

// failingRepo отдает транзакцию, в которой n-я вставка строки продажи падает.
type failingRepo struct {
	*SaleRepository
	failOn int
}

func (r *failingRepo) WithinTx(ctx context.Context, fn func(tx sale.Tx) error) error {
	return r.SaleRepository.WithinTx(ctx, func(tx sale.Tx) error {
		return fn(&failingTx{Tx: tx, failOn: r.failOn})
	})
}

type failingTx struct {
	sale.Tx
	failOn int
	calls  int
}

func (t *failingTx) InsertItem(ctx context.Context, it *sale.Item) error {
	t.calls++
	if t.calls == t.failOn {
		return errInjected
	}
	return t.Tx.InsertItem(ctx, it)
}

type saleFixture struct {
	s       *Storage
	repo    *SaleRepository
	batches map[string]int64
}

func newSaleFixture(t *testing.T) *saleFixture {
	t.Helper()

	s := newTestStorage(t)
	seedProduct(t, s, product.Product{ID: 1, Name: "Paracetamol", Version: 1, Stock: 8})
	seedProduct(t, s, product.Product{ID: 2, Name: "Ibuprofen", Version: 1, Stock: 4})

	expiry := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return &saleFixture{
		s:    s,
		repo: NewSaleRepository(s),
		batches: map[string]int64{
			"P-A": seedBatch(t, s, 1, "P-A", expiry, 5),
			"P-B": seedBatch(t, s, 1, "P-B", expiry.AddDate(0, 6, 0), 3),
			"I-A": seedBatch(t, s, 2, "I-A", expiry, 4),
		},
	}
}

func (f *saleFixture) available(t *testing.T, number string) (int, string) {
	t.Helper()

	var (
		n      int
		status string
	)
	require.NoError(t, f.s.db.QueryRow(
		`SELECT available, status FROM batches WHERE id = ?`, f.batches[number]).Scan(&n, &status))
	return n, status
}

func TestSaleRepository_CreateSaleAllocatesFEFO(t *testing.T) {
	ctx := context.Background()
	f := newSaleFixture(t)
	svc := sale.NewService(f.repo, slog.Default(), nil)

	created, err := svc.CreateSale(ctx, "walk-in", []sale.LineItem{
		{ProductID: 1, Qty: 6, UnitPrice: 2, DiscountPrice: 1.5},
	}, sale.Totals{Total: 12, DiscountTotal: 3})
	require.NoError(t, err)
	require.Len(t, created.Items, 2)

	n, status := f.available(t, "P-A")
	assert.Equal(t, 0, n)
	assert.Equal(t, "used", status)
	n, status = f.available(t, "P-B")
	assert.Equal(t, 2, n)
	assert.Equal(t, "open", status)

	assert.Equal(t, 2, count(t, f.s, `SELECT stock FROM products WHERE id = 1`))

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "P-A", got.Items[0].BatchNumber)
	assert.Equal(t, 5, got.Items[0].Qty)
	assert.Equal(t, "P-B", got.Items[1].BatchNumber)
	assert.Equal(t, 1, got.Items[1].Qty)
	assert.False(t, got.IsSynced)

	items, err := NewQueueRepository(f.s).List(ctx, queue.StatusPending, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, queue.EntitySale, items[0].EntityType)

	var payload sale.QueuePayload
	require.NoError(t, items[0].Decode(&payload))
	assert.Equal(t, created.ID, payload.SaleID)
	assert.Equal(t, created.TransactionID, payload.Request.TransactionID)
	assert.Len(t, payload.Request.Items, 2)
}

func TestSaleRepository_OversellAllowedWithoutBatch(t *testing.T) {
	ctx := context.Background()
	f := newSaleFixture(t)
	svc := sale.NewService(f.repo, slog.Default(), nil)

	created, err := svc.CreateSale(ctx, "", []sale.LineItem{
		{ProductID: 1, Qty: 10, UnitPrice: 2},
	}, sale.Totals{Total: 20})
	require.NoError(t, err)
	require.Len(t, created.Items, 3)
	assert.Nil(t, created.Items[2].BatchID)
	assert.Equal(t, 2, created.Items[2].Qty)

	// остаток товара не уходит в минус
	assert.Equal(t, 0, count(t, f.s, `SELECT stock FROM products WHERE id = 1`))
}

func TestSaleRepository_OversellRejectRollsBack(t *testing.T) {
	ctx := context.Background()
	f := newSaleFixture(t)
	svc := sale.NewService(f.repo, slog.Default(), &sale.Config{Oversell: sale.OversellReject})

	_, err := svc.CreateSale(ctx, "", []sale.LineItem{
		{ProductID: 1, Qty: 10, UnitPrice: 2},
	}, sale.Totals{Total: 20})
	require.ErrorIs(t, err, sale.ErrInsufficientStock)

	assert.Equal(t, 0, count(t, f.s, `SELECT COUNT(*) FROM sales`))
	assert.Equal(t, 8, count(t, f.s, `SELECT stock FROM products WHERE id = 1`))
}

func TestSaleRepository_CreateSaleIsAtomic(t *testing.T) {
	ctx := context.Background()
	f := newSaleFixture(t)
	svc := sale.NewService(&failingRepo{SaleRepository: f.repo, failOn: 3}, slog.Default(), nil)

	// четыре строки: P-A, P-B, I-A и строка без партии
	_, err := svc.CreateSale(ctx, "", []sale.LineItem{
		{ProductID: 1, Qty: 6, UnitPrice: 2},
		{ProductID: 2, Qty: 5, UnitPrice: 3},
	}, sale.Totals{Total: 27})
	require.ErrorIs(t, err, errInjected)

	assert.Equal(t, 0, count(t, f.s, `SELECT COUNT(*) FROM sales`))
	assert.Equal(t, 0, count(t, f.s, `SELECT COUNT(*) FROM sale_items`))
	assert.Equal(t, 0, count(t, f.s, `SELECT COUNT(*) FROM sync_queue`))
	assert.Equal(t, 8, count(t, f.s, `SELECT stock FROM products WHERE id = 1`))
	assert.Equal(t, 4, count(t, f.s, `SELECT stock FROM products WHERE id = 2`))

	for number, want := range map[string]int{"P-A": 5, "P-B": 3, "I-A": 4} {
		n, status := f.available(t, number)
		assert.Equal(t, want, n, number)
		assert.Equal(t, "boxed", status, number)
	}
}

func TestSaleRepository_UnknownProductRollsBack(t *testing.T) {
	ctx := context.Background()
	f := newSaleFixture(t)
	svc := sale.NewService(f.repo, slog.Default(), nil)

	_, err := svc.CreateSale(ctx, "", []sale.LineItem{
		{ProductID: 1, Qty: 1, UnitPrice: 2},
		{ProductID: 42, Qty: 1, UnitPrice: 2},
	}, sale.Totals{Total: 4})
	require.ErrorIs(t, err, sale.ErrUnknownProduct)

	assert.Equal(t, 0, count(t, f.s, `SELECT COUNT(*) FROM sales`))
	n, _ := f.available(t, "P-A")
	assert.Equal(t, 5, n)
}

func TestSaleRepository_DeleteSale(t *testing.T) {
	ctx := context.Background()
	f := newSaleFixture(t)
	svc := sale.NewService(f.repo, slog.Default(), nil)

	created, err := svc.CreateSale(ctx, "", []sale.LineItem{
		{ProductID: 2, Qty: 2, UnitPrice: 3},
	}, sale.Totals{Total: 6})
	require.NoError(t, err)
	assert.Equal(t, 1, count(t, f.s, `SELECT COUNT(*) FROM sync_queue WHERE entity_type = 'sale'`))

	require.NoError(t, svc.DeleteSale(ctx, created.ID))
	assert.ErrorIs(t, svc.DeleteSale(ctx, created.ID), sale.ErrNotFound)

	// удаленная продажа не уходит на сервер
	assert.Equal(t, 0, count(t, f.s, `SELECT COUNT(*) FROM sync_queue WHERE entity_type = 'sale'`))

	_, err = svc.Get(ctx, created.ID)
	assert.ErrorIs(t, err, sale.ErrNotFound)
	assert.Equal(t, 0, count(t, f.s, `SELECT COUNT(*) FROM sale_items`))

	// партии не восстанавливаются
	n, _ := f.available(t, "I-A")
	assert.Equal(t, 2, n)
}

func TestSaleRepository_DeleteSaleDropsFailedQueueItem(t *testing.T) {
	ctx := context.Background()
	f := newSaleFixture(t)
	svc := sale.NewService(f.repo, slog.Default(), nil)
	q := queue.New(NewQueueRepository(f.s), slog.Default(), nil)

	created, err := svc.CreateSale(ctx, "", []sale.LineItem{
		{ProductID: 1, Qty: 1, UnitPrice: 2},
	}, sale.Totals{Total: 2})
	require.NoError(t, err)

	items, err := q.Dequeue(ctx, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NoError(t, q.MarkProcessing(ctx, items[0].ID))

	// элемент уже передается
	assert.ErrorIs(t, svc.DeleteSale(ctx, created.ID), sale.ErrSyncInProgress)
	_, err = svc.Get(ctx, created.ID)
	require.NoError(t, err)

	require.NoError(t, q.MarkFailed(ctx, items[0].ID, errors.New("timeout")))
	require.NoError(t, svc.DeleteSale(ctx, created.ID))

	assert.Equal(t, 0, count(t, f.s, `SELECT COUNT(*) FROM sync_queue`))
}

func TestSaleRepository_DeleteSyncedSaleRejected(t *testing.T) {
	ctx := context.Background()
	f := newSaleFixture(t)
	svc := sale.NewService(f.repo, slog.Default(), nil)

	created, err := svc.CreateSale(ctx, "", []sale.LineItem{
		{ProductID: 2, Qty: 1, UnitPrice: 3},
	}, sale.Totals{Total: 3})
	require.NoError(t, err)
	require.NoError(t, svc.MarkSynced(ctx, created.ID))

	assert.ErrorIs(t, svc.DeleteSale(ctx, created.ID), sale.ErrAlreadySynced)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 1)
	assert.Equal(t, 1, count(t, f.s, `SELECT COUNT(*) FROM sync_queue WHERE entity_type = 'sale'`))
}

func TestSaleRepository_SyncFlags(t *testing.T) {
	ctx := context.Background()
	f := newSaleFixture(t)
	svc := sale.NewService(f.repo, slog.Default(), nil)

	created, err := svc.CreateSale(ctx, "", []sale.LineItem{
		{ProductID: 2, Qty: 1, UnitPrice: 3},
	}, sale.Totals{Total: 3})
	require.NoError(t, err)

	require.NoError(t, svc.MarkSyncFailed(ctx, created.ID, errors.New("502 bad gateway")))
	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, got.IsSynced)
	require.NotNil(t, got.SyncError)
	assert.Equal(t, "502 bad gateway", *got.SyncError)

	unsynced, err := svc.List(ctx, sale.ListFilter{UnsyncedOnly: true})
	require.NoError(t, err)
	assert.Len(t, unsynced, 1)

	require.NoError(t, svc.MarkSynced(ctx, created.ID))
	got, err = svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, got.IsSynced)
	assert.Nil(t, got.SyncError)

	unsynced, err = svc.List(ctx, sale.ListFilter{UnsyncedOnly: true})
	require.NoError(t, err)
	assert.Empty(t, unsynced)
}
