package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockkeeper/internal/domain/product"
)

func remote(id, version int64, name string, modified time.Time) product.Product {
	synced := modified
	return product.Product{
		ID:             id,
		Name:           name,
		Prices:         product.Prices{Reference: 10},
		Stock:          5,
		Status:         product.StatusActive,
		Version:        version,
		LastModifiedAt: modified,
		LastSyncedAt:   &synced,
	}
}

func TestProductRepository_VersionGuardIdempotence(t *testing.T) {
	ctx := context.Background()
	repo := NewProductRepository(newTestStorage(t))

	incoming := remote(1, 3, "Aspirin", t0)

	res, err := repo.UpsertIfNewer(ctx, []product.Product{incoming}, nil)
	require.NoError(t, err)
	assert.Equal(t, product.UpsertResult{Inserted: 1}, res)

	// тот же payload повторно
	res, err = repo.UpsertIfNewer(ctx, []product.Product{incoming}, nil)
	require.NoError(t, err)
	assert.Equal(t, product.UpsertResult{Stale: 1}, res)

	// более старая версия
	older := remote(1, 2, "Aspirin old", t0)
	res, err = repo.UpsertIfNewer(ctx, []product.Product{older}, nil)
	require.NoError(t, err)
	assert.Equal(t, product.UpsertResult{Stale: 1}, res)

	got, err := repo.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.Version)
	assert.Equal(t, "Aspirin", got.Name)
	assert.False(t, got.IsDirty)

	newer := remote(1, 4, "Aspirin 500", t0.Add(time.Hour))
	res, err = repo.UpsertIfNewer(ctx, []product.Product{newer}, nil)
	require.NoError(t, err)
	assert.Equal(t, product.UpsertResult{Updated: 1}, res)

	got, err = repo.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(4), got.Version)
	assert.Equal(t, "Aspirin 500", got.Name)
}

func TestProductRepository_ArbiterKeepsDirtyLocal(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	repo := NewProductRepository(s)

	seedProduct(t, s, product.Product{ID: 2, Name: "local edit", Version: 1, IsDirty: true, LastModifiedAt: t0})

	var calls int
	keepLocal := func(local, remote *product.Product) bool {
		calls++
		return true
	}

	res, err := repo.UpsertIfNewer(ctx, []product.Product{remote(2, 5, "server", t0)}, keepLocal)
	require.NoError(t, err)
	assert.Equal(t, product.UpsertResult{KeptLocal: 1}, res)
	assert.Equal(t, 1, calls)

	got, err := repo.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "local edit", got.Name)
	assert.True(t, got.IsDirty)

	takeRemote := func(_, _ *product.Product) bool { return false }
	res, err = repo.UpsertIfNewer(ctx, []product.Product{remote(2, 5, "server", t0)}, takeRemote)
	require.NoError(t, err)
	assert.Equal(t, product.UpsertResult{Updated: 1}, res)

	got, err = repo.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "server", got.Name)
	assert.False(t, got.IsDirty)
}

func TestProductRepository_LocalEditAndMarkSynced(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	repo := NewProductRepository(s)

	seedProduct(t, s, product.Product{ID: 3, Name: "Vitamin C", Version: 2})

	prices := product.Prices{Reference: 4, Discount: 3.5}
	version, err := repo.SaveLocalEdit(ctx, 3, 2, prices, t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(3), version)

	_, err = repo.SaveLocalEdit(ctx, 3, 2, prices, t0)
	assert.ErrorIs(t, err, product.ErrVersionConflict)

	_, err = repo.SaveLocalEdit(ctx, 404, 1, prices, t0)
	assert.ErrorIs(t, err, product.ErrNotFound)

	dirty, err := repo.ListDirty(ctx)
	require.NoError(t, err)
	require.Len(t, dirty, 1)
	assert.Equal(t, prices, dirty[0].Prices)

	cleared, err := repo.MarkSynced(ctx, 3, 2, t0)
	require.NoError(t, err)
	assert.False(t, cleared, "stale version must not clear the dirty flag")

	cleared, err = repo.MarkSynced(ctx, 3, 3, t0)
	require.NoError(t, err)
	assert.True(t, cleared)

	dirty, err = repo.ListDirty(ctx)
	require.NoError(t, err)
	assert.Empty(t, dirty)
}

func TestProductRepository_ApplyStockSnapshot(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	repo := NewProductRepository(s)

	seedProduct(t, s, remote(4, 1, "Zinc", t0))

	prices := &product.Prices{Reference: 7, Offer: 6}
	applied, err := repo.ApplyStockSnapshot(ctx, 4, 30, prices, t0.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = repo.ApplyStockSnapshot(ctx, 4, 99, nil, t0.Add(30*time.Second))
	require.NoError(t, err)
	assert.False(t, applied, "older server time is ignored")

	got, err := repo.Get(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, 30, got.Stock)
	assert.Equal(t, *prices, got.Prices)

	applied, err = repo.ApplyStockSnapshot(ctx, 4, 12, nil, t0.Add(2*time.Minute))
	require.NoError(t, err)
	assert.True(t, applied)

	got, err = repo.Get(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, 12, got.Stock)
	assert.Equal(t, *prices, got.Prices, "prices untouched when snapshot carries none")
}

func TestProductRepository_TombstoneAndList(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	repo := NewProductRepository(s)

	seedProduct(t, s, product.Product{ID: 5, Name: "Bandage", Version: 1, Stock: 2, StockAlert: 3})
	seedProduct(t, s, product.Product{ID: 6, Name: "Cotton", Version: 1, Stock: 10, StockAlert: 3})

	low, err := repo.List(ctx, product.ListFilter{LowStockOnly: true})
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, int64(5), low[0].ID)

	require.NoError(t, repo.Tombstone(ctx, 5, t0))
	assert.ErrorIs(t, repo.Tombstone(ctx, 404, t0), product.ErrNotFound)

	active, err := repo.List(ctx, product.ListFilter{})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Cotton", active[0].Name)

	all, err := repo.List(ctx, product.ListFilter{IncludeDeleted: true, Search: "and"})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].IsDeleted())
}
