package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"stockkeeper/internal/domain/queue"
)

func newTestQueue(t *testing.T, maxRetries int) (*queue.Queue, *QueueRepository) {
	t.Helper()

	repo := NewQueueRepository(newTestStorage(t))
	return queue.New(repo, slog.Default(), &queue.Config{MaxRetries: maxRetries}), repo
}

func TestQueueRepository_FIFO(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue(t, 3)

	for _, id := range []string{"1", "2", "3"} {
		_, err := q.Enqueue(ctx, queue.EntityProduct, id, queue.ActionUpdate, map[string]string{"id": id})
		require.NoError(t, err)
	}

	items, err := q.Dequeue(ctx, 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "1", items[0].EntityID)
	assert.Equal(t, "2", items[1].EntityID)
	assert.Equal(t, queue.StatusPending, items[0].Status)
	assert.NotEmpty(t, items[0].UID)
	assert.JSONEq(t, `{"id":"1"}`, string(items[0].Payload))
}

func TestQueueRepository_Transitions(t *testing.T) {
	ctx := context.Background()
	q, repo := newTestQueue(t, 3)

	item, err := q.Enqueue(ctx, queue.EntitySale, "7", queue.ActionCreate, struct{}{})
	require.NoError(t, err)

	// completed только из processing
	assert.ErrorIs(t, q.MarkCompleted(ctx, item.ID), queue.ErrInvalidTransition)
	assert.ErrorIs(t, q.MarkProcessing(ctx, 999), queue.ErrNotFound)

	require.NoError(t, q.MarkProcessing(ctx, item.ID))
	open, err := q.HasOpen(ctx, queue.EntitySale, "7")
	require.NoError(t, err)
	assert.True(t, open)

	require.NoError(t, q.MarkFailed(ctx, item.ID, errors.New("server down")))

	got, err := repo.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, queue.StatusFailed, got.Status)
	assert.Equal(t, 1, got.RetryCount)
	require.NotNil(t, got.Error)
	assert.Equal(t, "server down", *got.Error)

	n, err := q.RetryFailed(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, q.MarkProcessing(ctx, item.ID))
	require.NoError(t, q.MarkCompleted(ctx, item.ID))

	got, err = repo.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, queue.StatusCompleted, got.Status)
	assert.Nil(t, got.Error)

	open, err = q.HasOpen(ctx, queue.EntitySale, "7")
	require.NoError(t, err)
	assert.False(t, open)

	cleared, err := q.ClearCompleted(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), cleared)

	_, err = repo.Get(ctx, item.ID)
	assert.ErrorIs(t, err, queue.ErrNotFound)
}

func TestQueueRepository_BoundedRetry(t *testing.T) {
	ctx := context.Background()
	q, repo := newTestQueue(t, 2)

	item, err := q.Enqueue(ctx, queue.EntityStock, "3", queue.ActionCreate, struct{}{})
	require.NoError(t, err)

	for attempt := 1; attempt <= 2; attempt++ {
		require.NoError(t, q.MarkProcessing(ctx, item.ID))
		require.NoError(t, q.MarkFailed(ctx, item.ID, errors.New("boom")))
		_, err := q.RetryFailed(ctx)
		require.NoError(t, err)
	}

	got, err := repo.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, queue.StatusFailed, got.Status, "exhausted item stays failed")
	assert.Equal(t, 2, got.RetryCount)

	pending, err := q.Dequeue(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	st, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, queue.Stats{Failed: 1, Exhausted: 1}, st)
}

func TestQueueRepository_ExhaustedBlocksUntilReset(t *testing.T) {
	ctx := context.Background()
	q, repo := newTestQueue(t, 1)

	item, err := q.Enqueue(ctx, queue.EntityProduct, "4", queue.ActionUpdate, struct{}{})
	require.NoError(t, err)
	require.NoError(t, q.MarkProcessing(ctx, item.ID))
	require.NoError(t, q.MarkFailed(ctx, item.ID, errors.New("rejected")))

	n, err := q.RetryFailed(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	// исчерпанный элемент по-прежнему считается открытым
	open, err := q.HasOpen(ctx, queue.EntityProduct, "4")
	require.NoError(t, err)
	assert.True(t, open)

	n, err = q.ResetExhausted(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := repo.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, queue.StatusPending, got.Status)
	assert.Zero(t, got.RetryCount)
	assert.Nil(t, got.Error)

	st, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, queue.Stats{Pending: 1}, st)
}

func TestQueueRepository_FailInterrupted(t *testing.T) {
	ctx := context.Background()
	q, repo := newTestQueue(t, 3)

	a, err := q.Enqueue(ctx, queue.EntityProduct, "1", queue.ActionUpdate, struct{}{})
	require.NoError(t, err)
	b, err := q.Enqueue(ctx, queue.EntityProduct, "2", queue.ActionUpdate, struct{}{})
	require.NoError(t, err)
	require.NoError(t, q.MarkProcessing(ctx, a.ID))

	n, err := q.FailInterrupted(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := repo.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, queue.StatusFailed, got.Status)
	require.NotNil(t, got.Error)
	assert.Equal(t, "interrupted", *got.Error)

	st, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, queue.Stats{Pending: 1, Failed: 1}, st)

	items, err := q.List(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, b.ID, items[1].ID)
}
