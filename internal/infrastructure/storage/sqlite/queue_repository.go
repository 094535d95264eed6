package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"stockkeeper/internal/domain/apperr"
	"stockkeeper/internal/domain/queue"
)

const queueColumns = `id, uid, entity_type, entity_id, action, payload, status, retry_count, error, created_at, updated_at`

type QueueRepository struct {
	s *Storage
}

func NewQueueRepository(s *Storage) *QueueRepository {
	return &QueueRepository{s: s}
}

func insertQueueItem(ctx context.Context, ex executor, item *queue.Item) error {
	res, err := ex.ExecContext(ctx, `
		INSERT INTO sync_queue (uid, entity_type, entity_id, action, payload, status, retry_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.UID, string(item.EntityType), item.EntityID, string(item.Action), string(item.Payload),
		string(item.Status), item.RetryCount, formatTime(item.CreatedAt), formatTime(item.UpdatedAt))
	if err != nil {
		return apperr.Storage("enqueue", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return apperr.Storage("enqueue", err)
	}
	item.ID = id
	return nil
}

func scanQueueItem(row scanner) (*queue.Item, error) {
	var (
		it                 queue.Item
		entityType, action string
		payload, status    string
		errMsg             sql.NullString
		created, updated   string
	)
	if err := row.Scan(&it.ID, &it.UID, &entityType, &it.EntityID, &action, &payload, &status,
		&it.RetryCount, &errMsg, &created, &updated); err != nil {
		return nil, err
	}

	it.EntityType = queue.EntityType(entityType)
	it.Action = queue.Action(action)
	it.Payload = []byte(payload)
	it.Status = queue.Status(status)
	if errMsg.Valid {
		it.Error = &errMsg.String
	}

	var err error
	if it.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if it.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *QueueRepository) Insert(ctx context.Context, item *queue.Item) error {
	return insertQueueItem(ctx, r.s.db, item)
}

func (r *QueueRepository) ListPending(ctx context.Context, limit int) ([]queue.Item, error) {
	return r.List(ctx, queue.StatusPending, limit)
}

func (r *QueueRepository) List(ctx context.Context, status queue.Status, limit int) ([]queue.Item, error) {
	query := `SELECT ` + queueColumns + ` FROM sync_queue`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at, id`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Storage("list queue", err)
	}
	defer rows.Close()

	var out []queue.Item
	for rows.Next() {
		it, err := scanQueueItem(rows)
		if err != nil {
			return nil, apperr.Storage("scan queue item", err)
		}
		out = append(out, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("list queue", err)
	}
	return out, nil
}

func (r *QueueRepository) Get(ctx context.Context, id int64) (*queue.Item, error) {
	row := r.s.db.QueryRowContext(ctx, `SELECT `+queueColumns+` FROM sync_queue WHERE id = ?`, id)
	it, err := scanQueueItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, queue.ErrNotFound
	}
	if err != nil {
		return nil, apperr.Storage("get queue item", err)
	}
	return it, nil
}

func (r *QueueRepository) Transition(ctx context.Context, id int64, from, to queue.Status, errMsg *string, at time.Time) error {
	var (
		res sql.Result
		err error
	)
	switch to {
	case queue.StatusFailed:
		res, err = r.s.db.ExecContext(ctx, `
			UPDATE sync_queue SET status = ?, error = ?, retry_count = retry_count + 1, updated_at = ?
			WHERE id = ? AND status = ?`,
			string(to), errMsg, formatTime(at), id, string(from))
	case queue.StatusCompleted:
		res, err = r.s.db.ExecContext(ctx, `
			UPDATE sync_queue SET status = ?, error = NULL, updated_at = ?
			WHERE id = ? AND status = ?`,
			string(to), formatTime(at), id, string(from))
	default:
		res, err = r.s.db.ExecContext(ctx, `
			UPDATE sync_queue SET status = ?, updated_at = ?
			WHERE id = ? AND status = ?`,
			string(to), formatTime(at), id, string(from))
	}
	if err != nil {
		return apperr.Storage("queue transition", err)
	}

	n, err := rowsAffected(res, "queue transition")
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
		return queue.ErrInvalidTransition
	}
	return nil
}

func (r *QueueRepository) ResetFailed(ctx context.Context, maxRetries int, at time.Time) (int64, error) {
	res, err := r.s.db.ExecContext(ctx, `
		UPDATE sync_queue SET status = ?, updated_at = ?
		WHERE status = ? AND retry_count < ?`,
		string(queue.StatusPending), formatTime(at), string(queue.StatusFailed), maxRetries)
	if err != nil {
		return 0, apperr.Storage("retry failed", err)
	}
	return rowsAffected(res, "retry failed")
}

// ResetExhausted возвращает в pending failed элементы, исчерпавшие попытки, и обнуляет счетчик.
func (r *QueueRepository) ResetExhausted(ctx context.Context, maxRetries int, at time.Time) (int64, error) {
	res, err := r.s.db.ExecContext(ctx, `
		UPDATE sync_queue SET status = ?, retry_count = 0, error = NULL, updated_at = ?
		WHERE status = ? AND retry_count >= ?`,
		string(queue.StatusPending), formatTime(at), string(queue.StatusFailed), maxRetries)
	if err != nil {
		return 0, apperr.Storage("reset exhausted", err)
	}
	return rowsAffected(res, "reset exhausted")
}

func (r *QueueRepository) DeleteCompleted(ctx context.Context) (int64, error) {
	res, err := r.s.db.ExecContext(ctx, `DELETE FROM sync_queue WHERE status = ?`, string(queue.StatusCompleted))
	if err != nil {
		return 0, apperr.Storage("clear completed", err)
	}
	return rowsAffected(res, "clear completed")
}

// HasOpen учитывает и failed: исчерпанный элемент ждет ручного повтора, а не новой постановки.
func (r *QueueRepository) HasOpen(ctx context.Context, entityType queue.EntityType, entityID string) (bool, error) {
	var exists bool
	err := r.s.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM sync_queue
			WHERE entity_type = ? AND entity_id = ? AND status IN (?, ?, ?)
		)`,
		string(entityType), entityID,
		string(queue.StatusPending), string(queue.StatusProcessing), string(queue.StatusFailed)).Scan(&exists)
	if err != nil {
		return false, apperr.Storage("queue has open", err)
	}
	return exists, nil
}

func (r *QueueRepository) FailProcessing(ctx context.Context, reason string, at time.Time) (int64, error) {
	res, err := r.s.db.ExecContext(ctx, `
		UPDATE sync_queue SET status = ?, error = ?, retry_count = retry_count + 1, updated_at = ?
		WHERE status = ?`,
		string(queue.StatusFailed), reason, formatTime(at), string(queue.StatusProcessing))
	if err != nil {
		return 0, apperr.Storage("fail processing", err)
	}
	return rowsAffected(res, "fail processing")
}

func (r *QueueRepository) Stats(ctx context.Context, maxRetries int) (queue.Stats, error) {
	var st queue.Stats

	rows, err := r.s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM sync_queue GROUP BY status`)
	if err != nil {
		return st, apperr.Storage("queue stats", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return st, apperr.Storage("queue stats", err)
		}
		switch queue.Status(status) {
		case queue.StatusPending:
			st.Pending = n
		case queue.StatusProcessing:
			st.Processing = n
		case queue.StatusCompleted:
			st.Completed = n
		case queue.StatusFailed:
			st.Failed = n
		}
	}
	if err := rows.Err(); err != nil {
		return st, apperr.Storage("queue stats", err)
	}

	err = r.s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sync_queue WHERE status = ? AND retry_count >= ?`,
		string(queue.StatusFailed), maxRetries).Scan(&st.Exhausted)
	if err != nil {
		return st, apperr.Storage("queue stats", err)
	}

	return st, nil
}
