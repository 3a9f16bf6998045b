package store

import (
	"context"
	"time"

	"github.com/Tanishq67m/EventPulse/internal/model"
)

// UpsertRetryTask schedules the next attempt for an event. The unique
// constraint on event_id keeps at most one open task per event; a second
// schedule for the same event overwrites the first.
func (s *Store) UpsertRetryTask(ctx context.Context, eventID int64, attempt, maxAttempts int, dueAt time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO retry_tasks(event_id, attempt, max_attempts, due_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (event_id) DO UPDATE
		SET attempt = EXCLUDED.attempt,
		    max_attempts = EXCLUDED.max_attempts,
		    due_at = EXCLUDED.due_at`,
		eventID, attempt, maxAttempts, dueAt,
	)
	return err
}

// PopDueRetryTasks atomically claims and removes tasks whose due time has
// elapsed. SKIP LOCKED keeps concurrent dispatchers from claiming the same
// task.
func (s *Store) PopDueRetryTasks(ctx context.Context, now time.Time, limit int) ([]model.RetryTask, error) {
	rows, err := s.pool.Query(ctx, `
		DELETE FROM retry_tasks
		WHERE id IN (
			SELECT id FROM retry_tasks
			WHERE due_at <= $1
			ORDER BY due_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, event_id, attempt, max_attempts, due_at, created_at`,
		now, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.RetryTask
	for rows.Next() {
		var t model.RetryTask
		if err := rows.Scan(&t.ID, &t.EventID, &t.Attempt, &t.MaxAttempts, &t.DueAt, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DeleteRetryTask removes any open task for the event.
func (s *Store) DeleteRetryTask(ctx context.Context, eventID int64) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM retry_tasks WHERE event_id = $1`, eventID)
	return err
}
