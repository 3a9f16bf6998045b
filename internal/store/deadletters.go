package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/Tanishq67m/EventPulse/internal/model"
)

// InsertDeadLetter records an event as terminally failed.
func (s *Store) InsertDeadLetter(ctx context.Context, eventID int64, reason string) (*model.DeadLetter, error) {
	dl := &model.DeadLetter{EventID: eventID, Reason: reason}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO dead_letters(event_id, reason)
		VALUES ($1, $2)
		RETURNING id, created_at`,
		eventID, reason,
	).Scan(&dl.ID, &dl.CreatedAt)
	if err != nil {
		return nil, err
	}
	return dl, nil
}

// DeadLetterByID loads a single dead letter.
func (s *Store) DeadLetterByID(ctx context.Context, id int64) (*model.DeadLetter, error) {
	dl := &model.DeadLetter{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, event_id, reason, created_at
		FROM dead_letters
		WHERE id = $1`,
		id,
	).Scan(&dl.ID, &dl.EventID, &dl.Reason, &dl.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return dl, nil
}

// DeleteDeadLetter removes a dead letter, returning ErrNotFound when the id
// does not exist.
func (s *Store) DeleteDeadLetter(ctx context.Context, id int64) error {
	ct, err := s.pool.Exec(ctx, `
		DELETE FROM dead_letters WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListDeadLetters returns dead letters newest first.
func (s *Store) ListDeadLetters(ctx context.Context, limit int) ([]model.DeadLetter, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, event_id, reason, created_at
		FROM dead_letters
		ORDER BY created_at DESC
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.DeadLetter
	for rows.Next() {
		var dl model.DeadLetter
		if err := rows.Scan(&dl.ID, &dl.EventID, &dl.Reason, &dl.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, dl)
	}
	return out, rows.Err()
}
