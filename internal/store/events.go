package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Tanishq67m/EventPulse/internal/model"
)

// CreateEvent persists an immutable event. webhookID may be nil when the
// producer has no destination configured.
func (s *Store) CreateEvent(ctx context.Context, eventType string, payload map[string]any, webhookID *int64) (*model.Event, error) {
	// Marshal once, pass as TEXT and cast to ::jsonb in SQL (avoids some
	// driver type ambiguity issues)
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("invalid payload: %w", err)
	}

	ev := &model.Event{Type: eventType, Payload: payload, WebhookID: webhookID}
	err = s.pool.QueryRow(ctx, `
		INSERT INTO events(type, payload, webhook_id)
		VALUES ($1, $2::jsonb, $3)
		RETURNING id, created_at`,
		eventType, string(payloadJSON), webhookID,
	).Scan(&ev.ID, &ev.CreatedAt)
	if err != nil {
		return nil, err
	}
	return ev, nil
}

// EventByID loads a single event.
func (s *Store) EventByID(ctx context.Context, id int64) (*model.Event, error) {
	ev := &model.Event{}
	var payloadJSON []byte
	err := s.pool.QueryRow(ctx, `
		SELECT id, type, payload, webhook_id, created_at
		FROM events
		WHERE id = $1`,
		id,
	).Scan(&ev.ID, &ev.Type, &payloadJSON, &ev.WebhookID, &ev.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payloadJSON, &ev.Payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return ev, nil
}

// ListEvents returns the most recent events, newest first.
func (s *Store) ListEvents(ctx context.Context, limit int) ([]model.Event, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, type, payload, webhook_id, created_at
		FROM events
		ORDER BY created_at DESC
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEvents(rows)
}

// MarkEventLogged records that the event's log entry was appended.
func (s *Store) MarkEventLogged(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE events SET logged_at = now() WHERE id = $1`, id)
	return err
}

// UnloggedEvents returns events persisted before cutoff whose log entry was
// never appended. Fed to the reconciliation sweeper.
func (s *Store) UnloggedEvents(ctx context.Context, cutoff time.Time, limit int) ([]model.Event, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, type, payload, webhook_id, created_at
		FROM events
		WHERE logged_at IS NULL AND created_at < $1
		ORDER BY created_at ASC
		LIMIT $2`,
		cutoff, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows pgx.Rows) ([]model.Event, error) {
	var out []model.Event
	for rows.Next() {
		var ev model.Event
		var payloadJSON []byte
		if err := rows.Scan(&ev.ID, &ev.Type, &payloadJSON, &ev.WebhookID, &ev.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(payloadJSON, &ev.Payload); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
