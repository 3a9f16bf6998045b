package store

import (
	"context"

	"github.com/Tanishq67m/EventPulse/internal/model"
)

// InsertAttempt appends one delivery attempt to the event's history.
// responseCode is nil when no HTTP response was received.
func (s *Store) InsertAttempt(ctx context.Context, eventID int64, status string, responseCode *int, responseBody string) (*model.DeliveryAttempt, error) {
	a := &model.DeliveryAttempt{
		EventID:      eventID,
		Status:       status,
		ResponseCode: responseCode,
		ResponseBody: responseBody,
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO delivery_attempts(event_id, status, response_code, response_body)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		eventID, status, responseCode, responseBody,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListAttempts returns the delivery history for an event, newest first.
func (s *Store) ListAttempts(ctx context.Context, eventID int64) ([]model.DeliveryAttempt, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, event_id, status, response_code, response_body, created_at
		FROM delivery_attempts
		WHERE event_id = $1
		ORDER BY created_at DESC`,
		eventID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.DeliveryAttempt
	for rows.Next() {
		var a model.DeliveryAttempt
		if err := rows.Scan(&a.ID, &a.EventID, &a.Status, &a.ResponseCode, &a.ResponseBody, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
