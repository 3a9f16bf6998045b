package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/Tanishq67m/EventPulse/internal/model"
)

// CreateWebhook inserts a destination and returns the stored record,
// secret included. Callers decide whether to expose the secret.
func (s *Store) CreateWebhook(ctx context.Context, url, name, secret string) (*model.Webhook, error) {
	w := &model.Webhook{URL: url, Name: name, Secret: secret}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO webhooks(url, name, secret)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		url, name, secret,
	).Scan(&w.ID, &w.CreatedAt)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// WebhookByID loads a destination, secret included.
func (s *Store) WebhookByID(ctx context.Context, id int64) (*model.Webhook, error) {
	w := &model.Webhook{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, url, name, secret, created_at
		FROM webhooks
		WHERE id = $1`,
		id,
	).Scan(&w.ID, &w.URL, &w.Name, &w.Secret, &w.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return w, nil
}

// CreateAPIKey associates an opaque key with a webhook.
func (s *Store) CreateAPIKey(ctx context.Context, webhookID int64, key string) (*model.APIKey, error) {
	k := &model.APIKey{Key: key, WebhookID: webhookID}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO api_keys(key, webhook_id)
		VALUES ($1, $2)
		RETURNING id, created_at`,
		key, webhookID,
	).Scan(&k.ID, &k.CreatedAt)
	if err != nil {
		return nil, err
	}
	return k, nil
}

// WebhookByAPIKey resolves an API key to the webhook it authenticates.
func (s *Store) WebhookByAPIKey(ctx context.Context, key string) (*model.Webhook, error) {
	w := &model.Webhook{}
	err := s.pool.QueryRow(ctx, `
		SELECT w.id, w.url, w.name, w.secret, w.created_at
		FROM api_keys k
		JOIN webhooks w ON w.id = k.webhook_id
		WHERE k.key = $1`,
		key,
	).Scan(&w.ID, &w.URL, &w.Name, &w.Secret, &w.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return w, nil
}
