package model

import "time"

// Attempt outcomes recorded in delivery_attempts.status.
const (
	AttemptSuccess = "success"
	AttemptFailed  = "failed"
)

// Webhook is a registered delivery destination and its signing secret.
// Immutable once created.
type Webhook struct {
	ID        int64     `json:"id"`
	URL       string    `json:"url"`
	Name      string    `json:"name"`
	Secret    string    `json:"secret,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// APIKey maps an opaque token to the webhook it may publish events for.
type APIKey struct {
	ID        int64     `json:"id"`
	Key       string    `json:"key"`
	WebhookID int64     `json:"webhookId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Event is an immutable fact to be delivered. WebhookID is nil when the
// producer has no destination configured; such events are dead-lettered
// instead of delivered.
type Event struct {
	ID        int64          `json:"id"`
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload"`
	WebhookID *int64         `json:"webhookId"`
	CreatedAt time.Time      `json:"createdAt"`
}

// DeliveryAttempt is the append-only audit record of one delivery try.
type DeliveryAttempt struct {
	ID           int64     `json:"id"`
	EventID      int64     `json:"eventId"`
	Status       string    `json:"status"`
	ResponseCode *int      `json:"responseCode"`
	ResponseBody string    `json:"responseBody,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// RetryTask schedules the next delivery attempt for an event. At most one
// open task exists per event; Attempt is the number of the try it will
// perform, not the number of tries so far.
type RetryTask struct {
	ID          int64     `json:"id"`
	EventID     int64     `json:"eventId"`
	Attempt     int       `json:"attempt"`
	MaxAttempts int       `json:"maxAttempts"`
	DueAt       time.Time `json:"dueAt"`
	CreatedAt   time.Time `json:"createdAt"`
}

// DeadLetter is the terminal record for an event whose retry budget is
// exhausted or whose destination cannot be resolved. Removed only by replay.
type DeadLetter struct {
	ID        int64     `json:"id"`
	EventID   int64     `json:"eventId"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"createdAt"`
}
