package stream

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Tanishq67m/EventPulse/internal/delivery"
	"github.com/Tanishq67m/EventPulse/internal/eventlog"
	"github.com/Tanishq67m/EventPulse/internal/logging"
	"github.com/Tanishq67m/EventPulse/internal/metrics"
	"github.com/Tanishq67m/EventPulse/internal/model"
	"github.com/Tanishq67m/EventPulse/internal/store"
)

// EventSource resolves an event and its destination.
type EventSource interface {
	EventByID(ctx context.Context, id int64) (*model.Event, error)
	WebhookByID(ctx context.Context, id int64) (*model.Webhook, error)
}

// Deliverer performs one signed delivery try.
type Deliverer interface {
	Deliver(ctx context.Context, ev *model.Event, wh *model.Webhook, timeout time.Duration) (delivery.Outcome, error)
}

// FailureHandler routes a failed attempt to a retry or the dead letter
// store. The consumer never makes that decision itself.
type FailureHandler interface {
	HandleFailure(ctx context.Context, eventID int64, attempt, maxAttempts int, reason string) error
}

// DeadLetterer records events whose destination cannot be resolved.
type DeadLetterer interface {
	InsertDeadLetter(ctx context.Context, eventID int64, reason string) (*model.DeadLetter, error)
}

// Worker is one consumer group member's entry handler: resolve the claimed
// entry, deliver, then ack or hand the failure to the scheduler. A nil
// return with no ack leaves the entry for transport redelivery.
type Worker struct {
	instanceID  string
	events      EventSource
	engine      Deliverer
	failures    FailureHandler
	dlq         DeadLetterer
	timeout     time.Duration // first-pass delivery timeout
	maxAttempts int
	log         *logging.Logger
}

func NewWorker(events EventSource, engine Deliverer, failures FailureHandler, dlq DeadLetterer, timeout time.Duration, maxAttempts int, log *logging.Logger) *Worker {
	return &Worker{
		instanceID:  "dispatcher-" + uuid.NewString()[:8],
		events:      events,
		engine:      engine,
		failures:    failures,
		dlq:         dlq,
		timeout:     timeout,
		maxAttempts: maxAttempts,
		log:         log,
	}
}

// InstanceID identifies this member within the consumer group.
func (w *Worker) InstanceID() string {
	return w.instanceID
}

// HandleEntry implements eventlog.EntryHandler.
func (w *Worker) HandleEntry(ctx context.Context, c *eventlog.ClaimedEntry) error {
	eventID, err := c.Entry.EventIDInt()
	if err != nil {
		// Terminal: a bad id never becomes deliverable.
		w.log.WithContext(ctx).WithError(err).Error("dropping entry with bad event id")
		c.Ack()
		return nil
	}

	ev, err := w.events.EventByID(ctx, eventID)
	if errors.Is(err, store.ErrNotFound) {
		w.log.WithContext(ctx).WithEvent(eventID).Error("dropping entry for unknown event")
		c.Ack()
		return nil
	}
	if err != nil {
		return err // store unavailable; leave unacked
	}

	if ev.WebhookID == nil {
		return w.deadLetterUnresolvable(ctx, c, eventID)
	}
	wh, err := w.events.WebhookByID(ctx, *ev.WebhookID)
	if errors.Is(err, store.ErrNotFound) {
		return w.deadLetterUnresolvable(ctx, c, eventID)
	}
	if err != nil {
		return err
	}

	outcome, err := w.engine.Deliver(ctx, ev, wh, w.timeout)
	if err != nil {
		// Attempt record not persisted; redeliver the entry.
		return err
	}

	if outcome.Success {
		w.log.WithContext(ctx).WithEvent(ev.ID).WithWebhook(wh.ID).
			WithField("status", outcome.StatusCode).Info("event delivered")
		c.Ack()
		return nil
	}

	// First-pass try is attempt 1; replayed entries restart the chain.
	if err := w.failures.HandleFailure(ctx, ev.ID, 1, w.maxAttempts, outcome.Reason); err != nil {
		return err
	}
	c.Ack()
	return nil
}

func (w *Worker) deadLetterUnresolvable(ctx context.Context, c *eventlog.ClaimedEntry, eventID int64) error {
	if _, err := w.dlq.InsertDeadLetter(ctx, eventID, "missing destination"); err != nil {
		return err
	}
	metrics.DLQTotal.Inc()
	w.log.WithContext(ctx).WithEvent(eventID).Warn("event dead-lettered: missing destination")
	c.Ack()
	return nil
}
