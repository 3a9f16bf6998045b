package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Tanishq67m/EventPulse/internal/delivery"
	"github.com/Tanishq67m/EventPulse/internal/logging"
	"github.com/Tanishq67m/EventPulse/internal/metrics"
	"github.com/Tanishq67m/EventPulse/internal/model"
	"github.com/Tanishq67m/EventPulse/internal/store"
)

// requeueDelay is how long a claimed task is pushed back when the store or
// recorder is unavailable mid-processing.
const requeueDelay = 15 * time.Second

// TaskStore is the durable, time-ordered queue of pending retries.
type TaskStore interface {
	UpsertRetryTask(ctx context.Context, eventID int64, attempt, maxAttempts int, dueAt time.Time) error
	PopDueRetryTasks(ctx context.Context, now time.Time, limit int) ([]model.RetryTask, error)
	DeleteRetryTask(ctx context.Context, eventID int64) error
}

// EventSource resolves an event and its destination.
type EventSource interface {
	EventByID(ctx context.Context, id int64) (*model.Event, error)
	WebhookByID(ctx context.Context, id int64) (*model.Webhook, error)
}

// DeadLetterer records terminally failed events.
type DeadLetterer interface {
	InsertDeadLetter(ctx context.Context, eventID int64, reason string) (*model.DeadLetter, error)
}

// Deliverer performs one signed delivery try.
type Deliverer interface {
	Deliver(ctx context.Context, ev *model.Event, wh *model.Webhook, timeout time.Duration) (delivery.Outcome, error)
}

// Scheduler owns the failed-attempt state machine: it decides retriable vs
// terminal, keeps the delay queue, and drains due tasks through the
// delivery engine. No other component makes that decision.
type Scheduler struct {
	tasks        TaskStore
	events       EventSource
	dlq          DeadLetterer
	engine       Deliverer
	timeout      time.Duration // per-delivery timeout for scheduled retries
	pollInterval time.Duration
	batchSize    int
	log          *logging.Logger
}

func NewScheduler(tasks TaskStore, events EventSource, dlq DeadLetterer, engine Deliverer, timeout, pollInterval time.Duration, batchSize int, log *logging.Logger) *Scheduler {
	return &Scheduler{
		tasks:        tasks,
		events:       events,
		dlq:          dlq,
		engine:       engine,
		timeout:      timeout,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		log:          log,
	}
}

// HandleFailure routes a failed attempt: exhaust the budget and the event is
// dead-lettered, otherwise the next attempt is scheduled per the backoff
// table. attempt is the number of the try that just failed.
func (s *Scheduler) HandleFailure(ctx context.Context, eventID int64, attempt, maxAttempts int, reason string) error {
	if attempt >= maxAttempts {
		if _, err := s.dlq.InsertDeadLetter(ctx, eventID, fmt.Sprintf("exceeded attempts (%d)", attempt)); err != nil {
			return fmt.Errorf("dead letter event %d: %w", eventID, err)
		}
		// No retry task may remain once the dead letter exists.
		if err := s.tasks.DeleteRetryTask(ctx, eventID); err != nil {
			return err
		}
		metrics.DLQTotal.Inc()
		s.log.WithContext(ctx).WithEvent(eventID).WithAttempt(attempt).Warn("event dead-lettered")
		return nil
	}

	due := time.Now().Add(Backoff(attempt))
	if err := s.tasks.UpsertRetryTask(ctx, eventID, attempt+1, maxAttempts, due); err != nil {
		return fmt.Errorf("schedule retry for event %d: %w", eventID, err)
	}
	metrics.RecordRetry(reason)
	s.log.WithContext(ctx).WithEvent(eventID).WithAttempt(attempt).
		WithField("next_due", due.UTC().Format(time.RFC3339)).Info("retry scheduled")
	return nil
}

// Run drains due tasks on a bounded poll interval until the context is
// cancelled. Failures local to one task never abort the loop.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tasks, err := s.tasks.PopDueRetryTasks(ctx, time.Now(), s.batchSize)
			if err != nil {
				s.log.Plain().WithError(err).Error("pop due retry tasks failed")
				continue
			}
			for _, t := range tasks {
				if err := s.Process(ctx, t); err != nil {
					s.log.Plain().WithEvent(t.EventID).WithError(err).Error("retry task processing failed")
				}
			}
		}
	}
}

// Process performs the delivery attempt a due task calls for.
func (s *Scheduler) Process(ctx context.Context, t model.RetryTask) error {
	ev, err := s.events.EventByID(ctx, t.EventID)
	if errors.Is(err, store.ErrNotFound) {
		return s.deadLetterUnresolvable(ctx, t.EventID)
	}
	if err != nil {
		return s.requeue(ctx, t, err)
	}

	if ev.WebhookID == nil {
		return s.deadLetterUnresolvable(ctx, t.EventID)
	}
	wh, err := s.events.WebhookByID(ctx, *ev.WebhookID)
	if errors.Is(err, store.ErrNotFound) {
		return s.deadLetterUnresolvable(ctx, t.EventID)
	}
	if err != nil {
		return s.requeue(ctx, t, err)
	}

	outcome, err := s.engine.Deliver(ctx, ev, wh, s.timeout)
	if err != nil {
		// The attempt record could not be persisted; try the task again
		// rather than losing the attempt chain.
		return s.requeue(ctx, t, err)
	}
	if outcome.Success {
		s.log.WithContext(ctx).WithEvent(ev.ID).WithAttempt(t.Attempt).Info("retry delivered")
		return nil
	}
	return s.HandleFailure(ctx, t.EventID, t.Attempt, t.MaxAttempts, outcome.Reason)
}

func (s *Scheduler) deadLetterUnresolvable(ctx context.Context, eventID int64) error {
	if _, err := s.dlq.InsertDeadLetter(ctx, eventID, "missing destination"); err != nil {
		return err
	}
	metrics.DLQTotal.Inc()
	return nil
}

// requeue puts a claimed task back so a transient store failure does not
// drop the event.
func (s *Scheduler) requeue(ctx context.Context, t model.RetryTask, cause error) error {
	if err := s.tasks.UpsertRetryTask(ctx, t.EventID, t.Attempt, t.MaxAttempts, time.Now().Add(requeueDelay)); err != nil {
		return fmt.Errorf("requeue after %v: %w", cause, err)
	}
	return cause
}
