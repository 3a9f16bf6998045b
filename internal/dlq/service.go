package dlq

import (
	"context"
	"fmt"

	"github.com/Tanishq67m/EventPulse/internal/eventlog"
	"github.com/Tanishq67m/EventPulse/internal/logging"
	"github.com/Tanishq67m/EventPulse/internal/metrics"
	"github.com/Tanishq67m/EventPulse/internal/model"
)

// Store is the slice of the record store the dead letter service needs.
type Store interface {
	ListDeadLetters(ctx context.Context, limit int) ([]model.DeadLetter, error)
	DeadLetterByID(ctx context.Context, id int64) (*model.DeadLetter, error)
	DeleteDeadLetter(ctx context.Context, id int64) error
	InsertDeadLetter(ctx context.Context, eventID int64, reason string) (*model.DeadLetter, error)
	EventByID(ctx context.Context, id int64) (*model.Event, error)
}

// Service exposes the terminal holding area: listing and manual replay.
type Service struct {
	store Store
	pub   eventlog.Publisher
	log   *logging.Logger
}

func NewService(store Store, pub eventlog.Publisher, log *logging.Logger) *Service {
	return &Service{store: store, pub: pub, log: log}
}

// List returns dead letters newest first.
func (s *Service) List(ctx context.Context, limit int) ([]model.DeadLetter, error) {
	return s.store.ListDeadLetters(ctx, limit)
}

// Replay removes the dead letter and re-injects its event into the log as a
// fresh delivery task; the attempt chain restarts at 1. The original
// failure reason is not re-validated. Returns store.ErrNotFound for an
// unknown id.
func (s *Service) Replay(ctx context.Context, id int64) error {
	dl, err := s.store.DeadLetterByID(ctx, id)
	if err != nil {
		return err
	}
	ev, err := s.store.EventByID(ctx, dl.EventID)
	if err != nil {
		return fmt.Errorf("resolve dead-lettered event %d: %w", dl.EventID, err)
	}

	// The dead letter must be gone before the new entry exists, so the two
	// never coexist for one event.
	if err := s.store.DeleteDeadLetter(ctx, id); err != nil {
		return err
	}
	if err := s.pub.Publish(ctx, eventlog.NewEntry(ev.ID, ev.Type, eventlog.OriginReplay)); err != nil {
		// Publish failed: restore the record so the event is not lost.
		if _, restoreErr := s.store.InsertDeadLetter(ctx, dl.EventID, dl.Reason); restoreErr != nil {
			s.log.WithContext(ctx).WithEvent(dl.EventID).WithError(restoreErr).Error("dead letter restore failed")
		}
		return fmt.Errorf("replay publish: %w", err)
	}

	metrics.ReplaysTotal.Inc()
	s.log.WithContext(ctx).WithEvent(ev.ID).WithField("dead_letter_id", id).Info("dead letter replayed")
	return nil
}
