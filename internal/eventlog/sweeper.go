package eventlog

import (
	"context"
	"time"

	"github.com/Tanishq67m/EventPulse/internal/logging"
	"github.com/Tanishq67m/EventPulse/internal/metrics"
	"github.com/Tanishq67m/EventPulse/internal/model"
)

// UnloggedEventSource lists events that were persisted but whose log entry
// was never appended.
type UnloggedEventSource interface {
	UnloggedEvents(ctx context.Context, cutoff time.Time, limit int) ([]model.Event, error)
	MarkEventLogged(ctx context.Context, id int64) error
}

// Sweeper re-publishes persisted-but-unlogged events so a failed log append
// degrades to delayed delivery instead of a silent drop.
type Sweeper struct {
	src      UnloggedEventSource
	pub      Publisher
	interval time.Duration
	minAge   time.Duration
	log      *logging.Logger
}

func NewSweeper(src UnloggedEventSource, pub Publisher, interval, minAge time.Duration, log *logging.Logger) *Sweeper {
	return &Sweeper{src: src, pub: pub, interval: interval, minAge: minAge, log: log}
}

// Run sweeps on a fixed interval until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := s.SweepOnce(ctx); err != nil {
				s.log.Plain().WithError(err).Error("reconciliation sweep failed")
			} else if n > 0 {
				s.log.Plain().WithField("republished", n).Info("reconciliation sweep")
			}
		}
	}
}

// SweepOnce republishes one batch of unlogged events and returns how many
// entries were appended.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	events, err := s.src.UnloggedEvents(ctx, time.Now().Add(-s.minAge), 100)
	if err != nil {
		return 0, err
	}

	var n int
	for _, ev := range events {
		if err := s.pub.Publish(ctx, NewEntry(ev.ID, ev.Type, "")); err != nil {
			// Next sweep picks the event up again.
			s.log.Plain().WithEvent(ev.ID).WithError(err).Warn("sweep republish failed")
			continue
		}
		if err := s.src.MarkEventLogged(ctx, ev.ID); err != nil {
			s.log.Plain().WithEvent(ev.ID).WithError(err).Warn("mark logged failed")
			continue
		}
		metrics.ReconciledTotal.Inc()
		n++
	}
	return n, nil
}
