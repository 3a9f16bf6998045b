package dlq

import (
	"context"
	"errors"
	"testing"

	"github.com/Tanishq67m/EventPulse/internal/eventlog"
	"github.com/Tanishq67m/EventPulse/internal/logging"
	"github.com/Tanishq67m/EventPulse/internal/model"
	"github.com/Tanishq67m/EventPulse/internal/store"
)

type fakeStore struct {
	letters map[int64]model.DeadLetter
	events  map[int64]*model.Event
	nextID  int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		letters: make(map[int64]model.DeadLetter),
		events:  make(map[int64]*model.Event),
		nextID:  100,
	}
}

func (f *fakeStore) ListDeadLetters(_ context.Context, limit int) ([]model.DeadLetter, error) {
	var out []model.DeadLetter
	for _, dl := range f.letters {
		if len(out) == limit {
			break
		}
		out = append(out, dl)
	}
	return out, nil
}

func (f *fakeStore) DeadLetterByID(_ context.Context, id int64) (*model.DeadLetter, error) {
	dl, ok := f.letters[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &dl, nil
}

func (f *fakeStore) DeleteDeadLetter(_ context.Context, id int64) error {
	if _, ok := f.letters[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.letters, id)
	return nil
}

func (f *fakeStore) InsertDeadLetter(_ context.Context, eventID int64, reason string) (*model.DeadLetter, error) {
	f.nextID++
	dl := model.DeadLetter{ID: f.nextID, EventID: eventID, Reason: reason}
	f.letters[dl.ID] = dl
	return &dl, nil
}

func (f *fakeStore) EventByID(_ context.Context, id int64) (*model.Event, error) {
	ev, ok := f.events[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return ev, nil
}

type fakePublisher struct {
	entries []eventlog.Entry
	err     error
}

func (f *fakePublisher) Publish(_ context.Context, e eventlog.Entry) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, e)
	return nil
}

func TestReplayRemovesAndRepublishes(t *testing.T) {
	st := newFakeStore()
	st.events[7] = &model.Event{ID: 7, Type: "order.created"}
	st.letters[1] = model.DeadLetter{ID: 1, EventID: 7, Reason: "exceeded attempts (5)"}
	pub := &fakePublisher{}
	svc := NewService(st, pub, logging.New("test"))

	if err := svc.Replay(context.Background(), 1); err != nil {
		t.Fatalf("Replay() error = %v", err)
	}

	if _, ok := st.letters[1]; ok {
		t.Error("dead letter still present after replay")
	}
	if len(pub.entries) != 1 {
		t.Fatalf("published entries = %d, want 1", len(pub.entries))
	}
	e := pub.entries[0]
	if e.EventID != "7" {
		t.Errorf("entry event id = %q, want %q", e.EventID, "7")
	}
	if e.Origin != eventlog.OriginReplay {
		t.Errorf("entry origin = %q, want %q", e.Origin, eventlog.OriginReplay)
	}
}

func TestReplayUnknownID(t *testing.T) {
	st := newFakeStore()
	pub := &fakePublisher{}
	svc := NewService(st, pub, logging.New("test"))

	err := svc.Replay(context.Background(), 404)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Replay() error = %v, want ErrNotFound", err)
	}
	if len(pub.entries) != 0 {
		t.Errorf("published entries = %d, want 0", len(pub.entries))
	}
}

func TestReplayPublishFailureRestoresDeadLetter(t *testing.T) {
	st := newFakeStore()
	st.events[7] = &model.Event{ID: 7, Type: "order.created"}
	st.letters[1] = model.DeadLetter{ID: 1, EventID: 7, Reason: "exceeded attempts (5)"}
	pub := &fakePublisher{err: errors.New("nsqd unavailable")}
	svc := NewService(st, pub, logging.New("test"))

	if err := svc.Replay(context.Background(), 1); err == nil {
		t.Fatal("Replay() error = nil, want publish error")
	}

	if len(st.letters) != 1 {
		t.Fatalf("dead letters after failed replay = %d, want 1", len(st.letters))
	}
	for _, dl := range st.letters {
		if dl.EventID != 7 || dl.Reason != "exceeded attempts (5)" {
			t.Errorf("restored dead letter = %+v", dl)
		}
	}
}

func TestReplayMissingEventKeepsDeadLetter(t *testing.T) {
	st := newFakeStore()
	st.letters[1] = model.DeadLetter{ID: 1, EventID: 7, Reason: "missing destination"}
	pub := &fakePublisher{}
	svc := NewService(st, pub, logging.New("test"))

	if err := svc.Replay(context.Background(), 1); err == nil {
		t.Fatal("Replay() error = nil, want resolve error")
	}
	if _, ok := st.letters[1]; !ok {
		t.Error("dead letter removed although the event could not be resolved")
	}
	if len(pub.entries) != 0 {
		t.Errorf("published entries = %d, want 0", len(pub.entries))
	}
}

func TestList(t *testing.T) {
	st := newFakeStore()
	st.letters[1] = model.DeadLetter{ID: 1, EventID: 7, Reason: "exceeded attempts (5)"}
	svc := NewService(st, &fakePublisher{}, logging.New("test"))

	out, err := svc.List(context.Background(), 50)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(out) != 1 {
		t.Errorf("List() returned %d entries, want 1", len(out))
	}
}
