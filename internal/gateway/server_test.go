package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Tanishq67m/EventPulse/internal/eventlog"
	"github.com/Tanishq67m/EventPulse/internal/logging"
	"github.com/Tanishq67m/EventPulse/internal/model"
	"github.com/Tanishq67m/EventPulse/internal/store"
)

type fakeStore struct {
	webhooks map[int64]*model.Webhook
	apiKeys  map[string]int64
	events   []model.Event
	attempts map[int64][]model.DeliveryAttempt
	logged   map[int64]bool
	nextID   int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		webhooks: make(map[int64]*model.Webhook),
		apiKeys:  make(map[string]int64),
		attempts: make(map[int64][]model.DeliveryAttempt),
		logged:   make(map[int64]bool),
	}
}

func (f *fakeStore) CreateWebhook(_ context.Context, url, name, secret string) (*model.Webhook, error) {
	f.nextID++
	wh := &model.Webhook{ID: f.nextID, URL: url, Name: name, Secret: secret}
	f.webhooks[wh.ID] = wh
	return wh, nil
}

func (f *fakeStore) CreateAPIKey(_ context.Context, webhookID int64, key string) (*model.APIKey, error) {
	f.apiKeys[key] = webhookID
	return &model.APIKey{ID: webhookID, WebhookID: webhookID, Key: key}, nil
}

func (f *fakeStore) WebhookByAPIKey(_ context.Context, key string) (*model.Webhook, error) {
	id, ok := f.apiKeys[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return f.webhooks[id], nil
}

func (f *fakeStore) CreateEvent(_ context.Context, eventType string, payload map[string]any, webhookID *int64) (*model.Event, error) {
	f.nextID++
	ev := model.Event{ID: f.nextID, Type: eventType, Payload: payload, WebhookID: webhookID}
	f.events = append(f.events, ev)
	return &ev, nil
}

func (f *fakeStore) MarkEventLogged(_ context.Context, id int64) error {
	f.logged[id] = true
	return nil
}

func (f *fakeStore) ListEvents(_ context.Context, limit int) ([]model.Event, error) {
	if len(f.events) > limit {
		return f.events[:limit], nil
	}
	return f.events, nil
}

func (f *fakeStore) ListAttempts(_ context.Context, eventID int64) ([]model.DeliveryAttempt, error) {
	return f.attempts[eventID], nil
}

type fakeDeadLetters struct {
	letters   []model.DeadLetter
	replayed  []int64
	replayErr error
}

func (f *fakeDeadLetters) List(_ context.Context, limit int) ([]model.DeadLetter, error) {
	return f.letters, nil
}

func (f *fakeDeadLetters) Replay(_ context.Context, id int64) error {
	if f.replayErr != nil {
		return f.replayErr
	}
	f.replayed = append(f.replayed, id)
	return nil
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

func testServer(st *fakeStore, dlq *fakeDeadLetters, pub *fakePublisher) *Server {
	return New(st, dlq, pub, nil, nil, "gateway-test", logging.New("test"))
}

func doJSON(t *testing.T, s *Server, method, path string, body any, headers map[string]string) (int, map[string]any) {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reqBody = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reqBody)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("%s %s: decode response: %v", method, path, err)
	}
	return resp.StatusCode, out
}

func TestRegisterWebhook(t *testing.T) {
	st := newFakeStore()
	s := testServer(st, &fakeDeadLetters{}, &fakePublisher{})

	code, out := doJSON(t, s, http.MethodPost, "/register-webhook",
		map[string]string{"url": "https://example.com/hook", "name": "orders"}, nil)

	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if out["ok"] != true {
		t.Errorf("ok = %v, want true", out["ok"])
	}
	apiKey, _ := out["apiKey"].(string)
	if apiKey == "" {
		t.Fatal("response missing apiKey")
	}
	wh, _ := out["webhook"].(map[string]any)
	if wh == nil {
		t.Fatal("response missing webhook")
	}
	if wh["secret"] == "" || wh["secret"] == nil {
		t.Error("registration response must include the signing secret")
	}

	if _, err := st.WebhookByAPIKey(context.Background(), apiKey); err != nil {
		t.Errorf("returned api key does not resolve: %v", err)
	}
}

func TestRegisterWebhookValidation(t *testing.T) {
	tests := []struct {
		name string
		body map[string]string
	}{
		{"bad url", map[string]string{"url": "not a url", "name": "orders"}},
		{"missing url", map[string]string{"name": "orders"}},
		{"missing name", map[string]string{"url": "https://example.com/hook"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testServer(newFakeStore(), &fakeDeadLetters{}, &fakePublisher{})
			code, out := doJSON(t, s, http.MethodPost, "/register-webhook", tt.body, nil)
			if code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", code)
			}
			if out["ok"] != false {
				t.Errorf("ok = %v, want false", out["ok"])
			}
		})
	}
}

func TestSendEventAuth(t *testing.T) {
	st := newFakeStore()
	s := testServer(st, &fakeDeadLetters{}, &fakePublisher{})
	body := map[string]any{"type": "order.created"}

	code, out := doJSON(t, s, http.MethodPost, "/send-event", body, nil)
	if code != http.StatusUnauthorized {
		t.Errorf("no key: status = %d, want 401", code)
	}
	if out["message"] != "Missing API key" {
		t.Errorf("no key: message = %v", out["message"])
	}

	code, out = doJSON(t, s, http.MethodPost, "/send-event", body,
		map[string]string{"x-api-key": "wrong"})
	if code != http.StatusForbidden {
		t.Errorf("bad key: status = %d, want 403", code)
	}
	if out["message"] != "Invalid API key" {
		t.Errorf("bad key: message = %v", out["message"])
	}
}

func TestSendEvent(t *testing.T) {
	st := newFakeStore()
	wh, _ := st.CreateWebhook(context.Background(), "https://example.com/hook", "orders", "s")
	st.CreateAPIKey(context.Background(), wh.ID, "key-1")
	pub := &fakePublisher{}
	s := testServer(st, &fakeDeadLetters{}, pub)

	code, out := doJSON(t, s, http.MethodPost, "/send-event",
		map[string]any{"type": "order.created", "payload": map[string]any{"orderId": "A-17"}},
		map[string]string{"x-api-key": "key-1"})

	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if out["ok"] != true {
		t.Errorf("ok = %v, want true", out["ok"])
	}
	ev, _ := out["event"].(map[string]any)
	if ev == nil {
		t.Fatal("response missing event")
	}
	if ev["type"] != "order.created" {
		t.Errorf("event type = %v", ev["type"])
	}

	if len(pub.entries) != 1 {
		t.Fatalf("published entries = %d, want 1", len(pub.entries))
	}
	if pub.entries[0].Origin != "" {
		t.Errorf("entry origin = %q, want empty for ingestion", pub.entries[0].Origin)
	}
	if len(st.logged) != 1 {
		t.Errorf("events marked logged = %d, want 1", len(st.logged))
	}
	if len(st.events) != 1 || st.events[0].WebhookID == nil || *st.events[0].WebhookID != wh.ID {
		t.Errorf("stored event not bound to the authenticated webhook: %+v", st.events)
	}
}

func TestSendEventValidation(t *testing.T) {
	st := newFakeStore()
	wh, _ := st.CreateWebhook(context.Background(), "https://example.com/hook", "orders", "s")
	st.CreateAPIKey(context.Background(), wh.ID, "key-1")
	s := testServer(st, &fakeDeadLetters{}, &fakePublisher{})

	code, _ := doJSON(t, s, http.MethodPost, "/send-event",
		map[string]any{"payload": map[string]any{}}, map[string]string{"x-api-key": "key-1"})
	if code != http.StatusBadRequest {
		t.Errorf("missing type: status = %d, want 400", code)
	}
}

// A failed log append must not fail ingestion: the event is durable and the
// sweeper picks it up.
func TestSendEventPublishFailureStillAccepts(t *testing.T) {
	st := newFakeStore()
	wh, _ := st.CreateWebhook(context.Background(), "https://example.com/hook", "orders", "s")
	st.CreateAPIKey(context.Background(), wh.ID, "key-1")
	pub := &fakePublisher{err: errors.New("nsqd unavailable")}
	s := testServer(st, &fakeDeadLetters{}, pub)

	code, out := doJSON(t, s, http.MethodPost, "/send-event",
		map[string]any{"type": "order.created"}, map[string]string{"x-api-key": "key-1"})

	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if out["ok"] != true {
		t.Errorf("ok = %v, want true", out["ok"])
	}
	if len(st.events) != 1 {
		t.Errorf("stored events = %d, want 1", len(st.events))
	}
	if len(st.logged) != 0 {
		t.Error("event marked logged despite publish failure")
	}
}

func TestListEvents(t *testing.T) {
	st := newFakeStore()
	st.events = []model.Event{{ID: 1, Type: "a"}, {ID: 2, Type: "b"}}
	s := testServer(st, &fakeDeadLetters{}, &fakePublisher{})

	code, out := doJSON(t, s, http.MethodGet, "/events", nil, nil)
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	events, _ := out["events"].([]any)
	if len(events) != 2 {
		t.Errorf("events = %d, want 2", len(events))
	}
}

func TestListAttempts(t *testing.T) {
	st := newFakeStore()
	st.attempts[7] = []model.DeliveryAttempt{{ID: 1, EventID: 7, Status: model.AttemptFailed}}
	s := testServer(st, &fakeDeadLetters{}, &fakePublisher{})

	code, out := doJSON(t, s, http.MethodGet, "/events/7/attempts", nil, nil)
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	attempts, _ := out["attempts"].([]any)
	if len(attempts) != 1 {
		t.Errorf("attempts = %d, want 1", len(attempts))
	}

	code, _ = doJSON(t, s, http.MethodGet, "/events/abc/attempts", nil, nil)
	if code != http.StatusBadRequest {
		t.Errorf("bad id: status = %d, want 400", code)
	}
}

func TestListDLQ(t *testing.T) {
	dlq := &fakeDeadLetters{letters: []model.DeadLetter{{ID: 1, EventID: 7, Reason: "exceeded attempts (5)"}}}
	s := testServer(newFakeStore(), dlq, &fakePublisher{})

	code, out := doJSON(t, s, http.MethodGet, "/dlq", nil, nil)
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	letters, _ := out["dlq"].([]any)
	if len(letters) != 1 {
		t.Errorf("dlq entries = %d, want 1", len(letters))
	}
}

func TestReplayDLQ(t *testing.T) {
	dlq := &fakeDeadLetters{}
	s := testServer(newFakeStore(), dlq, &fakePublisher{})

	code, out := doJSON(t, s, http.MethodPost, "/dlq/3/retry", nil, nil)
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if out["message"] != "Requeued DLQ event" {
		t.Errorf("message = %v", out["message"])
	}
	if len(dlq.replayed) != 1 || dlq.replayed[0] != 3 {
		t.Errorf("replayed = %v, want [3]", dlq.replayed)
	}
}

func TestReplayDLQNotFound(t *testing.T) {
	dlq := &fakeDeadLetters{replayErr: store.ErrNotFound}
	s := testServer(newFakeStore(), dlq, &fakePublisher{})

	code, out := doJSON(t, s, http.MethodPost, "/dlq/404/retry", nil, nil)
	if code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", code)
	}
	if out["message"] != "DLQ entry not found" {
		t.Errorf("message = %v", out["message"])
	}
}

func TestHealth(t *testing.T) {
	s := testServer(newFakeStore(), &fakeDeadLetters{}, &fakePublisher{})

	code, out := doJSON(t, s, http.MethodGet, "/health", nil, nil)
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if out["status"] != "ok" {
		t.Errorf("status field = %v, want ok", out["status"])
	}
}
