package logging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func TestEntryBuilders(t *testing.T) {
	log := New("gateway")
	e := log.Plain().
		WithEvent(42).
		WithWebhook(7).
		WithAttempt(3).
		WithField("status", 500).
		WithError(errors.New("boom"))

	if e.Service != "gateway" {
		t.Errorf("Service = %q, want gateway", e.Service)
	}
	if e.EventID != 42 || e.WebhookID != 7 || e.Attempt != 3 {
		t.Errorf("ids = (%d, %d, %d), want (42, 7, 3)", e.EventID, e.WebhookID, e.Attempt)
	}
	if e.Fields["status"] != 500 {
		t.Errorf("status field = %v", e.Fields["status"])
	}
	if e.Fields["error"] != "boom" {
		t.Errorf("error field = %v", e.Fields["error"])
	}
}

func TestWithErrorNil(t *testing.T) {
	e := New("test").Plain().WithError(nil)
	if _, ok := e.Fields["error"]; ok {
		t.Error("nil error added an error field")
	}
}

func TestWithFields(t *testing.T) {
	e := New("test").Plain().WithFields(map[string]any{"a": 1, "b": "two"})
	if e.Fields["a"] != 1 || e.Fields["b"] != "two" {
		t.Errorf("Fields = %v", e.Fields)
	}
}

func TestEntryJSONOmitsEmpty(t *testing.T) {
	e := New("test").WithContext(context.Background())
	e.Level = LevelInfo
	e.Message = "hello"
	e.Fields = nil

	b, err := json.Marshal(e)
	if err != nil {
		t.Fatal(err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"trace_id", "event_id", "webhook_id", "attempt", "fields"} {
		if _, ok := decoded[key]; ok {
			t.Errorf("empty %q serialized: %s", key, b)
		}
	}
	if decoded["msg"] != "hello" || decoded["level"] != "info" {
		t.Errorf("decoded entry = %v", decoded)
	}
}
