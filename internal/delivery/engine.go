package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Tanishq67m/EventPulse/internal/logging"
	"github.com/Tanishq67m/EventPulse/internal/metrics"
	"github.com/Tanishq67m/EventPulse/internal/model"
	"github.com/Tanishq67m/EventPulse/internal/tracing"

	"go.opentelemetry.io/otel/attribute"
)

// maxResponseBody caps how much of the destination's response is kept for
// the attempt record.
const maxResponseBody = 64 << 10

// AttemptRecorder appends one delivery attempt to an event's history.
type AttemptRecorder interface {
	InsertAttempt(ctx context.Context, eventID int64, status string, responseCode *int, responseBody string) (*model.DeliveryAttempt, error)
}

// Outcome classifies one delivery try.
type Outcome struct {
	Success    bool
	StatusCode int    // 0 when no HTTP response was received
	Body       string // response body, or error text on transport failure
	Reason     string // failure classification, e.g. http_5xx, timeout
}

// Engine performs signed HTTP delivery of one event to one destination and
// records the attempt. It carries no retry logic; routing a failure is the
// caller's job.
type Engine struct {
	client    *http.Client
	recorder  AttemptRecorder
	sigHeader string
	log       *logging.Logger
}

func NewEngine(recorder AttemptRecorder, sigHeader string, log *logging.Logger) *Engine {
	// Per-delivery deadlines come from the request context.
	return &Engine{
		client:    &http.Client{},
		recorder:  recorder,
		sigHeader: sigHeader,
		log:       log,
	}
}

// Deliver signs and POSTs the event to the webhook under the given timeout,
// classifies the result and records exactly one DeliveryAttempt either way.
// The returned error reports attempt-record persistence failure only, never
// delivery failure.
func (e *Engine) Deliver(ctx context.Context, ev *model.Event, wh *model.Webhook, timeout time.Duration) (Outcome, error) {
	ctx, span := tracing.StartSpan(ctx, "delivery.deliver",
		attribute.Int64("event_id", ev.ID),
		attribute.Int64("webhook_id", wh.ID),
		attribute.String("event_type", ev.Type),
	)
	defer span.End()

	body, err := json.Marshal(ev)
	if err != nil {
		// Payloads come from JSONB; this should not happen.
		out := Outcome{Body: err.Error(), Reason: "serialize"}
		return out, e.record(ctx, ev.ID, out)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, wh.URL, bytes.NewReader(body))
	if err != nil {
		out := Outcome{Body: err.Error(), Reason: "bad_url"}
		return out, e.record(ctx, ev.ID, out)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(e.sigHeader, Sign(wh.Secret, body))
	if traceID := tracing.GetTraceID(ctx); traceID != "" {
		req.Header.Set("X-Trace-Id", traceID)
	}

	deliverCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	resp, doErr := e.client.Do(req.WithContext(deliverCtx))
	latency := time.Since(start)

	var out Outcome
	if doErr != nil {
		out = Outcome{Body: doErr.Error(), Reason: classifyFailure(doErr, 0)}
	} else {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
		_ = resp.Body.Close()
		out = Outcome{
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
			Success:    resp.StatusCode >= 200 && resp.StatusCode < 300,
		}
		if !out.Success {
			out.Reason = classifyFailure(nil, resp.StatusCode)
		}
	}

	span.SetAttributes(
		attribute.Int("http.status_code", out.StatusCode),
		attribute.Int64("http.latency_ms", latency.Milliseconds()),
		attribute.Bool("delivery.success", out.Success),
	)
	if doErr != nil {
		span.SetAttributes(attribute.String("http.error", doErr.Error()))
	}

	return out, e.record(ctx, ev.ID, out)
}

func (e *Engine) record(ctx context.Context, eventID int64, out Outcome) error {
	status := model.AttemptFailed
	if out.Success {
		status = model.AttemptSuccess
	}
	var code *int
	if out.StatusCode != 0 {
		c := out.StatusCode
		code = &c
	}
	metrics.RecordDelivery(status)

	if _, err := e.recorder.InsertAttempt(ctx, eventID, status, code, out.Body); err != nil {
		tracing.SetSpanError(ctx, err)
		return fmt.Errorf("record attempt: %w", err)
	}
	return nil
}

func classifyFailure(doErr error, status int) string {
	if doErr != nil {
		errLower := strings.ToLower(doErr.Error())
		switch {
		case strings.Contains(errLower, "deadline exceeded"), strings.Contains(errLower, "timeout"):
			return "timeout"
		case strings.Contains(errLower, "connection refused"):
			return "connection_refused"
		case strings.Contains(errLower, "no such host"), strings.Contains(errLower, "dns"):
			return "dns_error"
		default:
			return "network"
		}
	}
	switch {
	case status >= 500:
		return "http_5xx"
	case status == 429:
		return "http_429"
	case status >= 400:
		return "http_4xx"
	default:
		return "other"
	}
}
