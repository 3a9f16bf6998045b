package gateway

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/url"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Tanishq67m/EventPulse/internal/eventlog"
	"github.com/Tanishq67m/EventPulse/internal/metrics"
	"github.com/Tanishq67m/EventPulse/internal/store"
	"github.com/Tanishq67m/EventPulse/internal/tracing"

	"go.opentelemetry.io/otel/attribute"
)

// generateToken returns n random bytes hex-encoded, used for signing
// secrets and API keys.
func generateToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func validationError(c *fiber.Ctx, msgs ...string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"ok":      false,
		"message": "Validation failed",
		"errors":  msgs,
	})
}

func internalError(c *fiber.Ctx) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"ok":      false,
		"message": "Internal error",
	})
}

type registerWebhookRequest struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

// handleRegisterWebhook creates a destination with a fresh signing secret
// and API key. Both are returned exactly once.
func (s *Server) handleRegisterWebhook(c *fiber.Ctx) error {
	var req registerWebhookRequest
	if err := c.BodyParser(&req); err != nil {
		return validationError(c, "invalid JSON body")
	}
	if _, err := url.ParseRequestURI(req.URL); err != nil {
		return validationError(c, "Invalid URL format")
	}
	if req.Name == "" {
		return validationError(c, "Webhook name is required")
	}

	secret, err := generateToken(32)
	if err != nil {
		return internalError(c)
	}
	apiKey, err := generateToken(32)
	if err != nil {
		return internalError(c)
	}

	wh, err := s.store.CreateWebhook(c.Context(), req.URL, req.Name, secret)
	if err != nil {
		s.log.WithContext(c.Context()).WithError(err).Error("create webhook failed")
		return internalError(c)
	}
	if _, err := s.store.CreateAPIKey(c.Context(), wh.ID, apiKey); err != nil {
		s.log.WithContext(c.Context()).WithWebhook(wh.ID).WithError(err).Error("create api key failed")
		return internalError(c)
	}

	return c.JSON(fiber.Map{
		"ok":      true,
		"webhook": wh,
		"apiKey":  apiKey,
	})
}

type sendEventRequest struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

// handleSendEvent persists the event and appends its log entry. A failed
// append is tolerated: the event stays durable with logged_at unset and the
// sweeper re-publishes it later.
func (s *Server) handleSendEvent(c *fiber.Ctx) error {
	wh, ok := AuthWebhook(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"ok":      false,
			"message": "Missing API key",
		})
	}

	var req sendEventRequest
	if err := c.BodyParser(&req); err != nil {
		return validationError(c, "invalid JSON body")
	}
	if req.Type == "" {
		return validationError(c, "Event type is required")
	}
	if req.Payload == nil {
		req.Payload = map[string]any{}
	}

	ctx, span := tracing.StartSpan(c.Context(), "gateway.sendEvent",
		attribute.String("event_type", req.Type),
		attribute.Int64("webhook_id", wh.ID),
	)
	defer span.End()

	ev, err := s.store.CreateEvent(ctx, req.Type, req.Payload, &wh.ID)
	if err != nil {
		tracing.SetSpanError(ctx, err)
		s.log.WithContext(ctx).WithWebhook(wh.ID).WithError(err).Error("create event failed")
		return internalError(c)
	}
	span.SetAttributes(attribute.Int64("event_id", ev.ID))

	s.publishEntry(ctx, ev.ID, ev.Type)

	return c.JSON(fiber.Map{
		"ok":    true,
		"event": ev,
	})
}

// publishEntry appends the log entry for a freshly persisted event. Failure
// is non-fatal to ingestion: it is counted, logged, and left to the
// reconciliation sweep.
func (s *Server) publishEntry(ctx context.Context, eventID int64, eventType string) {
	if err := s.pub.Publish(ctx, eventlog.NewEntry(eventID, eventType, "")); err != nil {
		metrics.PublishFailuresTotal.Inc()
		tracing.SetSpanError(ctx, err)
		s.log.WithContext(ctx).WithEvent(eventID).WithError(err).Error("log publish failed; event awaits reconciliation")
		return
	}
	metrics.EventsPublishedTotal.Inc()
	if err := s.store.MarkEventLogged(ctx, eventID); err != nil {
		// Worst case the sweeper republishes an already-logged event, which
		// at-least-once delivery absorbs.
		s.log.WithContext(ctx).WithEvent(eventID).WithError(err).Warn("mark logged failed")
	}
}

func (s *Server) handleListEvents(c *fiber.Ctx) error {
	events, err := s.store.ListEvents(c.Context(), listLimit)
	if err != nil {
		s.log.WithContext(c.Context()).WithError(err).Error("list events failed")
		return internalError(c)
	}
	return c.JSON(fiber.Map{"ok": true, "events": events})
}

func (s *Server) handleListAttempts(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return validationError(c, "invalid event id")
	}
	attempts, err := s.store.ListAttempts(c.Context(), id)
	if err != nil {
		s.log.WithContext(c.Context()).WithEvent(id).WithError(err).Error("list attempts failed")
		return internalError(c)
	}
	return c.JSON(fiber.Map{"ok": true, "attempts": attempts})
}

func (s *Server) handleListDLQ(c *fiber.Ctx) error {
	letters, err := s.dlq.List(c.Context(), listLimit)
	if err != nil {
		s.log.WithContext(c.Context()).WithError(err).Error("list dlq failed")
		return internalError(c)
	}
	return c.JSON(fiber.Map{"ok": true, "dlq": letters})
}

func (s *Server) handleReplayDLQ(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return validationError(c, "invalid dlq id")
	}

	err = s.dlq.Replay(c.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"ok":      false,
			"message": "DLQ entry not found",
		})
	}
	if err != nil {
		s.log.WithContext(c.Context()).WithError(err).Error("dlq replay failed")
		return internalError(c)
	}
	return c.JSON(fiber.Map{"ok": true, "message": "Requeued DLQ event"})
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	if s.db != nil {
		ctx, cancel := context.WithTimeout(c.Context(), time.Second)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status":   "degraded",
				"database": false,
			})
		}
	}
	return c.JSON(fiber.Map{"status": "ok", "service": "gateway"})
}
