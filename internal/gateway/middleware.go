package gateway

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/Tanishq67m/EventPulse/internal/model"
	"github.com/Tanishq67m/EventPulse/internal/store"
)

// localKey is an unexported type so nothing outside this package can
// collide with or reach the authenticated webhook except through
// AuthWebhook.
type localKey int

const authWebhookKey localKey = 0

// requireAPIKey authenticates the x-api-key header and attaches the
// resolved webhook for the handler.
func (s *Server) requireAPIKey(c *fiber.Ctx) error {
	key := c.Get("x-api-key")
	if key == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"ok":      false,
			"message": "Missing API key",
		})
	}

	wh, err := s.store.WebhookByAPIKey(c.Context(), key)
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"ok":      false,
			"message": "Invalid API key",
		})
	}
	if err != nil {
		s.log.WithContext(c.Context()).WithError(err).Error("api key lookup failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"ok":      false,
			"message": "Internal error",
		})
	}

	c.Locals(authWebhookKey, wh)
	return c.Next()
}

// AuthWebhook returns the webhook the request authenticated as.
func AuthWebhook(c *fiber.Ctx) (*model.Webhook, bool) {
	wh, ok := c.Locals(authWebhookKey).(*model.Webhook)
	return wh, ok
}
