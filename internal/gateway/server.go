package gateway

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Tanishq67m/EventPulse/internal/eventlog"
	"github.com/Tanishq67m/EventPulse/internal/logging"
	"github.com/Tanishq67m/EventPulse/internal/model"
)

const listLimit = 50

// Store is the slice of the record store the gateway needs.
type Store interface {
	CreateWebhook(ctx context.Context, url, name, secret string) (*model.Webhook, error)
	CreateAPIKey(ctx context.Context, webhookID int64, key string) (*model.APIKey, error)
	WebhookByAPIKey(ctx context.Context, key string) (*model.Webhook, error)
	CreateEvent(ctx context.Context, eventType string, payload map[string]any, webhookID *int64) (*model.Event, error)
	MarkEventLogged(ctx context.Context, id int64) error
	ListEvents(ctx context.Context, limit int) ([]model.Event, error)
	ListAttempts(ctx context.Context, eventID int64) ([]model.DeliveryAttempt, error)
}

// DeadLetters exposes the terminal holding area.
type DeadLetters interface {
	List(ctx context.Context, limit int) ([]model.DeadLetter, error)
	Replay(ctx context.Context, id int64) error
}

// Pinger reports record store reachability for health checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the public HTTP API: registration, ingestion and the read-only
// listings over the record store.
type Server struct {
	app   *fiber.App
	store Store
	dlq   DeadLetters
	pub   eventlog.Publisher
	db    Pinger
	log   *logging.Logger
}

func New(store Store, deadLetters DeadLetters, pub eventlog.Publisher, db Pinger, reg *prometheus.Registry, appName string, log *logging.Logger) *Server {
	s := &Server{
		app:   fiber.New(fiber.Config{AppName: appName, DisableStartupMessage: true}),
		store: store,
		dlq:   deadLetters,
		pub:   pub,
		db:    db,
		log:   log,
	}

	s.app.Use(recover.New())

	s.app.Get("/health", s.handleHealth)
	if reg != nil {
		s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}

	s.app.Post("/register-webhook", s.handleRegisterWebhook)
	s.app.Post("/send-event", s.requireAPIKey, s.handleSendEvent)
	s.app.Get("/events", s.handleListEvents)
	s.app.Get("/events/:id/attempts", s.handleListAttempts)
	s.app.Get("/dlq", s.handleListDLQ)
	s.app.Post("/dlq/:id/retry", s.handleReplayDLQ)

	return s
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen blocks serving the API on addr.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
