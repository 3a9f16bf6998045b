package eventlog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nsqio/go-nsq"

	"github.com/Tanishq67m/EventPulse/internal/config"
	"github.com/Tanishq67m/EventPulse/internal/logging"
	"github.com/Tanishq67m/EventPulse/internal/tracing"
)

// Publisher appends entries to the event log.
type Publisher interface {
	Publish(ctx context.Context, e Entry) error
}

// Producer publishes entries to the log's NSQ topic. Publishing never
// blocks on consumer availability; once the publish returns the entry is
// durable in nsqd.
type Producer struct {
	prod  *nsq.Producer
	topic string
}

// NewProducer connects to nsqd with a bounded number of attempts. This
// connection-level retry is independent of event-level delivery retries.
func NewProducer(cfg config.NSQ, log *logging.Logger) (*Producer, error) {
	prod, err := nsq.NewProducer(cfg.NsqdTCPAddr, nsq.NewConfig())
	if err != nil {
		return nil, err
	}

	var pingErr error
	for i := 0; i < cfg.MaxConnectTry; i++ {
		if pingErr = prod.Ping(); pingErr == nil {
			break
		}
		log.Plain().WithError(pingErr).WithField("attempt", i+1).Warn("nsqd ping failed")
		time.Sleep(time.Duration(i+1) * 500 * time.Millisecond)
	}
	if pingErr != nil {
		prod.Stop()
		return nil, pingErr
	}

	return &Producer{prod: prod, topic: cfg.EventsTopic}, nil
}

// Publish appends an entry, carrying the caller's trace context along.
func (p *Producer) Publish(ctx context.Context, e Entry) error {
	if e.TraceHeaders == nil {
		if headers := tracing.InjectToCarrier(ctx); len(headers) > 0 {
			e.TraceHeaders = headers
		}
	}
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return p.prod.Publish(p.topic, b)
}

// Stop releases the nsqd connection.
func (p *Producer) Stop() {
	p.prod.Stop()
}

// EntryHandler processes one claimed entry. Returning an error leaves the
// entry unacknowledged so the transport redelivers it.
type EntryHandler interface {
	HandleEntry(ctx context.Context, c *ClaimedEntry) error
}

// Consumer is one member of the log's consumer group (an NSQ channel).
// Each instance claims one entry at a time and processes it end-to-end
// before the next claim.
type Consumer struct {
	consumer *nsq.Consumer
	log      *logging.Logger
}

// NewConsumer builds a group member. Channel creation is idempotent on the
// NSQ side, so every instance may attempt it.
func NewConsumer(cfg config.NSQ, h EntryHandler, log *logging.Logger) (*Consumer, error) {
	conf := nsq.NewConfig()
	conf.MaxInFlight = 1 // one claimed entry per instance

	consumer, err := nsq.NewConsumer(cfg.EventsTopic, cfg.Channel, conf)
	if err != nil {
		return nil, err
	}

	consumer.AddHandler(nsq.HandlerFunc(func(m *nsq.Message) error {
		m.DisableAutoResponse() // acknowledgment is the handler's decision

		e, err := ParseEntry(m.Body)
		if err != nil {
			// Malformed entries are terminal: ack and drop.
			log.Plain().WithError(err).Error("dropping malformed log entry")
			m.Finish()
			return nil
		}

		ctx := tracing.ExtractFromCarrier(context.Background(), e.TraceHeaders)
		claimed := NewClaimedEntry(e, m)
		if err := h.HandleEntry(ctx, claimed); err != nil {
			// Leave unacked: nsqd redelivers after the message timeout,
			// which also reclaims entries from crashed consumers.
			log.WithContext(ctx).WithError(err).Warn("entry left unacked for redelivery")
		}
		return nil
	}))

	return &Consumer{consumer: consumer, log: log}, nil
}

// Connect joins the consumer group, retrying the nsqd connection a bounded
// number of times before giving up.
func (c *Consumer) Connect(cfg config.NSQ) error {
	var err error
	for i := 0; i < cfg.MaxConnectTry; i++ {
		// Connecting directly to nsqd forces topic/channel creation instead
		// of waiting for lookupd discovery.
		if err = c.consumer.ConnectToNSQD(cfg.NsqdTCPAddr); err == nil {
			break
		}
		c.log.Plain().WithError(err).WithField("attempt", i+1).Warn("nsqd connect failed")
		time.Sleep(time.Duration(i+1) * 500 * time.Millisecond)
	}
	if err != nil {
		return err
	}
	if err := c.consumer.ConnectToNSQLookupd(cfg.LookupHTTPAddr); err != nil {
		return err
	}
	return nil
}

// Stop leaves the group and waits for the in-flight entry to resolve.
func (c *Consumer) Stop() {
	c.consumer.Stop()
	<-c.consumer.StopChan
}
