// Package eventbus carries invoice lifecycle events over NATS JetStream.
package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/richxcame/geoippro/pkg/config"
	"github.com/richxcame/geoippro/pkg/logger"
	"go.uber.org/zap"
)

// Subjects bound to the invoice stream.
const (
	SubjectInvoiceCreated      = "invoices.created"
	SubjectInvoiceFraudChecked = "invoices.fraud_checked"

	streamSubjects = "invoices.>"
	maxDeliver     = 5
)

// Event is the envelope every message on the bus is wrapped in.
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Source    string          `json:"source"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// NewEvent wraps data in an envelope with a fresh ID.
func NewEvent(eventType, source string, data interface{}) (*Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    source,
		Timestamp: time.Now().UTC(),
		Data:      raw,
	}, nil
}

// Handler processes one event. A returned error redelivers the message.
type Handler func(ctx context.Context, event *Event) error

// Publisher publishes events to a subject.
type Publisher interface {
	Publish(ctx context.Context, subject string, event *Event) error
}

// Bus is a JetStream-backed publisher and durable subscriber.
type Bus struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	stream string

	mu       sync.Mutex
	consumes []jetstream.ConsumeContext
}

var _ Publisher = (*Bus)(nil)

// Connect dials NATS and makes sure the invoice stream exists.
func Connect(ctx context.Context, cfg config.NATSConfig, name string) (*Bus, error) {
	conn, err := nats.Connect(cfg.URL,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     cfg.Stream,
		Subjects: []string{streamSubjects},
		Storage:  jetstream.FileStorage,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ensure stream %s: %w", cfg.Stream, err)
	}

	logger.Info("connected to event bus",
		zap.String("url", conn.ConnectedUrl()),
		zap.String("stream", cfg.Stream),
	)
	return &Bus{conn: conn, js: js, stream: cfg.Stream}, nil
}

// Publish sends event to subject. The event ID doubles as the dedup key.
func (b *Bus) Publish(ctx context.Context, subject string, event *Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := b.js.Publish(ctx, subject, payload, jetstream.WithMsgID(event.ID)); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Subscribe attaches handler to a durable consumer filtered on subject.
func (b *Bus) Subscribe(ctx context.Context, subject, durable string, handler Handler) error {
	consumer, err := b.js.CreateOrUpdateConsumer(ctx, b.stream, jetstream.ConsumerConfig{
		Durable:       durable,
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    maxDeliver,
	})
	if err != nil {
		return fmt.Errorf("create consumer %s: %w", durable, err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		handleMessage(ctx, msg, handler)
	})
	if err != nil {
		return fmt.Errorf("consume %s: %w", subject, err)
	}

	b.mu.Lock()
	b.consumes = append(b.consumes, cc)
	b.mu.Unlock()
	return nil
}

// Ping reports whether the connection to NATS is up.
func (b *Bus) Ping(ctx context.Context) error {
	if !b.conn.IsConnected() {
		return fmt.Errorf("nats connection %s", b.conn.Status())
	}
	return nil
}

// Close stops consumers and drains the connection.
func (b *Bus) Close() error {
	b.mu.Lock()
	for _, cc := range b.consumes {
		cc.Stop()
	}
	b.consumes = nil
	b.mu.Unlock()

	if err := b.conn.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		return err
	}
	return nil
}

func handleMessage(ctx context.Context, msg jetstream.Msg, handler Handler) {
	var event Event
	if err := json.Unmarshal(msg.Data(), &event); err != nil {
		logger.Error("dropping malformed event",
			zap.String("subject", msg.Subject()),
			zap.Error(err),
		)
		_ = msg.Term()
		return
	}

	ctx = logger.ContextWithCorrelationID(ctx, event.ID)
	if err := handler(ctx, &event); err != nil {
		logger.WithContext(ctx).Warn("event handler failed, requesting redelivery",
			zap.String("type", event.Type),
			zap.Error(err),
		)
		_ = msg.Nak()
		return
	}
	_ = msg.Ack()
}
