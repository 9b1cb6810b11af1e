package broker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// Message is one relayed domain event.
type Message struct {
	ID        int64
	Type      string
	Key       string
	Payload   []byte
	Timestamp time.Time
}

// Publisher delivers messages to an external broker.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}

// Multi fans a message out to every publisher. Delivery fails if any target fails.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, msg Message) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogPublisher writes events to the log. Used when no broker is configured.
type LogPublisher struct {
	logger *zerolog.Logger
}

func NewLogPublisher(logger *zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, msg Message) error {
	p.logger.Info().
		Int64("outbox_id", msg.ID).
		Str("event", msg.Type).
		Str("key", msg.Key).
		RawJSON("payload", msg.Payload).
		Msg("event published")
	return nil
}

func (p *LogPublisher) Close() error { return nil }
