package broker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"amenityhub/internal/config"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to one topic keyed by resource id, so the
// events of one resource land in one partition in order.
type KafkaPublisher struct {
	writer kafkaWriter
}

func NewKafkaPublisher(cfg config.KafkaConfig, logger *zerolog.Logger) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("at least one kafka broker is required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka topic cannot be empty")
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		MaxAttempts:            3,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
		Logger:                 kafka.LoggerFunc(func(string, ...any) {}),
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...any) {
			logger.Error().Msgf("kafka: "+msg, args...)
		}),
	}
	return &KafkaPublisher{writer: writer}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, msg Message) error {
	km := kafka.Message{
		Key:   []byte(msg.Key),
		Value: msg.Payload,
		Time:  msg.Timestamp,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(msg.Type)},
			{Key: "outbox_id", Value: []byte(fmt.Sprint(msg.ID))},
		},
	}
	if err := p.writer.WriteMessages(ctx, km); err != nil {
		return fmt.Errorf("kafka publish %s: %w", msg.Type, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
