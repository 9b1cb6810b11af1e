package broker

import (
	"context"
	"errors"
	"fmt"

	"amenityhub/internal/config"

	amqp "github.com/rabbitmq/amqp091-go"
)

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher sends events to a durable topic exchange with the event type as routing key.
type AMQPPublisher struct {
	conn     *amqp.Connection
	ch       amqpChannel
	exchange string
}

func NewAMQPPublisher(cfg config.AMQPConfig) (*AMQPPublisher, error) {
	if cfg.URL == "" {
		return nil, errors.New("amqp url is required")
	}
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		cfg.Exchange, // name
		"topic",      // kind
		true,         // durable
		false,        // autoDelete
		false,        // internal
		false,        // noWait
		nil,          // args
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("amqp exchange declare: %w", err)
	}

	return &AMQPPublisher{conn: conn, ch: ch, exchange: cfg.Exchange}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, msg Message) error {
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    msg.Timestamp.UTC(),
		MessageId:    fmt.Sprint(msg.ID),
		Type:         msg.Type,
		Headers:      amqp.Table{"key": msg.Key},
		Body:         msg.Payload,
	}
	if err := p.ch.PublishWithContext(ctx, p.exchange, msg.Type, false, false, pub); err != nil {
		return fmt.Errorf("amqp publish %s: %w", msg.Type, err)
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	errCh := p.ch.Close()
	var errConn error
	if p.conn != nil {
		errConn = p.conn.Close()
	}
	return errors.Join(errCh, errConn)
}
