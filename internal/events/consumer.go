package events

import (
	"context"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const consumerTag = "storefront-engine"

// HandlerFunc processes one message body. Returning an error wrapping ErrMalformed drops
// the message; any other error is logged and the message is acknowledged.
type HandlerFunc func(ctx context.Context, body []byte) error

// ErrMalformed marks a message that can never be processed.
var ErrMalformed = errors.New("malformed message")

// Dial connects to the broker at url.
func Dial(url string) (*amqp.Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}
	return conn, nil
}

// StartConsumer declares queue and feeds its messages to handler until ctx is done or
// the delivery channel closes.
func StartConsumer(ctx context.Context, conn *amqp.Connection, queue string, handler HandlerFunc, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return fmt.Errorf("queue declare %s: %w", queue, err)
	}

	if err := ch.Qos(16, 0, false); err != nil {
		_ = ch.Close()
		return fmt.Errorf("qos: %w", err)
	}

	msgs, err := ch.Consume(
		queue,
		consumerTag+"."+queue,
		false, // autoAck
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return fmt.Errorf("consume %s: %w", queue, err)
	}

	log := logger.With(zap.String("queue", queue))
	go func() {
		defer ch.Close()
		for {
			select {
			case <-ctx.Done():
				log.Info("stopping consumer")
				return
			case msg, ok := <-msgs:
				if !ok {
					log.Warn("messages channel closed")
					return
				}
				dispatch(ctx, msg, handler, log)
			}
		}
	}()

	return nil
}

func dispatch(ctx context.Context, msg amqp.Delivery, handler HandlerFunc, logger *zap.Logger) {
	err := handler(ctx, msg.Body)
	switch {
	case errors.Is(err, ErrMalformed):
		logger.Warn("dropping message", zap.String("message_id", msg.MessageId), zap.Error(err))
		_ = msg.Nack(false, false)
	case err != nil:
		logger.Warn("message rejected by engine", zap.String("message_id", msg.MessageId), zap.Error(err))
		_ = msg.Ack(false)
	default:
		_ = msg.Ack(false)
	}
}
