package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	publishTimeout = 5 * time.Second
	prefetchCount  = 8
)

// Client is a RabbitMQ connection bound to a single durable queue.
// It publishes and consumes ReceiptCreated events.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   amqp.Queue
	logger  *slog.Logger
}

var _ Publisher = (*Client)(nil)

// Dial connects to the broker and declares the queue.
func Dial(url, queueName string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	// Idempotent: the queue is only created if it does not exist.
	q, err := ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue %q: %w", queueName, err)
	}

	logger.Info("RabbitMQ queue ready", "queue", q.Name, "messages", q.Messages)
	return &Client{conn: conn, channel: ch, queue: q, logger: logger}, nil
}

// PublishReceiptCreated publishes the event as a persistent JSON message.
func (c *Client) PublishReceiptCreated(ctx context.Context, event ReceiptCreated) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = c.channel.PublishWithContext(
		publishCtx,
		"",           // default exchange
		c.queue.Name, // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    event.EventID,
			Timestamp:    event.CreatedAt,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	c.logger.Debug("Event published", "queue", c.queue.Name, "event_id", event.EventID, "receipt_id", event.ReceiptID)
	return nil
}

// Consume delivers queued events to handler until ctx is cancelled or the
// broker closes the channel. Messages are acknowledged manually.
func (c *Client) Consume(ctx context.Context, handler Handler) error {
	if err := c.channel.Qos(prefetchCount, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := c.channel.ConsumeWithContext(ctx,
		c.queue.Name,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register a consumer: %w", err)
	}

	c.logger.Info("Consumer registered", "queue", c.queue.Name)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Consumer stopping", "queue", c.queue.Name)
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return errors.New("RabbitMQ delivery channel closed")
			}
			c.settle(msg, dispatch(ctx, msg.Body, handler, c.logger))
		}
	}
}

func (c *Client) settle(msg amqp.Delivery, a action) {
	var err error
	switch a {
	case ack:
		err = msg.Ack(false)
	case drop:
		err = msg.Nack(false, false)
	case requeue:
		err = msg.Nack(false, true)
	}
	if err != nil {
		c.logger.Error("Failed to settle message", "delivery_tag", msg.DeliveryTag, "error", err)
	}
}

// Close closes the channel and the connection.
func (c *Client) Close() error {
	return errors.Join(c.channel.Close(), c.conn.Close())
}

type action int

const (
	ack action = iota
	drop
	requeue
)

// dispatch decodes one message body and runs handler on it. Undecodable
// messages are dropped so they cannot loop forever; handler failures requeue.
func dispatch(ctx context.Context, body []byte, handler Handler, logger *slog.Logger) action {
	var event ReceiptCreated
	if err := json.Unmarshal(body, &event); err != nil {
		logger.Warn("Dropping malformed message", "error", err, "bytes", len(body))
		return drop
	}
	if event.ReceiptID <= 0 {
		logger.Warn("Dropping message without receipt id", "event_id", event.EventID)
		return drop
	}

	if err := handler(ctx, event); err != nil {
		logger.Error("Failed to process event", "event_id", event.EventID, "receipt_id", event.ReceiptID, "error", err)
		return requeue
	}
	return ack
}
