// Package rabbitmq publishes and consumes order lifecycle events over AMQP.
package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"storefront/internal/models"

	"github.com/rs/zerolog/log"
	amqp "github.com/streadway/amqp"
)

const (
	// ExchangeName is the topic exchange order events are published to.
	ExchangeName = "orders"
	// QueueName is the durable queue bound to every order and payment event.
	QueueName = "order_queue"
)

var bindingKeys = []string{"order.#", "payment.#"}

// ErrClosed is returned when the client is used after Close.
var ErrClosed = errors.New("rabbitmq client is closed")

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	mu      sync.Mutex // amqp channels are not safe for concurrent publishing
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL string
}

// NewClient connects to RabbitMQ and declares the exchange, the queue and their bindings.
func NewClient(cfg Config) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := declareTopology(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	log.Info().Str("exchange", ExchangeName).Str("queue", QueueName).Msg("rabbitmq client connected")
	return &Client{
		conn:    conn,
		channel: ch,
	}, nil
}

func declareTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(
		ExchangeName, // name
		"topic",      // kind
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", ExchangeName, err)
	}

	if _, err := ch.QueueDeclare(
		QueueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	); err != nil {
		return fmt.Errorf("failed to declare %s: %w", QueueName, err)
	}

	for _, key := range bindingKeys {
		if err := ch.QueueBind(QueueName, key, ExchangeName, false, nil); err != nil {
			return fmt.Errorf("failed to bind %s to %s: %w", QueueName, key, err)
		}
	}
	return nil
}

// Close closes the RabbitMQ channel and connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
		c.channel = nil
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
		c.conn = nil
	}
	return errors.Join(errs...)
}

// Publish sends a persistent JSON message to the orders exchange.
func (c *Client) Publish(ctx context.Context, routingKey string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel == nil {
		return ErrClosed
	}

	err := c.channel.Publish(
		ExchangeName, // exchange
		routingKey,   // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// PublishOrderEvent publishes event with its type as the routing key.
func (c *Client) PublishOrderEvent(ctx context.Context, event models.OrderEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal order event: %w", err)
	}
	if err := c.Publish(ctx, string(event.Type), body); err != nil {
		return err
	}
	log.Debug().Str("event", string(event.Type)).Uint("order_id", event.OrderID).Msg("order event published")
	return nil
}

// EventHandler processes one decoded order event.
type EventHandler func(ctx context.Context, event models.OrderEvent) error

// ConsumeOrderEvents delivers events from order_queue to handler until ctx is
// done or the channel closes. Messages are acknowledged manually.
func (c *Client) ConsumeOrderEvents(ctx context.Context, handler EventHandler) error {
	c.mu.Lock()
	ch := c.channel
	c.mu.Unlock()
	if ch == nil {
		return ErrClosed
	}

	msgs, err := ch.Consume(
		QueueName, // queue
		"",        // consumer tag
		false,     // auto-ack
		false,     // exclusive
		false,     // no-local
		false,     // no-wait
		nil,       // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	log.Info().Str("queue", QueueName).Msg("consuming order events")
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					log.Warn().Str("queue", QueueName).Msg("order event delivery channel closed")
					return
				}
				handleDelivery(ctx, msg, handler)
			}
		}
	}()
	return nil
}

// handleDelivery decodes msg, runs handler and settles the message. Malformed
// messages are dropped; handler failures are requeued once.
func handleDelivery(ctx context.Context, msg amqp.Delivery, handler EventHandler) {
	var event models.OrderEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil || event.Type == "" {
		log.Error().Err(err).Uint64("delivery_tag", msg.DeliveryTag).Msg("dropping malformed order event")
		if nackErr := msg.Nack(false, false); nackErr != nil {
			log.Error().Err(nackErr).Uint64("delivery_tag", msg.DeliveryTag).Msg("failed to nack message")
		}
		return
	}

	if err := handler(ctx, event); err != nil {
		requeue := !msg.Redelivered
		log.Warn().Err(err).Str("event", string(event.Type)).Bool("requeue", requeue).Msg("order event handler failed")
		if nackErr := msg.Nack(false, requeue); nackErr != nil {
			log.Error().Err(nackErr).Uint64("delivery_tag", msg.DeliveryTag).Msg("failed to nack message")
		}
		return
	}

	if ackErr := msg.Ack(false); ackErr != nil {
		log.Error().Err(ackErr).Uint64("delivery_tag", msg.DeliveryTag).Msg("failed to ack message")
	}
}
