package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Config holds RabbitMQ connection configuration
type Config struct {
	Host              string
	Port              int
	User              string
	Password          string
	VHost             string
	RetryAttempts     int
	RetryInterval     time.Duration
	Heartbeat         time.Duration
	ConnectionTimeout time.Duration
	PrefetchCount     int
}

// Client wraps a shared, lazily re-established RabbitMQ connection and a
// channel per logical route ("generate", "thread", "cloning", "transcript",
// plus the completion queues). A connection-level close invalidates every
// cached channel; the next caller reconnects instead of operating on a dead
// handle.
type Client struct {
	config *Config
	logger *slog.Logger

	mu       sync.Mutex
	conn     *amqp.Connection
	channels map[string]*amqp.Channel
}

// NewClient creates a new RabbitMQ client and establishes the initial
// connection with retry logic.
func NewClient(config *Config, logger *slog.Logger) (*Client, error) {
	client := &Client{
		config:   config,
		logger:   logger,
		channels: make(map[string]*amqp.Channel),
	}

	client.mu.Lock()
	defer client.mu.Unlock()
	if err := client.connectLocked(); err != nil {
		return nil, fmt.Errorf("failed to create RabbitMQ client: %w", err)
	}

	return client, nil
}

// connectLocked dials the broker with retry. Caller must hold c.mu.
func (c *Client) connectLocked() error {
	var err error

	dsn := fmt.Sprintf("amqp://%s:%s@%s:%d%s",
		c.config.User,
		c.config.Password,
		c.config.Host,
		c.config.Port,
		c.config.VHost,
	)

	amqpConfig := amqp.Config{
		Heartbeat: c.config.Heartbeat,
		Locale:    "en_US",
	}

	attempts := c.config.RetryAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var conn *amqp.Connection
	for attempt := 1; attempt <= attempts; attempt++ {
		c.logger.Info("Connecting to RabbitMQ",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
		)

		conn, err = amqp.DialConfig(dsn, amqpConfig)
		if err == nil {
			break
		}

		c.logger.Error("Failed to connect to RabbitMQ",
			slog.Any("error", err),
			slog.Int("attempt", attempt),
		)

		if attempt < attempts {
			time.Sleep(c.config.RetryInterval)
		}
	}

	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", attempts, err)
	}

	c.conn = conn
	c.channels = make(map[string]*amqp.Channel)

	// Invalidate cached channels when the connection drops so the next
	// caller redials instead of using a dead handle.
	closeChan := make(chan *amqp.Error, 1)
	conn.NotifyClose(closeChan)
	go func() {
		amqpErr, ok := <-closeChan
		if !ok {
			return
		}
		c.logger.Warn("RabbitMQ connection closed",
			slog.Any("error", amqpErr),
		)
		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
			c.channels = make(map[string]*amqp.Channel)
		}
		c.mu.Unlock()
	}()

	c.logger.Info("Successfully connected to RabbitMQ")
	return nil
}

// RouteChannel returns the channel for a logical route, creating it (and
// reconnecting) on first use.
func (c *Client) RouteChannel(route string) (*amqp.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil || c.conn.IsClosed() {
		if err := c.connectLocked(); err != nil {
			return nil, err
		}
	}

	if ch, ok := c.channels[route]; ok && !ch.IsClosed() {
		return ch, nil
	}

	ch, err := c.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to create channel for route %q: %w", route, err)
	}

	c.channels[route] = ch
	c.logger.Debug("Channel created",
		slog.String("route", route),
	)
	return ch, nil
}

// EnsureWorkQueue declares the durable work queue for a route. Idempotent.
func (c *Client) EnsureWorkQueue(route string) error {
	ch, err := c.RouteChannel(route)
	if err != nil {
		return err
	}

	_, err = ch.QueueDeclare(
		route, // name
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare work queue %q: %w", route, err)
	}
	return nil
}

// DeclareReplyQueue declares a fresh, exclusive, auto-named reply queue for
// one in-flight request. The queue disappears when this connection drops.
func (c *Client) DeclareReplyQueue(route string) (string, error) {
	ch, err := c.RouteChannel(route)
	if err != nil {
		return "", err
	}

	name := fmt.Sprintf("%s-reply-%s", route, uuid.New().String())
	_, err = ch.QueueDeclare(
		name,
		false, // durable
		true,  // auto-delete
		true,  // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return "", fmt.Errorf("failed to declare reply queue %q: %w", name, err)
	}
	return name, nil
}

// ConsumeReplies starts consuming a reply queue with manual acknowledgment.
func (c *Client) ConsumeReplies(route, queue string) (<-chan amqp.Delivery, error) {
	ch, err := c.RouteChannel(route)
	if err != nil {
		return nil, err
	}

	deliveries, err := ch.Consume(
		queue,
		"",    // consumer tag
		false, // auto-ack
		true,  // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to consume reply queue %q: %w", queue, err)
	}
	return deliveries, nil
}

// PublishJob publishes a job body to a route's work queue, tagging the
// message with the correlation id and the reply destination.
func (c *Client) PublishJob(ctx context.Context, route string, body []byte, correlationID, replyTo string) error {
	ch, err := c.RouteChannel(route)
	if err != nil {
		return err
	}

	err = ch.PublishWithContext(
		ctx,
		"",    // default exchange
		route, // routing key = queue name
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			Body:          body,
			DeliveryMode:  amqp.Persistent,
			CorrelationId: correlationID,
			ReplyTo:       replyTo,
			Timestamp:     time.Now(),
		},
	)
	if err != nil {
		c.logger.Error("Failed to publish message to RabbitMQ",
			slog.String("route", route),
			slog.Any("error", err),
		)
		return fmt.Errorf("failed to publish message to %q: %w", route, err)
	}

	c.logger.Debug("Message published to RabbitMQ",
		slog.String("route", route),
		slog.String("correlation_id", correlationID),
		slog.Int("body_size", len(body)),
	)
	return nil
}

// ConsumeCompletions declares a durable shared completion queue and starts
// consuming it with manual acknowledgment and the configured prefetch.
func (c *Client) ConsumeCompletions(queue string) (<-chan amqp.Delivery, error) {
	return c.consumeDurable(queue)
}

// ConsumeWork declares a durable work queue and starts consuming it. Used by
// worker processes; the queue is shared across worker replicas.
func (c *Client) ConsumeWork(route string) (<-chan amqp.Delivery, error) {
	return c.consumeDurable(route)
}

func (c *Client) consumeDurable(queue string) (<-chan amqp.Delivery, error) {
	ch, err := c.RouteChannel(queue)
	if err != nil {
		return nil, err
	}

	_, err = ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to declare queue %q: %w", queue, err)
	}

	prefetch := c.config.PrefetchCount
	if prefetch <= 0 {
		prefetch = 1
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("failed to set QoS on %q: %w", queue, err)
	}

	deliveries, err := ch.Consume(
		queue,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive: durable queues are shared
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to consume queue %q: %w", queue, err)
	}

	c.logger.Info("Started consuming queue",
		slog.String("queue", queue),
	)
	return deliveries, nil
}

// PublishReply sends a worker result to the reply destination of a job,
// reusing the route's channel since reply queues are one-shot. The reply
// queue is transient, so the message is not persisted.
func (c *Client) PublishReply(ctx context.Context, route, replyTo string, body []byte, correlationID string) error {
	ch, err := c.RouteChannel(route)
	if err != nil {
		return err
	}

	err = ch.PublishWithContext(
		ctx,
		"",      // default exchange
		replyTo, // routing key = reply queue name
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			Body:          body,
			CorrelationId: correlationID,
			Timestamp:     time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish reply to %q: %w", replyTo, err)
	}
	return nil
}

// IsConnected returns the connection status.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && !c.conn.IsClosed()
}

// Close closes every cached channel and the underlying connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.logger.Info("Closing RabbitMQ connection")

	for route, ch := range c.channels {
		if err := ch.Close(); err != nil {
			c.logger.Error("Failed to close RabbitMQ channel",
				slog.String("route", route),
				slog.Any("error", err),
			)
		}
	}
	c.channels = make(map[string]*amqp.Channel)

	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			c.logger.Error("Failed to close RabbitMQ connection",
				slog.Any("error", err),
			)
			c.conn = nil
			return err
		}
		c.conn = nil
	}

	c.logger.Info("RabbitMQ connection closed")
	return nil
}
