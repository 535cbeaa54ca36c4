package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Config holds broker connection configuration
type Config struct {
	URL                string
	Queue              string
	Heartbeat          time.Duration
	ConnectionTimeout  time.Duration
	PublishRetries     int
	PublishRetryDelay  time.Duration
	PublishBackoffMult float64
}

// Session is one incarnation of a broker connection and channel with the
// durable work queue declared. A session is not reused after a fault: the
// owner closes it and dials a fresh one.
type Session struct {
	config    *Config
	conn      *amqp.Connection
	channel   *amqp.Channel
	logger    *slog.Logger
	closeChan chan *amqp.Error
}

// Dial connects to the broker, opens a channel, and declares the durable
// work queue. Any failure tears down whatever was established.
func Dial(config *Config, logger *slog.Logger) (*Session, error) {
	amqpConfig := amqp.Config{
		Heartbeat: config.Heartbeat,
		Locale:    "en_US",
	}
	if config.ConnectionTimeout > 0 {
		amqpConfig.Dial = amqp.DefaultDial(config.ConnectionTimeout)
	}

	conn, err := amqp.DialConfig(config.URL, amqpConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	_, err = channel.QueueDeclare(
		config.Queue, // name
		true,         // durable
		false,        // auto-delete
		false,        // exclusive
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	closeChan := make(chan *amqp.Error, 1)
	conn.NotifyClose(closeChan)

	logger.Info("Broker session established",
		slog.String("queue", config.Queue),
	)

	return &Session{
		config:    config,
		conn:      conn,
		channel:   channel,
		logger:    logger,
		closeChan: closeChan,
	}, nil
}

// Qos caps the number of unacknowledged deliveries the broker will hand
// to this session's consumers.
func (s *Session) Qos(prefetch int) error {
	if err := s.channel.Qos(prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}
	return nil
}

// Consume starts consuming messages from the work queue with manual
// acknowledgment.
func (s *Session) Consume(consumerTag string) (<-chan amqp.Delivery, error) {
	deliveries, err := s.channel.Consume(
		s.config.Queue, // queue
		consumerTag,    // consumer tag
		false,          // auto-ack
		false,          // exclusive
		false,          // no-local
		false,          // no-wait
		nil,            // args
	)
	if err != nil {
		return nil, fmt.Errorf("failed to consume messages: %w", err)
	}

	s.logger.Info("Started consuming from queue",
		slog.String("queue", s.config.Queue),
		slog.String("consumer_tag", consumerTag),
	)

	return deliveries, nil
}

// NotifyClose returns the channel signaling connection error/close events.
// A nil error on the channel means a clean close.
func (s *Session) NotifyClose() <-chan *amqp.Error {
	return s.closeChan
}

// Publish sends a persistent message to the work queue through the
// default exchange.
func (s *Session) Publish(ctx context.Context, body []byte, messageID string) error {
	err := s.channel.PublishWithContext(
		ctx,
		"",             // exchange (default)
		s.config.Queue, // routing key
		false,          // mandatory
		false,          // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    messageID,
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)

	if err != nil {
		s.logger.Error("Failed to publish message",
			slog.String("message_id", messageID),
			slog.Any("error", err),
		)
		return fmt.Errorf("failed to publish message: %w", err)
	}

	s.logger.Debug("Message published",
		slog.String("message_id", messageID),
		slog.Int("body_size", len(body)),
	)

	return nil
}

// PublishWithRetry publishes with retry and exponential backoff. Used by
// the enqueue API, where the caller is an HTTP request rather than the
// supervised consumer loop.
func (s *Session) PublishWithRetry(ctx context.Context, body []byte, messageID string) error {
	maxRetries := s.config.PublishRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	baseDelay := s.config.PublishRetryDelay
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}

	mult := s.config.PublishBackoffMult
	if mult < 1 {
		mult = 2
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := s.Publish(ctx, body, messageID)
		if err == nil {
			if attempt > 0 {
				s.logger.Info("Message published after retry",
					slog.String("message_id", messageID),
					slog.Int("attempt", attempt+1),
				)
			}
			return nil
		}

		lastErr = err

		if attempt < maxRetries {
			backoffDelay := time.Duration(float64(baseDelay) * math.Pow(mult, float64(attempt)))
			s.logger.Warn("Failed to publish message, retrying...",
				slog.String("message_id", messageID),
				slog.Int("attempt", attempt+1),
				slog.Int("max_retries", maxRetries),
				slog.Duration("retry_after", backoffDelay),
			)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoffDelay):
			}
		}
	}

	return fmt.Errorf("failed to publish message after %d attempts: %w", maxRetries+1, lastErr)
}

// IsClosed reports whether the underlying connection is gone.
func (s *Session) IsClosed() bool {
	return s.conn == nil || s.conn.IsClosed()
}

// Close closes the channel and connection.
func (s *Session) Close() error {
	if s.channel != nil {
		if err := s.channel.Close(); err != nil {
			s.logger.Debug("Failed to close broker channel",
				slog.Any("error", err),
			)
		}
	}

	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			s.logger.Debug("Failed to close broker connection",
				slog.Any("error", err),
			)
			return err
		}
	}

	return nil
}
