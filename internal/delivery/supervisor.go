package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// inFlightLimit caps the number of unacknowledged deliveries the broker
// hands to this process. Strict head-of-line processing: never two jobs in
// flight concurrently.
const inFlightLimit = 1

// DefaultReconnectDelay is the fixed wait between broker session attempts.
const DefaultReconnectDelay = time.Second

// BrokerSession is one incarnation of a broker connection and channel with
// the durable work queue declared. A session is never reused after a
// fault; the supervisor opens a fresh one on every reconnect.
type BrokerSession interface {
	Qos(prefetch int) error
	Consume(consumerTag string) (<-chan amqp.Delivery, error)
	NotifyClose() <-chan *amqp.Error
	Close() error
}

// SessionFactory opens a new broker session.
type SessionFactory func() (BrokerSession, error)

// SupervisorConfig holds supervisor dependencies.
type SupervisorConfig struct {
	Logger         *slog.Logger
	Sessions       SessionFactory
	Consumer       *Consumer
	ServiceName    string
	ReconnectDelay time.Duration
	Clock          clock.Clock
}

// Supervisor owns the broker connection lifecycle. On any fault it tears
// the session down and restarts the consume cycle after a fixed delay,
// indefinitely. Broker faults never terminate the process.
type Supervisor struct {
	logger         *slog.Logger
	sessions       SessionFactory
	consumer       *Consumer
	serviceName    string
	reconnectDelay time.Duration
	clock          clock.Clock
}

// NewSupervisor creates a supervisor. Zero-value fields fall back to
// defaults: one second reconnect delay and the wall clock.
func NewSupervisor(cfg *SupervisorConfig) *Supervisor {
	delay := cfg.ReconnectDelay
	if delay <= 0 {
		delay = DefaultReconnectDelay
	}

	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}

	return &Supervisor{
		logger:         cfg.Logger,
		sessions:       cfg.Sessions,
		consumer:       cfg.Consumer,
		serviceName:    cfg.ServiceName,
		reconnectDelay: delay,
		clock:          clk,
	}
}

// Run drives the connect/consume cycle until ctx is canceled. It retries
// forever at a fixed interval: no backoff, no jitter, no attempt cap. The
// upstream broker is assumed to recover on its own timeline.
func (s *Supervisor) Run(ctx context.Context) {
	for {
		s.runSession(ctx)

		if ctx.Err() != nil {
			s.logger.Info("Supervisor stopped - context canceled")
			return
		}

		s.logger.Info("Scheduling broker reconnect",
			slog.Duration("delay", s.reconnectDelay),
		)

		timer := s.clock.Timer(s.reconnectDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("Supervisor stopped - context canceled")
			return
		case <-timer.C:
		}
	}
}

// runSession opens a fresh session and consumes from it until it dies.
// Every failure path returns to Run for the reconnect delay.
func (s *Supervisor) runSession(ctx context.Context) {
	session, err := s.sessions()
	if err != nil {
		s.logger.Error("Failed to open broker session",
			slog.String("error", err.Error()),
		)
		return
	}
	defer session.Close()

	closed := session.NotifyClose()

	if err := session.Qos(inFlightLimit); err != nil {
		s.logger.Error("Failed to set broker QoS",
			slog.String("error", err.Error()),
		)
		return
	}

	consumerTag := fmt.Sprintf("%s-%s", s.serviceName, uuid.NewString())

	deliveries, err := session.Consume(consumerTag)
	if err != nil {
		s.logger.Error("Failed to start consuming",
			slog.String("error", err.Error()),
		)
		return
	}

	s.logger.Info("Consuming from broker",
		slog.String("consumer_tag", consumerTag),
		slog.Int("prefetch", inFlightLimit),
	)

	// Returns when the delivery channel closes (broker fault) or ctx is
	// canceled. In-flight acknowledgments go through the delivery handles
	// of this session only; nothing caches them across a reconnect.
	s.consumer.Consume(ctx, deliveries)

	if ctx.Err() != nil {
		return
	}

	select {
	case amqpErr := <-closed:
		if amqpErr != nil {
			s.logger.Error("Broker connection error",
				slog.String("error", amqpErr.Error()),
			)
		} else {
			s.logger.Warn("Broker connection closed")
		}
	default:
		s.logger.Warn("Broker delivery channel closed")
	}
}
