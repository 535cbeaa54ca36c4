package delivery

import (
	"context"
	"log/slog"

	"github.com/benbjohnson/clock"
	"github.com/phamtq/msg-delivery/internal/delivery/domain"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Consumer drains deliveries from one broker session and routes each job
// through the spacing scheduler into the processor. It runs strictly
// sequentially; the broker's prefetch limit of one guarantees at most one
// unacknowledged delivery is outstanding at a time.
type Consumer struct {
	logger    *slog.Logger
	scheduler *Scheduler
	processor *Processor
	clock     clock.Clock
}

// NewConsumer creates a consumer. Pass a nil clock to use the wall clock.
func NewConsumer(logger *slog.Logger, scheduler *Scheduler, processor *Processor, clk clock.Clock) *Consumer {
	if clk == nil {
		clk = clock.New()
	}
	return &Consumer{
		logger:    logger,
		scheduler: scheduler,
		processor: processor,
		clock:     clk,
	}
}

// Consume processes deliveries until the channel closes (a broker fault)
// or ctx is canceled. The caller reopens a session and calls Consume again
// on reconnect.
func (c *Consumer) Consume(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Consumer stopped - context canceled")
			return

		case d, ok := <-deliveries:
			if !ok {
				c.logger.Warn("Broker delivery channel closed")
				return
			}
			c.handle(ctx, d)
		}
	}
}

// handle settles exactly one delivery: ack, requeue, or reject.
func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) {
	// The broker hands an empty delivery when it cancels the consumer;
	// there is nothing to settle.
	if len(d.Body) == 0 {
		c.logger.Debug("Skipping empty delivery",
			slog.Uint64("delivery_tag", d.DeliveryTag),
		)
		return
	}

	job, err := domain.DecodeJob(d.Body)
	if err != nil {
		c.logger.Error("Failed to decode job, rejecting without requeue",
			slog.String("error", err.Error()),
			slog.String("body", string(d.Body)),
		)
		settle(c.logger, OutcomeReject, d)
		return
	}

	// Honor the minimum spacing. The delivery slot stays open during the
	// wait; with a prefetch limit of one the broker will not hand over the
	// next message until this one is settled.
	if wait := c.scheduler.Reserve(); wait > 0 {
		c.logger.Debug("Delaying job to honor rate limit",
			slog.Duration("wait", wait),
			slog.String("to", job.To),
		)

		timer := c.clock.Timer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			settle(c.logger, OutcomeRequeue, d)
			return
		case <-timer.C:
		}
	}

	outcome := c.processor.Process(ctx, job)
	settle(c.logger, outcome, d)
}
