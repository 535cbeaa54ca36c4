package delivery

import (
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// settle maps a delivery outcome onto the broker's acknowledgment
// primitives. Every consumed message is settled exactly once, and no other
// code path touches ack/nack directly.
func settle(logger *slog.Logger, outcome Outcome, d amqp.Delivery) {
	var err error

	switch outcome {
	case OutcomeAck:
		err = d.Ack(false)
	case OutcomeRequeue:
		err = d.Nack(false, true)
	case OutcomeReject:
		err = d.Nack(false, false)
	}

	if err != nil {
		logger.Error("Failed to settle message",
			slog.String("outcome", outcome.String()),
			slog.Uint64("delivery_tag", d.DeliveryTag),
			slog.String("error", err.Error()),
		)
		return
	}

	logger.Debug("Message settled",
		slog.String("outcome", outcome.String()),
		slog.Uint64("delivery_tag", d.DeliveryTag),
	)
}
