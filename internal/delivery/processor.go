package delivery

import (
	"context"
	"log/slog"

	"github.com/phamtq/msg-delivery/internal/delivery/domain"
)

// Channel is the delivery-channel adapter boundary. The channel may be
// unavailable independently of the broker; readiness is a binary signal.
type Channel interface {
	IsReady() bool
	RecipientExists(ctx context.Context, addr string) (bool, error)
	SendText(ctx context.Context, addr, text string) error
	SendMedia(ctx context.Context, addr string, media domain.Media) error
}

// Processor attempts to deliver a single job through the channel adapter
// and reduces every failure mode to an Outcome.
type Processor struct {
	channel Channel
	logger  *slog.Logger
}

// NewProcessor creates a processor backed by the given channel adapter.
func NewProcessor(channel Channel, logger *slog.Logger) *Processor {
	return &Processor{
		channel: channel,
		logger:  logger,
	}
}

// Process delivers one job. It never returns an error: transient failures
// map to OutcomeRequeue, permanent ones to OutcomeAck (discard).
func (p *Processor) Process(ctx context.Context, job *domain.Job) Outcome {
	if !p.channel.IsReady() {
		p.logger.Warn("Delivery channel not ready, requeueing job",
			slog.String("to", job.To),
		)
		return OutcomeRequeue
	}

	addr := domain.NormalizeRecipient(job.To)

	// Existence is only checkable for single-user addresses.
	if !domain.IsGroup(addr) {
		exists, err := p.channel.RecipientExists(ctx, addr)
		if err != nil {
			p.logger.Error("Failed to check recipient existence",
				slog.String("address", addr),
				slog.String("error", err.Error()),
			)
			return OutcomeRequeue
		}

		if !exists {
			p.logger.Error("Recipient does not exist, discarding job",
				slog.String("address", addr),
			)
			return OutcomeAck
		}
	}

	if err := p.send(ctx, addr, job); err != nil {
		if !domain.IsTransient(err) {
			p.logger.Error("Send failed permanently, discarding job",
				slog.String("address", addr),
				slog.String("kind", string(job.Type)),
				slog.String("error", err.Error()),
			)
			return OutcomeAck
		}

		p.logger.Error("Failed to send message",
			slog.String("address", addr),
			slog.String("kind", string(job.Type)),
			slog.String("error", err.Error()),
		)
		return OutcomeRequeue
	}

	p.logger.Info("Message delivered",
		slog.String("address", addr),
		slog.String("kind", string(job.Type)),
	)
	return OutcomeAck
}

// send dispatches on the job kind. A media body that does not match the
// data-URI encoding degrades to plain text delivery.
func (p *Processor) send(ctx context.Context, addr string, job *domain.Job) error {
	if job.Type == domain.KindMedia {
		media, ok := domain.ParseMediaBody(job.Msg)
		if ok {
			media.Caption = job.Caption()
			return p.channel.SendMedia(ctx, addr, media)
		}

		p.logger.Warn("Media body does not match expected encoding, sending as text",
			slog.String("address", addr),
		)
	}

	return p.channel.SendText(ctx, addr, job.Msg)
}
