package delivery

// Outcome is the result of one delivery attempt, mapped onto the broker's
// acknowledgment primitives by settle.
type Outcome int

const (
	// OutcomeRequeue returns the message to the broker for redelivery.
	// Used for transient failures: channel not ready, send error.
	OutcomeRequeue Outcome = iota

	// OutcomeAck removes the message from the broker. Covers both a
	// successful send and permanently-unsendable jobs (unknown recipient),
	// where redelivery cannot change the result.
	OutcomeAck

	// OutcomeReject drops the message without requeue. Used for poison
	// messages; the queue's dead-letter policy, if any, applies.
	OutcomeReject
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRequeue:
		return "requeue"
	case OutcomeAck:
		return "ack"
	case OutcomeReject:
		return "reject"
	default:
		return "unknown"
	}
}
