package domain

import "errors"

var (
	// ErrMalformedJob is returned when a queue message cannot be decoded into a Job
	ErrMalformedJob = errors.New("malformed job payload")

	// ErrRecipientNotFound is returned when the recipient address does not exist.
	// This is a permanent failure: retrying cannot change the outcome.
	ErrRecipientNotFound = errors.New("recipient does not exist")
)

// ChannelError wraps transient delivery-channel failures (connectivity loss,
// gateway errors). Jobs failing with a ChannelError are requeued.
type ChannelError struct {
	Op  string
	Err error
}

func (e *ChannelError) Error() string {
	return "channel error during " + e.Op + ": " + e.Err.Error()
}

func (e *ChannelError) Unwrap() error {
	return e.Err
}

// NewChannelError wraps err as a transient channel failure for op.
func NewChannelError(op string, err error) error {
	return &ChannelError{Op: op, Err: err}
}

// IsTransient reports whether err should trigger a requeue rather than a
// discard. Unknown errors from the channel adapter are assumed transient.
func IsTransient(err error) bool {
	if errors.Is(err, ErrRecipientNotFound) {
		return false
	}
	return true
}
