package delivery

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Scheduler enforces a minimum interval between consecutive delivery
// attempts process-wide. It owns the only piece of shared mutable state in
// the pipeline: the timestamp of the last attempt start.
type Scheduler struct {
	clock   clock.Clock
	spacing time.Duration

	mu   sync.Mutex
	last time.Time // start of the most recent attempt
}

// NewScheduler creates a scheduler with the given minimum spacing. The
// cursor is initialized to "now", so the first job after process start is
// also subject to the spacing interval. Pass nil to use the wall clock.
func NewScheduler(spacing time.Duration, clk clock.Clock) *Scheduler {
	if clk == nil {
		clk = clock.New()
	}
	return &Scheduler{
		clock:   clk,
		spacing: spacing,
		last:    clk.Now(),
	}
}

// Reserve returns how long the caller must wait before the next attempt
// may begin and advances the cursor to that attempt's start time. The
// cursor moves when the attempt is reserved, not when it completes, so
// throughput is bounded to one attempt per spacing interval regardless of
// how long an individual send takes.
func (s *Scheduler) Reserve() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	elapsed := now.Sub(s.last)
	if elapsed >= s.spacing {
		s.last = now
		return 0
	}

	wait := s.spacing - elapsed
	s.last = now.Add(wait)
	return wait
}

// Spacing returns the configured minimum interval.
func (s *Scheduler) Spacing() time.Duration {
	return s.spacing
}
