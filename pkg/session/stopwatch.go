package session

import (
	"time"

	"github.com/benbjohnson/clock"
)

// Stopwatch measures time since it was last reset.  It keeps running across
// resets.
type Stopwatch struct {
	clock clock.Clock
	start time.Time
}

func NewStopwatch(clk clock.Clock) *Stopwatch {
	return &Stopwatch{clock: clk, start: clk.Now()}
}

func (s *Stopwatch) Reset() {
	s.start = s.clock.Now()
}

func (s *Stopwatch) Elapsed() time.Duration {
	return s.clock.Since(s.start)
}
