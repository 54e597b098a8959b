// Package encoder turns raw wheel encoder counts into cumulative displacement.
package encoder

import (
	"sync"

	"github.com/pierbot/go-controller/pkg/drive"
)

// DefaultCountsPerUnit matches the encoder resolution the drive motors ship with.
const DefaultCountsPerUnit = 10

// Counts holds a raw reading for each wheel, indexed by drive.Wheel.
type Counts [2]int16

// Counter reads the free-running 16-bit position counters of both wheels.
type Counter interface {
	RawCounts() (Counts, error)
}

// Tracker accumulates wrapping counter readings so that displacement keeps
// growing past the counter's 16-bit range.  It is safe for concurrent use: the
// hardware loop polls it while the control tick reads it.
type Tracker struct {
	counter       Counter
	countsPerUnit float64

	lock          sync.Mutex
	doneFirstPoll bool
	lastRawValues Counts
	accumulator   [2]int64
}

func NewTracker(counter Counter, countsPerUnit float64) *Tracker {
	if countsPerUnit <= 0 {
		countsPerUnit = DefaultCountsPerUnit
	}
	return &Tracker{
		counter:       counter,
		countsPerUnit: countsPerUnit,
	}
}

// Poll reads the counters and adds the movement since the previous poll.  The
// first poll only establishes the baseline.
func (t *Tracker) Poll() error {
	raw, err := t.counter.RawCounts()
	if err != nil {
		return err
	}

	t.lock.Lock()
	defer t.lock.Unlock()
	if t.doneFirstPoll {
		for w, newC := range raw {
			// int16 subtraction wraps, which is exactly what we want when the
			// counter rolls over.
			delta := newC - t.lastRawValues[w]
			t.accumulator[w] += int64(delta)
		}
	}
	t.lastRawValues = raw
	t.doneFirstPoll = true
	return nil
}

// Displacement returns how far the wheel has moved since the last Zero.
func (t *Tracker) Displacement(w drive.Wheel) float64 {
	if w != drive.Left && w != drive.Right {
		return 0
	}
	t.lock.Lock()
	defer t.lock.Unlock()
	return float64(t.accumulator[w]) / t.countsPerUnit
}

// Zero restarts displacement from the current position.
func (t *Tracker) Zero() {
	t.lock.Lock()
	t.accumulator = [2]int64{}
	t.lock.Unlock()
}
