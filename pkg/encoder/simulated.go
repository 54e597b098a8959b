package encoder

import (
	"sync"
	"time"

	"github.com/pierbot/go-controller/pkg/drive"
)

// DefaultSimulatedRate is the count rate of a wheel at full throttle.
const DefaultSimulatedRate = 40 // counts per second

// Simulated stands in for the encoder bridge when running without hardware.
// Each wheel's counter advances in proportion to the throttle it was last
// driven with.
type Simulated struct {
	lock     sync.Mutex
	rate     float64
	throttle [2]drive.Throttle
	position [2]float64
}

func NewSimulated(countsPerSecondAtFull float64) *Simulated {
	if countsPerSecondAtFull <= 0 {
		countsPerSecondAtFull = DefaultSimulatedRate
	}
	return &Simulated{rate: countsPerSecondAtFull}
}

var _ Counter = (*Simulated)(nil)

// Drive records the throttles currently applied to the motors.
func (s *Simulated) Drive(left, right drive.Throttle) {
	s.lock.Lock()
	s.throttle = [2]drive.Throttle{left, right}
	s.lock.Unlock()
}

// Advance moves both wheels on by dt at their current throttle.
func (s *Simulated) Advance(dt time.Duration) {
	s.lock.Lock()
	defer s.lock.Unlock()
	for w, t := range s.throttle {
		s.position[w] += float64(t) / drive.FullScale * s.rate * dt.Seconds()
	}
}

func (s *Simulated) RawCounts() (Counts, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	// Converting through int64 truncates to the low 16 bits, like the real
	// counters wrapping.
	return Counts{int16(int64(s.position[0])), int16(int64(s.position[1]))}, nil
}
