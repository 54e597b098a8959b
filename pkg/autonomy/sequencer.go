// Package autonomy runs the fixed autonomous manoeuvre: a list of constant
// throttle phases, each ending once a wheel has travelled far enough.
package autonomy

import (
	"fmt"
	"math"

	"go.uber.org/multierr"

	"github.com/pierbot/go-controller/pkg/drive"
)

// Phase is one fixed-throttle leg of the manoeuvre.  The phase ends on the
// first tick where the Gate wheel's displacement is strictly greater than
// Threshold.
type Phase struct {
	Name          string
	LeftThrottle  drive.Throttle
	RightThrottle drive.Throttle
	Gate          drive.Wheel
	Threshold     float64
}

func (p Phase) String() string {
	return fmt.Sprintf("%s(L=%d R=%d until %v>%v)", p.Name, p.LeftThrottle, p.RightThrottle, p.Gate, p.Threshold)
}

// DisplacementSource reports how far each wheel has travelled.  The units are
// whatever the encoders report; the sequencer only compares them.
type DisplacementSource interface {
	Displacement(w drive.Wheel) float64
}

// DisplacementFunc adapts a function to DisplacementSource.
type DisplacementFunc func(w drive.Wheel) float64

func (f DisplacementFunc) Displacement(w drive.Wheel) float64 {
	return f(w)
}

// DefaultPhases is the competition routine: straight, pivot, straight, pivot
// the other way, straight.
func DefaultPhases() []Phase {
	return []Phase{
		{Name: "drive-straight", LeftThrottle: 100, RightThrottle: 100, Gate: drive.Left, Threshold: 5},
		{Name: "pivot-left", LeftThrottle: 100, RightThrottle: 0, Gate: drive.Left, Threshold: 1},
		{Name: "drive-straight", LeftThrottle: 100, RightThrottle: 100, Gate: drive.Left, Threshold: 5},
		{Name: "pivot-right", LeftThrottle: 0, RightThrottle: 100, Gate: drive.Right, Threshold: 1},
		{Name: "drive-straight", LeftThrottle: 100, RightThrottle: 100, Gate: drive.Left, Threshold: 5},
	}
}

// Sequencer steps through the phases, one check per tick.  It never waits: the
// caller owns the tick rate and must stay free to handle disable requests.
//
// A Sequencer is not safe for concurrent use.
type Sequencer struct {
	phases []Phase
	idx    int
}

// New validates the phase table and returns a sequencer positioned at the
// first phase.
func New(phases []Phase) (*Sequencer, error) {
	if err := ValidatePhases(phases); err != nil {
		return nil, err
	}
	return &Sequencer{phases: append([]Phase(nil), phases...)}, nil
}

// ValidatePhases reports every problem with a phase table.
func ValidatePhases(phases []Phase) error {
	if len(phases) == 0 {
		return &drive.ConfigError{Field: "autonomy.phases", Reason: "at least one phase is required"}
	}
	var err error
	for i, p := range phases {
		field := fmt.Sprintf("autonomy.phases[%d]", i)
		if p.Gate != drive.Left && p.Gate != drive.Right {
			err = multierr.Append(err, &drive.ConfigError{Field: field + ".gate", Reason: fmt.Sprintf("unknown wheel %v", p.Gate)})
		}
		if math.IsNaN(p.Threshold) || math.IsInf(p.Threshold, 0) {
			err = multierr.Append(err, &drive.ConfigError{Field: field + ".threshold", Reason: "must be a finite number"})
		}
	}
	return err
}

// Step applies one tick.  It returns the current phase's throttles, then checks
// the phase's gate and moves on to the next phase if it has been passed.  The
// old phase's throttles are therefore still returned on the tick that ends it.
//
// Once every phase is complete Step returns 0, 0 and stops reading
// displacement.
func (s *Sequencer) Step(src DisplacementSource) (left, right drive.Throttle) {
	if s.Done() {
		return 0, 0
	}
	p := s.phases[s.idx]
	left, right = p.LeftThrottle, p.RightThrottle
	if src.Displacement(p.Gate) > p.Threshold {
		s.idx++
	}
	return
}

// Reset moves back to the first phase.
func (s *Sequencer) Reset() {
	s.idx = 0
}

// Index is the active phase number; it equals Len() once the sequence is done.
func (s *Sequencer) Index() int {
	return s.idx
}

func (s *Sequencer) Len() int {
	return len(s.phases)
}

func (s *Sequencer) Done() bool {
	return s.idx >= len(s.phases)
}

// Current returns the active phase, or false once done.
func (s *Sequencer) Current() (Phase, bool) {
	if s.Done() {
		return Phase{}, false
	}
	return s.phases[s.idx], true
}

// PhaseName is the active phase's name, or "done".
func (s *Sequencer) PhaseName() string {
	if p, ok := s.Current(); ok {
		return p.Name
	}
	return "done"
}
