// Package drive converts operator stick samples into left/right motor throttles.
package drive

import "fmt"

// AxisSample is a stick deflection in the range [-FullScale, FullScale].
type AxisSample int

// Throttle is a signed motor command: magnitude is duty cycle, sign is direction.
type Throttle int

// Wheel identifies one side of the drive train.
type Wheel int

const (
	Left Wheel = iota
	Right
)

func (w Wheel) String() string {
	switch w {
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return fmt.Sprintf("wheel(%d)", int(w))
	}
}

// ParseWheel accepts "left" or "right".
func ParseWheel(s string) (Wheel, error) {
	switch s {
	case "left", "Left", "l", "L":
		return Left, nil
	case "right", "Right", "r", "R":
		return Right, nil
	}
	return 0, fmt.Errorf("unknown wheel %q", s)
}

// MapAxis converts a single axis sample to a throttle.
//
// Samples inside the deadzone give 0.  Anything else starts at LowerBound (with
// the sample's sign) and rises linearly towards UpperBound at full deflection;
// the scaled part is truncated towards zero.
//
// The sample must be non-zero once it is past the deadzone; MapAxis panics
// otherwise since that can only happen with an unvalidated config.
func MapAxis(sample AxisSample, cfg Config) Throttle {
	if abs(int(sample)) < int(cfg.Deadzone) {
		return 0
	}
	if sample == 0 {
		panic("drive: MapAxis called with a zero sample outside the deadzone (deadzone must be >= 1)")
	}
	sign := 1
	if sample < 0 {
		sign = -1
	}
	span := int(cfg.UpperBound) - int(cfg.LowerBound)
	// Go integer division truncates towards zero.
	return Throttle(sign*int(cfg.LowerBound) + int(sample)*span/FullScale)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
