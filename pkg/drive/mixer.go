package drive

// Mix produces the left and right throttles for one teleop tick.
//
// The axes are deliberately cross-wired: rightAxis drives the LEFT motor and
// leftAxis drives the RIGHT motor.  The robot's wiring depends on this.
//
// Slow mode scales both throttles by cfg.SlowModeFactor (truncating), then the
// inversion flags negate their own wheel.  Nothing is clamped beyond what
// MapAxis already produces.
func Mix(rightAxis, leftAxis AxisSample, leftInverted, rightInverted, slowMode bool, cfg Config) (left, right Throttle) {
	left = MapAxis(rightAxis, cfg)
	right = MapAxis(leftAxis, cfg)

	if slowMode {
		left = scale(left, cfg.SlowModeFactor)
		right = scale(right, cfg.SlowModeFactor)
	}
	if leftInverted {
		left = -left
	}
	if rightInverted {
		right = -right
	}
	return
}

// InversionFromSticks derives the per-wheel inversion flags from the two
// digital stick buttons.
//
// The left wheel runs reversed unless the right digital stick is held.  The
// right motor is mounted mirrored, so it is reversed only while the left
// digital stick is held.
func InversionFromSticks(leftDigitalStick, rightDigitalStick bool) (leftInverted, rightInverted bool) {
	return !rightDigitalStick, leftDigitalStick
}

func scale(t Throttle, factor float64) Throttle {
	// Float to int conversion truncates towards zero.
	return Throttle(factor * float64(t))
}
