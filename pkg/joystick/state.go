package joystick

import "sync"

// Scale of the values in a Snapshot: sticks span ±100, triggers 0..100.
const Scale = 100

// Snapshot is the pad's state at one instant, in operator-console units.
// Stick Y axes are positive when pushed up.
type Snapshot struct {
	LeftStickX, LeftStickY   int
	RightStickX, RightStickY int
	LeftTrigger              int
	RightTrigger             int
	Buttons                  [NumButtons]bool
}

func (s Snapshot) Pressed(button int) bool {
	if button < 0 || button >= NumButtons {
		return false
	}
	return s.Buttons[button]
}

// State folds joystick events into the latest Snapshot.  Events arrive on the
// reader goroutine while the control tick takes snapshots.
type State struct {
	lock    sync.Mutex
	axes    [NumAxes]int16
	buttons [NumButtons]bool
}

func NewState() *State {
	s := &State{}
	s.Reset()
	return s
}

// Reset returns every control to rest, as if the pad had just been plugged in.
func (s *State) Reset() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.axes = [NumAxes]int16{}
	s.buttons = [NumButtons]bool{}
	// Triggers rest at the bottom of their range, not at zero.
	s.axes[AxisLTrigger] = -AxisFullScale
	s.axes[AxisRTrigger] = -AxisFullScale
}

func (s *State) Apply(e *Event) {
	s.lock.Lock()
	defer s.lock.Unlock()
	switch e.Type {
	case EventTypeAxis:
		if int(e.Number) < NumAxes {
			s.axes[e.Number] = e.Value
		}
	case EventTypeButton:
		if int(e.Number) < NumButtons {
			s.buttons[e.Number] = e.Value != 0
		}
	}
}

func (s *State) Snapshot() Snapshot {
	s.lock.Lock()
	defer s.lock.Unlock()
	return Snapshot{
		LeftStickX:   scaleStick(s.axes[AxisLStickX]),
		LeftStickY:   -scaleStick(s.axes[AxisLStickY]),
		RightStickX:  scaleStick(s.axes[AxisRStickX]),
		RightStickY:  -scaleStick(s.axes[AxisRStickY]),
		LeftTrigger:  scaleTrigger(s.axes[AxisLTrigger]),
		RightTrigger: scaleTrigger(s.axes[AxisRTrigger]),
		Buttons:      s.buttons,
	}
}

func scaleStick(v int16) int {
	// -32768 is possible on some pads; keep it inside ±Scale.
	if v < -AxisFullScale {
		v = -AxisFullScale
	}
	return int(v) * Scale / AxisFullScale
}

func scaleTrigger(v int16) int {
	if v < -AxisFullScale {
		v = -AxisFullScale
	}
	return (int(v) + AxisFullScale) * Scale / (2 * AxisFullScale)
}
