package scheduler

import (
	"fmt"
	"strings"
)

// Mode is the field state the robot is in.
type Mode int

const (
	DisabledAutonomous Mode = iota
	Autonomous
	DisabledTeleop
	Teleop

	numModes
)

var modeNames = [numModes]string{
	DisabledAutonomous: "disabled-autonomous",
	Autonomous:         "autonomous",
	DisabledTeleop:     "disabled-teleop",
	Teleop:             "teleop",
}

func (m Mode) String() string {
	if m < 0 || m >= numModes {
		return fmt.Sprintf("mode(%d)", int(m))
	}
	return modeNames[m]
}

// Enabled reports whether the robot may move in this mode.
func (m Mode) Enabled() bool {
	return m == Autonomous || m == Teleop
}

// Next is the mode after m in the match order, wrapping round.
func (m Mode) Next() Mode {
	return (m + 1) % numModes
}

func (m Mode) Prev() Mode {
	return (m + numModes - 1) % numModes
}

func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for m, name := range modeNames {
		if s == name {
			return Mode(m), nil
		}
	}
	return 0, fmt.Errorf("unknown mode %q (want one of %s)", s, strings.Join(modeNames[:], ", "))
}

// UnmarshalText lets modes appear by name in config files and flags.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}
