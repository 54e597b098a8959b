// Package session holds the per-match robot logic: what to do on each teleop
// and autonomous tick, and what to reset while the robot is disabled.
package session

import (
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/pierbot/go-controller/pkg/autonomy"
	"github.com/pierbot/go-controller/pkg/drive"
	"github.com/pierbot/go-controller/pkg/hardware"
	"github.com/pierbot/go-controller/pkg/joystick"
)

// Actuators is the part of the hardware a session drives.
type Actuators interface {
	SetMotorThrottles(left, right drive.Throttle)
	SetGearbox(throttle drive.Throttle)
	SetDoor(degrees float64)
	Feedback() hardware.Feedback
	Displacement(w drive.Wheel) float64
	ZeroDisplacement()
}

// TeleopConfig covers the operator controls that aren't part of the drive.
type TeleopConfig struct {
	// SlowTrigger is the left trigger value above which slow mode engages.
	SlowTrigger int `yaml:"slow_trigger"`
	// GearboxTrigger is the right trigger value above which the gearbox runs;
	// the trigger value is used as its throttle.
	GearboxTrigger int     `yaml:"gearbox_trigger"`
	DoorOpen       float64 `yaml:"door_open"`
	DoorClosed     float64 `yaml:"door_closed"`
	// DisabledReportInterval throttles the diagnostics logged while teleop is
	// disabled.
	DisabledReportInterval time.Duration `yaml:"disabled_report_interval"`
}

func DefaultTeleopConfig() TeleopConfig {
	return TeleopConfig{
		SlowTrigger:            5,
		GearboxTrigger:         5,
		DoorOpen:               40,
		DoorClosed:             75,
		DisabledReportInterval: time.Second,
	}
}

// Input is everything a teleop tick reads from the operator console.
type Input struct {
	RightStickY       drive.AxisSample
	LeftStickY        drive.AxisSample
	SlowMode          bool
	LeftDigitalStick  bool
	RightDigitalStick bool
	DoorButton        bool
	GearboxTrigger    int
}

// InputFromSnapshot picks the drive controls out of a pad snapshot.
func InputFromSnapshot(s joystick.Snapshot, cfg TeleopConfig) Input {
	return Input{
		RightStickY:       drive.AxisSample(s.RightStickY),
		LeftStickY:        drive.AxisSample(s.LeftStickY),
		SlowMode:          s.LeftTrigger > cfg.SlowTrigger,
		LeftDigitalStick:  s.Pressed(joystick.ButtonLStick),
		RightDigitalStick: s.Pressed(joystick.ButtonRStick),
		DoorButton:        s.Pressed(joystick.ButtonA),
		GearboxTrigger:    s.RightTrigger,
	}
}

// Output is what a tick commanded, for telemetry.
type Output struct {
	Left, Right drive.Throttle
	Phase       string
}

type Options struct {
	Drive         drive.Config
	Teleop        TeleopConfig
	Phases        []autonomy.Phase
	ZeroOnAdvance bool
	Clock         clock.Clock
}

// Session owns the robot's match state.  Its methods are called from the
// scheduler's tick only, one at a time.
type Session struct {
	log           *zap.SugaredLogger
	hw            Actuators
	drive         drive.Config
	teleop        TeleopConfig
	zeroOnAdvance bool

	seq       *autonomy.Sequencer
	stopwatch *Stopwatch
}

// New validates the drive config and phase table; any error here must stop
// the robot before it moves.
func New(opts Options, hw Actuators, log *zap.SugaredLogger) (*Session, error) {
	if err := opts.Drive.Validate(); err != nil {
		return nil, err
	}
	seq, err := autonomy.New(opts.Phases)
	if err != nil {
		return nil, err
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Session{
		log:           log,
		hw:            hw,
		drive:         opts.Drive,
		teleop:        opts.Teleop,
		zeroOnAdvance: opts.ZeroOnAdvance,
		seq:           seq,
		stopwatch:     NewStopwatch(clk),
	}, nil
}

// TeleopStep drives the robot from one tick of operator input.
func (s *Session) TeleopStep(in Input) Output {
	leftInverted, rightInverted := drive.InversionFromSticks(in.LeftDigitalStick, in.RightDigitalStick)
	left, right := drive.Mix(in.RightStickY, in.LeftStickY, leftInverted, rightInverted, in.SlowMode, s.drive)

	if in.DoorButton {
		s.hw.SetDoor(s.teleop.DoorOpen)
	} else {
		s.hw.SetDoor(s.teleop.DoorClosed)
	}

	if in.GearboxTrigger > s.teleop.GearboxTrigger {
		s.hw.SetGearbox(drive.Throttle(in.GearboxTrigger))
	} else {
		s.hw.SetGearbox(0)
	}

	s.hw.SetMotorThrottles(left, right)
	s.log.Debugw("teleop", "left", left, "right", right, "slow", in.SlowMode,
		"elapsed", s.stopwatch.Elapsed())
	return Output{Left: left, Right: right, Phase: "teleop"}
}

// AutonomyStep runs one tick of the autonomous routine.
func (s *Session) AutonomyStep() Output {
	prev := s.seq.PhaseName()
	before := s.seq.Index()
	left, right := s.seq.Step(s.hw)
	s.hw.SetMotorThrottles(left, right)

	if s.seq.Index() != before {
		s.log.Infow("autonomy phase complete", "phase", prev, "index", before,
			"left_displacement", s.hw.Displacement(drive.Left),
			"right_displacement", s.hw.Displacement(drive.Right),
			"next", s.seq.PhaseName())
		if s.zeroOnAdvance {
			s.hw.ZeroDisplacement()
		}
	}
	return Output{Left: left, Right: right, Phase: prev}
}

// OnAutonomyDisabled prepares for the next autonomous period.
func (s *Session) OnAutonomyDisabled() {
	s.seq.Reset()
	s.stopwatch.Reset()
	s.hw.ZeroDisplacement()
}

// OnTeleopDisabled logs a diagnostic heartbeat at most once per report
// interval.
func (s *Session) OnTeleopDisabled() {
	if s.stopwatch.Elapsed() <= s.teleop.DisabledReportInterval {
		return
	}
	f := s.hw.Feedback()
	s.log.Infow("teleop disabled", "elapsed", s.stopwatch.Elapsed(),
		"feedback_right", f.Right(), "feedback_left", f.Left(),
		"left_displacement", s.hw.Displacement(drive.Left),
		"right_displacement", s.hw.Displacement(drive.Right))
	s.stopwatch.Reset()
}

// Phase is the name of the active autonomy phase.
func (s *Session) Phase() string {
	return s.seq.PhaseName()
}

func (s *Session) PhaseIndex() int {
	return s.seq.Index()
}
