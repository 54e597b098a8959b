package session

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"go.viam.com/test"

	"github.com/pierbot/go-controller/pkg/autonomy"
	"github.com/pierbot/go-controller/pkg/drive"
	"github.com/pierbot/go-controller/pkg/hardware"
	"github.com/pierbot/go-controller/pkg/joystick"
)

type fakeActuators struct {
	left, right drive.Throttle
	gearbox     drive.Throttle
	door        float64
	disp        [2]float64
	zeroes      int
}

func (f *fakeActuators) SetMotorThrottles(left, right drive.Throttle) {
	f.left, f.right = left, right
}

func (f *fakeActuators) SetGearbox(throttle drive.Throttle) { f.gearbox = throttle }
func (f *fakeActuators) SetDoor(degrees float64)           { f.door = degrees }

func (f *fakeActuators) Feedback() hardware.Feedback {
	return hardware.Feedback{f.right, f.left}
}

func (f *fakeActuators) Displacement(w drive.Wheel) float64 { return f.disp[w] }

func (f *fakeActuators) ZeroDisplacement() {
	f.disp = [2]float64{}
	f.zeroes++
}

func newTestSession(t *testing.T, zeroOnAdvance bool) (*Session, *fakeActuators, *clock.Mock, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	clk := clock.NewMock()
	hw := &fakeActuators{}
	s, err := New(Options{
		Drive:         drive.DefaultConfig(),
		Teleop:        DefaultTeleopConfig(),
		Phases:        autonomy.DefaultPhases(),
		ZeroOnAdvance: zeroOnAdvance,
		Clock:         clk,
	}, hw, zap.New(core).Sugar())
	test.That(t, err, test.ShouldBeNil)
	return s, hw, clk, logs
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := drive.DefaultConfig()
	cfg.Deadzone = 0
	_, err := New(Options{Drive: cfg, Phases: autonomy.DefaultPhases()}, &fakeActuators{}, zap.NewNop().Sugar())
	test.That(t, err, test.ShouldNotBeNil)

	_, err = New(Options{Drive: drive.DefaultConfig()}, &fakeActuators{}, zap.NewNop().Sugar())
	test.That(t, err, test.ShouldNotBeNil)
}

func TestTeleopStep(t *testing.T) {
	s, hw, _, _ := newTestSession(t, true)

	// With neither digital stick held the left wheel runs reversed.
	out := s.TeleopStep(Input{RightStickY: 50, LeftStickY: 50})
	test.That(t, out.Left, test.ShouldEqual, drive.Throttle(-80))
	test.That(t, out.Right, test.ShouldEqual, drive.Throttle(80))
	test.That(t, hw.left, test.ShouldEqual, drive.Throttle(-80))
	test.That(t, hw.right, test.ShouldEqual, drive.Throttle(80))
	test.That(t, hw.door, test.ShouldEqual, 75.0)
	test.That(t, hw.gearbox, test.ShouldEqual, drive.Throttle(0))

	// Cross-wired: the right stick drives the left motor.
	out = s.TeleopStep(Input{RightStickY: 10, LeftStickY: 0, RightDigitalStick: true})
	test.That(t, out.Left, test.ShouldEqual, drive.Throttle(64))
	test.That(t, out.Right, test.ShouldEqual, drive.Throttle(0))

	out = s.TeleopStep(Input{RightStickY: 50, LeftStickY: 50, RightDigitalStick: true, LeftDigitalStick: true})
	test.That(t, out.Left, test.ShouldEqual, drive.Throttle(80))
	test.That(t, out.Right, test.ShouldEqual, drive.Throttle(-80))

	out = s.TeleopStep(Input{RightStickY: 50, LeftStickY: 50, RightDigitalStick: true, SlowMode: true})
	wantLeft, wantRight := drive.Mix(50, 50, false, false, true, drive.DefaultConfig())
	test.That(t, out.Left, test.ShouldEqual, wantLeft)
	test.That(t, out.Right, test.ShouldEqual, wantRight)
	test.That(t, out.Left, test.ShouldBeLessThan, drive.Throttle(80))
}

func TestTeleopDoorAndGearbox(t *testing.T) {
	s, hw, _, _ := newTestSession(t, true)

	s.TeleopStep(Input{DoorButton: true, GearboxTrigger: 5})
	test.That(t, hw.door, test.ShouldEqual, 40.0)
	test.That(t, hw.gearbox, test.ShouldEqual, drive.Throttle(0))

	s.TeleopStep(Input{GearboxTrigger: 6})
	test.That(t, hw.door, test.ShouldEqual, 75.0)
	test.That(t, hw.gearbox, test.ShouldEqual, drive.Throttle(6))
}

func TestInputFromSnapshot(t *testing.T) {
	var snap joystick.Snapshot
	snap.RightStickY = 42
	snap.LeftStickY = -17
	snap.LeftTrigger = 6
	snap.RightTrigger = 90
	snap.Buttons[joystick.ButtonLStick] = true
	snap.Buttons[joystick.ButtonA] = true

	in := InputFromSnapshot(snap, DefaultTeleopConfig())
	test.That(t, in, test.ShouldResemble, Input{
		RightStickY:      42,
		LeftStickY:       -17,
		SlowMode:         true,
		LeftDigitalStick: true,
		DoorButton:       true,
		GearboxTrigger:   90,
	})

	snap.LeftTrigger = 5
	test.That(t, InputFromSnapshot(snap, DefaultTeleopConfig()).SlowMode, test.ShouldBeFalse)
}

func TestAutonomyStep(t *testing.T) {
	s, hw, _, _ := newTestSession(t, true)

	out := s.AutonomyStep()
	test.That(t, out.Left, test.ShouldEqual, drive.Throttle(100))
	test.That(t, out.Right, test.ShouldEqual, drive.Throttle(100))
	test.That(t, out.Phase, test.ShouldEqual, "drive-straight")
	test.That(t, s.PhaseIndex(), test.ShouldEqual, 0)

	hw.disp[drive.Left] = 5.5
	out = s.AutonomyStep()
	// The tick that crosses the threshold still emits the old phase.
	test.That(t, out.Left, test.ShouldEqual, drive.Throttle(100))
	test.That(t, out.Right, test.ShouldEqual, drive.Throttle(100))
	test.That(t, s.Phase(), test.ShouldEqual, "pivot-left")
	test.That(t, hw.zeroes, test.ShouldEqual, 1)
	test.That(t, hw.disp[drive.Left], test.ShouldEqual, 0.0)

	out = s.AutonomyStep()
	test.That(t, out.Left, test.ShouldEqual, drive.Throttle(100))
	test.That(t, out.Right, test.ShouldEqual, drive.Throttle(0))
	test.That(t, hw.left, test.ShouldEqual, drive.Throttle(100))
	test.That(t, hw.right, test.ShouldEqual, drive.Throttle(0))
}

func TestAutonomyRunsToDone(t *testing.T) {
	s, hw, _, _ := newTestSession(t, true)

	for i := 0; i < 5; i++ {
		hw.disp = [2]float64{10, 10}
		s.AutonomyStep()
	}
	test.That(t, s.Phase(), test.ShouldEqual, "done")
	test.That(t, hw.zeroes, test.ShouldEqual, 5)

	out := s.AutonomyStep()
	test.That(t, out.Left, test.ShouldEqual, drive.Throttle(0))
	test.That(t, out.Right, test.ShouldEqual, drive.Throttle(0))
	test.That(t, hw.left, test.ShouldEqual, drive.Throttle(0))
}

func TestAutonomyCumulativeDisplacement(t *testing.T) {
	s, hw, _, _ := newTestSession(t, false)

	hw.disp[drive.Left] = 6
	s.AutonomyStep()
	test.That(t, hw.zeroes, test.ShouldEqual, 0)
	// pivot-left is gated on left > 1, already true with a cumulative count.
	s.AutonomyStep()
	test.That(t, s.PhaseIndex(), test.ShouldEqual, 2)
}

func TestOnAutonomyDisabled(t *testing.T) {
	s, hw, _, _ := newTestSession(t, true)
	hw.disp[drive.Left] = 6
	s.AutonomyStep()
	test.That(t, s.PhaseIndex(), test.ShouldEqual, 1)

	hw.disp[drive.Right] = 3
	s.OnAutonomyDisabled()
	test.That(t, s.PhaseIndex(), test.ShouldEqual, 0)
	test.That(t, hw.disp, test.ShouldResemble, [2]float64{})
}

func TestOnTeleopDisabledReportsOncePerInterval(t *testing.T) {
	s, _, clk, logs := newTestSession(t, true)
	reports := func() int {
		return logs.FilterMessage("teleop disabled").Len()
	}

	s.OnTeleopDisabled()
	test.That(t, reports(), test.ShouldEqual, 0)

	clk.Add(time.Second)
	s.OnTeleopDisabled()
	test.That(t, reports(), test.ShouldEqual, 0)

	clk.Add(time.Millisecond)
	s.OnTeleopDisabled()
	test.That(t, reports(), test.ShouldEqual, 1)

	clk.Add(500 * time.Millisecond)
	s.OnTeleopDisabled()
	test.That(t, reports(), test.ShouldEqual, 1)

	clk.Add(600 * time.Millisecond)
	s.OnTeleopDisabled()
	test.That(t, reports(), test.ShouldEqual, 2)
}

func TestStopwatch(t *testing.T) {
	clk := clock.NewMock()
	sw := NewStopwatch(clk)
	clk.Add(3 * time.Second)
	test.That(t, sw.Elapsed(), test.ShouldEqual, 3*time.Second)
	sw.Reset()
	test.That(t, sw.Elapsed(), test.ShouldEqual, time.Duration(0))
	clk.Add(time.Second)
	test.That(t, sw.Elapsed(), test.ShouldEqual, time.Second)
}
