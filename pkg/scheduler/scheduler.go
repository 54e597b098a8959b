// Package scheduler calls the robot's hooks once per control period according
// to the current field mode.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/pierbot/go-controller/pkg/drive"
	"github.com/pierbot/go-controller/pkg/session"
)

const DefaultPeriod = 20 * time.Millisecond

// Robot is the set of hooks the scheduler drives.  Exactly one of them is
// called per tick and never concurrently.
type Robot interface {
	TeleopStep(in session.Input) session.Output
	AutonomyStep() session.Output
	OnAutonomyDisabled()
	OnTeleopDisabled()
}

type InputSource interface {
	Input() session.Input
}

// InputFunc adapts a function to InputSource.
type InputFunc func() session.Input

func (f InputFunc) Input() session.Input {
	return f()
}

type Motors interface {
	StopMotors()
}

type SoundPlayer interface {
	PlaySound(path string)
}

// Status is what happened on one tick.
type Status struct {
	Mode        Mode
	Left, Right drive.Throttle
	Phase       string
	Tick        uint64
	Time        time.Time
}

type Config struct {
	Period    time.Duration
	StartMode Mode
	Clock     clock.Clock
	// Cues maps a mode to the sound played on entering it.
	Cues   map[Mode]string
	Sounds SoundPlayer
}

type Scheduler struct {
	log    *zap.SugaredLogger
	clock  clock.Clock
	period time.Duration
	cues   map[Mode]string
	sounds SoundPlayer

	robot  Robot
	input  InputSource
	motors Motors

	lock      sync.Mutex
	mode      Mode
	pending   Mode
	changed   bool
	last      Status
	observers []func(Status)

	// Only touched from Tick.
	ticks   uint64
	entered bool
}

func New(cfg Config, robot Robot, input InputSource, motors Motors, log *zap.SugaredLogger) *Scheduler {
	if cfg.Period <= 0 {
		cfg.Period = DefaultPeriod
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	return &Scheduler{
		log:     log,
		clock:   cfg.Clock,
		period:  cfg.Period,
		cues:    cfg.Cues,
		sounds:  cfg.Sounds,
		robot:   robot,
		input:   input,
		motors:  motors,
		mode:    cfg.StartMode,
		pending: cfg.StartMode,
		last:    Status{Mode: cfg.StartMode},
	}
}

// Run ticks until ctx is done, then stops the motors.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Infow("scheduler started", "period", s.period, "mode", s.Mode())
	ticker := s.clock.Ticker(s.period)
	defer ticker.Stop()
	defer s.motors.StopMotors()
	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopping")
			return ctx.Err()
		case <-ticker.C:
			s.Tick()
		}
	}
}

// SetMode requests a mode change.  It takes effect at the start of the next
// tick so a hook is never interrupted part way through.
func (s *Scheduler) SetMode(m Mode) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.pending = m
	s.changed = true
}

// NextMode and PrevMode step through the modes relative to any change that is
// already pending.
func (s *Scheduler) NextMode() Mode {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.pending = s.pending.Next()
	s.changed = true
	return s.pending
}

func (s *Scheduler) PrevMode() Mode {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.pending = s.pending.Prev()
	s.changed = true
	return s.pending
}

// Mode is the mode the last tick ran in.
func (s *Scheduler) Mode() Mode {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.mode
}

func (s *Scheduler) Latest() Status {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.last
}

// Subscribe registers f to be called with the status after every tick.  f runs
// on the tick goroutine and must not block.
func (s *Scheduler) Subscribe(f func(Status)) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.observers = append(s.observers, f)
}

// Tick runs one control period.
func (s *Scheduler) Tick() Status {
	s.lock.Lock()
	prev := s.mode
	mode := s.pending
	changed := s.changed && mode != prev
	s.mode = mode
	s.changed = false
	s.lock.Unlock()

	if changed || !s.entered {
		fresh := !s.entered
		s.enter(prev, mode)
		// Autonomy always starts from its first phase with zeroed encoders,
		// even when DisabledAutonomous was skipped on the way in.
		if mode == Autonomous && (fresh || prev != DisabledAutonomous) {
			s.robot.OnAutonomyDisabled()
		}
	}

	var out session.Output
	switch mode {
	case DisabledAutonomous:
		s.robot.OnAutonomyDisabled()
	case Autonomous:
		out = s.robot.AutonomyStep()
	case DisabledTeleop:
		s.robot.OnTeleopDisabled()
	case Teleop:
		out = s.robot.TeleopStep(s.input.Input())
	}

	s.ticks++
	status := Status{
		Mode:  mode,
		Left:  out.Left,
		Right: out.Right,
		Phase: out.Phase,
		Tick:  s.ticks,
		Time:  s.clock.Now(),
	}

	s.lock.Lock()
	s.last = status
	observers := s.observers
	s.lock.Unlock()
	for _, f := range observers {
		f(status)
	}
	return status
}

func (s *Scheduler) enter(prev, mode Mode) {
	if s.entered {
		s.log.Infow("----- mode change -----", "from", prev, "to", mode)
	} else {
		s.log.Infow("----- starting -----", "mode", mode)
	}
	s.entered = true
	// The previous mode's outputs mean nothing in the new one.
	s.motors.StopMotors()
	if s.sounds != nil {
		if cue, ok := s.cues[mode]; ok {
			s.sounds.PlaySound(cue)
		}
	}
}
