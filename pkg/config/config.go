// Package config loads the robot's YAML configuration.  Compiled-in defaults
// are overlaid by the file, and the effective result is written back next to
// it as <name>-in-use.yaml so there's a record of what the robot ran with.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"github.com/pierbot/go-controller/pkg/autonomy"
	"github.com/pierbot/go-controller/pkg/drive"
	"github.com/pierbot/go-controller/pkg/hardware"
	"github.com/pierbot/go-controller/pkg/scheduler"
	"github.com/pierbot/go-controller/pkg/screen"
	"github.com/pierbot/go-controller/pkg/session"
	"github.com/pierbot/go-controller/pkg/telemetry"
)

const DefaultPath = "/cfg/pierbot.yaml"

type Config struct {
	Drive     drive.Config         `yaml:"drive"`
	Teleop    session.TeleopConfig `yaml:"teleop"`
	Autonomy  Autonomy             `yaml:"autonomy"`
	Tick      Tick                 `yaml:"tick"`
	Hardware  hardware.Config      `yaml:"hardware"`
	Telemetry telemetry.Config     `yaml:"telemetry"`
	Screen    screen.Config        `yaml:"screen"`
	Sounds    Sounds               `yaml:"sounds"`
}

type Autonomy struct {
	Phases []Phase `yaml:"phases"`
	// ZeroOnAdvance zeroes both encoders each time a phase completes, so every
	// threshold is measured from the start of its own phase.
	ZeroOnAdvance bool `yaml:"zero_on_advance"`
}

// Phase is the YAML form of autonomy.Phase.
type Phase struct {
	Name      string  `yaml:"name"`
	Left      int     `yaml:"left"`
	Right     int     `yaml:"right"`
	Gate      string  `yaml:"gate"`
	Threshold float64 `yaml:"threshold"`
}

type Tick struct {
	Period    time.Duration  `yaml:"period"`
	StartMode scheduler.Mode `yaml:"start_mode"`
}

// Sounds are the wav files played on entering each mode.  Empty means silent.
type Sounds struct {
	DisabledAutonomous string `yaml:"disabled_autonomous"`
	Autonomous         string `yaml:"autonomous"`
	DisabledTeleop     string `yaml:"disabled_teleop"`
	Teleop             string `yaml:"teleop"`
}

func (s Sounds) Cues() map[scheduler.Mode]string {
	cues := map[scheduler.Mode]string{}
	for m, path := range map[scheduler.Mode]string{
		scheduler.DisabledAutonomous: s.DisabledAutonomous,
		scheduler.Autonomous:         s.Autonomous,
		scheduler.DisabledTeleop:     s.DisabledTeleop,
		scheduler.Teleop:             s.Teleop,
	} {
		if path != "" {
			cues[m] = path
		}
	}
	return cues
}

func Default() Config {
	var phases []Phase
	for _, p := range autonomy.DefaultPhases() {
		phases = append(phases, Phase{
			Name:      p.Name,
			Left:      int(p.LeftThrottle),
			Right:     int(p.RightThrottle),
			Gate:      p.Gate.String(),
			Threshold: p.Threshold,
		})
	}
	return Config{
		Drive:  drive.DefaultConfig(),
		Teleop: session.DefaultTeleopConfig(),
		Autonomy: Autonomy{
			Phases:        phases,
			ZeroOnAdvance: true,
		},
		Tick: Tick{
			Period:    scheduler.DefaultPeriod,
			StartMode: scheduler.DisabledAutonomous,
		},
		Hardware:  hardware.DefaultConfig(),
		Telemetry: telemetry.DefaultConfig(),
		Screen:    screen.DefaultConfig(),
		Sounds: Sounds{
			Autonomous: "/sounds/autonomous.wav",
			Teleop:     "/sounds/teleop.wav",
		},
	}
}

// Load reads the config at path over the defaults and validates it.  A
// missing file is not an error; the defaults are used.
func Load(path string, log *zap.SugaredLogger) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		log.Warnw("no config file, using defaults", "path", path)
	case err != nil:
		return Config{}, errors.Wrap(err, "reading config")
	default:
		if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
			return Config{}, errors.Wrapf(err, "parsing %s", path)
		}
		log.Infow("loaded config", "path", path)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	if err := WriteInUse(path, cfg); err != nil {
		log.Warnw("failed to write in-use config", "error", err)
	}
	return cfg, nil
}

// InUsePath is where the effective config for path is recorded.
func InUsePath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "-in-use.yaml"
}

func WriteInUse(path string, cfg Config) error {
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return errors.Wrap(err, "encoding config")
	}
	return errors.Wrap(os.WriteFile(InUsePath(path), data, 0666), "writing in-use config")
}

// Phases converts the phase table to the sequencer's form.
func (c Config) Phases() ([]autonomy.Phase, error) {
	var phases []autonomy.Phase
	var err error
	for i, p := range c.Autonomy.Phases {
		gate, gateErr := drive.ParseWheel(p.Gate)
		if gateErr != nil {
			err = multierr.Append(err, &drive.ConfigError{
				Field:  fmt.Sprintf("autonomy.phases[%d].gate", i),
				Reason: gateErr.Error(),
			})
			continue
		}
		phases = append(phases, autonomy.Phase{
			Name:          p.Name,
			LeftThrottle:  drive.Throttle(p.Left),
			RightThrottle: drive.Throttle(p.Right),
			Gate:          gate,
			Threshold:     p.Threshold,
		})
	}
	if err != nil {
		return nil, err
	}
	return phases, nil
}

// SessionOptions gathers what session.New needs.
func (c Config) SessionOptions() (session.Options, error) {
	phases, err := c.Phases()
	if err != nil {
		return session.Options{}, err
	}
	return session.Options{
		Drive:         c.Drive,
		Teleop:        c.Teleop,
		Phases:        phases,
		ZeroOnAdvance: c.Autonomy.ZeroOnAdvance,
	}, nil
}

// Validate reports every problem in the config at once.
func (c Config) Validate() error {
	err := c.Drive.Validate()

	if phases, phaseErr := c.Phases(); phaseErr != nil {
		err = multierr.Append(err, phaseErr)
	} else {
		err = multierr.Append(err, autonomy.ValidatePhases(phases))
	}

	if c.Tick.Period <= 0 {
		err = multierr.Append(err, &drive.ConfigError{Field: "tick.period", Reason: "must be positive"})
	}
	if c.Teleop.DoorOpen < 0 || c.Teleop.DoorOpen > 180 {
		err = multierr.Append(err, &drive.ConfigError{Field: "teleop.door_open", Reason: "must be within [0, 180] degrees"})
	}
	if c.Teleop.DoorClosed < 0 || c.Teleop.DoorClosed > 180 {
		err = multierr.Append(err, &drive.ConfigError{Field: "teleop.door_closed", Reason: "must be within [0, 180] degrees"})
	}
	if !(c.Hardware.CountsPerUnit > 0) || math.IsInf(c.Hardware.CountsPerUnit, 0) {
		err = multierr.Append(err, &drive.ConfigError{Field: "hardware.counts_per_unit", Reason: "must be positive"})
	}
	if c.Hardware.LoopPeriod <= 0 {
		err = multierr.Append(err, &drive.ConfigError{Field: "hardware.loop_period", Reason: "must be positive"})
	}
	return err
}
