package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap/zaptest"
	"go.viam.com/test"
	"gopkg.in/yaml.v2"

	"github.com/pierbot/go-controller/pkg/autonomy"
	"github.com/pierbot/go-controller/pkg/drive"
	"github.com/pierbot/go-controller/pkg/scheduler"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pierbot.yaml")
	test.That(t, os.WriteFile(path, []byte(body), 0666), test.ShouldBeNil)
	return path
}

func TestDefaultsValidate(t *testing.T) {
	cfg := Default()
	test.That(t, cfg.Validate(), test.ShouldBeNil)

	phases, err := cfg.Phases()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, phases, test.ShouldResemble, autonomy.DefaultPhases())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pierbot.yaml")
	cfg, err := Load(path, zaptest.NewLogger(t).Sugar())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Drive, test.ShouldResemble, drive.DefaultConfig())

	_, err = os.Stat(InUsePath(path))
	test.That(t, err, test.ShouldBeNil)
}

func TestLoadOverlaysFile(t *testing.T) {
	path := writeConfig(t, `
drive:
  deadzone: 15
  slow_mode_factor: 0.5
autonomy:
  zero_on_advance: false
  phases:
    - name: creep
      left: 30
      right: 30
      gate: right
      threshold: 2.5
tick:
  period: 50ms
  start_mode: teleop
telemetry:
  broker: tcp://localhost:1883
sounds:
  teleop: ""
`)
	cfg, err := Load(path, zaptest.NewLogger(t).Sugar())
	test.That(t, err, test.ShouldBeNil)

	// Unset fields keep their defaults.
	test.That(t, cfg.Drive.LowerBound, test.ShouldEqual, uint(60))
	test.That(t, cfg.Drive.Deadzone, test.ShouldEqual, uint(15))
	test.That(t, cfg.Drive.SlowModeFactor, test.ShouldEqual, 0.5)
	test.That(t, cfg.Tick.Period, test.ShouldEqual, 50*time.Millisecond)
	test.That(t, cfg.Tick.StartMode, test.ShouldEqual, scheduler.Teleop)
	test.That(t, cfg.Telemetry.Broker, test.ShouldEqual, "tcp://localhost:1883")
	test.That(t, cfg.Telemetry.Topic, test.ShouldEqual, "pierbot/status")
	test.That(t, cfg.Hardware.CountsPerUnit, test.ShouldEqual, 10.0)
	test.That(t, cfg.Teleop.DoorOpen, test.ShouldEqual, 40.0)

	opts, err := cfg.SessionOptions()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, opts.ZeroOnAdvance, test.ShouldBeFalse)
	test.That(t, opts.Phases, test.ShouldResemble, []autonomy.Phase{
		{Name: "creep", LeftThrottle: 30, RightThrottle: 30, Gate: drive.Right, Threshold: 2.5},
	})

	cues := cfg.Sounds.Cues()
	test.That(t, cues, test.ShouldResemble, map[scheduler.Mode]string{scheduler.Autonomous: "/sounds/autonomous.wav"})

	// The in-use copy reads back to the same config.
	data, err := os.ReadFile(InUsePath(path))
	test.That(t, err, test.ShouldBeNil)
	var inUse Config
	test.That(t, yaml.UnmarshalStrict(data, &inUse), test.ShouldBeNil)
	test.That(t, inUse, test.ShouldResemble, cfg)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "drive:\n  dead_zone: 4\n")
	_, err := Load(path, zaptest.NewLogger(t).Sugar())
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "dead_zone")
}

func TestLoadReportsEveryProblem(t *testing.T) {
	path := writeConfig(t, `
drive:
  deadzone: 0
  lower_bound: 120
autonomy:
  phases:
    - name: sideways
      left: 50
      right: 50
      gate: middle
      threshold: 1
tick:
  period: 0s
`)
	_, err := Load(path, zaptest.NewLogger(t).Sugar())
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, len(multierr.Errors(err)), test.ShouldEqual, 4)

	var cfgErr *drive.ConfigError
	test.That(t, errors.As(err, &cfgErr), test.ShouldBeTrue)

	_, err = os.Stat(InUsePath(path))
	test.That(t, os.IsNotExist(err), test.ShouldBeTrue)
}

func TestLoadRejectsEmptyPhases(t *testing.T) {
	path := writeConfig(t, "autonomy:\n  phases: []\n")
	_, err := Load(path, zaptest.NewLogger(t).Sugar())
	test.That(t, err, test.ShouldNotBeNil)
}

func TestInUsePath(t *testing.T) {
	test.That(t, InUsePath("/cfg/pierbot.yaml"), test.ShouldEqual, "/cfg/pierbot-in-use.yaml")
	test.That(t, InUsePath("robot"), test.ShouldEqual, "robot-in-use.yaml")
}
