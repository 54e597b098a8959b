package drive

import (
	"fmt"
	"math"

	"go.uber.org/multierr"
)

// FullScale is the magnitude of a fully deflected axis sample.
const FullScale = 100

const (
	DefaultLowerBound     = 60
	DefaultUpperBound     = 100
	DefaultDeadzone       = 10
	DefaultSlowModeFactor = 0.7
)

// Config holds the per-robot drive tuning.  It is validated once at startup and
// then passed around by value so nothing downstream can change it.
type Config struct {
	// LowerBound is the smallest throttle magnitude issued once an axis leaves
	// the deadzone.  Many DC motors stall below this duty cycle.
	LowerBound uint `yaml:"lower_bound"`
	// UpperBound is the throttle magnitude issued at full stick deflection.
	UpperBound uint `yaml:"upper_bound"`
	// Deadzone is the axis magnitude below which no throttle is issued.
	Deadzone       uint    `yaml:"deadzone"`
	SlowModeFactor float64 `yaml:"slow_mode_factor"`
}

func DefaultConfig() Config {
	return Config{
		LowerBound:     DefaultLowerBound,
		UpperBound:     DefaultUpperBound,
		Deadzone:       DefaultDeadzone,
		SlowModeFactor: DefaultSlowModeFactor,
	}
}

// NewConfig builds and validates a Config.
func NewConfig(lower, upper, deadzone uint, slowModeFactor float64) (Config, error) {
	c := Config{
		LowerBound:     lower,
		UpperBound:     upper,
		Deadzone:       deadzone,
		SlowModeFactor: slowModeFactor,
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// ConfigError reports a drive or autonomy setting that would make the robot
// misbehave.  It is always fatal at startup.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// Validate returns every problem with the config combined into one error.
func (c Config) Validate() error {
	var err error
	if c.LowerBound > c.UpperBound {
		err = multierr.Append(err, &ConfigError{
			Field:  "lower_bound",
			Reason: fmt.Sprintf("%d is greater than upper_bound %d", c.LowerBound, c.UpperBound),
		})
	}
	if c.UpperBound > math.MaxInt32 {
		err = multierr.Append(err, &ConfigError{Field: "upper_bound", Reason: "out of range"})
	}
	// A zero deadzone would let a centred stick reach the scaling path, where
	// the sign of the sample is undefined.
	if c.Deadzone == 0 {
		err = multierr.Append(err, &ConfigError{Field: "deadzone", Reason: "must be at least 1"})
	}
	if math.IsNaN(c.SlowModeFactor) || c.SlowModeFactor < 0 || c.SlowModeFactor > 1 {
		err = multierr.Append(err, &ConfigError{
			Field:  "slow_mode_factor",
			Reason: fmt.Sprintf("%v is outside [0, 1]", c.SlowModeFactor),
		})
	}
	return err
}
