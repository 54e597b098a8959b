package hardware

import (
	"time"

	"github.com/pierbot/go-controller/pkg/drive"
)

// Interface is everything the control tick needs from the robot: somewhere to
// write throttles and somewhere to read wheel displacement.  Writes are cached
// and pushed to the devices by the hardware loop.
type Interface interface {
	SetMotorThrottles(left, right drive.Throttle)
	StopMotors()
	SetGearbox(throttle drive.Throttle)
	SetDoor(degrees float64)

	// Feedback mirrors the last commanded drive throttles for telemetry.
	Feedback() Feedback

	Displacement(w drive.Wheel) float64
	ZeroDisplacement()

	PlaySound(path string)
}

// Feedback holds the two telemetry channels.  Channel 0 carries the right
// motor and channel 1 the left motor.
type Feedback [2]drive.Throttle

const (
	FeedbackRightMotor = 0
	FeedbackLeftMotor  = 1
)

func (f Feedback) Right() drive.Throttle { return f[FeedbackRightMotor] }
func (f Feedback) Left() drive.Throttle  { return f[FeedbackLeftMotor] }

// Ports maps each actuator to its PWM board output.
type Ports struct {
	LeftMotor  int `yaml:"left_motor"`
	RightMotor int `yaml:"right_motor"`
	Gearbox    int `yaml:"gearbox"`
	Door       int `yaml:"door"`
}

type Config struct {
	I2CBus  string `yaml:"i2c_bus"`
	PWMAddr int    `yaml:"pwm_addr"`
	Ports   Ports  `yaml:"ports"`

	EncoderSPI    string  `yaml:"encoder_spi"`
	CountsPerUnit float64 `yaml:"counts_per_unit"`

	// LoopPeriod is how often outputs are pushed and encoders polled.
	LoopPeriod time.Duration `yaml:"loop_period"`
	// RetryDelay is the pause before re-opening the devices after a bus fault.
	RetryDelay time.Duration `yaml:"retry_delay"`

	// SimulatedRate is the encoder count rate at full throttle when running
	// without hardware.
	SimulatedRate float64 `yaml:"simulated_rate"`
}

func DefaultConfig() Config {
	return Config{
		I2CBus:        "/dev/i2c-1",
		PWMAddr:       0x40,
		Ports:         Ports{LeftMotor: 0, RightMotor: 1, Gearbox: 2, Door: 3},
		EncoderSPI:    "/dev/spidev0.0",
		CountsPerUnit: 10,
		LoopPeriod:    10 * time.Millisecond,
		RetryDelay:    time.Second,
		SimulatedRate: 40,
	}
}
