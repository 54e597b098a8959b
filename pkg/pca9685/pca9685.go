// Package pca9685 drives the 16-channel PWM board that generates the pulse
// trains for the motor controllers and the door servo.
package pca9685

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/exp/io/i2c"

	"github.com/pierbot/go-controller/pkg/drive"
)

const (
	DefaultAddr = 0x40

	RegMode1 = 0x00
	RegMode2 = 0x01

	// Each PWM output has two 16-bit (low byte first) registers.
	// First register is the on time, second is the off time.
	RegLEDBase = 0x06

	RegPreScale = 0xfe // Pre-scaler for PWM frequency.

	NumPorts = 16

	PWMPeriod = 20 * time.Millisecond
	PWMMax    = 4095

	// Motor controllers take an RC-style pulse: 1.5ms is stopped, 1ms full
	// reverse and 2ms full forward.
	ESCMinPulse     = 1000 * time.Microsecond
	ESCNeutralPulse = 1500 * time.Microsecond
	ESCMaxPulse     = 2000 * time.Microsecond

	// Servo pulse range covering 0-180 degrees.
	ServoMinPulse  = 500 * time.Microsecond
	ServoMaxPulse  = 2500 * time.Microsecond
	ServoMaxDegree = 180.0
)

type Interface interface {
	Configure() error
	// SetThrottle drives a motor controller input; -100 is full reverse.
	SetThrottle(port int, throttle drive.Throttle) error
	// SetServo positions a servo, in degrees.
	SetServo(port int, degrees float64) error
	// SetPWM sets a raw duty cycle in [0, 1].
	SetPWM(port int, value float64) error
	Close() error
}

type PCA9685 struct {
	dev *i2c.Device
}

func New(deviceFile string, addr int) (*PCA9685, error) {
	if addr == 0 {
		addr = DefaultAddr
	}
	dev, err := i2c.Open(&i2c.Devfs{Dev: deviceFile}, addr)
	if err != nil {
		return nil, err
	}
	return &PCA9685{
		dev: dev,
	}, nil
}

var _ Interface = (*PCA9685)(nil)

func (p *PCA9685) Configure() (err error) {
	// Put device to sleep.
	err = p.dev.WriteReg(RegMode1, []byte{0x11})
	if err != nil {
		return
	}
	// Update pre-scaler for 50Hz.
	err = p.dev.WriteReg(RegPreScale, []byte{0x79})
	if err != nil {
		return
	}
	// Trigger a reset
	err = p.dev.WriteReg(RegMode1, []byte{0x01})
	if err != nil {
		return
	}
	// Required delay after reset.
	time.Sleep(1 * time.Millisecond)
	// Enable.
	err = p.dev.WriteReg(RegMode1, []byte{0x81})
	return
}

func (p *PCA9685) SetThrottle(port int, throttle drive.Throttle) error {
	return p.write(port, ThrottleCounts(throttle))
}

func (p *PCA9685) SetServo(port int, degrees float64) error {
	return p.write(port, ServoCounts(degrees))
}

func (p *PCA9685) SetPWM(port int, value float64) error {
	return p.write(port, uint16(PWMMax*clamp(value, 0, 1)))
}

func (p *PCA9685) write(port int, counts uint16) error {
	if port < 0 || port >= NumPorts {
		return fmt.Errorf("PWM port out of range: %d", port)
	}
	addr := RegLEDBase + port*4
	return p.dev.WriteReg(byte(addr), []byte{0, 0, byte(counts & 0xff), byte(counts >> 8)})
}

func (p *PCA9685) Close() error {
	return p.dev.Close()
}

// ThrottleCounts converts a throttle into the off-time register value.
// Throttles beyond ±100 saturate at the ends of the ESC range.
func ThrottleCounts(throttle drive.Throttle) uint16 {
	frac := clamp(float64(throttle)/drive.FullScale, -1, 1)
	pulse := ESCNeutralPulse + time.Duration(frac*float64(ESCMaxPulse-ESCNeutralPulse))
	return pulseCounts(pulse)
}

// ServoCounts converts a servo angle into the off-time register value.
func ServoCounts(degrees float64) uint16 {
	frac := clamp(degrees/ServoMaxDegree, 0, 1)
	pulse := ServoMinPulse + time.Duration(frac*float64(ServoMaxPulse-ServoMinPulse))
	return pulseCounts(pulse)
}

func pulseCounts(pulse time.Duration) uint16 {
	return uint16(PWMMax * pulse / PWMPeriod)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Dummy returns a board that just remembers what it was told.
func Dummy() *Recorder {
	return &Recorder{
		Throttles: map[int]drive.Throttle{},
		Servos:    map[int]float64{},
		PWMs:      map[int]float64{},
	}
}

type Recorder struct {
	lock      sync.Mutex
	Throttles map[int]drive.Throttle
	Servos    map[int]float64
	PWMs      map[int]float64
	Writes    int
}

var _ Interface = (*Recorder)(nil)

func (*Recorder) Configure() error {
	return nil
}

func (r *Recorder) SetThrottle(port int, throttle drive.Throttle) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.Throttles[port] = throttle
	r.Writes++
	return nil
}

func (r *Recorder) SetServo(port int, degrees float64) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.Servos[port] = degrees
	r.Writes++
	return nil
}

func (r *Recorder) SetPWM(port int, value float64) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.PWMs[port] = value
	r.Writes++
	return nil
}

// Throttle returns the last throttle written to port.
func (r *Recorder) Throttle(port int) drive.Throttle {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.Throttles[port]
}

// Servo returns the last angle written to port.
func (r *Recorder) Servo(port int) float64 {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.Servos[port]
}

// WriteCount is the number of register writes so far.
func (r *Recorder) WriteCount() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.Writes
}

func (*Recorder) Close() error {
	return nil
}
