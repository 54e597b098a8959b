package hardware

import (
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/pierbot/go-controller/pkg/drive"
	"github.com/pierbot/go-controller/pkg/encoder"
	"github.com/pierbot/go-controller/pkg/pca9685"
)

type SoundPlayer interface {
	Play(path string)
}

type outputs struct {
	left, right drive.Throttle
	gearbox     drive.Throttle
	door        float64
	doorSet     bool
}

type Hardware struct {
	cfg   Config
	log   *zap.SugaredLogger
	clock clock.Clock

	openPWM      func() (pca9685.Interface, error)
	tracker      *encoder.Tracker
	closeEncoder func() error
	// sim is only set when running without hardware.
	sim *encoder.Simulated

	lock    sync.Mutex
	desired outputs
	sounds  SoundPlayer
}

var _ Interface = (*Hardware)(nil)

// New opens the encoder bridge; the PWM board is opened by Loop so that it can
// be re-opened after a bus fault.
func New(cfg Config, log *zap.SugaredLogger) (*Hardware, error) {
	counter, err := encoder.NewSPI(cfg.EncoderSPI)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open encoder bridge")
	}
	h := newHardware(cfg, log, counter)
	h.closeEncoder = counter.Close
	h.openPWM = func() (pca9685.Interface, error) {
		return pca9685.New(cfg.I2CBus, cfg.PWMAddr)
	}
	return h, nil
}

func newHardware(cfg Config, log *zap.SugaredLogger, counter encoder.Counter) *Hardware {
	return &Hardware{
		cfg:          cfg,
		log:          log,
		clock:        clock.New(),
		tracker:      encoder.NewTracker(counter, cfg.CountsPerUnit),
		closeEncoder: func() error { return nil },
	}
}

// AttachSound routes PlaySound to the given player.
func (h *Hardware) AttachSound(p SoundPlayer) {
	h.lock.Lock()
	h.sounds = p
	h.lock.Unlock()
}

func (h *Hardware) SetMotorThrottles(left, right drive.Throttle) {
	h.lock.Lock()
	h.desired.left = left
	h.desired.right = right
	h.lock.Unlock()
}

func (h *Hardware) StopMotors() {
	h.lock.Lock()
	h.desired.left = 0
	h.desired.right = 0
	h.desired.gearbox = 0
	h.lock.Unlock()
}

func (h *Hardware) SetGearbox(throttle drive.Throttle) {
	h.lock.Lock()
	h.desired.gearbox = throttle
	h.lock.Unlock()
}

func (h *Hardware) SetDoor(degrees float64) {
	h.lock.Lock()
	h.desired.door = degrees
	h.desired.doorSet = true
	h.lock.Unlock()
}

func (h *Hardware) Feedback() Feedback {
	h.lock.Lock()
	defer h.lock.Unlock()
	var f Feedback
	f[FeedbackRightMotor] = h.desired.right
	f[FeedbackLeftMotor] = h.desired.left
	return f
}

func (h *Hardware) Displacement(w drive.Wheel) float64 {
	return h.tracker.Displacement(w)
}

func (h *Hardware) ZeroDisplacement() {
	h.tracker.Zero()
}

func (h *Hardware) PlaySound(path string) {
	h.lock.Lock()
	p := h.sounds
	h.lock.Unlock()
	if p == nil {
		h.log.Debugw("no speaker attached", "sound", path)
		return
	}
	p.Play(path)
}

// Shutdown zeroes the motors and releases the encoder bridge.  The loop pushes
// the zero throttles out as it exits.
func (h *Hardware) Shutdown() error {
	h.log.Info("HW: shutting down")
	h.StopMotors()
	return h.closeEncoder()
}

func (h *Hardware) snapshot() outputs {
	h.lock.Lock()
	defer h.lock.Unlock()
	return h.desired
}
