package hardware

import (
	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/pierbot/go-controller/pkg/encoder"
	"github.com/pierbot/go-controller/pkg/pca9685"
)

// NewDummy returns hardware backed by a recording PWM board and simulated
// encoders, for bench runs without the robot.
func NewDummy(cfg Config, log *zap.SugaredLogger) (*Hardware, *pca9685.Recorder) {
	return newDummy(cfg, log, clock.New())
}

func newDummy(cfg Config, log *zap.SugaredLogger, clk clock.Clock) (*Hardware, *pca9685.Recorder) {
	log.Info("DHW: using simulated hardware")
	sim := encoder.NewSimulated(cfg.SimulatedRate)
	rec := pca9685.Dummy()
	h := newHardware(cfg, log, sim)
	h.clock = clk
	h.sim = sim
	h.openPWM = func() (pca9685.Interface, error) {
		return rec, nil
	}
	return h, rec
}
