package hardware

import (
	"context"

	"go.uber.org/multierr"

	"github.com/pierbot/go-controller/pkg/pca9685"
)

// Loop pushes the desired outputs to the PWM board and polls the encoders
// until ctx is cancelled.  On a bus fault it closes everything, waits and
// starts again.  ready is closed after the first successful device setup.
func (h *Hardware) Loop(ctx context.Context, ready chan<- struct{}) error {
	h.log.Info("HW: loop started")
	markReady := func() {
		if ready != nil {
			close(ready)
			ready = nil
		}
	}
	for {
		err := h.loopUntilSomethingBadHappens(ctx, markReady)
		if ctx.Err() != nil {
			return nil
		}
		h.log.Errorw("===== !!! WARNING !!! HARDWARE FAILURE; TRYING TO RECOVER =====", "error", err)
		select {
		case <-ctx.Done():
			return nil
		case <-h.clock.After(h.cfg.RetryDelay):
		}
	}
}

func (h *Hardware) loopUntilSomethingBadHappens(ctx context.Context, markReady func()) (err error) {
	pwm, err := h.openPWM()
	if err != nil {
		return err
	}
	defer func() {
		// Leave the motors stopped whatever happens.
		err = multierr.Combine(err, h.stopAll(pwm), pwm.Close())
	}()

	if err := pwm.Configure(); err != nil {
		return err
	}
	// Force a full write on the first pass.
	var last *outputs

	if err := h.syncOutputs(pwm, &last); err != nil {
		return err
	}
	if err := h.pollEncoders(); err != nil {
		h.log.Warnw("HW: failed to read encoders", "error", err)
	}
	markReady()

	ticker := h.clock.Ticker(h.cfg.LoopPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		if err := h.syncOutputs(pwm, &last); err != nil {
			return err
		}
		if err := h.pollEncoders(); err != nil {
			// Displacement just stalls; the drive keeps working.
			h.log.Warnw("HW: failed to read encoders", "error", err)
		}
	}
}

// syncOutputs writes whichever outputs changed since the previous call.
func (h *Hardware) syncOutputs(pwm pca9685.Interface, last **outputs) error {
	want := h.snapshot()
	prev := *last
	p := h.cfg.Ports

	if prev == nil || prev.left != want.left {
		if err := pwm.SetThrottle(p.LeftMotor, want.left); err != nil {
			return err
		}
	}
	if prev == nil || prev.right != want.right {
		if err := pwm.SetThrottle(p.RightMotor, want.right); err != nil {
			return err
		}
	}
	if prev == nil || prev.gearbox != want.gearbox {
		if err := pwm.SetThrottle(p.Gearbox, want.gearbox); err != nil {
			return err
		}
	}
	if want.doorSet && (prev == nil || !prev.doorSet || prev.door != want.door) {
		if err := pwm.SetServo(p.Door, want.door); err != nil {
			return err
		}
	}
	if h.sim != nil {
		h.sim.Drive(want.left, want.right)
	}
	*last = &want
	return nil
}

func (h *Hardware) pollEncoders() error {
	if h.sim != nil {
		h.sim.Advance(h.cfg.LoopPeriod)
	}
	return h.tracker.Poll()
}

func (h *Hardware) stopAll(pwm pca9685.Interface) error {
	p := h.cfg.Ports
	return multierr.Combine(
		pwm.SetThrottle(p.LeftMotor, 0),
		pwm.SetThrottle(p.RightMotor, 0),
		pwm.SetThrottle(p.Gearbox, 0),
	)
}
