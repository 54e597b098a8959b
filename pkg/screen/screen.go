// Package screen draws the robot's status on the 128x128 TFT framebuffer.
package screen

import (
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"time"

	"github.com/fogleman/gg"
	"go.uber.org/zap"

	"github.com/pierbot/go-controller/pkg/drive"
	"github.com/pierbot/go-controller/pkg/scheduler"
)

const (
	S = 128
	// FrameSize is the size of one RGB565 frame.
	FrameSize = S * S * 2
)

type Config struct {
	// Device is the framebuffer; the screen is skipped if it's empty or can't
	// be opened.
	Device string        `yaml:"device"`
	Period time.Duration `yaml:"period"`
}

func DefaultConfig() Config {
	return Config{
		Device: "/dev/fb1",
		Period: 500 * time.Millisecond,
	}
}

// LoopUpdatingScreen redraws the latest status every period until ctx is
// done, then blanks the screen.
func LoopUpdatingScreen(ctx context.Context, cfg Config, latest func() scheduler.Status, log *zap.SugaredLogger) {
	if cfg.Device == "" {
		return
	}
	f, err := os.OpenFile(cfg.Device, os.O_RDWR, 0666)
	if err != nil {
		log.Infow("failed to open screen, ignoring", "device", cfg.Device, "error", err)
		return
	}
	defer f.Close()

	ticker := time.NewTicker(cfg.Period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			var blank [FrameSize]byte
			_ = writeFrame(f, blank[:])
			return
		case <-ticker.C:
		}
		if err := writeFrame(f, Pack(Render(latest()))); err != nil {
			log.Warnw("screen failure", "error", err)
			return
		}
	}
}

// Render draws the mode, the autonomy phase and a bar per feedback channel.
func Render(st scheduler.Status) image.Image {
	dc := gg.NewContext(S, S)
	dc.SetRGB(0, 0, 0)
	dc.Clear()

	if st.Mode.Enabled() {
		dc.SetRGB(0, 1, 0.3)
	} else {
		dc.SetRGBA(1, 0.9, 0, 1)
	}
	dc.DrawStringAnchored(st.Mode.String(), S/2, 8, 0.5, 0.5)
	if st.Phase != "" {
		dc.SetRGB(1, 1, 1)
		dc.DrawStringAnchored(st.Phase, S/2, 22, 0.5, 0.5)
	}

	// Channel 0 is the right motor, channel 1 the left; draw them where they
	// sit on the robot.
	drawThrottleBar(dc, 24, "L", st.Left)
	drawThrottleBar(dc, S-24-30, "R", st.Right)
	return dc.Image()
}

const (
	barTop    = 34
	barHeight = 72
)

func drawThrottleBar(dc *gg.Context, x float64, label string, t drive.Throttle) {
	mid := float64(barTop + barHeight/2)
	dc.SetRGBA(1, 1, 1, 0.4)
	dc.DrawRectangle(x, barTop, 30, barHeight)
	dc.Stroke()

	frac := float64(t) / drive.FullScale
	if frac > 1 {
		frac = 1
	} else if frac < -1 {
		frac = -1
	}
	h := frac * barHeight / 2
	if t < 0 {
		dc.SetRGB(1, 0.2, 0)
	} else {
		dc.SetRGB(0, 0.8, 1)
	}
	// Forward grows up from the middle, reverse grows down.
	dc.DrawRectangle(x+2, mid-h, 26, h)
	dc.Fill()

	dc.SetRGB(1, 1, 1)
	dc.DrawStringAnchored(label, x+15, barTop+barHeight+8, 0.5, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("%d", t), x+15, barTop+barHeight+20, 0.5, 0.5)
}

// Pack converts an S x S image to the panel's RGB565 layout.  The panel is
// mounted rotated so rows of the image become columns of the frame.
func Pack(img image.Image) []byte {
	buf := make([]byte, FrameSize)
	for y := 0; y < S; y++ {
		for x := 0; x < S; x++ {
			r, g, b, _ := img.At(x, y).RGBA() // 16-bit pre-multiplied

			rb := byte(r >> (16 - 5))
			gb := byte(g >> (16 - 6)) // Green has 6 bits
			bb := byte(b >> (16 - 5))

			buf[(S-1-y)*2+x*S*2+1] = (rb << 3) | (gb >> 3)
			buf[(S-1-y)*2+x*S*2] = bb | (gb << 5)
		}
	}
	return buf
}

func writeFrame(w io.WriteSeeker, frame []byte) error {
	if _, err := w.Seek(0, io.SeekStart); err != nil {
		return err
	}
	// The panel driver drops data if it's written too fast.
	for i := 0; i < S; i++ {
		if _, err := w.Write(frame[i*S*2 : (i+1)*S*2]); err != nil {
			return err
		}
		time.Sleep(10 * time.Microsecond)
	}
	return nil
}
