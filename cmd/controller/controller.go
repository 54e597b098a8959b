package main

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pierbot/go-controller/pkg/config"
	"github.com/pierbot/go-controller/pkg/hardware"
	"github.com/pierbot/go-controller/pkg/joystick"
	"github.com/pierbot/go-controller/pkg/scheduler"
	"github.com/pierbot/go-controller/pkg/screen"
	"github.com/pierbot/go-controller/pkg/session"
	"github.com/pierbot/go-controller/pkg/sound"
	"github.com/pierbot/go-controller/pkg/telemetry"
)

var CLI struct {
	Config        string `help:"Robot config file." default:"/cfg/pierbot.yaml" type:"path"`
	Joystick      string `help:"Joystick device." default:"/dev/input/js0" env:"JOYSTICK_DEVICE"`
	DummyHardware bool   `help:"Use simulated hardware if the robot's devices can't be opened." env:"IGNORE_MISSING_HARDWARE"`
	Debug         bool   `help:"Log every tick."`
	StartMode     string `help:"Field mode to start in, overriding the config." placeholder:"MODE"`
}

func main() {
	kong.Parse(&CLI,
		kong.Name("controller"),
		kong.Description("PiERbot drive controller."))

	log := newLogger(CLI.Debug)
	defer func() { _ = log.Sync() }()

	if err := run(log); err != nil {
		log.Errorw("controller failed", "error", err)
		_ = log.Sync()
		os.Exit(1)
	}
}

func newLogger(debug bool) *zap.SugaredLogger {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return logger.Sugar()
}

func run(log *zap.SugaredLogger) error {
	log.Infow("---- PiERbot ----", "gomaxprocs", runtime.GOMAXPROCS(0))

	// Everything that can be wrong with the config is found before any device
	// is touched.
	cfg, err := config.Load(CLI.Config, log)
	if err != nil {
		return err
	}
	if CLI.StartMode != "" {
		cfg.Tick.StartMode, err = scheduler.ParseMode(CLI.StartMode)
		if err != nil {
			return err
		}
	}
	sessOpts, err := cfg.SessionOptions()
	if err != nil {
		return err
	}

	// Our global context, cancelled to trigger shutdown.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	hw, err := hardware.New(cfg.Hardware, log.Named("hw"))
	if err != nil {
		if !CLI.DummyHardware {
			return err
		}
		log.Warnw("failed to open hardware", "error", err)
		hw, _ = hardware.NewDummy(cfg.Hardware, log.Named("hw"))
	}
	defer func() {
		log.Info("zeroing motors for shut down")
		if err := hw.Shutdown(); err != nil {
			log.Warnw("hardware shut down failed", "error", err)
		}
	}()

	player := sound.Start(log.Named("sound"))
	defer player.Close()
	hw.AttachSound(player)
	hw.PlaySound("/sounds/pierbotstart.wav")

	sess, err := session.New(sessOpts, hw, log.Named("session"))
	if err != nil {
		return err
	}

	pad := joystick.NewState()
	input := scheduler.InputFunc(func() session.Input {
		return session.InputFromSnapshot(pad.Snapshot(), cfg.Teleop)
	})
	sched := scheduler.New(scheduler.Config{
		Period:    cfg.Tick.Period,
		StartMode: cfg.Tick.StartMode,
		Cues:      cfg.Sounds.Cues(),
		Sounds:    hw,
	}, sess, input, hw, log.Named("scheduler"))

	pub := telemetry.New(cfg.Telemetry, log.Named("telemetry"))
	defer pub.Close()
	sched.Subscribe(pub.Observe)
	if err := pub.HandleModeCommands(sched.SetMode); err != nil {
		log.Warnw("remote mode commands unavailable", "error", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	ready := make(chan struct{})
	g.Go(func() error {
		return hw.Loop(ctx, ready)
	})
	g.Go(func() error {
		// Don't run any hooks until outputs can reach the motors.
		select {
		case <-ctx.Done():
			return nil
		case <-ready:
		}
		if err := sched.Run(ctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		screen.LoopUpdatingScreen(ctx, cfg.Screen, sched.Latest, log.Named("screen"))
		return nil
	})
	g.Go(func() error {
		readJoystick(ctx, CLI.Joystick, pad, sched, log.Named("joystick"))
		return nil
	})

	err = g.Wait()
	log.Info("shutting down")
	return err
}

type modeSwitcher interface {
	NextMode() scheduler.Mode
	PrevMode() scheduler.Mode
}

// readJoystick feeds pad events into the shared state until ctx is done,
// re-opening the device whenever it goes away.
func readJoystick(ctx context.Context, dev string, pad *joystick.State, modes modeSwitcher, log *zap.SugaredLogger) {
	firstLog := true
	for ctx.Err() == nil {
		j, err := joystick.NewJoystick(dev)
		if err != nil {
			if firstLog {
				log.Warnw("waiting for joystick", "device", dev, "error", err)
				firstLog = false
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		log.Infow("opened joystick", "device", dev)
		firstLog = true
		err = loopReadingJoystickEvents(ctx, j, pad, modes, log)
		// Don't keep driving on the last stick positions.
		pad.Reset()
		if ctx.Err() == nil {
			log.Errorw("joystick failed", "error", err)
		}
	}
}

func loopReadingJoystickEvents(ctx context.Context, j *joystick.Joystick, pad *joystick.State, modes modeSwitcher, log *zap.SugaredLogger) error {
	// ReadEvent blocks; closing the device is the only way to interrupt it.
	stop := context.AfterFunc(ctx, func() { _ = j.Close() })
	defer func() {
		if stop() {
			_ = j.Close()
		}
	}()

	for {
		event, err := j.ReadEvent()
		if err != nil {
			return err
		}
		log.Debugw("joy", "event", event)
		switch {
		case event.IsPress(joystick.ButtonStart):
			log.Infow("Start pressed: switching modes >>", "mode", modes.NextMode())
		case event.IsPress(joystick.ButtonBack):
			log.Infow("Back pressed: switching modes <<", "mode", modes.PrevMode())
		}
		pad.Apply(event)
	}
}
