// drivetests prints what the drive and autonomy code would do, without any
// hardware attached.  Handy for checking a config before it goes on the robot.
package main

import (
	"fmt"
	"time"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"

	"github.com/pierbot/go-controller/pkg/autonomy"
	"github.com/pierbot/go-controller/pkg/config"
	"github.com/pierbot/go-controller/pkg/drive"
	"github.com/pierbot/go-controller/pkg/encoder"
)

var CLI struct {
	Config string `help:"Robot config to test; the built-in defaults are used if not given." type:"path"`

	Map      MapCmd      `cmd:"" help:"Print the throttle for a range of axis samples."`
	Mix      MixCmd      `cmd:"" help:"Print the motor throttles for one pair of stick samples."`
	Sequence SequenceCmd `cmd:"" help:"Run the autonomy phases against simulated encoders."`
}

type Context struct {
	cfg config.Config
}

type MapCmd struct {
	From int  `default:"-100"`
	To   int  `default:"100"`
	Step int  `default:"5"`
	Slow bool `help:"Apply the slow mode factor."`
}

func (c *MapCmd) Run(ctx *Context) error {
	if c.Step <= 0 {
		return fmt.Errorf("step must be positive")
	}
	for s := c.From; s <= c.To; s += c.Step {
		// Mix with matching samples and no inversion gives the mapped axis on
		// both wheels, slow mode included.
		t, _ := drive.Mix(drive.AxisSample(s), drive.AxisSample(s), false, false, c.Slow, ctx.cfg.Drive)
		fmt.Printf("%5d -> %5d\n", s, t)
	}
	return nil
}

type MixCmd struct {
	RightStick int  `arg:"" help:"Right stick Y sample."`
	LeftStick  int  `arg:"" help:"Left stick Y sample."`
	LeftClick  bool `help:"Left digital stick held."`
	RightClick bool `help:"Right digital stick held."`
	Slow       bool `help:"Slow mode engaged."`
}

func (c *MixCmd) Run(ctx *Context) error {
	leftInv, rightInv := drive.InversionFromSticks(c.LeftClick, c.RightClick)
	left, right := drive.Mix(drive.AxisSample(c.RightStick), drive.AxisSample(c.LeftStick), leftInv, rightInv, c.Slow, ctx.cfg.Drive)
	fmt.Printf("inverted: left=%v right=%v\n", leftInv, rightInv)
	fmt.Printf("left motor=%d right motor=%d\n", left, right)
	return nil
}

type SequenceCmd struct {
	Rate     float64       `default:"40" help:"Simulated encoder counts per second at full throttle."`
	Tick     time.Duration `default:"20ms"`
	MaxTicks int           `default:"5000"`
}

func (c *SequenceCmd) Run(ctx *Context) error {
	phases, err := ctx.cfg.Phases()
	if err != nil {
		return err
	}
	seq, err := autonomy.New(phases)
	if err != nil {
		return err
	}
	sim := encoder.NewSimulated(c.Rate)
	tracker := encoder.NewTracker(sim, ctx.cfg.Hardware.CountsPerUnit)
	if err := tracker.Poll(); err != nil {
		return err
	}

	printPhase(seq)
	for tick := 1; tick <= c.MaxTicks; tick++ {
		before := seq.Index()
		left, right := seq.Step(tracker)
		sim.Drive(left, right)
		sim.Advance(c.Tick)
		if err := tracker.Poll(); err != nil {
			return err
		}
		if seq.Index() != before {
			fmt.Printf("%8v tick %5d: phase %d done, displacement L=%.2f R=%.2f\n",
				time.Duration(tick)*c.Tick, tick, before,
				tracker.Displacement(drive.Left), tracker.Displacement(drive.Right))
			if ctx.cfg.Autonomy.ZeroOnAdvance {
				tracker.Zero()
			}
			if seq.Done() {
				fmt.Println("Sequence complete")
				return nil
			}
			printPhase(seq)
		}
	}
	return fmt.Errorf("sequence still in phase %d (%s) after %d ticks", seq.Index(), seq.PhaseName(), c.MaxTicks)
}

func printPhase(seq *autonomy.Sequencer) {
	if p, ok := seq.Current(); ok {
		fmt.Printf("Starting %v\n", p)
	}
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("drivetests"),
		kong.Description("Offline checks for the drive mixer and autonomy sequence."))

	cfg := config.Default()
	if CLI.Config != "" {
		logger, err := zap.NewDevelopment()
		kctx.FatalIfErrorf(err)
		cfg, err = config.Load(CLI.Config, logger.Sugar())
		kctx.FatalIfErrorf(err)
	}
	kctx.FatalIfErrorf(kctx.Run(&Context{cfg: cfg}))
}
