// joytests prints joystick events and the drive command each one produces.
package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/pierbot/go-controller/pkg/drive"
	"github.com/pierbot/go-controller/pkg/joystick"
	"github.com/pierbot/go-controller/pkg/session"
)

var CLI struct {
	Device string `default:"/dev/input/js0" env:"JOYSTICK_DEVICE" help:"Joystick device."`
}

func main() {
	kong.Parse(&CLI)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	j := waitForJoystick(ctx, CLI.Device)
	if j == nil {
		return
	}
	stop := context.AfterFunc(ctx, func() { _ = j.Close() })
	defer stop()

	pad := joystick.NewState()
	teleop := session.DefaultTeleopConfig()
	cfg := drive.DefaultConfig()
	for {
		event, err := j.ReadEvent()
		if err != nil {
			fmt.Printf("Failed to read from joystick: %v.\n", err)
			return
		}
		pad.Apply(event)
		in := session.InputFromSnapshot(pad.Snapshot(), teleop)
		leftInv, rightInv := drive.InversionFromSticks(in.LeftDigitalStick, in.RightDigitalStick)
		left, right := drive.Mix(in.RightStickY, in.LeftStickY, leftInv, rightInv, in.SlowMode, cfg)
		fmt.Printf("%-16s sticks R=%4d L=%4d slow=%-5v -> left=%4d right=%4d\n",
			event, in.RightStickY, in.LeftStickY, in.SlowMode, left, right)
	}
}

func waitForJoystick(ctx context.Context, dev string) *joystick.Joystick {
	firstLog := true
	for {
		j, err := joystick.NewJoystick(dev)
		if err == nil {
			fmt.Printf("Opened joystick\n")
			return j
		}
		if firstLog {
			fmt.Printf("Waiting for joystick: %v.\n", err)
			firstLog = false
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Second):
		}
	}
}
