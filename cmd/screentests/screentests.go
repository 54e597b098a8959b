package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"

	"github.com/pierbot/go-controller/pkg/drive"
	"github.com/pierbot/go-controller/pkg/scheduler"
	"github.com/pierbot/go-controller/pkg/screen"
)

var CLI struct {
	Device string `default:"/dev/fb1" help:"Framebuffer device."`
}

func main() {
	kong.Parse(&CLI)
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var lock sync.Mutex
	st := scheduler.Status{Mode: scheduler.Teleop, Left: 60, Right: -80}
	latest := func() scheduler.Status {
		lock.Lock()
		defer lock.Unlock()
		return st
	}
	cfg := screen.DefaultConfig()
	cfg.Device = CLI.Device
	go screen.LoopUpdatingScreen(ctx, cfg, latest, logger.Sugar())

	fmt.Println("Enter: <mode> [<left> <right> [<phase>]]")
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println("\nFailed to read stdin: ", err)
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		mode, err := scheduler.ParseMode(parts[0])
		if err != nil {
			fmt.Println(err)
			continue
		}
		next := scheduler.Status{Mode: mode}
		if len(parts) >= 3 {
			l, errL := strconv.Atoi(parts[1])
			r, errR := strconv.Atoi(parts[2])
			if errL != nil || errR != nil {
				fmt.Println("Expected integer throttles")
				continue
			}
			next.Left, next.Right = drive.Throttle(l), drive.Throttle(r)
		}
		if len(parts) >= 4 {
			next.Phase = parts[3]
		}
		lock.Lock()
		st = next
		lock.Unlock()
	}
}
