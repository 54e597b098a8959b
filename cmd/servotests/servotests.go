package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/pierbot/go-controller/pkg/drive"
	"github.com/pierbot/go-controller/pkg/pca9685"
)

var CLI struct {
	Bus  string `default:"/dev/i2c-1" help:"I2C bus of the PWM board."`
	Addr int    `default:"64" help:"I2C address of the PWM board."`
}

func main() {
	kong.Parse(&CLI)

	pwmController, err := pca9685.New(CLI.Bus, CLI.Addr)
	if err != nil {
		fmt.Println("Failed to open PCA9685", err)
		return
	}
	defer pwmController.Close()

	err = pwmController.Configure()
	if err != nil {
		fmt.Println("Failed to configure PCA9685", err)
		return
	}

	fmt.Println(
		`Commands:
    s <n> <degrees>         # Move the servo on port n
    t <n> <throttle>        # Drive the ESC on port n
    p <n> <pwm-duty-cycle>  # Raw PWM
    x                       # Stop ESCs on ports 0-3 and quit

<n>               Port number 0-15
<degrees>         Servo angle 0-180; the door is 40 open, 75 closed
<throttle>        -100 to 100; 0 = stopped
<pwm-duty-cycle>  Raw PWM duty cycle 0.0-1.0; 0=fully off, 1.0=fully on`)

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println("\nFailed to read stdin: ", err)
			stopAll(pwmController)
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		switch parts[0] {
		case "x":
			stopAll(pwmController)
			return
		case "s", "t", "p":
			if len(parts) < 3 {
				fmt.Println("Not enough parameters")
				continue
			}
			n, err := strconv.Atoi(parts[1])
			if err != nil {
				fmt.Println("Expected int, not ", parts[1])
				continue
			}
			if n < 0 || n > 15 {
				fmt.Println("Expected 0 <= n < 16")
				continue
			}
			v, err := strconv.ParseFloat(parts[2], 64)
			if err != nil {
				fmt.Println("Expected number, not ", parts[2])
				continue
			}
			switch parts[0] {
			case "s":
				fmt.Printf("Setting servo %d to %.1f degrees (%d counts)\n", n, v, pca9685.ServoCounts(v))
				err = pwmController.SetServo(n, v)
			case "t":
				th := drive.Throttle(v)
				fmt.Printf("Setting ESC %d to %d (%d counts)\n", n, th, pca9685.ThrottleCounts(th))
				err = pwmController.SetThrottle(n, th)
			default:
				fmt.Printf("Setting PWM %d to %f\n", n, v)
				err = pwmController.SetPWM(n, v)
			}
			if err != nil {
				fmt.Println("Failed to write to PCA9685: ", err)
				return
			}
		default:
			fmt.Println("Unknown command", parts[0])
		}
	}
}

func stopAll(p pca9685.Interface) {
	for n := 0; n < 4; n++ {
		if err := p.SetThrottle(n, 0); err != nil {
			fmt.Println("Failed to stop port", n, err)
		}
	}
}
