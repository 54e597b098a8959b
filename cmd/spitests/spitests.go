// spitests polls the encoder bridge and prints the wheel displacement, for
// checking the encoder wiring by pushing the robot by hand.
package main

import (
	"fmt"
	"log"
	"time"

	"github.com/alecthomas/kong"
	"periph.io/x/periph/conn/spi/spireg"

	"github.com/pierbot/go-controller/pkg/drive"
	"github.com/pierbot/go-controller/pkg/encoder"
)

var CLI struct {
	Port          string        `default:"/dev/spidev0.0" help:"SPI port of the encoder bridge."`
	CountsPerUnit float64       `default:"10" help:"Encoder counts per displacement unit."`
	Period        time.Duration `default:"100ms"`
	Clear         bool          `help:"Clear the bridge's counters first."`
}

func main() {
	kong.Parse(&CLI)

	counter, err := encoder.NewSPI(CLI.Port)
	if err != nil {
		for _, r := range spireg.All() {
			log.Printf("Port ref: %v", r)
		}
		log.Fatal(err)
	}
	defer counter.Close()

	if CLI.Clear {
		if err := counter.ClearCounts(); err != nil {
			log.Fatal(err)
		}
	}

	tracker := encoder.NewTracker(counter, CLI.CountsPerUnit)
	for range time.NewTicker(CLI.Period).C {
		if err := tracker.Poll(); err != nil {
			log.Fatal(err)
		}
		raw, err := counter.RawCounts()
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("raw L=%6d R=%6d  displacement L=%8.2f R=%8.2f\n",
			raw[drive.Left], raw[drive.Right],
			tracker.Displacement(drive.Left), tracker.Displacement(drive.Right))
	}
}
