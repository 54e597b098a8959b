// Package joystick reads a gamepad through the Linux joystick API and keeps a
// snapshot of its sticks, triggers and buttons for the control tick.
package joystick

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"
)

// Button and pad mappings (Xbox-style pad under the xpad driver):
//
// Buttons
//
//    A        = 0
//    B        = 1
//    X        = 2
//    Y        = 3
//    LB       = 4
//    RB       = 5
//    Back     = 6
//    Start    = 7
//    Guide    = 8
//    L stick  = 9
//    R stick  = 10
//
// Axes
//
//    L stick l/r = 0 (left = -32767; right = +32767)
//            u/d = 1 (up = -32767; down = +32767)
//    LT          = 2 (unpressed = -32767; fully-pressed = 32767)
//    R stick l/r = 3
//            u/d = 4
//    RT          = 5
//    D-pad   l/r = 6
//            u/d = 7

type EventType uint8

const (
	EventTypeButton EventType = 1
	EventTypeAxis   EventType = 2

	// Set on the synthetic events the driver sends when the device is opened.
	eventTypeInit = 0x80
)

const (
	ButtonA      = 0
	ButtonB      = 1
	ButtonX      = 2
	ButtonY      = 3
	ButtonLB     = 4
	ButtonRB     = 5
	ButtonBack   = 6
	ButtonStart  = 7
	ButtonGuide  = 8
	ButtonLStick = 9
	ButtonRStick = 10

	NumButtons = 16

	AxisLStickX   = 0
	AxisLStickY   = 1
	AxisLTrigger  = 2
	AxisRStickX   = 3
	AxisRStickY   = 4
	AxisRTrigger  = 5
	AxisDPadX     = 6
	AxisDPadY     = 7
	NumAxes       = 8
	AxisFullScale = 32767
)

func (e EventType) String() string {
	switch e {
	case EventTypeAxis:
		return "axis"
	case EventTypeButton:
		return "button"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(e))
	}
}

type Joystick struct {
	device io.ReadCloser

	deviceEpoch    uint32
	wallclockEpoch time.Time
}

type rawEvent struct {
	Time   uint32
	Value  int16
	Type   uint8
	Number uint8
}

type Event struct {
	Time   time.Time
	Value  int16
	Type   EventType
	Number uint8
	// Init marks the synthetic events reporting the pad's state on open.
	Init bool
}

func (e *Event) String() string {
	return fmt.Sprintf("%v(%v)=%v", e.Type, e.Number, e.Value)
}

// IsPress reports whether the event is the given button going down.  A button
// already held when the device is opened is not a press.
func (e *Event) IsPress(button uint8) bool {
	return !e.Init && e.Type == EventTypeButton && e.Number == button && e.Value == 1
}

func NewJoystick(device string) (*Joystick, error) {
	f, err := os.Open(device)
	if err != nil {
		return nil, err
	}
	return FromReader(f), nil
}

// FromReader decodes joystick events from an already open stream.
func FromReader(r io.ReadCloser) *Joystick {
	return &Joystick{device: r}
}

func (j *Joystick) ReadEvent() (*Event, error) {
	var rawEvent rawEvent
	err := binary.Read(j.device, binary.LittleEndian, &rawEvent)
	if err != nil {
		return nil, err
	}

	if j.deviceEpoch == 0 {
		j.deviceEpoch = rawEvent.Time
		j.wallclockEpoch = time.Now()
	}

	return &Event{
		Time:   j.wallclockEpoch.Add(time.Duration(rawEvent.Time-j.deviceEpoch) * time.Millisecond),
		Value:  rawEvent.Value,
		Type:   EventType(rawEvent.Type &^ eventTypeInit),
		Number: rawEvent.Number,
		Init:   rawEvent.Type&eventTypeInit != 0,
	}, nil
}

func (j *Joystick) Close() error {
	return j.device.Close()
}
