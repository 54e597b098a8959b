package joystick

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"go.viam.com/test"
)

func encode(t *testing.T, events ...rawEvent) io.ReadCloser {
	t.Helper()
	var buf bytes.Buffer
	for _, e := range events {
		test.That(t, binary.Write(&buf, binary.LittleEndian, e), test.ShouldBeNil)
	}
	return io.NopCloser(&buf)
}

func TestReadEvent(t *testing.T) {
	j := FromReader(encode(t,
		rawEvent{Time: 1000, Value: -32767, Type: uint8(EventTypeAxis) | eventTypeInit, Number: AxisLTrigger},
		rawEvent{Time: 1250, Value: 1, Type: uint8(EventTypeButton), Number: ButtonA},
	))
	defer j.Close()

	e, err := j.ReadEvent()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, e.Type, test.ShouldEqual, EventTypeAxis)
	test.That(t, e.Number, test.ShouldEqual, uint8(AxisLTrigger))
	test.That(t, e.Value, test.ShouldEqual, int16(-32767))
	test.That(t, e.Init, test.ShouldBeTrue)

	e2, err := j.ReadEvent()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, e2.Init, test.ShouldBeFalse)
	test.That(t, e2.IsPress(ButtonA), test.ShouldBeTrue)
	test.That(t, e2.Time.Sub(e.Time).Milliseconds(), test.ShouldEqual, int64(250))
	test.That(t, e2.String(), test.ShouldEqual, "button(0)=1")

	_, err = j.ReadEvent()
	test.That(t, err, test.ShouldNotBeNil)
}

func TestHeldButtonOnOpenIsNotAPress(t *testing.T) {
	j := FromReader(encode(t,
		rawEvent{Time: 10, Value: 1, Type: uint8(EventTypeButton) | eventTypeInit, Number: ButtonStart},
		rawEvent{Time: 20, Value: 0, Type: uint8(EventTypeButton), Number: ButtonStart},
		rawEvent{Time: 30, Value: 1, Type: uint8(EventTypeButton), Number: ButtonStart},
	))
	defer j.Close()
	s := NewState()

	e, err := j.ReadEvent()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, e.Type, test.ShouldEqual, EventTypeButton)
	test.That(t, e.IsPress(ButtonStart), test.ShouldBeFalse)
	// The state still learns the button is down.
	s.Apply(e)
	test.That(t, s.Snapshot().Pressed(ButtonStart), test.ShouldBeTrue)

	e, err = j.ReadEvent()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, e.IsPress(ButtonStart), test.ShouldBeFalse)
	s.Apply(e)
	test.That(t, s.Snapshot().Pressed(ButtonStart), test.ShouldBeFalse)

	e, err = j.ReadEvent()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, e.IsPress(ButtonStart), test.ShouldBeTrue)
}

func TestStateSnapshot(t *testing.T) {
	s := NewState()
	snap := s.Snapshot()
	test.That(t, snap.LeftTrigger, test.ShouldEqual, 0)
	test.That(t, snap.RightTrigger, test.ShouldEqual, 0)
	test.That(t, snap.LeftStickY, test.ShouldEqual, 0)

	s.Apply(&Event{Type: EventTypeAxis, Number: AxisRStickY, Value: -32767})
	s.Apply(&Event{Type: EventTypeAxis, Number: AxisLStickY, Value: 16384})
	s.Apply(&Event{Type: EventTypeAxis, Number: AxisLStickX, Value: -32768})
	s.Apply(&Event{Type: EventTypeAxis, Number: AxisRTrigger, Value: 32767})
	s.Apply(&Event{Type: EventTypeAxis, Number: AxisLTrigger, Value: 0})
	s.Apply(&Event{Type: EventTypeButton, Number: ButtonLStick, Value: 1})
	s.Apply(&Event{Type: EventTypeButton, Number: 200, Value: 1})
	s.Apply(&Event{Type: EventTypeAxis, Number: 200, Value: 1})

	snap = s.Snapshot()
	// Up is positive.
	test.That(t, snap.RightStickY, test.ShouldEqual, 100)
	test.That(t, snap.LeftStickY, test.ShouldEqual, -50)
	test.That(t, snap.LeftStickX, test.ShouldEqual, -100)
	test.That(t, snap.RightTrigger, test.ShouldEqual, 100)
	test.That(t, snap.LeftTrigger, test.ShouldEqual, 50)
	test.That(t, snap.Pressed(ButtonLStick), test.ShouldBeTrue)
	test.That(t, snap.Pressed(ButtonRStick), test.ShouldBeFalse)
	test.That(t, snap.Pressed(-1), test.ShouldBeFalse)

	s.Apply(&Event{Type: EventTypeButton, Number: ButtonLStick, Value: 0})
	test.That(t, s.Snapshot().Pressed(ButtonLStick), test.ShouldBeFalse)

	s.Apply(&Event{Type: EventTypeButton, Number: ButtonRStick, Value: 1})
	s.Reset()
	test.That(t, s.Snapshot(), test.ShouldResemble, NewState().Snapshot())
}
