package encoder

import (
	"encoding/binary"

	"github.com/pkg/errors"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/conn/spi"
	"periph.io/x/periph/conn/spi/spireg"
	"periph.io/x/periph/host"
)

// Encoder bridge protocol: the host clocks out a command byte followed by
// padding; the bridge answers with both counters, little endian, starting at
// the second byte.
const (
	CmdReadCounts  = 0x01
	CmdClearCounts = 0x02

	countsFrameLen = 1 + 2*2
)

// SPICounter reads the wheel counters from the encoder bridge board.
type SPICounter struct {
	closer spi.PortCloser
	c      spi.Conn

	w, r [countsFrameLen]byte
}

// NewSPI opens the named SPI port (for example "/dev/spidev0.0" or "SPI0.0").
func NewSPI(port string) (*SPICounter, error) {
	// Make sure periph is initialized.
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "periph init")
	}

	p, err := spireg.Open(port)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", port)
	}

	c, err := p.Connect(physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		_ = p.Close()
		return nil, errors.Wrap(err, "connect encoder bridge")
	}

	return &SPICounter{closer: p, c: c}, nil
}

var _ Counter = (*SPICounter)(nil)

func (s *SPICounter) RawCounts() (Counts, error) {
	s.clear()
	s.w[0] = CmdReadCounts
	if err := s.c.Tx(s.w[:], s.r[:]); err != nil {
		return Counts{}, err
	}
	// The reply only starts after the command byte has gone out.
	return Counts{
		int16(binary.LittleEndian.Uint16(s.r[1:3])),
		int16(binary.LittleEndian.Uint16(s.r[3:5])),
	}, nil
}

// ClearCounts zeroes the counters on the bridge itself.
func (s *SPICounter) ClearCounts() error {
	s.clear()
	s.w[0] = CmdClearCounts
	return s.c.Tx(s.w[:1], s.r[:1])
}

func (s *SPICounter) Close() error {
	return s.closer.Close()
}

func (s *SPICounter) clear() {
	s.w = [countsFrameLen]byte{}
	s.r = [countsFrameLen]byte{}
}
