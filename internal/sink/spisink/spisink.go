// Package spisink drives the panel's column shift registers over an SPI bus,
// using periph.io for the bus and for the latch, blank and row select pins.
package spisink

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"libdb.so/matrixglow/internal/matrix"
	"libdb.so/matrixglow/internal/pipeline"
	"libdb.so/matrixglow/internal/sink"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// DefaultFrequency is the default SPI clock.
const DefaultFrequency = 8 * physic.MegaHertz

// Sink is a pipeline.Sink on an SPI port.
type Sink struct {
	port spi.PortCloser
	conn spi.Conn

	latch gpio.PinIO
	blank gpio.PinIO
	row   [4]gpio.PinIO

	tick   time.Duration
	buf    []byte
	logger *slog.Logger
}

var _ pipeline.Sink = (*Sink)(nil)

// Open opens the named SPI port (empty for the first available one). Data
// and clock come from the SPI port once the column drivers are configured;
// every pin of the layout is looked up as "GPIO<n>".
func Open(name string, freq physic.Frequency, pins sink.Pins, tick time.Duration, logger *slog.Logger) (*Sink, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "failed to initialize periph host")
	}

	if freq == 0 {
		freq = DefaultFrequency
	}
	if tick <= 0 {
		tick = sink.DefaultTick
	}

	s := &Sink{
		tick:   tick,
		buf:    make([]byte, packedBytes),
		logger: logger,
	}

	var err error
	if s.latch, err = lookupPin(pins.Latch); err != nil {
		return nil, err
	}
	if s.blank, err = lookupPin(pins.Blank); err != nil {
		return nil, err
	}
	for i, pin := range pins.Row {
		if s.row[i], err = lookupPin(pin); err != nil {
			return nil, err
		}
	}

	clock, err := lookupPin(pins.Clock)
	if err != nil {
		return nil, err
	}
	data, err := lookupPin(pins.Data)
	if err != nil {
		return nil, err
	}

	lines := pinLines{
		pins.Clock: clock,
		pins.Data:  data,
		pins.Latch: s.latch,
		pins.Blank: s.blank,
	}
	for i, pin := range pins.Row {
		lines[pin] = s.row[i]
	}

	// The configuration register needs latch held high mid-word, which a
	// byte-wide SPI transfer cannot do, so it is written before the port
	// takes over the clock and data pins.
	if err := configureDrivers(lines, pins); err != nil {
		return nil, err
	}

	s.port, err = spireg.Open(name)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open spi port")
	}

	s.conn, err = s.port.Connect(freq, spi.Mode0, 8)
	if err != nil {
		s.port.Close()
		return nil, errors.Wrap(err, "failed to connect to spi port")
	}

	if err := s.idle(); err != nil {
		s.port.Close()
		return nil, err
	}

	logger.Debug("spi panel sink opened", "port", name, "freq", freq)
	return s, nil
}

func lookupPin(n int) (gpio.PinIO, error) {
	name := fmt.Sprintf("GPIO%d", n)
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, errors.Errorf("gpio pin %s not found", name)
	}
	return p, nil
}

// pinLines drives layout pins by number.
type pinLines map[int]gpio.PinOut

func (l pinLines) Set(pin int, high bool) error {
	p, ok := l[pin]
	if !ok {
		return errors.Errorf("pin %d is not in the layout", pin)
	}
	return p.Out(gpio.Level(high))
}

// configureDrivers bit-bangs sink.DriverConfig into the column drivers.
func configureDrivers(lines sink.Lines, pins sink.Pins) error {
	sh := sink.Shifter{Lines: lines, Pins: pins}
	if err := sh.Reset(); err != nil {
		return errors.Wrap(err, "failed to reset panel lines")
	}
	if err := sh.ConfigureDrivers(sink.DriverConfig); err != nil {
		return errors.Wrap(err, "failed to configure column drivers")
	}
	return nil
}

func (s *Sink) idle() error {
	if err := s.latch.Out(gpio.Low); err != nil {
		return errors.Wrap(err, "failed to reset latch")
	}
	if err := s.blank.Out(gpio.High); err != nil {
		return errors.Wrap(err, "failed to blank panel")
	}
	return nil
}

// packedBytes is the number of bytes needed to hold three bits per pixel.
const packedBytes = (3*matrix.Width + 7) / 8

// PackBits packs the blue, green and red bit of every pixel of r into dst,
// most significant bit first. Leading pad bits are zero so the last bit
// clocked out is the last pixel's red bit.
func PackBits(dst []byte, r matrix.Record) {
	for i := range dst {
		dst[i] = 0
	}

	bit := len(dst)*8 - 3*r.PixelCount()
	for _, px := range r.Pixels() {
		for _, mask := range [3]byte{matrix.BlueBit, matrix.GreenBit, matrix.RedBit} {
			if px&mask != 0 {
				dst[bit/8] |= 0x80 >> (bit % 8)
			}
			bit++
		}
	}
}

// Shift implements pipeline.Sink.
func (s *Sink) Shift(r matrix.Record) error {
	PackBits(s.buf, r)
	if err := s.conn.Tx(s.buf, nil); err != nil {
		return errors.Wrap(err, "spi transfer failed")
	}

	if err := s.blank.Out(gpio.High); err != nil {
		return err
	}
	if err := s.latch.Out(gpio.High); err != nil {
		return err
	}
	if err := s.latch.Out(gpio.Low); err != nil {
		return err
	}

	row := r.Row()
	for i, pin := range s.row {
		if err := pin.Out(gpio.Level(row&(1<<i) != 0)); err != nil {
			return err
		}
	}

	if err := s.blank.Out(gpio.Low); err != nil {
		return err
	}
	time.Sleep(time.Duration(r.Ticks()) * s.tick)
	return s.blank.Out(gpio.High)
}

// Close implements pipeline.Sink.
func (s *Sink) Close() error {
	if err := s.idle(); err != nil {
		s.logger.Warn("failed to idle panel", "error", err)
	}
	return s.port.Close()
}
