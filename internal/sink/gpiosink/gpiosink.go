// Package gpiosink drives the panel by bit-banging Linux GPIO character
// device lines.
package gpiosink

import (
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"github.com/warthog618/go-gpiocdev"
	"libdb.so/matrixglow/internal/matrix"
	"libdb.so/matrixglow/internal/pipeline"
	"libdb.so/matrixglow/internal/sink"
)

// Sink is a pipeline.Sink on GPIO lines.
type Sink struct {
	shifter sink.Shifter
	lines   gpioLines
	logger  *slog.Logger
}

var _ pipeline.Sink = (*Sink)(nil)

type gpioLines map[int]*gpiocdev.Line

func (l gpioLines) Set(pin int, high bool) error {
	line, ok := l[pin]
	if !ok {
		return errors.Errorf("gpio line %d not requested", pin)
	}
	v := 0
	if high {
		v = 1
	}
	return line.SetValue(v)
}

func (l gpioLines) close(logger *slog.Logger) error {
	var firstErr error
	for pin, line := range l {
		if err := line.Close(); err != nil {
			logger.Warn("failed to release gpio line", "pin", pin, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Open requests the panel lines on the given chip (e.g. "gpiochip0") and
// configures the column drivers.
func Open(chip string, pins sink.Pins, tick time.Duration, logger *slog.Logger) (*Sink, error) {
	if tick <= 0 {
		tick = sink.DefaultTick
	}

	lines := make(gpioLines, 8)
	for _, pin := range pins.All() {
		line, err := gpiocdev.RequestLine(chip, pin, gpiocdev.AsOutput(0))
		if err != nil {
			lines.close(logger)
			return nil, errors.Wrapf(err, "failed to request gpio line %d on %s", pin, chip)
		}
		lines[pin] = line
	}

	s := &Sink{
		shifter: sink.Shifter{
			Lines: lines,
			Pins:  pins,
			Tick:  tick,
		},
		lines:  lines,
		logger: logger,
	}

	if err := s.shifter.Reset(); err != nil {
		lines.close(logger)
		return nil, errors.Wrap(err, "failed to reset panel lines")
	}
	if err := s.shifter.ConfigureDrivers(sink.DriverConfig); err != nil {
		lines.close(logger)
		return nil, errors.Wrap(err, "failed to configure column drivers")
	}

	logger.Debug("gpio panel sink opened", "chip", chip, "tick", tick)
	return s, nil
}

// Shift implements pipeline.Sink.
func (s *Sink) Shift(r matrix.Record) error {
	return s.shifter.Shift(r)
}

// Close implements pipeline.Sink. It blanks the panel before releasing the
// lines.
func (s *Sink) Close() error {
	if err := s.shifter.Reset(); err != nil {
		s.logger.Warn("failed to blank panel", "error", err)
	}
	return s.lines.close(s.logger)
}
