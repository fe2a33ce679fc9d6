// Package sink contains the shift-out protocol shared by the panel output
// back ends. Subpackages implement pipeline.Sink on top of concrete
// hardware.
package sink

import (
	"time"

	"libdb.so/matrixglow/internal/matrix"
)

// Pins is the GPIO layout of the panel's column drivers and row select.
type Pins struct {
	Clock int
	Data  int
	Latch int
	Blank int
	Row   [4]int
}

// DefaultPins is the pin layout of the reference board.
var DefaultPins = Pins{
	Clock: 13,
	Data:  14,
	Latch: 15,
	Blank: 16,
	Row:   [4]int{17, 18, 19, 20},
}

// All returns every pin in the layout.
func (p Pins) All() []int {
	return []int{p.Clock, p.Data, p.Latch, p.Blank, p.Row[0], p.Row[1], p.Row[2], p.Row[3]}
}

// Lines drives output lines.
type Lines interface {
	Set(pin int, high bool) error
}

// DefaultTick is the display time of one BCD tick.
const DefaultTick = time.Microsecond

// Shifter shifts records out on bit-banged lines.
type Shifter struct {
	Lines Lines
	Pins  Pins
	// Tick is the display time of one BCD tick.
	Tick time.Duration
	// Sleep waits for the given duration. It defaults to time.Sleep.
	Sleep func(time.Duration)
}

// Reset drives the idle state: clock, data and latch low, blank and row
// select high.
func (s *Shifter) Reset() error {
	for _, pin := range []int{s.Pins.Clock, s.Pins.Data, s.Pins.Latch} {
		if err := s.Lines.Set(pin, false); err != nil {
			return err
		}
	}
	if err := s.Lines.Set(s.Pins.Blank, true); err != nil {
		return err
	}
	for _, pin := range s.Pins.Row {
		if err := s.Lines.Set(pin, true); err != nil {
			return err
		}
	}
	return nil
}

// Shift shifts one record: every pixel's blue, green and red bit is clocked
// into the column drivers, the columns are latched while blanked, the row is
// selected and the row is lit for the record's tick count.
func (s *Shifter) Shift(r matrix.Record) error {
	for _, px := range r.Pixels() {
		for _, bit := range [3]byte{matrix.BlueBit, matrix.GreenBit, matrix.RedBit} {
			if err := s.clock(px&bit != 0); err != nil {
				return err
			}
		}
	}

	if err := s.Lines.Set(s.Pins.Blank, true); err != nil {
		return err
	}
	if err := s.pulse(s.Pins.Latch); err != nil {
		return err
	}

	row := r.Row()
	for i, pin := range s.Pins.Row {
		if err := s.Lines.Set(pin, row&(1<<i) != 0); err != nil {
			return err
		}
	}

	if err := s.Lines.Set(s.Pins.Blank, false); err != nil {
		return err
	}
	s.sleep(time.Duration(r.Ticks()) * s.Tick)
	return s.Lines.Set(s.Pins.Blank, true)
}

// DriverConfig is the column driver configuration register value for full
// output current.
const DriverConfig = 0b1111111111001110

// DriverChips is the number of chained column driver chips.
const DriverChips = 10

// ConfigureDrivers writes reg into the configuration register of every
// column driver chip. The register is latched by holding latch high while
// the last 11 bits of the last chip are clocked in.
func (s *Shifter) ConfigureDrivers(reg uint16) error {
	for j := 0; j < DriverChips-1; j++ {
		if err := s.ShiftBits(reg, 16); err != nil {
			return err
		}
	}

	for i := 15; i >= 0; i-- {
		if err := s.clock(reg&(1<<i) != 0); err != nil {
			return err
		}
		if i == 11 {
			if err := s.Lines.Set(s.Pins.Latch, true); err != nil {
				return err
			}
		}
	}
	if err := s.Lines.Set(s.Pins.Latch, false); err != nil {
		return err
	}

	// Clocking the register leaves a faint glow until the blank is
	// reapplied.
	if err := s.Lines.Set(s.Pins.Blank, false); err != nil {
		return err
	}
	return s.Lines.Set(s.Pins.Blank, true)
}

// ShiftBits clocks raw bits out on the data line, most significant first.
func (s *Shifter) ShiftBits(v uint16, n int) error {
	for i := n - 1; i >= 0; i-- {
		if err := s.clock(v&(1<<i) != 0); err != nil {
			return err
		}
	}
	return nil
}

func (s *Shifter) clock(bit bool) error {
	if err := s.Lines.Set(s.Pins.Data, bit); err != nil {
		return err
	}
	return s.pulse(s.Pins.Clock)
}

func (s *Shifter) pulse(pin int) error {
	if err := s.Lines.Set(pin, true); err != nil {
		return err
	}
	return s.Lines.Set(pin, false)
}

func (s *Shifter) sleep(d time.Duration) {
	if s.Sleep != nil {
		s.Sleep(d)
		return
	}
	time.Sleep(d)
}
