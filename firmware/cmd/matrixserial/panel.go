package main

import (
	"machine"

	"libdb.so/matrixglow/internal/matrix"
	"libdb.so/matrixglow/internal/sink"
)

// boardLines drives the panel through the microcontroller's own pins. Layout
// pin numbers are GPIO numbers.
type boardLines struct{}

func (boardLines) Set(pin int, high bool) error {
	machine.Pin(pin).Set(high)
	return nil
}

// Panel shifts bitstream records out to the panel.
type Panel struct {
	shifter sink.Shifter
}

// NewPanel configures the pins and blanks the panel.
func NewPanel(pins sink.Pins) *Panel {
	for _, pin := range pins.All() {
		machine.Pin(pin).Configure(machine.PinConfig{Mode: machine.PinOutput})
	}
	p := &Panel{
		shifter: sink.Shifter{
			Lines: boardLines{},
			Pins:  pins,
			Tick:  sink.DefaultTick,
		},
	}
	p.Blank()
	return p
}

// Blank turns every row off.
func (p *Panel) Blank() {
	p.shifter.Reset()
}

// Configure writes the configuration register of every column driver.
func (p *Panel) Configure() {
	p.shifter.ConfigureDrivers(sink.DriverConfig)
}

// Scan shows one pass of the bitstream.
func (p *Panel) Scan(bitstream []byte) {
	for off := 0; off+matrix.FrameBytes <= len(bitstream); off += matrix.FrameBytes {
		p.shifter.Shift(matrix.Record(bitstream[off : off+matrix.FrameBytes]))
	}
}
