package main

import (
	"fmt"
	"machine"
	"sync"

	"libdb.so/matrixglow/internal/matrix"
	"libdb.so/matrixglow/internal/sink"
	"libdb.so/matrixglow/matrixserial"
)

// Device stores the current state of the device.
type Device struct {
	serial SerialReadWriter
	panel  *Panel
	geom   matrixserial.InitializePacket

	// mu guards front, which Scan reads.
	mu    sync.Mutex
	front []byte
	back  []byte
}

// NewDevice creates a new device.
func NewDevice(serial machine.Serialer, pins sink.Pins) *Device {
	return &Device{
		serial: WrapSerial(serial),
		panel:  NewPanel(pins),
	}
}

// Run runs the device loop forever.
func (d *Device) Run() {
	for {
		p, err := d.readPacket()
		if err != nil {
			d.logError(err)
			continue
		}

		if err := d.handlePacket(p); err != nil {
			d.logError(err)
		}
	}
}

// Scan shows the last received bitstream forever.
func (d *Device) Scan() {
	for {
		d.mu.Lock()
		if d.front != nil {
			d.panel.Scan(d.front)
		}
		d.mu.Unlock()
		yield()
	}
}

func (d *Device) log(msg string) {
	d.sendPacket(matrixserial.LogPacket{Message: msg})
}

func (d *Device) logError(err error) {
	d.sendPacket(matrixserial.ErrorPacket{Message: err.Error()})
}

func (d *Device) sendPacket(p matrixserial.OutgoingPacket) {
	matrixserial.WriteOutgoingPacket(d.serial, p)
}

func (d *Device) readPacket() (matrixserial.IncomingPacket, error) {
	turnOnMainLED(0, 16, 0)

	p, err := matrixserial.ReadIncomingPacket(d.serial, matrixserial.ReadContext{
		BitstreamLength: d.geom.BitstreamLength(),
		Buffer:          d.back,
	})

	turnOffMainLED()
	return p, err
}

func (d *Device) handlePacket(p matrixserial.IncomingPacket) error {
	switch p := p.(type) {
	case matrixserial.InitializePacket:
		if p.Width < 1 || p.Height < 1 || p.Frames < 1 {
			return fmt.Errorf("invalid geometry: %dx%d, %d frames", p.Width, p.Height, p.Frames)
		}
		if int(p.FrameBytes) != matrix.FrameBytes || int(p.Width) > matrix.Width {
			return fmt.Errorf("unsupported %d byte records of %d pixels", p.FrameBytes, p.Width)
		}

		d.mu.Lock()
		d.geom = p
		d.front = nil
		d.back = make([]byte, p.BitstreamLength())
		d.mu.Unlock()

		d.panel.Configure()
		d.log(fmt.Sprintf("initialized %dx%d panel", p.Width, p.Height))

	case matrixserial.ClearPacket:
		d.mu.Lock()
		d.front = nil
		d.mu.Unlock()
		d.panel.Blank()

	case matrixserial.BitstreamPacket:
		// The packet was read into the back buffer.
		d.mu.Lock()
		if d.front == nil {
			d.front = make([]byte, len(p.Data))
		}
		d.front, d.back = p.Data, d.front
		d.mu.Unlock()

	default:
		return fmt.Errorf("unknown packet type: %T", p)
	}

	d.sendPacket(matrixserial.AckPacket{
		IncomingPacketType: p.Type(),
	})
	return nil
}
