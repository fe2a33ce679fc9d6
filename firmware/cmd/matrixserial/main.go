// Command matrixserial is the microcontroller side of the serial output. It
// receives bitstream passes from the host and scans them out to the panel.
package main

import (
	"machine"

	"libdb.so/matrixglow/internal/sink"
)

func main() {
	machine.Serial.Configure(machine.UARTConfig{})

	d := NewDevice(machine.Serial, sink.DefaultPins)
	go d.Scan()
	d.Run()
}
