// Package pipeline streams a bitstream to the panel continuously and without
// the involvement of the rendering loop.
//
// The hardware model is a pair of chained transfer stages. A control stage
// reloads the source address of a data stage, the data stage streams one full
// pass of the bitstream to the shift-out peripheral and then triggers the
// control stage again. Once started, the pair keeps streaming forever; the
// renderer only ever writes pixel bytes into the bitstream and the next pass
// picks them up.
package pipeline

import (
	"github.com/pkg/errors"
	"libdb.so/matrixglow/internal/matrix"
)

// ErrBusy is returned by Port.Start when the port is already streaming.
var ErrBusy = errors.New("port is busy")

// Port is a chained transfer engine feeding the shift-out peripheral.
type Port interface {
	// Start starts streaming buf. If repeat is true, the port restarts from
	// the top of buf after every pass until aborted.
	Start(buf []byte, repeat bool) error
	// Abort requests the transfer to stop. It does not wait.
	Abort()
	// Busy reports whether a transfer is still in flight.
	Busy() bool
}

// InterruptMasker is implemented by ports that raise a completion interrupt
// after every pass.
type InterruptMasker interface {
	// MaskInterrupts suppresses pass completion interrupts until restore is
	// called. Interrupts raised while masked stay pending.
	MaskInterrupts() (restore func())
	// ClearInterrupts drops pending interrupts.
	ClearInterrupts()
}

// Retargeter is implemented by ports whose control stage can be pointed at a
// different bitstream while streaming.
type Retargeter interface {
	// Retarget makes the next pass read from buf.
	Retarget(buf []byte)
	// Passes returns the number of completed passes.
	Passes() uint64
}

// Sink is the shift-out peripheral at the end of the data stage. It receives
// every record of a pass in stream order.
type Sink interface {
	// Shift shifts out one record.
	Shift(r matrix.Record) error
	// Close releases the peripheral.
	Close() error
}

// PassEnder is implemented by sinks that want to know when a pass is
// complete.
type PassEnder interface {
	EndPass() error
}
