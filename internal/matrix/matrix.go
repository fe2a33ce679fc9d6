// Package matrix encodes an RGB pixel grid into the binary-coded dimming
// bitstream streamed to the LED panel.
//
// The bitstream is a sequence of fixed-size records, one per (row, frame)
// pair. Frame f of a row holds bit f of every pixel's gamma-corrected
// intensity and is displayed for 2^f ticks, so the on-time of a pixel is
// proportional to its intensity.
package matrix

import (
	"encoding/binary"
	"math"
)

const (
	// Width is the number of pixels per row.
	Width = 53
	// Height is the number of rows.
	Height = 11
	// Rows is the number of scanned rows. Every row is scanned separately.
	Rows = Height
	// Frames is the number of BCD bit planes per row.
	Frames = 14

	// headerBytes is the pixel count and row select prefix of a record.
	headerBytes = 2
	// tickOffset is the offset of the tick count, the first 4-byte boundary
	// past the pixel bytes.
	tickOffset = (headerBytes + Width + 3) &^ 3

	// FrameBytes is the size of one record.
	FrameBytes = tickOffset + 4
	// RowBytes is the size of all records of a row.
	RowBytes = Frames * FrameBytes
	// BitstreamLength is the size of the full bitstream.
	BitstreamLength = Rows * RowBytes

	// MaxIntensity is the largest gamma-corrected intensity.
	MaxIntensity = 1<<Frames - 1
)

// DefaultGamma is the default gamma exponent.
const DefaultGamma = 1.8

// Endianness is the byte order of the tick count field.
var Endianness = binary.LittleEndian

// Channel bits within a pixel byte.
const (
	BlueBit  = 1 << 0
	GreenBit = 1 << 1
	RedBit   = 1 << 2
)

// GammaTable maps an 8-bit channel value to a Frames-bit intensity.
type GammaTable [256]uint16

// NewGammaTable builds a gamma table for the given exponent.
func NewGammaTable(gamma float64) *GammaTable {
	var t GammaTable
	for v := range t {
		t[v] = uint16(math.Pow(float64(v)/255, gamma)*MaxIntensity + 0.5)
	}
	return &t
}

// Offset returns the byte offset of the record for the given row and frame.
func Offset(row, frame int) int {
	return row*RowBytes + frame*FrameBytes
}

// InitBitstream writes every record's header and tick count into buf and
// clears all pixel bytes. buf must be at least BitstreamLength long.
func InitBitstream(buf []byte) {
	for row := 0; row < Rows; row++ {
		for frame := 0; frame < Frames; frame++ {
			rec := buf[Offset(row, frame):][:FrameBytes]
			for i := range rec {
				rec[i] = 0
			}
			rec[0] = Width - 1
			rec[1] = byte(row)
			Endianness.PutUint32(rec[tickOffset:], 1<<frame)
		}
	}
}
