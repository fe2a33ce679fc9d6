package matrix

import (
	"fmt"
	"math/bits"
)

// Record is a view into one (row, frame) record of a bitstream.
type Record []byte

// PixelCount returns the number of pixels in the record.
func (r Record) PixelCount() int {
	return int(r[0]) + 1
}

// Row returns the row select value.
func (r Record) Row() int {
	return int(r[1])
}

// Pixels returns the pixel bytes.
func (r Record) Pixels() []byte {
	return r[headerBytes : headerBytes+r.PixelCount()]
}

// Pixel returns the channel bits of pixel i.
func (r Record) Pixel(i int) (red, green, blue bool) {
	b := r[headerBytes+i]
	return b&RedBit != 0, b&GreenBit != 0, b&BlueBit != 0
}

// Ticks returns the number of ticks the record is displayed for.
func (r Record) Ticks() uint32 {
	return Endianness.Uint32(r[tickOffset:])
}

// Frame returns the BCD frame index, derived from the tick count.
func (r Record) Frame() int {
	return bits.TrailingZeros32(r.Ticks())
}

// Offset returns the record's offset within a bitstream.
func (r Record) Offset() int {
	return Offset(r.Row(), r.Frame())
}

// String implements fmt.Stringer.
func (r Record) String() string {
	return fmt.Sprintf("record(row=%d, pixels=%d, ticks=%d)", r.Row(), r.PixelCount(), r.Ticks())
}

// ForEachRecord calls fn for every record of buf in stream order. It stops at
// the first error returned by fn.
func ForEachRecord(buf []byte, fn func(row, frame int, r Record) error) error {
	for row := 0; row < Rows; row++ {
		for frame := 0; frame < Frames; frame++ {
			off := Offset(row, frame)
			if err := fn(row, frame, Record(buf[off:off+FrameBytes])); err != nil {
				return err
			}
		}
	}
	return nil
}

// Intensity decodes the on-time of the pixel at panel coordinates (x, y) of
// buf, in ticks per channel. Coordinates are in bitstream order, which is
// flipped on both axes relative to Encoder.SetPixel.
func Intensity(buf []byte, x, y int) (r, g, b uint32) {
	for frame := 0; frame < Frames; frame++ {
		p := buf[Offset(y, frame)+headerBytes+x]
		w := uint32(1) << frame
		if p&RedBit != 0 {
			r += w
		}
		if p&GreenBit != 0 {
			g += w
		}
		if p&BlueBit != 0 {
			b += w
		}
	}
	return
}
