package matrix

import "math"

// DefaultBrightness is the brightness of a new encoder, in 1/256 steps.
const DefaultBrightness = 256

// Encoder writes pixels into a bitstream. Only the pixel bytes are ever
// written after construction; the record headers and tick counts stay
// untouched so a concurrent reader never sees a malformed record.
type Encoder struct {
	gamma      *GammaTable
	buf        []byte
	brightness uint16
}

// EncoderOption configures an Encoder.
type EncoderOption func(*Encoder)

// WithGamma sets the gamma exponent.
func WithGamma(gamma float64) EncoderOption {
	return func(e *Encoder) {
		e.gamma = NewGammaTable(gamma)
	}
}

// WithBuffer makes the encoder write into buf instead of allocating its own
// bitstream. buf is reinitialized.
func WithBuffer(buf []byte) EncoderOption {
	return func(e *Encoder) {
		e.buf = buf
	}
}

// NewEncoder creates an encoder with an initialized, all-black bitstream.
func NewEncoder(opts ...EncoderOption) *Encoder {
	e := &Encoder{brightness: DefaultBrightness}
	for _, opt := range opts {
		opt(e)
	}
	if e.gamma == nil {
		e.gamma = NewGammaTable(DefaultGamma)
	}
	if e.buf == nil {
		e.buf = make([]byte, BitstreamLength)
	}
	InitBitstream(e.buf)
	return e
}

// Bitstream returns the encoded bitstream. The encoder keeps writing into it.
func (e *Encoder) Bitstream() []byte {
	return e.buf
}

// Record returns the record of the given row and frame in the bitstream.
func (e *Encoder) Record(row, frame int) Record {
	off := Offset(row, frame)
	return Record(e.buf[off : off+FrameBytes])
}

// Retarget makes the encoder write into buf, which must already be
// initialized with InitBitstream.
func (e *Encoder) Retarget(buf []byte) {
	e.buf = buf
}

// Gamma returns the encoder's gamma table.
func (e *Encoder) Gamma() *GammaTable {
	return e.gamma
}

// SetPixel encodes the color of pixel (x, y). Coordinates outside the panel
// are ignored.
func (e *Encoder) SetPixel(x, y int, r, g, b uint8) {
	if x < 0 || x >= Width || y < 0 || y >= Height {
		return
	}

	// The panel is mounted rotated by 180 degrees.
	x = Width - 1 - x
	y = Height - 1 - y

	gr := e.gamma[uint16(r)*e.brightness>>8]
	gg := e.gamma[uint16(g)*e.brightness>>8]
	gb := e.gamma[uint16(b)*e.brightness>>8]

	off := y*RowBytes + headerBytes + x
	for frame := 0; frame < Frames; frame++ {
		e.buf[off] = byte(gb&1) | byte(gg&1)<<1 | byte(gr&1)<<2
		gr >>= 1
		gg >>= 1
		gb >>= 1
		off += FrameBytes
	}
}

// Clear sets every pixel to black.
func (e *Encoder) Clear() {
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			e.SetPixel(x, y, 0, 0, 0)
		}
	}
}

// Brightness returns the brightness in [0, 1].
func (e *Encoder) Brightness() float64 {
	return float64(e.brightness) / 256
}

// SetBrightness sets the brightness. The value is clamped to [0, 1].
// Pixels already encoded keep their old brightness until written again.
func (e *Encoder) SetBrightness(v float64) {
	v = math.Max(0, math.Min(1, v))
	e.brightness = uint16(math.Floor(v * 256))
}

// AdjustBrightness changes the brightness by delta.
func (e *Encoder) AdjustBrightness(delta float64) {
	e.SetBrightness(e.Brightness() + delta)
}
