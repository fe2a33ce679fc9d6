// Package display is the pixel-level interface to the LED matrix. It keeps
// the pixel grid, the bitstream encoder and the output pipeline together.
package display

import (
	"log/slog"

	"github.com/pkg/errors"
	"libdb.so/matrixglow/internal/matrix"
	"libdb.so/matrixglow/internal/pipeline"
)

const (
	// Width is the number of columns.
	Width = matrix.Width
	// Height is the number of rows.
	Height = matrix.Height
)

var errNotInitialized = errors.New("display is not initialized")

// Display drives the LED matrix through a pipeline.Port. Its methods are not
// safe for concurrent use; the output pipeline reads the bitstream
// concurrently but never takes part in locking.
type Display struct {
	port   pipeline.Port
	logger *slog.Logger

	gamma        float64
	brightness   float64
	doubleBuffer bool

	grid Grid
	enc  *matrix.Encoder
	pipe *pipeline.Pipeline

	// back is the bitstream the encoder writes into when double buffering.
	back []byte
}

// Option configures a Display.
type Option func(*Display)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Display) { d.logger = logger }
}

// WithGamma sets the gamma exponent.
func WithGamma(gamma float64) Option {
	return func(d *Display) { d.gamma = gamma }
}

// WithBrightness sets the initial brightness in [0, 1].
func WithBrightness(brightness float64) Option {
	return func(d *Display) { d.brightness = brightness }
}

// WithDoubleBuffer makes the display draw into a back buffer that is only
// shown after Update. Without it, pixel writes show up on the next pass of
// the pipeline and a pass may show a partially drawn frame.
func WithDoubleBuffer() Option {
	return func(d *Display) { d.doubleBuffer = true }
}

// New creates a new display on port. Until Init succeeds, pixel writes and
// Clear do nothing, brightness changes are kept for Init and Update fails.
func New(port pipeline.Port, opts ...Option) *Display {
	d := &Display{
		port:       port,
		logger:     slog.Default(),
		gamma:      matrix.DefaultGamma,
		brightness: 1,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Init builds the encoding tables, clears the frame and starts the output
// pipeline. The display is unusable if Init fails.
func (d *Display) Init() error {
	d.grid = NewGrid(Width, Height)
	d.enc = matrix.NewEncoder(matrix.WithGamma(d.gamma))
	d.enc.SetBrightness(d.brightness)

	front := d.enc.Bitstream()
	if d.doubleBuffer {
		d.back = make([]byte, matrix.BitstreamLength)
		matrix.InitBitstream(d.back)
		d.enc.Retarget(d.back)
	}

	d.pipe = pipeline.New(d.port, d.logger)
	if err := d.pipe.Start(front); err != nil {
		return errors.Wrap(err, "failed to start display")
	}

	d.logger.Info(
		"display initialized",
		"width", Width,
		"height", Height,
		"double_buffer", d.doubleBuffer)
	return nil
}

// Width returns the number of columns.
func (d *Display) Width() int { return Width }

// Height returns the number of rows.
func (d *Display) Height() int { return Height }

// SetPixel sets the color of pixel (x, y). Coordinates outside the display
// are ignored.
func (d *Display) SetPixel(x, y int, r, g, b uint8) {
	if !d.grid.Contains(x, y) {
		return
	}
	d.grid.Set(x, y, RGBColor{r, g, b})
	d.enc.SetPixel(x, y, r, g, b)
}

// Pixel returns the color last set at (x, y). It returns black outside the
// display.
func (d *Display) Pixel(x, y int) RGBColor {
	if !d.grid.Contains(x, y) {
		return RGBColor{}
	}
	return d.grid.At(x, y)
}

// Clear sets every pixel to black.
func (d *Display) Clear() {
	if d.enc == nil {
		return
	}
	d.grid.Fill(RGBColor{})
	d.enc.Clear()
}

// Update presents the frame. Without double buffering the pipeline already
// streams every pixel write, so Update does nothing. With double buffering,
// it swaps the buffers at a pass boundary.
func (d *Display) Update() error {
	if d.pipe == nil {
		return errNotInitialized
	}
	if !d.doubleBuffer {
		return nil
	}

	shown := d.pipe.Bitstream()
	if err := d.pipe.Flip(d.back); err != nil {
		return err
	}

	// The old front buffer is free now. Bring it up to date and draw into
	// it from here on.
	copy(shown, d.back)
	d.back = shown
	d.enc.Retarget(d.back)
	return nil
}

// Brightness returns the brightness in [0, 1].
func (d *Display) Brightness() float64 {
	if d.enc == nil {
		return d.brightness
	}
	return d.enc.Brightness()
}

// SetBrightness sets the brightness, clamped to [0, 1], and re-encodes the
// frame with it.
func (d *Display) SetBrightness(v float64) {
	d.brightness = min(max(v, 0), 1)
	if d.enc == nil {
		return
	}
	d.enc.SetBrightness(v)
	d.redraw()
}

// AdjustBrightness changes the brightness by delta.
func (d *Display) AdjustBrightness(delta float64) {
	d.SetBrightness(d.Brightness() + delta)
}

func (d *Display) redraw() {
	d.grid.Each(func(x, y int, c RGBColor) {
		d.enc.SetPixel(x, y, c[0], c[1], c[2])
	})
}

// Bitstream returns the bitstream currently being drawn into.
// It is nil before Init.
func (d *Display) Bitstream() []byte {
	if d.enc == nil {
		return nil
	}
	return d.enc.Bitstream()
}

// Close stops the output pipeline and releases the port. It may block until
// the hardware finishes its current record.
func (d *Display) Close() error {
	if d.pipe == nil {
		return nil
	}
	return d.pipe.Close()
}
