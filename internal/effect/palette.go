package effect

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// hsv converts a hue in turns [0, 1) and saturation and value in [0, 1].
// Channels are truncated to 8 bits, not rounded.
func hsv(h, s, v float64) RGB {
	h -= math.Floor(h)
	c := colorful.Hsv(h*360, s, v)
	return RGB{uint8(c.R * 255), uint8(c.G * 255), uint8(c.B * 255)}
}

// heightPalette colors cells by row, green at the bottom shading to red at
// the top in bands of four rows.
type heightPalette []RGB

func newHeightPalette(height int) heightPalette {
	p := make(heightPalette, height)
	for i := range p {
		n := i / 4 * 4
		p[i] = hsv(0.333-0.4*float64(n)/float64(height), 1, 1)
	}
	return p
}

func (p heightPalette) Main(col, row int) RGB { return p[row] }
func (p heightPalette) Peak(col int) RGB      { return p[len(p)-1] }

// columnPalette colors cells by column, sweeping the hue once across the
// width.
type columnPalette struct {
	main []RGB
	peak []RGB
}

func newColumnPalette(width int) columnPalette {
	p := columnPalette{
		main: make([]RGB, width),
		peak: make([]RGB, width),
	}
	for i := 0; i < width; i++ {
		h := float64(i) / float64(width)
		p.peak[i] = hsv(h, 0.7, 1)
		p.main[i] = hsv(h, 1, 0.7)
	}
	return p
}

func (p columnPalette) Main(col, row int) RGB { return p.main[col] }
func (p columnPalette) Peak(col int) RGB      { return p.peak[col] }

// Classic is the bars effect colored by height.
type Classic struct{ *Bars }

// NewClassic creates a classic bars effect.
func NewClassic(canvas Canvas, cfg Config) *Classic {
	b := newBars(canvas, cfg, 2)
	b.palette = newHeightPalette(canvas.Height())
	return &Classic{b}
}

// Rainbow is the bars effect colored by frequency.
type Rainbow struct{ *Bars }

// NewRainbow creates a rainbow bars effect.
func NewRainbow(canvas Canvas, cfg Config) *Rainbow {
	b := newBars(canvas, cfg, 3)
	b.palette = newColumnPalette(canvas.Width())
	return &Rainbow{b}
}
