package effect

import (
	"libdb.so/matrixglow/internal/fix15"
	"libdb.so/matrixglow/internal/spectrum"
)

// loudnessScalePerRow scales the loudness curve so that a loud bar fills the
// height of the canvas.
const loudnessScalePerRow = 0.318

// Palette colors the bars.
type Palette interface {
	// Main returns the color of a lit cell.
	Main(col, row int) RGB
	// Peak returns the color of a column's peak marker.
	Peak(col int) RGB
}

// Bars draws one spectrum bar per column with a decaying trail and a held
// peak marker.
type Bars struct {
	canvas  Canvas
	cfg     Config
	palette Palette
	// trailShift dims the trail below the held peak.
	trailShift uint

	analyzer *spectrum.Analyzer
	loudness []fix15.Fix15
	history  *History
	scaler   scaler

	maxSample fix15.Fix15
	lower     fix15.Fix15
	mags      []fix15.Fix15
}

func newBars(canvas Canvas, cfg Config, trailShift uint) *Bars {
	if cfg.SkipBins <= 0 {
		cfg.SkipBins = DefaultSkipBins
	}
	return &Bars{
		canvas:     canvas,
		cfg:        cfg,
		trailShift: trailShift,
	}
}

// Init implements Effect.
func (b *Bars) Init(sampleRate float64) {
	w, h := b.canvas.Width(), b.canvas.Height()

	maxSample := 4000 + 130*float64(h)
	lower := 270 - 2*h

	b.analyzer = spectrum.New(sampleRate, spectrum.WithWindow(b.cfg.Window))
	b.loudness = spectrum.LoudnessCompensation(sampleRate, w, b.cfg.SkipBins, float64(h)*loudnessScalePerRow)
	b.history = NewHistory(w)
	b.scaler = newScaler(b.cfg.Scale, maxSample, lower, h)
	b.maxSample = fix15.FromFloat(maxSample)
	b.lower = fix15.FromInt(lower)
	b.mags = make([]fix15.Fix15, w)
}

// Analyzer returns the analyzer feeding the bars.
func (b *Bars) Analyzer() *spectrum.Analyzer {
	return b.analyzer
}

// Update implements Effect.
func (b *Bars) Update(samples []int16) {
	b.analyzer.Push(samples)
	b.analyzer.Update()

	for i := range b.mags {
		m := b.analyzer.GetScaledAsFix15(i+b.cfg.SkipBins, b.loudness[i])
		b.mags[i] = min(b.maxSample, m)
	}

	b.Render(b.mags)
}

// Render draws one frame from per-column magnitudes and advances the peak
// history.
func (b *Bars) Render(mags []fix15.Fix15) {
	h := b.canvas.Height()

	for col, sample := range mags {
		maxy := b.history.Begin(col)
		exhausted := false

		for y := 0; y < h; y++ {
			var c RGB
			switch {
			case sample > b.lower:
				c = b.palette.Main(col, y)
				sample = b.scaler.reduce(sample, y)
			case sample > 0:
				c = b.palette.Main(col, y).Min(sample.Int())
				b.history.Record(col, y)
				sample = 0
				exhausted = true
				maxy = max(maxy, y)
			case y < maxy:
				c = b.palette.Main(col, y).Shr(b.trailShift)
			}
			b.canvas.SetPixel(col, h-1-y, c.R, c.G, c.B)
		}

		// A bar that lit every row peaks at the top.
		if !exhausted && sample > 0 {
			b.history.Record(col, h-1)
			maxy = h - 1
		}

		if maxy > 0 {
			c := b.palette.Peak(col)
			b.canvas.SetPixel(col, h-1-maxy, c.R, c.G, c.B)
		}
	}

	b.history.Advance()
}
