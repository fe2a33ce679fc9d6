// Package spectrum implements a fixed-point spectral analyzer. It keeps a
// sliding window of the most recent audio samples and turns it into per-bin
// magnitudes with an in-place radix-2 FFT over 16.15 fixed-point numbers.
package spectrum

import (
	"math"
	"math/bits"

	"libdb.so/matrixglow/internal/fix15"
)

// Size is the number of samples in the analysis window. It must be a power of
// two no larger than 1<<16.
const Size = 1024

// Stride is the number of new samples pushed per audio tick.
const Stride = Size / 2

// Bins is the number of magnitude bins produced per update.
const Bins = Size / 2

// minPeakBin is the lowest bin considered when tracking the dominant
// frequency. Lower bins are dominated by DC and window leakage.
const minPeakBin = 5

var log2Size = bits.TrailingZeros(Size)

// magnitudeAlpha weights the smaller component in the magnitude
// approximation max(|re|,|im|) + 0.4·min(|re|,|im|).
var magnitudeAlpha = fix15.FromFloat(0.4)

// Analyzer is a fixed-point spectral analyzer over a window of Size samples.
// It is not safe for concurrent use.
type Analyzer struct {
	sampleRate float64

	samples [Size]int16
	sine    [Size]fix15.Fix15
	window  []fix15.Fix15

	fr [Size]fix15.Fix15
	fi [Size]fix15.Fix15

	maxBin int
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithWindow sets the window function. The default is HannWindow.
func WithWindow(kind WindowKind) Option {
	return func(a *Analyzer) {
		a.window = windowTable(kind, Size)
	}
}

// New creates a new analyzer for a sample stream of the given rate. For
// interleaved multi-channel audio fed as-is, the rate is the per-channel rate
// multiplied by the channel count.
func New(sampleRate float64, opts ...Option) *Analyzer {
	a := &Analyzer{sampleRate: sampleRate}
	for i := range a.sine {
		a.sine[i] = fix15.FromFloat(0.5 * math.Sin(2*math.Pi*float64(i)/Size))
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.window == nil {
		a.window = windowTable(HannWindow, Size)
	}
	return a
}

// SampleRate returns the rate the analyzer was created with.
func (a *Analyzer) SampleRate() float64 {
	return a.sampleRate
}

// Push shifts the sample window down by len(samples) and appends samples at
// the top. Only the last Size samples are used if more are given.
func (a *Analyzer) Push(samples []int16) {
	if len(samples) >= Size {
		copy(a.samples[:], samples[len(samples)-Size:])
		return
	}
	copy(a.samples[:], a.samples[len(samples):])
	copy(a.samples[Size-len(samples):], samples)
}

// Samples returns the current sample window. The returned slice must not be
// modified.
func (a *Analyzer) Samples() []int16 {
	return a.samples[:]
}

// Update windows the current samples, runs the FFT and recomputes the
// magnitude of every bin below Size/2.
func (a *Analyzer) Update() {
	for i, s := range a.samples {
		a.fr[i] = fix15.Mul(fix15.FromInt(int(s)), a.window[i])
		a.fi[i] = 0
	}

	FFT(a.fr[:], a.fi[:], a.sine[:])

	var peak fix15.Fix15
	for i := 0; i < Bins; i++ {
		re := a.fr[i].Abs()
		im := a.fi[i].Abs()
		hi, lo := re, im
		if lo > hi {
			hi, lo = lo, hi
		}
		a.fr[i] = hi + fix15.Mul(lo, magnitudeAlpha)

		if i >= minPeakBin && a.fr[i] > peak {
			peak = a.fr[i]
			a.maxBin = i
		}
	}
}

// Magnitude returns the magnitude of bin i as computed by the last Update.
func (a *Analyzer) Magnitude(i int) fix15.Fix15 {
	return a.fr[i]
}

// Magnitudes returns all bin magnitudes. The returned slice is overwritten by
// the next Update.
func (a *Analyzer) Magnitudes() []fix15.Fix15 {
	return a.fr[:Bins]
}

// GetScaled returns the integer part of bin i's magnitude times scale,
// clamped to the integer range of a Fix15.
func (a *Analyzer) GetScaled(i, scale int) int {
	p := int64(a.fr[i]) * int64(scale)
	switch {
	case p > int64(fix15.Max):
		return fix15.Max.Int()
	case p < int64(fix15.Min):
		return fix15.Min.Int()
	default:
		return fix15.Fix15(p).Int()
	}
}

// GetScaledFix15 returns the integer part of bin i's magnitude times a
// fixed-point scale.
func (a *Analyzer) GetScaledFix15(i int, scale fix15.Fix15) int {
	return fix15.MulSat(a.fr[i], scale).Int()
}

// GetScaledAsFix15 returns bin i's magnitude times a fixed-point scale. The
// result saturates instead of wrapping.
func (a *Analyzer) GetScaledAsFix15(i int, scale fix15.Fix15) fix15.Fix15 {
	return fix15.MulSat(a.fr[i], scale)
}

// MaxBin returns the bin with the largest magnitude at or above bin 5 from the
// last Update.
func (a *Analyzer) MaxBin() int {
	return a.maxBin
}

// MaxFrequency returns the center frequency of MaxBin in Hz.
func (a *Analyzer) MaxFrequency() float64 {
	return float64(a.maxBin) * (a.sampleRate / Size)
}

// BinFrequency returns the frequency of bin i in Hz.
func (a *Analyzer) BinFrequency(i int) float64 {
	return float64(i) * a.sampleRate / Size
}
