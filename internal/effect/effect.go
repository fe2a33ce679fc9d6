// Package effect renders audio into pixels. Every effect consumes one buffer
// of samples per tick and draws a full frame onto a Canvas.
package effect

import (
	"fmt"
	"sort"

	"libdb.so/matrixglow/internal/spectrum"
)

// Canvas is the surface effects draw onto.
type Canvas interface {
	Width() int
	Height() int
	// SetPixel sets the color of a pixel. Out-of-range coordinates are
	// ignored.
	SetPixel(x, y int, r, g, b uint8)
	// Clear sets every pixel to black.
	Clear()
}

// Effect turns audio into frames.
type Effect interface {
	// Init prepares the effect for a sample stream of the given rate. It is
	// called once before the first Update.
	Init(sampleRate float64)
	// Update consumes the newest samples and draws a frame.
	Update(samples []int16)
}

// Kind is the kind of effect.
type Kind string

const (
	// ClassicKind draws spectrum bars colored by height, green at the
	// bottom to red at the top.
	ClassicKind Kind = "classic"
	// RainbowKind draws spectrum bars colored by frequency.
	RainbowKind Kind = "rainbow"
	// CoverArtKind draws a still image and ignores the audio.
	CoverArtKind Kind = "cover-art"
)

// Config configures an effect.
type Config struct {
	// Scale is how a bar's magnitude is spread over the rows.
	Scale ScaleMode
	// Window is the analysis window function.
	Window spectrum.WindowKind
	// SkipBins is the number of lowest FFT bins left out. Column i shows
	// bin i+SkipBins.
	SkipBins int
}

// DefaultSkipBins skips the DC bin.
const DefaultSkipBins = 1

var constructors = map[Kind]func(Canvas, Config) Effect{
	ClassicKind:  func(c Canvas, cfg Config) Effect { return NewClassic(c, cfg) },
	RainbowKind:  func(c Canvas, cfg Config) Effect { return NewRainbow(c, cfg) },
	CoverArtKind: func(c Canvas, cfg Config) Effect { return NewCoverArt(c) },
}

// New creates a new effect of the given kind.
func New(kind Kind, canvas Canvas, cfg Config) (Effect, error) {
	newEffect, ok := constructors[kind]
	if !ok {
		return nil, fmt.Errorf("unknown effect %q", kind)
	}
	return newEffect(canvas, cfg), nil
}

// Kinds returns all known effect kinds in sorted order.
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(constructors))
	for k := range constructors {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// RGB is an 8-bit color.
type RGB struct {
	R, G, B uint8
}

// Shr dims the color by shifting every channel right by n.
func (c RGB) Shr(n uint) RGB {
	return RGB{c.R >> n, c.G >> n, c.B >> n}
}

// Min caps every channel at v.
func (c RGB) Min(v int) RGB {
	return RGB{minU8(c.R, v), minU8(c.G, v), minU8(c.B, v)}
}

func minU8(c uint8, v int) uint8 {
	if v < int(c) {
		if v < 0 {
			return 0
		}
		return uint8(v)
	}
	return c
}
