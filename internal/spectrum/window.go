package spectrum

import (
	"fmt"

	"github.com/mjibson/go-dsp/window"
	catnipwindow "github.com/noriah/catnip/dsp/window"
	"libdb.so/matrixglow/internal/fix15"
)

// WindowKind is the window function applied to the samples before the FFT.
type WindowKind string

const (
	// HannWindow is the periodic Hann window 0.5·(1 − cos(2πi/N)).
	HannWindow WindowKind = "hann"
	// LanczosWindow is the Lanczos (sinc) window.
	LanczosWindow WindowKind = "lanczos"
	// RectangularWindow applies no windowing.
	RectangularWindow WindowKind = "rectangular"
)

// Validate returns an error if the window kind is unknown. An empty kind is
// valid and means HannWindow.
func (k WindowKind) Validate() error {
	switch k {
	case "", HannWindow, LanczosWindow, RectangularWindow:
		return nil
	default:
		return fmt.Errorf("unknown window %q", k)
	}
}

// windowTable builds a fixed-point window of n taps.
func windowTable(kind WindowKind, n int) []fix15.Fix15 {
	var coeffs []float64

	switch kind {
	case LanczosWindow:
		coeffs = make([]float64, n)
		for i := range coeffs {
			coeffs[i] = 1
		}
		catnipwindow.Lanczos()(coeffs)
	case RectangularWindow:
		coeffs = make([]float64, n)
		for i := range coeffs {
			coeffs[i] = 1
		}
	default:
		// go-dsp builds the symmetric form over L points. One extra point
		// dropped from the end yields the periodic form over n.
		coeffs = window.Hann(n + 1)[:n]
	}

	table := make([]fix15.Fix15, n)
	for i, c := range coeffs {
		table[i] = fix15.FromFloat(c)
	}
	return table
}
