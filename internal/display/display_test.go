package display

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"libdb.so/matrixglow/internal/matrix"
	"libdb.so/matrixglow/internal/pipeline"
)

type discardSink struct{ closed bool }

func (s *discardSink) Shift(matrix.Record) error { return nil }
func (s *discardSink) Close() error              { s.closed = true; return nil }

func newTestDisplay(t *testing.T, opts ...Option) (*Display, *discardSink) {
	t.Helper()

	sink := &discardSink{}
	d := New(pipeline.NewEmulated(sink), opts...)
	require.NoError(t, d.Init())
	return d, sink
}

func TestDisplayRedPixel(t *testing.T) {
	d, sink := newTestDisplay(t)

	d.Clear()
	d.SetPixel(0, 0, 255, 0, 0)

	r, g, b := matrix.Intensity(d.Bitstream(), Width-1, Height-1)
	assert.Equal(t, uint32(matrix.MaxIntensity), r)
	assert.Zero(t, g)
	assert.Zero(t, b)
	assert.Equal(t, RGBColor{255, 0, 0}, d.Pixel(0, 0))

	require.NoError(t, d.Close())
	assert.True(t, sink.closed)
}

func TestDisplayBrightnessReencodes(t *testing.T) {
	d, _ := newTestDisplay(t)
	defer d.Close()

	d.SetPixel(0, 0, 255, 0, 0)
	d.SetBrightness(0.5)

	gamma := matrix.NewGammaTable(matrix.DefaultGamma)
	r, _, _ := matrix.Intensity(d.Bitstream(), Width-1, Height-1)
	assert.Equal(t, uint32(gamma[127]), r)
	assert.Equal(t, 0.5, d.Brightness())

	d.AdjustBrightness(0.5)
	r, _, _ = matrix.Intensity(d.Bitstream(), Width-1, Height-1)
	assert.Equal(t, uint32(matrix.MaxIntensity), r)
}

func TestDisplayClipsPixels(t *testing.T) {
	d, _ := newTestDisplay(t)
	defer d.Close()

	before := bytes.Clone(d.Bitstream())
	d.SetPixel(-1, 0, 255, 255, 255)
	d.SetPixel(Width, Height, 255, 255, 255)
	assert.Equal(t, before, d.Bitstream())
	assert.Equal(t, RGBColor{}, d.Pixel(-1, 0))
}

func TestDisplayDoubleBuffer(t *testing.T) {
	d, _ := newTestDisplay(t, WithDoubleBuffer())
	defer d.Close()

	front := d.pipe.Bitstream()
	d.SetPixel(5, 5, 0, 0, 255)

	_, _, b := matrix.Intensity(front, Width-1-5, Height-1-5)
	assert.Zero(t, b, "front buffer must not change before Update")

	require.NoError(t, d.Update())

	shown := d.pipe.Bitstream()
	_, _, b = matrix.Intensity(shown, Width-1-5, Height-1-5)
	assert.Equal(t, uint32(matrix.MaxIntensity), b)

	// Both buffers hold the same frame after the swap.
	assert.Equal(t, shown, d.Bitstream())
	assert.NotSame(t, &shown[0], &d.Bitstream()[0])
}

func TestDisplayBeforeInit(t *testing.T) {
	sink := &discardSink{}
	d := New(pipeline.NewEmulated(sink))

	assert.NotPanics(t, func() {
		d.SetPixel(1, 1, 255, 255, 255)
		d.Clear()
		d.SetBrightness(1.5)
	})
	assert.Equal(t, 1.0, d.Brightness())
	assert.Nil(t, d.Bitstream())
	assert.Error(t, d.Update())
	assert.NoError(t, d.Close())

	d.SetBrightness(0.5)
	require.NoError(t, d.Init())
	t.Cleanup(func() { d.Close() })
	assert.Equal(t, 0.5, d.Brightness())
	assert.Equal(t, RGBColor{}, d.Pixel(1, 1))
}

func TestGrid(t *testing.T) {
	g := NewGrid(3, 2)
	g.Set(2, 1, RGBColor{1, 2, 3})

	assert.Equal(t, RGBColor{1, 2, 3}, g.At(2, 1))
	assert.Equal(t, RGBColor{}, g.At(0, 1))
	assert.True(t, g.Contains(2, 1))
	assert.False(t, g.Contains(3, 0))
	assert.Equal(t, "#010203", g.At(2, 1).String())

	g.Fill(RGBColor{9, 9, 9})
	g.Each(func(x, y int, c RGBColor) {
		assert.Equal(t, RGBColor{9, 9, 9}, c)
	})
}
