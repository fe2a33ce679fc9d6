package display

import (
	"fmt"
	"image/color"
)

// RGBColor is an 8-bit RGB color.
type RGBColor [3]uint8

// RGBA implements color.Color.
func (c RGBColor) RGBA() (r, g, b, a uint32) {
	return color.RGBA{R: c[0], G: c[1], B: c[2], A: 0xFF}.RGBA()
}

// String formats the color as #rrggbb.
func (c RGBColor) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2])
}

// Grid describes the pixels of the panel. It is a preallocated row-major
// slice of RGBColor.
type Grid struct {
	width  int
	height int
	pix    []RGBColor
}

// NewGrid creates a new grid. Colors are initialized to black (off).
func NewGrid(width, height int) Grid {
	return Grid{
		width:  width,
		height: height,
		pix:    make([]RGBColor, width*height),
	}
}

// Contains returns true if (x, y) is inside the grid.
func (g Grid) Contains(x, y int) bool {
	return x >= 0 && x < g.width && y >= 0 && y < g.height
}

// At returns the color at (x, y). It panics if (x, y) is outside the grid.
func (g Grid) At(x, y int) RGBColor {
	return g.pix[y*g.width+x]
}

// Set sets the color at (x, y). It panics if (x, y) is outside the grid.
func (g Grid) Set(x, y int, c RGBColor) {
	g.pix[y*g.width+x] = c
}

// Fill sets every pixel to c.
func (g Grid) Fill(c RGBColor) {
	for i := range g.pix {
		g.pix[i] = c
	}
}

// Each calls fn for every pixel in row-major order.
func (g Grid) Each(fn func(x, y int, c RGBColor)) {
	for i, c := range g.pix {
		fn(i%g.width, i/g.width, c)
	}
}
