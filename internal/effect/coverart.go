package effect

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// CoverArt draws a still image, usually the album cover of the playing
// track, and otherwise ignores the audio. It redraws only after SetCover.
type CoverArt struct {
	canvas Canvas

	// Offset is where the cover's top-left corner lands on the canvas.
	Offset image.Point
	// Shrink is the factor the cover is scaled down by.
	Shrink int
	// Caption is drawn when there is no cover.
	Caption string

	cover  image.Image
	render bool
}

// NewCoverArt creates a cover art effect. A 200x200 cover is scaled to
// 25x25 and placed 3 pixels in from the top-left corner.
func NewCoverArt(canvas Canvas) *CoverArt {
	return &CoverArt{
		canvas:  canvas,
		Offset:  image.Pt(3, 3),
		Shrink:  8,
		Caption: "Info",
	}
}

// Init implements Effect.
func (c *CoverArt) Init(sampleRate float64) {
	c.render = true
}

// SetCover sets the cover to draw on the next Update. A nil cover draws the
// caption instead.
func (c *CoverArt) SetCover(img image.Image) {
	c.cover = img
	c.render = true
}

// Update implements Effect.
func (c *CoverArt) Update(samples []int16) {
	if !c.render {
		return
	}
	c.render = false

	c.canvas.Clear()
	if c.cover != nil {
		c.drawCover()
	} else {
		c.drawCaption()
	}
}

func (c *CoverArt) drawCover() {
	src := c.cover.Bounds()
	shrink := max(c.Shrink, 1)

	dst := image.NewRGBA(image.Rect(0, 0, max(src.Dx()/shrink, 1), max(src.Dy()/shrink, 1)))
	draw.BiLinear.Scale(dst, dst.Bounds(), c.cover, src, draw.Src, nil)

	b := dst.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			px := dst.RGBAAt(x, y)
			r, g, bl := FromRGB565(ToRGB565(px.R, px.G, px.B))
			c.canvas.SetPixel(x+c.Offset.X, y+c.Offset.Y, r, g, bl)
		}
	}
}

func (c *CoverArt) drawCaption() {
	w, h := c.canvas.Width(), c.canvas.Height()
	img := image.NewGray(image.Rect(0, 0, w, h))

	face := basicfont.Face7x13
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.White),
		Face: face,
		// Sit the baseline so the cap height fits the canvas.
		Dot: fixed.P(0, min(h-1, face.Ascent)),
	}
	d.DrawString(c.Caption)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if v := img.GrayAt(x, y).Y; v > 0 {
				c.canvas.SetPixel(x, y, v, v, v)
			}
		}
	}
}

// ToRGB565 packs an 8-bit color into 16 bits.
func ToRGB565(r, g, b uint8) uint16 {
	return uint16(r&0xF8)<<8 | uint16(g&0xFC)<<3 | uint16(b)>>3
}

// FromRGB565 unpacks a 16-bit color. The dropped low bits are zero.
func FromRGB565(c uint16) (r, g, b uint8) {
	r = uint8((c & 0xF800) >> 8)
	g = uint8((c & 0x07E0) >> 3)
	b = uint8((c & 0x001F) << 3)
	return
}
