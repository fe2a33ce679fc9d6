package effect

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"libdb.so/matrixglow/internal/fix15"
	"libdb.so/matrixglow/internal/spectrum"
)

type testCanvas struct {
	w, h int
	pix  [][]RGB
}

func newTestCanvas(w, h int) *testCanvas {
	c := &testCanvas{w: w, h: h}
	c.Clear()
	return c
}

func (c *testCanvas) Width() int  { return c.w }
func (c *testCanvas) Height() int { return c.h }

func (c *testCanvas) SetPixel(x, y int, r, g, b uint8) {
	if x < 0 || x >= c.w || y < 0 || y >= c.h {
		return
	}
	c.pix[y][x] = RGB{r, g, b}
}

func (c *testCanvas) Clear() {
	c.pix = make([][]RGB, c.h)
	for y := range c.pix {
		c.pix[y] = make([]RGB, c.w)
	}
}

func (c *testCanvas) lit() int {
	var n int
	for _, row := range c.pix {
		for _, p := range row {
			if p != (RGB{}) {
				n++
			}
		}
	}
	return n
}

const (
	testWidth  = 53
	testHeight = 11
)

func TestNew(t *testing.T) {
	canvas := newTestCanvas(testWidth, testHeight)

	for _, kind := range Kinds() {
		e, err := New(kind, canvas, Config{})
		require.NoError(t, err, kind)
		assert.NotNil(t, e)
	}

	_, err := New("strobe", canvas, Config{})
	assert.Error(t, err)

	assert.Equal(t, []Kind{ClassicKind, CoverArtKind, RainbowKind}, Kinds())
}

func TestScalersReachLowerThreshold(t *testing.T) {
	maxSample := 4000 + 130.0*testHeight
	lower := 270 - 2*testHeight

	for _, mode := range []ScaleMode{LogScale, SqrtScale, LinearScale} {
		t.Run(string(mode), func(t *testing.T) {
			s := newScaler(mode, maxSample, lower, testHeight)

			sample := fix15.FromFloat(maxSample)
			for y := 0; y < testHeight-1; y++ {
				next := s.reduce(sample, y)
				assert.Less(t, next, sample, "row %d", y)
				sample = next
			}

			assert.InEpsilon(t, float64(lower), sample.Float(), 0.02)
		})
	}
}

func TestScaleModeValidate(t *testing.T) {
	assert.NoError(t, ScaleMode("").Validate())
	assert.NoError(t, SqrtScale.Validate())
	assert.Error(t, ScaleMode("cubic").Validate())
}

func TestPeakHold(t *testing.T) {
	canvas := newTestCanvas(testWidth, testHeight)
	c := NewClassic(canvas, Config{})
	c.Init(88200)

	loud := make([]fix15.Fix15, testWidth)
	silent := make([]fix15.Fix15, testWidth)
	for i := range loud {
		loud[i] = c.maxSample
	}

	c.Render(loud)
	for y := 0; y < testHeight; y++ {
		assert.NotEqual(t, RGB{}, canvas.pix[y][0], "row %d lit", y)
	}
	assert.Equal(t, c.palette.Peak(0), canvas.pix[0][0])

	peak := c.palette.Peak(0)
	for tick := 1; tick < HistoryLen; tick++ {
		c.Render(silent)
		assert.Equal(t, peak, canvas.pix[0][0], "peak held at tick %d", tick)
		// The trail below the peak is dimmed.
		assert.Equal(t, c.palette.Main(0, 0).Shr(2), canvas.pix[testHeight-1][0])
	}

	c.Render(silent)
	assert.Zero(t, canvas.lit(), "peak must be gone after %d ticks", HistoryLen)
}

func TestQuietBarLightsOneDimRow(t *testing.T) {
	canvas := newTestCanvas(testWidth, testHeight)
	r := NewRainbow(canvas, Config{})
	r.Init(88200)

	mags := make([]fix15.Fix15, testWidth)
	mags[7] = fix15.FromInt(40)
	r.Render(mags)

	assert.Equal(t, r.palette.Main(7, 0).Min(40), canvas.pix[testHeight-1][7])
	assert.Equal(t, 1, canvas.lit())
}

func TestBarsFollowTone(t *testing.T) {
	const bin = 20

	canvas := newTestCanvas(testWidth, testHeight)
	c := NewClassic(canvas, Config{Scale: LinearScale})
	c.Init(44100)

	samples := make([]int16, spectrum.Size)
	for i := range samples {
		samples[i] = int16(20000 * math.Sin(2*math.Pi*bin*float64(i)/spectrum.Size))
	}
	c.Update(samples)

	col := bin - DefaultSkipBins
	assert.NotEqual(t, RGB{}, canvas.pix[0][col], "tone column reaches the top")
	assert.Equal(t, RGB{}, canvas.pix[0][col+20], "far column stays low")
	assert.Equal(t, bin, c.Analyzer().MaxBin())
}

func TestPalettes(t *testing.T) {
	hp := newHeightPalette(testHeight)
	assert.Equal(t, uint8(255), hp[0].G)
	assert.Less(t, hp[0].R, uint8(10))
	assert.Equal(t, uint8(255), hp[testHeight-1].R)
	assert.Less(t, hp[testHeight-1].G, uint8(128))
	assert.Equal(t, hp[0], hp[3], "rows share a color in bands of four")

	cp := newColumnPalette(testWidth)
	assert.Equal(t, RGB{178, 0, 0}, hsv(0, 1, 0.7), "channels truncate")
	assert.Equal(t, RGB{178, 0, 0}, cp.Main(0, 5))
	assert.Equal(t, uint8(255), cp.Peak(0).R)
}

func TestCoverArt(t *testing.T) {
	canvas := newTestCanvas(testWidth, testHeight)
	c := NewCoverArt(canvas)
	c.Init(44100)

	cover := image.NewRGBA(image.Rect(0, 0, 200, 200))
	for y := 0; y < 200; y++ {
		for x := 0; x < 200; x++ {
			cover.Set(x, y, color.RGBA{G: 255, A: 255})
		}
	}

	c.SetCover(cover)
	c.Update(nil)

	green := RGB{0, 252, 0}
	assert.Equal(t, RGB{}, canvas.pix[2][2])
	assert.Equal(t, green, canvas.pix[3][3])
	assert.Equal(t, green, canvas.pix[10][27])
	assert.Equal(t, RGB{}, canvas.pix[10][28])

	// Nothing is redrawn until the cover changes.
	canvas.Clear()
	c.Update(nil)
	assert.Zero(t, canvas.lit())

	c.SetCover(nil)
	c.Update(nil)
	assert.NotZero(t, canvas.lit(), "caption drawn without a cover")
}

func TestRGB565(t *testing.T) {
	r, g, b := FromRGB565(ToRGB565(0xFF, 0x80, 0x0F))
	assert.Equal(t, uint8(0xF8), r)
	assert.Equal(t, uint8(0x80), g)
	assert.Equal(t, uint8(0x08), b)
}
