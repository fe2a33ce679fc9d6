// Package previewsink renders the streamed bitstream to a terminal. It stands
// in for the panel during development.
package previewsink

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"libdb.so/matrixglow/internal/matrix"
	"libdb.so/matrixglow/internal/pipeline"
)

// DefaultFrameRate is the default preview refresh rate.
const DefaultFrameRate = 30

// Sink is a pipeline.Sink that collects each pass and draws it.
type Sink struct {
	w        io.Writer
	interval time.Duration
	gamma    float64

	mu   sync.Mutex
	pass []byte
	last time.Time
	sb   strings.Builder
}

var (
	_ pipeline.Sink      = (*Sink)(nil)
	_ pipeline.PassEnder = (*Sink)(nil)
)

// New creates a preview sink drawing at most frameRate frames per second to
// w. Passes arriving faster than that are held back, which paces the
// emulated pipeline.
func New(w io.Writer, frameRate int, gamma float64) *Sink {
	if frameRate <= 0 {
		frameRate = DefaultFrameRate
	}
	if gamma <= 0 {
		gamma = matrix.DefaultGamma
	}
	s := &Sink{
		w:        w,
		interval: time.Second / time.Duration(frameRate),
		gamma:    gamma,
		pass:     make([]byte, matrix.BitstreamLength),
	}
	matrix.InitBitstream(s.pass)
	return s
}

// Shift implements pipeline.Sink.
func (s *Sink) Shift(r matrix.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copy(s.pass[r.Offset():][:matrix.FrameBytes], r)
	return nil
}

// EndPass implements pipeline.PassEnder.
func (s *Sink) EndPass() error {
	if wait := s.interval - time.Since(s.last); wait > 0 {
		time.Sleep(wait)
	}
	s.last = time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sb.Reset()
	s.sb.WriteString("\x1b[H")
	s.render(&s.sb)

	_, err := io.WriteString(s.w, s.sb.String())
	return err
}

// Frame returns the colors of the last collected pass in panel order, with
// the gamma curve undone.
func (s *Sink) Frame() [][]color.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()

	frame := make([][]color.RGBA, matrix.Height)
	for y := range frame {
		frame[y] = make([]color.RGBA, matrix.Width)
		for x := range frame[y] {
			frame[y][x] = s.pixel(x, y)
		}
	}
	return frame
}

func (s *Sink) pixel(x, y int) color.RGBA {
	// Undo the panel's 180 degree rotation.
	r, g, b := matrix.Intensity(s.pass, matrix.Width-1-x, matrix.Height-1-y)
	return color.RGBA{
		R: s.level(r),
		G: s.level(g),
		B: s.level(b),
		A: 0xFF,
	}
}

func (s *Sink) level(ticks uint32) uint8 {
	v := math.Pow(float64(ticks)/matrix.MaxIntensity, 1/s.gamma)
	return uint8(math.Round(v * 255))
}

func (s *Sink) render(sb *strings.Builder) {
	for y := 0; y < matrix.Height; y++ {
		for x := 0; x < matrix.Width; x++ {
			c := s.pixel(x, y)
			style := lipgloss.NewStyle().Foreground(lipgloss.Color(
				fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B),
			))
			sb.WriteString(style.Render("██"))
		}
		sb.WriteByte('\n')
	}
}

// Close implements pipeline.Sink. The writer belongs to the caller and is
// left open.
func (s *Sink) Close() error {
	return nil
}
