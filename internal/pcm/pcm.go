// Package pcm provides sources of interleaved 16-bit audio samples.
package pcm

import (
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Source is a stream of interleaved int16 samples.
type Source interface {
	// Read reads up to len(dst) interleaved samples into dst. It returns
	// io.EOF once the stream is exhausted.
	Read(dst []int16) (int, error)
	// SampleRate returns the number of frames per second. A frame holds one
	// sample per channel.
	SampleRate() int
	// Channels returns the number of interleaved channels.
	Channels() int
	// Close releases the source.
	Close() error
}

// ErrUnknownFormat is returned by OpenFile for files it cannot decode.
var ErrUnknownFormat = errors.New("unknown audio format")

// OpenFile opens an audio file, picking the decoder by its extension.
func OpenFile(path string) (Source, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav", ".wave":
		return OpenWAV(path)
	case ".mp3":
		return OpenMP3(path)
	case ".flac":
		return OpenFLAC(path)
	default:
		return nil, errors.Wrapf(ErrUnknownFormat, "%q", ext)
	}
}

// Looping restarts a source from the beginning whenever it ends.
type Looping struct {
	Source
	open func() (Source, error)
}

// Loop opens a source with open and reopens it every time it runs out.
func Loop(open func() (Source, error)) (*Looping, error) {
	src, err := open()
	if err != nil {
		return nil, err
	}
	return &Looping{Source: src, open: open}, nil
}

// Read implements Source.
func (l *Looping) Read(dst []int16) (int, error) {
	n, err := l.Source.Read(dst)
	if n > 0 || !errors.Is(err, io.EOF) {
		return n, err
	}

	if err := l.Source.Close(); err != nil {
		return 0, errors.Wrap(err, "failed to close finished source")
	}

	src, err := l.open()
	if err != nil {
		return 0, errors.Wrap(err, "failed to reopen source")
	}
	l.Source = src

	return l.Source.Read(dst)
}

// ReadFull fills dst completely from src. If the stream ends part way, the
// rest of dst is zeroed and the short count is returned without error. io.EOF
// is only returned when nothing was read.
func ReadFull(src Source, dst []int16) (int, error) {
	var n int
	for n < len(dst) {
		m, err := src.Read(dst[n:])
		n += m
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return n, err
			}
			if n == 0 {
				return 0, io.EOF
			}
			clear(dst[n:])
			return n, nil
		}
	}
	return n, nil
}

// Period returns how long it takes src to play stride interleaved samples.
func Period(src Source, stride int) time.Duration {
	rate := src.SampleRate() * src.Channels()
	if rate <= 0 {
		return 0
	}
	return time.Duration(stride) * time.Second / time.Duration(rate)
}

// InterleavedRate returns the rate at which interleaved samples arrive, which
// is the rate an analyzer fed the raw stream sees.
func InterleavedRate(src Source) float64 {
	return float64(src.SampleRate() * src.Channels())
}

// pending buffers decoded samples that did not fit in the caller's slice.
type pending struct {
	buf []int16
}

func (p *pending) drain(dst []int16) int {
	n := copy(dst, p.buf)
	p.buf = p.buf[n:]
	return n
}

func (p *pending) empty() bool {
	return len(p.buf) == 0
}

func (p *pending) reset() {
	p.buf = p.buf[:0]
}

func clampInt16(v int) int16 {
	switch {
	case v > 32767:
		return 32767
	case v < -32768:
		return -32768
	default:
		return int16(v)
	}
}

// toInt16 rescales a signed sample of the given bit depth to 16 bits.
func toInt16(v int, bitDepth int) int16 {
	switch {
	case bitDepth > 16:
		return clampInt16(v >> (bitDepth - 16))
	case bitDepth < 16:
		return clampInt16(v << (16 - bitDepth))
	default:
		return clampInt16(v)
	}
}
