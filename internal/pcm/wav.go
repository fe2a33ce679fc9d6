package pcm

import (
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/pkg/errors"
)

// WAV decodes a PCM WAV file.
type WAV struct {
	file     *os.File
	decoder  *wav.Decoder
	intBuf   *audio.IntBuffer
	bitDepth int
	rate     int
	channels int
}

// OpenWAV opens a WAV file.
func OpenWAV(path string) (*WAV, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open WAV file")
	}

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		f.Close()
		return nil, errors.Errorf("%s: invalid WAV file", path)
	}

	if err := d.FwdToPCM(); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "failed to seek to PCM data")
	}

	return &WAV{
		file:     f,
		decoder:  d,
		bitDepth: int(d.BitDepth),
		rate:     int(d.SampleRate),
		channels: int(d.NumChans),
		intBuf: &audio.IntBuffer{
			Format: &audio.Format{
				NumChannels: int(d.NumChans),
				SampleRate:  int(d.SampleRate),
			},
		},
	}, nil
}

// Read implements Source.
func (w *WAV) Read(dst []int16) (int, error) {
	if cap(w.intBuf.Data) < len(dst) {
		w.intBuf.Data = make([]int, len(dst))
	}
	w.intBuf.Data = w.intBuf.Data[:len(dst)]

	n, err := w.decoder.PCMBuffer(w.intBuf)
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, errors.Wrap(err, "failed to read PCM buffer")
	}
	if n == 0 {
		return 0, io.EOF
	}

	for i, v := range w.intBuf.Data[:n] {
		if w.bitDepth == 8 {
			// 8-bit WAV samples are unsigned.
			v -= 128
		}
		dst[i] = toInt16(v, w.bitDepth)
	}

	return n, nil
}

// SampleRate implements Source.
func (w *WAV) SampleRate() int { return w.rate }

// Channels implements Source.
func (w *WAV) Channels() int { return w.channels }

// Close implements Source.
func (w *WAV) Close() error {
	return w.file.Close()
}
