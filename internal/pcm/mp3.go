package pcm

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/hajimehoshi/go-mp3"
	"github.com/pkg/errors"
)

// MP3 decodes an MP3 file. The decoder always produces 16-bit stereo.
type MP3 struct {
	file    *os.File
	decoder *mp3.Decoder
	buf     []byte
}

// OpenMP3 opens an MP3 file.
func OpenMP3(path string) (*MP3, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open MP3 file")
	}

	d, err := mp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "failed to create MP3 decoder")
	}

	return &MP3{file: f, decoder: d}, nil
}

// Read implements Source.
func (m *MP3) Read(dst []int16) (int, error) {
	size := len(dst) * 2
	if cap(m.buf) < size {
		m.buf = make([]byte, size)
	}
	buf := m.buf[:size]

	n, err := io.ReadFull(m.decoder, buf)
	if n == 0 {
		if err == nil || errors.Is(err, io.ErrUnexpectedEOF) {
			err = io.EOF
		}
		return 0, err
	}
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return 0, errors.Wrap(err, "failed to read MP3 data")
	}

	samples := n / 2
	for i := 0; i < samples; i++ {
		dst[i] = int16(binary.LittleEndian.Uint16(buf[i*2:]))
	}

	return samples, nil
}

// SampleRate implements Source.
func (m *MP3) SampleRate() int { return m.decoder.SampleRate() }

// Channels implements Source.
func (m *MP3) Channels() int { return 2 }

// Close implements Source.
func (m *MP3) Close() error {
	return m.file.Close()
}
