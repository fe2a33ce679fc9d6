package pcm

import (
	"io"
	"os"

	"github.com/mewkiz/flac"
	"github.com/pkg/errors"
)

// FLAC decodes a FLAC file frame by frame.
type FLAC struct {
	file    *os.File
	stream  *flac.Stream
	pending pending
}

// OpenFLAC opens a FLAC file.
func OpenFLAC(path string) (*FLAC, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open FLAC file")
	}

	stream, err := flac.New(f)
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "failed to create FLAC decoder")
	}

	return &FLAC{file: f, stream: stream}, nil
}

// Read implements Source.
func (f *FLAC) Read(dst []int16) (int, error) {
	var n int
	for n < len(dst) {
		if f.pending.empty() {
			if err := f.decodeFrame(); err != nil {
				if errors.Is(err, io.EOF) && n > 0 {
					return n, nil
				}
				return n, err
			}
		}
		n += f.pending.drain(dst[n:])
	}
	return n, nil
}

func (f *FLAC) decodeFrame() error {
	frame, err := f.stream.ParseNext()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return io.EOF
		}
		return errors.Wrap(err, "failed to parse FLAC frame")
	}

	if len(frame.Subframes) == 0 {
		return nil
	}

	bits := int(frame.BitsPerSample)
	frames := len(frame.Subframes[0].Samples)

	f.pending.reset()
	for i := 0; i < frames; i++ {
		for _, sub := range frame.Subframes {
			f.pending.buf = append(f.pending.buf, toInt16(int(sub.Samples[i]), bits))
		}
	}

	return nil
}

// SampleRate implements Source.
func (f *FLAC) SampleRate() int { return int(f.stream.Info.SampleRate) }

// Channels implements Source.
func (f *FLAC) Channels() int { return int(f.stream.Info.NChannels) }

// Close implements Source.
func (f *FLAC) Close() error {
	f.stream.Close()
	return f.file.Close()
}
