package pcm

import (
	"context"
	"fmt"
	"sync"

	"github.com/noriah/catnip/input"
	"github.com/pkg/errors"

	_ "github.com/noriah/catnip/input/all"
)

// ChannelStyle is which captured channels are delivered.
type ChannelStyle uint8

const (
	// MonoLeft delivers only the left channel.
	MonoLeft ChannelStyle = iota
	// MonoRight delivers only the right channel.
	MonoRight
	// Stereo delivers both channels interleaved, left first.
	Stereo
)

// NumChannels returns the number of channels delivered in the given style.
func (s ChannelStyle) NumChannels() int {
	switch s {
	case MonoLeft, MonoRight:
		return 1
	case Stereo:
		return 2
	default:
		panic("invalid channel style")
	}
}

func (s ChannelStyle) String() string {
	switch s {
	case MonoLeft:
		return "mono-left"
	case MonoRight:
		return "mono-right"
	case Stereo:
		return "stereo"
	default:
		return fmt.Sprintf("ChannelStyle(%d)", uint8(s))
	}
}

// UnmarshalText parses a channel style by name.
func (s *ChannelStyle) UnmarshalText(text []byte) error {
	for _, style := range []ChannelStyle{MonoLeft, MonoRight, Stereo} {
		if style.String() == string(text) {
			*s = style
			return nil
		}
	}
	return fmt.Errorf("unknown channel style %q", text)
}

// MarshalText implements encoding.TextMarshaler.
func (s ChannelStyle) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CaptureConfig configures a live capture.
type CaptureConfig struct {
	// Backend is the catnip input backend, such as "parec" or "ffmpeg-alsa".
	Backend string
	// Device is the backend's device name. Empty means the default device.
	Device string
	// SampleRate is the capture rate in frames per second.
	SampleRate int
	// Style selects the delivered channels.
	Style ChannelStyle
	// Frames is the number of frames captured per buffer.
	Frames int
}

// Capture records from a sound device through a catnip input backend.
type Capture struct {
	cfg     CaptureConfig
	backend input.Backend
	cancel  context.CancelFunc

	mu      sync.Mutex
	bufs    [][]input.Sample
	kick    chan bool
	done    chan struct{}
	err     error
	pending pending
}

// NewCapture starts capturing from the configured device.
func NewCapture(cfg CaptureConfig) (*Capture, error) {
	backend, err := input.InitBackend(cfg.Backend)
	if err != nil {
		return nil, errors.Wrap(err, "failed to init input backend")
	}

	device, err := input.GetDevice(backend, cfg.Device)
	if err != nil {
		backend.Close()
		return nil, errors.Wrap(err, "failed to get input device")
	}

	session, err := backend.Start(input.SessionConfig{
		Device:     device,
		FrameSize:  2,
		SampleSize: cfg.Frames,
		SampleRate: float64(cfg.SampleRate),
	})
	if err != nil {
		backend.Close()
		return nil, errors.Wrap(err, "failed to start input session")
	}

	ctx, cancel := context.WithCancel(context.Background())

	c := &Capture{
		cfg:     cfg,
		backend: backend,
		cancel:  cancel,
		bufs:    input.MakeBuffers(2, cfg.Frames),
		kick:    make(chan bool, 1),
		done:    make(chan struct{}),
	}

	go func() {
		defer close(c.done)
		c.err = session.Start(ctx, c.bufs, c.kick, &c.mu)
	}()

	return c, nil
}

// Read implements Source. It blocks until the device delivers a buffer.
func (c *Capture) Read(dst []int16) (int, error) {
	if c.pending.empty() {
		select {
		case <-c.kick:
		case <-c.done:
			if c.err != nil {
				return 0, errors.Wrap(c.err, "capture stopped")
			}
			return 0, errors.New("capture stopped")
		}
		c.fill()
	}
	return c.pending.drain(dst), nil
}

func (c *Capture) fill() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pending.reset()
	left, right := c.bufs[0], c.bufs[len(c.bufs)-1]

	for i := range left {
		switch c.cfg.Style {
		case MonoLeft:
			c.pending.buf = append(c.pending.buf, floatToInt16(left[i]))
		case MonoRight:
			c.pending.buf = append(c.pending.buf, floatToInt16(right[i]))
		default:
			c.pending.buf = append(c.pending.buf, floatToInt16(left[i]), floatToInt16(right[i]))
		}
	}
}

// floatToInt16 converts a sample in [-1, 1] to 16 bits.
func floatToInt16(v input.Sample) int16 {
	return clampInt16(int(v * 32767))
}

// SampleRate implements Source.
func (c *Capture) SampleRate() int { return c.cfg.SampleRate }

// Channels implements Source.
func (c *Capture) Channels() int { return c.cfg.Style.NumChannels() }

// Close stops the capture and releases the backend.
func (c *Capture) Close() error {
	c.cancel()
	<-c.done
	return c.backend.Close()
}
