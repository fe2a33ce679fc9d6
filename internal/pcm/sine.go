package pcm

import "math"

// Sine is an endless sine tone, identical on every channel.
type Sine struct {
	step     float64
	phase    float64
	amp      float64
	rate     int
	channels int
	// ch is the channel of the next sample within the current frame.
	ch int
}

// NewSine creates a tone of the given frequency. The amplitude is a fraction
// of full scale.
func NewSine(freq, amp float64, rate, channels int) *Sine {
	return &Sine{
		step:     2 * math.Pi * freq / float64(rate),
		amp:      min(max(amp, 0), 1) * 32767,
		rate:     rate,
		channels: max(channels, 1),
	}
}

// Read implements Source. It never returns an error.
func (s *Sine) Read(dst []int16) (int, error) {
	for i := range dst {
		dst[i] = int16(s.amp * math.Sin(s.phase))
		if s.ch++; s.ch == s.channels {
			s.ch = 0
			s.phase = math.Mod(s.phase+s.step, 2*math.Pi)
		}
	}
	return len(dst), nil
}

// SampleRate implements Source.
func (s *Sine) SampleRate() int { return s.rate }

// Channels implements Source.
func (s *Sine) Channels() int { return s.channels }

// Close implements Source.
func (s *Sine) Close() error { return nil }
