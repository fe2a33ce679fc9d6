package matrixglow

import (
	"encoding"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
	"libdb.so/matrixglow/internal/effect"
	"libdb.so/matrixglow/internal/matrix"
	"libdb.so/matrixglow/internal/pcm"
	"libdb.so/matrixglow/internal/spectrum"
)

// Config is the configuration for the matrixglow daemon.
type Config struct {
	// Brightness is the initial brightness in [0, 1]. It defaults to 1.
	Brightness *float64 `toml:"brightness"`
	// Gamma is the gamma exponent of the panel. It defaults to 1.8.
	Gamma float64 `toml:"gamma"`

	Output OutputConfig `toml:"output"`
	Audio  AudioConfig  `toml:"audio"`
	Effect EffectConfig `toml:"effect"`
}

// OutputKind is where the bitstream is shifted out to.
type OutputKind string

const (
	// SerialOutput sends every pass to a microcontroller over a serial port.
	SerialOutput OutputKind = "serial"
	// GPIOOutput bit-bangs the panel on Linux GPIO lines.
	GPIOOutput OutputKind = "gpio"
	// SPIOutput shifts the columns out over SPI.
	SPIOutput OutputKind = "spi"
	// PreviewOutput draws the panel in the terminal.
	PreviewOutput OutputKind = "preview"
)

// OutputConfig is the configuration for the panel output.
type OutputConfig struct {
	Kind OutputKind `toml:"kind"`

	// Device is the path to the serial device. This is usually /dev/ttyACM0.
	Device string `toml:"device"`
	// Baud is the baud rate for the serial connection.
	Baud int `toml:"baud"`
	// Chip is the GPIO chip, such as gpiochip0.
	Chip string `toml:"chip"`
	// SPIPort is the SPI port name. Empty picks the first one.
	SPIPort string `toml:"spi_port"`
	// SPIFrequency is the SPI clock in Hz.
	SPIFrequency int64 `toml:"spi_frequency"`
	// Tick is the display time of one BCD tick for the GPIO and SPI outputs.
	Tick TOMLDuration `toml:"tick"`
	// FrameRate caps the passes per second sent to the serial and preview
	// outputs.
	FrameRate int `toml:"frame_rate"`
	// DoubleBuffer draws into a back buffer and shows it whole.
	DoubleBuffer bool `toml:"double_buffer"`
}

// AudioSourceKind is where the samples come from.
type AudioSourceKind string

const (
	// FileSource decodes a WAV, MP3 or FLAC file.
	FileSource AudioSourceKind = "file"
	// CaptureSource records from a sound device.
	CaptureSource AudioSourceKind = "capture"
	// SineSource generates a test tone.
	SineSource AudioSourceKind = "sine"
)

// AudioConfig is the configuration for the audio source.
type AudioConfig struct {
	Source AudioSourceKind `toml:"source"`

	// Path is the audio file for the file source.
	Path string `toml:"path"`
	// Loop restarts the file when it ends.
	Loop bool `toml:"loop"`

	// Backend is the catnip input backend for the capture source.
	Backend string `toml:"backend"`
	// Device is the capture device. Empty means the default device.
	Device string `toml:"device"`
	// ChannelStyle selects the captured channels.
	ChannelStyle pcm.ChannelStyle `toml:"channel_style"`

	// SampleRate is the capture and tone rate in Hz.
	SampleRate int `toml:"sample_rate"`
	// Channels is the number of tone channels.
	Channels int `toml:"channels"`
	// Frequency is the tone frequency in Hz.
	Frequency float64 `toml:"frequency"`
	// Amplitude is the tone amplitude as a fraction of full scale.
	Amplitude float64 `toml:"amplitude"`
}

// EffectConfig is the configuration for the effect.
type EffectConfig struct {
	Kind   effect.Kind         `toml:"kind"`
	Scale  effect.ScaleMode    `toml:"scale"`
	Window spectrum.WindowKind `toml:"window"`
	// SkipBins is the number of lowest FFT bins left out.
	SkipBins int `toml:"skip_bins"`
	// Cover is an image file shown by the cover-art effect.
	Cover string `toml:"cover"`
}

const (
	defaultBaud       = 115200
	defaultSampleRate = 44100
	defaultFrequency  = 440
	defaultAmplitude  = 0.5
	defaultBackend    = "parec"
)

// setDefaults fills in zero values.
func (c *Config) setDefaults() {
	if c.Brightness == nil {
		v := 1.0
		c.Brightness = &v
	}
	if c.Gamma == 0 {
		c.Gamma = matrix.DefaultGamma
	}
	if c.Output.Kind == "" {
		c.Output.Kind = PreviewOutput
	}
	if c.Output.Baud == 0 {
		c.Output.Baud = defaultBaud
	}
	if c.Audio.Source == "" {
		c.Audio.Source = SineSource
	}
	if c.Audio.Backend == "" {
		c.Audio.Backend = defaultBackend
	}
	if c.Audio.SampleRate == 0 {
		c.Audio.SampleRate = defaultSampleRate
	}
	if c.Audio.Channels == 0 {
		c.Audio.Channels = 1
	}
	if c.Audio.Frequency == 0 {
		c.Audio.Frequency = defaultFrequency
	}
	if c.Audio.Amplitude == 0 {
		c.Audio.Amplitude = defaultAmplitude
	}
	if c.Effect.Kind == "" {
		c.Effect.Kind = effect.ClassicKind
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Brightness != nil && (*c.Brightness < 0 || *c.Brightness > 1) {
		return fmt.Errorf("brightness %g out of range [0, 1]", *c.Brightness)
	}
	if c.Gamma < 0 {
		return fmt.Errorf("invalid gamma %g", c.Gamma)
	}

	switch c.Output.Kind {
	case SerialOutput:
		if c.Output.Device == "" {
			return errors.New("serial output requires a device")
		}
	case GPIOOutput:
		if c.Output.Chip == "" {
			return errors.New("gpio output requires a chip")
		}
	case SPIOutput, PreviewOutput, "":
	default:
		return fmt.Errorf("unknown output kind %q", c.Output.Kind)
	}

	switch c.Audio.Source {
	case FileSource:
		if c.Audio.Path == "" {
			return errors.New("file source requires a path")
		}
	case CaptureSource, SineSource, "":
	default:
		return fmt.Errorf("unknown audio source %q", c.Audio.Source)
	}
	if c.Audio.SampleRate < 0 || c.Audio.Channels < 0 {
		return errors.New("negative sample rate or channel count")
	}

	if c.Effect.Kind != "" && !slices.Contains(effect.Kinds(), c.Effect.Kind) {
		return fmt.Errorf("unknown effect %q (known: %v)", c.Effect.Kind, effect.Kinds())
	}
	if err := c.Effect.Scale.Validate(); err != nil {
		return errors.Wrap(err, "invalid effect scale")
	}
	if err := c.Effect.Window.Validate(); err != nil {
		return errors.Wrap(err, "invalid effect window")
	}

	return nil
}

// TOMLDuration is a duration that can be parsed from TOML.
type TOMLDuration time.Duration

var (
	_ encoding.TextUnmarshaler = (*TOMLDuration)(nil)
	_ encoding.TextMarshaler   = (*TOMLDuration)(nil)
)

func (d *TOMLDuration) UnmarshalText(text []byte) error {
	duration, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = TOMLDuration(duration)
	return nil
}

func (d TOMLDuration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// ParseConfig parses a configuration from a reader and fills in defaults.
func ParseConfig(r io.Reader) (*Config, error) {
	var config Config
	if err := toml.NewDecoder(r).Decode(&config); err != nil {
		return nil, err
	}
	config.setDefaults()
	return &config, nil
}
