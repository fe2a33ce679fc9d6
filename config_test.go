package matrixglow

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"libdb.so/matrixglow/internal/effect"
	"libdb.so/matrixglow/internal/pcm"
	"libdb.so/matrixglow/internal/spectrum"
)

const testConfig = `
brightness = 0.5
gamma = 2.2

[output]
kind = "serial"
device = "/dev/ttyACM0"
baud = 921600
tick = "2us"
frame_rate = 60
double_buffer = true

[audio]
source = "capture"
backend = "ffmpeg-alsa"
device = "hw:1"
channel_style = "stereo"
sample_rate = 48000

[effect]
kind = "rainbow"
scale = "sqrt"
window = "lanczos"
skip_bins = 2
`

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig(strings.NewReader(testConfig))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.NotNil(t, cfg.Brightness)
	assert.Equal(t, 0.5, *cfg.Brightness)
	assert.Equal(t, 2.2, cfg.Gamma)

	assert.Equal(t, OutputConfig{
		Kind:         SerialOutput,
		Device:       "/dev/ttyACM0",
		Baud:         921600,
		Tick:         TOMLDuration(2 * time.Microsecond),
		FrameRate:    60,
		DoubleBuffer: true,
	}, cfg.Output)

	assert.Equal(t, CaptureSource, cfg.Audio.Source)
	assert.Equal(t, "ffmpeg-alsa", cfg.Audio.Backend)
	assert.Equal(t, pcm.Stereo, cfg.Audio.ChannelStyle)
	assert.Equal(t, 48000, cfg.Audio.SampleRate)

	assert.Equal(t, EffectConfig{
		Kind:     effect.RainbowKind,
		Scale:    effect.SqrtScale,
		Window:   spectrum.LanczosWindow,
		SkipBins: 2,
	}, cfg.Effect)
}

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig(strings.NewReader(""))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 1.0, *cfg.Brightness)
	assert.Equal(t, 1.8, cfg.Gamma)
	assert.Equal(t, PreviewOutput, cfg.Output.Kind)
	assert.Equal(t, SineSource, cfg.Audio.Source)
	assert.Equal(t, 44100, cfg.Audio.SampleRate)
	assert.Equal(t, effect.ClassicKind, cfg.Effect.Kind)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		config string
	}{
		{"brightness", "brightness = 1.5"},
		{"output kind", "[output]\nkind = \"hdmi\""},
		{"serial device", "[output]\nkind = \"serial\""},
		{"gpio chip", "[output]\nkind = \"gpio\""},
		{"audio source", "[audio]\nsource = \"radio\""},
		{"file path", "[audio]\nsource = \"file\""},
		{"effect kind", "[effect]\nkind = \"strobe\""},
		{"effect scale", "[effect]\nscale = \"cubic\""},
		{"effect window", "[effect]\nwindow = \"blackman\""},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg, err := ParseConfig(strings.NewReader(test.config))
			require.NoError(t, err)
			assert.Error(t, cfg.Validate())

			_, err = NewDaemon(cfg, nil)
			assert.Error(t, err)
		})
	}
}

func TestParseConfigBadDuration(t *testing.T) {
	_, err := ParseConfig(strings.NewReader("[output]\ntick = \"soon\""))
	assert.Error(t, err)
}
