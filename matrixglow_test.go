package matrixglow

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"libdb.so/matrixglow/internal/effect"
	"libdb.so/matrixglow/internal/spectrum"
)

func newTestDaemon(t *testing.T, cfg *Config) *Daemon {
	t.Helper()
	cfg.setDefaults()

	d, err := NewDaemon(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	d.stdout = io.Discard
	return d
}

func writeTestWAV(t *testing.T, samples int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	data := make([]int, samples)
	for i := range data {
		data[i] = (i%64 - 32) * 500
	}

	enc := wav.NewEncoder(f, 44100, 16, 1, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{NumChannels: 1, SampleRate: 44100},
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
	return path
}

func TestDaemonRunsFileToEnd(t *testing.T) {
	d := newTestDaemon(t, &Config{
		Audio: AudioConfig{
			Source: FileSource,
			Path:   writeTestWAV(t, 8*spectrum.Stride),
		},
	})

	done := make(chan error, 1)
	go func() { done <- d.Run(context.Background()) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("daemon did not stop at the end of the file")
	}
}

func TestDaemonStopsOnCancel(t *testing.T) {
	for _, kind := range []string{"classic", "rainbow", "cover-art"} {
		t.Run(kind, func(t *testing.T) {
			cfg := &Config{}
			cfg.Effect.Kind = effect.Kind(kind)
			cfg.Output.DoubleBuffer = kind == "rainbow"
			d := newTestDaemon(t, cfg)

			ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
			defer cancel()

			err := d.Run(ctx)
			assert.ErrorIs(t, err, context.DeadlineExceeded)
		})
	}
}

func TestDaemonMissingFile(t *testing.T) {
	d := newTestDaemon(t, &Config{
		Audio: AudioConfig{
			Source: FileSource,
			Path:   filepath.Join(t.TempDir(), "missing.flac"),
		},
	})
	assert.Error(t, d.Run(context.Background()))
}
