// Package matrixglow drives an LED matrix panel with an audio-reactive
// effect. The Daemon ties an audio source, an effect and the panel output
// together.
package matrixglow

import (
	"context"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"libdb.so/matrixglow/internal/display"
	"libdb.so/matrixglow/internal/effect"
	"libdb.so/matrixglow/internal/pcm"
	"libdb.so/matrixglow/internal/pipeline"
	"libdb.so/matrixglow/internal/sink"
	"libdb.so/matrixglow/internal/sink/gpiosink"
	"libdb.so/matrixglow/internal/sink/previewsink"
	"libdb.so/matrixglow/internal/sink/serialsink"
	"libdb.so/matrixglow/internal/sink/spisink"
	"libdb.so/matrixglow/internal/spectrum"
	"periph.io/x/conn/v3/physic"
)

// Daemon is the main matrixglow daemon.
type Daemon struct {
	cfg    *Config
	logger *slog.Logger

	// stdout is where the preview output draws.
	stdout io.Writer
}

// NewDaemon creates a new matrixglow daemon.
func NewDaemon(cfg *Config, logger *slog.Logger) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	cfg.setDefaults()

	return &Daemon{
		cfg:    cfg,
		logger: logger,
		stdout: os.Stdout,
	}, nil
}

// Run starts the daemon. It blocks until the given context is canceled, the
// audio source ends or the output fails.
func (d *Daemon) Run(ctx context.Context) error {
	src, err := d.openSource()
	if err != nil {
		return errors.Wrap(err, "failed to open audio source")
	}
	defer src.Close()

	d.logger.Info(
		"audio source opened",
		"source", d.cfg.Audio.Source,
		"sample_rate", src.SampleRate(),
		"channels", src.Channels())

	errg, ctx := errgroup.WithContext(ctx)

	out, err := d.openSink(ctx, errg)
	if err != nil {
		return errors.Wrap(err, "failed to open output")
	}

	port := pipeline.NewEmulated(out,
		pipeline.OnError(func(err error) {
			d.logger.Error("output pipeline stopped", "error", err)
		}),
	)

	opts := []display.Option{
		display.WithLogger(d.logger),
		display.WithGamma(d.cfg.Gamma),
		display.WithBrightness(*d.cfg.Brightness),
	}
	if d.cfg.Output.DoubleBuffer {
		opts = append(opts, display.WithDoubleBuffer())
	}

	disp := display.New(port, opts...)
	if err := disp.Init(); err != nil {
		if err := out.Close(); err != nil {
			d.logger.Warn("failed to close output", "error", err)
		}
		errg.Wait()
		return errors.Wrap(err, "failed to initialize display")
	}

	eff, err := effect.New(d.cfg.Effect.Kind, disp, effect.Config{
		Scale:    d.cfg.Effect.Scale,
		Window:   d.cfg.Effect.Window,
		SkipBins: d.cfg.Effect.SkipBins,
	})
	if err != nil {
		disp.Close()
		errg.Wait()
		return err
	}
	eff.Init(pcm.InterleavedRate(src))

	if cover, ok := eff.(*effect.CoverArt); ok {
		img, err := d.loadCover()
		if err != nil {
			d.logger.Warn("failed to load cover, showing caption", "error", err)
		}
		cover.SetCover(img)
	}

	errg.Go(func() error {
		defer func() {
			d.logger.Debug("closing display")
			if err := disp.Close(); err != nil {
				d.logger.Warn("failed to close display", "error", err)
			}
		}()
		return d.mainLoop(ctx, src, eff, disp)
	})

	return errg.Wait()
}

func (d *Daemon) openSource() (pcm.Source, error) {
	cfg := d.cfg.Audio

	switch cfg.Source {
	case FileSource:
		if cfg.Loop {
			return pcm.Loop(func() (pcm.Source, error) {
				return pcm.OpenFile(cfg.Path)
			})
		}
		return pcm.OpenFile(cfg.Path)

	case CaptureSource:
		return pcm.NewCapture(pcm.CaptureConfig{
			Backend:    cfg.Backend,
			Device:     cfg.Device,
			SampleRate: cfg.SampleRate,
			Style:      cfg.ChannelStyle,
			Frames:     spectrum.Stride,
		})

	case SineSource:
		return pcm.NewSine(cfg.Frequency, cfg.Amplitude, cfg.SampleRate, cfg.Channels), nil

	default:
		return nil, errors.Errorf("unknown audio source %q", cfg.Source)
	}
}

// openSink opens the configured output. Goroutines the output needs are
// started on errg.
func (d *Daemon) openSink(ctx context.Context, errg *errgroup.Group) (pipeline.Sink, error) {
	cfg := d.cfg.Output
	tick := time.Duration(cfg.Tick)

	switch cfg.Kind {
	case SerialOutput:
		scfg := serialsink.Config{
			Device: cfg.Device,
			Baud:   cfg.Baud,
		}
		if cfg.FrameRate > 0 {
			scfg.Interval = time.Second / time.Duration(cfg.FrameRate)
		}

		s, err := serialsink.Open(scfg, d.logger)
		if err != nil {
			return nil, err
		}

		errg.Go(func() error { return s.Run(ctx) })

		if err := s.Initialize(ctx); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil

	case GPIOOutput:
		return gpiosink.Open(cfg.Chip, sink.DefaultPins, tick, d.logger)

	case SPIOutput:
		freq := physic.Frequency(cfg.SPIFrequency) * physic.Hertz
		return spisink.Open(cfg.SPIPort, freq, sink.DefaultPins, tick, d.logger)

	case PreviewOutput:
		return previewsink.New(d.stdout, cfg.FrameRate, d.cfg.Gamma), nil

	default:
		return nil, errors.Errorf("unknown output kind %q", cfg.Kind)
	}
}

func (d *Daemon) loadCover() (image.Image, error) {
	if d.cfg.Effect.Cover == "" {
		return nil, nil
	}

	f, err := os.Open(d.cfg.Effect.Cover)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open cover")
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode cover")
	}
	return img, nil
}

// mainLoop feeds one stride of audio to the effect per tick. The tick period
// is the time the source takes to play one stride.
func (d *Daemon) mainLoop(ctx context.Context, src pcm.Source, eff effect.Effect, disp *display.Display) error {
	period := pcm.Period(src, spectrum.Stride)
	if period <= 0 {
		return errors.New("audio source has no sample rate")
	}

	d.logger.Debug("starting control loop", "period", period)

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	samples := make([]int16, spectrum.Stride)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		start := time.Now()

		if _, err := pcm.ReadFull(src, samples); err != nil {
			if errors.Is(err, io.EOF) {
				d.logger.Info("audio source ended")
				return nil
			}
			return errors.Wrap(err, "failed to read audio")
		}

		eff.Update(samples)

		if err := disp.Update(); err != nil {
			return errors.Wrap(err, "failed to update display")
		}

		if took := time.Since(start); took > period {
			d.logger.Debug(
				"tick overran its period",
				"took", took,
				"period", period)
		}
	}
}
