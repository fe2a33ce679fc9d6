// Command matrixglow listens to an audio source and draws it on the LED
// matrix.
package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"libdb.so/matrixglow"
	"libdb.so/matrixglow/internal/effect"
)

const defaultConfig = "matrixglow.toml"

type flags struct {
	config      string
	verbose     bool
	brightness  float64
	audio       string
	effect      string
	listEffects bool
}

func parseFlags(args []string) (*flags, *pflag.FlagSet, error) {
	f := &flags{config: defaultConfig}

	set := pflag.NewFlagSet("matrixglow", pflag.ContinueOnError)
	set.StringVarP(&f.config, "config", "c", f.config, "TOML configuration file, optional unless given explicitly")
	set.BoolVarP(&f.verbose, "verbose", "v", false, "log pipeline and frame timing details")
	set.Float64VarP(&f.brightness, "brightness", "b", 1, "panel brightness from 0 to 1")
	set.StringVarP(&f.audio, "audio", "a", "", "play this audio file instead of the configured source")
	set.StringVarP(&f.effect, "effect", "e", "", "effect to draw ("+effectNames()+")")
	set.BoolVar(&f.listEffects, "list-effects", false, "print the effect names and exit")

	if err := set.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, set, nil
}

func effectNames() string {
	names := make([]string, 0, len(effect.Kinds()))
	for _, k := range effect.Kinds() {
		names = append(names, string(k))
	}
	return strings.Join(names, ", ")
}

func main() {
	f, set, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if f.listEffects {
		for _, k := range effect.Kinds() {
			fmt.Println(k)
		}
		return
	}

	level := slog.LevelWarn
	if f.verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))

	cfg, err := loadConfig(f, set)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration file and applies the command line
// overrides. A missing file is only an error if -c was given.
func loadConfig(f *flags, set *pflag.FlagSet) (*matrixglow.Config, error) {
	cfg, err := readConfig(f.config)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist) && !set.Changed("config"):
		slog.Debug("no configuration file, using defaults", "path", f.config)
		cfg, err = matrixglow.ParseConfig(strings.NewReader(""))
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	if set.Changed("brightness") {
		cfg.Brightness = &f.brightness
	}
	if f.audio != "" {
		cfg.Audio.Source = matrixglow.FileSource
		cfg.Audio.Path = f.audio
	}
	if f.effect != "" {
		cfg.Effect.Kind = effect.Kind(f.effect)
	}

	return cfg, nil
}

func readConfig(path string) (*matrixglow.Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open config file")
	}
	defer file.Close()

	cfg, err := matrixglow.ParseConfig(file)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", path)
	}
	return cfg, nil
}

func run(cfg *matrixglow.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	d, err := matrixglow.NewDaemon(cfg, slog.Default())
	if err != nil {
		return errors.Wrap(err, "invalid configuration")
	}

	if err := d.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return errors.Wrap(err, "matrixglow stopped")
	}
	return nil
}
