package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"libdb.so/ledchase"
	"libdb.so/ledchase/internal/backend"
)

var (
	config  = "ledchase.toml"
	verbose = false
)

func init() {
	pflag.StringVarP(&config, "config", "c", config, "configuration file")
	pflag.BoolVarP(&verbose, "verbose", "v", verbose, "verbose output")
}

func main() {
	pflag.Parse()

	logLevel := slog.LevelWarn
	if verbose {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		// Initialization failures also go to a plain stderr line with the
		// numeric code, so they are visible even with logging turned off.
		var coded interface{ Code() int }
		if errors.As(err, &coded) {
			fmt.Fprintf(os.Stderr, "LED init failed: %d\n", coded.Code())
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func run() error {
	cfg, err := readConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	lines, closer, err := backend.Open(cfg, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to open LED backend: %w", err)
	}
	defer closer.Close()

	seq := ledchase.NewSequencer(lines, cfg.SequencerConfig(), slog.Default())

	if err := seq.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("sequencer failed: %w", err)
	}

	return nil
}

func readConfig() (*ledchase.Config, error) {
	f, err := os.Open(config)
	if err != nil {
		// Missing config means the stock pinout; anything else is fatal.
		if os.IsNotExist(err) {
			return ledchase.DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	return ledchase.ParseConfig(f)
}
