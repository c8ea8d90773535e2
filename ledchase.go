// Package ledchase drives a small fixed set of LEDs through a boot flash
// followed by an endless forward-and-back chase animation.
package ledchase

import (
	"context"
	"log/slog"
	"time"
)

// SequencerConfig holds the timing constants for the animation. Zero
// durations are valid and mean "no hold".
type SequencerConfig struct {
	// StepDelay is the hold between the two toggles of a single chase step.
	StepDelay time.Duration
	// LapDelay is the hold after a full forward-and-back lap.
	LapDelay time.Duration
	// FlashOnDelay is the hold with all LEDs lit during a startup flash.
	// The stock configuration keeps this at zero; see DefaultConfig.
	FlashOnDelay time.Duration
	// FlashOffDelay is the hold with all LEDs dark during a startup flash.
	FlashOffDelay time.Duration
	// StartupFlashes is how many times the whole set flashes at boot.
	StartupFlashes int
}

// Sequencer owns a set of LED lines and runs the chase pattern over them.
// All of its methods run on the caller's goroutine; delays are blocking
// sleeps interrupted only by context cancellation.
type Sequencer struct {
	lines  Lines
	cfg    SequencerConfig
	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewSequencer creates a sequencer over the given lines. The lines must not
// be mutated by anyone else for the sequencer's lifetime.
func NewSequencer(lines Lines, cfg SequencerConfig, logger *slog.Logger) *Sequencer {
	return &Sequencer{
		lines:  lines,
		cfg:    cfg,
		logger: logger,
		sleep:  sleepCtx,
	}
}

// Initialize checks and configures every line in order. It fails fast: the
// first unready or unconfigurable line aborts initialization, and lines
// after it are never touched. Lines before it stay configured; outputs
// default to a safe inactive state, so nothing is rolled back.
func (s *Sequencer) Initialize() error {
	for i, line := range s.lines {
		if !line.IsReady() {
			s.logger.Error(
				"LED GPIO device not ready",
				"led", i)
			return &NotReadyError{Index: i}
		}

		// Configure to inactive so boards wired active-low don't flash
		// at boot.
		if err := line.ConfigureOutput(Inactive); err != nil {
			cerr := &ConfigureError{Index: i, Err: err}
			s.logger.Error(
				"LED configure failed",
				"led", i,
				"code", cerr.Code())
			return cerr
		}
	}
	return nil
}

// StartupBlink flashes the whole set flashes times as a boot-health
// indicator. Every flash ends with all LEDs inactive. It returns early only
// when ctx is canceled.
func (s *Sequencer) StartupBlink(ctx context.Context, flashes int) error {
	for n := 0; n < flashes; n++ {
		s.lines.SetAll(Active)
		if err := s.sleep(ctx, s.cfg.FlashOnDelay); err != nil {
			s.lines.SetAll(Inactive)
			return err
		}
		s.lines.SetAll(Inactive)
		if err := s.sleep(ctx, s.cfg.FlashOffDelay); err != nil {
			return err
		}
	}
	return nil
}

// ChaseLap runs one forward-and-back sweep of single-LED blinks, then holds
// for the lap delay. Each step toggles a line, holds, and toggles it back,
// so a lap leaves every line at its pre-call level no matter where
// cancellation lands.
func (s *Sequencer) ChaseLap(ctx context.Context) error {
	for i := 0; i < len(s.lines); i++ {
		if err := s.blinkStep(ctx, i); err != nil {
			return err
		}
	}
	for i := len(s.lines) - 1; i >= 0; i-- {
		if err := s.blinkStep(ctx, i); err != nil {
			return err
		}
	}
	return s.sleep(ctx, s.cfg.LapDelay)
}

func (s *Sequencer) blinkStep(ctx context.Context, i int) error {
	s.lines[i].Toggle()
	err := s.sleep(ctx, s.cfg.StepDelay)
	s.lines[i].Toggle()
	return err
}

// Run initializes the lines, blinks them, then chases forever. It blocks
// until the given context is canceled and returns the context's error; on
// this daemon cancellation is the software stand-in for power-down.
// Initialization failures are returned as *NotReadyError or
// *ConfigureError.
func (s *Sequencer) Run(ctx context.Context) error {
	if err := s.Initialize(); err != nil {
		return err
	}

	s.logger.Info("LEDs ready", "count", len(s.lines))

	if err := s.StartupBlink(ctx, s.cfg.StartupFlashes); err != nil {
		return err
	}

	for {
		if err := s.ChaseLap(ctx); err != nil {
			return err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
