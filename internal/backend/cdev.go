package backend

import (
	"io"
	"log/slog"

	"github.com/pkg/errors"
	"github.com/warthog618/go-gpiocdev"

	"libdb.so/ledchase"
)

func openCdev(cfg *ledchase.Config, logger *slog.Logger) (ledchase.Lines, io.Closer, error) {
	lines := make(ledchase.Lines, 0, len(cfg.LEDs))
	cdevLines := make([]*cdevLine, 0, len(cfg.LEDs))
	for _, led := range cfg.LEDs {
		l := &cdevLine{
			chip:      cfg.Chip,
			offset:    led.Offset,
			activeLow: led.ActiveLow,
			logger:    logger,
		}
		lines = append(lines, l)
		cdevLines = append(cdevLines, l)
	}

	return lines, closerFunc(func() error {
		var firstErr error
		for _, l := range cdevLines {
			if l.line == nil {
				continue
			}
			if err := l.line.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}), nil
}

type cdevLine struct {
	chip      string
	offset    int
	activeLow bool
	logger    *slog.Logger

	line *gpiocdev.Line
	// value shadows the last driven logical level. The character device
	// does not read back driven outputs, so Toggle works off this.
	value int
}

var _ ledchase.Line = (*cdevLine)(nil)

func (l *cdevLine) IsReady() bool {
	return gpiocdev.IsChip(l.chip) == nil
}

func (l *cdevLine) ConfigureOutput(initial ledchase.Level) error {
	opts := []gpiocdev.LineReqOption{gpiocdev.AsOutput(levelValue(initial))}
	if l.activeLow {
		// The kernel normalizes polarity for us; values stay logical.
		opts = append(opts, gpiocdev.AsActiveLow)
	}

	line, err := gpiocdev.RequestLine(l.chip, l.offset, opts...)
	if err != nil {
		return errors.Wrapf(err, "failed to request %s:%d as output", l.chip, l.offset)
	}

	l.line = line
	l.value = levelValue(initial)
	return nil
}

func (l *cdevLine) SetLevel(lvl ledchase.Level) {
	l.drive(levelValue(lvl))
}

func (l *cdevLine) Toggle() {
	l.drive(l.value ^ 1)
}

func (l *cdevLine) drive(value int) {
	if err := l.line.SetValue(value); err != nil {
		l.logger.Warn(
			"failed to set line value",
			"chip", l.chip,
			"offset", l.offset,
			"error", err)
		return
	}
	l.value = value
}

func levelValue(lvl ledchase.Level) int {
	if lvl == ledchase.Active {
		return 1
	}
	return 0
}
